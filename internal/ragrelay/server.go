package ragrelay

import (
	"context"
	"fmt"
	"log"

	genericapiserver "github.com/kiosk404/ragrelay/internal/pkg/server"
	"github.com/kiosk404/ragrelay/internal/ragrelay/config"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/database"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/knowledge"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/mcp"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/tool"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/tool/builtin"
	"github.com/kiosk404/ragrelay/pkg/logger"
	"github.com/kiosk404/ragrelay/pkg/shutdown"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

type apiServer struct {
	gs               *shutdown.GracefulShutdown
	gRPCAPIServer    *genericapiserver.GRPCAPIServer
	genericAPIServer *genericapiserver.GenericAPIServer
	cfg              *config.Config

	llmModule       *llm.Module
	knowledgeModule *knowledge.Module
	databaseModule  *database.Module
	mcpModule       *mcp.Module
	chatModule      *chat.Module
}

type preparedAPIServer struct {
	*apiServer
}

// ExtraConfig defines extra configuration for the gRPC server.
type ExtraConfig struct {
	Addr       string
	MaxMsgSize int
}

type completedExtraConfig struct {
	*ExtraConfig
}

func (c *ExtraConfig) complete() *completedExtraConfig {
	if c.Addr == "" {
		c.Addr = "127.0.0.1:8081"
	}

	return &completedExtraConfig{c}
}

// New creates a gRPC server carrying health and reflection.
func (c *completedExtraConfig) New() (*genericapiserver.GRPCAPIServer, error) {
	opts := []grpc.ServerOption{grpc.MaxRecvMsgSize(c.MaxMsgSize)}
	grpcServer := grpc.NewServer(opts...)

	reflection.Register(grpcServer)

	return genericapiserver.NewGRPCAPIServer(grpcServer, c.Addr), nil
}

func createAPIServer(cfg *config.Config) (*apiServer, error) {
	ctx := context.Background()

	gs := shutdown.New()
	gs.AddShutdownManager(shutdown.NewPosixSignalManager())

	genericConfig, err := buildGenericConfig(cfg)
	if err != nil {
		return nil, err
	}
	genericServer, err := genericConfig.Complete().New()
	if err != nil {
		return nil, err
	}
	extraServer, err := buildExtraConfig(cfg).complete().New()
	if err != nil {
		return nil, err
	}

	server := &apiServer{
		gs:               gs,
		genericAPIServer: genericServer,
		gRPCAPIServer:    extraServer,
		cfg:              cfg,
	}
	if err := server.initModules(ctx); err != nil {
		server.closeModules()
		return nil, err
	}

	return server, nil
}

// initModules builds the service modules in dependency order:
// llm, knowledge, database, tools, chat.
func (s *apiServer) initModules(ctx context.Context) error {
	cfg := s.cfg

	llmCfg := &llm.Config{ModelOptions: cfg.ModelOptions}
	llmModule, err := llmCfg.Complete().New(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM module: %w", err)
	}
	s.llmModule = llmModule

	deps := builtin.Dependencies{}
	var dbCompleter database.Completer
	if llmModule.Enabled() {
		completer, err := llmModule.Completer(ctx)
		if err != nil {
			return fmt.Errorf("failed to build completer: %w", err)
		}
		deps.Completer = completer
		dbCompleter = completer
	}

	if cfg.KnowledgeOptions.Enabled() {
		knowledgeCfg := &knowledge.Config{}
		cfg.KnowledgeOptions.ApplyTo(knowledgeCfg)
		s.knowledgeModule, err = knowledgeCfg.Complete().New(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize knowledge module: %w", err)
		}
		if cfg.KnowledgeOptions.DocsDir != "" {
			deps.Retriever = s.knowledgeModule.Manager
		}
		if cfg.KnowledgeOptions.GraphFile != "" {
			deps.Graph = s.knowledgeModule.Manager
		}
	} else {
		logger.Info("[Ragrelay] no documents or graph configured, knowledge tools disabled")
	}

	databaseCfg := &database.Config{}
	cfg.SQLOptions.ApplyTo(databaseCfg)
	s.databaseModule, err = databaseCfg.Complete().New(ctx, dbCompleter)
	if err != nil {
		return fmt.Errorf("failed to initialize SQL module: %w", err)
	}
	if s.databaseModule.Enabled() {
		deps.SQL = s.databaseModule.Querier
	}

	registry, err := s.buildRegistry(ctx, deps)
	if err != nil {
		return err
	}

	chatCfg := &chat.Config{}
	cfg.ChatOptions.ApplyTo(chatCfg)
	cfg.StoreOptions.ApplyTo(chatCfg)
	s.chatModule, err = chatCfg.Complete().New(ctx, chat.Dependencies{
		Tools: registry,
		LLM:   llmModule,
	})
	if err != nil {
		return fmt.Errorf("failed to create chat module: %w", err)
	}
	logger.Info("[Ragrelay] modules initialized (%d tools, %d enabled)", registry.Len(), len(registry.Enabled()))
	return nil
}

// buildRegistry registers the builtin tools, then the external engines.
// The catalog applies to both.
func (s *apiServer) buildRegistry(ctx context.Context, deps builtin.Dependencies) (*tool.Registry, error) {
	catalog, err := builtin.LoadCatalog(s.cfg.ToolsOptions.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load tool catalog from %q: %w", s.cfg.ToolsOptions.CatalogFile, err)
	}

	registry := tool.NewRegistry()
	if err := builtin.Register(registry, deps, catalog); err != nil {
		return nil, fmt.Errorf("failed to register builtin tools: %w", err)
	}

	mcpFileCfg, err := mcp.LoadMCPConfig(s.cfg.MCPOptions.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load MCP config from %q: %w", s.cfg.MCPOptions.ConfigFile, err)
	}
	mcpCfg := &mcp.Config{MCPConfig: mcpFileCfg}
	s.mcpModule, err = mcpCfg.Complete().New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP module: %w", err)
	}
	if _, err := s.mcpModule.RegisterTools(ctx, registry, catalog.Apply); err != nil {
		return nil, fmt.Errorf("failed to register external engine tools: %w", err)
	}

	if unknown := catalog.Unknown(registry); len(unknown) > 0 {
		logger.Warn("[Ragrelay] tool catalog names unknown tools: %v", unknown)
	}
	return registry, nil
}

// closeModules releases modules in reverse creation order. Safe on a
// partially built server.
func (s *apiServer) closeModules() {
	if s.chatModule != nil {
		if err := s.chatModule.Close(); err != nil {
			logger.Warn("[Ragrelay] failed to close chat store: %v", err)
		}
	}
	if s.mcpModule != nil {
		s.mcpModule.Close()
	}
	if s.databaseModule != nil {
		s.databaseModule.Close()
	}
	if s.knowledgeModule != nil {
		s.knowledgeModule.Close()
	}
}

func (s *apiServer) PrepareRun() preparedAPIServer {
	initRouter(s.genericAPIServer.Engine, &routerDeps{
		chatService: s.chatModule.Service,
		authConfig:  s.cfg.AuthOptions.AuthConfig(),
	})
	s.gRPCAPIServer.SetServing("", true)

	s.gs.AddShutdownCallback(shutdown.Func(func(string) error {
		s.gRPCAPIServer.SetServing("", false)
		s.gRPCAPIServer.Close()
		s.genericAPIServer.Close()
		s.closeModules()
		return nil
	}))
	return preparedAPIServer{s}
}

func (s preparedAPIServer) Run() error {
	go s.gRPCAPIServer.Run()

	// start shutdown managers
	if err := s.gs.Start(); err != nil {
		log.Fatalf("start shutdown manager failed: %s", err.Error())
	}

	return s.genericAPIServer.Run()
}

func buildGenericConfig(cfg *config.Config) (genericConfig *genericapiserver.Config, lastErr error) {
	genericConfig = genericapiserver.NewConfig()
	if lastErr = cfg.GenericServerRunOptions.ApplyTo(genericConfig); lastErr != nil {
		return
	}

	return
}

func buildExtraConfig(cfg *config.Config) *ExtraConfig {
	return &ExtraConfig{
		Addr:       fmt.Sprintf("%s:%d", cfg.GRPCOptions.BindAddress, cfg.GRPCOptions.BindPort),
		MaxMsgSize: cfg.GRPCOptions.MaxMsgSize,
	}
}
