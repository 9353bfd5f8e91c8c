package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/repo"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/service"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/service/runtime"
	boltdbStore "github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/store/boltdb"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/store/inmemory"
	redisStore "github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/store/redis"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/tool"
	"github.com/kiosk404/ragrelay/pkg/logger"
	"go.opentelemetry.io/otel/trace"
)

const (
	PolicyRule = "rule"
	PolicyLLM  = "llm"

	DispatcherHeuristic = "heuristic"
	DispatcherLLM       = "llm"
	DispatcherNone      = "none"

	StoreInMemory = "inmemory"
	StoreBoltDB   = "boltdb"
	StoreRedis    = "redis"
)

// Config holds the configuration for the Chat module.
// Follows Config → Complete() → New(ctx, deps).
type Config struct {
	// MaxSteps bounds the tool calls of one turn (default: 10).
	MaxSteps int `json:"max_steps,omitempty"`
	// StepTimeout bounds a single tool call (default: 30s).
	StepTimeout time.Duration `json:"step_timeout,omitempty"`
	// ChunkRunes is the size of streamed answer chunks (default: 32).
	ChunkRunes int `json:"chunk_runes,omitempty"`
	// PollInterval is how often waiting code re-checks cancellation (default: 50ms).
	PollInterval time.Duration `json:"poll_interval,omitempty"`
	// ElementTimeout bounds the wait for one stream event; 0 derives it
	// from StepTimeout.
	ElementTimeout time.Duration `json:"element_timeout,omitempty"`
	// RunTimeout bounds a whole turn (default: 5m).
	RunTimeout time.Duration `json:"run_timeout,omitempty"`
	// MaxHistoryMessages limits the history handed to a turn (default: 20).
	MaxHistoryMessages int `json:"max_history_messages,omitempty"`

	// Policy selects the next action: "rule" or "llm". "llm" needs a
	// configured model and falls back to "rule" without one.
	Policy       string         `json:"policy,omitempty"`
	PolicyPrompt string         `json:"policy_prompt,omitempty"`
	Rules        []runtime.Rule `json:"rules,omitempty"`
	// Dispatcher splits questions: "heuristic", "llm" or "none".
	Dispatcher string `json:"dispatcher,omitempty"`

	// StoreType selects the persistence backend: "inmemory", "boltdb" or
	// "redis". Default: "inmemory".
	StoreType  string             `json:"store_type,omitempty"`
	BoltDBPath string             `json:"boltdb_path,omitempty"`
	Redis      redisStore.Options `json:"redis,omitempty"`
}

// CompletedConfig is the validated and completed configuration.
type CompletedConfig struct {
	*Config
}

// Complete validates and fills defaults.
func (c *Config) Complete() CompletedConfig {
	if c.MaxSteps <= 0 {
		c.MaxSteps = runtime.DefaultMaxSteps
	}
	if c.StepTimeout <= 0 {
		c.StepTimeout = runtime.DefaultStepTimeout
	}
	if c.ChunkRunes <= 0 {
		c.ChunkRunes = runtime.DefaultChunkRunes
	}
	if c.PollInterval <= 0 {
		c.PollInterval = runtime.DefaultPollInterval
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = 5 * time.Minute
	}
	if c.MaxHistoryMessages <= 0 {
		c.MaxHistoryMessages = 20
	}
	if c.Policy == "" {
		c.Policy = PolicyRule
	}
	if len(c.Rules) == 0 {
		c.Rules = runtime.DefaultRules()
	}
	if c.Dispatcher == "" {
		c.Dispatcher = DispatcherHeuristic
	}
	if c.StoreType == "" {
		c.StoreType = StoreInMemory
	}
	if c.BoltDBPath == "" {
		c.BoltDBPath = "data/ragrelay.db"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "127.0.0.1:6379"
	}
	return CompletedConfig{c}
}

// Dependencies holds the external modules required by the Chat module.
type Dependencies struct {
	Tools *tool.Registry
	// LLM may be nil; the module then runs on rules and summaries only.
	LLM *llm.Module
	// TracerProvider defaults to the global one.
	TracerProvider trace.TracerProvider
}

// Module is the top-level Chat module.
type Module struct {
	Service      service.ChatService
	Orchestrator *runtime.Orchestrator
	repo         repo.ChatRepository
}

// Close releases the chat store.
func (m *Module) Close() error {
	return m.repo.Close()
}

func (c CompletedConfig) New(ctx context.Context, deps Dependencies) (*Module, error) {
	logger.Info("[Chat] creating Chat module...")

	if deps.Tools == nil {
		return nil, fmt.Errorf("tool registry dependency is required")
	}
	llmEnabled := deps.LLM != nil && deps.LLM.Enabled()

	var (
		policy     runtime.Policy     = runtime.NewRulePolicy(c.Rules, tool.NameKnowledgeRetrieval)
		responder  runtime.Responder  = runtime.SummaryResponder{}
		dispatcher runtime.Dispatcher
	)
	policyName := PolicyRule

	if llmEnabled {
		cm, err := deps.LLM.DefaultChatModel(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get default chat model: %w", err)
		}
		responder = runtime.NewLLMResponder(cm, "")
		if c.Policy == PolicyLLM {
			policy = runtime.NewLLMPolicy(cm, c.PolicyPrompt)
			policyName = PolicyLLM
		}
	} else if c.Policy == PolicyLLM {
		logger.Warn("[Chat] policy %q needs a model, none configured; using %q", PolicyLLM, PolicyRule)
	}

	switch c.Dispatcher {
	case DispatcherNone:
	case DispatcherLLM:
		if llmEnabled {
			completer, err := deps.LLM.Completer(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to build dispatcher completer: %w", err)
			}
			dispatcher = runtime.NewLLMDispatcher(completer)
			break
		}
		logger.Warn("[Chat] dispatcher %q needs a model, none configured; using %q", DispatcherLLM, DispatcherHeuristic)
		fallthrough
	default:
		dispatcher = runtime.NewHeuristicDispatcher(c.Rules)
	}

	chatRepo, err := c.openStore(ctx)
	if err != nil {
		return nil, err
	}

	orch := runtime.NewOrchestrator(deps.Tools, policy, responder, runtime.OrchestratorConfig{
		MaxSteps:       c.MaxSteps,
		StepTimeout:    c.StepTimeout,
		ChunkRunes:     c.ChunkRunes,
		PollInterval:   c.PollInterval,
		TracerProvider: deps.TracerProvider,
	})
	svc := service.NewChatService(chatRepo, service.Options{
		Session: runtime.StreamSessionConfig{
			Orchestrator: orch,
			Dispatcher:   dispatcher,
			Bridge: runtime.BridgeConfig{
				PollInterval:   c.PollInterval,
				ElementTimeout: c.ElementTimeout,
			},
			RunTimeout: c.RunTimeout,
		},
		MaxHistoryMessages: c.MaxHistoryMessages,
	})

	logger.Info("[Chat] Chat module initialized (store=%s, policy=%s, dispatcher=%s, max_steps=%d, step_timeout=%s, tools=%d)",
		c.StoreType, policyName, c.Dispatcher, c.MaxSteps, c.StepTimeout, deps.Tools.Len())

	return &Module{
		Service:      svc,
		Orchestrator: orch,
		repo:         chatRepo,
	}, nil
}

func (c CompletedConfig) openStore(ctx context.Context) (repo.ChatRepository, error) {
	switch c.StoreType {
	case StoreBoltDB:
		db, err := boltdbStore.Open(c.BoltDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open boltdb at %s: %w", c.BoltDBPath, err)
		}
		logger.Info("[Chat] using BoltDB store at %s", c.BoltDBPath)
		return boltdbStore.NewChatStore(db), nil
	case StoreRedis:
		s, err := redisStore.Open(ctx, c.Redis)
		if err != nil {
			return nil, err
		}
		logger.Info("[Chat] using Redis store at %s", c.Redis.Addr)
		return s, nil
	case StoreInMemory:
		logger.Info("[Chat] using in-memory store")
		return inmemory.NewChatStore(), nil
	default:
		return nil, fmt.Errorf("unknown store type %q", c.StoreType)
	}
}
