package mcp

import (
	"context"
	"fmt"
	"sync"

	mcpTool "github.com/cloudwego/eino-ext/components/tool/mcp"
	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/kiosk404/ragrelay/pkg/logger"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// ServerStatus represents the connection state of an MCP server.
type ServerStatus int

const (
	ServerStatusDisconnected ServerStatus = iota
	ServerStatusConnecting
	ServerStatusConnected
	ServerStatusError
)

func (s ServerStatus) String() string {
	switch s {
	case ServerStatusDisconnected:
		return "Disconnected"
	case ServerStatusConnecting:
		return "Connecting"
	case ServerStatusConnected:
		return "Connected"
	case ServerStatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// DialFunc creates a started, not yet initialized, MCP client.
type DialFunc func(ctx context.Context) (client.MCPClient, error)

// MCPServer is one external engine connection.
type MCPServer struct {
	name   string
	config *ServerConfig
	dial   DialFunc

	mu     sync.RWMutex
	client client.MCPClient
	tools  []einotool.BaseTool
	status ServerStatus
	err    error
}

func NewMCPServer(name string, cfg *ServerConfig) *MCPServer {
	s := &MCPServer{name: name, config: cfg, status: ServerStatusDisconnected}
	s.dial = s.createClient
	return s
}

// NewMCPServerWithDialer is NewMCPServer with a custom client factory,
// e.g. an in-process client.
func NewMCPServerWithDialer(name string, cfg *ServerConfig, dial DialFunc) *MCPServer {
	return &MCPServer{name: name, config: cfg, dial: dial, status: ServerStatusDisconnected}
}

func (s *MCPServer) Name() string {
	return s.name
}

func (s *MCPServer) Config() *ServerConfig {
	return s.config
}

func (s *MCPServer) Status() ServerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Err returns the last connection error.
func (s *MCPServer) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Tools returns the discovered tools; empty unless connected.
func (s *MCPServer) Tools() []einotool.BaseTool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]einotool.BaseTool, len(s.tools))
	copy(result, s.tools)
	return result
}

// Connect performs the MCP handshake and discovers tools.
func (s *MCPServer) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = ServerStatusConnecting
	s.err = nil

	fail := func(step string, err error) error {
		s.status = ServerStatusError
		s.err = err
		return fmt.Errorf("[MCP] server %q: %s: %w", s.name, step, err)
	}

	cli, err := s.dial(ctx)
	if err != nil {
		return fail("failed to create client", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "ragrelay",
		Version: "0.1.0",
	}
	if _, err := cli.Initialize(ctx, initReq); err != nil {
		_ = cli.Close()
		return fail("failed to initialize", err)
	}

	tools, err := mcpTool.GetTools(ctx, &mcpTool.Config{
		Cli:          cli,
		ToolNameList: s.config.ToolFilter,
	})
	if err != nil {
		_ = cli.Close()
		return fail("failed to get tools", err)
	}

	s.client = cli
	s.tools = tools
	s.status = ServerStatusConnected
	logger.Info("[MCP] server %q connected (%d tools)", s.name, len(tools))
	return nil
}

func (s *MCPServer) Reconnect(ctx context.Context) error {
	s.Close()
	return s.Connect(ctx)
}

func (s *MCPServer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		if err := s.client.Close(); err != nil {
			logger.Warn("[MCP] server %q: failed to close client: %v", s.name, err)
		}
		s.client = nil
	}
	s.tools = nil
	s.status = ServerStatusDisconnected
	s.err = nil
}

// createClient builds a transport-specific client. Stdio clients start
// their subprocess on creation; the HTTP based ones need Start.
func (s *MCPServer) createClient(ctx context.Context) (client.MCPClient, error) {
	switch s.config.Transport {
	case TransportStdio, "":
		return client.NewStdioMCPClient(s.config.Command, s.config.Env, s.config.Args...)
	case TransportSSE:
		cli, err := client.NewSSEMCPClient(s.config.URL)
		if err != nil {
			return nil, err
		}
		return cli, startClient(ctx, cli)
	case TransportStreamableHTTP:
		cli, err := client.NewStreamableHttpClient(s.config.URL)
		if err != nil {
			return nil, err
		}
		return cli, startClient(ctx, cli)
	default:
		return nil, fmt.Errorf("unknown transport: %s", s.config.Transport)
	}
}

func startClient(ctx context.Context, cli *client.Client) error {
	if err := cli.Start(ctx); err != nil {
		_ = cli.Close()
		return fmt.Errorf("start client: %w", err)
	}
	return nil
}
