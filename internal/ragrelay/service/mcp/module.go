package mcp

import (
	"context"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/tool"
	"github.com/kiosk404/ragrelay/pkg/logger"
)

type Config struct {
	MCPConfig *MCPConfig
}

// CompletedConfig is the completed configuration for MCP.
type CompletedConfig struct {
	*Config
}

// Complete fills defaults.
func (c *Config) Complete() CompletedConfig {
	if c.MCPConfig == nil {
		c.MCPConfig = NewMCPConfig()
	}
	for _, srv := range c.MCPConfig.MCPServers {
		if srv.Transport == "" {
			srv.Transport = TransportStdio
		}
	}
	return CompletedConfig{c}
}

// Module is the top-level MCP module.
type Module struct {
	Manager Manager
}

// New connects to the configured servers. Unreachable servers are logged
// and left out; they never fail startup.
func (c CompletedConfig) New(ctx context.Context) (*Module, error) {
	mgr := newManager(c.MCPConfig)
	if err := mgr.Initialize(ctx); err != nil {
		logger.Warn("[MCP] initialization had error: %v", err)
	}
	logger.Info("[MCP] module initialized (%d servers configured)", len(c.MCPConfig.MCPServers))
	return &Module{Manager: mgr}, nil
}

// RegisterTools adds the tools of every connected server to r. adjust,
// when set, may edit each descriptor before it is registered.
func (m *Module) RegisterTools(ctx context.Context, r *tool.Registry, adjust func(name string, d *tool.Descriptor)) (int, error) {
	n := 0
	for _, srv := range m.Manager.Servers() {
		if srv.Status() != ServerStatusConnected {
			continue
		}
		descs, err := Descriptors(ctx, srv)
		if err != nil {
			return n, err
		}
		for _, d := range descs {
			if adjust != nil {
				adjust(d.Name, &d)
			}
			if err := r.Register(d.Name, d); err != nil {
				return n, err
			}
			n++
		}
	}
	if n > 0 {
		logger.Info("[MCP] registered %d external engine tools", n)
	}
	return n, nil
}

func (m *Module) Close() error {
	if m.Manager != nil {
		return m.Manager.Close()
	}
	return nil
}
