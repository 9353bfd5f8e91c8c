package mcp

import (
	"fmt"
	"os"

	"github.com/kiosk404/ragrelay/pkg/utils/json"
)

const (
	TransportStdio          = "stdio"
	TransportSSE            = "sse"
	TransportStreamableHTTP = "streamable-http"
)

// MCPConfig lists the external engines reachable over MCP.
// The file format follows Claude Desktop / VS Code:
//
//	{
//	  "mcpServers": {
//	    "warehouse": {
//	      "transport": "sse",
//	      "url": "http://localhost:8080/sse",
//	      "toolFilter": ["run_report"]
//	    }
//	  }
//	}
type MCPConfig struct {
	MCPServers map[string]*ServerConfig `json:"mcpServers"`
}

// ServerConfig defines a single MCP server.
type ServerConfig struct {
	// Transport is "stdio" (default), "sse" or "streamable-http".
	Transport string `json:"transport,omitempty"`

	// stdio only
	Command string   `json:"command,omitempty"`
	Args    []string `json:"args,omitempty"`
	Env     []string `json:"env,omitempty"`

	// sse and streamable-http only
	URL string `json:"url,omitempty"`

	// ToolFilter limits the exposed tools; empty exposes all of them.
	ToolFilter []string `json:"toolFilter,omitempty"`
	// Display is the progress text shown while one of its tools runs.
	Display string `json:"display,omitempty"`
}

// LoadMCPConfig reads path. A missing file yields an empty config.
func LoadMCPConfig(path string) (*MCPConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewMCPConfig(), nil
		}
		return nil, fmt.Errorf("failed to read MCP config file %q: %w", path, err)
	}

	cfg := &MCPConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse MCP config file %q: %w", path, err)
	}
	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]*ServerConfig)
	}
	return cfg, nil
}

func NewMCPConfig() *MCPConfig {
	return &MCPConfig{MCPServers: make(map[string]*ServerConfig)}
}

// Validate fills the default transport and reports incomplete servers.
func (c *MCPConfig) Validate() []error {
	var errs []error
	for name, srv := range c.MCPServers {
		if srv.Transport == "" {
			srv.Transport = TransportStdio
		}
		switch srv.Transport {
		case TransportStdio:
			if srv.Command == "" {
				errs = append(errs, fmt.Errorf("mcpServers.%s: command is required for stdio transport", name))
			}
		case TransportSSE, TransportStreamableHTTP:
			if srv.URL == "" {
				errs = append(errs, fmt.Errorf("mcpServers.%s: url is required for %s transport", name, srv.Transport))
			}
		default:
			errs = append(errs, fmt.Errorf("mcpServers.%s: unsupported transport %q", name, srv.Transport))
		}
	}
	return errs
}
