package mcp

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kiosk404/ragrelay/pkg/logger"
)

// Manager keeps the MCP server connections.
type Manager interface {
	// Initialize connects to all configured servers.
	Initialize(ctx context.Context) error
	// Servers returns the servers in name order.
	Servers() []*MCPServer
	Reconnect(ctx context.Context, serverName string) error
	ServerNames() []string
	ServerStatus(serverName string) ServerStatus
	Close() error
}

type managerImpl struct {
	mu      sync.RWMutex
	servers map[string]*MCPServer
	order   []string
}

var _ Manager = (*managerImpl)(nil)

// NewManager builds a manager for the given servers. It does not connect.
func NewManager(servers ...*MCPServer) Manager {
	m := &managerImpl{servers: make(map[string]*MCPServer, len(servers))}
	for _, s := range servers {
		m.servers[s.Name()] = s
		m.order = append(m.order, s.Name())
	}
	sort.Strings(m.order)
	return m
}

func newManager(cfg *MCPConfig) Manager {
	servers := make([]*MCPServer, 0, len(cfg.MCPServers))
	for name, srvCfg := range cfg.MCPServers {
		servers = append(servers, NewMCPServer(name, srvCfg))
	}
	return NewManager(servers...)
}

// Initialize connects to all servers concurrently. It only fails when
// every server failed.
func (m *managerImpl) Initialize(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.servers) == 0 {
		logger.Info("[MCP] no MCP servers configured, skipping initialization")
		return nil
	}
	logger.Info("[MCP] initializing %d MCP servers...", len(m.servers))

	var (
		wg    sync.WaitGroup
		errMu sync.Mutex
		errs  []error
	)
	for _, srv := range m.servers {
		wg.Add(1)
		go func(s *MCPServer) {
			defer wg.Done()
			if err := s.Connect(ctx); err != nil {
				errMu.Lock()
				errs = append(errs, err)
				errMu.Unlock()
				logger.Warn("[MCP] server %q failed to connect: %v", s.Name(), err)
			}
		}(srv)
	}
	wg.Wait()

	connected := 0
	for _, srv := range m.servers {
		if srv.Status() == ServerStatusConnected {
			connected++
		}
	}
	logger.Info("[MCP] initialization complete: %d/%d servers connected", connected, len(m.servers))

	if len(errs) > 0 && connected == 0 {
		return fmt.Errorf("[MCP] all servers failed to connect (%d errors)", len(errs))
	}
	return nil
}

func (m *managerImpl) Servers() []*MCPServer {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*MCPServer, 0, len(m.order))
	for _, name := range m.order {
		result = append(result, m.servers[name])
	}
	return result
}

func (m *managerImpl) Reconnect(ctx context.Context, serverName string) error {
	m.mu.RLock()
	srv, ok := m.servers[serverName]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("[MCP] server %q not found", serverName)
	}
	return srv.Reconnect(ctx)
}

func (m *managerImpl) ServerNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]string, len(m.order))
	copy(result, m.order)
	return result
}

func (m *managerImpl) ServerStatus(serverName string) ServerStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	srv, ok := m.servers[serverName]
	if !ok {
		return ServerStatusDisconnected
	}
	return srv.Status()
}

func (m *managerImpl) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, srv := range m.servers {
		srv.Close()
	}
	logger.Info("[MCP] all servers closed")
	return nil
}
