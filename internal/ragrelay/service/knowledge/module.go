package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/knowledge/entity"
	"github.com/kiosk404/ragrelay/pkg/logger"
)

// Config holds the configuration for the knowledge module.
type Config struct {
	// DBPath is the sqlite index file (default: data/knowledge.db).
	DBPath string `json:"db_path,omitempty"`
	// DocsDir holds the documents to index. Empty disables indexing.
	DocsDir string `json:"docs_dir,omitempty"`
	// Watch resyncs the index when DocsDir changes.
	Watch         bool          `json:"watch,omitempty"`
	WatchDebounce time.Duration `json:"watch_debounce,omitempty"`
	// GraphFile is a YAML or JSON knowledge graph loaded at startup.
	GraphFile    string `json:"graph_file,omitempty"`
	ChunkTokens  int    `json:"chunk_tokens,omitempty"`
	ChunkOverlap int    `json:"chunk_overlap,omitempty"`
}

// CompletedConfig is the validated and completed configuration.
type CompletedConfig struct {
	*Config
}

// Complete validates and fills defaults.
func (c *Config) Complete() CompletedConfig {
	if c.DBPath == "" {
		c.DBPath = "data/knowledge.db"
	}
	if c.WatchDebounce <= 0 {
		c.WatchDebounce = defaultWatchDebounce
	}
	if c.ChunkTokens <= 0 {
		c.ChunkTokens = 400
	}
	if c.ChunkOverlap < 0 {
		c.ChunkOverlap = 0
	}
	return CompletedConfig{c}
}

// Module is the knowledge base module.
type Module struct {
	Manager *Manager
}

// New opens the index, syncs the docs directory, loads the graph file and
// starts the watcher, in that order.
func (c CompletedConfig) New(ctx context.Context) (*Module, error) {
	m, err := Open(ctx, Options{
		DBPath:        c.DBPath,
		DocsDir:       c.DocsDir,
		WatchDebounce: c.WatchDebounce,
		Chunking:      entity.ChunkingConfig{Tokens: c.ChunkTokens, Overlap: c.ChunkOverlap},
	})
	if err != nil {
		return nil, err
	}
	if _, err := m.Sync(ctx); err != nil {
		m.Close()
		return nil, fmt.Errorf("initial sync: %w", err)
	}
	if c.GraphFile != "" {
		if _, err := m.LoadGraph(ctx, c.GraphFile); err != nil {
			m.Close()
			return nil, err
		}
	}
	if c.Watch {
		if err := m.Watch(); err != nil {
			logger.Warn("[Knowledge] failed to start file watcher: %v", err)
		}
	}
	logger.Info("[Knowledge] module initialized (docs=%q, graph=%q)", c.DocsDir, c.GraphFile)
	return &Module{Manager: m}, nil
}

func (m *Module) Close() error {
	if m.Manager != nil {
		return m.Manager.Close()
	}
	return nil
}
