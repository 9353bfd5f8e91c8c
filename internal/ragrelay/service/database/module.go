package database

import (
	"context"

	"github.com/kiosk404/ragrelay/pkg/logger"
)

// Config holds the configuration for the SQL query module.
type Config struct {
	Driver string `json:"driver,omitempty"`
	// DSN of the queried database. Empty disables the module.
	DSN      string `json:"dsn,omitempty"`
	ReadOnly bool   `json:"read_only,omitempty"`
	MaxRows  int    `json:"max_rows,omitempty"`
}

// CompletedConfig is the validated and completed configuration.
type CompletedConfig struct {
	*Config
}

// Complete validates and fills defaults.
func (c *Config) Complete() CompletedConfig {
	if c.Driver == "" {
		c.Driver = "sqlite3"
	}
	if c.MaxRows <= 0 {
		c.MaxRows = DefaultMaxRows
	}
	return CompletedConfig{c}
}

// Module exposes the Querier; it is nil when no DSN is configured.
type Module struct {
	Querier *Querier
}

// New connects to the configured database. completer may be nil.
func (c CompletedConfig) New(ctx context.Context, completer Completer) (*Module, error) {
	if c.DSN == "" {
		logger.Info("[SQL] no database configured, sql-query disabled")
		return &Module{}, nil
	}
	q, err := Open(ctx, Options{
		Driver:   c.Driver,
		DSN:      c.DSN,
		ReadOnly: c.ReadOnly,
		MaxRows:  c.MaxRows,
	}, completer)
	if err != nil {
		return nil, err
	}
	return &Module{Querier: q}, nil
}

func (m *Module) Enabled() bool {
	return m.Querier != nil
}

func (m *Module) Close() error {
	if m.Querier != nil {
		return m.Querier.Close()
	}
	return nil
}
