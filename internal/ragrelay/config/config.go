package config

import (
	"github.com/kiosk404/ragrelay/internal/ragrelay/options"
)

// Config is the running configuration of the ragrelay server.
type Config struct {
	*options.Options
}

// CreateConfigFromOptions creates a running configuration from opts.
func CreateConfigFromOptions(opts *options.Options) (*Config, error) {
	return &Config{opts}, nil
}
