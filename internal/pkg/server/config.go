package server

import (
	"time"

	"github.com/gin-gonic/gin"
)

// Config is a structure used to configure a GenericAPIServer.
type Config struct {
	Mode            string
	Address         string
	Healthz         bool
	EnableProfiling bool
	Middlewares     []string
	ShutdownTimeout time.Duration
}

// NewConfig returns a Config struct with the default values.
func NewConfig() *Config {
	return &Config{
		Mode:            gin.ReleaseMode,
		Address:         "0.0.0.0:8088",
		Healthz:         true,
		EnableProfiling: false,
		Middlewares:     []string{},
		ShutdownTimeout: 10 * time.Second,
	}
}

// CompletedConfig is the completed configuration for GenericAPIServer.
type CompletedConfig struct {
	*Config
}

// Complete fills in any fields not set that are required to have valid data
// and can be derived from other fields.
func (c *Config) Complete() CompletedConfig {
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	return CompletedConfig{c}
}

// New returns a new instance of GenericAPIServer from the given config.
func (c CompletedConfig) New() (*GenericAPIServer, error) {
	gin.SetMode(c.Mode)

	s := &GenericAPIServer{
		address:         c.Address,
		healthz:         c.Healthz,
		enableProfiling: c.EnableProfiling,
		middlewares:     c.Middlewares,
		shutdownTimeout: c.ShutdownTimeout,
		Engine:          gin.New(),
	}

	initGenericAPIServer(s)

	return s, nil
}
