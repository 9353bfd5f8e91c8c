package options

import (
	"fmt"

	"github.com/kiosk404/ragrelay/internal/ragrelay/handler/middleware"
	"github.com/spf13/pflag"
)

type AuthOptions struct {
	Enabled       bool   `json:"enabled"        mapstructure:"enabled"`
	Token         string `json:"token"          mapstructure:"token"`
	AllowLoopback bool   `json:"allow-loopback" mapstructure:"allow-loopback"`
}

func NewAuthOptions() *AuthOptions {
	return &AuthOptions{}
}

func (o *AuthOptions) Validate() []error {
	if o.Enabled && o.AuthConfig().ResolveToken() == "" {
		return []error{fmt.Errorf("--auth.enabled needs --auth.token or %s", middleware.TokenEnv)}
	}
	return nil
}

func (o *AuthOptions) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Enabled, "auth.enabled", o.Enabled, "Require a bearer token on API requests.")
	fs.StringVar(&o.Token, "auth.token", o.Token, "Expected bearer token, falls back to $"+middleware.TokenEnv+".")
	fs.BoolVar(&o.AllowLoopback, "auth.allow-loopback", o.AllowLoopback, "Let loopback clients through without a token.")
}

func (o *AuthOptions) AuthConfig() *middleware.AuthConfig {
	return &middleware.AuthConfig{
		Enabled:       o.Enabled,
		Token:         o.Token,
		AllowLoopback: o.AllowLoopback,
	}
}

type LogOptions struct {
	// File receives a copy of the log; empty logs to stdout only.
	File string `json:"file" mapstructure:"file"`
}

func NewLogOptions() *LogOptions {
	return &LogOptions{File: "logs/ragrelay.log"}
}

func (o *LogOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.File, "log.file", o.File, "File that receives a copy of the log.")
}
