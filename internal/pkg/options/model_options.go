package options

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

type ModelOptions struct {
	DefaultProvider string                     `json:"default-provider" mapstructure:"default-provider"`
	DefaultModel    string                     `json:"default-model"    mapstructure:"default-model"`
	Providers       map[string]*ProviderConfig `json:"providers"        mapstructure:"providers"`
	// Fallbacks are "provider/model" refs tried in order when the default
	// model fails.
	Fallbacks []string `json:"fallbacks" mapstructure:"fallbacks"`
	// RateLimit caps model calls per second across the process, 0 disables.
	RateLimit float64 `json:"rate-limit" mapstructure:"rate-limit"`
	RateBurst int     `json:"rate-burst" mapstructure:"rate-burst"`
}

type ProviderConfig struct {
	// API selects the client implementation: openai, ollama, claude,
	// deepseek, qwen or gemini.
	API     string            `json:"api"      mapstructure:"api"`
	BaseURL string            `json:"base-url" mapstructure:"base-url"`
	APIKey  string            `json:"api-key"  mapstructure:"api-key"`
	Headers map[string]string `json:"headers"  mapstructure:"headers"`
	Models  []ModelDefinition `json:"models"   mapstructure:"models"`
}

type ModelDefinition struct {
	ID            string   `json:"id"             mapstructure:"id"`
	Name          string   `json:"name"           mapstructure:"name"`
	Reasoning     bool     `json:"reasoning"      mapstructure:"reasoning"`
	ContextWindow int      `json:"context-window" mapstructure:"context-window"`
	MaxTokens     int      `json:"max-tokens"     mapstructure:"max-tokens"`
	Temperature   *float32 `json:"temperature"    mapstructure:"temperature"`
	TopP          *float32 `json:"top-p"          mapstructure:"top-p"`
}

var knownAPIs = map[string]bool{
	"openai":   true,
	"ollama":   true,
	"claude":   true,
	"deepseek": true,
	"qwen":     true,
	"gemini":   true,
}

func NewModelOptions() *ModelOptions {
	return &ModelOptions{
		Providers: make(map[string]*ProviderConfig),
		RateBurst: 1,
	}
}

func (o *ModelOptions) Validate() []error {
	var errs []error
	for id, p := range o.Providers {
		api := p.API
		if api == "" {
			api = id
		}
		if !knownAPIs[api] {
			errs = append(errs, fmt.Errorf("provider %q: unknown api %q", id, api))
		}
		for _, m := range p.Models {
			if m.ID == "" {
				errs = append(errs, fmt.Errorf("provider %q: model id is required", id))
			}
		}
	}
	if o.DefaultProvider != "" {
		if _, ok := o.Providers[o.DefaultProvider]; !ok {
			errs = append(errs, fmt.Errorf("default provider %q is not configured", o.DefaultProvider))
		}
	}
	for _, ref := range o.Fallbacks {
		provider, model, ok := strings.Cut(ref, "/")
		if !ok || provider == "" || model == "" {
			errs = append(errs, fmt.Errorf("models.fallbacks: %q is not a provider/model reference", ref))
		}
	}
	if o.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("models.rate-limit must not be negative"))
	}
	return errs
}

func (o *ModelOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.DefaultProvider, "models.default-provider", o.DefaultProvider, "Default provider ID.")
	fs.StringVar(&o.DefaultModel, "models.default-model", o.DefaultModel, "Default model ID.")
	fs.StringSliceVar(&o.Fallbacks, "models.fallbacks", o.Fallbacks, "Models tried in order when the default model fails, as provider/model.")
	fs.Float64Var(&o.RateLimit, "models.rate-limit", o.RateLimit, "Max model calls per second, 0 for unlimited.")
	fs.IntVar(&o.RateBurst, "models.rate-burst", o.RateBurst, "Burst size for the model rate limiter.")
}
