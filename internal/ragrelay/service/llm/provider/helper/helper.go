package helper

import (
	"os"
	"strings"

	"github.com/kiosk404/ragrelay/internal/pkg/options"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/domain/entity"
)

type BasePlugin struct {
	PluginName string
}

func (b *BasePlugin) Name() string {
	return b.PluginName
}

func (b *BasePlugin) DefaultConfig() *options.ProviderConfig {
	return &options.ProviderConfig{API: b.PluginName}
}

// BuildModels resolves the model definitions of a provider config into
// instances. providerID is the key the provider was configured under.
func BuildModels(providerID string, cfg *options.ProviderConfig) []*entity.ModelInstance {
	api := cfg.API
	if api == "" {
		api = providerID
	}
	apiKey := ResolveEnvValue(cfg.APIKey)

	models := make([]*entity.ModelInstance, 0, len(cfg.Models))
	for _, def := range cfg.Models {
		name := def.Name
		if name == "" {
			name = def.ID
		}
		models = append(models, &entity.ModelInstance{
			Ref:           entity.ModelRef{ProviderID: providerID, ModelID: def.ID},
			API:           api,
			Name:          name,
			BaseURL:       cfg.BaseURL,
			APIKey:        apiKey,
			Headers:       cfg.Headers,
			ContextWindow: def.ContextWindow,
			MaxTokens:     def.MaxTokens,
			Reasoning:     def.Reasoning,
			Temperature:   def.Temperature,
			TopP:          def.TopP,
		})
	}
	return models
}

// ResolveEnvValue resolves "${ENV_VAR}" references in a string.
func ResolveEnvValue(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}
	return s
}
