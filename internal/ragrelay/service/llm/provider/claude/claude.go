package claude

import (
	"context"

	einoClaude "github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino/components/model"
	"github.com/kiosk404/ragrelay/internal/pkg/options"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/domain/entity"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/provider/helper"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/provider/spi"
)

const Name = "claude"

var _ spi.ProviderPlugin = (*Plugin)(nil)

type Plugin struct {
	helper.BasePlugin
}

func New() spi.ProviderPlugin {
	return &Plugin{
		BasePlugin: helper.BasePlugin{PluginName: Name},
	}
}

func (p *Plugin) BuildChatModel(ctx context.Context, instance *entity.ModelInstance, params *entity.LLMParams) (model.ToolCallingChatModel, error) {
	resolved := instance.Resolve(params)
	cfg := &einoClaude.Config{
		APIKey:      instance.APIKey,
		Model:       instance.Ref.ModelID,
		MaxTokens:   4096,
		Temperature: resolved.Temperature,
		TopP:        resolved.TopP,
	}
	if resolved.MaxTokens != 0 {
		cfg.MaxTokens = resolved.MaxTokens
	}
	if instance.BaseURL != "" {
		baseURL := instance.BaseURL
		cfg.BaseURL = &baseURL
	}
	return einoClaude.NewChatModel(ctx, cfg)
}

func (p *Plugin) DefaultConfig() *options.ProviderConfig {
	return &options.ProviderConfig{
		API:     Name,
		BaseURL: "https://api.anthropic.com/v1",
		APIKey:  "${ANTHROPIC_API_KEY}",
		Models: []options.ModelDefinition{
			{ID: "claude-sonnet-4-5", Name: "Claude Sonnet 4.5", ContextWindow: 200000, MaxTokens: 8192},
		},
	}
}
