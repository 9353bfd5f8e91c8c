package deepseek

import (
	"context"

	einoDeepseek "github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino/components/model"
	"github.com/kiosk404/ragrelay/internal/pkg/options"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/domain/entity"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/provider/helper"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/provider/spi"
)

const Name = "deepseek"

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
	conf := &einoDeepseek.ChatModelConfig{
		APIKey:             instance.APIKey,
		Model:              instance.Ref.ModelID,
		Temperature:        0.7,
		ResponseFormatType: einoDeepseek.ResponseFormatTypeText,
	}
	if instance.BaseURL != "" {
		conf.BaseURL = instance.BaseURL
	}
	if resolved.Temperature != nil {
		conf.Temperature = *resolved.Temperature
	}
	if resolved.TopP != nil {
		conf.TopP = *resolved.TopP
	}
	if resolved.MaxTokens != 0 {
		conf.MaxTokens = resolved.MaxTokens
	}
	if resolved.JSONOutput {
		conf.ResponseFormatType = einoDeepseek.ResponseFormatTypeJSONObject
	}
	return einoDeepseek.NewChatModel(ctx, conf)
}

func (p *Plugin) DefaultConfig() *options.ProviderConfig {
	return &options.ProviderConfig{
		API:     Name,
		BaseURL: "https://api.deepseek.com/v1",
		APIKey:  "${DEEPSEEK_API_KEY}",
		Models: []options.ModelDefinition{
			{ID: "deepseek-chat", Name: "DeepSeek V3", ContextWindow: 65536, MaxTokens: 8192},
		},
	}
}
