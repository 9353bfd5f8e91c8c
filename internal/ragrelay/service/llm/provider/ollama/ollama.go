package ollama

import (
	"context"

	"github.com/bytedance/gg/gptr"
	einoOllama "github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino/components/model"
	"github.com/kiosk404/ragrelay/internal/pkg/options"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/domain/entity"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/provider/helper"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/provider/spi"
)

const (
	Name = "ollama"

	defaultBaseURL = "http://127.0.0.1:11434"
)

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
	conf := &einoOllama.ChatModelConfig{
		BaseURL: defaultBaseURL,
		Model:   instance.Ref.ModelID,
		Options: &einoOllama.Options{},
	}
	if instance.BaseURL != "" {
		conf.BaseURL = instance.BaseURL
	}
	if instance.Reasoning {
		conf.Thinking = &einoOllama.ThinkValue{Value: gptr.Of(true)}
	}
	if resolved.Temperature != nil {
		conf.Options.Temperature = *resolved.Temperature
	}
	if resolved.TopP != nil {
		conf.Options.TopP = *resolved.TopP
	}
	if resolved.MaxTokens != 0 {
		conf.Options.NumPredict = resolved.MaxTokens
	}
	return einoOllama.NewChatModel(ctx, conf)
}

func (p *Plugin) DefaultConfig() *options.ProviderConfig {
	return &options.ProviderConfig{
		API:     Name,
		BaseURL: defaultBaseURL,
		Models:  []options.ModelDefinition{{ID: "qwen3:8b", Name: "Qwen3 8B", ContextWindow: 32768}},
	}
}
