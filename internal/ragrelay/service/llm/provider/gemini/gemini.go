package gemini

import (
	"context"
	"fmt"

	einoGemini "github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components/model"
	"github.com/kiosk404/ragrelay/internal/pkg/options"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/domain/entity"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/provider/helper"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/provider/spi"
	"google.golang.org/genai"
)

const Name = "gemini"

var _ spi.ProviderPlugin = (*Plugin)(nil)

type Plugin struct {
	helper.BasePlugin
}

func New() spi.ProviderPlugin {
	return &Plugin{
		BasePlugin: helper.BasePlugin{PluginName: Name},
	}
}

// BuildChatModel goes through Google's genai client rather than the
// OpenAI-compatible path.
func (p *Plugin) BuildChatModel(ctx context.Context, instance *entity.ModelInstance, params *entity.LLMParams) (model.ToolCallingChatModel, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  instance.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if instance.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = instance.BaseURL
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client for %s: %w", instance.Ref, err)
	}

	resolved := instance.Resolve(params)
	cfg := &einoGemini.Config{
		Client:      client,
		Model:       instance.Ref.ModelID,
		Temperature: resolved.Temperature,
		TopP:        resolved.TopP,
	}
	if resolved.MaxTokens != 0 {
		mt := resolved.MaxTokens
		cfg.MaxTokens = &mt
	}
	if instance.Reasoning {
		cfg.ThinkingConfig = &genai.ThinkingConfig{IncludeThoughts: true}
	}
	return einoGemini.NewChatModel(ctx, cfg)
}

func (p *Plugin) DefaultConfig() *options.ProviderConfig {
	return &options.ProviderConfig{
		API:     Name,
		BaseURL: "https://generativelanguage.googleapis.com/",
		APIKey:  "${GOOGLE_API_KEY}",
		Models: []options.ModelDefinition{
			{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash", ContextWindow: 1048576, MaxTokens: 8192},
		},
	}
}
