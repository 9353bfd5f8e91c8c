package helper

import (
	"context"

	"github.com/bytedance/gg/gptr"
	einoOpenAI "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/domain/entity"
)

// NewOpenAICompatibleChatModel creates an eino chat model against an
// OpenAI-compatible endpoint.
func NewOpenAICompatibleChatModel(ctx context.Context, instance *entity.ModelInstance, params *entity.LLMParams) (model.ToolCallingChatModel, error) {
	p := instance.Resolve(params)
	cfg := &einoOpenAI.ChatModelConfig{
		Model:     instance.Ref.ModelID,
		APIKey:    instance.APIKey,
		MaxTokens: gptr.Of(4096),
		ResponseFormat: &einoOpenAI.ChatCompletionResponseFormat{
			Type: einoOpenAI.ChatCompletionResponseFormatTypeText,
		},
		Temperature: p.Temperature,
		TopP:        p.TopP,
	}
	if instance.BaseURL != "" {
		cfg.BaseURL = instance.BaseURL
	}
	if p.MaxTokens != 0 {
		cfg.MaxTokens = gptr.Of(p.MaxTokens)
	}
	if p.JSONOutput {
		cfg.ResponseFormat = &einoOpenAI.ChatCompletionResponseFormat{
			Type: einoOpenAI.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return einoOpenAI.NewChatModel(ctx, cfg)
}
