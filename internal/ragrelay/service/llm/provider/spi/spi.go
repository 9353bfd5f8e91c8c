package spi

import (
	"context"

	"github.com/cloudwego/eino/components/model"
	"github.com/kiosk404/ragrelay/internal/pkg/options"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/domain/entity"
)

// ProviderPlugin builds chat models for one provider API.
type ProviderPlugin interface {
	// Name returns the API name the plugin serves, matched against
	// ProviderConfig.API.
	Name() string
	// DefaultConfig returns the configuration used when the provider is
	// enabled without explicit settings.
	DefaultConfig() *options.ProviderConfig
	// BuildChatModel builds a tool calling chat model for instance.
	// params may be nil, in which case instance defaults are used.
	BuildChatModel(ctx context.Context, instance *entity.ModelInstance, params *entity.LLMParams) (model.ToolCallingChatModel, error)
}

// PluginFactory is a function that creates a ProviderPlugin instance.
type PluginFactory func() ProviderPlugin
