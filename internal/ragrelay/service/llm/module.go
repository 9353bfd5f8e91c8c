package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/kiosk404/ragrelay/internal/pkg/options"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/domain/entity"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/domain/service"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/provider"
	"github.com/kiosk404/ragrelay/pkg/logger"
)

// Config holds the configuration for the LLM module.
type Config struct {
	ModelOptions *options.ModelOptions

	// OutOfTreeRegistry registers provider plugins beyond the built-in
	// ones. If nil, only in-tree providers are available.
	OutOfTreeRegistry *provider.Registry
}

// CompletedConfig is the validated and completed configuration.
type CompletedConfig struct {
	*Config
}

// Complete validates and fills defaults.
func (c *Config) Complete() CompletedConfig {
	if c.ModelOptions == nil {
		c.ModelOptions = options.NewModelOptions()
	}
	return CompletedConfig{c}
}

// Module is the top-level LLM module.
type Module struct {
	Manager  service.ModelManager
	Registry *provider.Registry

	fallbacks []entity.ModelRef
}

// New builds the provider registry, merges out-of-tree plugins and loads
// the configured models. Chat models themselves are built lazily.
func (c CompletedConfig) New(ctx context.Context) (*Module, error) {
	logger.Info("[LLM] creating LLM module...")

	registry := provider.NewInTreeRegistry()
	if c.OutOfTreeRegistry != nil {
		if err := registry.Merge(c.OutOfTreeRegistry); err != nil {
			return nil, fmt.Errorf("failed to merge out-of-tree providers: %w", err)
		}
	}
	logger.Info("[LLM] provider registry initialized with %d plugins", registry.Len())

	manager := service.NewModelManager(c.ModelOptions, registry)
	if err := manager.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize LLM module: %w", err)
	}

	fallbacks := make([]entity.ModelRef, 0, len(c.ModelOptions.Fallbacks))
	for _, s := range c.ModelOptions.Fallbacks {
		ref, err := entity.ParseModelRef(s)
		if err != nil {
			return nil, err
		}
		if _, err := manager.GetModel(ref); err != nil {
			return nil, fmt.Errorf("fallback %s: %w", ref, err)
		}
		fallbacks = append(fallbacks, ref)
	}

	return &Module{
		Manager:   manager,
		Registry:  registry,
		fallbacks: fallbacks,
	}, nil
}

// Enabled reports whether any model is configured.
func (m *Module) Enabled() bool {
	_, err := m.Manager.DefaultRef()
	return err == nil
}

// ChatModel returns a cached chat model for ref.
func (m *Module) ChatModel(ctx context.Context, ref entity.ModelRef) (model.ToolCallingChatModel, error) {
	return m.Manager.GetChatModel(ctx, ref)
}

// BuildChatModel builds a fresh chat model with params applied.
func (m *Module) BuildChatModel(ctx context.Context, ref entity.ModelRef, params *entity.LLMParams) (model.ToolCallingChatModel, error) {
	return m.Manager.BuildChatModel(ctx, ref, params)
}

// DefaultChatModel returns the default model, chained with the configured
// fallbacks.
func (m *Module) DefaultChatModel(ctx context.Context) (model.ToolCallingChatModel, error) {
	ref, err := m.Manager.DefaultRef()
	if err != nil {
		return nil, err
	}
	refs := append([]entity.ModelRef{ref}, m.fallbacks...)
	candidates := make([]service.Candidate, 0, len(refs))
	for _, r := range refs {
		cm, err := m.Manager.GetChatModel(ctx, r)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, service.Candidate{Name: r.String(), Model: cm})
	}
	return service.NewFallbackModel(candidates...)
}

// Completer returns a single-shot completer over the default model.
func (m *Module) Completer(ctx context.Context) (*service.Completer, error) {
	cm, err := m.DefaultChatModel(ctx)
	if err != nil {
		return nil, err
	}
	return service.NewCompleter(cm), nil
}
