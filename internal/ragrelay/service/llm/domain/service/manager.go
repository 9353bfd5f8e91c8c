package service

import (
	"context"

	"github.com/cloudwego/eino/components/model"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/domain/entity"
)

// ModelManager resolves configured models and builds eino chat models for
// them.
type ModelManager interface {
	// Initialize loads providers and models from configuration.
	Initialize(ctx context.Context) error

	ListModels() []*entity.ModelInstance
	GetModel(ref entity.ModelRef) (*entity.ModelInstance, error)
	// DefaultRef returns errno.ErrNoModelConfigured when no model is set up.
	DefaultRef() (entity.ModelRef, error)

	// GetChatModel returns a cached chat model built with instance defaults.
	GetChatModel(ctx context.Context, ref entity.ModelRef) (model.ToolCallingChatModel, error)
	// BuildChatModel always builds a fresh chat model with params applied.
	BuildChatModel(ctx context.Context, ref entity.ModelRef, params *entity.LLMParams) (model.ToolCallingChatModel, error)
}
