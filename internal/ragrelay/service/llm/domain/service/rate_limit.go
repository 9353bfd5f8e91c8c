package service

import (
	"context"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"
)

// rateLimitedModel waits on a shared limiter before each call.
type rateLimitedModel struct {
	inner   model.ToolCallingChatModel
	limiter *rate.Limiter
}

func NewRateLimitedModel(inner model.ToolCallingChatModel, limiter *rate.Limiter) model.ToolCallingChatModel {
	return &rateLimitedModel{inner: inner, limiter: limiter}
}

func (m *rateLimitedModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return m.inner.Generate(ctx, input, opts...)
}

func (m *rateLimitedModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return m.inner.Stream(ctx, input, opts...)
}

func (m *rateLimitedModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	bound, err := m.inner.WithTools(tools)
	if err != nil {
		return nil, err
	}
	return &rateLimitedModel{inner: bound, limiter: m.limiter}, nil
}
