package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/pkg"
	"github.com/kiosk404/ragrelay/pkg/logger"
)

// Candidate is one model of a fallback chain.
type Candidate struct {
	Name  string
	Model model.ToolCallingChatModel
}

// fallbackModel tries its candidates in order and returns the first
// success. Context cancellation is never retried.
type fallbackModel struct {
	candidates []Candidate
}

// NewFallbackModel returns the only candidate as is, or a model that falls
// through the candidates on error.
func NewFallbackModel(candidates ...Candidate) (model.ToolCallingChatModel, error) {
	switch len(candidates) {
	case 0:
		return nil, errors.New("fallback chain is empty")
	case 1:
		return candidates[0].Model, nil
	}
	return &fallbackModel{candidates: candidates}, nil
}

func (m *fallbackModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	var errs []error
	for _, c := range m.candidates {
		msg, err := c.Model.Generate(ctx, input, opts...)
		if err == nil {
			return msg, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		logger.WarnX(pkg.ModuleName, "[LLM] model %s failed, trying next: %v", c.Name, err)
		errs = append(errs, fmt.Errorf("%s: %w", c.Name, err))
	}
	return nil, errors.Join(errs...)
}

// Stream falls through only on errors raised before the stream opens.
func (m *fallbackModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	var errs []error
	for _, c := range m.candidates {
		sr, err := c.Model.Stream(ctx, input, opts...)
		if err == nil {
			return sr, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		logger.WarnX(pkg.ModuleName, "[LLM] model %s failed to stream, trying next: %v", c.Name, err)
		errs = append(errs, fmt.Errorf("%s: %w", c.Name, err))
	}
	return nil, errors.Join(errs...)
}

func (m *fallbackModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	bound := make([]Candidate, 0, len(m.candidates))
	for _, c := range m.candidates {
		cm, err := c.Model.WithTools(tools)
		if err != nil {
			return nil, fmt.Errorf("bind tools to %s: %w", c.Name, err)
		}
		bound = append(bound, Candidate{Name: c.Name, Model: cm})
	}
	return &fallbackModel{candidates: bound}, nil
}
