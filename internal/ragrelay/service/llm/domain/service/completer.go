package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Completer runs single-shot prompts against a chat model.
type Completer struct {
	model model.BaseChatModel
	opts  []model.Option
}

func NewCompleter(m model.BaseChatModel, opts ...model.Option) *Completer {
	return &Completer{model: m, opts: opts}
}

// Complete sends system and prompt as one exchange and returns the reply
// text. An empty system prompt is left out.
func (c *Completer) Complete(ctx context.Context, system, prompt string) (string, error) {
	msgs := make([]*schema.Message, 0, 2)
	if system != "" {
		msgs = append(msgs, schema.SystemMessage(system))
	}
	msgs = append(msgs, schema.UserMessage(prompt))

	reply, err := c.model.Generate(ctx, msgs, c.opts...)
	if err != nil {
		return "", fmt.Errorf("complete: %w", err)
	}
	return strings.TrimSpace(reply.Content), nil
}
