package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Responder writes the final answer from what the tools gathered.
type Responder interface {
	Respond(ctx context.Context, plan *Plan) (*schema.StreamReader[*schema.Message], error)
}

const defaultAnswerPrompt = `You answer questions using only the context gathered by tools.
If the context does not contain the answer, say so briefly. Keep the answer concise and use markdown.`

// LLMResponder streams the answer from a chat model.
type LLMResponder struct {
	model        model.BaseChatModel
	systemPrompt string
}

func NewLLMResponder(m model.BaseChatModel, systemPrompt string) *LLMResponder {
	if systemPrompt == "" {
		systemPrompt = defaultAnswerPrompt
	}
	return &LLMResponder{model: m, systemPrompt: systemPrompt}
}

func (r *LLMResponder) Respond(ctx context.Context, plan *Plan) (*schema.StreamReader[*schema.Message], error) {
	msgs := []*schema.Message{schema.SystemMessage(r.systemPrompt)}
	msgs = append(msgs, historyMessages(plan.History)...)
	msgs = append(msgs, schema.UserMessage(answerPrompt(plan)))
	return r.model.Stream(ctx, msgs)
}

func answerPrompt(plan *Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\n", plan.Goal)
	ok := plan.Successful()
	if len(ok) == 0 {
		b.WriteString("No context was found.\n")
		return b.String()
	}
	b.WriteString("Context:\n")
	for _, o := range ok {
		fmt.Fprintf(&b, "[%d] %s: %s\n", o.Step, o.ToolName, renderContent(o.Result.Content))
	}
	return b.String()
}

// SummaryResponder answers without a model by quoting the successful tool
// results. It is the fallback when no chat model is configured.
type SummaryResponder struct{}

func (SummaryResponder) Respond(_ context.Context, plan *Plan) (*schema.StreamReader[*schema.Message], error) {
	return schema.StreamReaderFromArray([]*schema.Message{
		schema.AssistantMessage(Summarize(plan), nil),
	}), nil
}

// Summarize renders the gathered results as a plain answer.
func Summarize(plan *Plan) string {
	ok := plan.Successful()
	if len(ok) == 0 {
		var b strings.Builder
		fmt.Fprintf(&b, "I could not find an answer to %q.", plan.Goal)
		for _, o := range plan.Observations {
			fmt.Fprintf(&b, "\n- %s failed: %s", o.ToolName, o.Result.RawError)
		}
		return b.String()
	}
	if len(ok) == 1 {
		return renderContent(ok[0].Result.Content)
	}
	var b strings.Builder
	for i, o := range ok {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "**%s**\n\n%s", o.ToolName, renderContent(o.Result.Content))
	}
	return b.String()
}

// splitChunks cuts text at word boundaries into pieces of roughly size
// runes. Joining the pieces gives back text.
func splitChunks(text string, size int) []string {
	if size <= 0 || len([]rune(text)) <= size {
		if text == "" {
			return nil
		}
		return []string{text}
	}
	var (
		out []string
		cur strings.Builder
		n   int
	)
	for _, word := range strings.SplitAfter(text, " ") {
		cur.WriteString(word)
		n += len([]rune(word))
		if n >= size {
			out = append(out, cur.String())
			cur.Reset()
			n = 0
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}
