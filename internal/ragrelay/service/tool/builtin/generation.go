package builtin

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/entity"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/tool"
)

const (
	answerSystemPrompt = `You answer questions for a retrieval system.
Use only the provided context. If the context does not contain the answer, say so.
Answer in concise markdown.`

	followUpSystemPrompt = `You suggest follow-up questions a user could ask next.
Reply with one question per line and nothing else.`

	defaultFollowUps = 3
	maxFollowUps     = 10
)

var listMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)

func responseGenerationDescriptor(c Completer) tool.Descriptor {
	return tool.Descriptor{
		Description: "Draft an answer to a question from gathered context.",
		Parameters: []tool.ParameterDef{
			{Name: tool.ArgQuestion, Type: "string", Description: "question to answer", Required: true},
			{Name: "context", Type: "string", Description: "facts the answer may use"},
		},
		Enabled: c != nil,
		State:   entity.StateGenerateAnswer,
		Display: "Generating the answer",
		Factory: func() (tool.Tool, error) {
			return tool.FromHandler(func(ctx context.Context, args map[string]any) (any, error) {
				question, err := stringArg(args, tool.ArgQuestion)
				if err != nil {
					return nil, err
				}
				background := optionalString(args, "context")
				if background == "" {
					background = "(no context was gathered)"
				}
				prompt := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", background, question)
				answer, err := c.Complete(ctx, answerSystemPrompt, prompt)
				if err != nil {
					return nil, fmt.Errorf("generate answer: %w", err)
				}
				return answer, nil
			}), nil
		},
	}
}

// FollowUps is the content of a further-questions result.
type FollowUps []string

func (f FollowUps) String() string {
	lines := make([]string, len(f))
	for i, q := range f {
		lines[i] = "- " + q
	}
	return strings.Join(lines, "\n")
}

func furtherQuestionsDescriptor(c Completer) tool.Descriptor {
	return tool.Descriptor{
		Description: "Suggest follow-up questions that would refine or extend the user's question.",
		Parameters: []tool.ParameterDef{
			{Name: tool.ArgQuestion, Type: "string", Description: "the question so far", Required: true},
			{Name: "count", Type: "integer", Description: "number of suggestions, default 3"},
		},
		Enabled: c != nil,
		State:   entity.StateRefineQuestion,
		Display: "Refining the question",
		Factory: func() (tool.Tool, error) {
			return tool.FromHandler(func(ctx context.Context, args map[string]any) (any, error) {
				question, err := stringArg(args, tool.ArgQuestion)
				if err != nil {
					return nil, err
				}
				count := min(max(intArg(args, "count", defaultFollowUps), 1), maxFollowUps)
				prompt := fmt.Sprintf("Question: %s\n\nSuggest %d follow-up questions.", question, count)
				reply, err := c.Complete(ctx, followUpSystemPrompt, prompt)
				if err != nil {
					return nil, fmt.Errorf("suggest questions: %w", err)
				}
				questions := parseList(reply, count)
				if len(questions) == 0 {
					return nil, fmt.Errorf("model suggested no questions")
				}
				return FollowUps(questions), nil
			}), nil
		},
	}
}

// parseList reads one item per line, dropping bullets and numbering.
func parseList(text string, limit int) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		item := strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if item == "" {
			continue
		}
		items = append(items, item)
		if len(items) == limit {
			break
		}
	}
	return items
}
