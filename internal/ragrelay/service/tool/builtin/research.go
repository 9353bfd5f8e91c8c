package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/entity"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/service/runtime"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/tool"
	"golang.org/x/sync/errgroup"
)

const (
	decomposeSystemPrompt = `You break a research question into independent sub-questions
that can each be answered by a document search.
Reply with one sub-question per line and nothing else.`

	synthesizeSystemPrompt = `You write a research summary from findings.
Use only the findings, cite sources by their bracketed number, and note gaps.`

	defaultSubQuestions = 3
	maxSubQuestions     = 6
	researchTopK        = 3
	researchParallelism = 4
)

// Finding holds the passages retrieved for one sub-question.
type Finding struct {
	Question string   `json:"question"`
	Passages Passages `json:"passages"`
}

// Report is the content of a deep-research result.
type Report struct {
	Question string    `json:"question"`
	Findings []Finding `json:"findings"`
	Summary  string    `json:"summary,omitempty"`
}

func (r *Report) String() string {
	if r.Summary != "" {
		return r.Summary
	}
	var b strings.Builder
	for i, f := range r.Findings {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "### %s\n%s", f.Question, f.Passages.String())
	}
	return b.String()
}

// deepResearchDescriptor needs a Retriever; the Completer is optional and
// improves both the split into sub-questions and the final summary.
func deepResearchDescriptor(r Retriever, c Completer) tool.Descriptor {
	return tool.Descriptor{
		Description: "Research a broad question: split it into sub-questions, search documents for each " +
			"in parallel and combine the findings.",
		Parameters: []tool.ParameterDef{
			{Name: tool.ArgQuestion, Type: "string", Description: "the research question", Required: true},
			{Name: "max_subquestions", Type: "integer", Description: "upper bound on searched questions, the original included, default 3"},
		},
		Enabled: r != nil,
		State:   entity.StateSearchRelatedDocuments,
		Display: "Researching in depth",
		Factory: func() (tool.Tool, error) {
			return tool.FromHandler(func(ctx context.Context, args map[string]any) (any, error) {
				question, err := stringArg(args, tool.ArgQuestion)
				if err != nil {
					return nil, err
				}
				limit := min(max(intArg(args, "max_subquestions", defaultSubQuestions), 1), maxSubQuestions)
				return research(ctx, r, c, question, limit)
			}), nil
		},
	}
}

func research(ctx context.Context, r Retriever, c Completer, question string, limit int) (*Report, error) {
	subs := decompose(ctx, c, question, limit)

	findings := make([]Finding, len(subs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(researchParallelism)
	for i, sub := range subs {
		g.Go(func() error {
			docs, err := r.Retrieve(gctx, sub, researchTopK)
			if err != nil {
				return fmt.Errorf("research %q: %w", sub, err)
			}
			findings[i] = Finding{Question: sub, Passages: docs}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{Question: question, Findings: findings}
	if c == nil {
		return report, nil
	}
	prompt := fmt.Sprintf("Research question: %s\n\nFindings:\n%s", question, report.String())
	summary, err := c.Complete(ctx, synthesizeSystemPrompt, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// keep the findings, only the summary is lost
		return report, nil
	}
	report.Summary = strings.TrimSpace(summary)
	return report, nil
}

// decompose asks the model for sub-questions and falls back to splitting
// the question on its own punctuation. The question itself is always
// researched first and counts towards limit.
func decompose(ctx context.Context, c Completer, question string, limit int) []string {
	var candidates []string
	if c != nil && limit > 1 {
		prompt := fmt.Sprintf("Question: %s\n\nGive at most %d sub-questions.", question, limit-1)
		if reply, err := c.Complete(ctx, decomposeSystemPrompt, prompt); err == nil {
			candidates = parseList(reply, limit-1)
		}
	}
	if len(candidates) == 0 {
		candidates = runtime.SplitQuery(question)
	}

	subs := []string{question}
	seen := map[string]bool{strings.ToLower(question): true}
	for _, s := range candidates {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == "" || seen[key] || len(subs) >= limit {
			continue
		}
		seen[key] = true
		subs = append(subs, strings.TrimSpace(s))
	}
	return subs
}
