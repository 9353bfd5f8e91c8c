package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/entity"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/tool"
	"github.com/kiosk404/ragrelay/pkg/utils/json"
)

// Dispatcher splits a query into independently resolvable sub-queries and
// optionally assigns each one a tool.
type Dispatcher interface {
	Route(ctx context.Context, query string, tools []tool.Descriptor) ([]entity.SubQuery, error)
}

// DispatchError reports a query that could not be routed. Callers fall back
// to the whole query.
type DispatchError struct {
	Query  string
	Reason string
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %q: %s", e.Query, e.Reason)
}

// Completer is the text completion a model-backed component needs.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

var (
	querySeparators = []string{";", " and also ", " as well as "}
	backReferences  = map[string]bool{
		"it": true, "its": true, "that": true, "those": true, "these": true,
		"them": true, "they": true, "above": true, "previous": true, "same": true,
	}
)

// HeuristicDispatcher splits compound questions on question marks,
// semicolons and a few conjunctions, then tags each part by keyword rules.
// A part that refers back to an earlier one keeps the query whole.
type HeuristicDispatcher struct {
	Rules []Rule
}

func NewHeuristicDispatcher(rules []Rule) *HeuristicDispatcher {
	if rules == nil {
		rules = DefaultRules()
	}
	return &HeuristicDispatcher{Rules: rules}
}

func (d *HeuristicDispatcher) Route(_ context.Context, query string, tools []tool.Descriptor) ([]entity.SubQuery, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, &DispatchError{Query: query, Reason: "empty query"}
	}
	if len(tools) == 0 {
		return nil, &DispatchError{Query: q, Reason: "no tools available"}
	}

	parts := SplitQuery(q)
	if len(parts) <= 1 {
		return entity.WholeQuery(q), nil
	}
	for _, p := range parts[1:] {
		if refersBack(p) {
			return entity.WholeQuery(q), nil
		}
	}

	available := make(map[string]bool, len(tools))
	for _, t := range tools {
		available[t.Name] = true
	}
	subs := make([]entity.SubQuery, 0, len(parts))
	assigned := 0
	for _, p := range parts {
		sq := entity.SubQuery{Text: p, ParentQuery: q}
		for _, name := range MatchRules(d.Rules, p) {
			if available[name] {
				sq.AssignedTool = name
				assigned++
				break
			}
		}
		subs = append(subs, sq)
	}
	if assigned == 0 {
		return nil, &DispatchError{Query: q, Reason: "no tool matches any part"}
	}
	return subs, nil
}

// SplitQuery breaks q into trimmed, non-empty parts. Question marks stay
// attached to their part.
func SplitQuery(q string) []string {
	var parts []string
	for _, seg := range strings.SplitAfter(q, "?") {
		pieces := []string{seg}
		for _, sep := range querySeparators {
			var next []string
			for _, p := range pieces {
				next = append(next, splitFold(p, sep)...)
			}
			pieces = next
		}
		for _, p := range pieces {
			p = strings.TrimSpace(p)
			if strings.Trim(p, "?.,! ") != "" {
				parts = append(parts, p)
			}
		}
	}
	return parts
}

// splitFold splits s around every case-insensitive occurrence of sep.
func splitFold(s, sep string) []string {
	lower := strings.ToLower(s)
	sep = strings.ToLower(sep)
	var out []string
	for {
		i := strings.Index(lower, sep)
		if i < 0 {
			return append(out, s)
		}
		out = append(out, s[:i])
		s, lower = s[i+len(sep):], lower[i+len(sep):]
	}
}

func refersBack(part string) bool {
	for w := range wordSet(strings.ToLower(part)) {
		if backReferences[w] {
			return true
		}
	}
	return false
}

const dispatchPrompt = `Split the user question into independent sub-questions and pick a tool for each.
Available tools:
%s
Reply with JSON only, in the form {"sub_queries":[{"text":"...","tool":"..."}]}.
Use an empty tool when unsure. If the question cannot be split, return it as the single sub-question.

Question: %s`

type llmPlan struct {
	SubQueries []struct {
		Text string `json:"text"`
		Tool string `json:"tool"`
	} `json:"sub_queries"`
}

// LLMDispatcher asks a model for the routing plan.
type LLMDispatcher struct {
	completer Completer
}

func NewLLMDispatcher(c Completer) *LLMDispatcher {
	return &LLMDispatcher{completer: c}
}

func (d *LLMDispatcher) Route(ctx context.Context, query string, tools []tool.Descriptor) ([]entity.SubQuery, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, &DispatchError{Query: query, Reason: "empty query"}
	}
	var catalog strings.Builder
	available := make(map[string]bool, len(tools))
	for _, t := range tools {
		available[t.Name] = true
		fmt.Fprintf(&catalog, "- %s: %s\n", t.Name, t.Description)
	}

	reply, err := d.completer.Complete(ctx, "", fmt.Sprintf(dispatchPrompt, catalog.String(), q))
	if err != nil {
		return nil, &DispatchError{Query: q, Reason: err.Error()}
	}
	var plan llmPlan
	if err := json.UnmarshalString(stripCodeFence(reply), &plan); err != nil {
		return nil, &DispatchError{Query: q, Reason: "malformed plan: " + err.Error()}
	}
	if len(plan.SubQueries) == 0 {
		return nil, &DispatchError{Query: q, Reason: "empty plan"}
	}

	subs := make([]entity.SubQuery, 0, len(plan.SubQueries))
	for _, p := range plan.SubQueries {
		text := strings.TrimSpace(p.Text)
		if text == "" {
			return nil, &DispatchError{Query: q, Reason: "plan has an empty sub-question"}
		}
		if p.Tool != "" && !available[p.Tool] {
			return nil, &DispatchError{Query: q, Reason: fmt.Sprintf("plan names unknown tool %q", p.Tool)}
		}
		subs = append(subs, entity.SubQuery{Text: text, AssignedTool: p.Tool, ParentQuery: q})
	}
	return subs, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
