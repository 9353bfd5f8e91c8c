package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/entity"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/tool"
	"github.com/kiosk404/ragrelay/pkg/utils/json"
)

// ActionKind is what a policy wants the orchestrator to do next.
type ActionKind int

const (
	ActionCallTool ActionKind = iota
	ActionFinish
)

// NoSubQuery marks a decision that serves the goal as a whole.
const NoSubQuery = -1

// Decision is a policy's choice for the next step.
type Decision struct {
	Action    ActionKind
	ToolName  string
	Arguments map[string]any
	// SubQuery indexes Plan.SubQueries, or NoSubQuery.
	SubQuery int
	// Answer is the final answer for ActionFinish. When empty the
	// orchestrator's Responder writes it.
	Answer string
}

func CallTool(name string, args map[string]any) Decision {
	return Decision{Action: ActionCallTool, ToolName: name, Arguments: args, SubQuery: NoSubQuery}
}

func Finish(answer string) Decision {
	return Decision{Action: ActionFinish, Answer: answer, SubQuery: NoSubQuery}
}

// Observation is the recorded outcome of one step.
type Observation struct {
	Step      int
	ToolName  string
	Arguments map[string]any
	SubQuery  int
	Result    tool.Result
}

// Plan is everything a policy sees when choosing the next action.
type Plan struct {
	Goal         string
	History      []*entity.Message
	SubQueries   []entity.SubQuery
	Tools        []tool.Descriptor
	Observations []Observation
	MaxSteps     int
}

func (p *Plan) hasTool(name string) bool {
	for _, d := range p.Tools {
		if d.Name == name {
			return true
		}
	}
	return false
}

func (p *Plan) attempts(subQuery int) []Observation {
	var out []Observation
	for _, o := range p.Observations {
		if o.SubQuery == subQuery {
			out = append(out, o)
		}
	}
	return out
}

// Successful returns the observations whose tool call succeeded.
func (p *Plan) Successful() []Observation {
	var out []Observation
	for _, o := range p.Observations {
		if o.Result.Success {
			out = append(out, o)
		}
	}
	return out
}

// Policy selects the next action. Given the same plan it must return the
// same decision.
type Policy interface {
	Decide(ctx context.Context, plan *Plan) (Decision, error)
}

type PolicyFunc func(ctx context.Context, plan *Plan) (Decision, error)

func (f PolicyFunc) Decide(ctx context.Context, plan *Plan) (Decision, error) {
	return f(ctx, plan)
}

// Rule routes queries mentioning any of Keywords to Tool.
type Rule struct {
	Tool     string   `json:"tool"     yaml:"tool"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// DefaultRules covers the builtin tools. knowledge-retrieval is the
// fallback and needs no rule.
func DefaultRules() []Rule {
	return []Rule{
		{Tool: tool.NameSQLQuery, Keywords: []string{
			"revenue", "sales", "total", "sum", "count", "average", "how many",
			"how much", "orders", "quarter", "q1", "q2", "q3", "q4", "database", "table",
		}},
		{Tool: tool.NameKnowledgeGraphQuery, Keywords: []string{
			"relationship", "relationships", "related", "relate", "connected", "connection", "linked",
		}},
		{Tool: tool.NameDeepResearch, Keywords: []string{
			"research", "in depth", "in-depth", "comprehensive", "thorough", "investigate", "compare",
		}},
		{Tool: tool.NameFurtherQuestions, Keywords: []string{
			"follow-up", "follow up", "what else should i ask", "suggest questions",
		}},
	}
}

// RulePolicy resolves every sub-query in order. A sub-query goes to its
// assigned tool, else to the first rule that matches, else to the fallback.
// A failed attempt is retried once with the next candidate; a sub-query
// with no candidates left is given up on. Once all sub-queries are resolved
// or given up on, the policy finishes and lets the Responder answer.
type RulePolicy struct {
	Rules    []Rule
	Fallback string
	// MaxAttempts per sub-query, default 2.
	MaxAttempts int
}

func NewRulePolicy(rules []Rule, fallback string) *RulePolicy {
	if rules == nil {
		rules = DefaultRules()
	}
	if fallback == "" {
		fallback = tool.NameKnowledgeRetrieval
	}
	return &RulePolicy{Rules: rules, Fallback: fallback, MaxAttempts: 2}
}

func (p *RulePolicy) Decide(_ context.Context, plan *Plan) (Decision, error) {
	subs := plan.SubQueries
	if len(subs) == 0 {
		subs = entity.WholeQuery(plan.Goal)
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 2
	}

	for i, sq := range subs {
		attempts := plan.attempts(i)
		if len(attempts) >= maxAttempts || anySucceeded(attempts) {
			continue
		}
		tried := make(map[string]bool, len(attempts))
		for _, a := range attempts {
			tried[a.ToolName] = true
		}
		for _, name := range p.candidates(sq, plan) {
			if tried[name] {
				continue
			}
			return Decision{
				Action:    ActionCallTool,
				ToolName:  name,
				Arguments: map[string]any{tool.ArgQuestion: sq.Text},
				SubQuery:  i,
			}, nil
		}
	}
	return Finish(""), nil
}

func (p *RulePolicy) candidates(sq entity.SubQuery, plan *Plan) []string {
	var out []string
	seen := map[string]bool{}
	add := func(name string) {
		if name == "" || seen[name] || !plan.hasTool(name) {
			return
		}
		seen[name] = true
		out = append(out, name)
	}
	add(sq.AssignedTool)
	for _, name := range MatchRules(p.Rules, sq.Text) {
		add(name)
	}
	add(p.Fallback)
	return out
}

func anySucceeded(obs []Observation) bool {
	for _, o := range obs {
		if o.Result.Success {
			return true
		}
	}
	return false
}

const defaultPolicyPrompt = `You are a retrieval assistant. Answer the user's question using the tools available to you.
Call one tool at a time. When the gathered results are enough, reply with the final answer and call no tool.`

// LLMPolicy lets a tool-calling chat model choose. A tool call in the reply
// becomes the next action; a reply without tool calls is the final answer.
type LLMPolicy struct {
	model        model.ToolCallingChatModel
	systemPrompt string
}

func NewLLMPolicy(m model.ToolCallingChatModel, systemPrompt string) *LLMPolicy {
	if systemPrompt == "" {
		systemPrompt = defaultPolicyPrompt
	}
	return &LLMPolicy{model: m, systemPrompt: systemPrompt}
}

func (p *LLMPolicy) Decide(ctx context.Context, plan *Plan) (Decision, error) {
	if p.model == nil {
		return Decision{}, fmt.Errorf("no chat model configured")
	}
	cm := p.model
	if infos := ToolInfos(plan.Tools); len(infos) > 0 {
		bound, err := p.model.WithTools(infos)
		if err != nil {
			return Decision{}, fmt.Errorf("bind tools: %w", err)
		}
		cm = bound
	}

	resp, err := cm.Generate(ctx, p.messages(plan), model.WithTemperature(0))
	if err != nil {
		return Decision{}, fmt.Errorf("generate: %w", err)
	}
	if resp == nil {
		return Decision{}, fmt.Errorf("generate: empty response")
	}
	if len(resp.ToolCalls) == 0 {
		return Finish(resp.Content), nil
	}

	call := resp.ToolCalls[0]
	args := map[string]any{}
	if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
		if err := json.UnmarshalString(raw, &args); err != nil {
			return Decision{}, fmt.Errorf("arguments of %q: %w", call.Function.Name, err)
		}
	}
	return CallTool(call.Function.Name, args), nil
}

func (p *LLMPolicy) messages(plan *Plan) []*schema.Message {
	msgs := []*schema.Message{schema.SystemMessage(p.systemPrompt)}
	msgs = append(msgs, historyMessages(plan.History)...)
	msgs = append(msgs, schema.UserMessage(questionText(plan)))

	for _, o := range plan.Observations {
		id := fmt.Sprintf("call_%d", o.Step)
		args, _ := json.MarshalString(o.Arguments)
		msgs = append(msgs,
			schema.AssistantMessage("", []schema.ToolCall{{
				ID:       id,
				Type:     "function",
				Function: schema.FunctionCall{Name: o.ToolName, Arguments: args},
			}}),
			schema.ToolMessage(renderResult(o.Result), id),
		)
	}
	return msgs
}

func historyMessages(history []*entity.Message) []*schema.Message {
	var out []*schema.Message
	for _, m := range history {
		if m == nil || m.Content == "" {
			continue
		}
		switch m.Role {
		case entity.RoleUser:
			out = append(out, schema.UserMessage(m.Content))
		case entity.RoleAssistant:
			out = append(out, schema.AssistantMessage(m.Content, nil))
		}
	}
	return out
}

func questionText(plan *Plan) string {
	if len(plan.SubQueries) <= 1 {
		return plan.Goal
	}
	var b strings.Builder
	b.WriteString(plan.Goal)
	b.WriteString("\n\nThe question has these parts:\n")
	for i, sq := range plan.SubQueries {
		fmt.Fprintf(&b, "%d. %s", i+1, sq.Text)
		if sq.Assigned() {
			fmt.Fprintf(&b, " (use %s)", sq.AssignedTool)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// ToolInfos describes tools to a chat model.
func ToolInfos(descs []tool.Descriptor) []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(descs))
	for _, d := range descs {
		params := make(map[string]*schema.ParameterInfo, len(d.Parameters))
		for _, p := range d.Parameters {
			params[p.Name] = &schema.ParameterInfo{
				Type:     schema.DataType(p.Type),
				Desc:     p.Description,
				Enum:     p.Enum,
				Required: p.Required,
			}
		}
		infos = append(infos, &schema.ToolInfo{
			Name:        d.Name,
			Desc:        d.Description,
			ParamsOneOf: schema.NewParamsOneOfByParams(params),
		})
	}
	return infos
}

// renderResult is the text form of a tool result fed back to models.
func renderResult(r tool.Result) string {
	if !r.Success {
		return fmt.Sprintf("error (%s): %s", r.Code, r.RawError)
	}
	return renderContent(r.Content)
}

func renderContent(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case fmt.Stringer:
		return c.String()
	}
	s, err := json.MarshalString(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return s
}
