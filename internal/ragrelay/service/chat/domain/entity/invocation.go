package entity

import (
	"fmt"
	"time"
)

type InvocationOutcome int

const (
	OutcomePending InvocationOutcome = iota
	OutcomeSuccess
	OutcomeFailure
)

func (o InvocationOutcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	default:
		return "pending"
	}
}

func (o InvocationOutcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *InvocationOutcome) UnmarshalText(text []byte) error {
	switch string(text) {
	case "success":
		*o = OutcomeSuccess
	case "failure":
		*o = OutcomeFailure
	case "pending", "":
		*o = OutcomePending
	default:
		return fmt.Errorf("unknown invocation outcome %q", text)
	}
	return nil
}

// ToolInvocation records one step of a turn. It belongs to the loop that
// created it and is never shared across steps.
type ToolInvocation struct {
	ToolName   string            `json:"tool_name"`
	Step       int               `json:"step"`
	Arguments  map[string]any    `json:"arguments"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
	Outcome    InvocationOutcome `json:"outcome"`
	Result     any               `json:"result,omitempty"`
	Error      string            `json:"error,omitempty"`
	ErrorCode  string            `json:"error_code,omitempty"`
}

func NewToolInvocation(toolName string, step int, args map[string]any) *ToolInvocation {
	return &ToolInvocation{
		ToolName:  toolName,
		Step:      step,
		Arguments: args,
		StartedAt: time.Now(),
		Outcome:   OutcomePending,
	}
}

func (i *ToolInvocation) Succeed(result any) {
	i.finish()
	i.Outcome = OutcomeSuccess
	i.Result = result
}

func (i *ToolInvocation) Fail(code, message string) {
	i.finish()
	i.Outcome = OutcomeFailure
	i.ErrorCode = code
	i.Error = message
}

func (i *ToolInvocation) finish() {
	now := time.Now()
	i.FinishedAt = &now
}

// Duration is zero while the invocation is pending.
func (i *ToolInvocation) Duration() time.Duration {
	if i.FinishedAt == nil {
		return 0
	}
	return i.FinishedAt.Sub(i.StartedAt)
}
