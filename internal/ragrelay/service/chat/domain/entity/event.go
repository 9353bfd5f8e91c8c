package entity

import "fmt"

// EventKind is the wire tag of an event. The values are part of the client
// protocol and must never be renumbered.
type EventKind int

const (
	KindTextDelta       EventKind = 0
	KindDataPayload     EventKind = 2
	KindError           EventKind = 3
	KindStateTransition EventKind = 8
	KindTerminal        EventKind = 9
	KindToolCall        EventKind = 12
	KindToolResult      EventKind = 13
)

func (k EventKind) String() string {
	switch k {
	case KindTextDelta:
		return "text_delta"
	case KindDataPayload:
		return "data"
	case KindError:
		return "error"
	case KindStateTransition:
		return "state"
	case KindTerminal:
		return "terminal"
	case KindToolCall:
		return "tool_call"
	case KindToolResult:
		return "tool_result"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is one discrete unit of progress on a chat stream.
//
// The set of implementations is closed: TextDelta, StateTransition,
// ToolCall, ToolResult, DataPayload, ErrorPart and Terminal.
type Event interface {
	Kind() EventKind
	// Payload is the value placed at index 0 of the frame's JSON array.
	Payload() any

	isEvent()
}

// TextDelta is an incremental chunk of answer text.
type TextDelta struct {
	Content string
}

func (TextDelta) Kind() EventKind { return KindTextDelta }
func (e TextDelta) Payload() any  { return e.Content }
func (TextDelta) isEvent()        {}

// StateTransition marks progress, e.g. searching documents or querying a database.
type StateTransition struct {
	State   StateKind `json:"state"`
	Display string    `json:"display"`
	Context any       `json:"context,omitempty"`
}

func (StateTransition) Kind() EventKind { return KindStateTransition }
func (e StateTransition) Payload() any  { return e }
func (StateTransition) isEvent()        {}

// ToolCall is emitted immediately before a tool executes.
type ToolCall struct {
	ToolName  string `json:"tool_name"`
	Step      int    `json:"step"`
	Arguments any    `json:"arguments"`
}

func (ToolCall) Kind() EventKind { return KindToolCall }
func (e ToolCall) Payload() any  { return e }
func (ToolCall) isEvent()        {}

// ToolResult is emitted immediately after the tool of the same step returns.
type ToolResult struct {
	ToolName string `json:"tool_name"`
	Step     int    `json:"step"`
	Result   any    `json:"result"`
	Success  bool   `json:"success"`
}

func (ToolResult) Kind() EventKind { return KindToolResult }
func (e ToolResult) Payload() any  { return e }
func (ToolResult) isEvent()        {}

// DataPayload is the structural snapshot of a turn, sent once per turn.
type DataPayload struct {
	Chat             ChatRef    `json:"chat"`
	UserMessage      MessageRef `json:"user_message"`
	AssistantMessage MessageRef `json:"assistant_message"`
}

func (DataPayload) Kind() EventKind { return KindDataPayload }
func (e DataPayload) Payload() any  { return e }
func (DataPayload) isEvent()        {}

type ErrorPart struct {
	Message     string `json:"message"`
	Recoverable bool   `json:"recoverable"`
}

func (ErrorPart) Kind() EventKind { return KindError }
func (e ErrorPart) Payload() any  { return e }
func (ErrorPart) isEvent()        {}

// Terminal ends a stream. Exactly one is emitted per stream and nothing follows it.
type Terminal struct {
	Result any
}

func (Terminal) Kind() EventKind { return KindTerminal }
func (e Terminal) Payload() any  { return e.Result }
func (Terminal) isEvent()        {}

// NewStateTransition validates that context is serializable.
func NewStateTransition(state StateKind, display string, context any) (StateTransition, error) {
	if !state.Valid() {
		return StateTransition{}, fmt.Errorf("unknown state kind %d", int(state))
	}
	if err := ValidatePayload(context); err != nil {
		return StateTransition{}, fmt.Errorf("state %s context: %w", state, err)
	}
	return StateTransition{State: state, Display: display, Context: context}, nil
}

func NewToolCall(toolName string, step int, arguments any) (ToolCall, error) {
	if toolName == "" {
		return ToolCall{}, fmt.Errorf("tool call without tool name")
	}
	if step <= 0 {
		return ToolCall{}, fmt.Errorf("tool call %s: step must be positive, got %d", toolName, step)
	}
	if err := ValidatePayload(arguments); err != nil {
		return ToolCall{}, fmt.Errorf("tool call %s arguments: %w", toolName, err)
	}
	return ToolCall{ToolName: toolName, Step: step, Arguments: arguments}, nil
}

func NewToolResult(toolName string, step int, result any, success bool) (ToolResult, error) {
	if toolName == "" {
		return ToolResult{}, fmt.Errorf("tool result without tool name")
	}
	if err := ValidatePayload(result); err != nil {
		return ToolResult{}, fmt.Errorf("tool result %s: %w", toolName, err)
	}
	return ToolResult{ToolName: toolName, Step: step, Result: result, Success: success}, nil
}

func NewTerminal(result any) (Terminal, error) {
	if err := ValidatePayload(result); err != nil {
		return Terminal{}, fmt.Errorf("terminal result: %w", err)
	}
	return Terminal{Result: result}, nil
}

// IsTerminal reports whether ev ends the stream.
func IsTerminal(ev Event) bool {
	return ev != nil && ev.Kind() == KindTerminal
}
