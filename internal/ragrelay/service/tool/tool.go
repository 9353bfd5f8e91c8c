package tool

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/kiosk404/ragrelay/pkg/logger"
)

// Error codes carried in Result.Code.
const (
	CodeFailed           = "tool_error"
	CodeTimeout          = "timeout"
	CodeInvalidArguments = "invalid_arguments"
	CodePanic            = "panic"
	CodeCancelled        = "cancelled"
	CodeNotFound         = "tool_not_found"
)

// Result is the outcome of one tool invocation. Tools report every failure
// through Result; nothing crosses the Tool boundary as a panic or error.
type Result struct {
	Success  bool   `json:"success"`
	Content  any    `json:"content,omitempty"`
	RawError string `json:"raw_error,omitempty"`
	Code     string `json:"code,omitempty"`
}

func Succeed(content any) Result {
	return Result{Success: true, Content: content}
}

func Fail(err error) Result {
	return FailCode(CodeFailed, err)
}

func FailCode(code string, err error) Result {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Result{Success: false, RawError: msg, Code: code}
}

// Tool is a unit of work the orchestrator can invoke: retrieval, SQL,
// generation, external engines and so on.
type Tool interface {
	Invoke(ctx context.Context, args map[string]any) Result
}

// Func adapts a function to Tool.
type Func func(ctx context.Context, args map[string]any) Result

func (f Func) Invoke(ctx context.Context, args map[string]any) Result {
	return f(ctx, args)
}

// HandlerFunc is the error-returning form most builtin tools are written in.
type HandlerFunc func(ctx context.Context, args map[string]any) (any, error)

// FromHandler wraps h so that its error becomes a failed Result.
func FromHandler(h HandlerFunc) Tool {
	return Func(func(ctx context.Context, args map[string]any) Result {
		content, err := h(ctx, args)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return FailCode(CodeCancelled, err)
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return FailCode(CodeTimeout, err)
			}
			return Fail(err)
		}
		return Succeed(content)
	})
}

// Call invokes t and converts a panic into a failed Result.
func Call(ctx context.Context, name string, t Tool, args map[string]any) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("[Tool] %s panicked: %v\n%s", name, r, debug.Stack())
			res = FailCode(CodePanic, fmt.Errorf("tool %s panicked: %v", name, r))
		}
	}()
	if t == nil {
		return FailCode(CodeNotFound, fmt.Errorf("tool %s has no implementation", name))
	}
	return t.Invoke(ctx, args)
}
