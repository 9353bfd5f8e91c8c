package errno

import (
	"errors"
)

var (
	ErrChatNotFound     = errors.New("chat not found")
	ErrSessionClosed    = errors.New("session closed")
	ErrEmptyQuery       = errors.New("query is empty")
	ErrAborted          = errors.New("turn aborted")
	ErrPolicyFailed     = errors.New("action selection failed")
	ErrStepTimeout      = errors.New("tool step timed out")
	ErrMaxStepsExceeded = errors.New("max steps exceeded")
	ErrIllegalState     = errors.New("illegal orchestrator state transition")
)
