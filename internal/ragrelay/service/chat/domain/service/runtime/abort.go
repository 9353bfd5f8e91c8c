package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/pkg"
	"github.com/kiosk404/ragrelay/pkg/logger"
)

// AbortController owns the context of one streaming turn.
//
// Abort cancels it explicitly; a positive timeout cancels it on its own.
type AbortController struct {
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.Mutex
	aborted   bool
	sessionID string
}

func NewAbortController(parent context.Context, sessionID string, timeout time.Duration) *AbortController {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	return &AbortController{
		ctx:       ctx,
		cancel:    cancel,
		sessionID: sessionID,
	}
}

func (ac *AbortController) Context() context.Context {
	return ac.ctx
}

// Abort cancels the turn. Safe to call more than once.
func (ac *AbortController) Abort() {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	if ac.aborted {
		return
	}
	ac.aborted = true
	ac.cancel()
	logger.DebugX(pkg.ModuleName, "[AbortController] abort session %s", ac.sessionID)
}
