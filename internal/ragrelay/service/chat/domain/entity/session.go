package entity

import "sync/atomic"

// Session is the per-request state of one chat turn. It is owned by the
// orchestration goroutine of that turn; only the cancellation flag is read
// and written from the consumer side.
type Session struct {
	ID      string
	ChatID  string
	Goal    string
	History []*Message

	stepCounter int
	cancelled   atomic.Bool
}

func NewSession(id, chatID, goal string, history []*Message) *Session {
	return &Session{
		ID:      id,
		ChatID:  chatID,
		Goal:    goal,
		History: history,
	}
}

// NextStep allocates the next step number. Steps start at 1 and are never reused.
func (s *Session) NextStep() int {
	s.stepCounter++
	return s.stepCounter
}

// Steps returns the number of steps allocated so far.
func (s *Session) Steps() int {
	return s.stepCounter
}

// Cancel marks the session cancelled. Safe to call from any goroutine.
func (s *Session) Cancel() {
	s.cancelled.Store(true)
}

func (s *Session) Cancelled() bool {
	return s.cancelled.Load()
}
