package runtime

import (
	"fmt"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/pkg"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/pkg/errno"
	"github.com/kiosk404/ragrelay/pkg/logger"
)

// Phase is the orchestrator loop position.
type Phase int

const (
	PhaseStart Phase = iota
	PhaseSelectAction
	PhaseInvoking
	PhaseFinishing
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseStart:
		return "start"
	case PhaseSelectAction:
		return "select_action"
	case PhaseInvoking:
		return "invoking"
	case PhaseFinishing:
		return "finishing"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

var legalPhases = map[Phase][]Phase{
	PhaseStart:        {PhaseSelectAction, PhaseFinishing, PhaseDone},
	PhaseSelectAction: {PhaseInvoking, PhaseFinishing, PhaseDone},
	PhaseInvoking:     {PhaseSelectAction, PhaseFinishing, PhaseDone},
	PhaseFinishing:    {PhaseDone},
}

// LoopStateMachine tracks a single turn through the orchestrator loop.
//
//	Start -> SelectAction -> Invoking -> SelectAction ...
//	SelectAction -> Finishing -> Done
//
// Any phase may jump to Done on cancellation or failure; Done is final.
type LoopStateMachine struct {
	sessionID string
	phase     Phase
	history   []Phase
}

func NewLoopStateMachine(sessionID string) *LoopStateMachine {
	return &LoopStateMachine{
		sessionID: sessionID,
		phase:     PhaseStart,
		history:   []Phase{PhaseStart},
	}
}

// Transition moves to next, rejecting moves the loop never makes.
func (sm *LoopStateMachine) Transition(next Phase) error {
	for _, allowed := range legalPhases[sm.phase] {
		if allowed == next {
			logger.DebugX(pkg.ModuleName, "[LoopState] session %s: %s -> %s", sm.sessionID, sm.phase, next)
			sm.phase = next
			sm.history = append(sm.history, next)
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", errno.ErrIllegalState, sm.phase, next)
}

// Finish moves to Done from wherever the loop is. It is a no-op once done.
func (sm *LoopStateMachine) Finish() {
	if sm.phase == PhaseDone {
		return
	}
	if err := sm.Transition(PhaseDone); err != nil {
		logger.WarnX(pkg.ModuleName, "[LoopState] session %s: %v", sm.sessionID, err)
		sm.phase = PhaseDone
	}
}

func (sm *LoopStateMachine) Phase() Phase {
	return sm.phase
}

// History returns every phase visited, in order.
func (sm *LoopStateMachine) History() []Phase {
	out := make([]Phase, len(sm.history))
	copy(out, sm.history)
	return out
}
