package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/entity"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/service/protocol"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/pkg"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/pkg/errno"
	"github.com/kiosk404/ragrelay/pkg/logger"
	"github.com/kiosk404/ragrelay/pkg/utils/safego"
)

// TurnRecorder persists a finished turn.
type TurnRecorder interface {
	SaveTurn(ctx context.Context, turn *entity.Turn) error
}

type StreamSessionConfig struct {
	Orchestrator *Orchestrator
	// Dispatcher is optional; without one the query is routed whole.
	Dispatcher Dispatcher
	// Recorder is optional.
	Recorder TurnRecorder
	// Bridge.ElementTimeout defaults to the step timeout plus
	// DefaultElementTimeout, so a slow tool does not end the stream.
	Bridge BridgeConfig
	// RunTimeout bounds the whole turn; zero means no bound.
	RunTimeout time.Duration
}

// StreamSession runs one turn in its own goroutine and hands the encoded
// event stream to a synchronous consumer. Whatever the producer does, the
// consumer sees exactly one Terminal frame and nothing after it.
type StreamSession struct {
	session      *entity.Session
	turn         *entity.Turn
	orchestrator *Orchestrator
	dispatcher   Dispatcher
	recorder     TurnRecorder
	encoder      *protocol.Encoder
	abort        *AbortController

	reader *schema.StreamReader[entity.Event]
	writer *schema.StreamWriter[entity.Event]
	bridge *Bridge[entity.Event]

	startOnce sync.Once
	closeOnce sync.Once

	// consumer side, single goroutine
	pending        []entity.Event
	done           bool
	contentEmitted bool
}

func NewStreamSession(parent context.Context, cfg StreamSessionConfig, sess *entity.Session, turn *entity.Turn) *StreamSession {
	abort := NewAbortController(parent, sess.ID, cfg.RunTimeout)
	sr, sw := schema.Pipe[entity.Event](1)

	bcfg := cfg.Bridge
	if bcfg.ElementTimeout <= 0 {
		bcfg.ElementTimeout = cfg.Orchestrator.cfg.StepTimeout + DefaultElementTimeout
	}
	if bcfg.Cancelled == nil {
		bcfg.Cancelled = sess.Cancelled
	}
	producer := ProducerFunc[entity.Event](func(context.Context) (entity.Event, error) {
		return sr.Recv()
	})

	return &StreamSession{
		session:      sess,
		turn:         turn,
		orchestrator: cfg.Orchestrator,
		dispatcher:   cfg.Dispatcher,
		recorder:     cfg.Recorder,
		encoder:      protocol.NewEncoder(),
		abort:        abort,
		reader:       sr,
		writer:       sw,
		bridge:       NewBridge[entity.Event](abort.Context(), producer, bcfg),
	}
}

func (s *StreamSession) ID() string {
	return s.session.ID
}

func (s *StreamSession) Session() *entity.Session {
	return s.session
}

// Start launches the producer. NextEvent calls it on first use.
func (s *StreamSession) Start() {
	s.startOnce.Do(func() {
		ctx := s.abort.Context()
		safego.Go(ctx, func() {
			defer s.writer.Close()
			s.produce(ctx)
		})
	})
}

// produce runs the turn and writes its events to the pipe.
func (s *StreamSession) produce(ctx context.Context) {
	terminated := false
	emit := func(ev entity.Event) bool {
		if terminated || ev == nil {
			return false
		}
		if entity.IsTerminal(ev) {
			terminated = true
		}
		return !s.writer.Send(ev, nil)
	}
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorX(pkg.ModuleName, "[StreamSession] session %s panicked: %v\n%s", s.session.ID, r, debug.Stack())
			if !terminated {
				emit(entity.ErrorPart{Message: fmt.Sprintf("internal error: %v", r), Recoverable: false})
				emit(entity.Terminal{})
			}
		}
	}()

	subQueries := s.dispatch(ctx, emit)
	outcome, err := s.orchestrator.Run(ctx, s.session, subQueries, emit)
	switch {
	case outcome != nil && outcome.Cancelled:
		emit(entity.Terminal{})
	case err != nil:
		if !errors.Is(err, errno.ErrPolicyFailed) {
			emit(entity.ErrorPart{Message: err.Error(), Recoverable: false})
		}
		s.complete(ctx, outcome, err)
		s.record(ctx, emit)
		emit(entity.Terminal{})
	default:
		s.complete(ctx, outcome, nil)
		s.record(ctx, emit)
		emit(s.turn.DataPayload())
		emit(entity.Terminal{Result: map[string]any{
			"chat_id":    s.turn.Chat.ID,
			"message_id": s.turn.AssistantMessage.ID,
			"steps":      len(outcome.Invocations),
			"truncated":  outcome.Truncated,
		}})
	}
}

// dispatch routes the goal. Routing failures fall back to the whole query.
func (s *StreamSession) dispatch(ctx context.Context, emit Emitter) (subs []entity.SubQuery) {
	whole := entity.WholeQuery(s.session.Goal)
	if s.dispatcher == nil {
		return whole
	}
	if !emit(entity.StateTransition{State: entity.StateQueryOptimization, Display: "Analyzing question"}) {
		return whole
	}
	defer func() {
		if r := recover(); r != nil {
			logger.WarnX(pkg.ModuleName, "[StreamSession] dispatcher panic: %v", r)
			subs = whole
		}
	}()

	subs, err := s.dispatcher.Route(ctx, s.session.Goal, s.orchestrator.Registry().Enabled())
	if err != nil {
		var de *DispatchError
		if errors.As(err, &de) {
			logger.InfoX(pkg.ModuleName, "[StreamSession] %v, routing the whole query", de)
		} else {
			logger.WarnX(pkg.ModuleName, "[StreamSession] dispatch failed: %v", err)
		}
		return whole
	}
	if len(subs) == 0 {
		return whole
	}
	return subs
}

func (s *StreamSession) complete(_ context.Context, outcome *Outcome, err error) {
	now := time.Now()
	msg := s.turn.AssistantMessage
	if outcome != nil {
		msg.Content = outcome.Answer
		msg.Trace = outcome.Invocations
	}
	if err != nil {
		msg.Error = err.Error()
	}
	msg.FinishedAt = &now
	s.turn.Chat.UpdatedAt = now
}

func (s *StreamSession) record(ctx context.Context, emit Emitter) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.SaveTurn(ctx, s.turn); err != nil {
		logger.ErrorX(pkg.ModuleName, "[StreamSession] save turn of chat %s: %v", s.turn.Chat.ID, err)
		emit(entity.ErrorPart{Message: fmt.Sprintf("save chat: %v", err), Recoverable: true})
	}
}

// NextEvent returns the next event. ok is false once the Terminal event has
// been returned.
func (s *StreamSession) NextEvent() (entity.Event, bool) {
	s.Start()
	if s.done {
		return nil, false
	}
	if len(s.pending) == 0 {
		s.pull()
	}
	ev := s.pending[0]
	s.pending = s.pending[1:]

	switch ev.Kind() {
	case entity.KindTextDelta:
		s.contentEmitted = true
	case entity.KindTerminal:
		s.done = true
		s.pending = nil
		s.Close()
	}
	return ev, true
}

// NextFrame is NextEvent in wire form.
func (s *StreamSession) NextFrame() ([]byte, bool) {
	ev, ok := s.NextEvent()
	if !ok {
		return nil, false
	}
	return s.encoder.Encode(ev), true
}

// pull queues at least one event, synthesizing the Terminal when the
// producer ended without one.
func (s *StreamSession) pull() {
	ev, ok, err := s.bridge.Next()
	switch {
	case err != nil:
		logger.ErrorX(pkg.ModuleName, "[StreamSession] session %s stream failed: %v", s.session.ID, err)
		s.pending = append(s.pending,
			entity.ErrorPart{Message: fmt.Sprintf("stream failed: %v", err), Recoverable: false},
			entity.Terminal{},
		)
	case !ok:
		switch {
		case s.bridge.TimedOut() && !s.contentEmitted:
			s.pending = append(s.pending, entity.ErrorPart{
				Message:     "no response was produced before the stream timed out",
				Recoverable: false,
			})
		case errors.Is(s.abort.Context().Err(), context.DeadlineExceeded):
			s.pending = append(s.pending, entity.ErrorPart{
				Message:     "the turn ran out of time",
				Recoverable: false,
			})
		}
		s.pending = append(s.pending, entity.Terminal{})
	case ev == nil:
		s.pull()
	default:
		s.pending = append(s.pending, ev)
	}
}

// WriteTo writes every remaining frame to w, calling flush after each one
// when it is non-nil. A write error cancels the session.
func (s *StreamSession) WriteTo(w io.Writer) (int64, error) {
	return s.Stream(w, nil)
}

func (s *StreamSession) Stream(w io.Writer, flush func()) (int64, error) {
	var total int64
	for {
		frame, ok := s.NextFrame()
		if !ok {
			return total, nil
		}
		n, err := w.Write(frame)
		total += int64(n)
		if err != nil {
			s.Cancel()
			s.Close()
			return total, err
		}
		if flush != nil {
			flush()
		}
	}
}

// Cancel asks the turn to stop at its next checkpoint.
func (s *StreamSession) Cancel() {
	s.session.Cancel()
}

// Close stops the turn and releases the stream. It is idempotent.
func (s *StreamSession) Close() {
	s.closeOnce.Do(func() {
		s.session.Cancel()
		s.bridge.Close()
		s.reader.Close()
		s.abort.Abort()
	})
}
