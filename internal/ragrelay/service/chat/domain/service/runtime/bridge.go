package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/pkg"
	"github.com/kiosk404/ragrelay/pkg/logger"
)

const (
	DefaultPollInterval   = 50 * time.Millisecond
	DefaultElementTimeout = 10 * time.Second
)

// Producer yields the values pulled through a Bridge. It returns io.EOF
// once exhausted and must honour ctx cancellation.
type Producer[T any] interface {
	Next(ctx context.Context) (T, error)
}

type ProducerFunc[T any] func(ctx context.Context) (T, error)

func (f ProducerFunc[T]) Next(ctx context.Context) (T, error) { return f(ctx) }

// BridgeState is the lifecycle state of a Bridge.
//
//	Idle -> Polling -> HasValue | Exhausted | Errored
//	HasValue -> Idle once the value is handed to the caller
//
// Exhausted and Errored are terminal.
type BridgeState int32

const (
	BridgeIdle BridgeState = iota
	BridgePolling
	BridgeHasValue
	BridgeExhausted
	BridgeErrored
)

func (s BridgeState) String() string {
	switch s {
	case BridgeIdle:
		return "idle"
	case BridgePolling:
		return "polling"
	case BridgeHasValue:
		return "has_value"
	case BridgeExhausted:
		return "exhausted"
	case BridgeErrored:
		return "errored"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

func (s BridgeState) terminal() bool {
	return s == BridgeExhausted || s == BridgeErrored
}

type BridgeConfig struct {
	// PollInterval is how often a waiting Next re-checks Cancelled.
	PollInterval time.Duration
	// ElementTimeout bounds the wait for a single value.
	ElementTimeout time.Duration
	// Cancelled is probed on every poll tick; returning true ends the stream.
	Cancelled func() bool
}

func (c BridgeConfig) complete() BridgeConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.ElementTimeout <= 0 {
		c.ElementTimeout = DefaultElementTimeout
	}
	return c
}

type pulled[T any] struct {
	value T
	err   error
}

// Bridge turns a producer running in its own goroutine into a pull-based
// iterator for a synchronous caller. At most one request to the producer is
// outstanding at any time, and no call to Next waits longer than the element
// timeout.
type Bridge[T any] struct {
	producer Producer[T]
	cfg      BridgeConfig

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	inflight chan pulled[T]

	errMu sync.Mutex
	err   error

	state     atomic.Int32
	timedOut  atomic.Bool
	closeOnce sync.Once
}

func NewBridge[T any](parent context.Context, producer Producer[T], cfg BridgeConfig) *Bridge[T] {
	ctx, cancel := context.WithCancel(parent)
	return &Bridge[T]{
		producer: producer,
		cfg:      cfg.complete(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Next returns the next value with ok=true. ok=false with a nil error means
// the stream is done, either normally, by timeout (see TimedOut) or because
// the bridge was closed. A producer failure is returned exactly once, after
// which Next reports done.
func (b *Bridge[T]) Next() (value T, ok bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.State().terminal() {
		return value, false, nil
	}
	if b.ctx.Err() != nil {
		b.finish(BridgeExhausted)
		return value, false, nil
	}

	if b.inflight == nil {
		b.request()
	}
	b.setState(BridgePolling)

	ticker := time.NewTicker(b.cfg.PollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(b.cfg.ElementTimeout)
	defer deadline.Stop()

	for {
		select {
		case p := <-b.inflight:
			b.inflight = nil
			switch {
			case p.err == nil:
				b.setState(BridgeHasValue)
				b.setState(BridgeIdle)
				return p.value, true, nil
			case errors.Is(p.err, io.EOF), b.ctx.Err() != nil:
				// a step failing because the bridge itself was cancelled is not a producer error
				b.finish(BridgeExhausted)
				return value, false, nil
			default:
				b.setErr(p.err)
				b.finish(BridgeErrored)
				return value, false, p.err
			}
		case <-ticker.C:
			if b.cfg.Cancelled != nil && b.cfg.Cancelled() {
				b.finish(BridgeExhausted)
				return value, false, nil
			}
		case <-deadline.C:
			b.timedOut.Store(true)
			logger.WarnX(pkg.ModuleName, "[Bridge] no value within %s, treating producer as exhausted", b.cfg.ElementTimeout)
			b.finish(BridgeExhausted)
			return value, false, nil
		case <-b.ctx.Done():
			b.finish(BridgeExhausted)
			return value, false, nil
		}
	}
}

// request starts one producer step. The result slot has capacity one so the
// producer goroutine never blocks, even if the bridge is closed meanwhile.
func (b *Bridge[T]) request() {
	slot := make(chan pulled[T], 1)
	b.inflight = slot

	go func() {
		var p pulled[T]
		defer func() {
			if r := recover(); r != nil {
				p = pulled[T]{err: fmt.Errorf("producer panic: %v", r)}
			}
			slot <- p
		}()
		p.value, p.err = b.producer.Next(b.ctx)
	}()
}

func (b *Bridge[T]) finish(s BridgeState) {
	b.setState(s)
	b.cancel()
}

func (b *Bridge[T]) setState(s BridgeState) {
	b.state.Store(int32(s))
}

func (b *Bridge[T]) State() BridgeState {
	return BridgeState(b.state.Load())
}

// TimedOut reports whether the stream ended because the element timeout expired.
func (b *Bridge[T]) TimedOut() bool {
	return b.timedOut.Load()
}

// Err returns the producer failure captured by the bridge, if any.
func (b *Bridge[T]) Err() error {
	b.errMu.Lock()
	defer b.errMu.Unlock()
	return b.err
}

func (b *Bridge[T]) setErr(err error) {
	b.errMu.Lock()
	defer b.errMu.Unlock()
	b.err = err
}

// Close cancels any in-flight producer step. It is idempotent and may be
// called while another goroutine is blocked in Next.
func (b *Bridge[T]) Close() {
	b.closeOnce.Do(func() {
		b.cancel()
		for {
			s := b.state.Load()
			if BridgeState(s).terminal() || b.state.CompareAndSwap(s, int32(BridgeExhausted)) {
				return
			}
		}
	})
}

// All ranges over the remaining values. A producer error is yielded once as
// the final element.
func (b *Bridge[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			v, ok, err := b.Next()
			if err != nil {
				yield(v, err)
				return
			}
			if !ok || !yield(v, nil) {
				return
			}
		}
	}
}
