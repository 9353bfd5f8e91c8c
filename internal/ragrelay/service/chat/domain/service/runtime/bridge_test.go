package runtime

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

func sliceProducer[T any](values ...T) Producer[T] {
	i := 0
	return ProducerFunc[T](func(ctx context.Context) (T, error) {
		var zero T
		if i >= len(values) {
			return zero, io.EOF
		}
		v := values[i]
		i++
		return v, nil
	})
}

func TestBridgeYieldsValuesInOrder(t *testing.T) {
	b := NewBridge(context.Background(), sliceProducer("a", "b", "c"), BridgeConfig{})
	defer b.Close()

	var got []string
	for v, err := range b.All() {
		require.NoError(t, err)
		got = append(got, v)
	}
	require.Equal(t, []string{"a", "b", "c"}, got)

	_, ok, err := b.Next()
	require.False(t, ok)
	require.NoError(t, err)
	require.Equal(t, BridgeExhausted, b.State())
	require.False(t, b.TimedOut())
}

func TestBridgeStuckProducerEndsWithinTimeout(t *testing.T) {
	const (
		timeout = 300 * time.Millisecond
		poll    = 20 * time.Millisecond
	)
	var cancelled atomic.Bool
	stuck := ProducerFunc[int](func(ctx context.Context) (int, error) {
		<-ctx.Done()
		cancelled.Store(true)
		return 0, ctx.Err()
	})
	b := NewBridge[int](context.Background(), stuck, BridgeConfig{PollInterval: poll, ElementTimeout: timeout})

	start := time.Now()
	_, ok, err := b.Next()
	elapsed := time.Since(start)

	require.False(t, ok)
	require.NoError(t, err)
	require.True(t, b.TimedOut())
	require.GreaterOrEqual(t, elapsed, timeout)
	require.Less(t, elapsed, timeout+poll+200*time.Millisecond)
	require.Eventually(t, cancelled.Load, time.Second, 10*time.Millisecond)

	_, ok, err = b.Next()
	require.False(t, ok)
	require.NoError(t, err)
}

func TestBridgeDeliversErrorOnce(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	p := ProducerFunc[string](func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "a", nil
		}
		return "", boom
	})
	b := NewBridge[string](context.Background(), p, BridgeConfig{})

	v, ok, err := b.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a", v)

	_, ok, err = b.Next()
	require.ErrorIs(t, err, boom)
	require.False(t, ok)
	require.Equal(t, BridgeErrored, b.State())

	for range 3 {
		_, ok, err = b.Next()
		require.NoError(t, err)
		require.False(t, ok)
	}
	require.ErrorIs(t, b.Err(), boom)
	require.Equal(t, 2, calls)
}

func TestBridgeRecoversProducerPanic(t *testing.T) {
	p := ProducerFunc[int](func(ctx context.Context) (int, error) {
		panic("producer exploded")
	})
	b := NewBridge[int](context.Background(), p, BridgeConfig{})

	_, ok, err := b.Next()
	require.False(t, ok)
	require.ErrorContains(t, err, "producer exploded")
}

func TestBridgeCloseUnblocksNext(t *testing.T) {
	started := make(chan struct{})
	p := ProducerFunc[int](func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		return 0, ctx.Err()
	})
	b := NewBridge[int](context.Background(), p, BridgeConfig{ElementTimeout: time.Minute})

	go func() {
		<-started
		b.Close()
		b.Close()
	}()

	start := time.Now()
	_, ok, err := b.Next()
	require.False(t, ok)
	require.NoError(t, err)
	require.Less(t, time.Since(start), 5*time.Second)
	require.False(t, b.TimedOut())
	require.Equal(t, BridgeExhausted, b.State())
}

func TestBridgeObservesCancellationProbe(t *testing.T) {
	var flag atomic.Bool
	p := ProducerFunc[int](func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	b := NewBridge[int](context.Background(), p, BridgeConfig{
		PollInterval:   5 * time.Millisecond,
		ElementTimeout: time.Minute,
		Cancelled:      flag.Load,
	})
	time.AfterFunc(30*time.Millisecond, func() { flag.Store(true) })

	_, ok, err := b.Next()
	require.False(t, ok)
	require.NoError(t, err)
	require.False(t, b.TimedOut())
}

func TestBridgeKeepsOneRequestOutstanding(t *testing.T) {
	var active, peak atomic.Int32
	n := 0
	p := ProducerFunc[int](func(ctx context.Context) (int, error) {
		cur := active.Add(1)
		defer active.Add(-1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		n++
		if n > 20 {
			return 0, io.EOF
		}
		return n, nil
	})
	b := NewBridge[int](context.Background(), p, BridgeConfig{})

	count := 0
	for _, err := range b.All() {
		require.NoError(t, err)
		count++
	}
	require.Equal(t, 20, count)
	require.EqualValues(t, 1, peak.Load())
}

func TestBridgePreservesSequenceProperty(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("bridge yields exactly the produced values", prop.ForAll(
		func(values []int) bool {
			b := NewBridge(context.Background(), sliceProducer(values...), BridgeConfig{})
			defer b.Close()

			var got []int
			for v, err := range b.All() {
				if err != nil {
					return false
				}
				got = append(got, v)
			}
			if len(got) != len(values) {
				return false
			}
			for i := range got {
				if got[i] != values[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Int()),
	))

	properties.TestingRun(t)
}
