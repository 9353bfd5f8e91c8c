package shutdown

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type manualManager struct{ finished atomic.Bool }

func (m *manualManager) GetName() string                { return "manual" }
func (m *manualManager) Start(*GracefulShutdown) error { return nil }
func (m *manualManager) ShutdownStart() error          { return nil }
func (m *manualManager) ShutdownFinish() error         { m.finished.Store(true); return nil }

func TestCallbacksRunOnce(t *testing.T) {
	gs := New()
	m := &manualManager{}
	gs.AddShutdownManager(m)

	var calls atomic.Int32
	var reported atomic.Int32
	gs.SetErrorHandler(func(error) { reported.Add(1) })
	gs.AddShutdownCallback(Func(func(name string) error {
		require.Equal(t, "manual", name)
		calls.Add(1)
		return nil
	}))
	gs.AddShutdownCallback(Func(func(string) error {
		calls.Add(1)
		return errors.New("close failed")
	}))

	require.NoError(t, gs.Start())
	gs.StartShutdown(m)
	gs.StartShutdown(m)

	require.EqualValues(t, 2, calls.Load())
	require.EqualValues(t, 1, reported.Load())
	require.True(t, m.finished.Load())
}
