package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAbortControllerAbortIsIdempotent(t *testing.T) {
	ac := NewAbortController(context.Background(), "s", 0)
	require.NoError(t, ac.Context().Err())

	ac.Abort()
	ac.Abort()
	require.ErrorIs(t, ac.Context().Err(), context.Canceled)
}

func TestAbortControllerTimeout(t *testing.T) {
	ac := NewAbortController(context.Background(), "s", 20*time.Millisecond)
	t.Cleanup(ac.Abort)

	select {
	case <-ac.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("timeout did not cancel the turn")
	}
	require.ErrorIs(t, ac.Context().Err(), context.DeadlineExceeded)
}
