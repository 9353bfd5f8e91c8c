package entity

import (
	"math"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewToolCallRejectsHandles(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "handle")
	require.NoError(t, err)
	defer f.Close()

	_, err = NewToolCall("sql-query", 1, map[string]any{"file": f})
	require.ErrorIs(t, err, ErrNotSerializable)

	_, err = NewToolCall("sql-query", 1, map[string]any{"rows": make(chan int)})
	require.ErrorIs(t, err, ErrNotSerializable)

	_, err = NewToolCall("sql-query", 1, map[string]any{"next": func() {}})
	require.ErrorIs(t, err, ErrNotSerializable)

	call, err := NewToolCall("sql-query", 1, map[string]any{"question": "revenue", "page": 1})
	require.NoError(t, err)
	require.Equal(t, KindToolCall, call.Kind())
}

func TestNewToolCallRequiresPositiveStep(t *testing.T) {
	_, err := NewToolCall("sql-query", 0, nil)
	require.Error(t, err)
	_, err = NewToolCall("", 1, nil)
	require.Error(t, err)
}

func TestValidatePayloadTrees(t *testing.T) {
	type row struct {
		Name    string
		Amount  float64
		Created time.Time
		secret  chan int
	}
	type holder struct {
		Conn net.Conn
	}

	require.NoError(t, ValidatePayload(nil))
	require.NoError(t, ValidatePayload([]any{"a", 1, true, nil, map[string]any{"x": []int{1}}}))
	require.NoError(t, ValidatePayload(row{Name: "q1", Amount: 42000, Created: time.Now()}))
	require.NoError(t, ValidatePayload(map[int]string{1: "one"}))
	require.NoError(t, ValidatePayload(holder{}))

	require.ErrorIs(t, ValidatePayload(math.NaN()), ErrNotSerializable)
	require.ErrorIs(t, ValidatePayload(complex(1, 2)), ErrNotSerializable)
	require.ErrorIs(t, ValidatePayload(map[[2]int]string{{1, 2}: "x"}), ErrNotSerializable)

	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()
	require.ErrorIs(t, ValidatePayload(holder{Conn: client}), ErrNotSerializable)
}

func TestValidatePayloadCatchesCycles(t *testing.T) {
	type node struct {
		Next *node
	}
	n := &node{}
	n.Next = n
	require.ErrorIs(t, ValidatePayload(n), ErrNotSerializable)
}

func TestEventPayloadShapes(t *testing.T) {
	require.Equal(t, "hi", TextDelta{Content: "hi"}.Payload())
	require.Nil(t, Terminal{}.Payload())
	require.Equal(t, ErrorPart{Message: "x"}, ErrorPart{Message: "x"}.Payload())
	require.True(t, IsTerminal(Terminal{}))
	require.False(t, IsTerminal(TextDelta{}))
	require.False(t, IsTerminal(nil))
}

func TestStateKindNames(t *testing.T) {
	for s := StateTrace; s <= StateExternalEngineCall; s++ {
		text, err := s.MarshalText()
		require.NoError(t, err)

		var back StateKind
		require.NoError(t, back.UnmarshalText(text))
		require.Equal(t, s, back)
	}
	require.Equal(t, "DATABASE_QUERY", StateDatabaseQuery.String())

	_, err := NewStateTransition(StateKind(99), "", nil)
	require.Error(t, err)
	_, err = ParseStateKind("DREAMING")
	require.Error(t, err)
}

func TestSessionSteps(t *testing.T) {
	s := NewSession("s1", "c1", "goal", nil)
	require.Equal(t, 1, s.NextStep())
	require.Equal(t, 2, s.NextStep())
	require.Equal(t, 2, s.Steps())

	require.False(t, s.Cancelled())
	s.Cancel()
	require.True(t, s.Cancelled())
}

func TestToolInvocationOutcome(t *testing.T) {
	inv := NewToolInvocation("sql-query", 1, map[string]any{"question": "q"})
	require.Equal(t, OutcomePending, inv.Outcome)
	require.Zero(t, inv.Duration())

	inv.Fail("timeout", "step timed out")
	require.Equal(t, OutcomeFailure, inv.Outcome)
	require.Equal(t, "timeout", inv.ErrorCode)
	require.NotNil(t, inv.FinishedAt)
}
