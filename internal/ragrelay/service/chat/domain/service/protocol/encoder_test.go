package protocol

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/entity"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

func TestEncodeFrames(t *testing.T) {
	enc := NewEncoder()

	cases := []struct {
		name  string
		event entity.Event
		want  string
	}{
		{"text", entity.TextDelta{Content: "hello"}, `0:["hello"]` + "\n"},
		{"terminal null", entity.Terminal{}, `9:[null]` + "\n"},
		{"terminal object", entity.Terminal{Result: map[string]any{"answer": "42000"}}, `9:[{"answer":"42000"}]` + "\n"},
		{"error", entity.ErrorPart{Message: "boom"}, `3:[{"message":"boom","recoverable":false}]` + "\n"},
		{"state", entity.StateTransition{State: entity.StateTrace, Display: "Start"}, `8:[{"state":"TRACE","display":"Start"}]` + "\n"},
		{
			"tool call",
			entity.ToolCall{ToolName: "sql-query", Step: 1, Arguments: map[string]any{"question": "q"}},
			`12:[{"tool_name":"sql-query","step":1,"arguments":{"question":"q"}}]` + "\n",
		},
		{
			"tool result",
			entity.ToolResult{ToolName: "sql-query", Step: 1, Result: "42000", Success: true},
			`13:[{"tool_name":"sql-query","step":1,"result":"42000","success":true}]` + "\n",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, string(enc.Encode(tc.event)))
		})
	}
}

func TestEncodeSubstitutesErrorPart(t *testing.T) {
	enc := NewEncoder()

	frame := enc.Encode(entity.ToolResult{ToolName: "sql-query", Step: 2, Result: make(chan int), Success: true})
	require.True(t, bytes.HasPrefix(frame, []byte("3:")), string(frame))

	decoded, err := Decode(frame)
	require.NoError(t, err)
	ev, err := decoded.Event()
	require.NoError(t, err)
	part := ev.(entity.ErrorPart)
	require.True(t, part.Recoverable)
	require.Contains(t, part.Message, "tool_result")

	frame = enc.Encode(nil)
	require.True(t, bytes.HasPrefix(frame, []byte("3:")))
}

type panickyPayload struct{}

func (panickyPayload) MarshalJSON() ([]byte, error) { panic("broken marshaller") }

func TestEncodeSurvivesPanickingMarshaller(t *testing.T) {
	frame := NewEncoder().Encode(entity.Terminal{Result: panickyPayload{}})
	require.True(t, bytes.HasPrefix(frame, []byte("3:")), string(frame))
}

func TestEncodeUnserializableTerminalStillTerminates(t *testing.T) {
	frame := NewEncoder().Encode(entity.Terminal{Result: map[string]any{"ch": make(chan int)}})

	r := NewReader(bytes.NewReader(frame))
	first, err := r.Next()
	require.NoError(t, err)
	ev, err := first.Event()
	require.NoError(t, err)
	require.Equal(t, entity.KindError, ev.Kind())

	last, err := r.Next()
	require.NoError(t, err)
	ev, err = last.Event()
	require.NoError(t, err)
	require.True(t, entity.IsTerminal(ev))
	require.Nil(t, ev.(entity.Terminal).Result)

	_, err = r.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	for _, line := range []string{"", "hello", "x:[1]", "0:[]", `0:["a","b"]`, "0:{}"} {
		_, err := Decode([]byte(line))
		require.Error(t, err, line)
	}
}

func TestReaderRoundTrip(t *testing.T) {
	enc := NewEncoder()
	events := []entity.Event{
		entity.StateTransition{State: entity.StateDatabaseQuery, Display: "Querying"},
		entity.ToolCall{ToolName: "sql-query", Step: 1, Arguments: map[string]any{"question": "q"}},
		entity.ToolResult{ToolName: "sql-query", Step: 1, Result: "42000", Success: true},
		entity.TextDelta{Content: "line one\nline two"},
		entity.DataPayload{Chat: entity.ChatRef{ID: "c1"}, UserMessage: entity.MessageRef{ID: "u1", Role: entity.RoleUser}},
		entity.Terminal{Result: "done"},
	}

	var buf bytes.Buffer
	for _, ev := range events {
		buf.Write(enc.Encode(ev))
	}
	require.Equal(t, len(events), strings.Count(buf.String(), "\n"))

	r := NewReader(&buf)
	for _, want := range events {
		frame, err := r.Next()
		require.NoError(t, err)
		got, err := frame.Event()
		require.NoError(t, err)
		require.Equal(t, want.Kind(), got.Kind())
	}
	_, err := r.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestTextDeltaFramingProperty(t *testing.T) {
	enc := NewEncoder()
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	properties.Property("any text delta is one line that decodes to itself", prop.ForAll(
		func(s string) bool {
			frame := enc.Encode(entity.TextDelta{Content: s})
			if bytes.Count(frame, []byte("\n")) != 1 || frame[len(frame)-1] != '\n' {
				return false
			}
			decoded, err := Decode(frame)
			if err != nil {
				return false
			}
			ev, err := decoded.Event()
			if err != nil {
				return false
			}
			return ev.(entity.TextDelta).Content == s
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
