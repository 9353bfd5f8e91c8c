package runtime

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/entity"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/service/protocol"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/llmtest"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/tool"
	"github.com/stretchr/testify/require"
)

type memRecorder struct {
	mu    sync.Mutex
	turns []*entity.Turn
	err   error
	panic bool
}

func (m *memRecorder) SaveTurn(_ context.Context, turn *entity.Turn) error {
	if m.panic {
		panic("disk gone")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, turn)
	return m.err
}

func newTurn(question string) *entity.Turn {
	now := time.Now()
	chat := &entity.Chat{ID: "chat-1", Title: question, CreatedAt: now, UpdatedAt: now}
	return &entity.Turn{
		Chat:             chat,
		UserMessage:      &entity.Message{ID: "m-1", ChatID: chat.ID, Ordinal: 1, Role: entity.RoleUser, Content: question, CreatedAt: now},
		AssistantMessage: &entity.Message{ID: "m-2", ChatID: chat.ID, Ordinal: 2, Role: entity.RoleAssistant, CreatedAt: now},
	}
}

func revenueOrchestrator(t *testing.T) *Orchestrator {
	reg := newTestRegistry(t, map[string]tool.Descriptor{
		tool.NameSQLQuery:           questionTool(entity.StateDatabaseQuery, constTool("42000")),
		tool.NameResponseGeneration: questionTool(entity.StateGenerateAnswer, constTool("unused")),
	}, tool.NameSQLQuery, tool.NameResponseGeneration)
	responder := NewLLMResponder(llmtest.Text("The total revenue in Q1 is 42000."), "")
	return NewOrchestrator(reg, NewRulePolicy(nil, ""), responder, OrchestratorConfig{})
}

func drain(t *testing.T, s *StreamSession) []protocol.Frame {
	t.Helper()
	var frames []protocol.Frame
	for {
		raw, ok := s.NextFrame()
		if !ok {
			return frames
		}
		f, err := protocol.Decode(raw)
		require.NoError(t, err)
		frames = append(frames, f)
	}
}

func countKind(frames []protocol.Frame, kind entity.EventKind) int {
	n := 0
	for _, f := range frames {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

func requireSingleTerminalLast(t *testing.T, frames []protocol.Frame) {
	t.Helper()
	require.NotEmpty(t, frames)
	require.Equal(t, 1, countKind(frames, entity.KindTerminal))
	require.Equal(t, entity.KindTerminal, frames[len(frames)-1].Kind)
}

func TestStreamSessionRevenueQuestion(t *testing.T) {
	rec := &memRecorder{}
	turn := newTurn("What is the total revenue in Q1?")
	sess := entity.NewSession("s1", turn.Chat.ID, turn.UserMessage.Content, nil)
	s := NewStreamSession(context.Background(), StreamSessionConfig{
		Orchestrator: revenueOrchestrator(t),
		Dispatcher:   NewHeuristicDispatcher(nil),
		Recorder:     rec,
	}, sess, turn)
	defer s.Close()

	frames := drain(t, s)
	requireSingleTerminalLast(t, frames)
	require.Equal(t, 1, countKind(frames, entity.KindToolCall))
	require.Equal(t, 1, countKind(frames, entity.KindToolResult))
	require.Equal(t, 1, countKind(frames, entity.KindDataPayload))
	require.GreaterOrEqual(t, countKind(frames, entity.KindTextDelta), 1)
	require.Zero(t, countKind(frames, entity.KindError))

	var call, result []byte
	for _, f := range frames {
		switch f.Kind {
		case entity.KindToolCall:
			call = f.Payload
		case entity.KindToolResult:
			result = f.Payload
		}
	}
	require.JSONEq(t, `{"tool_name":"sql-query","step":1,"arguments":{"question":"What is the total revenue in Q1?"}}`, string(call))
	require.JSONEq(t, `{"tool_name":"sql-query","step":1,"result":"42000","success":true}`, string(result))

	first, err := frames[0].Event()
	require.NoError(t, err)
	require.Equal(t, entity.StateQueryOptimization, first.(entity.StateTransition).State)

	require.Len(t, rec.turns, 1)
	saved := rec.turns[0]
	require.Equal(t, "The total revenue in Q1 is 42000.", saved.AssistantMessage.Content)
	require.Len(t, saved.AssistantMessage.Trace, 1)
	require.NotNil(t, saved.AssistantMessage.FinishedAt)

	_, ok := s.NextFrame()
	require.False(t, ok)
}

func TestStreamSessionWriteTo(t *testing.T) {
	turn := newTurn("total sales")
	s := NewStreamSession(context.Background(), StreamSessionConfig{Orchestrator: revenueOrchestrator(t)},
		entity.NewSession("s", turn.Chat.ID, "total sales", nil), turn)

	var buf bytes.Buffer
	n, err := s.WriteTo(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(buf.Len()), n)

	r := protocol.NewReader(&buf)
	var frames []protocol.Frame
	for {
		f, err := r.Next()
		if err != nil {
			break
		}
		frames = append(frames, f)
	}
	requireSingleTerminalLast(t, frames)
}

func TestStreamSessionContainsProducerPanic(t *testing.T) {
	turn := newTurn("total sales")
	s := NewStreamSession(context.Background(), StreamSessionConfig{
		Orchestrator: revenueOrchestrator(t),
		Recorder:     &memRecorder{panic: true},
	}, entity.NewSession("s", turn.Chat.ID, "total sales", nil), turn)
	defer s.Close()

	frames := drain(t, s)
	requireSingleTerminalLast(t, frames)
	errFrame := frames[len(frames)-2]
	require.Equal(t, entity.KindError, errFrame.Kind)
	ev, err := errFrame.Event()
	require.NoError(t, err)
	require.False(t, ev.(entity.ErrorPart).Recoverable)
	require.Contains(t, ev.(entity.ErrorPart).Message, "disk gone")
}

func TestStreamSessionSaveFailureIsRecoverable(t *testing.T) {
	turn := newTurn("total sales")
	s := NewStreamSession(context.Background(), StreamSessionConfig{
		Orchestrator: revenueOrchestrator(t),
		Recorder:     &memRecorder{err: errors.New("read-only")},
	}, entity.NewSession("s", turn.Chat.ID, "total sales", nil), turn)
	defer s.Close()

	frames := drain(t, s)
	requireSingleTerminalLast(t, frames)
	require.Equal(t, 1, countKind(frames, entity.KindError))
	require.Equal(t, 1, countKind(frames, entity.KindDataPayload))
}

func TestStreamSessionPolicyFailure(t *testing.T) {
	o := NewOrchestrator(tool.NewRegistry(), PolicyFunc(func(context.Context, *Plan) (Decision, error) {
		return Decision{}, errors.New("no model")
	}), nil, OrchestratorConfig{})
	turn := newTurn("q")
	rec := &memRecorder{}
	s := NewStreamSession(context.Background(), StreamSessionConfig{Orchestrator: o, Recorder: rec},
		entity.NewSession("s", turn.Chat.ID, "q", nil), turn)
	defer s.Close()

	frames := drain(t, s)
	requireSingleTerminalLast(t, frames)
	require.Equal(t, entity.KindError, frames[len(frames)-2].Kind)
	require.Zero(t, countKind(frames, entity.KindDataPayload))
	require.Len(t, rec.turns, 1)
	require.NotEmpty(t, rec.turns[0].AssistantMessage.Error)
}

func TestStreamSessionCancelDuringTool(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	blocking := func() (tool.Tool, error) {
		return tool.Func(func(ctx context.Context, _ map[string]any) tool.Result {
			close(started)
			select {
			case <-release:
			case <-ctx.Done():
			}
			return tool.Succeed("late")
		}), nil
	}
	reg := newTestRegistry(t, map[string]tool.Descriptor{
		tool.NameSQLQuery: questionTool(entity.StateDatabaseQuery, blocking),
	}, tool.NameSQLQuery)
	o := NewOrchestrator(reg, NewRulePolicy(nil, ""), nil, OrchestratorConfig{PollInterval: 10 * time.Millisecond})

	turn := newTurn("total sales")
	s := NewStreamSession(context.Background(), StreamSessionConfig{
		Orchestrator: o,
		Bridge:       BridgeConfig{PollInterval: 10 * time.Millisecond},
	}, entity.NewSession("s", turn.Chat.ID, "total sales", nil), turn)
	defer s.Close()

	var frames []protocol.Frame
	for {
		raw, ok := s.NextFrame()
		require.True(t, ok)
		f, err := protocol.Decode(raw)
		require.NoError(t, err)
		frames = append(frames, f)
		if f.Kind == entity.KindToolCall {
			break
		}
	}
	<-started
	s.Cancel()

	frames = append(frames, drain(t, s)...)
	requireSingleTerminalLast(t, frames)
	require.Zero(t, countKind(frames, entity.KindToolResult))
	require.Equal(t, "null", string(frames[len(frames)-1].Payload))
}

func TestStreamSessionTimeoutWithoutContent(t *testing.T) {
	stuck := PolicyFunc(func(ctx context.Context, _ *Plan) (Decision, error) {
		select {
		case <-ctx.Done():
			return Decision{}, ctx.Err()
		case <-time.After(5 * time.Second):
			return Finish("too late"), nil
		}
	})
	o := NewOrchestrator(tool.NewRegistry(), stuck, nil, OrchestratorConfig{})
	turn := newTurn("q")
	s := NewStreamSession(context.Background(), StreamSessionConfig{
		Orchestrator: o,
		Bridge:       BridgeConfig{ElementTimeout: 100 * time.Millisecond, PollInterval: 10 * time.Millisecond},
	}, entity.NewSession("s", turn.Chat.ID, "q", nil), turn)
	defer s.Close()

	start := time.Now()
	frames := drain(t, s)
	require.Less(t, time.Since(start), 2*time.Second)
	requireSingleTerminalLast(t, frames)
	require.Equal(t, entity.KindError, frames[len(frames)-2].Kind)
	require.Zero(t, countKind(frames, entity.KindTextDelta))
}

func TestStreamSessionCloseIsIdempotent(t *testing.T) {
	turn := newTurn("q")
	s := NewStreamSession(context.Background(), StreamSessionConfig{Orchestrator: revenueOrchestrator(t)},
		entity.NewSession("s", turn.Chat.ID, "q", nil), turn)
	s.Close()
	s.Close()

	frames := drain(t, s)
	requireSingleTerminalLast(t, frames)
}
