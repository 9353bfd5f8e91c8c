package v1

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/entity"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/service"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/service/protocol"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/tool"
	"github.com/kiosk404/ragrelay/pkg/core"
	"github.com/kiosk404/ragrelay/pkg/utils/json"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	r := tool.NewRegistry()
	require.NoError(t, r.Register(tool.NameSQLQuery, tool.Descriptor{
		Description: "runs sales queries",
		Parameters:  []tool.ParameterDef{{Name: tool.ArgQuestion, Type: "string", Required: true}},
		Enabled:     true,
		State:       entity.StateDatabaseQuery,
		Factory: func() (tool.Tool, error) {
			return tool.Func(func(context.Context, map[string]any) tool.Result { return tool.Succeed("42000") }), nil
		},
	}))
	require.NoError(t, r.Register(tool.NameKnowledgeRetrieval, tool.Descriptor{
		Description: "searches documents",
		Parameters:  []tool.ParameterDef{{Name: tool.ArgQuestion, Type: "string", Required: true}},
		Enabled:     false,
		State:       entity.StateSearchRelatedDocuments,
	}))

	m, err := (&chat.Config{}).Complete().New(context.Background(), chat.Dependencies{Tools: r})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	gin.SetMode(gin.TestMode)
	g := gin.New()
	chats := NewChatHandler(m.Service)
	tools := NewToolHandler(m.Service)
	g.POST("/v1/chats", chats.Create)
	g.GET("/v1/chats", chats.List)
	g.GET("/v1/chats/:id", chats.Get)
	g.DELETE("/v1/chats/:id", chats.Delete)
	g.GET("/v1/tools", tools.List)
	return g
}

func serve(g *gin.Engine, method, path, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	return w
}

func decodeFrames(t *testing.T, body []byte) []entity.Event {
	t.Helper()
	r := protocol.NewReader(bytes.NewReader(body))
	var events []entity.Event
	for {
		f, err := r.Next()
		if errors.Is(err, io.EOF) {
			return events
		}
		require.NoError(t, err)
		ev, err := f.Event()
		require.NoError(t, err)
		events = append(events, ev)
	}
}

const revenueQuestion = `{"messages":[{"role":"user","content":"What is the total revenue in Q1?"}]}`

func TestCreateStreamsFrames(t *testing.T) {
	g := newTestEngine(t)
	w := serve(g, http.MethodPost, "/v1/chats", revenueQuestion)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	chatID := w.Header().Get(HeaderChatID)
	require.NotEmpty(t, chatID)

	events := decodeFrames(t, w.Body.Bytes())
	require.NotEmpty(t, events)
	require.Equal(t, entity.KindTerminal, events[len(events)-1].Kind())

	var (
		answer strings.Builder
		calls  []entity.ToolCall
		data   *entity.DataPayload
	)
	for _, ev := range events {
		switch e := ev.(type) {
		case entity.TextDelta:
			answer.WriteString(e.Content)
		case entity.ToolCall:
			calls = append(calls, e)
		case entity.DataPayload:
			data = &e
		}
	}
	require.Equal(t, "42000", answer.String())
	require.Len(t, calls, 1)
	require.Equal(t, tool.NameSQLQuery, calls[0].ToolName)
	require.NotNil(t, data)
	require.Equal(t, chatID, data.Chat.ID)

	// the turn was persisted
	w = serve(g, http.MethodGet, "/v1/chats/"+chatID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var detail ChatDetailResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	require.Equal(t, chatID, detail.Chat.ID)
	require.Len(t, detail.Messages, 2)
	require.Equal(t, entity.RoleAssistant, detail.Messages[1].Role)
	require.Equal(t, "42000", detail.Messages[1].Content)
}

func TestCreateStreamsServerSentEvents(t *testing.T) {
	g := newTestEngine(t)
	w := serve(g, http.MethodPost, "/v1/chats", revenueQuestion, "Accept", "text/event-stream")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	require.Contains(t, body, "id:0\n")
	require.Contains(t, body, `data:0:["42000"]`)
	require.Contains(t, body, "data:9:")
}

func TestCreateWithoutStreaming(t *testing.T) {
	g := newTestEngine(t)
	w := serve(g, http.MethodPost, "/v1/chats",
		`{"stream":false,"messages":[{"role":"user","content":"What is the total revenue in Q1?"}]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var res service.ChatResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Equal(t, "42000", res.Answer)
	require.Len(t, res.ToolCalls, 1)
	require.NotNil(t, res.Data)
	require.Contains(t, res.States, entity.StateDatabaseQuery)
}

func TestCreateContinuesChat(t *testing.T) {
	g := newTestEngine(t)
	w := serve(g, http.MethodPost, "/v1/chats", revenueQuestion)
	chatID := w.Header().Get(HeaderChatID)

	w = serve(g, http.MethodPost, "/v1/chats",
		`{"chat_id":"`+chatID+`","messages":[{"role":"user","content":"What is the total revenue in Q2?"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, chatID, w.Header().Get(HeaderChatID))

	w = serve(g, http.MethodGet, "/v1/chats/"+chatID, "")
	var detail ChatDetailResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	require.Len(t, detail.Messages, 4)
	for i, m := range detail.Messages {
		require.Equal(t, i+1, m.Ordinal)
	}
}

func TestCreateRejectsBadRequests(t *testing.T) {
	g := newTestEngine(t)

	cases := []struct {
		name   string
		body   string
		status int
		code   int
	}{
		{"malformed json", `{"messages":`, http.StatusBadRequest, ErrBind},
		{"no messages", `{"messages":[]}`, http.StatusBadRequest, ErrValidation},
		{"no user message", `{"messages":[{"role":"assistant","content":"hi"}]}`, http.StatusBadRequest, ErrEmptyQuery},
		{"unknown chat", `{"chat_id":"nope","messages":[{"role":"user","content":"hi"}]}`, http.StatusNotFound, ErrChatNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(g, http.MethodPost, "/v1/chats", tc.body)
			require.Equal(t, tc.status, w.Code)
			var resp core.ErrResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.Equal(t, tc.code, resp.Code)
		})
	}
}

func TestListAndDeleteChats(t *testing.T) {
	g := newTestEngine(t)
	first := serve(g, http.MethodPost, "/v1/chats", revenueQuestion).Header().Get(HeaderChatID)
	second := serve(g, http.MethodPost, "/v1/chats", revenueQuestion).Header().Get(HeaderChatID)

	w := serve(g, http.MethodGet, "/v1/chats", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data []ChatResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Data, 2)
	require.ElementsMatch(t, []string{first, second}, []string{list.Data[0].ID, list.Data[1].ID})
	require.Equal(t, "What is the total revenue in Q1?", list.Data[0].Title)

	require.Equal(t, http.StatusOK, serve(g, http.MethodDelete, "/v1/chats/"+first, "").Code)
	require.Equal(t, http.StatusNotFound, serve(g, http.MethodGet, "/v1/chats/"+first, "").Code)
	require.Equal(t, http.StatusNotFound, serve(g, http.MethodDelete, "/v1/chats/"+first, "").Code)
}

func TestListTools(t *testing.T) {
	g := newTestEngine(t)
	w := serve(g, http.MethodGet, "/v1/tools", "")
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Data []ToolResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Data, 2)
	require.Equal(t, tool.NameSQLQuery, list.Data[0].Name)
	require.True(t, list.Data[0].Enabled)
	require.Equal(t, entity.StateDatabaseQuery, list.Data[0].State)
	require.JSONEq(t,
		`{"type":"object","properties":{"question":{"type":"string"}},"required":["question"]}`,
		string(list.Data[0].Parameters))
	require.False(t, list.Data[1].Enabled)
	require.Equal(t, "Calling "+tool.NameKnowledgeRetrieval, list.Data[1].Display)
}
