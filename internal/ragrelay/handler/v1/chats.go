package v1

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/entity"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/service"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/service/runtime"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/pkg/errno"
	"github.com/kiosk404/ragrelay/pkg/core"
	"github.com/kiosk404/ragrelay/pkg/errorx"
	"github.com/kiosk404/ragrelay/pkg/logger"
)

// HeaderChatID carries the id of the chat a streamed turn belongs to.
const HeaderChatID = "X-Chat-Id"

// ChatHandler serves /v1/chats.
type ChatHandler struct {
	svc service.ChatService
}

func NewChatHandler(svc service.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// Create handles POST /v1/chats. A streamed turn is written as protocol
// frames, one per line, or as server-sent events when the client accepts
// text/event-stream. Disconnecting cancels the turn.
func (h *ChatHandler) Create(c *gin.Context) {
	var req CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrBind, "bind chat request"), nil)
		return
	}
	if len(req.Messages) == 0 {
		core.WriteResponse(c, errorx.WithCode(ErrValidation, "messages must not be empty"), nil)
		return
	}

	chatReq := &service.ChatRequest{ChatID: req.ChatID, Messages: toMessages(req.Messages)}

	if !req.streaming() {
		res, err := h.svc.Chat(c.Request.Context(), chatReq)
		if err != nil {
			core.WriteResponse(c, chatError(err, req.ChatID), nil)
			return
		}
		core.WriteResponse(c, nil, res)
		return
	}

	ss, err := h.svc.Stream(c.Request.Context(), chatReq)
	if err != nil {
		core.WriteResponse(c, chatError(err, req.ChatID), nil)
		return
	}
	defer ss.Close()

	c.Header(HeaderChatID, ss.Session().ChatID)
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	if strings.Contains(c.GetHeader("Accept"), sse.ContentType) {
		h.streamSSE(c, ss)
		return
	}
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Status(http.StatusOK)
	if _, err := ss.Stream(c.Writer, c.Writer.Flush); err != nil {
		logger.Warn("[ChatHandler] stream of chat %s interrupted: %v", ss.Session().ChatID, err)
	}
}

func (h *ChatHandler) streamSSE(c *gin.Context, ss *runtime.StreamSession) {
	c.Header("Content-Type", sse.ContentType)
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	for id := 0; ; id++ {
		frame, ok := ss.NextFrame()
		if !ok {
			return
		}
		err := sse.Encode(c.Writer, sse.Event{
			Id:   strconv.Itoa(id),
			Data: strings.TrimSuffix(string(frame), "\n"),
		})
		if err != nil {
			logger.Warn("[ChatHandler] sse stream of chat %s interrupted: %v", ss.Session().ChatID, err)
			ss.Cancel()
			return
		}
		c.Writer.Flush()
	}
}

// Get handles GET /v1/chats/:id.
func (h *ChatHandler) Get(c *gin.Context) {
	id := c.Param("id")
	chat, msgs, err := h.svc.GetChat(c.Request.Context(), id)
	if err != nil {
		core.WriteResponse(c, lookupError(err, ErrChatGet, id), nil)
		return
	}
	core.WriteResponse(c, nil, ChatDetailResponse{Chat: toChatResponse(chat), Messages: msgs})
}

// List handles GET /v1/chats, most recently updated first.
func (h *ChatHandler) List(c *gin.Context) {
	chats, err := h.svc.ListChats(c.Request.Context())
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrChatList, "list chats"), nil)
		return
	}
	resp := make([]ChatResponse, 0, len(chats))
	for _, chat := range chats {
		resp = append(resp, toChatResponse(chat))
	}
	core.WriteResponse(c, nil, gin.H{"data": resp})
}

// Delete handles DELETE /v1/chats/:id.
func (h *ChatHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.DeleteChat(c.Request.Context(), id); err != nil {
		core.WriteResponse(c, lookupError(err, ErrChatDelete, id), nil)
		return
	}
	core.WriteResponse(c, nil, gin.H{"id": id, "deleted": true})
}

func toMessages(in []ChatMessage) []*entity.Message {
	out := make([]*entity.Message, 0, len(in))
	for _, m := range in {
		out = append(out, &entity.Message{Role: entity.Role(strings.ToLower(m.Role)), Content: m.Content})
	}
	return out
}

func chatError(err error, chatID string) error {
	switch {
	case errors.Is(err, errno.ErrEmptyQuery):
		return errorx.WrapC(err, ErrEmptyQuery, "start turn")
	case errors.Is(err, errno.ErrChatNotFound):
		return errorx.WrapC(err, ErrChatNotFound, "chat %q not found", chatID)
	default:
		return errorx.WrapC(err, ErrChatRun, "run turn")
	}
}

func lookupError(err error, code int, id string) error {
	if errors.Is(err, errno.ErrChatNotFound) {
		return errorx.WrapC(err, ErrChatNotFound, "chat %q not found", id)
	}
	return errorx.WrapC(err, code, "chat %q", id)
}
