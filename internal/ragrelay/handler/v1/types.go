package v1

import (
	"time"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/entity"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/tool"
	"github.com/kiosk404/ragrelay/pkg/utils/json"
)

// ChatMessage is a single message of a chat request.
type ChatMessage struct {
	Role    string `json:"role"    binding:"required"`
	Content string `json:"content"`
}

// CreateChatRequest is the body of POST /v1/chats.
type CreateChatRequest struct {
	// ChatID continues a stored chat; empty starts a new one.
	ChatID   string        `json:"chat_id,omitempty"`
	Messages []ChatMessage `json:"messages"          binding:"required"`
	// Stream defaults to true.
	Stream *bool `json:"stream,omitempty"`
}

func (r *CreateChatRequest) streaming() bool {
	return r.Stream == nil || *r.Stream
}

// ChatResponse describes a chat without its messages.
type ChatResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// ChatDetailResponse is the body of GET /v1/chats/:id.
type ChatDetailResponse struct {
	Chat     ChatResponse      `json:"chat"`
	Messages []*entity.Message `json:"messages"`
}

// ToolResponse describes a registered tool.
type ToolResponse struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Enabled     bool             `json:"enabled"`
	State       entity.StateKind `json:"state"`
	Display     string           `json:"display"`
	Parameters  json.RawMessage  `json:"parameters,omitempty"`
}

func toChatResponse(c *entity.Chat) ChatResponse {
	return ChatResponse{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: FormatTime(c.CreatedAt),
		UpdatedAt: FormatTime(c.UpdatedAt),
	}
}

func toToolResponse(d tool.Descriptor) ToolResponse {
	return ToolResponse{
		Name:        d.Name,
		Description: d.Description,
		Enabled:     d.Enabled,
		State:       d.State,
		Display:     d.DisplayText(),
		Parameters:  d.ParameterSchema,
	}
}

// FormatTime renders t as RFC 3339 in UTC.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
