package service

import (
	"context"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/entity"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/service/runtime"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/tool"
)

// ChatRequest asks for one turn. Without a ChatID a new chat is started and
// the messages before the last user message are used as its history; with
// one, history comes from the stored chat.
type ChatRequest struct {
	ChatID   string            `json:"chat_id,omitempty"`
	Messages []*entity.Message `json:"messages"`
}

// ChatResult is a turn collected from its event stream.
type ChatResult struct {
	Data        *entity.DataPayload `json:"data,omitempty"`
	Answer      string              `json:"answer"`
	ToolCalls   []entity.ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []entity.ToolResult `json:"tool_results,omitempty"`
	Errors      []entity.ErrorPart  `json:"errors,omitempty"`
	States      []entity.StateKind  `json:"states,omitempty"`
	Result      any                 `json:"result"`
}

// ChatService is the application-level service for chats.
type ChatService interface {
	// Stream prepares a turn and returns its session unstarted. The caller
	// must Close it.
	Stream(ctx context.Context, req *ChatRequest) (*runtime.StreamSession, error)
	// Chat runs a turn to completion.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error)

	GetChat(ctx context.Context, id string) (*entity.Chat, []*entity.Message, error)
	ListChats(ctx context.Context) ([]*entity.Chat, error)
	DeleteChat(ctx context.Context, id string) error

	// Tools lists the registered tools in registration order.
	Tools() []tool.Descriptor
}
