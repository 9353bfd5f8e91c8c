package repo

import (
	"context"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/entity"
)

// ChatRepository persists chats and their messages.
type ChatRepository interface {
	// SaveTurn creates or updates the chat of turn and stores both of its
	// messages, replacing messages with the same ordinal.
	SaveTurn(ctx context.Context, turn *entity.Turn) error
	// GetChat returns errno.ErrChatNotFound for an unknown id.
	GetChat(ctx context.Context, id string) (*entity.Chat, error)
	// ListChats returns chats, most recently updated first.
	ListChats(ctx context.Context) ([]*entity.Chat, error)
	// ListMessages returns the messages of a chat in ordinal order.
	ListMessages(ctx context.Context, chatID string) ([]*entity.Message, error)
	DeleteChat(ctx context.Context, id string) error
	Close() error
}
