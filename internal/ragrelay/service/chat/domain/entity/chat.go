package entity

import "time"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Chat is a conversation made of turns.
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Message struct {
	ID         string            `json:"id"`
	ChatID     string            `json:"chat_id"`
	Ordinal    int               `json:"ordinal"`
	Role       Role              `json:"role"`
	Content    string            `json:"content"`
	Error      string            `json:"error,omitempty"`
	Trace      []*ToolInvocation `json:"trace,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
}

type ChatRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type MessageRef struct {
	ID         string     `json:"id"`
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	Error      string     `json:"error,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func (c *Chat) Ref() ChatRef {
	return ChatRef{ID: c.ID, Title: c.Title}
}

func (m *Message) Ref() MessageRef {
	return MessageRef{
		ID:         m.ID,
		Role:       m.Role,
		Content:    m.Content,
		Error:      m.Error,
		FinishedAt: m.FinishedAt,
	}
}

// Turn is one user question and the assistant answer it produced.
type Turn struct {
	Chat             *Chat
	UserMessage      *Message
	AssistantMessage *Message
}

// DataPayload is the snapshot of the turn sent on the stream.
func (t *Turn) DataPayload() DataPayload {
	return DataPayload{
		Chat:             t.Chat.Ref(),
		UserMessage:      t.UserMessage.Ref(),
		AssistantMessage: t.AssistantMessage.Ref(),
	}
}
