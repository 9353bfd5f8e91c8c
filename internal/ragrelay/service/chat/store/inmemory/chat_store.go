package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/entity"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/pkg/errno"
)

// ChatStore keeps chats in process memory.
type ChatStore struct {
	mu       sync.RWMutex
	chats    map[string]*entity.Chat
	messages map[string]map[int]*entity.Message
}

func NewChatStore() *ChatStore {
	return &ChatStore{
		chats:    make(map[string]*entity.Chat),
		messages: make(map[string]map[int]*entity.Message),
	}
}

func (s *ChatStore) SaveTurn(_ context.Context, turn *entity.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat := *turn.Chat
	s.chats[chat.ID] = &chat
	msgs, ok := s.messages[chat.ID]
	if !ok {
		msgs = make(map[int]*entity.Message)
		s.messages[chat.ID] = msgs
	}
	for _, m := range []*entity.Message{turn.UserMessage, turn.AssistantMessage} {
		if m == nil {
			continue
		}
		cp := *m
		msgs[m.Ordinal] = &cp
	}
	return nil
}

func (s *ChatStore) GetChat(_ context.Context, id string) (*entity.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chat, ok := s.chats[id]
	if !ok {
		return nil, errno.ErrChatNotFound
	}
	cp := *chat
	return &cp, nil
}

func (s *ChatStore) ListChats(_ context.Context) ([]*entity.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chats := make([]*entity.Chat, 0, len(s.chats))
	for _, c := range s.chats {
		cp := *c
		chats = append(chats, &cp)
	}
	sort.Slice(chats, func(i, j int) bool {
		if chats[i].UpdatedAt.Equal(chats[j].UpdatedAt) {
			return chats[i].ID < chats[j].ID
		}
		return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
	})
	return chats, nil
}

func (s *ChatStore) ListMessages(_ context.Context, chatID string) ([]*entity.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.chats[chatID]; !ok {
		return nil, errno.ErrChatNotFound
	}
	msgs := make([]*entity.Message, 0, len(s.messages[chatID]))
	for _, m := range s.messages[chatID] {
		cp := *m
		msgs = append(msgs, &cp)
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Ordinal < msgs[j].Ordinal })
	return msgs, nil
}

func (s *ChatStore) DeleteChat(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[id]; !ok {
		return errno.ErrChatNotFound
	}
	delete(s.chats, id)
	delete(s.messages, id)
	return nil
}

func (s *ChatStore) Close() error {
	return nil
}
