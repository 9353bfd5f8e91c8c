package boltdb

import (
	"context"
	"fmt"
	"sort"

	"github.com/boltdb/bolt"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/entity"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/pkg/errno"
	"github.com/kiosk404/ragrelay/pkg/utils/json"
)

// ChatStore keeps chats in BoltDB. Messages live in a nested bucket per
// chat, keyed by zero-padded ordinal so that cursor order is ordinal order.
type ChatStore struct {
	db     *DB
	boltDB *bolt.DB
}

func NewChatStore(db *DB) *ChatStore {
	return &ChatStore{db: db, boltDB: db.Bolt()}
}

func ordinalKey(ordinal int) []byte {
	return []byte(fmt.Sprintf("%010d", ordinal))
}

func (s *ChatStore) SaveTurn(_ context.Context, turn *entity.Turn) error {
	return s.boltDB.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(turn.Chat)
		if err != nil {
			return fmt.Errorf("failed to marshal chat: %w", err)
		}
		if err := tx.Bucket(bucketChats).Put([]byte(turn.Chat.ID), data); err != nil {
			return err
		}

		msgs, err := tx.Bucket(bucketMessages).CreateBucketIfNotExists([]byte(turn.Chat.ID))
		if err != nil {
			return fmt.Errorf("failed to create message bucket of chat %q: %w", turn.Chat.ID, err)
		}
		for _, m := range []*entity.Message{turn.UserMessage, turn.AssistantMessage} {
			if m == nil {
				continue
			}
			data, err := json.Marshal(m)
			if err != nil {
				return fmt.Errorf("failed to marshal message %q: %w", m.ID, err)
			}
			if err := msgs.Put(ordinalKey(m.Ordinal), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *ChatStore) GetChat(_ context.Context, id string) (*entity.Chat, error) {
	var chat entity.Chat
	err := s.boltDB.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketChats).Get([]byte(id))
		if data == nil {
			return errno.ErrChatNotFound
		}
		return json.Unmarshal(data, &chat)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get chat %q: %w", id, err)
	}
	return &chat, nil
}

func (s *ChatStore) ListChats(_ context.Context) ([]*entity.Chat, error) {
	var chats []*entity.Chat
	err := s.boltDB.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketChats).ForEach(func(_, v []byte) error {
			var chat entity.Chat
			if err := json.Unmarshal(v, &chat); err != nil {
				return fmt.Errorf("failed to unmarshal chat: %w", err)
			}
			chats = append(chats, &chat)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
	})
	return chats, nil
}

func (s *ChatStore) ListMessages(_ context.Context, chatID string) ([]*entity.Message, error) {
	msgs := make([]*entity.Message, 0)
	err := s.boltDB.View(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketChats).Get([]byte(chatID)) == nil {
			return errno.ErrChatNotFound
		}
		b := tx.Bucket(bucketMessages).Bucket([]byte(chatID))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var m entity.Message
			if err := json.Unmarshal(v, &m); err != nil {
				return fmt.Errorf("failed to unmarshal message: %w", err)
			}
			msgs = append(msgs, &m)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list messages of chat %q: %w", chatID, err)
	}
	return msgs, nil
}

func (s *ChatStore) DeleteChat(_ context.Context, id string) error {
	return s.boltDB.Update(func(tx *bolt.Tx) error {
		chats := tx.Bucket(bucketChats)
		if chats.Get([]byte(id)) == nil {
			return errno.ErrChatNotFound
		}
		if err := chats.Delete([]byte(id)); err != nil {
			return err
		}
		if err := tx.Bucket(bucketMessages).DeleteBucket([]byte(id)); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		return nil
	})
}

func (s *ChatStore) Close() error {
	return s.db.Close()
}
