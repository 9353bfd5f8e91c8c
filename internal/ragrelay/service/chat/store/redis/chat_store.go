package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/entity"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/pkg/errno"
	"github.com/kiosk404/ragrelay/pkg/utils/json"
	"github.com/redis/go-redis/v9"
)

// ChatStore keeps chats in Redis so several ragrelay instances can share
// history.
//
//	<prefix>chats              ZSET  chat id scored by updated-at
//	<prefix>chat:<id>          STRING chat JSON
//	<prefix>chat:<id>:messages HASH  ordinal -> message JSON
type ChatStore struct {
	rdb    redis.UniversalClient
	prefix string
}

type Options struct {
	Addr     string `json:"addr"     mapstructure:"addr"`
	Password string `json:"password" mapstructure:"password"`
	DB       int    `json:"db"       mapstructure:"db"`
	Prefix   string `json:"prefix"   mapstructure:"prefix"`
}

// Open connects and pings the server.
func Open(ctx context.Context, opts Options) (*ChatStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}
	return NewChatStore(rdb, opts.Prefix), nil
}

func NewChatStore(rdb redis.UniversalClient, prefix string) *ChatStore {
	if prefix == "" {
		prefix = "ragrelay:"
	}
	return &ChatStore{rdb: rdb, prefix: prefix}
}

func (s *ChatStore) chatsKey() string { return s.prefix + "chats" }

func (s *ChatStore) chatKey(id string) string { return s.prefix + "chat:" + id }

func (s *ChatStore) messagesKey(id string) string { return s.prefix + "chat:" + id + ":messages" }

func (s *ChatStore) SaveTurn(ctx context.Context, turn *entity.Turn) error {
	chat, err := json.Marshal(turn.Chat)
	if err != nil {
		return fmt.Errorf("failed to marshal chat: %w", err)
	}
	fields := make([]any, 0, 4)
	for _, m := range []*entity.Message{turn.UserMessage, turn.AssistantMessage} {
		if m == nil {
			continue
		}
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal message %q: %w", m.ID, err)
		}
		fields = append(fields, strconv.Itoa(m.Ordinal), data)
	}

	id := turn.Chat.ID
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.chatKey(id), chat, 0)
		pipe.ZAdd(ctx, s.chatsKey(), redis.Z{Score: float64(turn.Chat.UpdatedAt.UnixNano()), Member: id})
		if len(fields) > 0 {
			pipe.HSet(ctx, s.messagesKey(id), fields...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save turn of chat %q: %w", id, err)
	}
	return nil
}

func (s *ChatStore) GetChat(ctx context.Context, id string) (*entity.Chat, error) {
	data, err := s.rdb.Get(ctx, s.chatKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errno.ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chat %q: %w", id, err)
	}
	var chat entity.Chat
	if err := json.Unmarshal(data, &chat); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chat %q: %w", id, err)
	}
	return &chat, nil
}

func (s *ChatStore) ListChats(ctx context.Context) ([]*entity.Chat, error) {
	ids, err := s.rdb.ZRevRange(ctx, s.chatsKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	chats := make([]*entity.Chat, 0, len(ids))
	for _, id := range ids {
		chat, err := s.GetChat(ctx, id)
		if errors.Is(err, errno.ErrChatNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	return chats, nil
}

func (s *ChatStore) ListMessages(ctx context.Context, chatID string) ([]*entity.Message, error) {
	n, err := s.rdb.Exists(ctx, s.chatKey(chatID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to check chat %q: %w", chatID, err)
	}
	if n == 0 {
		return nil, errno.ErrChatNotFound
	}
	raw, err := s.rdb.HGetAll(ctx, s.messagesKey(chatID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages of chat %q: %w", chatID, err)
	}
	msgs := make([]*entity.Message, 0, len(raw))
	for _, v := range raw {
		var m entity.Message
		if err := json.UnmarshalString(v, &m); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		msgs = append(msgs, &m)
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Ordinal < msgs[j].Ordinal })
	return msgs, nil
}

func (s *ChatStore) DeleteChat(ctx context.Context, id string) error {
	removed, err := s.rdb.Del(ctx, s.chatKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete chat %q: %w", id, err)
	}
	if removed == 0 {
		return errno.ErrChatNotFound
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.messagesKey(id))
		pipe.ZRem(ctx, s.chatsKey(), id)
		return nil
	})
	return err
}

func (s *ChatStore) Close() error {
	return s.rdb.Close()
}
