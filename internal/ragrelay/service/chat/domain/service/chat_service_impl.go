package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/entity"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/repo"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/service/runtime"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/pkg"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/pkg/errno"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/tool"
	"github.com/kiosk404/ragrelay/pkg/logger"
)

const maxTitleRunes = 64

type Options struct {
	// Session is the template every turn's StreamSession is built from.
	// Its Recorder is replaced by the chat repository.
	Session runtime.StreamSessionConfig
	// MaxHistoryMessages bounds the history handed to a turn; 0 keeps all.
	MaxHistoryMessages int
}

type chatServiceImpl struct {
	repo repo.ChatRepository
	opts Options

	// next free ordinal per chat, covering turns not yet saved
	mu       sync.Mutex
	ordinals map[string]int
}

func NewChatService(chatRepo repo.ChatRepository, opts Options) ChatService {
	opts.Session.Recorder = chatRepo
	return &chatServiceImpl{
		repo:     chatRepo,
		opts:     opts,
		ordinals: make(map[string]int),
	}
}

func (s *chatServiceImpl) Stream(ctx context.Context, req *ChatRequest) (*runtime.StreamSession, error) {
	question, prior := splitQuestion(req.Messages)
	if question == "" {
		return nil, errno.ErrEmptyQuery
	}

	now := time.Now()
	var (
		chat    *entity.Chat
		history []*entity.Message
		stored  int
	)
	if req.ChatID != "" {
		c, err := s.repo.GetChat(ctx, req.ChatID)
		if err != nil {
			return nil, err
		}
		msgs, err := s.repo.ListMessages(ctx, req.ChatID)
		if err != nil {
			return nil, err
		}
		if n := len(msgs); n > 0 {
			stored = msgs[n-1].Ordinal
		}
		chat, history = c, msgs
	} else {
		chat = &entity.Chat{
			ID:        uuid.NewString(),
			Title:     title(question),
			CreatedAt: now,
			UpdatedAt: now,
		}
		history = prior
	}
	if limit := s.opts.MaxHistoryMessages; limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}

	ordinal := s.reserve(chat.ID, stored+1)
	turn := &entity.Turn{
		Chat: chat,
		UserMessage: &entity.Message{
			ID:        uuid.NewString(),
			ChatID:    chat.ID,
			Ordinal:   ordinal,
			Role:      entity.RoleUser,
			Content:   question,
			CreatedAt: now,
		},
		AssistantMessage: &entity.Message{
			ID:        uuid.NewString(),
			ChatID:    chat.ID,
			Ordinal:   ordinal + 1,
			Role:      entity.RoleAssistant,
			CreatedAt: now,
		},
	}
	sess := entity.NewSession(uuid.NewString(), chat.ID, question, history)
	logger.InfoX(pkg.ModuleName, "[ChatService] session %s for chat %s (history=%d, ordinal=%d)",
		sess.ID, chat.ID, len(history), ordinal)

	return runtime.NewStreamSession(ctx, s.opts.Session, sess, turn), nil
}

// reserve hands out two ordinals (question and answer) for chatID, never
// below floor and never twice, even while earlier turns are still running.
func (s *chatServiceImpl) reserve(chatID string, floor int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	ordinal := floor
	if next := s.ordinals[chatID]; next > ordinal {
		ordinal = next
	}
	s.ordinals[chatID] = ordinal + 2
	return ordinal
}

// splitQuestion returns the last user message and the messages before it.
func splitQuestion(msgs []*entity.Message) (string, []*entity.Message) {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m == nil || m.Role != entity.RoleUser {
			continue
		}
		prior := make([]*entity.Message, 0, i)
		for _, p := range msgs[:i] {
			if p != nil && strings.TrimSpace(p.Content) != "" {
				prior = append(prior, p)
			}
		}
		return strings.TrimSpace(m.Content), prior
	}
	return "", nil
}

func title(question string) string {
	q := strings.Join(strings.Fields(question), " ")
	if utf8.RuneCountInString(q) <= maxTitleRunes {
		return q
	}
	r := []rune(q)
	return string(r[:maxTitleRunes-1]) + "…"
}

func (s *chatServiceImpl) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	ss, err := s.Stream(ctx, req)
	if err != nil {
		return nil, err
	}
	defer ss.Close()

	var (
		res    ChatResult
		answer strings.Builder
	)
	for {
		ev, ok := ss.NextEvent()
		if !ok {
			break
		}
		switch e := ev.(type) {
		case entity.TextDelta:
			answer.WriteString(e.Content)
		case entity.StateTransition:
			res.States = append(res.States, e.State)
		case entity.ToolCall:
			res.ToolCalls = append(res.ToolCalls, e)
		case entity.ToolResult:
			res.ToolResults = append(res.ToolResults, e)
		case entity.ErrorPart:
			res.Errors = append(res.Errors, e)
		case entity.DataPayload:
			data := e
			res.Data = &data
		case entity.Terminal:
			res.Result = e.Result
		}
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("chat %s: %w", ss.Session().ChatID, ctx.Err())
	}
	res.Answer = answer.String()
	return &res, nil
}

func (s *chatServiceImpl) GetChat(ctx context.Context, id string) (*entity.Chat, []*entity.Message, error) {
	chat, err := s.repo.GetChat(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := s.repo.ListMessages(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return chat, msgs, nil
}

func (s *chatServiceImpl) ListChats(ctx context.Context) ([]*entity.Chat, error) {
	return s.repo.ListChats(ctx)
}

func (s *chatServiceImpl) DeleteChat(ctx context.Context, id string) error {
	if err := s.repo.DeleteChat(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.ordinals, id)
	s.mu.Unlock()
	return nil
}

func (s *chatServiceImpl) Tools() []tool.Descriptor {
	return s.opts.Session.Orchestrator.Registry().Descriptors()
}
