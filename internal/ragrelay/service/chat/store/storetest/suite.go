// Package storetest holds the behaviour every ChatRepository must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/entity"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/repo"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/pkg/errno"
	"github.com/stretchr/testify/require"
)

func turn(chatID string, ordinal int, question, answer string, at time.Time) *entity.Turn {
	finished := at.Add(time.Second)
	return &entity.Turn{
		Chat: &entity.Chat{ID: chatID, Title: "chat " + chatID, CreatedAt: at, UpdatedAt: at},
		UserMessage: &entity.Message{
			ID: chatID + "-u" + string(rune('0'+ordinal)), ChatID: chatID, Ordinal: ordinal,
			Role: entity.RoleUser, Content: question, CreatedAt: at,
		},
		AssistantMessage: &entity.Message{
			ID: chatID + "-a" + string(rune('0'+ordinal)), ChatID: chatID, Ordinal: ordinal + 1,
			Role: entity.RoleAssistant, Content: answer, CreatedAt: at, FinishedAt: &finished,
			Trace: []*entity.ToolInvocation{{
				ToolName: "sql-query", Step: 1, Arguments: map[string]any{"question": question},
				StartedAt: at, FinishedAt: &finished, Outcome: entity.OutcomeSuccess, Result: "42000",
			}},
		},
	}
}

// Run exercises r; it must start empty.
func Run(t *testing.T, r repo.ChatRepository) {
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	_, err := r.GetChat(ctx, "missing")
	require.ErrorIs(t, err, errno.ErrChatNotFound)
	_, err = r.ListMessages(ctx, "missing")
	require.ErrorIs(t, err, errno.ErrChatNotFound)
	require.ErrorIs(t, r.DeleteChat(ctx, "missing"), errno.ErrChatNotFound)

	require.NoError(t, r.SaveTurn(ctx, turn("a", 1, "q1", "a1", base)))
	require.NoError(t, r.SaveTurn(ctx, turn("b", 1, "q1", "b1", base.Add(time.Minute))))
	require.NoError(t, r.SaveTurn(ctx, turn("a", 3, "q2", "a2", base.Add(2*time.Minute))))

	chat, err := r.GetChat(ctx, "a")
	require.NoError(t, err)
	require.True(t, chat.UpdatedAt.Equal(base.Add(2*time.Minute)))

	chats, err := r.ListChats(ctx)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	require.Equal(t, "a", chats[0].ID)
	require.Equal(t, "b", chats[1].ID)

	msgs, err := r.ListMessages(ctx, "a")
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	for i, m := range msgs {
		require.Equal(t, i+1, m.Ordinal)
	}
	require.Equal(t, "q2", msgs[2].Content)
	require.Equal(t, entity.RoleAssistant, msgs[3].Role)
	require.Len(t, msgs[3].Trace, 1)
	require.Equal(t, entity.OutcomeSuccess, msgs[3].Trace[0].Outcome)

	// saving the same ordinal again replaces the message
	require.NoError(t, r.SaveTurn(ctx, turn("a", 3, "q2", "a2 revised", base.Add(3*time.Minute))))
	msgs, err = r.ListMessages(ctx, "a")
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	require.Equal(t, "a2 revised", msgs[3].Content)

	require.NoError(t, r.DeleteChat(ctx, "a"))
	_, err = r.GetChat(ctx, "a")
	require.ErrorIs(t, err, errno.ErrChatNotFound)
	chats, err = r.ListChats(ctx)
	require.NoError(t, err)
	require.Len(t, chats, 1)
}
