package boltdb

import (
	"path/filepath"
	"testing"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/store/storetest"
	"github.com/stretchr/testify/require"
)

func TestChatStore(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "nested", "chats.db"))
	require.NoError(t, err)
	store := NewChatStore(db)
	t.Cleanup(func() { _ = store.Close() })

	storetest.Run(t, store)
}

func TestChatStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chats.db")
	db, err := Open(path)
	require.NoError(t, err)
	store := NewChatStore(db)
	storetest.Run(t, store)
	require.NoError(t, store.Close())

	db, err = Open(path)
	require.NoError(t, err)
	store = NewChatStore(db)
	defer store.Close()

	chats, err := store.ListChats(t.Context())
	require.NoError(t, err)
	require.Len(t, chats, 1)
	require.Equal(t, "b", chats[0].ID)
}
