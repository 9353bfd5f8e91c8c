package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/knowledge/entity"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/knowledge/pkg/errno"
	"github.com/stretchr/testify/require"
)

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func openTestManager(t *testing.T, docs string) *Manager {
	t.Helper()
	m, err := Open(context.Background(), Options{
		DBPath:        filepath.Join(t.TempDir(), "kb", "knowledge.db"),
		DocsDir:       docs,
		WatchDebounce: 50 * time.Millisecond,
		Chunking:      entity.ChunkingConfig{Tokens: 100},
	})
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestSyncTracksDocsDirectory(t *testing.T) {
	ctx := context.Background()
	docs := t.TempDir()
	writeDoc(t, docs, "finance.md", "# Finance\n\nQuarterly revenue was 42000 in Q1.")
	writeDoc(t, docs, "ops/cafeteria.txt", "The cafeteria menu lists soup.")
	writeDoc(t, docs, "notes.pdf", "ignored")
	writeDoc(t, docs, ".hidden/secret.md", "revenue secret")

	m := openTestManager(t, docs)
	stats, err := m.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, entity.SyncStats{Added: 2, Chunks: 2}, *stats)

	stats, err = m.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, entity.SyncStats{Chunks: 2}, *stats)

	writeDoc(t, docs, "finance.md", "# Finance\n\nQuarterly revenue was 51000 in Q2.")
	require.NoError(t, os.Remove(filepath.Join(docs, "ops/cafeteria.txt")))
	stats, err = m.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, entity.SyncStats{Updated: 1, Removed: 1, Chunks: 1}, *stats)

	docsFound, err := m.Retrieve(ctx, "revenue", 5)
	require.NoError(t, err)
	require.Len(t, docsFound, 1)
	require.Contains(t, docsFound[0].Text, "51000")
}

func TestRetrieveRanksMatchingChunks(t *testing.T) {
	ctx := context.Background()
	docs := t.TempDir()
	writeDoc(t, docs, "finance.md", "Quarterly revenue was 42000 in Q1.")
	writeDoc(t, docs, "cafeteria.md", "The cafeteria menu lists soup.")
	writeDoc(t, docs, "mixed.md", "Revenue forecast for the cafeteria.")

	m := openTestManager(t, docs)
	_, err := m.Sync(ctx)
	require.NoError(t, err)

	for _, fts := range []bool{m.FTSAvailable(), false} {
		m.ftsAvailable = fts
		found, err := m.Retrieve(ctx, "What was the quarterly revenue?", 5)
		require.NoError(t, err, "fts=%v", fts)
		require.Len(t, found, 2, "fts=%v", fts)
		require.Equal(t, "finance.md", found[0].Metadata["path"], "fts=%v", fts)
		require.Equal(t, "mixed.md", found[1].Metadata["path"], "fts=%v", fts)
		require.Greater(t, found[0].Score, found[1].Score)
		require.NotEmpty(t, found[0].ID)

		found, err = m.Retrieve(ctx, "revenue", 1)
		require.NoError(t, err)
		require.Len(t, found, 1)
	}
}

func TestRetrieveEdgeCases(t *testing.T) {
	ctx := context.Background()
	m := openTestManager(t, "")

	_, err := m.Retrieve(ctx, "  ", 3)
	require.ErrorIs(t, err, errno.ErrEmptyQuery)

	found, err := m.Retrieve(ctx, "what is it", 3)
	require.NoError(t, err)
	require.Empty(t, found)

	found, err = m.Retrieve(ctx, "100%_match", 3)
	require.NoError(t, err)
	require.Empty(t, found)

	stats, err := m.Sync(ctx)
	require.NoError(t, err)
	require.Zero(t, *stats)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	_, err = m.Retrieve(ctx, "revenue", 3)
	require.ErrorIs(t, err, errno.ErrClosed)
	_, err = m.Sync(ctx)
	require.ErrorIs(t, err, errno.ErrClosed)
}

func TestWatchResyncsOnChange(t *testing.T) {
	ctx := context.Background()
	docs := t.TempDir()
	m := openTestManager(t, docs)
	_, err := m.Sync(ctx)
	require.NoError(t, err)
	require.NoError(t, m.Watch())

	writeDoc(t, docs, "late.md", "Headcount grew to 120 engineers.")
	require.Eventually(t, func() bool {
		found, err := m.Retrieve(ctx, "headcount", 3)
		return err == nil && len(found) == 1
	}, 5*time.Second, 20*time.Millisecond)
}
