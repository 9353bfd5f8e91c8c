package knowledge

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/knowledge/entity"
	kbinternal "github.com/kiosk404/ragrelay/internal/ragrelay/service/knowledge/internal"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/knowledge/pkg/errno"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/knowledge/store"
	"github.com/kiosk404/ragrelay/pkg/logger"
	_ "github.com/mattn/go-sqlite3" // Register SQLite3 driver
)

const defaultWatchDebounce = 1500 * time.Millisecond

// Options configures a Manager.
type Options struct {
	// DBPath is the sqlite file holding the index and the graph.
	DBPath string
	// DocsDir is scanned for .md, .markdown and .txt files. Empty disables
	// document indexing.
	DocsDir       string
	WatchDebounce time.Duration
	Chunking      entity.ChunkingConfig
}

// Manager owns the knowledge base: a sqlite index of document chunks with
// full-text search, and an entity graph.
type Manager struct {
	opts Options
	db   *sql.DB

	ftsAvailable bool

	watcher *fsnotify.Watcher
	closeCh chan struct{}
	wg      sync.WaitGroup

	syncMu sync.Mutex
	closed atomic.Bool
}

// Open creates or opens the index at opts.DBPath. It does not sync.
func Open(ctx context.Context, opts Options) (*Manager, error) {
	if err := os.MkdirAll(filepath.Dir(opts.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := sql.Open("sqlite3", opts.DBPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// sqlite allows a single writer; one connection keeps sync and search
	// from tripping over each other.
	db.SetMaxOpenConns(1)

	schema, err := store.EnsureSchema(ctx, db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	if !schema.FTSAvailable {
		logger.Warn("[Knowledge] FTS5 unavailable, falling back to LIKE search: %s", schema.FTSError)
	}

	logger.Info("[Knowledge] opened %s (fts=%v)", opts.DBPath, schema.FTSAvailable)
	return &Manager{
		opts:         opts,
		db:           db,
		ftsAvailable: schema.FTSAvailable,
		closeCh:      make(chan struct{}),
	}, nil
}

// FTSAvailable reports whether searches run on FTS5 with bm25 ranking.
func (m *Manager) FTSAvailable() bool {
	return m.ftsAvailable
}

// DB exposes the underlying database, e.g. for read-only SQL tools.
func (m *Manager) DB() *sql.DB {
	return m.db
}

// Sync brings the index in line with the docs directory. Unchanged files
// (same content hash) are skipped.
func (m *Manager) Sync(ctx context.Context) (*entity.SyncStats, error) {
	if m.closed.Load() {
		return nil, errno.ErrClosed
	}
	m.syncMu.Lock()
	defer m.syncMu.Unlock()

	stats := &entity.SyncStats{}
	if m.opts.DocsDir == "" {
		return stats, nil
	}

	files, err := kbinternal.ListDocFiles(m.opts.DocsDir)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	stored, err := store.ListFileHashes(ctx, m.db)
	if err != nil {
		return nil, fmt.Errorf("list indexed files: %w", err)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin sync: %w", err)
	}
	defer tx.Rollback()

	seen := make(map[string]bool, len(files))
	for _, f := range files {
		seen[f.Path] = true
		data, err := os.ReadFile(f.AbsPath)
		if err != nil {
			logger.Warn("[Knowledge] skip %s: %v", f.Path, err)
			continue
		}
		content := string(data)
		f.Hash = kbinternal.HashText(content)
		prev, indexed := stored[f.Path]
		if indexed && prev == f.Hash {
			continue
		}
		if err := m.indexFile(ctx, tx, f, content); err != nil {
			return nil, err
		}
		if indexed {
			stats.Updated++
		} else {
			stats.Added++
		}
	}
	for path := range stored {
		if seen[path] {
			continue
		}
		if err := store.DeleteFile(ctx, tx, path, m.ftsAvailable); err != nil {
			return nil, err
		}
		stats.Removed++
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit sync: %w", err)
	}

	if stats.Chunks, err = store.CountChunks(ctx, m.db); err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	logger.Info("[Knowledge] sync done (added=%d, updated=%d, removed=%d, chunks=%d)",
		stats.Added, stats.Updated, stats.Removed, stats.Chunks)
	return stats, nil
}

func (m *Manager) indexFile(ctx context.Context, tx *sql.Tx, f *entity.FileEntry, content string) error {
	if err := store.DeleteFile(ctx, tx, f.Path, m.ftsAvailable); err != nil {
		return err
	}
	for _, c := range kbinternal.ChunkMarkdown(content, m.opts.Chunking) {
		id := chunkID(f.Path, c)
		if err := store.InsertChunk(ctx, tx, id, f.Path, c, m.ftsAvailable); err != nil {
			return fmt.Errorf("index %s:%d: %w", f.Path, c.StartLine, err)
		}
	}
	if err := store.UpsertFile(ctx, tx, f); err != nil {
		return fmt.Errorf("record %s: %w", f.Path, err)
	}
	return nil
}

func chunkID(path string, c entity.Chunk) string {
	return kbinternal.HashText(fmt.Sprintf("%s:%d:%d:%s", path, c.StartLine, c.EndLine, c.Hash))[:16]
}

// Watch resyncs the index whenever files under the docs directory change,
// batching bursts of events into one sync.
func (m *Manager) Watch() error {
	if m.opts.DocsDir == "" {
		return nil
	}
	if err := os.MkdirAll(m.opts.DocsDir, 0o755); err != nil {
		return fmt.Errorf("create docs directory: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	dirs, err := kbinternal.ListDirs(m.opts.DocsDir)
	if err != nil {
		watcher.Close()
		return fmt.Errorf("list docs directories: %w", err)
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			logger.Warn("[Knowledge] cannot watch %s: %v", dir, err)
		}
	}
	m.watcher = watcher

	debounce := m.opts.WatchDebounce
	if debounce <= 0 {
		debounce = defaultWatchDebounce
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		timer := time.NewTimer(0)
		timer.Stop()
		defer timer.Stop()

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&fsnotify.Create != 0 {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						_ = watcher.Add(event.Name)
					}
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					timer.Reset(debounce)
				}
			case <-timer.C:
				if _, err := m.Sync(context.Background()); err != nil {
					logger.Warn("[Knowledge] watcher sync failed: %v", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("[Knowledge] watcher error: %v", err)
			case <-m.closeCh:
				return
			}
		}
	}()

	logger.Info("[Knowledge] watching %s", m.opts.DocsDir)
	return nil
}

func (m *Manager) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(m.closeCh)
	if m.watcher != nil {
		m.watcher.Close()
	}
	m.wg.Wait()
	return m.db.Close()
}
