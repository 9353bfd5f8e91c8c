package store

import (
	"context"
	"database/sql"
	"fmt"
)

const (
	TableFiles         = "files"
	TableChunks        = "chunks"
	TableChunksFTS     = "chunks_fts"
	TableEntities      = "entities"
	TableRelationships = "relationships"
)

// SchemaResult holds the outcome of schema initialization.
type SchemaResult struct {
	// FTSAvailable reports whether the FTS5 table could be created. The
	// sqlite driver only ships FTS5 when built with the sqlite_fts5 tag.
	FTSAvailable bool
	FTSError     string
}

// EnsureSchema creates all tables and indexes of the knowledge base.
func EnsureSchema(ctx context.Context, db *sql.DB) (*SchemaResult, error) {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + TableFiles + ` (
			path TEXT PRIMARY KEY,
			hash TEXT NOT NULL,
			mtime INTEGER NOT NULL,
			size INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ` + TableChunks + ` (
			id TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			start_line INTEGER NOT NULL,
			end_line INTEGER NOT NULL,
			hash TEXT NOT NULL,
			text TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_path ON ` + TableChunks + `(path)`,
		`CREATE TABLE IF NOT EXISTS ` + TableEntities + ` (
			name TEXT PRIMARY KEY COLLATE NOCASE,
			type TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS ` + TableRelationships + ` (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL COLLATE NOCASE,
			target TEXT NOT NULL COLLATE NOCASE,
			relation TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			weight REAL NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_relationships_source ON ` + TableRelationships + `(source)`,
		`CREATE INDEX IF NOT EXISTS idx_relationships_target ON ` + TableRelationships + `(target)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("exec schema: %w", err)
		}
	}

	result := &SchemaResult{}
	ftsSQL := `CREATE VIRTUAL TABLE IF NOT EXISTS ` + TableChunksFTS + ` USING fts5(
		text,
		id UNINDEXED,
		path UNINDEXED,
		start_line UNINDEXED,
		end_line UNINDEXED
	)`
	if _, err := db.ExecContext(ctx, ftsSQL); err != nil {
		result.FTSError = err.Error()
	} else {
		result.FTSAvailable = true
	}
	return result, nil
}
