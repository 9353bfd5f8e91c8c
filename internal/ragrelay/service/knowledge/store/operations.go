package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/knowledge/entity"
)

// Execer is satisfied by both *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ListFileHashes returns the stored hash of every indexed file.
func ListFileHashes(ctx context.Context, db *sql.DB) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT path, hash FROM `+TableFiles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hashes := make(map[string]string)
	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, err
		}
		hashes[path] = hash
	}
	return hashes, rows.Err()
}

func UpsertFile(ctx context.Context, ex Execer, f *entity.FileEntry) error {
	_, err := ex.ExecContext(ctx,
		`INSERT OR REPLACE INTO `+TableFiles+` (path, hash, mtime, size) VALUES (?, ?, ?, ?)`,
		f.Path, f.Hash, f.MtimeMs, f.Size)
	return err
}

// DeleteFile removes a file record together with its chunks.
func DeleteFile(ctx context.Context, ex Execer, path string, ftsAvailable bool) error {
	stmts := []string{
		`DELETE FROM ` + TableChunks + ` WHERE path = ?`,
		`DELETE FROM ` + TableFiles + ` WHERE path = ?`,
	}
	if ftsAvailable {
		stmts = append(stmts, `DELETE FROM `+TableChunksFTS+` WHERE path = ?`)
	}
	for _, stmt := range stmts {
		if _, err := ex.ExecContext(ctx, stmt, path); err != nil {
			return fmt.Errorf("delete %s: %w", path, err)
		}
	}
	return nil
}

// InsertChunk stores a chunk and, when available, its full-text row.
func InsertChunk(ctx context.Context, ex Execer, id, path string, c entity.Chunk, ftsAvailable bool) error {
	_, err := ex.ExecContext(ctx,
		`INSERT OR REPLACE INTO `+TableChunks+` (id, path, start_line, end_line, hash, text, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, path, c.StartLine, c.EndLine, c.Hash, c.Text, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	if !ftsAvailable {
		return nil
	}
	_, err = ex.ExecContext(ctx,
		`INSERT INTO `+TableChunksFTS+` (text, id, path, start_line, end_line) VALUES (?, ?, ?, ?, ?)`,
		c.Text, id, path, c.StartLine, c.EndLine)
	return err
}

func CountChunks(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+TableChunks).Scan(&n)
	return n, err
}

// ReplaceGraph drops the stored graph and writes g in its place.
func ReplaceGraph(ctx context.Context, ex Execer, g *entity.Graph) error {
	for _, table := range []string{TableRelationships, TableEntities} {
		if _, err := ex.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	for _, e := range g.Entities {
		_, err := ex.ExecContext(ctx,
			`INSERT OR REPLACE INTO `+TableEntities+` (name, type, description) VALUES (?, ?, ?)`,
			e.Name, e.Type, e.Description)
		if err != nil {
			return fmt.Errorf("insert entity %q: %w", e.Name, err)
		}
	}
	for _, r := range g.Relationships {
		_, err := ex.ExecContext(ctx,
			`INSERT INTO `+TableRelationships+` (source, target, relation, description, weight) VALUES (?, ?, ?, ?, ?)`,
			r.Source, r.Target, r.Relation, r.Description, r.Weight)
		if err != nil {
			return fmt.Errorf("insert relationship %s -> %s: %w", r.Source, r.Target, err)
		}
	}
	return nil
}
