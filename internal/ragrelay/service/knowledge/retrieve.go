package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/knowledge/entity"
	kbinternal "github.com/kiosk404/ragrelay/internal/ragrelay/service/knowledge/internal"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/knowledge/pkg/errno"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/knowledge/store"
	"github.com/kiosk404/ragrelay/pkg/logger"
)

const DefaultTopK = 5

// Retrieve returns up to topK chunks relevant to query, best first.
func (m *Manager) Retrieve(ctx context.Context, query string, topK int) ([]entity.Document, error) {
	if m.closed.Load() {
		return nil, errno.ErrClosed
	}
	if strings.TrimSpace(query) == "" {
		return nil, errno.ErrEmptyQuery
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	tokens := kbinternal.Tokenize(query)
	if len(tokens) == 0 {
		return []entity.Document{}, nil
	}

	if m.ftsAvailable {
		docs, err := m.searchFTS(ctx, tokens, topK)
		if err == nil {
			return docs, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("[Knowledge] fts search failed, using LIKE: %v", err)
	}
	return m.searchLike(ctx, tokens, topK)
}

func (m *Manager) searchFTS(ctx context.Context, tokens []string, topK int) ([]entity.Document, error) {
	query := fmt.Sprintf(
		`SELECT id, path, start_line, end_line, text, bm25(%s) AS rank FROM %s WHERE %s MATCH ? ORDER BY rank ASC LIMIT ?`,
		store.TableChunksFTS, store.TableChunksFTS, store.TableChunksFTS)
	rows, err := m.db.QueryContext(ctx, query, kbinternal.BuildFTSQuery(tokens), topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]entity.Document, 0, topK)
	for rows.Next() {
		var (
			id, path, text     string
			startLine, endLine int
			rank               float64
		)
		if err := rows.Scan(&id, &path, &startLine, &endLine, &text, &rank); err != nil {
			return nil, err
		}
		docs = append(docs, newDocument(id, path, startLine, endLine, text, kbinternal.RankToScore(rank)))
	}
	return docs, rows.Err()
}

// searchLike scores each chunk by the share of query tokens it contains.
func (m *Manager) searchLike(ctx context.Context, tokens []string, topK int) ([]entity.Document, error) {
	clauses := make([]string, len(tokens))
	args := make([]any, len(tokens))
	for i, t := range tokens {
		clauses[i] = `lower(text) LIKE ? ESCAPE '\'`
		args[i] = "%" + kbinternal.EscapeLike(t) + "%"
	}
	query := `SELECT id, path, start_line, end_line, text FROM ` + store.TableChunks +
		` WHERE ` + strings.Join(clauses, " OR ")
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	defer rows.Close()

	var docs []entity.Document
	for rows.Next() {
		var (
			id, path, text     string
			startLine, endLine int
		)
		if err := rows.Scan(&id, &path, &startLine, &endLine, &text); err != nil {
			return nil, err
		}
		lower := strings.ToLower(text)
		matched := 0
		for _, t := range tokens {
			if strings.Contains(lower, t) {
				matched++
			}
		}
		score := float64(matched) / float64(len(tokens))
		docs = append(docs, newDocument(id, path, startLine, endLine, text, score))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].Score != docs[j].Score {
			return docs[i].Score > docs[j].Score
		}
		pi, pj := docs[i].Metadata["path"].(string), docs[j].Metadata["path"].(string)
		if pi != pj {
			return pi < pj
		}
		return docs[i].Metadata["start_line"].(int) < docs[j].Metadata["start_line"].(int)
	})
	if len(docs) > topK {
		docs = docs[:topK]
	}
	return docs, nil
}

func newDocument(id, path string, startLine, endLine int, text string, score float64) entity.Document {
	return entity.Document{
		ID:    id,
		Text:  text,
		Score: score,
		Metadata: map[string]any{
			"path":       path,
			"start_line": startLine,
			"end_line":   endLine,
		},
	}
}
