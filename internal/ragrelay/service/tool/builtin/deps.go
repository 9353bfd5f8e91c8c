// Package builtin holds the tools ragrelay ships with.
package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/database"
	kbentity "github.com/kiosk404/ragrelay/internal/ragrelay/service/knowledge/entity"
	"github.com/kiosk404/ragrelay/pkg/utils/json"
)

// Retriever finds passages relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]kbentity.Document, error)
}

// GraphSearcher returns the neighbourhood of entities matching a query.
type GraphSearcher interface {
	SearchGraph(ctx context.Context, query string, depth int) (*kbentity.Graph, error)
}

// SQLQuerier answers a question with one page of a read-only query.
type SQLQuerier interface {
	Query(ctx context.Context, question string, page, pageSize int, format string) (*database.QueryResult, error)
}

// Completer is a single-shot text completion.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Dependencies are the backends of the builtin tools. A tool whose
// backend is nil is registered disabled.
type Dependencies struct {
	Retriever Retriever
	Graph     GraphSearcher
	SQL       SQLQuerier
	Completer Completer
}

func stringArg(args map[string]any, name string) (string, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return "", fmt.Errorf("missing argument %q", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string, got %T", name, v)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("argument %q is empty", name)
	}
	return s, nil
}

func optionalString(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return strings.TrimSpace(s)
}

// intArg accepts the numeric types decoded JSON and Go callers produce.
func intArg(args map[string]any, name string, def int) int {
	switch v := args[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return def
}
