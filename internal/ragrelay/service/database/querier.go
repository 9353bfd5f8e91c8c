package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/kiosk404/ragrelay/pkg/logger"
	_ "github.com/mattn/go-sqlite3" // Register SQLite3 driver
)

const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"

	DefaultPageSize = 20
	DefaultMaxRows  = 100

	maxSchemaChars = 8000
)

var (
	ErrTranslationUnavailable = errors.New("question is not SQL and no model is configured to translate it")
	ErrUnknownFormat          = errors.New("unknown result format")
)

// Completer turns a prompt into text; used to translate questions to SQL.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

const translatePrompt = `You translate questions into SQL for a SQLite database.
Reply with exactly one read-only SELECT statement and nothing else.
Use only tables and columns from the schema.`

// Options configures a Querier.
type Options struct {
	Driver string
	DSN    string
	// ReadOnly opens sqlite databases with mode=ro.
	ReadOnly bool
	// MaxRows caps the page size.
	MaxRows int
}

// QueryResult is one page of a query.
type QueryResult struct {
	SQL      string   `json:"sql"`
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
	Page     int      `json:"page"`
	PageSize int      `json:"page_size"`
	HasMore  bool     `json:"has_more"`
	Format   string   `json:"format"`
	// Text is the rendered page for the markdown format.
	Text string `json:"text,omitempty"`
}

// Querier answers questions against a SQL database with paged, read-only
// queries.
type Querier struct {
	db        *sql.DB
	opts      Options
	completer Completer
}

// Open connects to the database. completer may be nil, in which case only
// literal SELECT statements are accepted.
func Open(ctx context.Context, opts Options, completer Completer) (*Querier, error) {
	if opts.Driver == "" {
		opts.Driver = "sqlite3"
	}
	if opts.MaxRows <= 0 {
		opts.MaxRows = DefaultMaxRows
	}
	dsn := opts.DSN
	if opts.ReadOnly && opts.Driver == "sqlite3" {
		dsn = readOnlySQLiteDSN(dsn)
	}
	db, err := sql.Open(opts.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", opts.Driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s database: %w", opts.Driver, err)
	}
	logger.Info("[SQL] connected (driver=%s, read-only=%v, translate=%v)", opts.Driver, opts.ReadOnly, completer != nil)
	return NewQuerier(db, opts, completer), nil
}

// NewQuerier wraps an open database.
func NewQuerier(db *sql.DB, opts Options, completer Completer) *Querier {
	if opts.MaxRows <= 0 {
		opts.MaxRows = DefaultMaxRows
	}
	return &Querier{db: db, opts: opts, completer: completer}
}

func readOnlySQLiteDSN(dsn string) string {
	if strings.Contains(dsn, "mode=") {
		return dsn
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&mode=ro"
	}
	return dsn + "?mode=ro"
}

// Query runs question, translating it to SQL first unless it already is
// a SELECT statement, and returns page (1-based) of the result.
func (q *Querier) Query(ctx context.Context, question string, page, pageSize int, format string) (*QueryResult, error) {
	switch format {
	case "":
		format = FormatMarkdown
	case FormatMarkdown, FormatJSON:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	pageSize = min(pageSize, q.opts.MaxRows)

	stmt := strings.TrimSpace(question)
	if !LooksLikeSQL(stmt) {
		translated, err := q.translate(ctx, stmt)
		if err != nil {
			return nil, err
		}
		stmt = translated
	}
	stmt, err := ValidateReadOnly(stmt)
	if err != nil {
		return nil, err
	}

	paged := fmt.Sprintf("SELECT * FROM (%s) LIMIT ? OFFSET ?", stmt)
	rows, err := q.db.QueryContext(ctx, paged, pageSize+1, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("run query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	result := &QueryResult{
		SQL:      stmt,
		Columns:  columns,
		Rows:     make([][]any, 0, pageSize),
		Page:     page,
		PageSize: pageSize,
		Format:   format,
	}
	for rows.Next() {
		if len(result.Rows) == pageSize {
			result.HasMore = true
			break
		}
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if format == FormatMarkdown {
		result.Text = result.Markdown()
	}
	return result, nil
}

func (q *Querier) translate(ctx context.Context, question string) (string, error) {
	if question == "" {
		return "", ErrEmptyStatement
	}
	if q.completer == nil {
		return "", ErrTranslationUnavailable
	}
	schema, err := q.Schema(ctx)
	if err != nil {
		return "", err
	}
	prompt := fmt.Sprintf("Schema:\n%s\n\nQuestion: %s", schema, question)
	reply, err := q.completer.Complete(ctx, translatePrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("translate question to SQL: %w", err)
	}
	stmt := stripCodeFence(reply)
	logger.Debug("[SQL] translated %q -> %q", question, stmt)
	return stmt, nil
}

// Schema returns the CREATE statements of all tables and views.
func (q *Querier) Schema(ctx context.Context) (string, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT sql FROM sqlite_master WHERE type IN ('table', 'view') AND sql IS NOT NULL AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return "", fmt.Errorf("read schema: %w", err)
	}
	defer rows.Close()

	var b strings.Builder
	for rows.Next() {
		var ddl string
		if err := rows.Scan(&ddl); err != nil {
			return "", err
		}
		if b.Len()+len(ddl) > maxSchemaChars {
			break
		}
		b.WriteString(ddl)
		b.WriteString(";\n")
	}
	return b.String(), rows.Err()
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

func (q *Querier) Close() error {
	return q.db.Close()
}
