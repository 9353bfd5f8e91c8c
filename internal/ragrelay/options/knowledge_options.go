package options

import (
	"fmt"
	"time"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/database"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/knowledge"
	"github.com/spf13/pflag"
)

// KnowledgeOptions configure the document index and the knowledge graph.
type KnowledgeOptions struct {
	DBPath        string        `json:"db-path"        mapstructure:"db-path"`
	DocsDir       string        `json:"docs-dir"       mapstructure:"docs-dir"`
	Watch         bool          `json:"watch"          mapstructure:"watch"`
	WatchDebounce time.Duration `json:"watch-debounce" mapstructure:"watch-debounce"`
	GraphFile     string        `json:"graph-file"     mapstructure:"graph-file"`
	ChunkTokens   int           `json:"chunk-tokens"   mapstructure:"chunk-tokens"`
	ChunkOverlap  int           `json:"chunk-overlap"  mapstructure:"chunk-overlap"`
}

func NewKnowledgeOptions() *KnowledgeOptions {
	return &KnowledgeOptions{
		DBPath:        "data/knowledge.db",
		WatchDebounce: 1500 * time.Millisecond,
		ChunkTokens:   400,
		ChunkOverlap:  80,
	}
}

// Enabled reports whether there is anything to index.
func (o *KnowledgeOptions) Enabled() bool {
	return o.DocsDir != "" || o.GraphFile != ""
}

func (o *KnowledgeOptions) Validate() []error {
	var errs []error
	if o.ChunkTokens < 1 {
		errs = append(errs, fmt.Errorf("--knowledge.chunk-tokens must be at least 1"))
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkTokens {
		errs = append(errs, fmt.Errorf("--knowledge.chunk-overlap must be between 0 and chunk-tokens"))
	}
	return errs
}

func (o *KnowledgeOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.DBPath, "knowledge.db-path", o.DBPath, "SQLite file holding the document index.")
	fs.StringVar(&o.DocsDir, "knowledge.docs-dir", o.DocsDir, "Directory of markdown and text documents to index.")
	fs.BoolVar(&o.Watch, "knowledge.watch", o.Watch, "Reindex when files under --knowledge.docs-dir change.")
	fs.DurationVar(&o.WatchDebounce, "knowledge.watch-debounce", o.WatchDebounce, "Quiet period before a reindex.")
	fs.StringVar(&o.GraphFile, "knowledge.graph-file", o.GraphFile, "YAML or JSON file of entities and relationships.")
	fs.IntVar(&o.ChunkTokens, "knowledge.chunk-tokens", o.ChunkTokens, "Approximate chunk size in tokens.")
	fs.IntVar(&o.ChunkOverlap, "knowledge.chunk-overlap", o.ChunkOverlap, "Tokens shared by neighbouring chunks.")
}

func (o *KnowledgeOptions) ApplyTo(c *knowledge.Config) {
	c.DBPath = o.DBPath
	c.DocsDir = o.DocsDir
	c.Watch = o.Watch
	c.WatchDebounce = o.WatchDebounce
	c.GraphFile = o.GraphFile
	c.ChunkTokens = o.ChunkTokens
	c.ChunkOverlap = o.ChunkOverlap
}

// SQLOptions configure the database behind the sql-query tool.
type SQLOptions struct {
	Driver   string `json:"driver"    mapstructure:"driver"`
	DSN      string `json:"dsn"       mapstructure:"dsn"`
	ReadOnly bool   `json:"read-only" mapstructure:"read-only"`
	MaxRows  int    `json:"max-rows"  mapstructure:"max-rows"`
}

func NewSQLOptions() *SQLOptions {
	return &SQLOptions{
		Driver:   "sqlite3",
		ReadOnly: true,
		MaxRows:  database.DefaultMaxRows,
	}
}

func (o *SQLOptions) Validate() []error {
	var errs []error
	if o.Driver != "sqlite3" {
		errs = append(errs, fmt.Errorf("--sql.driver %q is not supported, use sqlite3", o.Driver))
	}
	if o.MaxRows < 1 {
		errs = append(errs, fmt.Errorf("--sql.max-rows must be at least 1"))
	}
	return errs
}

func (o *SQLOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Driver, "sql.driver", o.Driver, "database/sql driver of the queried database.")
	fs.StringVar(&o.DSN, "sql.dsn", o.DSN, "Data source of the queried database; empty disables sql-query.")
	fs.BoolVar(&o.ReadOnly, "sql.read-only", o.ReadOnly, "Open the database read-only.")
	fs.IntVar(&o.MaxRows, "sql.max-rows", o.MaxRows, "Upper bound of rows on one result page.")
}

func (o *SQLOptions) ApplyTo(c *database.Config) {
	c.Driver = o.Driver
	c.DSN = o.DSN
	c.ReadOnly = o.ReadOnly
	c.MaxRows = o.MaxRows
}
