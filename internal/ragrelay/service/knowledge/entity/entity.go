package entity

// Document is one retrieved passage of the knowledge base.
type Document struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Chunk is a slice of a source file as produced by the chunker.
type Chunk struct {
	StartLine int
	EndLine   int
	Text      string
	Hash      string
}

// FileEntry describes a document file found in the docs directory.
type FileEntry struct {
	// Path is relative to the docs directory and always uses "/".
	Path    string
	AbsPath string
	Hash    string
	MtimeMs int64
	Size    int64
}

// Entity is a node of the knowledge graph. Names are unique, compared
// case-insensitively.
type Entity struct {
	Name        string `json:"name"                  yaml:"name"`
	Type        string `json:"type,omitempty"        yaml:"type"`
	Description string `json:"description,omitempty" yaml:"description"`
}

// Relationship is a directed, labelled edge between two entities.
type Relationship struct {
	Source      string  `json:"source"                yaml:"source"`
	Target      string  `json:"target"                yaml:"target"`
	Relation    string  `json:"relation"              yaml:"relation"`
	Description string  `json:"description,omitempty" yaml:"description"`
	Weight      float64 `json:"weight,omitempty"      yaml:"weight"`
}

// Graph is a knowledge graph or a subgraph returned by a search.
type Graph struct {
	Entities      []Entity       `json:"entities"      yaml:"entities"`
	Relationships []Relationship `json:"relationships" yaml:"relationships"`
}

// SyncStats summarises one index synchronisation.
type SyncStats struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Removed int `json:"removed"`
	Chunks  int `json:"chunks"`
}

// ChunkingConfig sizes chunks in approximate tokens (4 chars each).
type ChunkingConfig struct {
	Tokens  int `json:"tokens"  mapstructure:"tokens"`
	Overlap int `json:"overlap" mapstructure:"overlap"`
}
