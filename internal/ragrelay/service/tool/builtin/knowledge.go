package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/entity"
	kbentity "github.com/kiosk404/ragrelay/internal/ragrelay/service/knowledge/entity"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/tool"
	"github.com/kiosk404/ragrelay/pkg/utils/json"
)

const (
	defaultTopK  = 5
	maxTopK      = 20
	maxDepth     = 3
	noDocsFound  = "No relevant documents found."
	noGraphFound = "No matching entities found."
)

// Passages is the content of a knowledge-retrieval result.
type Passages []kbentity.Document

// String renders the passages with their sources, best first.
func (p Passages) String() string {
	if len(p) == 0 {
		return noDocsFound
	}
	var b strings.Builder
	for i, d := range p {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s", i+1, d.Text)
		if path, ok := d.Metadata["path"].(string); ok {
			fmt.Fprintf(&b, "\n(source: %s", path)
			if start, ok := d.Metadata["start_line"].(int); ok {
				fmt.Fprintf(&b, ":%d", start)
			}
			b.WriteString(")")
		}
	}
	return b.String()
}

var passagesSchema = json.RawMessage(`{
	"type": "array",
	"items": {
		"type": "object",
		"properties": {
			"id": {"type": "string"},
			"text": {"type": "string"},
			"score": {"type": "number"},
			"metadata": {"type": "object"}
		},
		"required": ["id", "text", "score"]
	}
}`)

func knowledgeRetrievalDescriptor(r Retriever) tool.Descriptor {
	return tool.Descriptor{
		Description: "Search the document knowledge base for passages relevant to a question.",
		Parameters: []tool.ParameterDef{
			{Name: tool.ArgQuestion, Type: "string", Description: "what to search for", Required: true},
			{Name: "top_k", Type: "integer", Description: "number of passages, default 5"},
		},
		ResultSchema: passagesSchema,
		Enabled:      r != nil,
		State:        entity.StateSearchRelatedDocuments,
		Display:      "Searching related documents",
		Factory: func() (tool.Tool, error) {
			return tool.FromHandler(func(ctx context.Context, args map[string]any) (any, error) {
				question, err := stringArg(args, tool.ArgQuestion)
				if err != nil {
					return nil, err
				}
				topK := min(max(intArg(args, "top_k", defaultTopK), 1), maxTopK)
				docs, err := r.Retrieve(ctx, question, topK)
				if err != nil {
					return nil, fmt.Errorf("retrieve documents: %w", err)
				}
				return Passages(docs), nil
			}), nil
		},
	}
}

// Subgraph is the content of a knowledge-graph-query result.
type Subgraph struct {
	*kbentity.Graph
}

func (g Subgraph) String() string {
	if g.Graph == nil || len(g.Entities) == 0 {
		return noGraphFound
	}
	var b strings.Builder
	b.WriteString("Entities:")
	for _, e := range g.Entities {
		fmt.Fprintf(&b, "\n- %s", e.Name)
		if e.Type != "" {
			fmt.Fprintf(&b, " (%s)", e.Type)
		}
		if e.Description != "" {
			fmt.Fprintf(&b, ": %s", e.Description)
		}
	}
	if len(g.Relationships) > 0 {
		b.WriteString("\nRelationships:")
		for _, r := range g.Relationships {
			fmt.Fprintf(&b, "\n- %s -[%s]-> %s", r.Source, r.Relation, r.Target)
		}
	}
	return b.String()
}

func knowledgeGraphDescriptor(g GraphSearcher) tool.Descriptor {
	return tool.Descriptor{
		Description: "Look up entities and how they relate to each other in the knowledge graph.",
		Parameters: []tool.ParameterDef{
			{Name: tool.ArgQuestion, Type: "string", Description: "entities or relation to look up", Required: true},
			{Name: "depth", Type: "integer", Description: "relationship hops to follow, 1 to 3"},
		},
		Enabled: g != nil,
		State:   entity.StateKGRetrieval,
		Display: "Querying the knowledge graph",
		Factory: func() (tool.Tool, error) {
			return tool.FromHandler(func(ctx context.Context, args map[string]any) (any, error) {
				question, err := stringArg(args, tool.ArgQuestion)
				if err != nil {
					return nil, err
				}
				depth := min(max(intArg(args, "depth", 1), 1), maxDepth)
				sub, err := g.SearchGraph(ctx, question, depth)
				if err != nil {
					return nil, fmt.Errorf("search graph: %w", err)
				}
				return Subgraph{Graph: sub}, nil
			}), nil
		},
	}
}
