package builtin

import (
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/tool"
	"github.com/kiosk404/ragrelay/pkg/logger"
)

// Descriptors builds the builtin tools keyed by name. The catalog may be
// nil.
func Descriptors(deps Dependencies, catalog *Catalog) map[string]tool.Descriptor {
	descs := map[string]tool.Descriptor{
		tool.NameKnowledgeRetrieval:  knowledgeRetrievalDescriptor(deps.Retriever),
		tool.NameKnowledgeGraphQuery: knowledgeGraphDescriptor(deps.Graph),
		tool.NameSQLQuery:            sqlQueryDescriptor(deps.SQL),
		tool.NameDeepResearch:        deepResearchDescriptor(deps.Retriever, deps.Completer),
		tool.NameResponseGeneration:  responseGenerationDescriptor(deps.Completer),
		tool.NameFurtherQuestions:    furtherQuestionsDescriptor(deps.Completer),
	}
	for name, d := range descs {
		catalog.Apply(name, &d)
		descs[name] = d
	}
	return descs
}

// Order is the registration order of the builtin tools. knowledge-retrieval
// comes first as it is the fallback of the rule policy.
var Order = []string{
	tool.NameKnowledgeRetrieval,
	tool.NameKnowledgeGraphQuery,
	tool.NameSQLQuery,
	tool.NameDeepResearch,
	tool.NameResponseGeneration,
	tool.NameFurtherQuestions,
}

// Register adds every builtin tool to r.
func Register(r *tool.Registry, deps Dependencies, catalog *Catalog) error {
	descs := Descriptors(deps, catalog)
	var disabled []string
	for _, name := range Order {
		d := descs[name]
		if err := r.Register(name, d); err != nil {
			return err
		}
		if !d.Enabled {
			disabled = append(disabled, name)
		}
	}
	if len(disabled) > 0 {
		logger.Info("[Tools] builtin tools disabled: %v", disabled)
	}
	return nil
}
