package entity

// SubQuery is one independently resolvable part of a user query.
type SubQuery struct {
	Text string `json:"text"`
	// AssignedTool is empty when the orchestrator should choose.
	AssignedTool string `json:"assigned_tool,omitempty"`
	ParentQuery  string `json:"parent_query"`
}

func (q SubQuery) Assigned() bool {
	return q.AssignedTool != ""
}

// WholeQuery is the undecomposed fallback routing of query.
func WholeQuery(query string) []SubQuery {
	return []SubQuery{{Text: query, ParentQuery: query}}
}
