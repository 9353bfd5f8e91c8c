package tool

// Builtin tool names.
const (
	NameKnowledgeRetrieval  = "knowledge-retrieval"
	NameKnowledgeGraphQuery = "knowledge-graph-query"
	NameSQLQuery            = "sql-query"
	NameResponseGeneration  = "response-generation"
	NameDeepResearch        = "deep-research"
	NameFurtherQuestions    = "further-questions"
)

// ArgQuestion is the argument every question-answering tool accepts.
const ArgQuestion = "question"
