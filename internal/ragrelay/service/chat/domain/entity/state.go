package entity

import "fmt"

// StateKind names a progress stage reported through StateTransition events.
// Ordinals are kept stable; the wire carries the names.
type StateKind int

const (
	StateTrace StateKind = iota
	StateSourceNodes
	StateKGRetrieval
	StateRefineQuestion
	StateSearchRelatedDocuments
	StateDatabaseQuery
	StateGenerateAnswer
	StateToolCall
	StateToolResult
	StateFinished
	StateQueryOptimization
	StateExternalEngineCall
)

var stateNames = [...]string{
	StateTrace:                  "TRACE",
	StateSourceNodes:            "SOURCE_NODES",
	StateKGRetrieval:            "KG_RETRIEVAL",
	StateRefineQuestion:         "REFINE_QUESTION",
	StateSearchRelatedDocuments: "SEARCH_RELATED_DOCUMENTS",
	StateDatabaseQuery:          "DATABASE_QUERY",
	StateGenerateAnswer:         "GENERATE_ANSWER",
	StateToolCall:               "TOOL_CALL",
	StateToolResult:             "TOOL_RESULT",
	StateFinished:               "FINISHED",
	StateQueryOptimization:      "QUERY_OPTIMIZATION",
	StateExternalEngineCall:     "EXTERNAL_ENGINE_CALL",
}

func (s StateKind) Valid() bool {
	return s >= 0 && int(s) < len(stateNames)
}

func (s StateKind) String() string {
	if !s.Valid() {
		return fmt.Sprintf("STATE(%d)", int(s))
	}
	return stateNames[s]
}

func (s StateKind) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("unknown state kind %d", int(s))
	}
	return []byte(stateNames[s]), nil
}

func (s *StateKind) UnmarshalText(text []byte) error {
	v, err := ParseStateKind(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseStateKind maps a wire name such as "DATABASE_QUERY" to its StateKind.
func ParseStateKind(name string) (StateKind, error) {
	for i, n := range stateNames {
		if n == name {
			return StateKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown state kind %q", name)
}
