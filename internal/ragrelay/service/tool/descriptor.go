package tool

import (
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/entity"
	"github.com/kiosk404/ragrelay/pkg/utils/json"
)

// Factory builds a fresh tool instance. Each session gets its own instance,
// so tools may keep per-session state without locking.
type Factory func() (Tool, error)

// ParameterDef defines a single parameter of a tool.
type ParameterDef struct {
	// Name is the parameter's unique name, e.g. "question".
	Name string `json:"name" yaml:"name"`
	// Type is one of string, integer, number, boolean, object, array.
	Type        string   `json:"type"                  yaml:"type"`
	Description string   `json:"description,omitempty" yaml:"description"`
	Required    bool     `json:"required,omitempty"    yaml:"required"`
	Enum        []string `json:"enum,omitempty"        yaml:"enum"`
}

// Descriptor is the registry record of a tool.
type Descriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  []ParameterDef `json:"parameters,omitempty"`
	// ParameterSchema is a JSON schema for the arguments object. When empty
	// it is derived from Parameters.
	ParameterSchema json.RawMessage `json:"parameter_schema,omitempty"`
	ResultSchema    json.RawMessage `json:"result_schema,omitempty"`
	Enabled         bool            `json:"enabled"`
	// State is reported to the client while the tool runs.
	State   entity.StateKind `json:"state"`
	Display string           `json:"display,omitempty"`
	Factory Factory          `json:"-"`
}

// DisplayText is the progress text shown while the tool runs.
func (d Descriptor) DisplayText() string {
	if d.Display != "" {
		return d.Display
	}
	return "Calling " + d.Name
}
