package entity

import (
	"fmt"
	"strings"
)

// ModelRef is a reference to a configured model.
type ModelRef struct {
	ProviderID string `json:"provider_id"`
	ModelID    string `json:"model_id"`
}

func (r ModelRef) String() string {
	return fmt.Sprintf("%s/%s", r.ProviderID, r.ModelID)
}

func (r ModelRef) IsZero() bool {
	return r.ProviderID == "" && r.ModelID == ""
}

// ParseModelRef parses "provider/model". The model part may itself contain
// slashes, as ollama tags often do.
func ParseModelRef(s string) (ModelRef, error) {
	provider, model, ok := strings.Cut(s, "/")
	if !ok || provider == "" || model == "" {
		return ModelRef{}, fmt.Errorf("invalid model reference %q, want provider/model", s)
	}
	return ModelRef{ProviderID: provider, ModelID: model}, nil
}

// ModelInstance is a model resolved from configuration, ready to be handed
// to a provider plugin.
type ModelInstance struct {
	Ref           ModelRef          `json:"ref"`
	API           string            `json:"api"`
	Name          string            `json:"name"`
	BaseURL       string            `json:"base_url"`
	APIKey        string            `json:"-"`
	Headers       map[string]string `json:"headers,omitempty"`
	ContextWindow int               `json:"context_window,omitempty"`
	MaxTokens     int               `json:"max_tokens,omitempty"`
	Reasoning     bool              `json:"reasoning,omitempty"`
	Temperature   *float32          `json:"temperature,omitempty"`
	TopP          *float32          `json:"top_p,omitempty"`
}

// LLMParams overrides instance defaults for one build.
type LLMParams struct {
	Temperature *float32 `json:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	TopP        *float32 `json:"top_p,omitempty"`
	JSONOutput  bool     `json:"json_output,omitempty"`
}

// Resolve merges params over the instance defaults.
func (i *ModelInstance) Resolve(params *LLMParams) LLMParams {
	out := LLMParams{
		Temperature: i.Temperature,
		MaxTokens:   i.MaxTokens,
		TopP:        i.TopP,
	}
	if params == nil {
		return out
	}
	if params.Temperature != nil {
		out.Temperature = params.Temperature
	}
	if params.MaxTokens != 0 {
		out.MaxTokens = params.MaxTokens
	}
	if params.TopP != nil {
		out.TopP = params.TopP
	}
	out.JSONOutput = params.JSONOutput
	return out
}
