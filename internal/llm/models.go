// ABOUTME: The model allow-list and default model selection
// ABOUTME: Model changes are validated here before any session mutation

package llm

import (
	"errors"
	"fmt"
)

// ErrUnknownModel is returned when a model identifier is not in the allow-list.
var ErrUnknownModel = errors.New("unknown model")

// DefaultModel is used for sessions that never selected a model.
const DefaultModel = "llama3-8b-8192"

// DefaultModels is the built-in allow-list of Groq model identifiers.
var DefaultModels = []string{
	"llama3-8b-8192",
	"llama3-70b-8192",
	"mixtral-8x7b-32768",
	"gemma-7b-it",
}

// Models is an allow-list of selectable model identifiers.
type Models struct {
	ids []string
}

// NewModels builds an allow-list. An empty slice falls back to DefaultModels.
func NewModels(ids []string) *Models {
	if len(ids) == 0 {
		ids = DefaultModels
	}
	return &Models{ids: ids}
}

// List returns the allowed identifiers in configuration order.
func (m *Models) List() []string {
	out := make([]string, len(m.ids))
	copy(out, m.ids)
	return out
}

// Validate returns ErrUnknownModel unless id is in the allow-list.
func (m *Models) Validate(id string) error {
	for _, known := range m.ids {
		if known == id {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownModel, id)
}
