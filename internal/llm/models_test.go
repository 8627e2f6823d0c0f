// ABOUTME: Tests for the model allow-list
// ABOUTME: Verifies validation, defaults and list isolation

package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModels_ValidateKnown(t *testing.T) {
	models := NewModels(nil)

	for _, id := range DefaultModels {
		assert.NoError(t, models.Validate(id))
	}
}

func TestModels_ValidateUnknown(t *testing.T) {
	models := NewModels(nil)

	err := models.Validate("gpt-4")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestModels_ConfiguredListReplacesDefaults(t *testing.T) {
	models := NewModels([]string{"custom-model"})

	assert.NoError(t, models.Validate("custom-model"))
	assert.ErrorIs(t, models.Validate(DefaultModel), ErrUnknownModel)
}

func TestModels_ListReturnsCopy(t *testing.T) {
	models := NewModels([]string{"a", "b"})

	list := models.List()
	list[0] = "mutated"

	assert.Equal(t, []string{"a", "b"}, models.List())
}
