package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rejectPayload struct {
	Reason string  `json:"reason" validate:"required"`
	Notes  *string `json:"notes,omitempty"`
}

func TestValidateStruct(t *testing.T) {
	t.Run("valid payload passes", func(t *testing.T) {
		assert.NoError(t, ValidateStruct(rejectPayload{Reason: "duplicate decision"}))
	})

	t.Run("missing required field fails with field detail", func(t *testing.T) {
		err := ValidateStruct(rejectPayload{})
		require.Error(t, err)
		require.True(t, IsValidationError(err))

		fields := GetValidationFields(err)
		assert.Contains(t, fields, "Reason")
		assert.Contains(t, fields["Reason"], "required")
	})
}

func TestIsValidationError(t *testing.T) {
	assert.False(t, IsValidationError(errors.New("other")))
	assert.False(t, IsValidationError(nil))
	assert.Nil(t, GetValidationFields(errors.New("other")))
}
