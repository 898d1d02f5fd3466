package entity

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		message  string
		expected string
	}{
		{
			name:     "field and message",
			field:    "status",
			message:  "unknown draft status",
			expected: "validation error on field 'status': unknown draft status",
		},
		{
			name:     "empty field name",
			field:    "",
			message:  "test message",
			expected: "validation error on field '': test message",
		},
		{
			name:     "empty message",
			field:    "address",
			message:  "",
			expected: "validation error on field 'address': ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &ValidationError{Field: tt.field, Message: tt.message}
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestValidationError_InErrorChain(t *testing.T) {
	wrapped := fmt.Errorf("add source: %w", &ValidationError{Field: "url", Message: "URL is required"})

	var validationErr *ValidationError
	assert.True(t, errors.As(wrapped, &validationErr))
	assert.Equal(t, "url", validationErr.Field)
}

func TestSentinelErrors_Distinct(t *testing.T) {
	assert.NotErrorIs(t, ErrNotFound, ErrInvalidInput)
	assert.NotErrorIs(t, ErrNotFound, ErrInvalidTransition)
	assert.NotErrorIs(t, ErrInvalidInput, ErrInvalidTransition)
	assert.ErrorIs(t, fmt.Errorf("get draft: %w", ErrNotFound), ErrNotFound)
}
