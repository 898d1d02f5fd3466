package entity

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("entity not found")
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidTransition rejects a draft status change outside the lifecycle.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError names the offending field so handlers can echo it back.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}
