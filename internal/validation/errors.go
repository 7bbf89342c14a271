// Package validation provides the submit-time checks applied to a resume draft.
package validation

import (
	"fmt"
	"strings"
)

// Inline messages shown next to invalid fields.
const (
	MessageNameRequired = "This field is required"
	MessageEmailInvalid = "Enter a valid email"
)

// FieldError describes one invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is returned by callers that need the inline flags as an error value,
// such as the validate command.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Field, f.Message)
	}
	return fmt.Sprintf("validation error: %s", strings.Join(parts, "; "))
}
