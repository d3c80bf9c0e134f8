package api

import (
	"fmt"

	"github.com/let-userName-Brian/exempla-ai/internal/application/dto"
)

// ValidationError reports one invalid request field.
type ValidationError struct {
	Field   string
	Message string
	Value   string
}

func (e ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("invalid %s: %s (got %q)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Details renders the error as the response body's details.
func (e ValidationError) Details() *dto.ValidationErrorDetails {
	return &dto.ValidationErrorDetails{
		Errors: []dto.ValidationError{{Field: e.Field, Message: e.Message, Value: e.Value}},
	}
}

// NewValidationError creates a ValidationError without a value.
func NewValidationError(field, message string) ValidationError {
	return ValidationError{Field: field, Message: message}
}

// NewValidationErrorWithValue creates a ValidationError that echoes the offending value.
func NewValidationErrorWithValue(field, message, value string) ValidationError {
	return ValidationError{Field: field, Message: message, Value: value}
}
