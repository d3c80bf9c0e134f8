package entity

import "fmt"

// Codes carried by errors raised from status record mutations.
const (
	CodeInvalidTransition  = "INVALID_STATUS_TRANSITION"
	CodeInvalidCounts      = "INVALID_COUNTS"
	CodeProgressRegression = "PROGRESS_REGRESSION"
)

// DomainError is a rule violation raised by an entity. Two DomainErrors
// match under errors.Is when their codes are equal.
type DomainError struct {
	message string
	code    string
}

// NewDomainError creates a DomainError.
func NewDomainError(message, code string) *DomainError {
	return &DomainError{message: message, code: code}
}

func transitionError(action string, from fmt.Stringer) *DomainError {
	return NewDomainError(fmt.Sprintf("cannot %s embedding in status %s", action, from), CodeInvalidTransition)
}

func (e *DomainError) Error() string { return e.message }

// Code returns the machine-readable code.
func (e *DomainError) Code() string { return e.code }

// Message returns the human-readable message.
func (e *DomainError) Message() string { return e.message }

// Is reports whether target is a DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.code == e.code
}
