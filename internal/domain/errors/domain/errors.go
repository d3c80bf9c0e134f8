// Package domain provides domain-specific error definitions and utilities.
package domain

import "errors"

// Embedding run errors.
var (
	ErrInterrupted             = errors.New("embedding process interrupted by server shutdown")
	ErrEmbeddingStatusNotFound = errors.New("no embedding process found for this dataset")
	ErrRecordPreparation       = errors.New("inventory record could not be prepared")
)

// Dataset-related errors.
var (
	ErrInvalidDatasetID  = errors.New("dataset id must be a positive integer")
	ErrInvalidRecordKind = errors.New("record kind must be vm or host")
)

// General domain errors.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnavailable  = errors.New("dependency unavailable")
)

// IsInterrupted reports whether err carries a cooperative shutdown interruption.
func IsInterrupted(err error) bool {
	return errors.Is(err, ErrInterrupted)
}
