package valueobject

import (
	"fmt"

	"github.com/let-userName-Brian/exempla-ai/internal/domain/errors/domain"
)

// RecordKind identifies which inventory collection a record belongs to.
type RecordKind string

// Record kind constants.
const (
	RecordKindVM   RecordKind = "vm"
	RecordKindHost RecordKind = "host"
)

// NewRecordKind creates a RecordKind with validation.
func NewRecordKind(kind string) (RecordKind, error) {
	switch RecordKind(kind) {
	case RecordKindVM, RecordKindHost:
		return RecordKind(kind), nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidRecordKind, kind)
	}
}

// String returns the string representation of the kind.
func (k RecordKind) String() string {
	return string(k)
}

// Label returns the human-readable name used in log and status messages.
func (k RecordKind) Label() string {
	if k == RecordKindHost {
		return "Host"
	}
	return "VM"
}
