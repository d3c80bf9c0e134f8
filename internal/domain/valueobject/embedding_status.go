package valueobject

import "fmt"

// EmbeddingStatus represents the state of a dataset embedding run.
type EmbeddingStatus string

// Embedding status constants.
const (
	EmbeddingStatusPending     EmbeddingStatus = "pending"
	EmbeddingStatusProcessing  EmbeddingStatus = "processing"
	EmbeddingStatusCompleted   EmbeddingStatus = "completed"
	EmbeddingStatusFailed      EmbeddingStatus = "failed"
	EmbeddingStatusInterrupted EmbeddingStatus = "interrupted"

	// EmbeddingStatusNotFound is never persisted. It is reported when a
	// dataset has no status record.
	EmbeddingStatusNotFound EmbeddingStatus = "not_found"
)

// validEmbeddingStatuses contains all statuses that can be persisted.
var validEmbeddingStatuses = map[EmbeddingStatus]bool{
	EmbeddingStatusPending:     true,
	EmbeddingStatusProcessing:  true,
	EmbeddingStatusCompleted:   true,
	EmbeddingStatusFailed:      true,
	EmbeddingStatusInterrupted: true,
}

// NewEmbeddingStatus creates a new EmbeddingStatus with validation.
func NewEmbeddingStatus(status string) (EmbeddingStatus, error) {
	s := EmbeddingStatus(status)
	if !validEmbeddingStatuses[s] {
		return "", fmt.Errorf("invalid embedding status: %s", status)
	}
	return s, nil
}

// String returns the string representation of the status.
func (s EmbeddingStatus) String() string {
	return string(s)
}

// IsTerminal returns true if this status represents a final state.
func (s EmbeddingStatus) IsTerminal() bool {
	return s == EmbeddingStatusCompleted || s == EmbeddingStatusFailed || s == EmbeddingStatusInterrupted
}

// CanTransitionTo returns true if the status can transition to the target status.
func (s EmbeddingStatus) CanTransitionTo(target EmbeddingStatus) bool {
	transitions := map[EmbeddingStatus][]EmbeddingStatus{
		EmbeddingStatusNotFound: {
			EmbeddingStatusPending,
		},
		EmbeddingStatusPending: {
			EmbeddingStatusProcessing,
			EmbeddingStatusFailed,
		},
		EmbeddingStatusProcessing: {
			EmbeddingStatusProcessing,
			EmbeddingStatusCompleted,
			EmbeddingStatusFailed,
			EmbeddingStatusInterrupted,
		},
		// Terminal states cannot transition within a run
		EmbeddingStatusCompleted:   {},
		EmbeddingStatusFailed:      {},
		EmbeddingStatusInterrupted: {},
	}

	validTransitions, exists := transitions[s]
	if !exists {
		return false
	}

	for _, validTarget := range validTransitions {
		if target == validTarget {
			return true
		}
	}
	return false
}
