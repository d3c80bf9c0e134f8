package entity

import (
	"fmt"
	"time"

	"github.com/let-userName-Brian/exempla-ai/internal/domain/valueobject"
)

// Status messages written at each stage of a run.
const (
	MessageQueued   = "Embedding task queued"
	MessageStarting = "Starting embedding process"
)

// EmbeddingStatusRecord tracks the progress of one dataset's embedding run.
// It is keyed by dataset id and overwritten on every submission.
type EmbeddingStatusRecord struct {
	datasetID      int64
	status         valueobject.EmbeddingStatus
	progress       int
	totalItems     int
	processedItems int
	skippedItems   int
	vmCount        int
	hostCount      int
	message        string
	errorMessage   *string
	createdAt      time.Time
	startedAt      *time.Time
	completedAt    *time.Time
	failedAt       *time.Time
	interruptedAt  *time.Time
	updatedAt      time.Time
}

// EmbeddingStatusSnapshot is a flat, exported copy of a record used by
// storage, messaging and API layers.
type EmbeddingStatusSnapshot struct {
	DatasetID      int64                       `json:"dataset_id"`
	Status         valueobject.EmbeddingStatus `json:"status"`
	Progress       int                         `json:"progress"`
	TotalItems     int                         `json:"total_items"`
	ProcessedItems int                         `json:"processed_items"`
	SkippedItems   int                         `json:"skipped_items"`
	VMCount        int                         `json:"vm_count"`
	HostCount      int                         `json:"host_count"`
	Message        string                      `json:"message"`
	Error          *string                     `json:"error"`
	CreatedAt      time.Time                   `json:"created_at"`
	StartedAt      *time.Time                  `json:"started_at,omitempty"`
	CompletedAt    *time.Time                  `json:"completed_at,omitempty"`
	FailedAt       *time.Time                  `json:"failed_at,omitempty"`
	InterruptedAt  *time.Time                  `json:"interrupted_at,omitempty"`
	UpdatedAt      time.Time                   `json:"updated_at"`
}

// NewEmbeddingStatusRecord creates a pending record for a fresh submission.
func NewEmbeddingStatusRecord(datasetID int64) *EmbeddingStatusRecord {
	now := time.Now().UTC()
	return &EmbeddingStatusRecord{
		datasetID: datasetID,
		status:    valueobject.EmbeddingStatusPending,
		message:   MessageQueued,
		createdAt: now,
		updatedAt: now,
	}
}

// RestoreEmbeddingStatusRecord rebuilds a record from stored data.
func RestoreEmbeddingStatusRecord(s EmbeddingStatusSnapshot) *EmbeddingStatusRecord {
	return &EmbeddingStatusRecord{
		datasetID:      s.DatasetID,
		status:         s.Status,
		progress:       s.Progress,
		totalItems:     s.TotalItems,
		processedItems: s.ProcessedItems,
		skippedItems:   s.SkippedItems,
		vmCount:        s.VMCount,
		hostCount:      s.HostCount,
		message:        s.Message,
		errorMessage:   s.Error,
		createdAt:      s.CreatedAt,
		startedAt:      s.StartedAt,
		completedAt:    s.CompletedAt,
		failedAt:       s.FailedAt,
		interruptedAt:  s.InterruptedAt,
		updatedAt:      s.UpdatedAt,
	}
}

// DatasetID returns the dataset the record belongs to.
func (r *EmbeddingStatusRecord) DatasetID() int64 { return r.datasetID }

// Status returns the current status.
func (r *EmbeddingStatusRecord) Status() valueobject.EmbeddingStatus { return r.status }

// Progress returns the completion percentage.
func (r *EmbeddingStatusRecord) Progress() int { return r.progress }

// TotalItems returns the number of records in the dataset.
func (r *EmbeddingStatusRecord) TotalItems() int { return r.totalItems }

// ProcessedItems returns the number of records embedded so far.
func (r *EmbeddingStatusRecord) ProcessedItems() int { return r.processedItems }

// SkippedItems returns the number of records skipped so far.
func (r *EmbeddingStatusRecord) SkippedItems() int { return r.skippedItems }

// VMCount returns the number of VM records in the dataset.
func (r *EmbeddingStatusRecord) VMCount() int { return r.vmCount }

// HostCount returns the number of host records in the dataset.
func (r *EmbeddingStatusRecord) HostCount() int { return r.hostCount }

// Message returns the human-readable status message.
func (r *EmbeddingStatusRecord) Message() string { return r.message }

// ErrorMessage returns the error that ended the run, if any.
func (r *EmbeddingStatusRecord) ErrorMessage() *string { return r.errorMessage }

// CreatedAt returns the submission timestamp.
func (r *EmbeddingStatusRecord) CreatedAt() time.Time { return r.createdAt }

// StartedAt returns the run start timestamp.
func (r *EmbeddingStatusRecord) StartedAt() *time.Time { return r.startedAt }

// CompletedAt returns the completion timestamp.
func (r *EmbeddingStatusRecord) CompletedAt() *time.Time { return r.completedAt }

// FailedAt returns the failure timestamp.
func (r *EmbeddingStatusRecord) FailedAt() *time.Time { return r.failedAt }

// InterruptedAt returns the interruption timestamp.
func (r *EmbeddingStatusRecord) InterruptedAt() *time.Time { return r.interruptedAt }

// UpdatedAt returns the last mutation timestamp.
func (r *EmbeddingStatusRecord) UpdatedAt() time.Time { return r.updatedAt }

// Snapshot returns a copy of the record's state.
func (r *EmbeddingStatusRecord) Snapshot() EmbeddingStatusSnapshot {
	return EmbeddingStatusSnapshot{
		DatasetID:      r.datasetID,
		Status:         r.status,
		Progress:       r.progress,
		TotalItems:     r.totalItems,
		ProcessedItems: r.processedItems,
		SkippedItems:   r.skippedItems,
		VMCount:        r.vmCount,
		HostCount:      r.hostCount,
		Message:        r.message,
		Error:          r.errorMessage,
		CreatedAt:      r.createdAt,
		StartedAt:      r.startedAt,
		CompletedAt:    r.completedAt,
		FailedAt:       r.failedAt,
		InterruptedAt:  r.interruptedAt,
		UpdatedAt:      r.updatedAt,
	}
}

// Start moves a pending record to processing.
func (r *EmbeddingStatusRecord) Start() error {
	if r.status != valueobject.EmbeddingStatusPending {
		return transitionError("start", r.status)
	}

	now := time.Now().UTC()
	r.status = valueobject.EmbeddingStatusProcessing
	r.startedAt = &now
	r.progress = 0
	r.processedItems = 0
	r.skippedItems = 0
	r.errorMessage = nil
	r.failedAt = nil
	r.message = MessageStarting
	r.updatedAt = now
	return nil
}

// SetTotals records the number of VM and host records the run will process.
func (r *EmbeddingStatusRecord) SetTotals(vmCount, hostCount int) error {
	if r.status != valueobject.EmbeddingStatusProcessing {
		return transitionError("set totals for", r.status)
	}
	if vmCount < 0 || hostCount < 0 {
		return NewDomainError("record counts cannot be negative", CodeInvalidCounts)
	}

	r.vmCount = vmCount
	r.hostCount = hostCount
	r.totalItems = vmCount + hostCount
	r.message = fmt.Sprintf("Processing %d VMs and %d hosts", vmCount, hostCount)
	r.updatedAt = time.Now().UTC()
	return nil
}

// RecordProgress stores a progress milestone. Progress never moves backwards.
func (r *EmbeddingStatusRecord) RecordProgress(processed, skipped int) error {
	if r.status != valueobject.EmbeddingStatusProcessing {
		return transitionError("record progress for", r.status)
	}
	if err := r.validateCounts(processed, skipped); err != nil {
		return err
	}

	progress := ProgressPercent(processed, r.totalItems)
	if progress < r.progress || processed < r.processedItems {
		return NewDomainError("progress cannot decrease", CodeProgressRegression)
	}

	r.progress = progress
	r.processedItems = processed
	r.skippedItems = skipped
	r.message = fmt.Sprintf("Processed %d/%d items (%d%%)", processed, r.totalItems, progress)
	r.updatedAt = time.Now().UTC()
	return nil
}

// Complete marks the run as successfully finished.
func (r *EmbeddingStatusRecord) Complete(processed, skipped int) error {
	if !r.status.CanTransitionTo(valueobject.EmbeddingStatusCompleted) {
		return transitionError("complete", r.status)
	}
	if err := r.validateCounts(processed, skipped); err != nil {
		return err
	}

	now := time.Now().UTC()
	r.status = valueobject.EmbeddingStatusCompleted
	r.progress = 100
	r.processedItems = processed
	r.skippedItems = skipped
	r.completedAt = &now
	r.errorMessage = nil
	r.message = fmt.Sprintf("Successfully embedded %d/%d items (%d skipped)", processed, r.totalItems, skipped)
	r.updatedAt = now
	return nil
}

// Interrupt marks the run as stopped by a cooperative shutdown.
func (r *EmbeddingStatusRecord) Interrupt(reason string) error {
	if !r.status.CanTransitionTo(valueobject.EmbeddingStatusInterrupted) {
		return transitionError("interrupt", r.status)
	}

	now := time.Now().UTC()
	r.status = valueobject.EmbeddingStatusInterrupted
	r.interruptedAt = &now
	r.errorMessage = &reason
	r.message = "Embedding interrupted: " + reason
	r.updatedAt = now
	return nil
}

// Fail marks the run as failed with an error message.
func (r *EmbeddingStatusRecord) Fail(reason string) error {
	if !r.status.CanTransitionTo(valueobject.EmbeddingStatusFailed) {
		return transitionError("fail", r.status)
	}

	now := time.Now().UTC()
	r.status = valueobject.EmbeddingStatusFailed
	r.failedAt = &now
	r.errorMessage = &reason
	r.message = "Embedding failed: " + reason
	r.updatedAt = now
	return nil
}

func (r *EmbeddingStatusRecord) validateCounts(processed, skipped int) error {
	if processed < 0 || skipped < 0 {
		return NewDomainError("item counts cannot be negative", CodeInvalidCounts)
	}
	if processed+skipped > r.totalItems {
		return NewDomainError(
			fmt.Sprintf("processed (%d) plus skipped (%d) exceeds total items (%d)", processed, skipped, r.totalItems),
			CodeInvalidCounts,
		)
	}
	return nil
}

// ProgressPercent returns floor(processed/total*100), or 100 for an empty dataset.
func ProgressPercent(processed, total int) int {
	if total <= 0 {
		return 100
	}
	return processed * 100 / total
}
