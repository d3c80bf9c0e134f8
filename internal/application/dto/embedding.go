package dto

import (
	"time"

	"github.com/let-userName-Brian/exempla-ai/internal/domain/entity"
	"github.com/let-userName-Brian/exempla-ai/internal/domain/valueobject"
)

// EmbedRequest asks for a dataset to be embedded.
type EmbedRequest struct {
	DatasetID int64 `json:"dataset_id"`
}

// EmbedResponse acknowledges a background embedding submission.
type EmbedResponse struct {
	Message string                      `json:"message"`
	Status  valueobject.EmbeddingStatus `json:"status"`
	TaskID  string                      `json:"task_id"`
}

// EmbeddingStatusResponse reports the stored status of a dataset's run.
// Only dataset_id, status and message are set for the not_found sentinel.
type EmbeddingStatusResponse struct {
	DatasetID      int64                       `json:"dataset_id"`
	Status         valueobject.EmbeddingStatus `json:"status"`
	Message        string                      `json:"message"`
	Progress       *int                        `json:"progress,omitempty"`
	TotalItems     *int                        `json:"total_items,omitempty"`
	ProcessedItems *int                        `json:"processed_items,omitempty"`
	SkippedItems   *int                        `json:"skipped_items,omitempty"`
	VMCount        *int                        `json:"vm_count,omitempty"`
	HostCount      *int                        `json:"host_count,omitempty"`
	Error          *string                     `json:"error,omitempty"`
	CreatedAt      *time.Time                  `json:"created_at,omitempty"`
	StartedAt      *time.Time                  `json:"started_at,omitempty"`
	CompletedAt    *time.Time                  `json:"completed_at,omitempty"`
	FailedAt       *time.Time                  `json:"failed_at,omitempty"`
	InterruptedAt  *time.Time                  `json:"interrupted_at,omitempty"`
	UpdatedAt      *time.Time                  `json:"updated_at,omitempty"`
}

// NotFoundMessage is reported for datasets that were never submitted.
const NotFoundMessage = "No embedding process found for this dataset"

// NewNotFoundStatusResponse builds the not_found sentinel for a dataset.
func NewNotFoundStatusResponse(datasetID int64) EmbeddingStatusResponse {
	return EmbeddingStatusResponse{
		DatasetID: datasetID,
		Status:    valueobject.EmbeddingStatusNotFound,
		Message:   NotFoundMessage,
	}
}

// NewEmbeddingStatusResponse maps a stored record to its API view.
func NewEmbeddingStatusResponse(record *entity.EmbeddingStatusRecord) EmbeddingStatusResponse {
	s := record.Snapshot()
	createdAt := s.CreatedAt
	updatedAt := s.UpdatedAt
	return EmbeddingStatusResponse{
		DatasetID:      s.DatasetID,
		Status:         s.Status,
		Message:        s.Message,
		Progress:       &s.Progress,
		TotalItems:     &s.TotalItems,
		ProcessedItems: &s.ProcessedItems,
		SkippedItems:   &s.SkippedItems,
		VMCount:        &s.VMCount,
		HostCount:      &s.HostCount,
		Error:          s.Error,
		CreatedAt:      &createdAt,
		StartedAt:      s.StartedAt,
		CompletedAt:    s.CompletedAt,
		FailedAt:       s.FailedAt,
		InterruptedAt:  s.InterruptedAt,
		UpdatedAt:      &updatedAt,
	}
}
