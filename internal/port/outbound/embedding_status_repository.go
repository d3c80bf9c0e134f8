package outbound

import (
	"context"

	"github.com/let-userName-Brian/exempla-ai/internal/domain/entity"
)

// EmbeddingStatusRepository persists one status record per dataset.
type EmbeddingStatusRepository interface {
	// Save atomically upserts the record keyed by its dataset id.
	Save(ctx context.Context, record *entity.EmbeddingStatusRecord) error

	// FindByDatasetID returns domain.ErrEmbeddingStatusNotFound when no record exists.
	FindByDatasetID(ctx context.Context, datasetID int64) (*entity.EmbeddingStatusRecord, error)
}

// StatusPublisher broadcasts status changes to interested consumers.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, snapshot entity.EmbeddingStatusSnapshot) error
}
