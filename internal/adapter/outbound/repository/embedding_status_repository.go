package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/let-userName-Brian/exempla-ai/internal/domain/entity"
	"github.com/let-userName-Brian/exempla-ai/internal/domain/errors/domain"
	"github.com/let-userName-Brian/exempla-ai/internal/domain/valueobject"
)

// PostgreSQLEmbeddingStatusRepository implements outbound.EmbeddingStatusRepository.
type PostgreSQLEmbeddingStatusRepository struct {
	pool *pgxpool.Pool
}

// NewPostgreSQLEmbeddingStatusRepository creates a new status repository.
func NewPostgreSQLEmbeddingStatusRepository(pool *pgxpool.Pool) *PostgreSQLEmbeddingStatusRepository {
	return &PostgreSQLEmbeddingStatusRepository{
		pool: pool,
	}
}

// Save upserts the record keyed by dataset id.
func (r *PostgreSQLEmbeddingStatusRepository) Save(ctx context.Context, record *entity.EmbeddingStatusRecord) error {
	if record == nil {
		return ErrInvalidArgument
	}

	s := record.Snapshot()
	query := `
		INSERT INTO exempla.embedding_status (
			dataset_id, status, progress, total_items, processed_items, skipped_items,
			vm_count, host_count, message, error, created_at, started_at,
			completed_at, failed_at, interrupted_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
		ON CONFLICT (dataset_id) DO UPDATE SET
			status = EXCLUDED.status,
			progress = EXCLUDED.progress,
			total_items = EXCLUDED.total_items,
			processed_items = EXCLUDED.processed_items,
			skipped_items = EXCLUDED.skipped_items,
			vm_count = EXCLUDED.vm_count,
			host_count = EXCLUDED.host_count,
			message = EXCLUDED.message,
			error = EXCLUDED.error,
			created_at = EXCLUDED.created_at,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at,
			failed_at = EXCLUDED.failed_at,
			interrupted_at = EXCLUDED.interrupted_at,
			updated_at = EXCLUDED.updated_at`

	qi := GetQueryInterface(ctx, r.pool)
	_, err := qi.Exec(ctx, query,
		s.DatasetID,
		s.Status.String(),
		s.Progress,
		s.TotalItems,
		s.ProcessedItems,
		s.SkippedItems,
		s.VMCount,
		s.HostCount,
		s.Message,
		s.Error,
		s.CreatedAt,
		s.StartedAt,
		s.CompletedAt,
		s.FailedAt,
		s.InterruptedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return WrapError(err, "save embedding status")
	}
	return nil
}

// FindByDatasetID returns domain.ErrEmbeddingStatusNotFound when the dataset has no record.
func (r *PostgreSQLEmbeddingStatusRepository) FindByDatasetID(
	ctx context.Context,
	datasetID int64,
) (*entity.EmbeddingStatusRecord, error) {
	query := `
		SELECT dataset_id, status, progress, total_items, processed_items, skipped_items,
			vm_count, host_count, message, error, created_at, started_at,
			completed_at, failed_at, interrupted_at, updated_at
		FROM exempla.embedding_status
		WHERE dataset_id = $1`

	var (
		s      entity.EmbeddingStatusSnapshot
		status string
	)
	qi := GetQueryInterface(ctx, r.pool)
	err := qi.QueryRow(ctx, query, datasetID).Scan(
		&s.DatasetID,
		&status,
		&s.Progress,
		&s.TotalItems,
		&s.ProcessedItems,
		&s.SkippedItems,
		&s.VMCount,
		&s.HostCount,
		&s.Message,
		&s.Error,
		&s.CreatedAt,
		&s.StartedAt,
		&s.CompletedAt,
		&s.FailedAt,
		&s.InterruptedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if IsNotFoundError(err) {
			return nil, domain.ErrEmbeddingStatusNotFound
		}
		return nil, WrapError(err, "find embedding status")
	}

	s.Status, err = valueobject.NewEmbeddingStatus(status)
	if err != nil {
		return nil, fmt.Errorf("stored embedding status for dataset %d: %w", datasetID, err)
	}
	return entity.RestoreEmbeddingStatusRecord(s), nil
}
