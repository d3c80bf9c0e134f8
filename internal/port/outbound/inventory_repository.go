package outbound

import (
	"context"

	"github.com/let-userName-Brian/exempla-ai/internal/domain/entity"
	"github.com/let-userName-Brian/exempla-ai/internal/domain/valueobject"
)

// InventoryRepository reads and loads the flat inventory rows of a dataset.
type InventoryRepository interface {
	// FindByDataset returns every record of kind for the dataset, possibly empty.
	FindByDataset(ctx context.Context, datasetID int64, kind valueobject.RecordKind) ([]entity.InventoryRecord, error)

	// ImportRecords appends records of kind to the dataset and returns how many were stored.
	ImportRecords(ctx context.Context, datasetID int64, kind valueobject.RecordKind, records []entity.InventoryRecord) (int, error)
}
