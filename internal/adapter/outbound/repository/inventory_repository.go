package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/let-userName-Brian/exempla-ai/internal/domain/entity"
	"github.com/let-userName-Brian/exempla-ai/internal/domain/valueobject"
)

// PostgreSQLInventoryRepository implements outbound.InventoryRepository.
//
// Each row keeps the flat inventory record as JSONB so that both VM and host
// exports can be loaded without a column per RVTools field.
type PostgreSQLInventoryRepository struct {
	pool *pgxpool.Pool
	tm   *TransactionManager
}

// NewPostgreSQLInventoryRepository creates a new inventory repository.
func NewPostgreSQLInventoryRepository(pool *pgxpool.Pool) *PostgreSQLInventoryRepository {
	return &PostgreSQLInventoryRepository{
		pool: pool,
		tm:   NewTransactionManager(pool),
	}
}

func inventoryTable(kind valueobject.RecordKind) (string, error) {
	switch kind {
	case valueobject.RecordKindVM:
		return Schema + ".rvtools_vms", nil
	case valueobject.RecordKindHost:
		return Schema + ".rvtools_hosts", nil
	default:
		return "", fmt.Errorf("%w: unknown record kind %q", ErrInvalidArgument, kind)
	}
}

// FindByDataset returns every record of kind for the dataset in insertion order.
func (r *PostgreSQLInventoryRepository) FindByDataset(
	ctx context.Context,
	datasetID int64,
	kind valueobject.RecordKind,
) ([]entity.InventoryRecord, error) {
	table, err := inventoryTable(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id, data, created_at FROM %s WHERE dataset_id = $1 ORDER BY id`, table)

	qi := GetQueryInterface(ctx, r.pool)
	rows, err := qi.Query(ctx, query, datasetID)
	if err != nil {
		return nil, WrapError(err, "find "+kind.String()+" records")
	}
	defer rows.Close()

	records := make([]entity.InventoryRecord, 0)
	for rows.Next() {
		var (
			id        int64
			data      map[string]any
			createdAt any
		)
		if err := rows.Scan(&id, &data, &createdAt); err != nil {
			return nil, WrapError(err, "scan "+kind.String()+" record")
		}
		record := entity.InventoryRecord(data)
		if record == nil {
			record = entity.InventoryRecord{}
		}
		record["id"] = id
		record["dataset_id"] = datasetID
		if _, ok := record["created_at"]; !ok {
			record["created_at"] = createdAt
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(err, "iterate "+kind.String()+" records")
	}

	return records, nil
}

// ImportRecords appends records to the dataset inside one transaction.
func (r *PostgreSQLInventoryRepository) ImportRecords(
	ctx context.Context,
	datasetID int64,
	kind valueobject.RecordKind,
	records []entity.InventoryRecord,
) (int, error) {
	table, err := inventoryTable(kind)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(`INSERT INTO %s (dataset_id, data) VALUES ($1, $2)`, table)

	err = r.tm.WithTransaction(ctx, func(txCtx context.Context) error {
		batch := &pgx.Batch{}
		for _, record := range records {
			data, marshalErr := json.Marshal(withoutStoredKeys(record))
			if marshalErr != nil {
				return fmt.Errorf("%w: record is not JSON encodable: %w", ErrInvalidArgument, marshalErr)
			}
			batch.Queue(query, datasetID, data)
		}

		results := GetQueryInterface(txCtx, r.pool).SendBatch(txCtx, batch)
		for range records {
			if _, execErr := results.Exec(); execErr != nil {
				_ = results.Close()
				return WrapError(execErr, "import "+kind.String()+" records")
			}
		}
		return results.Close()
	})
	if err != nil {
		return 0, err
	}

	return len(records), nil
}

// withoutStoredKeys drops keys the table owns as columns.
func withoutStoredKeys(record entity.InventoryRecord) map[string]any {
	data := make(map[string]any, len(record))
	for key, value := range record {
		if key == "id" || key == "dataset_id" {
			continue
		}
		data[key] = value
	}
	return data
}
