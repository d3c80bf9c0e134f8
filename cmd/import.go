package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/let-userName-Brian/exempla-ai/internal/adapter/outbound/repository"
	"github.com/let-userName-Brian/exempla-ai/internal/application/common"
	"github.com/let-userName-Brian/exempla-ai/internal/application/common/slogger"
	"github.com/let-userName-Brian/exempla-ai/internal/domain/entity"
	"github.com/let-userName-Brian/exempla-ai/internal/domain/valueobject"
)

// inventoryDocument is the keyed import layout: {"vms": [...], "hosts": [...]}.
type inventoryDocument struct {
	VMs   []map[string]any `yaml:"vms"`
	Hosts []map[string]any `yaml:"hosts"`
}

func newImportCmd() *cobra.Command {
	var datasetID int64
	var kind string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import inventory rows into a dataset",
		Long: `Import VM and host rows from a YAML or JSON file.

The file is either a list of rows imported as --kind, or a document with
"vms" and "hosts" lists.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if datasetID <= 0 {
				return errors.New("--dataset must be a positive integer")
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			batches, err := parseInventory(data, kind)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runImport(ctx, cmd.OutOrStdout(), datasetID, batches)
		},
	}

	cmd.Flags().Int64Var(&datasetID, "dataset", 0, "Dataset id to import into")
	cmd.Flags().StringVar(&kind, "kind", "", "Record kind for list files (vm, host)")
	return cmd
}

// parseInventory decodes a YAML or JSON inventory file into records per kind.
func parseInventory(data []byte, kind string) (map[valueobject.RecordKind][]entity.InventoryRecord, error) {
	var rows []map[string]any
	if err := yaml.Unmarshal(data, &rows); err == nil {
		recordKind, kindErr := valueobject.NewRecordKind(kind)
		if kindErr != nil {
			return nil, fmt.Errorf("list files need --kind: %w", kindErr)
		}
		return map[valueobject.RecordKind][]entity.InventoryRecord{recordKind: toRecords(rows)}, nil
	}

	var document inventoryDocument
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("parse inventory: %w", err)
	}
	if len(document.VMs) == 0 && len(document.Hosts) == 0 {
		return nil, errors.New("inventory file has no vms or hosts")
	}
	return map[valueobject.RecordKind][]entity.InventoryRecord{
		valueobject.RecordKindVM:   toRecords(document.VMs),
		valueobject.RecordKindHost: toRecords(document.Hosts),
	}, nil
}

func toRecords(rows []map[string]any) []entity.InventoryRecord {
	records := make([]entity.InventoryRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, entity.InventoryRecord(row))
	}
	return records
}

func runImport(
	ctx context.Context,
	out io.Writer,
	datasetID int64,
	batches map[valueobject.RecordKind][]entity.InventoryRecord,
) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	factory := NewServiceFactory(cfg)
	defer factory.Close()

	pool, err := factory.CreateDatabasePool(ctx)
	if err != nil {
		return err
	}
	inventory := repository.NewPostgreSQLInventoryRepository(pool)

	counts, err := importBatches(ctx, repository.NewTransactionManager(pool).WithTransaction, inventory, datasetID, batches)
	if err != nil {
		return err
	}

	for _, kind := range []valueobject.RecordKind{valueobject.RecordKindVM, valueobject.RecordKindHost} {
		stored, ok := counts[kind]
		if !ok {
			continue
		}
		slogger.Info(ctx, "Imported inventory records", slogger.Fields{
			"dataset_id": datasetID,
			"kind":       kind.String(),
			"count":      stored,
		})
		if _, err := fmt.Fprintf(out, "imported %d %s records into dataset %d\n", stored, kind, datasetID); err != nil {
			return err
		}
	}
	return nil
}

// recordImporter is the slice of the inventory store the import needs.
type recordImporter interface {
	ImportRecords(ctx context.Context, datasetID int64, kind valueobject.RecordKind, records []entity.InventoryRecord) (int, error)
}

// importBatches stores VMs then hosts inside one transaction, so a file's
// records land together or not at all.
func importBatches(
	ctx context.Context,
	inTransaction func(ctx context.Context, fn func(txCtx context.Context) error) error,
	inventory recordImporter,
	datasetID int64,
	batches map[valueobject.RecordKind][]entity.InventoryRecord,
) (map[valueobject.RecordKind]int, error) {
	counts := make(map[valueobject.RecordKind]int, len(batches))
	err := inTransaction(ctx, func(txCtx context.Context) error {
		for _, kind := range []valueobject.RecordKind{valueobject.RecordKindVM, valueobject.RecordKindHost} {
			records := batches[kind]
			if len(records) == 0 {
				continue
			}
			stored, importErr := inventory.ImportRecords(txCtx, datasetID, kind, records)
			if importErr != nil {
				return fmt.Errorf("%s records: %w", kind, importErr)
			}
			counts[kind] = stored
		}
		return nil
	})
	if err != nil {
		return nil, common.WrapServiceError(common.OpImportInventory, err)
	}
	return counts, nil
}

func init() { //nolint:gochecknoinits // Standard Cobra CLI pattern for command registration
	rootCmd.AddCommand(newImportCmd())
}
