package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/let-userName-Brian/exempla-ai/internal/application/common"
	"github.com/let-userName-Brian/exempla-ai/internal/domain/entity"
	"github.com/let-userName-Brian/exempla-ai/internal/domain/valueobject"
)

func TestParseInventory(t *testing.T) {
	t.Run("should import a JSON list as the given kind", func(t *testing.T) {
		data := []byte(`[{"VM": "web-01", "CPUs": 4}, {"VM": "db-01", "CPUs": 8}]`)

		batches, err := parseInventory(data, "vm")
		require.NoError(t, err)
		require.Len(t, batches[valueobject.RecordKindVM], 2)
		assert.Equal(t, "web-01", batches[valueobject.RecordKindVM][0]["VM"])
		assert.Empty(t, batches[valueobject.RecordKindHost])
	})

	t.Run("should require a kind for list files", func(t *testing.T) {
		_, err := parseInventory([]byte(`[{"Host": "esx-01"}]`), "")
		require.Error(t, err)
	})

	t.Run("should split a keyed YAML document", func(t *testing.T) {
		data := []byte(`
vms:
  - VM: web-01
    Powerstate: poweredOn
hosts:
  - Host: esx-01
  - Host: esx-02
`)
		batches, err := parseInventory(data, "")
		require.NoError(t, err)
		assert.Len(t, batches[valueobject.RecordKindVM], 1)
		assert.Len(t, batches[valueobject.RecordKindHost], 2)
		assert.Equal(t, "esx-02", batches[valueobject.RecordKindHost][1]["Host"])
	})

	t.Run("should reject a document without records", func(t *testing.T) {
		_, err := parseInventory([]byte(`name: nothing`), "")
		require.Error(t, err)
	})

	t.Run("should reject malformed input", func(t *testing.T) {
		_, err := parseInventory([]byte(`{vms: [`), "")
		require.Error(t, err)
	})
}

type fakeImporter struct {
	kinds   []valueobject.RecordKind
	failFor valueobject.RecordKind
}

func (f *fakeImporter) ImportRecords(
	_ context.Context, _ int64, kind valueobject.RecordKind, records []entity.InventoryRecord,
) (int, error) {
	f.kinds = append(f.kinds, kind)
	if kind == f.failFor {
		return 0, errors.New("duplicate key")
	}
	return len(records), nil
}

func TestImportBatches(t *testing.T) {
	batches := map[valueobject.RecordKind][]entity.InventoryRecord{
		valueobject.RecordKindHost: {{"id": "h1"}},
		valueobject.RecordKindVM:   {{"id": "v1"}, {"id": "v2"}},
	}
	transactions := 0
	inTransaction := func(ctx context.Context, fn func(context.Context) error) error {
		transactions++
		return fn(ctx)
	}

	t.Run("should import VMs before hosts in one transaction", func(t *testing.T) {
		transactions = 0
		importer := &fakeImporter{}

		counts, err := importBatches(context.Background(), inTransaction, importer, 4, batches)

		require.NoError(t, err)
		assert.Equal(t, 1, transactions)
		assert.Equal(t, []valueobject.RecordKind{valueobject.RecordKindVM, valueobject.RecordKindHost}, importer.kinds)
		assert.Equal(t, 2, counts[valueobject.RecordKindVM])
		assert.Equal(t, 1, counts[valueobject.RecordKindHost])
	})

	t.Run("should wrap failures with the import operation", func(t *testing.T) {
		importer := &fakeImporter{failFor: valueobject.RecordKindHost}

		_, err := importBatches(context.Background(), inTransaction, importer, 4, batches)

		var serviceErr common.ServiceError
		require.ErrorAs(t, err, &serviceErr)
		assert.Equal(t, common.OpImportInventory, serviceErr.Operation)
		assert.Contains(t, err.Error(), "host records: duplicate key")
	})
}
