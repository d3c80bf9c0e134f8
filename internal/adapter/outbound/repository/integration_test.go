//go:build integration

package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/let-userName-Brian/exempla-ai/internal/domain/entity"
	"github.com/let-userName-Brian/exempla-ai/internal/domain/errors/domain"
	"github.com/let-userName-Brian/exempla-ai/internal/domain/valueobject"
	"github.com/let-userName-Brian/exempla-ai/internal/port/outbound"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	// Ryuk does not start in some CI sandboxes.
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "pgvector/pgvector:pg16",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "dev",
				"POSTGRES_PASSWORD": "dev",
				"POSTGRES_DB":       "exempla_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	testPool, err = NewDatabaseConnection(ctx, DatabaseConfig{
		Host:     host,
		Port:     port.Int(),
		Database: "exempla_test",
		Username: "dev",
		Password: "dev",
	})
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}
	if _, err := Migrate(ctx, testPool); err != nil {
		log.Fatalf("Failed to migrate test database: %v", err)
	}

	code := m.Run()

	testPool.Close()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func TestMigrateIsIdempotent(t *testing.T) {
	applied, err := Migrate(context.Background(), testPool)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestInventoryRepository_Integration(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgreSQLInventoryRepository(testPool)
	datasetID := time.Now().UnixNano() % 1_000_000_000

	records := []entity.InventoryRecord{
		{"vm": "web-01", "cpus": 4, "memory": 8192},
		{"vm": "db-01", "cpus": 8, "memory": 32768},
	}
	stored, err := repo.ImportRecords(ctx, datasetID, valueobject.RecordKindVM, records)
	require.NoError(t, err)
	assert.Equal(t, 2, stored)

	vms, err := repo.FindByDataset(ctx, datasetID, valueobject.RecordKindVM)
	require.NoError(t, err)
	require.Len(t, vms, 2)
	assert.Equal(t, "web-01", vms[0]["vm"])
	assert.Equal(t, datasetID, vms[0]["dataset_id"])
	assert.NotNil(t, vms[0]["id"])

	hosts, err := repo.FindByDataset(ctx, datasetID, valueobject.RecordKindHost)
	require.NoError(t, err)
	assert.Empty(t, hosts)
}

func TestTransactionManager_Integration(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgreSQLInventoryRepository(testPool)
	tm := NewTransactionManager(testPool)
	datasetID := time.Now().UnixNano()%1_000_000_000 + 1

	t.Run("should roll back imports when an enclosing transaction fails", func(t *testing.T) {
		errAbort := errors.New("abort")
		err := tm.WithTransaction(ctx, func(txCtx context.Context) error {
			_, importErr := repo.ImportRecords(txCtx, datasetID, valueobject.RecordKindHost,
				[]entity.InventoryRecord{{"host": "esx-01"}})
			require.NoError(t, importErr)
			return errAbort
		})
		require.ErrorIs(t, err, errAbort)

		hosts, err := repo.FindByDataset(ctx, datasetID, valueobject.RecordKindHost)
		require.NoError(t, err)
		assert.Empty(t, hosts)
	})
}

func TestEmbeddingStatusRepository_Integration(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgreSQLEmbeddingStatusRepository(testPool)
	datasetID := time.Now().UnixNano()%1_000_000_000 + 1

	_, err := repo.FindByDatasetID(ctx, datasetID)
	assert.ErrorIs(t, err, domain.ErrEmbeddingStatusNotFound)

	record := entity.NewEmbeddingStatusRecord(datasetID)
	require.NoError(t, repo.Save(ctx, record))

	require.NoError(t, record.Start())
	require.NoError(t, record.SetTotals(3, 1))
	require.NoError(t, record.Complete(3, 1))
	require.NoError(t, repo.Save(ctx, record))

	found, err := repo.FindByDatasetID(ctx, datasetID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.EmbeddingStatusCompleted, found.Status())
	assert.Equal(t, 100, found.Progress())
	assert.Equal(t, 4, found.TotalItems())
	assert.NotNil(t, found.CompletedAt())
	assert.Nil(t, found.ErrorMessage())
}

func TestVectorIndex_Integration(t *testing.T) {
	ctx := context.Background()
	index := NewPostgreSQLVectorIndex(testPool, fmt.Sprintf("test_%d", time.Now().UnixNano()))

	points := []entity.Point{
		{ID: "a", Vector: []float32{1, 0, 0}, Payload: map[string]any{"dataset_id": 7, "content": "alpha"}},
		{ID: "b", Vector: []float32{0, 1, 0}, Payload: map[string]any{"dataset_id": 7, "content": "beta"}},
		{ID: "c", Vector: []float32{1, 0, 0}, Payload: map[string]any{"dataset_id": 8, "content": "gamma"}},
	}
	require.NoError(t, index.Upsert(ctx, points))

	t.Run("should rank by cosine similarity within the filter", func(t *testing.T) {
		results, err := index.Search(ctx, []float32{1, 0, 0}, outbound.SearchFilter{Key: "dataset_id", Value: 7}, 5)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "a", results[0].ID)
		assert.InDelta(t, 1.0, results[0].Score, 1e-6)
		assert.Equal(t, "alpha", results[0].Content())
	})

	t.Run("should overwrite points on upsert", func(t *testing.T) {
		require.NoError(t, index.Upsert(ctx, []entity.Point{
			{ID: "a", Vector: []float32{0, 0, 1}, Payload: map[string]any{"dataset_id": 7, "content": "alpha2"}},
		}))
		results, err := index.Search(ctx, []float32{0, 0, 1}, outbound.SearchFilter{Key: "dataset_id", Value: 7}, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "alpha2", results[0].Content())
	})
}
