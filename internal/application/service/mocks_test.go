package service

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/stretchr/testify/mock"

	"github.com/let-userName-Brian/exempla-ai/internal/domain/entity"
	"github.com/let-userName-Brian/exempla-ai/internal/domain/errors/domain"
	"github.com/let-userName-Brian/exempla-ai/internal/domain/valueobject"
	"github.com/let-userName-Brian/exempla-ai/internal/port/outbound"
)

// MockEmbeddingProvider is a testify mock for outbound.EmbeddingProvider.
type MockEmbeddingProvider struct {
	mock.Mock
}

func (m *MockEmbeddingProvider) EmbedText(ctx context.Context, text string, taskType outbound.EmbeddingTaskType) ([]float32, error) {
	args := m.Called(ctx, text, taskType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbeddingProvider) ModelName() string {
	return "test-embedding-model"
}

// MockVectorIndex is a testify mock for outbound.VectorIndex.
type MockVectorIndex struct {
	mock.Mock
}

func (m *MockVectorIndex) Upsert(ctx context.Context, points []entity.Point) error {
	args := m.Called(ctx, points)
	return args.Error(0)
}

func (m *MockVectorIndex) Search(
	ctx context.Context,
	vector []float32,
	filter outbound.SearchFilter,
	limit int,
) ([]outbound.SearchResult, error) {
	args := m.Called(ctx, vector, filter, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]outbound.SearchResult), args.Error(1)
}

// MockChatModel is a testify mock for outbound.ChatModel.
type MockChatModel struct {
	mock.Mock
}

func (m *MockChatModel) GenerateText(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// MockQueryEmbedder is a testify mock for QueryEmbedder.
type MockQueryEmbedder struct {
	mock.Mock
}

func (m *MockQueryEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockStatusPublisher is a testify mock for outbound.StatusPublisher.
type MockStatusPublisher struct {
	mock.Mock
}

func (m *MockStatusPublisher) PublishStatus(ctx context.Context, snapshot entity.EmbeddingStatusSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

// memoryStatusRepository keeps every saved snapshot for assertions.
type memoryStatusRepository struct {
	mu      sync.Mutex
	current map[int64]entity.EmbeddingStatusSnapshot
	history []entity.EmbeddingStatusSnapshot
	saveErr error
}

func newMemoryStatusRepository() *memoryStatusRepository {
	return &memoryStatusRepository{current: make(map[int64]entity.EmbeddingStatusSnapshot)}
}

func (r *memoryStatusRepository) Save(_ context.Context, record *entity.EmbeddingStatusRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	snapshot := record.Snapshot()
	r.current[snapshot.DatasetID] = snapshot
	r.history = append(r.history, snapshot)
	return nil
}

func (r *memoryStatusRepository) FindByDatasetID(_ context.Context, datasetID int64) (*entity.EmbeddingStatusRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot, ok := r.current[datasetID]
	if !ok {
		return nil, domain.ErrEmbeddingStatusNotFound
	}
	return entity.RestoreEmbeddingStatusRecord(snapshot), nil
}

// failWith makes every later Save return err, like a closed pool.
func (r *memoryStatusRepository) failWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveErr = err
}

func (r *memoryStatusRepository) last(datasetID int64) entity.EmbeddingStatusSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current[datasetID]
}

func (r *memoryStatusRepository) snapshots() []entity.EmbeddingStatusSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.EmbeddingStatusSnapshot, len(r.history))
	copy(out, r.history)
	return out
}

// memoryInventory serves fixed records per kind.
type memoryInventory struct {
	records map[valueobject.RecordKind][]entity.InventoryRecord
	err     error
}

func (m *memoryInventory) FindByDataset(_ context.Context, _ int64, kind valueobject.RecordKind) ([]entity.InventoryRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.records[kind], nil
}

func (m *memoryInventory) ImportRecords(_ context.Context, _ int64, kind valueobject.RecordKind, records []entity.InventoryRecord) (int, error) {
	m.records[kind] = append(m.records[kind], records...)
	return len(records), nil
}

// stubPreparer prepares records carrying an "id" key and fails the rest.
type stubPreparer struct {
	panicOn string
}

func (p stubPreparer) Prepare(kind valueobject.RecordKind, record entity.InventoryRecord) (entity.PreparedPoint, error) {
	id, ok := record["id"].(string)
	if !ok {
		return entity.PreparedPoint{}, domain.ErrRecordPreparation
	}
	if p.panicOn != "" && id == p.panicOn {
		panic("boom")
	}
	return entity.PreparedPoint{
		ID:       id,
		Summary:  kind.Label() + " " + id,
		Metadata: map[string]any{"type": kind.String(), entity.PayloadContentKey: kind.Label() + " " + id},
	}, nil
}

// countingEmbedder returns constant vectors and counts texts.
type countingEmbedder struct {
	texts atomic.Int64
	onCall func()
}

func (e *countingEmbedder) BatchEmbed(_ context.Context, texts []string) [][]float32 {
	e.texts.Add(int64(len(texts)))
	if e.onCall != nil {
		e.onCall()
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0, 0}
	}
	return vectors
}

// recordingUpserter stores points by id.
type recordingUpserter struct {
	mu     sync.Mutex
	points map[string]struct{}
	err    error
}

func newRecordingUpserter() *recordingUpserter {
	return &recordingUpserter{points: make(map[string]struct{})}
}

func (u *recordingUpserter) BatchUpsert(_ context.Context, ids []string, _ [][]float32, _ []map[string]any) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return u.err
	}
	for _, id := range ids {
		u.points[id] = struct{}{}
	}
	return nil
}

func (u *recordingUpserter) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.points)
}

// flagShutdown is a settable shutdown signal.
type flagShutdown struct {
	set atomic.Bool
}

func (f *flagShutdown) ShouldShutdown() bool {
	return f.set.Load()
}

// recordingRegistry records task registrations.
type recordingRegistry struct {
	mu           sync.Mutex
	registered   []DatasetEmbeddingTask
	unregistered []string
}

func (r *recordingRegistry) Register(task DatasetEmbeddingTask) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registered = append(r.registered, task)
}

func (r *recordingRegistry) Unregister(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unregistered = append(r.unregistered, taskID)
}

func records(prefix string, n int) []entity.InventoryRecord {
	out := make([]entity.InventoryRecord, n)
	for i := range out {
		out[i] = entity.InventoryRecord{"id": prefix + "-" + itoa(i)}
	}
	return out
}

func itoa(i int) string {
	const digits = "0123456789"
	if i < 10 {
		return digits[i : i+1]
	}
	return itoa(i/10) + digits[i%10:i%10+1]
}
