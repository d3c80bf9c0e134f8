package outbound

import (
	"context"

	"github.com/let-userName-Brian/exempla-ai/internal/domain/entity"
)

// VectorIndex stores points and serves similarity search over them.
type VectorIndex interface {
	// Upsert inserts or overwrites points by id within the index's collection.
	Upsert(ctx context.Context, points []entity.Point) error

	// Search returns up to limit points ranked by similarity to vector,
	// restricted to payloads whose filter key equals filter value.
	Search(ctx context.Context, vector []float32, filter SearchFilter, limit int) ([]SearchResult, error)
}

// SearchFilter is an equality filter on one payload key.
type SearchFilter struct {
	Key   string
	Value any
}

// SearchResult is one ranked hit from the vector index.
type SearchResult struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// Content returns the summary text stored with the point.
func (r SearchResult) Content() string {
	content, _ := r.Payload[entity.PayloadContentKey].(string)
	return content
}

// Metadata returns the payload without the summary text.
func (r SearchResult) Metadata() map[string]any {
	return entity.MetadataFromPayload(r.Payload)
}
