package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/let-userName-Brian/exempla-ai/internal/domain/entity"
	"github.com/let-userName-Brian/exempla-ai/internal/port/outbound"
)

// DefaultCollection is the vector collection the pipeline writes to.
const DefaultCollection = "rvtools_embeddings"

var payloadKeyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PostgreSQLVectorIndex implements outbound.VectorIndex on a pgvector table.
// Points are scoped to one named collection.
type PostgreSQLVectorIndex struct {
	pool       *pgxpool.Pool
	collection string
}

// NewPostgreSQLVectorIndex creates a vector index over collection.
func NewPostgreSQLVectorIndex(pool *pgxpool.Pool, collection string) *PostgreSQLVectorIndex {
	if collection == "" {
		collection = DefaultCollection
	}
	return &PostgreSQLVectorIndex{
		pool:       pool,
		collection: collection,
	}
}

// Collection returns the collection name.
func (v *PostgreSQLVectorIndex) Collection() string {
	return v.collection
}

// Upsert writes points in a single batch, overwriting existing ids.
func (v *PostgreSQLVectorIndex) Upsert(ctx context.Context, points []entity.Point) error {
	if len(points) == 0 {
		return nil
	}

	query := `
		INSERT INTO exempla.dataset_vectors (collection, point_id, embedding, payload, updated_at)
		VALUES ($1, $2, $3::vector, $4, NOW())
		ON CONFLICT (collection, point_id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			payload = EXCLUDED.payload,
			updated_at = NOW()`

	batch := &pgx.Batch{}
	for _, point := range points {
		if point.ID == "" || len(point.Vector) == 0 {
			return fmt.Errorf("%w: point requires an id and a vector", ErrInvalidArgument)
		}
		payload, err := json.Marshal(point.Payload)
		if err != nil {
			return fmt.Errorf("%w: payload for point %s: %w", ErrInvalidArgument, point.ID, err)
		}
		batch.Queue(query, v.collection, point.ID, VectorToString(point.Vector), payload)
	}

	results := GetQueryInterface(ctx, v.pool).SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()
	for range points {
		if _, err := results.Exec(); err != nil {
			return WrapError(err, "upsert vectors")
		}
	}
	return nil
}

// Search ranks points by cosine similarity, highest first.
func (v *PostgreSQLVectorIndex) Search(
	ctx context.Context,
	vector []float32,
	filter outbound.SearchFilter,
	limit int,
) ([]outbound.SearchResult, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: query vector is empty", ErrInvalidArgument)
	}
	if limit <= 0 {
		return []outbound.SearchResult{}, nil
	}

	args := []any{VectorToString(vector), v.collection, limit}
	where := "collection = $2"
	if filter.Key != "" {
		if !payloadKeyPattern.MatchString(filter.Key) {
			return nil, fmt.Errorf("%w: invalid filter key %q", ErrInvalidArgument, filter.Key)
		}
		where += fmt.Sprintf(" AND payload->>'%s' = $4", filter.Key)
		args = append(args, fmt.Sprint(filter.Value))
	}

	query := fmt.Sprintf(`
		SELECT point_id, payload, 1 - (embedding <=> $1::vector) AS score
		FROM exempla.dataset_vectors
		WHERE %s
		ORDER BY embedding <=> $1::vector
		LIMIT $3`, where)

	rows, err := GetQueryInterface(ctx, v.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, WrapError(err, "search vectors")
	}
	defer rows.Close()

	results := make([]outbound.SearchResult, 0, limit)
	for rows.Next() {
		var result outbound.SearchResult
		if err := rows.Scan(&result.ID, &result.Payload, &result.Score); err != nil {
			return nil, WrapError(err, "scan vector search result")
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(err, "iterate vector search results")
	}
	return results, nil
}
