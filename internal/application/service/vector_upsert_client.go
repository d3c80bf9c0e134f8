package service

import (
	"context"
	"fmt"

	"github.com/let-userName-Brian/exempla-ai/internal/application/common/slogger"
	"github.com/let-userName-Brian/exempla-ai/internal/domain/entity"
	"github.com/let-userName-Brian/exempla-ai/internal/domain/errors/domain"
	"github.com/let-userName-Brian/exempla-ai/internal/port/outbound"
)

// ShutdownSignal exposes the cooperative shutdown flag to workers.
type ShutdownSignal interface {
	ShouldShutdown() bool
}

// VectorUpsertClient writes points to the vector index in fixed-size chunks,
// checking for shutdown before each chunk.
type VectorUpsertClient struct {
	index     outbound.VectorIndex
	shutdown  ShutdownSignal
	chunkSize int
	metrics   *PipelineMetrics
}

// NewVectorUpsertClient creates an upsert client. chunkSize <= 0 means 100.
func NewVectorUpsertClient(index outbound.VectorIndex, shutdown ShutdownSignal, chunkSize int) *VectorUpsertClient {
	if index == nil {
		panic("index cannot be nil")
	}
	if shutdown == nil {
		panic("shutdown cannot be nil")
	}
	if chunkSize <= 0 {
		chunkSize = 100
	}
	return &VectorUpsertClient{index: index, shutdown: shutdown, chunkSize: chunkSize}
}

// WithMetrics records chunk outcomes on metrics.
func (c *VectorUpsertClient) WithMetrics(metrics *PipelineMetrics) *VectorUpsertClient {
	c.metrics = metrics
	return c
}

// BatchUpsert stores ids[i], vectors[i], payloads[i] as one point each.
// Mismatched lengths fail before any write. A failed chunk is logged and
// skipped; a shutdown observed between chunks returns domain.ErrInterrupted.
func (c *VectorUpsertClient) BatchUpsert(
	ctx context.Context,
	ids []string,
	vectors [][]float32,
	payloads []map[string]any,
) error {
	if len(ids) != len(vectors) || len(ids) != len(payloads) {
		return fmt.Errorf("%w: %d ids, %d vectors, %d payloads",
			domain.ErrInvalidInput, len(ids), len(vectors), len(payloads))
	}

	for start := 0; start < len(ids); start += c.chunkSize {
		if c.shutdown.ShouldShutdown() {
			slogger.Warn(ctx, "Shutdown requested, stopping vector upsert", slogger.Fields{
				"written":   start,
				"remaining": len(ids) - start,
			})
			return fmt.Errorf("vector upsert stopped at point %d: %w", start, domain.ErrInterrupted)
		}

		end := min(start+c.chunkSize, len(ids))
		points := make([]entity.Point, 0, end-start)
		for i := start; i < end; i++ {
			points = append(points, entity.Point{ID: ids[i], Vector: vectors[i], Payload: payloads[i]})
		}

		err := c.index.Upsert(ctx, points)
		c.metrics.RecordUpsertChunk(ctx, err)
		if err != nil {
			slogger.ErrorWithError(ctx, err, "Vector upsert chunk failed, skipping", slogger.Fields{
				"chunk_start": start,
				"chunk_size":  len(points),
			})
			continue
		}
		slogger.Debug(ctx, "Upserted vector chunk", slogger.Fields{
			"chunk_start": start,
			"chunk_size":  len(points),
		})
	}
	return nil
}
