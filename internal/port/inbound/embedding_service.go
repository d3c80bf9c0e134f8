// Package inbound defines the inbound ports (interfaces) for the application layer.
// These ports represent the entry points into the application's core business logic.
package inbound

import (
	"context"

	"github.com/let-userName-Brian/exempla-ai/internal/application/dto"
)

// EmbeddingService defines the inbound port for dataset embedding runs.
type EmbeddingService interface {
	// Submit resets the dataset's status to pending and starts a background run.
	Submit(ctx context.Context, datasetID int64) (*dto.EmbedResponse, error)
	// GetStatus returns the stored status, or the not_found sentinel.
	GetStatus(ctx context.Context, datasetID int64) (*dto.EmbeddingStatusResponse, error)
}

// ChatService defines the inbound port for dataset question answering.
type ChatService interface {
	Chat(ctx context.Context, request dto.ChatRequest) (*dto.ChatResponse, error)
}

// HealthService defines the inbound port for health check operations.
type HealthService interface {
	GetHealth(ctx context.Context) (*dto.HealthResponse, error)
}
