package api

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/let-userName-Brian/exempla-ai/internal/application/dto"
)

type MockEmbeddingService struct {
	mock.Mock
}

func (m *MockEmbeddingService) Submit(ctx context.Context, datasetID int64) (*dto.EmbedResponse, error) {
	args := m.Called(ctx, datasetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.EmbedResponse), args.Error(1)
}

func (m *MockEmbeddingService) GetStatus(ctx context.Context, datasetID int64) (*dto.EmbeddingStatusResponse, error) {
	args := m.Called(ctx, datasetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.EmbeddingStatusResponse), args.Error(1)
}

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) Chat(ctx context.Context, request dto.ChatRequest) (*dto.ChatResponse, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ChatResponse), args.Error(1)
}

type MockHealthService struct {
	mock.Mock
}

func (m *MockHealthService) GetHealth(ctx context.Context) (*dto.HealthResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.HealthResponse), args.Error(1)
}
