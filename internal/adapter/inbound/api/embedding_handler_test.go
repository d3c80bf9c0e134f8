package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/let-userName-Brian/exempla-ai/internal/application/dto"
	"github.com/let-userName-Brian/exempla-ai/internal/domain/errors/domain"
	"github.com/let-userName-Brian/exempla-ai/internal/domain/valueobject"
)

func newEmbeddingMux(service *MockEmbeddingService) *http.ServeMux {
	handler := NewEmbeddingHandler(service, NewDefaultErrorHandler())
	mux := http.NewServeMux()
	mux.HandleFunc("POST /embed", handler.SubmitEmbedding)
	mux.HandleFunc("GET /embed/{dataset_id}/status", handler.GetEmbeddingStatus)
	return mux
}

func TestEmbeddingHandler_SubmitEmbedding(t *testing.T) {
	t.Run("should accept a dataset and return 202", func(t *testing.T) {
		service := new(MockEmbeddingService)
		service.On("Submit", mock.Anything, int64(42)).Return(&dto.EmbedResponse{
			Message: "Dataset 42 embedding started in the background.",
			Status:  valueobject.EmbeddingStatusPending,
			TaskID:  "embed-42-abc",
		}, nil)

		req := httptest.NewRequest(http.MethodPost, "/embed", strings.NewReader(`{"dataset_id": 42}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		newEmbeddingMux(service).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusAccepted, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "pending", body["status"])
		assert.Equal(t, "Dataset 42 embedding started in the background.", body["message"])
		assert.Equal(t, "embed-42-abc", body["task_id"])
		service.AssertExpectations(t)
	})

	tests := []struct {
		name string
		body string
	}{
		{name: "missing body", body: ""},
		{name: "malformed json", body: `{"dataset_id":`},
		{name: "unknown field", body: `{"dataset_id": 1, "extra": true}`},
		{name: "zero dataset id", body: `{"dataset_id": 0}`},
		{name: "negative dataset id", body: `{"dataset_id": -3}`},
		{name: "string dataset id", body: `{"dataset_id": "abc"}`},
	}
	for _, tt := range tests {
		t.Run("should reject "+tt.name, func(t *testing.T) {
			service := new(MockEmbeddingService)
			req := httptest.NewRequest(http.MethodPost, "/embed", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			newEmbeddingMux(service).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var body dto.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.True(t, body.Is(dto.ErrorCodeInvalidRequest), body.Error)
			service.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
		})
	}

	t.Run("should map service failures to 500", func(t *testing.T) {
		service := new(MockEmbeddingService)
		service.On("Submit", mock.Anything, int64(5)).Return(nil, errors.New("database down"))

		req := httptest.NewRequest(http.MethodPost, "/embed", strings.NewReader(`{"dataset_id": 5}`))
		rec := httptest.NewRecorder()
		newEmbeddingMux(service).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "database down")
	})
}

func TestEmbeddingHandler_GetEmbeddingStatus(t *testing.T) {
	t.Run("should return not_found sentinel with 200", func(t *testing.T) {
		service := new(MockEmbeddingService)
		notFound := dto.NewNotFoundStatusResponse(9)
		service.On("GetStatus", mock.Anything, int64(9)).Return(&notFound, nil)

		rec := httptest.NewRecorder()
		newEmbeddingMux(service).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/embed/9/status", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t,
			`{"dataset_id": 9, "status": "not_found", "message": "No embedding process found for this dataset"}`,
			rec.Body.String())
	})

	t.Run("should return the stored status", func(t *testing.T) {
		service := new(MockEmbeddingService)
		progress := 40
		service.On("GetStatus", mock.Anything, int64(3)).Return(&dto.EmbeddingStatusResponse{
			DatasetID: 3,
			Status:    valueobject.EmbeddingStatusProcessing,
			Message:   "Processed 20/50 items (40%)",
			Progress:  &progress,
		}, nil)

		rec := httptest.NewRecorder()
		newEmbeddingMux(service).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/embed/3/status", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "processing", body["status"])
		assert.InDelta(t, 40, body["progress"], 0)
	})

	t.Run("should reject a non numeric dataset id", func(t *testing.T) {
		service := new(MockEmbeddingService)
		rec := httptest.NewRecorder()
		newEmbeddingMux(service).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/embed/abc/status", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("should map invalid dataset errors to 400", func(t *testing.T) {
		service := new(MockEmbeddingService)
		service.On("GetStatus", mock.Anything, int64(11)).
			Return(nil, fmt.Errorf("lookup: %w", domain.ErrInvalidDatasetID))

		rec := httptest.NewRecorder()
		newEmbeddingMux(service).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/embed/11/status", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), string(dto.ErrorCodeInvalidDatasetID))
	})
}

func TestNewEmbeddingHandler_Panics(t *testing.T) {
	assert.Panics(t, func() { NewEmbeddingHandler(nil, NewDefaultErrorHandler()) })
	assert.Panics(t, func() { NewEmbeddingHandler(new(MockEmbeddingService), nil) })
}
