package api

import (
	"net/http"
	"strconv"

	"github.com/let-userName-Brian/exempla-ai/internal/application/dto"
	"github.com/let-userName-Brian/exempla-ai/internal/port/inbound"
)

// EmbeddingHandler handles dataset embedding submissions and status queries.
type EmbeddingHandler struct {
	embeddingService inbound.EmbeddingService
	errorHandler     ErrorHandler
}

// NewEmbeddingHandler creates a new EmbeddingHandler.
func NewEmbeddingHandler(embeddingService inbound.EmbeddingService, errorHandler ErrorHandler) *EmbeddingHandler {
	if embeddingService == nil {
		panic("embeddingService cannot be nil")
	}
	if errorHandler == nil {
		panic("errorHandler cannot be nil")
	}
	return &EmbeddingHandler{
		embeddingService: embeddingService,
		errorHandler:     errorHandler,
	}
}

// SubmitEmbedding handles POST /embed.
func (h *EmbeddingHandler) SubmitEmbedding(w http.ResponseWriter, r *http.Request) {
	var request dto.EmbedRequest
	if err := decodeJSON(r, &request); err != nil {
		h.errorHandler.HandleValidationError(w, r, err)
		return
	}
	if request.DatasetID <= 0 {
		h.errorHandler.HandleValidationError(w, r,
			NewValidationErrorWithValue("dataset_id", "dataset_id must be a positive integer",
				strconv.FormatInt(request.DatasetID, 10)))
		return
	}

	response, err := h.embeddingService.Submit(r.Context(), request.DatasetID)
	if err != nil {
		h.errorHandler.HandleServiceError(w, r, err)
		return
	}

	if err := WriteJSON(w, http.StatusAccepted, response); err != nil {
		h.errorHandler.HandleServiceError(w, r, err)
	}
}

// GetEmbeddingStatus handles GET /embed/{dataset_id}/status. Unknown datasets
// get a 200 with status not_found.
func (h *EmbeddingHandler) GetEmbeddingStatus(w http.ResponseWriter, r *http.Request) {
	datasetID, err := parseDatasetID(r.PathValue("dataset_id"))
	if err != nil {
		h.errorHandler.HandleValidationError(w, r, err)
		return
	}

	response, err := h.embeddingService.GetStatus(r.Context(), datasetID)
	if err != nil {
		h.errorHandler.HandleServiceError(w, r, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.errorHandler.HandleServiceError(w, r, err)
	}
}

func parseDatasetID(raw string) (int64, error) {
	if raw == "" {
		return 0, NewValidationError("dataset_id", "dataset_id is required")
	}
	datasetID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || datasetID <= 0 {
		return 0, NewValidationErrorWithValue("dataset_id", "dataset_id must be a positive integer", raw)
	}
	return datasetID, nil
}
