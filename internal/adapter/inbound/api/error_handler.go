// Package api serves the embedding, status, chat and health endpoints.
package api

import (
	"errors"
	"net/http"

	"github.com/let-userName-Brian/exempla-ai/internal/application/common/logging"
	"github.com/let-userName-Brian/exempla-ai/internal/application/common/slogger"
	"github.com/let-userName-Brian/exempla-ai/internal/application/dto"
	"github.com/let-userName-Brian/exempla-ai/internal/domain/errors/domain"
)

// ErrorHandler defines methods for handling HTTP errors.
type ErrorHandler interface {
	HandleValidationError(w http.ResponseWriter, r *http.Request, err error)
	HandleServiceError(w http.ResponseWriter, r *http.Request, err error)
}

// ErrorHandlingConfig defines how one domain error is rendered.
type ErrorHandlingConfig struct {
	LogMessage      string
	ErrorType       string
	HTTPStatus      int
	ErrorCode       dto.ErrorCode
	ResponseMessage string
	UseDetailedMsg  bool
}

type errorMapping struct {
	err    error
	config ErrorHandlingConfig
}

// DefaultErrorHandler implements ErrorHandler with standard HTTP error responses.
type DefaultErrorHandler struct {
	mappings []errorMapping
}

// NewDefaultErrorHandler creates a new DefaultErrorHandler with predefined error configurations.
func NewDefaultErrorHandler() ErrorHandler {
	// Order matters: the first match wins.
	mappings := []errorMapping{
		{err: domain.ErrInvalidDatasetID, config: ErrorHandlingConfig{
			LogMessage:     "Invalid dataset id",
			ErrorType:      "invalid_dataset_id",
			HTTPStatus:     http.StatusBadRequest,
			ErrorCode:      dto.ErrorCodeInvalidDatasetID,
			UseDetailedMsg: true,
		}},
		{err: domain.ErrInvalidInput, config: ErrorHandlingConfig{
			LogMessage:     "Invalid input",
			ErrorType:      "invalid_input",
			HTTPStatus:     http.StatusBadRequest,
			ErrorCode:      dto.ErrorCodeInvalidRequest,
			UseDetailedMsg: true,
		}},
		{err: domain.ErrEmbeddingStatusNotFound, config: ErrorHandlingConfig{
			LogMessage:      "Embedding status not found",
			ErrorType:       "not_found",
			HTTPStatus:      http.StatusNotFound,
			ErrorCode:       dto.ErrorCodeEmbeddingNotFound,
			ResponseMessage: dto.NotFoundMessage,
		}},
		{err: domain.ErrUnavailable, config: ErrorHandlingConfig{
			LogMessage:      "Dependency unavailable",
			ErrorType:       "unavailable",
			HTTPStatus:      http.StatusServiceUnavailable,
			ErrorCode:       dto.ErrorCodeServiceUnavailable,
			ResponseMessage: "A required service is temporarily unavailable",
		}},
	}

	return &DefaultErrorHandler{mappings: mappings}
}

// logError logs an error with consistent context fields.
func (h *DefaultErrorHandler) logError(r *http.Request, message, errorType string, err error) {
	slogger.Error(r.Context(), message, slogger.Fields{
		"error": err.Error(),
		"path":  r.URL.Path,
		"type":  errorType,
	})
}

func (h *DefaultErrorHandler) handleErrorWithConfig(w http.ResponseWriter, r *http.Request, err error, config ErrorHandlingConfig) {
	h.logError(r, config.LogMessage, config.ErrorType, err)

	message := config.ResponseMessage
	if config.UseDetailedMsg {
		message = err.Error()
	}

	h.writeErrorResponse(w, r, config.HTTPStatus, dto.NewErrorResponse(config.ErrorCode, message, nil))
}

// HandleValidationError handles validation errors by returning 400 Bad Request.
func (h *DefaultErrorHandler) HandleValidationError(w http.ResponseWriter, r *http.Request, err error) {
	h.logError(r, "Validation error occurred", "validation", err)

	var validationErr ValidationError
	if errors.As(err, &validationErr) {
		response := dto.NewErrorResponse(dto.ErrorCodeInvalidRequest, "Validation failed", validationErr.Details())
		h.writeErrorResponse(w, r, http.StatusBadRequest, response)
		return
	}

	h.writeErrorResponse(w, r, http.StatusBadRequest, dto.NewErrorResponse(dto.ErrorCodeInvalidRequest, err.Error(), nil))
}

// HandleServiceError maps domain errors to HTTP status codes.
func (h *DefaultErrorHandler) HandleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	for _, mapping := range h.mappings {
		if errors.Is(err, mapping.err) {
			h.handleErrorWithConfig(w, r, err, mapping.config)
			return
		}
	}

	h.handleErrorWithConfig(w, r, err, ErrorHandlingConfig{
		LogMessage:      "Internal server error",
		ErrorType:       "internal",
		HTTPStatus:      http.StatusInternalServerError,
		ErrorCode:       dto.ErrorCodeInternalError,
		ResponseMessage: "An internal error occurred",
	})
}

// writeErrorResponse stamps the body with the request's correlation id, set
// by the logging middleware or sent by the caller.
func (h *DefaultErrorHandler) writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, response dto.ErrorResponse) {
	correlationID := logging.CorrelationIDFromContext(r.Context())
	if correlationID == "" {
		correlationID = r.Header.Get("X-Correlation-ID")
	}
	if correlationID != "" {
		w.Header().Set("X-Correlation-ID", correlationID)
		response.CorrelationID = correlationID
	}

	if err := WriteJSON(w, statusCode, response); err != nil {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Internal Server Error"))
	}
}
