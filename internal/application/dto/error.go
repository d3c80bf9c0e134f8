package dto

import "time"

// ErrorCode is the machine-readable code carried in ErrorResponse.Error.
type ErrorCode string

const (
	ErrorCodeInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrorCodeInvalidDatasetID   ErrorCode = "INVALID_DATASET_ID"
	ErrorCodeEmbeddingNotFound  ErrorCode = "EMBEDDING_NOT_FOUND"
	ErrorCodeInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrorCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error         string                  `json:"error"`
	Message       string                  `json:"message"`
	Details       *ValidationErrorDetails `json:"details,omitempty"`
	CorrelationID string                  `json:"correlation_id,omitempty"`
	Timestamp     time.Time               `json:"timestamp"`
}

// NewErrorResponse builds an ErrorResponse stamped with the current UTC time.
// details may be nil.
func NewErrorResponse(code ErrorCode, message string, details *ValidationErrorDetails) ErrorResponse {
	return ErrorResponse{
		Error:     string(code),
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// Is reports whether the response carries code.
func (e ErrorResponse) Is(code ErrorCode) bool {
	return e.Error == string(code)
}

// ValidationError describes one rejected request field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// ValidationErrorDetails lists the rejected fields of a request.
type ValidationErrorDetails struct {
	Errors []ValidationError `json:"errors"`
}
