// Package outbound defines the outbound ports (interfaces) for external dependencies.
package outbound

import "context"

// EmbeddingProvider turns text into a single embedding vector.
type EmbeddingProvider interface {
	// EmbedText returns the embedding for text. Implementations report
	// provider failures as *EmbeddingError so callers can classify them.
	EmbedText(ctx context.Context, text string, taskType EmbeddingTaskType) ([]float32, error)

	// ModelName returns the configured embedding model.
	ModelName() string
}

// ChatModel generates a text completion for a single prompt.
type ChatModel interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// EmbeddingTaskType defines the type of task for specialized embeddings.
type EmbeddingTaskType string

const (
	TaskTypeRetrievalDocument  EmbeddingTaskType = "RETRIEVAL_DOCUMENT"  // For document retrieval/search
	TaskTypeRetrievalQuery     EmbeddingTaskType = "RETRIEVAL_QUERY"     // For general search queries
	TaskTypeSemanticSimilarity EmbeddingTaskType = "SEMANTIC_SIMILARITY" // For similarity analysis
)

// Embedding error types.
const (
	EmbeddingErrorTypeAuth       = "auth"
	EmbeddingErrorTypeQuota      = "quota"
	EmbeddingErrorTypeValidation = "validation"
	EmbeddingErrorTypeServer     = "server"
	EmbeddingErrorTypeNetwork    = "network"
)

// EmbeddingError represents an error from the embedding service.
type EmbeddingError struct {
	Code       string `json:"code"`                  // Error code
	Message    string `json:"message"`               // Error message
	Type       string `json:"type"`                  // Error type (auth, quota, validation, etc.)
	StatusCode int    `json:"status_code,omitempty"` // HTTP status returned by the provider
	Retryable  bool   `json:"retryable"`             // Whether the error is retryable
	Cause      error  `json:"cause,omitempty"`       // Underlying error
}

// Error implements the error interface.
func (e *EmbeddingError) Error() string {
	if e.Cause != nil {
		return "embedding service error (" + e.Type + "/" + e.Code + "): " + e.Message + ": " + e.Cause.Error()
	}
	return "embedding service error (" + e.Type + "/" + e.Code + "): " + e.Message
}

// Unwrap returns the underlying cause error.
func (e *EmbeddingError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns whether the error is retryable.
func (e *EmbeddingError) IsRetryable() bool {
	return e.Retryable
}

// IsQuotaError returns whether the error is a quota/rate limit error.
func (e *EmbeddingError) IsQuotaError() bool {
	return e.Type == EmbeddingErrorTypeQuota || e.StatusCode == 429
}

// ClassifyStatusCode builds an EmbeddingError for an HTTP status returned by a provider.
// 429 and 5xx responses are retryable.
func ClassifyStatusCode(statusCode int, message string, cause error) *EmbeddingError {
	embErr := &EmbeddingError{
		Code:       "http_error",
		Message:    message,
		Type:       EmbeddingErrorTypeValidation,
		StatusCode: statusCode,
		Cause:      cause,
	}
	switch {
	case statusCode == 429:
		embErr.Code = "rate_limit_exceeded"
		embErr.Type = EmbeddingErrorTypeQuota
		embErr.Retryable = true
	case statusCode == 401 || statusCode == 403:
		embErr.Code = "unauthorized"
		embErr.Type = EmbeddingErrorTypeAuth
	case statusCode >= 500:
		embErr.Code = "server_error"
		embErr.Type = EmbeddingErrorTypeServer
		embErr.Retryable = true
	}
	return embErr
}
