package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/let-userName-Brian/exempla-ai/internal/application/common/retry"
	"github.com/let-userName-Brian/exempla-ai/internal/application/common/slogger"
	"github.com/let-userName-Brian/exempla-ai/internal/port/outbound"
)

// EmbeddingClientConfig controls retries, pacing and the expected dimension.
type EmbeddingClientConfig struct {
	Dimensions     int
	MaxAttempts    int
	InitialBackoff time.Duration
	BackoffFactor  float64
	PacingDelay    time.Duration
	TaskType       outbound.EmbeddingTaskType
}

// DefaultEmbeddingClientConfig returns 3 attempts backing off 1s then 2s,
// 100ms pacing and 768 dimensions.
func DefaultEmbeddingClientConfig() EmbeddingClientConfig {
	return EmbeddingClientConfig{
		Dimensions:     768,
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		BackoffFactor:  2.0,
		PacingDelay:    100 * time.Millisecond,
		TaskType:       outbound.TaskTypeRetrievalDocument,
	}
}

// EmbeddingClient turns text into fixed-dimension vectors. It never fails:
// once retries are exhausted it returns a zero vector.
type EmbeddingClient struct {
	provider outbound.EmbeddingProvider
	config   EmbeddingClientConfig
	executor *retry.RetryExecutor
	sleep    func(ctx context.Context, d time.Duration) error
	metrics  *PipelineMetrics
}

// NewEmbeddingClient creates a client around provider.
func NewEmbeddingClient(provider outbound.EmbeddingProvider, config EmbeddingClientConfig) *EmbeddingClient {
	if provider == nil {
		panic("provider cannot be nil")
	}
	defaults := DefaultEmbeddingClientConfig()
	if config.Dimensions <= 0 {
		config.Dimensions = defaults.Dimensions
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = defaults.InitialBackoff
	}
	if config.BackoffFactor <= 0 {
		config.BackoffFactor = defaults.BackoffFactor
	}
	if config.PacingDelay < 0 {
		config.PacingDelay = 0
	}
	if config.TaskType == "" {
		config.TaskType = defaults.TaskType
	}

	executor := retry.NewRetryExecutorWithChecker(&retry.RetryConfig{
		MaxRetries:    config.MaxAttempts - 1,
		InitialDelay:  config.InitialBackoff,
		BackoffFactor: config.BackoffFactor,
	}, retry.RetryableCheckerFunc(IsRetryableEmbeddingError))

	return &EmbeddingClient{
		provider: provider,
		config:   config,
		executor: executor,
		sleep:    sleepWithContext,
	}
}

// WithMetrics records provider attempts and fallbacks on metrics.
func (c *EmbeddingClient) WithMetrics(metrics *PipelineMetrics) *EmbeddingClient {
	c.metrics = metrics
	return c
}

// WithSleep overrides backoff and pacing waits, mainly for tests.
func (c *EmbeddingClient) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *EmbeddingClient {
	if sleep != nil {
		c.sleep = sleep
		c.executor.WithSleep(sleep)
	}
	return c
}

// Dimensions returns the vector length every call produces.
func (c *EmbeddingClient) Dimensions() int {
	return c.config.Dimensions
}

// Embed returns the embedding for text, or a zero vector if the provider keeps
// failing or answers with the wrong dimension.
func (c *EmbeddingClient) Embed(ctx context.Context, text string) []float32 {
	vector, ok := c.embed(ctx, text)
	if !ok {
		return c.zeroVector()
	}
	return vector
}

// EmbedQuery embeds a search query with the query task type.
func (c *EmbeddingClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vector, err := retry.Do(ctx, c.executor, func(ctx context.Context) ([]float32, error) {
		v, err := c.provider.EmbedText(ctx, text, outbound.TaskTypeRetrievalQuery)
		c.metrics.RecordEmbedAttempt(ctx, err)
		return v, err
	})
	if err != nil {
		return nil, err
	}
	if len(vector) != c.config.Dimensions {
		return nil, &outbound.EmbeddingError{
			Code:    "dimension_mismatch",
			Message: "query embedding has unexpected dimension",
			Type:    outbound.EmbeddingErrorTypeValidation,
		}
	}
	return vector, nil
}

// BatchEmbed embeds each text in order, pausing the pacing delay after every
// successful call. The result has one vector per input.
func (c *EmbeddingClient) BatchEmbed(ctx context.Context, texts []string) [][]float32 {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vector, ok := c.embed(ctx, text)
		if !ok {
			vectors[i] = c.zeroVector()
			continue
		}
		vectors[i] = vector
		if c.config.PacingDelay > 0 {
			_ = c.sleep(ctx, c.config.PacingDelay)
		}
	}
	return vectors
}

func (c *EmbeddingClient) embed(ctx context.Context, text string) ([]float32, bool) {
	vector, err := retry.Do(ctx, c.executor, func(ctx context.Context) ([]float32, error) {
		v, err := c.provider.EmbedText(ctx, text, c.config.TaskType)
		c.metrics.RecordEmbedAttempt(ctx, err)
		return v, err
	})
	if err != nil {
		reason := "non_retryable"
		if IsRetryableEmbeddingError(err) {
			reason = "retries_exhausted"
		}
		c.metrics.RecordEmbedFallback(ctx, reason)
		slogger.ErrorWithError(ctx, err, "Embedding failed, using zero vector", slogger.Fields{
			"model":       c.provider.ModelName(),
			"reason":      reason,
			"text_length": len(text),
		})
		return nil, false
	}

	if len(vector) != c.config.Dimensions {
		c.metrics.RecordEmbedFallback(ctx, "dimension_mismatch")
		slogger.Warn(ctx, "Embedding has unexpected dimension, using zero vector", slogger.Fields{
			"model":    c.provider.ModelName(),
			"expected": c.config.Dimensions,
			"actual":   len(vector),
		})
		return nil, false
	}
	return vector, true
}

func (c *EmbeddingClient) zeroVector() []float32 {
	return make([]float32, c.config.Dimensions)
}

var retryableEmbeddingMessages = []string{
	"429",
	"rate limit",
	"resource exhausted",
	"resource_exhausted",
	"unavailable",
	"timeout",
	"connection reset",
}

// IsRetryableEmbeddingError reports whether err is a transient provider failure:
// a retryable *EmbeddingError, or an error whose message names a rate limit
// or temporary outage.
func IsRetryableEmbeddingError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var embErr *outbound.EmbeddingError
	if errors.As(err, &embErr) {
		if embErr.IsRetryable() || embErr.IsQuotaError() {
			return true
		}
		if embErr.Type == outbound.EmbeddingErrorTypeAuth || embErr.Type == outbound.EmbeddingErrorTypeValidation {
			return false
		}
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range retryableEmbeddingMessages {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
