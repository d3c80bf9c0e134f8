package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"strings"
	"time"

	"github.com/let-userName-Brian/exempla-ai/internal/application/common/slogger"
)

// RetryConfig defines retry behavior.
type RetryConfig struct {
	MaxRetries    int           `json:"max_retries"`
	InitialDelay  time.Duration `json:"initial_delay"`
	MaxDelay      time.Duration `json:"max_delay"`
	BackoffFactor float64       `json:"backoff_factor"`
	Jitter        bool          `json:"jitter"`
}

// DefaultRetryConfig returns a default retry configuration.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:    3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	}
}

// RetryableOperation represents an operation that can be retried.
type RetryableOperation func(ctx context.Context) error

// RetryableChecker decides whether a failed attempt is worth repeating.
type RetryableChecker interface {
	IsRetryable(err error) bool
}

// RetryableCheckerFunc adapts a plain function to RetryableChecker.
type RetryableCheckerFunc func(err error) bool

// IsRetryable calls f(err).
func (f RetryableCheckerFunc) IsRetryable(err error) bool {
	return f(err)
}

// RetryExecutor handles retry logic with exponential backoff.
type RetryExecutor struct {
	config           *RetryConfig
	retryableChecker RetryableChecker
	sleep            func(ctx context.Context, d time.Duration) error
}

// NewRetryExecutor creates a new retry executor with default retry behavior.
func NewRetryExecutor(config *RetryConfig) *RetryExecutor {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &RetryExecutor{
		config:           config,
		retryableChecker: &DefaultRetryableChecker{},
		sleep:            sleepContext,
	}
}

// NewRetryExecutorWithChecker creates a new retry executor with custom retry behavior.
func NewRetryExecutorWithChecker(config *RetryConfig, checker RetryableChecker) *RetryExecutor {
	if config == nil {
		config = DefaultRetryConfig()
	}
	if checker == nil {
		checker = &DefaultRetryableChecker{}
	}
	return &RetryExecutor{
		config:           config,
		retryableChecker: checker,
		sleep:            sleepContext,
	}
}

// Execute executes an operation with retry logic.
func (r *RetryExecutor) Execute(ctx context.Context, operation RetryableOperation) error {
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.calculateDelay(attempt)
			slogger.Debug(ctx, "Retrying operation after delay", slogger.Fields3(
				"attempt", attempt,
				"max_retries", r.config.MaxRetries,
				"delay_ms", delay.Milliseconds(),
			))

			if err := r.sleep(ctx, delay); err != nil {
				return err
			}
		}

		err := operation(ctx)
		if err == nil {
			if attempt > 0 {
				slogger.Info(ctx, "Operation succeeded after retries", slogger.Fields{
					"attempt": attempt + 1,
				})
			}
			return nil
		}

		lastErr = err

		// Check if error is retryable
		if !r.retryableChecker.IsRetryable(err) {
			slogger.Debug(ctx, "Error is not retryable", slogger.Fields{
				"error":   err.Error(),
				"attempt": attempt + 1,
			})
			return err
		}

		if attempt < r.config.MaxRetries {
			slogger.Warn(ctx, "Operation failed, will retry", slogger.Fields3(
				"error", err.Error(),
				"attempt", attempt+1,
				"max_retries", r.config.MaxRetries,
			))
		}
	}

	return fmt.Errorf("operation failed after %d retries: %w", r.config.MaxRetries, lastErr)
}

// Config returns the executor's retry configuration.
func (r *RetryExecutor) Config() RetryConfig {
	return *r.config
}

// WithSleep overrides how the executor waits between attempts.
func (r *RetryExecutor) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *RetryExecutor {
	if sleep != nil {
		r.sleep = sleep
	}
	return r
}

// Do runs operation through executor and returns its value on success.
func Do[T any](ctx context.Context, executor *RetryExecutor, operation func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := executor.Execute(ctx, func(ctx context.Context) error {
		value, err := operation(ctx)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	return result, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// calculateDelay calculates the delay for a given attempt using exponential backoff.
func (r *RetryExecutor) calculateDelay(attempt int) time.Duration {
	delay := float64(r.config.InitialDelay) * math.Pow(r.config.BackoffFactor, float64(attempt-1))

	if r.config.MaxDelay > 0 && delay > float64(r.config.MaxDelay) {
		delay = float64(r.config.MaxDelay)
	}

	// Add jitter if enabled
	if r.config.Jitter {
		// Add random jitter up to +/-25% of the delay
		jitterRange := delay * 0.25
		delay += (float64(time.Now().UnixNano()%1000000)/1000000.0 - 0.5) * 2 * jitterRange
	}

	return time.Duration(delay)
}

// DefaultRetryableChecker retries network timeouts and transient transport
// or database failures recognised by their message.
type DefaultRetryableChecker struct{}

var transientMessages = []string{ //nolint:gochecknoglobals // read-only lookup table
	"connection refused",
	"connection reset",
	"connection lost",
	"too many connections",
	"deadlock",
	"temporarily unavailable",
	"try again",
	"network is unreachable",
	"no route to host",
	"timeout",
}

// IsRetryable reports whether err looks transient.
func (d *DefaultRetryableChecker) IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range transientMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
