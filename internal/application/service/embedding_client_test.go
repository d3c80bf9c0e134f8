package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/let-userName-Brian/exempla-ai/internal/port/outbound"
)

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

func (s *sleepRecorder) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

func testClientConfig() EmbeddingClientConfig {
	config := DefaultEmbeddingClientConfig()
	config.Dimensions = 3
	return config
}

func rateLimitError() error {
	return outbound.ClassifyStatusCode(429, "quota exceeded", nil)
}

func TestEmbeddingClient_Embed(t *testing.T) {
	ctx := context.Background()

	t.Run("should return the provider vector", func(t *testing.T) {
		provider := new(MockEmbeddingProvider)
		provider.On("EmbedText", mock.Anything, "hello", outbound.TaskTypeRetrievalDocument).
			Return([]float32{0.1, 0.2, 0.3}, nil).Once()
		sleeps := &sleepRecorder{}

		client := NewEmbeddingClient(provider, testClientConfig()).WithSleep(sleeps.sleep)

		assert.Equal(t, []float32{0.1, 0.2, 0.3}, client.Embed(ctx, "hello"))
		assert.Empty(t, sleeps.recorded())
		provider.AssertExpectations(t)
	})

	t.Run("should retry rate limits with exponential backoff", func(t *testing.T) {
		provider := new(MockEmbeddingProvider)
		provider.On("EmbedText", mock.Anything, "hello", outbound.TaskTypeRetrievalDocument).
			Return(nil, rateLimitError()).Twice()
		provider.On("EmbedText", mock.Anything, "hello", outbound.TaskTypeRetrievalDocument).
			Return([]float32{1, 2, 3}, nil).Once()
		sleeps := &sleepRecorder{}

		client := NewEmbeddingClient(provider, testClientConfig()).WithSleep(sleeps.sleep)

		assert.Equal(t, []float32{1, 2, 3}, client.Embed(ctx, "hello"))
		provider.AssertNumberOfCalls(t, "EmbedText", 3)
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeps.recorded())
	})

	t.Run("should fall back to a zero vector after three rate-limited attempts", func(t *testing.T) {
		provider := new(MockEmbeddingProvider)
		provider.On("EmbedText", mock.Anything, "hello", outbound.TaskTypeRetrievalDocument).
			Return(nil, errors.New("429 Resource exhausted"))

		client := NewEmbeddingClient(provider, testClientConfig()).WithSleep((&sleepRecorder{}).sleep)

		assert.Equal(t, []float32{0, 0, 0}, client.Embed(ctx, "hello"))
		provider.AssertNumberOfCalls(t, "EmbedText", 3)
	})

	t.Run("should not retry non-retryable errors", func(t *testing.T) {
		provider := new(MockEmbeddingProvider)
		provider.On("EmbedText", mock.Anything, "hello", outbound.TaskTypeRetrievalDocument).
			Return(nil, outbound.ClassifyStatusCode(401, "bad key", nil))
		sleeps := &sleepRecorder{}

		client := NewEmbeddingClient(provider, testClientConfig()).WithSleep(sleeps.sleep)

		assert.Equal(t, []float32{0, 0, 0}, client.Embed(ctx, "hello"))
		provider.AssertNumberOfCalls(t, "EmbedText", 1)
		assert.Empty(t, sleeps.recorded())
	})

	t.Run("should fall back when the dimension is wrong", func(t *testing.T) {
		provider := new(MockEmbeddingProvider)
		provider.On("EmbedText", mock.Anything, "hello", outbound.TaskTypeRetrievalDocument).
			Return([]float32{1, 2}, nil)

		client := NewEmbeddingClient(provider, testClientConfig())

		assert.Equal(t, []float32{0, 0, 0}, client.Embed(ctx, "hello"))
	})

	t.Run("should use the 768 dimension default", func(t *testing.T) {
		provider := new(MockEmbeddingProvider)
		provider.On("EmbedText", mock.Anything, "x", outbound.TaskTypeRetrievalDocument).
			Return(nil, errors.New("permission denied"))

		client := NewEmbeddingClient(provider, EmbeddingClientConfig{})

		vector := client.Embed(ctx, "x")
		assert.Len(t, vector, 768)
		assert.Equal(t, 768, client.Dimensions())
	})
}

func TestEmbeddingClient_BatchEmbed(t *testing.T) {
	t.Run("should return one vector per text in order and pace successes", func(t *testing.T) {
		provider := new(MockEmbeddingProvider)
		provider.On("EmbedText", mock.Anything, "a", outbound.TaskTypeRetrievalDocument).Return([]float32{1, 1, 1}, nil)
		provider.On("EmbedText", mock.Anything, "b", outbound.TaskTypeRetrievalDocument).
			Return(nil, errors.New("invalid argument"))
		provider.On("EmbedText", mock.Anything, "c", outbound.TaskTypeRetrievalDocument).Return([]float32{3, 3, 3}, nil)
		sleeps := &sleepRecorder{}

		client := NewEmbeddingClient(provider, testClientConfig()).WithSleep(sleeps.sleep)
		vectors := client.BatchEmbed(context.Background(), []string{"a", "b", "c"})

		require.Len(t, vectors, 3)
		assert.Equal(t, []float32{1, 1, 1}, vectors[0])
		assert.Equal(t, []float32{0, 0, 0}, vectors[1])
		assert.Equal(t, []float32{3, 3, 3}, vectors[2])
		assert.Equal(t, []time.Duration{100 * time.Millisecond, 100 * time.Millisecond}, sleeps.recorded())
	})

	t.Run("should return an empty result for no texts", func(t *testing.T) {
		client := NewEmbeddingClient(new(MockEmbeddingProvider), testClientConfig())
		assert.Empty(t, client.BatchEmbed(context.Background(), nil))
	})
}

func TestEmbeddingClient_EmbedQuery(t *testing.T) {
	t.Run("should embed with the query task type", func(t *testing.T) {
		provider := new(MockEmbeddingProvider)
		provider.On("EmbedText", mock.Anything, "which hosts?", outbound.TaskTypeRetrievalQuery).
			Return([]float32{1, 0, 0}, nil)

		vector, err := NewEmbeddingClient(provider, testClientConfig()).EmbedQuery(context.Background(), "which hosts?")

		require.NoError(t, err)
		assert.Equal(t, []float32{1, 0, 0}, vector)
	})

	t.Run("should return an error instead of a zero vector", func(t *testing.T) {
		provider := new(MockEmbeddingProvider)
		provider.On("EmbedText", mock.Anything, "q", outbound.TaskTypeRetrievalQuery).
			Return(nil, outbound.ClassifyStatusCode(400, "bad request", nil))

		vector, err := NewEmbeddingClient(provider, testClientConfig()).EmbedQuery(context.Background(), "q")

		require.Error(t, err)
		assert.Nil(t, vector)
	})
}

func TestIsRetryableEmbeddingError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"quota", rateLimitError(), true},
		{"server", outbound.ClassifyStatusCode(503, "unavailable", nil), true},
		{"auth", outbound.ClassifyStatusCode(403, "forbidden", nil), false},
		{"message rate limit", errors.New("Rate limit reached"), true},
		{"message resource exhausted", errors.New("RESOURCE_EXHAUSTED: try later"), true},
		{"message timeout", errors.New("i/o timeout"), true},
		{"plain", errors.New("malformed text"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryableEmbeddingError(tt.err))
		})
	}
}
