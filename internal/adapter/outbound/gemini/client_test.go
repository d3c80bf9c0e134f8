package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/let-userName-Brian/exempla-ai/internal/port/outbound"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&ClientConfig{APIKey: "test-key", BaseURL: server.URL, Dimensions: 3})
	require.NoError(t, err)
	return client
}

func TestClientConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  ClientConfig
		wantErr bool
	}{
		{"valid", ClientConfig{APIKey: "key"}, false},
		{"empty key", ClientConfig{}, true},
		{"whitespace key", ClientConfig{APIKey: "   "}, true},
		{"bad base url", ClientConfig{APIKey: "key", BaseURL: "ftp://x"}, true},
		{"negative timeout", ClientConfig{APIKey: "key", Timeout: -1}, true},
		{"negative dimensions", ClientConfig{APIKey: "key", Dimensions: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewClient_Defaults(t *testing.T) {
	client, err := NewClient(&ClientConfig{APIKey: " key ", Model: "models/text-embedding-004"})
	require.NoError(t, err)

	config := client.GetConfig()
	assert.Equal(t, "key", config.APIKey)
	assert.Equal(t, DefaultBaseURL, config.BaseURL)
	assert.Equal(t, "text-embedding-004", client.ModelName())
	assert.Equal(t, DefaultDimensions, config.Dimensions)
}

func TestNewClientFromEnv(t *testing.T) {
	t.Run("should prefer GEMINI_API_KEY", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "gemini")
		t.Setenv("GOOGLE_API_KEY", "google")

		client, err := NewClientFromEnv(nil)

		require.NoError(t, err)
		assert.Equal(t, "gemini", client.GetConfig().APIKey)
	})

	t.Run("should fall back to GOOGLE_API_KEY", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "")
		t.Setenv("GOOGLE_API_KEY", "google")

		client, err := NewClientFromEnv(&ClientConfig{})

		require.NoError(t, err)
		assert.Equal(t, "google", client.GetConfig().APIKey)
	})

	t.Run("should fail without a key", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "")
		t.Setenv("GOOGLE_API_KEY", "")

		_, err := NewClientFromEnv(nil)

		assert.Error(t, err)
	})
}

func TestClient_EmbedText(t *testing.T) {
	ctx := context.Background()

	t.Run("should post an embedContent request and return the values", func(t *testing.T) {
		var received embedContentRequest
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/models/gemini-embedding-001:embedContent", r.URL.Path)
			assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			_, _ = w.Write([]byte(`{"embedding":{"values":[0.1,0.2,0.3]}}`))
		})

		vector, err := client.EmbedText(ctx, "VM 'web-01'", outbound.TaskTypeRetrievalQuery)

		require.NoError(t, err)
		assert.Equal(t, []float32{0.1, 0.2, 0.3}, vector)
		assert.Equal(t, "models/gemini-embedding-001", received.Model)
		assert.Equal(t, "RETRIEVAL_QUERY", received.TaskType)
		assert.Equal(t, 3, received.OutputDimensionality)
		require.Len(t, received.Content.Parts, 1)
		assert.Equal(t, "VM 'web-01'", received.Content.Parts[0].Text)
	})

	t.Run("should classify a 429 as a retryable quota error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`))
		})

		_, err := client.EmbedText(ctx, "text", outbound.TaskTypeRetrievalDocument)

		var embErr *outbound.EmbeddingError
		require.ErrorAs(t, err, &embErr)
		assert.True(t, embErr.IsRetryable())
		assert.True(t, embErr.IsQuotaError())
		assert.Equal(t, 429, embErr.StatusCode)
		assert.Contains(t, embErr.Message, "Retry after 30 seconds")
		assert.Contains(t, embErr.Message, "Resource has been exhausted")
	})

	t.Run("should classify auth failures as non-retryable", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})

		_, err := client.EmbedText(ctx, "text", outbound.TaskTypeRetrievalDocument)

		var embErr *outbound.EmbeddingError
		require.ErrorAs(t, err, &embErr)
		assert.False(t, embErr.IsRetryable())
		assert.Equal(t, outbound.EmbeddingErrorTypeAuth, embErr.Type)
	})

	t.Run("should classify server errors as retryable", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		_, err := client.EmbedText(ctx, "text", outbound.TaskTypeRetrievalDocument)

		var embErr *outbound.EmbeddingError
		require.ErrorAs(t, err, &embErr)
		assert.True(t, embErr.IsRetryable())
	})

	t.Run("should reject empty text without calling the API", func(t *testing.T) {
		called := false
		client := newTestClient(t, func(http.ResponseWriter, *http.Request) { called = true })

		_, err := client.EmbedText(ctx, "  ", outbound.TaskTypeRetrievalDocument)

		require.Error(t, err)
		assert.False(t, called)
	})

	t.Run("should fail on a response without values", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"embedding":{}}`))
		})

		_, err := client.EmbedText(ctx, "text", outbound.TaskTypeRetrievalDocument)

		var embErr *outbound.EmbeddingError
		require.ErrorAs(t, err, &embErr)
		assert.Equal(t, "missing_embedding", embErr.Code)
	})
}

func TestConvertSDKError(t *testing.T) {
	t.Run("should map API status codes", func(t *testing.T) {
		embErr := convertSDKError(genai.APIError{Code: 429, Message: "quota", Status: "RESOURCE_EXHAUSTED"})
		assert.True(t, embErr.IsQuotaError())
		assert.True(t, embErr.IsRetryable())

		embErr = convertSDKError(genai.APIError{Code: 400, Status: "INVALID_ARGUMENT"})
		assert.False(t, embErr.IsRetryable())
		assert.Equal(t, "INVALID_ARGUMENT", embErr.Message)
	})

	t.Run("should treat other errors as network errors", func(t *testing.T) {
		embErr := convertSDKError(errors.New("dial tcp: connection refused"))
		assert.Equal(t, "connection_refused", embErr.Code)
		assert.True(t, embErr.IsRetryable())

		embErr = convertSDKError(context.Canceled)
		assert.False(t, embErr.IsRetryable())
	})
}
