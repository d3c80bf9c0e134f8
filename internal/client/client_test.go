package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/let-userName-Brian/exempla-ai/internal/application/dto"
	"github.com/let-userName-Brian/exempla-ai/internal/domain/valueobject"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewClient(&Config{APIURL: server.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestNewClient(t *testing.T) {
	t.Run("should reject nil config", func(t *testing.T) {
		_, err := NewClient(nil)
		require.Error(t, err)
	})

	t.Run("should reject invalid config", func(t *testing.T) {
		_, err := NewClient(&Config{APIURL: "localhost:8000", Timeout: time.Second})
		require.Error(t, err)
	})
}

func TestClient_SubmitEmbedding(t *testing.T) {
	t.Run("should post the dataset id", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/embed", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, userAgent, r.Header.Get("User-Agent"))

			var req dto.EmbedRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, int64(7), req.DatasetID)

			writeJSON(w, http.StatusAccepted, dto.EmbedResponse{
				Message: "Embedding process started for dataset 7",
				Status:  valueobject.EmbeddingStatusPending,
				TaskID:  "embed_7_abc",
			})
		})

		resp, err := c.SubmitEmbedding(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, valueobject.EmbeddingStatusPending, resp.Status)
		assert.Equal(t, "embed_7_abc", resp.TaskID)
	})

	t.Run("should surface the server's error body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusBadRequest, dto.NewErrorResponse(dto.ErrorCodeInvalidDatasetID, "dataset id must be a positive integer", nil))
		})

		_, err := c.SubmitEmbedding(context.Background(), 7)
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		assert.Equal(t, string(dto.ErrorCodeInvalidDatasetID), apiErr.Code)
		assert.Contains(t, err.Error(), "positive integer")
	})
}

func TestClient_GetEmbeddingStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embed/42/status", r.URL.Path)
		writeJSON(w, http.StatusOK, dto.NewNotFoundStatusResponse(42))
	})

	status, err := c.GetEmbeddingStatus(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, valueobject.EmbeddingStatusNotFound, status.Status)
	assert.Equal(t, dto.NotFoundMessage, status.Message)
}

func TestClient_Chat(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat", r.URL.Path)
		var req dto.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "How many hosts?", req.UserPrompt)
		writeJSON(w, http.StatusOK, dto.ChatResponse{Response: "Two."})
	})

	resp, err := c.Chat(context.Background(), dto.ChatRequest{DatasetID: 1, UserPrompt: "How many hosts?"})
	require.NoError(t, err)
	assert.Equal(t, "Two.", resp.Response)
}

func TestClient_Health(t *testing.T) {
	t.Run("should decode a healthy response", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, dto.HealthResponse{Status: "healthy", Version: "v1"})
		})
		health, err := c.Health(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "healthy", health.Status)
	})

	t.Run("should report 503 as an API error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusServiceUnavailable, dto.HealthResponse{Status: "unhealthy"})
		})
		_, err := c.Health(context.Background())
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	})
}

func TestConfig(t *testing.T) {
	t.Run("should load defaults", func(t *testing.T) {
		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, DefaultAPIURL, cfg.APIURL)
		assert.Equal(t, DefaultTimeout, cfg.Timeout)
	})

	t.Run("should read environment overrides", func(t *testing.T) {
		t.Setenv(EnvAPIURL, "https://exempla.example.com")
		t.Setenv(EnvTimeout, "5s")
		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "https://exempla.example.com", cfg.APIURL)
		assert.Equal(t, 5*time.Second, cfg.Timeout)
	})

	t.Run("should reject a bad timeout", func(t *testing.T) {
		t.Setenv(EnvTimeout, "-1s")
		_, err := LoadConfig()
		require.Error(t, err)
	})

	t.Run("should validate fields", func(t *testing.T) {
		assert.Error(t, Config{Timeout: time.Second}.Validate())
		assert.Error(t, Config{APIURL: "ftp://x", Timeout: time.Second}.Validate())
		assert.Error(t, Config{APIURL: "http://x"}.Validate())
		assert.NoError(t, DefaultConfig().Validate())
	})
}
