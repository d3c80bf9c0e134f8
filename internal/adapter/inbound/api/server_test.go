package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/let-userName-Brian/exempla-ai/internal/application/dto"
	"github.com/let-userName-Brian/exempla-ai/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{API: config.APIConfig{
		Host:         "127.0.0.1",
		Port:         "0",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		EnableCORS:   true,
	}}
}

func buildTestServer(t *testing.T, health *MockHealthService) *Server {
	t.Helper()
	server, err := NewServerBuilder(testConfig()).
		WithHealthService(health).
		WithEmbeddingService(new(MockEmbeddingService)).
		WithChatService(new(MockChatService)).
		WithErrorHandler(NewDefaultErrorHandler()).
		WithDefaultMiddleware().
		Build()
	require.NoError(t, err)
	return server
}

func TestServerBuilder(t *testing.T) {
	t.Run("should register every route", func(t *testing.T) {
		server := buildTestServer(t, new(MockHealthService))
		assert.Equal(t, 5, server.RouteCount())
		for _, pattern := range []string{
			"GET /{$}", "GET /health", "POST /embed", "GET /embed/{dataset_id}/status", "POST /chat",
		} {
			assert.True(t, server.HasRoute(pattern), pattern)
		}
	})

	t.Run("should require dependencies", func(t *testing.T) {
		_, err := NewServerBuilder(testConfig()).Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "health service is required")

		_, err = NewServerBuilder(nil).Build()
		assert.Error(t, err)
	})

	t.Run("should reject invalid ports", func(t *testing.T) {
		cfg := testConfig()
		cfg.API.Port = "99999"
		_, err := NewServerBuilder(cfg).
			WithHealthService(new(MockHealthService)).
			WithEmbeddingService(new(MockEmbeddingService)).
			WithChatService(new(MockChatService)).
			WithErrorHandler(NewDefaultErrorHandler()).
			Build()
		assert.EqualError(t, err, "invalid port")
	})
}

func TestServer_Handler(t *testing.T) {
	health := new(MockHealthService)
	health.On("GetHealth", mock.Anything).Return(&dto.HealthResponse{
		Status:    string(dto.HealthStatusHealthy),
		Timestamp: time.Now(),
		Version:   "test",
	}, nil)
	handler := buildTestServer(t, health).Handler()

	t.Run("should serve the root message", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"message": "Exempla AI is taking over"}`, rec.Body.String())
	})

	t.Run("should serve health with request id and timing headers", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		assert.True(t, strings.HasSuffix(rec.Header().Get("X-Health-Check-Duration"), "ms"))
	})

	t.Run("should answer CORS preflight", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/embed", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("should return 405 for wrong method", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/embed", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("should stamp error bodies with the request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/embed", strings.NewReader(`{"dataset_id": 0}`))
		req.Header.Set("X-Request-ID", "req-42")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var body dto.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "req-42", body.CorrelationID)
		assert.Equal(t, "req-42", rec.Header().Get("X-Correlation-ID"))
	})

	t.Run("should return 404 for unknown paths", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestServer_StartShutdown(t *testing.T) {
	health := new(MockHealthService)
	health.On("GetHealth", mock.Anything).Return(&dto.HealthResponse{Status: "healthy"}, nil)
	server := buildTestServer(t, health)

	require.NoError(t, server.Start(context.Background()))
	assert.True(t, server.IsRunning())
	assert.Error(t, server.Start(context.Background()))

	resp, err := http.Get("http://" + server.Address() + "/health")
	require.NoError(t, err)
	var body dto.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	_ = resp.Body.Close()
	assert.Equal(t, "healthy", body.Status)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(ctx))
	assert.False(t, server.IsRunning())
	assert.NoError(t, server.Shutdown(ctx))
}

func TestErrorHandlingMiddleware_RecoversPanics(t *testing.T) {
	handler := NewErrorHandlingMiddleware()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), string(dto.ErrorCodeInternalError))
}

func TestRouteRegistry_RegisterRoute(t *testing.T) {
	noop := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	tests := []struct {
		name    string
		pattern string
		wantErr bool
	}{
		{name: "valid", pattern: "GET /things/{id}", wantErr: false},
		{name: "empty", pattern: "", wantErr: true},
		{name: "no method", pattern: "/things", wantErr: true},
		{name: "bad method", pattern: "FETCH /things", wantErr: true},
		{name: "relative path", pattern: "GET things", wantErr: true},
		{name: "double slash", pattern: "GET /a//b", wantErr: true},
		{name: "unbalanced brace", pattern: "GET /a/{id", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRouteRegistry().RegisterRoute(tt.pattern, noop)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	t.Run("should reject duplicates", func(t *testing.T) {
		registry := NewRouteRegistry()
		require.NoError(t, registry.RegisterRoute("GET /a", noop))
		assert.Error(t, registry.RegisterRoute("GET /a", noop))
		assert.Equal(t, []string{"GET /a"}, registry.GetPatterns())
	})
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.5:5555"
	assert.Equal(t, "10.0.0.5", clientIP(req))

	req.Header.Set("X-Forwarded-For", "bogus, 192.168.1.9")
	assert.Equal(t, "192.168.1.9", clientIP(req))
}
