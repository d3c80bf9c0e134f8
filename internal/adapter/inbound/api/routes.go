package api

import (
	"fmt"
	"net/http"
	"strings"
)

// RouteRegistry manages HTTP route registration using Go 1.22+ ServeMux patterns
type RouteRegistry struct {
	routes   map[string]http.Handler
	patterns []string
	mux      *http.ServeMux
}

// NewRouteRegistry creates a new RouteRegistry
func NewRouteRegistry() *RouteRegistry {
	return &RouteRegistry{
		routes:   make(map[string]http.Handler),
		patterns: make([]string, 0),
		mux:      http.NewServeMux(),
	}
}

// RegisterAPIRoutes registers all API routes with their handlers
func (r *RouteRegistry) RegisterAPIRoutes(
	healthHandler *HealthHandler,
	embeddingHandler *EmbeddingHandler,
	chatHandler *ChatHandler,
) {
	routes := []struct {
		pattern string
		handler http.HandlerFunc
	}{
		{"GET /{$}", healthHandler.GetRoot},
		{"GET /health", healthHandler.GetHealth},
		{"POST /embed", embeddingHandler.SubmitEmbedding},
		{"GET /embed/{dataset_id}/status", embeddingHandler.GetEmbeddingStatus},
		{"POST /chat", chatHandler.Chat},
	}

	for _, route := range routes {
		if err := r.RegisterRoute(route.pattern, route.handler); err != nil {
			panic(fmt.Errorf("failed to register route %s: %w", route.pattern, err))
		}
	}
}

// RegisterRoute registers a single route with the given pattern and handler
func (r *RouteRegistry) RegisterRoute(pattern string, handler http.Handler) error {
	if err := r.validatePattern(pattern); err != nil {
		return err
	}
	if _, exists := r.routes[pattern]; exists {
		return fmt.Errorf("route conflict detected: pattern '%s' is already registered", pattern)
	}

	r.mux.Handle(pattern, handler)
	r.routes[pattern] = handler
	r.patterns = append(r.patterns, pattern)
	return nil
}

// BuildServeMux returns the configured ServeMux
func (r *RouteRegistry) BuildServeMux() *http.ServeMux {
	return r.mux
}

// HasRoute checks if a route pattern is registered
func (r *RouteRegistry) HasRoute(pattern string) bool {
	_, exists := r.routes[pattern]
	return exists
}

// RouteCount returns the number of registered routes
func (r *RouteRegistry) RouteCount() int {
	return len(r.routes)
}

// GetPatterns returns all registered route patterns
func (r *RouteRegistry) GetPatterns() []string {
	return r.patterns
}

// validatePattern validates a "METHOD /path" ServeMux pattern.
func (r *RouteRegistry) validatePattern(pattern string) error {
	if strings.TrimSpace(pattern) == "" {
		return fmt.Errorf("route pattern cannot be empty")
	}

	parts := strings.SplitN(pattern, " ", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid route pattern '%s': must have format 'METHOD /path' (e.g., 'GET /users')", pattern)
	}

	method, path := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete,
		http.MethodPatch, http.MethodHead, http.MethodOptions:
	default:
		return fmt.Errorf("invalid HTTP method '%s' in pattern '%s'", method, pattern)
	}

	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("path '%s' in pattern '%s' must start with '/'", path, pattern)
	}
	if strings.Contains(path, "//") {
		return fmt.Errorf("path '%s' in pattern '%s' contains double slashes", path, pattern)
	}
	if strings.Count(path, "{") != strings.Count(path, "}") {
		return fmt.Errorf("invalid parameter syntax in pattern '%s': unbalanced braces", pattern)
	}
	return nil
}
