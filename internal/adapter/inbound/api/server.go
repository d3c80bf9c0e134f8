package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/let-userName-Brian/exempla-ai/internal/application/common/slogger"
	"github.com/let-userName-Brian/exempla-ai/internal/config"
	"github.com/let-userName-Brian/exempla-ai/internal/port/inbound"
)

// Server represents the HTTP API server
type Server struct {
	config        *config.Config
	httpServer    *http.Server
	routeRegistry *RouteRegistry
	listener      net.Listener
	isRunning     bool
	mu            sync.RWMutex
	serveErr      chan error
}

// ServerBuilder provides a fluent interface for building Server instances
type ServerBuilder struct {
	config           *config.Config
	healthService    inbound.HealthService
	embeddingService inbound.EmbeddingService
	chatService      inbound.ChatService
	errorHandler     ErrorHandler
	middleware       []MiddlewareFunc
}

// NewServerBuilder creates a new ServerBuilder
func NewServerBuilder(config *config.Config) *ServerBuilder {
	return &ServerBuilder{
		config:     config,
		middleware: make([]MiddlewareFunc, 0),
	}
}

// WithHealthService sets the health service
func (b *ServerBuilder) WithHealthService(service inbound.HealthService) *ServerBuilder {
	b.healthService = service
	return b
}

// WithEmbeddingService sets the embedding service
func (b *ServerBuilder) WithEmbeddingService(service inbound.EmbeddingService) *ServerBuilder {
	b.embeddingService = service
	return b
}

// WithChatService sets the chat service
func (b *ServerBuilder) WithChatService(service inbound.ChatService) *ServerBuilder {
	b.chatService = service
	return b
}

// WithErrorHandler sets the error handler
func (b *ServerBuilder) WithErrorHandler(handler ErrorHandler) *ServerBuilder {
	b.errorHandler = handler
	return b
}

// WithMiddleware adds middleware to the chain
func (b *ServerBuilder) WithMiddleware(middleware MiddlewareFunc) *ServerBuilder {
	b.middleware = append(b.middleware, middleware)
	return b
}

// WithDefaultMiddleware adds the standard middleware chain
func (b *ServerBuilder) WithDefaultMiddleware() *ServerBuilder {
	b.WithMiddleware(NewLoggingMiddleware())
	if b.config != nil && b.config.API.EnableCORS {
		b.WithMiddleware(NewCORSMiddleware())
	}
	return b.WithMiddleware(NewErrorHandlingMiddleware())
}

// Build creates the Server instance
func (b *ServerBuilder) Build() (*Server, error) {
	if err := b.validate(); err != nil {
		return nil, fmt.Errorf("server builder validation failed: %w", err)
	}
	if err := validateServerConfig(b.config); err != nil {
		return nil, err
	}

	registry := NewRouteRegistry()
	registry.RegisterAPIRoutes(
		NewHealthHandler(b.healthService, b.errorHandler),
		NewEmbeddingHandler(b.embeddingService, b.errorHandler),
		NewChatHandler(b.chatService, b.errorHandler),
	)

	// Apply middleware in reverse order so the first added runs outermost.
	var handler http.Handler = registry.BuildServeMux()
	for i := len(b.middleware) - 1; i >= 0; i-- {
		handler = b.middleware[i](handler)
	}

	return &Server{
		config:        b.config,
		routeRegistry: registry,
		httpServer: &http.Server{
			Addr:              b.config.API.Address(),
			Handler:           handler,
			ReadTimeout:       b.config.API.ReadTimeout,
			ReadHeaderTimeout: b.config.API.ReadTimeout,
			WriteTimeout:      b.config.API.WriteTimeout,
		},
		serveErr: make(chan error, 1),
	}, nil
}

// validate ensures all required dependencies are set
func (b *ServerBuilder) validate() error {
	if b.config == nil {
		return errors.New("config is required")
	}
	if b.healthService == nil {
		return errors.New("health service is required")
	}
	if b.embeddingService == nil {
		return errors.New("embedding service is required")
	}
	if b.chatService == nil {
		return errors.New("chat service is required")
	}
	if b.errorHandler == nil {
		return errors.New("error handler is required")
	}
	return nil
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return errors.New("server is already running")
	}

	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	if err := ctx.Err(); err != nil {
		_ = listener.Close()
		return err
	}

	s.listener = listener
	s.httpServer.Addr = listener.Addr().String()
	s.isRunning = true

	go func() {
		err := s.httpServer.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogger.ErrorWithErrorNoCtx(err, "HTTP server stopped unexpectedly", slogger.Fields{
				"address": listener.Addr().String(),
			})
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
			s.serveErr <- err
		}
	}()

	slogger.InfoNoCtx("HTTP server listening", slogger.Fields{"address": s.httpServer.Addr})
	return nil
}

// Errors reports an unexpected Serve failure.
func (s *Server) Errors() <-chan error {
	return s.serveErr
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}
	s.isRunning = false
	return s.httpServer.Shutdown(ctx)
}

// Address returns the server's listening address
func (s *Server) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.httpServer.Addr
}

// ReadTimeout returns the server's read timeout
func (s *Server) ReadTimeout() time.Duration {
	return s.config.API.ReadTimeout
}

// WriteTimeout returns the server's write timeout
func (s *Server) WriteTimeout() time.Duration {
	return s.config.API.WriteTimeout
}

// IsRunning returns whether the server is currently running
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the root handler including middleware.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// HasRoute checks if a specific route is registered
func (s *Server) HasRoute(pattern string) bool {
	return s.routeRegistry.HasRoute(pattern)
}

// RouteCount returns the number of registered routes
func (s *Server) RouteCount() int {
	return s.routeRegistry.RouteCount()
}

// validateServerConfig validates the server configuration
func validateServerConfig(config *config.Config) error {
	if config.API.Port != "" && config.API.Port != "0" {
		if port, err := strconv.Atoi(config.API.Port); err != nil || port < 0 || port > 65535 {
			return errors.New("invalid port")
		}
	}
	if config.API.ReadTimeout < 0 || config.API.WriteTimeout < 0 {
		return errors.New("invalid timeout")
	}
	return nil
}
