package api

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/let-userName-Brian/exempla-ai/internal/application/common/logging"
	"github.com/let-userName-Brian/exempla-ai/internal/application/common/slogger"
	"github.com/let-userName-Brian/exempla-ai/internal/application/dto"
)

// MiddlewareFunc defines the middleware function signature
type MiddlewareFunc func(http.Handler) http.Handler

// requestIDKey is the context key for request IDs
type requestIDKey struct{}

// GetRequestID extracts the request ID from the context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// SetRequestID sets the request ID in the context
func SetRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// NewLoggingMiddleware logs every request and propagates a request id that
// doubles as the log correlation id.
func NewLoggingMiddleware() MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}

			ctx := SetRequestID(r.Context(), requestID)
			ctx = logging.WithCorrelationID(ctx, requestID)
			r = r.WithContext(ctx)
			w.Header().Set("X-Request-ID", requestID)

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			fields := slogger.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      wrapped.statusCode,
				"duration_ms": time.Since(start).Milliseconds(),
				"user_agent":  r.Header.Get("User-Agent"),
				"remote_ip":   clientIP(r),
			}
			if r.URL.RawQuery != "" {
				fields["query"] = r.URL.RawQuery
			}
			slogger.Info(ctx, "HTTP request completed", fields)
		})
	}
}

// NewCORSMiddleware adds CORS headers
func NewCORSMiddleware() MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

			allowedHeaders := "Content-Type, Authorization"
			if requestedHeaders := r.Header.Get("Access-Control-Request-Headers"); requestedHeaders != "" {
				allowedHeaders += ", " + requestedHeaders
			}
			w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Max-Age", "86400")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// NewErrorHandlingMiddleware recovers handler panics as 500 responses.
func NewErrorHandlingMiddleware() MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					requestID := GetRequestID(r.Context())
					slogger.Error(r.Context(), "Panic recovered in HTTP handler", slogger.Fields{
						"request_id": requestID,
						"method":     r.Method,
						"path":       r.URL.Path,
						"panic":      err,
					})

					if requestID != "" {
						w.Header().Set("X-Request-ID", requestID)
					}
					_ = WriteJSON(w, http.StatusInternalServerError,
						dto.NewErrorResponse(dto.ErrorCodeInternalError, "Internal Server Error", nil))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// clientIP prefers the first X-Forwarded-For entry, then RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, ip := range strings.Split(xff, ",") {
			if ip = strings.TrimSpace(ip); net.ParseIP(ip) != nil {
				return ip
			}
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
