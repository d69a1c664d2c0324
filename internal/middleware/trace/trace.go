// Package trace assigns request ids and records one log line and one latency
// observation per served request.
package trace

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mlog "medrent/internal/log"
	"medrent/internal/metrics"
)

// ContextKey type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"

	// RequestIDHeader carries the request id in and out.
	RequestIDHeader = "X-Request-ID"
)

// Middleware handles request tracing and logging
type Middleware struct {
	extractIP func(*http.Request) string
	metrics   *metrics.Metrics
	logger    *mlog.StructuredLogger
	now       func() time.Time
}

// NewMiddleware creates a trace middleware. extractIP and m may be nil.
func NewMiddleware(extractIP func(*http.Request) string, m *metrics.Metrics, logger *mlog.Logger) *Middleware {
	if logger == nil {
		logger = mlog.New(mlog.DefaultConfig())
	}
	return &Middleware{
		extractIP: extractIP,
		metrics:   m,
		logger:    mlog.NewStructuredLogger(logger.WithComponent(mlog.ComponentHTTP)),
		now:       time.Now,
	}
}

// Middleware returns HTTP middleware for request tracing. A caller-supplied
// X-Request-ID is kept when it is a UUID; anything else is replaced.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := m.now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = GenerateRequestID()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		logger := mlog.FromContext(ctx).WithComponent(mlog.ComponentHTTP).With(mlog.FieldRequestID, requestID, mlog.FieldClientIP, clientIP)
		ctx = context.WithValue(ctx, mlog.LoggerContextKey, logger)
		r = r.WithContext(ctx)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := m.now().Sub(start)
		m.metrics.ObserveHTTP(routePattern(r), rw.statusCode, duration)
		m.logger.LogHTTPEnd(ctx, r, rw.statusCode, duration.Milliseconds(), clientIP)
	})
}

// routePattern is the chi pattern that matched, filled in once routing is done.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	return uuid.NewString()
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
