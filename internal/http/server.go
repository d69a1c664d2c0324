// Package http serves the calendar, notifications, statistics and
// reconciliation views as JSON.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"medrent/internal/core"
	mlog "medrent/internal/log"
	"medrent/internal/metrics"
	"medrent/internal/middleware/ratelimit"
	"medrent/internal/middleware/security"
	"medrent/internal/middleware/trace"
	"medrent/internal/records"
	"medrent/internal/services"
)

//go:generate mockgen -source=server.go -destination=mocks/mocks.go -package=mocks Refresher

// Refresher produces and updates refresh passes.
type Refresher interface {
	Refresh(ctx context.Context, asOf core.Date) (*services.Pass, error)
	Dismiss(ctx context.Context, notificationID string, actor core.Actor) error
	Latest() (*services.Pass, bool)
	Today() core.Date
}

// requestTimeout bounds one refresh triggered by a request.
const requestTimeout = 10 * time.Second

// Options tune the server. The zero value is usable.
type Options struct {
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   *mlog.Logger

	// WriteLimit is the per-client budget for state-changing requests per minute.
	WriteLimit int
}

type Server struct {
	http.Server
	refresher Refresher
	store     records.Store
	limiter   *ratelimit.Limiter
	clientIP  *security.ClientIP

	shutdownOnce sync.Once
}

// NewServer wires the routes and returns a ready-to-run server.
func NewServer(addr string, refresher Refresher, store records.Store, opts Options) *Server {
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		refresher: refresher,
		store:     store,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerWindow: opts.WriteLimit, Window: time.Minute}),
		clientIP:  security.NewClientIP(),
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	if opts.Logger != nil {
		r.Use(mlog.Middleware(opts.Logger))
	}
	r.Use(trace.NewMiddleware(s.clientIP.Extract, opts.Metrics, opts.Logger).Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		NotFoundError("no such endpoint").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed").Write(w)
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/calendar", s.handleCalendar)
		r.Get("/notifications", s.handleNotifications)
		r.With(s.limiter.Middleware(s.clientIP.Extract, func(w http.ResponseWriter, _ *http.Request) {
			ErrorResponse(http.StatusTooManyRequests, codeRateLimited, "rate limit exceeded, try again later").Write(w)
		})).Post("/notifications/{id}/dismiss", s.handleDismiss)
		r.Get("/stats", s.handleStats)
		r.Get("/analytics", s.handleAnalytics)
		r.Get("/transactions/{kind}/{id}/reconciliation", s.handleReconciliation)
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

// handleReady reports ready once a refresh pass has completed.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	pass, ok := s.refresher.Latest()
	if !ok {
		slog.DebugContext(r.Context(), "Not ready: no refresh pass yet", mlog.FieldComponent, mlog.ComponentHTTP)
		ErrorResponse(http.StatusServiceUnavailable, codeNotReady, "no refresh pass completed yet").Write(w)
		return
	}
	NewJSONResponse().Body(map[string]any{
		"status":       "ready",
		"as_of":        pass.AsOf,
		"completed_at": pass.CompletedAt.UTC(),
	}).Write(w)
}
