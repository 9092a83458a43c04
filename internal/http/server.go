// Package http exposes the analytics engine as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"saldo/internal/amqp"
	"saldo/internal/cache"
	"saldo/internal/dashboard"
	"saldo/internal/log"
	"saldo/internal/metrics"
)

const (
	requestIDHeader = "X-Request-ID"
	requestTimeout  = 30 * time.Second
)

// AnalyticsService is the part of the dashboard service the API serves.
type AnalyticsService interface {
	GetDashboard(ctx context.Context, userID string, year, month int) (*dashboard.Dashboard, error)
	GetEvolution(ctx context.Context, userID string, monthsWindow int) ([]dashboard.MonthlyMetricsRow, error)
	GetNetWorthTrend(ctx context.Context, userID string, monthsWindow int) ([]dashboard.NetWorthPoint, error)
}

type Deps struct {
	Analytics AnalyticsService
	// Exports is optional; without it POST /api/exports answers 503.
	Exports amqp.Publisher
	// Ready is optional and backs /readyz.
	Ready  func(ctx context.Context) error
	Logger *log.Logger

	// DashboardCache overrides the in-process LRU built from CacheTTL and CacheSize.
	DashboardCache cache.Cache[*dashboard.Dashboard]
	CacheTTL       time.Duration
	CacheSize      int
	// AllowedOrigins enables CORS for the listed origins.
	AllowedOrigins []string
	// Metrics is optional; when set it is served on /metrics.
	Metrics *metrics.Metrics
	// RateLimit is the number of POST requests a client may make per minute.
	RateLimit int
	// Now defaults to time.Now; it picks the default year and month.
	Now func() time.Time
}

type Server struct {
	http.Server
	analytics   AnalyticsService
	exports     amqp.Publisher
	ready       func(ctx context.Context) error
	logger      *log.Logger
	now         func() time.Time
	rateLimiter *rateLimiter
	metrics     *metrics.Metrics
	origins     []string

	dashboards cache.Cache[*dashboard.Dashboard]
	cacheMgr   *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and returns a ready-to-run server. Background
// cleanup goroutines start with it and stop in Shutdown.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	rateLimit := deps.RateLimit
	if rateLimit <= 0 {
		rateLimit = 60
	}

	s := &Server{
		analytics:   deps.Analytics,
		exports:     deps.Exports,
		ready:       deps.Ready,
		logger:      logger,
		now:         now,
		rateLimiter: newRateLimiter(rateLimit, time.Minute, now),
		metrics:     deps.Metrics,
		origins:     deps.AllowedOrigins,
		dashboards:  deps.DashboardCache,
		cacheMgr:    cache.NewManager(logger.Slog()),
	}
	if s.dashboards == nil {
		s.dashboards = cache.NewLRUCache[*dashboard.Dashboard](deps.CacheSize, deps.CacheTTL)
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cleaner, ok := s.dashboards.(cache.Cleaner); ok {
		s.cacheMgr.Register(cleaner)
	}
	s.cacheMgr.StartCleanup(10 * time.Minute)
	go s.rateLimiter.startCleanup(5 * time.Minute)

	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(log.Middleware(s.logger))
	r.Use(log.RequestIDMiddleware(func(r *http.Request) string { return middleware.GetReqID(r.Context()) }))
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "Cache-Control", UserIDHeader, requestIDHeader},
			ExposedHeaders: []string{requestIDHeader, "X-Cache", "Retry-After"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/evolution", s.handleEvolution)
		r.Get("/networth", s.handleNetWorth)
		r.With(s.rateLimit).Post("/exports", s.handleExport)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})
	return r
}

// requestID honours an incoming X-Request-ID or assigns a UUID, and exposes it
// through chi's request id context key.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := sanitizeInput(r.Header.Get(requestIDHeader))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		var route string
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		s.metrics.ObserveHTTP(route, r.Method, status, elapsed)
		structured(r).LogHTTPEnd(r.Context(), r, status, elapsed.Milliseconds(), extractClientIP(r))
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := extractClientIP(r)
		if !s.rateLimiter.allow(clientIP) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded", log.FieldClientIP, clientIP)
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops background cleanup and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheMgr.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// structured returns a StructuredLogger bound to the request's logger.
func structured(r *http.Request) *log.StructuredLogger {
	return log.NewStructuredLogger(log.FromContext(r.Context()))
}
