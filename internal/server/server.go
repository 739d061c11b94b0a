package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"composehook/internal/config"
	"composehook/internal/deploy"
	"composehook/internal/stack"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// HTTP server timeouts
	HTTPReadTimeout = 10 * time.Second
	HTTPIdleTimeout = 60 * time.Second

	// RequestTimeout bounds a whole request. Deployments run synchronously
	// inside the request, so this must cover the pull and restart timeouts.
	RequestTimeout = 10 * time.Minute

	// HTTPWriteTimeout must exceed RequestTimeout for the same reason.
	HTTPWriteTimeout = RequestTimeout + 30*time.Second

	// Rate limiting - requests per minute
	GlobalRateLimit  = 30 // Global rate limit per minute
	WebhookRateLimit = 6  // Webhook-specific rate limit per minute
)

// DeployFunc runs a deployment for a stack at a tag and returns the response
// body and HTTP status. Tests substitute a fake to avoid docker invocations.
type DeployFunc func(ctx context.Context, st *stack.Stack, tag string) (map[string]interface{}, int)

// Server represents the HTTP server
type Server struct {
	Registry *stack.Registry
	Config   *config.Config
	Status   *deploy.StatusStore
	Logger   *slog.Logger
	Metrics  *Metrics
	TestMode bool

	// Deploy is the deployment entry point, replaceable in tests.
	Deploy DeployFunc

	promRegistry *prometheus.Registry
}

// NewServer creates a new server instance
func NewServer(registry *stack.Registry, cfg *config.Config, logger *slog.Logger, testMode bool) *Server {
	promRegistry := prometheus.NewRegistry()

	s := &Server{
		Registry:     registry,
		Config:       cfg,
		Status:       deploy.NewStatusStore(deploy.DefaultRecentLimit),
		Logger:       logger,
		Metrics:      NewMetrics(promRegistry),
		TestMode:     testMode,
		promRegistry: promRegistry,
	}
	s.Deploy = s.runDeployment

	return s
}

// Router creates and configures the HTTP router
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(RequestTimeout))

	// Logging middleware
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				s.Logger.Info("http_request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"duration_ms", time.Since(start).Milliseconds())

				// Metrics label the matched route pattern, not the raw
				// path: arbitrary probed URLs must not mint new series.
				route := "unmatched"
				if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
					route = rctx.RoutePattern()
				}
				s.Metrics.ObserveRequest(r.Method, route, ww.Status())
			}()

			next.ServeHTTP(ww, r)
		})
	})

	// Rate limiting middleware (only if not in test mode)
	if !s.TestMode {
		r.Use(NewRateLimitMiddleware(GlobalRateLimit, s.Logger))
	}

	// Health check is routed before any auth; it never requires the token
	r.Get("/health", s.HandleHealth)

	r.Get("/metrics", s.handleMetrics().ServeHTTP)

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(s.RequireToken)

		r.Get("/status", s.HandleStatusAll)
		r.Get("/status/{stackName}", s.HandleStatus)

		// Webhook route with stricter rate limit
		if !s.TestMode {
			r.With(NewWebhookRateLimitMiddleware(WebhookRateLimit, s.Logger)).Post("/deploy", s.HandleDeploy)
		} else {
			r.Post("/deploy", s.HandleDeploy)
		}
	})

	return r
}

// Start starts the HTTP server on the configured address.
func (s *Server) Start() error {
	addr := s.Config.Addr()
	s.Logger.Info("Starting server", "addr", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  HTTPReadTimeout,
		WriteTimeout: HTTPWriteTimeout,
		IdleTimeout:  HTTPIdleTimeout,
	}

	return server.ListenAndServe()
}

func (s *Server) handleMetrics() http.Handler {
	return promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{})
}
