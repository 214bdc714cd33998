package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"storyweave/internal/httpapi/auth"
	"storyweave/internal/observability"
	"storyweave/internal/session"
	"storyweave/pkg/config"
)

// NewRouter wires every endpoint in spec §6 onto a chi.Router, following
// the teacher's Router.Setup layout (request-ID/recoverer/logger
// middleware, then CORS, then routes). Auth is installed only when
// cfg.Auth.Enabled is set. metrics may be nil to disable instrumentation
// (used by tests that don't care about /metrics).
func NewRouter(registry *session.Registry, cfg config.Config, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := New(registry, cfg.Session, metrics, logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(logger))
	if metrics != nil {
		r.Use(metricsMiddleware(metrics, registry))
		r.Handle(cfg.Server.MetricsPath, promhttp.Handler())
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: cfg.CORS.AllowedMethods,
		AllowedHeaders: cfg.CORS.AllowedHeaders,
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)
	r.Get("/sessions", h.ListSessions)

	r.Group(func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(auth.NewValidator(cfg.Auth.Secret).Middleware())
		}

		r.Post("/initialize", h.Initialize)
		r.Post("/enhance_prompt", h.EnhancePrompt)
		r.Post("/update_memory", h.UpdateMemory)
		r.Post("/process_conversation", h.ProcessConversation)
		r.Post("/sync_conversation", h.SyncConversation)

		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/stats", h.SessionStats)
			r.Post("/reset", h.ResetSession)
			r.Get("/export", h.ExportSession)
		})
	})

	return r
}

// metricsMiddleware records request latency and refreshes the
// active-session gauge from the registry on every request.
func metricsMiddleware(metrics *observability.Metrics, registry *session.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			metrics.RecordRequest(r.URL.Path, strconv.Itoa(ww.Status()), time.Since(start))
			metrics.SetActiveSessions(registry.Count())
		})
	}
}

// requestLogger logs each request's method, path, and status at Debug,
// matching the teacher's middleware.Logger shape.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
			)
		})
	}
}
