package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aiox-platform/mentionbot/internal/metrics"
	mw "github.com/aiox-platform/mentionbot/internal/middleware"
)

const readinessTimeout = 3 * time.Second

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	// Memory handlers
	ListMemories   http.HandlerFunc
	CreateMemory   http.HandlerFunc
	SearchMemories http.HandlerFunc
	DeleteMemory   http.HandlerFunc

	// Response records
	ListResponses http.HandlerFunc
	GetResponse   http.HandlerFunc

	// Audit trail and platform lookups
	ListAudit http.HandlerFunc
	GetPost   http.HandlerFunc

	// Manual cycle trigger
	TriggerCycle http.HandlerFunc

	// Auth middleware. When nil the admin API is not mounted.
	AuthMiddleware func(http.Handler) http.Handler
}

// ReadinessCheck reports whether a dependency is usable. Optional checks
// are reported but do not fail readiness.
type ReadinessCheck struct {
	Name     string
	Check    func(ctx context.Context) error
	Optional bool
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	Metrics            *metrics.Metrics
	Gatherer           prometheus.Gatherer
	ReadinessChecks    []ReadinessCheck
	TriggerRateLimiter func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(chimw.Recoverer)
	if cfg.Metrics != nil {
		r.Use(mw.Metrics(cfg.Metrics))
	}
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Liveness probe: always 200, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{"status": "healthy"}
		status := http.StatusOK

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		for _, c := range cfg.ReadinessChecks {
			if c.Check == nil {
				health[c.Name] = "not configured"
				continue
			}
			if err := c.Check(ctx); err != nil {
				health[c.Name] = "unhealthy"
				if !c.Optional {
					health["status"] = "degraded"
					status = http.StatusServiceUnavailable
				}
				continue
			}
			health[c.Name] = "healthy"
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	if h.AuthMiddleware == nil {
		return r
	}

	// API v1 (operator token required)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.AuthMiddleware)

		r.Route("/memories", func(r chi.Router) {
			r.Get("/", h.ListMemories)
			r.Post("/", h.CreateMemory)
			r.Post("/search", h.SearchMemories)
			r.Delete("/{memoryID}", h.DeleteMemory)
		})

		r.Route("/responses", func(r chi.Router) {
			r.Get("/", h.ListResponses)
			r.Get("/{postID}", h.GetResponse)
		})

		if h.ListAudit != nil {
			r.Get("/audit", h.ListAudit)
		}
		if h.GetPost != nil {
			r.Get("/posts/{postID}", h.GetPost)
		}

		r.Group(func(r chi.Router) {
			if cfg.TriggerRateLimiter != nil {
				r.Use(cfg.TriggerRateLimiter)
			}
			r.Post("/cycles/{kind}", h.TriggerCycle)
		})
	})

	return r
}
