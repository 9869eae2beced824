package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/charette/internal/api/middleware"
	"github.com/eldtechnologies/charette/internal/charette"
	"github.com/eldtechnologies/charette/internal/handlers"
)

// maxBodyBytes bounds request bodies; the largest is a batch of breakout questions.
const maxBodyBytes = 64 * 1024

// Options configures the router.
type Options struct {
	// Checks are the stores pinged by /health.
	Checks map[string]handlers.Pinger
	// Redis enables rate limiting when set.
	Redis        *redis.Client
	RateLimit    middleware.RateLimiterConfig
	PollInterval time.Duration
}

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, svc *charette.Service, opts Options) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(maxBodyBytes))
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// Rate limiting needs Redis; the embedded stores run without it
	if opts.Redis != nil {
		limiter := middleware.NewRateLimiter(opts.Redis, logger, opts.RateLimit)
		r.Use(limiter.Middleware)
	}

	// CORS - browser front ends poll from their own origin
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.UserHeader, handlers.RoleHeader},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(svc, opts.Checks, opts.PollInterval)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/health", h.Health)
	r.Get("/api", h.Root)
	r.Get("/api/stats", h.Stats)

	r.Route("/api/charettes", func(r chi.Router) {
		r.Get("/", h.ListCharettes)
		r.Post("/", h.CreateCharette)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetCharette)
			r.Patch("/", h.UpdateCharette)
			r.Delete("/", h.DeleteCharette)

			r.Post("/participants", h.AddParticipant)
			r.Post("/phase", h.AdvancePhase)
			r.Get("/search", h.Search)

			r.Get("/rooms/{room}/messages", h.ListMessages)
			r.Post("/rooms/{room}/messages", h.PostMessage)
			r.Post("/rooms/{room}/analysis", h.Analyze)

			r.Post("/breakout-rooms", h.CreateBreakoutRooms)
			r.Post("/breakout-rooms/{room}/join", h.JoinRoom)
			r.Post("/breakout-rooms/{room}/leave", h.LeaveRoom)
		})
	})

	return r
}
