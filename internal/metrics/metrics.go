package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charette_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "charette_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "charette_sessions_created_total",
			Help: "Total charettes created",
		},
	)

	MessagesPosted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charette_messages_posted_total",
			Help: "Total messages posted",
		},
		[]string{"room_type"}, // "main" or "breakout"
	)

	PhaseTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charette_phase_transitions_total",
			Help: "Total phase change commands",
		},
		[]string{"direction"},
	)

	RoomMembership = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charette_room_membership_changes_total",
			Help: "Total breakout room joins and leaves",
		},
		[]string{"op"}, // "join" or "leave"
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charette_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)

	BlockedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charette_blocked_requests_total",
			Help: "Total blocked requests",
		},
		[]string{"reason"},
	)

	// Sync client metrics
	PollTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charette_poll_ticks_total",
			Help: "Total poller callback invocations",
		},
		[]string{"poller"},
	)

	PollPanics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charette_poll_panics_total",
			Help: "Poller callbacks that panicked",
		},
		[]string{"poller"},
	)

	RefreshSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charette_refresh_skipped_total",
			Help: "Refreshes skipped because one for the same key was in flight",
		},
		[]string{"kind"}, // "session" or "messages"
	)

	StaleDiscarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charette_stale_responses_discarded_total",
			Help: "Responses dropped because the view moved on while they were in flight",
		},
		[]string{"kind"},
	)

	RefreshErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charette_refresh_errors_total",
			Help: "Remote calls that failed during a refresh",
		},
		[]string{"kind"},
	)
)
