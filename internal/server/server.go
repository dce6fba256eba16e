// Package server exposes the Schedvox HTTP API: the voice conversation
// endpoints, the Google OAuth flow, calendar event creation, and the
// operational endpoints (health probes and Prometheus metrics).
package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/oauth2"

	"github.com/schedvox/schedvox/internal/calendar"
	"github.com/schedvox/schedvox/internal/config"
	"github.com/schedvox/schedvox/internal/dialogue"
	"github.com/schedvox/schedvox/internal/health"
	"github.com/schedvox/schedvox/internal/observe"
)

// Options carries the dependencies of a [Server]. Orchestrator is required;
// everything else degrades gracefully when nil.
type Options struct {
	Orchestrator *dialogue.Orchestrator

	// Metrics records request and calendar instrumentation. Nil disables it.
	Metrics *observe.Metrics

	// OAuth drives the per-user Google consent flow. Nil disables /auth.
	OAuth OAuthFlow

	// NewCalendar builds a calendar service from a session's token source.
	// Nil disables per-user event creation.
	NewCalendar func(ts oauth2.TokenSource) calendar.Service

	// ServiceCalendar is a shared-calendar service used for sessions without
	// their own tokens. May be nil.
	ServiceCalendar calendar.Service

	// Health serves the liveness and readiness probes. Nil registers none.
	Health *health.Handler

	// Scheduling holds the calendar defaults; hot-reloadable via
	// [Server.UpdateScheduling].
	Scheduling config.SchedulingConfig
}

// OAuthFlow is the consent-flow surface the server needs. Implemented by
// [google.OAuthFlow]; a fake stands in for it in tests.
type OAuthFlow interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource
}

// Server is the HTTP API for the scheduling assistant.
type Server struct {
	orch        *dialogue.Orchestrator
	metrics     *observe.Metrics
	oauth       OAuthFlow
	newCalendar func(ts oauth2.TokenSource) calendar.Service
	serviceCal  calendar.Service
	health      *health.Handler

	mu         sync.RWMutex
	scheduling config.SchedulingConfig
}

// New creates a [Server] from opts.
func New(opts Options) *Server {
	return &Server{
		orch:        opts.Orchestrator,
		metrics:     opts.Metrics,
		oauth:       opts.OAuth,
		newCalendar: opts.NewCalendar,
		serviceCal:  opts.ServiceCalendar,
		health:      opts.Health,
		scheduling:  opts.Scheduling,
	}
}

// UpdateScheduling swaps the calendar defaults. Called from the config
// watcher on hot reload.
func (s *Server) UpdateScheduling(sc config.SchedulingConfig) {
	s.mu.Lock()
	s.scheduling = sc
	s.mu.Unlock()
}

// schedulingConfig returns a snapshot of the current calendar defaults.
func (s *Server) schedulingConfig() config.SchedulingConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scheduling
}

// Router assembles the full route table wrapped in the observability
// middleware.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/voice/init", s.handleInit)
	mux.HandleFunc("POST /api/voice/process", s.handleProcess)
	mux.HandleFunc("POST /api/voice/set-details", s.handleSetDetails)
	mux.HandleFunc("POST /api/voice/update", s.handleToolUpdate)
	mux.HandleFunc("GET /api/voice/session/{id}", s.handleGetSession)
	mux.HandleFunc("POST /api/calendar/create", s.handleCreateEvent)

	if s.oauth != nil {
		mux.HandleFunc("GET /auth/url", s.handleAuthURL)
		// Google redirects with GET; some reverse proxies replay as POST.
		mux.HandleFunc("GET /auth/callback", s.handleAuthCallback)
		mux.HandleFunc("POST /auth/callback", s.handleAuthCallback)
	}

	if s.health != nil {
		s.health.Register(mux)
	}
	mux.Handle("GET /metrics", promhttp.Handler())

	if s.metrics != nil {
		return observe.Middleware(s.metrics)(mux)
	}
	return mux
}
