/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server exposes the HTTP surface of the jukebox: health and
// readiness probes, Prometheus metrics, and a small JSON API for status,
// playback tuning, and log inspection.
package server

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_jukebox/internal/config"
	"github.com/friendsincode/skald_jukebox/internal/events"
	"github.com/friendsincode/skald_jukebox/internal/logbuffer"
	"github.com/friendsincode/skald_jukebox/internal/playback"
	"github.com/friendsincode/skald_jukebox/internal/telemetry"
)

// recentEventLimit bounds the in-memory playback event feed.
const recentEventLimit = 200

// Server wires the router, middleware, and handlers around the supervisor.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	supervisor *playback.Supervisor
	logBuffer  *logbuffer.Buffer

	evMu   sync.Mutex
	recent []eventRecord
}

type eventRecord struct {
	Type    events.EventType `json:"type"`
	At      time.Time        `json:"at"`
	Payload events.Payload   `json:"payload,omitempty"`
}

// New constructs the server around an already-built supervisor. It does not
// start listening; the caller runs HTTPServer().ListenAndServe.
func New(cfg *config.Config, sup *playback.Supervisor, bus *events.Bus, logBuf *logbuffer.Buffer, logger zerolog.Logger) *Server {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("skald-jukebox-api"))
	router.Use(telemetry.MetricsMiddleware)
	router.Use(middleware.Timeout(60 * time.Second))

	srv := &Server{
		cfg:        cfg,
		logger:     logger.With().Str("component", "server").Logger(),
		router:     router,
		supervisor: sup,
		logBuffer:  logBuf,
	}

	srv.configureRoutes()
	if bus != nil {
		srv.collectEvents(bus)
	}

	srv.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort),
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return srv
}

// HTTPServer returns the configured http.Server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Router returns the underlying handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Ready means the supervisor reached a terminal-free phase: dormant is
	// still ready, the service degrades rather than fails.
	s.router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		st := s.supervisor.Status()
		if st.Phase == playback.PhaseNotStarted {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "starting",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ready",
			"phase":  string(st.Phase),
		})
	})

	s.router.Handle("/metrics", telemetry.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/jukebox", func(r chi.Router) {
			r.Get("/status", s.handleStatus)
			r.Get("/config", s.handleGetConfig)
			r.Put("/config", s.handleUpdateConfig)
		})
		r.Get("/logs", s.handleLogs)
		r.Get("/events", s.handleEvents)
	})
}

// collectEvents drains the playback event stream into a bounded in-memory
// feed served at /api/v1/events.
func (s *Server) collectEvents(bus *events.Bus) {
	types := []events.EventType{
		events.EventTrackStarted,
		events.EventTrackEnded,
		events.EventTrackSkipped,
		events.EventDormant,
		events.EventConfigUpdated,
		events.EventStopped,
	}
	for _, et := range types {
		go func(et events.EventType, ch events.Subscriber) {
			for payload := range ch {
				s.evMu.Lock()
				s.recent = append(s.recent, eventRecord{Type: et, At: time.Now(), Payload: payload})
				if len(s.recent) > recentEventLimit {
					s.recent = s.recent[len(s.recent)-recentEventLimit:]
				}
				s.evMu.Unlock()
			}
		}(et, bus.Subscribe(et))
	}
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}
