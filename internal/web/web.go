// Package web serves the device's status surface: a health probe, the
// last decoded schedule as JSON, its iCalendar re-export for calendar
// subscriptions, and Prometheus metrics.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/losredoe132/muellabfuhr-reminder/internal/config"
	"github.com/losredoe132/muellabfuhr-reminder/internal/export"
	"github.com/losredoe132/muellabfuhr-reminder/internal/log"
	"github.com/losredoe132/muellabfuhr-reminder/internal/model"
)

// Server holds the latest schedule snapshot and serves it over HTTP.
// It doubles as a schedule sink so every refresh updates what clients
// see.
type Server struct {
	cfg *config.Config
	mux *http.ServeMux

	metricsHandler http.Handler

	mu        sync.RWMutex
	sched     *model.Schedule
	linkState string
	lastError string
}

// NewServer constructs a Server. metricsHandler may be nil, which
// disables the /metrics route.
func NewServer(cfg *config.Config, metricsHandler http.Handler) *Server {
	s := &Server{
		cfg:            cfg,
		mux:            http.NewServeMux(),
		metricsHandler: metricsHandler,
		linkState:      "disconnected",
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/schedule", s.handleSchedule)
	s.mux.HandleFunc("/calendar.ics", s.handleCalendar)
	if s.metricsHandler != nil {
		s.mux.Handle("/metrics", s.metricsHandler)
	}
}

// Handler returns the server's http.Handler, wrapped with basic auth
// when credentials are configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		log.Info("http basic auth enabled")
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.Listen, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Info("http server listening", "listen", "http://"+s.cfg.Listen)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware guards all handlers except /health, which stays
// open for liveness probes.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="muellabfuhr", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Name implements the schedule sink.
func (s *Server) Name() string { return "web" }

// Publish stores the schedule snapshot served by the API routes.
func (s *Server) Publish(_ context.Context, sched model.Schedule) error {
	s.mu.Lock()
	s.sched = &sched
	s.lastError = ""
	s.mu.Unlock()
	return nil
}

// SetLinkState records the supervisor's current state for the status
// response.
func (s *Server) SetLinkState(state string) {
	s.mu.Lock()
	s.linkState = state
	s.mu.Unlock()
}

// RecordFailure surfaces the last refresh failure in the status
// response until the next successful refresh.
func (s *Server) RecordFailure(err error) {
	s.mu.Lock()
	s.lastError = err.Error()
	s.mu.Unlock()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// scheduleResponse is the JSON shape of /api/schedule.
type scheduleResponse struct {
	LinkState string              `json:"link_state"`
	FetchedAt *time.Time          `json:"fetched_at,omitempty"`
	Events    []model.PickupEvent `json:"events"`
	LastError string              `json:"last_error,omitempty"`
}

func (s *Server) handleSchedule(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	sched := s.sched
	linkState := s.linkState
	lastError := s.lastError
	s.mu.RUnlock()

	resp := scheduleResponse{
		LinkState: linkState,
		Events:    []model.PickupEvent{},
		LastError: lastError,
	}
	if sched != nil {
		t := sched.FetchedAt
		resp.FetchedAt = &t
		resp.Events = sched.Events
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCalendar(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	sched := s.sched
	s.mu.RUnlock()

	if sched == nil {
		writeError(w, http.StatusServiceUnavailable, "no schedule fetched yet")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(export.ICS(*sched)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
