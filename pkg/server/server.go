// Package server exposes lookups over HTTP for badge clients.
//
//	GET  /repos/{owner}/{repo}  lookup response
//	POST /maintenance           run a maintenance pass
//	GET  /stats                 counters
//	GET  /healthz               liveness
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/johnsaigle/ghstars/pkg/config"
	"github.com/johnsaigle/ghstars/pkg/lookup"
	"github.com/johnsaigle/ghstars/pkg/maintenance"
	"github.com/johnsaigle/ghstars/pkg/types"
)

// RequestIDHeader carries the per-request identifier.
const RequestIDHeader = "X-Request-Id"

// Looker performs a single lookup.
type Looker interface {
	Lookup(ctx context.Context, key types.RepoKey, settings config.Settings) lookup.Result
}

// Maintainer runs a maintenance pass.
type Maintainer interface {
	Run(ctx context.Context, p maintenance.Policy) (maintenance.Report, error)
}

// StatsSource exposes counter values.
type StatsSource interface {
	Snapshot() map[string]float64
}

// Server serves the HTTP API.
type Server struct {
	looker   Looker
	maint    Maintainer
	stats    StatsSource
	settings config.Settings
	log      *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithStats exposes counters on /stats.
func WithStats(src StatsSource) Option {
	return func(s *Server) {
		s.stats = src
	}
}

// New creates a Server answering with settings.
func New(looker Looker, maint Maintainer, settings config.Settings, opts ...Option) *Server {
	s := &Server{
		looker:   looker,
		maint:    maint,
		settings: settings.Normalize(),
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/repos/{owner}/{repo}", s.handleRepo)
	r.Post("/maintenance", s.handleMaintenance)
	r.Get("/stats", s.handleStats)
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRepo(w http.ResponseWriter, r *http.Request) {
	key, err := types.NewRepoKey(chi.URLParam(r, "owner"), chi.URLParam(r, "repo"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	res := s.looker.Lookup(r.Context(), key, s.settings)

	status := http.StatusOK
	switch res.Kind {
	case lookup.KindNotFound:
		status = http.StatusNotFound
	case lookup.KindFailure:
		status = http.StatusBadGateway
	}
	writeJSON(w, status, res)
}

func (s *Server) handleMaintenance(w http.ResponseWriter, r *http.Request) {
	report, err := s.maint.Run(r.Context(), maintenance.PolicyFor(s.settings))
	if err != nil {
		s.log.Error("maintenance failed", "err", err, "request_id", requestIDFrom(r.Context()))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeJSON(w, http.StatusOK, map[string]float64{})
		return
	}
	writeJSON(w, http.StatusOK, s.stats.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
