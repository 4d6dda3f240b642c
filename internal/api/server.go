package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/ktweb-minutes/internal/config"
	"github.com/JakeFAU/ktweb-minutes/internal/logging"
	"github.com/JakeFAU/ktweb-minutes/internal/metrics"
	"github.com/JakeFAU/ktweb-minutes/internal/store"
)

const (
	pathPrefix     = "/v0"
	readyTimeout   = 2 * time.Second
	defaultTimeout = 60 * time.Second
)

// Server wires HTTP handlers to a repository.
type Server struct {
	router chi.Router
	repo   store.Repository
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes. A nil repo is
// allowed; data routes then answer 503.
func NewServer(repo store.Repository, cfg config.Config, logger *zap.Logger) *Server {
	s := &Server{
		repo:   repo,
		logger: logging.OrNop(logger).Named("api"),
	}
	timeout := cfg.RequestTimeout()
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(recoverMiddleware(s.logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(timeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route(pathPrefix, func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Use(s.requireRepo)
		r.Get("/policymaker/", s.listPolicymakers)
		r.Get("/policymaker/{id}/", s.getPolicymaker)
		r.Get("/meeting/", s.listMeetings)
		r.Get("/meeting/{id}/", s.getMeeting)
		r.Get("/meeting_document/", s.listMeetingDocuments)
		r.Get("/meeting_document/{id}/", s.getMeetingDocument)
		r.Get("/agenda_item/", s.listAgendaItems)
		r.Get("/agenda_item/{id}/", s.getAgendaItem)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "repository unavailable")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	if err := s.repo.Ping(ctx); err != nil {
		s.logger.Warn("readiness check failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "repository unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) requireRepo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.repo == nil {
			writeError(w, http.StatusServiceUnavailable, "repository unavailable")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
