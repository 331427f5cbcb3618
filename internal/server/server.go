// Package server exposes the pipeline on an internal HTTP listener.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pool-transcoder/internal/health"
	"pool-transcoder/internal/scheduler"
	"pool-transcoder/pkg/models"
)

// Runs starts pipeline passes in the background.
type Runs interface {
	StartProcess(ctx context.Context, projectID *uuid.UUID) error
	StartRecheck(ctx context.Context, projectID *uuid.UUID) error
}

type StatusReader interface {
	PoolTranscodingStatus(ctx context.Context, projectID uuid.UUID) models.StatusSnapshot
}

type HealthSampler interface {
	GetStats(ctx context.Context) (health.Stats, error)
}

type Server struct {
	httpServer *http.Server
	runs       Runs
	status     StatusReader
	health     HealthSampler
	logger     *zap.Logger
	baseCtx    context.Context
}

// New builds the server. metricsHandler may be nil.
func New(addr string, runs Runs, status StatusReader, sampler HealthSampler, metricsHandler http.Handler, logger *zap.Logger) *Server {
	s := &Server{
		runs:    runs,
		status:  status,
		health:  sampler,
		logger:  logger,
		baseCtx: context.Background(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/runs/transcode", s.handleTranscode)
	mux.HandleFunc("POST /v1/runs/recheck", s.handleRecheck)
	mux.HandleFunc("GET /v1/projects/{id}/transcoding-status", s.handleStatus)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled. Triggered runs inherit ctx.
func (s *Server) Run(ctx context.Context) error {
	s.baseCtx = ctx
	serverErr := make(chan error, 1)

	go func() {
		s.logger.Info("Listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleTranscode(w http.ResponseWriter, r *http.Request) {
	s.startRun(w, r, "transcode", s.runs.StartProcess)
}

func (s *Server) handleRecheck(w http.ResponseWriter, r *http.Request) {
	s.startRun(w, r, "recheck", s.runs.StartRecheck)
}

func (s *Server) startRun(w http.ResponseWriter, r *http.Request, kind string, start func(context.Context, *uuid.UUID) error) {
	var projectID *uuid.UUID
	if raw := r.URL.Query().Get("project"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpError(w, "Invalid project id", http.StatusBadRequest)
			return
		}
		projectID = &id
	}

	if err := start(s.baseCtx, projectID); err != nil {
		if errors.Is(err, scheduler.ErrBusy) {
			httpError(w, err.Error(), http.StatusConflict)
			return
		}
		s.logger.Error("Failed to start run", zap.String("kind", kind), zap.Error(err))
		httpError(w, "Failed to start run", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"status": "started", "run": kind})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpError(w, "Invalid project id", http.StatusBadRequest)
		return
	}

	snap := s.status.PoolTranscodingStatus(r.Context(), projectID)
	code := http.StatusOK
	if !snap.Success {
		code = http.StatusInternalServerError
	}
	respondJSON(w, code, snap)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := s.health.GetStats(r.Context())
	if err != nil {
		s.logger.Warn("Failed to sample host health", zap.Error(err))
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unknown"})
		return
	}

	status := "healthy"
	if stats.IsBusy {
		status = "busy"
	}
	respondJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		health.Stats
	}{status, stats})
}

func respondJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

func httpError(w http.ResponseWriter, message string, code int) {
	respondJSON(w, code, map[string]string{"error": message})
}
