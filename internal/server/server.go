// Package server exposes the HTTP API: uploads, listing, manual edits,
// progress, bulk re-extraction and the spreadsheet export.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mpereira356/propostas-system/internal/async"
	"github.com/mpereira356/propostas-system/internal/common"
	"github.com/mpereira356/propostas-system/internal/export"
	"github.com/mpereira356/propostas-system/internal/ingest"
	"github.com/mpereira356/propostas-system/internal/pipeline"
	"github.com/mpereira356/propostas-system/internal/repository"
)

// Server wires the HTTP handlers to the application services.
type Server struct {
	cfg        common.ServerConfig
	db         *sql.DB
	repo       *repository.PropostaRepository
	intake     *ingest.Service
	queue      *async.Queue
	reextract  *pipeline.Reextractor
	exporter   *export.Service
	uploadDir  string
	maxBodyLen int64
	logger     *slog.Logger
}

func New(cfg common.ServerConfig, db *sql.DB, repo *repository.PropostaRepository,
	intake *ingest.Service, queue *async.Queue, reextract *pipeline.Reextractor,
	exporter *export.Service, uploadDir string, maxBodyLen int64, logger *slog.Logger) *Server {
	return &Server{
		cfg:        cfg,
		db:         db,
		repo:       repo,
		intake:     intake,
		queue:      queue,
		reextract:  reextract,
		exporter:   exporter,
		uploadDir:  uploadDir,
		maxBodyLen: maxBodyLen,
		logger:     logger,
	}
}

// Router builds the chi routing tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealthz)

	r.Route("/api", func(r chi.Router) {
		r.Post("/propostas/upload", s.handleUpload)
		r.Get("/propostas", s.handleList)
		r.Get("/propostas/{id}", s.handleGet)
		r.Put("/propostas/{id}", s.handleUpdate)
		r.Put("/propostas/{id}/observacoes", s.handleObservacoes)
		r.Delete("/propostas/{id}", s.handleDelete)

		r.Get("/dashboard", s.handleDashboard)
		r.Get("/progress", s.handleProgress)
		r.Post("/reextract", s.handleReextractStart)
		r.Get("/reextract/status", s.handleReextractStatus)
		r.Get("/export.xlsx", s.handleExport)
		r.Get("/clientes", s.handleClientes)
	})

	return r
}

// Run serves until ctx is cancelled, then drains with the configured
// shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed_ms", time.Since(start).Milliseconds())
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps the application error taxonomy onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrDuplicate):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
		writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
