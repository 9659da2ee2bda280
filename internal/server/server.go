// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes pipeline runs, uploads, and exports over HTTP.
// Runs execute in the background, one at a time.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/paper-reader/internal/ledger"
	"github.com/pdiddy/paper-reader/internal/metrics"
	"github.com/pdiddy/paper-reader/internal/pipeline"
	"github.com/pdiddy/paper-reader/pkg/types"
)

// maxUploadBytes caps a single multipart upload.
const maxUploadBytes = 256 << 20

// Overrides are per-run credentials supplied with POST /runs. Empty
// fields keep the configured values.
type Overrides struct {
	OpenAIAPIKey   string `json:"openai_api_key"`
	OpenAIBaseURL  string `json:"openai_base_url"`
	ElsevierAPIKey string `json:"elsevier_api_key"`
}

// RunFunc executes one full pipeline run. It calls started with the run
// identifier as soon as one is assigned.
type RunFunc func(ctx context.Context, o Overrides, started func(runID string)) (pipeline.RunResult, error)

// History reads past runs. *ledger.Ledger satisfies it.
type History interface {
	Run(ctx context.Context, id string) (types.RunRecord, error)
	LastRun(ctx context.Context) (types.RunRecord, error)
	Runs(ctx context.Context, limit int) ([]types.RunRecord, error)
	Outcomes(ctx context.Context, runID string) ([]types.Outcome, error)
}

// Config wires a Server. Run and Paths are required.
type Config struct {
	Run     RunFunc
	Paths   types.PathsConfig
	History History
	Metrics *metrics.Metrics
	Log     logrus.FieldLogger
}

// Server is the HTTP front end of the pipeline.
type Server struct {
	cfg    Config
	guard  *pipeline.Guard
	router chi.Router
	log    logrus.FieldLogger

	// ctx outlives requests so background runs are not cancelled when the
	// triggering request completes.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds the router.
func New(cfg Config) *Server {
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:    cfg,
		guard:  pipeline.NewGuard(),
		log:    cfg.Log,
		ctx:    ctx,
		cancel: cancel,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/status", s.handleStatus)
	r.Post("/runs", s.handleStartRun)
	r.Get("/runs", s.handleListRuns)
	r.Get("/runs/{id}", s.handleGetRun)
	r.Get("/exports/latest", s.handleLatestExport)
	r.Post("/uploads/identifiers", s.handleUploadIdentifiers)
	r.Post("/uploads/pdfs", s.handleUploadPDFs)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Guard exposes the run guard.
func (s *Server) Guard() *pipeline.Guard {
	return s.guard
}

// Wait blocks until background runs have finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// and waits for an active run to finish.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.log.Info("waiting for active run to finish")
	s.Wait()
	s.cancel()
	return err
}

// observe logs each request and records it against its route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		latency := time.Since(start)
		s.cfg.Metrics.ObserveRequest(r.Method, route, status, latency)
		s.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     status,
			"latency":    latency.String(),
			"request_id": middleware.GetReqID(r.Context()),
		}).Info("http request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

var errNoHistory = errors.New("run history disabled")

func (s *Server) history() (History, error) {
	if s.cfg.History == nil {
		return nil, errNoHistory
	}
	return s.cfg.History, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ledger.ErrNoRuns)
}
