// Package api provides the HTTP front end for sentinews.
//
// It exposes the pipeline over a JSON endpoint, serves recorded runs when a
// run store is configured, and streams stage progress over WebSocket.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/seenimoa/sentinews/internal/config"
	"github.com/seenimoa/sentinews/internal/logging"
	"github.com/seenimoa/sentinews/internal/pipeline"
	"github.com/seenimoa/sentinews/internal/store"
	"github.com/seenimoa/sentinews/pkg/models"
)

// Version is reported by the health endpoint. It is set by the CLI.
var Version = "dev"

// RunTimeout bounds a single run started through the API.
const RunTimeout = 5 * time.Minute

// Runner executes one pipeline run from raw request input.
type Runner interface {
	RunQuery(ctx context.Context, keyword, start, end string, obs pipeline.Observer) (*models.PipelineResult, error)
}

// History serves recorded runs.
type History interface {
	GetRun(ctx context.Context, id string) (*models.PipelineResult, error)
	ListRuns(ctx context.Context, limit int) ([]store.RunSummary, error)
}

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	cfg     *config.Config
	runner  Runner
	history History
	wsHub   *WSHub
	log     *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithHistory enables the run history endpoints.
func WithHistory(h History) Option {
	return func(s *Server) { s.history = h }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, runner Runner, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		runner: runner,
		wsHub:  NewWSHub(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logging.Or(s.log)
	s.router = s.buildRouter()
	return s
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server and shuts it down gracefully when ctx
// is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: RunTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go s.wsHub.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("api listening", "addr", addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	// HTML form front end
	r.Get("/", s.handleIndex)
	r.With(middleware.Timeout(RunTimeout+10*time.Second)).Post("/results", s.handleResults)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(RunTimeout + 10*time.Second))

			r.Get("/health", s.handleHealth)

			// Analysis
			r.Post("/analyze", s.handleAnalyze)

			// Run history
			r.Get("/runs", s.handleListRuns)
			r.Get("/runs/{id}", s.handleGetRun)
			r.Get("/runs/{id}/report", s.handleRunReport)

			// Configuration
			r.Get("/config", s.handleGetConfig)
			r.Get("/config/keys", s.handleGetConfigKeys)
		})

		// WebSocket
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// requestLogger logs one line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Millisecond),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AnalyzeRequest is the body for POST /api/v1/analyze and the data of a
// start_analysis WebSocket message. Dates are YYYY-MM-DD or YYYYMMDD.
type AnalyzeRequest struct {
	Keyword   string `json:"keyword"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"status":     "ok",
			"version":    Version,
			"time":       time.Now().UTC().Format(time.RFC3339),
			"ws_clients": s.wsHub.ClientCount(),
			"history":    s.history != nil,
		},
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), RunTimeout)
	defer cancel()

	res, err := s.runner.RunQuery(ctx, req.Keyword, req.StartDate, req.EndDate, nil)
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Notify WebSocket listeners
	s.wsHub.Broadcast(WSMessage{
		Type: "run_finished",
		Data: map[string]any{
			"run_id":   res.RunID,
			"keyword":  res.Keyword,
			"status":   res.Status,
			"negative": res.Stats.Negative,
		},
	})

	writeJSON(w, http.StatusOK, APIResponse{
		Success: res.OK(),
		Data:    res,
		Error:   res.Error,
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotImplemented, "run history is not enabled")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.history.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []store.RunSummary{}
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotImplemented, "run history is not enabled")
		return
	}
	id := chi.URLParam(r, "id")
	res, err := s.history.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found: "+id)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: res})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
