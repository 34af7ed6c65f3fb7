package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihandler "github.com/newthinker/scorecard/internal/api/handler/api"
	"github.com/newthinker/scorecard/internal/api/job"
	"github.com/newthinker/scorecard/internal/api/middleware"
	"github.com/newthinker/scorecard/internal/api/response"
	"github.com/newthinker/scorecard/internal/app"
	"github.com/newthinker/scorecard/internal/metrics"
	"github.com/newthinker/scorecard/internal/scoring"
	"github.com/newthinker/scorecard/internal/storage/score"
)

// Server represents the scorecard HTTP server.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	jobs       *job.Store
	started    time.Time
	deps       Dependencies
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	APIKey      string
	MaxJobs     int
	JobTTL      time.Duration
	MetricsPath string // empty disables /metrics
}

// Dependencies are the components the handlers serve.
type Dependencies struct {
	App        *app.App
	Service    *scoring.Service
	ScoreStore score.Store
	Metrics    *metrics.Registry
}

// NewServer creates a new HTTP server.
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.Service == nil {
		return nil, fmt.Errorf("scoring service is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxJobs <= 0 {
		cfg.MaxJobs = 100
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = time.Hour
	}

	mux := http.NewServeMux()
	s := &Server{
		logger:  logger,
		mux:     mux,
		jobs:    job.NewStore(cfg.MaxJobs, cfg.JobTTL),
		started: time.Now(),
		deps:    deps,
	}

	s.setupRoutes(cfg)

	var handler http.Handler = mux
	if deps.Metrics != nil {
		handler = metrics.HTTPMiddleware(deps.Metrics)(handler)
	}
	handler = metrics.LoggingMiddleware(logger)(handler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // live scoring waits on EDGAR
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes(cfg Config) {
	auth := middleware.APIKeyAuth(cfg.APIKey)
	protect := func(pattern string, h http.HandlerFunc) {
		s.mux.Handle(pattern, auth(h))
	}

	scores := apihandler.NewScoreHandler(s.deps.Service, s.deps.ScoreStore)
	rulesHandler := apihandler.NewRulesHandler(s.deps.Service.Engine())

	var watchlist apihandler.WatchlistApp
	if s.deps.App != nil {
		watchlist = s.deps.App
	}
	batch := apihandler.NewBatchHandler(s.jobs, s.deps.Service, watchlist, s.deps.Metrics, s.logger)

	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	if cfg.MetricsPath != "" && s.deps.Metrics != nil {
		s.mux.Handle("GET "+cfg.MetricsPath, promhttp.HandlerFor(s.deps.Metrics, promhttp.HandlerOpts{}))
	}

	protect("POST /api/v1/score", scores.Score)
	protect("GET /api/v1/score/{ticker}", func(w http.ResponseWriter, r *http.Request) {
		scores.Get(w, r, r.PathValue("ticker"))
	})
	protect("GET /api/v1/scores", scores.List)
	protect("GET /api/v1/rules", rulesHandler.List)

	protect("POST /api/v1/batch", batch.Create)
	protect("GET /api/v1/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		batch.GetStatus(w, r, r.PathValue("id"))
	})

	if s.deps.App != nil {
		wl := apihandler.NewWatchlistHandler(s.deps.App)
		protect("GET /api/v1/watchlist", wl.List)
		protect("POST /api/v1/watchlist", wl.Add)
		protect("DELETE /api/v1/watchlist/{ticker}", func(w http.ResponseWriter, r *http.Request) {
			wl.Remove(w, r, r.PathValue("ticker"))
		})
		protect("GET /api/v1/status", s.handleStatus)
	}
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server and expires finished jobs until shutdown.
func (s *Server) Start() error {
	stop := make(chan struct{})
	defer close(stop)
	go s.expireJobs(stop)

	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) expireJobs(stop <-chan struct{}) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if n := s.jobs.Cleanup(); n > 0 {
				s.logger.Debug("expired jobs", zap.Int("count", n))
			}
			if s.deps.Metrics != nil {
				s.deps.Metrics.SetJobsActive(s.jobs.Active())
			}
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, s.deps.App.GetStats())
}
