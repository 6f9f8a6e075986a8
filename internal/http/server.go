// Package http provides the chaind HTTP API.
package http

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fathomlabs/chaind/internal/chain"
	"github.com/fathomlabs/chaind/internal/store"
)

// Library resolves custom chain definitions by name.
type Library interface {
	Lookup(name string) (*chain.Definition, bool)
	Names() []string
}

// Notifier delivers run completion notifications.
type Notifier interface {
	Notify(ctx context.Context, run *store.Run)
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// DefaultMode is used when a run request names no mode.
	DefaultMode chain.Mode

	// RateLimit caps API requests per second per client IP. 0 disables limiting.
	RateLimit float64
}

// Server provides HTTP endpoints for chaind.
type Server struct {
	echo         *echo.Echo
	orchestrator *chain.Orchestrator
	store        *store.Store
	library      Library
	notifier     Notifier
	logger       *zap.Logger
	config       *Config
}

// NewServer creates a new HTTP server. library and notifier may be nil.
func NewServer(orch *chain.Orchestrator, st *store.Store, library Library, notifier Notifier, logger *zap.Logger, cfg *Config) (*Server, error) {
	if orch == nil {
		return nil, fmt.Errorf("orchestrator cannot be nil")
	}
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 9430, DefaultMode: chain.ModeSimulated}
	}
	if cfg.DefaultMode == "" {
		cfg.DefaultMode = chain.ModeSimulated
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})
	e.Use(NewHTTPMetrics(logger).MetricsMiddleware())

	s := &Server{
		echo:         e,
		orchestrator: orch,
		store:        st,
		library:      library,
		notifier:     notifier,
		logger:       logger,
		config:       cfg,
	}
	s.registerRoutes()

	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	if s.config.RateLimit > 0 {
		v1.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(s.config.RateLimit))))
	}
	v1.GET("/chains", s.handleListChains)
	v1.POST("/chains/:name/runs", s.handleRunChain)
	v1.GET("/runs", s.handleListRuns)
	v1.GET("/runs/:id", s.handleGetRun)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleListChains(c echo.Context) error {
	resp := ChainsResponse{Templates: chain.TemplateNames()}
	if s.library != nil {
		resp.Custom = s.library.Names()
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleRunChain(c echo.Context) error {
	name := c.Param("name")

	var req RunRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid run request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.RepositoryRoot == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "repository_root field is required")
	}

	mode := s.config.DefaultMode
	if req.Mode != "" {
		mode = chain.Mode(req.Mode)
		if !chain.ValidMode(mode) {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown mode %q", req.Mode))
		}
	}

	def, err := s.resolveDefinition(name, &req)
	if err != nil {
		if errors.Is(err, chain.ErrUnknownTemplate) {
			return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("unknown chain %q", name))
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	start := time.Now()
	result, err := s.orchestrator.ExecuteChain(c.Request().Context(), def, req.RepositoryRoot, mode)
	if err != nil {
		switch {
		case errors.Is(err, chain.ErrNoSteps), errors.Is(err, chain.ErrRepositoryRootMissing):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			s.logger.Error("chain execution failed", zap.String("chain", name), zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "chain execution failed")
		}
	}
	elapsed := time.Since(start)

	run := &store.Run{
		Mode:            mode,
		RepositoryRoot:  req.RepositoryRoot,
		Result:          result,
		ExecutionTimeMs: elapsed.Milliseconds(),
		StartedAt:       start,
		FinishedAt:      start.Add(elapsed),
	}
	runID, err := s.store.RecordRun(c.Request().Context(), run)
	if err != nil {
		// The run already happened; return the result even if persistence failed.
		s.logger.Error("failed to record run", zap.String("chain", name), zap.Error(err))
	}

	if s.notifier != nil {
		go s.notifier.Notify(context.WithoutCancel(c.Request().Context()), run)
	}

	return c.JSON(http.StatusOK, RunResponse{
		RunID:           runID,
		ChainName:       result.ChainName,
		Status:          result.Status,
		CompletedSteps:  result.CompletedSteps,
		TotalSteps:      result.TotalSteps,
		Steps:           result.Results,
		FinalState:      result.FinalState,
		ExecutionTimeMs: elapsed.Milliseconds(),
		Error:           result.Error,
	})
}

// resolveDefinition finds the chain to run: built-in template first, then the
// custom chain library, then ad-hoc steps from the request body.
func (s *Server) resolveDefinition(name string, req *RunRequest) (*chain.Definition, error) {
	def, err := chain.NewTemplate(name)
	if err == nil {
		return withInitialState(def, req.InitialState), nil
	}

	if s.library != nil {
		if libDef, ok := s.library.Lookup(name); ok {
			return withInitialState(libDef, req.InitialState), nil
		}
	}

	if len(req.Steps) > 0 {
		return chain.NewCustomDefinition(name, req.Steps, req.InitialState)
	}

	return nil, err
}

// withInitialState overlays request state onto a definition's own initial
// state without mutating the shared definition.
func withInitialState(def *chain.Definition, state map[string]any) *chain.Definition {
	if len(state) == 0 {
		return def
	}
	merged := make(map[string]any, len(def.InitialState)+len(state))
	maps.Copy(merged, def.InitialState)
	maps.Copy(merged, state)

	clone := *def
	clone.InitialState = merged
	return &clone
}

func (s *Server) handleListRuns(c echo.Context) error {
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}

	runs, err := s.store.ListRuns(c.Request().Context(), limit)
	if err != nil {
		s.logger.Error("failed to list runs", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list runs")
	}
	return c.JSON(http.StatusOK, runs)
}

func (s *Server) handleGetRun(c echo.Context) error {
	id := c.Param("id")
	run, err := s.store.GetRun(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("run %q not found", id))
		}
		s.logger.Error("failed to load run", zap.String("id", id), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load run")
	}
	return c.JSON(http.StatusOK, run)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
