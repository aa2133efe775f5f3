// Package server exposes the admin API over HTTP: generation status, needs
// analysis, manual batch triggers, content search and auth.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/studygen/studygen/internal/batch"
	"github.com/studygen/studygen/internal/budget"
	"github.com/studygen/studygen/internal/models"
	"github.com/studygen/studygen/internal/search"
	"github.com/studygen/studygen/internal/store"
	"github.com/studygen/studygen/internal/telemetry"
)

// StatusStore is the slice of the persistence layer the API reads from.
type StatusStore interface {
	GenerationSummary(ctx context.Context) (store.Summary, error)
	ListRecentRuns(ctx context.Context, limit int) ([]store.GenerationRun, error)
	TopicQuestionCounts(ctx context.Context, subject string) ([]models.TopicGenerationNeed, error)
}

// BatchRunner triggers a batch generation pass, bounded to maxTopics topics
// when it is positive.
type BatchRunner interface {
	Run(ctx context.Context, subject string, maxTopics int) (models.BatchGenerationResult, error)
}

// Searcher answers content queries.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]search.Hit, error)
}

type Server struct {
	store    StatusStore
	auth     *AuthHandler
	runner   BatchRunner
	searcher Searcher
	tracker  *budget.Tracker
	metrics  *telemetry.Metrics
	batchCfg batch.Config
	logger   *log.Logger

	mu         sync.Mutex
	generating bool
}

// New assembles the API server. auth, runner, searcher, tracker and metrics
// may each be nil; the corresponding endpoints degrade or go unprotected.
func New(st StatusStore, auth *AuthHandler, runner BatchRunner, searcher Searcher,
	tracker *budget.Tracker, metrics *telemetry.Metrics, batchCfg batch.Config, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	}
	return &Server{
		store:    st,
		auth:     auth,
		runner:   runner,
		searcher: searcher,
		tracker:  tracker,
		metrics:  metrics,
		batchCfg: batchCfg,
		logger:   logger,
	}
}

// Router builds the echo instance with all middleware and routes.
func (s *Server) Router() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		s.logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, HTTPError{Error: msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))
	} else {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	api := e.Group("/api")
	protected := api.Group("")
	if s.auth != nil {
		s.auth.Register(api.Group("/auth"))
		protected.Use(AuthMiddleware(s.auth.Secret))
	}
	protected.GET("/status", s.handleStatus)
	protected.GET("/needs", s.handleNeeds)
	protected.POST("/generate", s.handleGenerate)
	protected.GET("/runs", s.handleRuns)
	protected.GET("/search", s.handleSearch)

	return e
}

// Start runs the server until the listener fails.
func (s *Server) Start(addr string) error {
	s.logger.Printf("listening on %s", addr)
	return s.Router().Start(addr)
}

func (s *Server) handleStatus(c echo.Context) error {
	sum, err := s.store.GenerationSummary(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := StatusResponse{
		Subjects:       sum.Subjects,
		ActiveTopics:   sum.ActiveTopics,
		TotalQuestions: sum.TotalQuestions,
		QuestionsToday: sum.QuestionsToday,
		ExamPapers:     sum.ExamPapers,
		AvgQuality:     sum.AvgQuality,
	}
	if s.tracker != nil {
		resp.BudgetUsed = s.tracker.Used()
		resp.BudgetLimit = s.tracker.Limit()
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleNeeds(c echo.Context) error {
	subject := c.QueryParam("subject")
	needs, err := batch.AnalyzeNeeds(c.Request().Context(), s.store, s.batchCfg, subject)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	out := make([]NeedResponse, 0, len(needs))
	for _, n := range needs {
		out = append(out, NeedResponse{
			TopicID:         n.Topic.ID,
			Title:           n.Topic.Title,
			Subject:         n.Topic.SubjectName,
			CurrentCount:    n.CurrentCount,
			NeededQuestions: n.NeededQuestions,
			Priority:        n.Priority,
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleGenerate(c echo.Context) error {
	if s.runner == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "generation not configured")
	}
	var req GenerateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.MaxTopics < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "max_topics must not be negative")
	}

	s.mu.Lock()
	if s.generating {
		s.mu.Unlock()
		return echo.NewHTTPError(http.StatusConflict, "generation already running")
	}
	s.generating = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.generating = false
		s.mu.Unlock()
	}()

	result, err := s.runner.Run(c.Request().Context(), req.Subject, req.MaxTopics)
	if err != nil {
		var exceeded budget.ErrExceeded
		if errors.As(err, &exceeded) {
			return echo.NewHTTPError(http.StatusTooManyRequests, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, GenerateResponse{
		TopicsProcessed:     result.TopicsProcessed,
		SuccessfulTopics:    result.SuccessfulTopics,
		FailedTopics:        result.FailedTopics,
		QuestionsGenerated:  result.QuestionsGenerated,
		AverageQualityScore: result.AverageQualityScore,
		ProcessingTimeMs:    result.ProcessingTime.Milliseconds(),
		Errors:              result.Errors,
	})
}

func (s *Server) handleRuns(c echo.Context) error {
	limit := 20
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}
	runs, err := s.store.ListRecentRuns(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	out := make([]RunResponse, 0, len(runs))
	for _, r := range runs {
		out = append(out, RunResponse{
			ID:                 r.ID,
			Trigger:            r.Trigger,
			Subject:            r.Subject,
			Status:             r.Status,
			QuestionsGenerated: r.Questions,
			StartedAt:          r.StartedAt,
			FinishedAt:         r.FinishedAt,
			Error:              r.Error,
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleSearch(c echo.Context) error {
	if s.searcher == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "search not configured")
	}
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing query parameter q")
	}
	k := 10
	if v := c.QueryParam("k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid k")
		}
		k = n
	}
	hits, err := s.searcher.Search(c.Request().Context(), query, k)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, hits)
}
