// Package http provides the HTTP API for threadbank.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/threadbank/internal/corpus"
	"github.com/fyrsmithlabs/threadbank/internal/document"
	"github.com/fyrsmithlabs/threadbank/internal/piiscan"
	"github.com/fyrsmithlabs/threadbank/internal/queue"
	"github.com/fyrsmithlabs/threadbank/internal/store"
)

const defaultTopK = 10

// Server provides HTTP endpoints over the corpus service.
type Server struct {
	echo    *echo.Echo
	svc     corpus.Service
	metrics *Metrics
	logger  *zap.Logger
	config  *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new HTTP server.
func NewServer(svc corpus.Service, logger *zap.Logger, cfg *Config) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("corpus service cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9180,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	metrics := NewMetrics(logger)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(metrics.Middleware())
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

	s := &Server{
		echo:    e,
		svc:     svc,
		metrics: metrics,
		logger:  logger,
		config:  cfg,
	}
	s.registerRoutes()
	return s, nil
}

// Echo exposes the underlying router for extra route registration.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/documents", s.handleUpsert)
	v1.GET("/documents", s.handleList)
	v1.GET("/documents/:id", s.handleGet)
	v1.DELETE("/documents/:id", s.handleDelete)
	v1.GET("/documents/:id/similar", s.handleSimilar)
	v1.GET("/search", s.handleSearch)
	v1.POST("/scan", s.handleScan)
	v1.GET("/queue", s.handleQueueList)
	v1.POST("/queue/:id/cancel", s.handleQueueCancel)
	v1.POST("/queue/:id/reset", s.handleQueueReset)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// UpsertResponse is the response body for POST /api/v1/documents.
type UpsertResponse struct {
	ID     string `json:"id"`
	Result string `json:"result"`
}

// MatchResponse is one entry of a similar or search response.
type MatchResponse struct {
	ID        string  `json:"id"`
	Score     float64 `json:"score"`
	MatchType string  `json:"match_type"`
	Snippet   string  `json:"snippet,omitempty"`
}

// ScanRequest is the request body for POST /api/v1/scan.
type ScanRequest struct {
	Text string `json:"text"`
}

// ScanResponse is the response body for POST /api/v1/scan.
type ScanResponse struct {
	Findings []piiscan.Finding `json:"findings"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleUpsert(c echo.Context) error {
	var doc document.Document
	if err := c.Bind(&doc); err != nil {
		s.logger.Warn("invalid upsert request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := s.svc.Upsert(c.Request().Context(), &doc)
	if err != nil {
		if errors.Is(err, store.ErrMissingID) {
			return echo.NewHTTPError(http.StatusBadRequest, "id field is required")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "upsert failed")
	}

	status := http.StatusOK
	if result == store.Inserted {
		status = http.StatusCreated
	}
	return c.JSON(status, UpsertResponse{ID: doc.ID, Result: result.String()})
}

func (s *Server) handleGet(c echo.Context) error {
	doc, err := s.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, corpus.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "document not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "lookup failed")
	}
	return c.JSON(http.StatusOK, doc)
}

func (s *Server) handleList(c echo.Context) error {
	filter := store.Filter{
		Status:   c.QueryParam("status"),
		Category: c.QueryParam("category"),
		Tag:      c.QueryParam("tag"),
	}
	docs := s.svc.List(c.Request().Context(), filter)
	return c.JSON(http.StatusOK, docs)
}

func (s *Server) handleDelete(c echo.Context) error {
	err := s.svc.Delete(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, corpus.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "document not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "delete failed")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleSimilar(c echo.Context) error {
	matches, err := s.svc.FindSimilar(c.Request().Context(), c.Param("id"), topK(c))
	if err != nil {
		if errors.Is(err, corpus.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "document not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "similarity query failed")
	}

	out := make([]MatchResponse, 0, len(matches))
	for _, m := range matches {
		out = append(out, MatchResponse{
			ID:        m.Doc.ID,
			Score:     m.Score,
			MatchType: m.Type.String(),
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleSearch(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q parameter is required")
	}

	results, err := s.svc.Search(c.Request().Context(), query, topK(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "search failed")
	}

	out := make([]MatchResponse, 0, len(results))
	for _, r := range results {
		out = append(out, MatchResponse{
			ID:        r.Doc.ID,
			Score:     r.Score,
			MatchType: r.Type.String(),
			Snippet:   r.Snippet,
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleScan(c echo.Context) error {
	var req ScanRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid scan request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text field is required")
	}

	findings := s.svc.ScanForPII(c.Request().Context(), req.Text)
	if findings == nil {
		findings = []piiscan.Finding{}
	}
	return c.JSON(http.StatusOK, ScanResponse{Findings: findings})
}

func (s *Server) handleQueueList(c echo.Context) error {
	status := queue.Status(c.QueryParam("status"))
	switch status {
	case "", queue.StatusPending, queue.StatusInProgress, queue.StatusDone, queue.StatusFailed:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown status")
	}

	items := s.svc.Queue().List(status)
	if items == nil {
		items = []queue.Item{}
	}
	return c.JSON(http.StatusOK, items)
}

func (s *Server) handleQueueCancel(c echo.Context) error {
	err := s.svc.Queue().Cancel(c.Param("id"))
	switch {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, queue.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "queue item not found")
	case errors.Is(err, queue.ErrNotPending):
		return echo.NewHTTPError(http.StatusConflict, "queue item is not pending")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "cancel failed")
	}
}

func (s *Server) handleQueueReset(c echo.Context) error {
	err := s.svc.Queue().Reset(c.Param("id"))
	switch {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, queue.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "queue item not found")
	case errors.Is(err, queue.ErrNotFailed):
		return echo.NewHTTPError(http.StatusConflict, "queue item is not failed")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "reset failed")
	}
}

func topK(c echo.Context) int {
	raw := c.QueryParam("top_k")
	if raw == "" {
		return defaultTopK
	}
	k, err := strconv.Atoi(raw)
	if err != nil || k < 1 {
		return defaultTopK
	}
	return k
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
