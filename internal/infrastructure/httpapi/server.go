// Package httpapi exposes the daemon's status and manual triggers over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"TrendRadar/internal/domain"
	"TrendRadar/internal/logging"
	"TrendRadar/internal/usecase"
)

// TaskRunner is the slice of usecase.Runner the server drives.
type TaskRunner interface {
	Start(ctx context.Context, task, trigger string) error
	LatestRuns(ctx context.Context) ([]domain.TaskRun, error)
	Tasks() []string
}

// Deps wires the server.
type Deps struct {
	Runner  TaskRunner
	Metrics http.Handler
	Logger  *slog.Logger
	Now     func() time.Time
}

// Server is the echo-based status server.
type Server struct {
	echo    *echo.Echo
	runner  TaskRunner
	logger  *slog.Logger
	now     func() time.Time
	started time.Time
}

type runView struct {
	Task       string     `json:"task"`
	Trigger    string     `json:"trigger"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Error      string     `json:"error,omitempty"`
}

type statusResponse struct {
	Status        string    `json:"status"`
	StartedAt     time.Time `json:"startedAt"`
	UptimeSeconds float64   `json:"uptimeSeconds"`
	Tasks         []string  `json:"tasks"`
	Runs          []runView `json:"runs"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// New builds the server and its routes.
func New(deps Deps) *Server {
	s := &Server{
		runner: deps.Runner,
		logger: logging.OrDiscard(deps.Logger).With("component", "httpapi"),
		now:    deps.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.started = s.now()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	e.GET("/", s.status)
	e.GET("/run/:task", s.trigger)
	e.POST("/run/:task", s.trigger)
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if deps.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(deps.Metrics))
	}

	s.echo = e
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown. A clean shutdown returns nil.
func (s *Server) Start(addr string) error {
	s.logger.Info("status server listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("status server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and drains in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) status(c echo.Context) error {
	resp := statusResponse{
		Status:        "up",
		StartedAt:     s.started,
		UptimeSeconds: s.now().Sub(s.started).Seconds(),
		Runs:          []runView{},
	}
	if s.runner != nil {
		resp.Tasks = s.runner.Tasks()
		runs, err := s.runner.LatestRuns(c.Request().Context())
		if err != nil {
			s.logger.Error("load latest runs failed", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "run ledger unavailable")
		}
		for _, r := range runs {
			resp.Runs = append(resp.Runs, runView{
				Task:       r.Task,
				Trigger:    r.Trigger,
				Status:     string(r.Status),
				StartedAt:  r.StartedAt,
				FinishedAt: r.FinishedAt,
				Error:      r.Error,
			})
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) trigger(c echo.Context) error {
	if s.runner == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "runner disabled")
	}
	task := c.Param("task")

	err := s.runner.Start(c.Request().Context(), task, usecase.TriggerHTTP)
	switch {
	case errors.Is(err, usecase.ErrUnknownTask):
		return echo.NewHTTPError(http.StatusBadRequest, "unknown task")
	case errors.Is(err, domain.ErrTaskInProgress):
		return echo.NewHTTPError(http.StatusConflict, task+" is already running")
	case err != nil:
		s.logger.Error("trigger failed", "task", task, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "trigger failed")
	}

	s.logger.Info("task triggered over http", "task", task)
	return c.JSON(http.StatusAccepted, messageResponse{Message: task + " task triggered"})
}
