// Package server exposes checks and the corpus over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/ppiankov/openplag/internal/corpus"
	"github.com/ppiankov/openplag/internal/model"
	"github.com/ppiankov/openplag/internal/pipeline"
)

// Service is the part of the pipeline the API needs
type Service interface {
	Check(ctx context.Context, req pipeline.CheckRequest) (*pipeline.Result, error)
	CheckFile(ctx context.Context, data []byte, filename string, req pipeline.CheckRequest) (*pipeline.Result, error)
	Recheck(ctx context.Context, id string, req pipeline.CheckRequest) (*pipeline.Result, error)
	Archive(ctx context.Context, req pipeline.ArchiveRequest) (*pipeline.ArchiveResult, error)
	Store() corpus.Store
}

// Server is the HTTP API
type Server struct {
	echo      *echo.Echo
	svc       Service
	maxUpload int64
	logger    *slog.Logger
}

// New creates the API server and registers its routes
func New(svc Service, cfg model.ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{echo: e, svc: svc, maxUpload: cfg.MaxUploadBytes, logger: logger}

	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dK", (cfg.MaxUploadBytes>>10)+64)))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	s.Register(e)
	return s
}

// Register mounts the API routes on e
func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.health)

	g := e.Group("/api/v1")
	g.POST("/check", s.check)
	g.POST("/check/file", s.checkFile)
	g.POST("/documents", s.createDocument)
	g.GET("/documents", s.listDocuments)
	g.GET("/documents/:id", s.getDocument)
	g.POST("/documents/:id/check", s.recheckDocument)
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler { return s.echo }

// Run serves on addr until ctx is canceled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	}
}

// errorStatus maps pipeline errors to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, model.ErrTextTooShort), errors.Is(err, model.ErrCorruptFile):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(c echo.Context, err error) error {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "uri", c.Request().RequestURI, "error", err)
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}
