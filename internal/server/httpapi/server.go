// Package httpapi is the HTTP boundary of the gallery: an echo server with
// request logging, metrics, bearer-token auth and the asset routes.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dmitrijs2005/gophgallery/internal/logging"
	"github.com/dmitrijs2005/gophgallery/internal/server/auth"
	"github.com/dmitrijs2005/gophgallery/internal/server/metrics"
	"github.com/dmitrijs2005/gophgallery/internal/server/models"
	"github.com/dmitrijs2005/gophgallery/internal/server/services"
)

const shutdownTimeout = 5 * time.Second

// UserService is the credential store used by the auth routes.
type UserService interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (string, error)
}

// AssetService is the asset pipeline used by the upload, listing and delete routes.
type AssetService interface {
	Ingest(ctx context.Context, ownerID string, f services.Upload, category, description string) (*models.Asset, error)
	IngestMany(ctx context.Context, ownerID string, files []services.Upload, category, description string) ([]*models.Asset, error)
	Delete(ctx context.Context, ownerID, assetID string) error
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Asset, error)
	ListCategories(ctx context.Context) ([]string, error)
}

// Sweeper runs one reconciliation pass.
type Sweeper interface {
	Sweep(ctx context.Context) (*services.SweepReport, error)
}

// Options carries the collaborators of the server.
type Options struct {
	Address string
	Logger  logging.Logger
	Gate    *auth.Gate
	Users   UserService
	Assets  AssetService
	Sweeper Sweeper
	Metrics *metrics.Collector
	// UploadRoot, when set, is served read-only under /uploads.
	UploadRoot     string
	MaxUploadBytes int64
}

type Server struct {
	echo    *echo.Echo
	address string
	logger  logging.Logger
}

func NewServer(o Options) *Server {
	logger := o.Logger.With("module", "http_server")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info(c.Request().Context(), "request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", c.RealIP(),
			)
			return nil
		},
	}))
	if o.Metrics != nil {
		e.Use(metricsMiddleware(o.Metrics))
		e.GET("/metrics", echo.WrapHandler(o.Metrics.Handler()))
	}
	if o.UploadRoot != "" {
		e.Static("/uploads", o.UploadRoot)
	}

	h := &handler{
		users:          o.Users,
		assets:         o.Assets,
		sweeper:        o.Sweeper,
		logger:         logger,
		maxUploadBytes: o.MaxUploadBytes,
	}
	h.register(e, accessTokenMiddleware(o.Gate))

	return &Server{echo: e, address: o.Address, logger: logger}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := s.echo.Start(s.address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
