// Package server initializes and runs the gallery server.
// It opens the metadata store and the blob backend, builds the services and
// serves the HTTP API until a shutdown signal arrives.
package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gophgallery/internal/logging"
	"github.com/dmitrijs2005/gophgallery/internal/server/auth"
	"github.com/dmitrijs2005/gophgallery/internal/server/blobstore"
	"github.com/dmitrijs2005/gophgallery/internal/server/config"
	"github.com/dmitrijs2005/gophgallery/internal/server/httpapi"
	"github.com/dmitrijs2005/gophgallery/internal/server/metrics"
	"github.com/dmitrijs2005/gophgallery/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophgallery/internal/server/services"
)

var openRepositoryManager = repomanager.Open

type App struct {
	config       *config.Config
	logger       logging.Logger
	repomanager  repomanager.RepositoryManager
	blobs        blobstore.Store
	uploadRoot   string
	metrics      *metrics.Collector
	userService  *services.UserService
	assetService *services.AssetService
	sweepService *services.SweepService
}

// NewApp wires storage, services and metrics. Logs go to out.
func NewApp(ctx context.Context, c *config.Config, out io.Writer) (*App, error) {
	logger := logging.NewJSON(out, c.LogLevel)

	rm, err := openRepositoryManager(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := rm.RunMigrations(ctx); err != nil {
		_ = rm.Close(ctx)
		return nil, fmt.Errorf("migration error: %w", err)
	}

	blobs, root, err := openBlobStore(ctx, c)
	if err != nil {
		_ = rm.Close(ctx)
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	mc := metrics.NewCollector()

	return &App{
		config:       c,
		logger:       logger,
		repomanager:  rm,
		blobs:        blobs,
		uploadRoot:   root,
		metrics:      mc,
		userService:  services.NewUserService(rm, c, logger),
		assetService: services.NewAssetService(rm, blobs, c, logger, mc),
		sweepService: services.NewSweepService(rm, blobs, logger, mc),
	}, nil
}

// openBlobStore returns the configured backend and, for the local one, the
// directory to serve under /uploads.
func openBlobStore(ctx context.Context, c *config.Config) (blobstore.Store, string, error) {
	switch c.BlobBackend {
	case config.BlobBackendLocal:
		s, err := blobstore.NewLocalStore(c.UploadDir, "")
		if err != nil {
			return nil, "", err
		}
		return s, s.Root(), nil
	case config.BlobBackendS3:
		s, err := blobstore.NewS3Store(ctx, blobstore.S3Config{
			User:         c.S3RootUser,
			Password:     c.S3RootPassword,
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
		})
		if err != nil {
			return nil, "", err
		}
		return s, "", nil
	default:
		return nil, "", fmt.Errorf("unknown blob backend %q", c.BlobBackend)
	}
}

// Sweep runs one reconciliation pass, for the standalone sweep command.
func (app *App) Sweep(ctx context.Context) (*services.SweepReport, error) {
	return app.sweepService.Sweep(ctx)
}

// Close releases the metadata store.
func (app *App) Close(ctx context.Context) error {
	return app.repomanager.Close(ctx)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) newHTTPServer() *httpapi.Server {
	return httpapi.NewServer(httpapi.Options{
		Address:        app.config.EndpointAddrHTTP,
		Logger:         app.logger,
		Gate:           auth.NewGate(app.config.SecretKey),
		Users:          app.userService,
		Assets:         app.assetService,
		Sweeper:        app.sweepService,
		Metrics:        app.metrics,
		UploadRoot:     app.uploadRoot,
		MaxUploadBytes: app.config.MaxUploadBytes,
	})
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.newHTTPServer().Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a shutdown signal arrives, then
// closes the metadata store.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "blob_backend", string(app.blobs.Kind()))

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.Close(context.Background()); err != nil {
		app.logger.Error(ctx, "close metadata store", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
