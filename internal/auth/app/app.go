package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/certtrack/certtrack/internal/auth/http"
	"github.com/certtrack/certtrack/internal/auth/observability"
	"github.com/certtrack/certtrack/internal/auth/service"
	"github.com/certtrack/certtrack/internal/auth/store"
	"github.com/certtrack/certtrack/internal/auth/store/drivers/mongo"
	"github.com/certtrack/certtrack/internal/auth/store/drivers/sqlite"
	"github.com/certtrack/certtrack/pkg/cryptox"
	"github.com/certtrack/certtrack/pkg/httpx"
	"github.com/certtrack/certtrack/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus"
)

// BuildVersion is overridden at build time via ldflags.
var BuildVersion = "v0.1.0"

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	registry *prometheus.Registry
	metrics  *observability.Metrics

	// Services
	sessionService *service.SessionService
	authService    *service.AuthService
	storeMonitor   *service.StoreMonitor

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// NewLogger builds the process logger from cfg.
func NewLogger(cfg Config) *slog.Logger {
	return slogx.New(slogx.Config{
		Service: "certtrack-auth",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
}

// New creates a new Application instance with all dependencies initialized.
// The store client is opened here and owned by the Application until
// Shutdown closes it.
func New(ctx context.Context, cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg:    cfg,
		logger: NewLogger(cfg),
	}

	// Fail boot on an unreadable pepper rather than on the first login.
	if err := cryptox.LoadPepper(app.cfg.PepperFile); err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}

	db, err := OpenStore(ctx, app.cfg, app.logger)
	if err != nil {
		return nil, err
	}
	app.db = db

	if err := db.ApplyMigrations(ctx); err != nil {
		_ = db.Close(context.Background())
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}
	app.logger.Info("database migrations applied successfully", "driver", app.cfg.StoreDriver)

	app.registry, app.metrics = observability.NewRegistry()

	if err := app.initServices(); err != nil {
		_ = db.Close(context.Background())
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// OpenStore connects the configured credential store driver.
func OpenStore(ctx context.Context, cfg Config, logger *slog.Logger) (store.Store, error) {
	switch cfg.StoreDriver {
	case DriverMongo:
		ctx = slogx.WithContext(ctx, logger)
		db, err := mongo.NewStore(ctx, mongo.Config{
			URI:            cfg.MongoURI,
			Database:       cfg.MongoDatabase,
			ConnectTimeout: cfg.StoreConnectTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
		}
		logger.Info("connected to mongodb", "database", cfg.MongoDatabase)
		return db, nil

	case DriverSQLite:
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cfg.DatabaseFile)
		db, err := sqlite.NewStore(dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		logger.Info("opened sqlite database", "file", cfg.DatabaseFile)
		return db, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// Migrate opens the configured store, applies pending migrations and
// closes it again. It does not need a signing secret.
func Migrate(ctx context.Context, cfg Config, logger *slog.Logger) error {
	db, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(context.Background()) }()

	return db.ApplyMigrations(ctx)
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Start the store health monitor
	app.storeMonitor.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.storeMonitor.Stop()
			_ = app.db.Close(context.Background())
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the store monitor
	app.storeMonitor.Stop()

	// Close database connection
	if err := app.db.Close(ctx); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// Handler exposes the fully wired HTTP handler.
func (app *Application) Handler() http.Handler {
	return app.router
}

// initServices initializes all business logic services
func (app *Application) initServices() error {
	sessions, err := InitSessions(app.cfg, app.db, app.metrics, app.logger)
	if err != nil {
		return err
	}
	app.sessionService = sessions

	app.authService = &service.AuthService{
		Store:    app.db,
		Sessions: sessions,
		Metrics:  app.metrics,
	}

	app.storeMonitor = service.NewStoreMonitor(
		app.db,
		app.logger,
		app.metrics,
		app.cfg.StoreHealthInterval,
	)
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.logger)

	// Wire services to router
	router.AuthService = app.authService
	router.Monitor = app.storeMonitor
	router.Metrics = app.metrics
	router.Cookie = httpx.CookieOptions{
		Name:   httpapi.SessionCookieName,
		Secure: !app.cfg.IsDev(),
	}
	router.AllowedOrigins = httpx.ParseOrigins(app.cfg.CORSOrigins)
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
