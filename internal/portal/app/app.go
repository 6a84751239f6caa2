package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpapi "github.com/kampunglabs/siskamling/internal/portal/http"
	"github.com/kampunglabs/siskamling/internal/portal/obs"
	"github.com/kampunglabs/siskamling/internal/portal/realtime"
	"github.com/kampunglabs/siskamling/internal/portal/service"
	"github.com/kampunglabs/siskamling/internal/portal/store"
	"github.com/kampunglabs/siskamling/internal/portal/store/drivers/sqlite"
	"github.com/kampunglabs/siskamling/pkg/cryptox"
	"github.com/kampunglabs/siskamling/pkg/jwtx"
	"github.com/kampunglabs/siskamling/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the portal with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db     store.Store
	signer *jwtx.HS256
	hub    *realtime.Hub

	authService         *service.AuthService
	cameraService       *service.CameraService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "portal",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.signer = jwtx.NewHS256([]byte(cfg.JWTSecret))
	app.hub = realtime.NewHub()
	obs.Init(app.hub.Subscribers)

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("portal starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down portal...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("portal stopped")
	return nil
}

func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(sqlite.FileDSN(app.cfg.DatabaseFile))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initServices() error {
	var notifier service.Notifier = service.NopNotifier{}
	if app.cfg.TelegramBotToken != "" && app.cfg.TelegramChatID != "" {
		notifier = service.NewTelegramNotifier(app.cfg.TelegramBotToken, app.cfg.TelegramChatID)
		app.logger.Info("telegram notifications enabled")
	}

	secretbox, err := cryptox.NewSecretbox(app.cfg.EncryptionKey)
	if err != nil {
		return fmt.Errorf("failed to initialize encryption: %w", err)
	}

	app.authService = &service.AuthService{
		Store:         app.db,
		Signer:        app.signer,
		AccessTTL:     app.cfg.AccessTTL,
		RefreshTTL:    app.cfg.RefreshTTL,
		MaxAttempts:   app.cfg.MaxLoginAttempts,
		LockoutWindow: app.cfg.LockoutWindow,
		Events:        app.hub,
		Notifier:      notifier,
	}

	app.cameraService = &service.CameraService{
		Store:     app.db,
		Secretbox: secretbox,
		Events:    app.hub,
		Notifier:  notifier,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)

	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.signer,
		BuildVersion,
		app.db,
		app.hub,
		app.logger,
	)
	router.AuthService = app.authService
	router.CameraService = app.cameraService
	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.cfg.Port),
		Handler: router,
	}
}
