package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/HackDavis/admissions-portal-sub000/internal/admissions/http"
	"github.com/HackDavis/admissions-portal-sub000/internal/admissions/service"
	"github.com/HackDavis/admissions-portal-sub000/internal/admissions/store"
	"github.com/HackDavis/admissions-portal-sub000/internal/admissions/store/drivers/sqlite"
	"github.com/HackDavis/admissions-portal-sub000/pkg/httpx"
	"github.com/HackDavis/admissions-portal-sub000/pkg/hub"
	"github.com/HackDavis/admissions-portal-sub000/pkg/mailchimp"
	"github.com/HackDavis/admissions-portal-sub000/pkg/slogx"
	"github.com/HackDavis/admissions-portal-sub000/pkg/tito"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application wires the finalization pipeline and its admin API.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db store.Store

	metrics             *service.Metrics
	keyReserver         *service.KeyReserver
	finalizer           *service.Finalizer
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "admissions-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices()

	ctx := slogx.WithContext(context.Background(), app.logger)
	if err := app.keyReserver.ApplyLimits(ctx, cfg.Mailchimp.MaxCalls, cfg.Mailchimp.MaxSlots); err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to apply key slot limits: %w", err)
	}

	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("admissions service starting", "port", app.cfg.Port, "version", BuildVersion)

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
	app.logger.Info("shutting down admissions service...")

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

	app.logger.Info("admissions service stopped")
	return nil
}

// Handler exposes the routed admin API.
func (app *Application) Handler() http.Handler {
	return app.router
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

func (app *Application) initServices() {
	cfg := app.cfg
	app.metrics = service.NewMetrics()

	if missing := cfg.missingTito(); len(missing) > 0 {
		app.logger.Warn("ticketing platform not fully configured; ticket invitations will fail", "missing", missing)
	}
	if cfg.Tito.ListID == "" {
		app.logger.Warn("TITO_LIST_ID not set; finalize requests must supply list_id")
	}

	creds := mailchimp.EnvCredentials{}
	titoClient := tito.NewClient(cfg.Tito.BaseURL, cfg.Tito.Token, cfg.Tito.Account, cfg.Tito.Event)

	app.keyReserver = &service.KeyReserver{
		Store:       app.db,
		Credentials: creds,
		Metrics:     app.metrics,
	}

	notifier := &service.NotificationProcessor{
		Store:       app.db,
		Keys:        app.keyReserver,
		Credentials: creds,
		NewMailer: func(c mailchimp.Credentials) service.Mailer {
			return mailchimp.NewClient(c, cfg.Mailchimp.BaseURL)
		},
		Tickets:       titoClient,
		DefaultListID: cfg.Tito.ListID,
		Metrics:       app.metrics,
	}
	if cfg.Hub.BaseURL != "" {
		notifier.Provisioner = &hub.Provisioner{
			Client:      hub.NewClient(cfg.Hub.BaseURL),
			Credentials: hub.Credentials{Email: cfg.Hub.Email, Password: cfg.Hub.Password},
			Role:        cfg.Hub.Role,
		}
	} else {
		app.logger.Warn("HUB_BASE_URL not set; account provisioning disabled")
	}

	app.finalizer = &service.Finalizer{
		Store: app.db,
		Inviter: &service.BulkInviter{
			Issuer: &service.TicketIssuer{Client: titoClient, Metrics: app.metrics},
		},
		Notifier: notifier,
		Metrics:  app.metrics,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		cfg.HousekeepingInterval,
		cfg.ReportRetention,
	)
}

func (app *Application) initHTTP() {
	httpx.LoadRateLimitsFromEnv()

	router := httpapi.NewRouter(app.cfg.AdminAPIKey, BuildVersion, app.db, app.logger)
	router.Finalizer = app.finalizer
	router.KeySlots = app.keyReserver
	router.Defaults = service.TicketParams{
		ListID:       app.cfg.Tito.ListID,
		ReleaseIDs:   app.cfg.Tito.ReleaseIDs,
		DiscountCode: app.cfg.Tito.DiscountCode,
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
