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

	"github.com/storelink/kioskd/internal/kiosk/domain"
	"github.com/storelink/kioskd/internal/kiosk/gate"
	httpapi "github.com/storelink/kioskd/internal/kiosk/http"
	"github.com/storelink/kioskd/internal/kiosk/observe"
	"github.com/storelink/kioskd/internal/kiosk/realtime"
	"github.com/storelink/kioskd/internal/kiosk/service"
	"github.com/storelink/kioskd/internal/kiosk/store"
	"github.com/storelink/kioskd/internal/kiosk/store/drivers/sqlite"
	"github.com/storelink/kioskd/pkg/cryptox"
	"github.com/storelink/kioskd/pkg/idx"
	"github.com/storelink/kioskd/pkg/jwtx"
	"github.com/storelink/kioskd/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application wires the service together: database, token codec, gates,
// services, realtime registry and the HTTP server.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db    store.Store
	codec *jwtx.Codec

	metrics  *observe.Metrics
	conns    *realtime.ConnTable
	registry *realtime.Registry

	accountService *service.AccountService
	deviceService  *service.DeviceService
	housekeeping   *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized. A missing
// or weak JWT secret is fatal here, never at request time.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "kioskd",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	codec, err := jwtx.NewCodec([]byte(cfg.JWTSecret), cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("token codec: %w", err)
	}
	app.codec = codec

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.seedAdmin(context.Background()); err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("admin seed: %w", err)
	}

	app.initRealtime()
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeeping.Start()

	app.logger.Info("kioskd starting", "port", app.cfg.Port, "version", BuildVersion)

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

// Shutdown stops the HTTP server, tells connected terminals to go away,
// stops housekeeping and closes the database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down kioskd")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	for _, s := range app.registry.Snapshot() {
		app.registry.Evict(s.DeviceID, realtime.ReasonShutdown)
	}

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeeping.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("kioskd stopped")
	return nil
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied")
	return nil
}

// seedAdmin creates a first admin account when the accounts table is empty
// and the seed credentials are configured. Without it a fresh deployment
// has no way to log in.
func (app *Application) seedAdmin(ctx context.Context) error {
	if app.cfg.AdminEmail == "" || app.cfg.AdminPassword == "" {
		return nil
	}

	empty, err := app.db.Accounts().IsEmpty(ctx)
	if err != nil {
		return err
	}
	if !empty {
		return nil
	}

	hash, err := cryptox.HashPassword(app.cfg.AdminPassword)
	if err != nil {
		return err
	}

	account := domain.Account{
		ID:           idx.New().String(),
		Email:        app.cfg.AdminEmail,
		PasswordHash: hash,
		DisplayName:  "Administrator",
		Role:         domain.RoleAdmin,
		Status:       domain.AccountActive,
	}
	if err := app.db.Accounts().CreateAccount(ctx, account); err != nil {
		return err
	}

	app.logger.Info("seeded initial admin account", "email", app.cfg.AdminEmail)
	return nil
}

func (app *Application) initRealtime() {
	app.conns = realtime.NewConnTable()
	app.registry = realtime.NewRegistry(app.conns, app.logger)
	app.metrics = observe.NewMetrics(app.registry.Size)
}

// meteredEvicter counts evictions on their way to the registry.
type meteredEvicter struct {
	registry *realtime.Registry
	metrics  *observe.Metrics
}

func (m *meteredEvicter) Evict(deviceID, reason string) bool {
	evicted := m.registry.Evict(deviceID, reason)
	if evicted {
		m.metrics.Eviction()
	}
	return evicted
}

func (app *Application) initServices() {
	app.accountService = service.NewAccountService(app.db, app.codec)
	app.accountService.AccessTTL = app.cfg.AccessTokenTTL
	app.accountService.RefreshTTL = app.cfg.RefreshCredentialTTL

	app.deviceService = service.NewDeviceService(app.db, app.codec, &meteredEvicter{
		registry: app.registry,
		metrics:  app.metrics,
	})
	app.deviceService.TokenTTL = app.cfg.DeviceTokenTTL

	app.housekeeping = service.NewHousekeepingService(app.db, app.logger, app.cfg.HousekeepingInterval)
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.metrics, app.registry, app.logger)

	router.AccountGate = &gate.AccountGate{
		Codec:    app.codec,
		Accounts: app.db.Accounts(),
		Metrics:  app.metrics,
	}
	router.DeviceGate = &gate.DeviceGate{
		Codec:   app.codec,
		Devices: app.db.Devices(),
		Metrics: app.metrics,
	}
	router.AccountService = app.accountService
	router.DeviceService = app.deviceService
	router.Gateway = &realtime.Gateway{
		Registry:       app.registry,
		Conns:          app.conns,
		Devices:        app.db.Devices(),
		Log:            app.logger,
		OriginPatterns: app.cfg.AllowedOrigins,
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
