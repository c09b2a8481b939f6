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

	"github.com/wardenhq/warden/internal/admin/blob"
	httpapi "github.com/wardenhq/warden/internal/admin/http"
	"github.com/wardenhq/warden/internal/admin/mail"
	"github.com/wardenhq/warden/internal/admin/obs"
	"github.com/wardenhq/warden/internal/admin/service"
	"github.com/wardenhq/warden/internal/admin/store"
	"github.com/wardenhq/warden/internal/admin/store/drivers/sqlite"
	"github.com/wardenhq/warden/pkg/httpx"
	"github.com/wardenhq/warden/pkg/jwtx"
	"github.com/wardenhq/warden/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application encapsulates the admin backend with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db      store.Store
	signer  *jwtx.Signer
	keys    *jwtx.KeySet
	blob    *blob.Client
	metrics *obs.Metrics
	limiter *httpx.SlidingWindowLimiter

	tokenService        *service.TokenService
	permissionService   *service.PermissionService
	userService         *service.UserService
	roleService         *service.RoleService
	groupService        *service.GroupService
	documentService     *service.DocumentService
	auditService        *service.AuditService
	archiveService      *service.ArchiveService
	housekeepingService *service.HousekeepingService
	dbHealth            *service.DBHealth

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "warden",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initSigner(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initBlob(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()
	app.limiter.Start()
	if err := app.archiveService.Start(); err != nil {
		return fmt.Errorf("start archive schedule: %w", err)
	}

	app.logger.Info("warden starting", "port", app.cfg.Port, "version", BuildVersion)

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
	app.logger.Info("shutting down warden...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.archiveService.Stop()
	app.housekeepingService.Stop()
	app.limiter.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("warden stopped")
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

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initSigner() error {
	var (
		signer *jwtx.Signer
		err    error
	)
	if app.cfg.SigningKeyFile != "" {
		pemKey, readErr := os.ReadFile(app.cfg.SigningKeyFile)
		if readErr != nil {
			return fmt.Errorf("read signing key: %w", readErr)
		}
		signer, err = jwtx.NewSignerFromPEM("warden-1", pemKey)
	} else {
		app.logger.Warn("no signing key configured, using ephemeral key; tokens will not survive restarts")
		signer, err = jwtx.NewEphemeralSigner("warden-1")
	}
	if err != nil {
		return fmt.Errorf("initialize signer: %w", err)
	}

	app.signer = signer
	app.keys = jwtx.NewKeySet()
	app.keys.AddSigner(signer)
	return nil
}

func (app *Application) initBlob() error {
	if !app.cfg.Blob.Configured() {
		app.logger.Info("object storage not configured; documents and audit archival disabled")
		return nil
	}

	client, err := blob.NewClient(context.Background(), app.cfg.Blob)
	if err != nil {
		return fmt.Errorf("initialize object storage: %w", err)
	}
	if app.cfg.Env == "dev" {
		if err := client.EnsureBucket(context.Background()); err != nil {
			app.logger.Warn("ensure bucket failed", "err", err)
		}
	}
	app.blob = client
	return nil
}

func (app *Application) initServices() {
	app.metrics = obs.NewMetrics()
	app.limiter = httpx.NewSlidingWindowLimiter(httpx.DefaultRateLimitConfig())
	app.dbHealth = service.NewDBHealth(app.db, app.metrics.ObserveDBProbeFailure)

	app.auditService = service.NewAuditService(app.db, app.metrics.ObserveAuditDropped)
	app.permissionService = service.NewPermissionService(app.db)

	var mailer mail.Mailer = mail.NopMailer{}
	if app.cfg.Mail.Configured() {
		mailer = mail.NewSMTPMailer(app.cfg.Mail, slogx.Component(app.logger, "mail"))
	}

	app.tokenService = service.NewTokenService(app.db, app.signer,
		app.permissionService, app.auditService, mailer,
		service.TokenServiceConfig{
			Issuer:     app.cfg.Issuer,
			AccessTTL:  app.cfg.AccessTokenTTL,
			RefreshTTL: app.cfg.RefreshTokenTTL,
			ResetURL:   app.cfg.PasswordResetURL,
		})

	app.userService = service.NewUserService(app.db, app.auditService, mailer)
	app.roleService = service.NewRoleService(app.db, app.auditService)
	app.groupService = service.NewGroupService(app.db, app.auditService)
	app.documentService = service.NewDocumentService(app.db, app.blob, app.auditService)
	app.archiveService = service.NewArchiveService(app.db, app.blob, slogx.Component(app.logger, "archive"))
	app.housekeepingService = service.NewHousekeepingService(app.db, slogx.Component(app.logger, "housekeeping"))
}

func (app *Application) initHTTP() {
	verifier := jwtx.NewVerifier(app.keys, app.cfg.Issuer)

	router := httpapi.NewRouter(
		verifier,
		BuildVersion,
		app.db,
		app.dbHealth,
		app.limiter,
		app.metrics,
		app.logger,
	)

	router.TokenService = app.tokenService
	router.PermissionService = app.permissionService
	router.UserService = app.userService
	router.RoleService = app.roleService
	router.GroupService = app.groupService
	router.DocumentService = app.documentService
	router.AuditService = app.auditService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
