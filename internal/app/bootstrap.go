package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"markdesk-server/internal/config"
	"markdesk-server/internal/files"
	"markdesk-server/internal/fsutil"
	"markdesk-server/internal/logger"
	"markdesk-server/internal/observability"
	"markdesk-server/internal/ratelimit"
	"markdesk-server/internal/sentryx"
	"markdesk-server/internal/settings"
	"markdesk-server/internal/trash"
	"markdesk-server/internal/workspace"
)

const serviceName = "markdesk-server"

// ServerApp holds all runtime dependencies for the server.
type ServerApp struct {
	Config          *config.AppConfig
	Settings        *config.SettingsStore
	Registry        *workspace.Registry
	Trash           *trash.Store
	Files           *files.Service
	FileHandler     *files.Handler
	SettingsHandler *settings.Handler
	Limiter         *ratelimit.Limiter
	Metrics         *observability.Metrics
	Logger          *logger.Logger
	startedAt       time.Time
}

// New builds a fully wired server application from cfg.
func New(cfg *config.AppConfig) (*ServerApp, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	log := logger.WithComponent("MAIN")

	store, err := config.NewSettingsStore(cfg.SettingsPath)
	if err != nil {
		return nil, fmt.Errorf("open settings: %w", err)
	}

	registry := workspace.NewRegistry()
	if root := store.Get().WorkspacePath(); root != "" {
		if err := registry.Set(root); err != nil {
			log.Warn("Configured workspace %s is not usable, starting without one: %v", root, err)
		}
	} else {
		log.Info("No workspace configured yet")
	}

	metrics := observability.NewMetrics()
	guard := workspace.NewGuard()
	locks := fsutil.NewLocker()

	trashStore := trash.NewStore(registry, guard,
		trash.WithLocker(locks),
		trash.WithMetrics(metrics),
	)
	fileService := files.NewService(registry, guard, trashStore,
		files.WithLocker(locks),
		files.WithMetrics(metrics),
	)

	return &ServerApp{
		Config:          cfg,
		Settings:        store,
		Registry:        registry,
		Trash:           trashStore,
		Files:           fileService,
		FileHandler:     files.NewHandler(fileService, trashStore),
		SettingsHandler: settings.NewHandler(store, registry),
		Limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		}),
		Metrics:   metrics,
		Logger:    log,
		startedAt: time.Now(),
	}, nil
}

// Load reads configuration from the environment, sets up logging and error
// reporting, and builds the application.
func Load() (*ServerApp, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determine working directory: %w", err)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return nil, err
	}

	logger.Init(logger.Config{
		Output:   os.Stdout,
		MinLevel: logger.ParseLevel(cfg.LogLevel),
		UseColor: !cfg.IsProduction(),
		JSON:     cfg.IsProduction(),
	})

	log := logger.WithComponent("MAIN")
	if err := sentryx.Init(serviceName, cfg.SentryDSN, cfg.Env); err != nil {
		log.Warn("Sentry disabled: %v", err)
	} else if sentryx.Enabled() {
		log.Info("Sentry error reporting enabled")
	}

	log.Info("Environment: %s", cfg.Env)
	log.Info("Port: %d", cfg.Port)
	log.Info("Settings file: %s", cfg.SettingsPath)
	log.Info("Allowed origins: %v", cfg.AllowedOrigins)

	return New(cfg)
}

// Run initializes and starts the server until shutdown.
func Run() error {
	app, err := Load()
	if err != nil {
		return err
	}
	return app.Run()
}
