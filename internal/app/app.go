// -----------------------------------------------------------------------
// Application Wiring - Services, storage, and handlers
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"

	"github.com/fieldreach/fieldreach/internal/common"
	"github.com/fieldreach/fieldreach/internal/handlers"
	"github.com/fieldreach/fieldreach/internal/interfaces"
	"github.com/fieldreach/fieldreach/internal/services/automation"
	"github.com/fieldreach/fieldreach/internal/services/properties"
	"github.com/fieldreach/fieldreach/internal/services/runs"
	"github.com/fieldreach/fieldreach/internal/services/scheduler"
	"github.com/fieldreach/fieldreach/internal/services/sessions"
	"github.com/fieldreach/fieldreach/internal/services/vault"
	"github.com/fieldreach/fieldreach/internal/storage/badger"
	"github.com/ternarybob/arbor"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	ctx            context.Context
	cancelCtx      context.CancelFunc
	StorageManager interfaces.StorageManager

	// Core services
	VaultService      interfaces.SessionVault
	AutomationService interfaces.AutomationService
	SessionService    interfaces.SessionService
	PropertyService   interfaces.PropertyService
	RunService        interfaces.RunService
	SchedulerService  *scheduler.Service

	// HTTP handlers
	APIHandler      *handlers.APIHandler
	SessionHandler  *handlers.SessionHandler
	PropertyHandler *handlers.PropertyHandler
	RunHandler      *handlers.RunHandler
}

// New creates the application with all dependencies wired
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		Config:    config,
		Logger:    logger,
		ctx:       ctx,
		cancelCtx: cancel,
	}

	storageManager, err := badger.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.StorageManager = storageManager

	vaultService, err := vault.NewService(config.Vault.EncryptionKey, logger)
	if err != nil {
		storageManager.Close()
		cancel()
		return nil, err
	}
	app.VaultService = vaultService

	automationService, err := automation.NewService(&config.Portal, logger)
	if err != nil {
		storageManager.Close()
		cancel()
		return nil, err
	}
	app.AutomationService = automationService

	app.SessionService = sessions.NewService(storageManager.SessionStorage(), vaultService, automationService, logger)
	app.PropertyService = properties.NewService(storageManager.PropertyStorage(), logger)
	app.RunService = runs.NewService(storageManager.RunStorage(), storageManager.PropertyStorage(), app.SessionService, automationService, logger)

	schedulerService, err := scheduler.NewService(app.SessionService, &config.Scheduler, logger)
	if err != nil {
		automationService.Shutdown()
		storageManager.Close()
		cancel()
		return nil, err
	}
	app.SchedulerService = schedulerService

	app.APIHandler = handlers.NewAPIHandler()
	app.SessionHandler = handlers.NewSessionHandler(app.SessionService, logger)
	app.PropertyHandler = handlers.NewPropertyHandler(app.PropertyService, logger)
	app.RunHandler = handlers.NewRunHandler(app.RunService, logger)

	logger.Info().Msg("Application initialized")

	return app, nil
}

// Start starts background components
func (a *App) Start() error {
	return a.SchedulerService.Start()
}

// Context returns the application context
func (a *App) Context() context.Context {
	return a.ctx
}

// Shutdown stops background components and closes resources
func (a *App) Shutdown() {
	a.Logger.Info().Msg("Shutting down application...")

	a.cancelCtx()

	if a.SchedulerService != nil {
		a.SchedulerService.Stop()
	}
	if a.AutomationService != nil {
		a.AutomationService.Shutdown()
	}
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Storage close failed")
		}
	}

	a.Logger.Info().Msg("Application shut down")
}
