package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/quimbydigital/client-report-automations/internal/common"
	"github.com/quimbydigital/client-report-automations/internal/handlers"
	"github.com/quimbydigital/client-report-automations/internal/interfaces"
	"github.com/quimbydigital/client-report-automations/internal/services/document"
	"github.com/quimbydigital/client-report-automations/internal/services/inputs"
	"github.com/quimbydigital/client-report-automations/internal/services/insights"
	"github.com/quimbydigital/client-report-automations/internal/services/jobs"
	"github.com/quimbydigital/client-report-automations/internal/services/metrics"
	"github.com/quimbydigital/client-report-automations/internal/services/notify"
	"github.com/quimbydigital/client-report-automations/internal/services/publish"
	"github.com/quimbydigital/client-report-automations/internal/services/report"
	"github.com/quimbydigital/client-report-automations/internal/services/vision"
	storage "github.com/quimbydigital/client-report-automations/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	DB             *storage.BadgerDB
	JobStorage     interfaces.JobStorage
	ArchiveStorage interfaces.ArchiveStorage

	// Pipeline services
	VisionProvider  interfaces.VisionProvider
	Scanner         *inputs.Scanner
	DocumentService interfaces.DocumentExtractor
	MetricService   interfaces.MetricExtractor
	InsightService  interfaces.InsightEngine
	RenderService   interfaces.ReportRenderer
	PublishService  interfaces.Publisher
	NotifyService   interfaces.Notifier

	Orchestrator *jobs.Orchestrator
	Sweeper      *jobs.Sweeper

	// HTTP handlers
	APIHandler *handlers.APIHandler
	JobHandler *handlers.JobHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.initHandlers()

	if cfg.Schedule.Enabled {
		app.Sweeper = jobs.NewSweeper(&cfg.Schedule, app.Orchestrator, logger)
		if err := app.Sweeper.Start(); err != nil {
			return nil, err
		}
	}

	logger.Info().
		Str("clients_root", cfg.Clients.RootDir).
		Str("publish_target", cfg.Publish.Target).
		Bool("schedule_enabled", cfg.Schedule.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

func (a *App) initStorage() error {
	db, err := storage.NewBadgerDB(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return err
	}
	a.DB = db
	a.DB.StartGC(30 * time.Minute)
	a.JobStorage = storage.NewJobStorage(db, a.Logger)
	a.ArchiveStorage = storage.NewArchiveStorage(db, a.Logger)
	return nil
}

func (a *App) initServices() error {
	visionProvider, err := vision.NewProvider(a.Config, a.Logger)
	if err != nil {
		return err
	}
	a.VisionProvider = visionProvider

	a.Scanner = inputs.NewScanner(a.Config.Clients.RootDir, a.Logger)
	a.DocumentService = document.NewExtractor(visionProvider, a.Logger)

	metricService, err := metrics.NewExtractor(visionProvider, a.Config, a.Logger)
	if err != nil {
		return err
	}
	a.MetricService = metricService

	a.InsightService = insights.NewEngine(&a.Config.Insights, a.Logger)

	renderService, err := report.NewRenderer(a.Logger)
	if err != nil {
		return err
	}
	a.RenderService = renderService

	publishService, err := publish.NewPublisher(context.Background(), &a.Config.Publish, a.ArchiveStorage, a.Logger)
	if err != nil {
		return err
	}
	a.PublishService = publishService

	a.NotifyService = notify.NewSlackNotifier(&a.Config.Slack, a.Logger)

	a.Orchestrator = jobs.NewOrchestrator(a.Config, jobs.Deps{
		Scanner:   a.Scanner,
		Documents: a.DocumentService,
		Metrics:   a.MetricService,
		Insights:  a.InsightService,
		Renderer:  a.RenderService,
		Publisher: a.PublishService,
		Notifier:  a.NotifyService,
		JobStore:  a.JobStorage,
		Archive:   a.ArchiveStorage,
	}, a.Logger)

	return nil
}

func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler()
	a.JobHandler = handlers.NewJobHandler(a.Orchestrator, a.Logger)
}

// Shutdown stops the scheduler, waits for in-flight jobs and closes the
// storage and vision provider.
func (a *App) Shutdown() {
	if a.Sweeper != nil {
		a.Sweeper.Stop()
	}
	a.Orchestrator.Wait()

	if a.VisionProvider != nil {
		if err := a.VisionProvider.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close vision provider")
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close database")
		}
	}
	a.Logger.Info().Msg("Application shutdown complete")
}
