package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cobrix/billing-jobs/config"
	"github.com/cobrix/billing-jobs/internal/adapters/cron"
	overviewpub "github.com/cobrix/billing-jobs/internal/adapters/overview"
	"github.com/cobrix/billing-jobs/internal/adapters/redislock"
	"github.com/cobrix/billing-jobs/internal/core"
	"github.com/cobrix/billing-jobs/internal/data"
	"github.com/cobrix/billing-jobs/internal/domain/billing"
	"github.com/cobrix/billing-jobs/internal/observability/notify/pagerduty"
	"github.com/cobrix/billing-jobs/internal/observability/notify/slack"
	"github.com/cobrix/billing-jobs/internal/observability/statsd"
	"github.com/cobrix/billing-jobs/internal/service"
	"github.com/cobrix/billing-jobs/internal/service/failurenotifier"
)

// ObservabilityContainer groups the cross-cutting observability services.
type ObservabilityContainer struct {
	MetricsSink     *statsd.Client
	FailureNotifier *failurenotifier.Service
}

// ServiceContainer holds all initialized billing services.
type ServiceContainer struct {
	Envelope       *service.Envelope
	Anchor         *service.AnchorJob
	PrepareBatch   *service.PrepareBatchJob
	ExportBatch    *service.ExportBatchJob
	ReconcileBatch *service.ReconcileBatchJob
	FallbackCreate *service.FallbackCreateJob
	FallbackSync   *service.FallbackStatusSyncJob
	CronTick       *service.CronTickService
	Overview       *service.OverviewService

	Calendar      *billing.Calendar
	Observability ObservabilityContainer
}

// ServiceDeps holds the shared dependencies needed to create services.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger

	// Engines bypasses the EngineFactory seam. Tests use it to wire stub
	// engines directly.
	Engines *core.EngineSet

	// TimeProvider defaults to the real clock.
	TimeProvider data.TimeProvider
}

// EngineDeps is what a production engine build gets to work with.
type EngineDeps struct {
	Config  *config.AppConfig
	DB      *sql.DB
	Redis   redis.UniversalClient
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// EngineFactory builds the billing engines (charge generation, batch file
// formats, provider integrations) for production wiring. The main package of
// the deploying binary assigns it before starting services; left unset,
// startup fails with a descriptive error instead of running the orchestration
// layer against nil engines.
var EngineFactory func(ctx context.Context, deps EngineDeps) (*core.EngineSet, error)

func buildEngines(ctx context.Context, deps *ServiceDeps, sink statsd.Sink) (*core.EngineSet, error) {
	engines := deps.Engines
	if engines == nil {
		if EngineFactory == nil {
			return nil, errors.New("no billing engines wired: assign bootstrap.EngineFactory before starting services")
		}
		built, err := EngineFactory(ctx, EngineDeps{
			Config:  deps.Config,
			DB:      deps.DB,
			Redis:   deps.RedisClient,
			Logger:  deps.Logger,
			Metrics: sink,
		})
		if err != nil {
			return nil, fmt.Errorf("build billing engines: %w", err)
		}
		engines = built
	}

	if engines == nil || engines.Anchor == nil || engines.Batch == nil || engines.Fallback == nil {
		return nil, errors.New("engine set is incomplete: anchor, batch, and fallback engines are all required")
	}
	return engines, nil
}

func buildCalendar(cfg *config.BillingConfig, logger *slog.Logger) *billing.Calendar {
	loc, err := cfg.Location()
	if err != nil {
		logger.Warn("unknown billing timezone, falling back to UTC", "timezone", cfg.Timezone, "error", err)
		loc = time.UTC
	}
	return billing.NewCalendar(loc, cfg.Holidays)
}

// buildLockStore selects the distributed lock backend. Postgres is the
// default because the run ledger already lives there; Redis is for deploys
// that want lock traffic off the primary database.
func buildLockStore(deps *ServiceDeps, tp data.TimeProvider) (core.LockService, error) {
	switch deps.Config.Billing.LockBackend {
	case config.LockBackendRedis:
		if deps.RedisClient == nil {
			return nil, errors.New("redis lock backend selected but no redis client is configured")
		}
		return redislock.NewStore(redislock.StoreOptions{
			Client: deps.RedisClient,
			Logger: deps.Logger,
		}), nil
	default:
		return data.NewLockRepo(deps.DB, data.LockRepoConfig{
			Logger:       deps.Logger,
			TimeProvider: tp,
		}), nil
	}
}

func buildObservability(cfg *config.AppConfig, logger *slog.Logger) (ObservabilityContainer, error) {
	sink, err := statsd.NewClient(statsd.Config{
		Enabled: cfg.Observability.Metrics.IsEnabled(),
		Address: cfg.Observability.Metrics.StatsdAddress,
		Prefix:  "billing",
		Logger:  logger,
	})
	if err != nil {
		return ObservabilityContainer{}, fmt.Errorf("init statsd client: %w", err)
	}

	return ObservabilityContainer{
		MetricsSink:     sink,
		FailureNotifier: buildFailureNotifier(cfg.Observability.Notifications, logger),
	}, nil
}

// buildFailureNotifier assembles the run failure fan-out from the enabled
// notification sinks. A sink that fails to construct is logged and dropped
// rather than failing startup; the jobs run fine without it.
func buildFailureNotifier(cfg config.ObservabilityNotificationsConfig, logger *slog.Logger) *failurenotifier.Service {
	var sinks []failurenotifier.SinkRegistration

	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL: cfg.Slack.WebhookURL,
			Channel:    cfg.Slack.Channel,
			Username:   cfg.Slack.Username,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			logger.Warn("slack notifications disabled", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{Name: "slack", Sink: client})
		}
	}

	if cfg.PagerDuty.Enabled {
		client, err := pagerduty.NewClient(pagerduty.Config{
			RoutingKey: cfg.PagerDuty.RoutingKey,
			Source:     cfg.PagerDuty.Source,
			Component:  cfg.PagerDuty.Component,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			logger.Warn("pagerduty notifications disabled", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{Name: "pagerduty", Sink: client})
		}
	}

	return failurenotifier.NewService(failurenotifier.Options{
		Logger: logger,
		Sinks:  sinks,
	})
}

// NewServices creates and wires all billing services from shared dependencies.
func NewServices(ctx context.Context, deps *ServiceDeps) (*ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return nil, errors.New("config is required")
	}
	if deps.DB == nil {
		return nil, errors.New("database connection is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	tp := deps.TimeProvider
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}

	billingCfg := &deps.Config.Billing

	obs, err := buildObservability(deps.Config, deps.Logger)
	if err != nil {
		return nil, err
	}

	engines, err := buildEngines(ctx, deps, obs.MetricsSink)
	if err != nil {
		return nil, err
	}

	locks, err := buildLockStore(deps, tp)
	if err != nil {
		return nil, err
	}

	calendar := buildCalendar(billingCfg, deps.Logger)
	ledger := data.NewRunRepo(deps.DB, data.RunRepoConfig{
		Logger:       deps.Logger,
		TimeProvider: tp,
	})

	envelope, err := service.NewEnvelope(service.EnvelopeOptions{
		Locks:          locks,
		Ledger:         ledger,
		TimeProvider:   tp,
		Logger:         deps.Logger,
		Metrics:        obs.MetricsSink,
		Notifier:       obs.FailureNotifier,
		DefaultLockTTL: billingCfg.LockTTL(),
	})
	if err != nil {
		return nil, fmt.Errorf("init job envelope: %w", err)
	}

	anchor, err := service.NewAnchorJob(service.AnchorJobOptions{
		Envelope: envelope,
		Engines: service.AnchorJobEngines{
			Anchor:    engines.Anchor,
			Rollout:   engines.Rollout,
			Directory: engines.Directory,
		},
		Calendar:      calendar,
		RolloutGating: billingCfg.RolloutGating,
		Logger:        deps.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init anchor job: %w", err)
	}

	batchCfg := service.PrepareBatchJobConfig{
		DefaultAdapter: billingCfg.Adapter,
		CutoffHour:     billingCfg.CutoffHour,
	}

	prepare, err := service.NewPrepareBatchJob(service.PrepareBatchJobOptions{
		Envelope: envelope,
		Engine:   engines.Batch,
		Calendar: calendar,
		Config:   batchCfg,
		Logger:   deps.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init prepare batch job: %w", err)
	}

	export, err := service.NewExportBatchJob(service.ExportBatchJobOptions{
		Envelope: envelope,
		Engine:   engines.Batch,
		Calendar: calendar,
		Config:   batchCfg,
		Logger:   deps.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init export batch job: %w", err)
	}

	reconcile, err := service.NewReconcileBatchJob(service.ReconcileBatchJobOptions{
		Envelope: envelope,
		Engine:   engines.Batch,
		Logger:   deps.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init reconcile batch job: %w", err)
	}

	fallbackCfg := service.FallbackJobConfig{
		Provider: billingCfg.Provider(),
		Enabled:  billingCfg.FallbackEnabled,
	}

	fallbackCreate, err := service.NewFallbackCreateJob(service.FallbackCreateJobOptions{
		Envelope: envelope,
		Engine:   engines.Fallback,
		Calendar: calendar,
		Config:   fallbackCfg,
		Logger:   deps.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init fallback create job: %w", err)
	}

	fallbackSync, err := service.NewFallbackStatusSyncJob(service.FallbackSyncJobOptions{
		Envelope: envelope,
		Engine:   engines.Fallback,
		Calendar: calendar,
		Provider: billingCfg.Provider(),
		Logger:   deps.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init fallback sync job: %w", err)
	}

	cronTick, err := service.NewCronTickService(service.CronTickOptions{
		Jobs: service.CronTickJobs{
			Anchor:         anchor,
			PrepareBatch:   prepare,
			ExportBatch:    export,
			ReconcileBatch: reconcile,
			FallbackCreate: fallbackCreate,
			FallbackSync:   fallbackSync,
		},
		Config: service.CronTickConfig{
			Enabled:          billingCfg.Enabled,
			AutoExport:       billingCfg.AutoExport,
			AutoReconcile:    billingCfg.AutoReconcile,
			FallbackEnabled:  billingCfg.FallbackEnabled,
			FallbackAutoSync: billingCfg.FallbackAutoSync,
		},
		Calendar: calendar,
		Logger:   deps.Logger,
		Metrics:  obs.MetricsSink,
	})
	if err != nil {
		return nil, fmt.Errorf("init cron tick service: %w", err)
	}

	overview, err := service.NewOverviewService(service.OverviewOptions{
		Store:    data.NewOverviewRepo(deps.DB),
		Ledger:   ledger,
		Calendar: calendar,
		Config: service.OverviewConfig{
			StaleProcessingHours: billingCfg.StaleProcessingHours,
			StalePendingHours:    billingCfg.StalePendingHours,
			RecentRuns:           billingCfg.OverviewRecentRuns,
		},
		TimeProvider: tp,
		Logger:       deps.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init overview service: %w", err)
	}

	return &ServiceContainer{
		Envelope:       envelope,
		Anchor:         anchor,
		PrepareBatch:   prepare,
		ExportBatch:    export,
		ReconcileBatch: reconcile,
		FallbackCreate: fallbackCreate,
		FallbackSync:   fallbackSync,
		CronTick:       cronTick,
		Overview:       overview,
		Calendar:       calendar,
		Observability:  obs,
	}, nil
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	Logger   *slog.Logger
}

const (
	// shutdownWaitTimeout is the maximum time to wait for services to stop gracefully.
	shutdownWaitTimeout = 15 * time.Second
)

// serviceStartupDeps groups dependencies for service startup.
type serviceStartupDeps struct {
	ctx             context.Context
	cfg             *ServiceOrchestrationConfig
	logger          *slog.Logger
	enabledServices map[config.ServiceMode]bool
	errCh           chan error
}

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	name string
	done <-chan struct{}
}

func launchBackground(ctx context.Context, deps *serviceStartupDeps, descriptor backgroundService) <-chan struct{} {
	if deps == nil || !deps.enabledServices[descriptor.mode] {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := descriptor.start(ctx); err != nil {
			errMsg := fmt.Errorf("%s failed: %w", descriptor.name, err)
			select {
			case deps.errCh <- errMsg:
			case <-ctx.Done():
			default:
				deps.logger.WarnContext(ctx, "dropping background service error", "service", descriptor.name, "error", errMsg)
			}
		}
	}()

	deps.logger.InfoContext(ctx, "background service started", "service", descriptor.name, "mode", descriptor.mode)
	return done
}

func startBackgroundServices(deps *serviceStartupDeps, services []backgroundService) []backgroundServiceHandle {
	if deps == nil {
		return nil
	}
	handles := make([]backgroundServiceHandle, 0, len(services))

	for _, svc := range services {
		done := launchBackground(deps.ctx, deps, svc)
		if done == nil {
			continue
		}
		handles = append(handles, backgroundServiceHandle{
			name: svc.name,
			done: done,
		})
	}

	return handles
}

func newCronBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeCron,
		name: "cron runner",
		start: func(ctx context.Context) error {
			runner, err := cron.NewRunner(cron.RunnerOptions{
				Tick:     deps.cfg.Services.CronTick,
				Interval: deps.cfg.Config.Billing.TickInterval,
				Logger:   deps.logger,
			})
			if err != nil {
				return err
			}
			return runner.Run(ctx)
		},
	}
}

func newOverviewBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeOverview,
		name: "overview publisher",
		start: func(ctx context.Context) error {
			publisher, err := overviewpub.NewPublisher(overviewpub.PublisherOptions{
				Snapshots: deps.cfg.Services.Overview,
				Interval:  deps.cfg.Config.Billing.OverviewInterval,
				Logger:    deps.logger,
				Metrics:   deps.cfg.Services.Observability.MetricsSink,
			})
			if err != nil {
				return err
			}
			return publisher.Run(ctx)
		},
	}
}

func buildBackgroundServices(deps *serviceStartupDeps) []backgroundService {
	if deps == nil {
		return nil
	}
	return []backgroundService{
		newCronBackgroundService(deps),
		newOverviewBackgroundService(deps),
	}
}

// RunServicesWithShutdown starts all enabled services and manages their
// lifecycle. It blocks until a shutdown signal arrives or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil || cfg.Services == nil {
		return errors.New("service orchestration config with services is required")
	}

	ctx := context.Background()
	serviceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabledServices, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}
	errCh := make(chan error, errorChannelBufferSize(enabledServices))

	deps := &serviceStartupDeps{
		ctx:             serviceCtx,
		cfg:             cfg,
		logger:          logger,
		enabledServices: enabledServices,
		errCh:           errCh,
	}
	handles := startBackgroundServices(deps, buildBackgroundServices(deps))
	if len(handles) == 0 {
		return errors.New("no services enabled: check the SERVICES environment variable")
	}

	return waitForShutdown(shutdownConfig{
		cancel:      cancel,
		errCh:       errCh,
		metrics:     cfg.Services.Observability.MetricsSink,
		logger:      logger,
		backgrounds: handles,
	})
}

func errorChannelBufferSize(enabled map[config.ServiceMode]bool) int {
	count := 0
	for _, mode := range config.ValidServiceModes() {
		if enabled[mode] {
			count++
		}
	}
	return count + 1
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	cancel      context.CancelFunc
	errCh       <-chan error
	metrics     *statsd.Client
	logger      *slog.Logger
	backgrounds []backgroundServiceHandle
}

// waitForShutdown waits for a shutdown signal or a service error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		cfg.cancel()
		gracefulStop(cfg)
		return nil
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel()
		gracefulStop(cfg)
		return err
	}
}

// gracefulStop waits for background services to drain and flushes metrics.
func gracefulStop(cfg shutdownConfig) {
	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.logger)
	}

	if cfg.metrics != nil {
		if err := cfg.metrics.Close(); err != nil {
			cfg.logger.Warn("closing metrics client", "error", err)
		}
	}
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
