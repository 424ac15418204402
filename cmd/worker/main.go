// Package main is the entry point for the NekoLog wellness hub worker.
//
// The worker owns the daily cycle of the wellness engine:
//   - midnight rollover (finalize the ended day, open the new one)
//   - catch-up check (recover rollovers missed while the process slept)
//   - step synchronization against the health bridge + daily reward gate
//   - entitlement refresh against the purchase bridge
//
// Commands arrive through the application layer; side effects fan out
// over the event bus to the cache, notification and audit handlers.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nekolog/wellness-hub/config"
	"github.com/nekolog/wellness-hub/internal/application/command"
	"github.com/nekolog/wellness-hub/internal/application/eventhandler"
	"github.com/nekolog/wellness-hub/internal/domain/reward"
	"github.com/nekolog/wellness-hub/internal/domain/shared"
	"github.com/nekolog/wellness-hub/internal/domain/subscription"
	"github.com/nekolog/wellness-hub/internal/domain/wellness"
	"github.com/nekolog/wellness-hub/internal/infrastructure/external/health"
	"github.com/nekolog/wellness-hub/internal/infrastructure/external/store"
	"github.com/nekolog/wellness-hub/internal/infrastructure/messaging"
	"github.com/nekolog/wellness-hub/internal/infrastructure/persistence/postgres"
	"github.com/nekolog/wellness-hub/internal/infrastructure/persistence/redis"
	"github.com/nekolog/wellness-hub/internal/infrastructure/scheduler"
	"github.com/nekolog/wellness-hub/internal/infrastructure/scheduler/jobs"
	"github.com/nekolog/wellness-hub/internal/infrastructure/service"
	httpapi "github.com/nekolog/wellness-hub/internal/interface/http"
	"github.com/nekolog/wellness-hub/internal/interface/http/handlers"
	"github.com/nekolog/wellness-hub/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	slogger := setupSlog(cfg)
	appLog := setupAppLogger(cfg)

	appLog.Info("starting NekoLog wellness hub worker",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("timezone", cfg.App.Timezone),
		logger.Int("step_goal", cfg.Wellness.StepGoal),
	)

	loc := cfg.App.Location

	// ─────────────────────────────────────────────────────────────────────────
	// 3. POSTGRES (durable engine state)
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL is required")
	}

	appLog.Info("connecting to database")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		appLog.Info("closing database connection")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	appLog.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (hot per-day data, optional)
	// ─────────────────────────────────────────────────────────────────────────
	var redisConn *redis.Cache
	var stepCache *redis.StepCache

	if !cfg.Redis.Disabled {
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		redisCache, err := redis.NewCache(redisCfg)
		if err != nil {
			// The engine degrades without Redis: step counts are re-read
			// from the bridge and flags simply stay unset.
			appLog.Warn("failed to connect to Redis, running without hot cache", logger.Err(err))
		} else {
			defer redisCache.Close()
			redisConn = redisCache
			stepCache = redis.NewStepCache(redisCache, cfg.Profile.ProfileID, loc)
			appLog.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REPOSITORIES
	// ─────────────────────────────────────────────────────────────────────────
	profileID := cfg.ProfileUUID()
	stateRepo := postgres.NewStateRepository(dbConn, profileID)
	historyRepo := postgres.NewHistoryRepository(dbConn, profileID)
	creditedRepo := postgres.NewCreditedTransactionRepository(dbConn, profileID)

	if err := stateRepo.EnsureProfile(ctx, shared.CatName(cfg.Profile.CatName), shared.Address(cfg.Profile.Address)); err != nil {
		return fmt.Errorf("failed to ensure profile row: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. EVENT BUS + DISPATCHER
	// ─────────────────────────────────────────────────────────────────────────
	busCfg := messaging.DefaultInMemoryEventBusConfig()
	busCfg.Logger = slogger

	var eventBus shared.EventBus
	var closeBus func() error

	if redisConn != nil && cfg.Redis.UseForEvents {
		redisBus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         redis.NewEventBusAdapter(redisConn),
			InstanceID:     cfg.Profile.ProfileID,
			LocalBusConfig: busCfg,
			Logger:         slogger,
		})
		if err != nil {
			return fmt.Errorf("failed to start Redis event bus: %w", err)
		}
		eventBus = redisBus
		closeBus = redisBus.Close
		appLog.Info("domain events flow over Redis Pub/Sub")
	} else {
		memBus := messaging.NewInMemoryEventBus(busCfg)
		eventBus = memBus
		closeBus = memBus.Close
	}

	defer func() {
		appLog.Info("closing event bus")
		_ = closeBus()
	}()

	dispatcherCfg := messaging.DefaultDispatcherConfig(eventBus)
	dispatcherCfg.Logger = slogger
	dispatcher := messaging.NewDispatcher(dispatcherCfg)
	dispatcher.Use(messaging.RecoveryMiddleware(slogger))
	dispatcher.Use(messaging.LoggingMiddleware(slogger))

	// ─────────────────────────────────────────────────────────────────────────
	// 7. DOMAIN SERVICES
	// ─────────────────────────────────────────────────────────────────────────
	engine := wellness.NewDefaultEngine()

	treats := reward.NewLedger(stateRepo, eventBus, appLog)
	treats.Load(ctx)

	gate := reward.NewStepGate(cfg.Wellness.StepGoal, loc, stateRepo, treats, eventBus, appLog)
	gate.Load(ctx)

	// With the step gate feature off, steps still sync and cache but
	// never pay out.
	var syncGate *reward.StepGate
	if cfg.Features.IsEnabled(config.FeatureRewardStepGate) {
		syncGate = gate
	}

	subs := subscription.NewLedger(stateRepo, creditedRepo, treats, eventBus, loc, appLog)
	subs.Load(ctx)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. EXTERNAL CLIENTS
	// ─────────────────────────────────────────────────────────────────────────
	healthCfg := health.DefaultClientConfig(cfg.Health.BaseURL)
	healthCfg.APIKey = cfg.Health.APIKey
	healthCfg.Timeout = cfg.Health.RequestTimeout
	healthCfg.PollInterval = cfg.Health.PollInterval
	healthCfg.RateLimiterConfig.RequestsPerSecond = cfg.Health.RequestsPerSecond
	healthCfg.RateLimiterConfig.BurstSize = cfg.Health.RateLimitBurst
	healthCfg.Location = loc
	healthCfg.Logger = appLog
	healthClient := health.NewClient(healthCfg)

	storeCfg := store.DefaultClientConfig(cfg.Store.BaseURL)
	storeCfg.APIKey = cfg.Store.APIKey
	storeCfg.Timeout = cfg.Store.RequestTimeout
	storeCfg.Logger = appLog
	storeClient := store.NewClient(storeCfg)

	notifier := service.NewLocalNotificationScheduler(appLog)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. COMMAND HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	// The cache is optional; interfaces must stay nil when it is absent
	// so the handlers skip the cache path instead of calling a nil value.
	var stepCacheWriter command.StepCacheWriter
	var flagClearer command.DayFlagClearer
	rolloverSteps := command.StepSource(healthClient)
	if stepCache != nil {
		stepCacheWriter = stepCache
		flagClearer = stepCache
		rolloverSteps = stepCache
	}

	checkInHandler := command.NewRecordCheckInHandler(engine, stateRepo, stateRepo, eventBus, loc, appLog)
	rolloverHandler := command.NewRunRolloverHandler(engine, stateRepo, stateRepo, historyRepo, rolloverSteps, flagClearer, eventBus, loc, appLog)
	syncStepsHandler := command.NewSyncStepsHandler(healthClient, stepCacheWriter, syncGate, eventBus, loc, appLog)
	purchaseHandler := command.NewPurchasePassHandler(storeClient, subs, appLog)
	restoreHandler := command.NewRestorePurchasesHandler(storeClient, subs, appLog)
	giveTreatHandler := command.NewGiveTreatHandler(treats)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. EVENT HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	scoreCfg := eventhandler.DefaultScoreComputedConfig()
	scoreCfg.NotificationHour = cfg.Scheduler.NotificationHour
	scoreCfg.NotificationMinute = cfg.Scheduler.NotificationMinute
	scoreCfg.ScheduleNotification = cfg.Features.IsEnabled(config.FeatureNotifyMorningScore)

	var scoreCacheWriter eventhandler.ScoreCacheWriter
	if stepCache != nil {
		scoreCacheWriter = stepCache
	}
	scoreHandler := eventhandler.NewOnScoreComputedHandler(scoreCacheWriter, notifier, stateRepo, scoreCfg, appLog)
	if err := dispatcher.Register(scoreHandler.EventType(), "score_computed", scoreHandler.Handle); err != nil {
		return fmt.Errorf("failed to register score handler: %w", err)
	}

	if stepCache != nil && cfg.Features.IsEnabled(config.FeatureNotifyGoalCelebration) {
		goalHandler := eventhandler.NewOnStepGoalReachedHandler(stepCache, loc, appLog)
		if err := dispatcher.Register(goalHandler.EventType(), "goal_celebration", goalHandler.Handle); err != nil {
			return fmt.Errorf("failed to register goal handler: %w", err)
		}
	}

	treatHandler := eventhandler.NewOnTreatChangeHandler(historyRepo, appLog)
	for _, eventType := range treatHandler.EventTypes() {
		if err := dispatcher.Register(eventType, "treat_audit", treatHandler.Handle); err != nil {
			return fmt.Errorf("failed to register treat audit handler: %w", err)
		}
	}

	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("failed to start dispatcher: %w", err)
	}
	defer func() {
		appLog.Info("stopping dispatcher")
		_ = dispatcher.Stop()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 11. STARTUP CATCH-UP
	// The persisted day may be behind when the process was down across
	// one or more midnights; run the rollover once before the scheduler
	// takes over.
	// ─────────────────────────────────────────────────────────────────────────
	if result, err := rolloverHandler.Handle(ctx, command.RunRolloverCommand{CatchUp: true}); err != nil {
		appLog.Error("startup catch-up failed", logger.Err(err))
	} else if result.Ran {
		appLog.Info("startup catch-up rolled the day over",
			logger.ScoreValue(result.Score.Int()),
			logger.CalendarDay(result.Day.Time()),
		)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 12. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler

	if cfg.Scheduler.Enabled {
		schedCfg := scheduler.DefaultSchedulerConfig()
		schedCfg.Logger = slogger
		schedCfg.Timezone = loc
		sched = scheduler.NewScheduler(schedCfg)

		sched.OnJobStart(func(job string) {
			appLog.Debug("scheduled job starting", logger.String("job", job))
		})
		sched.OnJobError(func(job string, err error) {
			appLog.Error("scheduled job failed", logger.String("job", job), logger.Err(err))
		})
		sched.OnJobComplete(func(result scheduler.JobResult) {
			appLog.Debug("scheduled job finished",
				logger.String("job", result.JobName),
				logger.Duration("duration", result.Duration),
				logger.Bool("success", result.Success),
			)
		})

		if err := sched.Register(
			jobs.NewMidnightRolloverJob(rolloverHandler, appLog),
			scheduler.NewMidnightSchedule(loc),
		); err != nil {
			return fmt.Errorf("failed to register rollover job: %w", err)
		}

		if cfg.Features.IsEnabled(config.FeatureWellnessCatchUp) {
			if err := sched.Register(
				jobs.NewCatchUpJob(rolloverHandler, appLog),
				scheduler.NewIntervalSchedule(cfg.Scheduler.CatchUpInterval),
			); err != nil {
				return fmt.Errorf("failed to register catch-up job: %w", err)
			}
		}

		if err := sched.Register(
			jobs.NewStepSyncJob(syncStepsHandler, appLog),
			scheduler.NewIntervalSchedule(cfg.Scheduler.StepSyncInterval),
		); err != nil {
			return fmt.Errorf("failed to register step sync job: %w", err)
		}

		if cfg.Features.IsEnabled(config.FeatureSubscriptionRefresh) {
			if err := sched.Register(
				jobs.NewEntitlementRefreshJob(restoreHandler, appLog),
				scheduler.NewIntervalSchedule(cfg.Store.RefreshInterval),
			); err != nil {
				return fmt.Errorf("failed to register entitlement refresh job: %w", err)
			}
		}

		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() {
			appLog.Info("stopping scheduler")
			_ = sched.Stop()
		}()

		appLog.Info("scheduler started", logger.Int("jobs", len(sched.ListJobs())))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 13. STEP PUSH PATH
	// The bridge delivers cumulative counts; the sync command is
	// idempotent per day, so the push and poll paths cannot double-grant.
	// ─────────────────────────────────────────────────────────────────────────
	subErr := healthClient.Subscribe(ctx, func(ctx context.Context, steps int, at time.Time) {
		if _, err := syncStepsHandler.Handle(ctx, command.SyncStepsCommand{Steps: steps, At: at}); err != nil {
			appLog.Warn("pushed step delivery failed", logger.Err(err), logger.StepCount(steps))
		}
	})
	if subErr != nil {
		appLog.Warn("step subscription failed, relying on the poll job", logger.Err(subErr))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 14. LOCAL API SERVER
	// The companion app drives the engine through it: check-ins, feeding,
	// purchases, pushed step counts and the home-screen status read.
	// ─────────────────────────────────────────────────────────────────────────
	var apiServer *httpapi.Server
	var apiErrCh <-chan error

	if cfg.Server.Enabled {
		checker := handlers.NewCompositeHealthChecker(cfg.App.Version)
		checker.AddCheck("postgres", handlers.NewDatabaseCheck(dbConn))
		if redisConn != nil {
			checker.AddCheck("redis", handlers.NewCacheCheck(redisConn))
		}
		checker.AddCheck("health_bridge", handlers.NewBridgeCheck(healthClient))

		srvCfg := httpapi.DefaultConfig()
		srvCfg.Host = cfg.Server.Host
		srvCfg.Port = cfg.Server.Port
		srvCfg.ReadTimeout = cfg.Server.ReadTimeout
		srvCfg.WriteTimeout = cfg.Server.WriteTimeout
		srvCfg.IdleTimeout = cfg.Server.IdleTimeout
		srvCfg.RateLimitPerMinute = cfg.Server.RateLimitPerMinute
		srvCfg.Location = loc
		if cfg.Server.APIKey != "" {
			srvCfg.APIKeys = []string{cfg.Server.APIKey}
		}

		// Same nil discipline as the cache writer above.
		var stepReader httpapi.StepReader
		if stepCache != nil {
			stepReader = stepCache
		}
		var jobAdmin httpapi.JobAdmin
		if sched != nil {
			jobAdmin = sched
		}

		apiServer = httpapi.NewServer(srvCfg, httpapi.Dependencies{
			CheckIn:       checkInHandler,
			GiveTreat:     giveTreatHandler,
			Purchase:      purchaseHandler,
			Restore:       restoreHandler,
			SyncSteps:     syncStepsHandler,
			Rollover:      rolloverHandler,
			Daily:         stateRepo,
			Treats:        treats,
			Gate:          gate,
			Subs:          subs,
			Steps:         stepReader,
			Jobs:          jobAdmin,
			WeeklyChart:   cfg.Features.IsEnabled(config.FeatureWellnessWeeklyChart),
			Logger:        appLog,
			HealthChecker: checker,
		})
		apiErrCh = apiServer.StartAsync()
		appLog.Info("local API server listening", logger.String("address", apiServer.Address()))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 15. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	appLog.Info("NekoLog wellness hub worker is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		appLog.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-apiErrCh:
		if err != nil {
			appLog.Error("local API server failed", logger.Err(err))
		}
	case <-ctx.Done():
		appLog.Info("root context cancelled")
	}

	appLog.Info("starting graceful shutdown", logger.Duration("timeout", cfg.App.ShutdownTimeout))

	if apiServer != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancelShutdown()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			appLog.Warn("local API server shutdown failed", logger.Err(err))
		}
	}

	// The deferred stops drain the scheduler, dispatcher and event bus
	// in reverse registration order on return.
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LOGGER SETUP
// ══════════════════════════════════════════════════════════════════════════════

// setupSlog builds the slog logger the infrastructure packages use.
func setupSlog(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}

// setupAppLogger builds the structured logger the domain and
// application layers use.
func setupAppLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}
	return logger.New(opts)
}
