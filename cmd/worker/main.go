package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/karanja-dev/duka-pos/internal/catalog"
	"github.com/karanja-dev/duka-pos/internal/common"
	"github.com/karanja-dev/duka-pos/internal/config"
	"github.com/karanja-dev/duka-pos/internal/db"
	"github.com/karanja-dev/duka-pos/internal/lock"
	"github.com/karanja-dev/duka-pos/internal/obs"
	"github.com/karanja-dev/duka-pos/internal/report"
	"github.com/karanja-dev/duka-pos/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	obs.MustRegisterDomainMetrics(envOrDefault("OBS_METRICS_NAMESPACE", "duka"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL, "duka-pos-worker")
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		Queries:           catalog.NewRepo(pool),
		Cache:             catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		LowStockThreshold: cfg.LowStockThreshold,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}

	reportService := &report.Service{
		Q:                 report.NewRepo(pool),
		R:                 redisClient,
		TTL:               cfg.ReportCacheTTL,
		LowStockThreshold: cfg.LowStockThreshold,
	}

	redisConnOpt := asynq.RedisClientOpt{
		Addr:     redisOpts.Addr,
		Password: redisOpts.Password,
		DB:       redisOpts.DB,
	}

	lowStock := &tasks.LowStockHandler{
		Catalog:   catalogService,
		Email:     common.NopEmailSender{},
		AlertTo:   envOrDefault("LOW_STOCK_ALERT_EMAIL", ""),
		Threshold: cfg.LowStockThreshold,
		Logger:    logger,
	}
	snapshot := &tasks.ReportSnapshotHandler{
		Reports: reportService,
		Logger:  logger,
	}

	// Checkout enqueues a scan per sale; the lock keeps concurrent workers
	// from double-alerting during a busy hour.
	locker := lock.Locker{R: redisClient}
	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeLowStockScan, asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
		return locker.WithLock(ctx, "lock:low_stock_scan", 30*time.Second, func(ctx context.Context) error {
			return lowStock.ProcessTask(ctx, task)
		})
	}))
	mux.Handle(tasks.TypeReportSnapshot, snapshot)

	srv := asynq.NewServer(redisConnOpt, asynq.Config{
		Concurrency: 5,
		Logger:      asynqLogger{logger},
	})

	scheduler := asynq.NewScheduler(redisConnOpt, &asynq.SchedulerOpts{})
	registerPeriodicTasks(scheduler, logger)
	go func() {
		if err := scheduler.Run(); err != nil {
			logger.Error().Err(err).Msg("scheduler stopped")
		}
	}()

	logger.Info().Msg("worker starting")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped with error")
	}
	scheduler.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}

// registerPeriodicTasks warms the dashboard cache every morning before the
// shop opens and sweeps the shelves for low stock overnight.
func registerPeriodicTasks(scheduler *asynq.Scheduler, logger zerolog.Logger) {
	daily, err := tasks.NewReportSnapshotTask("day")
	if err == nil {
		if _, err := scheduler.Register("0 6 * * *", daily); err != nil {
			logger.Error().Err(err).Msg("register daily report snapshot")
		}
	}
	monthly, err := tasks.NewReportSnapshotTask("month")
	if err == nil {
		if _, err := scheduler.Register("0 6 * * *", monthly); err != nil {
			logger.Error().Err(err).Msg("register monthly report snapshot")
		}
	}
	if _, err := scheduler.Register("0 0 * * *", tasks.NewLowStockScanTask()); err != nil {
		logger.Error().Err(err).Msg("register nightly low stock scan")
	}
}

// asynqLogger adapts zerolog to the asynq logging interface.
type asynqLogger struct {
	l zerolog.Logger
}

func (a asynqLogger) Debug(args ...any) { a.l.Debug().Msg(sprint(args...)) }
func (a asynqLogger) Info(args ...any)  { a.l.Info().Msg(sprint(args...)) }
func (a asynqLogger) Warn(args ...any)  { a.l.Warn().Msg(sprint(args...)) }
func (a asynqLogger) Error(args ...any) { a.l.Error().Msg(sprint(args...)) }
func (a asynqLogger) Fatal(args ...any) { a.l.Fatal().Msg(sprint(args...)) }

func sprint(args ...any) string {
	return fmt.Sprint(args...)
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
