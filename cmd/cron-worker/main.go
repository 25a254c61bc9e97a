package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/dealercrm-backend/internal/cron"
	"github.com/angelmondragon/dealercrm-backend/internal/incomplete"
	"github.com/angelmondragon/dealercrm-backend/pkg/config"
	"github.com/angelmondragon/dealercrm-backend/pkg/db"
	"github.com/angelmondragon/dealercrm-backend/pkg/instance"
	"github.com/angelmondragon/dealercrm-backend/pkg/logger"
	"github.com/angelmondragon/dealercrm-backend/pkg/metrics"
	"github.com/angelmondragon/dealercrm-backend/pkg/migrate"
	"github.com/angelmondragon/dealercrm-backend/pkg/outbox"
	"github.com/angelmondragon/dealercrm-backend/pkg/redis"
)

const serviceKind = "cron-worker"

func main() {
	once := flag.String("job", "", "run a single job by name and exit")
	flag.Parse()

	bootLog := logger.New(logger.Options{ServiceName: serviceKind})
	if err := godotenv.Load(); err != nil {
		bootLog.Warn(context.Background(), ".env file not found, relying on environment")
	}
	cfg, err := config.Load()
	if err != nil {
		bootLog.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceKind

	logg := logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": serviceKind,
		"instance":    instance.GetID(),
	})

	if err := run(ctx, cfg, logg, *once); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shut down")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, once string) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), instance.GetID(), cfg.Cron.LockTTL)
	if err != nil {
		return err
	}

	registry, err := buildRegistry(cfg, logg, dbClient)
	if err != nil {
		return err
	}

	reg := metrics.NewRegistry()
	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(reg),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		return err
	}

	if addr := cfg.Service.MetricsAddr; addr != "" && once == "" {
		go func() {
			if err := metrics.Serve(ctx, addr, reg); err != nil {
				logg.Error(ctx, "metrics listener stopped", err)
			}
		}()
	}

	if once != "" {
		logg.Info(logg.WithField(ctx, "job", once), "running single cron job")
		return service.RunOnce(ctx, once)
	}
	logg.Info(ctx, "starting cron worker")
	return service.Run(ctx)
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*cron.Registry, error) {
	outboxRetention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewRepository(dbClient.DB()),
		Retention:  cfg.Outbox.Retention,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox retention job: %w", err)
	}
	sessionRetention, err := cron.NewIncompleteSessionRetentionJob(cron.IncompleteSessionRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: incomplete.NewRepository(dbClient.DB()),
		Retention:  cfg.Incomplete.Retention,
	})
	if err != nil {
		return nil, fmt.Errorf("incomplete session retention job: %w", err)
	}
	return cron.NewRegistry(outboxRetention, sessionRetention), nil
}

// lockName scopes the lock per environment so staging and prod never contend.
func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return "cron-worker:" + env
}
