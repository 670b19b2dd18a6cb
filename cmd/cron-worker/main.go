package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/pushrelay-backend/internal/cron"
	"github.com/angelmondragon/pushrelay-backend/internal/notifications"
	"github.com/angelmondragon/pushrelay-backend/pkg/config"
	"github.com/angelmondragon/pushrelay-backend/pkg/db"
	"github.com/angelmondragon/pushrelay-backend/pkg/logger"
	"github.com/angelmondragon/pushrelay-backend/pkg/metrics"
	"github.com/angelmondragon/pushrelay-backend/pkg/migrate"
	"github.com/angelmondragon/pushrelay-backend/pkg/redis"
)

const serviceName = "cron-worker"

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *once); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, once bool) error {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, ".env file not found, relying on environment")
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = serviceName

	logg := logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer closeQuietly(ctx, logg, "database", dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer closeQuietly(ctx, logg, "redis", redisClient.Close)

	lockKey := redisClient.LockKey(lockName(cfg.App.Env))
	service, err := newCronService(cfg, logg, redisClient, lockKey, notifications.NewRepository(dbClient.DB()), prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"interval":    cfg.Cron.Interval.String(),
		"lockKey":     lockKey,
	})
	if once {
		logg.Info(ctx, "running single cron cycle")
		return service.RunOnce(ctx)
	}

	logg.Info(ctx, "starting cron worker")
	err = service.Run(ctx)
	logg.Info(ctx, "cron worker shutting down")
	return err
}

type lockBackend interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	ReleaseOwned(ctx context.Context, key, token string) (bool, error)
}

type retentionRepository interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

func newCronService(cfg *config.Config, logg *logger.Logger, locks lockBackend, lockKey string, repo retentionRepository, reg prometheus.Registerer) (*cron.Service, error) {
	lock, err := cron.NewRedisLock(locks, lockKey, cfg.Cron.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("cron lock: %w", err)
	}
	retention, err := cron.NewRetentionJob(cron.RetentionJobParams{
		Logger:     logg,
		Repository: repo,
		Retention:  cfg.Cron.Retention(),
	})
	if err != nil {
		return nil, fmt.Errorf("retention job: %w", err)
	}
	registry, err := cron.NewRegistry(retention)
	if err != nil {
		return nil, fmt.Errorf("register jobs: %w", err)
	}
	if cfg.Cron.JobTimeout >= lock.TTL() {
		return nil, fmt.Errorf("cron job timeout %s must be below lock ttl %s", cfg.Cron.JobTimeout, lock.TTL())
	}
	return cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(reg),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
}

func closeQuietly(ctx context.Context, logg *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(ctx, "error closing "+name, err)
	}
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return serviceName + ":" + env
}
