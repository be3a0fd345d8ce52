package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"

	"github.com/yourusername/cookie-auth/internal/config"
	"github.com/yourusername/cookie-auth/internal/storage"
)

// setupStore は STORE_DRIVER に応じたユーザーストアと、その後始末関数を返します。
func setupStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := waitFor(ctx, cfg.DBConnectRetries, logger, "postgres", pool.Ping); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		if err := storage.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return storage.NewPostgresStore(pool), pool.Close, nil

	case config.StoreDriverRedis:
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opt)
		ping := func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		if err := waitFor(ctx, cfg.DBConnectRetries, logger, "redis", ping); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		return storage.NewRedisStore(rdb), func() { _ = rdb.Close() }, nil

	default:
		logger.Warn("using in-memory user store; registered users are lost on restart")
		return storage.NewMemoryStore(), func() {}, nil
	}
}

// waitFor は依存先が応答するまで指数バックオフで ping を繰り返します。
func waitFor(ctx context.Context, retries int, logger *slog.Logger, target string, ping func(context.Context) error) error {
	if retries < 0 {
		retries = 0
	}
	backoff := retry.WithMaxRetries(uint64(retries), retry.NewExponential(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := ping(ctx); err != nil {
			logger.Warn("dependency not ready", "target", target, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}
