package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/madirex/funkos-orders/internal/health"
	"github.com/madirex/funkos-orders/internal/storage/memory"
	"github.com/madirex/funkos-orders/internal/storage/postgres"
	"github.com/madirex/funkos-orders/internal/storage/redisstore"
)

// runtimeDependencies — хранилища, подобранные под выбранный storage driver,
// вместе с health-чекерами и функцией освобождения ресурсов.
type runtimeDependencies struct {
	*Dependencies
	checkers map[string]healthcheck.Checker
	closeFn  func() error
}

// initRuntimeDependencies выбирает реализацию хранилищ по cfg.StorageDriver.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	switch cfg.StorageDriver {
	case "", StorageDriverMemory:
		logger.Info("using in-memory storage")
		return &runtimeDependencies{
			Dependencies: NewDependencies(logger),
			checkers:     map[string]healthcheck.Checker{},
		}, nil

	case StorageDriverDurable:
		return initDurableStorage(ctx, cfg, logger)

	default:
		return nil, fmt.Errorf("unsupported storage driver: %q", cfg.StorageDriver)
	}
}

func initDurableStorage(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("storage driver %q requires postgres dsn", StorageDriverDurable)
	}
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("storage driver %q requires redis addr", StorageDriverDurable)
	}

	pg, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.PostgresAutoMigrate {
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = pg.Close()
			return nil, fmt.Errorf("migrate postgres schema: %w", err)
		}
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = pg.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	orders := redisstore.NewOrderStore(redisClient)
	logger.WithFields(log.Fields{
		"redis": cfg.RedisAddr,
	}).Info("using postgres products and redis orders storage")

	deps := &runtimeDependencies{
		Dependencies: &Dependencies{
			Products: postgres.NewProductStore(pg),
			Orders:   orders,
			// Outbox остаётся в памяти: очередь событий привязана к процессу.
			OutboxRepo: memory.NewOutboxRepository(),
			Logger:     logger,
		},
		checkers: map[string]healthcheck.Checker{
			"postgres": healthcheck.NewPingChecker("postgres", 0, pg.Ping),
			"redis":    healthcheck.NewPingChecker("redis", 0, orders.Ping),
		},
		closeFn: func() error {
			redisErr := redisClient.Close()
			if err := pg.Close(); err != nil {
				return err
			}
			return redisErr
		},
	}
	return deps, nil
}
