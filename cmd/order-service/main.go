package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/madirex/funkos-orders/internal/app"
)

// Имена переменных окружения, переопределяющих конфигурацию.
const (
	envMetricsAddr         = "FUNKOS_METRICS_ADDR"
	envStorageDriver       = "FUNKOS_STORAGE_DRIVER"
	envPostgresDSN         = "FUNKOS_POSTGRES_DSN"
	envPostgresAutoMigrate = "FUNKOS_POSTGRES_AUTO_MIGRATE"
	envRedisAddr           = "FUNKOS_REDIS_ADDR"
	envKafkaBrokers        = "FUNKOS_KAFKA_BROKERS"
	envOutboxTopic         = "FUNKOS_OUTBOX_TOPIC"
	envOutboxPollInterval  = "FUNKOS_OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize     = "FUNKOS_OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts   = "FUNKOS_OUTBOX_MAX_ATTEMPTS"
	envOutboxRetryDelay    = "FUNKOS_OUTBOX_RETRY_DELAY"
)

// envLookup абстрагирует os.LookupEnv для тестов.
type envLookup func(key string) (string, bool)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
}

// readConfigFromEnv накладывает переменные окружения поверх DefaultConfig.
// Невалидные значения не роняют запуск: поле остаётся дефолтным, а причина
// возвращается предупреждением.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string

	warn := func(key, value, reason string) {
		warnings = append(warnings, fmt.Sprintf("%s=%q ignored: %s", key, value, reason))
	}

	if v, ok := lookup(envMetricsAddr); ok && strings.TrimSpace(v) != "" {
		cfg.MetricsAddr = strings.TrimSpace(v)
	}
	if v, ok := lookup(envStorageDriver); ok && strings.TrimSpace(v) != "" {
		cfg.StorageDriver = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(envPostgresDSN); ok && strings.TrimSpace(v) != "" {
		cfg.PostgresDSN = strings.TrimSpace(v)
	}
	if v, ok := lookup(envPostgresAutoMigrate); ok {
		parsed, err := parseBool(v)
		if err != nil {
			warn(envPostgresAutoMigrate, v, err.Error())
		} else {
			cfg.PostgresAutoMigrate = parsed
		}
	}
	if v, ok := lookup(envRedisAddr); ok && strings.TrimSpace(v) != "" {
		cfg.RedisAddr = strings.TrimSpace(v)
	}
	if v, ok := lookup(envKafkaBrokers); ok {
		cfg.KafkaBrokers = strings.TrimSpace(v)
	}
	if v, ok := lookup(envOutboxTopic); ok && strings.TrimSpace(v) != "" {
		cfg.OutboxTopic = strings.TrimSpace(v)
	}
	if v, ok := lookup(envOutboxPollInterval); ok {
		parsed, err := parseDuration(v, func(d time.Duration) bool { return d > 0 }, "must be > 0")
		if err != nil {
			warn(envOutboxPollInterval, v, err.Error())
		} else {
			cfg.OutboxPollInterval = parsed
		}
	}
	if v, ok := lookup(envOutboxBatchSize); ok {
		parsed, err := parseInt(v, func(n int) bool { return n > 0 }, "must be > 0")
		if err != nil {
			warn(envOutboxBatchSize, v, err.Error())
		} else {
			cfg.OutboxBatchSize = parsed
		}
	}
	if v, ok := lookup(envOutboxMaxAttempts); ok {
		parsed, err := parseInt(v, func(n int) bool { return n > 0 }, "must be > 0")
		if err != nil {
			warn(envOutboxMaxAttempts, v, err.Error())
		} else {
			cfg.OutboxMaxAttempts = parsed
		}
	}
	if v, ok := lookup(envOutboxRetryDelay); ok {
		parsed, err := parseDuration(v, func(d time.Duration) bool { return d >= 0 }, "must be >= 0")
		if err != nil {
			warn(envOutboxRetryDelay, v, err.Error())
		} else {
			cfg.OutboxRetryDelay = parsed
		}
	}

	return cfg, warnings
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value")
	}
}

func parseInt(value string, valid func(int) bool, constraint string) (int, error) {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid int value")
	}
	if !valid(parsed) {
		return 0, fmt.Errorf("%s", constraint)
	}
	return parsed, nil
}

func parseDuration(value string, valid func(time.Duration) bool, constraint string) (time.Duration, error) {
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid duration value")
	}
	if !valid(parsed) {
		return 0, fmt.Errorf("%s", constraint)
	}
	return parsed, nil
}

func main() {
	setupLogger()

	cfg, warnings := readConfigFromEnv(os.LookupEnv)
	for _, warning := range warnings {
		log.Warn(warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"metrics_addr":   cfg.MetricsAddr,
		"storage_driver": cfg.StorageDriver,
	}).Info("запускаем сервис заказов")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("сервис заказов остановлен")
}
