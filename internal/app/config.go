package app

import "time"

// Storage drivers, поддерживаемые приложением.
const (
	// StorageDriverMemory — всё в памяти, для разработки и тестов.
	StorageDriverMemory = "memory"
	// StorageDriverDurable — products в PostgreSQL, orders в Redis.
	StorageDriverDurable = "durable"
)

// Config описывает настройки запуска приложения.
type Config struct {
	MetricsAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool
	RedisAddr           string

	KafkaBrokers string
	OutboxTopic  string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration
}

// DefaultConfig возвращает базовые настройки: memory storage, метрики на :9090.
func DefaultConfig() Config {
	return Config{
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		OutboxPollInterval:  time.Second,
		OutboxBatchSize:     100,
		OutboxMaxAttempts:   3,
		OutboxRetryDelay:    50 * time.Millisecond,
	}
}
