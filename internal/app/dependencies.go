package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/madirex/funkos-orders/internal/domain"
	"github.com/madirex/funkos-orders/internal/storage/memory"
)

// Dependencies содержит хранилища приложения.
type Dependencies struct {
	Products   domain.ProductStore
	Orders     domain.OrderStore
	OutboxRepo domain.OutboxRepository
	Logger     *log.Entry
}

// NewDependencies создаёт in-memory зависимости для разработки и тестов.
func NewDependencies(logger *log.Entry) *Dependencies {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	return &Dependencies{
		Products:   memory.NewProductStore(),
		Orders:     memory.NewOrderStore(),
		OutboxRepo: memory.NewOutboxRepository(),
		Logger:     logger,
	}
}
