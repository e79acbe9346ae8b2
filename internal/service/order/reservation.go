package order

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/madirex/funkos-orders/internal/domain"
	"github.com/madirex/funkos-orders/internal/metrics"
)

// ReservationEngine списывает остатки под позиции заказа и вычисляет
// производные суммы. Списание выполняется условным атомарным декрементом
// на границе хранилища, поэтому два конкурентных резерва одного товара не
// могут потерять обновления друг друга.
type ReservationEngine struct {
	products domain.ProductStore
	logger   *log.Entry
	metrics  *metrics.OrderMetrics
}

// NewReservationEngine создаёт движок резервирования.
func NewReservationEngine(products domain.ProductStore, logger *log.Entry, m *metrics.OrderMetrics) *ReservationEngine {
	if logger == nil {
		logger = log.New().WithField("component", "stock-reservation")
	}
	return &ReservationEngine{products: products, logger: logger, metrics: m}
}

// Reserve обходит позиции в порядке списка, списывая остаток по каждой.
// Если позиция срывается посередине, уже списанные остатки возвращаются
// компенсирующим инкрементом до выхода из метода: частично
// зарезервированное состояние наружу не утекает.
func (e *ReservationEngine) Reserve(ctx context.Context, ord *domain.Order) error {
	if len(ord.Lines) == 0 {
		return domain.NewNoItems(ord.ID)
	}

	for i := range ord.Lines {
		line := &ord.Lines[i]

		if _, err := uuid.Parse(line.ProductID); err != nil {
			e.compensate(ctx, ord.Lines[:i])
			return domain.NewInvalidProductReference(line.ProductID)
		}

		if _, err := e.products.AdjustStock(ctx, line.ProductID, -int64(line.Qty)); err != nil {
			e.compensate(ctx, ord.Lines[:i])
			return err
		}

		line.TotalMinor = int64(line.Qty) * line.UnitPriceMinor
		if e.metrics != nil {
			e.metrics.RecordStockReserved(int64(line.Qty))
		}
	}

	ord.Recalculate()
	return nil
}

// compensate возвращает остатки по уже обработанным позициям.
// Ошибки инкремента здесь только логируются: это последний рубеж,
// повторить больше некому.
func (e *ReservationEngine) compensate(ctx context.Context, lines []domain.OrderLine) {
	for _, line := range lines {
		if _, err := e.products.AdjustStock(ctx, line.ProductID, int64(line.Qty)); err != nil {
			e.logger.WithError(err).WithFields(log.Fields{
				"product_id": line.ProductID,
				"qty":        line.Qty,
			}).Error("failed to compensate reserved stock")
			continue
		}
		if e.metrics != nil {
			e.metrics.RecordStockReleased(int64(line.Qty))
		}
	}
}

// ReleaseEngine возвращает остатки, списанные ранее под заказ.
type ReleaseEngine struct {
	products domain.ProductStore
	logger   *log.Entry
	metrics  *metrics.OrderMetrics
}

// NewReleaseEngine создаёт движок снятия резерва.
func NewReleaseEngine(products domain.ProductStore, logger *log.Entry, m *metrics.OrderMetrics) *ReleaseEngine {
	if logger == nil {
		logger = log.New().WithField("component", "stock-release")
	}
	return &ReleaseEngine{products: products, logger: logger, metrics: m}
}

// Release инкрементирует остаток по каждой позиции заказа.
// Заказ без позиций — no-op. Ошибка по товару прерывает обход и уходит
// вызывающему: частично восстановленное состояние видно по логам.
func (e *ReleaseEngine) Release(ctx context.Context, ord *domain.Order) error {
	if len(ord.Lines) == 0 {
		return nil
	}

	for _, line := range ord.Lines {
		if _, err := uuid.Parse(line.ProductID); err != nil {
			return domain.NewInvalidProductReference(line.ProductID)
		}

		if _, err := e.products.AdjustStock(ctx, line.ProductID, int64(line.Qty)); err != nil {
			return fmt.Errorf("release stock for product %s: %w", line.ProductID, err)
		}
		if e.metrics != nil {
			e.metrics.RecordStockReleased(int64(line.Qty))
		}
	}

	return nil
}
