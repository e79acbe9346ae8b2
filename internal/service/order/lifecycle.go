package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/madirex/funkos-orders/internal/domain"
	"github.com/madirex/funkos-orders/internal/messaging/kafka"
	"github.com/madirex/funkos-orders/internal/metrics"
)

// Service оркестрирует жизненный цикл заказа: валидация, резервирование,
// персист и компенсации между двумя разными хранилищами.
//
// Последовательности шагов:
//
//	Create: Validate → Reserve → Save; при ошибке Save резерв возвращается.
//	Update: Release(старые) → Validate(новые) → Reserve(новые) → Save;
//	        при срыве любого шага предыдущий резерв восстанавливается.
//	Delete: Release → DeleteByID; при ошибке удаления резерв восстанавливается.
type Service struct {
	orders    domain.OrderStore
	validator *Validator
	reserve   *ReservationEngine
	release   *ReleaseEngine
	outbox    domain.OutboxRepository
	logger    *log.Entry
	metrics   *metrics.OrderMetrics
}

// Options задаёт опциональные зависимости сервиса.
type Options struct {
	Logger  *log.Entry
	Outbox  domain.OutboxRepository
	Metrics *metrics.OrderMetrics
}

// Option настраивает Service.
type Option func(*Options)

// WithLogger задаёт logger сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithOutbox подключает transactional outbox для событий жизненного цикла.
func WithOutbox(outbox domain.OutboxRepository) Option {
	return func(opts *Options) {
		opts.Outbox = outbox
	}
}

// WithMetrics подключает метрики операций.
func WithMetrics(m *metrics.OrderMetrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// NewService создаёт сервис жизненного цикла заказов.
func NewService(orders domain.OrderStore, products domain.ProductStore, options ...Option) *Service {
	opts := Options{}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New().WithField("component", "order-lifecycle")
	}

	return &Service{
		orders:    orders,
		validator: NewValidator(products, logger),
		reserve:   NewReservationEngine(products, logger, opts.Metrics),
		release:   NewReleaseEngine(products, logger, opts.Metrics),
		outbox:    opts.Outbox,
		logger:    logger,
		metrics:   opts.Metrics,
	}
}

// Create проводит новый заказ: проверяет позиции, списывает остатки и
// сохраняет заказ. Если заказ не удалось сохранить, списанный резерв
// возвращается компенсирующим релизом до выхода из метода.
func (s *Service) Create(ctx context.Context, ord domain.Order) (domain.Order, error) {
	start := time.Now()
	defer s.observe("create", start)

	if err := s.validator.Validate(ctx, &ord); err != nil {
		s.fail("create", ord.ID, err)
		return domain.Order{}, err
	}
	if err := s.reserve.Reserve(ctx, &ord); err != nil {
		s.fail("create", ord.ID, err)
		return domain.Order{}, err
	}

	now := time.Now().UTC()
	ord.CreatedAt = now
	ord.UpdatedAt = now
	ord.Version = 0
	ord.IsDeleted = false

	created, err := s.orders.Create(ctx, ord)
	if err != nil {
		// Заказ не сохранился: резерв обязан вернуться, иначе остаток
		// остаётся списанным без соответствующего заказа.
		if relErr := s.release.Release(ctx, &ord); relErr != nil {
			s.logger.WithError(relErr).WithField("order_id", ord.ID).
				Error("failed to release stock after persist failure")
		}
		s.fail("create", ord.ID, err)
		return domain.Order{}, fmt.Errorf("persist order: %w", err)
	}

	s.emitOrderEvent(created, kafka.EventTypeOrderCreated)
	s.emitStockEvents(created, kafka.EventTypeStockReserved)
	if s.metrics != nil {
		s.metrics.RecordOrderCreated()
	}
	s.logger.WithFields(log.Fields{
		"order_id": created.ID,
		"user_id":  created.UserID,
		"qty":      created.Qty,
		"total":    created.TotalMinor,
	}).Info("order created")

	return created, nil
}

// Update заменяет позиции заказа. Старый резерв снимается до проверки
// новых позиций; если новые позиции не проходят или заказ не сохраняется,
// прежний резерв восстанавливается.
func (s *Service) Update(ctx context.Context, id string, incoming domain.Order) (domain.Order, error) {
	start := time.Now()
	defer s.observe("update", start)

	current, err := s.getActive(ctx, id)
	if err != nil {
		s.fail("update", id, err)
		return domain.Order{}, err
	}

	prev := current
	prev.Lines = append([]domain.OrderLine(nil), current.Lines...)

	if err := s.release.Release(ctx, &current); err != nil {
		s.fail("update", id, err)
		return domain.Order{}, err
	}

	candidate := current
	candidate.Lines = append([]domain.OrderLine(nil), incoming.Lines...)
	if len(incoming.Shipping) > 0 {
		candidate.Shipping = incoming.Shipping
	}

	if err := s.validator.Validate(ctx, &candidate); err != nil {
		s.restoreReservation(ctx, prev, "update")
		s.fail("update", id, err)
		return domain.Order{}, err
	}
	if err := s.reserve.Reserve(ctx, &candidate); err != nil {
		s.restoreReservation(ctx, prev, "update")
		s.fail("update", id, err)
		return domain.Order{}, err
	}

	candidate.UpdatedAt = time.Now().UTC()

	saved, err := s.orders.Save(ctx, candidate)
	if err != nil {
		if relErr := s.release.Release(ctx, &candidate); relErr != nil {
			s.logger.WithError(relErr).WithField("order_id", id).
				Error("failed to release new reservation after persist failure")
		}
		s.restoreReservation(ctx, prev, "update")
		s.fail("update", id, err)
		return domain.Order{}, fmt.Errorf("persist order update: %w", err)
	}

	s.emitOrderEvent(saved, kafka.EventTypeOrderUpdated)
	s.emitStockEvents(prev, kafka.EventTypeStockReleased)
	s.emitStockEvents(saved, kafka.EventTypeStockReserved)
	if s.metrics != nil {
		s.metrics.RecordOrderUpdated()
	}
	s.logger.WithFields(log.Fields{
		"order_id": saved.ID,
		"qty":      saved.Qty,
		"total":    saved.TotalMinor,
	}).Info("order updated")

	return saved, nil
}

// Delete снимает резерв заказа и удаляет его из хранилища.
// Удаление выполняется только после успешного возврата остатков.
func (s *Service) Delete(ctx context.Context, id string) error {
	start := time.Now()
	defer s.observe("delete", start)

	current, err := s.getActive(ctx, id)
	if err != nil {
		s.fail("delete", id, err)
		return err
	}

	if err := s.release.Release(ctx, &current); err != nil {
		s.fail("delete", id, err)
		return err
	}

	if err := s.orders.DeleteByID(ctx, id); err != nil {
		// Заказ остался в хранилище: возвращаем резерв, чтобы остаток
		// снова соответствовал его позициям.
		s.restoreReservation(ctx, current, "delete")
		s.fail("delete", id, err)
		return err
	}

	s.emitOrderEvent(current, kafka.EventTypeOrderDeleted)
	s.emitStockEvents(current, kafka.EventTypeStockReleased)
	if s.metrics != nil {
		s.metrics.RecordOrderDeleted()
	}
	s.logger.WithField("order_id", id).Info("order deleted, stock released")

	return nil
}

// FindByID возвращает заказ без каких-либо складских эффектов.
// Мягко удалённые заказы для сервиса не существуют.
func (s *Service) FindByID(ctx context.Context, id string) (domain.Order, error) {
	return s.getActive(ctx, id)
}

// getActive загружает заказ и отсекает мягко удалённые: для жизненного
// цикла такой заказ эквивалентен отсутствующему.
func (s *Service) getActive(ctx context.Context, id string) (domain.Order, error) {
	ord, err := s.orders.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if ord.IsDeleted {
		return domain.Order{}, domain.NewOrderNotFound(id)
	}
	return ord, nil
}

// FindAll возвращает страницу всех заказов.
func (s *Service) FindAll(ctx context.Context, page domain.PageRequest) (domain.OrderPage, error) {
	return s.orders.FindAll(ctx, page)
}

// FindByUser возвращает страницу заказов пользователя; пагинация уходит в хранилище.
func (s *Service) FindByUser(ctx context.Context, userID string, page domain.PageRequest) (domain.OrderPage, error) {
	return s.orders.FindByUserID(ctx, userID, page)
}

// restoreReservation повторно списывает остатки под прежние позиции заказа.
// Ошибка здесь означает, что кто-то успел выкупить остаток между релизом и
// восстановлением: фиксируем в логе, заказ остаётся без резерва.
func (s *Service) restoreReservation(ctx context.Context, prev domain.Order, operation string) {
	restore := prev
	restore.Lines = append([]domain.OrderLine(nil), prev.Lines...)
	if len(restore.Lines) == 0 {
		return
	}
	if err := s.reserve.Reserve(ctx, &restore); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id":  prev.ID,
			"operation": operation,
		}).Error("failed to restore previous reservation")
	}
}

// emitOrderEvent кладёт событие жизненного цикла заказа в outbox.
func (s *Service) emitOrderEvent(ord domain.Order, eventType kafka.EventType) {
	if s.outbox == nil {
		return
	}

	event := kafka.NewOrderEvent(eventType, ord.ID, ord.UserID, ord.TotalMinor, map[string]interface{}{
		"qty": ord.Qty,
	})
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": ord.ID,
			"event":    eventType,
		}).Error("marshal event failed")
		return
	}

	s.enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   ord.ID,
		EventType:     string(eventType),
		Payload:       payload,
	})
}

// emitStockEvents кладёт в outbox по событию движения остатка на каждую
// позицию заказа. Порядок событий повторяет порядок позиций.
func (s *Service) emitStockEvents(ord domain.Order, eventType kafka.EventType) {
	if s.outbox == nil {
		return
	}

	for _, line := range ord.Lines {
		event := kafka.NewStockEvent(eventType, line.ProductID, ord.ID, line.Qty)
		payload, err := json.Marshal(event)
		if err != nil {
			s.logger.WithError(err).WithFields(log.Fields{
				"product_id": line.ProductID,
				"event":      eventType,
			}).Error("marshal event failed")
			continue
		}

		s.enqueue(domain.OutboxMessage{
			AggregateType: "product",
			AggregateID:   line.ProductID,
			EventType:     string(eventType),
			Payload:       payload,
		})
	}
}

func (s *Service) enqueue(msg domain.OutboxMessage) {
	if _, err := s.outbox.Enqueue(msg); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"aggregate_id": msg.AggregateID,
			"event":        msg.EventType,
		}).Error("enqueue event failed")
	} else if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
	}
}

func (s *Service) observe(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordOperationDuration(operation, time.Since(start))
	}
}

func (s *Service) fail(operation, orderID string, err error) {
	if s.metrics != nil {
		s.metrics.RecordOrderFailed(failureReason(err))
	}
	s.logger.WithError(err).WithFields(log.Fields{
		"operation": operation,
		"order_id":  orderID,
	}).Warn("order lifecycle operation failed")
}

// failureReason переводит вид ошибки в метку метрики.
func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoItems):
		return "no_items"
	case errors.Is(err, domain.ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, domain.ErrInvalidProductReference):
		return "invalid_product_reference"
	case errors.Is(err, domain.ErrProductWithoutStock):
		return "product_without_stock"
	case errors.Is(err, domain.ErrProductBadPrice):
		return "product_bad_price"
	case errors.Is(err, domain.ErrOrderNotFound):
		return "order_not_found"
	case errors.Is(err, domain.ErrOrderVersionConflict):
		return "version_conflict"
	default:
		return "internal"
	}
}
