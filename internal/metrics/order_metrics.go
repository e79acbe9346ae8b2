package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics содержит метрики жизненного цикла заказов и складских операций.
type OrderMetrics struct {
	// Счётчики операций
	ordersCreated prometheus.Counter
	ordersUpdated prometheus.Counter
	ordersDeleted prometheus.Counter
	ordersFailed  *prometheus.CounterVec

	// Счётчики движения остатков (в единицах товара)
	stockReserved prometheus.Counter
	stockReleased prometheus.Counter

	// Гистограммы времени выполнения операций
	operationDuration *prometheus.HistogramVec

	// Счётчик событий outbox
	outboxEvents prometheus.Counter
}

// NewOrderMetrics создаёт новый экземпляр метрик заказов.
func NewOrderMetrics() *OrderMetrics {
	return newOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "funkos_orders_created_total",
			Help: "Total number of orders created with stock reserved",
		}),
		ordersUpdated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "funkos_orders_updated_total",
			Help: "Total number of orders updated with stock re-reserved",
		}),
		ordersDeleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "funkos_orders_deleted_total",
			Help: "Total number of orders deleted with stock released",
		}),
		ordersFailed: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "funkos_orders_failed_total",
			Help: "Total number of failed order lifecycle operations grouped by reason",
		}, []string{"reason"}),
		stockReserved: registerCounter(registerer, prometheus.CounterOpts{
			Name: "funkos_stock_reserved_units_total",
			Help: "Total number of product units reserved",
		}),
		stockReleased: registerCounter(registerer, prometheus.CounterOpts{
			Name: "funkos_stock_released_units_total",
			Help: "Total number of product units released",
		}),
		operationDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "funkos_order_operation_duration_seconds",
			Help:    "Duration of order lifecycle operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"operation"}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "funkos_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderCreated увеличивает счётчик созданных заказов.
func (m *OrderMetrics) RecordOrderCreated() {
	m.ordersCreated.Inc()
}

// RecordOrderUpdated увеличивает счётчик обновлённых заказов.
func (m *OrderMetrics) RecordOrderUpdated() {
	m.ordersUpdated.Inc()
}

// RecordOrderDeleted увеличивает счётчик удалённых заказов.
func (m *OrderMetrics) RecordOrderDeleted() {
	m.ordersDeleted.Inc()
}

// RecordOrderFailed увеличивает счётчик неудачных операций по причине.
func (m *OrderMetrics) RecordOrderFailed(reason string) {
	m.ordersFailed.WithLabelValues(reason).Inc()
}

// RecordStockReserved учитывает зарезервированные единицы товара.
func (m *OrderMetrics) RecordStockReserved(units int64) {
	if units > 0 {
		m.stockReserved.Add(float64(units))
	}
}

// RecordStockReleased учитывает возвращённые единицы товара.
func (m *OrderMetrics) RecordStockReleased(units int64) {
	if units > 0 {
		m.stockReleased.Add(float64(units))
	}
}

// RecordOperationDuration записывает время выполнения операции жизненного цикла.
func (m *OrderMetrics) RecordOperationDuration(operation string, duration time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *OrderMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}
