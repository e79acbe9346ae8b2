package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewOrderMetrics_AllCollectorsPresent(t *testing.T) {
	m := newOrderMetricsWithRegisterer(prometheus.NewRegistry())

	if m.ordersCreated == nil {
		t.Error("ordersCreated counter should not be nil")
	}
	if m.ordersUpdated == nil {
		t.Error("ordersUpdated counter should not be nil")
	}
	if m.ordersDeleted == nil {
		t.Error("ordersDeleted counter should not be nil")
	}
	if m.ordersFailed == nil {
		t.Error("ordersFailed counter vec should not be nil")
	}
	if m.stockReserved == nil {
		t.Error("stockReserved counter should not be nil")
	}
	if m.stockReleased == nil {
		t.Error("stockReleased counter should not be nil")
	}
	if m.operationDuration == nil {
		t.Error("operationDuration histogram vec should not be nil")
	}
	if m.outboxEvents == nil {
		t.Error("outboxEvents counter should not be nil")
	}
}

func TestOrderMetrics_Counters(t *testing.T) {
	m := newOrderMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordOrderCreated()
	m.RecordOrderCreated()
	m.RecordOrderUpdated()
	m.RecordOrderDeleted()
	m.RecordOrderFailed("product_without_stock")
	m.RecordStockReserved(5)
	m.RecordStockReleased(3)
	// Отрицательные и нулевые значения не учитываются.
	m.RecordStockReserved(0)
	m.RecordStockReleased(-1)
	m.RecordOutboxEvent()
	m.RecordOperationDuration("create", 10*time.Millisecond)

	if got := testutil.ToFloat64(m.ordersCreated); got != 2 {
		t.Errorf("ordersCreated = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ordersUpdated); got != 1 {
		t.Errorf("ordersUpdated = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ordersDeleted); got != 1 {
		t.Errorf("ordersDeleted = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ordersFailed.WithLabelValues("product_without_stock")); got != 1 {
		t.Errorf("ordersFailed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.stockReserved); got != 5 {
		t.Errorf("stockReserved = %v, want 5", got)
	}
	if got := testutil.ToFloat64(m.stockReleased); got != 3 {
		t.Errorf("stockReleased = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.outboxEvents); got != 1 {
		t.Errorf("outboxEvents = %v, want 1", got)
	}
}

func TestOrderMetrics_DoubleRegistrationReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := newOrderMetricsWithRegisterer(reg)
	second := newOrderMetricsWithRegisterer(reg)

	first.RecordOrderCreated()
	second.RecordOrderCreated()

	if got := testutil.ToFloat64(second.ordersCreated); got != 2 {
		t.Errorf("shared ordersCreated = %v, want 2", got)
	}
}
