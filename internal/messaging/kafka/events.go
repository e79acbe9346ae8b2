package kafka

import "time"

// EventType определяет тип события
type EventType string

const (
	// Order события
	EventTypeOrderCreated EventType = "order.created"
	EventTypeOrderUpdated EventType = "order.updated"
	EventTypeOrderDeleted EventType = "order.deleted"

	// Stock события
	EventTypeStockReserved EventType = "stock.reserved"
	EventTypeStockReleased EventType = "stock.released"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "funkos.order.events"
	TopicStockEvents     = "funkos.stock.events"
	TopicDeadLetterQueue = "funkos.dlq" // Dead Letter Queue для failed messages
)

// OrderEvent представляет событие заказа
type OrderEvent struct {
	EventType  EventType              `json:"event_type"`
	OrderID    string                 `json:"order_id"`
	UserID     string                 `json:"user_id"`
	TotalMinor int64                  `json:"total_minor"`
	Timestamp  time.Time              `json:"timestamp"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// StockEvent представляет движение остатка по товару
type StockEvent struct {
	EventType EventType `json:"event_type"`
	ProductID string    `json:"product_id"`
	OrderID   string    `json:"order_id"`
	Qty       int32     `json:"qty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewOrderEvent создает новое событие заказа
func NewOrderEvent(eventType EventType, orderID, userID string, totalMinor int64, metadata map[string]interface{}) *OrderEvent {
	return &OrderEvent{
		EventType:  eventType,
		OrderID:    orderID,
		UserID:     userID,
		TotalMinor: totalMinor,
		Timestamp:  time.Now(),
		Metadata:   metadata,
	}
}

// NewStockEvent создает новое событие движения остатка
func NewStockEvent(eventType EventType, productID, orderID string, qty int32) *StockEvent {
	return &StockEvent{
		EventType: eventType,
		ProductID: productID,
		OrderID:   orderID,
		Qty:       qty,
		Timestamp: time.Now(),
	}
}
