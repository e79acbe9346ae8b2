package kafka

import (
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"
)

func TestProducer_PublishEvent(t *testing.T) {
	// Создаем mock producer
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	// Настраиваем ожидания
	mockProducer.ExpectSendMessageAndSucceed()

	// Создаем тестовое событие
	event := NewOrderEvent(
		EventTypeOrderCreated,
		"test-order-123",
		"user-1",
		3998,
		map[string]interface{}{
			"lines": 2,
		},
	)

	// Публикуем событие
	err := producer.PublishEvent(TopicOrderEvents, "test-order-123", event)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Проверяем, что все ожидания выполнены
	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_Error(t *testing.T) {
	// Создаем mock producer с ошибкой
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	// Настраиваем ожидание ошибки
	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	event := NewOrderEvent(
		EventTypeOrderDeleted,
		"test-order-123",
		"user-1",
		0,
		nil,
	)

	// Публикуем событие
	err := producer.PublishEvent(TopicOrderEvents, "test-order-123", event)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestNewOrderEvent(t *testing.T) {
	orderID := "order-123"
	userID := "user-1"
	metadata := map[string]interface{}{
		"lines": 1,
	}

	event := NewOrderEvent(EventTypeOrderUpdated, orderID, userID, 1999, metadata)

	if event.EventType != EventTypeOrderUpdated {
		t.Errorf("expected event type %s, got %s", EventTypeOrderUpdated, event.EventType)
	}

	if event.OrderID != orderID {
		t.Errorf("expected order id %s, got %s", orderID, event.OrderID)
	}

	if event.UserID != userID {
		t.Errorf("expected user id %s, got %s", userID, event.UserID)
	}

	if event.TotalMinor != 1999 {
		t.Errorf("expected total 1999, got %d", event.TotalMinor)
	}

	if event.Metadata["lines"] != 1 {
		t.Error("metadata not set correctly")
	}

	// Проверяем, что timestamp установлен
	if event.Timestamp.IsZero() {
		t.Error("timestamp should not be zero")
	}

	// Проверяем, что timestamp близок к текущему времени
	if time.Since(event.Timestamp) > time.Second {
		t.Error("timestamp should be close to current time")
	}
}

func TestNewStockEvent(t *testing.T) {
	event := NewStockEvent(EventTypeStockReserved, "prod-1", "order-123", 3)

	if event.EventType != EventTypeStockReserved {
		t.Errorf("expected event type %s, got %s", EventTypeStockReserved, event.EventType)
	}

	if event.ProductID != "prod-1" || event.OrderID != "order-123" {
		t.Errorf("unexpected identifiers: %+v", event)
	}

	if event.Qty != 3 {
		t.Errorf("expected qty 3, got %d", event.Qty)
	}

	if event.Timestamp.IsZero() {
		t.Error("timestamp should not be zero")
	}
}
