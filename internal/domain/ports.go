package domain

import (
	"context"
	"time"
)

// ProductStore описывает хранилище товаров (реляционное в production).
type ProductStore interface {
	// FindByID возвращает товар по идентификатору или ErrProductNotFound.
	FindByID(ctx context.Context, id string) (Product, error)
	// Save сохраняет товар целиком и возвращает сохранённое состояние.
	Save(ctx context.Context, product Product) (Product, error)
	// AdjustStock атомарно изменяет остаток товара на delta.
	// Условие применяется на границе хранилища: если итоговый остаток
	// был бы отрицательным, возвращается ErrProductWithoutStock и остаток
	// не меняется. Это закрывает lost-update гонку read-modify-write.
	AdjustStock(ctx context.Context, id string, delta int64) (Product, error)
}

// OrderStore описывает хранилище заказов (документное в production).
type OrderStore interface {
	// Create сохраняет новый заказ. Возвращает ошибку, если запись с таким ID уже существует.
	Create(ctx context.Context, order Order) (Order, error)
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(ctx context.Context, id string) (Order, error)
	// Save применяет обновления к заказу с учётом optimistic locking.
	Save(ctx context.Context, order Order) (Order, error)
	// DeleteByID удаляет заказ; отсутствие записи — ErrOrderNotFound.
	DeleteByID(ctx context.Context, id string) error
	// FindAll возвращает страницу всех неудалённых заказов.
	FindAll(ctx context.Context, page PageRequest) (OrderPage, error)
	// FindByUserID возвращает страницу заказов пользователя.
	// Пагинация выполняется на стороне хранилища, а не срезом в памяти.
	FindByUserID(ctx context.Context, userID string, page PageRequest) (OrderPage, error)
}

// PageRequest задаёт параметры страницы: номер с нуля и размер.
type PageRequest struct {
	Number int
	Size   int
}

// Normalize приводит параметры страницы к допустимым значениям.
func (p PageRequest) Normalize() PageRequest {
	if p.Number < 0 {
		p.Number = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	return p
}

// DefaultPageSize используется, когда клиент не задал размер страницы.
const DefaultPageSize = 20

// OrderPage — страница заказов с метаданными выборки.
type OrderPage struct {
	Content       []Order
	Number        int
	Size          int
	TotalElements int64
	TotalPages    int
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
