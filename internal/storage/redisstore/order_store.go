package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/madirex/funkos-orders/internal/domain"
)

const (
	orderKeyPrefix = "order:"
	allOrdersKey   = "orders:all"
	userOrdersKey  = "orders:user:"
)

// OrderStore — документная реализация OrderStore поверх Redis.
// Заказ хранится JSON-документом под ключом order:<id>; выборки идут через
// отсортированные индексы orders:all и orders:user:<id> (score — момент
// создания), мягко удалённые заказы из индексов исключаются.
type OrderStore struct {
	client *redis.Client
}

// NewOrderStore создаёт Redis-хранилище заказов.
func NewOrderStore(client *redis.Client) *OrderStore {
	return &OrderStore{client: client}
}

// orderDocument — сериализуемое представление заказа.
type orderDocument struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	Shipping   json.RawMessage `json:"shipping,omitempty"`
	Lines      []lineDocument  `json:"lines"`
	Qty        int32           `json:"qty"`
	TotalMinor int64           `json:"total_minor"`
	Version    int64           `json:"version"`
	IsDeleted  bool            `json:"is_deleted"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type lineDocument struct {
	ProductID      string `json:"product_id"`
	Qty            int32  `json:"qty"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
	TotalMinor     int64  `json:"total_minor"`
}

func toDocument(order domain.Order) orderDocument {
	lines := make([]lineDocument, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, lineDocument{
			ProductID:      line.ProductID,
			Qty:            line.Qty,
			UnitPriceMinor: line.UnitPriceMinor,
			TotalMinor:     line.TotalMinor,
		})
	}
	return orderDocument{
		ID:         order.ID,
		UserID:     order.UserID,
		Shipping:   order.Shipping,
		Lines:      lines,
		Qty:        order.Qty,
		TotalMinor: order.TotalMinor,
		Version:    order.Version,
		IsDeleted:  order.IsDeleted,
		CreatedAt:  order.CreatedAt,
		UpdatedAt:  order.UpdatedAt,
	}
}

func (d orderDocument) toDomain() domain.Order {
	lines := make([]domain.OrderLine, 0, len(d.Lines))
	for _, line := range d.Lines {
		lines = append(lines, domain.OrderLine{
			ProductID:      line.ProductID,
			Qty:            line.Qty,
			UnitPriceMinor: line.UnitPriceMinor,
			TotalMinor:     line.TotalMinor,
		})
	}
	return domain.Order{
		ID:         d.ID,
		UserID:     d.UserID,
		Shipping:   d.Shipping,
		Lines:      lines,
		Qty:        d.Qty,
		TotalMinor: d.TotalMinor,
		Version:    d.Version,
		IsDeleted:  d.IsDeleted,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

// Create сохраняет новый документ заказа и добавляет его в индексы.
func (s *OrderStore) Create(ctx context.Context, order domain.Order) (domain.Order, error) {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}

	data, err := json.Marshal(toDocument(order))
	if err != nil {
		return domain.Order{}, fmt.Errorf("marshal order document: %w", err)
	}

	ok, err := s.client.SetNX(ctx, orderKeyPrefix+order.ID, data, 0).Result()
	if err != nil {
		return domain.Order{}, fmt.Errorf("store order document: %w", err)
	}
	if !ok {
		return domain.Order{}, domain.ErrOrderVersionConflict
	}

	if err := s.index(ctx, order); err != nil {
		return domain.Order{}, err
	}

	return order, nil
}

// Get возвращает заказ или ErrOrderNotFound, если документа нет.
func (s *OrderStore) Get(ctx context.Context, id string) (domain.Order, error) {
	data, err := s.client.Get(ctx, orderKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Order{}, domain.NewOrderNotFound(id)
		}
		return domain.Order{}, fmt.Errorf("load order document: %w", err)
	}

	var doc orderDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.Order{}, fmt.Errorf("unmarshal order document: %w", err)
	}

	return doc.toDomain(), nil
}

// Save перезаписывает документ с optimistic locking: версия в Redis должна
// совпасть с версией сохраняемого заказа. WATCH на ключе превращает
// конкурентное изменение в ErrOrderVersionConflict.
func (s *OrderStore) Save(ctx context.Context, order domain.Order) (domain.Order, error) {
	key := orderKeyPrefix + order.ID

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return domain.NewOrderNotFound(order.ID)
			}
			return fmt.Errorf("load order document: %w", err)
		}

		var current orderDocument
		if err := json.Unmarshal(data, &current); err != nil {
			return fmt.Errorf("unmarshal order document: %w", err)
		}
		if current.Version != order.Version {
			return domain.ErrOrderVersionConflict
		}

		order.Version++
		payload, err := json.Marshal(toDocument(order))
		if err != nil {
			return fmt.Errorf("marshal order document: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}, key)
	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return domain.Order{}, domain.ErrOrderVersionConflict
		}
		return domain.Order{}, err
	}

	if err := s.index(ctx, order); err != nil {
		return domain.Order{}, err
	}

	return order, nil
}

// DeleteByID помечает документ заказа удалённым (soft delete) и вычищает его
// из индексов выборок. Сам документ остаётся доступным через Get; повторное
// удаление возвращает ErrOrderNotFound.
func (s *OrderStore) DeleteByID(ctx context.Context, id string) error {
	order, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if order.IsDeleted {
		return domain.NewOrderNotFound(id)
	}

	order.IsDeleted = true
	order.Version++
	order.UpdatedAt = time.Now().UTC()

	payload, err := json.Marshal(toDocument(order))
	if err != nil {
		return fmt.Errorf("marshal order document: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, orderKeyPrefix+id, payload, 0)
		pipe.ZRem(ctx, allOrdersKey, id)
		pipe.ZRem(ctx, userOrdersKey+order.UserID, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete order document: %w", err)
	}
	return nil
}

// FindAll возвращает страницу всех заказов, новые первыми.
func (s *OrderStore) FindAll(ctx context.Context, page domain.PageRequest) (domain.OrderPage, error) {
	return s.findPage(ctx, allOrdersKey, page)
}

// FindByUserID возвращает страницу заказов пользователя; offset/limit
// вычисляются на стороне Redis через диапазон в сортированном индексе.
func (s *OrderStore) FindByUserID(ctx context.Context, userID string, page domain.PageRequest) (domain.OrderPage, error) {
	return s.findPage(ctx, userOrdersKey+userID, page)
}

func (s *OrderStore) findPage(ctx context.Context, indexKey string, page domain.PageRequest) (domain.OrderPage, error) {
	page = page.Normalize()

	total, err := s.client.ZCard(ctx, indexKey).Result()
	if err != nil {
		return domain.OrderPage{}, fmt.Errorf("count orders index: %w", err)
	}

	start := int64(page.Number) * int64(page.Size)
	stop := start + int64(page.Size) - 1

	ids, err := s.client.ZRevRange(ctx, indexKey, start, stop).Result()
	if err != nil {
		return domain.OrderPage{}, fmt.Errorf("range orders index: %w", err)
	}

	orders := make([]domain.Order, 0, len(ids))
	for _, id := range ids {
		order, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrOrderNotFound) {
				// Индекс может опережать удаление документа; пропускаем.
				continue
			}
			return domain.OrderPage{}, err
		}
		orders = append(orders, order)
	}

	return domain.OrderPage{
		Content:       orders,
		Number:        page.Number,
		Size:          page.Size,
		TotalElements: total,
		TotalPages:    int((total + int64(page.Size) - 1) / int64(page.Size)),
	}, nil
}

// index поддерживает индексы выборок: активные заказы присутствуют,
// мягко удалённые — вычищаются.
func (s *OrderStore) index(ctx context.Context, order domain.Order) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if order.IsDeleted {
			pipe.ZRem(ctx, allOrdersKey, order.ID)
			pipe.ZRem(ctx, userOrdersKey+order.UserID, order.ID)
			return nil
		}
		score := float64(order.CreatedAt.UnixNano())
		pipe.ZAdd(ctx, allOrdersKey, redis.Z{Score: score, Member: order.ID})
		pipe.ZAdd(ctx, userOrdersKey+order.UserID, redis.Z{Score: score, Member: order.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("update order indexes: %w", err)
	}
	return nil
}

// Ping проверяет доступность Redis (для health checks).
func (s *OrderStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

var _ domain.OrderStore = (*OrderStore)(nil)
