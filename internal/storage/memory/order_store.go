package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/madirex/funkos-orders/internal/domain"
)

// orderStoreInMemory — простая in-memory реализация OrderStore.
type orderStoreInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Order
}

// NewOrderStore возвращает in-memory хранилище заказов для локальной разработки и тестов.
func NewOrderStore() domain.OrderStore {
	return &orderStoreInMemory{
		items: make(map[string]domain.Order),
	}
}

// Create сохраняет новый заказ, генерируя идентификатор при необходимости.
func (s *orderStoreInMemory) Create(ctx context.Context, order domain.Order) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if _, exists := s.items[order.ID]; exists {
		return domain.Order{}, domain.ErrOrderVersionConflict
	}
	// Сохраняем копию позиций, чтобы избежать непредсказуемых мутаций извне.
	order.Lines = cloneLines(order.Lines)
	s.items[order.ID] = order
	return order, nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (s *orderStoreInMemory) Get(ctx context.Context, id string) (domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.items[id]
	if !ok {
		return domain.Order{}, domain.NewOrderNotFound(id)
	}
	order.Lines = cloneLines(order.Lines)
	return order, nil
}

// Save перезаписывает заказ, проверяя версию (optimistic locking).
func (s *orderStoreInMemory) Save(ctx context.Context, order domain.Order) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.items[order.ID]
	if !ok {
		return domain.Order{}, domain.NewOrderNotFound(order.ID)
	}
	if current.Version != order.Version {
		return domain.Order{}, domain.ErrOrderVersionConflict
	}
	order.Version++
	order.Lines = cloneLines(order.Lines)
	s.items[order.ID] = order
	return order, nil
}

// DeleteByID помечает заказ удалённым (soft delete). Запись остаётся в
// хранилище, но исчезает из выборок FindAll/FindByUserID. Повторное удаление
// возвращает ErrOrderNotFound.
func (s *orderStoreInMemory) DeleteByID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.items[id]
	if !ok || order.IsDeleted {
		return domain.NewOrderNotFound(id)
	}
	order.IsDeleted = true
	order.Version++
	s.items[id] = order
	return nil
}

// FindAll возвращает страницу всех неудалённых заказов.
func (s *orderStoreInMemory) FindAll(ctx context.Context, page domain.PageRequest) (domain.OrderPage, error) {
	return s.findPage(func(domain.Order) bool { return true }, page)
}

// FindByUserID возвращает страницу заказов пользователя.
func (s *orderStoreInMemory) FindByUserID(ctx context.Context, userID string, page domain.PageRequest) (domain.OrderPage, error) {
	return s.findPage(func(o domain.Order) bool { return o.UserID == userID }, page)
}

func (s *orderStoreInMemory) findPage(match func(domain.Order) bool, page domain.PageRequest) (domain.OrderPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	page = page.Normalize()

	result := make([]domain.Order, 0, len(s.items))
	for _, order := range s.items {
		if order.IsDeleted || !match(order) {
			continue
		}
		order.Lines = cloneLines(order.Lines)
		result = append(result, order)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	return paginate(result, page), nil
}

// paginate нарезает отсортированную выборку на страницу с метаданными.
func paginate(orders []domain.Order, page domain.PageRequest) domain.OrderPage {
	total := int64(len(orders))
	totalPages := int((total + int64(page.Size) - 1) / int64(page.Size))

	start := page.Number * page.Size
	if start > len(orders) {
		start = len(orders)
	}
	end := start + page.Size
	if end > len(orders) {
		end = len(orders)
	}

	return domain.OrderPage{
		Content:       orders[start:end],
		Number:        page.Number,
		Size:          page.Size,
		TotalElements: total,
		TotalPages:    totalPages,
	}
}

func cloneLines(lines []domain.OrderLine) []domain.OrderLine {
	if lines == nil {
		return nil
	}
	cloned := make([]domain.OrderLine, len(lines))
	copy(cloned, lines)
	return cloned
}

var _ domain.OrderStore = (*orderStoreInMemory)(nil)
