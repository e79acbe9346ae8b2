package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/madirex/funkos-orders/internal/domain"
)

// productStoreInMemory — простая in-memory реализация ProductStore.
type productStoreInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Product
}

// NewProductStore возвращает in-memory хранилище товаров для локальной разработки и тестов.
func NewProductStore() domain.ProductStore {
	return &productStoreInMemory{
		items: make(map[string]domain.Product),
	}
}

// FindByID возвращает товар или ErrProductNotFound, если его нет.
func (s *productStoreInMemory) FindByID(ctx context.Context, id string) (domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.items[id]
	if !ok {
		return domain.Product{}, domain.NewProductNotFound(id)
	}
	return product, nil
}

// Save сохраняет товар, генерируя идентификатор при необходимости.
func (s *productStoreInMemory) Save(ctx context.Context, product domain.Product) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if product.ID == "" {
		product.ID = uuid.NewString()
		product.CreatedAt = now
	}
	if _, exists := s.items[product.ID]; exists {
		product.Version++
	}
	product.UpdatedAt = now
	// Сохраняем копию, чтобы избежать непредсказуемых мутаций извне.
	s.items[product.ID] = product
	return product, nil
}

// AdjustStock атомарно изменяет остаток под мьютексом хранилища.
// Остаток никогда не опускается ниже нуля: вместо этого возвращается
// ErrProductWithoutStock, а состояние товара не меняется.
func (s *productStoreInMemory) AdjustStock(ctx context.Context, id string, delta int64) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.items[id]
	if !ok {
		return domain.Product{}, domain.NewProductNotFound(id)
	}
	if product.Stock+delta < 0 {
		return domain.Product{}, domain.NewProductWithoutStock(id)
	}

	product.Stock += delta
	product.Version++
	product.UpdatedAt = time.Now().UTC()
	s.items[id] = product
	return product, nil
}

var _ domain.ProductStore = (*productStoreInMemory)(nil)
