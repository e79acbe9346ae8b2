package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/madirex/funkos-orders/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

type productStore struct {
	db *sql.DB
}

// NewProductStore создаёт PostgreSQL-реализацию ProductStore.
func NewProductStore(store *Store) domain.ProductStore {
	return &productStore{db: store.DB()}
}

func (s *productStore) FindByID(ctx context.Context, id string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var product domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, price_minor, stock, version, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id).Scan(
		&product.ID, &product.Name, &product.PriceMinor, &product.Stock,
		&product.Version, &product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.NewProductNotFound(id)
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}

	return product, nil
}

func (s *productStore) Save(ctx context.Context, product domain.Product) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now().UTC()
	if product.ID == "" {
		product.ID = uuid.NewString()
		product.CreatedAt = now
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO products (id, name, price_minor, stock, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price_minor = EXCLUDED.price_minor,
			stock = EXCLUDED.stock,
			version = products.version + 1,
			updated_at = EXCLUDED.updated_at
		RETURNING version
	`,
		product.ID, product.Name, product.PriceMinor, product.Stock,
		product.Version, product.CreatedAt, product.UpdatedAt,
	).Scan(&product.Version)
	if err != nil {
		return domain.Product{}, fmt.Errorf("upsert product: %w", err)
	}

	return product, nil
}

// AdjustStock выполняет условный атомарный апдейт остатка: декремент
// проходит только если итог неотрицателен. Проверка и изменение — одно
// SQL-выражение, поэтому конкурентные read-modify-write гонки исключены
// на уровне базы.
func (s *productStore) AdjustStock(ctx context.Context, id string, delta int64) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var product domain.Product
	err := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET stock = stock + $1,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $2
		  AND stock + $1 >= 0
		RETURNING id, name, price_minor, stock, version, created_at, updated_at
	`, delta, id).Scan(
		&product.ID, &product.Name, &product.PriceMinor, &product.Stock,
		&product.Version, &product.CreatedAt, &product.UpdatedAt,
	)
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, fmt.Errorf("adjust product stock: %w", err)
	}

	// Апдейт не затронул строк: различаем "товара нет" и "не хватает остатка".
	exists, err := s.productExists(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	if !exists {
		return domain.Product{}, domain.NewProductNotFound(id)
	}
	return domain.Product{}, domain.NewProductWithoutStock(id)
}

func (s *productStore) productExists(ctx context.Context, id string) (bool, error) {
	var found string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM products WHERE id = $1`, id).Scan(&found)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check product exists: %w", err)
}

var _ domain.ProductStore = (*productStore)(nil)
