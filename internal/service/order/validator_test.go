package order

import (
	"context"
	"errors"
	"testing"

	"github.com/madirex/funkos-orders/internal/domain"
	"github.com/madirex/funkos-orders/internal/storage/memory"
)

const (
	productVader = "11111111-1111-1111-1111-111111111111"
	productJoker = "22222222-2222-2222-2222-222222222222"
)

// seedCatalog наполняет in-memory каталог товарами с заданными остатками.
func seedCatalog(t *testing.T, stock int64) domain.ProductStore {
	t.Helper()

	store := memory.NewProductStore()
	ctx := context.Background()

	for _, p := range []domain.Product{
		{ID: productVader, Name: "Funko Darth Vader", PriceMinor: 1000, Stock: stock},
		{ID: productJoker, Name: "Funko Joker", PriceMinor: 2500, Stock: stock},
	} {
		if _, err := store.Save(ctx, p); err != nil {
			t.Fatalf("seed product %s: %v", p.ID, err)
		}
	}
	return store
}

func makeLines() []domain.OrderLine {
	return []domain.OrderLine{
		{ProductID: productVader, Qty: 2, UnitPriceMinor: 1000},
		{ProductID: productJoker, Qty: 1, UnitPriceMinor: 2500},
	}
}

func TestValidator_Ok(t *testing.T) {
	products := seedCatalog(t, 10)
	validator := NewValidator(products, nil)

	ord := domain.Order{ID: "order-1", UserID: "user-1", Lines: makeLines()}
	if err := validator.Validate(context.Background(), &ord); err != nil {
		t.Fatalf("expected valid order, got %v", err)
	}
}

func TestValidator_NoItems(t *testing.T) {
	products := seedCatalog(t, 10)
	validator := NewValidator(products, nil)

	ord := domain.Order{ID: "order-1", UserID: "user-1"}
	err := validator.Validate(context.Background(), &ord)
	if !errors.Is(err, domain.ErrNoItems) {
		t.Fatalf("expected ErrNoItems, got %v", err)
	}
}

func TestValidator_ProductNotFound(t *testing.T) {
	products := seedCatalog(t, 10)
	validator := NewValidator(products, nil)

	ord := domain.Order{ID: "order-1", Lines: []domain.OrderLine{
		{ProductID: "33333333-3333-3333-3333-333333333333", Qty: 1, UnitPriceMinor: 100},
	}}
	err := validator.Validate(context.Background(), &ord)
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestValidator_InvalidProductReference(t *testing.T) {
	products := seedCatalog(t, 10)
	validator := NewValidator(products, nil)

	ord := domain.Order{ID: "order-1", Lines: []domain.OrderLine{
		{ProductID: "not-a-uuid", Qty: 1, UnitPriceMinor: 100},
	}}
	err := validator.Validate(context.Background(), &ord)
	if !errors.Is(err, domain.ErrInvalidProductReference) {
		t.Fatalf("expected ErrInvalidProductReference, got %v", err)
	}

	var orderErr *domain.OrderError
	if !errors.As(err, &orderErr) || orderErr.ProductID != "not-a-uuid" {
		t.Fatalf("expected OrderError carrying raw reference, got %v", err)
	}
}

func TestValidator_NonPositiveQty(t *testing.T) {
	products := seedCatalog(t, 2)
	validator := NewValidator(products, nil)
	ctx := context.Background()

	for _, qty := range []int32{0, -3} {
		ord := domain.Order{ID: "order-1", Lines: []domain.OrderLine{
			{ProductID: productVader, Qty: qty, UnitPriceMinor: 1000},
		}}
		err := validator.Validate(ctx, &ord)
		if !errors.Is(err, domain.ErrLineQtyInvalid) {
			t.Fatalf("qty=%d: expected ErrLineQtyInvalid, got %v", qty, err)
		}
	}
}

func TestValidator_ProductWithoutStock(t *testing.T) {
	products := seedCatalog(t, 1)
	validator := NewValidator(products, nil)

	ord := domain.Order{ID: "order-1", Lines: []domain.OrderLine{
		{ProductID: productVader, Qty: 2, UnitPriceMinor: 1000},
	}}
	err := validator.Validate(context.Background(), &ord)
	if !errors.Is(err, domain.ErrProductWithoutStock) {
		t.Fatalf("expected ErrProductWithoutStock, got %v", err)
	}
}

func TestValidator_ProductBadPrice(t *testing.T) {
	products := seedCatalog(t, 10)
	validator := NewValidator(products, nil)

	// Расхождение даже в одну минимальную единицу — отказ.
	ord := domain.Order{ID: "order-1", Lines: []domain.OrderLine{
		{ProductID: productVader, Qty: 1, UnitPriceMinor: 1001},
	}}
	err := validator.Validate(context.Background(), &ord)
	if !errors.Is(err, domain.ErrProductBadPrice) {
		t.Fatalf("expected ErrProductBadPrice, got %v", err)
	}
}

func TestValidator_DoesNotMutateCatalog(t *testing.T) {
	products := seedCatalog(t, 10)
	validator := NewValidator(products, nil)
	ctx := context.Background()

	ord := domain.Order{ID: "order-1", UserID: "user-1", Lines: makeLines()}
	for i := 0; i < 3; i++ {
		if err := validator.Validate(ctx, &ord); err != nil {
			t.Fatalf("validate #%d: %v", i+1, err)
		}
	}

	for _, id := range []string{productVader, productJoker} {
		product, err := products.FindByID(ctx, id)
		if err != nil {
			t.Fatalf("find product: %v", err)
		}
		if product.Stock != 10 {
			t.Fatalf("validator mutated stock of %s: %d", id, product.Stock)
		}
	}
}
