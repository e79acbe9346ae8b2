package domain_test

import (
	"testing"
	"time"

	"github.com/madirex/funkos-orders/internal/domain"
)

// helper для создания базового заказа с одной позицией.
func makeOrder() domain.Order {
	now := time.Now().UTC()
	return domain.Order{
		ID:     "order-1",
		UserID: "user-1",
		Lines: []domain.OrderLine{
			{
				ProductID:      "11111111-1111-1111-1111-111111111111",
				Qty:            5,
				UnitPriceMinor: 100,
				TotalMinor:     500,
			},
		},
		Qty:        5,
		TotalMinor: 500,
		Version:    0,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestOrderRecalculate(t *testing.T) {
	order := makeOrder()
	order.Lines = append(order.Lines, domain.OrderLine{
		ProductID:      "22222222-2222-2222-2222-222222222222",
		Qty:            3,
		UnitPriceMinor: 250,
		// TotalMinor преднамеренно не заполнен: Recalculate обязан его вывести.
	})

	order.Recalculate()

	if order.Lines[1].TotalMinor != 750 {
		t.Fatalf("expected line total 750, got %d", order.Lines[1].TotalMinor)
	}
	if order.Qty != 8 {
		t.Fatalf("expected order qty 8, got %d", order.Qty)
	}
	if order.TotalMinor != 1250 {
		t.Fatalf("expected order total 1250, got %d", order.TotalMinor)
	}
}

func TestOrderRecalculate_Empty(t *testing.T) {
	order := makeOrder()
	order.Lines = nil
	order.Recalculate()

	if order.Qty != 0 || order.TotalMinor != 0 {
		t.Fatalf("expected zero aggregates, got qty=%d total=%d", order.Qty, order.TotalMinor)
	}
}

func TestOrderValidateInvariants_Ok(t *testing.T) {
	order := makeOrder()
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestOrderValidateInvariants_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(o *domain.Order)
		want error
	}{
		{
			name: "no user",
			mut: func(o *domain.Order) {
				o.UserID = ""
			},
			want: domain.ErrUserRequired,
		},
		{
			name: "no lines",
			mut: func(o *domain.Order) {
				o.Lines = nil
				o.Qty = 0
				o.TotalMinor = 0
			},
			want: domain.ErrLinesRequired,
		},
		{
			name: "qty invalid",
			mut: func(o *domain.Order) {
				o.Lines[0].Qty = 0
			},
			want: domain.ErrLineQtyInvalid,
		},
		{
			name: "price invalid",
			mut: func(o *domain.Order) {
				o.Lines[0].UnitPriceMinor = -5
			},
			want: domain.ErrLinePriceInvalid,
		},
		{
			name: "line total stale",
			mut: func(o *domain.Order) {
				o.Lines[0].TotalMinor = 999
				o.TotalMinor = 999
			},
			want: domain.ErrLineTotalMismatch,
		},
		{
			name: "qty mismatch",
			mut: func(o *domain.Order) {
				o.Qty = 42
			},
			want: domain.ErrQtyMismatch,
		},
		{
			name: "total mismatch",
			mut: func(o *domain.Order) {
				o.TotalMinor = 999
			},
			want: domain.ErrTotalMismatch,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := makeOrder()
			tc.mut(&order)

			errs := order.ValidateInvariants()
			if len(errs) == 0 {
				t.Fatal("expected validation errors, got none")
			}
			found := false
			for _, err := range errs {
				if err == tc.want {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected %v among %v", tc.want, errs)
			}
		})
	}
}

func TestProductValidate(t *testing.T) {
	product := domain.Product{
		ID:         "11111111-1111-1111-1111-111111111111",
		Name:       "Funko Darth Vader",
		PriceMinor: 1999,
		Stock:      10,
	}
	if errs := product.Validate(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}

	product.ID = ""
	product.PriceMinor = -1
	product.Stock = -1
	errs := product.Validate()
	if len(errs) != 3 {
		t.Fatalf("expected 3 validation errors, got %v", errs)
	}
}
