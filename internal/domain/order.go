package domain

import (
	"encoding/json"
	"time"
)

// OrderLine представляет одну позицию заказа.
type OrderLine struct {
	// ProductID — идентификатор товара в каталоге (UUID).
	ProductID string
	// Qty — запрошенное количество единиц товара.
	Qty int32
	// UnitPriceMinor — цена за единицу в минимальных денежных единицах (например, центы).
	UnitPriceMinor int64
	// TotalMinor — производное поле: всегда Qty * UnitPriceMinor.
	TotalMinor int64
}

// Order агрегирует позиции заказа и производные суммы.
type Order struct {
	ID     string
	UserID string
	// Shipping — непрозрачный JSON с данными клиента/доставки; ядро его не интерпретирует.
	Shipping json.RawMessage
	Lines    []OrderLine
	// Qty и TotalMinor — производные агрегаты, пересчитываются при каждой мутации Lines.
	Qty        int32
	TotalMinor int64
	Version    int64
	IsDeleted  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Recalculate пересчитывает итоги позиций и агрегаты заказа.
// Производные поля никогда не задаются извне, только через пересчёт.
func (o *Order) Recalculate() {
	var qty int32
	var total int64
	for i := range o.Lines {
		line := &o.Lines[i]
		line.TotalMinor = int64(line.Qty) * line.UnitPriceMinor
		qty += line.Qty
		total += line.TotalMinor
	}
	o.Qty = qty
	o.TotalMinor = total
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.UserID == "" {
		errs = append(errs, ErrUserRequired)
	}
	if len(o.Lines) == 0 {
		errs = append(errs, ErrLinesRequired)
	}

	// Сверяем агрегаты заказа с суммами позиций: qty и qty * price.
	var calcQty int32
	var calcTotal int64
	for _, line := range o.Lines {
		if line.Qty <= 0 {
			errs = append(errs, ErrLineQtyInvalid)
		}
		if line.UnitPriceMinor < 0 {
			errs = append(errs, ErrLinePriceInvalid)
		}
		if line.TotalMinor != int64(line.Qty)*line.UnitPriceMinor {
			errs = append(errs, ErrLineTotalMismatch)
		}
		calcQty += line.Qty
		calcTotal += int64(line.Qty) * line.UnitPriceMinor
	}
	if calcQty != o.Qty {
		errs = append(errs, ErrQtyMismatch)
	}
	if calcTotal != o.TotalMinor {
		errs = append(errs, ErrTotalMismatch)
	}

	return errs
}
