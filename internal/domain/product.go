package domain

import "time"

// Product описывает товар каталога с текущей ценой и остатком.
// Владелец данных — ProductStore; ядро заказов только ссылается на товар по ID.
type Product struct {
	ID   string
	Name string
	// PriceMinor — актуальная цена за единицу в минимальных денежных единицах.
	PriceMinor int64
	// Stock — текущий остаток на складе; инвариант хранилища: Stock >= 0.
	Stock     int64
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate проверяет, корректно ли заполнены ключевые поля товара.
func (p *Product) Validate() []error {
	var errs []error

	if p.ID == "" {
		errs = append(errs, ErrProductIDRequired)
	}
	if p.PriceMinor < 0 {
		errs = append(errs, ErrProductPriceInvalid)
	}
	if p.Stock < 0 {
		errs = append(errs, ErrProductStockNegative)
	}

	return errs
}
