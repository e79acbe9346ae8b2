package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/madirex/funkos-orders/internal/domain"
)

// Validator проверяет позиции заказа против актуального состояния каталога.
// Проверка чисто читающая: ProductStore никогда не мутируется, повторный
// вызов при неизменном каталоге даёт тот же результат.
type Validator struct {
	products domain.ProductStore
	logger   *log.Entry
}

// NewValidator создаёт валидатор поверх хранилища товаров.
func NewValidator(products domain.ProductStore, logger *log.Entry) *Validator {
	if logger == nil {
		logger = log.New().WithField("component", "order-validator")
	}
	return &Validator{products: products, logger: logger}
}

// Validate проверяет каждую позицию заказа: положительное количество,
// существование товара, остаток и точное совпадение цены позиции с
// актуальной ценой каталога.
func (v *Validator) Validate(ctx context.Context, ord *domain.Order) error {
	if len(ord.Lines) == 0 {
		return domain.NewNoItems(ord.ID)
	}

	for _, line := range ord.Lines {
		if _, err := uuid.Parse(line.ProductID); err != nil {
			return domain.NewInvalidProductReference(line.ProductID)
		}
		if line.Qty <= 0 {
			return fmt.Errorf("product %s: %w", line.ProductID, domain.ErrLineQtyInvalid)
		}

		product, err := v.products.FindByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				return err
			}
			return fmt.Errorf("lookup product %s: %w", line.ProductID, err)
		}

		if product.Stock < int64(line.Qty) {
			return domain.NewProductWithoutStock(line.ProductID)
		}
		// Цена сверяется на точное равенство в минимальных единицах.
		if line.UnitPriceMinor != product.PriceMinor {
			v.logger.WithFields(log.Fields{
				"product_id":     line.ProductID,
				"line_price":     line.UnitPriceMinor,
				"catalog_price":  product.PriceMinor,
			}).Debug("line price does not match catalog")
			return domain.NewProductBadPrice(line.ProductID)
		}
	}

	return nil
}
