package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка отсутствующего идентификатора пользователя.
	ErrUserRequired = errors.New("user_id is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrLinesRequired = errors.New("order must contain at least one line")
	// Ошибка при некорректном количестве в позиции (<= 0).
	ErrLineQtyInvalid = errors.New("line qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrLinePriceInvalid = errors.New("line unit price must be non-negative")
	// Ошибка, если итог позиции не равен qty * price.
	ErrLineTotalMismatch = errors.New("line total does not match qty * unit price")
	// Ошибка несоответствия количества заказа и суммы позиций.
	ErrQtyMismatch = errors.New("order qty does not match lines sum")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrTotalMismatch = errors.New("order total does not match lines sum")
	// Ошибка отсутствующего идентификатора товара.
	ErrProductIDRequired = errors.New("product id is required")
	// Ошибка отрицательной цены товара.
	ErrProductPriceInvalid = errors.New("product price must be non-negative")
	// Ошибка отрицательного остатка товара.
	ErrProductStockNegative = errors.New("product stock must be non-negative")

	// ErrNoItems возвращается при попытке провести заказ без позиций.
	ErrNoItems = errors.New("order has no items")
	// ErrProductNotFound возвращается, если товар не найден в ProductStore.
	ErrProductNotFound = errors.New("product not found")
	// ErrInvalidProductReference возвращается при синтаксически некорректном идентификаторе товара.
	ErrInvalidProductReference = errors.New("invalid product reference")
	// ErrProductWithoutStock возвращается, если запрошенное количество превышает остаток.
	ErrProductWithoutStock = errors.New("product without enough stock")
	// ErrProductBadPrice возвращается, если цена в позиции не совпадает с актуальной ценой товара.
	ErrProductBadPrice = errors.New("line price does not match current product price")
	// ErrOrderNotFound возвращается, если заказ не найден в OrderStore.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// OrderError — закрытый тип бизнес-ошибок жизненного цикла заказа.
// Kind всегда один из шести sentinel-ошибок выше; ProductID/OrderID несут
// идентификатор, на котором проверка сорвалась.
type OrderError struct {
	Kind      error
	ProductID string
	OrderID   string
}

// Error формирует человекочитаемое сообщение с указанием идентификатора.
func (e *OrderError) Error() string {
	switch {
	case e.ProductID != "":
		return fmt.Sprintf("%s: product %s", e.Kind.Error(), e.ProductID)
	case e.OrderID != "":
		return fmt.Sprintf("%s: order %s", e.Kind.Error(), e.OrderID)
	default:
		return e.Kind.Error()
	}
}

// Unwrap позволяет проверять вид ошибки через errors.Is.
func (e *OrderError) Unwrap() error {
	return e.Kind
}

// NewNoItems строит ошибку пустого списка позиций.
func NewNoItems(orderID string) error {
	return &OrderError{Kind: ErrNoItems, OrderID: orderID}
}

// NewProductNotFound строит ошибку отсутствующего товара.
func NewProductNotFound(productID string) error {
	return &OrderError{Kind: ErrProductNotFound, ProductID: productID}
}

// NewInvalidProductReference строит ошибку некорректного идентификатора товара.
func NewInvalidProductReference(productID string) error {
	return &OrderError{Kind: ErrInvalidProductReference, ProductID: productID}
}

// NewProductWithoutStock строит ошибку нехватки остатка.
func NewProductWithoutStock(productID string) error {
	return &OrderError{Kind: ErrProductWithoutStock, ProductID: productID}
}

// NewProductBadPrice строит ошибку расхождения цены.
func NewProductBadPrice(productID string) error {
	return &OrderError{Kind: ErrProductBadPrice, ProductID: productID}
}

// NewOrderNotFound строит ошибку отсутствующего заказа.
func NewOrderNotFound(orderID string) error {
	return &OrderError{Kind: ErrOrderNotFound, OrderID: orderID}
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}
