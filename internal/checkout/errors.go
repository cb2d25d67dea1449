package checkout

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCart rejects a checkout with no cart lines.
	ErrEmptyCart = errors.New("Cart is empty")

	// ErrTxContention surfaces after the bounded retry budget for
	// serialization failures and deadlocks is exhausted.
	ErrTxContention = errors.New("checkout conflicted with concurrent orders")

	// ErrOrderNotMaterialized means the order committed but could not be
	// read back, so the caller got no order body.
	ErrOrderNotMaterialized = errors.New("failed to load created order")
)

type ProductUnavailableError struct {
	ProductID string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("Product %s is unavailable", e.ProductID)
}

type InsufficientStockError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Not enough stock for product %s", e.Name)
}

type MissingPriceError struct {
	ProductID string
	Name      string
}

func (e *MissingPriceError) Error() string {
	return fmt.Sprintf("Product %s has no price set", e.Name)
}

// IsClientFault reports whether the checkout failed because of the cart's
// own contents, as opposed to contention or a persistence problem.
func IsClientFault(err error) bool {
	var unavailable *ProductUnavailableError
	var stock *InsufficientStockError
	var price *MissingPriceError
	return errors.Is(err, ErrEmptyCart) ||
		errors.As(err, &unavailable) ||
		errors.As(err, &stock) ||
		errors.As(err, &price)
}
