package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrInvalidIdentity   = errors.New("invalid identity")
	ErrProductNotFound   = errors.New("product not found")
	ErrOutOfStock        = errors.New("out of stock")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrItemNotFound      = errors.New("item not found")
	ErrStoreUnavailable  = errors.New("cart store unavailable")
	ErrOracleUnavailable = errors.New("oracle unavailable")
	ErrCurrencyMismatch  = errors.New("currency mismatch")
	ErrEmptyCart         = errors.New("cart is empty")
)

// OutOfStockError reports a line quantity the stock cannot cover.
// It matches ErrOutOfStock with errors.Is.
type OutOfStockError struct {
	ProductID uuid.UUID
	Requested int
	Available int
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("out of stock: product %s requested %d available %d", e.ProductID, e.Requested, e.Available)
}

func (e *OutOfStockError) Is(target error) bool {
	return target == ErrOutOfStock
}
