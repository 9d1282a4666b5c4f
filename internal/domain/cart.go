package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// MaxQuantity is the largest quantity a single line can hold.
const MaxQuantity = math.MaxInt32

type Cart struct {
	Owner   Identity
	Items   []CartItem
	Version int64

	UpdatedAt time.Time
}

type CartItem struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	// Price is the unit price captured when the line was created.
	Price Money

	CreatedAt time.Time
}

func (i CartItem) LineTotal() Money {
	return i.Price.Mul(i.Quantity)
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c Cart) Item(itemID uuid.UUID) (CartItem, bool) {
	for _, item := range c.Items {
		if item.ID == itemID {
			return item, true
		}
	}

	return CartItem{}, false
}

func (c Cart) ItemForProduct(productID uuid.UUID) (CartItem, bool) {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return item, true
		}
	}

	return CartItem{}, false
}
