package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/nikolayk812/cart-service/internal/domain"
)

type CartStore interface {
	GetCart(ctx context.Context, owner domain.Identity) (domain.Cart, error)
	// UpsertItem sets the quantity of the line for productID, creating it with
	// price when absent. The price of an existing line is left untouched.
	UpsertItem(ctx context.Context, owner domain.Identity, productID uuid.UUID, quantity int, price domain.Money) (domain.Cart, error)
	RemoveItem(ctx context.Context, owner domain.Identity, itemID uuid.UUID) (bool, error)
	Clear(ctx context.Context, owner domain.Identity) error

	// Atomically runs fn in a single transaction holding the locks of owners.
	// Mutations for a locked owner are serialized until fn returns.
	Atomically(ctx context.Context, owners []domain.Identity, fn func(store CartStore) error) error
}

type StockOracle interface {
	Available(ctx context.Context, productID uuid.UUID) (int, error)
}

type PriceOracle interface {
	UnitPrice(ctx context.Context, productID uuid.UUID) (domain.Money, error)
}

type CheckoutPublisher interface {
	PublishCartCheckedOut(ctx context.Context, cart domain.PricedCart) error
}
