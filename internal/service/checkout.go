package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nikolayk812/cart-service/internal/domain"
	"github.com/nikolayk812/cart-service/internal/port"
)

// Checkout hands the cart over to order processing and empties it.
// The cart stays intact when the event cannot be published.
func (s *CartService) Checkout(ctx context.Context, owner domain.Identity) (domain.PricedCart, error) {
	var checkedOut domain.PricedCart

	err := s.store.Atomically(ctx, []domain.Identity{owner}, func(store port.CartStore) error {
		cart, err := store.GetCart(ctx, owner)
		if err != nil {
			return fmt.Errorf("store.GetCart: %w", err)
		}

		if cart.IsEmpty() {
			return domain.ErrEmptyCart
		}

		checkedOut, err = s.price(cart)
		if err != nil {
			return err
		}

		if err := s.publisher.PublishCartCheckedOut(ctx, checkedOut); err != nil {
			return fmt.Errorf("publisher.PublishCartCheckedOut: %w", err)
		}

		if err := store.Clear(ctx, owner); err != nil {
			return fmt.Errorf("store.Clear: %w", err)
		}

		return nil
	})
	if err != nil {
		return domain.PricedCart{}, err
	}

	s.log.InfoContext(ctx, "cart checked out",
		slog.String("owner", owner.Key()),
		slog.Int("items", len(checkedOut.Cart.Items)),
		slog.String("grand_total", checkedOut.Totals.GrandTotal.String()))

	return checkedOut, nil
}
