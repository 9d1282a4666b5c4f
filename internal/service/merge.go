package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/nikolayk812/cart-service/internal/domain"
	"github.com/nikolayk812/cart-service/internal/port"
	"golang.org/x/sync/errgroup"
)

type mergeLine struct {
	productID uuid.UUID
	quantity  int
	price     domain.Money

	userItem *domain.CartItem
}

// MergeCarts moves the anonymous session cart into the user cart.
// Quantities for the same product are summed and clamped to current stock,
// products that are gone or out of stock are dropped, and the user line keeps
// its own price snapshot. The session cart is emptied in the same transaction.
func (s *CartService) MergeCarts(ctx context.Context, session, user domain.Identity) (domain.PricedCart, error) {
	if err := session.Validate(); err != nil {
		return domain.PricedCart{}, err
	}
	if err := user.Validate(); err != nil {
		return domain.PricedCart{}, err
	}
	if session.Kind != domain.IdentitySession || user.Kind != domain.IdentityUser {
		return domain.PricedCart{}, fmt.Errorf("%w: merge needs a session and a user identity", domain.ErrInvalidIdentity)
	}

	var merged domain.Cart

	err := s.store.Atomically(ctx, []domain.Identity{session, user}, func(store port.CartStore) error {
		sessionCart, err := store.GetCart(ctx, session)
		if err != nil {
			return fmt.Errorf("store.GetCart session: %w", err)
		}

		userCart, err := store.GetCart(ctx, user)
		if err != nil {
			return fmt.Errorf("store.GetCart user: %w", err)
		}

		if sessionCart.IsEmpty() {
			merged = userCart
			return nil
		}

		lines := mergeLines(sessionCart, userCart)

		available, err := s.availability(ctx, lines)
		if err != nil {
			return err
		}

		for _, line := range lines {
			if err := applyMergeLine(ctx, store, user, line, available[line.productID]); err != nil {
				return err
			}
		}

		if err := store.Clear(ctx, session); err != nil {
			return fmt.Errorf("store.Clear session: %w", err)
		}

		merged, err = store.GetCart(ctx, user)
		if err != nil {
			return fmt.Errorf("store.GetCart user: %w", err)
		}

		return nil
	})
	if err != nil {
		return domain.PricedCart{}, err
	}

	s.log.InfoContext(ctx, "carts merged",
		slog.String("session", session.Key()),
		slog.String("user", user.Key()),
		slog.Int("items", len(merged.Items)))

	return s.price(merged)
}

// mergeLines returns one line per product, user lines first in cart order.
func mergeLines(sessionCart, userCart domain.Cart) []mergeLine {
	lines := make([]mergeLine, 0, len(userCart.Items)+len(sessionCart.Items))
	index := make(map[uuid.UUID]int, cap(lines))

	for _, item := range userCart.Items {
		index[item.ProductID] = len(lines)
		lines = append(lines, mergeLine{
			productID: item.ProductID,
			quantity:  item.Quantity,
			price:     item.Price,
			userItem:  &item,
		})
	}

	for _, item := range sessionCart.Items {
		if i, ok := index[item.ProductID]; ok {
			lines[i].quantity += item.Quantity
			continue
		}

		index[item.ProductID] = len(lines)
		lines = append(lines, mergeLine{
			productID: item.ProductID,
			quantity:  item.Quantity,
			price:     item.Price,
		})
	}

	return lines
}

// availability looks up stock for every line. Unknown products report zero.
func (s *CartService) availability(ctx context.Context, lines []mergeLine) (map[uuid.UUID]int, error) {
	var mu sync.Mutex
	available := make(map[uuid.UUID]int, len(lines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	for _, line := range lines {
		productID := line.productID

		g.Go(func() error {
			n, err := s.stock.Available(gctx, productID)
			if errors.Is(err, domain.ErrProductNotFound) {
				n, err = 0, nil
			}
			if err != nil {
				return fmt.Errorf("stock.Available %s: %w", productID, err)
			}

			mu.Lock()
			available[productID] = n
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return available, nil
}

func applyMergeLine(ctx context.Context, store port.CartStore, user domain.Identity, line mergeLine, available int) error {
	quantity := min(line.quantity, available, domain.MaxQuantity)

	if quantity <= 0 {
		if line.userItem == nil {
			return nil
		}
		if _, err := store.RemoveItem(ctx, user, line.userItem.ID); err != nil {
			return fmt.Errorf("store.RemoveItem: %w", err)
		}
		return nil
	}

	if line.userItem != nil && line.userItem.Quantity == quantity {
		return nil
	}

	if _, err := store.UpsertItem(ctx, user, line.productID, quantity, line.price); err != nil {
		return fmt.Errorf("store.UpsertItem: %w", err)
	}

	return nil
}
