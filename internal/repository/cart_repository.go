package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nikolayk812/cart-service/internal/db"
	"github.com/nikolayk812/cart-service/internal/domain"
	"github.com/nikolayk812/cart-service/internal/port"
	"golang.org/x/text/currency"
)

// cartRepository without a pool runs inside a transaction opened by
// Atomically and issues its queries there.
type cartRepository struct {
	q    *db.Queries
	pool db.Pool
}

func NewCart(pool db.Pool) port.CartStore {
	return &cartRepository{
		q:    db.New(pool),
		pool: pool,
	}
}

func (r *cartRepository) GetCart(ctx context.Context, owner domain.Identity) (domain.Cart, error) {
	if err := owner.Validate(); err != nil {
		return domain.Cart{}, err
	}

	return getCart(ctx, r.q, owner)
}

func (r *cartRepository) UpsertItem(ctx context.Context, owner domain.Identity, productID uuid.UUID, quantity int, price domain.Money) (domain.Cart, error) {
	if err := owner.Validate(); err != nil {
		return domain.Cart{}, err
	}
	if quantity < 1 || quantity > domain.MaxQuantity {
		return domain.Cart{}, fmt.Errorf("%w: %d", domain.ErrInvalidQuantity, quantity)
	}

	return withTx(ctx, r.pool, r.q, func(q *db.Queries) (domain.Cart, error) {
		if err := q.LockOwner(ctx, owner.Key()); err != nil {
			return domain.Cart{}, storeError("q.LockOwner", err)
		}

		if err := q.TouchCart(ctx, owner.Key()); err != nil {
			return domain.Cart{}, storeError("q.TouchCart", err)
		}

		err := q.UpsertItem(ctx, db.UpsertItemParams{
			ID:            uuid.New(),
			OwnerID:       owner.Key(),
			ProductID:     productID,
			Quantity:      int32(quantity),
			PriceAmount:   price.Amount,
			PriceCurrency: price.Currency.String(),
		})
		if err != nil {
			return domain.Cart{}, storeError("q.UpsertItem", err)
		}

		return getCart(ctx, q, owner)
	})
}

func (r *cartRepository) RemoveItem(ctx context.Context, owner domain.Identity, itemID uuid.UUID) (bool, error) {
	if err := owner.Validate(); err != nil {
		return false, err
	}

	return withTx(ctx, r.pool, r.q, func(q *db.Queries) (bool, error) {
		if err := q.LockOwner(ctx, owner.Key()); err != nil {
			return false, storeError("q.LockOwner", err)
		}

		rowsAffected, err := q.DeleteItem(ctx, db.DeleteItemParams{
			OwnerID: owner.Key(),
			ID:      itemID,
		})
		if err != nil {
			return false, storeError("q.DeleteItem", err)
		}

		if rowsAffected == 0 {
			return false, nil
		}

		if err := q.TouchCart(ctx, owner.Key()); err != nil {
			return false, storeError("q.TouchCart", err)
		}

		return true, nil
	})
}

func (r *cartRepository) Clear(ctx context.Context, owner domain.Identity) error {
	if err := owner.Validate(); err != nil {
		return err
	}

	_, err := withTx(ctx, r.pool, r.q, func(q *db.Queries) (struct{}, error) {
		if err := q.LockOwner(ctx, owner.Key()); err != nil {
			return struct{}{}, storeError("q.LockOwner", err)
		}

		rowsAffected, err := q.DeleteItems(ctx, owner.Key())
		if err != nil {
			return struct{}{}, storeError("q.DeleteItems", err)
		}

		if rowsAffected > 0 {
			if err := q.TouchCart(ctx, owner.Key()); err != nil {
				return struct{}{}, storeError("q.TouchCart", err)
			}
		}

		return struct{}{}, nil
	})

	return err
}

func (r *cartRepository) Atomically(ctx context.Context, owners []domain.Identity, fn func(store port.CartStore) error) error {
	keys := make([]string, 0, len(owners))
	for _, owner := range owners {
		if err := owner.Validate(); err != nil {
			return err
		}
		keys = append(keys, owner.Key())
	}

	// A fixed lock order keeps two multi-owner transactions from deadlocking.
	slices.Sort(keys)
	keys = slices.Compact(keys)

	_, err := withTx(ctx, r.pool, r.q, func(q *db.Queries) (struct{}, error) {
		for _, key := range keys {
			if err := q.LockOwner(ctx, key); err != nil {
				return struct{}{}, storeError("q.LockOwner", err)
			}
		}

		return struct{}{}, fn(&cartRepository{q: q})
	})

	return err
}

func getCart(ctx context.Context, q *db.Queries, owner domain.Identity) (domain.Cart, error) {
	cart := domain.Cart{Owner: owner}

	header, err := q.GetCartHeader(ctx, owner.Key())
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return cart, nil
	case err != nil:
		return domain.Cart{}, storeError("q.GetCartHeader", err)
	}

	dbCartItems, err := q.GetCartItems(ctx, owner.Key())
	if err != nil {
		return domain.Cart{}, storeError("q.GetCartItems", err)
	}

	items, err := mapGetCartItemsRowsToDomain(dbCartItems)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("mapGetCartItemsRowsToDomain: %w", err)
	}

	cart.Items = items
	cart.Version = header.Version
	cart.UpdatedAt = header.UpdatedAt

	return cart, nil
}

// storeError marks driver failures as ErrStoreUnavailable for callers.
func storeError(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(domain.ErrStoreUnavailable, err))
}

func mapGetCartItemsRowToDomain(row db.GetCartItemsRow) (domain.CartItem, error) {
	parsedCurrency, err := currency.ParseISO(row.PriceCurrency)
	if err != nil {
		return domain.CartItem{}, fmt.Errorf("currency[%s] is not valid: %w", row.PriceCurrency, err)
	}

	return domain.CartItem{
		ID:        row.ID,
		ProductID: row.ProductID,
		Quantity:  int(row.Quantity),
		Price:     domain.Money{Amount: row.PriceAmount, Currency: parsedCurrency},
		CreatedAt: row.CreatedAt,
	}, nil
}

func mapGetCartItemsRowsToDomain(rows []db.GetCartItemsRow) ([]domain.CartItem, error) {
	var items []domain.CartItem

	for _, row := range rows {
		item, err := mapGetCartItemsRowToDomain(row)
		if err != nil {
			return nil, fmt.Errorf("mapGetCartItemsRowToDomain: %w", err)
		}

		items = append(items, item)
	}

	return items, nil
}
