package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const deleteItem = `-- name: DeleteItem :execrows
DELETE FROM cart_items
WHERE owner_id = $1 AND id = $2
`

type DeleteItemParams struct {
	OwnerID string
	ID      uuid.UUID
}

func (q *Queries) DeleteItem(ctx context.Context, arg DeleteItemParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteItem, arg.OwnerID, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const deleteItems = `-- name: DeleteItems :execrows
DELETE FROM cart_items
WHERE owner_id = $1
`

func (q *Queries) DeleteItems(ctx context.Context, ownerID string) (int64, error) {
	result, err := q.db.Exec(ctx, deleteItems, ownerID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const getCartHeader = `-- name: GetCartHeader :one
SELECT owner_id, version, created_at, updated_at
FROM carts
WHERE owner_id = $1
`

func (q *Queries) GetCartHeader(ctx context.Context, ownerID string) (Cart, error) {
	row := q.db.QueryRow(ctx, getCartHeader, ownerID)
	var i Cart
	err := row.Scan(
		&i.OwnerID,
		&i.Version,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getCartItems = `-- name: GetCartItems :many
SELECT id, product_id, quantity, price_amount, price_currency, created_at
FROM cart_items
WHERE owner_id = $1
ORDER BY created_at, id
`

type GetCartItemsRow struct {
	ID            uuid.UUID
	ProductID     uuid.UUID
	Quantity      int32
	PriceAmount   decimal.Decimal
	PriceCurrency string
	CreatedAt     time.Time
}

func (q *Queries) GetCartItems(ctx context.Context, ownerID string) ([]GetCartItemsRow, error) {
	rows, err := q.db.Query(ctx, getCartItems, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetCartItemsRow
	for rows.Next() {
		var i GetCartItemsRow
		if err := rows.Scan(
			&i.ID,
			&i.ProductID,
			&i.Quantity,
			&i.PriceAmount,
			&i.PriceCurrency,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const lockOwner = `-- name: LockOwner :exec
SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))
`

func (q *Queries) LockOwner(ctx context.Context, ownerID string) error {
	_, err := q.db.Exec(ctx, lockOwner, ownerID)
	return err
}

const touchCart = `-- name: TouchCart :exec
INSERT INTO carts (owner_id)
VALUES ($1)
ON CONFLICT (owner_id) DO UPDATE
SET version = carts.version + 1,
    updated_at = now()
`

func (q *Queries) TouchCart(ctx context.Context, ownerID string) error {
	_, err := q.db.Exec(ctx, touchCart, ownerID)
	return err
}

const upsertItem = `-- name: UpsertItem :exec
INSERT INTO cart_items (id, owner_id, product_id, quantity, price_amount, price_currency)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (owner_id, product_id) DO UPDATE
SET quantity = EXCLUDED.quantity,
    updated_at = now()
`

type UpsertItemParams struct {
	ID            uuid.UUID
	OwnerID       string
	ProductID     uuid.UUID
	Quantity      int32
	PriceAmount   decimal.Decimal
	PriceCurrency string
}

func (q *Queries) UpsertItem(ctx context.Context, arg UpsertItemParams) error {
	_, err := q.db.Exec(ctx, upsertItem,
		arg.ID,
		arg.OwnerID,
		arg.ProductID,
		arg.Quantity,
		arg.PriceAmount,
		arg.PriceCurrency,
	)
	return err
}
