package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Cart struct {
	OwnerID   string
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CartItem struct {
	ID            uuid.UUID
	OwnerID       string
	ProductID     uuid.UUID
	Quantity      int32
	PriceAmount   decimal.Decimal
	PriceCurrency string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
