package httpapi

import (
	"encoding/json"
	"time"

	"github.com/nikolayk812/cart-service/internal/domain"
)

type MoneyResponse struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type CartItemResponse struct {
	ID        string        `json:"id"`
	ProductID string        `json:"productId"`
	Quantity  int           `json:"quantity"`
	UnitPrice MoneyResponse `json:"unitPrice"`
	LineTotal MoneyResponse `json:"lineTotal"`
	AddedAt   time.Time     `json:"addedAt"`
}

type CartResponse struct {
	CartID       string             `json:"cartId"`
	IdentityKind string             `json:"identityKind"`
	Version      int64              `json:"version"`
	Items        []CartItemResponse `json:"items"`
	Subtotal     MoneyResponse      `json:"subtotal"`
	Shipping     MoneyResponse      `json:"shipping"`
	GrandTotal   MoneyResponse      `json:"grandTotal"`
	UpdatedAt    *time.Time         `json:"updatedAt,omitempty"`
}

type CheckoutResponse struct {
	Status string       `json:"status"`
	Cart   CartResponse `json:"cart"`
}

// Quantity is decoded as a number so that fractions can be rejected
// instead of silently truncated.
type AddItemRequest struct {
	ProductID string      `json:"productId"`
	Quantity  json.Number `json:"quantity"`
}

type UpdateItemRequest struct {
	Quantity json.Number `json:"quantity"`
}

type ErrorResponse struct {
	Error         string `json:"error"`
	Code          string `json:"code"`
	CorrelationID string `json:"correlationId,omitempty"`
	Available     *int   `json:"available,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

func toMoneyResponse(m domain.Money) MoneyResponse {
	return MoneyResponse{
		Amount:   m.Amount.StringFixed(2),
		Currency: m.Currency.String(),
	}
}

func toCartResponse(cart domain.PricedCart) CartResponse {
	resp := CartResponse{
		CartID:       cart.Cart.Owner.Key(),
		IdentityKind: string(cart.Cart.Owner.Kind),
		Version:      cart.Cart.Version,
		Items:        make([]CartItemResponse, 0, len(cart.Cart.Items)),
		Subtotal:     toMoneyResponse(cart.Totals.Subtotal),
		Shipping:     toMoneyResponse(cart.Totals.Shipping),
		GrandTotal:   toMoneyResponse(cart.Totals.GrandTotal),
	}

	if !cart.Cart.UpdatedAt.IsZero() {
		updatedAt := cart.Cart.UpdatedAt.UTC()
		resp.UpdatedAt = &updatedAt
	}

	for _, item := range cart.Cart.Items {
		resp.Items = append(resp.Items, CartItemResponse{
			ID:        item.ID.String(),
			ProductID: item.ProductID.String(),
			Quantity:  item.Quantity,
			UnitPrice: toMoneyResponse(item.Price),
			LineTotal: toMoneyResponse(item.LineTotal()),
			AddedAt:   item.CreatedAt.UTC(),
		})
	}

	return resp
}
