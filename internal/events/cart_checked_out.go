package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/cart-service/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	CartCheckedOutEventName    = "CartCheckedOut"
	CartCheckedOutEventVersion = 1
	cartCheckedOutSchema       = "contracts/events/cart/CartCheckedOut.v1.payload.schema.json"
)

type CartCheckedOutPayload struct {
	CartID       string          `json:"cartId"`
	IdentityKind string          `json:"identityKind"`
	UserID       string          `json:"userId,omitempty"`
	SessionID    string          `json:"sessionId,omitempty"`
	CartVersion  int64           `json:"cartVersion"`
	Items        []CartItem      `json:"items"`
	Currency     string          `json:"currency"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Shipping     decimal.Decimal `json:"shipping"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	Timestamp    time.Time       `json:"timestamp"`
}

type CartItem struct {
	ItemID    string          `json:"itemId"`
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

type CartCheckedOutEnvelope = EventEnvelope[CartCheckedOutPayload]

// NewCartCheckedOut builds the v1 event for a priced cart. The cart identity
// key is the partition key so consumers see one cart's events in order.
func NewCartCheckedOut(cart domain.PricedCart, correlationID string, now time.Time) CartCheckedOutEnvelope {
	owner := cart.Cart.Owner

	payload := CartCheckedOutPayload{
		CartID:       owner.Key(),
		IdentityKind: string(owner.Kind),
		CartVersion:  cart.Cart.Version,
		Items:        make([]CartItem, 0, len(cart.Cart.Items)),
		Currency:     cart.Totals.GrandTotal.Currency.String(),
		Subtotal:     cart.Totals.Subtotal.Amount,
		Shipping:     cart.Totals.Shipping.Amount,
		TotalAmount:  cart.Totals.GrandTotal.Amount,
		Timestamp:    now.UTC(),
	}

	switch owner.Kind {
	case domain.IdentityUser:
		payload.UserID = owner.ID
	case domain.IdentitySession:
		payload.SessionID = owner.ID
	}

	for _, item := range cart.Cart.Items {
		payload.Items = append(payload.Items, CartItem{
			ItemID:    item.ID.String(),
			ProductID: item.ProductID.String(),
			Quantity:  item.Quantity,
			Price:     item.Price.Amount,
			LineTotal: item.LineTotal().Amount,
		})
	}

	return CartCheckedOutEnvelope{
		EventName:     CartCheckedOutEventName,
		EventVersion:  CartCheckedOutEventVersion,
		EventID:       uuid.NewString(),
		CorrelationID: correlationID,
		Producer:      Producer,
		PartitionKey:  owner.Key(),
		OccurredAt:    now.UTC(),
		Schema:        cartCheckedOutSchema,
		Payload:       payload,
	}
}
