package events_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/cart-service/internal/domain"
	"github.com/nikolayk812/cart-service/internal/events"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/currency"
)

func pricedCart(t *testing.T, owner domain.Identity) domain.PricedCart {
	t.Helper()

	cart := domain.Cart{
		Owner:   owner,
		Version: 4,
		Items: []domain.CartItem{
			{
				ID:        uuid.New(),
				ProductID: uuid.New(),
				Quantity:  2,
				Price:     domain.NewMoney(decimal.RequireFromString("12.50"), currency.EUR),
			},
			{
				ID:        uuid.New(),
				ProductID: uuid.New(),
				Quantity:  1,
				Price:     domain.NewMoney(decimal.RequireFromString("3.00"), currency.EUR),
			},
		},
	}

	priced, err := domain.Price(cart, domain.ShippingPolicy{
		Currency:      currency.EUR,
		FreeThreshold: decimal.NewFromInt(50),
		FlatFee:       decimal.RequireFromString("4.99"),
	})
	require.NoError(t, err)

	return priced
}

func TestNewCartCheckedOut(t *testing.T) {
	owner := domain.UserIdentity("u-42")
	cart := pricedCart(t, owner)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))

	event := events.NewCartCheckedOut(cart, "corr-1", now)

	require.NoError(t, event.Validate(events.CartCheckedOutEventName, events.CartCheckedOutEventVersion))
	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "corr-1", event.CorrelationID)
	assert.Equal(t, events.Producer, event.Producer)
	assert.Equal(t, "user:u-42", event.PartitionKey)
	assert.Equal(t, time.UTC, event.OccurredAt.Location())

	payload := event.Payload
	assert.Equal(t, "user:u-42", payload.CartID)
	assert.Equal(t, "u-42", payload.UserID)
	assert.Empty(t, payload.SessionID)
	assert.Equal(t, int64(4), payload.CartVersion)
	assert.Equal(t, "EUR", payload.Currency)
	require.Len(t, payload.Items, 2)
	assert.Equal(t, cart.Cart.Items[0].ProductID.String(), payload.Items[0].ProductID)
	assert.True(t, decimal.RequireFromString("25.00").Equal(payload.Items[0].LineTotal))
	assert.True(t, decimal.RequireFromString("28.00").Equal(payload.Subtotal))
	assert.True(t, decimal.RequireFromString("4.99").Equal(payload.Shipping))
	assert.True(t, decimal.RequireFromString("32.99").Equal(payload.TotalAmount))
}

func TestNewCartCheckedOut_SessionCart(t *testing.T) {
	event := events.NewCartCheckedOut(pricedCart(t, domain.SessionIdentity("s-1")), "", time.Now())

	assert.Equal(t, "session", event.Payload.IdentityKind)
	assert.Equal(t, "s-1", event.Payload.SessionID)
	assert.Empty(t, event.Payload.UserID)

	body, err := json.Marshal(event)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "correlationId")
	assert.NotContains(t, string(body), "userId")
}

func TestEnvelopeValidate(t *testing.T) {
	event := events.NewCartCheckedOut(pricedCart(t, domain.UserIdentity("u")), "", time.Now())

	assert.Error(t, event.Validate("OrderCreated", 1))
	assert.Error(t, event.Validate(events.CartCheckedOutEventName, 2))

	missingID := event
	missingID.EventID = ""
	assert.Error(t, missingID.Validate(events.CartCheckedOutEventName, events.CartCheckedOutEventVersion))

	event.PartitionKey = ""
	assert.Error(t, event.Validate(events.CartCheckedOutEventName, events.CartCheckedOutEventVersion))
}
