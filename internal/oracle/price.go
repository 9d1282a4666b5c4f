package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nikolayk812/cart-service/internal/domain"
	"github.com/nikolayk812/cart-service/internal/port"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

type moneyDTO struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type productResponse struct {
	ID            string    `json:"id"`
	Price         moneyDTO  `json:"price"`
	DiscountPrice *moneyDTO `json:"discountPrice,omitempty"`
}

type priceClient struct {
	c *Client
}

// NewPrice reads unit prices from the catalog service. A discount price,
// when the catalog reports one, is the effective unit price.
func NewPrice(c *Client) port.PriceOracle {
	return &priceClient{c: c}
}

func (p *priceClient) UnitPrice(ctx context.Context, productID uuid.UUID) (domain.Money, error) {
	var resp productResponse

	err := p.c.getJSON(ctx, "/api/catalog/products/"+productID.String(), &resp)
	if errors.Is(err, errNotFound) {
		return domain.Money{}, fmt.Errorf("%w: %s", domain.ErrProductNotFound, productID)
	}
	if err != nil {
		return domain.Money{}, err
	}

	effective := resp.Price
	if resp.DiscountPrice != nil {
		effective = *resp.DiscountPrice
	}

	cur, err := currency.ParseISO(effective.Currency)
	if err != nil {
		return domain.Money{}, p.c.unavailable(fmt.Errorf("currency[%s] is not valid: %w", effective.Currency, err))
	}

	if effective.Amount.IsNegative() {
		return domain.Money{}, p.c.unavailable(fmt.Errorf("negative price %s", effective.Amount))
	}

	return domain.NewMoney(effective.Amount, cur), nil
}
