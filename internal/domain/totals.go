package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// ShippingPolicy charges a flat fee unless the subtotal exceeds FreeThreshold.
type ShippingPolicy struct {
	Currency      currency.Unit
	FreeThreshold decimal.Decimal
	FlatFee       decimal.Decimal
}

type Totals struct {
	Subtotal   Money
	Shipping   Money
	GrandTotal Money
}

// PricedCart is a cart together with totals computed at read time.
type PricedCart struct {
	Cart   Cart
	Totals Totals
}

// ComputeTotals derives subtotal, shipping and grand total from the lines.
// The flat fee applies whenever the subtotal does not exceed FreeThreshold,
// an empty cart included.
func ComputeTotals(cart Cart, policy ShippingPolicy) (Totals, error) {
	subtotal := Zero(policy.Currency)

	for _, item := range cart.Items {
		var err error
		subtotal, err = subtotal.Add(item.LineTotal())
		if err != nil {
			return Totals{}, fmt.Errorf("item %s: %w", item.ID, err)
		}
	}

	shipping := Zero(policy.Currency)
	if !subtotal.Amount.GreaterThan(policy.FreeThreshold) {
		shipping = NewMoney(policy.FlatFee, policy.Currency)
	}

	grand, err := subtotal.Add(shipping)
	if err != nil {
		return Totals{}, err
	}

	return Totals{
		Subtotal:   subtotal,
		Shipping:   shipping,
		GrandTotal: grand,
	}, nil
}

func Price(cart Cart, policy ShippingPolicy) (PricedCart, error) {
	totals, err := ComputeTotals(cart, policy)
	if err != nil {
		return PricedCart{}, err
	}

	return PricedCart{Cart: cart, Totals: totals}, nil
}
