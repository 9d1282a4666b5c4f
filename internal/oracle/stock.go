package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nikolayk812/cart-service/internal/domain"
	"github.com/nikolayk812/cart-service/internal/port"
)

type stockResponse struct {
	ProductID string `json:"productId"`
	Available int    `json:"available"`
}

type stockClient struct {
	c *Client
}

// NewStock reads availability from the inventory service.
func NewStock(c *Client) port.StockOracle {
	return &stockClient{c: c}
}

func (s *stockClient) Available(ctx context.Context, productID uuid.UUID) (int, error) {
	var resp stockResponse

	err := s.c.getJSON(ctx, "/api/inventory/"+productID.String(), &resp)
	if errors.Is(err, errNotFound) {
		return 0, fmt.Errorf("%w: %s", domain.ErrProductNotFound, productID)
	}
	if err != nil {
		return 0, err
	}

	if resp.Available < 0 {
		return 0, nil
	}

	return resp.Available, nil
}
