package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nikolayk812/cart-service/internal/domain"
	"github.com/nikolayk812/cart-service/internal/port"
	"golang.org/x/sync/errgroup"
)

const defaultMaxConcurrent = 8

// CartService validates cart mutations against stock and price lookups and
// persists them through the CartStore. Every call takes the cart identity
// explicitly.
type CartService struct {
	store     port.CartStore
	stock     port.StockOracle
	prices    port.PriceOracle
	publisher port.CheckoutPublisher
	policy    domain.ShippingPolicy
	log       *slog.Logger

	maxConcurrent int
}

type Option func(*CartService)

func WithLogger(log *slog.Logger) Option {
	return func(s *CartService) {
		s.log = log
	}
}

// WithMaxConcurrent bounds parallel stock lookups during a merge.
func WithMaxConcurrent(n int) Option {
	return func(s *CartService) {
		if n > 0 {
			s.maxConcurrent = n
		}
	}
}

func NewCartService(
	store port.CartStore,
	stock port.StockOracle,
	prices port.PriceOracle,
	publisher port.CheckoutPublisher,
	policy domain.ShippingPolicy,
	opts ...Option,
) *CartService {
	s := &CartService{
		store:         store,
		stock:         stock,
		prices:        prices,
		publisher:     publisher,
		policy:        policy,
		log:           slog.Default(),
		maxConcurrent: defaultMaxConcurrent,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *CartService) GetCart(ctx context.Context, owner domain.Identity) (domain.PricedCart, error) {
	cart, err := s.store.GetCart(ctx, owner)
	if err != nil {
		return domain.PricedCart{}, fmt.Errorf("store.GetCart: %w", err)
	}

	return s.price(cart)
}

// AddToCart adds quantity units of a product. A repeated add increments the
// existing line and keeps its price snapshot. Not idempotent.
func (s *CartService) AddToCart(ctx context.Context, owner domain.Identity, productID uuid.UUID, quantity int) (domain.PricedCart, error) {
	if err := owner.Validate(); err != nil {
		return domain.PricedCart{}, err
	}
	if quantity < 1 || quantity > domain.MaxQuantity {
		return domain.PricedCart{}, fmt.Errorf("%w: %d", domain.ErrInvalidQuantity, quantity)
	}

	available, unitPrice, err := s.lookup(ctx, productID)
	if err != nil {
		return domain.PricedCart{}, err
	}

	if unitPrice.Currency != s.policy.Currency {
		return domain.PricedCart{}, fmt.Errorf("%w: product %s priced in %s, cart in %s",
			domain.ErrCurrencyMismatch, productID, unitPrice.Currency, s.policy.Currency)
	}

	var updated domain.Cart

	err = s.store.Atomically(ctx, []domain.Identity{owner}, func(store port.CartStore) error {
		cart, err := store.GetCart(ctx, owner)
		if err != nil {
			return fmt.Errorf("store.GetCart: %w", err)
		}

		target, price := quantity, unitPrice
		if existing, ok := cart.ItemForProduct(productID); ok {
			if quantity > domain.MaxQuantity-existing.Quantity {
				return fmt.Errorf("%w: %d on top of %d", domain.ErrInvalidQuantity, quantity, existing.Quantity)
			}
			target = existing.Quantity + quantity
			price = existing.Price
		}

		if target > available {
			return &domain.OutOfStockError{ProductID: productID, Requested: target, Available: available}
		}

		updated, err = store.UpsertItem(ctx, owner, productID, target, price)
		if err != nil {
			return fmt.Errorf("store.UpsertItem: %w", err)
		}

		return nil
	})
	if err != nil {
		return domain.PricedCart{}, err
	}

	s.log.DebugContext(ctx, "item added",
		slog.String("owner", owner.Key()),
		slog.String("product_id", productID.String()),
		slog.Int("quantity", quantity))

	return s.price(updated)
}

// UpdateQuantity sets the quantity of a line. Zero removes the line. Stock is
// re-checked; the price snapshot is never refreshed.
func (s *CartService) UpdateQuantity(ctx context.Context, owner domain.Identity, itemID uuid.UUID, quantity int) (domain.PricedCart, error) {
	if err := owner.Validate(); err != nil {
		return domain.PricedCart{}, err
	}
	if quantity < 0 || quantity > domain.MaxQuantity {
		return domain.PricedCart{}, fmt.Errorf("%w: %d", domain.ErrInvalidQuantity, quantity)
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, owner, itemID)
	}

	var updated domain.Cart

	err := s.store.Atomically(ctx, []domain.Identity{owner}, func(store port.CartStore) error {
		cart, err := store.GetCart(ctx, owner)
		if err != nil {
			return fmt.Errorf("store.GetCart: %w", err)
		}

		item, ok := cart.Item(itemID)
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
		}

		available, err := s.stock.Available(ctx, item.ProductID)
		if err != nil {
			return fmt.Errorf("stock.Available: %w", err)
		}

		if quantity > available {
			return &domain.OutOfStockError{ProductID: item.ProductID, Requested: quantity, Available: available}
		}

		updated, err = store.UpsertItem(ctx, owner, item.ProductID, quantity, item.Price)
		if err != nil {
			return fmt.Errorf("store.UpsertItem: %w", err)
		}

		return nil
	})
	if err != nil {
		return domain.PricedCart{}, err
	}

	return s.price(updated)
}

// RemoveItem deletes a line. Removing an absent line is not an error.
func (s *CartService) RemoveItem(ctx context.Context, owner domain.Identity, itemID uuid.UUID) (domain.PricedCart, error) {
	var updated domain.Cart

	err := s.store.Atomically(ctx, []domain.Identity{owner}, func(store port.CartStore) error {
		if _, err := store.RemoveItem(ctx, owner, itemID); err != nil {
			return fmt.Errorf("store.RemoveItem: %w", err)
		}

		var err error
		updated, err = store.GetCart(ctx, owner)
		if err != nil {
			return fmt.Errorf("store.GetCart: %w", err)
		}

		return nil
	})
	if err != nil {
		return domain.PricedCart{}, err
	}

	return s.price(updated)
}

func (s *CartService) Clear(ctx context.Context, owner domain.Identity) error {
	if err := s.store.Clear(ctx, owner); err != nil {
		return fmt.Errorf("store.Clear: %w", err)
	}

	s.log.DebugContext(ctx, "cart cleared", slog.String("owner", owner.Key()))

	return nil
}

func (s *CartService) ComputeTotals(cart domain.Cart) (domain.Totals, error) {
	return domain.ComputeTotals(cart, s.policy)
}

// lookup fetches stock and price concurrently; both must succeed.
func (s *CartService) lookup(ctx context.Context, productID uuid.UUID) (int, domain.Money, error) {
	var (
		available int
		unitPrice domain.Money
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		available, err = s.stock.Available(gctx, productID)
		if err != nil {
			return fmt.Errorf("stock.Available: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		unitPrice, err = s.prices.UnitPrice(gctx, productID)
		if err != nil {
			return fmt.Errorf("prices.UnitPrice: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, domain.ErrOracleUnavailable) {
			s.log.WarnContext(ctx, "oracle lookup failed",
				slog.String("product_id", productID.String()),
				slog.Any("err", err))
		}
		return 0, domain.Money{}, err
	}

	return available, unitPrice, nil
}

func (s *CartService) price(cart domain.Cart) (domain.PricedCart, error) {
	priced, err := domain.Price(cart, s.policy)
	if err != nil {
		return domain.PricedCart{}, fmt.Errorf("domain.Price: %w", err)
	}

	return priced, nil
}
