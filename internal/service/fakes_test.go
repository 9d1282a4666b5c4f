package service_test

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/cart-service/internal/domain"
	"github.com/nikolayk812/cart-service/internal/port"
)

// memStore is an in-memory CartStore. Atomically holds a single lock for all
// owners and restores the previous state when fn fails.
type memStore struct {
	mu    sync.Mutex
	carts map[string]domain.Cart

	err error
}

func newMemStore() *memStore {
	return &memStore{carts: make(map[string]domain.Cart)}
}

func (s *memStore) GetCart(_ context.Context, owner domain.Identity) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return (*memTx)(s).get(owner)
}

func (s *memStore) UpsertItem(ctx context.Context, owner domain.Identity, productID uuid.UUID, quantity int, price domain.Money) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return (*memTx)(s).UpsertItem(ctx, owner, productID, quantity, price)
}

func (s *memStore) RemoveItem(ctx context.Context, owner domain.Identity, itemID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return (*memTx)(s).RemoveItem(ctx, owner, itemID)
}

func (s *memStore) Clear(ctx context.Context, owner domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return (*memTx)(s).Clear(ctx, owner)
}

func (s *memStore) Atomically(_ context.Context, owners []domain.Identity, fn func(store port.CartStore) error) error {
	for _, owner := range owners {
		if err := owner.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	snapshot := make(map[string]domain.Cart, len(s.carts))
	for k, c := range s.carts {
		c.Items = slices.Clone(c.Items)
		snapshot[k] = c
	}

	if err := fn((*memTx)(s)); err != nil {
		s.carts = snapshot
		return err
	}

	return nil
}

// put seeds a cart directly.
func (s *memStore) put(owner domain.Identity, items ...domain.CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.carts[owner.Key()] = domain.Cart{Owner: owner, Items: items, Version: 1, UpdatedAt: time.Now()}
}

func (s *memStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Sorted(maps.Keys(s.carts))
}

// memTx operates on memStore with its lock already held.
type memTx memStore

func (t *memTx) get(owner domain.Identity) (domain.Cart, error) {
	if err := owner.Validate(); err != nil {
		return domain.Cart{}, err
	}
	if t.err != nil {
		return domain.Cart{}, t.err
	}

	cart, ok := t.carts[owner.Key()]
	if !ok {
		return domain.Cart{Owner: owner}, nil
	}
	cart.Items = slices.Clone(cart.Items)

	return cart, nil
}

func (t *memTx) touch(owner domain.Identity, items []domain.CartItem) {
	cart := t.carts[owner.Key()]
	cart.Owner = owner
	cart.Items = items
	cart.Version++
	cart.UpdatedAt = time.Now()
	t.carts[owner.Key()] = cart
}

func (t *memTx) GetCart(_ context.Context, owner domain.Identity) (domain.Cart, error) {
	return t.get(owner)
}

func (t *memTx) UpsertItem(_ context.Context, owner domain.Identity, productID uuid.UUID, quantity int, price domain.Money) (domain.Cart, error) {
	if quantity < 1 {
		return domain.Cart{}, domain.ErrInvalidQuantity
	}

	cart, err := t.get(owner)
	if err != nil {
		return domain.Cart{}, err
	}

	i := slices.IndexFunc(cart.Items, func(item domain.CartItem) bool { return item.ProductID == productID })
	if i >= 0 {
		cart.Items[i].Quantity = quantity
	} else {
		cart.Items = append(cart.Items, domain.CartItem{
			ID:        uuid.New(),
			ProductID: productID,
			Quantity:  quantity,
			Price:     price,
			CreatedAt: time.Now(),
		})
	}

	t.touch(owner, cart.Items)

	return t.get(owner)
}

func (t *memTx) RemoveItem(_ context.Context, owner domain.Identity, itemID uuid.UUID) (bool, error) {
	cart, err := t.get(owner)
	if err != nil {
		return false, err
	}

	before := len(cart.Items)

	items := slices.DeleteFunc(cart.Items, func(item domain.CartItem) bool { return item.ID == itemID })
	if len(items) == before {
		return false, nil
	}

	t.touch(owner, items)

	return true, nil
}

func (t *memTx) Clear(_ context.Context, owner domain.Identity) error {
	cart, err := t.get(owner)
	if err != nil {
		return err
	}
	if cart.IsEmpty() {
		return nil
	}

	t.touch(owner, nil)

	return nil
}

func (t *memTx) Atomically(_ context.Context, _ []domain.Identity, fn func(store port.CartStore) error) error {
	return fn(t)
}

type fakeStock struct {
	mu        sync.Mutex
	available map[uuid.UUID]int
	err       error
	calls     int
}

func (f *fakeStock) Available(ctx context.Context, productID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if f.err != nil {
		return 0, f.err
	}

	n, ok := f.available[productID]
	if !ok {
		return 0, domain.ErrProductNotFound
	}

	return n, nil
}

func (f *fakeStock) set(productID uuid.UUID, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.available[productID] = n
}

type fakePrices struct {
	mu     sync.Mutex
	prices map[uuid.UUID]domain.Money
	err    error
}

func (f *fakePrices) UnitPrice(ctx context.Context, productID uuid.UUID) (domain.Money, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return domain.Money{}, err
	}
	if f.err != nil {
		return domain.Money{}, f.err
	}

	price, ok := f.prices[productID]
	if !ok {
		return domain.Money{}, domain.ErrProductNotFound
	}

	return price, nil
}

func (f *fakePrices) set(productID uuid.UUID, price domain.Money) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.prices[productID] = price
}

type fakePublisher struct {
	mu        sync.Mutex
	published []domain.PricedCart
	err       error
}

func (f *fakePublisher) PublishCartCheckedOut(_ context.Context, cart domain.PricedCart) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}

	f.published = append(f.published, cart)

	return nil
}

var errBroker = errors.New("broker down")
