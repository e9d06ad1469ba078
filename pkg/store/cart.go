// Package store holds the session-scoped caches of backend-owned cart
// and favorites state. The caches are invalidated by full re-fetch
// after every mutation; nothing here is authoritative.
package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"storefront-base/pkg/backend"
	"storefront-base/pkg/logger"
	"storefront-base/pkg/models"
	"storefront-base/pkg/producttype"
)

var (
	ErrSizeRequired    = errors.New("select a size before adding to cart")
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
)

// AddRequest is a cart-add as issued by a view. HasSizes marks
// products whose variants carry size lists, making Size mandatory.
type AddRequest struct {
	Quantity  int
	ProductID int
	Type      producttype.Category
	Slug      string
	Size      string
	HasSizes  bool
}

// Cart caches the current cart for one session.
type Cart struct {
	client  *backend.Client
	session string

	mu       sync.Mutex
	snapshot *models.Cart
	loading  bool

	refreshing atomic.Bool
}

func NewCart(client *backend.Client, session string) *Cart {
	return &Cart{client: client, session: session}
}

// Add validates the request, posts the cart mutation and re-fetches
// the cart. Validation failures return before any network call.
func (s *Cart) Add(ctx context.Context, req AddRequest) error {
	if req.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if !req.Type.IDAddressed() && req.HasSizes && req.Size == "" {
		return ErrSizeRequired
	}
	err := s.client.AddToCart(ctx, s.session, backend.AddItem{
		Quantity:  req.Quantity,
		ProductID: req.ProductID,
		Type:      req.Type,
		Slug:      req.Slug,
		Size:      req.Size,
	})
	if err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// Refresh re-fetches the cart snapshot. A refresh already in flight
// causes new calls to no-op rather than queue; callers must not assume
// a refresh they triggered definitely ran.
func (s *Cart) Refresh(ctx context.Context) error {
	if !s.refreshing.CompareAndSwap(false, true) {
		logger.Dedup("cart: refresh already in flight, dropping")
		return nil
	}
	defer s.refreshing.Store(false)

	s.setLoading(true)
	defer s.setLoading(false)

	snapshot, err := s.client.Cart(ctx, s.session)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.snapshot = snapshot
	s.mu.Unlock()
	return nil
}

// Snapshot returns the cart from the last successful refresh, nil if
// none has completed yet.
func (s *Cart) Snapshot() *models.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

func (s *Cart) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Cart) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}
