package store

import (
	"context"
	"sync"
	"sync/atomic"

	"storefront-base/pkg/backend"
	"storefront-base/pkg/logger"
	"storefront-base/pkg/models"
	"storefront-base/pkg/producttype"
)

// Favorites caches the favorited-product list for one session. The
// cache is always a full replacement from the last successful Refresh;
// Add and Remove never patch it incrementally.
type Favorites struct {
	client  *backend.Client
	session string

	mu      sync.Mutex
	items   []models.Favorite
	loading bool

	refreshing atomic.Bool
}

func NewFavorites(client *backend.Client, session string) *Favorites {
	return &Favorites{client: client, session: session}
}

// Refresh re-fetches the full favorites list, converted to currency
// when non-empty. On failure the cached list is cleared rather than
// left stale. Same single-flight drop semantics as Cart.Refresh.
func (s *Favorites) Refresh(ctx context.Context, currency string) error {
	if !s.refreshing.CompareAndSwap(false, true) {
		logger.Dedup("favorites: refresh already in flight, dropping")
		return nil
	}
	defer s.refreshing.Store(false)

	s.setLoading(true)
	defer s.setLoading(false)

	items, err := s.client.Favorites(ctx, s.session, currency)
	s.mu.Lock()
	if err != nil {
		s.items = nil
	} else {
		s.items = items
	}
	s.mu.Unlock()
	return err
}

// Add favorites the product, then re-fetches the list.
func (s *Favorites) Add(ctx context.Context, productID int, ptype producttype.Category) error {
	if err := s.client.AddFavorite(ctx, s.session, productID, ptype); err != nil {
		return err
	}
	return s.Refresh(ctx, "")
}

// Remove unfavorites the product, then re-fetches the list.
func (s *Favorites) Remove(ctx context.Context, productID int, ptype producttype.Category) error {
	if err := s.client.RemoveFavorite(ctx, s.session, productID, ptype); err != nil {
		return err
	}
	return s.Refresh(ctx, "")
}

// Check asks the backend whether the product is favorited. Errors are
// swallowed and reported as false; this is a pre-render hint, never an
// authoritative answer.
func (s *Favorites) Check(ctx context.Context, productID int, ptype producttype.Category) bool {
	ok, err := s.client.CheckFavorite(ctx, s.session, productID, ptype)
	if err != nil {
		return false
	}
	return ok
}

// IsFavorite looks the product up in the cached list. Linear scan;
// favorites lists are user-sized, not catalog-sized.
func (s *Favorites) IsFavorite(productID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.items {
		if f.Product.ID == productID {
			return true
		}
	}
	return false
}

// Items returns the cached list from the last successful Refresh.
func (s *Favorites) Items() []models.Favorite {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items
}

func (s *Favorites) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Favorites) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}
