package store

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-base/pkg/backend"
	"storefront-base/pkg/producttype"
)

// fakeFavoritesBackend mimics the favorites endpoints over a mutable
// product-ID set.
func fakeFavoritesBackend(t *testing.T) (*httptest.Server, *atomic.Value) {
	t.Helper()
	var ids atomic.Value
	ids.Store([]int{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/catalog/favorites":
			w.Write([]byte(`[`))
			for i, id := range ids.Load().([]int) {
				if i > 0 {
					w.Write([]byte(`,`))
				}
				fmt.Fprintf(w, `{"id": %d, "product": {"id": %d, "name": "p"}}`, i+1, id)
			}
			w.Write([]byte(`]`))
		case "/catalog/favorites/add":
			require.NoError(t, r.ParseForm())
			id, _ := strconv.Atoi(r.PostForm.Get("product_id"))
			ids.Store(append(ids.Load().([]int), id))
		case "/catalog/favorites/remove":
			require.Equal(t, http.MethodDelete, r.Method)
			id, _ := strconv.Atoi(r.URL.Query().Get("product_id"))
			var kept []int
			for _, v := range ids.Load().([]int) {
				if v != id {
					kept = append(kept, v)
				}
			}
			if kept == nil {
				kept = []int{}
			}
			ids.Store(kept)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)
	return ts, &ids
}

func TestFavoritesAddThenIsFavorite(t *testing.T) {
	ts, _ := fakeFavoritesBackend(t)
	favorites := NewFavorites(backend.New(ts.URL), "s")

	assert.False(t, favorites.IsFavorite(42))
	require.NoError(t, favorites.Add(context.Background(), 42, producttype.Medicines))
	assert.True(t, favorites.IsFavorite(42))
}

func TestFavoritesRemove(t *testing.T) {
	ts, _ := fakeFavoritesBackend(t)
	favorites := NewFavorites(backend.New(ts.URL), "s")

	require.NoError(t, favorites.Add(context.Background(), 42, producttype.Medicines))
	require.NoError(t, favorites.Remove(context.Background(), 42, producttype.Medicines))
	assert.False(t, favorites.IsFavorite(42))
	assert.Empty(t, favorites.Items())
}

func TestFavoritesRefreshFailureClearsList(t *testing.T) {
	var fail atomic.Bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, `{"detail": "backend down"}`, http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`[{"id": 1, "product": {"id": 42, "name": "p"}}]`))
	}))
	defer ts.Close()

	favorites := NewFavorites(backend.New(ts.URL), "s")
	require.NoError(t, favorites.Refresh(context.Background(), ""))
	assert.True(t, favorites.IsFavorite(42))

	fail.Store(true)
	require.Error(t, favorites.Refresh(context.Background(), ""))
	assert.False(t, favorites.IsFavorite(42))
	assert.Empty(t, favorites.Items())
}

func TestFavoritesCheckSwallowsErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail": "boom"}`, http.StatusInternalServerError)
	}))
	defer ts.Close()

	favorites := NewFavorites(backend.New(ts.URL), "s")
	assert.False(t, favorites.Check(context.Background(), 42, producttype.Medicines))
}

func TestFavoritesRefreshSingleFlight(t *testing.T) {
	var calls atomic.Int32
	arrived := make(chan struct{})
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		close(arrived)
		<-release
		w.Write([]byte(`[]`))
	}))
	defer ts.Close()

	favorites := NewFavorites(backend.New(ts.URL), "s")
	done := make(chan error, 1)
	go func() { done <- favorites.Refresh(context.Background(), "") }()
	<-arrived
	require.NoError(t, favorites.Refresh(context.Background(), ""))
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, int32(1), calls.Load())
}
