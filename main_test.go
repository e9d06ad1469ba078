package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"storefront-base/pkg/api"
	"storefront-base/pkg/backend"
	"storefront-base/pkg/cache"
	"storefront-base/pkg/config"
	"storefront-base/pkg/imagesearch"
)

func newTestServer(t *testing.T, backendHandler http.HandlerFunc) (*server, *atomic.Int32) {
	t.Helper()

	var backendCalls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backendCalls.Add(1)
		if backendHandler != nil {
			backendHandler(w, r)
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(ts.Close)

	catalogCache, err := cache.New(filepath.Join(t.TempDir(), "cache.db"), time.Minute)
	if err != nil {
		t.Fatalf("cache init failed: %v", err)
	}
	t.Cleanup(func() { catalogCache.Close() })

	cfg := &config.Config{}
	cfg.Server.SiteURL = "http://storefront.test"
	cfg.Backend.BaseURL = ts.URL

	return newServer(cfg, backend.New(ts.URL), catalogCache, imagesearch.NewResolver()), &backendCalls
}

func TestCartAddValidation(t *testing.T) {
	tests := []struct {
		name           string
		form           string
		expectedStatus int
		expectedDetail string
	}{
		{
			name:           "Variant without size",
			form:           "quantity=1&product_type=clothing&product_slug=wool-coat&has_sizes=1",
			expectedStatus: http.StatusUnprocessableEntity,
			expectedDetail: "select a size",
		},
		{
			name:           "Zero quantity",
			form:           "quantity=0&product_type=medicines&product_id=42",
			expectedStatus: http.StatusUnprocessableEntity,
			expectedDetail: "quantity must be greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, backendCalls := newTestServer(t, nil)

			req := httptest.NewRequest(http.MethodPost, "/api/cart/add", strings.NewReader(tt.form))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			rr := httptest.NewRecorder()
			srv.routes().ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, tt.expectedStatus)
			}
			if contentType := rr.Header().Get("Content-Type"); contentType != "application/problem+json" {
				t.Errorf("handler returned wrong content type: got %v", contentType)
			}

			var pd api.ProblemDetails
			if err := json.Unmarshal(rr.Body.Bytes(), &pd); err != nil {
				t.Errorf("handler returned invalid JSON: %v. Body: %s", err, rr.Body.String())
			}
			if !strings.Contains(pd.Detail, tt.expectedDetail) {
				t.Errorf("JSON detail mismatch: got %q, want substring %q", pd.Detail, tt.expectedDetail)
			}

			if backendCalls.Load() != 0 {
				t.Errorf("validation failure must make zero backend calls, made %d", backendCalls.Load())
			}
		})
	}
}

func TestCartAddPassesThroughBackendDetail(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"detail": "Out of stock"}`))
	})

	req := httptest.NewRequest(http.MethodPost, "/api/cart/add", strings.NewReader("quantity=1&product_type=medicines&product_id=42"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	srv.routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", rr.Code)
	}
	var pd api.ProblemDetails
	if err := json.Unmarshal(rr.Body.Bytes(), &pd); err != nil {
		t.Fatalf("invalid problem JSON: %v", err)
	}
	if pd.Detail != "Out of stock" {
		t.Errorf("expected backend detail passthrough, got %q", pd.Detail)
	}
}

func TestFavoriteCheck(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/catalog/favorites/check" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"is_favorite": true}`))
	})

	req := httptest.NewRequest(http.MethodGet, "/api/favorites/check?product_id=42&product_type=medicines", nil)
	rr := httptest.NewRecorder()
	srv.routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body struct {
		IsFavorite bool `json:"is_favorite"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !body.IsFavorite {
		t.Error("expected is_favorite true")
	}
}

func TestFavoriteCheckSwallowsBackendErrors(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail": "boom"}`, http.StatusInternalServerError)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/favorites/check?product_id=42", nil)
	rr := httptest.NewRecorder()
	srv.routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"is_favorite":false`) {
		t.Errorf("expected is_favorite false, got %s", rr.Body.String())
	}
}

func TestListingDefaultsUnknownType(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/catalog/products" {
			t.Errorf("unknown type must hit the base products route, got %s", r.URL.Path)
		}
		w.Write([]byte(`[{"id": 1, "name": "Aspirin", "price": "12.50 USD", "product_type": "medicines"}]`))
	})

	req := httptest.NewRequest(http.MethodGet, "/products/garbage-token", nil)
	rr := httptest.NewRecorder()
	srv.routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Aspirin") {
		t.Error("expected product name in the rendered page")
	}
	if !strings.Contains(body, "12.50 USD") {
		t.Error("expected normalized price in the rendered page")
	}
}

func TestListingRendersOnBackendFailure(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	})

	req := httptest.NewRequest(http.MethodGet, "/products/medicines", nil)
	rr := httptest.NewRecorder()
	srv.routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("read failures must degrade to an empty page, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "No products") {
		t.Error("expected the empty state in the rendered page")
	}
}

func TestProductDetailNotFound(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail": "No such product"}`))
	})

	req := httptest.NewRequest(http.MethodGet, "/products/medicines/999", nil)
	rr := httptest.NewRecorder()
	srv.routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if contentType := rr.Header().Get("Content-Type"); contentType != "application/problem+json" {
		t.Errorf("expected problem+json, got %v", contentType)
	}
}

func TestBrandsPagination(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": [{"id": 1, "name": "Acme"}], "next": "https://backend/catalog/brands?cursor=abc"}`))
	})

	req := httptest.NewRequest(http.MethodGet, "/brands", nil)
	rr := httptest.NewRecorder()
	srv.routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Acme") {
		t.Error("expected brand name in the rendered page")
	}
	if !strings.Contains(body, "/brands?next=") {
		t.Error("expected a local more-link wrapping the backend cursor")
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	srv.routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Errorf("unexpected healthz response: %d %q", rr.Code, rr.Body.String())
	}
}
