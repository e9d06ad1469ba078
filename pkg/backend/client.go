// Package backend is the client for the remote storefront backend
// API: catalog reads, cart and favorites mutations, brand pages and
// visual search. The storefront never owns this data; every call here
// reads or invalidates backend state.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"storefront-base/pkg/models"
	"storefront-base/pkg/producttype"
)

const (
	cartPath        = "/orders/cart"
	cartAddPath     = "/orders/cart/add"
	favoritesPath   = "/catalog/favorites"
	brandsPath      = "/catalog/brands"
	imageSearchPath = "/recommendations/search_by_image/"

	sessionHeader  = "X-Cart-Session"
	currencyHeader = "X-Currency"
)

// FallbackDetail is the user-facing message used when the backend
// fails without a usable detail field.
const FallbackDetail = "Something went wrong. Please try again."

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// APIError is a non-2xx backend response with its detail field, when
// one was present.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend responded %d: %s", e.Status, e.Detail)
}

// Detail extracts a user-facing message from an error returned by this
// package, falling back to a generic one.
func Detail(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return FallbackDetail
}

// AddItem describes one cart-add request. ID-addressed categories send
// the numeric product ID; slug-addressed ones send the
// (type, slug, optional size) triple instead.
type AddItem struct {
	Quantity  int
	ProductID int
	Type      producttype.Category
	Slug      string
	Size      string
}

func (it AddItem) form() url.Values {
	form := url.Values{}
	form.Set("quantity", strconv.Itoa(it.Quantity))
	if it.Type.IDAddressed() {
		form.Set("product_id", strconv.Itoa(it.ProductID))
	} else {
		form.Set("product_type", string(it.Type))
		form.Set("product_slug", it.Slug)
		if it.Size != "" {
			form.Set("size", it.Size)
		}
	}
	return form
}

// AddToCart posts the form-encoded cart mutation. On failure it tries
// the trailing-slash spelling once, because some backend deployments
// only route that variant; this is the only retry in the client.
func (c *Client) AddToCart(ctx context.Context, session string, item AddItem) error {
	err := c.postForm(ctx, session, cartAddPath, item.form())
	if err == nil {
		return nil
	}
	if c.postForm(ctx, session, cartAddPath+"/", item.form()) == nil {
		return nil
	}
	return err
}

// Cart fetches the current cart snapshot for the session.
func (c *Client) Cart(ctx context.Context, session string) (*models.Cart, error) {
	var cart models.Cart
	if err := c.get(ctx, c.baseURL+cartPath, session, "", nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// Favorites fetches the full favorites list, optionally converted to
// the given currency.
func (c *Client) Favorites(ctx context.Context, session, currency string) ([]models.Favorite, error) {
	var favorites []models.Favorite
	if err := c.get(ctx, c.baseURL+favoritesPath, session, currency, nil, &favorites); err != nil {
		return nil, err
	}
	return favorites, nil
}

func (c *Client) AddFavorite(ctx context.Context, session string, productID int, ptype producttype.Category) error {
	form := url.Values{}
	form.Set("product_id", strconv.Itoa(productID))
	form.Set("product_type", string(ptype))
	return c.postForm(ctx, session, favoritesPath+"/add", form)
}

func (c *Client) RemoveFavorite(ctx context.Context, session string, productID int, ptype producttype.Category) error {
	q := url.Values{}
	q.Set("product_id", strconv.Itoa(productID))
	q.Set("product_type", string(ptype))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+favoritesPath+"/remove?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set(sessionHeader, session)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	return drain(resp)
}

// CheckFavorite asks the backend whether the product is favorited.
func (c *Client) CheckFavorite(ctx context.Context, session string, productID int, ptype producttype.Category) (bool, error) {
	q := url.Values{}
	q.Set("product_id", strconv.Itoa(productID))
	q.Set("product_type", string(ptype))
	var out struct {
		IsFavorite bool `json:"is_favorite"`
	}
	if err := c.get(ctx, c.baseURL+favoritesPath+"/check", session, "", q, &out); err != nil {
		return false, err
	}
	return out.IsFavorite, nil
}

// Products lists the catalog section for the category.
func (c *Client) Products(ctx context.Context, cat producttype.Category, currency string) ([]models.Product, error) {
	var products []models.Product
	if err := c.get(ctx, c.baseURL+cat.ProductsPath(), "", currency, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// FeaturedProducts lists the category's featured selection.
func (c *Client) FeaturedProducts(ctx context.Context, cat producttype.Category, currency string) ([]models.Product, error) {
	var products []models.Product
	if err := c.get(ctx, c.baseURL+cat.ProductsPath()+"/featured", "", currency, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Product fetches one product, addressed by numeric ID or by slug
// depending on the category.
func (c *Client) Product(ctx context.Context, cat producttype.Category, ref, currency string) (*models.Product, error) {
	var product models.Product
	if err := c.get(ctx, c.baseURL+cat.ProductsPath()+"/"+url.PathEscape(ref), "", currency, nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// Brands fetches one page of the brand list. An empty cursor starts
// from the first page; otherwise cursor is the `next` URL returned by
// the previous page.
func (c *Client) Brands(ctx context.Context, cursor string) (*models.BrandPage, error) {
	target := c.baseURL + brandsPath
	if cursor != "" {
		target = cursor
	}
	var page models.BrandPage
	if err := c.get(ctx, target, "", "", nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// SearchByImage runs a visual search for products similar to the image.
func (c *Client) SearchByImage(ctx context.Context, imageURL string, limit int) ([]models.Product, error) {
	payload, err := json.Marshal(map[string]any{"image_url": imageURL, "limit": limit})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+imageSearchPath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	var products []models.Product
	if err := decode(resp, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) get(ctx context.Context, target, session, currency string, q url.Values, dest any) error {
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	if session != "" {
		req.Header.Set(sessionHeader, session)
	}
	if currency != "" {
		req.Header.Set(currencyHeader, currency)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	return decode(resp, dest)
}

func (c *Client) postForm(ctx context.Context, session, path string, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if session != "" {
		req.Header.Set(sessionHeader, session)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	return drain(resp)
}

func decode(resp *http.Response, dest any) error {
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

func drain(resp *http.Response) error {
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func apiError(resp *http.Response) *APIError {
	var payload struct {
		Detail string `json:"detail"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(raw, &payload) != nil || payload.Detail == "" {
		payload.Detail = FallbackDetail
	}
	return &APIError{Status: resp.StatusCode, Detail: payload.Detail}
}
