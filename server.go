package main

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	scalargo "github.com/bdpiprava/scalar-go"
	"github.com/go-chi/chi/v5"

	"storefront-base/pkg/api"
	"storefront-base/pkg/backend"
	"storefront-base/pkg/cache"
	"storefront-base/pkg/carousel"
	"storefront-base/pkg/config"
	"storefront-base/pkg/imagesearch"
	"storefront-base/pkg/logger"
	"storefront-base/pkg/models"
	"storefront-base/pkg/pricing"
	"storefront-base/pkg/producttype"
	"storefront-base/pkg/store"
)

//go:embed templates
var templatesFS embed.FS

// featured carousel geometry, mirrored into data attributes for the
// client side scroll handler
const (
	carouselCardWidth = 220
	carouselGap       = 16
	carouselViewport  = 944
)

const imageSearchLimit = 12

type server struct {
	cfg      *config.Config
	client   *backend.Client
	cache    *cache.Cache
	resolver *imagesearch.Resolver
	pages    map[string]*template.Template

	mu        sync.Mutex
	carts     map[string]*store.Cart
	favorites map[string]*store.Favorites
}

var templateFuncs = template.FuncMap{
	"price": func(v any) string {
		p, cur := pricing.Parse(v)
		if p == "" {
			return ""
		}
		if cur != "" {
			return p + " " + cur
		}
		return p
	},
	"discount": func(current, original any) int {
		d, _ := pricing.Discount(current, original)
		return d
	},
	"hasDiscount": func(current, original any) bool {
		_, ok := pricing.Discount(current, original)
		return ok
	},
}

func newServer(cfg *config.Config, client *backend.Client, catalogCache *cache.Cache, resolver *imagesearch.Resolver) *server {
	pageNames := []string{"home", "products", "product", "cart", "favorites", "brands", "search"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		pages[name] = template.Must(template.New("layout.html").
			Funcs(templateFuncs).
			ParseFS(templatesFS, "templates/layout.html", "templates/"+name+".html"))
	}
	return &server{
		cfg:       cfg,
		client:    client,
		cache:     catalogCache,
		resolver:  resolver,
		pages:     pages,
		carts:     make(map[string]*store.Cart),
		favorites: make(map[string]*store.Favorites),
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/docs", s.handleDocs)

	r.Get("/", s.handleHome)
	r.Get("/products", s.handleListing)
	r.Get("/products/{type}", s.handleListing)
	r.Get("/products/{type}/{ref}", s.handleDetail)
	r.Get("/brands", s.handleBrands)
	r.Get("/cart", s.handleCartPage)
	r.Post("/cart/add", s.handleCartAddForm)
	r.Get("/favorites", s.handleFavoritesPage)
	r.Get("/search", s.handleSearchPage)

	r.Route("/api", func(r chi.Router) {
		r.Post("/cart/add", s.handleAPICartAdd)
		r.Post("/favorites/add", s.handleAPIFavoriteAdd)
		r.Post("/favorites/remove", s.handleAPIFavoriteRemove)
		r.Get("/favorites/check", s.handleAPIFavoriteCheck)
		r.Post("/search/image", s.handleAPIImageSearch)
	})

	return r
}

// cartFor returns the session's cart store, creating it on first use.
func (s *server) cartFor(session string) *store.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[session]
	if !ok {
		c = store.NewCart(s.client, session)
		s.carts[session] = c
	}
	return c
}

func (s *server) favoritesFor(session string) *store.Favorites {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.favorites[session]
	if !ok {
		f = store.NewFavorites(s.client, session)
		s.favorites[session] = f
	}
	return f
}

// currency reads the visitor's currency cookie, forwarded to the
// backend as X-Currency.
func currency(r *http.Request) string {
	if c, err := r.Cookie("currency"); err == nil {
		return c.Value
	}
	return ""
}

type page struct {
	Title     string
	Canonical string
}

func (s *server) pageMeta(r *http.Request, title string) page {
	return page{Title: title, Canonical: s.cfg.Server.SiteURL + r.URL.Path}
}

func (s *server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		http.Error(w, "unknown page "+name, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		log.Printf("Error rendering %s: %v", name, err)
	}
}

func (s *server) handleDocs(w http.ResponseWriter, r *http.Request) {
	html, err := scalargo.NewV2(
		scalargo.WithSpecDir("./"),
		scalargo.WithMetaDataOpts(
			scalargo.WithTitle("Storefront API"),
		),
	)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, html)
}

// cachedProducts serves a catalog read through the sqlite cache,
// degrading to an empty list on backend failure so the page still
// renders.
func (s *server) cachedProducts(scope, key string, fetch func() ([]models.Product, error)) []models.Product {
	var products []models.Product
	if s.cache.Get(scope, key, &products) {
		logger.Dedup("Cache hit for %s/%s", scope, key)
		return products
	}
	products, err := fetch()
	if err != nil {
		log.Printf("Backend read %s/%s failed: %v", scope, key, err)
		return nil
	}
	s.cache.Set(scope, key, products)
	return products
}

type homePage struct {
	page
	Featured    []models.Product
	Dots        []int
	CurrentPage int
	IntervalMS  int
	DebounceMS  int
	CardWidth   int
	Gap         int
}

func (s *server) handleHome(w http.ResponseWriter, r *http.Request) {
	cur := currency(r)
	featured := s.cachedProducts("featured", "medicines:"+cur, func() ([]models.Product, error) {
		return s.client.FeaturedProducts(r.Context(), producttype.Medicines, cur)
	})

	ctrl := &carousel.Controller{
		CardWidth:     carouselCardWidth,
		Gap:           carouselGap,
		CardCount:     len(featured),
		ViewportWidth: carouselViewport,
	}

	s.render(w, "home", homePage{
		page:        s.pageMeta(r, "Storefront"),
		Featured:    featured,
		Dots:        ctrl.Dots(0),
		CurrentPage: 0,
		IntervalMS:  int(carousel.DefaultInterval / time.Millisecond),
		DebounceMS:  int(carousel.DefaultDebounce / time.Millisecond),
		CardWidth:   carouselCardWidth,
		Gap:         carouselGap,
	})
}

type listingPage struct {
	page
	Category producttype.Category
	Products []models.Product
}

func (s *server) handleListing(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "type")
	if token == "" {
		token = r.URL.Query().Get("type")
	}
	cat := producttype.Classify(token)
	cur := currency(r)

	products := s.cachedProducts("products", string(cat)+":"+cur, func() ([]models.Product, error) {
		return s.client.Products(r.Context(), cat, cur)
	})

	s.render(w, "products", listingPage{
		page:     s.pageMeta(r, string(cat)),
		Category: cat,
		Products: products,
	})
}

type productPage struct {
	page
	Category     producttype.Category
	Product      *models.Product
	IsFavorite   bool
	RequiresSize bool
	Alert        string
}

func (s *server) handleDetail(w http.ResponseWriter, r *http.Request) {
	cat := producttype.Classify(chi.URLParam(r, "type"))
	ref := chi.URLParam(r, "ref")
	cur := currency(r)

	var product models.Product
	key := string(cat) + ":" + ref + ":" + cur
	if !s.cache.Get("product", key, &product) {
		p, err := s.client.Product(r.Context(), cat, ref, cur)
		if err != nil {
			var apiErr *backend.APIError
			if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
				api.WriteNotFound(w, "Product not found", r.URL.Path)
				return
			}
			log.Printf("Product read %s failed: %v", key, err)
			api.WriteBadGateway(w, backend.Detail(err), r.URL.Path)
			return
		}
		product = *p
		s.cache.Set("product", key, product)
	} else {
		logger.Dedup("Cache hit for product/%s", key)
	}

	token := store.EnsureCartSession(w, r)
	isFavorite := s.favoritesFor(token).Check(r.Context(), product.ID, cat)

	s.render(w, "product", productPage{
		page:         s.pageMeta(r, product.Name),
		Category:     cat,
		Product:      &product,
		IsFavorite:   isFavorite,
		RequiresSize: !cat.IDAddressed() && product.HasSizes(),
		Alert:        r.URL.Query().Get("alert"),
	})
}

// addRequestFromForm builds the store request from a cart-add form.
func addRequestFromForm(r *http.Request) store.AddRequest {
	quantity, _ := strconv.Atoi(r.PostFormValue("quantity"))
	productID, _ := strconv.Atoi(r.PostFormValue("product_id"))
	cat := producttype.Classify(r.PostFormValue("product_type"))
	return store.AddRequest{
		Quantity:  quantity,
		ProductID: productID,
		Type:      cat,
		Slug:      r.PostFormValue("product_slug"),
		Size:      r.PostFormValue("size"),
		HasSizes:  r.PostFormValue("has_sizes") == "1",
	}
}

func (s *server) handleCartAddForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		api.WriteBadRequest(w, "Invalid form body", r.URL.Path)
		return
	}
	token := store.EnsureCartSession(w, r)
	req := addRequestFromForm(r)

	if err := s.cartFor(token).Add(r.Context(), req); err != nil {
		log.Printf("Cart add failed: %v", err)
		back := r.Referer()
		if back == "" {
			back = "/cart"
		}
		alert := backend.Detail(err)
		if errors.Is(err, store.ErrSizeRequired) || errors.Is(err, store.ErrInvalidQuantity) {
			alert = err.Error()
		}
		http.Redirect(w, r, back+"?alert="+url.QueryEscape(alert), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}

type cartPage struct {
	page
	Cart    *models.Cart
	Loading bool
	Alert   string
}

func (s *server) handleCartPage(w http.ResponseWriter, r *http.Request) {
	token := store.EnsureCartSession(w, r)
	cart := s.cartFor(token)
	if err := cart.Refresh(r.Context()); err != nil {
		log.Printf("Cart refresh failed: %v", err)
	}
	s.render(w, "cart", cartPage{
		page:    s.pageMeta(r, "Cart"),
		Cart:    cart.Snapshot(),
		Loading: cart.Loading(),
		Alert:   r.URL.Query().Get("alert"),
	})
}

type favoritesPage struct {
	page
	Favorites []models.Favorite
	Loading   bool
}

func (s *server) handleFavoritesPage(w http.ResponseWriter, r *http.Request) {
	token := store.EnsureCartSession(w, r)
	favorites := s.favoritesFor(token)
	if err := favorites.Refresh(r.Context(), currency(r)); err != nil {
		log.Printf("Favorites refresh failed: %v", err)
	}
	s.render(w, "favorites", favoritesPage{
		page:      s.pageMeta(r, "Favorites"),
		Favorites: favorites.Items(),
		Loading:   favorites.Loading(),
	})
}

type brandsPage struct {
	page
	Brands  []models.Brand
	MoreURL string
}

func (s *server) handleBrands(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("next")

	var result models.BrandPage
	if !s.cache.Get("brands", "page:"+cursor, &result) {
		p, err := s.client.Brands(r.Context(), cursor)
		if err != nil {
			log.Printf("Brands read failed: %v", err)
			p = &models.BrandPage{}
		} else {
			s.cache.Set("brands", "page:"+cursor, *p)
		}
		result = *p
	}

	more := ""
	if result.Next != "" {
		more = "/brands?next=" + url.QueryEscape(result.Next)
	}
	s.render(w, "brands", brandsPage{
		page:    s.pageMeta(r, "Brands"),
		Brands:  result.Results,
		MoreURL: more,
	})
}

type searchPage struct {
	page
	Query   string
	Results []models.Product
	Alert   string
}

func (s *server) handleSearchPage(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("url")
	data := searchPage{
		page:  s.pageMeta(r, "Visual search"),
		Query: query,
	}
	if query != "" {
		imageURL, err := s.resolver.Resolve(query)
		if err != nil {
			data.Alert = "Could not read an image from that address."
		} else {
			results, err := s.client.SearchByImage(r.Context(), imageURL, imageSearchLimit)
			if err != nil {
				log.Printf("Image search failed: %v", err)
				data.Alert = backend.Detail(err)
			} else {
				data.Results = results
			}
		}
	}
	s.render(w, "search", data)
}

func (s *server) handleAPICartAdd(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		api.WriteBadRequest(w, "Invalid form body", r.URL.Path)
		return
	}
	token := store.EnsureCartSession(w, r)
	cart := s.cartFor(token)

	if err := cart.Add(r.Context(), addRequestFromForm(r)); err != nil {
		if errors.Is(err, store.ErrSizeRequired) || errors.Is(err, store.ErrInvalidQuantity) {
			api.WriteUnprocessable(w, err.Error(), r.URL.Path)
			return
		}
		log.Printf("Cart add failed: %v", err)
		api.WriteBadGateway(w, backend.Detail(err), r.URL.Path)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "cart": cart.Snapshot()})
}

func (s *server) handleAPIFavoriteAdd(w http.ResponseWriter, r *http.Request) {
	s.handleFavoriteMutation(w, r, func(f *store.Favorites, id int, cat producttype.Category) error {
		return f.Add(r.Context(), id, cat)
	})
}

func (s *server) handleAPIFavoriteRemove(w http.ResponseWriter, r *http.Request) {
	s.handleFavoriteMutation(w, r, func(f *store.Favorites, id int, cat producttype.Category) error {
		return f.Remove(r.Context(), id, cat)
	})
}

func (s *server) handleFavoriteMutation(w http.ResponseWriter, r *http.Request, op func(*store.Favorites, int, producttype.Category) error) {
	if err := r.ParseForm(); err != nil {
		api.WriteBadRequest(w, "Invalid form body", r.URL.Path)
		return
	}
	productID, err := strconv.Atoi(r.PostFormValue("product_id"))
	if err != nil {
		api.WriteBadRequest(w, "product_id must be an integer", r.URL.Path)
		return
	}
	cat := producttype.Classify(r.PostFormValue("product_type"))

	token := store.EnsureCartSession(w, r)
	favorites := s.favoritesFor(token)
	if err := op(favorites, productID, cat); err != nil {
		log.Printf("Favorite mutation failed: %v", err)
		api.WriteBadGateway(w, backend.Detail(err), r.URL.Path)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "is_favorite": favorites.IsFavorite(productID)})
}

func (s *server) handleAPIFavoriteCheck(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.Atoi(r.URL.Query().Get("product_id"))
	if err != nil {
		api.WriteBadRequest(w, "product_id must be an integer", r.URL.Path)
		return
	}
	cat := producttype.Classify(r.URL.Query().Get("product_type"))
	token := store.EnsureCartSession(w, r)
	is := s.favoritesFor(token).Check(r.Context(), productID, cat)
	api.WriteJSON(w, http.StatusOK, map[string]any{"is_favorite": is})
}

func (s *server) handleAPIImageSearch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		api.WriteBadRequest(w, "Invalid form body", r.URL.Path)
		return
	}
	raw := r.PostFormValue("url")
	if raw == "" {
		api.WriteBadRequest(w, "url is required", r.URL.Path)
		return
	}
	imageURL, err := s.resolver.Resolve(raw)
	if err != nil {
		api.WriteUnprocessable(w, "Could not read an image from that address.", r.URL.Path)
		return
	}
	results, err := s.client.SearchByImage(r.Context(), imageURL, imageSearchLimit)
	if err != nil {
		log.Printf("Image search failed: %v", err)
		api.WriteBadGateway(w, backend.Detail(err), r.URL.Path)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"results": results})
}
