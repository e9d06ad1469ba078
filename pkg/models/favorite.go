package models

import "time"

// Favorite is a favorited product snapshot owned by the session. The
// backend enforces at most one favorite per (session, product) pair.
type Favorite struct {
	ID        int       `json:"id"`
	Product   Product   `json:"product"`
	CreatedAt time.Time `json:"created_at"`
}

type Brand struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
	Logo string `json:"logo,omitempty"`
}

// BrandPage is one page of the brand list. Next holds the cursor URL
// for the following page, empty on the last page.
type BrandPage struct {
	Results []Brand `json:"results"`
	Next    string  `json:"next,omitempty"`
}

// CartLine is one line of the cart snapshot.
type CartLine struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    any    `json:"price,omitempty"`
	Currency string `json:"currency,omitempty"`
	Size     string `json:"size,omitempty"`
	Image    string `json:"image,omitempty"`
}

type Cart struct {
	Items []CartLine `json:"items"`
	Total any        `json:"total,omitempty"`
}
