package models

// Product is a catalog item as served by the backend. Price fields are
// untyped because the backend sends either a number, a "123.45 USD"
// style string, or null depending on the catalog section.
type Product struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug,omitempty"`
	Price       any       `json:"price,omitempty"`
	Currency    string    `json:"currency,omitempty"`
	OldPrice    any       `json:"old_price,omitempty"`
	Rating      float64   `json:"rating,omitempty"`
	Images      []string  `json:"images,omitempty"`
	ProductType string    `json:"product_type,omitempty"`
	Brand       string    `json:"brand,omitempty"`
	Variants    []Variant `json:"variants,omitempty"`
}

// Variant is a color specific version of an apparel, footwear or
// electronics product, addressed by its own slug.
type Variant struct {
	Slug        string `json:"slug"`
	Color       string `json:"color,omitempty"`
	Price       any    `json:"price,omitempty"`
	Currency    string `json:"currency,omitempty"`
	IsAvailable bool   `json:"is_available"`
	Stock       int    `json:"stock"`
	Sizes       []Size `json:"sizes,omitempty"`
}

type Size struct {
	Name        string `json:"name"`
	IsAvailable bool   `json:"is_available"`
	Stock       int    `json:"stock"`
}

// HasSizes reports whether any variant of the product carries a size
// list, in which case a size selection is required before cart-add.
func (p *Product) HasSizes() bool {
	for _, v := range p.Variants {
		if len(v.Sizes) > 0 {
			return true
		}
	}
	return false
}
