// Package producttype maps the free-form product-type tokens that
// appear in URLs and backend payloads to canonical categories and
// decides how items of each category are addressed.
package producttype

import "strings"

type Category string

const (
	Medicines        Category = "medicines"
	Supplements      Category = "supplements"
	MedicalEquipment Category = "medical-equipment"
	Furniture        Category = "furniture"
	Tableware        Category = "tableware"
	Accessories      Category = "accessories"
	Jewelry          Category = "jewelry"
	Underwear        Category = "underwear"
	Headwear         Category = "headwear"
	Clothing         Category = "clothing"
	Shoes            Category = "shoes"
	Electronics      Category = "electronics"
)

// canonical is the single authoritative token table. Underscore
// variants are covered by normalization in Classify, so only real
// aliases need extra entries.
var canonical = map[string]Category{
	"medicines":         Medicines,
	"medicine":          Medicines,
	"supplements":       Supplements,
	"medical-equipment": MedicalEquipment,
	"furniture":         Furniture,
	"tableware":         Tableware,
	"accessories":       Accessories,
	"jewelry":           Jewelry,
	"jewellery":         Jewelry,
	"underwear":         Underwear,
	"headwear":          Headwear,
	"clothing":          Clothing,
	"clothes":           Clothing,
	"apparel":           Clothing,
	"shoes":             Shoes,
	"footwear":          Shoes,
	"electronics":       Electronics,
}

// idAddressed holds the categories whose items are addressed by a
// stable numeric identifier. Clothing, shoes and electronics are
// absent on purpose: their items carry color/size variant slugs.
var idAddressed = map[Category]bool{
	Medicines:        true,
	Supplements:      true,
	MedicalEquipment: true,
	Furniture:        true,
	Tableware:        true,
	Accessories:      true,
	Jewelry:          true,
	Underwear:        true,
	Headwear:         true,
}

// Classify resolves a token to its canonical category. It is total:
// case, surrounding space and underscore/hyphen spelling are
// normalized, and anything unrecognized (including the empty string)
// falls back to the base medicines category.
func Classify(token string) Category {
	t := strings.ToLower(strings.TrimSpace(token))
	t = strings.ReplaceAll(t, "_", "-")
	if c, ok := canonical[t]; ok {
		return c
	}
	return Medicines
}

// IDAddressed reports whether items of the category are addressed by
// numeric ID. Slug-addressed categories send (type, slug, size)
// triples to the backend instead and require a size selection before
// cart-add when the product carries sizes.
func (c Category) IDAddressed() bool {
	return idAddressed[c]
}

// ProductsPath is the backend catalog route for the category. Variant
// categories have dedicated routes; everything else shares the base
// products route.
func (c Category) ProductsPath() string {
	switch c {
	case Clothing:
		return "/catalog/clothing/products"
	case Shoes:
		return "/catalog/shoes/products"
	case Electronics:
		return "/catalog/electronics/products"
	default:
		return "/catalog/products"
	}
}
