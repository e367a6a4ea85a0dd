package models

// Variation is a purchasable variant of a product (size, colour, storage...).
type Variation struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	SKU   string `json:"sku,omitempty"`
	Price Amount `json:"price"`
	Stock int    `json:"stock"`
}

// Product mirrors the backend catalog record. Only the fields the cart and checkout
// need are decoded; everything else is passed through untouched by the catalog routes.
type Product struct {
	ID               int64       `json:"id"`
	Name             string      `json:"name"`
	Slug             string      `json:"slug"`
	SKU              string      `json:"sku,omitempty"`
	Price            Amount      `json:"price"`
	SalePrice        Amount      `json:"sale_price"`
	Stock            int         `json:"stock"`
	IsVirtual        bool        `json:"is_virtual"`
	RequiresShipping *bool       `json:"requires_shipping,omitempty"`
	EMIAvailable     bool        `json:"emi_available"`
	Image            string      `json:"image,omitempty"`
	Variations       []Variation `json:"variations,omitempty"`
}

// NeedsShipping reports whether the product is a physical good. An explicit
// requires_shipping flag wins over is_virtual.
func (p *Product) NeedsShipping() bool {
	if p.RequiresShipping != nil {
		return *p.RequiresShipping
	}
	return !p.IsVirtual
}

// FindVariation returns the variation with the given id, or nil.
func (p *Product) FindVariation(id int64) *Variation {
	for i := range p.Variations {
		if p.Variations[i].ID == id {
			return &p.Variations[i]
		}
	}
	return nil
}

// ResolvePrice picks the unit price to charge: variation price, then sale price, then
// list price, then 0. Non-positive values are skipped.
func ResolvePrice(p *Product, v *Variation) float64 {
	if v != nil && v.Price.Float() > 0 {
		return v.Price.Float()
	}
	if p == nil {
		return 0
	}
	if p.SalePrice.Float() > 0 {
		return p.SalePrice.Float()
	}
	if p.Price.Float() > 0 {
		return p.Price.Float()
	}
	return 0
}
