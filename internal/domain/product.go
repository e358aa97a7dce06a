package domain

// Product is a catalog entry as served by the commerce API.
type Product struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Slug     string    `json:"slug"`
	Price    int64     `json:"price"`
	Currency string    `json:"currency"`
	ImageURL string    `json:"image_url,omitempty"`
	Variants []Variant `json:"variants,omitempty"`
}

// Variant is a purchasable option of a product.
type Variant struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	SKU     string `json:"sku"`
	Price   int64  `json:"price"`
	InStock bool   `json:"in_stock"`
}

// Clone returns a deep copy of the product.
func (p Product) Clone() Product {
	if p.Variants != nil {
		v := make([]Variant, len(p.Variants))
		copy(v, p.Variants)
		p.Variants = v
	}
	return p
}

// FindVariant returns the variant with the given id, or nil.
func (p Product) FindVariant(variantID string) *Variant {
	for i := range p.Variants {
		if p.Variants[i].ID == variantID {
			return &p.Variants[i]
		}
	}
	return nil
}

// CloneProducts deep-copies a product list. The result is never nil.
func CloneProducts(in []Product) []Product {
	out := make([]Product, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

// ProductPage is one page of a catalog listing.
type ProductPage struct {
	Products   []Product `json:"products"`
	TotalCount int       `json:"total_count"`
	Page       int       `json:"page"`
	PerPage    int       `json:"per_page"`
	TotalPages int       `json:"total_pages"`
}
