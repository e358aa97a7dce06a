package domain

// Cart is the authoritative cart snapshot as last returned by the commerce
// API. Totals are computed server-side and trusted as-is.
type Cart struct {
	ID        string     `json:"id"`
	Items     []CartItem `json:"items"`
	Subtotal  int64      `json:"subtotal"`
	Tax       int64      `json:"tax"`
	Shipping  int64      `json:"shipping"`
	Total     int64      `json:"total"`
	ItemCount int        `json:"item_count"`
	Currency  string     `json:"currency"`
}

// CartItem represents a single line in the cart. Price is the unit price in
// minor units at the time the item was added.
type CartItem struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Name      string `json:"name"`
	SKU       string `json:"sku,omitempty"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	ImageURL  string `json:"image_url,omitempty"`
}

// Clone returns a deep copy of the cart. A nil cart clones to nil.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	out := *c
	if c.Items != nil {
		out.Items = make([]CartItem, len(c.Items))
		copy(out.Items, c.Items)
	}
	return &out
}

// FindItem returns the line with the given id, or nil.
func (c *Cart) FindItem(itemID string) *CartItem {
	if c == nil {
		return nil
	}
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return &c.Items[i]
		}
	}
	return nil
}

// IsEmpty reports whether the cart is nil or has no lines.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}
