package cart

import (
	"time"

	"github.com/golubka/foodbot/internal/pricing"
)

// CartItem is one dish line inside a cart. LineTotal is always
// UnitPrice * Quantity; it is recomputed, never patched in place.
type CartItem struct {
	DishID    int64  `bson:"dish_id" json:"dish_id"`
	Name      string `bson:"name" json:"name"`
	UnitPrice int64  `bson:"unit_price" json:"unit_price"`
	Quantity  int    `bson:"quantity" json:"quantity"`
	LineTotal int64  `bson:"line_total" json:"line_total"`
}

// Cart is the per-user pre-order state. Items are ordered by insertion and
// unique by dish id.
type Cart struct {
	UserID    int64      `bson:"user_id" json:"user_id"`
	Items     []CartItem `bson:"items" json:"items"`
	Total     int64      `bson:"total" json:"total"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
}

// recompute derives every line total and the cart total from quantities and
// unit prices. Called after every mutation so the total can never drift.
func (c *Cart) recompute() {
	var total int64
	for i := range c.Items {
		c.Items[i].LineTotal = c.Items[i].UnitPrice * int64(c.Items[i].Quantity)
		total += c.Items[i].LineTotal
	}
	c.Total = total
}

// IsEmpty reports whether the cart has no items.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Snapshot returns a deep copy of the cart, detached from any later mutation.
func (c *Cart) Snapshot() *Cart {
	cp := *c
	cp.Items = make([]CartItem, len(c.Items))
	copy(cp.Items, c.Items)
	return &cp
}

// PricingLines converts the cart items into pricing lines.
func (c *Cart) PricingLines() []pricing.Line {
	lines := make([]pricing.Line, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, pricing.Line{
			DishID:    it.DishID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal,
		})
	}
	return lines
}
