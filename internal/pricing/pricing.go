package pricing

// Config holds the storefront pricing rules. All amounts are in the smallest
// currency unit.
type Config struct {
	MinOrderAmount        int64
	FreeDeliveryThreshold int64
	DeliveryCost          int64
	DiscountPercent       int
}

// DefaultConfig mirrors the storefront's standing promotion: flat 10% off every
// order, free delivery above the threshold.
func DefaultConfig() Config {
	return Config{
		MinOrderAmount:        20,
		FreeDeliveryThreshold: 200,
		DeliveryCost:          5,
		DiscountPercent:       10,
	}
}

// DeliveryFee returns the delivery cost for the given subtotal.
func (c Config) DeliveryFee(subtotal int64) int64 {
	if subtotal >= c.FreeDeliveryThreshold {
		return 0
	}
	return c.DeliveryCost
}

// Discount returns the discount amount at full precision. Rounding is a display
// concern and happens at the rendering edge only.
func (c Config) Discount(subtotal int64) float64 {
	return float64(subtotal) * float64(c.DiscountPercent) / 100
}

// FinalTotal returns the payable amount: subtotal minus discount plus delivery fee.
func (c Config) FinalTotal(subtotal int64) float64 {
	return float64(subtotal) - c.Discount(subtotal) + float64(c.DeliveryFee(subtotal))
}

// Line is one priced order line as it appears in every rendered total:
// cart view, confirmation prompt, persisted order and the admin notification.
type Line struct {
	DishID    int64  `json:"dish_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal int64  `json:"line_total"`
}

// Summary is the single shared price breakdown. Every place that shows a total
// derives it from here so the arithmetic can never drift between call sites.
type Summary struct {
	Lines       []Line  `json:"lines"`
	Subtotal    int64   `json:"subtotal"`
	Discount    float64 `json:"discount"`
	DeliveryFee int64   `json:"delivery_fee"`
	FinalTotal  float64 `json:"final_total"`
}

// Summarize computes the full breakdown for a set of lines.
func (c Config) Summarize(lines []Line) Summary {
	var subtotal int64
	for _, l := range lines {
		subtotal += l.LineTotal
	}
	return Summary{
		Lines:       lines,
		Subtotal:    subtotal,
		Discount:    c.Discount(subtotal),
		DeliveryFee: c.DeliveryFee(subtotal),
		FinalTotal:  c.FinalTotal(subtotal),
	}
}
