package bot

import (
	"fmt"
	"strings"

	"github.com/golubka/foodbot/internal/cart"
	"github.com/golubka/foodbot/internal/checkout"
	"github.com/golubka/foodbot/internal/gateway"
	"github.com/golubka/foodbot/internal/menu"
	"github.com/golubka/foodbot/internal/pricing"
)

func renderDish(d *menu.Dish) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s — %d\n", d.Name, d.Price)
	if d.Description != "" {
		fmt.Fprintf(&b, "%s\n", d.Description)
	}
	if d.Ingredients != "" {
		fmt.Fprintf(&b, "Ingredients: %s\n", d.Ingredients)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderCart(c *cart.Cart) string {
	var b strings.Builder
	b.WriteString("Your cart:\n")
	for _, it := range c.Items {
		fmt.Fprintf(&b, "  %s x%d = %d\n", it.Name, it.Quantity, it.LineTotal)
	}
	fmt.Fprintf(&b, "Total: %d", c.Total)
	return b.String()
}

// cartOptions builds the per-line +/−/remove controls plus the cart-level
// actions.
func cartOptions(c *cart.Cart) []gateway.Option {
	opts := make([]gateway.Option, 0, len(c.Items)*3+3)
	for _, it := range c.Items {
		opts = append(opts,
			gateway.Option{ID: fmt.Sprintf("inc:%d", it.DishID), Label: fmt.Sprintf("+ %s", it.Name)},
			gateway.Option{ID: fmt.Sprintf("dec:%d", it.DishID), Label: fmt.Sprintf("- %s", it.Name)},
			gateway.Option{ID: fmt.Sprintf("del:%d", it.DishID), Label: fmt.Sprintf("Remove %s", it.Name)},
		)
	}
	opts = append(opts,
		gateway.Option{ID: "menu", Label: "Menu"},
		gateway.Option{ID: "clear", Label: "Clear cart"},
		gateway.Option{ID: "checkout", Label: "Checkout"},
	)
	return opts
}

func renderConfirmation(sess *checkout.Session, s pricing.Summary) string {
	var b strings.Builder
	b.WriteString("Please confirm your order:\n")
	for _, line := range s.Lines {
		fmt.Fprintf(&b, "  %s x%d = %d\n", line.Name, line.Quantity, line.LineTotal)
	}
	fmt.Fprintf(&b, "Subtotal: %d\n", s.Subtotal)
	fmt.Fprintf(&b, "Discount: %.2f\n", s.Discount)
	if s.DeliveryFee == 0 {
		b.WriteString("Delivery: free\n")
	} else {
		fmt.Fprintf(&b, "Delivery: %d\n", s.DeliveryFee)
	}
	fmt.Fprintf(&b, "To pay: %.2f\n", s.FinalTotal)
	fmt.Fprintf(&b, "Address: %s\n", sess.Address)
	fmt.Fprintf(&b, "Time: %s\n", sess.TimeSlot)
	fmt.Fprintf(&b, "Payment: %s", paymentLabel(sess.PaymentMethod))
	return b.String()
}

func paymentLabel(m checkout.PaymentMethod) string {
	switch m {
	case checkout.PaymentCash:
		return "Cash"
	case checkout.PaymentCard:
		return "Card"
	}
	return string(m)
}
