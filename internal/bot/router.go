package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/golubka/foodbot/internal/cart"
	"github.com/golubka/foodbot/internal/checkout"
	"github.com/golubka/foodbot/internal/gateway"
	"github.com/golubka/foodbot/internal/menu"
	"github.com/golubka/foodbot/internal/users"
)

// Update is one inbound interaction. Selection carries the option ID from a
// previously presented prompt; Text carries free-form input; exactly one of
// the two is set.
type Update struct {
	UserID    int64  `json:"user_id"`
	UserName  string `json:"user_name"`
	FullName  string `json:"full_name"`
	Text      string `json:"text"`
	Selection string `json:"selection"`
}

// CartService is the slice of the cart engine the router drives.
type CartService interface {
	GetCart(ctx context.Context, userID int64) (*cart.Cart, error)
	AddItem(ctx context.Context, userID, dishID int64, name string, unitPrice int64) (*cart.Cart, error)
	ChangeQuantity(ctx context.Context, userID, dishID int64, delta int) (*cart.Cart, error)
	RemoveItem(ctx context.Context, userID, dishID int64) (*cart.Cart, error)
	Clear(ctx context.Context, userID int64) error
}

// Router maps inbound updates onto the menu, cart and checkout engines and
// renders their replies back through the conversation gateway. It holds no
// per-user state of its own; the checkout session store is the only memory
// between updates.
type Router struct {
	menu     menu.RepoInterface
	carts    CartService
	checkout *checkout.Service
	users    users.RepoInterface
	conv     gateway.Conversation
}

func NewRouter(menuRepo menu.RepoInterface, carts CartService, co *checkout.Service, userRepo users.RepoInterface, conv gateway.Conversation) *Router {
	return &Router{
		menu:     menuRepo,
		carts:    carts,
		checkout: co,
		users:    userRepo,
		conv:     conv,
	}
}

// Handle processes one update to completion. It never returns an error to the
// caller: every failure is answered in-chat and logged.
func (r *Router) Handle(ctx context.Context, upd Update) {
	if err := r.users.Upsert(ctx, &users.User{
		UserID:   upd.UserID,
		Username: upd.UserName,
		FullName: upd.FullName,
	}); err != nil {
		log.Printf("upsert user %d: %v", upd.UserID, err)
	}

	if upd.Selection != "" {
		r.handleSelection(ctx, upd)
		return
	}
	r.handleText(ctx, upd)
}

func (r *Router) handleText(ctx context.Context, upd Update) {
	switch strings.TrimSpace(upd.Text) {
	case "/start":
		r.send(ctx, upd.UserID, "Welcome to Golubka pizza delivery!")
		r.showMainMenu(ctx, upd.UserID)
		return
	case "/menu":
		r.showCategories(ctx, upd.UserID)
		return
	case "/cart":
		r.showCart(ctx, upd.UserID)
		return
	}

	// Free text is only meaningful while checkout is asking for the address.
	if sess := r.checkout.Session(upd.UserID); sess != nil && sess.State == checkout.StateAwaitingAddress {
		r.handleAddress(ctx, upd)
		return
	}

	r.send(ctx, upd.UserID, "I did not understand that.")
	r.showMainMenu(ctx, upd.UserID)
}

func (r *Router) handleSelection(ctx context.Context, upd Update) {
	action, arg, _ := strings.Cut(upd.Selection, ":")
	userID := upd.UserID

	switch action {
	case "menu":
		r.showCategories(ctx, userID)
	case "cat":
		r.showDishes(ctx, userID, parseID(arg))
	case "dish":
		r.showDish(ctx, userID, parseID(arg))
	case "add":
		r.addToCart(ctx, userID, parseID(arg))
	case "cart":
		r.showCart(ctx, userID)
	case "inc":
		r.changeQuantity(ctx, userID, parseID(arg), 1)
	case "dec":
		r.changeQuantity(ctx, userID, parseID(arg), -1)
	case "del":
		r.removeItem(ctx, userID, parseID(arg))
	case "clear":
		r.clearCart(ctx, userID)
	case "checkout":
		r.startCheckout(ctx, upd)
	case "slot":
		r.handleTimeSlot(ctx, userID, checkout.TimeSlot(arg))
	case "pay":
		r.handlePayment(ctx, userID, checkout.PaymentMethod(arg))
	case "back_address":
		r.handleBackToAddress(ctx, userID)
	case "back_slot":
		r.handleBackToTimeSlot(ctx, userID)
	case "confirm":
		r.handleConfirm(ctx, userID)
	case "cancel":
		r.handleCancel(ctx, userID)
	default:
		log.Printf("unknown selection %q from user %d", upd.Selection, userID)
		r.showMainMenu(ctx, userID)
	}
}

func (r *Router) showMainMenu(ctx context.Context, userID int64) {
	r.present(ctx, userID, "What would you like to do?", []gateway.Option{
		{ID: "menu", Label: "Menu"},
		{ID: "cart", Label: "Cart"},
		{ID: "checkout", Label: "Checkout"},
	})
}

func (r *Router) showCategories(ctx context.Context, userID int64) {
	cats, err := r.menu.Categories(ctx)
	if err != nil {
		r.fail(ctx, userID, "loading categories", err)
		return
	}
	opts := make([]gateway.Option, 0, len(cats))
	for _, c := range cats {
		opts = append(opts, gateway.Option{ID: fmt.Sprintf("cat:%d", c.ID), Label: c.Name})
	}
	r.present(ctx, userID, "Choose a category:", opts)
}

func (r *Router) showDishes(ctx context.Context, userID, categoryID int64) {
	dishes, err := r.menu.DishesByCategory(ctx, categoryID)
	if err != nil {
		r.fail(ctx, userID, "loading dishes", err)
		return
	}
	if len(dishes) == 0 {
		r.send(ctx, userID, "Nothing available in this category right now.")
		return
	}
	opts := make([]gateway.Option, 0, len(dishes)+1)
	for _, d := range dishes {
		opts = append(opts, gateway.Option{
			ID:    fmt.Sprintf("dish:%d", d.ID),
			Label: fmt.Sprintf("%s — %d", d.Name, d.Price),
		})
	}
	opts = append(opts, gateway.Option{ID: "menu", Label: "Back"})
	r.present(ctx, userID, "Choose a dish:", opts)
}

func (r *Router) showDish(ctx context.Context, userID, dishID int64) {
	d, err := r.menu.Dish(ctx, dishID)
	if err != nil {
		if errors.Is(err, menu.ErrDishNotFound) {
			r.send(ctx, userID, "This dish is no longer on the menu.")
			return
		}
		r.fail(ctx, userID, "loading dish", err)
		return
	}
	r.present(ctx, userID, renderDish(d), []gateway.Option{
		{ID: fmt.Sprintf("add:%d", d.ID), Label: "Add to cart"},
		{ID: fmt.Sprintf("cat:%d", d.CategoryID), Label: "Back"},
	})
}

func (r *Router) addToCart(ctx context.Context, userID, dishID int64) {
	d, err := r.menu.Dish(ctx, dishID)
	if err != nil {
		if errors.Is(err, menu.ErrDishNotFound) {
			r.send(ctx, userID, "This dish is no longer on the menu.")
			return
		}
		r.fail(ctx, userID, "loading dish", err)
		return
	}
	if !d.Available {
		r.send(ctx, userID, "This dish is not available right now.")
		return
	}
	if _, err := r.carts.AddItem(ctx, userID, d.ID, d.Name, d.Price); err != nil {
		r.fail(ctx, userID, "adding to cart", err)
		return
	}
	r.send(ctx, userID, fmt.Sprintf("%s added to your cart.", d.Name))
	r.showCart(ctx, userID)
}

func (r *Router) showCart(ctx context.Context, userID int64) {
	c, err := r.carts.GetCart(ctx, userID)
	if err != nil {
		r.fail(ctx, userID, "loading cart", err)
		return
	}
	if c.IsEmpty() {
		r.present(ctx, userID, "Your cart is empty.", []gateway.Option{
			{ID: "menu", Label: "Menu"},
		})
		return
	}
	r.present(ctx, userID, renderCart(c), cartOptions(c))
}

func (r *Router) changeQuantity(ctx context.Context, userID, dishID int64, delta int) {
	if _, err := r.carts.ChangeQuantity(ctx, userID, dishID, delta); err != nil {
		r.fail(ctx, userID, "updating cart", err)
		return
	}
	r.showCart(ctx, userID)
}

func (r *Router) removeItem(ctx context.Context, userID, dishID int64) {
	if _, err := r.carts.RemoveItem(ctx, userID, dishID); err != nil {
		r.fail(ctx, userID, "updating cart", err)
		return
	}
	r.showCart(ctx, userID)
}

func (r *Router) clearCart(ctx context.Context, userID int64) {
	if err := r.carts.Clear(ctx, userID); err != nil {
		r.fail(ctx, userID, "clearing cart", err)
		return
	}
	r.send(ctx, userID, "Your cart is now empty.")
	r.showMainMenu(ctx, userID)
}

func parseID(s string) int64 {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func (r *Router) send(ctx context.Context, userID int64, text string) {
	if err := r.conv.SendText(ctx, userID, text); err != nil {
		log.Printf("send to user %d: %v", userID, err)
	}
}

func (r *Router) present(ctx context.Context, userID int64, prompt string, opts []gateway.Option) {
	if err := r.conv.PresentOptions(ctx, userID, prompt, opts); err != nil {
		log.Printf("present to user %d: %v", userID, err)
	}
}

func (r *Router) edit(ctx context.Context, userID int64, prompt string, opts []gateway.Option) {
	if err := r.conv.EditPrompt(ctx, userID, prompt, opts); err != nil {
		log.Printf("edit prompt for user %d: %v", userID, err)
	}
}

// fail logs the underlying error and answers with a generic apology. Internal
// detail never reaches the chat.
func (r *Router) fail(ctx context.Context, userID int64, op string, err error) {
	log.Printf("%s for user %d: %v", op, userID, err)
	r.send(ctx, userID, "Something went wrong, please try again.")
}
