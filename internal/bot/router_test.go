package bot

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golubka/foodbot/internal/cart"
	"github.com/golubka/foodbot/internal/checkout"
	"github.com/golubka/foodbot/internal/gateway"
	"github.com/golubka/foodbot/internal/menu"
	"github.com/golubka/foodbot/internal/orders"
	"github.com/golubka/foodbot/internal/users"
)

type recordedMessage struct {
	userID  int64
	text    string
	options []gateway.Option
}

type recordingConversation struct {
	mu       sync.Mutex
	messages []recordedMessage
}

func (r *recordingConversation) SendText(_ context.Context, userID int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, recordedMessage{userID: userID, text: text})
	return nil
}

func (r *recordingConversation) PresentOptions(_ context.Context, userID int64, prompt string, options []gateway.Option) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, recordedMessage{userID: userID, text: prompt, options: options})
	return nil
}

func (r *recordingConversation) EditPrompt(ctx context.Context, userID int64, prompt string, options []gateway.Option) error {
	return r.PresentOptions(ctx, userID, prompt, options)
}

func (r *recordingConversation) last() recordedMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return recordedMessage{}
	}
	return r.messages[len(r.messages)-1]
}

func (r *recordingConversation) transcript() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var b strings.Builder
	for _, m := range r.messages {
		b.WriteString(m.text)
		b.WriteString("\n")
	}
	return b.String()
}

type mockMenu struct {
	categories []*menu.Category
	dishes     map[int64]*menu.Dish
}

func newMockMenu() *mockMenu {
	return &mockMenu{
		categories: []*menu.Category{{ID: 1, Name: "Pizza"}},
		dishes: map[int64]*menu.Dish{
			1: {ID: 1, CategoryID: 1, Name: "Classic Pizza", Price: 140, Available: true},
			2: {ID: 2, CategoryID: 1, Name: "Cheese Pizza", Price: 150, Available: false},
		},
	}
}

func (m *mockMenu) Categories(context.Context) ([]*menu.Category, error) { return m.categories, nil }

func (m *mockMenu) DishesByCategory(_ context.Context, categoryID int64) ([]*menu.Dish, error) {
	var out []*menu.Dish
	for _, d := range m.dishes {
		if d.CategoryID == categoryID && d.Available {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockMenu) Dish(_ context.Context, id int64) (*menu.Dish, error) {
	d, ok := m.dishes[id]
	if !ok {
		return nil, menu.ErrDishNotFound
	}
	return d, nil
}

func (m *mockMenu) AddDish(_ context.Context, d *menu.Dish) (int64, error) {
	id := int64(len(m.dishes) + 1)
	d.ID = id
	m.dishes[id] = d
	return id, nil
}

func (m *mockMenu) ToggleAvailability(_ context.Context, dishID int64) (bool, error) {
	d, ok := m.dishes[dishID]
	if !ok {
		return false, menu.ErrDishNotFound
	}
	d.Available = !d.Available
	return d.Available, nil
}

func (m *mockMenu) Close() error { return nil }

// memCartService keeps carts in a plain map; it backs both the router and the
// checkout engine in tests.
type memCartService struct {
	mu    sync.Mutex
	carts map[int64]*cart.Cart
}

func newMemCartService() *memCartService {
	return &memCartService{carts: make(map[int64]*cart.Cart)}
}

func (m *memCartService) get(userID int64) *cart.Cart {
	c, ok := m.carts[userID]
	if !ok {
		c = &cart.Cart{UserID: userID, Items: []cart.CartItem{}}
		m.carts[userID] = c
	}
	return c
}

func (m *memCartService) GetCart(_ context.Context, userID int64) (*cart.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(userID).Snapshot(), nil
}

func (m *memCartService) AddItem(_ context.Context, userID, dishID int64, name string, unitPrice int64) (*cart.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.get(userID)
	for i := range c.Items {
		if c.Items[i].DishID == dishID {
			c.Items[i].Quantity++
			recompute(c)
			return c.Snapshot(), nil
		}
	}
	c.Items = append(c.Items, cart.CartItem{DishID: dishID, Name: name, UnitPrice: unitPrice, Quantity: 1})
	recompute(c)
	return c.Snapshot(), nil
}

func (m *memCartService) ChangeQuantity(_ context.Context, userID, dishID int64, delta int) (*cart.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.get(userID)
	for i := range c.Items {
		if c.Items[i].DishID == dishID {
			c.Items[i].Quantity += delta
			if c.Items[i].Quantity <= 0 {
				c.Items = append(c.Items[:i], c.Items[i+1:]...)
			}
			break
		}
	}
	recompute(c)
	return c.Snapshot(), nil
}

func (m *memCartService) RemoveItem(ctx context.Context, userID, dishID int64) (*cart.Cart, error) {
	return m.ChangeQuantity(ctx, userID, dishID, -1<<30)
}

func (m *memCartService) Clear(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, userID)
	return nil
}

func recompute(c *cart.Cart) {
	var total int64
	for i := range c.Items {
		c.Items[i].LineTotal = c.Items[i].UnitPrice * int64(c.Items[i].Quantity)
		total += c.Items[i].LineTotal
	}
	c.Total = total
}

type memOrderStore struct {
	mu     sync.Mutex
	nextID int64
	orders []*orders.Order
}

func (m *memOrderStore) CreateOrder(_ context.Context, order *orders.Order) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	cp := *order
	cp.ID = m.nextID
	m.orders = append(m.orders, &cp)
	return m.nextID, nil
}

type memUsers struct {
	mu    sync.Mutex
	seen  map[int64]*users.User
	count int
}

func (m *memUsers) Upsert(_ context.Context, u *users.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen == nil {
		m.seen = make(map[int64]*users.User)
	}
	if _, ok := m.seen[u.UserID]; !ok {
		m.count++
	}
	m.seen[u.UserID] = u
	return nil
}

func (m *memUsers) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(m.count), nil
}

func (m *memUsers) AllIDs(context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.seen))
	for id := range m.seen {
		ids = append(ids, id)
	}
	return ids, nil
}

type fixture struct {
	router *Router
	conv   *recordingConversation
	carts  *memCartService
	orders *memOrderStore
	users  *memUsers
	co     *checkout.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conv := &recordingConversation{}
	carts := newMemCartService()
	store := &memOrderStore{}
	co := checkout.NewService(checkout.DefaultConfig(), carts, store)
	t.Cleanup(func() { _ = co.Close() })
	u := &memUsers{}
	return &fixture{
		router: NewRouter(newMockMenu(), carts, co, u, conv),
		conv:   conv,
		carts:  carts,
		orders: store,
		users:  u,
		co:     co,
	}
}

func (f *fixture) handle(t *testing.T, upd Update) {
	t.Helper()
	if upd.UserID == 0 {
		upd.UserID = 7
	}
	if upd.UserName == "" {
		upd.UserName = "alice"
	}
	f.router.Handle(context.Background(), upd)
}

func TestStartRegistersUserAndShowsMenu(t *testing.T) {
	f := newFixture(t)

	f.handle(t, Update{Text: "/start"})

	count, _ := f.users.Count(context.Background())
	assert.Equal(t, int64(1), count)
	last := f.conv.last()
	assert.Equal(t, "What would you like to do?", last.text)
	assert.Len(t, last.options, 3)
}

func TestBrowseAndAddToCart(t *testing.T) {
	f := newFixture(t)

	f.handle(t, Update{Selection: "menu"})
	assert.Equal(t, "Choose a category:", f.conv.last().text)

	f.handle(t, Update{Selection: "cat:1"})
	last := f.conv.last()
	assert.Equal(t, "Choose a dish:", last.text)
	// Unavailable dishes are filtered out; one dish plus back.
	assert.Len(t, last.options, 2)

	f.handle(t, Update{Selection: "add:1"})
	assert.Contains(t, f.conv.transcript(), "Classic Pizza added to your cart.")
	assert.Contains(t, f.conv.last().text, "Total: 140")
}

func TestAddUnavailableDish(t *testing.T) {
	f := newFixture(t)

	f.handle(t, Update{Selection: "add:2"})
	assert.Equal(t, "This dish is not available right now.", f.conv.last().text)

	c, _ := f.carts.GetCart(context.Background(), 7)
	assert.True(t, c.IsEmpty())
}

func TestCartQuantityControls(t *testing.T) {
	f := newFixture(t)

	f.handle(t, Update{Selection: "add:1"})
	f.handle(t, Update{Selection: "inc:1"})
	assert.Contains(t, f.conv.last().text, "Classic Pizza x2 = 280")

	f.handle(t, Update{Selection: "dec:1"})
	assert.Contains(t, f.conv.last().text, "Classic Pizza x1 = 140")

	f.handle(t, Update{Selection: "del:1"})
	assert.Equal(t, "Your cart is empty.", f.conv.last().text)
}

func TestFullOrderConversation(t *testing.T) {
	f := newFixture(t)

	f.handle(t, Update{Selection: "add:1"})
	f.handle(t, Update{Selection: "checkout"})
	assert.Equal(t, "Please enter your delivery address:", f.conv.last().text)

	f.handle(t, Update{Text: "12 Main St"})
	assert.Equal(t, "Choose a delivery time:", f.conv.last().text)

	f.handle(t, Update{Selection: "slot:18-20"})
	assert.Equal(t, "How would you like to pay?", f.conv.last().text)

	f.handle(t, Update{Selection: "pay:card"})
	confirmation := f.conv.last().text
	assert.Contains(t, confirmation, "Subtotal: 140")
	assert.Contains(t, confirmation, "Discount: 14.00")
	assert.Contains(t, confirmation, "To pay: 131.00")
	assert.Contains(t, confirmation, "Address: 12 Main St")

	f.handle(t, Update{Selection: "confirm"})
	assert.Contains(t, f.conv.last().text, "Order #1 is accepted")

	require.Len(t, f.orders.orders, 1)
	assert.InDelta(t, 131.0, f.orders.orders[0].Total, 1e-9)

	c, _ := f.carts.GetCart(context.Background(), 7)
	assert.True(t, c.IsEmpty())
	assert.Nil(t, f.co.Session(7))
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t)

	f.handle(t, Update{Selection: "checkout"})
	assert.Contains(t, f.conv.transcript(), "Your cart is empty.")
	// Followed by the menu so the user can fix it.
	assert.Equal(t, "Choose a category:", f.conv.last().text)
}

func TestInvalidSlotReasksQuestion(t *testing.T) {
	f := newFixture(t)

	f.handle(t, Update{Selection: "add:1"})
	f.handle(t, Update{Selection: "checkout"})
	f.handle(t, Update{Text: "12 Main St"})

	f.handle(t, Update{Selection: "slot:03-05"})
	assert.Equal(t, "Choose a delivery time:", f.conv.last().text)
	assert.Equal(t, checkout.StateAwaitingTimeSlot, f.co.Session(7).State)
}

func TestBackNavigationKeepsAddress(t *testing.T) {
	f := newFixture(t)

	f.handle(t, Update{Selection: "add:1"})
	f.handle(t, Update{Selection: "checkout"})
	f.handle(t, Update{Text: "12 Main St"})
	f.handle(t, Update{Selection: "slot:18-20"})

	f.handle(t, Update{Selection: "back_slot"})
	assert.Equal(t, "Choose a delivery time:", f.conv.last().text)

	f.handle(t, Update{Selection: "back_address"})
	assert.Equal(t, "Please enter your delivery address:", f.conv.last().text)
	assert.Equal(t, "12 Main St", f.co.Session(7).Address)
}

func TestStaleConfirmTap(t *testing.T) {
	f := newFixture(t)

	// Confirm without any session: generic reply, nothing breaks.
	f.handle(t, Update{Selection: "confirm"})
	assert.Contains(t, f.conv.transcript(), "That action is not available right now.")
	assert.Empty(t, f.orders.orders)
}

func TestCancelKeepsCart(t *testing.T) {
	f := newFixture(t)

	f.handle(t, Update{Selection: "add:1"})
	f.handle(t, Update{Selection: "checkout"})
	f.handle(t, Update{Selection: "cancel"})

	assert.Contains(t, f.conv.transcript(), "Checkout cancelled. Your cart is untouched.")
	assert.Nil(t, f.co.Session(7))

	c, _ := f.carts.GetCart(context.Background(), 7)
	assert.False(t, c.IsEmpty())
}

func TestFreeTextOutsideCheckout(t *testing.T) {
	f := newFixture(t)

	f.handle(t, Update{Text: "hello there"})
	assert.Contains(t, f.conv.transcript(), "I did not understand that.")
	assert.Equal(t, "What would you like to do?", f.conv.last().text)
}
