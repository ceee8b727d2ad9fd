package checkout

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/golubka/foodbot/internal/cart"
	"github.com/golubka/foodbot/internal/orders"
	"github.com/golubka/foodbot/internal/pricing"
)

// CartEngine is the slice of the cart service checkout depends on.
type CartEngine interface {
	GetCart(ctx context.Context, userID int64) (*cart.Cart, error)
	Clear(ctx context.Context, userID int64) error
}

// OrderStore persists confirmed orders.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *orders.Order) (int64, error)
}

// Config holds the checkout options offered to users plus the pricing rules
// applied to the session snapshot.
type Config struct {
	TimeSlots      []TimeSlot
	PaymentMethods []PaymentMethod
	Pricing        pricing.Config
	SessionTTL     time.Duration
}

// DefaultConfig returns the storefront's standing checkout options.
func DefaultConfig() Config {
	return Config{
		TimeSlots:      DefaultTimeSlots(),
		PaymentMethods: DefaultPaymentMethods(),
		Pricing:        pricing.DefaultConfig(),
		SessionTTL:     DefaultSessionTTL,
	}
}

// Service drives checkout sessions through their states. All operations for
// one user are serialized, so a double-tapped confirm is resolved into one
// order and one IllegalTransitionError instead of two orders.
type Service struct {
	cfg      Config
	carts    CartEngine
	orders   OrderStore
	sessions *SessionStore

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewService(cfg Config, carts CartEngine, store OrderStore) *Service {
	if len(cfg.TimeSlots) == 0 {
		cfg.TimeSlots = DefaultTimeSlots()
	}
	if len(cfg.PaymentMethods) == 0 {
		cfg.PaymentMethods = DefaultPaymentMethods()
	}
	return &Service{
		cfg:      cfg,
		carts:    carts,
		orders:   store,
		sessions: NewSessionStore(cfg.SessionTTL),
		locks:    make(map[int64]*sync.Mutex),
	}
}

// userLock returns the mutex serializing checkout operations for one user.
func (s *Service) userLock(userID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// Session returns the user's live session, or nil. Callers must treat the
// result as read-only.
func (s *Service) Session(userID int64) *Session {
	return s.sessions.Get(userID)
}

// StartCheckout snapshots the user's cart and opens a session in
// StateAwaitingAddress. The live cart stays editable; edits made after this
// point do not affect the order in flight.
func (s *Service) StartCheckout(ctx context.Context, userID int64, userName string) (*Session, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if existing := s.sessions.Get(userID); existing != nil {
		return nil, ErrSessionActive
	}

	c, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading cart for checkout: %w", err)
	}
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}
	if c.Total < s.cfg.Pricing.MinOrderAmount {
		return nil, ErrBelowMinimum
	}

	sess := newSession(userID, userName, c.Snapshot())
	s.sessions.Put(sess)
	return sess, nil
}

// SubmitAddress records the delivery address and advances to the time slot
// question. Blank input is rejected without a state change.
func (s *Service) SubmitAddress(userID int64, address string) (*Session, error) {
	return s.dispatch(userID, event{kind: eventSubmitAddress, text: address})
}

// SubmitTimeSlot records the delivery window and advances to the payment
// question.
func (s *Service) SubmitTimeSlot(userID int64, slot TimeSlot) (*Session, error) {
	return s.dispatch(userID, event{kind: eventSubmitTimeSlot, slot: slot})
}

// BackToAddress returns from the time slot question to the address question.
// The previously entered address is kept until re-submitted.
func (s *Service) BackToAddress(userID int64) (*Session, error) {
	return s.dispatch(userID, event{kind: eventBackToAddress})
}

// SubmitPaymentMethod records the payment method and advances to the final
// confirmation. The returned summary is the exact breakdown the order will
// carry.
func (s *Service) SubmitPaymentMethod(userID int64, method PaymentMethod) (*Session, pricing.Summary, error) {
	sess, err := s.dispatch(userID, event{kind: eventSubmitPayment, method: method})
	if err != nil {
		return nil, pricing.Summary{}, err
	}
	return sess, s.Summary(sess), nil
}

// BackToTimeSlot returns from the payment question to the time slot question.
func (s *Service) BackToTimeSlot(userID int64) (*Session, error) {
	return s.dispatch(userID, event{kind: eventBackToTimeSlot})
}

// Summary computes the price breakdown for the session's cart snapshot.
func (s *Service) Summary(sess *Session) pricing.Summary {
	return s.cfg.Pricing.Summarize(sess.Cart.PricingLines())
}

// Confirm persists the order and completes the session. Persistence failure
// leaves the session in StateAwaitingConfirmation so the user can retry; the
// live cart is cleared only after the order is safely stored.
func (s *Service) Confirm(ctx context.Context, userID int64) (*orders.Order, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	sess := s.sessions.Get(userID)
	if sess == nil {
		return nil, &IllegalTransitionError{State: StateIdle, Op: eventConfirm.String()}
	}
	if err := checkAllowed(sess.State, eventConfirm); err != nil {
		return nil, err
	}

	summary := s.Summary(sess)
	order := &orders.Order{
		UserID:        sess.UserID,
		UserName:      sess.UserName,
		Items:         summary.Lines,
		Subtotal:      summary.Subtotal,
		Discount:      summary.Discount,
		DeliveryFee:   summary.DeliveryFee,
		Total:         summary.FinalTotal,
		Address:       sess.Address,
		TimeSlot:      string(sess.TimeSlot),
		PaymentMethod: string(sess.PaymentMethod),
		Status:        orders.OrderStatusNew,
	}

	id, err := s.orders.CreateOrder(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderPersistence, err)
	}
	order.ID = id

	// The order exists now; nothing past this point may fail the confirm.
	if err := s.carts.Clear(ctx, userID); err != nil {
		log.Printf("clearing cart after order %d: %v", id, err)
	}

	if err := s.apply(sess, event{kind: eventConfirm}); err != nil {
		return nil, err
	}
	s.sessions.Delete(userID)
	return order, nil
}

// Cancel abandons the session from any non-terminal state. The live cart is
// untouched.
func (s *Service) Cancel(userID int64) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	sess := s.sessions.Get(userID)
	if sess == nil {
		return &IllegalTransitionError{State: StateIdle, Op: eventCancel.String()}
	}
	if err := s.apply(sess, event{kind: eventCancel}); err != nil {
		return err
	}
	s.sessions.Delete(userID)
	return nil
}

// Close stops the session store's background cleanup.
func (s *Service) Close() error {
	return s.sessions.Close()
}

// dispatch runs one event against the user's session under the user lock.
func (s *Service) dispatch(userID int64, ev event) (*Session, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	sess := s.sessions.Get(userID)
	if sess == nil {
		return nil, &IllegalTransitionError{State: StateIdle, Op: ev.kind.String()}
	}
	if err := s.apply(sess, ev); err != nil {
		return nil, err
	}
	return sess, nil
}
