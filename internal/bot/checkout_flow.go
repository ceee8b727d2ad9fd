package bot

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/golubka/foodbot/internal/checkout"
	"github.com/golubka/foodbot/internal/gateway"
)

func (r *Router) startCheckout(ctx context.Context, upd Update) {
	_, err := r.checkout.StartCheckout(ctx, upd.UserID, upd.UserName)
	switch {
	case err == nil:
		r.send(ctx, upd.UserID, "Please enter your delivery address:")
	case errors.Is(err, checkout.ErrEmptyCart):
		r.send(ctx, upd.UserID, "Your cart is empty. Add something from the menu first.")
		r.showCategories(ctx, upd.UserID)
	case errors.Is(err, checkout.ErrBelowMinimum):
		r.send(ctx, upd.UserID, "Your order is below the minimum amount. Add a bit more.")
		r.showCart(ctx, upd.UserID)
	case errors.Is(err, checkout.ErrSessionActive):
		r.resumeSession(ctx, upd.UserID)
	default:
		r.fail(ctx, upd.UserID, "starting checkout", err)
	}
}

// resumeSession re-asks the question matching the session's current state,
// so an interrupted user can pick up where they left off.
func (r *Router) resumeSession(ctx context.Context, userID int64) {
	sess := r.checkout.Session(userID)
	if sess == nil {
		r.showMainMenu(ctx, userID)
		return
	}
	switch sess.State {
	case checkout.StateAwaitingAddress:
		r.send(ctx, userID, "Please enter your delivery address:")
	case checkout.StateAwaitingTimeSlot:
		r.askTimeSlot(ctx, userID, false)
	case checkout.StateAwaitingPayment:
		r.askPayment(ctx, userID, false)
	case checkout.StateAwaitingConfirmation:
		r.askConfirmation(ctx, userID)
	}
}

func (r *Router) handleAddress(ctx context.Context, upd Update) {
	_, err := r.checkout.SubmitAddress(upd.UserID, upd.Text)
	switch {
	case err == nil:
		r.askTimeSlot(ctx, upd.UserID, false)
	case errors.Is(err, checkout.ErrInvalidInput):
		r.send(ctx, upd.UserID, "Please enter a non-empty delivery address:")
	default:
		r.transitionFail(ctx, upd.UserID, err)
	}
}

func (r *Router) handleTimeSlot(ctx context.Context, userID int64, slot checkout.TimeSlot) {
	_, err := r.checkout.SubmitTimeSlot(userID, slot)
	switch {
	case err == nil:
		r.askPayment(ctx, userID, false)
	case errors.Is(err, checkout.ErrInvalidSelection):
		r.askTimeSlot(ctx, userID, false)
	default:
		r.transitionFail(ctx, userID, err)
	}
}

func (r *Router) handlePayment(ctx context.Context, userID int64, method checkout.PaymentMethod) {
	sess, summary, err := r.checkout.SubmitPaymentMethod(userID, method)
	switch {
	case err == nil:
		r.present(ctx, userID, renderConfirmation(sess, summary), confirmationOptions())
	case errors.Is(err, checkout.ErrInvalidSelection):
		r.askPayment(ctx, userID, false)
	default:
		r.transitionFail(ctx, userID, err)
	}
}

func (r *Router) handleBackToAddress(ctx context.Context, userID int64) {
	if _, err := r.checkout.BackToAddress(userID); err != nil {
		r.transitionFail(ctx, userID, err)
		return
	}
	r.edit(ctx, userID, "Please enter your delivery address:", nil)
}

func (r *Router) handleBackToTimeSlot(ctx context.Context, userID int64) {
	if _, err := r.checkout.BackToTimeSlot(userID); err != nil {
		r.transitionFail(ctx, userID, err)
		return
	}
	r.askTimeSlot(ctx, userID, true)
}

func (r *Router) handleConfirm(ctx context.Context, userID int64) {
	order, err := r.checkout.Confirm(ctx, userID)
	switch {
	case err == nil:
		r.send(ctx, userID, fmt.Sprintf("Thank you! Order #%d is accepted and on its way soon.", order.ID))
	case errors.Is(err, checkout.ErrOrderPersistence):
		r.present(ctx, userID, "Could not place the order, please try again.", confirmationOptions())
	default:
		r.transitionFail(ctx, userID, err)
	}
}

func (r *Router) handleCancel(ctx context.Context, userID int64) {
	if err := r.checkout.Cancel(userID); err != nil {
		r.transitionFail(ctx, userID, err)
		return
	}
	r.send(ctx, userID, "Checkout cancelled. Your cart is untouched.")
	r.showMainMenu(ctx, userID)
}

func (r *Router) askConfirmation(ctx context.Context, userID int64) {
	sess := r.checkout.Session(userID)
	if sess == nil {
		r.showMainMenu(ctx, userID)
		return
	}
	r.present(ctx, userID, renderConfirmation(sess, r.checkout.Summary(sess)), confirmationOptions())
}

func (r *Router) askTimeSlot(ctx context.Context, userID int64, edit bool) {
	opts := make([]gateway.Option, 0, 8)
	for _, slot := range checkout.DefaultTimeSlots() {
		opts = append(opts, gateway.Option{ID: "slot:" + string(slot), Label: string(slot)})
	}
	opts = append(opts,
		gateway.Option{ID: "back_address", Label: "Back"},
		gateway.Option{ID: "cancel", Label: "Cancel"},
	)
	if edit {
		r.edit(ctx, userID, "Choose a delivery time:", opts)
		return
	}
	r.present(ctx, userID, "Choose a delivery time:", opts)
}

func (r *Router) askPayment(ctx context.Context, userID int64, edit bool) {
	opts := make([]gateway.Option, 0, 4)
	for _, m := range checkout.DefaultPaymentMethods() {
		opts = append(opts, gateway.Option{ID: "pay:" + string(m), Label: paymentLabel(m)})
	}
	opts = append(opts,
		gateway.Option{ID: "back_slot", Label: "Back"},
		gateway.Option{ID: "cancel", Label: "Cancel"},
	)
	if edit {
		r.edit(ctx, userID, "How would you like to pay?", opts)
		return
	}
	r.present(ctx, userID, "How would you like to pay?", opts)
}

func confirmationOptions() []gateway.Option {
	return []gateway.Option{
		{ID: "confirm", Label: "Confirm order"},
		{ID: "cancel", Label: "Cancel"},
	}
}

// transitionFail answers illegal transitions and unexpected errors alike with
// a generic reply; the log carries the detail.
func (r *Router) transitionFail(ctx context.Context, userID int64, err error) {
	var ite *checkout.IllegalTransitionError
	if errors.As(err, &ite) {
		log.Printf("user %d: %v", userID, ite)
		r.send(ctx, userID, "That action is not available right now.")
		r.resumeSession(ctx, userID)
		return
	}
	r.fail(ctx, userID, "checkout", err)
}
