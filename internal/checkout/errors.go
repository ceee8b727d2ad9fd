package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart        = errors.New("cart is empty, nothing to checkout")
	ErrBelowMinimum     = errors.New("cart total is below the minimum order amount")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidSelection = errors.New("selection is not one of the offered options")
	ErrSessionActive    = errors.New("checkout session already active")
	ErrOrderPersistence = errors.New("failed to persist order")
)

// IllegalTransitionError reports an operation invoked in a state that forbids
// it. It always indicates a client bug or a stale interaction, so it carries
// both sides for the log line.
type IllegalTransitionError struct {
	State State
	Op    string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition: %s not allowed in state %s", e.Op, e.State)
}
