package checkout

// State is one step of a user's checkout session.
type State string

const (
	// StateIdle is the implicit state of a user with no active session. It is
	// never stored; it only appears in transition errors.
	StateIdle State = "IDLE"

	StateAwaitingAddress      State = "AWAITING_ADDRESS"
	StateAwaitingTimeSlot     State = "AWAITING_TIME_SLOT"
	StateAwaitingPayment      State = "AWAITING_PAYMENT_METHOD"
	StateAwaitingConfirmation State = "AWAITING_CONFIRMATION"
	StateCompleted            State = "COMPLETED"
	StateCancelled            State = "CANCELLED"
)

func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// String representation (for logging)
func (s State) String() string {
	return string(s)
}

// TimeSlot is a stable identifier for one delivery window. Labels are a
// rendering concern.
type TimeSlot string

const (
	TimeSlotASAP TimeSlot = "ASAP"
	TimeSlot12   TimeSlot = "12-14"
	TimeSlot14   TimeSlot = "14-16"
	TimeSlot16   TimeSlot = "16-18"
	TimeSlot18   TimeSlot = "18-20"
	TimeSlot20   TimeSlot = "20-22"
)

// DefaultTimeSlots returns the storefront's delivery windows.
func DefaultTimeSlots() []TimeSlot {
	return []TimeSlot{TimeSlotASAP, TimeSlot12, TimeSlot14, TimeSlot16, TimeSlot18, TimeSlot20}
}

// PaymentMethod is how the courier gets paid. Nothing is charged here; the
// choice is recorded on the order.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
)

// DefaultPaymentMethods returns the accepted payment methods.
func DefaultPaymentMethods() []PaymentMethod {
	return []PaymentMethod{PaymentCash, PaymentCard}
}
