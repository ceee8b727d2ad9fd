package checkout

import (
	"strings"
	"time"
)

type eventKind int

const (
	eventSubmitAddress eventKind = iota
	eventSubmitTimeSlot
	eventBackToAddress
	eventSubmitPayment
	eventBackToTimeSlot
	eventConfirm
	eventCancel
)

func (k eventKind) String() string {
	switch k {
	case eventSubmitAddress:
		return "submitAddress"
	case eventSubmitTimeSlot:
		return "submitTimeSlot"
	case eventBackToAddress:
		return "goBackToAddress"
	case eventSubmitPayment:
		return "submitPaymentMethod"
	case eventBackToTimeSlot:
		return "goBackToTimeSlot"
	case eventConfirm:
		return "confirm"
	case eventCancel:
		return "cancel"
	}
	return "unknown"
}

// event is the tagged input to the state machine. Exactly one payload field
// is meaningful for any given kind.
type event struct {
	kind   eventKind
	text   string
	slot   TimeSlot
	method PaymentMethod
}

// allowed is the full transition table: which events each state accepts.
// Everything not listed is an illegal transition, never a silent no-op.
var allowed = map[State][]eventKind{
	StateAwaitingAddress:      {eventSubmitAddress, eventCancel},
	StateAwaitingTimeSlot:     {eventSubmitTimeSlot, eventBackToAddress, eventCancel},
	StateAwaitingPayment:      {eventSubmitPayment, eventBackToTimeSlot, eventCancel},
	StateAwaitingConfirmation: {eventConfirm, eventCancel},
}

func checkAllowed(state State, kind eventKind) error {
	for _, k := range allowed[state] {
		if k == kind {
			return nil
		}
	}
	return &IllegalTransitionError{State: state, Op: kind.String()}
}

// apply validates ev against the session's current state and mutates the
// session. Input validation happens before any state change, so a rejected
// event leaves the session exactly where it was.
func (s *Service) apply(sess *Session, ev event) error {
	if err := checkAllowed(sess.State, ev.kind); err != nil {
		return err
	}

	switch ev.kind {
	case eventSubmitAddress:
		address := strings.TrimSpace(ev.text)
		if address == "" {
			return ErrInvalidInput
		}
		sess.Address = address
		sess.State = StateAwaitingTimeSlot

	case eventSubmitTimeSlot:
		if !s.validSlot(ev.slot) {
			return ErrInvalidSelection
		}
		sess.TimeSlot = ev.slot
		sess.State = StateAwaitingPayment

	case eventBackToAddress:
		// The address survives; re-submission overwrites it.
		sess.TimeSlot = ""
		sess.State = StateAwaitingAddress

	case eventSubmitPayment:
		if !s.validMethod(ev.method) {
			return ErrInvalidSelection
		}
		sess.PaymentMethod = ev.method
		sess.State = StateAwaitingConfirmation

	case eventBackToTimeSlot:
		sess.PaymentMethod = ""
		sess.State = StateAwaitingTimeSlot

	case eventConfirm:
		sess.State = StateCompleted

	case eventCancel:
		sess.State = StateCancelled
	}

	sess.UpdatedAt = time.Now()
	return nil
}

func (s *Service) validSlot(slot TimeSlot) bool {
	for _, ts := range s.cfg.TimeSlots {
		if ts == slot {
			return true
		}
	}
	return false
}

func (s *Service) validMethod(method PaymentMethod) bool {
	for _, m := range s.cfg.PaymentMethods {
		if m == method {
			return true
		}
	}
	return false
}
