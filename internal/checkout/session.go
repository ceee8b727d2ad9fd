package checkout

import (
	"time"

	"github.com/google/uuid"

	"github.com/golubka/foodbot/internal/cart"
)

// Session tracks one user's progress through checkout. The cart snapshot is
// taken when the session starts; later cart edits do not affect an order in
// flight.
type Session struct {
	ID            uuid.UUID
	UserID        int64
	UserName      string
	State         State
	Cart          *cart.Cart
	Address       string
	TimeSlot      TimeSlot
	PaymentMethod PaymentMethod
	StartedAt     time.Time
	UpdatedAt     time.Time
}

func newSession(userID int64, userName string, snapshot *cart.Cart) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.New(),
		UserID:    userID,
		UserName:  userName,
		State:     StateAwaitingAddress,
		Cart:      snapshot,
		StartedAt: now,
		UpdatedAt: now,
	}
}
