package orders

import (
	"time"

	"github.com/golubka/foodbot/internal/pricing"
)

type OrderStatus string

const (
	OrderStatusNew        OrderStatus = "new"
	OrderStatusAccepted   OrderStatus = "accepted"
	OrderStatusDelivering OrderStatus = "delivering"
	OrderStatusDone       OrderStatus = "done"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// ValidStatus reports whether s is one of the known order statuses.
func ValidStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusNew, OrderStatusAccepted, OrderStatusDelivering, OrderStatusDone, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) String() string {
	return string(s)
}

// Order is the immutable record of a confirmed purchase. Only Status changes
// after creation, through admin actions.
type Order struct {
	ID            int64
	UserID        int64
	UserName      string
	Items         []pricing.Line
	Subtotal      int64
	Discount      float64
	DeliveryFee   int64
	Total         float64 // final payable amount
	Address       string
	TimeSlot      string
	PaymentMethod string
	Status        OrderStatus
	CreatedAt     time.Time
}

// ConfirmedEvent is the outbox payload written alongside each new order and
// consumed by the admin notifier.
type ConfirmedEvent struct {
	OrderID       int64          `json:"order_id"`
	UserID        int64          `json:"user_id"`
	UserName      string         `json:"user_name"`
	Items         []pricing.Line `json:"items"`
	Subtotal      int64          `json:"subtotal"`
	Discount      float64        `json:"discount"`
	DeliveryFee   int64          `json:"delivery_fee"`
	Total         float64        `json:"total"`
	Address       string         `json:"address"`
	TimeSlot      string         `json:"time_slot"`
	PaymentMethod string         `json:"payment_method"`
	ConfirmedAt   time.Time      `json:"confirmed_at"`
}

// Stats is the aggregate view the admin panel shows.
type Stats struct {
	TotalOrders int64
	NewOrders   int64
	Revenue     float64
	ByStatus    map[OrderStatus]int64
}
