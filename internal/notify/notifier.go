package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"

	"github.com/golubka/foodbot/internal/gateway"
	"github.com/golubka/foodbot/internal/orders"
	"github.com/golubka/foodbot/pkg/circuitbreaker"
)

// AdminNotifier consumes confirmed-order events and fans each one out to the
// admin chat accounts. A broken chat platform trips the breaker instead of
// hammering it; a skipped notification is logged, never retried into the
// user's checkout path.
type AdminNotifier struct {
	reader   *kafka.Reader
	conv     gateway.Conversation
	adminIDs []int64
	breaker  *gobreaker.CircuitBreaker[any]
}

func NewAdminNotifier(conv gateway.Conversation, adminIDs []int64, brokers ...string) *AdminNotifier {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    Topic,
		GroupID:  "order-notifier",
		MaxBytes: 10e6, // 10MB
	})
	return &AdminNotifier{
		reader:   reader,
		conv:     conv,
		adminIDs: adminIDs,
		breaker:  circuitbreaker.New[any]("admin-notify", 30*time.Second),
	}
}

func (n *AdminNotifier) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		n.processMessage(ctx)
	}
}

func (n *AdminNotifier) Close() {
	if err := n.reader.Close(); err != nil {
		log.Printf("error closing kafka reader: %v", err)
	}
}

func (n *AdminNotifier) processMessage(ctx context.Context) {
	m, err := n.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Printf("error reading message: %v", err)
		return
	}

	var event orders.ConfirmedEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		log.Printf("error parsing message: %v", err)
		return
	}

	sent := n.NotifyAdmins(ctx, FormatOrder(&event))
	log.Printf("order %d: notified %d/%d admins", event.OrderID, sent, len(n.adminIDs))
}

// NotifyAdmins sends text to every admin and returns how many deliveries
// succeeded. It never returns an error; per-recipient failures are logged.
func (n *AdminNotifier) NotifyAdmins(ctx context.Context, text string) int {
	sent := 0
	for _, adminID := range n.adminIDs {
		_, err := n.breaker.Execute(func() (any, error) {
			return nil, n.conv.SendText(ctx, adminID, text)
		})
		if err != nil {
			log.Printf("notify admin %d: %v", adminID, err)
			continue
		}
		sent++
	}
	return sent
}

// FormatOrder renders the confirmed-order summary shown to admins.
func FormatOrder(ev *orders.ConfirmedEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New order #%d from %s (id %d)\n", ev.OrderID, ev.UserName, ev.UserID)
	for _, line := range ev.Items {
		fmt.Fprintf(&b, "  %s x%d = %d\n", line.Name, line.Quantity, line.LineTotal)
	}
	fmt.Fprintf(&b, "Subtotal: %d\n", ev.Subtotal)
	fmt.Fprintf(&b, "Discount: %.2f\n", ev.Discount)
	fmt.Fprintf(&b, "Delivery: %d\n", ev.DeliveryFee)
	fmt.Fprintf(&b, "Total: %.2f\n", ev.Total)
	fmt.Fprintf(&b, "Address: %s\n", ev.Address)
	fmt.Fprintf(&b, "Time slot: %s\n", ev.TimeSlot)
	fmt.Fprintf(&b, "Payment: %s", ev.PaymentMethod)
	return b.String()
}
