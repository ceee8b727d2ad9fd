package orders

import (
	"context"
	"errors"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrInvalidStatus = errors.New("invalid order status")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// OutboxEvent is one pending notification row, published to Kafka by the
// outbox poller.
type OutboxEvent struct {
	ID          int64
	EventType   string
	AggregateID string
	Payload     []byte
}

// Repository is the consumer-side contract for order persistence. CreateOrder
// assigns the id and writes the confirmation outbox event in the same
// transaction, so a persisted order can never lose its notification.
type Repository interface {
	CreateOrder(ctx context.Context, order *Order) (int64, error)
	GetOrderByID(ctx context.Context, id int64) (*Order, error)
	ListRecent(ctx context.Context, limit int) ([]*Order, error)
	ListByUserID(ctx context.Context, userID int64) ([]*Order, error)
	UpdateStatus(ctx context.Context, id int64, status OrderStatus) error
	Stats(ctx context.Context) (*Stats, error)
	UnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventProcessed(ctx context.Context, id int64) error
	RunMigrations(*Credentials) error
	Close() error
}
