package cart

import (
	"context"
	"errors"
)

var ErrCartNotFound = errors.New("cart not found")

// Repository defines the interface for cart persistence.
// Consumers define this interface, not the MongoDB implementation.
type Repository interface {
	GetCart(ctx context.Context, userID int64) (*Cart, error)
	UpsertCart(ctx context.Context, cart *Cart) error
	DeleteCart(ctx context.Context, userID int64) error
}
