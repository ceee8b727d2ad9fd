package cart

import (
	"context"
	"errors"
)

// Cache is the read-through cache in front of the cart repository.
type Cache interface {
	Get(ctx context.Context, userID int64) (*Cart, error)
	Set(ctx context.Context, userID int64, cart *Cart) error
	Delete(ctx context.Context, userID int64) error
}

var ErrCacheMiss = errors.New("cache miss")
