package cart

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Service owns every cart mutation. Reads go through the cache, writes are
// read-modify-write cycles on the stored document, serialized per user so
// rapid duplicate taps cannot produce lost updates.
type Service struct {
	repo  Repository
	cache Cache
	sfg   singleflight.Group // Prevents cache stampede

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewService(repo Repository, cache Cache) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		locks: make(map[int64]*sync.Mutex),
	}
}

// userLock returns the mutex serializing mutations for one user.
func (s *Service) userLock(userID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// GetCart returns the user's cart, or an empty cart when none exists yet.
// Absence is not an error.
func (s *Service) GetCart(ctx context.Context, userID int64) (*Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(fmt.Sprint(userID), func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil // cart is in cache
		}

		if !errors.Is(err, ErrCacheMiss) {
			log.Printf("cache get error: %v", err) // log cache error but continue
		}

		cart, errGet := s.repo.GetCart(ctx, userID)
		if errGet != nil && errors.Is(errGet, ErrCartNotFound) {
			return emptyCart(userID), nil
		}
		if errGet != nil {
			return nil, errGet
		}

		go func() {
			setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if errSet := s.cache.Set(setCtx, userID, cart); errSet != nil {
				log.Printf("cache set error: %v", errSet)
			}
		}()

		return cart, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*Cart), nil
}

// AddItem increments the quantity of an existing line or appends a new one
// with quantity 1, then recomputes and persists the cart.
func (s *Service) AddItem(ctx context.Context, userID, dishID int64, name string, unitPrice int64) (*Cart, error) {
	return s.mutate(ctx, userID, func(c *Cart) {
		for i := range c.Items {
			if c.Items[i].DishID == dishID {
				c.Items[i].Quantity++
				return
			}
		}
		c.Items = append(c.Items, CartItem{
			DishID:    dishID,
			Name:      name,
			UnitPrice: unitPrice,
			Quantity:  1,
		})
	})
}

// ChangeQuantity adjusts the matching line's quantity by delta. A resulting
// quantity of zero or less removes the line. An unknown dish id is a no-op
// that still recomputes and persists.
func (s *Service) ChangeQuantity(ctx context.Context, userID, dishID int64, delta int) (*Cart, error) {
	return s.mutate(ctx, userID, func(c *Cart) {
		for i := range c.Items {
			if c.Items[i].DishID != dishID {
				continue
			}
			c.Items[i].Quantity += delta
			if c.Items[i].Quantity <= 0 {
				c.Items = append(c.Items[:i], c.Items[i+1:]...)
			}
			return
		}
	})
}

// RemoveItem deletes the line with the given dish id if present.
func (s *Service) RemoveItem(ctx context.Context, userID, dishID int64) (*Cart, error) {
	return s.mutate(ctx, userID, func(c *Cart) {
		for i := range c.Items {
			if c.Items[i].DishID == dishID {
				c.Items = append(c.Items[:i], c.Items[i+1:]...)
				return
			}
		}
	})
}

// Clear resets the user's cart to empty.
func (s *Service) Clear(ctx context.Context, userID int64) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.repo.UpsertCart(ctx, emptyCart(userID)); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	s.invalidateCache(userID)
	return nil
}

// mutate loads the cart, applies fn, recomputes the totals and persists the
// result, all under the user's lock.
func (s *Service) mutate(ctx context.Context, userID int64, fn func(*Cart)) (*Cart, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	c, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrCartNotFound) {
			return nil, err
		}
		c = emptyCart(userID)
	}

	fn(c)
	c.recompute()

	if errUpsert := s.repo.UpsertCart(ctx, c); errUpsert != nil {
		return nil, fmt.Errorf("failed to persist cart: %w", errUpsert)
	}

	s.invalidateCache(userID)
	return c, nil
}

func (s *Service) invalidateCache(userID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}

func emptyCart(userID int64) *Cart {
	now := time.Now()
	return &Cart{
		UserID:    userID,
		Items:     []CartItem{},
		Total:     0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
