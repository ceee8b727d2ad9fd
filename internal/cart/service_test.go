package cart

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	m     sync.RWMutex
	carts map[int64]*Cart
	err   error
}

func newMockRepository() *mockRepository {
	return &mockRepository{carts: make(map[int64]*Cart)}
}

func (m *mockRepository) GetCart(_ context.Context, userID int64) (*Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.carts[userID]
	if !ok {
		return nil, ErrCartNotFound
	}
	return c.Snapshot(), nil
}

func (m *mockRepository) UpsertCart(_ context.Context, c *Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.carts[c.UserID] = c.Snapshot()
	return nil
}

func (m *mockRepository) DeleteCart(_ context.Context, userID int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.carts, userID)
	return nil
}

type mockCache struct {
	m    sync.RWMutex
	cart *Cart
	err  error
}

func (m *mockCache) Get(context.Context, int64) (*Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.cart == nil {
		return nil, ErrCacheMiss
	}
	return m.cart, nil
}

func (m *mockCache) Set(_ context.Context, _ int64, cart *Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.cart = cart
	return m.err
}

func (m *mockCache) Delete(context.Context, int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.cart = nil
	return m.err
}

func newService() (*Service, *mockRepository) {
	repo := newMockRepository()
	return NewService(repo, &mockCache{}), repo
}

func TestGetCart_MissingCartIsEmpty(t *testing.T) {
	sut, _ := newService()

	c, err := sut.GetCart(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
	assert.Equal(t, int64(0), c.Total)
	assert.Equal(t, int64(42), c.UserID)
}

func TestAddItem_AppendsThenMerges(t *testing.T) {
	sut, _ := newService()
	ctx := context.Background()

	c, err := sut.AddItem(ctx, 1, 10, "Classic", 140)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 1, c.Items[0].Quantity)
	assert.Equal(t, int64(140), c.Total)

	// Same dish again merges into the existing line instead of adding one.
	c, err = sut.AddItem(ctx, 1, 10, "Classic", 140)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Equal(t, int64(280), c.Items[0].LineTotal)
	assert.Equal(t, int64(280), c.Total)
}

func TestChangeQuantity_RemovesAtZero(t *testing.T) {
	sut, _ := newService()
	ctx := context.Background()

	_, err := sut.AddItem(ctx, 1, 10, "Classic", 140)
	require.NoError(t, err)
	_, err = sut.AddItem(ctx, 1, 10, "Classic", 140)
	require.NoError(t, err)

	c, err := sut.ChangeQuantity(ctx, 1, 10, -2)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
	assert.Equal(t, int64(0), c.Total)
}

func TestChangeQuantity_UnknownDishIsNoop(t *testing.T) {
	sut, _ := newService()
	ctx := context.Background()

	_, err := sut.AddItem(ctx, 1, 10, "Classic", 140)
	require.NoError(t, err)

	c, err := sut.ChangeQuantity(ctx, 1, 999, 1)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, int64(140), c.Total)
}

func TestRemoveItem(t *testing.T) {
	sut, _ := newService()
	ctx := context.Background()

	_, err := sut.AddItem(ctx, 1, 10, "Classic", 140)
	require.NoError(t, err)
	_, err = sut.AddItem(ctx, 1, 11, "Cheese", 150)
	require.NoError(t, err)

	c, err := sut.RemoveItem(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, int64(11), c.Items[0].DishID)
	assert.Equal(t, int64(150), c.Total)
}

func TestClear(t *testing.T) {
	sut, _ := newService()
	ctx := context.Background()

	_, err := sut.AddItem(ctx, 1, 10, "Classic", 140)
	require.NoError(t, err)

	require.NoError(t, sut.Clear(ctx, 1))

	c, err := sut.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

// The cart total must equal the sum of line totals after any sequence of
// mutations.
func TestTotal_InvariantUnderMixedOps(t *testing.T) {
	sut, _ := newService()
	ctx := context.Background()

	ops := []func() (*Cart, error){
		func() (*Cart, error) { return sut.AddItem(ctx, 7, 1, "A", 100) },
		func() (*Cart, error) { return sut.AddItem(ctx, 7, 2, "B", 150) },
		func() (*Cart, error) { return sut.ChangeQuantity(ctx, 7, 1, 3) },
		func() (*Cart, error) { return sut.AddItem(ctx, 7, 1, "A", 100) },
		func() (*Cart, error) { return sut.ChangeQuantity(ctx, 7, 2, -1) },
		func() (*Cart, error) { return sut.RemoveItem(ctx, 7, 999) },
		func() (*Cart, error) { return sut.ChangeQuantity(ctx, 7, 1, -2) },
	}

	for i, op := range ops {
		c, err := op()
		require.NoError(t, err, "op %d", i)

		var sum int64
		for _, it := range c.Items {
			assert.GreaterOrEqual(t, it.Quantity, 1, "op %d", i)
			assert.Equal(t, it.UnitPrice*int64(it.Quantity), it.LineTotal, "op %d", i)
			sum += it.LineTotal
		}
		assert.Equal(t, sum, c.Total, "op %d", i)
	}
}

func TestAddItem_ConcurrentTapsDoNotLoseUpdates(t *testing.T) {
	sut, _ := newService()
	ctx := context.Background()

	const taps = 50
	var wg sync.WaitGroup
	wg.Add(taps)
	for i := 0; i < taps; i++ {
		go func() {
			defer wg.Done()
			_, err := sut.AddItem(ctx, 5, 10, "Classic", 140)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	c, err := sut.GetCart(ctx, 5)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, taps, c.Items[0].Quantity)
	assert.Equal(t, int64(taps*140), c.Total)
}
