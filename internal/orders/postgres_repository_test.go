package orders

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/golubka/foodbot/internal/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) (*PostgresRepository, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	creds := &Credentials{
		Host:              host,
		Port:              port.Int(),
		User:              "testuser",
		Password:          "testpass",
		DBName:            "testdb",
		MigrationsDirPath: "./migrations",
	}

	repo, err := NewRepository(creds)
	require.NoError(t, err)

	err = repo.RunMigrations(creds)
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return repo, cleanup
}

func newTestOrder(userID int64) *Order {
	return &Order{
		UserID:   userID,
		UserName: "Test User",
		Items: []pricing.Line{
			{DishID: 1, Name: "Classic", UnitPrice: 140, Quantity: 1, LineTotal: 140},
		},
		Subtotal:      140,
		Discount:      14,
		DeliveryFee:   5,
		Total:         131,
		Address:       "Str 1",
		TimeSlot:      "ASAP",
		PaymentMethod: "cash",
	}
}

func TestCreateOrder_AssignsIDAndWritesOutbox(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	id, err := repo.CreateOrder(ctx, newTestOrder(1))
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := repo.GetOrderByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusNew, got.Status)
	assert.Equal(t, int64(1), got.UserID)
	assert.InDelta(t, 131.0, got.Total, 1e-9)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Classic", got.Items[0].Name)

	events, err := repo.UnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "order.confirmed", events[0].EventType)

	var event ConfirmedEvent
	require.NoError(t, json.Unmarshal(events[0].Payload, &event))
	assert.Equal(t, id, event.OrderID)
	assert.InDelta(t, 131.0, event.Total, 1e-9)
}

func TestCreateOrder_ConcurrentIDsStrictlyIncreasing(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	const n = 20
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(userID int64) {
			defer wg.Done()
			id, err := repo.CreateOrder(ctx, newTestOrder(userID))
			assert.NoError(t, err)
			ids <- id
		}(int64(i))
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate order id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
}

func TestGetOrderByID_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	got, err := repo.GetOrderByID(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.Nil(t, got)
}

func TestUpdateStatus(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	id, err := repo.CreateOrder(ctx, newTestOrder(1))
	require.NoError(t, err)

	require.NoError(t, repo.UpdateStatus(ctx, id, OrderStatusDelivering))

	got, err := repo.GetOrderByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusDelivering, got.Status)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, id, OrderStatus("bogus")), ErrInvalidStatus)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, 9999, OrderStatusDone), ErrOrderNotFound)
}

func TestListRecent_And_Stats(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := repo.CreateOrder(ctx, newTestOrder(int64(i)))
		require.NoError(t, err)
	}
	id, err := repo.CreateOrder(ctx, newTestOrder(99))
	require.NoError(t, err)
	require.NoError(t, repo.UpdateStatus(ctx, id, OrderStatusDone))

	recent, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalOrders)
	assert.Equal(t, int64(3), stats.NewOrders)
	assert.Equal(t, int64(1), stats.ByStatus[OrderStatusDone])
	assert.InDelta(t, 4*131.0, stats.Revenue, 1e-6)
}

func TestOutbox_MarkProcessed(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	_, err := repo.CreateOrder(ctx, newTestOrder(1))
	require.NoError(t, err)

	events, err := repo.UnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)

	require.NoError(t, repo.MarkEventProcessed(ctx, events[0].ID))

	events, err = repo.UnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestListByUserID(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	_, err := repo.CreateOrder(ctx, newTestOrder(7))
	require.NoError(t, err)
	_, err = repo.CreateOrder(ctx, newTestOrder(7))
	require.NoError(t, err)
	_, err = repo.CreateOrder(ctx, newTestOrder(8))
	require.NoError(t, err)

	got, err := repo.ListByUserID(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
