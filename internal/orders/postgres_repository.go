package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*PostgresRepository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &PostgresRepository{db: db}, nil
}

// DB exposes the underlying handle so packages sharing this database (the
// user registry) can reuse the connection pool.
func (r *PostgresRepository) DB() *sql.DB {
	return r.db
}

func (r *PostgresRepository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "orders_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

// CreateOrder inserts the order and its confirmation outbox event in one
// transaction and returns the assigned id. Ids come from a sequence, so they
// are unique and strictly increasing across concurrent confirmations.
func (r *PostgresRepository) CreateOrder(ctx context.Context, order *Order) (int64, error) {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal order items: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO orders
	          (user_id, user_name, items, subtotal, discount, delivery_fee, total,
	           delivery_address, delivery_time, payment_method, status, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
	          RETURNING id, created_at`

	var id int64
	var createdAt time.Time
	err = tx.QueryRowContext(ctx, query,
		order.UserID,
		order.UserName,
		itemsJSON,
		order.Subtotal,
		order.Discount,
		order.DeliveryFee,
		order.Total,
		order.Address,
		order.TimeSlot,
		order.PaymentMethod,
		OrderStatusNew,
	).Scan(&id, &createdAt)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}

	event := ConfirmedEvent{
		OrderID:       id,
		UserID:        order.UserID,
		UserName:      order.UserName,
		Items:         order.Items,
		Subtotal:      order.Subtotal,
		Discount:      order.Discount,
		DeliveryFee:   order.DeliveryFee,
		Total:         order.Total,
		Address:       order.Address,
		TimeSlot:      order.TimeSlot,
		PaymentMethod: order.PaymentMethod,
		ConfirmedAt:   createdAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal confirmation event: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO order_outbox (event_type, aggregate_id, payload) VALUES ($1, $2, $3)`,
		"order.confirmed", fmt.Sprint(id), payload)
	if err != nil {
		return 0, fmt.Errorf("insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit order: %w", err)
	}

	order.ID = id
	order.Status = OrderStatusNew
	order.CreatedAt = createdAt
	return id, nil
}

const orderColumns = `id, user_id, user_name, items, subtotal, discount, delivery_fee, total,
	delivery_address, delivery_time, payment_method, status, created_at`

func scanOrder(scan func(dest ...any) error) (*Order, error) {
	var order Order
	var itemsJSON []byte
	err := scan(
		&order.ID,
		&order.UserID,
		&order.UserName,
		&itemsJSON,
		&order.Subtotal,
		&order.Discount,
		&order.DeliveryFee,
		&order.Total,
		&order.Address,
		&order.TimeSlot,
		&order.PaymentMethod,
		&order.Status,
		&order.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	return &order, nil
}

func (r *PostgresRepository) GetOrderByID(ctx context.Context, id int64) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)
	order, err := scanOrder(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}

	return order, nil
}

func (r *PostgresRepository) ListRecent(ctx context.Context, limit int) ([]*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC LIMIT $1`
	return r.queryOrders(ctx, query, limit)
}

func (r *PostgresRepository) ListByUserID(ctx context.Context, userID int64) ([]*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`
	return r.queryOrders(ctx, query, userID)
}

func (r *PostgresRepository) queryOrders(ctx context.Context, query string, args ...any) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		order, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return orders, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id int64, status OrderStatus) error {
	if !ValidStatus(status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrOrderNotFound
	}

	return nil
}

func (r *PostgresRepository) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{ByStatus: make(map[OrderStatus]int64)}

	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(total), 0) FROM orders`).
		Scan(&stats.TotalOrders, &stats.Revenue)
	if err != nil {
		return nil, fmt.Errorf("query order totals: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("query status breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status OrderStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status row: %w", err)
		}
		stats.ByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	stats.NewOrders = stats.ByStatus[OrderStatusNew]
	return stats, nil
}

func (r *PostgresRepository) UnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, event_type, aggregate_id, payload
	          FROM order_outbox
	          WHERE processed = FALSE
	          ORDER BY id
	          LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		e := &OutboxEvent{}
		if err := rows.Scan(&e.ID, &e.EventType, &e.AggregateID, &e.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return events, nil
}

func (r *PostgresRepository) MarkEventProcessed(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE order_outbox SET processed = TRUE, processed_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark outbox event processed: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}
