package menu

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "modernc.org/sqlite"
)

var ErrDishNotFound = errors.New("dish not found")

type Repository struct {
	db *sql.DB
}

// RepoInterface is what menu consumers depend on.
type RepoInterface interface {
	Categories(ctx context.Context) ([]*Category, error)
	DishesByCategory(ctx context.Context, categoryID int64) ([]*Dish, error)
	Dish(ctx context.Context, id int64) (*Dish, error)
	AddDish(ctx context.Context, d *Dish) (int64, error)
	ToggleAvailability(ctx context.Context, dishID int64) (bool, error)
	Close() error
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (r *Repository) Categories(ctx context.Context) ([]*Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []*Category
	for rows.Next() {
		c := &Category{}
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return categories, nil
}

// DishesByCategory returns only dishes currently marked available.
func (r *Repository) DishesByCategory(ctx context.Context, categoryID int64) ([]*Dish, error) {
	query := `
		SELECT id, category_id, name, description, ingredients, price, available
		FROM dishes
		WHERE category_id = ? AND available = 1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query dishes: %w", err)
	}
	defer rows.Close()

	var dishes []*Dish
	for rows.Next() {
		d := &Dish{}
		if err := rows.Scan(&d.ID, &d.CategoryID, &d.Name, &d.Description, &d.Ingredients, &d.Price, &d.Available); err != nil {
			return nil, fmt.Errorf("failed to scan dish: %w", err)
		}
		dishes = append(dishes, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return dishes, nil
}

func (r *Repository) Dish(ctx context.Context, id int64) (*Dish, error) {
	query := `
		SELECT id, category_id, name, description, ingredients, price, available
		FROM dishes
		WHERE id = ?
	`

	d := &Dish{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&d.ID, &d.CategoryID, &d.Name, &d.Description, &d.Ingredients, &d.Price, &d.Available)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDishNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query dish: %w", err)
	}

	return d, nil
}

func (r *Repository) AddDish(ctx context.Context, d *Dish) (int64, error) {
	query := `
		INSERT INTO dishes (category_id, name, description, ingredients, price, available)
		VALUES (?, ?, ?, ?, ?, 1)
	`

	res, err := r.db.ExecContext(ctx, query, d.CategoryID, d.Name, d.Description, d.Ingredients, d.Price)
	if err != nil {
		return 0, fmt.Errorf("failed to insert dish: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted dish id: %w", err)
	}

	return id, nil
}

// ToggleAvailability flips a dish's availability and returns the new value.
func (r *Repository) ToggleAvailability(ctx context.Context, dishID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE dishes SET available = NOT available WHERE id = ?`, dishID)
	if err != nil {
		return false, fmt.Errorf("failed to toggle dish availability: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return false, ErrDishNotFound
	}

	var available bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT available FROM dishes WHERE id = ?`, dishID).Scan(&available); err != nil {
		return false, fmt.Errorf("failed to read dish availability: %w", err)
	}

	return available, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
