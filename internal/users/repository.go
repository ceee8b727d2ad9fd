package users

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// User is one person who has ever talked to the storefront. The registry is
// the broadcast audience and feeds the admin stats.
type User struct {
	UserID       int64
	Username     string
	FullName     string
	RegisteredAt time.Time
}

// RepoInterface is what broadcast and stats consumers depend on.
type RepoInterface interface {
	Upsert(ctx context.Context, u *User) error
	Count(ctx context.Context) (int64, error)
	AllIDs(ctx context.Context) ([]int64, error)
}

// Repository stores users in the same Postgres database as orders; it
// borrows that connection pool instead of opening its own.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Upsert records the user on first contact and refreshes the profile fields
// on every later one.
func (r *Repository) Upsert(ctx context.Context, u *User) error {
	query := `INSERT INTO users (user_id, username, full_name)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (user_id)
	          DO UPDATE SET username = EXCLUDED.username, full_name = EXCLUDED.full_name`

	_, err := r.db.ExecContext(ctx, query, u.UserID, u.Username, u.FullName)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func (r *Repository) AllIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM users ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("query user ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return ids, nil
}
