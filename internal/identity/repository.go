package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mcdev12/gavel/internal/models"
)

// ErrNotFound is returned when the requested user does not exist.
var ErrNotFound = errors.New("user not found")

// Repository persists user profiles on Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// UpsertUser creates the user row or refreshes the profile fields of an
// existing one. Subscription state is never touched by an upsert.
func (r *Repository) UpsertUser(ctx context.Context, user models.User) (*models.User, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, display_name, email)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE
		    SET display_name = EXCLUDED.display_name,
		        email = EXCLUDED.email`,
		user.ID, user.DisplayName, user.Email,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return r.GetUser(ctx, user.ID)
}

func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, display_name, email, has_subscription, created_at
		   FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.DisplayName, &u.Email, &u.HasSubscription, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// SetSubscription records a subscription change for the user.
func (r *Repository) SetSubscription(ctx context.Context, id uuid.UUID, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET has_subscription = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("failed to set subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected count: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

// HasActiveSubscription reports the user's subscription state. Unknown
// users are treated as unsubscribed.
func (r *Repository) HasActiveSubscription(ctx context.Context, id uuid.UUID) (bool, error) {
	var active bool
	err := r.db.QueryRowContext(ctx,
		`SELECT has_subscription FROM users WHERE id = $1`, id).Scan(&active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check subscription: %w", err)
	}
	return active, nil
}
