package outbox

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Repository reads and writes auction_outbox rows.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes an event row through ex, which is the mutating
// transaction when called from the session layer. The table's insert
// trigger raises a NOTIFY carrying the event id.
func (r *Repository) Insert(ctx context.Context, ex Execer, auctionID uuid.UUID, eventType string, payload []byte) error {
	if len(payload) == 0 {
		return fmt.Errorf("event payload cannot be empty")
	}
	_, err := ex.ExecContext(ctx,
		`INSERT INTO auction_outbox (id, auction_id, event_type, payload) VALUES ($1, $2, $3, $4)`,
		uuid.New(), auctionID, eventType, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert %s outbox event: %w", eventType, err)
	}
	return nil
}

// FetchByID fetches a single unsent event by id.
func (r *Repository) FetchByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, auction_id, event_type, payload, created_at
		   FROM auction_outbox WHERE id = $1 AND sent_at IS NULL`,
		id,
	)
	var e Event
	if err := row.Scan(&e.ID, &e.AuctionID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to fetch outbox event: %w", err)
	}
	return &e, nil
}

// FetchUnsent fetches up to limit unsent events, oldest first.
func (r *Repository) FetchUnsent(ctx context.Context, limit int32) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, auction_id, event_type, payload, created_at
		   FROM auction_outbox WHERE sent_at IS NULL
		  ORDER BY created_at ASC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.AuctionID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkSent stamps an event as published.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE auction_outbox SET sent_at = now() WHERE id = $1 AND sent_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark outbox event as sent: %w", err)
	}
	return nil
}
