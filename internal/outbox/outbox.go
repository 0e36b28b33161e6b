// Package outbox implements the transactional outbox that relays auction
// domain events to the message bus. Mutations insert their event row in the
// same database transaction; a LISTEN/NOTIFY listener (with fallback
// polling) hands unsent rows to a JetStream publisher.
package outbox

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Event is one outbox row: a domain event waiting to be published.
type Event struct {
	ID        uuid.UUID `json:"id"`
	AuctionID uuid.UUID `json:"auction_id"`
	EventType string    `json:"event_type"`
	Payload   []byte    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// Execer is the subset of *sql.DB / *sql.Tx the insert path needs, so event
// rows can join the mutation's transaction.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Publisher publishes a single outbox event to the bus.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
