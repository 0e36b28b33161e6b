package gateway

import (
	"time"

	"github.com/mcdev12/gavel/internal/models"
)

// SnapshotMessage is the only message type the gateway sends. Every event
// carries the full auction state rather than a delta, so clients replace
// their local copy wholesale and consuming a message twice or out of order
// is harmless.
type SnapshotMessage struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	AuctionID string          `json:"auction_id"`
	Timestamp time.Time       `json:"timestamp"`
	Auction   *models.Auction `json:"auction"`
}
