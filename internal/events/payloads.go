package events

import (
	"time"
)

// Event payload types shared between the session and gateway packages.

// Event type names as they appear in the outbox and on the wire.
const (
	TypeAuctionStarted   = "AuctionStarted"
	TypeBidPlaced        = "BidPlaced"
	TypePlayerSold       = "PlayerSold"
	TypePlayerUnsold     = "PlayerUnsold"
	TypeAuctionCompleted = "AuctionCompleted"
)

// AuctionStartedPayload is the payload for an AuctionStarted event
type AuctionStartedPayload struct {
	AuctionID   string    `json:"auction_id"`
	AuctionType string    `json:"auction_type"`
	StartedAt   time.Time `json:"started_at"`
	TeamCount   int       `json:"team_count"`
	PlayerCount int       `json:"player_count"`
}

// BidPlacedPayload is the payload for a BidPlaced event
type BidPlacedPayload struct {
	AuctionID string    `json:"auction_id"`
	PlayerID  string    `json:"player_id"`
	TeamID    string    `json:"team_id"`
	TeamName  string    `json:"team_name"`
	Amount    int       `json:"amount"`
	PlacedAt  time.Time `json:"placed_at"`
}

// PlayerSoldPayload is the payload for a PlayerSold event
type PlayerSoldPayload struct {
	AuctionID  string    `json:"auction_id"`
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	TeamID     string    `json:"team_id"`
	TeamName   string    `json:"team_name"`
	FinalPrice int       `json:"final_price"`
	SoldAt     time.Time `json:"sold_at"`
}

// PlayerUnsoldPayload is the payload for a PlayerUnsold event
type PlayerUnsoldPayload struct {
	AuctionID  string    `json:"auction_id"`
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	MarkedAt   time.Time `json:"marked_at"`
}

// AuctionCompletedPayload is the payload for an AuctionCompleted event
type AuctionCompletedPayload struct {
	AuctionID   string    `json:"auction_id"`
	CompletedAt time.Time `json:"completed_at"`
	Duration    string    `json:"duration"`
	SoldCount   int       `json:"sold_count"`
	UnsoldCount int       `json:"unsold_count"`
}
