package models

import (
	"github.com/google/uuid"
)

// PlayerStatus is the per-player resolution state during a live auction.
type PlayerStatus string

const (
	PlayerStatusAvailable PlayerStatus = "AVAILABLE"
	PlayerStatusSold      PlayerStatus = "SOLD"
	PlayerStatusUnsold    PlayerStatus = "UNSOLD"
)

// Player represents one auctionable player.
// Invariant: Status == SOLD iff AssignedToTeam is non-nil; FinalPrice is 0
// unless sold. For the bidding auction type a sold player's FinalPrice is
// at least BasePrice.
type Player struct {
	ID             uuid.UUID    `json:"id"`
	Name           string       `json:"name"`
	Position       *string      `json:"position,omitempty"`
	ImageURL       *string      `json:"image_url,omitempty"`
	BasePrice      int          `json:"base_price"`
	Status         PlayerStatus `json:"status"`
	AssignedToTeam *uuid.UUID   `json:"assigned_to_team,omitempty"`
	FinalPrice     int          `json:"final_price"`
	Order          int          `json:"order"`
}

// NewPlayer constructs an available, unassigned player.
func NewPlayer(id uuid.UUID, name string, basePrice, order int) *Player {
	return &Player{
		ID:        id,
		Name:      name,
		BasePrice: basePrice,
		Status:    PlayerStatusAvailable,
		Order:     order,
	}
}
