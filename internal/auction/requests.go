package auction

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/gavel/internal/models"
)

// CreateAuctionRequest carries everything needed to create an auction.
type CreateAuctionRequest struct {
	OwnerID     uuid.UUID              `json:"owner_id"`
	OwnerName   string                 `json:"owner_name"`
	Name        string                 `json:"name"`
	SportType   models.SportType       `json:"sport_type"`
	AuctionType models.AuctionType     `json:"auction_type"`
	Settings    models.AuctionSettings `json:"settings"`
	AuctionDate time.Time              `json:"auction_date"`
	Venue       string                 `json:"venue"`
	ImageURL    *string                `json:"image_url,omitempty"`
}

// UpdateAuctionRequest carries the pre-live configuration fields an owner
// may still change. Nil fields are left untouched.
type UpdateAuctionRequest struct {
	Name        *string                 `json:"name,omitempty"`
	Venue       *string                 `json:"venue,omitempty"`
	AuctionDate *time.Time              `json:"auction_date,omitempty"`
	ImageURL    *string                 `json:"image_url,omitempty"`
	Settings    *models.AuctionSettings `json:"settings,omitempty"`
}

// AddTeamRequest carries a new team's attributes.
type AddTeamRequest struct {
	Name        string  `json:"name"`
	Color       string  `json:"color"`
	IconURL     *string `json:"icon_url,omitempty"`
	SponsorName *string `json:"sponsor_name,omitempty"`
}

// AddPlayerRequest carries a new player's attributes.
type AddPlayerRequest struct {
	Name      string  `json:"name"`
	Position  *string `json:"position,omitempty"`
	ImageURL  *string `json:"image_url,omitempty"`
	BasePrice int     `json:"base_price"`
}
