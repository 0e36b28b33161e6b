package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// AuctionType defines how players are allocated to teams during a live auction.
type AuctionType string

const (
	// AuctionTypePlayerBid puts one player on the block at a time and teams bid credits.
	AuctionTypePlayerBid AuctionType = "PLAYER_BID"
	// AuctionTypeTeamBid rotates through teams, each selecting a player on its turn.
	AuctionTypeTeamBid AuctionType = "TEAM_BID"
	// AuctionTypeNumberWise is direct turn-based selection with no bidding at all.
	AuctionTypeNumberWise AuctionType = "NUMBER_WISE"
)

// Valid reports whether t is one of the supported auction types.
func (t AuctionType) Valid() bool {
	switch t {
	case AuctionTypePlayerBid, AuctionTypeTeamBid, AuctionTypeNumberWise:
		return true
	}
	return false
}

// SportType describes the sport an auction is run for.
type SportType string

const (
	SportTypeCricket    SportType = "CRICKET"
	SportTypeFootball   SportType = "FOOTBALL"
	SportTypeBasketball SportType = "BASKETBALL"
	SportTypeOther      SportType = "OTHER"
)

// AuctionStatus defines the lifecycle state of an auction.
// Transitions are forward-only: DRAFT -> SCHEDULED -> LIVE -> COMPLETED.
type AuctionStatus string

const (
	AuctionStatusDraft     AuctionStatus = "DRAFT"
	AuctionStatusScheduled AuctionStatus = "SCHEDULED"
	AuctionStatusLive      AuctionStatus = "LIVE"
	AuctionStatusCompleted AuctionStatus = "COMPLETED"
)

// AuctionSettings holds the owner-provided configuration for an auction.
type AuctionSettings struct {
	TotalCreditsPerTeam int `json:"total_credits_per_team"`
	PlayersPerTeam      int `json:"players_per_team"`
	MinBidIncrement     int `json:"min_bid_increment"`
}

// CurrentAuctionState is the only mutable turn-pointer state of a live
// auction. It is reset to neutral (no bidding team, zero bid) after every
// sold/unsold/selection resolution.
type CurrentAuctionState struct {
	CurrentPlayerIndex int        `json:"current_player_index"`
	CurrentTeamIndex   int        `json:"current_team_index"`
	CurrentBiddingTeam *uuid.UUID `json:"current_bidding_team,omitempty"`
	CurrentBidAmount   int        `json:"current_bid_amount"`
	IsActive           bool       `json:"is_active"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

// Auction represents one configured bidding event with its teams, players
// and type-specific turn protocol.
type Auction struct {
	ID           uuid.UUID           `json:"id"`
	OwnerID      uuid.UUID           `json:"owner_id"`
	OwnerName    string              `json:"owner_name"`
	Name         string              `json:"name"`
	SportType    SportType           `json:"sport_type"`
	AuctionType  AuctionType         `json:"auction_type"`
	Settings     AuctionSettings     `json:"settings"`
	AuctionDate  time.Time           `json:"auction_date"`
	Venue        string              `json:"venue"`
	ImageURL     *string             `json:"image_url,omitempty"`
	ReferralCode string              `json:"referral_code"`
	Status       AuctionStatus       `json:"status"`
	Teams        map[uuid.UUID]*Team `json:"teams"`
	Players      map[uuid.UUID]*Player `json:"players"`
	Current      CurrentAuctionState `json:"current_auction"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// OrderedTeams returns the auction's teams sorted by their insertion order.
func (a *Auction) OrderedTeams() []*Team {
	teams := make([]*Team, 0, len(a.Teams))
	for _, t := range a.Teams {
		teams = append(teams, t)
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].Order < teams[j].Order })
	return teams
}

// OrderedPlayers returns the auction's players sorted by presentation order.
func (a *Auction) OrderedPlayers() []*Player {
	players := make([]*Player, 0, len(a.Players))
	for _, p := range a.Players {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].Order < players[j].Order })
	return players
}

// AvailablePlayers returns the ordered players still on the block.
func (a *Auction) AvailablePlayers() []*Player {
	available := make([]*Player, 0, len(a.Players))
	for _, p := range a.OrderedPlayers() {
		if p.Status == PlayerStatusAvailable {
			available = append(available, p)
		}
	}
	return available
}
