// Package engine holds the pure allocation and turn logic of a live
// auction. It validates bids and resolutions against a full auction
// snapshot and computes the successor turn state; all I/O and atomicity
// concerns live in the session layer on top of it.
package engine

import (
	"errors"

	"github.com/google/uuid"
	"github.com/mcdev12/gavel/internal/models"
)

var (
	ErrAuctionNotLive      = errors.New("auction is not live")
	ErrPlayerNotFound      = errors.New("player not found")
	ErrTeamNotFound        = errors.New("team not found")
	ErrPlayerNotAvailable  = errors.New("player already resolved")
	ErrPlayerNotOnBlock    = errors.New("player is not on the block")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvalidAuctionType  = errors.New("operation not valid for this auction type")
	ErrNotTeamsTurn        = errors.New("not this team's turn")
	ErrRosterFull          = errors.New("team roster is full")
	ErrPriceBelowBase      = errors.New("final price below base price")
)

// CurrentPlayer returns the player on the block, or nil when no available
// player remains. The player index always addresses the live view of
// available players, which shrinks as players resolve.
func CurrentPlayer(a *models.Auction) *models.Player {
	available := a.AvailablePlayers()
	if len(available) == 0 {
		return nil
	}
	idx := a.Current.CurrentPlayerIndex
	if idx < 0 || idx >= len(available) {
		idx = 0
	}
	return available[idx]
}

// CurrentTurnTeam returns the team whose turn it is in a team-rotation
// auction, or nil when the auction has no teams.
func CurrentTurnTeam(a *models.Auction) *models.Team {
	teams := a.OrderedTeams()
	if len(teams) == 0 {
		return nil
	}
	return teams[a.Current.CurrentTeamIndex%len(teams)]
}

// NextBidAmount computes the canonical next bid for the player on the
// block: the base price when bidding opens, otherwise the running bid plus
// the configured increment. Caller-proposed amounts are advisory only; the
// engine always recomputes so racing clients cannot overbid.
func NextBidAmount(a *models.Auction) int {
	if a.Current.CurrentBidAmount == 0 {
		if p := CurrentPlayer(a); p != nil {
			return p.BasePrice
		}
		return 0
	}
	return a.Current.CurrentBidAmount + a.Settings.MinBidIncrement
}

// ValidateBid checks a bid intent against the snapshot and returns the
// accepted amount. No state is changed.
func ValidateBid(a *models.Auction, teamID, playerID uuid.UUID) (int, error) {
	if a.Status != models.AuctionStatusLive {
		return 0, ErrAuctionNotLive
	}
	if a.AuctionType != models.AuctionTypePlayerBid {
		return 0, ErrInvalidAuctionType
	}
	team, ok := a.Teams[teamID]
	if !ok {
		return 0, ErrTeamNotFound
	}
	player, ok := a.Players[playerID]
	if !ok {
		return 0, ErrPlayerNotFound
	}
	if player.Status != models.PlayerStatusAvailable {
		return 0, ErrPlayerNotAvailable
	}
	current := CurrentPlayer(a)
	if current == nil || current.ID != playerID {
		return 0, ErrPlayerNotOnBlock
	}
	accepted := NextBidAmount(a)
	if team.RemainingCredits < accepted {
		return 0, ErrInsufficientCredits
	}
	return accepted, nil
}

// ValidateSold checks a sold resolution: the player must still be
// available, the buying team must exist and afford the price, and for the
// rotation types the buying team must be the team on turn with roster
// space. Bid types additionally require the price to reach the base price.
func ValidateSold(a *models.Auction, playerID, teamID uuid.UUID, finalPrice int) error {
	if a.Status != models.AuctionStatusLive {
		return ErrAuctionNotLive
	}
	team, ok := a.Teams[teamID]
	if !ok {
		return ErrTeamNotFound
	}
	player, ok := a.Players[playerID]
	if !ok {
		return ErrPlayerNotFound
	}
	if player.Status != models.PlayerStatusAvailable {
		return ErrPlayerNotAvailable
	}
	if finalPrice < 0 {
		return ErrPriceBelowBase
	}

	switch a.AuctionType {
	case models.AuctionTypePlayerBid:
		if finalPrice < player.BasePrice {
			return ErrPriceBelowBase
		}
	case models.AuctionTypeTeamBid, models.AuctionTypeNumberWise:
		turn := CurrentTurnTeam(a)
		if turn == nil || turn.ID != teamID {
			return ErrNotTeamsTurn
		}
		if team.RosterFull(a.Settings.PlayersPerTeam) {
			return ErrRosterFull
		}
	}

	if team.RemainingCredits < finalPrice {
		return ErrInsufficientCredits
	}
	return nil
}

// ValidateUnsold checks an unsold resolution.
func ValidateUnsold(a *models.Auction, playerID uuid.UUID) error {
	if a.Status != models.AuctionStatusLive {
		return ErrAuctionNotLive
	}
	player, ok := a.Players[playerID]
	if !ok {
		return ErrPlayerNotFound
	}
	if player.Status != models.PlayerStatusAvailable {
		return ErrPlayerNotAvailable
	}
	return nil
}

// ApplySold mutates the snapshot with a validated sold resolution: player
// assignment, roster append, credit deduction and the post-resolution turn
// state. Callers persist the result as one atomic write.
func ApplySold(a *models.Auction, playerID, teamID uuid.UUID, finalPrice int) {
	player := a.Players[playerID]
	team := a.Teams[teamID]

	player.Status = models.PlayerStatusSold
	player.AssignedToTeam = &team.ID
	player.FinalPrice = finalPrice
	team.PlayerIDs = append(team.PlayerIDs, player.ID)
	team.RemainingCredits -= finalPrice

	a.Current = FlowFor(a.AuctionType).Advance(a)
}

// ApplyUnsold mutates the snapshot with a validated unsold resolution.
func ApplyUnsold(a *models.Auction, playerID uuid.UUID) {
	a.Players[playerID].Status = models.PlayerStatusUnsold
	a.Current = FlowFor(a.AuctionType).Advance(a)
}
