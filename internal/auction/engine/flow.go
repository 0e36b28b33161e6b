package engine

import (
	"github.com/mcdev12/gavel/internal/models"
)

// Flow is the turn protocol of one auction type. Advance computes the turn
// state after a resolution has been applied to the snapshot: exactly one
// pointer step, bidding state reset to neutral. Terminal reports whether
// the auction is eligible for completion; it never auto-completes.
type Flow interface {
	Advance(a *models.Auction) models.CurrentAuctionState
	Terminal(a *models.Auction) bool
}

// FlowFor returns the turn protocol for the given auction type.
func FlowFor(t models.AuctionType) Flow {
	switch t {
	case models.AuctionTypeTeamBid:
		return teamRotationFlow{}
	case models.AuctionTypeNumberWise:
		return teamRotationFlow{}
	default:
		return playerBidFlow{}
	}
}

// playerBidFlow walks a single pointer over the live view of available
// players. A resolution removes the current entry from the view, so the
// unchanged index already denotes the next available player; it wraps to
// the front when the resolution consumed the tail of the list.
type playerBidFlow struct{}

func (playerBidFlow) Advance(a *models.Auction) models.CurrentAuctionState {
	next := neutral(a.Current)
	available := a.AvailablePlayers()
	if len(available) == 0 || next.CurrentPlayerIndex >= len(available) {
		next.CurrentPlayerIndex = 0
	}
	return next
}

func (playerBidFlow) Terminal(a *models.Auction) bool {
	return len(a.AvailablePlayers()) == 0
}

// teamRotationFlow cycles the team pointer by one slot per resolution,
// regardless of the sold/unsold outcome for that slot. It serves both the
// team-bid and number-wise types; they differ only in whether a selection
// carries a price, which is the engine's concern, not the scheduler's.
type teamRotationFlow struct{}

func (teamRotationFlow) Advance(a *models.Auction) models.CurrentAuctionState {
	next := neutral(a.Current)
	if n := len(a.Teams); n > 0 {
		next.CurrentTeamIndex = (next.CurrentTeamIndex + 1) % n
	}
	return next
}

func (teamRotationFlow) Terminal(a *models.Auction) bool {
	if len(a.AvailablePlayers()) == 0 {
		return true
	}
	for _, t := range a.Teams {
		if !t.RosterFull(a.Settings.PlayersPerTeam) {
			return false
		}
	}
	return len(a.Teams) > 0
}

// neutral resets the bidding fields and keeps everything else.
func neutral(s models.CurrentAuctionState) models.CurrentAuctionState {
	s.CurrentBiddingTeam = nil
	s.CurrentBidAmount = 0
	return s
}
