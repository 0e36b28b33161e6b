package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/gavel/internal/models"
)

func TestPlayerBidFlow_ResolutionExposesNextPlayer(t *testing.T) {
	a := newTestAuction(models.AuctionTypePlayerBid, 2, 3)
	players := a.OrderedPlayers()
	team := firstTeam(a)

	// The first two resolutions each remove the head of the available
	// view, so the unchanged index keeps pointing at the next player.
	ApplySold(a, players[0].ID, team.ID, 100)
	assert.Equal(t, 0, a.Current.CurrentPlayerIndex)
	assert.Equal(t, players[1].ID, CurrentPlayer(a).ID)

	ApplyUnsold(a, players[1].ID)
	assert.Equal(t, 0, a.Current.CurrentPlayerIndex)
	assert.Equal(t, players[2].ID, CurrentPlayer(a).ID)
}

func TestPlayerBidFlow_WrapsAtTail(t *testing.T) {
	a := newTestAuction(models.AuctionTypePlayerBid, 2, 3)
	players := a.OrderedPlayers()
	team := firstTeam(a)

	// Point at the tail and resolve it; the index wraps to the front.
	a.Current.CurrentPlayerIndex = 2
	ApplySold(a, players[2].ID, team.ID, 100)

	assert.Equal(t, 0, a.Current.CurrentPlayerIndex)
	assert.Equal(t, players[0].ID, CurrentPlayer(a).ID)
}

func TestPlayerBidFlow_Terminal(t *testing.T) {
	a := newTestAuction(models.AuctionTypePlayerBid, 2, 2)
	flow := FlowFor(a.AuctionType)
	team := firstTeam(a)
	players := a.OrderedPlayers()

	assert.False(t, flow.Terminal(a))

	ApplySold(a, players[0].ID, team.ID, 100)
	assert.False(t, flow.Terminal(a))

	ApplyUnsold(a, players[1].ID)
	assert.True(t, flow.Terminal(a))

	// Terminal state never completes the auction on its own
	assert.Equal(t, models.AuctionStatusLive, a.Status)
}

func TestTeamRotationFlow_AdvancesOneSlot(t *testing.T) {
	a := newTestAuction(models.AuctionTypeTeamBid, 3, 6)
	teams := a.OrderedTeams()

	require.Equal(t, teams[0].ID, CurrentTurnTeam(a).ID)

	ApplySold(a, CurrentPlayer(a).ID, teams[0].ID, 100)
	assert.Equal(t, 1, a.Current.CurrentTeamIndex)
	assert.Equal(t, teams[1].ID, CurrentTurnTeam(a).ID)

	// A pass also consumes the slot
	ApplyUnsold(a, CurrentPlayer(a).ID)
	assert.Equal(t, 2, a.Current.CurrentTeamIndex)
	assert.Equal(t, teams[2].ID, CurrentTurnTeam(a).ID)

	// And the rotation wraps back to the first team
	ApplySold(a, CurrentPlayer(a).ID, teams[2].ID, 100)
	assert.Equal(t, 0, a.Current.CurrentTeamIndex)
	assert.Equal(t, teams[0].ID, CurrentTurnTeam(a).ID)
}

func TestTeamRotationFlow_Terminal(t *testing.T) {
	t.Run("no available players", func(t *testing.T) {
		a := newTestAuction(models.AuctionTypeNumberWise, 2, 2)
		flow := FlowFor(a.AuctionType)

		for _, p := range a.Players {
			p.Status = models.PlayerStatusUnsold
		}
		assert.True(t, flow.Terminal(a))
	})

	t.Run("all rosters full", func(t *testing.T) {
		a := newTestAuction(models.AuctionTypeNumberWise, 2, 6)
		flow := FlowFor(a.AuctionType)

		assert.False(t, flow.Terminal(a))
		for _, team := range a.Teams {
			team.PlayerIDs = []uuid.UUID{uuid.New(), uuid.New()}
		}
		assert.True(t, flow.Terminal(a))
	})
}

func TestAdvanceResetsBiddingState(t *testing.T) {
	a := newTestAuction(models.AuctionTypePlayerBid, 2, 3)
	team := firstTeam(a)
	a.Current.CurrentBidAmount = 150
	a.Current.CurrentBiddingTeam = &team.ID

	ApplySold(a, CurrentPlayer(a).ID, team.ID, 150)

	assert.Nil(t, a.Current.CurrentBiddingTeam)
	assert.Zero(t, a.Current.CurrentBidAmount)
	assert.True(t, a.Current.IsActive)
}
