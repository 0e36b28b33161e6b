package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/gavel/internal/models"
)

func newTestAuction(auctionType models.AuctionType, teams, players int) *models.Auction {
	a := &models.Auction{
		ID:          uuid.New(),
		OwnerID:     uuid.New(),
		Name:        "Test Auction",
		SportType:   models.SportTypeCricket,
		AuctionType: auctionType,
		Settings: models.AuctionSettings{
			TotalCreditsPerTeam: 1000,
			PlayersPerTeam:      2,
			MinBidIncrement:     10,
		},
		AuctionDate: time.Now(),
		Status:      models.AuctionStatusLive,
		Teams:       make(map[uuid.UUID]*models.Team),
		Players:     make(map[uuid.UUID]*models.Player),
	}
	for i := 0; i < teams; i++ {
		t := models.NewTeam(uuid.New(), "Team", models.TeamColors[i%len(models.TeamColors)], 1000, i)
		a.Teams[t.ID] = t
	}
	for i := 0; i < players; i++ {
		p := models.NewPlayer(uuid.New(), "Player", 100, i)
		a.Players[p.ID] = p
	}
	a.Current = models.CurrentAuctionState{IsActive: true}
	return a
}

func firstTeam(a *models.Auction) *models.Team     { return a.OrderedTeams()[0] }
func secondTeam(a *models.Auction) *models.Team    { return a.OrderedTeams()[1] }
func firstPlayer(a *models.Auction) *models.Player { return a.OrderedPlayers()[0] }

func TestNextBidAmount(t *testing.T) {
	a := newTestAuction(models.AuctionTypePlayerBid, 2, 4)

	// Opening bid is the base price of the player on the block
	assert.Equal(t, 100, NextBidAmount(a))

	// Subsequent bids add the configured increment
	a.Current.CurrentBidAmount = 100
	assert.Equal(t, 110, NextBidAmount(a))

	a.Current.CurrentBidAmount = 110
	assert.Equal(t, 120, NextBidAmount(a))
}

func TestValidateBid(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(a *models.Auction) (teamID, playerID uuid.UUID)
		want    int
		wantErr error
	}{
		{
			name: "opening bid at base price",
			setup: func(a *models.Auction) (uuid.UUID, uuid.UUID) {
				return firstTeam(a).ID, firstPlayer(a).ID
			},
			want: 100,
		},
		{
			name: "raise adds increment",
			setup: func(a *models.Auction) (uuid.UUID, uuid.UUID) {
				other := secondTeam(a)
				a.Current.CurrentBidAmount = 100
				a.Current.CurrentBiddingTeam = &other.ID
				return firstTeam(a).ID, firstPlayer(a).ID
			},
			want: 110,
		},
		{
			name: "auction not live",
			setup: func(a *models.Auction) (uuid.UUID, uuid.UUID) {
				a.Status = models.AuctionStatusDraft
				return firstTeam(a).ID, firstPlayer(a).ID
			},
			wantErr: ErrAuctionNotLive,
		},
		{
			name: "wrong auction type",
			setup: func(a *models.Auction) (uuid.UUID, uuid.UUID) {
				a.AuctionType = models.AuctionTypeTeamBid
				return firstTeam(a).ID, firstPlayer(a).ID
			},
			wantErr: ErrInvalidAuctionType,
		},
		{
			name: "unknown team",
			setup: func(a *models.Auction) (uuid.UUID, uuid.UUID) {
				return uuid.New(), firstPlayer(a).ID
			},
			wantErr: ErrTeamNotFound,
		},
		{
			name: "unknown player",
			setup: func(a *models.Auction) (uuid.UUID, uuid.UUID) {
				return firstTeam(a).ID, uuid.New()
			},
			wantErr: ErrPlayerNotFound,
		},
		{
			name: "player not on the block",
			setup: func(a *models.Auction) (uuid.UUID, uuid.UUID) {
				return firstTeam(a).ID, a.OrderedPlayers()[1].ID
			},
			wantErr: ErrPlayerNotOnBlock,
		},
		{
			name: "already resolved player",
			setup: func(a *models.Auction) (uuid.UUID, uuid.UUID) {
				p := firstPlayer(a)
				p.Status = models.PlayerStatusSold
				return firstTeam(a).ID, p.ID
			},
			wantErr: ErrPlayerNotAvailable,
		},
		{
			name: "insufficient credits",
			setup: func(a *models.Auction) (uuid.UUID, uuid.UUID) {
				team := firstTeam(a)
				team.RemainingCredits = 50
				return team.ID, firstPlayer(a).ID
			},
			wantErr: ErrInsufficientCredits,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAuction(models.AuctionTypePlayerBid, 2, 4)
			teamID, playerID := tt.setup(a)

			got, err := ValidateBid(a, teamID, playerID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateSold_PlayerBid(t *testing.T) {
	t.Run("price below base rejected", func(t *testing.T) {
		a := newTestAuction(models.AuctionTypePlayerBid, 2, 4)
		err := ValidateSold(a, firstPlayer(a).ID, firstTeam(a).ID, 50)
		assert.ErrorIs(t, err, ErrPriceBelowBase)
	})

	t.Run("price at base accepted", func(t *testing.T) {
		a := newTestAuction(models.AuctionTypePlayerBid, 2, 4)
		err := ValidateSold(a, firstPlayer(a).ID, firstTeam(a).ID, 100)
		assert.NoError(t, err)
	})

	t.Run("insufficient credits rejected", func(t *testing.T) {
		a := newTestAuction(models.AuctionTypePlayerBid, 2, 4)
		team := firstTeam(a)
		team.RemainingCredits = 99
		err := ValidateSold(a, firstPlayer(a).ID, team.ID, 100)
		assert.ErrorIs(t, err, ErrInsufficientCredits)
	})
}

func TestValidateSold_Rotation(t *testing.T) {
	t.Run("only the team on turn may select", func(t *testing.T) {
		a := newTestAuction(models.AuctionTypeTeamBid, 3, 6)
		err := ValidateSold(a, firstPlayer(a).ID, secondTeam(a).ID, 100)
		assert.ErrorIs(t, err, ErrNotTeamsTurn)

		err = ValidateSold(a, firstPlayer(a).ID, firstTeam(a).ID, 100)
		assert.NoError(t, err)
	})

	t.Run("full roster rejected", func(t *testing.T) {
		a := newTestAuction(models.AuctionTypeNumberWise, 2, 6)
		team := firstTeam(a)
		team.PlayerIDs = []uuid.UUID{uuid.New(), uuid.New()}
		err := ValidateSold(a, firstPlayer(a).ID, team.ID, 100)
		assert.ErrorIs(t, err, ErrRosterFull)
	})
}

func TestApplySold(t *testing.T) {
	a := newTestAuction(models.AuctionTypePlayerBid, 2, 4)
	team := firstTeam(a)
	player := firstPlayer(a)

	ApplySold(a, player.ID, team.ID, 150)

	assert.Equal(t, models.PlayerStatusSold, player.Status)
	require.NotNil(t, player.AssignedToTeam)
	assert.Equal(t, team.ID, *player.AssignedToTeam)
	assert.Equal(t, 150, player.FinalPrice)
	assert.Contains(t, team.PlayerIDs, player.ID)
	assert.Equal(t, 850, team.RemainingCredits)

	// Bid state resets for the next player
	assert.Nil(t, a.Current.CurrentBiddingTeam)
	assert.Zero(t, a.Current.CurrentBidAmount)
}

func TestApplySold_NumberWiseZeroPrice(t *testing.T) {
	// Number-wise selection allocates by turn order, not currency: a
	// zero price is valid and consumes no credits.
	a := newTestAuction(models.AuctionTypeNumberWise, 2, 2)
	a.Settings.PlayersPerTeam = 1
	team := firstTeam(a)
	playerA := firstPlayer(a)

	require.NoError(t, ValidateSold(a, playerA.ID, team.ID, 0))
	ApplySold(a, playerA.ID, team.ID, 0)

	assert.Equal(t, models.PlayerStatusSold, playerA.Status)
	assert.Equal(t, team.ID, *playerA.AssignedToTeam)
	assert.Zero(t, playerA.FinalPrice)
	assert.Equal(t, 1000, team.RemainingCredits)
	assert.Equal(t, 1, a.Current.CurrentTeamIndex)

	// The second team selects the last player and the rotation is done.
	team2 := secondTeam(a)
	playerB := CurrentPlayer(a)
	require.NotNil(t, playerB)
	require.NoError(t, ValidateSold(a, playerB.ID, team2.ID, 0))
	ApplySold(a, playerB.ID, team2.ID, 0)

	assert.Equal(t, 1000, team2.RemainingCredits)
	assert.True(t, FlowFor(a.AuctionType).Terminal(a))
}

func TestApplySold_MoneyConservation(t *testing.T) {
	a := newTestAuction(models.AuctionTypePlayerBid, 2, 4)

	totalBefore := 0
	for _, team := range a.Teams {
		totalBefore += team.RemainingCredits
	}

	prices := []int{150, 200, 100}
	teams := a.OrderedTeams()
	for i, price := range prices {
		buyer := teams[i%len(teams)]
		player := CurrentPlayer(a)
		require.NotNil(t, player)
		require.NoError(t, ValidateSold(a, player.ID, buyer.ID, price))
		ApplySold(a, player.ID, buyer.ID, price)
	}

	totalSpent := 0
	totalAfter := 0
	for _, team := range a.Teams {
		totalAfter += team.RemainingCredits
	}
	for _, p := range a.Players {
		if p.Status == models.PlayerStatusSold {
			totalSpent += p.FinalPrice
		}
	}
	assert.Equal(t, totalBefore, totalAfter+totalSpent)
}

func TestApplyUnsold(t *testing.T) {
	a := newTestAuction(models.AuctionTypePlayerBid, 2, 4)
	player := firstPlayer(a)

	ApplyUnsold(a, player.ID)

	assert.Equal(t, models.PlayerStatusUnsold, player.Status)
	assert.Nil(t, player.AssignedToTeam)
	assert.Zero(t, player.FinalPrice)
	for _, team := range a.Teams {
		assert.NotContains(t, team.PlayerIDs, player.ID)
	}
}

func TestCurrentPlayer_ClampsStaleIndex(t *testing.T) {
	a := newTestAuction(models.AuctionTypePlayerBid, 2, 2)

	// With only one available player left, a stale index past the end of
	// the available view falls back to the head.
	firstPlayer(a).Status = models.PlayerStatusSold
	a.Current.CurrentPlayerIndex = 1

	p := CurrentPlayer(a)
	require.NotNil(t, p)
	assert.Equal(t, models.PlayerStatusAvailable, p.Status)
}
