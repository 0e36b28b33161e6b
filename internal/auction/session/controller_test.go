package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/gavel/internal/apperr"
	"github.com/mcdev12/gavel/internal/auction"
	"github.com/mcdev12/gavel/internal/models"
)

// fakeStore implements Store in memory with the same conditional-write
// semantics as the Postgres repository.
type fakeStore struct {
	auction *models.Auction
	events  []string

	// forceBidConflict makes the next ApplyBid lose as if a concurrent
	// bid landed first.
	forceBidConflict bool
}

func newFakeStore(a *models.Auction) *fakeStore {
	return &fakeStore{auction: a}
}

func clone(a *models.Auction) *models.Auction {
	data, err := json.Marshal(a)
	if err != nil {
		panic(err)
	}
	var out models.Auction
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	return &out
}

func (s *fakeStore) GetAuction(_ context.Context, id uuid.UUID) (*models.Auction, error) {
	if s.auction == nil || s.auction.ID != id {
		return nil, auction.ErrNotFound
	}
	return clone(s.auction), nil
}

func (s *fakeStore) StartAuction(_ context.Context, id uuid.UUID, startedAt time.Time, eventType string, _ []byte) error {
	s.auction.Status = models.AuctionStatusLive
	s.auction.Current.IsActive = true
	s.auction.Current.StartedAt = &startedAt
	s.events = append(s.events, eventType)
	return nil
}

func (s *fakeStore) CompleteAuction(_ context.Context, id uuid.UUID, completedAt time.Time, eventType string, _ []byte) error {
	if s.auction.Status == models.AuctionStatusCompleted {
		return nil
	}
	s.auction.Status = models.AuctionStatusCompleted
	s.auction.Current.IsActive = false
	s.auction.Current.CompletedAt = &completedAt
	s.events = append(s.events, eventType)
	return nil
}

func (s *fakeStore) ApplyBid(_ context.Context, u auction.BidUpdate) error {
	if s.forceBidConflict {
		s.forceBidConflict = false
		return auction.ErrConflict
	}
	cur := s.auction.Current
	if cur.CurrentBidAmount != u.PriorAmount ||
		!uuidPtrEqual(cur.CurrentBiddingTeam, u.PriorTeam) ||
		cur.CurrentPlayerIndex != u.PriorPlayerIndex ||
		len(s.auction.AvailablePlayers()) != u.PriorAvailable {
		return auction.ErrConflict
	}
	s.auction.Current.CurrentBiddingTeam = &u.TeamID
	s.auction.Current.CurrentBidAmount = u.Accepted
	s.events = append(s.events, u.EventType)
	return nil
}

func (s *fakeStore) ApplyResolution(_ context.Context, u auction.ResolutionUpdate) error {
	player := s.auction.Players[u.PlayerID]
	if player == nil || player.Status != models.PlayerStatusAvailable {
		return auction.ErrConflict
	}
	if u.TeamID != nil {
		team := s.auction.Teams[*u.TeamID]
		if team == nil || team.RemainingCredits < u.FinalPrice {
			return auction.ErrConflict
		}
		player.Status = models.PlayerStatusSold
		player.AssignedToTeam = u.TeamID
		player.FinalPrice = u.FinalPrice
		team.PlayerIDs = append(team.PlayerIDs, player.ID)
		team.RemainingCredits -= u.FinalPrice
	} else {
		player.Status = models.PlayerStatusUnsold
	}
	s.auction.Current.CurrentPlayerIndex = u.NextState.CurrentPlayerIndex
	s.auction.Current.CurrentTeamIndex = u.NextState.CurrentTeamIndex
	s.auction.Current.CurrentBiddingTeam = nil
	s.auction.Current.CurrentBidAmount = 0
	s.events = append(s.events, u.EventType)
	return nil
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func newDraftAuction(auctionType models.AuctionType, teams, players int) *models.Auction {
	a := &models.Auction{
		ID:          uuid.New(),
		OwnerID:     uuid.New(),
		Name:        "Season Auction",
		SportType:   models.SportTypeCricket,
		AuctionType: auctionType,
		Settings: models.AuctionSettings{
			TotalCreditsPerTeam: 1000,
			PlayersPerTeam:      2,
			MinBidIncrement:     10,
		},
		AuctionDate: time.Now(),
		Status:      models.AuctionStatusDraft,
		Teams:       make(map[uuid.UUID]*models.Team),
		Players:     make(map[uuid.UUID]*models.Player),
	}
	for i := 0; i < teams; i++ {
		team := models.NewTeam(uuid.New(), "Team", models.TeamColors[i%len(models.TeamColors)], 1000, i)
		a.Teams[team.ID] = team
	}
	for i := 0; i < players; i++ {
		p := models.NewPlayer(uuid.New(), "Player", 100, i)
		a.Players[p.ID] = p
	}
	return a
}

func newLiveController(t *testing.T, auctionType models.AuctionType, teams, players int) (*Controller, *fakeStore, *models.Auction) {
	t.Helper()
	a := newDraftAuction(auctionType, teams, players)
	store := newFakeStore(a)
	c := NewController(store, clockwork.NewFakeClock())

	started, err := c.StartAuction(context.Background(), a.ID)
	require.NoError(t, err)
	require.Equal(t, models.AuctionStatusLive, started.Status)
	return c, store, a
}

func TestStartAuction_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(a *models.Auction)
		wantErr string
	}{
		{
			name:    "no teams",
			mutate:  func(a *models.Auction) { a.Teams = map[uuid.UUID]*models.Team{} },
			wantErr: "at least one team",
		},
		{
			name:    "no players",
			mutate:  func(a *models.Auction) { a.Players = map[uuid.UUID]*models.Player{} },
			wantErr: "at least one player",
		},
		{
			name: "not enough players to fill rosters",
			mutate: func(a *models.Auction) {
				for id := range a.Players {
					if len(a.Players) == 3 {
						break
					}
					delete(a.Players, id)
				}
			},
			wantErr: "players to fill",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newDraftAuction(models.AuctionTypePlayerBid, 2, 4)
			tt.mutate(a)
			c := NewController(newFakeStore(a), clockwork.NewFakeClock())

			_, err := c.StartAuction(context.Background(), a.ID)
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStartAuction_ExactPlayerCountSuffices(t *testing.T) {
	// 2 teams x 2 players per team = 4 players is enough
	a := newDraftAuction(models.AuctionTypePlayerBid, 2, 4)
	c := NewController(newFakeStore(a), clockwork.NewFakeClock())

	started, err := c.StartAuction(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AuctionStatusLive, started.Status)
	assert.True(t, started.Current.IsActive)
	require.NotNil(t, started.Current.StartedAt)
}

func TestStartAuction_AlreadyLiveIsNoOp(t *testing.T) {
	c, store, a := newLiveController(t, models.AuctionTypePlayerBid, 2, 4)
	startedEvents := len(store.events)

	// A retried start returns the live snapshot without a second
	// transition or a second AuctionStarted event.
	again, err := c.StartAuction(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AuctionStatusLive, again.Status)
	assert.True(t, again.Current.IsActive)
	assert.Len(t, store.events, startedEvents)
}

func TestPlaceBid_MonotonicAmounts(t *testing.T) {
	c, store, a := newLiveController(t, models.AuctionTypePlayerBid, 2, 4)
	teams := a.OrderedTeams()
	player := a.OrderedPlayers()[0]

	// Opening bid lands at the base price regardless of client intent
	after, err := c.PlaceBid(context.Background(), a.ID, teams[0].ID, player.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, after.Current.CurrentBidAmount)
	assert.Equal(t, teams[0].ID, *after.Current.CurrentBiddingTeam)

	// The counter-bid is exactly one increment higher
	after, err = c.PlaceBid(context.Background(), a.ID, teams[1].ID, player.ID)
	require.NoError(t, err)
	assert.Equal(t, 110, after.Current.CurrentBidAmount)
	assert.Equal(t, teams[1].ID, *after.Current.CurrentBiddingTeam)

	assert.Contains(t, store.events, "BidPlaced")
}

func TestPlaceBid_LostRaceReturnsConflictWithSnapshot(t *testing.T) {
	c, store, a := newLiveController(t, models.AuctionTypePlayerBid, 2, 4)
	teams := a.OrderedTeams()
	player := a.OrderedPlayers()[0]

	store.forceBidConflict = true
	_, err := c.PlaceBid(context.Background(), a.ID, teams[0].ID, player.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	snapshot := apperr.SnapshotOf(err)
	require.NotNil(t, snapshot)
	assert.Equal(t, a.ID, snapshot.ID)

	// Nothing was applied, so the retry wins at the opening price
	after, err := c.PlaceBid(context.Background(), a.ID, teams[0].ID, player.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, after.Current.CurrentBidAmount)
}

func TestPlaceBid_StaleAfterResolutionConflicts(t *testing.T) {
	c, store, a := newLiveController(t, models.AuctionTypePlayerBid, 2, 4)
	teams := a.OrderedTeams()
	player := a.OrderedPlayers()[0]

	// An opening bid computed from the pre-resolution snapshot: neutral
	// bid state, index 0, four players still on the block.
	stale := auction.BidUpdate{
		AuctionID:        a.ID,
		TeamID:           teams[0].ID,
		PriorTeam:        nil,
		PriorAmount:      0,
		PriorPlayerIndex: 0,
		PriorAvailable:   4,
		Accepted:         100,
		EventType:        "BidPlaced",
	}

	// The owner resolves the player first. The index stays 0 but the
	// available view shrank, so the block now shows the next player.
	_, err := c.MarkUnsold(context.Background(), a.ID, player.ID)
	require.NoError(t, err)

	// The stale write must not land on the new player even though the
	// bid state is back to neutral.
	err = store.ApplyBid(context.Background(), stale)
	require.ErrorIs(t, err, auction.ErrConflict)

	// A bid from a fresh snapshot succeeds.
	next := a.OrderedPlayers()[1]
	after, err := c.PlaceBid(context.Background(), a.ID, teams[0].ID, next.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, after.Current.CurrentBidAmount)
}

func TestPlaceBid_RejectedOnRotationTypes(t *testing.T) {
	c, _, a := newLiveController(t, models.AuctionTypeTeamBid, 2, 4)
	teams := a.OrderedTeams()
	player := a.OrderedPlayers()[0]

	_, err := c.PlaceBid(context.Background(), a.ID, teams[0].ID, player.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestMarkSold_AppliesAllPaths(t *testing.T) {
	c, store, a := newLiveController(t, models.AuctionTypePlayerBid, 2, 4)
	buyer := a.OrderedTeams()[0]
	player := a.OrderedPlayers()[0]

	after, err := c.MarkSold(context.Background(), a.ID, player.ID, buyer.ID, 150)
	require.NoError(t, err)

	soldPlayer := after.Players[player.ID]
	require.NotNil(t, soldPlayer)
	assert.Equal(t, models.PlayerStatusSold, soldPlayer.Status)
	assert.Equal(t, buyer.ID, *soldPlayer.AssignedToTeam)
	assert.Equal(t, 150, soldPlayer.FinalPrice)

	boughtTeam := after.Teams[buyer.ID]
	assert.Contains(t, boughtTeam.PlayerIDs, player.ID)
	assert.Equal(t, 850, boughtTeam.RemainingCredits)

	// Bid state is neutral for the next player
	assert.Nil(t, after.Current.CurrentBiddingTeam)
	assert.Zero(t, after.Current.CurrentBidAmount)

	assert.Contains(t, store.events, "PlayerSold")
}

func TestMarkSold_NoDoubleAllocation(t *testing.T) {
	c, _, a := newLiveController(t, models.AuctionTypePlayerBid, 2, 4)
	teams := a.OrderedTeams()
	player := a.OrderedPlayers()[0]

	_, err := c.MarkSold(context.Background(), a.ID, player.ID, teams[0].ID, 150)
	require.NoError(t, err)

	// A second resolution of the same player fails as a conflict and
	// changes nothing.
	_, err = c.MarkSold(context.Background(), a.ID, player.ID, teams[1].ID, 200)
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	fresh, err := c.store.GetAuction(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, teams[0].ID, *fresh.Players[player.ID].AssignedToTeam)
	assert.Equal(t, 150, fresh.Players[player.ID].FinalPrice)
	assert.Equal(t, 1000, fresh.Teams[teams[1].ID].RemainingCredits)
}

func TestMarkUnsold_AdvancesRotation(t *testing.T) {
	c, store, a := newLiveController(t, models.AuctionTypeNumberWise, 2, 4)
	player := a.OrderedPlayers()[0]

	after, err := c.MarkUnsold(context.Background(), a.ID, player.ID)
	require.NoError(t, err)

	assert.Equal(t, models.PlayerStatusUnsold, after.Players[player.ID].Status)
	assert.Equal(t, 1, after.Current.CurrentTeamIndex)
	assert.Contains(t, store.events, "PlayerUnsold")
}

func TestCompleteAuction(t *testing.T) {
	c, store, a := newLiveController(t, models.AuctionTypePlayerBid, 2, 4)
	buyer := a.OrderedTeams()[0]
	player := a.OrderedPlayers()[0]

	_, err := c.MarkSold(context.Background(), a.ID, player.ID, buyer.ID, 100)
	require.NoError(t, err)

	done, err := c.CompleteAuction(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AuctionStatusCompleted, done.Status)
	assert.False(t, done.Current.IsActive)
	require.NotNil(t, done.Current.CompletedAt)
	assert.Contains(t, store.events, "AuctionCompleted")

	// Completing again is a no-op, not an error
	again, err := c.CompleteAuction(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AuctionStatusCompleted, again.Status)
}

func TestCompleteAuction_RequiresLive(t *testing.T) {
	a := newDraftAuction(models.AuctionTypePlayerBid, 2, 4)
	c := NewController(newFakeStore(a), clockwork.NewFakeClock())

	_, err := c.CompleteAuction(context.Background(), a.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestOperationsRequireLiveAuction(t *testing.T) {
	a := newDraftAuction(models.AuctionTypePlayerBid, 2, 4)
	store := newFakeStore(a)
	c := NewController(store, clockwork.NewFakeClock())
	team := a.OrderedTeams()[0]
	player := a.OrderedPlayers()[0]

	_, err := c.PlaceBid(context.Background(), a.ID, team.ID, player.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = c.MarkSold(context.Background(), a.ID, player.ID, team.ID, 100)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	assert.Empty(t, store.events)
}

func TestUnknownAuction(t *testing.T) {
	c := NewController(newFakeStore(newDraftAuction(models.AuctionTypePlayerBid, 2, 4)), clockwork.NewFakeClock())

	_, err := c.StartAuction(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
