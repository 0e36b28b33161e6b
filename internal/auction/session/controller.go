// Package session drives the live phase of an auction. The controller
// reads a full snapshot, lets the engine validate and compute against it,
// and hands the store a conditional write; a lost write race is reported
// as a conflict carrying the authoritative snapshot so clients can
// converge.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/gavel/internal/apperr"
	"github.com/mcdev12/gavel/internal/auction"
	"github.com/mcdev12/gavel/internal/auction/engine"
	"github.com/mcdev12/gavel/internal/events"
	"github.com/mcdev12/gavel/internal/models"
)

// Store defines what the session controller needs from storage. Every
// mutation records its event row in the same transaction.
type Store interface {
	GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error)
	StartAuction(ctx context.Context, id uuid.UUID, startedAt time.Time, eventType string, payload []byte) error
	CompleteAuction(ctx context.Context, id uuid.UUID, completedAt time.Time, eventType string, payload []byte) error
	ApplyBid(ctx context.Context, u auction.BidUpdate) error
	ApplyResolution(ctx context.Context, u auction.ResolutionUpdate) error
}

var _ Store = (*auction.Repository)(nil)

// Controller implements the live auction operations: start, bid, sold,
// unsold and complete.
type Controller struct {
	store Store
	clock clockwork.Clock
}

func NewController(store Store, clock clockwork.Clock) *Controller {
	return &Controller{
		store: store,
		clock: clock,
	}
}

// StartAuction transitions an auction to LIVE after validating it has at
// least one team, at least one player, and enough players to fill every
// roster. Starting an already-live auction is a no-op returning the
// current snapshot.
func (c *Controller) StartAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	a, err := c.get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch a.Status {
	case models.AuctionStatusLive:
		return a, nil
	case models.AuctionStatusCompleted:
		return nil, apperr.Validation("auction %s has already completed", id)
	}
	if len(a.Teams) == 0 {
		return nil, apperr.Validation("auction needs at least one team to start")
	}
	if len(a.Players) == 0 {
		return nil, apperr.Validation("auction needs at least one player to start")
	}
	if required := len(a.Teams) * a.Settings.PlayersPerTeam; len(a.Players) < required {
		return nil, apperr.Validation("auction needs %d players to fill %d teams, has %d",
			required, len(a.Teams), len(a.Players))
	}

	now := c.clock.Now()
	payload, err := json.Marshal(events.AuctionStartedPayload{
		AuctionID:   a.ID.String(),
		AuctionType: string(a.AuctionType),
		StartedAt:   now,
		TeamCount:   len(a.Teams),
		PlayerCount: len(a.Players),
	})
	if err != nil {
		return nil, apperr.Store(err)
	}

	if err := c.store.StartAuction(ctx, id, now, events.TypeAuctionStarted, payload); err != nil {
		return nil, c.conflictOrStore(ctx, id, err)
	}

	log.Info().
		Str("auction_id", id.String()).
		Str("auction_type", string(a.AuctionType)).
		Int("teams", len(a.Teams)).
		Int("players", len(a.Players)).
		Msg("auction started")
	return c.get(ctx, id)
}

// CompleteAuction finalizes an auction. Completion is irreversible and is
// always owner-initiated; exhausting the player pool never completes an
// auction on its own.
func (c *Controller) CompleteAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	a, err := c.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == models.AuctionStatusCompleted {
		return a, nil
	}
	if a.Status != models.AuctionStatusLive {
		return nil, apperr.Validation("auction %s is not live", id)
	}

	now := c.clock.Now()
	var sold, unsold int
	for _, p := range a.Players {
		switch p.Status {
		case models.PlayerStatusSold:
			sold++
		case models.PlayerStatusUnsold:
			unsold++
		}
	}
	duration := ""
	if a.Current.StartedAt != nil {
		duration = now.Sub(*a.Current.StartedAt).Round(time.Second).String()
	}

	payload, err := json.Marshal(events.AuctionCompletedPayload{
		AuctionID:   a.ID.String(),
		CompletedAt: now,
		Duration:    duration,
		SoldCount:   sold,
		UnsoldCount: unsold,
	})
	if err != nil {
		return nil, apperr.Store(err)
	}

	if err := c.store.CompleteAuction(ctx, id, now, events.TypeAuctionCompleted, payload); err != nil {
		return nil, apperr.Store(err)
	}

	log.Info().
		Str("auction_id", id.String()).
		Int("sold", sold).
		Int("unsold", unsold).
		Msg("auction completed")
	return c.get(ctx, id)
}

// PlaceBid records a bid for the player on the block. The accepted amount
// is computed server-side from the snapshot; the write succeeds only if
// the turn state is unchanged since the snapshot was read, so two teams
// racing on the same bid produce consecutive amounts, never the same one,
// and a bid landing after a resolution moved the block is rejected.
func (c *Controller) PlaceBid(ctx context.Context, auctionID, teamID, playerID uuid.UUID) (*models.Auction, error) {
	a, err := c.get(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	accepted, err := engine.ValidateBid(a, teamID, playerID)
	if err != nil {
		return nil, c.engineErr(ctx, a, err)
	}

	payload, err := json.Marshal(events.BidPlacedPayload{
		AuctionID: a.ID.String(),
		PlayerID:  playerID.String(),
		TeamID:    teamID.String(),
		TeamName:  a.Teams[teamID].Name,
		Amount:    accepted,
		PlacedAt:  c.clock.Now(),
	})
	if err != nil {
		return nil, apperr.Store(err)
	}

	err = c.store.ApplyBid(ctx, auction.BidUpdate{
		AuctionID:        auctionID,
		TeamID:           teamID,
		PriorTeam:        a.Current.CurrentBiddingTeam,
		PriorAmount:      a.Current.CurrentBidAmount,
		PriorPlayerIndex: a.Current.CurrentPlayerIndex,
		PriorAvailable:   len(a.AvailablePlayers()),
		Accepted:         accepted,
		EventType:        events.TypeBidPlaced,
		Payload:          payload,
	})
	if err != nil {
		return nil, c.conflictOrStore(ctx, auctionID, err)
	}

	log.Info().
		Str("auction_id", auctionID.String()).
		Str("team_id", teamID.String()).
		Str("player_id", playerID.String()).
		Int("amount", accepted).
		Msg("bid placed")
	return c.get(ctx, auctionID)
}

// MarkSold resolves the current player as sold to a team. The player's
// assignment, the team's roster and credits, and the successor turn state
// are written as one atomic update.
func (c *Controller) MarkSold(ctx context.Context, auctionID, playerID, teamID uuid.UUID, finalPrice int) (*models.Auction, error) {
	a, err := c.get(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	if err := engine.ValidateSold(a, playerID, teamID, finalPrice); err != nil {
		return nil, c.engineErr(ctx, a, err)
	}

	playerName := a.Players[playerID].Name
	teamName := a.Teams[teamID].Name
	engine.ApplySold(a, playerID, teamID, finalPrice)

	payload, err := json.Marshal(events.PlayerSoldPayload{
		AuctionID:  a.ID.String(),
		PlayerID:   playerID.String(),
		PlayerName: playerName,
		TeamID:     teamID.String(),
		TeamName:   teamName,
		FinalPrice: finalPrice,
		SoldAt:     c.clock.Now(),
	})
	if err != nil {
		return nil, apperr.Store(err)
	}

	err = c.store.ApplyResolution(ctx, auction.ResolutionUpdate{
		AuctionID:  auctionID,
		PlayerID:   playerID,
		TeamID:     &teamID,
		FinalPrice: finalPrice,
		NextState:  a.Current,
		EventType:  events.TypePlayerSold,
		Payload:    payload,
	})
	if err != nil {
		return nil, c.conflictOrStore(ctx, auctionID, err)
	}

	log.Info().
		Str("auction_id", auctionID.String()).
		Str("player_id", playerID.String()).
		Str("team_id", teamID.String()).
		Int("final_price", finalPrice).
		Msg("player sold")
	c.logTerminal(a)
	return c.get(ctx, auctionID)
}

// MarkUnsold resolves the current player as unsold and advances the turn.
func (c *Controller) MarkUnsold(ctx context.Context, auctionID, playerID uuid.UUID) (*models.Auction, error) {
	a, err := c.get(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	if err := engine.ValidateUnsold(a, playerID); err != nil {
		return nil, c.engineErr(ctx, a, err)
	}

	playerName := a.Players[playerID].Name
	engine.ApplyUnsold(a, playerID)

	payload, err := json.Marshal(events.PlayerUnsoldPayload{
		AuctionID:  a.ID.String(),
		PlayerID:   playerID.String(),
		PlayerName: playerName,
		MarkedAt:   c.clock.Now(),
	})
	if err != nil {
		return nil, apperr.Store(err)
	}

	err = c.store.ApplyResolution(ctx, auction.ResolutionUpdate{
		AuctionID: auctionID,
		PlayerID:  playerID,
		NextState: a.Current,
		EventType: events.TypePlayerUnsold,
		Payload:   payload,
	})
	if err != nil {
		return nil, c.conflictOrStore(ctx, auctionID, err)
	}

	log.Info().
		Str("auction_id", auctionID.String()).
		Str("player_id", playerID.String()).
		Msg("player unsold")
	c.logTerminal(a)
	return c.get(ctx, auctionID)
}

func (c *Controller) get(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	a, err := c.store.GetAuction(ctx, id)
	if err != nil {
		if errors.Is(err, auction.ErrNotFound) {
			return nil, apperr.NotFound("%v", err)
		}
		return nil, apperr.Store(err)
	}
	return a, nil
}

// conflictOrStore maps a failed store write: a lost conditional write is
// reported as a conflict carrying a fresh snapshot, anything else as a
// store failure.
func (c *Controller) conflictOrStore(ctx context.Context, auctionID uuid.UUID, err error) error {
	if !errors.Is(err, auction.ErrConflict) {
		return apperr.Store(err)
	}
	fresh, getErr := c.store.GetAuction(ctx, auctionID)
	if getErr != nil {
		return apperr.Store(fmt.Errorf("conflict, and snapshot re-read failed: %w", getErr))
	}
	return apperr.Conflict(err, fresh)
}

// engineErr maps an engine validation failure onto the app error
// taxonomy. Failures that mean the caller acted on a stale view of a live
// auction carry the snapshot the engine rejected against.
func (c *Controller) engineErr(_ context.Context, a *models.Auction, err error) error {
	switch {
	case errors.Is(err, engine.ErrPlayerNotFound), errors.Is(err, engine.ErrTeamNotFound):
		return apperr.NotFound("%v", err)
	case errors.Is(err, engine.ErrAuctionNotLive),
		errors.Is(err, engine.ErrInvalidAuctionType),
		errors.Is(err, engine.ErrPriceBelowBase):
		return apperr.Validation("%v", err)
	default:
		return apperr.Conflict(err, a)
	}
}

func (c *Controller) logTerminal(a *models.Auction) {
	if engine.FlowFor(a.AuctionType).Terminal(a) {
		log.Info().
			Str("auction_id", a.ID.String()).
			Msg("auction reached terminal state, awaiting owner completion")
	}
}
