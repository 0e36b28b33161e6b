package auction

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/gavel/internal/apperr"
	"github.com/mcdev12/gavel/internal/models"
	"github.com/mcdev12/gavel/internal/referral"
)

// freeTierTeamLimit caps the roster size for owners without a subscription.
const freeTierTeamLimit = 3

// AuctionRepository defines what the auction app needs from storage.
type AuctionRepository interface {
	CreateAuction(ctx context.Context, req CreateAuctionRequest) (*models.Auction, error)
	GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error)
	GetAuctionByReferralCode(ctx context.Context, code string) (*models.Auction, error)
	GetAuctionsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Auction, error)
	UpdateAuction(ctx context.Context, id uuid.UUID, req UpdateAuctionRequest) (*models.Auction, error)
	DeleteAuction(ctx context.Context, id uuid.UUID) error
	AddTeam(ctx context.Context, auctionID uuid.UUID, req AddTeamRequest, totalCredits int) (*models.Team, error)
	AddPlayer(ctx context.Context, auctionID uuid.UUID, req AddPlayerRequest) (*models.Player, error)
}

// SubscriptionChecker reports whether an owner holds an active
// subscription, which lifts the free-tier team cap.
type SubscriptionChecker interface {
	HasActiveSubscription(ctx context.Context, userID uuid.UUID) (bool, error)
}

// App implements auction setup and discovery: create, configure, populate
// with teams and players, and look up by owner or referral code.
type App struct {
	repo  AuctionRepository
	subs  SubscriptionChecker
	clock clockwork.Clock
}

func NewApp(repo AuctionRepository, subs SubscriptionChecker, clock clockwork.Clock) *App {
	return &App{
		repo:  repo,
		subs:  subs,
		clock: clock,
	}
}

func (a *App) CreateAuction(ctx context.Context, req CreateAuctionRequest) (*models.Auction, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperr.Validation("auction name is required")
	}
	if strings.TrimSpace(req.OwnerName) == "" {
		return nil, apperr.Validation("owner name is required")
	}
	if req.OwnerID == uuid.Nil {
		return nil, apperr.Validation("owner id is required")
	}
	if !req.AuctionType.Valid() {
		return nil, apperr.Validation("unknown auction type %q", req.AuctionType)
	}
	if err := validateSettings(req.Settings); err != nil {
		return nil, err
	}
	if req.AuctionDate.Before(a.clock.Now().Truncate(24 * time.Hour)) {
		return nil, apperr.Validation("auction date must not be in the past")
	}

	auction, err := a.repo.CreateAuction(ctx, req)
	if err != nil {
		return nil, apperr.Store(err)
	}

	log.Info().
		Str("auction_id", auction.ID.String()).
		Str("auction_type", string(auction.AuctionType)).
		Str("referral_code", auction.ReferralCode).
		Msg("auction created")
	return auction, nil
}

func (a *App) GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	auction, err := a.repo.GetAuction(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	return auction, nil
}

func (a *App) GetAuctionsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Auction, error) {
	auctions, err := a.repo.GetAuctionsByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperr.Store(err)
	}
	return auctions, nil
}

// JoinByReferralCode resolves an auction through its share code. Codes
// expire two days after the auction date.
func (a *App) JoinByReferralCode(ctx context.Context, code string) (*models.Auction, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !referral.IsWellFormed(code) {
		return nil, apperr.Validation("malformed referral code")
	}

	auction, err := a.repo.GetAuctionByReferralCode(ctx, code)
	if err != nil {
		return nil, storeErr(err)
	}
	if !referral.IsActive(auction.AuctionDate, a.clock.Now()) {
		return nil, apperr.Validation("referral code has expired")
	}
	return auction, nil
}

func (a *App) UpdateAuction(ctx context.Context, id uuid.UUID, req UpdateAuctionRequest) (*models.Auction, error) {
	auction, err := a.repo.GetAuction(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	if auction.Status == models.AuctionStatusLive || auction.Status == models.AuctionStatusCompleted {
		return nil, apperr.Validation("auction %s can no longer be edited", id)
	}

	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return nil, apperr.Validation("auction name is required")
	}
	if req.Settings != nil {
		if err := validateSettings(*req.Settings); err != nil {
			return nil, err
		}
	}

	updated, err := a.repo.UpdateAuction(ctx, id, req)
	if err != nil {
		return nil, storeErr(err)
	}
	return updated, nil
}

func (a *App) DeleteAuction(ctx context.Context, id uuid.UUID) error {
	auction, err := a.repo.GetAuction(ctx, id)
	if err != nil {
		return storeErr(err)
	}
	if auction.Status == models.AuctionStatusLive {
		return apperr.Validation("auction %s is live and cannot be deleted", id)
	}

	if err := a.repo.DeleteAuction(ctx, id); err != nil {
		return storeErr(err)
	}
	log.Info().Str("auction_id", id.String()).Msg("auction deleted")
	return nil
}

// AddTeam registers a team before the auction goes live. Owners without a
// subscription are limited to three teams per auction.
func (a *App) AddTeam(ctx context.Context, auctionID uuid.UUID, req AddTeamRequest) (*models.Team, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperr.Validation("team name is required")
	}
	if !models.IsTeamColor(req.Color) {
		return nil, apperr.Validation("unknown team color %q", req.Color)
	}

	auction, err := a.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, storeErr(err)
	}
	if auction.Status == models.AuctionStatusLive || auction.Status == models.AuctionStatusCompleted {
		return nil, apperr.Validation("teams cannot be added once the auction has started")
	}

	if len(auction.Teams) >= freeTierTeamLimit {
		subscribed, err := a.subs.HasActiveSubscription(ctx, auction.OwnerID)
		if err != nil {
			return nil, apperr.Store(err)
		}
		if !subscribed {
			return nil, apperr.Validation("free tier is limited to %d teams, subscribe to add more", freeTierTeamLimit)
		}
	}

	team, err := a.repo.AddTeam(ctx, auctionID, req, auction.Settings.TotalCreditsPerTeam)
	if err != nil {
		return nil, apperr.Store(err)
	}

	log.Info().
		Str("auction_id", auctionID.String()).
		Str("team_id", team.ID.String()).
		Str("team_name", team.Name).
		Msg("team added")
	return team, nil
}

// AddPlayer registers a player before the auction goes live.
func (a *App) AddPlayer(ctx context.Context, auctionID uuid.UUID, req AddPlayerRequest) (*models.Player, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperr.Validation("player name is required")
	}
	if req.BasePrice < 0 {
		return nil, apperr.Validation("base price must not be negative")
	}

	auction, err := a.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, storeErr(err)
	}
	if auction.Status == models.AuctionStatusLive || auction.Status == models.AuctionStatusCompleted {
		return nil, apperr.Validation("players cannot be added once the auction has started")
	}

	player, err := a.repo.AddPlayer(ctx, auctionID, req)
	if err != nil {
		return nil, apperr.Store(err)
	}

	log.Info().
		Str("auction_id", auctionID.String()).
		Str("player_id", player.ID.String()).
		Str("player_name", player.Name).
		Msg("player added")
	return player, nil
}

func validateSettings(s models.AuctionSettings) error {
	if s.TotalCreditsPerTeam <= 0 {
		return apperr.Validation("total credits per team must be positive")
	}
	if s.PlayersPerTeam <= 0 {
		return apperr.Validation("players per team must be positive")
	}
	if s.MinBidIncrement <= 0 {
		return apperr.Validation("minimum bid increment must be positive")
	}
	return nil
}

// storeErr maps repository errors onto the app error taxonomy.
func storeErr(err error) error {
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("%v", err)
	}
	return apperr.Store(err)
}
