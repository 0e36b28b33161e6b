package auction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/mcdev12/gavel/internal/models"
	"github.com/mcdev12/gavel/internal/outbox"
	"github.com/mcdev12/gavel/internal/referral"
	"github.com/mcdev12/gavel/internal/sqlutil"
)

// ErrConflict is returned when a conditional write loses against a
// concurrent update: a compare-and-swap bid precondition failing, a player
// already resolved, or a credits guard tripping. The caller re-reads and
// reports the authoritative state.
var ErrConflict = errors.New("concurrent update conflict")

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

const uniqueViolation = "23505"

// Repository persists auctions on Postgres. It is the store-collaborator
// contract of the core: read full subtree, atomic multi-path update inside
// one transaction, conditional update, indexed lookups. Mutations insert
// their outbox event row in the same transaction.
type Repository struct {
	db     *sql.DB
	outbox *outbox.Repository
}

func NewRepository(db *sql.DB, ob *outbox.Repository) *Repository {
	return &Repository{db: db, outbox: ob}
}

var _ AuctionRepository = (*Repository)(nil)

const auctionColumns = `id, owner_id, owner_name, name, sport_type, auction_type,
	total_credits_per_team, players_per_team, min_bid_increment,
	auction_date, venue, image_url, referral_code, status,
	current_player_index, current_team_index, current_bidding_team,
	current_bid_amount, is_active, started_at, completed_at,
	created_at, updated_at`

// CreateAuction inserts a new auction in DRAFT status with a fresh
// referral code, regenerating the code on a uniqueness collision.
func (r *Repository) CreateAuction(ctx context.Context, req CreateAuctionRequest) (*models.Auction, error) {
	id := uuid.New()
	for {
		code, err := referral.NewCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate referral code: %w", err)
		}

		_, err = r.db.ExecContext(ctx,
			`INSERT INTO auctions (
				id, owner_id, owner_name, name, sport_type, auction_type,
				total_credits_per_team, players_per_team, min_bid_increment,
				auction_date, venue, image_url, referral_code, status
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
			id, req.OwnerID, req.OwnerName, req.Name, req.SportType, req.AuctionType,
			req.Settings.TotalCreditsPerTeam, req.Settings.PlayersPerTeam, req.Settings.MinBidIncrement,
			req.AuctionDate, req.Venue, sqlutil.ToSqlString(req.ImageURL), code, models.AuctionStatusDraft,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "auctions_referral_code_key" {
				continue // collision, regenerate
			}
			return nil, fmt.Errorf("failed to create auction: %w", err)
		}
		break
	}

	return r.GetAuction(ctx, id)
}

// GetAuction reads the full auction subtree: the auction row plus all its
// teams and players.
func (r *Repository) GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+auctionColumns+` FROM auctions WHERE id = $1`, id)
	a, err := scanAuction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("auction %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}

	if err := r.loadTeams(ctx, a); err != nil {
		return nil, err
	}
	if err := r.loadPlayers(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// GetAuctionByReferralCode resolves an auction through its indexed public
// lookup key.
func (r *Repository) GetAuctionByReferralCode(ctx context.Context, code string) (*models.Auction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+auctionColumns+` FROM auctions WHERE referral_code = $1`, code)
	a, err := scanAuction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("referral code %s: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get auction by referral code: %w", err)
	}

	if err := r.loadTeams(ctx, a); err != nil {
		return nil, err
	}
	if err := r.loadPlayers(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// GetAuctionsByOwner lists an owner's auctions newest first. The list view
// carries auction rows only, without rosters.
func (r *Repository) GetAuctionsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Auction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+auctionColumns+` FROM auctions WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get auctions by owner: %w", err)
	}
	defer rows.Close()

	var out []models.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auction: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// UpdateAuction applies pre-live configuration changes.
func (r *Repository) UpdateAuction(ctx context.Context, id uuid.UUID, req UpdateAuctionRequest) (*models.Auction, error) {
	err := sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		if req.Name != nil {
			if err := execUpdate(ctx, tx, id, `UPDATE auctions SET name = $2, updated_at = now() WHERE id = $1`, *req.Name); err != nil {
				return err
			}
		}
		if req.Venue != nil {
			if err := execUpdate(ctx, tx, id, `UPDATE auctions SET venue = $2, updated_at = now() WHERE id = $1`, *req.Venue); err != nil {
				return err
			}
		}
		if req.AuctionDate != nil {
			if err := execUpdate(ctx, tx, id, `UPDATE auctions SET auction_date = $2, updated_at = now() WHERE id = $1`, *req.AuctionDate); err != nil {
				return err
			}
		}
		if req.ImageURL != nil {
			if err := execUpdate(ctx, tx, id, `UPDATE auctions SET image_url = $2, updated_at = now() WHERE id = $1`, *req.ImageURL); err != nil {
				return err
			}
		}
		if req.Settings != nil {
			if err := execUpdate(ctx, tx, id,
				`UPDATE auctions SET total_credits_per_team = $2, players_per_team = $3, min_bid_increment = $4, updated_at = now() WHERE id = $1`,
				req.Settings.TotalCreditsPerTeam, req.Settings.PlayersPerTeam, req.Settings.MinBidIncrement); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update auction: %w", err)
	}
	return r.GetAuction(ctx, id)
}

// DeleteAuction removes an auction and, via cascade, its teams, players
// and outbox rows.
func (r *Repository) DeleteAuction(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM auctions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete auction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected count: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("auction %s: %w", id, ErrNotFound)
	}
	return nil
}

// AddTeam inserts a team with a full budget, an empty roster and the next
// insertion-order index.
func (r *Repository) AddTeam(ctx context.Context, auctionID uuid.UUID, req AddTeamRequest, totalCredits int) (*models.Team, error) {
	id := uuid.New()
	err := sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		var ord int
		if err := tx.QueryRowContext(ctx,
			`SELECT count(*) FROM auction_teams WHERE auction_id = $1`, auctionID).Scan(&ord); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO auction_teams (
				id, auction_id, name, color, icon_url, sponsor_name,
				total_credits, remaining_credits, player_ids, ord
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$7,'{}',$8)`,
			id, auctionID, req.Name, req.Color,
			sqlutil.ToSqlString(req.IconURL), sqlutil.ToSqlString(req.SponsorName),
			totalCredits, ord,
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add team: %w", err)
	}
	return r.getTeam(ctx, auctionID, id)
}

// AddPlayer inserts an available player with the next presentation-order
// index.
func (r *Repository) AddPlayer(ctx context.Context, auctionID uuid.UUID, req AddPlayerRequest) (*models.Player, error) {
	id := uuid.New()
	err := sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		var ord int
		if err := tx.QueryRowContext(ctx,
			`SELECT count(*) FROM auction_players WHERE auction_id = $1`, auctionID).Scan(&ord); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO auction_players (
				id, auction_id, name, position, image_url, base_price, status, ord
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			id, auctionID, req.Name,
			sqlutil.ToSqlString(req.Position), sqlutil.ToSqlString(req.ImageURL),
			req.BasePrice, models.PlayerStatusAvailable, ord,
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add player: %w", err)
	}
	return r.getPlayer(ctx, auctionID, id)
}

// StartAuction flips the auction live and records the outbox event, as one
// transaction.
func (r *Repository) StartAuction(ctx context.Context, id uuid.UUID, startedAt time.Time, eventType string, payload []byte) error {
	return sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE auctions
			    SET status = $2, is_active = true, started_at = $3, updated_at = now()
			  WHERE id = $1 AND status <> $4`,
			id, models.AuctionStatusLive, startedAt, models.AuctionStatusCompleted,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrConflict
		}
		return r.outbox.Insert(ctx, tx, id, eventType, payload)
	})
}

// CompleteAuction finalizes the auction and records the outbox event, as
// one transaction. Completing an already-completed auction is a no-op.
func (r *Repository) CompleteAuction(ctx context.Context, id uuid.UUID, completedAt time.Time, eventType string, payload []byte) error {
	return sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE auctions
			    SET status = $2, is_active = false, completed_at = $3, updated_at = now()
			  WHERE id = $1 AND status <> $2`,
			id, models.AuctionStatusCompleted, completedAt,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil // already completed
		}
		return r.outbox.Insert(ctx, tx, id, eventType, payload)
	})
}

// BidUpdate is the optimistic compare-and-swap bid write. The prior
// fields pin the snapshot the accepted amount was computed from: bid
// amount and bidding team catch a racing bid, player index and the count
// of still-available players catch a resolution that moved the block to a
// different player.
type BidUpdate struct {
	AuctionID        uuid.UUID
	TeamID           uuid.UUID
	PriorTeam        *uuid.UUID
	PriorAmount      int
	PriorPlayerIndex int
	PriorAvailable   int
	Accepted         int
	EventType        string
	Payload          []byte
}

// ApplyBid performs the conditional bid write: it succeeds only if the
// turn state still matches what the engine computed the accepted amount
// from. A lost race surfaces as ErrConflict with no state change.
func (r *Repository) ApplyBid(ctx context.Context, u BidUpdate) error {
	return sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE auctions
			    SET current_bidding_team = $2, current_bid_amount = $3, updated_at = now()
			  WHERE id = $1
			    AND status = $4
			    AND current_bid_amount = $5
			    AND current_bidding_team IS NOT DISTINCT FROM $6
			    AND current_player_index = $7
			    AND (SELECT count(*) FROM auction_players p
			          WHERE p.auction_id = auctions.id AND p.status = $8) = $9`,
			u.AuctionID, u.TeamID, u.Accepted,
			models.AuctionStatusLive, u.PriorAmount, sqlutil.ToNullUUID(u.PriorTeam),
			u.PriorPlayerIndex, models.PlayerStatusAvailable, u.PriorAvailable,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrConflict
		}
		return r.outbox.Insert(ctx, tx, u.AuctionID, u.EventType, u.Payload)
	})
}

// ResolutionUpdate is the atomic multi-path write of one sold/unsold
// resolution: the player's terminal state, the buying team's roster and
// credits (sold only), and the successor turn state. Either every path
// applies or none does.
type ResolutionUpdate struct {
	AuctionID  uuid.UUID
	PlayerID   uuid.UUID
	TeamID     *uuid.UUID // nil for unsold
	FinalPrice int
	NextState  models.CurrentAuctionState
	EventType  string
	Payload    []byte
}

// ApplyResolution writes a sold or unsold resolution as one transaction.
// Guards on player availability and team credits turn double resolutions
// and overdrafts into ErrConflict with nothing applied.
func (r *Repository) ApplyResolution(ctx context.Context, u ResolutionUpdate) error {
	return sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		status := models.PlayerStatusUnsold
		if u.TeamID != nil {
			status = models.PlayerStatusSold
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE auction_players
			    SET status = $3, assigned_to_team = $4, final_price = $5
			  WHERE id = $1 AND auction_id = $2 AND status = $6`,
			u.PlayerID, u.AuctionID, status, sqlutil.ToNullUUID(u.TeamID), u.FinalPrice,
			models.PlayerStatusAvailable,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrConflict // already resolved
		}

		if u.TeamID != nil {
			res, err := tx.ExecContext(ctx,
				`UPDATE auction_teams
				    SET player_ids = array_append(player_ids, $3),
				        remaining_credits = remaining_credits - $4
				  WHERE id = $1 AND auction_id = $2 AND remaining_credits >= $4`,
				*u.TeamID, u.AuctionID, u.PlayerID, u.FinalPrice,
			)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				return ErrConflict // insufficient credits or team gone
			}
		}

		if err := execUpdate(ctx, tx, u.AuctionID,
			`UPDATE auctions
			    SET current_player_index = $2, current_team_index = $3,
			        current_bidding_team = NULL, current_bid_amount = 0,
			        updated_at = now()
			  WHERE id = $1 AND status = $4`,
			u.NextState.CurrentPlayerIndex, u.NextState.CurrentTeamIndex,
			models.AuctionStatusLive,
		); err != nil {
			return err
		}

		return r.outbox.Insert(ctx, tx, u.AuctionID, u.EventType, u.Payload)
	})
}

func (r *Repository) getTeam(ctx context.Context, auctionID, id uuid.UUID) (*models.Team, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, color, icon_url, sponsor_name, total_credits, remaining_credits, player_ids, ord
		   FROM auction_teams WHERE auction_id = $1 AND id = $2`, auctionID, id)
	t, err := scanTeam(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return t, nil
}

func (r *Repository) getPlayer(ctx context.Context, auctionID, id uuid.UUID) (*models.Player, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, position, image_url, base_price, status, assigned_to_team, final_price, ord
		   FROM auction_players WHERE auction_id = $1 AND id = $2`, auctionID, id)
	p, err := scanPlayer(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return p, nil
}

func (r *Repository) loadTeams(ctx context.Context, a *models.Auction) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, color, icon_url, sponsor_name, total_credits, remaining_credits, player_ids, ord
		   FROM auction_teams WHERE auction_id = $1 ORDER BY ord`, a.ID)
	if err != nil {
		return fmt.Errorf("failed to load teams: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return fmt.Errorf("failed to scan team: %w", err)
		}
		a.Teams[t.ID] = t
	}
	return rows.Err()
}

func (r *Repository) loadPlayers(ctx context.Context, a *models.Auction) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, position, image_url, base_price, status, assigned_to_team, final_price, ord
		   FROM auction_players WHERE auction_id = $1 ORDER BY ord`, a.ID)
	if err != nil {
		return fmt.Errorf("failed to load players: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return fmt.Errorf("failed to scan player: %w", err)
		}
		a.Players[p.ID] = p
	}
	return rows.Err()
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAuction(s scanner) (*models.Auction, error) {
	var (
		a           models.Auction
		imageURL    sql.NullString
		biddingTeam uuid.NullUUID
		startedAt   sql.NullTime
		completedAt sql.NullTime
	)
	err := s.Scan(
		&a.ID, &a.OwnerID, &a.OwnerName, &a.Name, &a.SportType, &a.AuctionType,
		&a.Settings.TotalCreditsPerTeam, &a.Settings.PlayersPerTeam, &a.Settings.MinBidIncrement,
		&a.AuctionDate, &a.Venue, &imageURL, &a.ReferralCode, &a.Status,
		&a.Current.CurrentPlayerIndex, &a.Current.CurrentTeamIndex, &biddingTeam,
		&a.Current.CurrentBidAmount, &a.Current.IsActive, &startedAt, &completedAt,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.ImageURL = sqlutil.FromSqlStringPtr(imageURL)
	a.Current.CurrentBiddingTeam = sqlutil.FromNullUUID(biddingTeam)
	a.Current.StartedAt = sqlutil.FromSqlTime(startedAt)
	a.Current.CompletedAt = sqlutil.FromSqlTime(completedAt)
	a.Teams = make(map[uuid.UUID]*models.Team)
	a.Players = make(map[uuid.UUID]*models.Player)
	return &a, nil
}

func scanTeam(s scanner) (*models.Team, error) {
	var (
		t       models.Team
		icon    sql.NullString
		sponsor sql.NullString
	)
	if err := s.Scan(
		&t.ID, &t.Name, &t.Color, &icon, &sponsor,
		&t.TotalCredits, &t.RemainingCredits, pq.Array(&t.PlayerIDs), &t.Order,
	); err != nil {
		return nil, err
	}
	t.IconURL = sqlutil.FromSqlStringPtr(icon)
	t.SponsorName = sqlutil.FromSqlStringPtr(sponsor)
	if t.PlayerIDs == nil {
		t.PlayerIDs = []uuid.UUID{}
	}
	return &t, nil
}

func scanPlayer(s scanner) (*models.Player, error) {
	var (
		p        models.Player
		position sql.NullString
		imageURL sql.NullString
		team     uuid.NullUUID
	)
	if err := s.Scan(
		&p.ID, &p.Name, &position, &imageURL, &p.BasePrice,
		&p.Status, &team, &p.FinalPrice, &p.Order,
	); err != nil {
		return nil, err
	}
	p.Position = sqlutil.FromSqlStringPtr(position)
	p.ImageURL = sqlutil.FromSqlStringPtr(imageURL)
	p.AssignedToTeam = sqlutil.FromNullUUID(team)
	return &p, nil
}

func execUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID, query string, args ...any) error {
	res, err := tx.ExecContext(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("auction %s: %w", id, ErrNotFound)
	}
	return nil
}
