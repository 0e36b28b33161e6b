// Package api exposes the auction operations over JSON HTTP. Handlers
// decode, delegate to the auction app and session controller, and map the
// app error taxonomy onto status codes.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/gavel/internal/apperr"
	"github.com/mcdev12/gavel/internal/auction"
	"github.com/mcdev12/gavel/internal/auction/session"
	"github.com/mcdev12/gavel/internal/blob"
	"github.com/mcdev12/gavel/internal/identity"
	"github.com/mcdev12/gavel/internal/models"
	"github.com/mcdev12/gavel/internal/referral"
)

// maxUploadBytes caps image uploads at 5MB.
const maxUploadBytes = 5 << 20

type Handler struct {
	auctions *auction.App
	sessions *session.Controller
	users    *identity.Repository
	uploads  blob.Uploader
}

func NewHandler(auctions *auction.App, sessions *session.Controller, users *identity.Repository, uploads blob.Uploader) *Handler {
	return &Handler{
		auctions: auctions,
		sessions: sessions,
		users:    users,
		uploads:  uploads,
	}
}

// RegisterRoutes registers all API routes on the mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auctions", h.handleCreateAuction)
	mux.HandleFunc("GET /api/auctions", h.handleListAuctions)
	mux.HandleFunc("GET /api/auctions/{id}", h.handleGetAuction)
	mux.HandleFunc("PATCH /api/auctions/{id}", h.handleUpdateAuction)
	mux.HandleFunc("DELETE /api/auctions/{id}", h.handleDeleteAuction)
	mux.HandleFunc("GET /api/auctions/by-referral/{code}", h.handleJoinByReferral)

	mux.HandleFunc("POST /api/auctions/{id}/teams", h.handleAddTeam)
	mux.HandleFunc("POST /api/auctions/{id}/players", h.handleAddPlayer)

	mux.HandleFunc("POST /api/auctions/{id}/start", h.handleStartAuction)
	mux.HandleFunc("POST /api/auctions/{id}/complete", h.handleCompleteAuction)
	mux.HandleFunc("POST /api/auctions/{id}/bids", h.handlePlaceBid)
	mux.HandleFunc("POST /api/auctions/{id}/sold", h.handleMarkSold)
	mux.HandleFunc("POST /api/auctions/{id}/unsold", h.handleMarkUnsold)

	mux.HandleFunc("POST /api/users", h.handleUpsertUser)
	mux.HandleFunc("GET /api/users/{id}", h.handleGetUser)

	mux.HandleFunc("POST /api/uploads", h.handleUpload)
}

func (h *Handler) handleCreateAuction(w http.ResponseWriter, r *http.Request) {
	var req auction.CreateAuctionRequest
	if !decode(w, r, &req) {
		return
	}

	a, err := h.auctions.CreateAuction(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) handleGetAuction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	a, err := h.auctions.GetAuction(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) handleListAuctions(w http.ResponseWriter, r *http.Request) {
	ownerID, err := uuid.Parse(r.URL.Query().Get("owner_id"))
	if err != nil {
		writeError(w, apperr.Validation("owner_id query parameter is required"))
		return
	}

	auctions, err := h.auctions.GetAuctionsByOwner(r.Context(), ownerID)
	if err != nil {
		writeError(w, err)
		return
	}
	if auctions == nil {
		auctions = []models.Auction{}
	}
	writeJSON(w, http.StatusOK, auctions)
}

func (h *Handler) handleUpdateAuction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req auction.UpdateAuctionRequest
	if !decode(w, r, &req) {
		return
	}

	a, err := h.auctions.UpdateAuction(r.Context(), id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) handleDeleteAuction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.auctions.DeleteAuction(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleJoinByReferral(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	a, err := h.auctions.JoinByReferralCode(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, joinResponse{
		Auction:      a,
		ShareMessage: referral.ShareMessage(a.Name, a.ReferralCode),
		DeepLink:     referral.DeepLink(a.ReferralCode),
	})
}

type joinResponse struct {
	Auction      *models.Auction `json:"auction"`
	ShareMessage string          `json:"share_message"`
	DeepLink     string          `json:"deep_link"`
}

func (h *Handler) handleAddTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req auction.AddTeamRequest
	if !decode(w, r, &req) {
		return
	}

	team, err := h.auctions.AddTeam(r.Context(), id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

func (h *Handler) handleAddPlayer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req auction.AddPlayerRequest
	if !decode(w, r, &req) {
		return
	}

	player, err := h.auctions.AddPlayer(r.Context(), id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, player)
}

func (h *Handler) handleStartAuction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	a, err := h.sessions.StartAuction(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) handleCompleteAuction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	a, err := h.sessions.CompleteAuction(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type bidRequest struct {
	TeamID   uuid.UUID `json:"team_id"`
	PlayerID uuid.UUID `json:"player_id"`
}

func (h *Handler) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req bidRequest
	if !decode(w, r, &req) {
		return
	}

	a, err := h.sessions.PlaceBid(r.Context(), id, req.TeamID, req.PlayerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type soldRequest struct {
	PlayerID   uuid.UUID `json:"player_id"`
	TeamID     uuid.UUID `json:"team_id"`
	FinalPrice int       `json:"final_price"`
}

func (h *Handler) handleMarkSold(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req soldRequest
	if !decode(w, r, &req) {
		return
	}

	a, err := h.sessions.MarkSold(r.Context(), id, req.PlayerID, req.TeamID, req.FinalPrice)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type unsoldRequest struct {
	PlayerID uuid.UUID `json:"player_id"`
}

func (h *Handler) handleMarkUnsold(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req unsoldRequest
	if !decode(w, r, &req) {
		return
	}

	a, err := h.sessions.MarkUnsold(r.Context(), id, req.PlayerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) handleUpsertUser(w http.ResponseWriter, r *http.Request) {
	var user models.User
	if !decode(w, r, &user) {
		return
	}
	if user.ID == uuid.Nil {
		writeError(w, apperr.Validation("user id is required"))
		return
	}

	saved, err := h.users.UpsertUser(r.Context(), user)
	if err != nil {
		writeError(w, apperr.Store(err))
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	user, err := h.users.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			writeError(w, apperr.NotFound("%v", err))
			return
		}
		writeError(w, apperr.Store(err))
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, apperr.Validation("invalid multipart upload: %v", err))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, apperr.Validation("image field is required"))
		return
	}
	defer file.Close()

	url, err := h.uploads.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		writeError(w, apperr.Validation("upload rejected: %v", err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}

func pathUUID(w http.ResponseWriter, r *http.Request, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(key))
	if err != nil {
		writeError(w, apperr.Validation("invalid %s", key))
		return uuid.Nil, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, apperr.Validation("invalid request body: %v", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

type errorResponse struct {
	Error     string          `json:"error"`
	Kind      string          `json:"kind"`
	Auction   *models.Auction `json:"auction,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// writeError maps the app error taxonomy onto HTTP statuses. Conflicts
// carry the authoritative auction snapshot so clients can resync without
// another round trip.
func writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{
		Error:     err.Error(),
		Timestamp: time.Now().UTC(),
	}

	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = http.StatusBadRequest
		resp.Kind = "validation"
	case apperr.KindNotFound:
		status = http.StatusNotFound
		resp.Kind = "not_found"
	case apperr.KindConflict:
		status = http.StatusConflict
		resp.Kind = "conflict"
		resp.Auction = apperr.SnapshotOf(err)
	case apperr.KindStore:
		status = http.StatusBadGateway
		resp.Kind = "store"
		log.Error().Err(err).Msg("store failure")
	default:
		resp.Kind = "internal"
		log.Error().Err(err).Msg("unhandled error")
	}

	writeJSON(w, status, resp)
}
