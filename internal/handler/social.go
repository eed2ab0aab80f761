package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"tycoon-engine/internal/service"
	"tycoon-engine/pkg/response"
)

// SocialHandler exposes the leaderboard, market, holdings, invites and
// public events.
type SocialHandler struct {
	social *service.SocialService
}

// NewSocialHandler creates a new social handler.
func NewSocialHandler(social *service.SocialService) *SocialHandler {
	return &SocialHandler{social: social}
}

// Routes mounts the social endpoints.
func (h *SocialHandler) Routes(r chi.Router) {
	r.Get("/leaderboard", h.Leaderboard)

	r.Get("/market", h.MarketListings)
	r.Post("/market", h.Sell)
	r.Post("/market/{listingID}/buy", h.Buy)

	r.Get("/holdings", h.Holdings)
	r.Post("/holdings", h.CreateHolding)
	r.Post("/holdings/{holdingID}/join", h.JoinHolding)

	r.Get("/invites", h.Invites)
	r.Post("/invites", h.SendInvite)
	r.Post("/invites/{inviteID}/accept", h.AcceptInvite)
	r.Post("/invites/{inviteID}/decline", h.DeclineInvite)

	r.Get("/events", h.RecentEvents)
}

// Leaderboard handles GET /social/leaderboard
func (h *SocialHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.social.Leaderboard(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSONWithMeta(w, http.StatusOK, entries, 1, service.LeaderboardSize, int64(len(entries)))
}

// MarketListings handles GET /social/market
func (h *SocialHandler) MarketListings(w http.ResponseWriter, r *http.Request) {
	items, err := h.social.MarketListings(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSONWithMeta(w, http.StatusOK, items, 1, service.MarketPageSize, int64(len(items)))
}

// Sell handles POST /social/market
func (h *SocialHandler) Sell(w http.ResponseWriter, r *http.Request) {
	var req service.SellRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.social.Sell(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Created(w, item)
}

// Buy handles POST /social/market/{listingID}/buy
func (h *SocialHandler) Buy(w http.ResponseWriter, r *http.Request) {
	item, err := h.social.Buy(r.Context(), chi.URLParam(r, "listingID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, item)
}

// Holdings handles GET /social/holdings
func (h *SocialHandler) Holdings(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.social.Holdings(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSONWithMeta(w, http.StatusOK, holdings, 1, service.HoldingsPageSize, int64(len(holdings)))
}

// HoldingRequest is the body of POST /social/holdings.
type HoldingRequest struct {
	Name string `json:"name"`
}

// CreateHolding handles POST /social/holdings
func (h *SocialHandler) CreateHolding(w http.ResponseWriter, r *http.Request) {
	var req HoldingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	holding, err := h.social.CreateHolding(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Created(w, holding)
}

// JoinHolding handles POST /social/holdings/{holdingID}/join
func (h *SocialHandler) JoinHolding(w http.ResponseWriter, r *http.Request) {
	if err := h.social.JoinHolding(r.Context(), chi.URLParam(r, "holdingID")); err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, map[string]string{"status": "joined"})
}

// Invites handles GET /social/invites
func (h *SocialHandler) Invites(w http.ResponseWriter, r *http.Request) {
	invites, err := h.social.Invites(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, invites)
}

// InviteRequest is the body of POST /social/invites.
type InviteRequest struct {
	ToID     string  `json:"toId"`
	GameType string  `json:"gameType,omitempty"`
	Amount   float64 `json:"amount"`
}

// SendInvite handles POST /social/invites
func (h *SocialHandler) SendInvite(w http.ResponseWriter, r *http.Request) {
	var req InviteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	inv, err := h.social.SendInvite(r.Context(), req.ToID, req.GameType, req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Created(w, inv)
}

// AcceptInvite handles POST /social/invites/{inviteID}/accept
func (h *SocialHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	res, err := h.social.AcceptInvite(r.Context(), chi.URLParam(r, "inviteID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, res)
}

// DeclineInvite handles POST /social/invites/{inviteID}/decline
func (h *SocialHandler) DeclineInvite(w http.ResponseWriter, r *http.Request) {
	if err := h.social.DeclineInvite(r.Context(), chi.URLParam(r, "inviteID")); err != nil {
		writeError(w, r, err)
		return
	}
	response.NoContent(w)
}

// RecentEvents handles GET /social/events
func (h *SocialHandler) RecentEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.social.RecentEvents(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, events)
}
