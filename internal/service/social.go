package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"tycoon-engine/internal/cache"
	"tycoon-engine/internal/economy"
	"tycoon-engine/internal/game"
	"tycoon-engine/internal/model"
	"tycoon-engine/internal/persistence"
	"tycoon-engine/internal/realtime"
	"tycoon-engine/internal/repository"
	"tycoon-engine/pkg/uid"
)

// Social limits and timings.
const (
	LeaderboardSize  = 50
	MarketPageSize   = 50
	HoldingsPageSize = 20
	EventFeedSize    = realtime.DefaultFeedSize

	// SniperProtection is how long a new listing cannot be bought.
	SniperProtection = 10 * time.Second
	LeaderboardTTL   = 30 * time.Second

	// DuelWinChance is the probability of beating the AI stand-in.
	DuelWinChance = 0.5
	// JackpotThreshold turns a duel win announcement into a jackpot.
	JackpotThreshold = 10000

	DefaultDuelGame     = "BLACKJACK"
	DefaultHoldingIcon  = "🏢"
	MaxHoldingNameLen   = 32
	leaderboardCacheKey = "leaderboard:top"
	eventsFeed          = "public_events"
	eventsTopic         = "events"
)

var (
	// ErrSniperProtection rejects purchases of listings younger than SniperProtection.
	ErrSniperProtection = errors.New("SNIPER_PROTECTION")
	// ErrSold is returned when another buyer won the listing.
	ErrSold = errors.New("SOLD")
	// ErrAlreadyInHolding is returned when the player already belongs to a holding.
	ErrAlreadyInHolding = errors.New("already a member of a holding")
)

// SellRequest describes a new market listing.
type SellRequest struct {
	Type   string  `json:"type"`
	Price  float64 `json:"price"`
	Rarity string  `json:"rarity,omitempty"`
}

// DuelResult is the outcome of an accepted invitation.
type DuelResult struct {
	Invite model.Invite `json:"invite"`
	Won    bool         `json:"won"`
	Delta  float64      `json:"delta"`
}

// SocialService implements the leaderboard, market, holdings, invitations
// and public event ticker for the signed-in player.
type SocialService struct {
	store    *game.Store
	users    persistence.UserSource
	players  repository.PlayerRepository
	market   repository.MarketRepository
	holdings repository.HoldingRepository
	invites  repository.InviteRepository
	cache    cache.Cache
	hub      realtime.Hub
	newID    func() string

	rndMu sync.Mutex
	rnd   economy.Rand
}

// SocialDeps groups the collaborators of SocialService.
type SocialDeps struct {
	Store *game.Store
	Users persistence.UserSource
	Cloud repository.CloudRepository
	Cache cache.Cache
	Hub   realtime.Hub
	Rand  economy.Rand
	NewID func() string
}

// NewSocialService creates a social service.
func NewSocialService(deps SocialDeps) *SocialService {
	if deps.NewID == nil {
		deps.NewID = uid.New
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &SocialService{
		store:    deps.Store,
		users:    deps.Users,
		players:  deps.Cloud,
		market:   deps.Cloud,
		holdings: deps.Cloud,
		invites:  deps.Cloud,
		cache:    deps.Cache,
		hub:      deps.Hub,
		newID:    deps.NewID,
		rnd:      deps.Rand,
	}
}

func (s *SocialService) currentUser() (*model.AuthUser, error) {
	u := s.users.CurrentUser()
	if u == nil {
		return nil, persistence.ErrNoUser
	}
	return u, nil
}

func (s *SocialService) username() string {
	if u := s.store.Read().User; u != nil && u.Username != "" {
		return u.Username
	}
	return "Anonymous"
}

func (s *SocialService) nowMillis() int64 {
	return s.store.Now().UnixMilli()
}

func (s *SocialService) roll() float64 {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return s.rnd.Float64()
}

// Leaderboard returns the richest players. Results are cached briefly.
func (s *SocialService) Leaderboard(ctx context.Context) ([]model.LeaderboardEntry, error) {
	data, err := s.cache.GetOrSet(ctx, leaderboardCacheKey, LeaderboardTTL, func() ([]byte, error) {
		entries, err := s.players.TopPlayers(ctx, LeaderboardSize)
		if err != nil {
			return nil, err
		}
		return json.Marshal(entries)
	})
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}

	var entries []model.LeaderboardEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode leaderboard: %w", err)
	}
	return entries, nil
}

// MarketListings returns the newest listings.
func (s *SocialService) MarketListings(ctx context.Context) ([]model.MarketItem, error) {
	return s.market.ListListings(ctx, MarketPageSize)
}

// Sell lists an item on the market.
func (s *SocialService) Sell(ctx context.Context, req SellRequest) (*model.MarketItem, error) {
	user, err := s.currentUser()
	if err != nil {
		return nil, err
	}
	req.Type = strings.TrimSpace(req.Type)
	if req.Type == "" || req.Price <= 0 {
		return nil, fmt.Errorf("%w: listing needs a type and a positive price", game.ErrInvalidArgument)
	}
	switch req.Rarity {
	case "":
		req.Rarity = model.RarityCommon
	case model.RarityCommon, model.RarityRare, model.RarityLegendary:
	default:
		return nil, fmt.Errorf("%w: unknown rarity %q", game.ErrInvalidArgument, req.Rarity)
	}

	item := model.MarketItem{
		ID:         s.newID(),
		SellerID:   user.ID,
		SellerName: s.username(),
		Type:       req.Type,
		Price:      req.Price,
		Timestamp:  s.nowMillis(),
		Rarity:     req.Rarity,
	}
	if err := s.market.CreateListing(ctx, item); err != nil {
		return nil, err
	}
	log.Printf("[SocialService] %s listed %s for %.0f", user.ID, item.Type, item.Price)
	return &item, nil
}

// Buy purchases a listing. Listings younger than SniperProtection are
// refused without touching the listing or the balance. When several buyers
// race, only the one whose delete removes the listing pays.
func (s *SocialService) Buy(ctx context.Context, listingID string) (*model.MarketItem, error) {
	user, err := s.currentUser()
	if err != nil {
		return nil, err
	}

	item, err := s.market.GetListing(ctx, listingID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSold
	}
	if err != nil {
		return nil, err
	}
	if item.SellerID == user.ID {
		return nil, fmt.Errorf("%w: cannot buy your own listing", game.ErrInvalidArgument)
	}
	if s.nowMillis()-item.Timestamp < SniperProtection.Milliseconds() {
		return nil, ErrSniperProtection
	}

	err = s.store.SpendWith(ctx, item.Price, func(ctx context.Context) error {
		removed, err := s.market.DeleteListing(ctx, item.ID)
		if err != nil {
			return err
		}
		if !removed {
			return ErrSold
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if item.Rarity == model.RarityLegendary {
		s.PostEvent(ctx, model.EventInfo, fmt.Sprintf("%s bought a legendary %s", s.username(), item.Type))
	}
	return item, nil
}

// Holdings returns the most valuable holdings.
func (s *SocialService) Holdings(ctx context.Context) ([]model.Holding, error) {
	return s.holdings.TopHoldings(ctx, HoldingsPageSize)
}

// CreateHolding founds a holding led by the player and joins it.
func (s *SocialService) CreateHolding(ctx context.Context, name string) (*model.Holding, error) {
	if _, err := s.currentUser(); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > MaxHoldingNameLen {
		return nil, fmt.Errorf("%w: holding name must be 1-%d characters", game.ErrInvalidArgument, MaxHoldingNameLen)
	}
	st := s.store.Read()
	if st.User != nil && st.User.HoldingID != "" {
		return nil, ErrAlreadyInHolding
	}

	h := model.Holding{
		ID:             s.newID(),
		Name:           name,
		LeaderName:     s.username(),
		TotalValuation: st.Money,
		MembersCount:   1,
		Icon:           DefaultHoldingIcon,
	}
	if err := s.holdings.CreateHolding(ctx, h); err != nil {
		return nil, err
	}
	if err := s.store.UpdateProfile(ctx, game.ProfileUpdate{HoldingID: &h.ID}); err != nil {
		return nil, err
	}
	s.PostEvent(ctx, model.EventInfo, fmt.Sprintf("%s founded the holding %s", h.LeaderName, h.Name))
	return &h, nil
}

// JoinHolding adds the player and their current balance to a holding.
func (s *SocialService) JoinHolding(ctx context.Context, holdingID string) error {
	if _, err := s.currentUser(); err != nil {
		return err
	}
	st := s.store.Read()
	if st.User != nil && st.User.HoldingID != "" {
		return ErrAlreadyInHolding
	}
	if err := s.holdings.AddMember(ctx, holdingID, st.Money); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return game.ErrNotFound
		}
		return err
	}
	return s.store.UpdateProfile(ctx, game.ProfileUpdate{HoldingID: &holdingID})
}

func inviteTopic(userID string) string {
	return "invites:" + userID
}

// SendInvite challenges another player to a duel for amount.
func (s *SocialService) SendInvite(ctx context.Context, toID, gameType string, amount float64) (*model.Invite, error) {
	user, err := s.currentUser()
	if err != nil {
		return nil, err
	}
	toID = strings.TrimSpace(toID)
	if toID == "" || toID == user.ID || amount <= 0 {
		return nil, fmt.Errorf("%w: invite needs another player and a positive stake", game.ErrInvalidArgument)
	}
	if s.store.Read().Money < amount {
		return nil, game.ErrInsufficientFunds
	}
	if gameType == "" {
		gameType = DefaultDuelGame
	}

	inv := model.Invite{
		ID:        s.newID(),
		FromID:    user.ID,
		FromName:  s.username(),
		ToID:      toID,
		GameType:  gameType,
		Amount:    amount,
		Timestamp: s.nowMillis(),
	}
	if err := s.invites.CreateInvite(ctx, inv); err != nil {
		return nil, err
	}
	if data, err := json.Marshal(inv); err == nil {
		if err := s.hub.Publish(ctx, inviteTopic(toID), data); err != nil {
			log.Printf("[SocialService] Invite delivery to %s failed: %v", toID, err)
		}
	}
	return &inv, nil
}

// Invites lists the invitations addressed to the player, oldest first.
func (s *SocialService) Invites(ctx context.Context) ([]model.Invite, error) {
	user, err := s.currentUser()
	if err != nil {
		return nil, err
	}
	return s.invites.InvitesFor(ctx, user.ID)
}

func (s *SocialService) ownInvite(ctx context.Context, id string) (*model.Invite, error) {
	user, err := s.currentUser()
	if err != nil {
		return nil, err
	}
	inv, err := s.invites.GetInvite(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, game.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if inv.ToID != user.ID {
		return nil, game.ErrNotFound
	}
	return inv, nil
}

// AcceptInvite plays the duel of an invitation. The opponent is simulated:
// the player wins the stake with probability DuelWinChance and loses it
// otherwise.
func (s *SocialService) AcceptInvite(ctx context.Context, id string) (*DuelResult, error) {
	inv, err := s.ownInvite(ctx, id)
	if err != nil {
		return nil, err
	}
	res := &DuelResult{Invite: *inv, Won: s.roll() < DuelWinChance}
	res.Delta = -inv.Amount
	if res.Won {
		res.Delta = inv.Amount
	}
	err = s.store.Wager(ctx, inv.Amount, res.Won, func(ctx context.Context) error {
		removed, err := s.invites.DeleteInvite(ctx, inv.ID)
		if err != nil {
			return err
		}
		if !removed {
			return game.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.Won {
		kind := model.EventWin
		if inv.Amount >= JackpotThreshold {
			kind = model.EventJackpot
		}
		s.PostEvent(ctx, kind, fmt.Sprintf("%s won %.0f at %s against %s", s.username(), inv.Amount, inv.GameType, inv.FromName))
	}
	return res, nil
}

// DeclineInvite deletes an invitation without playing it.
func (s *SocialService) DeclineInvite(ctx context.Context, id string) error {
	inv, err := s.ownInvite(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.invites.DeleteInvite(ctx, inv.ID); err != nil {
		return err
	}
	return nil
}

// SubscribeInvites streams invitations sent to the player from now on.
func (s *SocialService) SubscribeInvites(ctx context.Context) (*realtime.Subscription, error) {
	user, err := s.currentUser()
	if err != nil {
		return nil, err
	}
	return s.hub.Subscribe(ctx, inviteTopic(user.ID))
}

// PostEvent announces an event on the public ticker. Failures are logged.
func (s *SocialService) PostEvent(ctx context.Context, kind, message string) {
	ev := model.PublicEvent{
		Kind:      kind,
		Message:   message,
		Username:  s.username(),
		Timestamp: s.nowMillis(),
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := s.hub.PushFeed(ctx, eventsFeed, data, EventFeedSize); err != nil {
		log.Printf("[SocialService] Event feed write failed: %v", err)
	}
	if err := s.hub.Publish(ctx, eventsTopic, data); err != nil {
		log.Printf("[SocialService] Event publish failed: %v", err)
	}
}

// RecentEvents returns the latest public events, newest first.
func (s *SocialService) RecentEvents(ctx context.Context) ([]model.PublicEvent, error) {
	raw, err := s.hub.RecentFeed(ctx, eventsFeed, EventFeedSize)
	if err != nil {
		return nil, err
	}
	events := make([]model.PublicEvent, 0, len(raw))
	for _, r := range raw {
		var ev model.PublicEvent
		if err := json.Unmarshal(r, &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// SubscribeEvents streams public events from now on.
func (s *SocialService) SubscribeEvents(ctx context.Context) (*realtime.Subscription, error) {
	return s.hub.Subscribe(ctx, eventsTopic)
}
