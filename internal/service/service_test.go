package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"tycoon-engine/internal/cache"
	"tycoon-engine/internal/clock"
	"tycoon-engine/internal/game"
	"tycoon-engine/internal/model"
	"tycoon-engine/internal/persistence"
	"tycoon-engine/internal/realtime"
	"tycoon-engine/internal/repository"
)

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

type constRand float64

func (r constRand) Float64() float64 { return float64(r) }

type fixture struct {
	clock    *clock.FakeClock
	store    *game.Store
	repo     *repository.MemoryRepository
	cache    *cache.MemoryCache
	hub      *realtime.MemoryHub
	identity *IdentityService
	session  *SessionService
	adapter  *persistence.Adapter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewFakeClock(t0)
	store := game.New(game.Options{Clock: clk})
	t.Cleanup(func() { store.Close() })

	repo := repository.NewMemoryRepository()
	c := cache.NewMemoryCache()
	t.Cleanup(func() { c.Close() })
	hub := realtime.NewMemoryHub()
	t.Cleanup(func() { hub.Close() })

	identity := NewIdentityService(repo, NewTokenService(c, 0))
	adapter := persistence.NewAdapter(persistence.Options{Store: store, Local: repo, Cloud: repo, Users: identity})
	return &fixture{
		clock:    clk,
		store:    store,
		repo:     repo,
		cache:    c,
		hub:      hub,
		identity: identity,
		session:  NewSessionService(identity, adapter),
		adapter:  adapter,
	}
}

func (f *fixture) social(rnd float64) *SocialService {
	n := 0
	return NewSocialService(SocialDeps{
		Store: f.store,
		Users: f.identity,
		Cloud: f.repo,
		Cache: f.cache,
		Hub:   f.hub,
		Rand:  constRand(rnd),
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
	})
}

func TestTokenLifecycle(t *testing.T) {
	c := cache.NewMemoryCache()
	defer c.Close()
	tokens := NewTokenService(c, time.Hour)
	ctx := context.Background()

	token, err := tokens.GenerateToken(ctx, model.TokenData{UserID: "u1", DisplayName: "Ann"})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	data, err := tokens.ValidateToken(ctx, token)
	if err != nil || data.UserID != "u1" {
		t.Fatalf("ValidateToken: %+v %v", data, err)
	}
	if _, err := tokens.ValidateToken(ctx, "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for bad format, got %v", err)
	}

	tokens.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := tokens.ValidateToken(ctx, token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token, got %v", err)
	}

	tokens.now = time.Now
	token, _ = tokens.GenerateToken(ctx, model.TokenData{UserID: "u2"})
	if err := tokens.RevokeToken(ctx, token); err != nil {
		t.Fatal(err)
	}
	if _, err := tokens.ValidateToken(ctx, token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected revoked token to fail, got %v", err)
	}
}

func TestIdentityProviderAccountsAreReused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, _, err := f.identity.SignInWithProvider(ctx, "Google", "sub-1", "Ann")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	second, token, err := f.identity.SignInWithProvider(ctx, "google", "sub-1", "Ann")
	if err != nil {
		t.Fatalf("sign in again: %v", err)
	}
	if first.ID != second.ID || second.IsAnonymous {
		t.Fatalf("expected the same account, got %+v and %+v", first, second)
	}
	if _, err := f.identity.Authenticate(ctx, token); err != nil {
		t.Fatalf("current token should authenticate: %v", err)
	}
	if _, _, err := f.identity.SignInWithProvider(ctx, "myspace", "x", ""); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestAuthStateChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ch, stop := f.identity.AuthStateChanges()
	defer stop()
	if u := <-ch; u != nil {
		t.Fatalf("expected signed-out initial state, got %+v", u)
	}

	user, oldToken, err := f.identity.SignInAnonymously(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if u := <-ch; u == nil || u.ID != user.ID || !u.IsAnonymous {
		t.Fatalf("expected guest sign-in, got %+v", u)
	}

	if err := f.identity.SignOut(ctx); err != nil {
		t.Fatal(err)
	}
	if u := <-ch; u != nil {
		t.Fatalf("expected sign-out, got %+v", u)
	}
	if f.identity.CurrentUser() != nil {
		t.Fatalf("CurrentUser should be nil after sign-out")
	}
	if _, err := f.identity.Authenticate(ctx, oldToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("old token must be revoked, got %v", err)
	}

	stop()
	stop()
	if _, ok := <-ch; ok {
		t.Fatalf("stopped stream should be closed")
	}
}

func TestSessionNewAccountNeedsProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.session.SignInWithProvider(ctx, "google", "sub-1", "Ann")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if !res.NeedsProfile || res.SuggestedUsername != "Ann" || res.Token == "" {
		t.Fatalf("unexpected result %+v", res)
	}

	if err := f.session.InitializeNewUser(ctx, "  Annie  "); err != nil {
		t.Fatalf("InitializeNewUser: %v", err)
	}
	if got := f.store.Read().User.Username; got != "Annie" {
		t.Fatalf("expected Annie, got %q", got)
	}

	// The profile change forces a save; do it synchronously here.
	if err := f.adapter.SaveCloud(ctx); err != nil {
		t.Fatalf("SaveCloud: %v", err)
	}
	if err := f.session.SignOut(ctx); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if f.store.Read().User.Username != "Entrepreneur" {
		t.Fatalf("sign-out should reset the game")
	}

	res, err = f.session.SignInWithProvider(ctx, "google", "sub-1", "Ann")
	if err != nil {
		t.Fatal(err)
	}
	if res.NeedsProfile {
		t.Fatalf("returning account should not need a profile")
	}
	if got := f.store.Read().User.Username; got != "Annie" {
		t.Fatalf("cloud save not restored, username %q", got)
	}
}

func TestInitializeNewUserRequiresSignIn(t *testing.T) {
	f := newFixture(t)
	if err := f.session.InitializeNewUser(context.Background(), "Ann"); !errors.Is(err, persistence.ErrNoUser) {
		t.Fatalf("expected ErrNoUser, got %v", err)
	}
}

func TestLeaderboardIsCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.social(0)

	doc, _ := json.Marshal(map[string]any{"leaderboardStats": model.LeaderboardStats{Money: 10, Username: "a"}})
	f.repo.SetPlayer(ctx, "a", doc, true)

	top, err := s.Leaderboard(ctx)
	if err != nil || len(top) != 1 || top[0].ID != "a" {
		t.Fatalf("unexpected leaderboard %+v (%v)", top, err)
	}

	doc, _ = json.Marshal(map[string]any{"leaderboardStats": model.LeaderboardStats{Money: 99, Username: "b"}})
	f.repo.SetPlayer(ctx, "b", doc, true)
	top, _ = s.Leaderboard(ctx)
	if len(top) != 1 {
		t.Fatalf("expected cached leaderboard, got %+v", top)
	}

	f.cache.Clear(ctx)
	top, _ = s.Leaderboard(ctx)
	if len(top) != 2 || top[0].ID != "b" {
		t.Fatalf("expected refreshed leaderboard, got %+v", top)
	}
}

func TestMarketSniperProtection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.social(0)
	f.identity.SignInWithProvider(ctx, "google", "buyer", "Buyer")

	fresh := model.MarketItem{ID: "fresh", SellerID: "seller", Type: "WATCH", Price: 100, Timestamp: t0.UnixMilli() - 9999}
	f.repo.CreateListing(ctx, fresh)

	if _, err := s.Buy(ctx, "fresh"); !errors.Is(err, ErrSniperProtection) {
		t.Fatalf("expected ErrSniperProtection, got %v", err)
	}
	if _, err := f.repo.GetListing(ctx, "fresh"); err != nil {
		t.Fatalf("protected listing must not be deleted: %v", err)
	}
	if f.store.Read().Money != 2000 {
		t.Fatalf("protected purchase must not move money")
	}

	f.clock.Advance(time.Second)
	item, err := s.Buy(ctx, "fresh")
	if err != nil || item.ID != "fresh" {
		t.Fatalf("expected purchase after the window, got %v", err)
	}
	if f.store.Read().Money != 1900 {
		t.Fatalf("expected 1900, got %v", f.store.Read().Money)
	}
	if _, err := s.Buy(ctx, "fresh"); !errors.Is(err, ErrSold) {
		t.Fatalf("expected ErrSold, got %v", err)
	}
}

func TestMarketBuyChecksFundsFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.social(0)
	f.identity.SignInWithProvider(ctx, "google", "buyer", "Buyer")

	f.repo.CreateListing(ctx, model.MarketItem{ID: "yacht", SellerID: "seller", Type: "YACHT", Price: 1e6, Timestamp: 0})
	if _, err := s.Buy(ctx, "yacht"); !errors.Is(err, game.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if _, err := f.repo.GetListing(ctx, "yacht"); err != nil {
		t.Fatalf("unaffordable listing must stay listed: %v", err)
	}
}

func TestMarketSell(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.social(0)

	if _, err := s.Sell(ctx, SellRequest{Type: "WATCH", Price: 10}); !errors.Is(err, persistence.ErrNoUser) {
		t.Fatalf("expected ErrNoUser, got %v", err)
	}
	user, _, _ := f.identity.SignInWithProvider(ctx, "google", "seller", "Seller")
	if _, err := s.Sell(ctx, SellRequest{Type: "WATCH", Price: 0}); !errors.Is(err, game.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	item, err := s.Sell(ctx, SellRequest{Type: "WATCH", Price: 10})
	if err != nil {
		t.Fatalf("Sell: %v", err)
	}
	if item.SellerID != user.ID || item.Rarity != model.RarityCommon || item.Timestamp != t0.UnixMilli() {
		t.Fatalf("unexpected listing %+v", item)
	}
	listings, _ := s.MarketListings(ctx)
	if len(listings) != 1 {
		t.Fatalf("expected one listing, got %d", len(listings))
	}
	if _, err := s.Buy(ctx, item.ID); !errors.Is(err, game.ErrInvalidArgument) {
		t.Fatalf("buying your own listing should fail, got %v", err)
	}
}

func TestHoldings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.social(0)
	f.identity.SignInWithProvider(ctx, "google", "lead", "Lead")

	h, err := s.CreateHolding(ctx, "Acme")
	if err != nil {
		t.Fatalf("CreateHolding: %v", err)
	}
	if f.store.Read().User.HoldingID != h.ID || h.MembersCount != 1 {
		t.Fatalf("holding not joined: %+v", h)
	}
	if _, err := s.CreateHolding(ctx, "Second"); !errors.Is(err, ErrAlreadyInHolding) {
		t.Fatalf("expected ErrAlreadyInHolding, got %v", err)
	}
	if err := s.JoinHolding(ctx, h.ID); !errors.Is(err, ErrAlreadyInHolding) {
		t.Fatalf("expected ErrAlreadyInHolding on join, got %v", err)
	}

	f.repo.CreateHolding(ctx, model.Holding{ID: "other", Name: "Other", MembersCount: 3, TotalValuation: 1})
	empty := ""
	f.store.UpdateProfile(ctx, game.ProfileUpdate{HoldingID: &empty})
	if err := s.JoinHolding(ctx, "missing"); !errors.Is(err, game.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.JoinHolding(ctx, "other"); err != nil {
		t.Fatalf("JoinHolding: %v", err)
	}
	other, _ := f.repo.GetHolding(ctx, "other")
	if other.MembersCount != 4 || other.TotalValuation != 2001 {
		t.Fatalf("unexpected holding after join: %+v", other)
	}

	top, _ := s.Holdings(ctx)
	if len(top) != 2 || top[0].ID != other.ID {
		t.Fatalf("unexpected holdings ranking %+v", top)
	}
}

func TestInviteDuel(t *testing.T) {
	for _, tc := range []struct {
		name  string
		roll  float64
		money float64
		kind  string
	}{
		{"win", 0.2, 2500, model.EventWin},
		{"loss", 0.7, 1500, ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			s := f.social(tc.roll)
			me, _, _ := f.identity.SignInWithProvider(ctx, "google", "me", "Me")

			sub, err := s.SubscribeInvites(ctx)
			if err != nil {
				t.Fatal(err)
			}
			defer sub.Close()

			// Another player sends the invite.
			f.repo.CreateInvite(ctx, model.Invite{ID: "inv", FromID: "rival", FromName: "Rival", ToID: me.ID, GameType: "BLACKJACK", Amount: 500, Timestamp: 1})

			invites, _ := s.Invites(ctx)
			if len(invites) != 1 {
				t.Fatalf("expected one invite, got %d", len(invites))
			}
			res, err := s.AcceptInvite(ctx, "inv")
			if err != nil {
				t.Fatalf("AcceptInvite: %v", err)
			}
			if f.store.Read().Money != tc.money {
				t.Fatalf("expected %v, got %v", tc.money, f.store.Read().Money)
			}
			if res.Won != (tc.kind != "") {
				t.Fatalf("unexpected duel result %+v", res)
			}
			events, _ := s.RecentEvents(ctx)
			if tc.kind == "" && len(events) != 0 {
				t.Fatalf("losses are not announced, got %+v", events)
			}
			if tc.kind != "" && (len(events) != 1 || events[0].Kind != tc.kind) {
				t.Fatalf("expected a %s event, got %+v", tc.kind, events)
			}
			if _, err := s.AcceptInvite(ctx, "inv"); !errors.Is(err, game.ErrNotFound) {
				t.Fatalf("invite should be consumed, got %v", err)
			}
		})
	}
}

func TestAcceptInviteNeedsStake(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.social(0.7)
	me, _, _ := f.identity.SignInWithProvider(ctx, "google", "me", "Me")

	f.repo.CreateInvite(ctx, model.Invite{ID: "big", FromID: "rival", ToID: me.ID, GameType: "BLACKJACK", Amount: 5000, Timestamp: 1})
	if _, err := s.AcceptInvite(ctx, "big"); !errors.Is(err, game.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if invites, _ := s.Invites(ctx); len(invites) != 1 {
		t.Fatalf("an unaffordable invite must stay pending, got %d", len(invites))
	}

	// Money spent elsewhere between listing and accepting is honoured.
	f.repo.CreateInvite(ctx, model.Invite{ID: "all-in", FromID: "rival", ToID: me.ID, GameType: "BLACKJACK", Amount: 2000, Timestamp: 2})
	if err := f.store.SpendMoney(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AcceptInvite(ctx, "all-in"); !errors.Is(err, game.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if money := f.store.Read().Money; money != 1999 {
		t.Fatalf("a refused duel must not move money, got %v", money)
	}
}

func TestSendInviteIsDelivered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.social(0)
	f.identity.SignInWithProvider(ctx, "google", "me", "Me")

	sub, _ := f.hub.Subscribe(ctx, inviteTopic("bob"))
	defer sub.Close()

	if _, err := s.SendInvite(ctx, "bob", "", 1e9); !errors.Is(err, game.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	inv, err := s.SendInvite(ctx, "bob", "", 100)
	if err != nil {
		t.Fatalf("SendInvite: %v", err)
	}
	if inv.GameType != DefaultDuelGame || inv.FromName != "Entrepreneur" {
		t.Fatalf("unexpected invite %+v", inv)
	}

	select {
	case data := <-sub.C():
		var got model.Invite
		json.Unmarshal(data, &got)
		if got.ID != inv.ID {
			t.Fatalf("delivered wrong invite %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("invite not delivered")
	}
}

func TestDeclineInviteOnlyForRecipient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.social(0)
	f.identity.SignInWithProvider(ctx, "google", "me", "Me")

	f.repo.CreateInvite(ctx, model.Invite{ID: "theirs", ToID: "someone-else", Amount: 1})
	if err := s.DeclineInvite(ctx, "theirs"); !errors.Is(err, game.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := f.repo.GetInvite(ctx, "theirs"); err != nil {
		t.Fatalf("foreign invite must survive: %v", err)
	}
}

func TestEventFeedIsCapped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.social(0)

	for i := 0; i < EventFeedSize+5; i++ {
		s.PostEvent(ctx, model.EventInfo, fmt.Sprintf("event %d", i))
	}
	events, err := s.RecentEvents(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != EventFeedSize || events[0].Message != fmt.Sprintf("event %d", EventFeedSize+4) {
		t.Fatalf("unexpected feed: %d events, newest %+v", len(events), events[0])
	}
}

func TestCleanupRemovesExpiredInvites(t *testing.T) {
	repo := repository.NewMemoryRepository()
	ctx := context.Background()
	now := time.Now()
	repo.CreateInvite(ctx, model.Invite{ID: "old", Timestamp: now.Add(-48 * time.Hour).UnixMilli()})
	repo.CreateInvite(ctx, model.Invite{ID: "new", Timestamp: now.UnixMilli()})

	s := NewCleanupScheduler(repo, CleanupConfig{})
	n, err := s.RunNow()
	if err != nil || n != 1 {
		t.Fatalf("expected one removal, got %d (%v)", n, err)
	}
	if _, err := repo.GetInvite(ctx, "new"); err != nil {
		t.Fatalf("fresh invite removed: %v", err)
	}

	s.Start()
	s.Stop()
	s.Stop()
}
