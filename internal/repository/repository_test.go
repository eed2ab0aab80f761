package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"tycoon-engine/internal/model"
)

func testLocalSaves(t *testing.T, repo LocalSaveRepository) {
	t.Helper()
	ctx := context.Background()

	got, err := repo.GetSave(ctx, "slot")
	if err != nil || got != nil {
		t.Fatalf("expected no save, got %+v (%v)", got, err)
	}

	savedAt := time.UnixMilli(1700000000000)
	rec := model.SaveRecord{Key: "slot", Codec: "zstd", Checksum: "abc", Payload: []byte{1, 2, 3}, SavedAt: savedAt}
	if err := repo.PutSave(ctx, rec); err != nil {
		t.Fatalf("PutSave: %v", err)
	}
	rec.Payload = []byte{4, 5}
	rec.Checksum = "def"
	if err := repo.PutSave(ctx, rec); err != nil {
		t.Fatalf("PutSave overwrite: %v", err)
	}

	got, err = repo.GetSave(ctx, "slot")
	if err != nil || got == nil {
		t.Fatalf("GetSave: %+v (%v)", got, err)
	}
	if got.Checksum != "def" || !bytes.Equal(got.Payload, []byte{4, 5}) || !got.SavedAt.Equal(savedAt) {
		t.Fatalf("unexpected record %+v", got)
	}

	if err := repo.DeleteSave(ctx, "slot"); err != nil {
		t.Fatalf("DeleteSave: %v", err)
	}
	if got, _ := repo.GetSave(ctx, "slot"); got != nil {
		t.Fatalf("save should be gone")
	}
	if err := repo.DeleteSave(ctx, "slot"); err != nil {
		t.Fatalf("deleting a missing save must not fail: %v", err)
	}
}

func TestMemoryLocalSaves(t *testing.T) {
	testLocalSaves(t, NewMemoryRepository())
}

func TestSQLiteLocalSaves(t *testing.T) {
	repo, err := NewSQLiteLocalSaveRepository(filepath.Join(t.TempDir(), "saves.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer repo.Close()
	testLocalSaves(t, repo)
}

func TestMemoryPlayerMerge(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	if err := repo.SetPlayer(ctx, "u1", []byte(`{"money": 10, "day": 2}`), true); err != nil {
		t.Fatal(err)
	}
	if err := repo.SetPlayer(ctx, "u1", []byte(`{"money": 20}`), true); err != nil {
		t.Fatal(err)
	}
	raw, err := repo.GetPlayer(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]float64
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatal(err)
	}
	if doc["money"] != 20 || doc["day"] != 2 {
		t.Fatalf("merge lost fields: %v", doc)
	}

	if err := repo.SetPlayer(ctx, "u1", []byte(`{"money": 30}`), false); err != nil {
		t.Fatal(err)
	}
	raw, _ = repo.GetPlayer(ctx, "u1")
	doc = nil
	json.Unmarshal(raw, &doc)
	if _, ok := doc["day"]; ok || doc["money"] != 30 {
		t.Fatalf("replace should drop old fields: %v", doc)
	}

	if raw, err := repo.GetPlayer(ctx, "nobody"); err != nil || raw != nil {
		t.Fatalf("expected no document, got %s (%v)", raw, err)
	}
}

func TestMemoryTopPlayers(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	for id, money := range map[string]float64{"a": 5, "b": 50, "c": 500} {
		doc, _ := json.Marshal(map[string]any{"leaderboardStats": model.LeaderboardStats{Money: money, Username: id}})
		if err := repo.SetPlayer(ctx, id, doc, true); err != nil {
			t.Fatal(err)
		}
	}
	repo.SetPlayer(ctx, "nostats", []byte(`{"money": 1e9}`), true)

	top, err := repo.TopPlayers(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 2 || top[0].ID != "c" || top[1].ID != "b" || top[0].Username != "c" {
		t.Fatalf("unexpected leaderboard %+v", top)
	}
}

func TestMemoryMarketDeleteIfExists(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	repo.CreateListing(ctx, model.MarketItem{ID: "old", Timestamp: 1})
	repo.CreateListing(ctx, model.MarketItem{ID: "new", Timestamp: 2})

	items, _ := repo.ListListings(ctx, 10)
	if len(items) != 2 || items[0].ID != "new" {
		t.Fatalf("expected newest first, got %+v", items)
	}

	removed, err := repo.DeleteListing(ctx, "old")
	if err != nil || !removed {
		t.Fatalf("first delete should win: %v %v", removed, err)
	}
	removed, err = repo.DeleteListing(ctx, "old")
	if err != nil || removed {
		t.Fatalf("second delete should lose: %v %v", removed, err)
	}
	if _, err := repo.GetListing(ctx, "old"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryHoldingsAndInvites(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	repo.CreateHolding(ctx, model.Holding{ID: "h1", Name: "One", TotalValuation: 100, MembersCount: 1})
	repo.CreateHolding(ctx, model.Holding{ID: "h2", Name: "Two", TotalValuation: 50, MembersCount: 1})
	if err := repo.AddMember(ctx, "h2", 100); err != nil {
		t.Fatal(err)
	}
	top, _ := repo.TopHoldings(ctx, 1)
	if len(top) != 1 || top[0].ID != "h2" || top[0].MembersCount != 2 {
		t.Fatalf("unexpected holdings %+v", top)
	}
	if err := repo.AddMember(ctx, "missing", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	repo.CreateInvite(ctx, model.Invite{ID: "i2", ToID: "bob", Timestamp: 2})
	repo.CreateInvite(ctx, model.Invite{ID: "i1", ToID: "bob", Timestamp: 1})
	repo.CreateInvite(ctx, model.Invite{ID: "i3", ToID: "carol", Timestamp: 3})
	invites, _ := repo.InvitesFor(ctx, "bob")
	if len(invites) != 2 || invites[0].ID != "i1" {
		t.Fatalf("unexpected invites %+v", invites)
	}
	if ok, _ := repo.DeleteInvite(ctx, "i1"); !ok {
		t.Fatalf("expected invite to be deleted")
	}

	n, err := repo.DeleteInvitesBefore(ctx, 3)
	if err != nil || n != 1 {
		t.Fatalf("expected one expired invite, got %d (%v)", n, err)
	}
	if _, err := repo.GetInvite(ctx, "i3"); err != nil {
		t.Fatalf("recent invite should survive: %v", err)
	}
}

func TestMemoryAccounts(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	acc := model.Account{ID: "a1", Provider: model.ProviderGoogle, Subject: "sub-1", DisplayName: "Ann"}
	if err := repo.CreateAccount(ctx, acc); err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateAccount(ctx, acc); err == nil {
		t.Fatalf("duplicate account id should fail")
	}
	got, err := repo.FindAccount(ctx, model.ProviderGoogle, "sub-1")
	if err != nil || got.ID != "a1" {
		t.Fatalf("FindAccount: %+v %v", got, err)
	}
	if _, err := repo.FindAccount(ctx, model.ProviderGoogle, "other"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSplitCloudRepository(t *testing.T) {
	ctx := context.Background()
	players := NewMemoryRepository()
	social := NewMemoryRepository()
	cloud := NewSplitCloudRepository(players, social)

	if err := cloud.SetPlayer(ctx, "u1", []byte(`{"money":1}`), false); err != nil {
		t.Fatal(err)
	}
	if err := cloud.CreateListing(ctx, model.MarketItem{ID: "l1"}); err != nil {
		t.Fatal(err)
	}
	if doc, _ := players.GetPlayer(ctx, "u1"); doc == nil {
		t.Fatalf("player document should live in the player store")
	}
	if _, err := social.GetListing(ctx, "l1"); err != nil {
		t.Fatalf("listing should live in the social store: %v", err)
	}
	if _, err := players.GetListing(ctx, "l1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("listing leaked into the player store: %v", err)
	}
}
