package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"tycoon-engine/internal/clock"
	"tycoon-engine/internal/game"
	"tycoon-engine/internal/model"
	"tycoon-engine/internal/repository"
)

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

type userSource struct {
	mu   sync.Mutex
	user *model.AuthUser
}

func (u *userSource) CurrentUser() *model.AuthUser {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.user
}

func (u *userSource) set(user *model.AuthUser) {
	u.mu.Lock()
	u.user = user
	u.mu.Unlock()
}

type fixture struct {
	store   *game.Store
	repo    *repository.MemoryRepository
	users   *userSource
	adapter *Adapter
}

func newFixture(t *testing.T, codec Codec) *fixture {
	t.Helper()
	store := game.New(game.Options{Clock: clock.NewFakeClock(t0)})
	t.Cleanup(func() { store.Close() })

	repo := repository.NewMemoryRepository()
	users := &userSource{}
	adapter := NewAdapter(Options{
		Store: store,
		Local: repo,
		Cloud: repo,
		Users: users,
		Codec: codec,
	})
	return &fixture{store: store, repo: repo, users: users, adapter: adapter}
}

func TestCodecs(t *testing.T) {
	data := bytes.Repeat([]byte(`{"money":2000,"day":1}`), 50)
	for _, c := range []Codec{CodecNone, CodecZstd, CodecLZ4} {
		enc, err := c.Encode(data)
		if err != nil {
			t.Fatalf("%s encode: %v", c, err)
		}
		if c != CodecNone && len(enc) >= len(data) {
			t.Fatalf("%s did not compress: %d >= %d", c, len(enc), len(data))
		}
		dec, err := c.Decode(enc)
		if err != nil {
			t.Fatalf("%s decode: %v", c, err)
		}
		if !bytes.Equal(dec, data) {
			t.Fatalf("%s round trip mismatch", c)
		}
	}

	if _, err := ParseCodec("gzip"); err == nil {
		t.Fatalf("unknown codec should be rejected")
	}
	if c, _ := ParseCodec(""); c != CodecZstd {
		t.Fatalf("empty codec should default to zstd, got %s", c)
	}
}

func TestChecksumIsStable(t *testing.T) {
	a := Checksum([]byte("save"))
	if a != Checksum([]byte("save")) || a == Checksum([]byte("save!")) || len(a) != 64 {
		t.Fatalf("unexpected checksum behavior: %s", a)
	}
}

func TestValidateSnapshot(t *testing.T) {
	f := newFixture(t, CodecNone)
	raw, _ := json.Marshal(f.store.Read())
	if err := ValidateSnapshot(raw); err != nil {
		t.Fatalf("default state should validate: %v", err)
	}
	if err := ValidateSnapshot([]byte(`{"money": "lots"}`)); err == nil {
		t.Fatalf("string money should be rejected")
	}
	if err := ValidateSnapshot([]byte(`{"companies": [{"name": "no id"}]}`)); err == nil {
		t.Fatalf("company without id should be rejected")
	}
	if err := ValidateSnapshot([]byte(`{}`)); err != nil {
		t.Fatalf("empty object should validate: %v", err)
	}
}

func TestLocalRoundTrip(t *testing.T) {
	for _, codec := range []Codec{CodecZstd, CodecLZ4} {
		f := newFixture(t, codec)
		ctx := context.Background()

		if err := f.store.AddMoney(ctx, 1234); err != nil {
			t.Fatal(err)
		}
		want := f.store.Read().Money
		if err := f.adapter.SaveLocal(ctx); err != nil {
			t.Fatalf("SaveLocal: %v", err)
		}
		if err := f.store.Reset(ctx); err != nil {
			t.Fatal(err)
		}

		st, err := f.adapter.LoadLocal(ctx)
		if err != nil {
			t.Fatalf("LoadLocal: %v", err)
		}
		if st.Money != want || f.store.Read().Money != want {
			t.Fatalf("%s: expected money %v, got %v", codec, want, f.store.Read().Money)
		}
	}
}

func TestLoadLocalMissing(t *testing.T) {
	f := newFixture(t, CodecZstd)
	if _, err := f.adapter.LoadLocal(context.Background()); !errors.Is(err, ErrNoSave) {
		t.Fatalf("expected ErrNoSave, got %v", err)
	}
}

func TestLoadLocalCorruptKeepsState(t *testing.T) {
	f := newFixture(t, CodecNone)
	ctx := context.Background()
	before := f.store.Read()

	badChecksum := model.SaveRecord{Key: DefaultSaveKey, Codec: "none", Checksum: "00", Payload: []byte(`{"money":1}`)}
	f.repo.PutSave(ctx, badChecksum)
	if _, err := f.adapter.LoadLocal(ctx); !errors.Is(err, ErrCorruptSave) {
		t.Fatalf("expected ErrCorruptSave for checksum, got %v", err)
	}

	garbage := []byte(`{"money":`)
	f.repo.PutSave(ctx, model.SaveRecord{Key: DefaultSaveKey, Codec: "none", Checksum: Checksum(garbage), Payload: garbage})
	if _, err := f.adapter.LoadLocal(ctx); !errors.Is(err, ErrCorruptSave) {
		t.Fatalf("expected ErrCorruptSave for truncated JSON, got %v", err)
	}

	zstdLabel := []byte("not zstd at all")
	f.repo.PutSave(ctx, model.SaveRecord{Key: DefaultSaveKey, Codec: "zstd", Checksum: Checksum(zstdLabel), Payload: zstdLabel})
	if _, err := f.adapter.LoadLocal(ctx); !errors.Is(err, ErrCorruptSave) {
		t.Fatalf("expected ErrCorruptSave for bad compression, got %v", err)
	}

	if f.store.Read() != before {
		t.Fatalf("failed loads must not touch the state")
	}
}

func TestLoadLocalMergesOldSave(t *testing.T) {
	f := newFixture(t, CodecNone)
	ctx := context.Background()

	old := []byte(`{"money": 42, "hasCompletedIntro": true, "freelanceUpgrades": {"chairLevel": 1}}`)
	f.repo.PutSave(ctx, model.SaveRecord{Key: DefaultSaveKey, Codec: "none", Checksum: Checksum(old), Payload: old})

	st, err := f.adapter.LoadLocal(ctx)
	if err != nil {
		t.Fatalf("LoadLocal: %v", err)
	}
	if st.Money != 42 || !st.HasCompletedIntro || st.Day != 1 {
		t.Fatalf("unexpected merged state: money=%v intro=%v day=%d", st.Money, st.HasCompletedIntro, st.Day)
	}
	if !st.FreelanceUpgrades.OwnsTheme(model.DefaultThemeID) || st.FreelanceUpgrades.ActiveThemeID != model.DefaultThemeID {
		t.Fatalf("theme migration missing: %+v", st.FreelanceUpgrades)
	}
	if len(st.Companies) != 4 {
		t.Fatalf("expected default companies, got %d", len(st.Companies))
	}
}

func TestSaveCloudGuards(t *testing.T) {
	f := newFixture(t, CodecZstd)
	ctx := context.Background()

	if err := f.adapter.SaveCloud(ctx); !errors.Is(err, ErrNoUser) {
		t.Fatalf("expected ErrNoUser, got %v", err)
	}

	f.users.set(&model.AuthUser{ID: "guest", IsAnonymous: true})
	if err := f.adapter.SaveCloud(ctx); !errors.Is(err, ErrSaveSuppressed) {
		t.Fatalf("expected ErrSaveSuppressed, got %v", err)
	}
	if raw, _ := f.repo.GetPlayer(ctx, "guest"); raw != nil {
		t.Fatalf("suppressed save wrote a document")
	}

	if err := f.store.CompleteIntro(ctx); err != nil {
		t.Fatal(err)
	}
	if err := f.adapter.SaveCloud(ctx); err != nil {
		t.Fatalf("guest after intro should save: %v", err)
	}
}

func TestSaveCloudWritesPlayerDocument(t *testing.T) {
	f := newFixture(t, CodecZstd)
	ctx := context.Background()
	f.users.set(&model.AuthUser{ID: "u1", DisplayName: "Ann"})

	f.repo.SetPlayer(ctx, "u1", []byte(`{"customField": "kept"}`), false)
	if err := f.adapter.SaveCloud(ctx); err != nil {
		t.Fatalf("SaveCloud: %v", err)
	}
	if err := f.adapter.SaveCloud(ctx); err != nil {
		t.Fatalf("SaveCloud: %v", err)
	}

	raw, err := f.repo.GetPlayer(ctx, "u1")
	if err != nil || raw == nil {
		t.Fatalf("GetPlayer: %s %v", raw, err)
	}
	var doc struct {
		Money            float64                `json:"money"`
		CustomField      string                 `json:"customField"`
		Stats            model.PlayerStats      `json:"stats"`
		LeaderboardStats model.LeaderboardStats `json:"leaderboardStats"`
		LastUpdated      int64                  `json:"lastUpdated"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.CustomField != "kept" {
		t.Fatalf("merge write dropped unrelated fields")
	}
	if doc.Stats.TotalPlayTimeMinutes != 2 {
		t.Fatalf("expected 2 play minutes, got %v", doc.Stats.TotalPlayTimeMinutes)
	}
	if doc.LeaderboardStats.Money != doc.Money || doc.LeaderboardStats.Username != "Entrepreneur" {
		t.Fatalf("unexpected leaderboard stats %+v", doc.LeaderboardStats)
	}
	if doc.LastUpdated != t0.UnixMilli() || f.store.Read().LastSavedAt != t0.UnixMilli() {
		t.Fatalf("save timestamps not stamped")
	}
}

func TestLoadCloud(t *testing.T) {
	f := newFixture(t, CodecZstd)
	ctx := context.Background()
	before := f.store.Read()

	if _, err := f.adapter.LoadCloud(ctx, "u1"); !errors.Is(err, ErrNoSave) {
		t.Fatalf("expected ErrNoSave, got %v", err)
	}
	if f.store.Read() != before {
		t.Fatalf("missing document must leave the state alone")
	}

	f.repo.SetPlayer(ctx, "u1", []byte(`{"money": 777, "day": 9, "hasCompletedIntro": true, "leaderboardStats": {"money": 777}}`), false)
	st, err := f.adapter.LoadCloud(ctx, "u1")
	if err != nil {
		t.Fatalf("LoadCloud: %v", err)
	}
	if st.Money != 777 || st.Day != 9 || f.store.Read().Money != 777 {
		t.Fatalf("cloud state not applied: %+v", st)
	}

	f.repo.SetPlayer(ctx, "bad", []byte(`{"day": "nine"}`), false)
	if _, err := f.adapter.LoadCloud(ctx, "bad"); !errors.Is(err, ErrCorruptSave) {
		t.Fatalf("expected ErrCorruptSave, got %v", err)
	}
	if f.store.Read().Money != 777 {
		t.Fatalf("corrupt document must leave the state alone")
	}
}

func TestClearLocal(t *testing.T) {
	f := newFixture(t, CodecZstd)
	ctx := context.Background()
	f.adapter.SaveLocal(ctx)
	if err := f.adapter.ClearLocal(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := f.adapter.LoadLocal(ctx); !errors.Is(err, ErrNoSave) {
		t.Fatalf("expected ErrNoSave after clear, got %v", err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestAutosaveDebouncedLocalSave(t *testing.T) {
	f := newFixture(t, CodecZstd)
	ctx := context.Background()
	w := NewAutosave(f.adapter, AutosaveConfig{LocalInterval: time.Hour, CloudInterval: time.Hour, Debounce: 10 * time.Millisecond})
	f.store.SetSaver(w)
	w.Start()
	defer w.Close()

	if err := f.store.AddMoney(ctx, 5); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "local save", func() bool {
		rec, _ := f.repo.GetSave(ctx, DefaultSaveKey)
		return rec != nil
	})
}

func TestAutosaveForcedCloudSave(t *testing.T) {
	f := newFixture(t, CodecZstd)
	ctx := context.Background()
	f.users.set(&model.AuthUser{ID: "u1"})
	w := NewAutosave(f.adapter, AutosaveConfig{LocalInterval: time.Hour, CloudInterval: time.Hour, Debounce: time.Hour})
	f.store.SetSaver(w)
	w.Start()
	defer w.Close()

	if err := f.store.CompleteIntro(ctx); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "cloud save", func() bool {
		raw, _ := f.repo.GetPlayer(ctx, "u1")
		return raw != nil
	})
}

func TestAutosaveFinalSaveOnClose(t *testing.T) {
	f := newFixture(t, CodecZstd)
	ctx := context.Background()
	f.users.set(&model.AuthUser{ID: "u1"})
	w := NewAutosave(f.adapter, AutosaveConfig{LocalInterval: time.Hour, CloudInterval: time.Hour, Debounce: time.Hour})
	w.Start()

	w.Close()
	w.Close()

	if rec, _ := f.repo.GetSave(ctx, DefaultSaveKey); rec == nil {
		t.Fatalf("expected a final local save")
	}
	if raw, _ := f.repo.GetPlayer(ctx, "u1"); raw == nil {
		t.Fatalf("expected a final cloud save")
	}
}
