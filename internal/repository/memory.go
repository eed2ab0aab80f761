package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"tycoon-engine/internal/model"
)

// MemoryRepository keeps every collection in process memory. It implements
// all repository interfaces and backs development mode and tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	saves    map[string]model.SaveRecord
	players  map[string]map[string]json.RawMessage
	listings map[string]model.MarketItem
	holdings map[string]model.Holding
	invites  map[string]model.Invite
	accounts map[string]model.Account
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		saves:    make(map[string]model.SaveRecord),
		players:  make(map[string]map[string]json.RawMessage),
		listings: make(map[string]model.MarketItem),
		holdings: make(map[string]model.Holding),
		invites:  make(map[string]model.Invite),
		accounts: make(map[string]model.Account),
	}
}

// PutSave inserts or replaces a local save.
func (r *MemoryRepository) PutSave(ctx context.Context, rec model.SaveRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec.Payload = append([]byte(nil), rec.Payload...)
	r.saves[rec.Key] = rec
	return nil
}

// GetSave returns a local save or nil.
func (r *MemoryRepository) GetSave(ctx context.Context, key string) (*model.SaveRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.saves[key]
	if !ok {
		return nil, nil
	}
	rec.Payload = append([]byte(nil), rec.Payload...)
	return &rec, nil
}

// DeleteSave removes a local save.
func (r *MemoryRepository) DeleteSave(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.saves, key)
	return nil
}

// GetPlayer returns a player document or nil.
func (r *MemoryRepository) GetPlayer(ctx context.Context, userID string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.players[userID]
	if !ok {
		return nil, nil
	}
	return json.Marshal(doc)
}

// SetPlayer writes a player document, shallow-merging when merge is set.
func (r *MemoryRepository) SetPlayer(ctx context.Context, userID string, doc []byte, merge bool) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc, &fields); err != nil {
		return fmt.Errorf("failed to parse player document: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.players[userID]
	if !merge || !ok {
		r.players[userID] = fields
		return nil
	}
	for k, v := range fields {
		existing[k] = v
	}
	return nil
}

// TopPlayers returns the n richest players.
func (r *MemoryRepository) TopPlayers(ctx context.Context, n int) ([]model.LeaderboardEntry, error) {
	r.mu.RLock()
	entries := make([]model.LeaderboardEntry, 0, len(r.players))
	for id, doc := range r.players {
		raw, ok := doc["leaderboardStats"]
		if !ok {
			continue
		}
		entry := model.LeaderboardEntry{ID: id}
		if err := json.Unmarshal(raw, &entry.LeaderboardStats); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Money != entries[j].Money {
			return entries[i].Money > entries[j].Money
		}
		return entries[i].ID < entries[j].ID
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

// ListListings returns the newest listings first.
func (r *MemoryRepository) ListListings(ctx context.Context, n int) ([]model.MarketItem, error) {
	r.mu.RLock()
	items := make([]model.MarketItem, 0, len(r.listings))
	for _, it := range r.listings {
		items = append(items, it)
	}
	r.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if items[i].Timestamp != items[j].Timestamp {
			return items[i].Timestamp > items[j].Timestamp
		}
		return items[i].ID < items[j].ID
	})
	if len(items) > n {
		items = items[:n]
	}
	return items, nil
}

// CreateListing stores a listing.
func (r *MemoryRepository) CreateListing(ctx context.Context, item model.MarketItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.listings[item.ID] = item
	return nil
}

// GetListing returns a listing by id.
func (r *MemoryRepository) GetListing(ctx context.Context, id string) (*model.MarketItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.listings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &item, nil
}

// DeleteListing removes a listing if present.
func (r *MemoryRepository) DeleteListing(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.listings[id]; !ok {
		return false, nil
	}
	delete(r.listings, id)
	return true, nil
}

// TopHoldings returns the most valuable holdings.
func (r *MemoryRepository) TopHoldings(ctx context.Context, n int) ([]model.Holding, error) {
	r.mu.RLock()
	out := make([]model.Holding, 0, len(r.holdings))
	for _, h := range r.holdings {
		out = append(out, h)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalValuation != out[j].TotalValuation {
			return out[i].TotalValuation > out[j].TotalValuation
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// CreateHolding stores a holding.
func (r *MemoryRepository) CreateHolding(ctx context.Context, h model.Holding) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.holdings[h.ID] = h
	return nil
}

// GetHolding returns a holding by id.
func (r *MemoryRepository) GetHolding(ctx context.Context, id string) (*model.Holding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.holdings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &h, nil
}

// AddMember adds one member and their valuation to a holding.
func (r *MemoryRepository) AddMember(ctx context.Context, id string, valuation float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.holdings[id]
	if !ok {
		return ErrNotFound
	}
	h.MembersCount++
	h.TotalValuation += valuation
	r.holdings[id] = h
	return nil
}

// CreateInvite stores an invitation.
func (r *MemoryRepository) CreateInvite(ctx context.Context, inv model.Invite) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.invites[inv.ID] = inv
	return nil
}

// InvitesFor returns the invitations addressed to userID.
func (r *MemoryRepository) InvitesFor(ctx context.Context, userID string) ([]model.Invite, error) {
	r.mu.RLock()
	out := []model.Invite{}
	for _, inv := range r.invites {
		if inv.ToID == userID {
			out = append(out, inv)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetInvite returns an invitation by id.
func (r *MemoryRepository) GetInvite(ctx context.Context, id string) (*model.Invite, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inv, ok := r.invites[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &inv, nil
}

// DeleteInvite removes an invitation if present.
func (r *MemoryRepository) DeleteInvite(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.invites[id]; !ok {
		return false, nil
	}
	delete(r.invites, id)
	return true, nil
}

// DeleteInvitesBefore removes invitations older than cutoff.
func (r *MemoryRepository) DeleteInvitesBefore(ctx context.Context, cutoff int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, inv := range r.invites {
		if inv.Timestamp < cutoff {
			delete(r.invites, id)
			n++
		}
	}
	return n, nil
}

// CreateAccount stores an account.
func (r *MemoryRepository) CreateAccount(ctx context.Context, acc model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[acc.ID]; ok {
		return fmt.Errorf("account %s already exists", acc.ID)
	}
	r.accounts[acc.ID] = acc
	return nil
}

// GetAccount returns an account by id.
func (r *MemoryRepository) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	acc, ok := r.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &acc, nil
}

// FindAccount returns the account linked to a provider subject.
func (r *MemoryRepository) FindAccount(ctx context.Context, provider, subject string) (*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, acc := range r.accounts {
		if acc.Provider == provider && acc.Subject == subject && subject != "" {
			a := acc
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

// Close is a no-op.
func (r *MemoryRepository) Close() error {
	return nil
}
