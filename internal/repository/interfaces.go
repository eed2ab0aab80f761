package repository

import (
	"context"
	"errors"

	"tycoon-engine/internal/model"
)

// ErrNotFound is returned when a record addressed by id does not exist.
var ErrNotFound = errors.New("record not found")

// LocalSaveRepository stores encoded local snapshots, one per save key.
type LocalSaveRepository interface {
	// PutSave inserts or replaces the record stored under rec.Key.
	PutSave(ctx context.Context, rec model.SaveRecord) error

	// GetSave returns the record stored under key, or nil if there is none.
	GetSave(ctx context.Context, key string) (*model.SaveRecord, error)

	// DeleteSave removes the record stored under key. Missing keys are not an error.
	DeleteSave(ctx context.Context, key string) error

	Close() error
}

// PlayerRepository stores the per-user cloud documents (collection "players").
// Documents are exchanged as JSON objects.
type PlayerRepository interface {
	// GetPlayer returns the document of userID, or nil if there is none.
	GetPlayer(ctx context.Context, userID string) ([]byte, error)

	// SetPlayer writes the document of userID. With merge, top-level fields
	// of doc replace the stored ones and other stored fields are kept;
	// without merge the stored document is replaced.
	SetPlayer(ctx context.Context, userID string, doc []byte, merge bool) error

	// TopPlayers returns the n richest players by leaderboardStats.money.
	TopPlayers(ctx context.Context, n int) ([]model.LeaderboardEntry, error)

	Close() error
}

// MarketRepository stores market listings.
type MarketRepository interface {
	// ListListings returns the n most recent listings, newest first.
	ListListings(ctx context.Context, n int) ([]model.MarketItem, error)

	CreateListing(ctx context.Context, item model.MarketItem) error

	// GetListing returns ErrNotFound when the listing is gone.
	GetListing(ctx context.Context, id string) (*model.MarketItem, error)

	// DeleteListing removes a listing if it still exists and reports whether
	// this call removed it. Concurrent buyers race on this call.
	DeleteListing(ctx context.Context, id string) (bool, error)
}

// HoldingRepository stores player guilds.
type HoldingRepository interface {
	// TopHoldings returns the n holdings with the highest total valuation.
	TopHoldings(ctx context.Context, n int) ([]model.Holding, error)

	CreateHolding(ctx context.Context, h model.Holding) error

	// GetHolding returns ErrNotFound when the holding does not exist.
	GetHolding(ctx context.Context, id string) (*model.Holding, error)

	// AddMember increments the member count and adds valuation to the total.
	AddMember(ctx context.Context, id string, valuation float64) error
}

// InviteRepository stores directed duel invitations.
type InviteRepository interface {
	CreateInvite(ctx context.Context, inv model.Invite) error

	// InvitesFor returns the pending invitations addressed to userID, oldest first.
	InvitesFor(ctx context.Context, userID string) ([]model.Invite, error)

	// GetInvite returns ErrNotFound when the invitation is gone.
	GetInvite(ctx context.Context, id string) (*model.Invite, error)

	// DeleteInvite removes an invitation and reports whether it existed.
	DeleteInvite(ctx context.Context, id string) (bool, error)

	// DeleteInvitesBefore removes invitations sent before cutoff (unix ms)
	// and returns how many were removed.
	DeleteInvitesBefore(ctx context.Context, cutoff int64) (int64, error)
}

// AccountRepository stores identity accounts.
type AccountRepository interface {
	CreateAccount(ctx context.Context, acc model.Account) error

	// GetAccount returns ErrNotFound when the account does not exist.
	GetAccount(ctx context.Context, id string) (*model.Account, error)

	// FindAccount looks an account up by provider subject. It returns
	// ErrNotFound when no account is linked to the subject.
	FindAccount(ctx context.Context, provider, subject string) (*model.Account, error)
}

// CloudRepository bundles the collections of the remote document store.
type CloudRepository interface {
	PlayerRepository
	MarketRepository
	HoldingRepository
	InviteRepository
}

// SocialRepository bundles the shared social collections.
type SocialRepository interface {
	MarketRepository
	HoldingRepository
	InviteRepository
}

type splitCloudRepository struct {
	PlayerRepository
	SocialRepository
}

// NewSplitCloudRepository serves player documents and the social collections
// from different stores, e.g. Postgres players with in-memory market data.
// Close closes only players.
func NewSplitCloudRepository(players PlayerRepository, social SocialRepository) CloudRepository {
	return splitCloudRepository{PlayerRepository: players, SocialRepository: social}
}
