// Package persistence moves game snapshots between the in-memory store, the
// local save slot and the remote player document.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"tycoon-engine/internal/game"
	"tycoon-engine/internal/model"
	"tycoon-engine/internal/repository"
)

var (
	// ErrNoUser is returned by SaveCloud when nobody is signed in.
	ErrNoUser = errors.New("no signed-in user")
	// ErrSaveSuppressed is returned by SaveCloud for guests that have not finished the intro.
	ErrSaveSuppressed = errors.New("cloud save suppressed for guest before intro")
	// ErrNoSave is returned by the loaders when there is nothing stored.
	ErrNoSave = errors.New("no save found")
	// ErrCorruptSave is returned when a stored snapshot cannot be decoded.
	// The in-memory state is left untouched.
	ErrCorruptSave = errors.New("corrupt save")
)

// DefaultSaveKey names the local save slot. Bump the version suffix when the
// stored layout changes incompatibly.
const DefaultSaveKey = "tycoon_save_v3"

// UserSource reports the signed-in user, or nil.
type UserSource interface {
	CurrentUser() *model.AuthUser
}

// Options configures an Adapter.
type Options struct {
	Store            *game.Store
	Local            repository.LocalSaveRepository
	Cloud            repository.PlayerRepository
	Users            UserSource
	Codec            Codec
	SaveKey          string
	PlayMinutes      float64
	CloudLoadTimeout time.Duration
}

// Adapter implements the local and cloud save operations for one store.
type Adapter struct {
	store            *game.Store
	local            repository.LocalSaveRepository
	cloud            repository.PlayerRepository
	users            UserSource
	codec            Codec
	saveKey          string
	playMinutes      float64
	cloudLoadTimeout time.Duration
}

// NewAdapter creates an adapter. Local and Cloud may be nil, in which case
// the matching operations fail with an error.
func NewAdapter(opts Options) *Adapter {
	if opts.Codec == "" {
		opts.Codec = CodecZstd
	}
	if opts.SaveKey == "" {
		opts.SaveKey = DefaultSaveKey
	}
	if opts.PlayMinutes <= 0 {
		opts.PlayMinutes = 1
	}
	if opts.CloudLoadTimeout <= 0 {
		opts.CloudLoadTimeout = 15 * time.Second
	}
	return &Adapter{
		store:            opts.Store,
		local:            opts.Local,
		cloud:            opts.Cloud,
		users:            opts.Users,
		codec:            opts.Codec,
		saveKey:          opts.SaveKey,
		playMinutes:      opts.PlayMinutes,
		cloudLoadTimeout: opts.CloudLoadTimeout,
	}
}

// Store returns the store the adapter persists.
func (a *Adapter) Store() *game.Store {
	return a.store
}

// SaveLocal writes the current snapshot to the local save slot.
func (a *Adapter) SaveLocal(ctx context.Context) error {
	if a.local == nil {
		return errors.New("local save store not configured")
	}

	raw, err := json.Marshal(a.store.Read())
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	payload, err := a.codec.Encode(raw)
	if err != nil {
		return fmt.Errorf("compress snapshot: %w", err)
	}

	rec := model.SaveRecord{
		Key:      a.saveKey,
		Codec:    string(a.codec),
		Checksum: Checksum(payload),
		Payload:  payload,
		SavedAt:  a.store.Now(),
	}
	if err := a.local.PutSave(ctx, rec); err != nil {
		return fmt.Errorf("write local save: %w", err)
	}
	return nil
}

// LoadLocal reads the local save slot and, when it decodes, replaces the
// store state with it merged over the defaults. A missing slot yields
// ErrNoSave and a damaged one ErrCorruptSave; both leave the state as it was.
func (a *Adapter) LoadLocal(ctx context.Context) (*model.GameState, error) {
	if a.local == nil {
		return nil, ErrNoSave
	}

	rec, err := a.local.GetSave(ctx, a.saveKey)
	if err != nil {
		return nil, fmt.Errorf("read local save: %w", err)
	}
	if rec == nil {
		return nil, ErrNoSave
	}

	if Checksum(rec.Payload) != rec.Checksum {
		log.Printf("[Persistence] Local save %s failed checksum, keeping current state", rec.Key)
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptSave)
	}
	codec, err := ParseCodec(rec.Codec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSave, err)
	}
	raw, err := codec.Decode(rec.Payload)
	if err != nil {
		log.Printf("[Persistence] Local save %s failed to decompress: %v", rec.Key, err)
		return nil, fmt.Errorf("%w: %v", ErrCorruptSave, err)
	}

	return a.replaceWith(ctx, raw)
}

// SaveCloud mirrors the current snapshot to the signed-in user's player
// document. Each call also credits the configured play time.
func (a *Adapter) SaveCloud(ctx context.Context) error {
	if a.cloud == nil {
		return errors.New("cloud store not configured")
	}
	var user *model.AuthUser
	if a.users != nil {
		user = a.users.CurrentUser()
	}
	if user == nil {
		return ErrNoUser
	}
	if user.IsAnonymous && !a.store.Read().HasCompletedIntro {
		return ErrSaveSuppressed
	}

	saved, err := a.store.RecordCloudSave(ctx, a.playMinutes)
	if err != nil {
		return err
	}

	doc := model.NewPlayerDocument(saved, a.store.Now().UnixMilli())
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode player document: %w", err)
	}
	if err := a.cloud.SetPlayer(ctx, user.ID, data, true); err != nil {
		return fmt.Errorf("write player document: %w", err)
	}
	return nil
}

// LoadCloud fetches the player document of userID and replaces the whole
// store state with it merged over the defaults. The fetch runs inside the
// store operation so no tick or user action can land between the read and
// the replace. A missing document yields ErrNoSave and leaves the state as
// it was; the caller then treats the account as new.
func (a *Adapter) LoadCloud(ctx context.Context, userID string) (*model.GameState, error) {
	if a.cloud == nil {
		return nil, ErrNoSave
	}

	var loaded *model.GameState
	err := a.store.Do(ctx, func(tx *game.Tx) error {
		fetchCtx, cancel := context.WithTimeout(tx.Context(), a.cloudLoadTimeout)
		defer cancel()

		raw, err := a.cloud.GetPlayer(fetchCtx, userID)
		if err != nil {
			return fmt.Errorf("read player document: %w", err)
		}
		if raw == nil {
			return ErrNoSave
		}

		st, err := a.decode(tx, raw)
		if err != nil {
			log.Printf("[Persistence] Player document of %s is corrupt: %v", userID, err)
			return err
		}
		tx.Replace(st)
		tx.MarkDirty()
		loaded = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[Persistence] Loaded cloud save for %s", userID)
	return loaded, nil
}

// ClearLocal deletes the local save slot.
func (a *Adapter) ClearLocal(ctx context.Context) error {
	if a.local == nil {
		return nil
	}
	return a.local.DeleteSave(ctx, a.saveKey)
}

func (a *Adapter) replaceWith(ctx context.Context, raw []byte) (*model.GameState, error) {
	var loaded *model.GameState
	err := a.store.Do(ctx, func(tx *game.Tx) error {
		st, err := a.decode(tx, raw)
		if err != nil {
			return err
		}
		tx.Replace(st)
		loaded = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loaded, nil
}

// decode validates raw and merges it over a fresh default state.
func (a *Adapter) decode(tx *game.Tx, raw []byte) (*model.GameState, error) {
	if err := ValidateSnapshot(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSave, err)
	}
	cat := tx.Catalog()
	st, err := game.MergeWithDefaults(cat, game.DefaultState(cat, tx.Now()), raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSave, err)
	}
	return st, nil
}
