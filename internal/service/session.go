package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"tycoon-engine/internal/game"
	"tycoon-engine/internal/model"
	"tycoon-engine/internal/persistence"
)

// SignInResult is the outcome of a sign-in.
type SignInResult struct {
	User  *model.AuthUser `json:"user"`
	Token string          `json:"token"`
	// NeedsProfile is set for accounts without a cloud save. The client
	// must pick a username and call InitializeNewUser.
	NeedsProfile      bool   `json:"needs_profile"`
	SuggestedUsername string `json:"suggested_username,omitempty"`
}

// SessionService runs the sign-in and sign-out flows of the game session.
type SessionService struct {
	identity *IdentityService
	adapter  *persistence.Adapter
	store    *game.Store
}

// NewSessionService creates a session service.
func NewSessionService(identity *IdentityService, adapter *persistence.Adapter) *SessionService {
	return &SessionService{identity: identity, adapter: adapter, store: adapter.Store()}
}

// SignInAnonymously starts a guest session.
func (s *SessionService) SignInAnonymously(ctx context.Context) (*SignInResult, error) {
	user, token, err := s.identity.SignInAnonymously(ctx)
	if err != nil {
		return nil, err
	}
	return s.connect(ctx, user, token)
}

// SignInWithProvider starts a session for a provider account.
func (s *SessionService) SignInWithProvider(ctx context.Context, provider, subject, displayName string) (*SignInResult, error) {
	user, token, err := s.identity.SignInWithProvider(ctx, provider, subject, displayName)
	if err != nil {
		return nil, err
	}
	return s.connect(ctx, user, token)
}

// connect loads the cloud save of a freshly signed-in user. A missing save
// keeps the local progress and asks the client for a profile.
func (s *SessionService) connect(ctx context.Context, user *model.AuthUser, token string) (*SignInResult, error) {
	res := &SignInResult{User: user, Token: token}

	_, err := s.adapter.LoadCloud(ctx, user.ID)
	switch {
	case err == nil:
	case errors.Is(err, persistence.ErrNoSave):
		res.NeedsProfile = true
		res.SuggestedUsername = user.DisplayName
	case errors.Is(err, persistence.ErrCorruptSave):
		// The local state stands; the next cloud save overwrites the bad document.
		log.Printf("[SessionService] Ignoring corrupt cloud save of %s: %v", user.ID, err)
	default:
		log.Printf("[SessionService] Cloud load failed for %s: %v", user.ID, err)
	}
	return res, nil
}

// InitializeNewUser sets the username of a new account. Setting the
// profile forces the first cloud save.
func (s *SessionService) InitializeNewUser(ctx context.Context, username string) error {
	if s.identity.CurrentUser() == nil {
		return persistence.ErrNoUser
	}
	return s.store.UpdateProfile(ctx, game.ProfileUpdate{Username: &username})
}

// SignOut saves to the cloud one last time, ends the session and starts a
// fresh local game so the next player does not inherit this one's progress.
func (s *SessionService) SignOut(ctx context.Context) error {
	if err := s.adapter.SaveCloud(ctx); err != nil &&
		!errors.Is(err, persistence.ErrNoUser) && !errors.Is(err, persistence.ErrSaveSuppressed) {
		log.Printf("[SessionService] Final cloud save failed: %v", err)
	}
	if err := s.identity.SignOut(ctx); err != nil {
		return err
	}
	if err := s.adapter.ClearLocal(ctx); err != nil {
		log.Printf("[SessionService] Clearing local save failed: %v", err)
	}
	if err := s.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset game: %w", err)
	}
	return nil
}
