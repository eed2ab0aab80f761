package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"tycoon-engine/internal/model"
	"tycoon-engine/internal/repository"
	"tycoon-engine/pkg/uid"
)

// ErrUnknownProvider is returned for identity providers the service does not accept.
var ErrUnknownProvider = errors.New("unknown identity provider")

// authWatchBuffer bounds each auth state stream. A slow reader loses older
// states but always receives the latest one.
const authWatchBuffer = 4

// IdentityService tracks who is signed in to the engine's game session and
// issues session tokens for them.
type IdentityService struct {
	accounts repository.AccountRepository
	tokens   *TokenService
	newID    func() string
	now      func() time.Time

	mu       sync.Mutex
	current  *model.AuthUser
	token    string
	watchers map[int]chan *model.AuthUser
	nextID   int
}

// NewIdentityService creates an identity service.
func NewIdentityService(accounts repository.AccountRepository, tokens *TokenService) *IdentityService {
	return &IdentityService{
		accounts: accounts,
		tokens:   tokens,
		newID:    uid.New,
		now:      time.Now,
		watchers: make(map[int]chan *model.AuthUser),
	}
}

// CurrentUser returns the signed-in user, or nil.
func (s *IdentityService) CurrentUser() *model.AuthUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	u := *s.current
	return &u
}

// AuthStateChanges streams the signed-in user, starting with the current
// value. nil means signed out. Call the returned func to stop watching.
func (s *IdentityService) AuthStateChanges() (<-chan *model.AuthUser, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan *model.AuthUser, authWatchBuffer)
	s.watchers[id] = ch
	deliverLatest(ch, copyUser(s.current))

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if w, ok := s.watchers[id]; ok {
				delete(s.watchers, id)
				close(w)
			}
		})
	}
}

// SignInAnonymously creates a guest account and signs it in.
func (s *IdentityService) SignInAnonymously(ctx context.Context) (*model.AuthUser, string, error) {
	id := s.newID()
	acc := model.Account{
		ID:          id,
		Provider:    model.ProviderAnonymous,
		DisplayName: "Guest-" + uid.Short(id, 6),
		IsAnonymous: true,
		CreatedAt:   s.now(),
	}
	if err := s.accounts.CreateAccount(ctx, acc); err != nil {
		return nil, "", err
	}
	return s.signIn(ctx, &acc)
}

// SignInWithProvider signs in the account linked to a provider subject,
// creating it on first use. The subject is trusted as given; verifying it is
// the job of the provider in front of the engine.
func (s *IdentityService) SignInWithProvider(ctx context.Context, provider, subject, displayName string) (*model.AuthUser, string, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider != model.ProviderGoogle {
		return nil, "", fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, "", fmt.Errorf("missing provider subject")
	}

	acc, err := s.accounts.FindAccount(ctx, provider, subject)
	if errors.Is(err, repository.ErrNotFound) {
		acc = &model.Account{
			ID:          s.newID(),
			Provider:    provider,
			Subject:     subject,
			DisplayName: strings.TrimSpace(displayName),
			CreatedAt:   s.now(),
		}
		if err := s.accounts.CreateAccount(ctx, *acc); err != nil {
			return nil, "", err
		}
		log.Printf("[IdentityService] Linked new %s account %s", provider, acc.ID)
	} else if err != nil {
		return nil, "", err
	}
	return s.signIn(ctx, acc)
}

func (s *IdentityService) signIn(ctx context.Context, acc *model.Account) (*model.AuthUser, string, error) {
	user := &model.AuthUser{ID: acc.ID, DisplayName: acc.DisplayName, IsAnonymous: acc.IsAnonymous}
	token, err := s.tokens.GenerateToken(ctx, model.TokenData{
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		IsAnonymous: user.IsAnonymous,
	})
	if err != nil {
		return nil, "", err
	}

	s.mu.Lock()
	previous := s.token
	s.current = user
	s.token = token
	s.broadcast()
	s.mu.Unlock()

	if previous != "" {
		s.tokens.RevokeToken(ctx, previous)
	}
	log.Printf("[IdentityService] Signed in %s (anonymous=%v)", user.ID, user.IsAnonymous)
	return copyUser(user), token, nil
}

// SignOut ends the current session. Signing out while signed out is a no-op.
func (s *IdentityService) SignOut(ctx context.Context) error {
	s.mu.Lock()
	token := s.token
	wasSignedIn := s.current != nil
	s.current = nil
	s.token = ""
	if wasSignedIn {
		s.broadcast()
	}
	s.mu.Unlock()

	if token != "" {
		if err := s.tokens.RevokeToken(ctx, token); err != nil {
			return fmt.Errorf("revoke session token: %w", err)
		}
	}
	return nil
}

// Authenticate resolves a session token. Only the token of the current
// session is accepted.
func (s *IdentityService) Authenticate(ctx context.Context, token string) (*model.TokenData, error) {
	data, err := s.tokens.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	active := s.token == token
	s.mu.Unlock()
	if !active {
		return nil, ErrInvalidToken
	}
	return data, nil
}

// broadcast must be called with s.mu held.
func (s *IdentityService) broadcast() {
	for _, ch := range s.watchers {
		deliverLatest(ch, copyUser(s.current))
	}
}

func deliverLatest(ch chan *model.AuthUser, u *model.AuthUser) {
	for {
		select {
		case ch <- u:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func copyUser(u *model.AuthUser) *model.AuthUser {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
