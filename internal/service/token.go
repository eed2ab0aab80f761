package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"tycoon-engine/internal/cache"
	"tycoon-engine/internal/model"
)

const (
	// TokenPrefix is the prefix for all session tokens
	TokenPrefix = "tyc_"

	// TokenTTL is the default token lifetime (24 hours)
	TokenTTL = 24 * time.Hour

	// TokenKeyPrefix is the cache key prefix for tokens
	TokenKeyPrefix = "token:"
)

// ErrInvalidToken is returned for unknown, malformed or expired tokens.
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenService handles session token generation and validation.
type TokenService struct {
	cache cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

// NewTokenService creates a new token service. A zero ttl selects TokenTTL.
func NewTokenService(c cache.Cache, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = TokenTTL
	}
	return &TokenService{cache: c, ttl: ttl, now: time.Now}
}

// GenerateToken creates a new session token and stores it in the cache.
func (s *TokenService) GenerateToken(ctx context.Context, data model.TokenData) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	token := TokenPrefix + hex.EncodeToString(tokenBytes)

	data.CreatedAt = s.now()
	data.ExpiresAt = data.CreatedAt.Add(s.ttl)

	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to serialize token data: %w", err)
	}

	if err := s.cache.Set(ctx, TokenKeyPrefix+token, jsonData, s.ttl); err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}

	log.Printf("[TokenService] Generated token for user_id=%s, anonymous=%v, expires=%v",
		data.UserID, data.IsAnonymous, data.ExpiresAt)

	return token, nil
}

// ValidateToken checks if a token is valid and returns its data.
func (s *TokenService) ValidateToken(ctx context.Context, token string) (*model.TokenData, error) {
	if token == "" || !strings.HasPrefix(token, TokenPrefix) {
		return nil, ErrInvalidToken
	}

	key := TokenKeyPrefix + token
	jsonData, err := s.cache.Get(ctx, key)
	if err == cache.ErrCacheMiss {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	var data model.TokenData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("failed to parse token data: %w", err)
	}

	if s.now().After(data.ExpiresAt) {
		s.cache.Delete(ctx, key)
		return nil, ErrInvalidToken
	}

	return &data, nil
}

// RevokeToken deletes a token.
func (s *TokenService) RevokeToken(ctx context.Context, token string) error {
	return s.cache.Delete(ctx, TokenKeyPrefix+token)
}

// RefreshToken extends the lifetime of an existing token.
func (s *TokenService) RefreshToken(ctx context.Context, token string) error {
	data, err := s.ValidateToken(ctx, token)
	if err != nil {
		return err
	}

	data.ExpiresAt = s.now().Add(s.ttl)

	newJSON, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, TokenKeyPrefix+token, newJSON, s.ttl)
}
