package model

import "time"

// Identity providers.
const (
	ProviderAnonymous = "anonymous"
	ProviderGoogle    = "google"
)

// Account is a durable identity record.
type Account struct {
	ID          string    `json:"id"`
	Provider    string    `json:"provider"`
	Subject     string    `json:"subject,omitempty"`
	DisplayName string    `json:"display_name"`
	IsAnonymous bool      `json:"is_anonymous"`
	CreatedAt   time.Time `json:"created_at"`
}

// AuthUser is the currently signed-in identity.
type AuthUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsAnonymous bool   `json:"is_anonymous"`
}

// TokenData contains the data stored with a session token.
type TokenData struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	IsAnonymous bool      `json:"is_anonymous"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}
