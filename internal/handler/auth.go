package handler

import (
	"net/http"
	"time"

	"tycoon-engine/internal/middleware"
	"tycoon-engine/internal/service"
	"tycoon-engine/pkg/apierror"
	"tycoon-engine/pkg/response"
)

// AuthHandler handles sign-in, profile creation and sign-out.
type AuthHandler struct {
	session  *service.SessionService
	identity *service.IdentityService
	tokens   *service.TokenService
	tokenTTL time.Duration
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(session *service.SessionService, identity *service.IdentityService, tokens *service.TokenService, tokenTTL time.Duration) *AuthHandler {
	if tokenTTL <= 0 {
		tokenTTL = service.TokenTTL
	}
	return &AuthHandler{
		session:  session,
		identity: identity,
		tokens:   tokens,
		tokenTTL: tokenTTL,
	}
}

// SignInResponse is returned by the sign-in endpoints.
type SignInResponse struct {
	*service.SignInResult
	ExpiresIn int `json:"expires_in"`
}

// SignInAnonymously handles POST /auth/anonymous
func (h *AuthHandler) SignInAnonymously(w http.ResponseWriter, r *http.Request) {
	res, err := h.session.SignInAnonymously(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, SignInResponse{SignInResult: res, ExpiresIn: int(h.tokenTTL.Seconds())})
}

// ProviderRequest is the body of POST /auth/provider.
type ProviderRequest struct {
	Provider    string `json:"provider"`
	Subject     string `json:"subject"`
	DisplayName string `json:"display_name"`
}

// SignInWithProvider handles POST /auth/provider
func (h *AuthHandler) SignInWithProvider(w http.ResponseWriter, r *http.Request) {
	var req ProviderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Subject == "" {
		response.Error(w, apierror.ValidationError("subject is required",
			apierror.FieldError{Field: "subject", Message: "required"}))
		return
	}
	res, err := h.session.SignInWithProvider(r.Context(), req.Provider, req.Subject, req.DisplayName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, SignInResponse{SignInResult: res, ExpiresIn: int(h.tokenTTL.Seconds())})
}

// ProfileRequest is the body of POST /auth/profile.
type ProfileRequest struct {
	Username string `json:"username"`
}

// InitializeProfile handles POST /auth/profile
func (h *AuthHandler) InitializeProfile(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.session.InitializeNewUser(r.Context(), req.Username); err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, map[string]string{"status": "created"})
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]interface{}{
		"user":    h.identity.CurrentUser(),
		"session": middleware.GetTokenDataFromContext(r.Context()),
	})
}

// SignOut handles POST /auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.session.SignOut(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, map[string]string{"status": "signed_out"})
}

// RefreshToken handles POST /auth/refresh
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("X-Token")
	if token == "" {
		response.Error(w, apierror.BadRequest("X-Token header required"))
		return
	}

	if err := h.tokens.RefreshToken(r.Context(), token); err != nil {
		writeError(w, r, err)
		return
	}

	response.OK(w, map[string]interface{}{
		"status":     "refreshed",
		"expires_in": int(h.tokenTTL.Seconds()),
	})
}
