package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tycoon-engine/internal/model"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

type staticAuth map[string]string

func (a staticAuth) Authenticate(ctx context.Context, token string) (*model.TokenData, error) {
	id, ok := a[token]
	if !ok {
		return nil, errors.New("unknown token")
	}
	return &model.TokenData{UserID: id}, nil
}

func TestRateLimiterBurst(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 2})
	l.now = func() time.Time { return now }
	h := l.Handler(okHandler)

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := send("10.0.0.1:1000"); rec.Code != http.StatusOK {
			t.Fatalf("request %d within burst got %d", i, rec.Code)
		}
	}
	rec := send("10.0.0.1:1001")
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected 429 with Retry-After, got %d", rec.Code)
	}
	if rec := send("10.0.0.2:1000"); rec.Code != http.StatusOK {
		t.Fatalf("other clients must have their own bucket, got %d", rec.Code)
	}

	now = now.Add(time.Second)
	if rec := send("10.0.0.1:1000"); rec.Code != http.StatusOK {
		t.Fatalf("bucket should refill after a second, got %d", rec.Code)
	}
}

func TestRateLimiterSkipsPreflight(t *testing.T) {
	l := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1})
	h := l.Handler(okHandler)
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("OPTIONS", "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("preflight %d got %d", i, rec.Code)
		}
	}
}

func TestRateLimiterSweepsIdleClients(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewRateLimiter(RateLimitConfig{IdleTTL: time.Minute})
	l.now = func() time.Time { return now }

	l.limiter("a")
	now = now.Add(2 * time.Minute)
	l.limiter("b")
	if _, ok := l.clients["a"]; ok {
		t.Fatalf("idle client should have been swept")
	}
	if len(l.clients) != 1 {
		t.Fatalf("expected 1 client, got %d", len(l.clients))
	}
}

func TestAuthMiddleware(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetTokenDataFromContext(r.Context()).UserID
	})
	auth := staticAuth{"good": "u1", "other": "u2"}

	tests := []struct {
		name   string
		query  bool
		url    string
		header map[string]string
		code   int
		user   string
	}{
		{name: "missing", url: "/", code: http.StatusUnauthorized},
		{name: "x-token", url: "/", header: map[string]string{"X-Token": "good"}, code: http.StatusOK, user: "u1"},
		{name: "bearer", url: "/", header: map[string]string{"Authorization": "Bearer other"}, code: http.StatusOK, user: "u2"},
		{name: "x-token wins", url: "/", header: map[string]string{"X-Token": "good", "Authorization": "Bearer other"}, code: http.StatusOK, user: "u1"},
		{name: "invalid", url: "/", header: map[string]string{"X-Token": "bad"}, code: http.StatusUnauthorized},
		{name: "query ignored", url: "/?token=good", code: http.StatusUnauthorized},
		{name: "query allowed", query: true, url: "/?token=good", code: http.StatusOK, user: "u1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			h := NewAuthMiddleware(AuthConfig{Identity: auth, AllowQueryToken: tt.query})(next)
			req := httptest.NewRequest("GET", tt.url, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.code || seen != tt.user {
				t.Fatalf("got %d for %q, want %d for %q", rec.Code, seen, tt.code, tt.user)
			}
		})
	}
}

func TestRequireLoginKey(t *testing.T) {
	check := func(key, sent string, want int) {
		t.Helper()
		req := httptest.NewRequest("GET", "/", nil)
		if sent != "" {
			req.Header.Set("X-Login-Key", sent)
		}
		rec := httptest.NewRecorder()
		RequireLoginKey(key)(okHandler).ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("key %q sent %q: got %d, want %d", key, sent, rec.Code, want)
		}
	}
	check("secret", "secret", http.StatusOK)
	check("secret", "nope", http.StatusUnauthorized)
	check("secret", "", http.StatusUnauthorized)
	check("", "", http.StatusForbidden)
	check("", "anything", http.StatusForbidden)
}

func TestRequestIDIsPropagated(t *testing.T) {
	var inside string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inside = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if inside != "abc" || rec.Header().Get("X-Request-ID") != "abc" {
		t.Fatalf("request id not propagated: %q / %q", inside, rec.Header().Get("X-Request-ID"))
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if inside == "" || inside == "abc" {
		t.Fatalf("expected a generated id, got %q", inside)
	}
}

func TestRecoveryReturns500(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
