package router

import (
	"net/http"

	"tycoon-engine/internal/handler"
	"tycoon-engine/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler        *handler.Handler
	CatalogHandler *handler.CatalogHandler
	GameHandler    *handler.GameHandler
	SaveHandler    *handler.SaveHandler
	AuthHandler    *handler.AuthHandler
	SocialHandler  *handler.SocialHandler
	StreamHandler  *handler.StreamHandler
	AdminHandler   *handler.AdminHandler

	AuthMiddleware func(http.Handler) http.Handler
	// StreamAuth authenticates websocket upgrades, which may carry the
	// token in the query string.
	StreamAuth  func(http.Handler) http.Handler
	RateLimiter *middleware.RateLimiter
	AdminKey    string

	AllowedOrigins []string
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Token", "X-Login-Key"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Handler)
	}

	// PUBLIC routes (no auth required)
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
		}
		if cfg.CatalogHandler != nil {
			r.Get("/catalog", cfg.CatalogHandler.Get)
		}

		// The game itself is playable signed out, like a local save.
		if cfg.GameHandler != nil {
			r.Route("/game", cfg.GameHandler.Routes)
		}
		if cfg.SaveHandler != nil {
			r.Post("/saves/local", cfg.SaveHandler.SaveLocal)
			r.Post("/saves/local/load", cfg.SaveHandler.LoadLocal)
			r.Delete("/saves/local", cfg.SaveHandler.ClearLocal)
		}
		if cfg.AuthHandler != nil {
			r.Post("/auth/anonymous", cfg.AuthHandler.SignInAnonymously)
			r.Post("/auth/provider", cfg.AuthHandler.SignInWithProvider)
		}
		if cfg.StreamHandler != nil {
			r.Group(func(r chi.Router) {
				if cfg.StreamAuth != nil {
					r.Use(cfg.StreamAuth)
				}
				r.Get("/stream", cfg.StreamHandler.Serve)
			})
		}

		// AUTHENTICATED routes
		r.Group(func(r chi.Router) {
			if cfg.AuthMiddleware != nil {
				r.Use(cfg.AuthMiddleware)
			}

			if cfg.AuthHandler != nil {
				r.Get("/auth/me", cfg.AuthHandler.Me)
				r.Post("/auth/profile", cfg.AuthHandler.InitializeProfile)
				r.Post("/auth/refresh", cfg.AuthHandler.RefreshToken)
				r.Post("/auth/signout", cfg.AuthHandler.SignOut)
			}
			if cfg.SaveHandler != nil {
				r.Post("/saves/cloud", cfg.SaveHandler.SaveCloud)
				r.Post("/saves/cloud/load", cfg.SaveHandler.LoadCloud)
			}
			if cfg.SocialHandler != nil {
				r.Route("/social", cfg.SocialHandler.Routes)
			}
		})

		// Admin endpoints
		if cfg.AdminHandler != nil {
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireLoginKey(cfg.AdminKey))
				r.Get("/stats", cfg.AdminHandler.GetStats)
				r.Post("/login", cfg.AdminHandler.VerifyLogin)
			})
		}
	})

	return r
}
