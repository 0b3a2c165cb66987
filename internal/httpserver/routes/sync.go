package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/favbox/favbox/internal/httpserver/deps"
	"github.com/favbox/favbox/internal/httpserver/handlers"
	"github.com/favbox/favbox/internal/httpserver/mw"
)

func init() { Register(registerSync) }

// Sync endpoints carry the per-user rate limit; snapshot uploads are the
// heaviest requests the API serves.
func registerSync(r chi.Router, d deps.Deps) {
	sub := r.With(middleware.Timeout(d.RequestTimeout), mw.Auth(d.JWTSecret, d.Logger))
	if d.RateLimitEnabled {
		sub = sub.With(mw.RateLimitPerUser(mw.RateLimitConfig{
			Burst:        d.SyncBurst,
			RefillPerMin: d.SyncPerMin,
		}))
	}

	sub.Post("/api/bookmarks/sync", handlers.FullSync(d))
	sub.Post("/api/bookmarks/sync/incremental", handlers.IncrementalSync(d))
}
