package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/favbox/favbox/internal/httpserver/deps"
	"github.com/favbox/favbox/internal/httpserver/handlers"
	"github.com/favbox/favbox/internal/httpserver/mw"
)

func init() { Register(registerAI) }

func registerAI(r chi.Router, d deps.Deps) {
	auth := r.With(middleware.Timeout(d.RequestTimeout), mw.Auth(d.JWTSecret, d.Logger))

	auth.Post("/api/ai/tags/suggest", handlers.SuggestTags(d))
	auth.Post("/api/ai/classify", handlers.Classify(d))
}
