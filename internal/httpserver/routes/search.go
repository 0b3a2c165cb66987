package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/favbox/favbox/internal/httpserver/deps"
	"github.com/favbox/favbox/internal/httpserver/handlers"
	"github.com/favbox/favbox/internal/httpserver/mw"
)

func init() { Register(registerSearch) }

func registerSearch(r chi.Router, d deps.Deps) {
	auth := r.With(middleware.Timeout(d.RequestTimeout), mw.Auth(d.JWTSecret, d.Logger))

	auth.Get("/api/search", handlers.Search(d))
	auth.Post("/api/search/semantic", handlers.SemanticSearch(d))
}
