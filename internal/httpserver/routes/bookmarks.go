package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/favbox/favbox/internal/httpserver/deps"
	"github.com/favbox/favbox/internal/httpserver/handlers"
	"github.com/favbox/favbox/internal/httpserver/mw"
)

func init() { Register(registerBookmarks) }

func registerBookmarks(r chi.Router, d deps.Deps) {
	auth := r.With(middleware.Timeout(d.RequestTimeout), mw.Auth(d.JWTSecret, d.Logger))

	auth.Get("/api/bookmarks", handlers.ListBookmarks(d))
	auth.Get("/api/bookmarks/changes", handlers.GetChanges(d))
	auth.Post("/api/bookmarks", handlers.CreateBookmark(d))
	auth.Put("/api/bookmarks/{browserID}", handlers.UpdateBookmark(d))
	auth.Delete("/api/bookmarks/{browserID}", handlers.DeleteBookmark(d))
}
