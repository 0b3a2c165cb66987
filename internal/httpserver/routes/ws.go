package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/favbox/favbox/internal/httpserver/deps"
	"github.com/favbox/favbox/internal/httpserver/handlers"
)

func init() { Register(registerWS) }

// No request timeout here: the connection lives until a side hangs up,
// and authentication happens after the upgrade.
func registerWS(r chi.Router, d deps.Deps) {
	r.Get("/api/ws", handlers.WS(d))
}
