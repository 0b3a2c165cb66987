package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/favbox/favbox/internal/auth"
	"github.com/favbox/favbox/internal/httpserver/deps"
	"github.com/favbox/favbox/internal/logger"
	"github.com/favbox/favbox/internal/ws"
)

// Close code sent when the token query parameter is missing or invalid.
const closeInvalidToken = 4001

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The token carries authentication; extension clients send
	// chrome-extension:// origins that the browser never forges.
	CheckOrigin: func(*http.Request) bool { return true },
}

// WS upgrades the connection and attaches it to the hub. Authentication
// happens after the upgrade so the client receives a distinguishable
// close code instead of a plain HTTP error.
func WS(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error.
			d.Logger.Debug("websocket upgrade failed", logger.Error(err))
			return
		}

		token := r.URL.Query().Get("token")
		userID, err := auth.VerifyToken(token, d.JWTSecret)
		if err != nil {
			msg := websocket.FormatCloseMessage(closeInvalidToken, "invalid token")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			_ = conn.Close()
			return
		}

		client := ws.NewClient(d.Hub, conn, userID, d.Logger)
		client.Run()
	}
}
