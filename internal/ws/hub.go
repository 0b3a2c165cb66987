// Package ws is the live notification channel: a per-user registry of
// open WebSocket connections and best-effort fan-out to them. It is a
// latency optimization, not a source of truth; a device that misses an
// event catches up through its next incremental sync.
package ws

import (
	"encoding/json"
	"sync"

	"github.com/favbox/favbox/internal/logger"
)

// Hub maps user ids to their open connections. Connect, disconnect and
// broadcast are its only mutators, so it can be swapped for a
// distributed pub/sub backend without touching the reconcilers.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}
	logger  logger.Logger
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		clients: make(map[int64]map[*Client]struct{}),
		logger:  log,
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	perUser := h.clients[c.userID]
	if perUser == nil {
		perUser = make(map[*Client]struct{})
		h.clients[c.userID] = perUser
	}
	perUser[c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	perUser := h.clients[c.userID]
	if _, ok := perUser[c]; !ok {
		return
	}
	delete(perUser, c)
	if len(perUser) == 0 {
		delete(h.clients, c.userID)
	}
	c.closeSend()
}

// ConnectionCount returns how many connections the user currently has.
func (h *Hub) ConnectionCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// BroadcastToUser delivers v to every open connection of the user.
// Delivery is best effort: a connection with a full send buffer is
// skipped, and failures never reach the caller.
func (h *Hub) BroadcastToUser(userID int64, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Warn("failed to marshal broadcast", logger.Int64("user_id", userID), logger.Error(err))
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.trySend(data) {
			h.logger.Debug("dropping event for slow connection",
				logger.Int64("user_id", userID))
		}
	}
}

// CloseAll disconnects every client. Used during shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	var all []*Client
	for _, perUser := range h.clients {
		for c := range perUser {
			all = append(all, c)
		}
	}
	h.clients = make(map[int64]map[*Client]struct{})
	h.mu.Unlock()

	for _, c := range all {
		c.closeSend()
	}
}
