package syncer

import (
	"time"

	"github.com/favbox/favbox/internal/domain"
)

// Live channel event types emitted after accepted writes.
const (
	EventBookmarkCreated = "bookmark_created"
	EventBookmarkUpdated = "bookmark_updated"
	EventBookmarkDeleted = "bookmark_deleted"
)

// Event is one change notification pushed to a user's other devices.
// Created/updated events carry the full record; deleted events carry
// only the browser id.
type Event struct {
	Type      string           `json:"type"`
	Bookmark  *domain.Bookmark `json:"bookmark,omitempty"`
	BrowserID string           `json:"browser_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Broadcaster fans an event out to a user's live connections.
// Implementations must be fire-and-forget: delivery failures stay inside
// the broadcaster and never reach the reconcilers.
type Broadcaster interface {
	BroadcastToUser(userID int64, v any)
}

// Enqueuer hands a bookmark to the background enrichment pipeline.
// Called only after a successful commit, so enrichment availability
// never affects the sync path.
type Enqueuer interface {
	Enqueue(bookmarkID int64) string
}
