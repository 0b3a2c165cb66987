package domain

import "time"

// Bookmark is one synchronized browser bookmark.
// A bookmark is owned by a user and correlated across devices by BrowserID,
// the stable identifier the browser extension generates for it.
type Bookmark struct {
	// ─────────────────────────────
	// Identity
	// ─────────────────────────────

	// ID is the server-side primary key.
	ID int64 `json:"id"`

	// UserID is the owning user.
	UserID int64 `json:"user_id"`

	// BrowserID is the client-chosen stable identifier,
	// unique per user. All sync operations key on it.
	BrowserID string `json:"browser_id"`

	// ─────────────────────────────
	// Content
	// ─────────────────────────────

	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Domain      string `json:"domain,omitempty"`

	// Media
	Favicon string `json:"favicon,omitempty"`
	Image   string `json:"image,omitempty"`

	Tags     []string `json:"tags"`
	Keywords []string `json:"keywords"`

	Notes string `json:"notes,omitempty"`

	// Organization
	FolderName string `json:"folder_name,omitempty"`
	FolderID   string `json:"folder_id,omitempty"`
	Pinned     bool   `json:"pinned"`

	// HTTPStatus is the last observed status of the URL, 0 when unknown.
	HTTPStatus int `json:"http_status,omitempty"`

	// DateAdded is the original add timestamp from the browser's clock
	// (milliseconds since epoch), 0 when unknown.
	DateAdded int64 `json:"date_added,omitempty"`

	// ─────────────────────────────
	// Sync metadata
	// ─────────────────────────────

	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the last content mutation time. It is authoritative
	// for Last-Write-Wins conflict comparison and only moves forward
	// through content mutation, never through reads.
	UpdatedAt time.Time `json:"updated_at"`

	// SyncedAt is set to the server's processing time on every accepted
	// sync write. It is the watermark for incremental change queries.
	SyncedAt time.Time `json:"synced_at"`
}

// Clone returns a deep copy. Stores hand out clones so callers can
// mutate results without racing the store's own state.
func (b *Bookmark) Clone() *Bookmark {
	cp := *b
	if b.Tags != nil {
		// make+copy, not append: empty slices must stay empty, never
		// collapse to nil, so responses always carry arrays.
		cp.Tags = make([]string, len(b.Tags))
		copy(cp.Tags, b.Tags)
	}
	if b.Keywords != nil {
		cp.Keywords = make([]string, len(b.Keywords))
		copy(cp.Keywords, b.Keywords)
	}
	return &cp
}

// Conflict reports a rejected sync write. It is returned to the caller
// for visibility and never persisted.
type Conflict struct {
	BrowserID       string    `json:"browser_id"`
	Reason          string    `json:"reason"`
	ServerUpdatedAt time.Time `json:"server_updated_at"`
	ClientUpdatedAt time.Time `json:"client_updated_at"`
}

// ReasonServerNewer marks a write rejected because the server record
// carried a strictly newer updated_at than the client's.
const ReasonServerNewer = "server_newer"
