package domain

import "time"

// BookmarkPatch is a partial update to a bookmark's content fields.
// Nil means "not supplied, leave the server value untouched"; a non-nil
// pointer (or non-nil slice) overwrites. It enumerates every copyable
// field exactly once, so merges stay exhaustive and statically checked
// instead of relying on a field-name allowlist.
type BookmarkPatch struct {
	URL         *string  `json:"url,omitempty"`
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Domain      *string  `json:"domain,omitempty"`
	Favicon     *string  `json:"favicon,omitempty"`
	Image       *string  `json:"image,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
	FolderName  *string  `json:"folder_name,omitempty"`
	FolderID    *string  `json:"folder_id,omitempty"`
	Pinned      *bool    `json:"pinned,omitempty"`
	HTTPStatus  *int     `json:"http_status,omitempty"`
	DateAdded   *int64   `json:"date_added,omitempty"`

	// UpdatedAt is the client's mutation timestamp. It drives conflict
	// resolution; the reconciler, not Apply, decides what the record's
	// final UpdatedAt becomes.
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Apply merges the supplied content fields into b. Sync metadata
// (UpdatedAt, SyncedAt) is left to the caller.
func (p *BookmarkPatch) Apply(b *Bookmark) {
	if p.URL != nil {
		b.URL = *p.URL
	}
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	if p.Domain != nil {
		b.Domain = *p.Domain
	}
	if p.Favicon != nil {
		b.Favicon = *p.Favicon
	}
	if p.Image != nil {
		b.Image = *p.Image
	}
	if p.Tags != nil {
		b.Tags = append([]string(nil), p.Tags...)
	}
	if p.Keywords != nil {
		b.Keywords = append([]string(nil), p.Keywords...)
	}
	if p.Notes != nil {
		b.Notes = *p.Notes
	}
	if p.FolderName != nil {
		b.FolderName = *p.FolderName
	}
	if p.FolderID != nil {
		b.FolderID = *p.FolderID
	}
	if p.Pinned != nil {
		b.Pinned = *p.Pinned
	}
	if p.HTTPStatus != nil {
		b.HTTPStatus = *p.HTTPStatus
	}
	if p.DateAdded != nil {
		b.DateAdded = *p.DateAdded
	}
}

// NewBookmark builds a bookmark from a patch for a record the server has
// never seen. Tags and keywords default to empty, not nil, so responses
// always carry arrays.
func NewBookmark(userID int64, browserID string, p BookmarkPatch) *Bookmark {
	b := &Bookmark{
		UserID:    userID,
		BrowserID: browserID,
		Tags:      []string{},
		Keywords:  []string{},
	}
	p.Apply(b)
	return b
}
