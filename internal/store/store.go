// Package store defines the persistence contract for bookmarks.
// Implementations: postgres (production) and memory (tests).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/favbox/favbox/internal/domain"
)

// ErrNotFound is returned when no bookmark matches the given key.
var ErrNotFound = errors.New("bookmark not found")

// Store is the per-user bookmark collection.
type Store interface {
	// ListByUser returns every bookmark for the user, newest first.
	ListByUser(ctx context.Context, userID int64) ([]*domain.Bookmark, error)

	// GetByID returns a bookmark by its server-side primary key.
	GetByID(ctx context.Context, id int64) (*domain.Bookmark, error)

	// GetByBrowserID returns the user's bookmark with the given browser id,
	// or ErrNotFound.
	GetByBrowserID(ctx context.Context, userID int64, browserID string) (*domain.Bookmark, error)

	// ListChangedSince returns the user's bookmarks with synced_at strictly
	// after the watermark, most recently synced first.
	ListChangedSince(ctx context.Context, userID int64, since time.Time) ([]*domain.Bookmark, error)

	// Upsert inserts or replaces by (user_id, browser_id) and fills in the
	// record's ID and CreatedAt.
	Upsert(ctx context.Context, b *domain.Bookmark) error

	// Delete removes the user's bookmark with the given browser id.
	// Returns ErrNotFound when absent.
	Delete(ctx context.Context, userID int64, browserID string) error
}

// TxStore runs a function against the store with all-or-nothing semantics.
// A reconciliation call's writes either all commit or none do.
type TxStore interface {
	Store

	// InTx calls fn with a transactional view. If fn returns an error the
	// writes are rolled back and the error is returned unchanged.
	InTx(ctx context.Context, fn func(Store) error) error
}
