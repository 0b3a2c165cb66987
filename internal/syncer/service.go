// Package syncer reconciles client bookmark state against the server:
// full-snapshot merges, incremental change lists, Last-Write-Wins
// conflict resolution and change fan-out to other live connections.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/favbox/favbox/internal/domain"
	"github.com/favbox/favbox/internal/logger"
	"github.com/favbox/favbox/internal/store"
)

// ClientBookmark is one record of a full-sync payload.
type ClientBookmark struct {
	BrowserID string `json:"browser_id"`
	domain.BookmarkPatch
}

// Change is one entry of an incremental-sync payload.
type Change struct {
	BrowserID string `json:"browser_id"`
	Deleted   bool   `json:"deleted,omitempty"`
	domain.BookmarkPatch
}

// FullSyncRequest carries a client's complete bookmark snapshot.
type FullSyncRequest struct {
	Bookmarks []ClientBookmark `json:"bookmarks"`
	// ClientTimestamp is the client's declared submission time, used as
	// the updated_at fallback for records that omit one.
	ClientTimestamp time.Time `json:"client_timestamp"`
}

// IncrementalSyncRequest carries discrete changes since the client's
// last sync watermark.
type IncrementalSyncRequest struct {
	Changes    []Change  `json:"changes"`
	LastSyncAt time.Time `json:"last_sync_at"`
}

// Result is the outcome of either reconciliation path.
type Result struct {
	Bookmarks       []*domain.Bookmark `json:"bookmarks"`
	ServerTimestamp time.Time          `json:"server_timestamp"`
	Conflicts       []domain.Conflict  `json:"conflicts"`
}

// Service is the sync reconciler. All writes of one call happen in a
// single store transaction; fan-out and enrichment run only after the
// commit succeeds.
type Service struct {
	store       store.TxStore
	broadcaster Broadcaster
	enqueuer    Enqueuer
	logger      logger.Logger
	now         func() time.Time
}

type Option func(*Service)

// WithClock overrides the service clock. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(st store.TxStore, b Broadcaster, e Enqueuer, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		store:       st,
		broadcaster: b,
		enqueuer:    e,
		logger:      log,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FullSync merges the client's complete snapshot into server state and
// returns the full post-merge view. Server records the client does not
// mention are left untouched: a full sync is a merge upload, never a
// deletion.
func (s *Service) FullSync(ctx context.Context, userID int64, req FullSyncRequest) (*Result, error) {
	serverTS := s.now().UTC()
	fallback := req.ClientTimestamp
	if fallback.IsZero() {
		fallback = serverTS
	}

	conflicts := []domain.Conflict{}
	err := s.store.InTx(ctx, func(tx store.Store) error {
		existing, err := tx.ListByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to load bookmarks: %w", err)
		}
		byBrowserID := make(map[string]*domain.Bookmark, len(existing))
		for _, b := range existing {
			byBrowserID[b.BrowserID] = b
		}

		for _, cb := range req.Bookmarks {
			clientUpdated := effectiveTimestamp(cb.UpdatedAt, fallback)
			server := byBrowserID[cb.BrowserID]

			dec := Resolve(server, cb.BrowserID, clientUpdated)
			if !dec.Accept {
				conflicts = append(conflicts, *dec.Conflict)
				continue
			}

			if server == nil {
				server = domain.NewBookmark(userID, cb.BrowserID, cb.BookmarkPatch)
			} else {
				cb.BookmarkPatch.Apply(server)
			}
			server.UpdatedAt = clientUpdated
			server.SyncedAt = serverTS
			if err := tx.Upsert(ctx, server); err != nil {
				return err
			}
			// Later duplicates in the same batch see this write and win.
			byBrowserID[cb.BrowserID] = server
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	all, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load merged bookmarks: %w", err)
	}

	s.logger.Info("full sync completed",
		logger.Int64("user_id", userID),
		logger.Int("received", len(req.Bookmarks)),
		logger.Int("conflicts", len(conflicts)))

	return &Result{Bookmarks: all, ServerTimestamp: serverTS, Conflicts: conflicts}, nil
}

// IncrementalSync applies discrete create/update/delete changes and
// returns everything that changed since the client's watermark, which
// includes this call's own writes and any concurrent writes from the
// user's other devices.
func (s *Service) IncrementalSync(ctx context.Context, userID int64, req IncrementalSyncRequest) (*Result, error) {
	serverTS := s.now().UTC()

	conflicts := []domain.Conflict{}
	var events []Event
	var createdIDs []int64

	err := s.store.InTx(ctx, func(tx store.Store) error {
		for _, ch := range req.Changes {
			existing, err := tx.GetByBrowserID(ctx, userID, ch.BrowserID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}

			switch {
			case ch.Deleted:
				if existing == nil {
					continue // idempotent delete
				}
				if err := tx.Delete(ctx, userID, ch.BrowserID); err != nil {
					return err
				}
				events = append(events, Event{
					Type:      EventBookmarkDeleted,
					BrowserID: ch.BrowserID,
					Timestamp: serverTS,
				})

			case existing != nil:
				clientUpdated := effectiveTimestamp(ch.UpdatedAt, serverTS)
				dec := Resolve(existing, ch.BrowserID, clientUpdated)
				if !dec.Accept {
					conflicts = append(conflicts, *dec.Conflict)
					continue
				}
				ch.BookmarkPatch.Apply(existing)
				existing.UpdatedAt = clientUpdated
				existing.SyncedAt = serverTS
				if err := tx.Upsert(ctx, existing); err != nil {
					return err
				}
				events = append(events, Event{
					Type:      EventBookmarkUpdated,
					Bookmark:  existing,
					Timestamp: serverTS,
				})

			default:
				b := domain.NewBookmark(userID, ch.BrowserID, ch.BookmarkPatch)
				b.UpdatedAt = effectiveTimestamp(ch.UpdatedAt, serverTS)
				b.SyncedAt = serverTS
				if err := tx.Upsert(ctx, b); err != nil {
					return err
				}
				events = append(events, Event{
					Type:      EventBookmarkCreated,
					Bookmark:  b,
					Timestamp: serverTS,
				})
				createdIDs = append(createdIDs, b.ID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Fan-out and enrichment only after the commit; their failures never
	// roll back the mutation.
	for _, ev := range events {
		s.broadcast(userID, ev)
	}
	s.enqueueEnrichment(createdIDs)

	changed, err := s.store.ListChangedSince(ctx, userID, req.LastSyncAt)
	if err != nil {
		return nil, fmt.Errorf("failed to load changed bookmarks: %w", err)
	}

	s.logger.Info("incremental sync completed",
		logger.Int64("user_id", userID),
		logger.Int("changes", len(req.Changes)),
		logger.Int("conflicts", len(conflicts)),
		logger.Int("returned", len(changed)))

	return &Result{Bookmarks: changed, ServerTimestamp: serverTS, Conflicts: conflicts}, nil
}

// List returns every bookmark of the user, newest first.
func (s *Service) List(ctx context.Context, userID int64) ([]*domain.Bookmark, error) {
	return s.store.ListByUser(ctx, userID)
}

// ChangesSince returns the user's bookmarks with synced_at after the
// watermark.
func (s *Service) ChangesSince(ctx context.Context, userID int64, since time.Time) ([]*domain.Bookmark, error) {
	return s.store.ListChangedSince(ctx, userID, since)
}

// Create stores a single new bookmark and notifies other devices.
func (s *Service) Create(ctx context.Context, userID int64, browserID string, patch domain.BookmarkPatch) (*domain.Bookmark, error) {
	now := s.now().UTC()
	b := domain.NewBookmark(userID, browserID, patch)
	b.UpdatedAt = effectiveTimestamp(patch.UpdatedAt, now)
	b.SyncedAt = now

	if err := s.store.Upsert(ctx, b); err != nil {
		return nil, err
	}

	s.broadcast(userID, Event{Type: EventBookmarkCreated, Bookmark: b, Timestamp: now})
	s.enqueueEnrichment([]int64{b.ID})
	return b, nil
}

// Update applies a partial edit to a single bookmark. Direct edits are
// authoritative: no conflict check, updated_at moves to now.
func (s *Service) Update(ctx context.Context, userID int64, browserID string, patch domain.BookmarkPatch) (*domain.Bookmark, error) {
	b, err := s.store.GetByBrowserID(ctx, userID, browserID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	patch.Apply(b)
	b.UpdatedAt = now
	b.SyncedAt = now
	if err := s.store.Upsert(ctx, b); err != nil {
		return nil, err
	}

	s.broadcast(userID, Event{Type: EventBookmarkUpdated, Bookmark: b, Timestamp: now})
	return b, nil
}

// Delete removes a single bookmark and notifies other devices. Returns
// store.ErrNotFound when the bookmark does not exist.
func (s *Service) Delete(ctx context.Context, userID int64, browserID string) error {
	if err := s.store.Delete(ctx, userID, browserID); err != nil {
		return err
	}
	s.broadcast(userID, Event{Type: EventBookmarkDeleted, BrowserID: browserID, Timestamp: s.now().UTC()})
	return nil
}

func (s *Service) broadcast(userID int64, ev Event) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.BroadcastToUser(userID, ev)
}

func (s *Service) enqueueEnrichment(ids []int64) {
	if s.enqueuer == nil {
		return
	}
	for _, id := range ids {
		s.enqueuer.Enqueue(id)
	}
}
