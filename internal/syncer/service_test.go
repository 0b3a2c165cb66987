package syncer_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/favbox/favbox/internal/domain"
	"github.com/favbox/favbox/internal/logger"
	"github.com/favbox/favbox/internal/store"
	"github.com/favbox/favbox/internal/store/memory"
	"github.com/favbox/favbox/internal/syncer"
)

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// fakeClock hands out a controllable now().
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: baseTime} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// recordingBroadcaster captures fan-out per user.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events map[int64][]syncer.Event
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{events: map[int64][]syncer.Event{}}
}

func (b *recordingBroadcaster) BroadcastToUser(userID int64, v any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ev, ok := v.(syncer.Event); ok {
		b.events[userID] = append(b.events[userID], ev)
	}
}

func (b *recordingBroadcaster) eventsFor(userID int64) []syncer.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]syncer.Event(nil), b.events[userID]...)
}

// recordingEnqueuer captures enrichment requests.
type recordingEnqueuer struct {
	mu  sync.Mutex
	ids []int64
}

func (e *recordingEnqueuer) Enqueue(bookmarkID int64) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ids = append(e.ids, bookmarkID)
	return "job"
}

func (e *recordingEnqueuer) enqueued() []int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]int64(nil), e.ids...)
}

type fixture struct {
	svc         *syncer.Service
	store       store.TxStore
	clock       *fakeClock
	broadcaster *recordingBroadcaster
	enqueuer    *recordingEnqueuer
}

func newFixture() *fixture {
	clock := newFakeClock()
	broadcaster := newRecordingBroadcaster()
	enqueuer := &recordingEnqueuer{}
	st := memory.NewStore()
	svc := syncer.NewService(st, broadcaster, enqueuer, logger.NewNop(),
		syncer.WithClock(clock.Now))
	return &fixture{svc: svc, store: st, clock: clock, broadcaster: broadcaster, enqueuer: enqueuer}
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func clientBookmark(browserID, title string, updated time.Time) syncer.ClientBookmark {
	return syncer.ClientBookmark{
		BrowserID: browserID,
		BookmarkPatch: domain.BookmarkPatch{
			URL:       strPtr("https://example.com/" + browserID),
			Title:     strPtr(title),
			UpdatedAt: timePtr(updated),
		},
	}
}

func TestFullSyncCreatesBookmarks(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.svc.FullSync(ctx, 1, syncer.FullSyncRequest{
		Bookmarks: []syncer.ClientBookmark{
			clientBookmark("bm-1", "First", baseTime.Add(-time.Hour)),
			clientBookmark("bm-2", "Second", baseTime.Add(-time.Minute)),
		},
		ClientTimestamp: baseTime,
	})
	require.NoError(t, err)

	assert.Len(t, res.Bookmarks, 2)
	assert.Empty(t, res.Conflicts)
	assert.Equal(t, baseTime, res.ServerTimestamp)

	for _, b := range res.Bookmarks {
		assert.Equal(t, int64(1), b.UserID)
		assert.Equal(t, baseTime, b.SyncedAt)
		assert.NotNil(t, b.Tags)
		assert.NotNil(t, b.Keywords)
	}
}

func TestFullSyncIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	req := syncer.FullSyncRequest{
		Bookmarks: []syncer.ClientBookmark{
			clientBookmark("bm-1", "First", baseTime.Add(-time.Hour)),
		},
		ClientTimestamp: baseTime,
	}

	res1, err := f.svc.FullSync(ctx, 1, req)
	require.NoError(t, err)
	require.Empty(t, res1.Conflicts)

	f.clock.Advance(time.Minute)

	// Resubmitting the identical payload must not conflict: the stored
	// updated_at equals the client's, and ties go to the client.
	res2, err := f.svc.FullSync(ctx, 1, req)
	require.NoError(t, err)
	assert.Empty(t, res2.Conflicts)
	require.Len(t, res2.Bookmarks, 1)
	assert.Equal(t, res1.Bookmarks[0].UpdatedAt, res2.Bookmarks[0].UpdatedAt)
	assert.Equal(t, res1.Bookmarks[0].ID, res2.Bookmarks[0].ID)
}

func TestFullSyncServerNewerConflicts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.FullSync(ctx, 1, syncer.FullSyncRequest{
		Bookmarks: []syncer.ClientBookmark{
			clientBookmark("bm-1", "Fresh title", baseTime),
		},
		ClientTimestamp: baseTime,
	})
	require.NoError(t, err)

	// A stale snapshot from another device.
	res, err := f.svc.FullSync(ctx, 1, syncer.FullSyncRequest{
		Bookmarks: []syncer.ClientBookmark{
			clientBookmark("bm-1", "Stale title", baseTime.Add(-time.Hour)),
		},
		ClientTimestamp: baseTime.Add(-time.Hour),
	})
	require.NoError(t, err)

	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, "bm-1", res.Conflicts[0].BrowserID)
	assert.Equal(t, domain.ReasonServerNewer, res.Conflicts[0].Reason)

	require.Len(t, res.Bookmarks, 1)
	assert.Equal(t, "Fresh title", res.Bookmarks[0].Title)
}

func TestFullSyncNeverDeletes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.FullSync(ctx, 1, syncer.FullSyncRequest{
		Bookmarks: []syncer.ClientBookmark{
			clientBookmark("bm-1", "First", baseTime),
			clientBookmark("bm-2", "Second", baseTime),
		},
		ClientTimestamp: baseTime,
	})
	require.NoError(t, err)

	// The next snapshot only mentions bm-1. bm-2 must survive.
	res, err := f.svc.FullSync(ctx, 1, syncer.FullSyncRequest{
		Bookmarks: []syncer.ClientBookmark{
			clientBookmark("bm-1", "First", baseTime.Add(time.Minute)),
		},
		ClientTimestamp: baseTime.Add(time.Minute),
	})
	require.NoError(t, err)
	assert.Len(t, res.Bookmarks, 2)
}

func TestFullSyncFallbackTimestamp(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	clientTS := baseTime.Add(-time.Hour)
	res, err := f.svc.FullSync(ctx, 1, syncer.FullSyncRequest{
		Bookmarks: []syncer.ClientBookmark{
			{
				BrowserID: "bm-1",
				BookmarkPatch: domain.BookmarkPatch{
					URL:   strPtr("https://example.com/bm-1"),
					Title: strPtr("No timestamp"),
				},
			},
		},
		ClientTimestamp: clientTS,
	})
	require.NoError(t, err)

	require.Len(t, res.Bookmarks, 1)
	assert.Equal(t, clientTS, res.Bookmarks[0].UpdatedAt)
}

func TestFullSyncDuplicateBrowserIDsLastWins(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.svc.FullSync(ctx, 1, syncer.FullSyncRequest{
		Bookmarks: []syncer.ClientBookmark{
			clientBookmark("bm-1", "Older", baseTime.Add(-time.Hour)),
			clientBookmark("bm-1", "Newer", baseTime),
		},
		ClientTimestamp: baseTime,
	})
	require.NoError(t, err)

	assert.Empty(t, res.Conflicts)
	require.Len(t, res.Bookmarks, 1)
	assert.Equal(t, "Newer", res.Bookmarks[0].Title)
}

func TestFullSyncScenarios(t *testing.T) {
	serverUpdated := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		clientUpdated time.Time
		wantTitle     string
		wantConflicts int
	}{
		{
			name:          "newer client write lands",
			clientUpdated: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			wantTitle:     "New",
		},
		{
			name:          "older client write is rejected",
			clientUpdated: time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
			wantTitle:     "Old",
			wantConflicts: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			ctx := context.Background()

			_, err := f.svc.FullSync(ctx, 1, syncer.FullSyncRequest{
				Bookmarks:       []syncer.ClientBookmark{clientBookmark("b1", "Old", serverUpdated)},
				ClientTimestamp: serverUpdated,
			})
			require.NoError(t, err)

			res, err := f.svc.FullSync(ctx, 1, syncer.FullSyncRequest{
				Bookmarks:       []syncer.ClientBookmark{clientBookmark("b1", "New", tt.clientUpdated)},
				ClientTimestamp: tt.clientUpdated,
			})
			require.NoError(t, err)

			require.Len(t, res.Conflicts, tt.wantConflicts)
			if tt.wantConflicts > 0 {
				assert.Equal(t, "b1", res.Conflicts[0].BrowserID)
				assert.Equal(t, domain.ReasonServerNewer, res.Conflicts[0].Reason)
			}
			require.Len(t, res.Bookmarks, 1)
			assert.Equal(t, tt.wantTitle, res.Bookmarks[0].Title)
		})
	}
}

func TestIncrementalSyncCreate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.svc.IncrementalSync(ctx, 1, syncer.IncrementalSyncRequest{
		Changes: []syncer.Change{
			{
				BrowserID: "bm-1",
				BookmarkPatch: domain.BookmarkPatch{
					URL:   strPtr("https://example.com/a"),
					Title: strPtr("Created"),
				},
			},
		},
		LastSyncAt: baseTime.Add(-time.Hour),
	})
	require.NoError(t, err)

	assert.Empty(t, res.Conflicts)
	require.Len(t, res.Bookmarks, 1)
	assert.Equal(t, "Created", res.Bookmarks[0].Title)

	events := f.broadcaster.eventsFor(1)
	require.Len(t, events, 1)
	assert.Equal(t, syncer.EventBookmarkCreated, events[0].Type)
	require.NotNil(t, events[0].Bookmark)

	// Only creations enter the enrichment queue.
	assert.Equal(t, []int64{events[0].Bookmark.ID}, f.enqueuer.enqueued())
}

func TestIncrementalSyncUpdateAndConflict(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.IncrementalSync(ctx, 1, syncer.IncrementalSyncRequest{
		Changes: []syncer.Change{
			{
				BrowserID: "bm-1",
				BookmarkPatch: domain.BookmarkPatch{
					URL:       strPtr("https://example.com/a"),
					Title:     strPtr("Original"),
					UpdatedAt: timePtr(baseTime),
				},
			},
		},
	})
	require.NoError(t, err)

	// Newer client write is accepted and only touches supplied fields.
	res, err := f.svc.IncrementalSync(ctx, 1, syncer.IncrementalSyncRequest{
		Changes: []syncer.Change{
			{
				BrowserID: "bm-1",
				BookmarkPatch: domain.BookmarkPatch{
					Title:     strPtr("Renamed"),
					UpdatedAt: timePtr(baseTime.Add(time.Minute)),
				},
			},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Conflicts)
	require.Len(t, res.Bookmarks, 1)
	assert.Equal(t, "Renamed", res.Bookmarks[0].Title)
	assert.Equal(t, "https://example.com/a", res.Bookmarks[0].URL)

	// Stale write from another device is rejected.
	res, err = f.svc.IncrementalSync(ctx, 1, syncer.IncrementalSyncRequest{
		Changes: []syncer.Change{
			{
				BrowserID: "bm-1",
				BookmarkPatch: domain.BookmarkPatch{
					Title:     strPtr("Stale"),
					UpdatedAt: timePtr(baseTime.Add(-time.Minute)),
				},
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, domain.ReasonServerNewer, res.Conflicts[0].Reason)

	b, err := f.store.GetByBrowserID(ctx, 1, "bm-1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", b.Title)
}

func TestIncrementalSyncDeleteIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.IncrementalSync(ctx, 1, syncer.IncrementalSyncRequest{
		Changes: []syncer.Change{
			{
				BrowserID: "bm-1",
				BookmarkPatch: domain.BookmarkPatch{
					URL:   strPtr("https://example.com/a"),
					Title: strPtr("Doomed"),
				},
			},
		},
	})
	require.NoError(t, err)

	del := syncer.IncrementalSyncRequest{
		Changes: []syncer.Change{{BrowserID: "bm-1", Deleted: true}},
	}

	res, err := f.svc.IncrementalSync(ctx, 1, del)
	require.NoError(t, err)
	assert.Empty(t, res.Conflicts)

	_, err = f.store.GetByBrowserID(ctx, 1, "bm-1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	before := len(f.broadcaster.eventsFor(1))

	// Deleting again is a no-op, not an error, and emits no event.
	res, err = f.svc.IncrementalSync(ctx, 1, del)
	require.NoError(t, err)
	assert.Empty(t, res.Conflicts)
	assert.Len(t, f.broadcaster.eventsFor(1), before)
}

func TestIncrementalSyncReturnsConcurrentChanges(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	watermark := f.clock.Now()

	// Another device writes after this client's last sync.
	f.clock.Advance(time.Minute)
	_, err := f.svc.Create(ctx, 1, "bm-other", domain.BookmarkPatch{
		URL:   strPtr("https://example.com/other"),
		Title: strPtr("From another device"),
	})
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	res, err := f.svc.IncrementalSync(ctx, 1, syncer.IncrementalSyncRequest{
		Changes: []syncer.Change{
			{
				BrowserID: "bm-mine",
				BookmarkPatch: domain.BookmarkPatch{
					URL:   strPtr("https://example.com/mine"),
					Title: strPtr("Mine"),
				},
			},
		},
		LastSyncAt: watermark,
	})
	require.NoError(t, err)

	ids := make([]string, 0, len(res.Bookmarks))
	for _, b := range res.Bookmarks {
		ids = append(ids, b.BrowserID)
	}
	assert.ElementsMatch(t, []string{"bm-other", "bm-mine"}, ids)
}

func TestChangesSinceBoundaryIsStrict(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, 1, "bm-1", domain.BookmarkPatch{
		URL: strPtr("https://example.com/a"), Title: strPtr("One"),
	})
	require.NoError(t, err)

	b, err := f.store.GetByBrowserID(ctx, 1, "bm-1")
	require.NoError(t, err)

	// synced_at == since is already seen and must not be returned again.
	changed, err := f.svc.ChangesSince(ctx, 1, b.SyncedAt)
	require.NoError(t, err)
	assert.Empty(t, changed)

	changed, err = f.svc.ChangesSince(ctx, 1, b.SyncedAt.Add(-time.Nanosecond))
	require.NoError(t, err)
	assert.Len(t, changed, 1)
}

func TestFanOutIsPerUser(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, 1, "bm-1", domain.BookmarkPatch{
		URL: strPtr("https://example.com/a"), Title: strPtr("User one's"),
	})
	require.NoError(t, err)

	assert.Len(t, f.broadcaster.eventsFor(1), 1)
	assert.Empty(t, f.broadcaster.eventsFor(2))
}

func TestUsersAreIsolated(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, 1, "bm-1", domain.BookmarkPatch{
		URL: strPtr("https://example.com/a"), Title: strPtr("User one's"),
	})
	require.NoError(t, err)

	list, err := f.svc.List(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, list)

	// Same browser id under another user is a distinct record.
	_, err = f.svc.Create(ctx, 2, "bm-1", domain.BookmarkPatch{
		URL: strPtr("https://example.com/b"), Title: strPtr("User two's"),
	})
	require.NoError(t, err)

	list, err = f.svc.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "User one's", list[0].Title)
}

func TestUpdateIsAuthoritative(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, 1, "bm-1", domain.BookmarkPatch{
		URL: strPtr("https://example.com/a"), Title: strPtr("Before"),
	})
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	b, err := f.svc.Update(ctx, 1, "bm-1", domain.BookmarkPatch{Title: strPtr("After")})
	require.NoError(t, err)

	assert.Equal(t, "After", b.Title)
	assert.Equal(t, f.clock.Now().UTC(), b.UpdatedAt)

	events := f.broadcaster.eventsFor(1)
	require.NotEmpty(t, events)
	assert.Equal(t, syncer.EventBookmarkUpdated, events[len(events)-1].Type)
}

func TestDeleteMissingReturnsNotFound(t *testing.T) {
	f := newFixture()
	err := f.svc.Delete(context.Background(), 1, "bm-missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSyncRollsBackOnStoreError(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, 1, "bm-1", domain.BookmarkPatch{
		URL: strPtr("https://example.com/a"), Title: strPtr("Keep"),
	})
	require.NoError(t, err)

	st := &failingStore{TxStore: f.store}
	svc := syncer.NewService(st, nil, nil, logger.NewNop())

	_, err = svc.IncrementalSync(ctx, 1, syncer.IncrementalSyncRequest{
		Changes: []syncer.Change{
			{BrowserID: "bm-2", BookmarkPatch: domain.BookmarkPatch{Title: strPtr("New")}},
			{BrowserID: "bm-1", Deleted: true},
		},
	})
	require.Error(t, err)

	// The failing batch left no trace.
	list, err := f.svc.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "bm-1", list[0].BrowserID)
}

// failingStore fails every transaction after the callback ran, which
// exercises the rollback path of the underlying memory store.
type failingStore struct {
	store.TxStore
}

func (s *failingStore) InTx(ctx context.Context, fn func(store.Store) error) error {
	return s.TxStore.InTx(ctx, func(tx store.Store) error {
		if err := fn(tx); err != nil {
			return err
		}
		return assert.AnError
	})
}
