// Package memory is an in-memory Store used by tests. Transactions are
// emulated with copy-on-write: InTx works on a deep copy and swaps it in
// only when the callback succeeds.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/favbox/favbox/internal/domain"
	"github.com/favbox/favbox/internal/store"
)

type Store struct {
	mu     sync.RWMutex
	nextID int64
	byUser map[int64]map[string]*domain.Bookmark // user id -> browser id -> bookmark
}

var _ store.TxStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		nextID: 1,
		byUser: make(map[int64]map[string]*domain.Bookmark),
	}
}

func (s *Store) ListByUser(ctx context.Context, userID int64) ([]*domain.Bookmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&view{byUser: s.byUser}).ListByUser(ctx, userID)
}

func (s *Store) GetByID(ctx context.Context, id int64) (*domain.Bookmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&view{byUser: s.byUser}).GetByID(ctx, id)
}

func (s *Store) GetByBrowserID(ctx context.Context, userID int64, browserID string) (*domain.Bookmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&view{byUser: s.byUser}).GetByBrowserID(ctx, userID, browserID)
}

func (s *Store) ListChangedSince(ctx context.Context, userID int64, since time.Time) ([]*domain.Bookmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&view{byUser: s.byUser}).ListChangedSince(ctx, userID, since)
}

func (s *Store) Upsert(ctx context.Context, b *domain.Bookmark) error {
	return s.InTx(ctx, func(tx store.Store) error {
		return tx.Upsert(ctx, b)
	})
}

func (s *Store) Delete(ctx context.Context, userID int64, browserID string) error {
	return s.InTx(ctx, func(tx store.Store) error {
		return tx.Delete(ctx, userID, browserID)
	})
}

// InTx holds the write lock for the whole callback, so concurrent calls
// for the same user serialize exactly like a database transaction would.
func (s *Store) InTx(ctx context.Context, fn func(store.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &view{byUser: cloneAll(s.byUser), nextID: s.nextID}
	if err := fn(tx); err != nil {
		return err
	}

	s.byUser = tx.byUser
	s.nextID = tx.nextID
	return nil
}

// view implements store.Store over a snapshot. It does no locking; the
// owning Store serializes access.
type view struct {
	byUser map[int64]map[string]*domain.Bookmark
	nextID int64
}

func (v *view) ListByUser(_ context.Context, userID int64) ([]*domain.Bookmark, error) {
	out := make([]*domain.Bookmark, 0, len(v.byUser[userID]))
	for _, b := range v.byUser[userID] {
		out = append(out, b.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (v *view) GetByID(_ context.Context, id int64) (*domain.Bookmark, error) {
	for _, perUser := range v.byUser {
		for _, b := range perUser {
			if b.ID == id {
				return b.Clone(), nil
			}
		}
	}
	return nil, store.ErrNotFound
}

func (v *view) GetByBrowserID(_ context.Context, userID int64, browserID string) (*domain.Bookmark, error) {
	b, ok := v.byUser[userID][browserID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return b.Clone(), nil
}

func (v *view) ListChangedSince(_ context.Context, userID int64, since time.Time) ([]*domain.Bookmark, error) {
	var out []*domain.Bookmark
	for _, b := range v.byUser[userID] {
		if b.SyncedAt.After(since) {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SyncedAt.Equal(out[j].SyncedAt) {
			return out[i].SyncedAt.After(out[j].SyncedAt)
		}
		return out[i].ID > out[j].ID
	})
	if out == nil {
		out = []*domain.Bookmark{}
	}
	return out, nil
}

func (v *view) Upsert(_ context.Context, b *domain.Bookmark) error {
	perUser := v.byUser[b.UserID]
	if perUser == nil {
		perUser = make(map[string]*domain.Bookmark)
		v.byUser[b.UserID] = perUser
	}

	cp := b.Clone()
	if existing, ok := perUser[b.BrowserID]; ok {
		cp.ID = existing.ID
		cp.CreatedAt = existing.CreatedAt
	} else {
		cp.ID = v.nextID
		v.nextID++
		if cp.CreatedAt.IsZero() {
			cp.CreatedAt = time.Now().UTC()
		}
	}
	perUser[b.BrowserID] = cp

	b.ID = cp.ID
	b.CreatedAt = cp.CreatedAt
	return nil
}

func (v *view) Delete(_ context.Context, userID int64, browserID string) error {
	perUser := v.byUser[userID]
	if _, ok := perUser[browserID]; !ok {
		return store.ErrNotFound
	}
	delete(perUser, browserID)
	return nil
}

func cloneAll(src map[int64]map[string]*domain.Bookmark) map[int64]map[string]*domain.Bookmark {
	dst := make(map[int64]map[string]*domain.Bookmark, len(src))
	for userID, perUser := range src {
		cp := make(map[string]*domain.Bookmark, len(perUser))
		for browserID, b := range perUser {
			cp[browserID] = b.Clone()
		}
		dst[userID] = cp
	}
	return dst
}
