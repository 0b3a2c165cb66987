// Package postgres implements the bookmark store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/favbox/favbox/internal/domain"
	"github.com/favbox/favbox/internal/store"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so the same
// query methods serve pooled and transactional access.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db   querier
	pool *pgxpool.Pool // nil inside a transaction
}

var _ store.TxStore = (*Store)(nil)

// NewStore creates a store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{db: pool, pool: pool}
}

// Connect opens a pgx pool and verifies connectivity.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return pool, nil
}

const bookmarkColumns = `id, user_id, browser_id, url, title, description, domain,
	favicon, image, tags, keywords, notes, folder_name, folder_id, pinned,
	http_status, date_added, created_at, updated_at, synced_at`

func scanBookmark(row pgx.Row) (*domain.Bookmark, error) {
	var b domain.Bookmark
	err := row.Scan(
		&b.ID, &b.UserID, &b.BrowserID, &b.URL, &b.Title, &b.Description, &b.Domain,
		&b.Favicon, &b.Image, &b.Tags, &b.Keywords, &b.Notes, &b.FolderName,
		&b.FolderID, &b.Pinned, &b.HTTPStatus, &b.DateAdded,
		&b.CreatedAt, &b.UpdatedAt, &b.SyncedAt,
	)
	if err != nil {
		return nil, err
	}
	if b.Tags == nil {
		b.Tags = []string{}
	}
	if b.Keywords == nil {
		b.Keywords = []string{}
	}
	return &b, nil
}

func (s *Store) queryBookmarks(ctx context.Context, query string, args ...any) ([]*domain.Bookmark, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookmarks: %w", err)
	}
	defer rows.Close()

	result := []*domain.Bookmark{}
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bookmark: %w", err)
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read bookmarks: %w", err)
	}
	return result, nil
}

func (s *Store) ListByUser(ctx context.Context, userID int64) ([]*domain.Bookmark, error) {
	query := `SELECT ` + bookmarkColumns + ` FROM bookmarks
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`
	return s.queryBookmarks(ctx, query, userID)
}

func (s *Store) GetByID(ctx context.Context, id int64) (*domain.Bookmark, error) {
	query := `SELECT ` + bookmarkColumns + ` FROM bookmarks WHERE id = $1`
	b, err := scanBookmark(s.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmark %d: %w", id, err)
	}
	return b, nil
}

func (s *Store) GetByBrowserID(ctx context.Context, userID int64, browserID string) (*domain.Bookmark, error) {
	query := `SELECT ` + bookmarkColumns + ` FROM bookmarks
		WHERE user_id = $1 AND browser_id = $2`
	b, err := scanBookmark(s.db.QueryRow(ctx, query, userID, browserID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmark %s: %w", browserID, err)
	}
	return b, nil
}

func (s *Store) ListChangedSince(ctx context.Context, userID int64, since time.Time) ([]*domain.Bookmark, error) {
	query := `SELECT ` + bookmarkColumns + ` FROM bookmarks
		WHERE user_id = $1 AND synced_at > $2
		ORDER BY synced_at DESC, id DESC`
	return s.queryBookmarks(ctx, query, userID, since)
}

func (s *Store) Upsert(ctx context.Context, b *domain.Bookmark) error {
	query := `
		INSERT INTO bookmarks (
			user_id, browser_id, url, title, description, domain,
			favicon, image, tags, keywords, notes, folder_name, folder_id,
			pinned, http_status, date_added, updated_at, synced_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (user_id, browser_id) DO UPDATE SET
			url = EXCLUDED.url,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			domain = EXCLUDED.domain,
			favicon = EXCLUDED.favicon,
			image = EXCLUDED.image,
			tags = EXCLUDED.tags,
			keywords = EXCLUDED.keywords,
			notes = EXCLUDED.notes,
			folder_name = EXCLUDED.folder_name,
			folder_id = EXCLUDED.folder_id,
			pinned = EXCLUDED.pinned,
			http_status = EXCLUDED.http_status,
			date_added = EXCLUDED.date_added,
			updated_at = EXCLUDED.updated_at,
			synced_at = EXCLUDED.synced_at
		RETURNING id, created_at`
	err := s.db.QueryRow(ctx, query,
		b.UserID, b.BrowserID, b.URL, b.Title, b.Description, b.Domain,
		b.Favicon, b.Image, b.Tags, b.Keywords, b.Notes, b.FolderName, b.FolderID,
		b.Pinned, b.HTTPStatus, b.DateAdded, b.UpdatedAt, b.SyncedAt,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert bookmark %s: %w", b.BrowserID, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, userID int64, browserID string) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM bookmarks WHERE user_id = $1 AND browser_id = $2`,
		userID, browserID)
	if err != nil {
		return fmt.Errorf("failed to delete bookmark %s: %w", browserID, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// InTx runs fn inside a single database transaction.
func (s *Store) InTx(ctx context.Context, fn func(store.Store) error) error {
	if s.pool == nil {
		// Already transactional, reuse the current one.
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&Store{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
