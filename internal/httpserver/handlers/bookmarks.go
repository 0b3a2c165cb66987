package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/favbox/favbox/internal/domain"
	"github.com/favbox/favbox/internal/httpserver/deps"
	"github.com/favbox/favbox/internal/httpserver/mw"
	"github.com/favbox/favbox/internal/logger"
	"github.com/favbox/favbox/internal/store"
)

// ListBookmarks returns all bookmarks of the user, newest first.
// Serves from the Redis list cache when one is configured.
func ListBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := mw.UserID(ctx)

		var bookmarks []*domain.Bookmark
		var cached bool
		if d.Cache != nil {
			bookmarks, cached = d.Cache.GetList(ctx, userID)
		}
		if !cached {
			var err error
			bookmarks, err = d.Sync.List(ctx, userID)
			if err != nil {
				d.Logger.Error("failed to list bookmarks",
					logger.Int64("user_id", userID), logger.Error(err))
				writeError(w, http.StatusInternalServerError, "failed to list bookmarks")
				return
			}
			if d.Cache != nil {
				d.Cache.SetList(ctx, userID, bookmarks)
			}
		}

		skip := queryInt(r, "skip", 0)
		limit := queryInt(r, "limit", defaultListLimit)
		bookmarks = paginate(bookmarks, skip, limit)

		writeJSON(w, http.StatusOK, bookmarks)
	}
}

// GetChanges returns bookmarks with synced_at after the "since" watermark.
func GetChanges(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := mw.UserID(ctx)

		since, err := time.Parse(time.RFC3339, r.URL.Query().Get("since"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid or missing 'since' timestamp")
			return
		}

		changed, err := d.Sync.ChangesSince(ctx, userID, since)
		if err != nil {
			d.Logger.Error("failed to load changes",
				logger.Int64("user_id", userID), logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to load changes")
			return
		}
		writeJSON(w, http.StatusOK, changed)
	}
}

type createBookmarkRequest struct {
	BrowserID string `json:"browser_id"`
	domain.BookmarkPatch
}

// CreateBookmark stores a single new bookmark.
func CreateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := mw.UserID(ctx)

		var req createBookmarkRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.BrowserID == "" {
			writeError(w, http.StatusBadRequest, "browser_id is required")
			return
		}
		if req.URL == nil || *req.URL == "" {
			writeError(w, http.StatusBadRequest, "url is required")
			return
		}

		b, err := d.Sync.Create(ctx, userID, req.BrowserID, req.BookmarkPatch)
		if err != nil {
			d.Logger.Error("failed to create bookmark",
				logger.Int64("user_id", userID), logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to create bookmark")
			return
		}
		invalidateList(d, r, userID)

		writeJSON(w, http.StatusCreated, b)
	}
}

// UpdateBookmark applies a partial update to one bookmark.
func UpdateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := mw.UserID(ctx)
		browserID := chi.URLParam(r, "browserID")

		var patch domain.BookmarkPatch
		if !decodeJSON(w, r, &patch) {
			return
		}

		b, err := d.Sync.Update(ctx, userID, browserID, patch)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "bookmark not found")
			return
		}
		if err != nil {
			d.Logger.Error("failed to update bookmark",
				logger.Int64("user_id", userID),
				logger.String("browser_id", browserID),
				logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to update bookmark")
			return
		}
		invalidateList(d, r, userID)

		writeJSON(w, http.StatusOK, b)
	}
}

// DeleteBookmark removes one bookmark.
func DeleteBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := mw.UserID(ctx)
		browserID := chi.URLParam(r, "browserID")

		err := d.Sync.Delete(ctx, userID, browserID)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "bookmark not found")
			return
		}
		if err != nil {
			d.Logger.Error("failed to delete bookmark",
				logger.Int64("user_id", userID),
				logger.String("browser_id", browserID),
				logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to delete bookmark")
			return
		}
		invalidateList(d, r, userID)

		w.WriteHeader(http.StatusNoContent)
	}
}

func invalidateList(d deps.Deps, r *http.Request, userID int64) {
	if d.Cache != nil {
		d.Cache.Invalidate(r.Context(), userID)
	}
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			return i
		}
	}
	return def
}

// defaultListLimit caps one list response; explicit limits clamp back
// to it so ?limit=0 can never disable the cap.
const defaultListLimit = 1000

func paginate(bookmarks []*domain.Bookmark, skip, limit int) []*domain.Bookmark {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if skip >= len(bookmarks) {
		return []*domain.Bookmark{}
	}
	bookmarks = bookmarks[skip:]
	if len(bookmarks) > limit {
		bookmarks = bookmarks[:limit]
	}
	return bookmarks
}
