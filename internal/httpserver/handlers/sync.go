package handlers

import (
	"net/http"

	"github.com/favbox/favbox/internal/httpserver/deps"
	"github.com/favbox/favbox/internal/httpserver/mw"
	"github.com/favbox/favbox/internal/logger"
	"github.com/favbox/favbox/internal/syncer"
)

// FullSync merges a complete client snapshot and returns the post-merge
// server state.
func FullSync(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := mw.UserID(ctx)

		var req syncer.FullSyncRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		res, err := d.Sync.FullSync(ctx, userID, req)
		if err != nil {
			d.Logger.Error("full sync failed",
				logger.Int64("user_id", userID), logger.Error(err))
			writeError(w, http.StatusInternalServerError, "sync failed")
			return
		}
		invalidateList(d, r, userID)

		writeJSON(w, http.StatusOK, res)
	}
}

// IncrementalSync applies a change list and returns everything changed
// since the client's watermark.
func IncrementalSync(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := mw.UserID(ctx)

		var req syncer.IncrementalSyncRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		res, err := d.Sync.IncrementalSync(ctx, userID, req)
		if err != nil {
			d.Logger.Error("incremental sync failed",
				logger.Int64("user_id", userID), logger.Error(err))
			writeError(w, http.StatusInternalServerError, "sync failed")
			return
		}
		invalidateList(d, r, userID)

		writeJSON(w, http.StatusOK, res)
	}
}
