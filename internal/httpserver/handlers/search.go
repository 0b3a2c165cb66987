package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/favbox/favbox/internal/httpserver/deps"
	"github.com/favbox/favbox/internal/httpserver/mw"
	"github.com/favbox/favbox/internal/logger"
	"github.com/favbox/favbox/internal/search"
)

// Search ranks the user's bookmarks against a plain-text query.
func Search(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := mw.UserID(ctx)

		query := strings.TrimSpace(r.URL.Query().Get("q"))
		if query == "" {
			writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
			return
		}
		limit := queryInt(r, "limit", search.DefaultLimit)

		results, err := d.Searcher.Text(ctx, userID, query, limit)
		if err != nil {
			d.Logger.Error("search failed",
				logger.Int64("user_id", userID), logger.Error(err))
			writeError(w, http.StatusInternalServerError, "search failed")
			return
		}
		writeJSON(w, http.StatusOK, results)
	}
}

type semanticSearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// SemanticSearch ranks bookmarks by embedding similarity. Returns 503
// when no embeddings provider is configured.
func SemanticSearch(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := mw.UserID(ctx)

		var req semanticSearchRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Query) == "" {
			writeError(w, http.StatusBadRequest, "query is required")
			return
		}

		results, err := d.Searcher.Semantic(ctx, userID, req.Query, req.Limit)
		if errors.Is(err, search.ErrSemanticDisabled) {
			writeError(w, http.StatusServiceUnavailable, "semantic search is not configured")
			return
		}
		if err != nil {
			d.Logger.Error("semantic search failed",
				logger.Int64("user_id", userID), logger.Error(err))
			writeError(w, http.StatusInternalServerError, "search failed")
			return
		}
		writeJSON(w, http.StatusOK, results)
	}
}
