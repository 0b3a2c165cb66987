package handlers

import (
	"net/http"

	"github.com/favbox/favbox/internal/httpserver/deps"
	"github.com/favbox/favbox/internal/httpserver/mw"
	"github.com/favbox/favbox/internal/logger"
)

type suggestTagsRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Keywords    []string `json:"keywords"`
}

// SuggestTags proposes tags for a not-yet-saved bookmark.
func SuggestTags(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req suggestTagsRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		sug, err := d.Suggester.SuggestTags(r.Context(), req.Title, req.Description, req.URL, req.Keywords)
		if err != nil {
			d.Logger.Error("tag suggestion failed",
				logger.Int64("user_id", mw.UserID(r.Context())), logger.Error(err))
			writeError(w, http.StatusInternalServerError, "tag suggestion failed")
			return
		}
		writeJSON(w, http.StatusOK, sug)
	}
}

type classifyRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

type classifyResponse struct {
	Matched    bool    `json:"matched"`
	Category   string  `json:"category,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Classify assigns a taxonomy category to bookmark metadata.
func Classify(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req classifyRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		match, ok := d.Classifier.Classify(req.Title, req.Description, req.Keywords)
		if !ok {
			writeJSON(w, http.StatusOK, classifyResponse{Matched: false})
			return
		}
		writeJSON(w, http.StatusOK, classifyResponse{
			Matched:    true,
			Category:   match.Category,
			Confidence: match.Confidence,
		})
	}
}
