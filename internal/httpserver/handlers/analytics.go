package handlers

import (
	"net/http"
	"sort"
	"time"

	"github.com/favbox/favbox/internal/httpserver/deps"
	"github.com/favbox/favbox/internal/httpserver/mw"
	"github.com/favbox/favbox/internal/logger"
)

const topDomains = 10

type domainCount struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

type statsResponse struct {
	TotalBookmarks int           `json:"total_bookmarks"`
	Pinned         int           `json:"pinned"`
	Tagged         int           `json:"tagged"`
	Folders        int           `json:"folders"`
	TopDomains     []domainCount `json:"top_domains"`
	LastSyncedAt   *time.Time    `json:"last_synced_at,omitempty"`
}

// Stats summarizes the user's collection: totals, folder and domain
// spread, and the last sync watermark.
func Stats(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := mw.UserID(ctx)

		bookmarks, err := d.Sync.List(ctx, userID)
		if err != nil {
			d.Logger.Error("failed to compute stats",
				logger.Int64("user_id", userID), logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to compute stats")
			return
		}

		stats := statsResponse{
			TotalBookmarks: len(bookmarks),
			TopDomains:     []domainCount{},
		}
		domains := map[string]int{}
		folders := map[string]struct{}{}
		var lastSynced time.Time

		for _, b := range bookmarks {
			if b.Pinned {
				stats.Pinned++
			}
			if len(b.Tags) > 0 {
				stats.Tagged++
			}
			if b.Domain != "" {
				domains[b.Domain]++
			}
			if b.FolderName != "" {
				folders[b.FolderName] = struct{}{}
			}
			if b.SyncedAt.After(lastSynced) {
				lastSynced = b.SyncedAt
			}
		}
		stats.Folders = len(folders)
		if !lastSynced.IsZero() {
			stats.LastSyncedAt = &lastSynced
		}

		for dom, n := range domains {
			stats.TopDomains = append(stats.TopDomains, domainCount{Domain: dom, Count: n})
		}
		sort.Slice(stats.TopDomains, func(i, j int) bool {
			a, b := stats.TopDomains[i], stats.TopDomains[j]
			if a.Count != b.Count {
				return a.Count > b.Count
			}
			return a.Domain < b.Domain
		})
		if len(stats.TopDomains) > topDomains {
			stats.TopDomains = stats.TopDomains[:topDomains]
		}

		writeJSON(w, http.StatusOK, stats)
	}
}
