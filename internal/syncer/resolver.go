package syncer

import (
	"time"

	"github.com/favbox/favbox/internal/domain"
)

// Decision is the outcome of conflict resolution for one record.
type Decision struct {
	Accept   bool
	Conflict *domain.Conflict
}

// Resolve arbitrates between the server's record and an incoming client
// write using Last-Write-Wins on updated_at.
//
// No server record means creation: always accepted. Otherwise the write
// is accepted unless the server's updated_at is strictly newer. Ties go
// to the client, which makes resubmitting an identical payload
// idempotent instead of erroring. Both sides are compared in UTC.
func Resolve(server *domain.Bookmark, browserID string, clientUpdated time.Time) Decision {
	if server == nil {
		return Decision{Accept: true}
	}

	serverUpdated := server.UpdatedAt.UTC()
	clientUpdated = clientUpdated.UTC()

	if serverUpdated.After(clientUpdated) {
		return Decision{
			Conflict: &domain.Conflict{
				BrowserID:       browserID,
				Reason:          domain.ReasonServerNewer,
				ServerUpdatedAt: serverUpdated,
				ClientUpdatedAt: clientUpdated,
			},
		}
	}
	return Decision{Accept: true}
}

// effectiveTimestamp resolves a client record's updated_at, falling back
// to the request-wide timestamp so every record in one batch shares the
// same reference point.
func effectiveTimestamp(ts *time.Time, fallback time.Time) time.Time {
	if ts != nil && !ts.IsZero() {
		return ts.UTC()
	}
	return fallback.UTC()
}
