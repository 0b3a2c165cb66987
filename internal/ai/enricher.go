package ai

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/favbox/favbox/internal/logger"
	"github.com/favbox/favbox/internal/store"
	"github.com/favbox/favbox/internal/syncer"
)

// Broadcaster mirrors the sync fan-out so enriched bookmarks reach the
// user's live connections too.
type Broadcaster interface {
	BroadcastToUser(userID int64, v any)
}

type job struct {
	id         string
	bookmarkID int64
}

// Enricher tags freshly created bookmarks in the background. The sync
// path only ever calls Enqueue after a successful commit, so the
// suggester's latency and failures stay out of the request path. The
// queue is bounded; when it is full the job is dropped, which is fine
// because enrichment is best effort.
type Enricher struct {
	store       store.TxStore
	suggester   Suggester
	broadcaster Broadcaster
	logger      logger.Logger
	jobs        chan job
	stopCh      chan struct{}
	doneCh      chan struct{}
}

func NewEnricher(st store.TxStore, suggester Suggester, b Broadcaster, log logger.Logger, queueSize int) *Enricher {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Enricher{
		store:       st,
		suggester:   suggester,
		broadcaster: b,
		logger:      log,
		jobs:        make(chan job, queueSize),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Enqueue schedules a bookmark for enrichment and returns the job id.
// Returns the empty string when the queue is full.
func (e *Enricher) Enqueue(bookmarkID int64) string {
	j := job{id: uuid.NewString(), bookmarkID: bookmarkID}
	select {
	case e.jobs <- j:
		return j.id
	default:
		e.logger.Warn("enrichment queue full, dropping job",
			logger.Int64("bookmark_id", bookmarkID))
		return ""
	}
}

// Start launches the worker loop.
func (e *Enricher) Start(ctx context.Context) {
	go func() {
		defer close(e.doneCh)
		for {
			select {
			case j := <-e.jobs:
				e.process(ctx, j)
			case <-e.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop terminates the worker. Queued jobs are discarded.
func (e *Enricher) Stop() {
	close(e.stopCh)
	<-e.doneCh
}

func (e *Enricher) process(ctx context.Context, j job) {
	b, err := e.store.GetByID(ctx, j.bookmarkID)
	if err != nil {
		// Deleted before we got to it. Nothing to enrich.
		e.logger.Debug("enrichment target gone",
			logger.String("job_id", j.id),
			logger.Int64("bookmark_id", j.bookmarkID))
		return
	}
	if len(b.Tags) > 0 {
		return // user-supplied tags win over generated ones
	}

	sug, err := e.suggester.SuggestTags(ctx, b.Title, b.Description, b.URL, b.Keywords)
	if err != nil {
		e.logger.Warn("tag suggestion failed",
			logger.String("job_id", j.id),
			logger.Int64("bookmark_id", j.bookmarkID),
			logger.Error(err))
		return
	}
	if len(sug.Tags) == 0 {
		return
	}

	// Only synced_at moves. Generated tags must never win LWW against a
	// real device edit, so updated_at stays at the user's last mutation.
	now := time.Now().UTC()
	b.Tags = sug.Tags
	b.SyncedAt = now
	if err := e.store.Upsert(ctx, b); err != nil {
		e.logger.Warn("failed to store enriched bookmark",
			logger.String("job_id", j.id),
			logger.Int64("bookmark_id", j.bookmarkID),
			logger.Error(err))
		return
	}

	if e.broadcaster != nil {
		e.broadcaster.BroadcastToUser(b.UserID, syncer.Event{
			Type:      syncer.EventBookmarkUpdated,
			Bookmark:  b,
			Timestamp: now,
		})
	}

	e.logger.Info("bookmark enriched",
		logger.String("job_id", j.id),
		logger.Int64("bookmark_id", j.bookmarkID),
		logger.Int("tags", len(sug.Tags)))
}
