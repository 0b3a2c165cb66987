package deps

import (
	"time"

	"github.com/favbox/favbox/internal/ai"
	"github.com/favbox/favbox/internal/classify"
	"github.com/favbox/favbox/internal/logger"
	"github.com/favbox/favbox/internal/search"
	"github.com/favbox/favbox/internal/store"
	"github.com/favbox/favbox/internal/store/rediscache"
	"github.com/favbox/favbox/internal/syncer"
	"github.com/favbox/favbox/internal/ws"
)

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	Commit    string
	BuildDate string
	GoVersion string
	TimeNow   func() time.Time // for testing, defaults to time.Now

	JWTSecret []byte

	Store      store.TxStore
	Sync       *syncer.Service
	Hub        *ws.Hub
	Cache      *rediscache.Cache // nil when the list cache is disabled
	Searcher   *search.Searcher
	Suggester  ai.Suggester
	Classifier *classify.Classifier

	RequestTimeout   time.Duration
	CORSOrigins      []string
	RateLimitEnabled bool
	SyncBurst        int // rate limit bucket size per user
	SyncPerMin       int // rate limit refill per user per minute
}
