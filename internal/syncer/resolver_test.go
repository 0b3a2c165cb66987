package syncer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/favbox/favbox/internal/domain"
)

func TestResolve(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		serverUpdated time.Time
		clientUpdated time.Time
		wantAccept    bool
	}{
		{
			name:          "client newer wins",
			serverUpdated: base,
			clientUpdated: base.Add(time.Second),
			wantAccept:    true,
		},
		{
			name:          "server newer rejects",
			serverUpdated: base.Add(time.Second),
			clientUpdated: base,
			wantAccept:    false,
		},
		{
			name:          "equal timestamps go to the client",
			serverUpdated: base,
			clientUpdated: base,
			wantAccept:    true,
		},
		{
			name:          "zones do not matter",
			serverUpdated: base,
			clientUpdated: base.Add(time.Second).In(time.FixedZone("CET", 3600)),
			wantAccept:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := &domain.Bookmark{BrowserID: "bm-1", UpdatedAt: tt.serverUpdated}
			dec := Resolve(server, "bm-1", tt.clientUpdated)

			assert.Equal(t, tt.wantAccept, dec.Accept)
			if tt.wantAccept {
				assert.Nil(t, dec.Conflict)
				return
			}
			require.NotNil(t, dec.Conflict)
			assert.Equal(t, "bm-1", dec.Conflict.BrowserID)
			assert.Equal(t, domain.ReasonServerNewer, dec.Conflict.Reason)
			assert.Equal(t, tt.serverUpdated.UTC(), dec.Conflict.ServerUpdatedAt)
			assert.Equal(t, tt.clientUpdated.UTC(), dec.Conflict.ClientUpdatedAt)
		})
	}
}

func TestResolveNoServerRecord(t *testing.T) {
	dec := Resolve(nil, "bm-new", time.Now())
	assert.True(t, dec.Accept)
	assert.Nil(t, dec.Conflict)
}

func TestEffectiveTimestamp(t *testing.T) {
	fallback := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	supplied := fallback.Add(-time.Hour)

	assert.Equal(t, supplied, effectiveTimestamp(&supplied, fallback))
	assert.Equal(t, fallback, effectiveTimestamp(nil, fallback))

	var zero time.Time
	assert.Equal(t, fallback, effectiveTimestamp(&zero, fallback))
}
