package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/favbox/favbox/internal/domain"
	"github.com/favbox/favbox/internal/store/memory"
)

func seedBookmark(t *testing.T, st *memory.Store, b *domain.Bookmark) {
	t.Helper()
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	b.SyncedAt = b.UpdatedAt
	require.NoError(t, st.Upsert(context.Background(), b))
}

func TestTextSearchRanking(t *testing.T) {
	st := memory.NewStore()
	seedBookmark(t, st, &domain.Bookmark{
		UserID: 1, BrowserID: "bm-exact",
		URL: "https://golang.org", Title: "golang",
	})
	seedBookmark(t, st, &domain.Bookmark{
		UserID: 1, BrowserID: "bm-prefix",
		URL: "https://go.dev/blog", Title: "golang concurrency patterns",
	})
	seedBookmark(t, st, &domain.Bookmark{
		UserID: 1, BrowserID: "bm-tag",
		URL: "https://example.com", Title: "Some article", Tags: []string{"golang"},
	})
	seedBookmark(t, st, &domain.Bookmark{
		UserID: 1, BrowserID: "bm-miss",
		URL: "https://recipes.example.com", Title: "Banana bread",
	})

	s := NewSearcher(st, nil)
	results, err := s.Text(context.Background(), 1, "golang", 10)
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, "bm-exact", results[0].Bookmark.BrowserID)
	assert.Equal(t, "bm-prefix", results[1].Bookmark.BrowserID)
	assert.Equal(t, "bm-tag", results[2].Bookmark.BrowserID)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestTextSearchPinnedBonus(t *testing.T) {
	st := memory.NewStore()
	seedBookmark(t, st, &domain.Bookmark{
		UserID: 1, BrowserID: "bm-plain",
		URL: "https://a.example.com", Title: "kubernetes notes",
	})
	seedBookmark(t, st, &domain.Bookmark{
		UserID: 1, BrowserID: "bm-pinned",
		URL: "https://b.example.com", Title: "kubernetes notes", Pinned: true,
	})

	s := NewSearcher(st, nil)
	results, err := s.Text(context.Background(), 1, "kubernetes", 10)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "bm-pinned", results[0].Bookmark.BrowserID)
}

func TestTextSearchEmptyQueryAndLimit(t *testing.T) {
	st := memory.NewStore()
	for _, id := range []string{"a", "b", "c"} {
		seedBookmark(t, st, &domain.Bookmark{
			UserID: 1, BrowserID: "bm-" + id,
			URL: "https://example.com/" + id, Title: "shared term " + id,
		})
	}

	s := NewSearcher(st, nil)

	results, err := s.Text(context.Background(), 1, "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = s.Text(context.Background(), 1, "shared", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

// fakeEmbedder returns fixed vectors per text and counts calls.
type fakeEmbedder struct {
	vectors map[string][]float32
	calls   int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 1}, nil
}

func TestSemanticSearch(t *testing.T) {
	st := memory.NewStore()
	cooking := &domain.Bookmark{
		UserID: 1, BrowserID: "bm-cooking",
		URL: "https://food.example.com", Title: "Sourdough basics",
	}
	coding := &domain.Bookmark{
		UserID: 1, BrowserID: "bm-coding",
		URL: "https://go.dev", Title: "Effective Go",
	}
	seedBookmark(t, st, cooking)
	seedBookmark(t, st, coding)

	emb := &fakeEmbedder{vectors: map[string][]float32{
		"baking bread":         {1, 0},
		embeddingText(cooking): {0.9, 0.1},
		embeddingText(coding):  {0.1, 0.9},
	}}

	s := NewSearcher(st, emb)
	results, err := s.Semantic(context.Background(), 1, "baking bread", 10)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "bm-cooking", results[0].Bookmark.BrowserID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSemanticSearchDisabled(t *testing.T) {
	s := NewSearcher(memory.NewStore(), nil)
	_, err := s.Semantic(context.Background(), 1, "anything", 10)
	assert.ErrorIs(t, err, ErrSemanticDisabled)
}

func TestSemanticSearchCachesVectors(t *testing.T) {
	st := memory.NewStore()
	seedBookmark(t, st, &domain.Bookmark{
		UserID: 1, BrowserID: "bm-1",
		URL: "https://example.com", Title: "Cached",
	})

	emb := &fakeEmbedder{vectors: map[string][]float32{}}
	s := NewSearcher(st, emb)

	_, err := s.Semantic(context.Background(), 1, "q", 10)
	require.NoError(t, err)
	callsAfterFirst := emb.calls

	// Second query re-embeds the query but reuses the bookmark vector.
	_, err = s.Semantic(context.Background(), 1, "q", 10)
	require.NoError(t, err)
	assert.Equal(t, callsAfterFirst+1, emb.calls)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, cosine([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, cosine(nil, nil))
	assert.Equal(t, 0.0, cosine([]float32{0, 0}, []float32{1, 1}))
}
