// Package search ranks a user's bookmarks against a query, either by
// plain text scoring or by embedding similarity when a provider is
// configured.
package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/favbox/favbox/internal/domain"
	"github.com/favbox/favbox/internal/store"
)

const (
	// Text scoring weights
	ScoreTitleExact     = 100.0
	ScoreTitlePrefix    = 75.0
	ScoreTitleSubstring = 50.0
	ScoreTagMatch       = 40.0
	ScoreDomainMatch    = 30.0
	ScoreURLSubstring   = 20.0
	ScoreDescSubstring  = 15.0

	// Pinned bookmarks get a small nudge upward.
	ScorePinnedBonus = 10.0

	DefaultLimit = 20
)

// ErrSemanticDisabled is returned when no embeddings provider is
// configured.
var ErrSemanticDisabled = errors.New("semantic search is not configured")

// Result is one ranked hit.
type Result struct {
	Bookmark *domain.Bookmark `json:"bookmark"`
	Score    float64          `json:"score"`
}

// Searcher ranks bookmarks. The embedder may be nil, which disables the
// semantic path only.
type Searcher struct {
	store    store.Store
	embedder Embedder

	// Query-independent vectors are cached per bookmark and recomputed
	// when the record's updated_at moves.
	mu      sync.Mutex
	vectors map[int64]cachedVector
}

type cachedVector struct {
	updatedAt time.Time
	vec       []float32
}

func NewSearcher(st store.Store, embedder Embedder) *Searcher {
	return &Searcher{
		store:    st,
		embedder: embedder,
		vectors:  make(map[int64]cachedVector),
	}
}

// Text ranks the user's bookmarks against a plain-text query.
func (s *Searcher) Text(ctx context.Context, userID int64, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return []Result{}, nil
	}

	bookmarks, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(bookmarks))
	for _, b := range bookmarks {
		if score := scoreText(query, b); score > 0 {
			results = append(results, Result{Bookmark: b, Score: score})
		}
	}
	sortAndTrim(&results, limit)
	return results, nil
}

// Semantic ranks the user's bookmarks by cosine similarity between the
// query embedding and each bookmark's embedding.
func (s *Searcher) Semantic(ctx context.Context, userID int64, query string, limit int) ([]Result, error) {
	if s.embedder == nil {
		return nil, ErrSemanticDisabled
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	bookmarks, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(bookmarks))
	for _, b := range bookmarks {
		vec, err := s.bookmarkVector(ctx, b)
		if err != nil {
			// One bad embedding should not sink the whole query.
			continue
		}
		if score := cosine(queryVec, vec); score > 0 {
			results = append(results, Result{Bookmark: b, Score: score})
		}
	}
	sortAndTrim(&results, limit)
	return results, nil
}

func (s *Searcher) bookmarkVector(ctx context.Context, b *domain.Bookmark) ([]float32, error) {
	s.mu.Lock()
	cached, ok := s.vectors[b.ID]
	s.mu.Unlock()
	if ok && cached.updatedAt.Equal(b.UpdatedAt) {
		return cached.vec, nil
	}

	vec, err := s.embedder.Embed(ctx, embeddingText(b))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.vectors[b.ID] = cachedVector{updatedAt: b.UpdatedAt, vec: vec}
	s.mu.Unlock()
	return vec, nil
}

// embeddingText flattens a bookmark into the text that gets embedded.
func embeddingText(b *domain.Bookmark) string {
	parts := []string{b.Title}
	if b.Description != "" {
		parts = append(parts, b.Description)
	}
	if len(b.Tags) > 0 {
		parts = append(parts, strings.Join(b.Tags, " "))
	}
	if b.Notes != "" {
		parts = append(parts, b.Notes)
	}
	return strings.Join(parts, "\n")
}

func scoreText(query string, b *domain.Bookmark) float64 {
	var score float64
	title := strings.ToLower(b.Title)

	switch {
	case title == query:
		score += ScoreTitleExact
	case strings.HasPrefix(title, query):
		score += ScoreTitlePrefix
	case strings.Contains(title, query):
		score += ScoreTitleSubstring
	}

	for _, tag := range b.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			score += ScoreTagMatch
			break
		}
	}

	if strings.Contains(strings.ToLower(b.Domain), query) {
		score += ScoreDomainMatch
	}
	if strings.Contains(strings.ToLower(b.URL), query) {
		score += ScoreURLSubstring
	}
	if strings.Contains(strings.ToLower(b.Description), query) {
		score += ScoreDescSubstring
	}

	if score > 0 && b.Pinned {
		score += ScorePinnedBonus
	}
	return score
}

func sortAndTrim(results *[]Result, limit int) {
	sort.SliceStable(*results, func(i, j int) bool {
		return (*results)[i].Score > (*results)[j].Score
	})
	if len(*results) > limit {
		*results = (*results)[:limit]
	}
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
