// Package ai provides tag suggestion for bookmarks and the background
// enrichment pipeline that applies it outside the sync path.
package ai

import (
	"context"
	"net/url"
	"strings"
	"unicode"
)

// DefaultMaxTags caps how many tags a suggestion carries.
const DefaultMaxTags = 5

// Suggestion is a ranked set of proposed tags with per-tag confidence.
type Suggestion struct {
	Tags       []string           `json:"tags"`
	Confidence map[string]float64 `json:"confidence"`
}

// Suggester proposes tags for a bookmark. Implementations may call a
// remote model; KeywordSuggester is the local fallback.
type Suggester interface {
	SuggestTags(ctx context.Context, title, description, rawURL string, keywords []string) (Suggestion, error)
}

// KeywordSuggester derives tags without any model: the URL's domain
// label, supplied page keywords, then plain words from the title.
type KeywordSuggester struct {
	MaxTags int
}

var _ Suggester = (*KeywordSuggester)(nil)

func NewKeywordSuggester() *KeywordSuggester {
	return &KeywordSuggester{MaxTags: DefaultMaxTags}
}

func (s *KeywordSuggester) SuggestTags(_ context.Context, title, _ string, rawURL string, keywords []string) (Suggestion, error) {
	maxTags := s.MaxTags
	if maxTags <= 0 {
		maxTags = DefaultMaxTags
	}

	sug := Suggestion{Tags: []string{}, Confidence: map[string]float64{}}
	add := func(tag string, confidence float64) {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || len(sug.Tags) >= maxTags {
			return
		}
		if _, seen := sug.Confidence[tag]; seen {
			return
		}
		sug.Tags = append(sug.Tags, tag)
		sug.Confidence[tag] = confidence
	}

	if d := domainLabel(rawURL); len(d) > 2 {
		add(d, 0.7)
	}

	for _, kw := range keywords {
		if len(kw) <= 20 {
			add(kw, 0.6)
		}
	}

	for _, word := range strings.Fields(strings.ToLower(title)) {
		if len(word) > 3 && isAlpha(word) {
			add(word, 0.5)
		}
	}

	return sug, nil
}

// domainLabel returns the first label of the URL's host, without "www".
// "https://chat.openai.com/x" -> "chat"; "https://www.github.com" -> "github".
func domainLabel(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	if i := strings.IndexByte(host, '.'); i > 0 {
		host = host[:i]
	}
	return strings.ToLower(host)
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}
