package classify

import (
	"strings"
)

// Match is a scored category assignment.
type Match struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// Classifier scores text against the taxonomy's keyword sets.
type Classifier struct {
	taxonomy *Taxonomy
}

func NewClassifier(t *Taxonomy) *Classifier {
	return &Classifier{taxonomy: t}
}

// Classify picks the best matching category for a bookmark, or ok=false
// when nothing matches. Confidence is the fraction of the winning
// category's keywords found in the text, capped at 1.
func (c *Classifier) Classify(title, description string, keywords []string) (Match, bool) {
	text := strings.ToLower(title + " " + description + " " + strings.Join(keywords, " "))
	if strings.TrimSpace(text) == "" {
		return Match{}, false
	}

	var best Match
	for _, cat := range c.taxonomy.Categories {
		hits := 0
		for _, kw := range cat.Keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		// Weight by hit count so one incidental keyword doesn't beat a
		// category with several matches.
		confidence := float64(hits) / float64(len(cat.Keywords))
		confidence = confidence*0.5 + 0.5*minFloat(float64(hits)/3.0, 1.0)
		if confidence > best.Confidence {
			best = Match{Category: cat.Name, Confidence: confidence}
		}
	}

	if best.Category == "" {
		return Match{}, false
	}
	if best.Confidence > 1 {
		best.Confidence = 1
	}
	return best, true
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
