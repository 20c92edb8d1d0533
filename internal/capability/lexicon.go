package capability

import (
	"context"
	"strings"

	"github.com/ashmont/kestrel/internal/model"
)

// negativeTerms weights the distress vocabulary of Hadoop logs. The
// strongest term present sets the base signal; every additional distinct
// term adds a small increment, capped at 1.
var negativeTerms = map[string]float64{
	"fatal":     1.0,
	"critical":  0.9,
	"exception": 0.8,
	"error":     0.7,
	"failed":    0.7,
	"failure":   0.7,
	"timeout":   0.6,
	"refused":   0.6,
	"corrupted": 0.8,
	"warning":   0.5,
}

const extraTermBoost = 0.05

// LexiconScorer is a deterministic keyword-based SentimentScorer. It never
// fails and never blocks, which makes it the default when no model backend
// is configured, and a reproducible fixture in tests.
type LexiconScorer struct{}

// NewLexiconScorer creates a LexiconScorer.
func NewLexiconScorer() *LexiconScorer {
	return &LexiconScorer{}
}

// Score returns the weighted negativity signal for text.
func (s *LexiconScorer) Score(_ context.Context, text string) (float64, error) {
	lower := strings.ToLower(text)

	var base float64
	var extra int
	for term, weight := range negativeTerms {
		if !strings.Contains(lower, term) {
			continue
		}
		if weight > base {
			base = weight
		}
		extra++
	}
	if extra > 1 {
		base += float64(extra-1) * extraTermBoost
	}
	if base > 1 {
		base = 1
	}
	return base, nil
}

// categoryTerms drives the keyword fallback classifier. Each label scores
// by the number of its terms present in the text.
var categoryTerms = map[model.Category][]string{
	model.CategoryPerformance:  {"slow", "pause", "latency", "jvmpausemonitor"},
	model.CategorySecurity:     {"login", "authentication", "token", "kerberos", "permission"},
	model.CategoryAvailability: {"shutting down", "shutdown", "lost leadership", "failed to start", "unavailable"},
	model.CategoryData:         {"corrupted", "replica", "block", "checksum"},
	model.CategoryNetwork:      {"connection", "network", "socket", "timed out", "refused"},
	model.CategoryResource:     {"memory", "disk", "capacity", "load", "space"},
}

// KeywordClassifier is a deterministic CategoryClassifier used when no
// ONNX model is configured. Scores are normalized term-hit counts.
type KeywordClassifier struct{}

// NewKeywordClassifier creates a KeywordClassifier.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

// Classify scores each candidate label by keyword hits and returns the
// best, with the hit distribution normalized over all labels. When nothing
// matches it returns UNKNOWN with zero confidence.
func (c *KeywordClassifier) Classify(_ context.Context, text string, labels []model.Category) (Classification, error) {
	lower := strings.ToLower(text)

	scores := make(map[model.Category]float64, len(labels))
	var total float64
	for _, label := range labels {
		var hits float64
		for _, term := range categoryTerms[label] {
			if strings.Contains(lower, term) {
				hits++
			}
		}
		scores[label] = hits
		total += hits
	}

	if total == 0 {
		return Classification{Category: model.CategoryUnknown, Confidence: 0, Scores: scores}, nil
	}

	best := Classification{Category: model.CategoryUnknown}
	for _, label := range labels {
		scores[label] /= total
		if scores[label] > best.Confidence {
			best.Category = label
			best.Confidence = scores[label]
		}
	}
	best.Scores = scores
	return best, nil
}

// Close implements CategoryClassifier; there is nothing to release.
func (c *KeywordClassifier) Close() error { return nil }
