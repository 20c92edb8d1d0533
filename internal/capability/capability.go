// Package capability defines the narrow interfaces for the two injected,
// potentially-blocking scoring backends the anomaly engine consumes, plus
// deterministic implementations that need no model files. The engine treats
// both as opaque: any implementation safe for concurrent use can be
// swapped in without touching pipeline structure.
package capability

import (
	"context"

	"github.com/ashmont/kestrel/internal/model"
)

// SentimentScorer returns a negativity/anomaly-likelihood signal in [0, 1]
// for a line of text; higher means more anomalous. Implementations may
// block and may fail; callers must treat failure as a zero contribution,
// never as a batch abort.
type SentimentScorer interface {
	Score(ctx context.Context, text string) (float64, error)
}

// Classification is the outcome of secondary, model-backed categorization.
type Classification struct {
	Category   model.Category
	Confidence float64
	Scores     map[model.Category]float64
}

// CategoryClassifier produces the best-matching label from a fixed set plus
// a confidence distribution over all labels. Implementations must be safe
// for concurrent invocation.
type CategoryClassifier interface {
	Classify(ctx context.Context, text string, labels []model.Category) (Classification, error)
	Close() error
}
