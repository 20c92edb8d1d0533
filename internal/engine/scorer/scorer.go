// Package scorer combines severity level, pattern metadata, and the
// sentiment signal into one anomaly score.
package scorer

import "github.com/ashmont/kestrel/internal/model"

// Scoring policy constants. The 70/30 split means rule-based severity
// dominates the statistical sentiment signal; stored data depends on these
// exact values, so they are named here rather than inlined.
const (
	SeverityWeight  = 0.7
	SentimentWeight = 0.3

	// EmitThreshold gates record emission; NotifyThreshold gates secondary
	// classification and notification.
	EmitThreshold   = 0.5
	NotifyThreshold = 0.7
)

// baseScores maps each severity level to its base contribution.
var baseScores = map[model.Level]float64{
	model.LevelFatal:   1.0,
	model.LevelError:   0.75,
	model.LevelWarn:    0.5,
	model.LevelInfo:    0.25,
	model.LevelUnknown: 0.25,
}

// Base returns the base severity score for a level. Unlisted levels score
// as UNKNOWN.
func Base(level model.Level) float64 {
	if s, ok := baseScores[level]; ok {
		return s
	}
	return baseScores[model.LevelUnknown]
}

// Score computes the final anomaly score: the weighted combination of the
// level's base score and the sentiment signal, raised to the pattern rule's
// floor when one applies. The result is always in [0, 1].
func Score(level model.Level, sentiment float64, floor float64) float64 {
	s := Base(level)*SeverityWeight + clamp(sentiment)*SentimentWeight
	if floor > s {
		s = floor
	}
	return clamp(s)
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
