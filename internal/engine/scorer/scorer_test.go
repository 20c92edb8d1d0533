package scorer

import (
	"math"
	"testing"

	"github.com/ashmont/kestrel/internal/model"
)

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestBaseTable(t *testing.T) {
	tests := []struct {
		level model.Level
		want  float64
	}{
		{model.LevelFatal, 1.0},
		{model.LevelError, 0.75},
		{model.LevelWarn, 0.5},
		{model.LevelInfo, 0.25},
		{model.LevelUnknown, 0.25},
		{model.Level("BOGUS"), 0.25},
	}
	for _, tt := range tests {
		if got := Base(tt.level); got != tt.want {
			t.Errorf("Base(%s) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestScoreWeighting(t *testing.T) {
	// ERROR with sentiment 0.5: 0.75*0.7 + 0.5*0.3 = 0.675
	got := Score(model.LevelError, 0.5, 0)
	if !approxEqual(got, 0.675) {
		t.Errorf("Score(ERROR, 0.5) = %v, want 0.675", got)
	}
}

func TestScoreBounds(t *testing.T) {
	levels := []model.Level{
		model.LevelFatal, model.LevelError, model.LevelWarn,
		model.LevelInfo, model.LevelUnknown,
	}
	sentiments := []float64{-1, 0, 0.25, 0.5, 0.75, 1, 2}
	floors := []float64{0, 0.7, 0.9}

	for _, lvl := range levels {
		for _, s := range sentiments {
			for _, f := range floors {
				got := Score(lvl, s, f)
				if got < 0 || got > 1 {
					t.Errorf("Score(%s, %v, %v) = %v out of [0,1]", lvl, s, f, got)
				}
			}
		}
	}
}

// Holding sentiment fixed, the score must be monotonically non-decreasing
// in severity order INFO <= WARN <= ERROR <= FATAL.
func TestScoreMonotonicInSeverity(t *testing.T) {
	order := []model.Level{model.LevelInfo, model.LevelWarn, model.LevelError, model.LevelFatal}
	for _, sentiment := range []float64{0, 0.3, 0.7, 1} {
		prev := -1.0
		for _, lvl := range order {
			got := Score(lvl, sentiment, 0)
			if got < prev {
				t.Errorf("Score(%s, %v) = %v decreased below %v", lvl, sentiment, got, prev)
			}
			prev = got
		}
	}
}

func TestScoreFloorOverride(t *testing.T) {
	// INFO with zero sentiment is 0.175; a long-pause floor forces 0.9.
	got := Score(model.LevelInfo, 0, 0.9)
	if got != 0.9 {
		t.Errorf("expected floor 0.9 to dominate, got %v", got)
	}

	// A floor below the weighted score has no effect.
	got = Score(model.LevelFatal, 1, 0.7)
	if !approxEqual(got, 1.0) {
		t.Errorf("expected weighted 1.0 to win over floor, got %v", got)
	}
}

func TestInfoNeverQualifiesWithoutSignal(t *testing.T) {
	// 0.25*0.7 + 0*0.3 = 0.175 <= EmitThreshold.
	if got := Score(model.LevelInfo, 0, 0); got > EmitThreshold {
		t.Errorf("INFO with zero sentiment scored %v above emit threshold", got)
	}
}
