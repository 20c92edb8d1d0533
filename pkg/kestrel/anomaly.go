package kestrel

import (
	"time"

	"github.com/ashmont/kestrel/internal/model"
)

// Anomaly is a qualifying log entry with its score and pattern
// classification.
type Anomaly struct {
	ID              string
	Text            string
	Timestamp       time.Time
	Level           string
	Component       string
	Score           float64
	Category        string
	SubType         string
	DurationMS      int
	SourceComponent string
	StackTrace      string
	Secondary       *Classification
}

// Classification is a model-derived category with its confidence.
type Classification struct {
	Category   string
	Confidence float64
}

func anomalyFromRecord(rec model.AnomalyRecord) Anomaly {
	a := Anomaly{
		ID:              rec.ID,
		Text:            rec.Text,
		Timestamp:       rec.Timestamp,
		Level:           string(rec.Level),
		Component:       rec.Component,
		Score:           rec.Score,
		Category:        string(rec.Category),
		SubType:         rec.SubType,
		DurationMS:      rec.DurationMS,
		SourceComponent: rec.SourceComponent,
		StackTrace:      rec.StackTrace,
	}
	if rec.Secondary != nil {
		a.Secondary = &Classification{
			Category:   string(rec.Secondary.Category),
			Confidence: rec.Secondary.Confidence,
		}
	}
	return a
}
