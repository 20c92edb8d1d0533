package model

import "time"

// SecondaryClassification is the model-backed categorization attached to
// records that cross the notify threshold. It routes notifications and is
// independent from the deterministic pattern category.
type SecondaryClassification struct {
	Category   Category             `json:"category"`
	Confidence float64              `json:"confidence"`
	Scores     map[Category]float64 `json:"scores,omitempty"`
}

// AnomalyRecord is the pipeline's output unit: one qualifying logical log
// entry, scored and enriched. Immutable after creation — ownership
// transfers to the caller.
type AnomalyRecord struct {
	ID              string                   `json:"id"`
	Text            string                   `json:"text"`
	Timestamp       time.Time                `json:"@timestamp"`
	Level           Level                    `json:"level"`
	Component       string                   `json:"component"`
	Score           float64                  `json:"score"`
	Category        Category                 `json:"type"`
	SubType         string                   `json:"sub_type,omitempty"`
	DurationMS      int                      `json:"duration_ms,omitempty"`
	SourceComponent string                   `json:"source_component,omitempty"`
	StackTrace      string                   `json:"stack_trace,omitempty"`
	Secondary       *SecondaryClassification `json:"secondary_classification,omitempty"`
}
