package kestrel

import (
	"context"
	"fmt"
	"os"

	"github.com/ashmont/kestrel/internal/capability"
	"github.com/ashmont/kestrel/internal/capability/embedding"
	"github.com/ashmont/kestrel/internal/engine"
)

// Kestrel is an HDFS log anomaly detection engine. Safe for concurrent
// use.
type Kestrel struct {
	engine     *engine.Engine
	classifier capability.CategoryClassifier
}

// New creates a Kestrel instance. When ONNX model files are present the
// secondary classifier runs embedding inference; otherwise it falls back
// to keyword matching. Create once, reuse across requests.
func New(opts ...Option) (*Kestrel, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	classifier, err := newClassifier(o)
	if err != nil {
		return nil, fmt.Errorf("kestrel: %w", err)
	}

	eng := engine.New(
		capability.NewLexiconScorer(),
		classifier,
		nil,
		engine.WithWorkers(o.workers),
		engine.WithTimeout(o.timeout),
	)
	return &Kestrel{engine: eng, classifier: classifier}, nil
}

func newClassifier(o options) (capability.CategoryClassifier, error) {
	modelPath, vocabPath := resolvePaths(o)
	if _, err := os.Stat(modelPath); err != nil {
		return capability.NewKeywordClassifier(), nil
	}
	return embedding.NewClassifier(modelPath, vocabPath)
}

// Process splits a log blob into logical entries and returns the
// anomalies found, in input order.
func (k *Kestrel) Process(ctx context.Context, blob string) []Anomaly {
	records := k.engine.Process(ctx, blob)
	anomalies := make([]Anomaly, len(records))
	for i, rec := range records {
		anomalies[i] = anomalyFromRecord(rec)
	}
	return anomalies
}

// ProcessEntry analyzes a single log entry. The second return value
// reports whether the entry qualified as an anomaly.
func (k *Kestrel) ProcessEntry(ctx context.Context, entry string) (Anomaly, bool) {
	rec := k.engine.ProcessEntry(ctx, entry)
	if rec == nil {
		return Anomaly{}, false
	}
	return anomalyFromRecord(*rec), true
}

// Close releases classifier resources. Must be called when the Kestrel
// instance is no longer needed.
func (k *Kestrel) Close() error {
	return k.classifier.Close()
}
