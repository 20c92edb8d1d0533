// Package engine orchestrates the anomaly pipeline: split a raw text blob
// into logical entries, parse and pattern-classify each one, combine the
// severity and sentiment signals into a score, and emit enriched records
// for entries that qualify. Records crossing the notify threshold are
// additionally run through the secondary classifier and dispatched to the
// notifier.
package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ashmont/kestrel/internal/capability"
	"github.com/ashmont/kestrel/internal/engine/parser"
	"github.com/ashmont/kestrel/internal/engine/pattern"
	"github.com/ashmont/kestrel/internal/engine/scorer"
	"github.com/ashmont/kestrel/internal/model"
)

const (
	defaultTimeout = 10 * time.Second
	defaultWorkers = 8
)

// Notifier dispatches an alert for a record that crossed the notify
// threshold. Returns delivery success; implementations must never panic
// or block past their own timeouts.
type Notifier interface {
	Notify(ctx context.Context, rec model.AnomalyRecord) bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout bounds each external capability call. Default: 10s.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithWorkers sets the per-batch concurrency limit. Default: 8.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the engine logger. Default: zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// Engine is the anomaly pipeline orchestrator. Stateless across batches:
// the injected capabilities are the only long-lived handles, shared
// read-only and required to be safe for concurrent invocation.
type Engine struct {
	sentiment  capability.SentimentScorer
	classifier capability.CategoryClassifier
	notifier   Notifier

	timeout time.Duration
	workers int
	logger  *zap.Logger
}

// New creates an Engine. notifier may be nil when no notification
// transport is configured.
func New(sentiment capability.SentimentScorer, classifier capability.CategoryClassifier, notifier Notifier, opts ...Option) *Engine {
	e := &Engine{
		sentiment:  sentiment,
		classifier: classifier,
		notifier:   notifier,
		timeout:    defaultTimeout,
		workers:    defaultWorkers,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Process runs one batch. Entries are processed concurrently but the
// returned records preserve input order; entries that do not qualify are
// simply absent. Per-entry failures are logged and skipped — Process never
// fails for degraded conditions, and empty input yields an empty result.
func (e *Engine) Process(ctx context.Context, blob string) []model.AnomalyRecord {
	entries := parser.Split(blob)
	if len(entries) == 0 {
		return []model.AnomalyRecord{}
	}

	var sentimentFailures, classifyFailures atomic.Int64

	slots := make([]*model.AnomalyRecord, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, entry := range entries {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					e.logger.Error("entry processing panicked",
						zap.Any("panic", r),
						zap.String("entry", entry))
				}
			}()
			slots[i] = e.processEntry(gctx, entry, &sentimentFailures, &classifyFailures)
			return nil
		})
	}
	// Workers only ever return nil; per-entry failures stay inside the
	// entry boundary.
	_ = g.Wait()

	records := make([]model.AnomalyRecord, 0, len(entries))
	for _, rec := range slots {
		if rec != nil {
			records = append(records, *rec)
		}
	}

	if sf, cf := sentimentFailures.Load(), classifyFailures.Load(); sf > 0 || cf > 0 {
		e.logger.Warn("capability failures during batch",
			zap.Int64("sentiment_failures", sf),
			zap.Int64("classify_failures", cf),
			zap.Int("entries", len(entries)))
	}
	return records
}

// ProcessEntry runs the pipeline for a single logical entry. Returns nil
// when the entry does not qualify as an anomaly.
func (e *Engine) ProcessEntry(ctx context.Context, entry string) *model.AnomalyRecord {
	var sf, cf atomic.Int64
	return e.processEntry(ctx, entry, &sf, &cf)
}

func (e *Engine) processEntry(ctx context.Context, entry string, sentimentFailures, classifyFailures *atomic.Int64) *model.AnomalyRecord {
	sig := parser.Parse(entry)
	match := pattern.Classify(entry)

	sentiment := e.scoreSentiment(ctx, entry, sentimentFailures)
	score := scorer.Score(sig.Level, sentiment, match.ScoreFloor)
	if score <= scorer.EmitThreshold {
		return nil
	}

	rec := &model.AnomalyRecord{
		ID:              uuid.NewString(),
		Text:            entry,
		Timestamp:       time.Now().UTC(),
		Level:           sig.Level,
		Component:       sig.Component,
		Score:           score,
		Category:        match.Category,
		SubType:         match.SubType,
		DurationMS:      match.DurationMS,
		SourceComponent: match.SourceComponent,
		StackTrace:      sig.StackTrace,
	}

	if score > scorer.NotifyThreshold {
		e.classifyAndNotify(ctx, rec, classifyFailures)
	}
	return rec
}

// scoreSentiment calls the sentiment capability under the engine timeout.
// Any failure degrades to a zero contribution — it never aborts the entry.
func (e *Engine) scoreSentiment(ctx context.Context, entry string, failures *atomic.Int64) float64 {
	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	s, err := e.sentiment.Score(cctx, entry)
	if err != nil {
		failures.Add(1)
		e.logger.Warn("sentiment scoring failed", zap.Error(err))
		return 0
	}
	return s
}

// classifyAndNotify attaches the secondary classification and, when it
// resolved to a routable category, dispatches a notification. Dispatch is
// fire-and-forget relative to the batch result: a delivery failure is
// logged, never propagated.
func (e *Engine) classifyAndNotify(ctx context.Context, rec *model.AnomalyRecord, failures *atomic.Int64) {
	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cls, err := e.classifier.Classify(cctx, rec.Text, model.RoutableCategories)
	if err != nil {
		failures.Add(1)
		e.logger.Warn("secondary classification failed", zap.Error(err))
		rec.Secondary = &model.SecondaryClassification{Category: model.CategoryUnknown}
		return
	}

	rec.Secondary = &model.SecondaryClassification{
		Category:   cls.Category,
		Confidence: cls.Confidence,
		Scores:     cls.Scores,
	}

	if e.notifier == nil || cls.Category == model.CategoryUnknown {
		return
	}
	if ok := e.notifier.Notify(ctx, *rec); !ok {
		e.logger.Warn("notification dispatch failed",
			zap.String("category", string(cls.Category)),
			zap.Float64("score", rec.Score))
	}
}
