// Package ingest consumes Hadoop log batches from Kafka and drives them
// through the anomaly pipeline. Each message carries one log entry as
// {"log": "..."}; malformed messages are skipped.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/ashmont/kestrel/internal/config"
	"github.com/ashmont/kestrel/internal/model"
	"github.com/ashmont/kestrel/internal/storage"
)

const (
	// batchWindow bounds how long a partial batch waits before processing.
	batchWindow = time.Second
	// batchSize bounds how many messages are processed together.
	batchSize = 100
)

// MessageReader is the slice of kafka.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Processor turns a log blob into anomaly records.
type Processor interface {
	Process(ctx context.Context, blob string) []model.AnomalyRecord
}

// Broadcaster pushes anomaly batches to live subscribers.
type Broadcaster interface {
	Broadcast(records []model.AnomalyRecord)
}

// logMessage is the wire format on the log topic.
type logMessage struct {
	Log string `json:"log"`
}

// Consumer reads log messages, persists them, and forwards detected
// anomalies to storage and live subscribers.
type Consumer struct {
	reader      MessageReader
	processor   Processor
	store       storage.Store
	broadcaster Broadcaster
	logger      *zap.Logger
}

// Option configures a Consumer.
type Option func(*Consumer)

// WithBroadcaster forwards anomaly batches to live subscribers.
func WithBroadcaster(b Broadcaster) Option {
	return func(c *Consumer) { c.broadcaster = b }
}

// WithLogger sets the consumer logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Consumer) { c.logger = logger }
}

// NewReader builds a kafka.Reader from consumer settings, joining at the
// newest offset.
func NewReader(cfg config.KafkaConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10 << 20, // 10MB
	})
}

// New wires a consumer over an existing reader.
func New(reader MessageReader, processor Processor, store storage.Store, opts ...Option) *Consumer {
	c := &Consumer{
		reader:    reader,
		processor: processor,
		store:     store,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run consumes until ctx is cancelled, then closes the reader.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	c.logger.Info("kafka consumer started")

	for {
		batch, err := c.fetchBatch(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.logger.Info("kafka consumer stopped")
				return nil
			}
			return err
		}
		if len(batch) == 0 {
			continue
		}
		c.handleBatch(ctx, batch)
		if err := c.reader.CommitMessages(ctx, batch...); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			c.logger.Warn("commit failed", zap.Error(err))
		}
	}
}

// fetchBatch blocks for the first message, then drains whatever else
// arrives within the batch window, up to the batch size.
func (c *Consumer) fetchBatch(ctx context.Context) ([]kafka.Message, error) {
	first, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}
	batch := []kafka.Message{first}

	windowCtx, cancel := context.WithTimeout(ctx, batchWindow)
	defer cancel()
	for len(batch) < batchSize {
		msg, err := c.reader.FetchMessage(windowCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				break
			}
			if errors.Is(err, context.Canceled) {
				break
			}
			return batch, err
		}
		batch = append(batch, msg)
	}
	return batch, nil
}

// handleBatch persists the raw logs, runs anomaly detection, and fans the
// results out. Storage failures are logged but never stop consumption.
func (c *Consumer) handleBatch(ctx context.Context, batch []kafka.Message) {
	logs := make([]string, 0, len(batch))
	for _, msg := range batch {
		var lm logMessage
		if err := json.Unmarshal(msg.Value, &lm); err != nil || lm.Log == "" {
			c.logger.Debug("skipping malformed message",
				zap.Int64("offset", msg.Offset))
			continue
		}
		logs = append(logs, lm.Log)
	}
	if len(logs) == 0 {
		return
	}

	if err := c.store.StoreRawLogs(ctx, logs); err != nil {
		c.logger.Warn("storing raw logs failed", zap.Error(err))
	}

	records := c.processor.Process(ctx, strings.Join(logs, "\n"))
	if len(records) == 0 {
		return
	}

	if err := c.store.StoreAnomalies(ctx, records); err != nil {
		c.logger.Warn("storing anomalies failed", zap.Error(err))
	}
	if c.broadcaster != nil {
		c.broadcaster.Broadcast(records)
	}
	c.logger.Info("anomalies detected",
		zap.Int("logs", len(logs)),
		zap.Int("anomalies", len(records)))
}
