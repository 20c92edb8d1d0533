// Package storage defines where raw log batches and anomaly records are
// persisted and queried from.
package storage

import (
	"context"

	"github.com/ashmont/kestrel/internal/model"
)

// Store persists raw logs and anomaly records and serves recent-history
// queries over them.
type Store interface {
	StoreRawLogs(ctx context.Context, logs []string) error
	StoreAnomalies(ctx context.Context, records []model.AnomalyRecord) error
	RecentLogs(ctx context.Context, limit int) ([]string, error)
	RecentAnomalies(ctx context.Context, limit int) ([]model.AnomalyRecord, error)
	Close() error
}
