package storage

import (
	"context"
	"errors"

	"github.com/ashmont/kestrel/internal/model"
)

// Multi fans writes out to multiple stores and serves reads from the first
// one. Each write call delivers the batch to every wrapped store; if one
// store fails, the remaining stores still receive the batch.
type Multi struct {
	stores []Store
}

// NewMulti creates a Multi over the given stores. The first store is the
// read path.
func NewMulti(stores ...Store) *Multi {
	return &Multi{stores: stores}
}

// StoreRawLogs delivers the batch to every wrapped store. Errors are
// collected but do not prevent delivery to subsequent stores.
func (m *Multi) StoreRawLogs(ctx context.Context, logs []string) error {
	var errs []error
	for _, s := range m.stores {
		if err := s.StoreRawLogs(ctx, logs); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StoreAnomalies delivers the batch to every wrapped store. Errors are
// collected but do not prevent delivery to subsequent stores.
func (m *Multi) StoreAnomalies(ctx context.Context, records []model.AnomalyRecord) error {
	var errs []error
	for _, s := range m.stores {
		if err := s.StoreAnomalies(ctx, records); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecentLogs queries the primary store.
func (m *Multi) RecentLogs(ctx context.Context, limit int) ([]string, error) {
	if len(m.stores) == 0 {
		return nil, nil
	}
	return m.stores[0].RecentLogs(ctx, limit)
}

// RecentAnomalies queries the primary store.
func (m *Multi) RecentAnomalies(ctx context.Context, limit int) ([]model.AnomalyRecord, error) {
	if len(m.stores) == 0 {
		return nil, nil
	}
	return m.stores[0].RecentAnomalies(ctx, limit)
}

// Close calls Close on every wrapped store, collecting errors.
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.stores {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
