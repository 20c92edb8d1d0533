package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/ashmont/kestrel/internal/model"
)

type fakeStore struct {
	rawBatches     [][]string
	anomalyBatches [][]model.AnomalyRecord
	logs           []string
	records        []model.AnomalyRecord
	err            error
	closed         bool
}

func (f *fakeStore) StoreRawLogs(_ context.Context, logs []string) error {
	f.rawBatches = append(f.rawBatches, logs)
	return f.err
}

func (f *fakeStore) StoreAnomalies(_ context.Context, records []model.AnomalyRecord) error {
	f.anomalyBatches = append(f.anomalyBatches, records)
	return f.err
}

func (f *fakeStore) RecentLogs(_ context.Context, _ int) ([]string, error) {
	return f.logs, f.err
}

func (f *fakeStore) RecentAnomalies(_ context.Context, _ int) ([]model.AnomalyRecord, error) {
	return f.records, f.err
}

func (f *fakeStore) Close() error {
	f.closed = true
	return f.err
}

func TestMultiFansOutWrites(t *testing.T) {
	a, b := &fakeStore{}, &fakeStore{}
	m := NewMulti(a, b)
	ctx := context.Background()

	if err := m.StoreRawLogs(ctx, []string{"one"}); err != nil {
		t.Fatalf("StoreRawLogs: %v", err)
	}
	if err := m.StoreAnomalies(ctx, []model.AnomalyRecord{{ID: "x"}}); err != nil {
		t.Fatalf("StoreAnomalies: %v", err)
	}

	for name, s := range map[string]*fakeStore{"first": a, "second": b} {
		if len(s.rawBatches) != 1 || len(s.anomalyBatches) != 1 {
			t.Errorf("%s store missed a write: raw=%d anomalies=%d", name, len(s.rawBatches), len(s.anomalyBatches))
		}
	}
}

func TestMultiFailureDoesNotStopFanOut(t *testing.T) {
	a := &fakeStore{err: errors.New("disk full")}
	b := &fakeStore{}
	m := NewMulti(a, b)

	err := m.StoreRawLogs(context.Background(), []string{"one"})
	if err == nil {
		t.Fatal("expected joined error")
	}
	if len(b.rawBatches) != 1 {
		t.Error("second store must still receive the batch")
	}
}

func TestMultiReadsFromPrimary(t *testing.T) {
	a := &fakeStore{logs: []string{"primary"}, records: []model.AnomalyRecord{{ID: "p"}}}
	b := &fakeStore{logs: []string{"secondary"}}
	m := NewMulti(a, b)
	ctx := context.Background()

	logs, err := m.RecentLogs(ctx, 10)
	if err != nil || len(logs) != 1 || logs[0] != "primary" {
		t.Errorf("RecentLogs = %v, %v", logs, err)
	}
	records, err := m.RecentAnomalies(ctx, 10)
	if err != nil || len(records) != 1 || records[0].ID != "p" {
		t.Errorf("RecentAnomalies = %v, %v", records, err)
	}
}

func TestMultiClose(t *testing.T) {
	a, b := &fakeStore{}, &fakeStore{}
	if err := NewMulti(a, b).Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !a.closed || !b.closed {
		t.Error("Close must reach every wrapped store")
	}
}
