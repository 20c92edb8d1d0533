// Package file implements flat-file storage: raw log batches append to a
// daily .log file and anomaly records append to a daily NDJSON file.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ashmont/kestrel/internal/model"
)

const (
	rawSubdir     = "raw"
	anomalySubdir = "anomalies"
	recentFiles   = 5 // newest files consulted by recent-history queries
)

// Store writes raw logs and anomalies under a base directory, one file per
// day per kind.
type Store struct {
	baseDir string
	mu      sync.Mutex
	now     func() time.Time
}

// New creates the base directory layout and returns a Store.
func New(baseDir string) (*Store, error) {
	for _, dir := range []string{baseDir, filepath.Join(baseDir, rawSubdir), filepath.Join(baseDir, anomalySubdir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("file storage: mkdir %s: %w", dir, err)
		}
	}
	return &Store{baseDir: baseDir, now: time.Now}, nil
}

// StoreRawLogs appends the batch, one line per log, to today's raw file.
func (s *Store) StoreRawLogs(_ context.Context, logs []string) error {
	if len(logs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.baseDir, rawSubdir, fmt.Sprintf("raw_logs_%s.log", s.day()))
	return appendFile(path, []byte(strings.Join(logs, "\n")+"\n"))
}

// StoreAnomalies appends the records, one JSON document per line, to
// today's anomaly file.
func (s *Store) StoreAnomalies(_ context.Context, records []model.AnomalyRecord) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf strings.Builder
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("file storage: marshal anomaly: %w", err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	path := filepath.Join(s.baseDir, anomalySubdir, fmt.Sprintf("anomalies_%s.ndjson", s.day()))
	return appendFile(path, []byte(buf.String()))
}

// RecentLogs returns up to limit lines from the newest raw files, oldest
// first.
func (s *Store) RecentLogs(_ context.Context, limit int) ([]string, error) {
	lines, err := s.recentLines(rawSubdir)
	if err != nil {
		return nil, err
	}
	return tail(lines, limit), nil
}

// RecentAnomalies returns up to limit records from the newest anomaly
// files, oldest first.
func (s *Store) RecentAnomalies(_ context.Context, limit int) ([]model.AnomalyRecord, error) {
	lines, err := s.recentLines(anomalySubdir)
	if err != nil {
		return nil, err
	}
	lines = tail(lines, limit)
	records := make([]model.AnomalyRecord, 0, len(lines))
	for _, line := range lines {
		var rec model.AnomalyRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("file storage: decode anomaly: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Close is a no-op; files are opened per write.
func (s *Store) Close() error { return nil }

func (s *Store) day() string {
	return s.now().Format("20060102")
}

// recentLines reads the non-empty lines of the newest files in a subdir,
// oldest file first so callers can tail the result.
func (s *Store) recentLines(subdir string) ([]string, error) {
	dir := filepath.Join(s.baseDir, subdir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("file storage: read dir %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	// Daily file names sort chronologically; newest first.
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	if len(names) > recentFiles {
		names = names[:recentFiles]
	}

	var lines []string
	for i := len(names) - 1; i >= 0; i-- {
		data, err := os.ReadFile(filepath.Join(dir, names[i]))
		if err != nil {
			return nil, fmt.Errorf("file storage: read %s: %w", names[i], err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			if line != "" {
				lines = append(lines, line)
			}
		}
	}
	return lines, nil
}

func appendFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("file storage: open %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("file storage: write %s: %w", path, err)
	}
	return f.Close()
}

func tail(lines []string, limit int) []string {
	if limit > 0 && len(lines) > limit {
		return lines[len(lines)-limit:]
	}
	return lines
}
