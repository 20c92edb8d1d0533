// Package elastic implements Elasticsearch-backed storage. Raw logs land
// in the raw-logs index and anomaly records in the anomalies index; both
// are written with bulk requests and queried newest-first.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/ashmont/kestrel/internal/model"
)

const (
	RawLogsIndex   = "raw-logs"
	AnomaliesIndex = "anomalies"
)

const rawLogsMapping = `{
  "mappings": {
    "properties": {
      "timestamp": {"type": "date"},
      "content": {"type": "text"},
      "log_level": {"type": "keyword"},
      "source": {"type": "keyword"}
    }
  }
}`

const anomaliesMapping = `{
  "mappings": {
    "properties": {
      "timestamp": {"type": "date"},
      "text": {"type": "text"},
      "score": {"type": "float"},
      "type": {"type": "keyword"}
    }
  }
}`

// Store persists raw logs and anomalies in Elasticsearch.
type Store struct {
	es  *elasticsearch.Client
	now func() time.Time
}

type rawLogDoc struct {
	Timestamp time.Time `json:"timestamp"`
	Content   string    `json:"content"`
	LogLevel  string    `json:"log_level"`
	Source    string    `json:"source"`
}

type anomalyDoc struct {
	Timestamp  time.Time      `json:"timestamp"`
	Text       string         `json:"text"`
	Score      float64        `json:"score"`
	Type       model.Category `json:"type"`
	SubType    string         `json:"sub_type,omitempty"`
	Level      model.Level    `json:"level,omitempty"`
	Component  string         `json:"component,omitempty"`
	DurationMS int            `json:"duration_ms,omitempty"`
	ID         string         `json:"id,omitempty"`
}

// New connects to the cluster and ensures both indices exist.
func New(ctx context.Context, addresses []string) (*Store, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: addresses})
	if err != nil {
		return nil, fmt.Errorf("elastic storage: client: %w", err)
	}
	s := &Store{es: es, now: time.Now}
	if err := s.ensureIndex(ctx, RawLogsIndex, rawLogsMapping); err != nil {
		return nil, err
	}
	if err := s.ensureIndex(ctx, AnomaliesIndex, anomaliesMapping); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndex(ctx context.Context, index, mapping string) error {
	res, err := s.es.Indices.Exists([]string{index}, s.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elastic storage: check index %s: %w", index, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = s.es.Indices.Create(index,
		s.es.Indices.Create.WithContext(ctx),
		s.es.Indices.Create.WithBody(strings.NewReader(mapping)))
	if err != nil {
		return fmt.Errorf("elastic storage: create index %s: %w", index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elastic storage: create index %s: %s", index, res.String())
	}
	return nil
}

// StoreRawLogs bulk-indexes the batch into the raw-logs index.
func (s *Store) StoreRawLogs(ctx context.Context, logs []string) error {
	if len(logs) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for _, log := range logs {
		doc := rawLogDoc{
			Timestamp: s.now().UTC(),
			Content:   log,
			LogLevel:  extractLevel(log),
			Source:    extractSource(log),
		}
		if err := writeBulkLine(&buf, RawLogsIndex, doc); err != nil {
			return err
		}
	}
	return s.bulk(ctx, &buf)
}

// StoreAnomalies bulk-indexes the records into the anomalies index.
func (s *Store) StoreAnomalies(ctx context.Context, records []model.AnomalyRecord) error {
	if len(records) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for _, rec := range records {
		doc := anomalyDoc{
			Timestamp:  rec.Timestamp,
			Text:       rec.Text,
			Score:      rec.Score,
			Type:       rec.Category,
			SubType:    rec.SubType,
			Level:      rec.Level,
			Component:  rec.Component,
			DurationMS: rec.DurationMS,
			ID:         rec.ID,
		}
		if err := writeBulkLine(&buf, AnomaliesIndex, doc); err != nil {
			return err
		}
	}
	return s.bulk(ctx, &buf)
}

func writeBulkLine(buf *bytes.Buffer, index string, doc any) error {
	fmt.Fprintf(buf, `{"index":{"_index":%q}}`+"\n", index)
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("elastic storage: marshal doc: %w", err)
	}
	buf.Write(data)
	buf.WriteByte('\n')
	return nil
}

func (s *Store) bulk(ctx context.Context, body *bytes.Buffer) error {
	res, err := s.es.Bulk(bytes.NewReader(body.Bytes()),
		s.es.Bulk.WithContext(ctx),
		s.es.Bulk.WithRefresh("true"))
	if err != nil {
		return fmt.Errorf("elastic storage: bulk: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elastic storage: bulk: %s", res.String())
	}
	return nil
}

type searchHits[T any] struct {
	Hits struct {
		Hits []struct {
			Source T `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// RecentLogs returns up to limit raw log lines, newest first.
func (s *Store) RecentLogs(ctx context.Context, limit int) ([]string, error) {
	var out searchHits[rawLogDoc]
	if err := s.search(ctx, RawLogsIndex, recentQuery(limit), &out); err != nil {
		return nil, err
	}
	logs := make([]string, 0, len(out.Hits.Hits))
	for _, hit := range out.Hits.Hits {
		logs = append(logs, hit.Source.Content)
	}
	return logs, nil
}

// RecentAnomalies returns up to limit anomaly records, newest first.
func (s *Store) RecentAnomalies(ctx context.Context, limit int) ([]model.AnomalyRecord, error) {
	var out searchHits[anomalyDoc]
	if err := s.search(ctx, AnomaliesIndex, recentQuery(limit), &out); err != nil {
		return nil, err
	}
	records := make([]model.AnomalyRecord, 0, len(out.Hits.Hits))
	for _, hit := range out.Hits.Hits {
		doc := hit.Source
		records = append(records, model.AnomalyRecord{
			ID:         doc.ID,
			Text:       doc.Text,
			Timestamp:  doc.Timestamp,
			Level:      doc.Level,
			Component:  doc.Component,
			Score:      doc.Score,
			Category:   doc.Type,
			SubType:    doc.SubType,
			DurationMS: doc.DurationMS,
		})
	}
	return records, nil
}

func recentQuery(limit int) string {
	return fmt.Sprintf(`{"query":{"match_all":{}},"sort":[{"timestamp":"desc"}],"size":%d}`, limit)
}

func (s *Store) search(ctx context.Context, index, query string, out any) error {
	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(index),
		s.es.Search.WithBody(strings.NewReader(query)))
	if err != nil {
		return fmt.Errorf("elastic storage: search %s: %w", index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elastic storage: search %s: %s", index, res.String())
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("elastic storage: decode response: %w", err)
	}
	return nil
}

// HistoryPoint is one bucket of the anomaly history aggregation.
type HistoryPoint struct {
	Time   string         `json:"time"`
	Count  int            `json:"count"`
	ByType map[string]int `json:"by_type"`
}

// History aggregates anomaly counts over time into fixed-interval buckets,
// broken down by anomaly type. Empty start and end default to the last 24
// hours.
func (s *Store) History(ctx context.Context, start, end, interval string) ([]HistoryPoint, error) {
	if start == "" {
		start = "now-24h"
	}
	if end == "" {
		end = "now"
	}
	if interval == "" {
		interval = "1h"
	}

	query := map[string]any{
		"size": 0,
		"query": map[string]any{
			"range": map[string]any{
				"timestamp": map[string]any{"gte": start, "lte": end},
			},
		},
		"aggs": map[string]any{
			"anomalies_over_time": map[string]any{
				"date_histogram": map[string]any{
					"field":          "timestamp",
					"fixed_interval": interval,
					"min_doc_count":  0,
				},
				"aggs": map[string]any{
					"by_type": map[string]any{
						"terms": map[string]any{"field": "type", "size": 10},
					},
				},
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("elastic storage: marshal history query: %w", err)
	}

	var out struct {
		Aggregations struct {
			AnomaliesOverTime struct {
				Buckets []struct {
					KeyAsString string `json:"key_as_string"`
					DocCount    int    `json:"doc_count"`
					ByType      struct {
						Buckets []struct {
							Key      string `json:"key"`
							DocCount int    `json:"doc_count"`
						} `json:"buckets"`
					} `json:"by_type"`
				} `json:"buckets"`
			} `json:"anomalies_over_time"`
		} `json:"aggregations"`
	}
	if err := s.search(ctx, AnomaliesIndex, string(body), &out); err != nil {
		return nil, err
	}

	var points []HistoryPoint
	for _, bucket := range out.Aggregations.AnomaliesOverTime.Buckets {
		if bucket.DocCount == 0 {
			continue
		}
		p := HistoryPoint{
			Time:   bucket.KeyAsString,
			Count:  bucket.DocCount,
			ByType: make(map[string]int, len(bucket.ByType.Buckets)),
		}
		for _, tb := range bucket.ByType.Buckets {
			p.ByType[tb.Key] = tb.DocCount
		}
		points = append(points, p)
	}
	return points, nil
}

// Close is a no-op; the underlying client has no persistent connections to
// release.
func (s *Store) Close() error { return nil }

func extractLevel(log string) string {
	for _, level := range []string{"FATAL", "ERROR", "WARN", "INFO"} {
		if strings.Contains(log, level) {
			return level
		}
	}
	return "UNKNOWN"
}

func extractSource(log string) string {
	switch {
	case strings.Contains(log, "DataNode"):
		return "DataNode"
	case strings.Contains(log, "NameSystem"):
		return "NameSystem"
	default:
		return "Other"
	}
}
