package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ashmont/kestrel/internal/config"
	"github.com/ashmont/kestrel/internal/model"
)

type captureTransport struct {
	to  []string
	msg []byte
	err error
}

func (t *captureTransport) Send(_ context.Context, to []string, msg []byte) error {
	t.to = to
	t.msg = msg
	return t.err
}

func testRecord(score float64) model.AnomalyRecord {
	return model.AnomalyRecord{
		ID:        "rec-1",
		Text:      "FATAL org.apache.hadoop.hdfs.server.datanode.DataNode: shutting down",
		Timestamp: time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC),
		Level:     model.LevelFatal,
		Score:     score,
		Category:  model.CategoryAvailability,
	}
}

func TestSubject(t *testing.T) {
	got := Subject(model.CategoryNetwork)
	want := "New Alert: NETWORK Anomaly Detected"
	if got != want {
		t.Errorf("Subject = %q, want %q", got, want)
	}
}

func TestPlainBody(t *testing.T) {
	body := PlainBody(testRecord(0.85), model.CategoryAvailability)

	for _, want := range []string{
		"Anomaly Detection Alert",
		"Type: AVAILABILITY",
		"Severity Score: 0.85",
		"Time Detected: 2024-03-15 09:30:00",
		"Details:\nFATAL org.apache.hadoop.hdfs.server.datanode.DataNode: shutting down",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("plain body missing %q:\n%s", want, body)
		}
	}
}

func TestSeverityColor(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0.95, colorCritical},
		{0.8, colorCritical},
		{0.79, colorElevated},
		{0.7, colorElevated},
		{0.69, colorModerate},
		{0.1, colorModerate},
	}
	for _, tt := range tests {
		if got := severityColor(tt.score); got != tt.want {
			t.Errorf("severityColor(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestHTMLBody(t *testing.T) {
	rec := testRecord(0.85)
	rec.Text = "error: <init> failed & retried"
	body := HTMLBody(rec, model.CategoryData)

	if !strings.Contains(body, colorCritical) {
		t.Error("high-severity body missing critical color")
	}
	if !strings.Contains(body, "error: &lt;init&gt; failed &amp; retried") {
		t.Error("log text not HTML-escaped")
	}
	if !strings.Contains(body, ">DATA</span>") {
		t.Error("body missing category")
	}
	if !strings.Contains(body, "0.85") {
		t.Error("body missing score")
	}
}

func TestRouterNotify(t *testing.T) {
	transport := &captureTransport{}
	router := NewRouter(config.AdminConfig{
		Network:      "net-admin@example.com",
		Availability: "avail-admin@example.com",
	}, "alerts@example.com", transport, nil)

	rec := testRecord(0.85)
	if !router.Notify(context.Background(), rec) {
		t.Fatal("expected delivery for configured category")
	}
	if len(transport.to) != 1 || transport.to[0] != "avail-admin@example.com" {
		t.Errorf("routed to %v, want availability admin", transport.to)
	}

	msg := string(transport.msg)
	for _, want := range []string{
		"From: alerts@example.com",
		"To: avail-admin@example.com",
		"Subject: New Alert: AVAILABILITY Anomaly Detected",
		"Content-Type: multipart/alternative",
		"text/plain; charset=utf-8",
		"text/html; charset=utf-8",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

func TestRouterPrefersSecondaryCategory(t *testing.T) {
	transport := &captureTransport{}
	router := NewRouter(config.AdminConfig{
		Network:      "net-admin@example.com",
		Availability: "avail-admin@example.com",
	}, "alerts@example.com", transport, nil)

	rec := testRecord(0.9)
	rec.Secondary = &model.SecondaryClassification{Category: model.CategoryNetwork, Confidence: 0.8}
	if !router.Notify(context.Background(), rec) {
		t.Fatal("expected delivery")
	}
	if transport.to[0] != "net-admin@example.com" {
		t.Errorf("routed to %v, want network admin from secondary classification", transport.to)
	}
}

func TestRouterUnassignedCategory(t *testing.T) {
	transport := &captureTransport{}
	router := NewRouter(config.AdminConfig{Network: "net-admin@example.com"}, "alerts@example.com", transport, nil)

	rec := testRecord(0.9) // AVAILABILITY, which has no admin here
	if router.Notify(context.Background(), rec) {
		t.Error("expected no delivery for unassigned category")
	}
	if transport.msg != nil {
		t.Error("transport must not be invoked for unassigned category")
	}
}

func TestRouterUnknownCategory(t *testing.T) {
	router := NewRouter(config.AdminConfig{Network: "net-admin@example.com"}, "alerts@example.com", &captureTransport{}, nil)

	rec := testRecord(0.9)
	rec.Category = model.CategoryUnknown
	if router.Notify(context.Background(), rec) {
		t.Error("expected no delivery for UNKNOWN category")
	}
}

func TestRouterTransportFailure(t *testing.T) {
	transport := &captureTransport{err: errors.New("relay refused")}
	router := NewRouter(config.AdminConfig{Availability: "avail-admin@example.com"}, "alerts@example.com", transport, nil)

	if router.Notify(context.Background(), testRecord(0.85)) {
		t.Error("expected false on transport failure")
	}
}

func TestRecipientsAllCategories(t *testing.T) {
	admins := config.AdminConfig{
		Network:      "n@example.com",
		Security:     "s@example.com",
		Availability: "a@example.com",
		Data:         "d@example.com",
		Resource:     "r@example.com",
		Performance:  "p@example.com",
	}
	router := NewRouter(admins, "alerts@example.com", &captureTransport{}, nil)

	for _, cat := range model.RoutableCategories {
		if got := router.Recipients(cat); len(got) != 1 {
			t.Errorf("Recipients(%s) = %v, want one address", cat, got)
		}
	}
	if got := router.Recipients(model.CategoryUnknown); got != nil {
		t.Errorf("Recipients(UNKNOWN) = %v, want nil", got)
	}
}

func TestScoreFormatting(t *testing.T) {
	body := PlainBody(testRecord(0.875), model.CategoryNetwork)
	if !strings.Contains(body, fmt.Sprintf("Severity Score: %.2f", 0.875)) {
		t.Errorf("score not rendered with two decimals:\n%s", body)
	}
}
