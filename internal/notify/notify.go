// Package notify routes anomaly alerts to category administrators over
// email. Every routable anomaly category maps to at most one recipient;
// anomalies whose category has no recipient are dropped silently.
package notify

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"

	"go.uber.org/zap"

	"github.com/ashmont/kestrel/internal/config"
	"github.com/ashmont/kestrel/internal/model"
)

// Transport delivers a fully rendered mail message.
type Transport interface {
	Send(ctx context.Context, to []string, msg []byte) error
}

// SMTPTransport delivers mail through a plain-auth SMTP relay.
type SMTPTransport struct {
	addr string
	auth smtp.Auth
	from string
}

// NewSMTPTransport builds a transport from SMTP settings.
func NewSMTPTransport(cfg config.SMTPConfig) *SMTPTransport {
	return &SMTPTransport{
		addr: fmt.Sprintf("%s:%d", cfg.Server, cfg.Port),
		auth: smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Server),
		from: cfg.FromEmail,
	}
}

func (t *SMTPTransport) Send(_ context.Context, to []string, msg []byte) error {
	if err := smtp.SendMail(t.addr, t.auth, t.from, to, msg); err != nil {
		return fmt.Errorf("notify: send mail: %w", err)
	}
	return nil
}

// Router resolves an anomaly's category to its administrator and sends a
// formatted alert. It implements the engine's Notifier contract.
type Router struct {
	recipients map[model.Category]string
	from       string
	transport  Transport
	logger     *zap.Logger
}

// NewRouter builds a router from the admin mapping. Categories with an
// empty address get no entry and are never notified.
func NewRouter(admins config.AdminConfig, from string, transport Transport, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	recipients := make(map[model.Category]string, 6)
	for cat, addr := range map[model.Category]string{
		model.CategoryNetwork:      admins.Network,
		model.CategorySecurity:     admins.Security,
		model.CategoryAvailability: admins.Availability,
		model.CategoryData:         admins.Data,
		model.CategoryResource:     admins.Resource,
		model.CategoryPerformance:  admins.Performance,
	} {
		if addr != "" {
			recipients[cat] = addr
		}
	}
	return &Router{
		recipients: recipients,
		from:       from,
		transport:  transport,
		logger:     logger,
	}
}

// Recipients returns the category to address mapping for a record's
// notification, empty when the category is unroutable or unassigned.
func (r *Router) Recipients(category model.Category) []string {
	if addr, ok := r.recipients[category]; ok {
		return []string{addr}
	}
	return nil
}

// Notify formats and dispatches an alert for rec. The routing category is
// the secondary classification when present, the pattern category
// otherwise. It reports whether delivery succeeded; an anomaly with no
// assigned administrator counts as not delivered.
func (r *Router) Notify(ctx context.Context, rec model.AnomalyRecord) bool {
	category := rec.Category
	if rec.Secondary != nil && rec.Secondary.Category != model.CategoryUnknown {
		category = rec.Secondary.Category
	}

	to := r.Recipients(category)
	if len(to) == 0 {
		r.logger.Debug("no administrator for category, skipping alert",
			zap.String("category", string(category)),
			zap.String("record_id", rec.ID))
		return false
	}

	msg, err := buildMessage(r.from, to, Subject(category), PlainBody(rec, category), HTMLBody(rec, category))
	if err != nil {
		r.logger.Warn("building alert message failed",
			zap.String("record_id", rec.ID),
			zap.Error(err))
		return false
	}
	if err := r.transport.Send(ctx, to, msg); err != nil {
		r.logger.Warn("alert delivery failed",
			zap.String("category", string(category)),
			zap.Strings("to", to),
			zap.Error(err))
		return false
	}

	r.logger.Info("alert delivered",
		zap.String("category", string(category)),
		zap.Float64("score", rec.Score),
		zap.Strings("to", to))
	return true
}

// buildMessage assembles a multipart/alternative mail with plain and HTML
// renderings of the alert.
func buildMessage(from string, to []string, subject, plain, htmlBody string) ([]byte, error) {
	var buf strings.Builder
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mw.Boundary())

	for _, part := range []struct {
		contentType string
		body        string
	}{
		{"text/plain; charset=utf-8", plain},
		{"text/html; charset=utf-8", htmlBody},
	} {
		hdr := textproto.MIMEHeader{"Content-Type": {part.contentType}}
		w, err := mw.CreatePart(hdr)
		if err != nil {
			return nil, fmt.Errorf("notify: create part: %w", err)
		}
		if _, err := w.Write([]byte(part.body)); err != nil {
			return nil, fmt.Errorf("notify: write part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("notify: close message: %w", err)
	}
	return []byte(buf.String()), nil
}
