package notify

import (
	"fmt"
	"html"
	"time"

	"github.com/ashmont/kestrel/internal/model"
)

// Severity colors for the HTML body.
const (
	colorCritical = "#DC2626"
	colorElevated = "#F59E0B"
	colorModerate = "#2563EB"
)

// Subject returns the alert subject line for an anomaly category.
func Subject(category model.Category) string {
	return fmt.Sprintf("New Alert: %s Anomaly Detected", category)
}

// PlainBody renders the plain-text alert body.
func PlainBody(rec model.AnomalyRecord, category model.Category) string {
	return fmt.Sprintf(`
Anomaly Detection Alert
----------------------
Type: %s
Severity Score: %.2f
Time Detected: %s

Details:
%s

`, category, rec.Score, rec.Timestamp.Format(time.DateTime), rec.Text)
}

func severityColor(score float64) string {
	switch {
	case score >= 0.8:
		return colorCritical
	case score >= 0.7:
		return colorElevated
	default:
		return colorModerate
	}
}

// HTMLBody renders the styled HTML alert body. The accent color tracks the
// severity score.
func HTMLBody(rec model.AnomalyRecord, category model.Category) string {
	color := severityColor(rec.Score)
	return fmt.Sprintf(`<html>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
    <div style="background-color: #F3F4F6; padding: 20px; border-radius: 8px;">
        <div style="background-color: white; padding: 20px; border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1);">
            <h1 style="color: %[1]s; margin-top: 0; font-size: 24px; border-bottom: 2px solid %[1]s; padding-bottom: 10px;">
                &#9888; Anomaly Detection Alert
            </h1>

            <div style="margin: 20px 0;">
                <p style="margin: 8px 0;"><strong>Type:</strong> <span style="color: %[1]s">%[2]s</span></p>
                <p style="margin: 8px 0;"><strong>Severity Score:</strong> <span style="color: %[1]s">%.2[3]f</span></p>
                <p style="margin: 8px 0;"><strong>Time Detected:</strong> %[4]s</p>
            </div>

            <div style="background-color: #F3F4F6; padding: 15px; border-radius: 4px; margin-top: 20px;">
                <h2 style="margin-top: 0; font-size: 18px; color: #374151;">Details</h2>
                <pre style="white-space: pre-wrap; font-family: monospace; margin: 0;">%[5]s</pre>
            </div>

            <div style="margin-top: 30px; padding-top: 20px; border-top: 1px solid #E5E7EB; font-size: 12px; color: #6B7280;">
                <p style="margin: 0; text-align: center;">This is an automated message from the Anomaly Detection System.</p>
            </div>
        </div>
    </div>
</body>
</html>`, color, category, rec.Score, rec.Timestamp.Format(time.DateTime), html.EscapeString(rec.Text))
}
