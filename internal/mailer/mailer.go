// Package mailer delivers thread audit reports by email via SendGrid.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"mailaudit/internal/models"
)

// ErrNotConfigured is returned when no SendGrid API key is set
var ErrNotConfigured = errors.New("SendGrid API key not configured")

// ReportMailer sends audit reports to reviewers
type ReportMailer struct {
	apiKey string
	sender string
	send   func(ctx context.Context, message *mail.SGMailV3) (*rest.Response, error)
	logger zerolog.Logger
}

// NewReportMailer creates a mailer. An empty apiKey yields a mailer whose
// sends fail with ErrNotConfigured.
func NewReportMailer(apiKey, sender string, logger zerolog.Logger) *ReportMailer {
	if sender == "" {
		sender = "audit-noreply@mailaudit.local"
	}
	m := &ReportMailer{
		apiKey: apiKey,
		sender: sender,
		logger: logger.With().Str("component", "mailer").Logger(),
	}
	m.send = func(ctx context.Context, message *mail.SGMailV3) (*rest.Response, error) {
		return sendgrid.NewSendClient(m.apiKey).SendWithContext(ctx, message)
	}
	return m
}

// Enabled reports whether an API key is configured
func (m *ReportMailer) Enabled() bool {
	return m.apiKey != ""
}

// SendThreadReport emails a plain text rendering of the report to recipient
func (m *ReportMailer) SendThreadReport(ctx context.Context, recipient string, report *models.ThreadAuditReport) error {
	if !m.Enabled() {
		return ErrNotConfigured
	}
	if strings.TrimSpace(recipient) == "" {
		return fmt.Errorf("report recipient is empty")
	}

	from := mail.NewEmail("Mail Audit", m.sender)
	to := mail.NewEmail("", recipient)
	subject := fmt.Sprintf("Email thread audit %s - score %.2f", report.ThreadID, report.AverageThreadScore)

	body := RenderReport(report)
	message := mail.NewSingleEmail(from, subject, to, body, "<pre>"+html.EscapeString(body)+"</pre>")

	response, err := m.send(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("SendGrid API error: status %d, body: %s", response.StatusCode, response.Body)
	}

	m.logger.Info().
		Str("audit_id", report.AuditID).
		Str("recipient", recipient).
		Msg("Audit report sent")
	return nil
}

// RenderReport formats a thread audit report as plain text
func RenderReport(report *models.ThreadAuditReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Audit ID: %s\n", report.AuditID)
	fmt.Fprintf(&b, "Thread ID: %s\n", report.ThreadID)
	if report.EmployeeEmail != "" {
		fmt.Fprintf(&b, "Employee: %s\n", report.EmployeeEmail)
	}
	fmt.Fprintf(&b, "Generated: %s\n", report.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Average thread score: %.2f\n\n", report.AverageThreadScore)

	fmt.Fprintf(&b, "Strengths:\n%s\n\n", report.OverallStrengths)
	fmt.Fprintf(&b, "Improvement areas:\n%s\n\n", report.OverallImprovementAreas)

	if len(report.TopSuggestions) > 0 {
		b.WriteString("Top suggestions:\n")
		for _, s := range report.TopSuggestions {
			fmt.Fprintf(&b, "- %s\n", s)
		}
		b.WriteString("\n")
	}

	b.WriteString("Per-email results:\n")
	for i, evaluation := range report.EmailEvaluations {
		fmt.Fprintf(&b, "%d. %s (score %.2f)\n", i+1, evaluation.MessageID, evaluation.TotalScore)
		for _, result := range evaluation.Results {
			status := "FAIL"
			if result.Passed {
				status = "PASS"
			}
			fmt.Fprintf(&b, "   [%s] %s: %s\n", status, result.RuleName, result.Justification)
		}
	}

	return b.String()
}
