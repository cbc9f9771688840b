// Package prompt renders rule templates against email records.
package prompt

import (
	"strings"

	"mailaudit/internal/models"
)

// Fields returns the placeholder values for an email, keyed by field name.
// The key set is fixed, so placeholders for unknown names stay untouched.
func Fields(email models.Email) map[string]string {
	return map[string]string{
		"subject":     email.Subject,
		"from":        email.From,
		"to":          email.To,
		"date":        email.Date,
		"text":        email.Text,
		"html":        email.HTML,
		"messageId":   email.MessageID,
		"inReplyTo":   email.InReplyTo,
		"references":  strings.Join(email.References, ", "),
		"attachments": formatAttachments(email.Attachments),
		"threadId":    email.ThreadID,
	}
}

// Render replaces every {field} placeholder in template with the email's value
func Render(template string, email models.Email) string {
	if !strings.Contains(template, "{") {
		return template
	}

	fields := Fields(email)
	pairs := make([]string, 0, len(fields)*2)
	for name, value := range fields {
		pairs = append(pairs, "{"+name+"}", value)
	}

	// Placeholders are brace-delimited and no two share a prefix, so the
	// replacer output does not depend on map iteration order.
	return strings.NewReplacer(pairs...).Replace(template)
}

// formatAttachments renders attachments as "name (contentType)" joined by "; "
func formatAttachments(attachments []models.Attachment) string {
	if len(attachments) == 0 {
		return ""
	}

	parts := make([]string, 0, len(attachments))
	for _, att := range attachments {
		parts = append(parts, att.Name+" ("+att.ContentType+")")
	}
	return strings.Join(parts, "; ")
}
