package models

import "strings"

// Attachment describes a file attached to an email
type Attachment struct {
	Name        string `json:"name" yaml:"name"`
	ContentType string `json:"contentType" yaml:"contentType"`
}

// Email represents a parsed email message as consumed by the audit engine
type Email struct {
	Subject     string       `json:"subject"`
	From        string       `json:"from"`
	To          string       `json:"to"`
	Date        string       `json:"date"` // ISO-8601
	Text        string       `json:"text"`
	HTML        string       `json:"html,omitempty"`
	MessageID   string       `json:"messageId,omitempty"`
	InReplyTo   string       `json:"inReplyTo,omitempty"`
	References  []string     `json:"references,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	ThreadID    string       `json:"threadId,omitempty"`
}

// MissingFields lists the required fields that are empty
func (e Email) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(e.Text) == "" {
		missing = append(missing, "text")
	}
	if strings.TrimSpace(e.Subject) == "" {
		missing = append(missing, "subject")
	}
	if strings.TrimSpace(e.From) == "" {
		missing = append(missing, "from")
	}
	if strings.TrimSpace(e.To) == "" {
		missing = append(missing, "to")
	}
	if strings.TrimSpace(e.Date) == "" {
		missing = append(missing, "date")
	}
	return missing
}

// ThreadRoot returns the Message-ID that starts this email's conversation.
// The first entry in References wins, then In-Reply-To, then the email's own Message-ID.
func (e Email) ThreadRoot() string {
	for _, ref := range e.References {
		if ref = CleanMessageID(ref); ref != "" {
			return ref
		}
	}
	if e.InReplyTo != "" {
		return CleanMessageID(e.InReplyTo)
	}
	return CleanMessageID(e.MessageID)
}

// CleanMessageID removes surrounding whitespace and angle brackets from a Message-ID
func CleanMessageID(msgID string) string {
	msgID = strings.TrimSpace(msgID)
	msgID = strings.TrimPrefix(msgID, "<")
	msgID = strings.TrimSuffix(msgID, ">")
	return msgID
}
