// Package emails reads .eml and .mbox sources into audit emails and groups them by thread.
package emails

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	mboxlib "github.com/emersion/go-mbox"
	"github.com/rs/zerolog"

	"mailaudit/internal/models"
)

// ErrUnsupportedFormat is returned for files that are neither .eml nor .mbox
var ErrUnsupportedFormat = errors.New("unsupported email file format")

// ParseEML parses a single RFC 5322 message
func ParseEML(r io.Reader) (models.Email, error) {
	mr, err := mail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return models.Email{}, fmt.Errorf("failed to read email message: %w", err)
	}
	defer mr.Close()

	header := mr.Header
	email := models.Email{
		Subject:    headerText(header, "Subject"),
		From:       headerText(header, "From"),
		To:         headerText(header, "To"),
		MessageID:  strings.TrimSpace(header.Get("Message-Id")),
		InReplyTo:  strings.TrimSpace(header.Get("In-Reply-To")),
		References: strings.Fields(header.Get("References")),
	}

	if date, err := header.Date(); err == nil && !date.IsZero() {
		email.Date = date.UTC().Format(time.RFC3339)
	} else {
		email.Date = strings.TrimSpace(header.Get("Date"))
	}

	var textParts, htmlParts []string
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return models.Email{}, fmt.Errorf("failed to read message part: %w", err)
		}
		if part == nil {
			continue
		}

		switch h := part.Header.(type) {
		case *mail.AttachmentHeader:
			email.Attachments = append(email.Attachments, attachment(h.Header, attachmentName(h)))
		case *mail.InlineHeader:
			mediaType, params, _ := h.ContentType()
			switch {
			case mediaType == "" || mediaType == "text/plain":
				body, err := io.ReadAll(part.Body)
				if err != nil {
					return models.Email{}, fmt.Errorf("failed to read text part: %w", err)
				}
				textParts = append(textParts, strings.TrimSpace(string(body)))
			case mediaType == "text/html":
				body, err := io.ReadAll(part.Body)
				if err != nil {
					return models.Email{}, fmt.Errorf("failed to read html part: %w", err)
				}
				htmlParts = append(htmlParts, string(body))
			default:
				// inline images and other non-text parts still count as attachments
				email.Attachments = append(email.Attachments, attachment(h.Header, params["name"]))
			}
		}
	}

	email.Text = strings.Join(textParts, "\n\n")
	email.HTML = strings.Join(htmlParts, "\n")
	if email.Text == "" && email.HTML != "" {
		email.Text = HTMLToText(email.HTML)
	}

	return email, nil
}

// ParseEMLFile parses a single EML file
func ParseEMLFile(path string) (models.Email, error) {
	file, err := os.Open(path)
	if err != nil {
		return models.Email{}, fmt.Errorf("failed to open EML file: %w", err)
	}
	defer file.Close()

	return ParseEML(file)
}

// ParseMBOX parses every message of an mbox stream. Messages that cannot be
// parsed are logged and skipped.
func ParseMBOX(r io.Reader, logger zerolog.Logger) ([]models.Email, error) {
	reader := mboxlib.NewReader(r)

	var emails []models.Email
	for idx := 0; ; idx++ {
		msgReader, err := reader.NextMessage()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return emails, fmt.Errorf("message %d: %w", idx, err)
		}

		email, err := ParseEML(msgReader)
		if err != nil {
			logger.Warn().Err(err).Int("index", idx).Msg("Skipping unparseable mbox message")
			continue
		}
		emails = append(emails, email)
	}

	logger.Debug().Int("emails", len(emails)).Msg("Parsed mbox")
	return emails, nil
}

// ParseFile parses an uploaded or local file, choosing the format by extension
func ParseFile(name string, r io.Reader, logger zerolog.Logger) ([]models.Email, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".eml":
		email, err := ParseEML(r)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return []models.Email{email}, nil
	case ".mbox":
		emails, err := ParseMBOX(r, logger)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return emails, nil
	default:
		return nil, fmt.Errorf("%s: %w", name, ErrUnsupportedFormat)
	}
}

// ParsePaths parses files and directories. Directories are walked recursively
// for .eml and .mbox files; other files in them are ignored.
func ParsePaths(paths []string, logger zerolog.Logger) ([]models.Email, error) {
	var emails []models.Email

	parseOne := func(path string) error {
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer file.Close()

		parsed, err := ParseFile(path, file, logger)
		if err != nil {
			return err
		}
		emails = append(emails, parsed...)
		return nil
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", root, err)
		}
		if !info.IsDir() {
			if err := parseOne(root); err != nil {
				return nil, err
			}
			continue
		}

		err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			switch strings.ToLower(filepath.Ext(path)) {
			case ".eml", ".mbox":
				if err := parseOne(path); err != nil {
					logger.Warn().Err(err).Str("path", path).Msg("Failed to parse file")
				}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk directory: %w", err)
		}
	}

	return emails, nil
}

// HTMLToText extracts readable text from an HTML body
func HTMLToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}
	doc.Find("script, style, head").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, li, tr").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	lines := strings.Split(doc.Text(), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func headerText(header mail.Header, key string) string {
	value, err := header.Text(key)
	if err != nil {
		return strings.TrimSpace(header.Get(key))
	}
	return strings.TrimSpace(value)
}

func attachmentName(h *mail.AttachmentHeader) string {
	name, err := h.Filename()
	if err != nil || name == "" {
		_, params, _ := h.ContentType()
		name = params["name"]
	}
	return name
}

func attachment(header message.Header, name string) models.Attachment {
	contentType, _, err := header.ContentType()
	if err != nil || contentType == "" {
		contentType = "application/octet-stream"
	}
	if name == "" {
		name = "unnamed"
	}
	return models.Attachment{Name: name, ContentType: contentType}
}
