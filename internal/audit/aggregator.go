package audit

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mailaudit/internal/interpret"
	"mailaudit/internal/models"
)

// ErrEmptyThread is returned when a thread audit is requested without emails
var ErrEmptyThread = errors.New("thread contains no emails")

// Fallback texts used when the summary cannot be produced
const (
	StrengthsUnavailable        = "Could not generate overall strengths."
	ImprovementAreasUnavailable = "Could not generate overall improvement areas."
)

var (
	strengthsPattern   = regexp.MustCompile(`(?im)^[\s*\-#]*strengths[ \t*]*:[ \t*]*(.+?)(?:[ \t*\-#]*improvement areas[ \t*]*:|\s*$)`)
	improvementPattern = regexp.MustCompile(`(?im)improvement areas[ \t*]*:[ \t*]*(.+?)\s*$`)
)

// dateLayouts are tried in order when ordering a thread
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Aggregator audits whole threads
type Aggregator struct {
	evaluator *Evaluator
	responder Responder
	observer  Observer
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAggregator creates a thread aggregator that reuses the evaluator's responder
func NewAggregator(evaluator *Evaluator, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		evaluator: evaluator,
		responder: evaluator.responder,
		observer:  evaluator.observer,
		logger:    logger.With().Str("component", "aggregator").Logger(),
		now:       time.Now,
	}
}

// EvaluateEmail audits a single email
func (a *Aggregator) EvaluateEmail(ctx context.Context, email models.Email) *models.EmailEvaluation {
	return a.evaluator.EvaluateEmail(ctx, email)
}

// AuditThread evaluates every email of a thread in chronological order and
// summarizes the results. The caller's slice is not modified.
func (a *Aggregator) AuditThread(ctx context.Context, emails []models.Email, employeeEmail string) (*models.ThreadAuditReport, error) {
	if len(emails) == 0 {
		return nil, ErrEmptyThread
	}

	ordered := SortChronologically(emails)
	threadID := resolveThreadID(ordered)

	a.logger.Info().
		Str("thread_id", threadID).
		Int("emails", len(ordered)).
		Msg("Auditing thread")
	a.observer.RecordThread(len(ordered))

	evaluations := make([]models.EmailEvaluation, 0, len(ordered))
	var total float64
	for _, email := range ordered {
		evaluation := a.evaluator.EvaluateEmail(ctx, email)
		evaluations = append(evaluations, *evaluation)
		total += evaluation.TotalScore
	}

	report := &models.ThreadAuditReport{
		AuditID:            uuid.NewString(),
		ThreadID:           threadID,
		EmployeeEmail:      employeeEmail,
		GeneratedAt:        a.now().UTC(),
		AverageThreadScore: interpret.RoundScore(total / float64(len(evaluations))),
		EmailEvaluations:   evaluations,
		TopSuggestions:     topSuggestions(evaluations),
	}

	report.OverallStrengths, report.OverallImprovementAreas = a.summarize(ctx, evaluations, employeeEmail)

	a.logger.Info().
		Str("thread_id", threadID).
		Str("audit_id", report.AuditID).
		Float64("average_score", report.AverageThreadScore).
		Msg("Thread audit complete")

	return report, nil
}

// summarize asks the responder for strengths and improvement areas.
// Failures fall back to placeholder texts.
func (a *Aggregator) summarize(ctx context.Context, evaluations []models.EmailEvaluation, employeeEmail string) (string, string) {
	start := time.Now()
	response, err := a.responder.Send(ctx, BuildSummaryPrompt(evaluations, employeeEmail))
	a.observer.RecordAICall(purposeSummary, time.Since(start), err)
	if err != nil {
		a.logger.Error().Err(err).Msg("Failed to generate thread summary")
		return StrengthsUnavailable, ImprovementAreasUnavailable
	}

	strengths, improvements := ParseSummary(response)
	return strengths, improvements
}

// BuildSummaryPrompt embeds every email score and rule result of a thread
func BuildSummaryPrompt(evaluations []models.EmailEvaluation, employeeEmail string) string {
	var b strings.Builder

	b.WriteString("You are reviewing the communication quality of an email thread")
	if employeeEmail != "" {
		fmt.Fprintf(&b, " written by the employee %s", employeeEmail)
	}
	b.WriteString(".\nBelow are the per-email audit results.\n\n")

	for i, evaluation := range evaluations {
		fmt.Fprintf(&b, "Email %d (ID: %s) - Total Score: %.2f\n", i+1, evaluation.MessageID, evaluation.TotalScore)
		for _, result := range evaluation.Results {
			fmt.Fprintf(&b, "  - Rule %s: score %.2f. %s\n", result.RuleID, result.Score, result.Justification)
		}
	}

	b.WriteString("\nSummarize the overall strengths and the areas for improvement across the whole thread.\n")
	b.WriteString("Answer with exactly two lines in this format:\n")
	b.WriteString("Strengths: <one or two sentences>\n")
	b.WriteString("Improvement Areas: <one or two sentences>\n")

	return b.String()
}

// ParseSummary extracts the first "Strengths:" and "Improvement Areas:" lines
func ParseSummary(response string) (string, string) {
	strengths := StrengthsUnavailable
	if m := strengthsPattern.FindStringSubmatch(response); m != nil && strings.TrimSpace(m[1]) != "" {
		strengths = strings.TrimSpace(m[1])
	}

	improvements := ImprovementAreasUnavailable
	if m := improvementPattern.FindStringSubmatch(response); m != nil && strings.TrimSpace(m[1]) != "" {
		improvements = strings.TrimSpace(m[1])
	}

	return strengths, improvements
}

// SortChronologically returns a copy of emails ordered by date. The sort is
// stable; emails whose date cannot be parsed keep their relative order after
// the dated ones.
func SortChronologically(emails []models.Email) []models.Email {
	type keyed struct {
		email models.Email
		at    time.Time
		ok    bool
	}

	items := make([]keyed, len(emails))
	for i, email := range emails {
		at, ok := ParseDate(email.Date)
		items[i] = keyed{email: email, at: at, ok: ok}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].ok != items[j].ok {
			return items[i].ok
		}
		if !items[i].ok {
			return false
		}
		return items[i].at.Before(items[j].at)
	})

	ordered := make([]models.Email, len(items))
	for i, item := range items {
		ordered[i] = item.email
	}
	return ordered
}

// ParseDate reads ISO-8601 timestamps and RFC 5322 mail dates
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	if t, err := mail.ParseDate(value); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func resolveThreadID(ordered []models.Email) string {
	for _, email := range ordered {
		if email.ThreadID != "" {
			return email.ThreadID
		}
	}
	if root := ordered[0].ThreadRoot(); root != "" {
		return root
	}
	return "N/A"
}

func topSuggestions(evaluations []models.EmailEvaluation) []string {
	seen := make(map[string]struct{})
	suggestions := []string{}
	for _, evaluation := range evaluations {
		for _, s := range evaluation.Suggestions {
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			suggestions = append(suggestions, s)
		}
	}
	return suggestions
}
