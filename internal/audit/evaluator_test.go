package audit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailaudit/internal/config"
	"mailaudit/internal/models"
	"mailaudit/internal/rules"
)

// fakeResponder answers prompts with a scripted function and records every prompt
type fakeResponder struct {
	mu      sync.Mutex
	prompts []string
	reply   func(prompt string) (string, error)
}

func (f *fakeResponder) Send(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.reply(prompt)
}

func (f *fakeResponder) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

func constantResponder(reply string) *fakeResponder {
	return &fakeResponder{reply: func(string) (string, error) { return reply, nil }}
}

func ruleDef(id, template, format string, weight float64) map[string]any {
	return map[string]any{
		"id":                   id,
		"name":                 "Rule " + id,
		"description":          "test rule " + id,
		"type":                 "content",
		"promptTemplate":       template,
		"expectedOutputFormat": format,
		"weight":               weight,
		"justification": map[string]any{
			"pass": id + " passed",
			"fail": id + " failed",
		},
	}
}

func newStore(t *testing.T, defs ...map[string]any) *rules.Store {
	t.Helper()
	store := rules.NewStore("", zerolog.Nop())
	raw := make([]any, len(defs))
	for i, def := range defs {
		raw[i] = def
	}
	require.NoError(t, store.Load(raw))
	return store
}

func goodEmail() models.Email {
	return models.Email{
		Subject:   "Meeting Confirmation - Project Alpha",
		From:      "john.doe@example.com",
		To:        "jane.smith@example.com",
		Date:      "2025-06-17T10:00:00Z",
		Text:      "Dear Jane,\n\nI'm writing to confirm our meeting for Project Alpha on Wednesday at 2 PM.\n\nBest regards,\nJohn",
		MessageID: "1",
		ThreadID:  "1",
	}
}

func TestEvaluateEmail_ProfessionalGreetingScenario(t *testing.T) {
	store := newStore(t, map[string]any{
		"id":                   "professional-greeting",
		"name":                 "Professional Greeting",
		"description":          "The email opens with a professional greeting.",
		"type":                 "content",
		"promptTemplate":       "Does the following email start with a professional greeting? Answer true or false.\n{text}",
		"expectedOutputFormat": "boolean",
		"weight":               1,
		"justification": map[string]any{
			"pass": "The email opens with a professional greeting.",
			"fail": "The email lacks a professional greeting.",
		},
	})
	responder := constantResponder("true - greeting present")
	evaluator := NewEvaluator(store, responder, zerolog.Nop())

	evaluation := evaluator.EvaluateEmail(context.Background(), goodEmail())

	assert.Equal(t, "1", evaluation.MessageID)
	assert.Equal(t, 1.0, evaluation.TotalScore)
	require.Len(t, evaluation.Results, 1)
	assert.Equal(t, "professional-greeting", evaluation.Results[0].RuleID)
	assert.Equal(t, "Professional Greeting", evaluation.Results[0].RuleName)
	assert.Equal(t, 1.0, evaluation.Results[0].Score)
	assert.True(t, evaluation.Results[0].Passed)
	assert.Equal(t, "The email opens with a professional greeting.", evaluation.Results[0].Justification)
	assert.Empty(t, evaluation.Suggestions)

	prompts := responder.calls()
	require.Len(t, prompts, 1)
	assert.True(t, strings.HasSuffix(prompts[0], "\nDear Jane,\n\nI'm writing to confirm our meeting for Project Alpha on Wednesday at 2 PM.\n\nBest regards,\nJohn"))
}

func TestEvaluateEmail_NoRules(t *testing.T) {
	store := rules.NewStore("", zerolog.Nop())
	responder := constantResponder("true")
	evaluator := NewEvaluator(store, responder, zerolog.Nop())

	email := goodEmail()
	email.MessageID = ""
	evaluation := evaluator.EvaluateEmail(context.Background(), email)

	require.NotNil(t, evaluation)
	assert.Equal(t, "N/A", evaluation.MessageID)
	assert.Equal(t, 0.0, evaluation.TotalScore)
	assert.Empty(t, evaluation.Results)
	assert.Empty(t, evaluation.Suggestions)
	assert.Empty(t, responder.calls())
}

// Every loaded rule must be evaluated for every email; stopping after the
// first rule is a regression.
func TestEvaluateEmail_EvaluatesEveryRule(t *testing.T) {
	store := newStore(t,
		ruleDef("r1", "first {subject}", "boolean", 1),
		ruleDef("r2", "second {from}", "boolean", 1),
		ruleDef("r3", "third {to}", "boolean", 1),
	)
	responder := &fakeResponder{reply: func(prompt string) (string, error) {
		if strings.HasPrefix(prompt, "second") {
			return "false", nil
		}
		return "true", nil
	}}
	evaluator := NewEvaluator(store, responder, zerolog.Nop())

	evaluation := evaluator.EvaluateEmail(context.Background(), goodEmail())

	require.Len(t, evaluation.Results, 3)
	assert.Equal(t, []string{"r1", "r2", "r3"}, []string{
		evaluation.Results[0].RuleID, evaluation.Results[1].RuleID, evaluation.Results[2].RuleID,
	})
	assert.Equal(t, 2.0, evaluation.TotalScore)
	assert.Equal(t, []string{"r2 failed"}, evaluation.Suggestions)
	assert.Equal(t, []string{
		"first Meeting Confirmation - Project Alpha",
		"second john.doe@example.com",
		"third jane.smith@example.com",
	}, responder.calls())
}

func TestEvaluateEmail_AIFailureIsAbsorbed(t *testing.T) {
	store := newStore(t,
		ruleDef("r1", "first", "boolean", 1),
		ruleDef("r2", "second", "boolean", 1),
	)
	responder := &fakeResponder{reply: func(prompt string) (string, error) {
		if prompt == "first" {
			return "", errors.New("AI call failed: upstream 503")
		}
		return "true", nil
	}}
	evaluator := NewEvaluator(store, responder, zerolog.Nop())

	evaluation := evaluator.EvaluateEmail(context.Background(), goodEmail())

	require.Len(t, evaluation.Results, 2)
	assert.Equal(t, 0.0, evaluation.Results[0].Score)
	assert.False(t, evaluation.Results[0].Passed)
	assert.Contains(t, evaluation.Results[0].Justification, "upstream 503")
	assert.Contains(t, evaluation.Results[0].Justification, "r1 failed")
	assert.Equal(t, 1.0, evaluation.Results[1].Score)
	assert.Equal(t, 1.0, evaluation.TotalScore)
}

func TestEvaluateEmail_UnsupportedFormatScoresZero(t *testing.T) {
	store := newStore(t, ruleDef("cat", "classify", "categorical", 1))
	evaluator := NewEvaluator(store, constantResponder("true"), zerolog.Nop())

	evaluation := evaluator.EvaluateEmail(context.Background(), goodEmail())

	require.Len(t, evaluation.Results, 1)
	assert.Equal(t, 0.0, evaluation.Results[0].Score)
	assert.Equal(t, "Unsupported AI output format: categorical", evaluation.Results[0].Justification)
}

func TestEvaluateEmail_ScoringModes(t *testing.T) {
	defs := []map[string]any{
		ruleDef("heavy", "heavy", "boolean", 1),
		ruleDef("light", "light", "boolean", 0.25),
	}
	reply := func(prompt string) (string, error) {
		if prompt == "heavy" {
			return "false", nil
		}
		return "true", nil
	}

	tests := []struct {
		name     string
		mode     string
		expected float64
	}{
		{"sum ignores weight", config.ScoringSum, 1},
		{"weighted normalizes by total weight", config.ScoringWeighted, 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(t, defs...)
			evaluator := NewEvaluator(store, &fakeResponder{reply: reply}, zerolog.Nop(), WithScoringMode(tt.mode))

			evaluation := evaluator.EvaluateEmail(context.Background(), goodEmail())
			assert.Equal(t, tt.expected, evaluation.TotalScore)
		})
	}
}

func TestEvaluateEmail_WeightedWithZeroWeights(t *testing.T) {
	store := newStore(t, ruleDef("free", "free", "boolean", 0))
	evaluator := NewEvaluator(store, constantResponder("true"), zerolog.Nop(), WithScoringMode(config.ScoringWeighted))

	evaluation := evaluator.EvaluateEmail(context.Background(), goodEmail())
	assert.Equal(t, 0.0, evaluation.TotalScore)
	require.Len(t, evaluation.Results, 1)
}

func TestEvaluateEmail_RoundsTotalScore(t *testing.T) {
	scale := ruleDef("scale", "rate", "numericScale", 1)
	scale["outputScale"] = map[string]any{"min": 0, "max": 3, "goodThreshold": 2}
	store := newStore(t, scale, scale)
	evaluator := NewEvaluator(store, constantResponder("1"), zerolog.Nop())

	evaluation := evaluator.EvaluateEmail(context.Background(), goodEmail())

	require.Len(t, evaluation.Results, 2)
	assert.Equal(t, 0.33, evaluation.Results[0].Score)
	assert.Equal(t, 0.66, evaluation.TotalScore)
	// both rules fail with the same text, suggestions are deduplicated
	assert.Equal(t, []string{"scale failed"}, evaluation.Suggestions)
}

func TestEvaluateEmail_ConditionSkipsRule(t *testing.T) {
	attachmentRule := ruleDef("attachment-named", "Are these attachments named well? {attachments}", "boolean", 1)
	attachmentRule["type"] = "attachment"
	attachmentRule["condition"] = "size(email.attachments) > 0"
	store := newStore(t, attachmentRule, ruleDef("always", "always", "boolean", 1))
	responder := constantResponder("true")
	evaluator := NewEvaluator(store, responder, zerolog.Nop())

	evaluation := evaluator.EvaluateEmail(context.Background(), goodEmail())
	require.Len(t, evaluation.Results, 1)
	assert.Equal(t, "always", evaluation.Results[0].RuleID)

	withAttachment := goodEmail()
	withAttachment.Attachments = []models.Attachment{{Name: "agenda.pdf", ContentType: "application/pdf"}}
	evaluation = evaluator.EvaluateEmail(context.Background(), withAttachment)
	require.Len(t, evaluation.Results, 2)
	assert.Contains(t, responder.calls(), "Are these attachments named well? agenda.pdf (application/pdf)")
}

func TestEvaluateEmail_JustificationTemplatesAreRendered(t *testing.T) {
	def := ruleDef("subject", "Is {subject} descriptive?", "boolean", 1)
	def["justification"] = map[string]any{
		"pass": "Subject '{subject}' is descriptive.",
		"fail": "Rewrite the subject '{subject}' to describe the request.",
	}
	store := newStore(t, def)
	evaluator := NewEvaluator(store, constantResponder("false"), zerolog.Nop())

	evaluation := evaluator.EvaluateEmail(context.Background(), goodEmail())

	require.Len(t, evaluation.Results, 1)
	assert.Equal(t, "Rewrite the subject 'Meeting Confirmation - Project Alpha' to describe the request.", evaluation.Results[0].Justification)
	assert.Equal(t, []string{"Rewrite the subject 'Meeting Confirmation - Project Alpha' to describe the request."}, evaluation.Suggestions)
}

func TestEvaluateEmail_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics("test", reg)
	require.NoError(t, err)

	store := newStore(t,
		ruleDef("ok", "ok", "boolean", 1),
		ruleDef("boom", "boom", "boolean", 1),
	)
	responder := &fakeResponder{reply: func(prompt string) (string, error) {
		if prompt == "boom" {
			return "", errors.New("AI call failed")
		}
		return "true", nil
	}}
	evaluator := NewEvaluator(store, responder, zerolog.Nop(), WithObserver(metrics))

	evaluator.EvaluateEmail(context.Background(), goodEmail())

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ruleOutcomes.WithLabelValues("ok", "pass")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ruleOutcomes.WithLabelValues("boom", "fail")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.aiCallErrors.WithLabelValues(purposeRule)))
}
