// Package audit evaluates emails against the rule set and aggregates threads.
package audit

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"mailaudit/internal/config"
	"mailaudit/internal/interpret"
	"mailaudit/internal/models"
	"mailaudit/internal/prompt"
	"mailaudit/internal/rules"
)

// Responder sends a prompt to a text-generation model and returns its reply
type Responder interface {
	Send(ctx context.Context, prompt string) (string, error)
}

// Evaluator scores single emails against every loaded rule
type Evaluator struct {
	store       *rules.Store
	responder   Responder
	scoringMode string
	observer    Observer
	logger      zerolog.Logger
}

// Option customizes an Evaluator
type Option func(*Evaluator)

// WithScoringMode selects config.ScoringSum or config.ScoringWeighted
func WithScoringMode(mode string) Option {
	return func(e *Evaluator) {
		e.scoringMode = mode
	}
}

// WithObserver attaches a telemetry observer
func WithObserver(observer Observer) Option {
	return func(e *Evaluator) {
		if observer != nil {
			e.observer = observer
		}
	}
}

// NewEvaluator creates an evaluator bound to a rule store and responder
func NewEvaluator(store *rules.Store, responder Responder, logger zerolog.Logger, opts ...Option) *Evaluator {
	e := &Evaluator{
		store:       store,
		responder:   responder,
		scoringMode: config.ScoringSum,
		observer:    (*Metrics)(nil),
		logger:      logger.With().Str("component", "evaluator").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EvaluateEmail runs every applicable rule against the email, in rule order.
// It never fails: AI errors are scored as failed rules, and an empty rule set
// yields a zero-score evaluation.
func (e *Evaluator) EvaluateEmail(ctx context.Context, email models.Email) *models.EmailEvaluation {
	messageID := email.MessageID
	if messageID == "" {
		messageID = "N/A"
	}

	evaluation := &models.EmailEvaluation{
		MessageID:   messageID,
		TotalScore:  0,
		Results:     []models.RuleEvaluationResult{},
		Suggestions: []string{},
	}

	ruleSet := e.store.Rules()
	if len(ruleSet) == 0 {
		if err := e.store.Reload(); err != nil && !errors.Is(err, rules.ErrNoSource) {
			e.logger.Warn().Err(err).Msg("Failed to reload rules")
		}
		ruleSet = e.store.Rules()
		if len(ruleSet) == 0 {
			e.logger.Warn().Str("message_id", messageID).Msg("No rules loaded. Email evaluation cannot proceed.")
			return evaluation
		}
	}

	var scoreSum, weightedSum, weightSum float64
	seen := make(map[string]struct{})

	for _, rule := range ruleSet {
		applies, err := rule.Applies(email)
		if err != nil {
			e.logger.Warn().Err(err).Str("rule_id", rule.ID).Msg("Rule condition failed, evaluating rule anyway")
			applies = true
		}
		if !applies {
			e.logger.Debug().Str("rule_id", rule.ID).Str("message_id", messageID).Msg("Rule does not apply")
			continue
		}

		outcome := e.evaluateRule(ctx, rule, email)

		evaluation.Results = append(evaluation.Results, models.RuleEvaluationResult{
			RuleID:        rule.ID,
			RuleName:      rule.Name,
			Score:         outcome.Score,
			Passed:        outcome.Passed,
			Justification: outcome.Justification,
		})
		e.observer.RecordRuleOutcome(rule.ID, outcome.Passed)

		scoreSum += outcome.Score
		weightedSum += rule.Weight * outcome.Score
		weightSum += rule.Weight

		if !outcome.Passed {
			suggestion := prompt.Render(rule.Justification.Fail, email)
			if _, dup := seen[suggestion]; !dup {
				seen[suggestion] = struct{}{}
				evaluation.Suggestions = append(evaluation.Suggestions, suggestion)
			}
		}
	}

	switch e.scoringMode {
	case config.ScoringWeighted:
		if weightSum > 0 {
			evaluation.TotalScore = interpret.RoundScore(weightedSum / weightSum)
		}
	default:
		evaluation.TotalScore = interpret.RoundScore(scoreSum)
	}

	e.logger.Info().
		Str("message_id", messageID).
		Int("rules_evaluated", len(evaluation.Results)).
		Float64("total_score", evaluation.TotalScore).
		Msg("Email evaluated")

	return evaluation
}

// evaluateRule renders, sends and interprets a single rule
func (e *Evaluator) evaluateRule(ctx context.Context, rule rules.Rule, email models.Email) interpret.Outcome {
	rendered := rule
	rendered.Justification = rules.Justification{
		Pass: prompt.Render(rule.Justification.Pass, email),
		Fail: prompt.Render(rule.Justification.Fail, email),
	}

	start := time.Now()
	response, err := e.responder.Send(ctx, prompt.Render(rule.PromptTemplate, email))
	e.observer.RecordAICall(purposeRule, time.Since(start), err)
	if err != nil {
		e.logger.Error().Err(err).Str("rule_id", rule.ID).Msg("Error processing rule")
		return interpret.Failure(err, rendered)
	}

	e.logger.Debug().Str("rule_id", rule.ID).Str("response", response).Msg("AI response")

	outcome := interpret.Interpret(response, rendered)
	if rule.ExpectedOutputFormat != rules.FormatBoolean &&
		rule.ExpectedOutputFormat != rules.FormatScoreAndJustification &&
		rule.ExpectedOutputFormat != rules.FormatNumericScale {
		e.logger.Warn().
			Str("rule_id", rule.ID).
			Str("format", string(rule.ExpectedOutputFormat)).
			Msg("Unsupported AI output format")
	}
	return outcome
}
