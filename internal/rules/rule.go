// Package rules loads and validates the declarative audit rule set.
package rules

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"mailaudit/internal/models"
)

// OutputFormat tells the interpreter how to read the AI response for a rule
type OutputFormat string

// Supported output formats
const (
	FormatBoolean               OutputFormat = "boolean"
	FormatScoreAndJustification OutputFormat = "scoreAndJustification"
	FormatNumericScale          OutputFormat = "numericScale"
)

// Rule types are informational only
const (
	TypeContent    = "content"
	TypeHeader     = "header"
	TypeAttachment = "attachment"
	TypeTiming     = "timing"
)

// Justification holds the pass/fail templates for a rule
type Justification struct {
	Pass string `json:"pass"`
	Fail string `json:"fail"`
}

// OutputScale defines the range for numericScale rules
type OutputScale struct {
	Min           float64 `json:"min"`
	Max           float64 `json:"max"`
	GoodThreshold float64 `json:"goodThreshold"`
}

// Rule is a validated audit rule. Rules are immutable once loaded.
type Rule struct {
	ID                   string        `json:"id"`
	Name                 string        `json:"name"`
	Description          string        `json:"description"`
	Type                 string        `json:"type"`
	PromptTemplate       string        `json:"promptTemplate"`
	ExpectedOutputFormat OutputFormat  `json:"expectedOutputFormat"`
	OutputScale          *OutputScale  `json:"outputScale,omitempty"`
	Weight               float64       `json:"weight"`
	Justification        Justification `json:"justification"`
	Condition            string        `json:"condition,omitempty"`

	program cel.Program
}

// Summary returns the public view of the rule
func (r Rule) Summary() models.RuleSummary {
	return models.RuleSummary{
		ID:                   r.ID,
		Name:                 r.Name,
		Description:          r.Description,
		Type:                 r.Type,
		ExpectedOutputFormat: string(r.ExpectedOutputFormat),
		Weight:               r.Weight,
		Condition:            r.Condition,
	}
}

// Applies evaluates the rule condition against an email.
// Rules without a condition apply to every email.
func (r Rule) Applies(email models.Email) (bool, error) {
	if r.program == nil {
		return true, nil
	}

	out, _, err := r.program.Eval(map[string]any{"email": conditionInput(email)})
	if err != nil {
		return false, fmt.Errorf("evaluate condition for rule %s: %w", r.ID, err)
	}

	applies, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("condition for rule %s returned %s, want bool", r.ID, out.Type().TypeName())
	}
	return bool(applies), nil
}

// normalizeFormat maps accepted spellings onto the canonical format names
func normalizeFormat(raw string) OutputFormat {
	key := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(raw))
	switch key {
	case "boolean", "bool":
		return FormatBoolean
	case "scoreandjustification":
		return FormatScoreAndJustification
	case "numericscale":
		return FormatNumericScale
	default:
		return OutputFormat(strings.TrimSpace(raw))
	}
}

var conditionEnv *cel.Env

func init() {
	env, err := cel.NewEnv(
		cel.Variable("email", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		panic(fmt.Sprintf("rules: build CEL environment: %v", err))
	}
	conditionEnv = env
}

// compileCondition compiles a CEL expression into a program that must yield a bool
func compileCondition(expr string) (cel.Program, error) {
	ast, issues := conditionEnv.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile condition: %w", issues.Err())
	}

	outType := ast.OutputType()
	if !outType.IsExactType(cel.BoolType) && !outType.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("condition must be boolean, got %s", outType)
	}

	prg, err := conditionEnv.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build condition program: %w", err)
	}
	return prg, nil
}

// conditionInput projects an email onto the CEL `email` variable
func conditionInput(email models.Email) map[string]any {
	references := make([]any, 0, len(email.References))
	for _, ref := range email.References {
		references = append(references, ref)
	}

	attachments := make([]any, 0, len(email.Attachments))
	for _, att := range email.Attachments {
		attachments = append(attachments, map[string]any{
			"name":        att.Name,
			"contentType": att.ContentType,
		})
	}

	return map[string]any{
		"subject":     email.Subject,
		"from":        email.From,
		"to":          email.To,
		"date":        email.Date,
		"text":        email.Text,
		"html":        email.HTML,
		"messageId":   email.MessageID,
		"inReplyTo":   email.InReplyTo,
		"threadId":    email.ThreadID,
		"references":  references,
		"attachments": attachments,
	}
}
