// Package interpret turns raw AI responses into rule scores.
package interpret

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"mailaudit/internal/rules"
)

// passMark is the normalized score at which a graded rule counts as passed
const passMark = 0.5

var (
	numberPattern        = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	leadingNumberPattern = regexp.MustCompile(`^\s*(-?\d+(?:\.\d+)?)(?:\s*/\s*(\d+(?:\.\d+)?))?`)
	scoreLinePattern     = regexp.MustCompile(`(?i)\bscore\s*[:=]\s*(-?\d+(?:\.\d+)?)(?:\s*/\s*(\d+(?:\.\d+)?))?`)
	justificationPattern = regexp.MustCompile(`(?im)^[\s*\-]*justification[ \t]*[:=][ \t*]*(.+?)\s*$`)
)

// Outcome is the interpreted result of one rule
type Outcome struct {
	Score         float64
	Passed        bool
	Justification string
}

// Interpret maps an AI response onto a score according to the rule's output format
func Interpret(response string, rule rules.Rule) Outcome {
	switch rule.ExpectedOutputFormat {
	case rules.FormatBoolean:
		return interpretBoolean(response, rule)
	case rules.FormatScoreAndJustification:
		return interpretScoreAndJustification(response, rule)
	case rules.FormatNumericScale:
		return interpretNumericScale(response, rule)
	default:
		return Outcome{
			Score:         0,
			Justification: fmt.Sprintf("Unsupported AI output format: %s", rule.ExpectedOutputFormat),
		}
	}
}

// Failure is the outcome recorded when the AI call for a rule fails
func Failure(err error, rule rules.Rule) Outcome {
	return Outcome{
		Score: 0,
		Justification: fmt.Sprintf("Failed to get AI response for this rule: %v. Using default fail justification: %s",
			err, rule.Justification.Fail),
	}
}

// RoundScore rounds a score to two decimal places
func RoundScore(v float64) float64 {
	return math.Round(v*100) / 100
}

func interpretBoolean(response string, rule rules.Rule) Outcome {
	if startsWithTrue(response) {
		return Outcome{Score: 1, Passed: true, Justification: rule.Justification.Pass}
	}
	return Outcome{Score: 0, Passed: false, Justification: rule.Justification.Fail}
}

// startsWithTrue reports whether the response opens with "true", ignoring case,
// leading whitespace and markdown emphasis
func startsWithTrue(response string) bool {
	head := strings.TrimLeftFunc(response, unicode.IsSpace)
	head = strings.TrimLeft(head, "*_`\"'")
	if runes := []rune(head); len(runes) > 8 {
		head = string(runes[:8])
	}
	return strings.HasPrefix(cases.Fold().String(head), "true")
}

type scoredResponse struct {
	Score         *float64 `json:"score"`
	Justification string   `json:"justification"`
}

func interpretScoreAndJustification(response string, rule rules.Rule) Outcome {
	score, justification, ok := parseScoreAndJustification(response)
	if !ok {
		return Outcome{
			Score:         0,
			Justification: fmt.Sprintf("Could not read a score from the AI response. %s", rule.Justification.Fail),
		}
	}

	score = RoundScore(clamp(score, 0, 1))
	passed := score >= passMark
	if justification == "" {
		justification = rule.Justification.Fail
		if passed {
			justification = rule.Justification.Pass
		}
	}
	return Outcome{Score: score, Passed: passed, Justification: justification}
}

// parseScoreAndJustification accepts a JSON object, "Score: n" / "Justification: text"
// lines, or a leading number followed by free text. "n/d" scores are divided out.
func parseScoreAndJustification(response string) (float64, string, bool) {
	if start, end := strings.Index(response, "{"), strings.LastIndex(response, "}"); start >= 0 && end > start {
		var parsed scoredResponse
		if err := json.Unmarshal([]byte(response[start:end+1]), &parsed); err == nil && parsed.Score != nil {
			return *parsed.Score, strings.TrimSpace(parsed.Justification), true
		}
	}

	justification := ""
	if m := justificationPattern.FindStringSubmatch(response); m != nil {
		justification = m[1]
	}

	if m := scoreLinePattern.FindStringSubmatch(response); m != nil {
		score, ok := ratio(m[1], m[2])
		return score, justification, ok
	}

	if loc := leadingNumberPattern.FindStringSubmatchIndex(response); loc != nil {
		num := response[loc[2]:loc[3]]
		den := ""
		if loc[4] >= 0 {
			den = response[loc[4]:loc[5]]
		}
		score, ok := ratio(num, den)
		if justification == "" {
			justification = strings.TrimSpace(strings.TrimLeft(response[loc[1]:], " \t-:,.;"))
		}
		return score, justification, ok
	}

	return 0, "", false
}

func interpretNumericScale(response string, rule rules.Rule) Outcome {
	scale := rule.OutputScale
	if scale == nil || scale.Max <= scale.Min {
		return Outcome{
			Score:         0,
			Justification: fmt.Sprintf("Rule %s has no usable output scale. %s", rule.ID, rule.Justification.Fail),
		}
	}

	raw := numberPattern.FindString(response)
	if raw == "" {
		return Outcome{
			Score:         0,
			Justification: fmt.Sprintf("Could not read a score from the AI response. %s", rule.Justification.Fail),
		}
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Outcome{
			Score:         0,
			Justification: fmt.Sprintf("Could not read a score from the AI response. %s", rule.Justification.Fail),
		}
	}

	score := RoundScore(clamp((value-scale.Min)/(scale.Max-scale.Min), 0, 1))
	if value >= scale.GoodThreshold {
		return Outcome{Score: score, Passed: true, Justification: rule.Justification.Pass}
	}
	return Outcome{Score: score, Passed: false, Justification: rule.Justification.Fail}
}

func ratio(num, den string) (float64, bool) {
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	if den == "" {
		return n, true
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0, false
	}
	return n / d, true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
