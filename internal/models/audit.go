package models

import "time"

// RuleEvaluationResult is the outcome of one rule against one email
type RuleEvaluationResult struct {
	RuleID        string  `json:"ruleId"`
	RuleName      string  `json:"ruleName"`
	Score         float64 `json:"score"`
	Passed        bool    `json:"passed"`
	Justification string  `json:"justification"`
}

// EmailEvaluation aggregates every rule result for a single email
type EmailEvaluation struct {
	MessageID   string                 `json:"messageId"`
	TotalScore  float64                `json:"totalScore"`
	Results     []RuleEvaluationResult `json:"results"`
	Suggestions []string               `json:"suggestions"`
}

// ThreadAuditReport is the audit outcome for a whole conversation
type ThreadAuditReport struct {
	AuditID                 string            `json:"auditId"`
	ThreadID                string            `json:"threadId"`
	EmployeeEmail           string            `json:"employeeEmail,omitempty"`
	GeneratedAt             time.Time         `json:"generatedAt"`
	AverageThreadScore      float64           `json:"averageThreadScore"`
	EmailEvaluations        []EmailEvaluation `json:"emailEvaluations"`
	OverallStrengths        string            `json:"overallStrengths"`
	OverallImprovementAreas string            `json:"overallImprovementAreas"`
	TopSuggestions          []string          `json:"topSuggestions"`
}
