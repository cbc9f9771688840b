package models

import "time"

// HealthResponse represents a basic health check response
// @Description Health check response
type HealthResponse struct {
	Status      string    `json:"status" example:"healthy"`                 // Health status
	Timestamp   time.Time `json:"timestamp" example:"2023-01-01T00:00:00Z"` // Timestamp of the check
	Version     string    `json:"version" example:"1.0.0"`                  // Application version
	RulesLoaded int       `json:"rules_loaded" example:"5"`                 // Number of active audit rules
}

// AuditEmailRequest represents the request body for a single-email audit
// @Description Single email audit request
type AuditEmailRequest struct {
	Email *Email `json:"email"`
}

// AuditThreadRequest represents the request body for a thread audit
// @Description Thread audit request
type AuditThreadRequest struct {
	Emails        []Email `json:"emails"`
	EmployeeEmail string  `json:"employeeEmail,omitempty" example:"agent@example.com"` // Employee whose replies are audited
	NotifyEmail   string  `json:"notifyEmail,omitempty" example:"lead@example.com"`    // Reviewer who receives the finished report
}

// ErrorResponse is returned for every failed API call
// @Description Error payload
type ErrorResponse struct {
	Error   string `json:"error" example:"Request body must contain a non-empty array of emails."`
	Details string `json:"details,omitempty"`
}

// RuleSummary is the public view of a loaded rule
type RuleSummary struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	Description          string  `json:"description"`
	Type                 string  `json:"type"`
	ExpectedOutputFormat string  `json:"expectedOutputFormat"`
	Weight               float64 `json:"weight"`
	Condition            string  `json:"condition,omitempty"`
}

// RulesResponse lists the active audit rules
// @Description Active rule set
type RulesResponse struct {
	Count int           `json:"count" example:"5"`
	Rules []RuleSummary `json:"rules"`
}

// LoginRequest carries admin credentials
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries an admin bearer token
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
