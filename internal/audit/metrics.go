package audit

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AI call purposes used as metric labels
const (
	purposeRule    = "rule"
	purposeSummary = "summary"
)

// Observer records engine telemetry. A nil *Metrics is a valid no-op Observer.
type Observer interface {
	RecordAICall(purpose string, duration time.Duration, err error)
	RecordRuleOutcome(ruleID string, passed bool)
	RecordThread(emails int)
}

// Metrics exports engine telemetry to Prometheus
type Metrics struct {
	aiCallDuration *prometheus.HistogramVec
	aiCallErrors   *prometheus.CounterVec
	ruleOutcomes   *prometheus.CounterVec
	threadSize     prometheus.Histogram
}

// NewMetrics registers the audit metrics on reg (the default registerer when nil)
func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	if namespace == "" {
		namespace = "mailaudit"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		aiCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ai_call_duration_seconds",
			Help:      "Latency of AI responder calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"purpose"}),
		aiCallErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_call_errors_total",
			Help:      "Count of failed AI responder calls.",
		}, []string{"purpose"}),
		ruleOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_outcomes_total",
			Help:      "Rule evaluations by rule and outcome.",
		}, []string{"rule_id", "outcome"}),
		threadSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "thread_emails",
			Help:      "Number of emails per audited thread.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34},
		}),
	}

	collectors := []prometheus.Collector{m.aiCallDuration, m.aiCallErrors, m.ruleOutcomes, m.threadSize}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return nil, fmt.Errorf("register audit metric: %w", err)
		}
	}
	return m, nil
}

// RecordAICall tracks latency and failures of responder calls
func (m *Metrics) RecordAICall(purpose string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.aiCallDuration.WithLabelValues(purpose).Observe(duration.Seconds())
	if err != nil {
		m.aiCallErrors.WithLabelValues(purpose).Inc()
	}
}

// RecordRuleOutcome counts pass/fail per rule
func (m *Metrics) RecordRuleOutcome(ruleID string, passed bool) {
	if m == nil {
		return
	}
	outcome := "fail"
	if passed {
		outcome = "pass"
	}
	m.ruleOutcomes.WithLabelValues(ruleID, outcome).Inc()
}

// RecordThread tracks thread sizes
func (m *Metrics) RecordThread(emails int) {
	if m == nil {
		return
	}
	m.threadSize.Observe(float64(emails))
}
