package rules

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var (
	// ErrRulesNotList is returned when the rule configuration is not a list
	ErrRulesNotList = errors.New("rules are not in the expected format: want a list of rule definitions")
	// ErrNoSource is returned by Reload when the store was never loaded from a file
	ErrNoSource = errors.New("no rule file configured")
)

// Store holds the active rule set. Reloads replace the set wholesale;
// readers always work on a snapshot.
type Store struct {
	mu     sync.RWMutex
	rules  []Rule
	path   string
	logger zerolog.Logger
}

// NewStore creates an empty rule store. path may be empty when rules are
// loaded programmatically.
func NewStore(path string, logger zerolog.Logger) *Store {
	return &Store{
		path:   path,
		logger: logger.With().Str("component", "rules").Logger(),
	}
}

// Load validates a decoded list of candidate rules and replaces the active set
// with the valid ones. The previous set is kept when raw is not a list.
func (s *Store) Load(raw any) error {
	candidates, ok := asList(raw)
	if !ok {
		return ErrRulesNotList
	}

	valid := make([]Rule, 0, len(candidates))
	for i, candidate := range candidates {
		rule, err := parseRule(candidate)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("rule", describeCandidate(candidate, i)).
				Msg("Skipping invalid rule")
			continue
		}
		valid = append(valid, rule)
	}

	s.mu.Lock()
	s.rules = valid
	s.mu.Unlock()

	s.logger.Info().
		Int("candidates", len(candidates)).
		Int("loaded", len(valid)).
		Msg("Rules loaded")

	return nil
}

// LoadFile decodes a YAML or JSON rule file and loads it. The file becomes
// the source for later reloads.
func (s *Store) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read rule file %s: %w", path, err)
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode rule file %s: %w", path, err)
	}

	if err := s.Load(raw); err != nil {
		return fmt.Errorf("load rule file %s: %w", path, err)
	}

	s.mu.Lock()
	s.path = path
	s.mu.Unlock()

	return nil
}

// Reload re-reads the configured rule file
func (s *Store) Reload() error {
	s.mu.RLock()
	path := s.path
	s.mu.RUnlock()

	if path == "" {
		return ErrNoSource
	}
	return s.LoadFile(path)
}

// Rules returns a snapshot of the active rule set
func (s *Store) Rules() []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]Rule, len(s.rules))
	copy(snapshot, s.rules)
	return snapshot
}

// Count returns the number of active rules
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rules)
}

// asList accepts the list shapes produced by YAML/JSON decoders and by Go callers
func asList(raw any) ([]any, bool) {
	switch v := raw.(type) {
	case []any:
		return v, true
	case []map[string]any:
		list := make([]any, len(v))
		for i, m := range v {
			list[i] = m
		}
		return list, true
	default:
		return nil, false
	}
}

// parseRule checks a candidate against the validity predicate and builds a Rule
func parseRule(candidate any) (Rule, error) {
	fields, ok := candidate.(map[string]any)
	if !ok {
		return Rule{}, fmt.Errorf("rule definition is %T, want an object", candidate)
	}

	rule := Rule{
		ID:             stringField(fields, "id"),
		Name:           stringField(fields, "name"),
		Description:    stringField(fields, "description"),
		Type:           stringField(fields, "type"),
		PromptTemplate: stringField(fields, "promptTemplate"),
		Condition:      strings.TrimSpace(stringField(fields, "condition")),
	}

	format := stringField(fields, "expectedOutputFormat")
	if format == "" {
		format = stringField(fields, "expectedAiOutputFormat")
	}
	if format != "" {
		rule.ExpectedOutputFormat = normalizeFormat(format)
	}

	var missing []string
	for _, req := range []struct{ name, value string }{
		{"id", rule.ID},
		{"name", rule.Name},
		{"description", rule.Description},
		{"type", rule.Type},
		{"promptTemplate", rule.PromptTemplate},
		{"expectedOutputFormat", string(rule.ExpectedOutputFormat)},
	} {
		if strings.TrimSpace(req.value) == "" {
			missing = append(missing, req.name)
		}
	}
	if len(missing) > 0 {
		return Rule{}, fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	weight, ok := numberField(fields, "weight")
	if !ok {
		return Rule{}, fmt.Errorf("weight must be a number")
	}
	if weight < 0 || weight > 1 {
		return Rule{}, fmt.Errorf("weight %.2f outside [0,1]", weight)
	}
	rule.Weight = weight

	justification, ok := fields["justification"].(map[string]any)
	if !ok {
		return Rule{}, fmt.Errorf("justification must be an object with pass and fail")
	}
	rule.Justification = Justification{
		Pass: stringField(justification, "pass"),
		Fail: stringField(justification, "fail"),
	}
	if rule.Justification.Pass == "" || rule.Justification.Fail == "" {
		return Rule{}, fmt.Errorf("justification requires both pass and fail")
	}

	if scale, ok := fields["outputScale"].(map[string]any); ok {
		lo, loOK := numberField(scale, "min")
		hi, hiOK := numberField(scale, "max")
		threshold, thresholdOK := numberField(scale, "goodThreshold")
		if loOK && hiOK && thresholdOK {
			rule.OutputScale = &OutputScale{Min: lo, Max: hi, GoodThreshold: threshold}
		}
	}

	if rule.Condition != "" {
		prg, err := compileCondition(rule.Condition)
		if err != nil {
			return Rule{}, err
		}
		rule.program = prg
	}

	return rule, nil
}

func stringField(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func numberField(fields map[string]any, key string) (float64, bool) {
	var n float64
	switch v := fields[key].(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case uint64:
		n = float64(v)
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// describeCandidate names a rejected rule by name, id, or position
func describeCandidate(candidate any, index int) string {
	if fields, ok := candidate.(map[string]any); ok {
		if name := stringField(fields, "name"); name != "" {
			return name
		}
		if id := stringField(fields, "id"); id != "" {
			return id
		}
	}
	return fmt.Sprintf("rule #%d", index+1)
}
