package rules

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/matthewbaird/fieldops/internal/gaplog"
)

// ErrTransitionNotAllowed is wrapped by CheckTransition failures.
var ErrTransitionNotAllowed = errors.New("transition not allowed")

// FieldError is a single per-field validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Validate checks a full record of entity against its required fields and
// patterns. Record keys use the field names of the rule document.
func (rs *RuleSet) Validate(entity string, record map[string]any) []FieldError {
	return rs.validate(entity, record, false)
}

// ValidatePatch checks a partial update. Absent required fields are allowed;
// required fields explicitly cleared are not.
func (rs *RuleSet) ValidatePatch(entity string, record map[string]any) []FieldError {
	return rs.validate(entity, record, true)
}

func (rs *RuleSet) validate(entity string, record map[string]any, partial bool) []FieldError {
	er := rs.entity(entity)
	if er == nil {
		return nil
	}
	var errs []FieldError
	failed := map[string]bool{}
	for _, field := range er.Required {
		v, present := record[field]
		if partial && !present {
			continue
		}
		if isBlank(v) {
			failed[field] = true
			errs = append(errs, FieldError{
				Field:   field,
				Code:    ViolationRequired,
				Message: rs.ValidationMessage(entity, field, ViolationRequired),
			})
		}
	}
	for _, field := range sortedKeys(er.compiled) {
		if failed[field] {
			continue
		}
		s, ok := record[field].(string)
		if !ok || s == "" {
			continue
		}
		if !er.compiled[field].MatchString(s) {
			errs = append(errs, FieldError{
				Field:   field,
				Code:    ViolationPattern,
				Message: rs.ValidationMessage(entity, field, ViolationPattern),
			})
		}
	}
	return errs
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// CheckTransition reports whether field of entity may move from current to
// target. Fields without a transition table accept any change.
func (rs *RuleSet) CheckTransition(entity, field, current, target string) error {
	if current == target || !rs.HasTransitions(entity, field) {
		return nil
	}
	graph := rs.entity(entity).StateTransitions[field]
	allowed, ok := graph[current]
	if !ok {
		return fmt.Errorf("%w: unknown current state %q", ErrTransitionNotAllowed, current)
	}
	if !slices.Contains(allowed, target) {
		return fmt.Errorf("%w: %q to %q", ErrTransitionNotAllowed, current, target)
	}
	return nil
}

// CheckEnumDomain compares the transition table of field against its
// declared enum values and returns one gap record per state outside the
// domain. A nil or empty domain yields no records.
func (rs *RuleSet) CheckEnumDomain(entity, field string, domain []string) []gaplog.Record {
	if len(domain) == 0 || !rs.HasTransitions(entity, field) {
		return nil
	}
	graph := rs.entity(entity).StateTransitions[field]
	seen := map[string]bool{}
	var out []gaplog.Record
	report := func(state, context string) {
		if seen[state] || slices.Contains(domain, state) {
			return
		}
		seen[state] = true
		out = append(out, gaplog.Record{
			Category:     gaplog.CategoryTransition,
			Entity:       entity,
			Field:        field,
			Expected:     "one of " + strings.Join(domain, ", "),
			Assumption:   fmt.Sprintf("state %q %s is not a declared %s value", state, context, field),
			SuggestedFix: fmt.Sprintf("add %q to the enum or remove it from the transition table", state),
			Impact:       gaplog.ImpactHigh,
		})
	}
	for _, state := range sortedKeys(graph) {
		report(state, "declared in the transition table")
		for _, target := range graph[state] {
			report(target, "reachable from "+state)
		}
	}
	return out
}
