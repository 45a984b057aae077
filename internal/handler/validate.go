package handler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/matthewbaird/fieldops/internal/naming"
	"github.com/matthewbaird/fieldops/internal/rules"
	"github.com/matthewbaird/fieldops/internal/store"
)

// Field error codes produced before the rule set runs.
const (
	codeInvalidReference = "invalid_reference"
	codeInvalidType      = "invalid_type"
	codeInvalidState     = "invalid_state"
)

// validateBody turns a decoded request body into a store record for t.
// Unknown and system keys are dropped. Column types, reference formats and
// required columns are checked first, then the rule set of the table's
// entity. partial selects PATCH semantics: absent columns are left alone.
func validateBody(t *store.Table, rs *rules.RuleSet, body map[string]any, partial bool) (store.Record, []rules.FieldError) {
	rec := store.Record{}
	var errs []rules.FieldError
	failed := map[string]bool{}
	fail := func(fe rules.FieldError) {
		failed[fe.Field] = true
		errs = append(errs, fe)
	}

	for _, c := range t.Columns {
		v, present := body[c.Name]
		if !present {
			if !partial && c.Required {
				fail(requiredError(t, rs, c))
			}
			continue
		}
		if v == nil || isBlankString(v) {
			if c.Required {
				fail(requiredError(t, rs, c))
				continue
			}
			rec[c.Name] = nil
			continue
		}
		if c.References != "" {
			if s, ok := v.(string); !ok || uuid.Validate(s) != nil {
				fail(rules.FieldError{
					Field:   c.Name,
					Code:    codeInvalidReference,
					Message: fmt.Sprintf("Invalid %s ID format", strings.ToLower(naming.RefLabel(c.Name))),
				})
				continue
			}
		}
		cv, err := store.Coerce(c, v)
		if err != nil {
			fail(rules.FieldError{
				Field:   c.Name,
				Code:    codeInvalidType,
				Message: fmt.Sprintf("%s must be a valid %s", naming.Label(c.Name), typeNoun(c.Type)),
			})
			continue
		}
		if s, ok := cv.(string); ok && rs.HasTransitions(t.Entity, c.Field) && !slices.Contains(rs.States(t.Entity, c.Field), s) {
			fail(rules.FieldError{
				Field:   c.Name,
				Code:    codeInvalidState,
				Message: fmt.Sprintf("%s must be one of %s", naming.Label(c.Name), strings.Join(rs.States(t.Entity, c.Field), ", ")),
			})
			continue
		}
		rec[c.Name] = cv
	}

	// The rule set speaks in model field names.
	fields := map[string]any{}
	for name, v := range rec {
		if c, ok := t.Column(name); ok && c.Field != "" {
			fields[c.Field] = v
		}
	}
	var ruleErrs []rules.FieldError
	if partial {
		ruleErrs = rs.ValidatePatch(t.Entity, fields)
	} else {
		ruleErrs = rs.Validate(t.Entity, fields)
	}
	for _, fe := range ruleErrs {
		fe.Field = columnFor(t, fe.Field)
		if failed[fe.Field] {
			continue
		}
		fail(fe)
	}
	return rec, errs
}

func requiredError(t *store.Table, rs *rules.RuleSet, c store.Column) rules.FieldError {
	msg := rs.ValidationMessage(t.Entity, c.Field, rules.ViolationRequired)
	if c.Field == "" {
		msg = rules.DefaultMessage(c.Name, rules.ViolationRequired)
	}
	return rules.FieldError{Field: c.Name, Code: rules.ViolationRequired, Message: msg}
}

// columnFor maps a model field name back to its column name.
func columnFor(t *store.Table, field string) string {
	for _, c := range t.Columns {
		if c.Field == field {
			return c.Name
		}
	}
	return naming.ToSnake(field)
}

func typeNoun(typ store.ColumnType) string {
	switch typ {
	case store.TypeUUID:
		return "UUID"
	case store.TypeBool:
		return "boolean"
	case store.TypeDecimal:
		return "decimal number"
	case store.TypeTime:
		return "RFC 3339 timestamp"
	case store.TypeInt:
		return "whole number"
	}
	return "string"
}

func isBlankString(v any) bool {
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}
