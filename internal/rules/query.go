package rules

import (
	"fmt"
	"maps"
	"slices"

	"github.com/matthewbaird/fieldops/internal/naming"
)

// Violation types used as message keys.
const (
	ViolationRequired   = "required"
	ViolationPattern    = "pattern"
	ViolationUnique     = "unique"
	ViolationTransition = "transition"
)

// ValidationRules returns a copy of the rules of entity. Unknown entities
// yield empty rules.
func (rs *RuleSet) ValidationRules(entity string) EntityRules {
	er := rs.entity(entity)
	if er == nil {
		return EntityRules{}
	}
	return er.clone()
}

func (er *EntityRules) clone() EntityRules {
	out := EntityRules{
		Required: slices.Clone(er.Required),
		Unique:   slices.Clone(er.Unique),
		Patterns: maps.Clone(er.Patterns),
		compiled: er.compiled,
	}
	if er.StateTransitions != nil {
		out.StateTransitions = make(map[string]map[string][]string, len(er.StateTransitions))
		for field, graph := range er.StateTransitions {
			g := make(map[string][]string, len(graph))
			for state, targets := range graph {
				g[state] = slices.Clone(targets)
			}
			out.StateTransitions[field] = g
		}
	}
	if er.BusinessLogic != nil {
		out.BusinessLogic = make(map[string][]string, len(er.BusinessLogic))
		for trigger, actions := range er.BusinessLogic {
			out.BusinessLogic[trigger] = slices.Clone(actions)
		}
	}
	if er.Messages != nil {
		out.Messages = make(map[string]map[string]string, len(er.Messages))
		for field, msgs := range er.Messages {
			out.Messages[field] = maps.Clone(msgs)
		}
	}
	return out
}

// IsFieldRequired reports whether field is listed as required for entity.
func (rs *RuleSet) IsFieldRequired(entity, field string) bool {
	er := rs.entity(entity)
	return er != nil && slices.Contains(er.Required, field)
}

// IsFieldUnique reports whether field is listed as unique for entity.
func (rs *RuleSet) IsFieldUnique(entity, field string) bool {
	er := rs.entity(entity)
	return er != nil && slices.Contains(er.Unique, field)
}

// AllowedTransitions returns the states reachable from state on the status
// field of entity. Terminal and unknown states yield an empty list.
func (rs *RuleSet) AllowedTransitions(entity, state string) []string {
	return rs.FieldTransitions(entity, StatusField, state)
}

// FieldTransitions returns the states reachable from state on field.
func (rs *RuleSet) FieldTransitions(entity, field, state string) []string {
	er := rs.entity(entity)
	if er == nil {
		return nil
	}
	return slices.Clone(er.StateTransitions[field][state])
}

// HasTransitions reports whether entity declares a transition table for field.
func (rs *RuleSet) HasTransitions(entity, field string) bool {
	er := rs.entity(entity)
	return er != nil && len(er.StateTransitions[field]) > 0
}

// StateFields returns the fields of entity with a transition table, sorted.
func (rs *RuleSet) StateFields(entity string) []string {
	er := rs.entity(entity)
	if er == nil {
		return nil
	}
	return sortedKeys(er.StateTransitions)
}

// States returns the declared states of field on entity, sorted.
func (rs *RuleSet) States(entity, field string) []string {
	er := rs.entity(entity)
	if er == nil {
		return nil
	}
	return sortedKeys(er.StateTransitions[field])
}

// BusinessLogic returns the actions bound to trigger on entity.
func (rs *RuleSet) BusinessLogic(entity, trigger string) []string {
	er := rs.entity(entity)
	if er == nil {
		return nil
	}
	return slices.Clone(er.BusinessLogic[trigger])
}

// ValidationMessage returns the configured message for a violation of field,
// or a default message built from the field label.
func (rs *RuleSet) ValidationMessage(entity, field, violation string) string {
	if er := rs.entity(entity); er != nil {
		if msg := er.Messages[field][violation]; msg != "" {
			return msg
		}
	}
	return DefaultMessage(field, violation)
}

// DefaultMessage is the message used when a document configures none.
func DefaultMessage(field, violation string) string {
	label := naming.Label(field)
	switch violation {
	case ViolationRequired:
		return label + " is required"
	case ViolationPattern:
		return label + " has an invalid format"
	case ViolationUnique:
		return label + " must be unique"
	case ViolationTransition:
		return label + " cannot change to that value"
	default:
		return fmt.Sprintf("%s is invalid (%s)", label, violation)
	}
}
