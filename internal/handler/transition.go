package handler

import (
	"fmt"
	"strings"

	"github.com/matthewbaird/fieldops/internal/rules"
	"github.com/matthewbaird/fieldops/internal/store"
)

// stateChanges returns the columns in changes governed by a transition table.
func stateChanges(t *store.Table, rs *rules.RuleSet, changes store.Record) []store.Column {
	var out []store.Column
	for _, c := range t.Columns {
		if _, ok := changes[c.Name]; ok && rs.HasTransitions(t.Entity, c.Field) {
			out = append(out, c)
		}
	}
	return out
}

// validateTransitions checks every state change in changes against the
// current record. The status column is checked with AllowedTransitions; any
// other governed column with its own table.
func validateTransitions(t *store.Table, rs *rules.RuleSet, current, changes store.Record, cols []store.Column) error {
	for _, c := range cols {
		from, _ := current[c.Name].(string)
		to, _ := changes[c.Name].(string)
		if from == to || to == "" {
			continue
		}
		var allowed []string
		if c.Field == rules.StatusField {
			allowed = rs.AllowedTransitions(t.Entity, from)
		} else {
			allowed = rs.FieldTransitions(t.Entity, c.Field, from)
		}
		if err := rs.CheckTransition(t.Entity, c.Field, from, to); err != nil {
			if len(allowed) == 0 {
				return fmt.Errorf("cannot change %s from %s to %s: %s is a final state", c.Name, from, to, from)
			}
			return fmt.Errorf("cannot change %s from %s to %s: allowed transitions are %s",
				c.Name, from, to, strings.Join(allowed, ", "))
		}
	}
	return nil
}
