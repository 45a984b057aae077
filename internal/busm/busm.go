// Package busm reads the business entity model (BUSM): the JSON document
// that declares every entity, its fields, the phase each field ships in and
// the named enumerations fields draw their values from.
package busm

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/matthewbaird/fieldops/internal/gaplog"
)

// ErrEntityNotFound is returned when a requested entity is not in the model.
var ErrEntityNotFound = errors.New("entity not found in model")

// DefaultPhase is assumed for fields that do not declare one.
const DefaultPhase = 1

// Model is a loaded entity model.
type Model struct {
	Version  string              `json:"version"`
	Entities map[string]*Entity  `json:"entities"`
	Enums    map[string][]string `json:"enums,omitempty"`
}

// Entity is one entity of the model.
type Entity struct {
	Name             string                         `json:"-"`
	Label            string                         `json:"label,omitempty"`
	Fields           []Field                        `json:"fields"`
	StateTransitions map[string]map[string][]string `json:"stateTransitions,omitempty"`
}

// Field is a declared entity field.
type Field struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Label      string   `json:"label,omitempty"`
	Required   bool     `json:"required,omitempty"`
	Phase      int      `json:"phase,omitempty"`
	Enum       string   `json:"enum,omitempty"`
	Values     []string `json:"values,omitempty"`
	References string   `json:"references,omitempty"`
}

// EffectivePhase returns the field's phase, DefaultPhase when unset.
func (f Field) EffectivePhase() int {
	if f.Phase <= 0 {
		return DefaultPhase
	}
	return f.Phase
}

// Load reads and parses the model at path.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading entity model: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a model document.
func Parse(data []byte) (*Model, error) {
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding entity model: %w", err)
	}
	var problems []string
	for _, name := range m.EntityNames() {
		e := m.Entities[name]
		if e == nil {
			e = &Entity{}
			m.Entities[name] = e
		}
		e.Name = name
		for i, f := range e.Fields {
			if strings.TrimSpace(f.Name) == "" {
				problems = append(problems, fmt.Sprintf("entities.%s.fields.%d: name is required", name, i))
			}
		}
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid entity model: %s", strings.Join(problems, "; "))
	}
	return &m, nil
}

// EntityNames returns the model's entity names, sorted.
func (m *Model) EntityNames() []string {
	names := make([]string, 0, len(m.Entities))
	for n := range m.Entities {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Entity returns the named entity.
func (m *Model) Entity(name string) (*Entity, error) {
	e, ok := m.Entities[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntityNotFound, name)
	}
	return e, nil
}

// Fields returns every declared field of entity. An entity without fields
// yields an empty slice and no error.
func (m *Model) Fields(entity string) ([]Field, error) {
	e, err := m.Entity(entity)
	if err != nil {
		return nil, err
	}
	return slices.Clone(e.Fields), nil
}

// FieldsForPhase returns the fields of entity that ship in phase or earlier,
// in declaration order.
func (m *Model) FieldsForPhase(entity string, phase int) ([]Field, error) {
	e, err := m.Entity(entity)
	if err != nil {
		return nil, err
	}
	var out []Field
	for _, f := range e.Fields {
		if f.EffectivePhase() <= phase {
			out = append(out, f)
		}
	}
	return out, nil
}

// EnumValues resolves a named enumeration.
func (m *Model) EnumValues(name string) ([]string, bool) {
	v, ok := m.Enums[name]
	return slices.Clone(v), ok
}

// FieldValues returns the enum domain of f: its inline values, or the values
// of the enumeration it names.
func (m *Model) FieldValues(f Field) []string {
	if len(f.Values) > 0 {
		return slices.Clone(f.Values)
	}
	if f.Enum == "" {
		return nil
	}
	v, _ := m.EnumValues(f.Enum)
	return v
}

// PhaseGaps returns one gap record per field of entity without a phase.
func (m *Model) PhaseGaps(entity string) ([]gaplog.Record, error) {
	e, err := m.Entity(entity)
	if err != nil {
		return nil, err
	}
	var out []gaplog.Record
	for _, f := range e.Fields {
		if f.Phase > 0 {
			continue
		}
		out = append(out, gaplog.Record{
			Category:     gaplog.CategoryPhase,
			Entity:       entity,
			Field:        f.Name,
			Expected:     "a phase number",
			Assumption:   fmt.Sprintf("field ships in phase %d", DefaultPhase),
			SuggestedFix: "tag the field with its phase",
		})
	}
	return out, nil
}

// TransitionGaps checks every transition table of entity against the enum
// domain of its field. States outside the domain are reported as gap records;
// so are enum fields with a table but no resolvable domain.
func (m *Model) TransitionGaps(entity string) ([]gaplog.Record, error) {
	e, err := m.Entity(entity)
	if err != nil {
		return nil, err
	}
	var out []gaplog.Record
	for _, field := range sortedKeys(e.StateTransitions) {
		graph := e.StateTransitions[field]
		var domain []string
		if i := slices.IndexFunc(e.Fields, func(f Field) bool { return f.Name == field }); i >= 0 {
			domain = m.FieldValues(e.Fields[i])
		}
		if len(domain) == 0 {
			out = append(out, gaplog.Record{
				Category:     gaplog.CategoryEnum,
				Entity:       entity,
				Field:        field,
				Expected:     "enum values for a field with a transition table",
				Assumption:   "transition states taken as the domain",
				SuggestedFix: "declare the field's enum values",
				Impact:       gaplog.ImpactMedium,
			})
			continue
		}
		seen := map[string]bool{}
		for _, state := range sortedKeys(graph) {
			for _, s := range append([]string{state}, graph[state]...) {
				if seen[s] || slices.Contains(domain, s) {
					continue
				}
				seen[s] = true
				out = append(out, gaplog.Record{
					Category:     gaplog.CategoryTransition,
					Entity:       entity,
					Field:        field,
					Expected:     "one of " + strings.Join(domain, ", "),
					Assumption:   fmt.Sprintf("state %q is not a declared %s value", s, field),
					SuggestedFix: fmt.Sprintf("add %q to the enum or remove it from the transition table", s),
					Impact:       gaplog.ImpactHigh,
				})
			}
		}
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
