// Package rules reads business-rule documents and answers validation,
// transition and business-logic queries against them.
//
// A document names its module and carries one block per entity:
//
//	module: accounts
//	version: "1.0"
//	entities:
//	  Account:
//	    required: [accountName, status]
//	    unique: [accountName]
//	    patterns:
//	      email: '^[^@\s]+@[^@\s]+$'
//	    stateTransitions:
//	      status:
//	        Prospect: [Active]
//	        Active: [Suspended, Closed]
//	        Suspended: [Active, Closed]
//	        Closed: []
//	    businessLogic:
//	      onCreate: [assignAccountNumber]
//	    messages:
//	      accountName:
//	        required: Every account needs a name.
//
// Structural problems fail the whole document. Queries about entities, fields
// or states the document does not mention return empty results.
package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// StatusField is the field AllowedTransitions consults.
const StatusField = "status"

// RuleSet is a parsed business-rule document.
type RuleSet struct {
	Module   string                  `yaml:"module"`
	Version  string                  `yaml:"version,omitempty"`
	Entities map[string]*EntityRules `yaml:"entities"`
}

// EntityRules holds the rules of one entity.
type EntityRules struct {
	Required         []string                       `yaml:"required,omitempty"`
	Unique           []string                       `yaml:"unique,omitempty"`
	Patterns         map[string]string              `yaml:"patterns,omitempty"`
	StateTransitions map[string]map[string][]string `yaml:"stateTransitions,omitempty"`
	BusinessLogic    map[string][]string            `yaml:"businessLogic,omitempty"`
	Messages         map[string]map[string]string   `yaml:"messages,omitempty"`

	compiled map[string]*regexp.Regexp
}

// StructuralError lists every structural problem found in a document.
type StructuralError struct {
	Problems []string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("invalid business rules (%d problems): %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

// Load reads and parses the rule document at path.
func Load(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading business rules: %w", err)
	}
	rs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rs, nil
}

// Parse decodes a rule document. Unknown keys are ignored.
func Parse(data []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&rs); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &StructuralError{Problems: []string{"document is empty"}}
		}
		return nil, fmt.Errorf("decoding business rules: %w", err)
	}
	if err := rs.check(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// check validates the document structure and compiles patterns.
func (rs *RuleSet) check() error {
	var problems []string
	if strings.TrimSpace(rs.Module) == "" {
		problems = append(problems, "module: name is required")
	}
	if len(rs.Entities) == 0 {
		problems = append(problems, "entities: at least one entity block is required")
	}
	for _, name := range rs.EntityNames() {
		er := rs.Entities[name]
		path := "entities." + name
		if er == nil {
			problems = append(problems, path+": entity block is empty")
			continue
		}
		for i, f := range er.Required {
			if strings.TrimSpace(f) == "" {
				problems = append(problems, fmt.Sprintf("%s.required.%d: field name is empty", path, i))
			}
		}
		er.compiled = make(map[string]*regexp.Regexp, len(er.Patterns))
		for _, field := range sortedKeys(er.Patterns) {
			re, err := regexp.Compile(er.Patterns[field])
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s.patterns.%s: %v", path, field, err))
				continue
			}
			er.compiled[field] = re
		}
		for _, field := range sortedKeys(er.StateTransitions) {
			graph := er.StateTransitions[field]
			if len(graph) == 0 {
				problems = append(problems, fmt.Sprintf("%s.stateTransitions.%s: no states declared", path, field))
				continue
			}
			for _, state := range sortedKeys(graph) {
				for _, target := range graph[state] {
					if _, ok := graph[target]; !ok {
						problems = append(problems, fmt.Sprintf("%s.stateTransitions.%s.%s: target %q is not a declared state", path, field, state, target))
					}
				}
			}
		}
	}
	if len(problems) > 0 {
		return &StructuralError{Problems: problems}
	}
	return nil
}

// EntityNames returns the entity names in sorted order.
func (rs *RuleSet) EntityNames() []string {
	return sortedKeys(rs.Entities)
}

func (rs *RuleSet) entity(name string) *EntityRules {
	if rs == nil {
		return nil
	}
	return rs.Entities[name]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
