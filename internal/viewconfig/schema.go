package viewconfig

import (
	"encoding/json"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
)

// Violation is one problem found by Check.
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ConfigurationError lists every violation found in a view definition.
type ConfigurationError struct {
	Violations []Violation
}

func (e *ConfigurationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		if v.Path == "" {
			parts[i] = v.Message
			continue
		}
		parts[i] = v.Path + ": " + v.Message
	}
	return fmt.Sprintf("invalid view configuration (%d problems): %s", len(e.Violations), strings.Join(parts, "; "))
}

// shapeSchema constrains the types of the keys a view definition may carry.
// Presence of required keys is checked separately so that every missing key
// is reported, not only the first incomplete value.
const shapeSchema = `
#Field: {
	entity?:    string
	field?:     string
	label?:     string
	type?:      string
	isRelated?: bool
	required?:  bool
	options?: [...string]
	...
}

#ViewConfig: {
	version?: string
	hierarchy?: {
		module?: {
			id?:   string
			name?: string
			...
		}
		submodule?: string
		view?:      string
		...
	}
	entity?: {
		primary?: string
		related?: [...string]
		...
	}
	fields?: [...#Field]
	layout?: {
		type?: string & =~"^(?i)(table|list|detail|form)$"
		features?: {[string]: bool}
		...
	}
	...
}
`

// Check validates a raw view definition and reports every problem in one
// pass. It returns nil or a *ConfigurationError.
func Check(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return &ConfigurationError{Violations: []Violation{{Message: "invalid JSON: " + err.Error()}}}
	}

	violations := checkRequired(raw)
	violations = append(violations, checkShape(data)...)
	if len(violations) == 0 {
		return nil
	}
	return &ConfigurationError{Violations: dedupViolations(violations)}
}

func checkRequired(raw map[string]any) []Violation {
	var out []Violation

	entity, ok := raw["entity"].(map[string]any)
	if !ok {
		out = append(out, Violation{Path: "entity.primary", Message: "required key is missing"})
	} else if s, _ := entity["primary"].(string); strings.TrimSpace(s) == "" {
		out = append(out, Violation{Path: "entity.primary", Message: "required key is missing"})
	}

	fields, ok := raw["fields"].([]any)
	switch {
	case !ok:
		out = append(out, Violation{Path: "fields", Message: "required key is missing"})
	case len(fields) == 0:
		out = append(out, Violation{Path: "fields", Message: "must contain at least one field"})
	}
	for i, f := range fields {
		fm, ok := f.(map[string]any)
		if !ok {
			out = append(out, Violation{Path: fmt.Sprintf("fields.%d", i), Message: "must be an object"})
			continue
		}
		if s, _ := fm["field"].(string); strings.TrimSpace(s) == "" {
			out = append(out, Violation{Path: fmt.Sprintf("fields.%d.field", i), Message: "required key is missing"})
		}
	}
	return out
}

func checkShape(data []byte) []Violation {
	ctx := cuecontext.New()
	schema := ctx.CompileString(shapeSchema)
	if schema.Err() != nil {
		return []Violation{{Message: "compiling shape schema: " + schema.Err().Error()}}
	}
	def := schema.LookupPath(cue.ParsePath("#ViewConfig"))

	expr, err := cuejson.Extract("config.json", data)
	if err != nil {
		return []Violation{{Message: "reading configuration: " + err.Error()}}
	}
	val := ctx.BuildExpr(expr)

	err = def.Unify(val).Validate()
	if err == nil {
		return nil
	}
	var out []Violation
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		out = append(out, Violation{
			Path:    cuePath(e.Path()),
			Message: fmt.Sprintf(format, args...),
		})
	}
	return out
}

func cuePath(p []string) string {
	if len(p) > 0 && strings.HasPrefix(p[0], "#") {
		p = p[1:]
	}
	return strings.Join(p, ".")
}

func dedupViolations(vs []Violation) []Violation {
	seen := make(map[Violation]bool, len(vs))
	out := vs[:0]
	for _, v := range vs {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
