// Package module builds module definitions from the entity model and the
// business rules, and stores them as YAML.
package module

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-openapi/inflect"
	"gopkg.in/yaml.v3"

	"github.com/matthewbaird/fieldops/internal/naming"
	"github.com/matthewbaird/fieldops/internal/viewconfig"
)

var (
	// ErrExists is returned by Write when the target file already exists.
	ErrExists = errors.New("module definition already exists")
	// ErrViewNotFound is returned by ToViewConfig for an unknown view id.
	ErrViewNotFound = errors.New("view not found in module definition")
)

// Definition is a generated module definition.
type Definition struct {
	Module        Info          `yaml:"module"`
	Entity        EntityDef     `yaml:"entity"`
	Views         []View        `yaml:"views"`
	BusinessRules BusinessRules `yaml:"businessRules"`
	Navigation    Navigation    `yaml:"navigation"`
}

// Info identifies the module.
type Info struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Phase int    `yaml:"phase"`
}

// EntityDef describes the module's entity.
type EntityDef struct {
	Name    string         `yaml:"name"`
	Label   string         `yaml:"label"`
	Fields  []FieldDef     `yaml:"fields"`
	Related []RelatedField `yaml:"related,omitempty"`
}

// FieldDef is a field of the module's entity.
type FieldDef struct {
	Name       string   `yaml:"name"`
	Label      string   `yaml:"label"`
	Type       string   `yaml:"type"`
	Required   bool     `yaml:"required,omitempty"`
	Unique     bool     `yaml:"unique,omitempty"`
	Options    []string `yaml:"options,omitempty"`
	References string   `yaml:"references,omitempty"`
	Phase      int      `yaml:"phase"`
}

// RelatedField is a field of a referenced entity shown alongside the entity.
type RelatedField struct {
	Entity string `yaml:"entity"`
	Name   string `yaml:"name"`
	Label  string `yaml:"label"`
	Type   string `yaml:"type"`
}

// View describes one generated view. Field entries name entity fields, or
// related fields as "Entity.field".
type View struct {
	ID       string                `yaml:"id"`
	Title    string                `yaml:"title"`
	Layout   viewconfig.LayoutType `yaml:"layout"`
	Fields   []string              `yaml:"fields"`
	Features viewconfig.Features   `yaml:"features"`
}

// BusinessRules carries the entity's rules into the definition.
type BusinessRules struct {
	Unique           []string                       `yaml:"unique,omitempty"`
	Patterns         map[string]string              `yaml:"patterns,omitempty"`
	StateTransitions map[string]map[string][]string `yaml:"stateTransitions,omitempty"`
	BusinessLogic    map[string][]string            `yaml:"businessLogic,omitempty"`
}

// Navigation places the module in the application menu.
type Navigation struct {
	Section string `yaml:"section"`
	Label   string `yaml:"label"`
	Path    string `yaml:"path"`
}

// FileName returns the file name of the definition for entity at phase.
func FileName(entity string, phase int) string {
	return fmt.Sprintf("%s.phase%d.yaml", naming.ToKebab(entity), phase)
}

// Write stores def at path as YAML. Existing files are left untouched and
// ErrExists is returned unless overwrite is set.
func Write(path string, def *Definition, overwrite bool) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(def); err != nil {
		return fmt.Errorf("encoding module definition: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding module definition: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
		return fmt.Errorf("opening %s: %w", path, err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// Load reads a definition written by Write.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading module definition: %w", err)
	}
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("decoding module definition %s: %w", path, err)
	}
	if def.Entity.Name == "" {
		return nil, fmt.Errorf("module definition %s: entity.name is required", path)
	}
	return &def, nil
}

// View returns the view with the given id. An empty id selects the first view.
func (d *Definition) View(id string) (View, error) {
	for _, v := range d.Views {
		if id == "" || v.ID == id {
			return v, nil
		}
	}
	return View{}, fmt.Errorf("%w: %q", ErrViewNotFound, id)
}

// Field returns the entity field with the given name.
func (d *Definition) Field(name string) (FieldDef, bool) {
	for _, f := range d.Entity.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}

func (d *Definition) related(entity, name string) (RelatedField, bool) {
	for _, r := range d.Entity.Related {
		if r.Entity == entity && r.Name == name {
			return r, true
		}
	}
	return RelatedField{}, false
}

// plural pluralizes the last word of s. The inflection rules match
// lower-case suffixes, so s is matched lower-cased and keeps its own casing
// up to the inflected tail: "Status" → "Statuses", "Work Order" → "Work Orders".
func plural(s string) string {
	lower := strings.ToLower(s)
	if len(lower) != len(s) {
		return inflect.Pluralize(s)
	}
	p := inflect.Pluralize(lower)
	n := 0
	for n < len(lower) && n < len(p) && lower[n] == p[n] {
		n++
	}
	return s[:n] + p[n:]
}
