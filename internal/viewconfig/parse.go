package viewconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/matthewbaird/fieldops/internal/gaplog"
	"github.com/matthewbaird/fieldops/internal/naming"
)

var (
	// ErrMissingPrimary is returned by Parse when entity.primary is absent.
	ErrMissingPrimary = errors.New("view configuration has no primary entity")
	// ErrNoFields is returned by Parse when the field list is absent or empty.
	ErrNoFields = errors.New("view configuration has no fields")
)

// Load reads, checks and parses a view definition file.
func Load(path string, gaps gaplog.Recorder) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading view configuration: %w", err)
	}
	if err := Check(data); err != nil {
		return nil, err
	}
	return Parse(data, gaps)
}

// Parse decodes a raw view definition and returns its canonical form. It
// fails only when the primary entity or the field list is absent; callers
// wanting the full list of problems run Check first. Gaps are recorded for
// every default that stands in for business information.
func Parse(data []byte, gaps gaplog.Recorder) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decoding view configuration: %w", err)
	}
	if err := Normalize(&cfg, gaps); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize fills defaults in place and enriches every field. Normalizing an
// already canonical configuration leaves it unchanged.
func Normalize(cfg *Config, gaps gaplog.Recorder) error {
	if gaps == nil {
		gaps = gaplog.Discard
	}
	cfg.Entity.Primary = strings.TrimSpace(cfg.Entity.Primary)
	if cfg.Entity.Primary == "" {
		return ErrMissingPrimary
	}
	if len(cfg.Fields) == 0 {
		return ErrNoFields
	}
	primary := cfg.Entity.Primary

	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}
	if strings.TrimSpace(cfg.Hierarchy.Module.Name) == "" {
		cfg.Hierarchy.Module.Name = UnknownModule
	}

	if cfg.Layout.Type == "" {
		cfg.Layout.Type = LayoutTable
	}
	cfg.Layout.Type = LayoutType(strings.ToLower(string(cfg.Layout.Type)))
	if !cfg.Layout.Type.Valid() {
		gaps.Append(gaplog.Record{
			Category:     gaplog.CategoryUnknownLayout,
			Entity:       primary,
			Expected:     "one of table, list, detail, form",
			Assumption:   fmt.Sprintf("layout %q rendered as table", cfg.Layout.Type),
			SuggestedFix: "set layout.type to a supported layout",
			Impact:       gaplog.ImpactMedium,
		})
		cfg.Layout.Type = LayoutTable
	}

	related := make([]string, 0, len(cfg.Entity.Related))
	seen := map[string]bool{primary: true}
	for _, r := range cfg.Entity.Related {
		r = strings.TrimSpace(r)
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		related = append(related, r)
	}

	for i := range cfg.Fields {
		f := &cfg.Fields[i]
		f.Field = strings.TrimSpace(f.Field)
		f.Entity = strings.TrimSpace(f.Entity)
		if f.Entity == "" {
			f.Entity = primary
		}
		if !seen[f.Entity] {
			seen[f.Entity] = true
			related = append(related, f.Entity)
			gaps.Append(gaplog.Record{
				Category:     gaplog.CategoryRelated,
				Entity:       primary,
				Field:        f.Entity + "." + f.Field,
				Assumption:   fmt.Sprintf("%s added to related entities", f.Entity),
				SuggestedFix: "list the entity under entity.related",
			})
		}
		if f.Label == "" {
			f.Label = naming.Label(f.Field)
			gaps.Append(gaplog.Record{
				Category:     gaplog.CategoryLabel,
				Entity:       f.Entity,
				Field:        f.Field,
				Assumption:   fmt.Sprintf("label derived from field name: %q", f.Label),
				SuggestedFix: "provide a business label",
			})
		}
		if strings.TrimSpace(f.Type) == "" {
			f.Type = TypeString
			gaps.Append(gaplog.Record{
				Category:     gaplog.CategoryType,
				Entity:       f.Entity,
				Field:        f.Field,
				Expected:     "a field type",
				Assumption:   "rendered as string",
				SuggestedFix: "declare the field type",
				Impact:       gaplog.ImpactMedium,
			})
		}
		f.Type = NormalizeType(f.Type)
		if len(f.Options) == 0 {
			f.Options = nil
		}
		if !KnownType(f.Type) {
			gaps.Append(gaplog.Record{
				Category:   gaplog.CategoryType,
				Entity:     f.Entity,
				Field:      f.Field,
				Expected:   "a supported field type",
				Assumption: fmt.Sprintf("type %q rendered as plain text", f.Type),
				Impact:     gaplog.ImpactLow,
			})
		}
		if f.Type == TypeEnum && len(f.Options) == 0 {
			gaps.Append(gaplog.Record{
				Category:     gaplog.CategoryEnum,
				Entity:       f.Entity,
				Field:        f.Field,
				Expected:     "enum values",
				Assumption:   "sample data uses placeholder states",
				SuggestedFix: "declare options for the enum field",
			})
		}

		f.IsRelated = f.Entity != primary
		f.DisplayPath = DisplayPath(f.Entity, f.Field, f.IsRelated)
		*f = EnrichField(*f)
	}
	cfg.Entity.Related = related
	if len(cfg.Entity.Related) == 0 {
		cfg.Entity.Related = nil
	}
	return nil
}

// DisplayPath returns "entity.field" for related fields and "field" otherwise.
func DisplayPath(entity, field string, related bool) string {
	if related {
		return entity + "." + field
	}
	return field
}
