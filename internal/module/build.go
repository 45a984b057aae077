package module

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/matthewbaird/fieldops/internal/busm"
	"github.com/matthewbaird/fieldops/internal/gaplog"
	"github.com/matthewbaird/fieldops/internal/naming"
	"github.com/matthewbaird/fieldops/internal/rules"
	"github.com/matthewbaird/fieldops/internal/viewconfig"
)

// maxListColumns bounds the generated list view.
const maxListColumns = 6

// Build merges the phase-filtered fields of entity with its business rules.
// rs may be nil. Every assumption made along the way is recorded on gaps.
func Build(model *busm.Model, rs *rules.RuleSet, entity string, phase int, gaps gaplog.Recorder) (*Definition, error) {
	if gaps == nil {
		gaps = gaplog.Discard
	}
	e, err := model.Entity(entity)
	if err != nil {
		return nil, err
	}
	fields, err := model.FieldsForPhase(entity, phase)
	if err != nil {
		return nil, err
	}
	for _, fn := range []func(string) ([]gaplog.Record, error){model.PhaseGaps, model.TransitionGaps} {
		recs, err := fn(entity)
		if err != nil {
			return nil, err
		}
		for _, r := range recs {
			gaps.Append(r)
		}
	}

	label := e.Label
	if label == "" {
		label = naming.Label(entity)
	}
	def := &Definition{
		Module: Info{
			ID:    naming.ToKebab(plural(entity)),
			Name:  plural(label),
			Phase: phase,
		},
		Entity: EntityDef{Name: entity, Label: label},
		Navigation: Navigation{
			Section: "Operations",
			Label:   plural(label),
			Path:    "/" + naming.ToKebab(plural(entity)),
		},
	}

	ruleSetKnowsEntity := rs != nil && slices.Contains(rs.EntityNames(), entity)
	if !ruleSetKnowsEntity {
		gaps.Append(gaplog.Record{
			Category:     gaplog.CategoryUnknownEntity,
			Entity:       entity,
			Expected:     "a business rule block for the entity",
			Assumption:   "only model-level required flags apply",
			SuggestedFix: "add the entity to the business rules document",
			Impact:       gaplog.ImpactMedium,
		})
	}

	for _, f := range fields {
		fd := FieldDef{
			Name:       f.Name,
			Label:      f.Label,
			Type:       viewconfig.NormalizeType(f.Type),
			Required:   f.Required || rs.IsFieldRequired(entity, f.Name),
			Unique:     rs.IsFieldUnique(entity, f.Name),
			Options:    model.FieldValues(f),
			References: f.References,
			Phase:      f.EffectivePhase(),
		}
		if fd.Label == "" {
			fd.Label = naming.Label(f.Name)
			gaps.Append(gaplog.Record{
				Category:     gaplog.CategoryLabel,
				Entity:       entity,
				Field:        f.Name,
				Assumption:   fmt.Sprintf("label derived from field name: %q", fd.Label),
				SuggestedFix: "add a label to the model",
			})
		}
		def.Entity.Fields = append(def.Entity.Fields, fd)
		if f.References != "" {
			if rf, ok := displayField(model, f.References); ok {
				def.Entity.Related = append(def.Entity.Related, rf)
			}
		}
	}

	if ruleSetKnowsEntity {
		er := rs.ValidationRules(entity)
		for _, req := range er.Required {
			if _, ok := def.Field(req); !ok {
				gaps.Append(gaplog.Record{
					Category:     gaplog.CategoryRequired,
					Entity:       entity,
					Field:        req,
					Expected:     fmt.Sprintf("field in the phase %d model", phase),
					Assumption:   "required rule ignored for this phase",
					SuggestedFix: "add the field to the model or move the rule to a later phase",
					Impact:       gaplog.ImpactHigh,
				})
			}
		}
		for _, field := range slices.Sorted(maps.Keys(er.Patterns)) {
			if _, ok := def.Field(field); !ok {
				gaps.Append(gaplog.Record{
					Category:   gaplog.CategoryPatternMissing,
					Entity:     entity,
					Field:      field,
					Assumption: "pattern rule has no field to apply to",
				})
			}
		}
		def.BusinessRules = BusinessRules{
			Unique:           slices.Clone(er.Unique),
			Patterns:         maps.Clone(er.Patterns),
			StateTransitions: maps.Clone(er.StateTransitions),
			BusinessLogic:    maps.Clone(er.BusinessLogic),
		}
		for _, field := range slices.Sorted(maps.Keys(er.StateTransitions)) {
			if fd, ok := def.Field(field); ok {
				for _, r := range rs.CheckEnumDomain(entity, field, fd.Options) {
					gaps.Append(r)
				}
			}
		}
	}
	if def.BusinessRules.StateTransitions == nil && len(e.StateTransitions) > 0 {
		def.BusinessRules.StateTransitions = maps.Clone(e.StateTransitions)
	}

	def.Views = defaultViews(def)
	return def, nil
}

// displayField picks the field of a referenced entity that names its records:
// the first required string field other than the id.
func displayField(model *busm.Model, entity string) (RelatedField, bool) {
	fields, err := model.FieldsForPhase(entity, busm.DefaultPhase)
	if err != nil {
		return RelatedField{}, false
	}
	for _, f := range fields {
		if f.Name == "id" || viewconfig.NormalizeType(f.Type) != viewconfig.TypeString || !f.Required {
			continue
		}
		label := f.Label
		if label == "" {
			label = naming.Label(f.Name)
		}
		return RelatedField{Entity: entity, Name: f.Name, Label: label, Type: viewconfig.TypeString}, true
	}
	return RelatedField{}, false
}

func defaultViews(def *Definition) []View {
	var listFields, detailFields, formFields []string
	for _, f := range def.Entity.Fields {
		detailFields = append(detailFields, f.Name)
		if f.Name != "id" {
			formFields = append(formFields, f.Name)
		}
		switch {
		case f.Name == "id", f.References != "":
		case f.Type == viewconfig.TypeText, f.Type == viewconfig.TypeJSON:
		case len(listFields) < maxListColumns:
			listFields = append(listFields, f.Name)
		}
	}
	for _, r := range def.Entity.Related {
		path := r.Entity + "." + r.Name
		detailFields = append(detailFields, path)
		if len(listFields) < maxListColumns {
			listFields = append(listFields, path)
		}
	}
	return []View{
		{
			ID:     "list",
			Title:  def.Module.Name,
			Layout: viewconfig.LayoutTable,
			Fields: listFields,
			Features: viewconfig.Features{
				Search: true, Filter: true, Sort: true, Pagination: true, Selection: true,
			},
		},
		{ID: "detail", Title: def.Entity.Label + " Details", Layout: viewconfig.LayoutDetail, Fields: detailFields},
		{ID: "form", Title: "Edit " + def.Entity.Label, Layout: viewconfig.LayoutForm, Fields: formFields},
	}
}

// ToViewConfig returns the raw view configuration of view viewID, ready for
// viewconfig.Parse. An empty viewID selects the first view.
func ToViewConfig(def *Definition, viewID string) ([]byte, error) {
	v, err := def.View(viewID)
	if err != nil {
		return nil, err
	}
	cfg := viewconfig.Config{
		Version: viewconfig.DefaultVersion,
		Hierarchy: viewconfig.Hierarchy{
			Module: viewconfig.ModuleRef{ID: def.Module.ID, Name: def.Module.Name},
			View:   v.Title,
		},
		Entity: viewconfig.EntityRef{Primary: def.Entity.Name},
		Layout: viewconfig.Layout{Type: v.Layout, Features: v.Features},
	}
	for _, name := range v.Fields {
		if entity, field, ok := strings.Cut(name, "."); ok {
			r, found := def.related(entity, field)
			if !found {
				return nil, fmt.Errorf("view %s: unknown related field %q", v.ID, name)
			}
			if !slices.Contains(cfg.Entity.Related, entity) {
				cfg.Entity.Related = append(cfg.Entity.Related, entity)
			}
			cfg.Fields = append(cfg.Fields, viewconfig.Field{Entity: entity, Field: field, Label: r.Label, Type: r.Type})
			continue
		}
		f, found := def.Field(name)
		if !found {
			return nil, fmt.Errorf("view %s: unknown field %q", v.ID, name)
		}
		cfg.Fields = append(cfg.Fields, viewconfig.Field{
			Entity:   def.Entity.Name,
			Field:    f.Name,
			Label:    f.Label,
			Type:     f.Type,
			Required: f.Required,
			Options:  f.Options,
		})
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding view configuration: %w", err)
	}
	return data, nil
}
