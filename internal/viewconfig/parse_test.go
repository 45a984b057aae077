package viewconfig

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/fieldops/internal/gaplog"
)

const accountListJSON = `{
  "hierarchy": {"view": "AccountList"},
  "entity": {"primary": "Account", "related": ["Location"]},
  "fields": [
    {"entity": "Account", "field": "accountName", "label": "Account Name", "type": "string"},
    {"entity": "Account", "field": "status", "label": "Status", "type": "enum", "options": ["Active", "Inactive"]},
    {"entity": "Account", "field": "employeeCount", "type": "int"},
    {"entity": "Location", "field": "city", "label": "City", "type": "string"},
    {"field": "isKeyAccount", "label": "Key Account", "type": "bool"}
  ],
  "layout": {"type": "table", "features": {"search": true}}
}`

func TestParse_FillsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`{"entity":{"primary":"Account"},"fields":[{"field":"accountName","type":"string","label":"Name"}]}`), nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultVersion, cfg.Version)
	assert.Equal(t, UnknownModule, cfg.Hierarchy.Module.Name)
	assert.Equal(t, LayoutTable, cfg.Layout.Type)
	assert.Equal(t, Features{}, cfg.Layout.Features)
	assert.Equal(t, "Account", cfg.Fields[0].Entity)
}

func TestParse_Idempotent(t *testing.T) {
	first, err := Parse([]byte(accountListJSON), nil)
	require.NoError(t, err)

	data, err := json.Marshal(first)
	require.NoError(t, err)
	second, err := Parse(data, nil)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("parse(parse(x)) differs from parse(x) (-first +second):\n%s", diff)
	}
}

func TestParse_DisplayPath(t *testing.T) {
	cfg, err := Parse([]byte(accountListJSON), nil)
	require.NoError(t, err)

	for _, f := range cfg.Fields {
		if f.IsRelated {
			assert.Equal(t, f.Entity+"."+f.Field, f.DisplayPath)
		} else {
			assert.Equal(t, f.Field, f.DisplayPath)
		}
	}
	assert.Equal(t, "Location.city", cfg.Fields[3].DisplayPath)
	assert.True(t, cfg.Fields[3].IsRelated)
	assert.Equal(t, "accountName", cfg.Fields[0].DisplayPath)
}

func TestParse_EnrichesFields(t *testing.T) {
	cfg, err := Parse([]byte(accountListJSON), nil)
	require.NoError(t, err)

	byName := map[string]Field{}
	for _, f := range cfg.Fields {
		byName[f.Field] = f
	}
	assert.True(t, byName["status"].IsSortable)
	assert.True(t, byName["status"].IsFilterable)
	assert.Equal(t, "'Active' | 'Inactive'", byName["status"].TSType)

	assert.Equal(t, TypeNumber, byName["employeeCount"].Type)
	assert.True(t, byName["employeeCount"].IsSortable)
	assert.False(t, byName["employeeCount"].IsFilterable)
	assert.Equal(t, "float64", byName["employeeCount"].GoType)

	assert.Equal(t, TypeBoolean, byName["isKeyAccount"].Type)
	assert.False(t, byName["isKeyAccount"].IsSortable)
	assert.True(t, byName["isKeyAccount"].IsFilterable)
}

func TestParse_RecordsGaps(t *testing.T) {
	gaps := gaplog.New(nil)
	_, err := Parse([]byte(`{
		"entity": {"primary": "WorkOrder"},
		"fields": [
			{"field": "priority"},
			{"field": "status", "type": "enum", "label": "Status"},
			{"entity": "Technician", "field": "name", "label": "Technician", "type": "string"}
		]
	}`), gaps)
	require.NoError(t, err)

	categories := map[string]int{}
	for _, r := range gaps.Records() {
		categories[r.Category]++
	}
	assert.Equal(t, 1, categories[gaplog.CategoryLabel])
	assert.Equal(t, 1, categories[gaplog.CategoryType])
	assert.Equal(t, 1, categories[gaplog.CategoryEnum])
	assert.Equal(t, 1, categories[gaplog.CategoryRelated])
}

func TestParse_RelatedEntityAddedOnce(t *testing.T) {
	cfg, err := Parse([]byte(`{
		"entity": {"primary": "Contact", "related": ["Account", "Account", ""]},
		"fields": [
			{"field": "firstName", "label": "First", "type": "string"},
			{"entity": "Location", "field": "city", "label": "City", "type": "string"}
		]
	}`), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Account", "Location"}, cfg.Entity.Related)
	assert.Equal(t, []string{"Contact", "Account", "Location"}, cfg.EntityOrder())
}

func TestParse_UnknownLayoutFallsBack(t *testing.T) {
	gaps := gaplog.New(nil)
	cfg, err := Parse([]byte(`{"entity":{"primary":"A"},"fields":[{"field":"x","label":"X","type":"string"}],"layout":{"type":"kanban"}}`), gaps)
	require.NoError(t, err)
	assert.Equal(t, LayoutTable, cfg.Layout.Type)
	require.Equal(t, 1, gaps.Len())
	assert.Equal(t, gaplog.CategoryUnknownLayout, gaps.Records()[0].Category)
}

func TestParse_FailsWithoutPrimaryOrFields(t *testing.T) {
	_, err := Parse([]byte(`{"fields":[{"field":"x"}]}`), nil)
	assert.True(t, errors.Is(err, ErrMissingPrimary))

	_, err = Parse([]byte(`{"entity":{"primary":"Account"}}`), nil)
	assert.True(t, errors.Is(err, ErrNoFields))
}

func TestCheck_ReportsEveryMissingKey(t *testing.T) {
	err := Check([]byte(`{"version":"1.0","layout":{"type":"table"}}`))
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)

	paths := violationPaths(cfgErr)
	assert.Contains(t, paths, "entity.primary")
	assert.Contains(t, paths, "fields")
}

func TestCheck_ReportsMissingFieldNames(t *testing.T) {
	err := Check([]byte(`{"entity":{"primary":"Account"},"fields":[{"label":"A"},{"field":"b"},{"type":"string"}]}`))
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)

	paths := violationPaths(cfgErr)
	assert.Contains(t, paths, "fields.0.field")
	assert.Contains(t, paths, "fields.2.field")
	assert.NotContains(t, paths, "fields.1.field")
}

func TestCheck_RejectsUnknownLayoutType(t *testing.T) {
	err := Check([]byte(`{"entity":{"primary":"Account"},"fields":[{"field":"a"}],"layout":{"type":"grid"}}`))
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Error(), "layout.type")
}

func TestCheck_LayoutTypeAgreesWithParse(t *testing.T) {
	data := []byte(`{"entity":{"primary":"Account"},"fields":[{"field":"a","type":"string"}],"layout":{"type":"Table"}}`)
	require.NoError(t, Check(data))

	cfg, err := Parse(data, nil)
	require.NoError(t, err)
	assert.Equal(t, LayoutTable, cfg.Layout.Type)

	err = Check([]byte(`{"entity":{"primary":"Account"},"fields":[{"field":"a"}],"layout":{"type":"grid"}}`))
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, []string{"layout.type"}, violationPaths(cfgErr))
}

func TestCheck_RejectsWrongFieldShape(t *testing.T) {
	err := Check([]byte(`{"entity":{"primary":"Account"},"fields":[{"field":"a","isRelated":"yes"}]}`))
	require.Error(t, err)
}

func TestCheck_AcceptsValidConfig(t *testing.T) {
	assert.NoError(t, Check([]byte(accountListJSON)))
}

func TestCheck_InvalidJSON(t *testing.T) {
	err := Check([]byte(`{"entity":`))
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Len(t, cfgErr.Violations, 1)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "view.json")
	require.NoError(t, os.WriteFile(path, []byte(accountListJSON), 0644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Len(t, cfg.Fields, 5)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"), nil)
	assert.Error(t, err)
}

func violationPaths(err *ConfigurationError) []string {
	out := make([]string, len(err.Violations))
	for i, v := range err.Violations {
		out[i] = v.Path
	}
	return out
}
