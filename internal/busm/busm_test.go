package busm

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/fieldops/internal/gaplog"
)

func loadFixture(t *testing.T) *Model {
	t.Helper()
	m, err := Load(filepath.Join("testdata", "field_service.json"))
	require.NoError(t, err)
	return m
}

func names(fs []Field) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Name
	}
	return out
}

func TestLoad(t *testing.T) {
	m := loadFixture(t)
	assert.Equal(t, "2.3", m.Version)
	assert.Equal(t, []string{"Account", "Contact", "Location", "Technician", "WorkOrder"}, m.EntityNames())

	e, err := m.Entity("WorkOrder")
	require.NoError(t, err)
	assert.Equal(t, "WorkOrder", e.Name)
}

func TestFields(t *testing.T) {
	m := loadFixture(t)
	fs, err := m.Fields("Account")
	require.NoError(t, err)
	assert.Len(t, fs, 9)

	fs, err = m.Fields("Technician")
	require.NoError(t, err, "an entity with no fields is not an error")
	assert.Empty(t, fs)

	_, err = m.Fields("Invoice")
	assert.True(t, errors.Is(err, ErrEntityNotFound))
}

func TestFieldsForPhase(t *testing.T) {
	m := loadFixture(t)

	p1, err := m.FieldsForPhase("Account", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "accountName", "status", "email", "notes"}, names(p1))

	p3, err := m.FieldsForPhase("Account", 3)
	require.NoError(t, err)
	assert.Len(t, p3, 9)

	_, err = m.FieldsForPhase("Invoice", 1)
	assert.True(t, errors.Is(err, ErrEntityNotFound))
}

func TestFieldsForPhase_Monotonic(t *testing.T) {
	m := loadFixture(t)
	for _, entity := range m.EntityNames() {
		prev, err := m.FieldsForPhase(entity, 0)
		require.NoError(t, err)
		for phase := 1; phase <= 4; phase++ {
			cur, err := m.FieldsForPhase(entity, phase)
			require.NoError(t, err)
			assert.Subset(t, names(cur), names(prev), "%s phase %d", entity, phase)
			prev = cur
		}
	}
}

func TestEnumValues(t *testing.T) {
	m := loadFixture(t)
	v, ok := m.EnumValues("AccountStatus")
	require.True(t, ok)
	assert.Equal(t, []string{"Prospect", "Active", "Suspended", "Closed"}, v)

	_, ok = m.EnumValues("Missing")
	assert.False(t, ok)

	fs, err := m.Fields("WorkOrder")
	require.NoError(t, err)
	assert.Equal(t, []string{"Low", "Normal", "High", "Urgent"}, m.FieldValues(fs[4]))
	assert.Equal(t, []string{"New", "Scheduled", "InProgress", "Completed", "Cancelled"}, m.FieldValues(fs[3]))
	assert.Nil(t, m.FieldValues(fs[2]))
}

func TestTransitionGaps(t *testing.T) {
	m := loadFixture(t)

	gaps, err := m.TransitionGaps("WorkOrder")
	require.NoError(t, err)
	require.Len(t, gaps, 1)
	assert.Equal(t, gaplog.CategoryTransition, gaps[0].Category)
	assert.Equal(t, "status", gaps[0].Field)
	assert.Contains(t, gaps[0].Assumption, `"OnHold"`)

	gaps, err = m.TransitionGaps("Account")
	require.NoError(t, err)
	assert.Empty(t, gaps)
}

func TestTransitionGaps_NoDomain(t *testing.T) {
	m, err := Parse([]byte(`{"entities":{"Job":{"fields":[{"name":"stage","type":"enum"}],"stateTransitions":{"stage":{"a":["b"],"b":[]}}}}}`))
	require.NoError(t, err)

	gaps, err := m.TransitionGaps("Job")
	require.NoError(t, err)
	require.Len(t, gaps, 1)
	assert.Equal(t, gaplog.CategoryEnum, gaps[0].Category)
}

func TestPhaseGaps(t *testing.T) {
	m := loadFixture(t)
	gaps, err := m.PhaseGaps("Account")
	require.NoError(t, err)
	require.Len(t, gaps, 1)
	assert.Equal(t, "notes", gaps[0].Field)
	assert.Equal(t, gaplog.CategoryPhase, gaps[0].Category)
}

func TestParse_RejectsUnnamedFields(t *testing.T) {
	_, err := Parse([]byte(`{"entities":{"A":{"fields":[{"type":"string"}]}}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entities.A.fields.0")

	_, err = Parse([]byte(`{`))
	assert.Error(t, err)
}
