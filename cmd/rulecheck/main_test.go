package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/fieldops/internal/gaplog"
	"github.com/matthewbaird/fieldops/internal/rules"
)

var (
	modelPath = filepath.Join("..", "..", "internal", "busm", "testdata", "field_service.json")
	rulesPath = filepath.Join("..", "..", "internal", "rules", "testdata", "field_service.yaml")
)

func run(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRulecheck_AgainstModel(t *testing.T) {
	gapsPath := filepath.Join(t.TempDir(), "gaps.json")
	out, err := run(rulesPath, gapsPath, "--busm", modelPath)
	require.NoError(t, err)
	assert.Contains(t, out, "high impact")

	data, err := os.ReadFile(gapsPath)
	require.NoError(t, err)
	var recs []gaplog.Record
	require.NoError(t, json.Unmarshal(data, &recs))

	var onHold bool
	for _, r := range recs {
		if r.Category == gaplog.CategoryTransition && r.Entity == "WorkOrder" && strings.Contains(r.Assumption, "OnHold") {
			onHold = true
		}
	}
	assert.True(t, onHold, "expected a gap for the undeclared OnHold state")
}

func TestRulecheck_StructuralError(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("entities:\n  Account:\n    required: ['']\n"), 0644))

	_, err := run(bad, filepath.Join(dir, "gaps.json"))
	var se *rules.StructuralError
	require.ErrorAs(t, err, &se)
	assert.GreaterOrEqual(t, len(se.Problems), 2)
}
