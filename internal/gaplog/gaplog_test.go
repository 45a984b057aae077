package gaplog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLog_AppendFillsDefaults(t *testing.T) {
	l := New(nil)
	l.Append(Record{Category: CategoryLabel, Field: "accountName"})

	recs := l.Records()
	require.Len(t, recs, 1)
	assert.NotEmpty(t, recs[0].ID)
	assert.Equal(t, ImpactLow, recs[0].Impact)
	assert.False(t, recs[0].RecordedAt.IsZero())
}

func TestLog_RecordsIsACopy(t *testing.T) {
	l := New(nil)
	l.Append(Record{Category: CategoryType, Field: "status", Impact: ImpactMedium})

	recs := l.Records()
	recs[0].Field = "mutated"

	assert.Equal(t, 1, l.Len())
	assert.Equal(t, "status", l.Records()[0].Field)
	assert.Equal(t, 1, l.Count(ImpactMedium))
	assert.Equal(t, 0, l.Count(ImpactHigh))
}

func TestLog_LogsEachGap(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	l := New(zap.New(core))

	l.Append(Record{Category: CategoryEnum, Entity: "Account", Field: "status", Impact: ImpactHigh})

	entries := logs.FilterMessage("gap recorded").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, CategoryEnum, fields["category"])
	assert.Equal(t, "Account", fields["entity"])
	assert.Equal(t, "high", fields["impact"])
}

func TestLog_WriteJSON(t *testing.T) {
	l := New(nil)
	l.Append(Record{Category: CategoryLabel, Field: "a"})
	l.Append(Record{Category: CategoryType, Field: "b", SuggestedFix: "declare a type"})

	path := filepath.Join(t.TempDir(), "gaps.json")
	require.NoError(t, l.WriteJSON(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []Record
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Field)
	assert.Equal(t, "declare a type", got[1].SuggestedFix)
}

func TestDiscard(t *testing.T) {
	Discard.Append(Record{Category: "ignored"})
}
