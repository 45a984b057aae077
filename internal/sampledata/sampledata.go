// Package sampledata produces deterministic synthetic rows for preview
// rendering. Values depend only on the field type, the field path and the
// row index, so the same configuration always yields the same rows.
package sampledata

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/matthewbaird/fieldops/internal/viewconfig"
)

// DefaultRows is the number of rows synthesized when the caller asks for none.
const DefaultRows = 5

// Row maps a field display path to its value. A nil value is a null.
type Row map[string]any

// Epoch anchors generated dates.
var Epoch = time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC)

// namespace seeds the deterministic UUIDs.
var namespace = uuid.MustParse("6f1c3c1e-4f55-4c38-9d53-7b0c1f6f2a10")

var placeholderStates = []string{"Active", "Inactive", "Pending"}

// Rows returns n rows for cfg. n <= 0 selects DefaultRows.
func Rows(cfg *viewconfig.Config, n int) []Row {
	if n <= 0 {
		n = DefaultRows
	}
	rows := make([]Row, n)
	for i := range rows {
		row := make(Row, len(cfg.Fields))
		for _, f := range cfg.Fields {
			row[f.DisplayPath] = Value(f, i)
		}
		rows[i] = row
	}
	return rows
}

// Value returns the sample value of f for row i. Optional fields are null on
// every fourth row.
func Value(f viewconfig.Field, i int) any {
	if !f.Required && i%4 == 3 {
		return nil
	}
	switch f.Type {
	case viewconfig.TypeNumber:
		return float64((i + 1) * 10)
	case viewconfig.TypeCurrency:
		return decimal.NewFromInt(int64(1250 * (i + 1))).Shift(-2).StringFixed(2)
	case viewconfig.TypeDate:
		return Epoch.AddDate(0, 0, i*7).Format("2006-01-02")
	case viewconfig.TypeDateTime:
		return Epoch.Add(time.Duration(i) * 26 * time.Hour).Format(time.RFC3339)
	case viewconfig.TypeEnum:
		opts := f.Options
		if len(opts) == 0 {
			opts = placeholderStates
		}
		return opts[i%len(opts)]
	case viewconfig.TypeBoolean:
		return i%2 == 0
	case viewconfig.TypeUUID:
		return uuid.NewSHA1(namespace, []byte(fmt.Sprintf("%s#%d", f.DisplayPath, i))).String()
	case viewconfig.TypeEmail:
		return fmt.Sprintf("%s%d@example.com", slug(f.Entity), i+1)
	case viewconfig.TypePhone:
		return fmt.Sprintf("(555) 010-%04d", 1000+i*37)
	case viewconfig.TypeText:
		return fmt.Sprintf("Notes for %s %d.", strings.ToLower(f.Label), i+1)
	case viewconfig.TypeJSON:
		return map[string]any{"index": i + 1}
	default:
		return fmt.Sprintf("%s %d", f.Label, i+1)
	}
}

func slug(s string) string {
	if s == "" {
		return "user"
	}
	return strings.ToLower(strings.ReplaceAll(s, " ", ""))
}
