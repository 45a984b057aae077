package layout

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/matthewbaird/fieldops/internal/viewconfig"
)

// FormatPolicy controls how nulls and booleans are displayed.
type FormatPolicy struct {
	Null  string
	True  string
	False string
}

// TableFormat is the default policy of the table generator.
var TableFormat = FormatPolicy{Null: "—", True: "✓", False: "✗"}

// TextFormat is the default policy of the list, detail and form generators.
var TextFormat = FormatPolicy{Null: "—", True: "Yes", False: "No"}

// Format renders v as display text for f. The result is not escaped.
func (p FormatPolicy) Format(f viewconfig.Field, v any) string {
	if v == nil {
		return p.Null
	}
	switch x := v.(type) {
	case bool:
		if x {
			return p.True
		}
		return p.False
	case string:
		if f.Type == viewconfig.TypeCurrency {
			if d, err := decimal.NewFromString(x); err == nil {
				return "$" + d.StringFixed(2)
			}
		}
		return x
	case decimal.Decimal:
		return "$" + x.StringFixed(2)
	case float64:
		if f.Type == viewconfig.TypeCurrency {
			return "$" + decimal.NewFromFloat(x).StringFixed(2)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}
