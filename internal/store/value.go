package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// sqliteTime keeps stored timestamps sortable as text.
const sqliteTime = "2006-01-02T15:04:05.000000000Z"

// Coerce converts a decoded JSON value to the canonical Go value of column c:
// uuid.UUID, bool, decimal.Decimal, time.Time, int64 or string. Nil stays nil.
func Coerce(c Column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch c.Type {
	case TypeUUID:
		switch x := v.(type) {
		case uuid.UUID:
			return x, nil
		case string:
			id, err := uuid.Parse(x)
			if err != nil {
				return nil, fmt.Errorf("%s: invalid UUID %q", c.Name, x)
			}
			return id, nil
		}
	case TypeBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case TypeDecimal:
		switch x := v.(type) {
		case decimal.Decimal:
			return x, nil
		case float64:
			return decimal.NewFromFloat(x), nil
		case json.Number:
			return decimal.NewFromString(x.String())
		case string:
			d, err := decimal.NewFromString(x)
			if err != nil {
				return nil, fmt.Errorf("%s: invalid decimal %q", c.Name, x)
			}
			return d, nil
		}
	case TypeTime:
		switch x := v.(type) {
		case time.Time:
			return x.UTC(), nil
		case string:
			t, err := time.Parse(time.RFC3339, x)
			if err != nil {
				return nil, fmt.Errorf("%s: invalid timestamp %q", c.Name, x)
			}
			return t.UTC(), nil
		}
	case TypeInt:
		switch x := v.(type) {
		case int:
			return int64(x), nil
		case int64:
			return x, nil
		case float64:
			if x != math.Trunc(x) {
				return nil, fmt.Errorf("%s: %v is not a whole number", c.Name, x)
			}
			return int64(x), nil
		case json.Number:
			return x.Int64()
		}
	case TypeText:
		if s, ok := v.(string); ok {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%s: expected %s, got %T", c.Name, c.Type, v)
}

// bindValue converts a canonical value to a driver argument for the dialect.
func bindValue(sqlite bool, v any) any {
	switch x := v.(type) {
	case uuid.UUID:
		return x.String()
	case decimal.Decimal:
		return x.String()
	case time.Time:
		if sqlite {
			return x.UTC().Format(sqliteTime)
		}
		return x.UTC()
	}
	return v
}

// readValue converts a scanned driver value to its Record form.
func readValue(typ ColumnType, v any) any {
	if v == nil {
		return nil
	}
	if valuer, ok := v.(driver.Valuer); ok {
		dv, err := valuer.Value()
		if err != nil {
			return nil
		}
		return readValue(typ, dv)
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	switch typ {
	case TypeUUID:
		switch x := v.(type) {
		case [16]byte:
			return uuid.UUID(x).String()
		case string:
			return strings.ToLower(x)
		}
	case TypeBool:
		switch x := v.(type) {
		case bool:
			return x
		case int64:
			return x != 0
		}
	case TypeDecimal:
		switch x := v.(type) {
		case string:
			if d, err := decimal.NewFromString(x); err == nil {
				return d.String()
			}
			return x
		case float64:
			return decimal.NewFromFloat(x).String()
		case int64:
			return decimal.NewFromInt(x).String()
		}
	case TypeTime:
		switch x := v.(type) {
		case time.Time:
			return x.UTC()
		case string:
			for _, layout := range []string{sqliteTime, time.RFC3339Nano, "2006-01-02 15:04:05"} {
				if t, err := time.Parse(layout, x); err == nil {
					return t.UTC()
				}
			}
			return x
		}
	case TypeInt:
		switch x := v.(type) {
		case int64:
			return x
		case float64:
			return int64(x)
		}
	}
	return v
}
