package viewconfig

import (
	"fmt"
	"strings"
)

// Canonical field types.
const (
	TypeString   = "string"
	TypeText     = "text"
	TypeNumber   = "number"
	TypeCurrency = "currency"
	TypeDate     = "date"
	TypeDateTime = "datetime"
	TypeEnum     = "enum"
	TypeBoolean  = "boolean"
	TypeUUID     = "uuid"
	TypeEmail    = "email"
	TypePhone    = "phone"
	TypeJSON     = "json"
)

var typeAliases = map[string]string{
	"int":       TypeNumber,
	"integer":   TypeNumber,
	"float":     TypeNumber,
	"decimal":   TypeNumber,
	"money":     TypeCurrency,
	"bool":      TypeBoolean,
	"timestamp": TypeDateTime,
	"textarea":  TypeText,
	"object":    TypeJSON,
}

var goTypes = map[string]string{
	TypeString:   "string",
	TypeText:     "string",
	TypeNumber:   "float64",
	TypeCurrency: "decimal.Decimal",
	TypeDate:     "time.Time",
	TypeDateTime: "time.Time",
	TypeEnum:     "string",
	TypeBoolean:  "bool",
	TypeUUID:     "uuid.UUID",
	TypeEmail:    "string",
	TypePhone:    "string",
	TypeJSON:     "json.RawMessage",
}

// NormalizeType lower-cases t and resolves aliases.
func NormalizeType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if alias, ok := typeAliases[t]; ok {
		return alias
	}
	return t
}

// KnownType reports whether t is a canonical field type.
func KnownType(t string) bool {
	_, ok := goTypes[t]
	return ok
}

// IsSortable reports whether a field of type t can be sorted.
func IsSortable(t string) bool {
	switch t {
	case TypeString, TypeNumber, TypeDate, TypeEnum:
		return true
	}
	return false
}

// IsFilterable reports whether a field of type t can be filtered.
func IsFilterable(t string) bool {
	switch t {
	case TypeString, TypeEnum, TypeBoolean:
		return true
	}
	return false
}

// TSType maps a field to its TypeScript type.
func TSType(f Field) string {
	switch f.Type {
	case TypeString, TypeText, TypeDate, TypeDateTime, TypeUUID, TypeEmail, TypePhone:
		return "string"
	case TypeNumber, TypeCurrency:
		return "number"
	case TypeBoolean:
		return "boolean"
	case TypeEnum:
		if len(f.Options) == 0 {
			return "string"
		}
		quoted := make([]string, len(f.Options))
		for i, o := range f.Options {
			quoted[i] = fmt.Sprintf("'%s'", strings.ReplaceAll(o, "'", "\\'"))
		}
		return strings.Join(quoted, " | ")
	case TypeJSON:
		return "Record<string, any>"
	default:
		return "unknown"
	}
}

// GoType maps a field to its Go type.
func GoType(f Field) string {
	if t, ok := goTypes[f.Type]; ok {
		return t
	}
	return "any"
}

// EnrichField derives the flags and type mappings of f from its type.
func EnrichField(f Field) Field {
	f.IsSortable = IsSortable(f.Type)
	f.IsFilterable = IsFilterable(f.Type)
	f.TSType = TSType(f)
	f.GoType = GoType(f)
	return f
}
