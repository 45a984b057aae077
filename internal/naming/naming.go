// Package naming converts identifiers between the casing conventions used by
// BUSM models (camelCase), the SQL store (snake_case) and generated markup
// (human-readable labels).
package naming

import "strings"

// Known abbreviations kept upper-case in labels and Pascal names.
var knownAbbreviations = map[string]string{
	"id": "ID", "uuid": "UUID", "url": "URL", "api": "API",
	"sku": "SKU", "po": "PO", "hvac": "HVAC", "ein": "EIN",
	"sla": "SLA", "eta": "ETA", "zip": "ZIP",
}

// Known phrases for enum and field labels.
var knownPhrases = map[string]string{
	"in_progress": "In Progress",
	"on_hold":     "On Hold",
	"not_started": "Not Started",
	"work_order":  "Work Order",
	"work_orders": "Work Orders",
}

// words splits an identifier on underscores, hyphens, dots, spaces and
// lower-to-upper case boundaries.
func words(s string) []string {
	var out []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			out = append(out, string(cur))
			cur = cur[:0]
		}
	}
	rs := []rune(s)
	for i, r := range rs {
		switch {
		case r == '_' || r == '-' || r == '.' || r == ' ':
			flush()
		case r >= 'A' && r <= 'Z':
			// Break before an upper-case rune that follows a lower-case one or
			// that starts a new word after an acronym ("HTTPServer" → HTTP, Server).
			if i > 0 {
				prev := rs[i-1]
				nextLower := i+1 < len(rs) && rs[i+1] >= 'a' && rs[i+1] <= 'z'
				if (prev >= 'a' && prev <= 'z') || (prev >= '0' && prev <= '9') ||
					(prev >= 'A' && prev <= 'Z' && nextLower) {
					flush()
				}
			}
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return out
}

// ToSnake converts "accountName" or "AccountName" to "account_name".
func ToSnake(s string) string {
	ws := words(s)
	for i, w := range ws {
		ws[i] = strings.ToLower(w)
	}
	return strings.Join(ws, "_")
}

// ToPascal converts "account_name" or "accountName" to "AccountName".
func ToPascal(s string) string {
	ws := words(s)
	for i, w := range ws {
		lower := strings.ToLower(w)
		if abbr, ok := knownAbbreviations[lower]; ok {
			ws[i] = abbr
			continue
		}
		ws[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(ws, "")
}

// ToCamel converts "account_name" to "accountName".
func ToCamel(s string) string {
	ws := words(s)
	for i, w := range ws {
		lower := strings.ToLower(w)
		if i == 0 {
			ws[i] = lower
			continue
		}
		ws[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(ws, "")
}

// ToKebab converts "WorkOrder" to "work-order".
func ToKebab(s string) string {
	return strings.ReplaceAll(ToSnake(s), "_", "-")
}

// Label converts an identifier to a human-readable label:
// "accountName" → "Account Name", "in_progress" → "In Progress".
func Label(s string) string {
	if s == "" {
		return ""
	}
	snake := ToSnake(s)
	if phrase, ok := knownPhrases[snake]; ok {
		return phrase
	}
	ws := strings.Split(snake, "_")
	for i, w := range ws {
		if w == "" {
			continue
		}
		if abbr, ok := knownAbbreviations[w]; ok {
			ws[i] = abbr
			continue
		}
		ws[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(ws, " ")
}

// RefLabel is Label for reference columns with the _id suffix removed:
// "account_id" → "Account".
func RefLabel(s string) string {
	clean := strings.TrimSuffix(strings.TrimSuffix(ToSnake(s), "_ids"), "_id")
	return Label(clean)
}
