package catalog

// coerce.go holds the total conversion helpers used by Normalize.
//
// Spreadsheet cells arrive as formatted strings ("₹1,234.50"), raw numbers
// (json.Number or float64 after a cache round trip), booleans, or nothing at
// all. Every helper here accepts any of those and always returns a usable value.

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// numericRegex validates that a string is a plain number after cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// currencyMarks are stripped before numeric parsing.
var currencyMarks = []string{"$", "€", "£", "₹", "Rs.", "Rs", "INR"}

// truthy lists the strings ToBool accepts as true, lowercased.
var truthy = map[string]bool{"y": true, "yes": true, "true": true, "1": true}

// falsy lists strings recognized as a deliberate false. Only Inspect uses it.
var falsy = map[string]bool{"": true, "n": true, "no": true, "false": true, "0": true}

// ToString renders a cell value as trimmed text. nil renders as "".
func ToString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return ToString(float64(x))
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case []string:
		return strings.Join(x, ", ")
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			if s := ToString(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// ToNumber coerces a cell value to a non-negative finite number.
// Anything that does not parse, and any negative value, becomes 0.
func ToNumber(v any) float64 {
	n, ok := parseNumber(v)
	if !ok || n <= 0 {
		return 0
	}
	return n
}

// parseNumber reports the numeric value of v and whether it parsed at all.
// Negative values are returned as-is so callers can tell them apart.
func parseNumber(v any) (float64, bool) {
	var n float64
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		n = x
	case float32:
		n = float64(x)
	case int:
		n = float64(x)
	case int64:
		n = float64(x)
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case json.Number:
		f, err := strconv.ParseFloat(x.String(), 64)
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		f, ok := parseNumericString(x)
		if !ok {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// parseNumericString handles currency marks, thousands separators and the
// accounting "(123.45)" negative form. An empty string parses as 0.
func parseNumericString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	for _, mark := range currencyMarks {
		s = strings.ReplaceAll(s, mark, "")
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if !numericRegex.MatchString(s) {
		return 0, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		f = -f
	}
	return f, true
}

// ToBool is true for a literal true or for the strings y, yes, true and 1
// in any case. Everything else, including nil and numbers, is false.
func ToBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return truthy[strings.ToLower(strings.TrimSpace(x))]
	default:
		return false
	}
}

// ToList turns a list cell into a slice of trimmed, non-empty strings.
// Strings are split on commas. The result is never nil.
func ToList(v any) []string {
	switch x := v.(type) {
	case []string:
		return compact(x)
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = ToString(e)
		}
		return compact(parts)
	case string:
		if strings.TrimSpace(x) == "" {
			return []string{}
		}
		return compact(strings.Split(x, ","))
	default:
		return []string{}
	}
}

func compact(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
