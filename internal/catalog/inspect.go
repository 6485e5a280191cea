package catalog

// inspect.go reports the coercions Normalize applied silently.
//
// Normalize favors best-effort display over strict validation, so malformed
// sheet data never stops a fetch. Inspect exists for the admin view: it walks
// the same row with the same mapping and says what was defaulted or clamped.
// It never changes what Normalize produces.

import (
	"fmt"
	"strings"
)

// Warning describes one value Normalize had to replace or reinterpret.
type Warning struct {
	Row     int    `json:"row"`              // 1-based row index
	Field   Field  `json:"field"`            // Canonical field affected
	Header  string `json:"header,omitempty"` // Observed header, if mapped
	Value   string `json:"value,omitempty"`  // Offending value as text
	Message string `json:"message"`          // Human-readable description
}

func (w Warning) String() string {
	if w.Value != "" {
		return fmt.Sprintf("row %d: %s: %s (%q)", w.Row, w.Field, w.Message, w.Value)
	}
	return fmt.Sprintf("row %d: %s: %s", w.Row, w.Field, w.Message)
}

// Inspect lists the warnings for a single row.
func Inspect(row Row, m HeaderMapping, index int) []Warning {
	values := extract(row, m)
	var warnings []Warning

	add := func(f Field, v any, msg string) {
		h, _ := m.HeaderFor(f)
		warnings = append(warnings, Warning{
			Row:     index,
			Field:   f,
			Header:  h,
			Value:   ToString(v),
			Message: msg,
		})
	}

	name := ToString(values[FieldName])
	if name == "" {
		add(FieldName, nil, "missing, defaulted to "+DefaultName)
	}
	if ToString(values[FieldID]) == "" {
		add(FieldID, nil, "missing, synthesized as "+medicineID(values, name, index))
	}

	for _, f := range []Field{FieldPrice, FieldStock} {
		v, present := values[f]
		if !present {
			// An unmapped column already shows up in the mapping table.
			if _, mapped := m.HeaderFor(f); mapped {
				add(f, nil, "empty, defaulted to 0")
			}
			continue
		}
		n, ok := parseNumber(v)
		switch {
		case !ok:
			add(f, v, "not a number, coerced to 0")
		case n < 0:
			add(f, v, "negative, clamped to 0")
		}
	}

	if v, present := values[FieldPrescription]; present {
		if s, isString := v.(string); isString {
			key := strings.ToLower(strings.TrimSpace(s))
			if !truthy[key] && !falsy[key] {
				add(FieldPrescription, v, "unrecognized flag, treated as not required")
			}
		} else if _, isBool := v.(bool); !isBool {
			add(FieldPrescription, v, "not a yes/no value, treated as not required")
		}
	}

	return warnings
}

// InspectAll inspects rows in order and returns at most limit warnings.
// A limit of zero or less returns every warning.
func InspectAll(rows []Row, m HeaderMapping, limit int) []Warning {
	var all []Warning
	for i, row := range rows {
		for _, w := range Inspect(row, m, i+1) {
			if limit > 0 && len(all) >= limit {
				return all
			}
			all = append(all, w)
		}
	}
	return all
}
