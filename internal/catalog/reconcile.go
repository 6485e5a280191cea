package catalog

import "strings"

// NormalizeHeader lowercases s and drops every character outside [a-z0-9].
// Two headers match when their normalized forms are equal.
func NormalizeHeader(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// MappingEntry is one row of the field-to-header diagnostic table.
// Header is empty when no observed header matched the field.
type MappingEntry struct {
	Field  Field  `json:"field"`
	Header string `json:"header"`
}

// HeaderMapping is the result of reconciling one header set against an alias table.
// It is immutable once built; share it freely.
type HeaderMapping struct {
	fields        []Field
	headers       []string
	fieldToHeader map[Field]string
	headerToField map[string]Field
}

// Reconcile maps headers onto the default alias table.
func Reconcile(headers []string) HeaderMapping {
	return ReconcileWith(DefaultAliases, headers)
}

// ReconcileWith maps headers onto table.
//
// Fields are visited in table order, each field's aliases in priority order, and
// headers left to right. The first unclaimed header whose normalized form equals
// the alias wins. A claimed header is never offered to a later field, so the
// mapping is one-to-one in both directions.
func ReconcileWith(table AliasTable, headers []string) HeaderMapping {
	m := HeaderMapping{
		fields:        table.Fields(),
		headers:       append([]string(nil), headers...),
		fieldToHeader: make(map[Field]string),
		headerToField: make(map[string]Field),
	}

	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = NormalizeHeader(h)
	}
	claimed := make([]bool, len(headers))

	for _, fa := range table {
		if _, done := m.fieldToHeader[fa.Field]; done {
			continue
		}
	aliases:
		for _, alias := range fa.Aliases {
			if alias == "" {
				continue
			}
			for i, n := range normalized {
				if claimed[i] || n != alias {
					continue
				}
				// An identical header string seen earlier is already claimed.
				if _, taken := m.headerToField[headers[i]]; taken {
					continue
				}
				claimed[i] = true
				m.fieldToHeader[fa.Field] = headers[i]
				m.headerToField[headers[i]] = fa.Field
				break aliases
			}
		}
	}

	return m
}

// HeaderFor returns the observed header mapped to field.
func (m HeaderMapping) HeaderFor(field Field) (string, bool) {
	h, ok := m.fieldToHeader[field]
	return h, ok
}

// FieldFor returns the canonical field an observed header feeds.
func (m HeaderMapping) FieldFor(header string) (Field, bool) {
	f, ok := m.headerToField[header]
	return f, ok
}

// Len returns the number of matched fields.
func (m HeaderMapping) Len() int {
	return len(m.fieldToHeader)
}

// Headers returns the observed header set the mapping was built from.
func (m HeaderMapping) Headers() []string {
	return append([]string(nil), m.headers...)
}

// Entries lists every field of the alias table in declaration order with its
// matched header, or an empty header when the field went unmatched.
func (m HeaderMapping) Entries() []MappingEntry {
	entries := make([]MappingEntry, len(m.fields))
	for i, f := range m.fields {
		entries[i] = MappingEntry{Field: f, Header: m.fieldToHeader[f]}
	}
	return entries
}

// Unmapped returns observed headers that feed no field, in source order.
// Their values survive only in Medicine.Raw.
func (m HeaderMapping) Unmapped() []string {
	var out []string
	for _, h := range m.headers {
		if _, ok := m.headerToField[h]; !ok {
			out = append(out, h)
		}
	}
	return out
}
