package gviz

import (
	"strings"

	"github.com/JonMunkholm/catalog/internal/catalog"
)

// Projection is a decoded table reshaped into header-keyed rows.
type Projection struct {
	// Headers are the usable column headers in source order, without duplicates.
	Headers []string
	// Rows holds one record per table row. Empty cells are omitted, never nil.
	Rows []catalog.Row
}

// Project converts a successful response into generic rows.
//
// Each column's header is its label, or its id when the label is blank.
// Columns whose header is still blank cannot be addressed and are skipped.
// Each cell contributes its formatted value when present, else its raw value.
func Project(resp *Response) (*Projection, error) {
	if resp == nil {
		return nil, &SchemaError{}
	}
	if resp.Status != StatusOK || resp.Table == nil {
		return nil, &SchemaError{Status: resp.Status, Detail: resp.problemDetail()}
	}

	colHeaders := ColumnHeaders(resp.Table.Cols)

	proj := &Projection{
		Headers: uniqueNonEmpty(colHeaders),
		Rows:    make([]catalog.Row, 0, len(resp.Table.Rows)),
	}

	for _, r := range resp.Table.Rows {
		row := make(catalog.Row, len(colHeaders))
		for i, cell := range r.C {
			if i >= len(colHeaders) || colHeaders[i] == "" {
				continue
			}
			if v, ok := cell.Value(); ok {
				row[colHeaders[i]] = v
			}
		}
		proj.Rows = append(proj.Rows, row)
	}

	return proj, nil
}

// ColumnHeaders returns the header for each column position, "" when the
// column has neither a label nor an id.
func ColumnHeaders(cols []Column) []string {
	headers := make([]string, len(cols))
	for i, c := range cols {
		h := strings.TrimSpace(c.Label)
		if h == "" {
			h = strings.TrimSpace(c.ID)
		}
		headers[i] = h
	}
	return headers
}

func uniqueNonEmpty(headers []string) []string {
	seen := make(map[string]bool, len(headers))
	out := make([]string, 0, len(headers))
	for _, h := range headers {
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	return out
}
