// Package gviz decodes Google Visualization (GViz) query responses.
//
// A spreadsheet query endpoint answers with JSONP-style text:
//
//	/*O_o*/
//	google.visualization.Query.setResponse({"version":"0.6","status":"ok","table":{...}});
//
// [Parse] strips that envelope and decodes the payload. [Project] turns the
// decoded table into one [catalog.Row] per spreadsheet row, keyed by header.
package gviz

import (
	"encoding/json"
	"fmt"
)

// StatusOK is the status of a successful query.
const StatusOK = "ok"

// Response is a decoded GViz payload.
type Response struct {
	Version  string    `json:"version"`
	ReqID    string    `json:"reqId"`
	Status   string    `json:"status"`
	Sig      string    `json:"sig"`
	Table    *Table    `json:"table"`
	Errors   []Problem `json:"errors,omitempty"`
	Warnings []Problem `json:"warnings,omitempty"`

	payload []byte // decoded JSON, kept for error detail lookups
}

// Problem is an entry of the response's errors or warnings list.
type Problem struct {
	Reason          string `json:"reason"`
	Message         string `json:"message"`
	DetailedMessage string `json:"detailed_message"`
}

// Table holds the columns and rows of a query result.
type Table struct {
	Cols             []Column  `json:"cols"`
	Rows             []RowData `json:"rows"`
	ParsedNumHeaders int       `json:"parsedNumHeaders"`
}

// Column describes one result column. Label is the sheet header text;
// ID is the column letter and is always present.
type Column struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Type    string `json:"type"`
	Pattern string `json:"pattern,omitempty"`
}

// RowData is one result row. Cells are positionally aligned with Table.Cols;
// a nil cell means the spreadsheet cell was empty.
type RowData struct {
	C []*Cell `json:"c"`
}

// Cell carries an optional raw value and an optional display string.
// Numbers decode as json.Number so their exact text survives.
type Cell struct {
	V any     `json:"v"`
	F *string `json:"f,omitempty"`
}

// Value returns the formatted value when present, else the raw value.
// ok is false when the cell holds neither.
func (c *Cell) Value() (v any, ok bool) {
	if c == nil {
		return nil, false
	}
	if c.F != nil {
		return *c.F, true
	}
	if c.V != nil {
		return c.V, true
	}
	return nil, false
}

// String renders the cell for logs.
func (c *Cell) String() string {
	v, ok := c.Value()
	if !ok {
		return "<empty>"
	}
	if n, isNum := v.(json.Number); isNum {
		return n.String()
	}
	return fmt.Sprint(v)
}
