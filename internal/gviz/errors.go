package gviz

import (
	"errors"
	"fmt"
)

// ErrNoTable is the cause of a SchemaError raised for a missing or failed table.
var ErrNoTable = errors.New("no table")

// ParseError reports response text that is not a well-formed GViz envelope
// or whose payload does not decode.
type ParseError struct {
	Reason  string // What was wrong
	Excerpt string // Leading bytes of the offending text, for logs
	Err     error  // Underlying decode error, if any
}

func (e *ParseError) Error() string {
	msg := "invalid gviz response format: " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SchemaError reports a decoded payload without the expected table.
type SchemaError struct {
	Status string // Response status, e.g. "error"
	Detail string // Upstream explanation, when the response carried one
}

func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("gviz response contains %s (status %q)", ErrNoTable, e.Status)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *SchemaError) Unwrap() error {
	return ErrNoTable
}

const excerptLen = 80

func excerpt(s string) string {
	if len(s) <= excerptLen {
		return s
	}
	return s[:excerptLen] + "..."
}
