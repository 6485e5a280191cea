package gviz

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// Parse strips the JSONP envelope from text and decodes the payload.
//
// The envelope is removed piece by piece rather than by fixed offsets:
// an optional byte-order mark, an optional leading /*...*/ comment, the
// wrapper call "name(" and its closing ")" with an optional trailing ";".
// Bare JSON without any wrapper is accepted as-is.
func Parse(text string) (*Response, error) {
	body, err := stripEnvelope(text)
	if err != nil {
		return nil, err
	}

	if !gjson.Valid(body) {
		return nil, &ParseError{Reason: "payload is not valid JSON", Excerpt: excerpt(body)}
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()

	var resp Response
	if err := dec.Decode(&resp); err != nil {
		return nil, &ParseError{Reason: "payload does not match the response shape", Excerpt: excerpt(body), Err: err}
	}
	resp.payload = []byte(body)

	return &resp, nil
}

// stripEnvelope returns the JSON text inside a GViz JSONP envelope.
func stripEnvelope(text string) (string, error) {
	s := strings.TrimPrefix(text, "\ufeff")
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "/*") {
		end := strings.Index(s, "*/")
		if end < 0 {
			return "", &ParseError{Reason: "unterminated leading comment", Excerpt: excerpt(s)}
		}
		s = strings.TrimSpace(s[end+2:])
	}

	if s == "" {
		return "", &ParseError{Reason: "empty response"}
	}

	// Bare payload, no wrapper call.
	if s[0] == '{' {
		return s, nil
	}

	open := strings.IndexByte(s, '(')
	if open <= 0 || !isCallee(s[:open]) {
		return "", &ParseError{Reason: "missing wrapper call", Excerpt: excerpt(s)}
	}
	s = s[open+1:]

	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ";")
	s = strings.TrimSpace(s)
	if !strings.HasSuffix(s, ")") {
		return "", &ParseError{Reason: "wrapper call is not closed", Excerpt: excerpt(s)}
	}

	return strings.TrimSpace(s[:len(s)-1]), nil
}

// isCallee reports whether s looks like a (dotted) JavaScript function name.
func isCallee(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '_', c == '$', c == '.':
		default:
			return false
		}
	}
	return true
}

// problemDetail returns the first upstream error explanation, if any.
func (r *Response) problemDetail() string {
	if len(r.payload) > 0 {
		for _, path := range []string{"errors.0.detailed_message", "errors.0.message", "errors.0.reason"} {
			if v := gjson.GetBytes(r.payload, path); v.Exists() && v.String() != "" {
				return v.String()
			}
		}
		return ""
	}
	if len(r.Errors) > 0 {
		p := r.Errors[0]
		for _, s := range []string{p.DetailedMessage, p.Message, p.Reason} {
			if s != "" {
				return s
			}
		}
	}
	return ""
}

// Equal reports whether two responses carry the same decoded content.
// The retained payload bytes are ignored.
func (r *Response) Equal(other *Response) bool {
	if r == nil || other == nil {
		return r == other
	}
	a, errA := json.Marshal(r)
	b, errB := json.Marshal(other)
	return errA == nil && errB == nil && bytes.Equal(a, b)
}
