package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/catalog/internal/gviz"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "parse error maps correctly",
			err:         &gviz.ParseError{Reason: "missing closing parenthesis"},
			wantCode:    "GVZ001",
			wantMessage: "The catalog feed could not be read",
		},
		{
			name:        "wrapped schema error maps correctly",
			err:         fmt.Errorf("load catalog: %w", &gviz.SchemaError{Status: "error"}),
			wantCode:    "GVZ002",
			wantMessage: "The catalog feed contained no table",
		},
		{
			name:        "http status maps to upstream",
			err:         &NetworkError{StatusCode: 404, Status: "404 Not Found"},
			wantCode:    "NET002",
			wantMessage: "The catalog feed refused the request",
		},
		{
			name:        "transport failure maps to network",
			err:         &NetworkError{Err: errors.New("dial tcp: lookup docs.google.com: no such host")},
			wantCode:    "NET001",
			wantMessage: "Unable to reach the catalog feed",
		},
		{
			name:        "deadline inside network error maps to timeout",
			err:         &NetworkError{Err: context.DeadlineExceeded},
			wantCode:    "NET003",
			wantMessage: "The catalog feed did not respond in time",
		},
		{
			name:        "net timeout inside network error maps to timeout",
			err:         &NetworkError{Err: timeoutErr{}},
			wantCode:    "NET003",
			wantMessage: "The catalog feed did not respond in time",
		},
		{
			name:        "bare deadline maps to timeout",
			err:         fmt.Errorf("fetch: %w", context.DeadlineExceeded),
			wantCode:    "NET003",
			wantMessage: "The catalog feed did not respond in time",
		},
		{
			name:        "cancellation maps correctly",
			err:         context.Canceled,
			wantCode:    "REQ001",
			wantMessage: "Request was cancelled",
		},
		{
			name:        "snapshot failure text maps to cache",
			err:         errors.New("invalidate snapshot: remove snapshot file: permission denied"),
			wantCode:    "CACHE001",
			wantMessage: "The catalog cache could not be updated",
		},
		{
			name:        "rate limit maps correctly",
			err:         errors.New("rate limit exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "unknown medicine maps correctly",
			err:         errors.New(`medicine not found: "99"`),
			wantCode:    "REQ002",
			wantMessage: "The requested item or format is not available",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("CONNECTION REFUSED by peer"),
			wantCode:    "NET001",
			wantMessage: "Unable to reach the catalog feed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	err := &NetworkError{StatusCode: 403, Status: "403 Forbidden"}
	result := FormatUserError(err)

	expected := "The catalog feed refused the request (Code: NET002). Check that the spreadsheet exists and is shared publicly"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}

	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "typed error is user facing",
			err:  &gviz.ParseError{Reason: "bad"},
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}
