package core

// # Error Codes Reference
//
// Fetch and cache failures are reported to users with a short code they can
// quote when asking for help.
//
// # Feed Errors (GVZ001-GVZ099)
//
//	GVZ001 - Unreadable feed: the sheet response is not a valid gviz envelope
//	         Action: Check that the sheet is shared publicly and try again
//	GVZ002 - No table: the feed decoded but carried no table
//	         Action: Check the sheet id, tab and sharing settings
//
// # Network Errors (NET001-NET099)
//
//	NET001 - Network failure: the sheet could not be reached
//	NET002 - Upstream refused: the sheet endpoint answered with an error status
//	NET003 - Timeout: the sheet did not answer in time
//
// # Cache Errors (CACHE001-CACHE099)
//
//	CACHE001 - Snapshot storage failed to read, write or delete
//
// # Request Errors
//
//	REQ001  - Request cancelled
//	REQ002  - Unknown medicine or export format
//	RATE001 - Too many requests
//	ERR000  - Anything else; check the server log for the original error
//
// Typed errors are matched first. Otherwise patterns are matched
// case-insensitively with strings.Contains and the first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/catalog/internal/gviz"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

var (
	msgParse = UserMessage{
		Message: "The catalog feed could not be read",
		Action:  "Check that the sheet is shared publicly and try again",
		Code:    "GVZ001",
	}
	msgSchema = UserMessage{
		Message: "The catalog feed contained no table",
		Action:  "Check the spreadsheet id, tab and sharing settings",
		Code:    "GVZ002",
	}
	msgNetwork = UserMessage{
		Message: "Unable to reach the catalog feed",
		Action:  "Check your connection and try again",
		Code:    "NET001",
	}
	msgUpstream = UserMessage{
		Message: "The catalog feed refused the request",
		Action:  "Check that the spreadsheet exists and is shared publicly",
		Code:    "NET002",
	}
	msgTimeout = UserMessage{
		Message: "The catalog feed did not respond in time",
		Action:  "Please try again in a few moments",
		Code:    "NET003",
	}
	msgCache = UserMessage{
		Message: "The catalog cache could not be updated",
		Action:  "Check storage permissions or database connectivity",
		Code:    "CACHE001",
	}
	msgCanceled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "REQ001",
	}
	msgNotFound = UserMessage{
		Message: "The requested item or format is not available",
		Action:  "Check the link or search the catalog again",
		Code:    "REQ002",
	}
	msgRateLimit = UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}
)

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns catch errors that reached us as plain text.
// Specific patterns come before general ones.
var errorPatterns = []errorPattern{
	{pattern: "invalid gviz response", msg: msgParse},
	{pattern: "no table", msg: msgSchema},
	{pattern: "upstream returned http", msg: msgUpstream},
	{pattern: "context deadline exceeded", msg: msgTimeout},
	{pattern: "timeout", msg: msgTimeout},
	{pattern: "connection refused", msg: msgNetwork},
	{pattern: "connection reset", msg: msgNetwork},
	{pattern: "no such host", msg: msgNetwork},
	{pattern: "snapshot", msg: msgCache},
	{pattern: "context canceled", msg: msgCanceled},
	{pattern: "rate limit", msg: msgRateLimit},
	{pattern: "not found", msg: msgNotFound},
	{pattern: "unsupported export format", msg: msgNotFound},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var (
		parseErr  *gviz.ParseError
		schemaErr *gviz.SchemaError
		netErr    *NetworkError
	)
	switch {
	case errors.As(err, &parseErr):
		return msgParse
	case errors.As(err, &schemaErr):
		return msgSchema
	case errors.As(err, &netErr):
		switch {
		case netErr.Timeout():
			return msgTimeout
		case netErr.StatusCode != 0:
			return msgUpstream
		default:
			return msgNetwork
		}
	case errors.Is(err, context.DeadlineExceeded):
		return msgTimeout
	case errors.Is(err, context.Canceled):
		return msgCanceled
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
