package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Defaults for HTTPFetcher.
const (
	DefaultBaseURL      = "https://docs.google.com/spreadsheets/d"
	DefaultMaxBodyBytes = 32 << 20
)

// Fetcher retrieves the raw spreadsheet query response.
type Fetcher interface {
	Fetch(ctx context.Context) (string, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) (string, error)

func (f FetcherFunc) Fetch(ctx context.Context) (string, error) {
	return f(ctx)
}

// NetworkError is a transport or HTTP failure while fetching the feed.
type NetworkError struct {
	URL        string
	StatusCode int    // 0 when no response was received
	Status     string // e.g. "404 Not Found"
	Err        error
}

func (e *NetworkError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch sheet: upstream returned HTTP %s", e.Status)
	case e.Err != nil:
		return "fetch sheet: " + e.Err.Error()
	default:
		return "fetch sheet: network error"
	}
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the fetch failed because a deadline passed.
func (e *NetworkError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// HTTPFetcher reads a sheet through the public gviz query endpoint.
type HTTPFetcher struct {
	BaseURL       string
	SpreadsheetID string
	GID           string
	Sheet         string // Optional sheet name, sent alongside gid
	MaxBodyBytes  int64
	Client        *http.Client
}

// NewHTTPFetcher returns a fetcher for one spreadsheet tab.
func NewHTTPFetcher(spreadsheetID, gid string) *HTTPFetcher {
	return &HTTPFetcher{
		BaseURL:       DefaultBaseURL,
		SpreadsheetID: spreadsheetID,
		GID:           gid,
		MaxBodyBytes:  DefaultMaxBodyBytes,
		Client:        &http.Client{Timeout: 30 * time.Second},
	}
}

// URL returns the query endpoint for the configured sheet.
func (f *HTTPFetcher) URL() string {
	base := strings.TrimRight(f.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}

	q := url.Values{}
	q.Set("tqx", "out:json")
	q.Set("gid", f.GID)
	if f.Sheet != "" {
		q.Set("sheet", f.Sheet)
	}
	return fmt.Sprintf("%s/%s/gviz/tq?%s", base, url.PathEscape(f.SpreadsheetID), q.Encode())
}

// Fetch performs one GET and returns the body text.
func (f *HTTPFetcher) Fetch(ctx context.Context) (string, error) {
	target := f.URL()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("build sheet request: %w", err)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", &NetworkError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return "", &NetworkError{URL: target, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	limit := f.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return "", &NetworkError{URL: target, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > limit {
		return "", &NetworkError{URL: target, Err: fmt.Errorf("response body exceeds %d bytes", limit)}
	}

	return string(body), nil
}
