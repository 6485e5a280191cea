package web

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/JonMunkholm/catalog/internal/config"
	"github.com/JonMunkholm/catalog/internal/core"
	"github.com/JonMunkholm/catalog/internal/snapshot"
)

// stubFetcher serves a fixed body or error and counts calls.
type stubFetcher struct {
	mu    sync.Mutex
	body  string
	err   error
	calls int
}

func (f *stubFetcher) Fetch(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.body, f.err
}

func (f *stubFetcher) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *stubFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func gvizFeed(t *testing.T, headers []string, rows ...[]any) string {
	t.Helper()
	type cell struct {
		V any `json:"v"`
	}
	cols := make([]map[string]string, len(headers))
	for i, h := range headers {
		cols[i] = map[string]string{"id": string(rune('A' + i)), "label": h, "type": "string"}
	}
	out := make([]map[string][]*cell, len(rows))
	for i, r := range rows {
		cells := make([]*cell, len(r))
		for j, v := range r {
			if v != nil {
				cells[j] = &cell{V: v}
			}
		}
		out[i] = map[string][]*cell{"c": cells}
	}
	b, err := json.Marshal(map[string]any{
		"version": "0.6",
		"status":  "ok",
		"table":   map[string]any{"cols": cols, "rows": out},
	})
	require.NoError(t, err)
	return "/*O_o*/\ngoogle.visualization.Query.setResponse(" + string(b) + ");"
}

func catalogFeed(t *testing.T) string {
	return gvizFeed(t,
		[]string{"SL", "Product Name", "Generic Name", "Brand", "Category", "Manufacturer", "MRP", "Stock", "Rx", "Image", "Notes"},
		[]any{"1", "Paracetamol", "Acetaminophen", "Calpol", "Analgesic", "GSK", "15.50", 25, "N", nil, "<b>bold</b>"},
		[]any{"2", "Amoxicillin", "Amoxicillin", "Mox", "Antibiotic", "Sun", "₹120", 8, "Y", nil, nil},
		[]any{"3", "Cetirizine", "Cetirizine", "Zyrtec", "Antihistamine", "GSK", "abc", 0, "N", "https://img.example/c.png", nil},
	)
}

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Port: 8080, RequestTimeout: 5 * time.Second},
		Rate:     config.RateLimitConfig{Enabled: false},
		Security: config.SecurityConfig{EnableCSP: true},
	}
}

type testEnv struct {
	server  *Server
	service *core.Service
	fetcher *stubFetcher
	store   snapshot.Store
}

func newTestEnv(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()
	f := &stubFetcher{body: catalogFeed(t)}
	store := snapshot.NewMemoryStore()
	svc := core.NewService(f, store, core.Options{TTL: time.Hour, FetchTimeout: time.Second})
	require.NoError(t, svc.FetchNow(context.Background()))

	srv := NewServer(svc, cfg)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return &testEnv{server: srv, service: svc, fetcher: f, store: store}
}

func (e *testEnv) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func itemIDs(body string) []string {
	var out []string
	for _, id := range gjson.Get(body, "items.#.id").Array() {
		out = append(out, id.String())
	}
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, testConfig())
	rec := env.do(t, http.MethodGet, "/healthz")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, "ok", gjson.Get(body, "status").String())
	assert.Equal(t, "ready", gjson.Get(body, "state").String())
	assert.Equal(t, int64(3), gjson.Get(body, "count").Int())
}

func TestListMedicines(t *testing.T) {
	env := newTestEnv(t, testConfig())

	tests := []struct {
		name       string
		query      string
		wantIDs    []string
		wantTotal  int64
		wantPages  int64
		wantPageNo int64
	}{
		{name: "default", query: "", wantIDs: []string{"2", "3", "1"}, wantTotal: 3, wantPages: 1, wantPageNo: 1},
		{name: "search", query: "?q=ceti", wantIDs: []string{"3"}, wantTotal: 1, wantPages: 1, wantPageNo: 1},
		{name: "prescription", query: "?rx=1", wantIDs: []string{"2"}, wantTotal: 1, wantPages: 1, wantPageNo: 1},
		{name: "category", query: "?category=Analgesic", wantIDs: []string{"1"}, wantTotal: 1, wantPages: 1, wantPageNo: 1},
		{name: "manufacturer", query: "?manufacturer=GSK&sort=name-desc", wantIDs: []string{"1", "3"}, wantTotal: 2, wantPages: 1, wantPageNo: 1},
		{name: "price sort", query: "?sort=price-desc", wantIDs: []string{"2", "1", "3"}, wantTotal: 3, wantPages: 1, wantPageNo: 1},
		{name: "paginated", query: "?per_page=1&page=2", wantIDs: []string{"3"}, wantTotal: 3, wantPages: 3, wantPageNo: 2},
		{name: "bad paging falls back", query: "?per_page=x&page=-1", wantIDs: []string{"2", "3", "1"}, wantTotal: 3, wantPages: 1, wantPageNo: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/medicines"+tt.query)
			require.Equal(t, http.StatusOK, rec.Code)

			body := rec.Body.String()
			assert.Equal(t, tt.wantIDs, itemIDs(body))
			assert.Equal(t, tt.wantTotal, gjson.Get(body, "total").Int())
			assert.Equal(t, tt.wantPages, gjson.Get(body, "totalPages").Int())
			assert.Equal(t, tt.wantPageNo, gjson.Get(body, "page").Int())
			assert.Equal(t, "ready", gjson.Get(body, "status.state").String())
		})
	}
}

func TestGetMedicine(t *testing.T) {
	env := newTestEnv(t, testConfig())

	rec := env.do(t, http.MethodGet, "/api/medicines/1")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, "Paracetamol", gjson.Get(body, "name").String())
	assert.Equal(t, 15.5, gjson.Get(body, "price").Float())
	assert.Equal(t, string(catalog.InStock), gjson.Get(body, "availability").String())
	assert.Equal(t, catalog.PlaceholderImage("Paracetamol"), gjson.Get(body, "imageUrl").String())

	rec = env.do(t, http.MethodGet, "/api/medicines/3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://img.example/c.png", gjson.Get(rec.Body.String(), "imageUrl").String())
	assert.Equal(t, 0.0, gjson.Get(rec.Body.String(), "price").Float())

	rec = env.do(t, http.MethodGet, "/api/medicines/99")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "REQ002", gjson.Get(rec.Body.String(), "code").String())
}

func TestFacetsAndStatus(t *testing.T) {
	env := newTestEnv(t, testConfig())

	rec := env.do(t, http.MethodGet, "/api/facets")
	require.Equal(t, http.StatusOK, rec.Code)
	var facets catalog.Facets
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &facets))
	assert.Equal(t, []string{"Analgesic", "Antibiotic", "Antihistamine"}, facets.Categories)
	assert.Equal(t, []string{"GSK", "Sun"}, facets.Manufacturers)

	rec = env.do(t, http.MethodGet, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, "ready", gjson.Get(body, "state").String())
	assert.Equal(t, "network", gjson.Get(body, "source").String())
	assert.False(t, gjson.Get(body, "loading").Bool())
	assert.True(t, gjson.Get(body, "lastUpdated").Exists())
}

func TestAdminMappingAndRaw(t *testing.T) {
	env := newTestEnv(t, testConfig())

	rec := env.do(t, http.MethodGet, "/api/admin/mapping")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, "Product Name", gjson.Get(body, `entries.#(field=="name").header`).String())
	assert.Equal(t, "MRP", gjson.Get(body, `entries.#(field=="price").header`).String())
	assert.Equal(t, "", gjson.Get(body, `entries.#(field=="dosage").header`).String())
	assert.Equal(t, `["Notes"]`, gjson.Get(body, "unmapped").Raw)

	rec = env.do(t, http.MethodGet, "/api/admin/raw?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	assert.Equal(t, int64(2), gjson.Get(body, "rows.#").Int())
	assert.Equal(t, "Paracetamol", gjson.Get(body, "rows.0.Product Name").String())
	assert.Equal(t, "abc", gjson.Get(body, `warnings.#(field=="price").value`).String())
	assert.Equal(t, int64(3), gjson.Get(body, `warnings.#(field=="price").row`).Int())
}

func TestReload(t *testing.T) {
	env := newTestEnv(t, testConfig())
	require.Equal(t, 1, env.fetcher.Calls())

	rec := env.do(t, http.MethodPost, "/api/admin/reload")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", gjson.Get(rec.Body.String(), "state").String())
	assert.Equal(t, 2, env.fetcher.Calls())

	env.fetcher.fail(&core.NetworkError{StatusCode: 503, Status: "503 Service Unavailable"})
	rec = env.do(t, http.MethodPost, "/api/admin/reload")
	require.Equal(t, http.StatusBadGateway, rec.Code)

	body := rec.Body.String()
	assert.Equal(t, "NET002", gjson.Get(body, "code").String())
	assert.Equal(t, "failed", gjson.Get(body, "status.state").String())
	assert.Equal(t, int64(3), gjson.Get(body, "status.count").Int(), "last good catalog is still served")

	rec = env.do(t, http.MethodGet, "/api/medicines")
	assert.Len(t, itemIDs(rec.Body.String()), 3)
}

func TestReload_Timeout(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.fetcher.fail(&core.NetworkError{Err: context.DeadlineExceeded})

	rec := env.do(t, http.MethodPost, "/api/admin/reload")
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, "NET003", gjson.Get(rec.Body.String(), "code").String())
}

func TestInvalidate(t *testing.T) {
	env := newTestEnv(t, testConfig())
	_, err := env.store.Load(context.Background())
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/api/admin/invalidate")
	require.Equal(t, http.StatusOK, rec.Code)

	_, err = env.store.Load(context.Background())
	assert.ErrorIs(t, err, snapshot.ErrNotFound)
	assert.Equal(t, 1, env.fetcher.Calls(), "invalidate does not fetch")
	assert.Len(t, env.service.Medicines(), 3)
}

func TestExport(t *testing.T) {
	env := newTestEnv(t, testConfig())

	rec := env.do(t, http.MethodGet, "/api/export?format=csv&category=Analgesic")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".csv")

	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Paracetamol", records[1][1])

	rec = env.do(t, http.MethodGet, "/api/export?format=xlsx")
	require.Equal(t, http.StatusOK, rec.Code)
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Medicines")
	require.NoError(t, err)
	assert.Len(t, rows, 4)

	rec = env.do(t, http.MethodGet, "/api/export?format=pdf")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "REQ002", gjson.Get(rec.Body.String(), "code").String())
}

func TestAdminPage(t *testing.T) {
	env := newTestEnv(t, testConfig())

	rec := env.do(t, http.MethodGet, "/admin")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	html := rec.Body.String()
	assert.Contains(t, html, "Header mapping")
	assert.Contains(t, html, "Product Name")
	assert.Contains(t, html, "&lt;b&gt;bold&lt;/b&gt;")
	assert.NotContains(t, html, "<b>bold</b>")
	assert.Contains(t, html, "not a number")
	assert.Equal(t, 1, strings.Count(html, "(&#34;abc&#34;)"), "warning value rendered once")
}

func TestAdminPage_ShowsFailure(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.fetcher.fail(errors.New("dial tcp: connection refused"))
	require.Error(t, env.service.FetchNow(context.Background()))

	html := env.do(t, http.MethodGet, "/admin").Body.String()
	assert.Contains(t, html, "NET001")
	assert.Contains(t, html, "Unable to reach the catalog feed")
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t, testConfig())
	rec := env.do(t, http.MethodGet, "/healthz")

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))

	cfg := testConfig()
	cfg.Security.EnableCSP = false
	rec = newTestEnv(t, cfg).do(t, http.MethodGet, "/healthz")
	assert.Empty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, ReloadLimit: 1}
	env := newTestEnv(t, cfg)

	rec := env.do(t, http.MethodPost, "/api/admin/reload")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/admin/reload")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE001", gjson.Get(rec.Body.String(), "code").String())
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// Reads have their own budget.
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/status").Code)
}

func TestRateLimiter_Window(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	rl := newRateLimiter(2, time.Minute)
	defer rl.stop()
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("a"))
	assert.True(t, rl.allow("a"))
	assert.False(t, rl.allow("a"))
	assert.True(t, rl.allow("b"), "limits are per client")

	now = now.Add(time.Minute + time.Second)
	assert.True(t, rl.allow("a"), "a new window resets the budget")
}

func TestStatusStream(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ts := httptest.NewServer(env.server.Router())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/status/stream", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan string, 10)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			if data, ok := strings.CutPrefix(sc.Text(), "data: "); ok {
				events <- data
			}
		}
	}()

	next := func() string {
		select {
		case e := <-events:
			return e
		case <-ctx.Done():
			t.Fatal("timed out waiting for status event")
			return ""
		}
	}

	assert.Equal(t, "ready", gjson.Get(next(), "state").String(), "current status comes first")

	require.NoError(t, env.service.FetchNow(context.Background()))
	assert.Equal(t, "loading", gjson.Get(next(), "state").String())
	assert.Equal(t, "ready", gjson.Get(next(), "state").String())
}

func TestHTTPServerUsesConfiguredTimeouts(t *testing.T) {
	cfg := testConfig()
	cfg.Server.ReadTimeout = 7 * time.Second
	cfg.Server.WriteTimeout = 9 * time.Second
	cfg.Server.IdleTimeout = 11 * time.Second

	hs := newTestEnv(t, cfg).server.httpServer()
	assert.Equal(t, ":8080", hs.Addr)
	assert.Equal(t, 7*time.Second, hs.ReadTimeout)
	assert.Equal(t, 9*time.Second, hs.WriteTimeout)
	assert.Equal(t, 11*time.Second, hs.IdleTimeout)
}

func TestStatusStream_OutlivesWriteTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Server.WriteTimeout = 100 * time.Millisecond
	env := newTestEnv(t, cfg)

	ts := httptest.NewUnstartedServer(env.server.Router())
	ts.Config = env.server.httpServer()
	ts.Start()
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/status/stream", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	events := make(chan string, 10)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			if data, ok := strings.CutPrefix(sc.Text(), "data: "); ok {
				events <- data
			}
		}
		close(events)
	}()

	next := func() string {
		select {
		case e, ok := <-events:
			if !ok {
				t.Fatal("stream closed early")
			}
			return e
		case <-ctx.Done():
			t.Fatal("timed out waiting for status event")
			return ""
		}
	}

	assert.Equal(t, "ready", gjson.Get(next(), "state").String())

	time.Sleep(3 * cfg.Server.WriteTimeout)
	require.NoError(t, env.service.FetchNow(context.Background()))
	assert.Equal(t, "loading", gjson.Get(next(), "state").String())
}
