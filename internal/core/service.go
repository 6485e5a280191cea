package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/JonMunkholm/catalog/internal/gviz"
	"github.com/JonMunkholm/catalog/internal/logging"
	"github.com/JonMunkholm/catalog/internal/snapshot"
)

// Defaults for Options.
const (
	DefaultTTL          = time.Hour
	DefaultFetchTimeout = 15 * time.Second
)

const fetchKey = "catalog"

// State is the cache lifecycle state.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

// Source says where the current catalog view came from.
type Source string

const (
	SourceNone     Source = ""
	SourceNetwork  Source = "network"
	SourceCache    Source = "cache"
	SourceFallback Source = "fallback"
)

// Status is the observable state of the catalog.
type Status struct {
	State       State     `json:"state"`
	Loading     bool      `json:"loading"`
	Error       string    `json:"error,omitempty"`
	ErrorCode   string    `json:"errorCode,omitempty"`
	Message     string    `json:"message,omitempty"` // User-facing text for Error
	LastUpdated time.Time `json:"lastUpdated,omitzero"`
	Count       int       `json:"count"`
	Source      Source    `json:"source,omitempty"`
	FetchID     string    `json:"fetchId,omitempty"`
}

// Options tune a Service. Zero fields take defaults.
type Options struct {
	TTL          time.Duration
	FetchTimeout time.Duration
	Now          func() time.Time
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = DefaultFetchTimeout
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// view is one complete, immutable catalog. The Service swaps whole views.
type view struct {
	meds      []catalog.Medicine
	byID      map[string]int
	mapping   catalog.HeaderMapping
	timestamp time.Time
	source    Source
}

func newView(meds []catalog.Medicine, mapping catalog.HeaderMapping, ts time.Time, src Source) *view {
	byID := make(map[string]int, len(meds))
	for i, m := range meds {
		if _, dup := byID[m.ID]; !dup {
			byID[m.ID] = i
		}
	}
	return &view{meds: meds, byID: byID, mapping: mapping, timestamp: ts, source: src}
}

// Service owns the catalog: it fetches, normalizes and caches the sheet and
// serves the current view to readers.
//
// Readers always see either the previous complete catalog or the next one.
// Fetches are de-duplicated: callers arriving while a fetch is in flight wait
// for that fetch instead of starting another.
type Service struct {
	fetcher Fetcher
	store   snapshot.Store
	opts    Options
	group   singleflight.Group

	mu      sync.RWMutex
	view    *view
	state   State
	lastErr error
	fetchID string

	listenerMu sync.Mutex
	listeners  map[chan Status]struct{}
}

// NewService creates a Service in the Idle state.
func NewService(fetcher Fetcher, store snapshot.Store, opts Options) *Service {
	if store == nil {
		store = snapshot.NewMemoryStore()
	}
	return &Service{
		fetcher:   fetcher,
		store:     store,
		opts:      opts.withDefaults(),
		state:     StateIdle,
		listeners: make(map[chan Status]struct{}),
	}
}

// TTL returns the snapshot time-to-live.
func (s *Service) TTL() time.Duration {
	return s.opts.TTL
}

// Start adopts a fresh persisted snapshot or, failing that, fetches.
func (s *Service) Start(ctx context.Context) error {
	log := logging.FromContext(ctx)
	snap, err := s.store.Load(ctx)
	switch {
	case err == nil && snap.Fresh(s.opts.Now(), s.opts.TTL):
		s.adopt(snap, SourceCache, StateReady, nil)
		log.Info("catalog loaded from cache",
			"medicines", len(snap.Data),
			"age", s.opts.Now().Sub(snap.Timestamp).Round(time.Second).String(),
		)
		return nil
	case err == nil:
		log.Info("cached catalog is stale, fetching", "snapshot_time", snap.Timestamp)
	case !errors.Is(err, snapshot.ErrNotFound):
		log.Warn("cached catalog unreadable, fetching", "error", err)
	}
	return s.fetch(ctx)
}

// Refresh discards the persisted snapshot and fetches.
func (s *Service) Refresh(ctx context.Context) error {
	if err := s.Invalidate(ctx); err != nil {
		logging.FromContext(ctx).Warn("invalidate before refresh failed", "error", err)
	}
	return s.fetch(ctx)
}

// FetchNow fetches without touching the persisted snapshot first.
func (s *Service) FetchNow(ctx context.Context) error {
	return s.fetch(ctx)
}

// EnsureFresh fetches only when the current view is missing, older than
// the TTL, or stamped in the future.
func (s *Service) EnsureFresh(ctx context.Context) error {
	s.mu.RLock()
	v, state := s.view, s.state
	s.mu.RUnlock()

	if state == StateLoading {
		return nil
	}
	if v != nil {
		if age := s.opts.Now().Sub(v.timestamp); age >= 0 && age < s.opts.TTL {
			return nil
		}
	}
	return s.fetch(ctx)
}

// Invalidate deletes the persisted snapshot. The in-memory catalog is kept
// and no fetch is started.
func (s *Service) Invalidate(ctx context.Context) error {
	if err := s.store.Delete(ctx); err != nil {
		return fmt.Errorf("invalidate snapshot: %w", err)
	}
	logging.FromContext(ctx).Info("catalog cache invalidated")
	return nil
}

// fetch joins or starts the single in-flight fetch. The fetch itself is not
// bound to ctx: a caller that gives up stops waiting, the fetch continues.
func (s *Service) fetch(ctx context.Context) error {
	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(fetchKey, func() (any, error) {
		return nil, s.runFetch(detached)
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (s *Service) runFetch(ctx context.Context) error {
	fetchID := uuid.NewString()
	log := logging.WithFields(ctx, "fetch_id", fetchID)

	s.mu.Lock()
	s.state = StateLoading
	s.fetchID = fetchID
	s.mu.Unlock()
	s.broadcast()

	fctx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	defer cancel()

	start := time.Now()
	log.Info("catalog fetch started")

	v, headers, err := s.load(fctx)
	if err != nil {
		log.Error("catalog fetch failed",
			"error", err,
			"code", MapError(err).Code,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		s.fail(ctx, err)
		return err
	}

	snap := &snapshot.Snapshot{Timestamp: v.timestamp, Headers: headers, Data: v.meds}
	if err := s.store.Save(ctx, snap); err != nil {
		log.Warn("persist catalog snapshot failed", "error", err)
	}

	s.mu.Lock()
	s.view = v
	s.state = StateReady
	s.lastErr = nil
	s.mu.Unlock()
	s.broadcast()

	log.Info("catalog fetch completed",
		"medicines", len(v.meds),
		"mapped_fields", v.mapping.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// load runs the fetch pipeline and builds a complete view.
func (s *Service) load(ctx context.Context) (*view, []string, error) {
	body, err := s.fetcher.Fetch(ctx)
	if err != nil {
		var netErr *NetworkError
		if !errors.As(err, &netErr) && errors.Is(err, context.DeadlineExceeded) {
			err = &NetworkError{Err: err}
		}
		return nil, nil, err
	}

	resp, err := gviz.Parse(body)
	if err != nil {
		return nil, nil, err
	}
	proj, err := gviz.Project(resp)
	if err != nil {
		return nil, nil, err
	}

	mapping := catalog.Reconcile(proj.Headers)
	meds := catalog.NormalizeAll(proj.Rows, mapping)

	// Millisecond precision matches what the snapshot stores.
	ts := time.UnixMilli(s.opts.Now().UnixMilli()).UTC()
	return newView(meds, mapping, ts, SourceNetwork), proj.Headers, nil
}

// fail records err and falls back to the persisted snapshot, stale or not.
// A snapshot older than the current view is ignored.
func (s *Service) fail(ctx context.Context, err error) {
	s.mu.Lock()
	s.state = StateFailed
	s.lastErr = err
	current := s.view
	s.mu.Unlock()

	snap, lerr := s.store.Load(ctx)
	switch {
	case lerr == nil && (current == nil || !snap.Timestamp.Before(current.timestamp)):
		s.adopt(snap, SourceFallback, StateFailed, err)
		logging.FromContext(ctx).Warn("showing last cached catalog after fetch failure",
			"medicines", len(snap.Data),
			"snapshot_time", snap.Timestamp,
		)
		return
	case lerr != nil && !errors.Is(lerr, snapshot.ErrNotFound):
		logging.FromContext(ctx).Warn("fallback snapshot unreadable", "error", lerr)
	}
	s.broadcast()
}

// adopt installs a persisted snapshot as the current view.
func (s *Service) adopt(snap *snapshot.Snapshot, src Source, state State, err error) {
	v := newView(snap.Data, catalog.Reconcile(snapshotHeaders(snap)), snap.Timestamp, src)

	s.mu.Lock()
	s.view = v
	s.state = state
	s.lastErr = err
	s.mu.Unlock()
	s.broadcast()
}

// snapshotHeaders returns the stored header list, or the sorted keys of the
// first raw row for snapshots written without one.
func snapshotHeaders(snap *snapshot.Snapshot) []string {
	if len(snap.Headers) > 0 || len(snap.Data) == 0 {
		return snap.Headers
	}
	keys := make([]string, 0, len(snap.Data[0].Raw))
	for k := range snap.Data[0].Raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Medicines returns the current catalog. The slice is shared; do not modify it.
func (s *Service) Medicines() []catalog.Medicine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.view == nil {
		return []catalog.Medicine{}
	}
	return s.view.meds[:len(s.view.meds):len(s.view.meds)]
}

// Medicine returns the first medicine with id.
func (s *Service) Medicine(id string) (catalog.Medicine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.view == nil {
		return catalog.Medicine{}, false
	}
	i, ok := s.view.byID[id]
	if !ok {
		return catalog.Medicine{}, false
	}
	return s.view.meds[i], true
}

// Status returns the current status.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statusLocked()
}

func (s *Service) statusLocked() Status {
	st := Status{
		State:   s.state,
		Loading: s.state == StateLoading,
		FetchID: s.fetchID,
	}
	if s.lastErr != nil {
		msg := MapError(s.lastErr)
		st.Error = s.lastErr.Error()
		st.ErrorCode = msg.Code
		st.Message = msg.Message
	}
	if s.view != nil {
		st.LastUpdated = s.view.timestamp
		st.Count = len(s.view.meds)
		st.Source = s.view.source
	}
	return st
}

// HeaderMapping returns the mapping the current catalog was built with.
func (s *Service) HeaderMapping() catalog.HeaderMapping {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.view == nil {
		return catalog.Reconcile(nil)
	}
	return s.view.mapping
}

// RawPreview returns up to n source rows of the current catalog.
func (s *Service) RawPreview(n int) []catalog.Row {
	meds := s.Medicines()
	if n > len(meds) {
		n = len(meds)
	}
	if n < 0 {
		n = 0
	}
	rows := make([]catalog.Row, n)
	for i := range rows {
		rows[i] = meds[i].Raw
	}
	return rows
}

// Warnings inspects the current catalog's source rows, stopping at limit
// warnings when limit > 0.
func (s *Service) Warnings(limit int) []catalog.Warning {
	s.mu.RLock()
	v := s.view
	s.mu.RUnlock()
	if v == nil {
		return nil
	}

	rows := make([]catalog.Row, len(v.meds))
	for i, m := range v.meds {
		rows[i] = m.Raw
	}
	return catalog.InspectAll(rows, v.mapping, limit)
}

// Subscribe returns a channel of status changes and a function that ends the
// subscription. The current status is delivered first. Slow subscribers miss
// updates rather than block the Service.
func (s *Service) Subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 10)

	s.listenerMu.Lock()
	s.listeners[ch] = struct{}{}
	select {
	case ch <- s.Status():
	default:
	}
	s.listenerMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.listenerMu.Lock()
			delete(s.listeners, ch)
			close(ch)
			s.listenerMu.Unlock()
		})
	}
}

func (s *Service) broadcast() {
	st := s.Status()

	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	for ch := range s.listeners {
		select {
		case ch <- st:
		default:
		}
	}
}
