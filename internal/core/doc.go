// Package core owns the medicine catalog at runtime.
//
// The [Service] fetches the spreadsheet feed, runs it through the gviz and
// catalog packages, and caches the result both in memory and in a
// [snapshot.Store]. Its lifecycle is a small state machine:
//
//	Idle → Loading → Ready
//	               → Failed
//
// A fresh persisted snapshot is adopted on [Service.Start] without touching
// the network. A failed fetch falls back to the persisted snapshot, even a
// stale one, so readers keep seeing last-known-good data next to the error.
//
// # Error Handling
//
// Fetch errors are mapped to user-facing messages with [MapError]. Codes are
// grouped by concern:
//
//   - GVZ001-GVZ002: feed format errors
//   - NET001-NET003: network, upstream status and timeout errors
//   - CACHE001: snapshot storage errors
//
// # Refresh Scheduling
//
// [Service.StartRefreshScheduler] re-fetches whenever the cached catalog
// outlives its TTL.
package core
