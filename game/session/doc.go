// Package session tracks the live client connections of the grid hub.
//
// The session package implements:
//   - Thread-safe membership storage keyed by connection ID
//   - Join and last-activity timestamps per connection
//   - Idempotent removal
//   - Idle detection for stale connections
//
// Core Types:
//
// Registry is a generic set of entries. Entry pairs a connection handle with
// its metadata. The hub stores its Connection values here; the registry never
// sends anything itself.
//
// Usage:
//
//	reg := session.NewRegistry[hub.Connection](clockwork.NewRealClock())
//
//	if err := reg.Add(conn.ID(), conn); err != nil {
//		// duplicate ID
//	}
//
//	for _, e := range reg.List() {
//		e.Conn.Send(frame)
//	}
//
//	reg.Remove(conn.ID()) // safe to call twice
//
// Concurrency:
//
// All methods may be called from any goroutine. List returns a copy so callers
// can iterate while others add or remove entries.
package session
