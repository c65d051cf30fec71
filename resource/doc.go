// Package resource implements the session-scoped handle table.
//
// A handle is an opaque, session-scoped identifier standing in for a native
// object reference (the arena+index pattern: the table is the arena, the
// handle is the index). Handles are minted from a single monotonic counter
// shared by all resource kinds, so within one session no two live handles are
// ever equal and no handle is ever reused, which rules out stale-handle
// aliasing.
//
// The table supports no per-resource removal: entries vanish only on bulk
// Teardown when the owning session is destroyed. Partial teardown is a
// deliberate non-goal.
//
// Tables are single-threaded by construction: a session and everything under
// it belong to one goroutine, so the table takes no locks.
package resource
