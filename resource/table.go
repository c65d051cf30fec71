package resource

import (
	"github.com/netsimio/simbridge/errors"
)

// Handle is an opaque reference to a native object in a table.
// Handle 0 is reserved and always invalid.
type Handle uint64

// Kind tags the resource kind an entry belongs to. Resolving a handle under
// the wrong kind fails the same way as a never-allocated handle.
type Kind uint8

const (
	KindNode Kind = iota + 1
	KindDevice
	KindApp
	KindFlowMonitor
)

// String returns the kind name used in error messages.
func (k Kind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindDevice:
		return "device"
	case KindApp:
		return "application"
	case KindFlowMonitor:
		return "flow monitor"
	default:
		return "unknown"
	}
}

type entry struct {
	ref  uint64
	kind Kind
}

// Table maps handles to native object references for one session.
type Table struct {
	entries map[Handle]entry
	next    uint64
}

// NewTable creates an empty handle table.
func NewTable() *Table {
	return &Table{
		entries: make(map[Handle]entry, 16),
	}
}

// Allocate inserts a native reference under a freshly incremented id.
// Freed ids are never revisited.
func (t *Table) Allocate(kind Kind, ref uint64) Handle {
	t.next++
	h := Handle(t.next)
	t.entries[h] = entry{ref: ref, kind: kind}
	return h
}

// Resolve returns the native reference for a handle, or an invalid-handle
// error when the handle is zero, was never allocated by this table, or was
// allocated under a different kind. It never dereferences a missing mapping.
func (t *Table) Resolve(h Handle, kind Kind) (uint64, error) {
	if h == 0 {
		return 0, errors.InvalidHandle(kind.String(), uint64(h))
	}
	e, ok := t.entries[h]
	if !ok || e.kind != kind {
		return 0, errors.InvalidHandle(kind.String(), uint64(h))
	}
	return e.ref, nil
}

// ResolveMany resolves a slice of handles of one kind, failing on the first miss.
func (t *Table) ResolveMany(hs []Handle, kind Kind) ([]uint64, error) {
	refs := make([]uint64, len(hs))
	for i, h := range hs {
		ref, err := t.Resolve(h, kind)
		if err != nil {
			return nil, err
		}
		refs[i] = ref
	}
	return refs, nil
}

// Len returns the number of live entries.
func (t *Table) Len() int {
	return len(t.entries)
}

// Teardown drops every entry at once. The id counter is not reset, so handles
// minted after a teardown still never collide with earlier ones.
func (t *Table) Teardown() {
	t.entries = make(map[Handle]entry)
}
