package resource

import (
	"strings"
	"testing"
)

func TestTable_AllocateResolve(t *testing.T) {
	table := NewTable()

	h := table.Allocate(KindNode, 42)
	if h == 0 {
		t.Fatal("expected non-zero handle")
	}

	ref, err := table.Resolve(h, KindNode)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if ref != 42 {
		t.Fatalf("expected ref 42, got %d", ref)
	}
}

func TestTable_ZeroHandleInvalid(t *testing.T) {
	table := NewTable()

	_, err := table.Resolve(0, KindNode)
	if err == nil {
		t.Fatal("expected error for zero handle")
	}
	if !strings.Contains(err.Error(), "invalid") {
		t.Fatalf("expected 'invalid' in error, got: %v", err)
	}
}

func TestTable_NeverAllocatedHandle(t *testing.T) {
	table := NewTable()
	table.Allocate(KindNode, 1)
	table.Allocate(KindNode, 2)

	_, err := table.Resolve(999, KindNode)
	if err == nil {
		t.Fatal("expected error for never-allocated handle")
	}
	if !strings.Contains(err.Error(), "invalid") {
		t.Fatalf("expected 'invalid' in error, got: %v", err)
	}
}

func TestTable_KindMismatch(t *testing.T) {
	table := NewTable()

	h := table.Allocate(KindDevice, 7)
	if _, err := table.Resolve(h, KindApp); err == nil {
		t.Fatal("expected error resolving device handle as application")
	}
}

func TestTable_MonotonicNoReuse(t *testing.T) {
	table := NewTable()

	seen := make(map[Handle]bool)
	for i := 0; i < 100; i++ {
		h := table.Allocate(KindNode, uint64(i))
		if seen[h] {
			t.Fatalf("handle %d minted twice", h)
		}
		seen[h] = true

		if i == 50 {
			table.Teardown()
		}
	}
	if table.Len() != 49 {
		t.Fatalf("expected 49 live entries, got %d", table.Len())
	}
}

func TestTable_HandlesUniqueAcrossKinds(t *testing.T) {
	table := NewTable()

	a := table.Allocate(KindNode, 1)
	b := table.Allocate(KindDevice, 1)
	c := table.Allocate(KindApp, 1)
	if a == b || b == c || a == c {
		t.Fatalf("handles collide across kinds: %d %d %d", a, b, c)
	}
}

func TestTable_TeardownInvalidatesAll(t *testing.T) {
	table := NewTable()

	h := table.Allocate(KindFlowMonitor, 3)
	table.Teardown()

	if _, err := table.Resolve(h, KindFlowMonitor); err == nil {
		t.Fatal("expected error after teardown")
	}
	if table.Len() != 0 {
		t.Fatalf("expected empty table, got %d entries", table.Len())
	}
}

func TestTable_ResolveMany(t *testing.T) {
	table := NewTable()

	hs := []Handle{
		table.Allocate(KindNode, 10),
		table.Allocate(KindNode, 11),
	}
	refs, err := table.ResolveMany(hs, KindNode)
	if err != nil {
		t.Fatalf("ResolveMany failed: %v", err)
	}
	if refs[0] != 10 || refs[1] != 11 {
		t.Fatalf("wrong refs: %v", refs)
	}

	if _, err := table.ResolveMany([]Handle{hs[0], 999}, KindNode); err == nil {
		t.Fatal("expected error on bad handle in slice")
	}
}
