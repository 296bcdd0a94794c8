package kspace

import (
	"testing"

	"rv6/internal/addr"
	"rv6/internal/layout"
	"rv6/internal/physmem"
)

func newTestAllocator(npages uint64) *physmem.Allocator {
	mem := &physmem.Memory{}
	start := addr.New(layout.KernelBase)
	end := start.Add(npages * layout.PGSIZE)
	return physmem.Init(mem, start, end)
}

func TestNewMapsIdentityTrampolineAndStacks(t *testing.T) {
	alloc := newTestAllocator(4096)
	sp, err := New(alloc)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sp.Close()

	start, _ := alloc.Range()
	pa, err := sp.Table.Translate(start, false)
	if err != nil {
		t.Fatalf("identity-map Translate: %v", err)
	}
	if pa != start {
		t.Errorf("identity map of %#x resolved to %#x", start, pa)
	}

	if _, err := sp.Table.Translate(addr.New(layout.Trampoline), false); err != nil {
		t.Errorf("trampoline not mapped: %v", err)
	}
	if sp.TrampolinePA() == 0 {
		t.Error("TrampolinePA() is zero")
	}

	for id := 0; id < 3; id++ {
		lo, hi := layout.KernelStackID(id)
		if _, err := sp.Table.Translate(addr.New(lo), false); err != nil {
			t.Errorf("stack %d bottom not mapped: %v", id, err)
		}
		if _, err := sp.Table.Translate(addr.New(hi - 1), false); err != nil {
			t.Errorf("stack %d top not mapped: %v", id, err)
		}
		if KernelStackTop(id) != hi {
			t.Errorf("KernelStackTop(%d) = %#x, want %#x", id, KernelStackTop(id), hi)
		}
	}
}

func TestKernelStacksHaveGuardPages(t *testing.T) {
	alloc := newTestAllocator(4096)
	sp, err := New(alloc)
	if err != nil {
		t.Fatal(err)
	}
	defer sp.Close()

	_, hi0 := layout.KernelStackID(0)
	lo1, _ := layout.KernelStackID(1)
	if lo1 >= hi0 {
		t.Fatalf("stack 1 (lo=%#x) should sit below stack 0 (hi=%#x)", lo1, hi0)
	}
	// Stack 0's guard page is the page directly above it, starting at hi0
	// — confirm it is not mapped.
	guardVA := addr.New(hi0)
	if _, err := sp.Table.Translate(guardVA, false); err == nil {
		t.Error("expected guard page above stack 0 to be unmapped")
	}
}
