// Package kspace builds the single kernel address space every task's trap
// entry switches into: an identity map over the physical memory this
// kernel manages, the one shared trampoline page, and one guarded kernel
// stack per task slot. Grounded on the original kernel's
// mem::kernel_space and the teacher kernel's Kpmap construction in
// mem/dmap.go, which takes the same "identity-map everything, carve the
// fixed high addresses out by hand" approach.
package kspace

import (
	"rv6/internal/addr"
	"rv6/internal/layout"
	"rv6/internal/pagetable"
	"rv6/internal/physmem"
)

// Space is the kernel's own address space.
type Space struct {
	Table *pagetable.Table

	alloc        *physmem.Allocator
	trampolinePA addr.Addr
	leaves       []*physmem.Frame
}

// New builds and returns a fresh kernel address space. It does not
// activate it; call Table.Activate once the caller is ready to switch.
func New(alloc *physmem.Allocator) (*Space, error) {
	t, err := pagetable.New(alloc)
	if err != nil {
		return nil, err
	}
	sp := &Space{Table: t, alloc: alloc}

	if err := sp.mapIdentity(); err != nil {
		sp.Close()
		return nil, err
	}
	if err := sp.mapTrampoline(); err != nil {
		sp.Close()
		return nil, err
	}
	if err := sp.mapKernelStacks(); err != nil {
		sp.Close()
		return nil, err
	}
	return sp, nil
}

// mapIdentity maps every physical page the allocator manages to the
// matching virtual address, globally and with full permissions. A real
// linked kernel image would split this into an RX text region and RW
// everything else using linker-provided section symbols; this module has
// no linker step, so the identity map is uniformly RWX (documented as an
// accepted simplification in DESIGN.md).
func (sp *Space) mapIdentity() error {
	start, end := sp.alloc.Range()
	n := (end.Uint64() - start.Uint64()) / layout.PGSIZE
	return sp.Table.MapRange(start, start, n, addr.FlagR|addr.FlagW|addr.FlagX|addr.FlagG)
}

// mapTrampoline allocates the single physical page backing the
// trampoline and maps it at its fixed high virtual address. TrampolinePA
// is later handed to uspace so every user address space maps the same
// physical page at the same address.
func (sp *Space) mapTrampoline() error {
	f, err := sp.alloc.AllocZeroed()
	if err != nil {
		return err
	}
	sp.leaves = append(sp.leaves, f)
	sp.trampolinePA = f.PA()
	return sp.Table.Map(addr.New(layout.Trampoline), f.PA(), addr.FlagR|addr.FlagX|addr.FlagG)
}

// mapKernelStacks allocates and maps one kernel stack per task slot, at
// the addresses layout.KernelStackID computes. The guard page below each
// stack is simply never mapped, so a kernel stack overflow walks off the
// mapped range and faults instead of silently corrupting the stack below.
func (sp *Space) mapKernelStacks() error {
	for id := 0; id < layout.MaxAppNum; id++ {
		lo, hi := layout.KernelStackID(id)
		for va := lo; va < hi; va += layout.PGSIZE {
			f, err := sp.alloc.AllocZeroed()
			if err != nil {
				return err
			}
			sp.leaves = append(sp.leaves, f)
			if err := sp.Table.Map(addr.New(va), f.PA(), addr.FlagR|addr.FlagW); err != nil {
				return err
			}
		}
	}
	return nil
}

// TrampolinePA returns the physical address backing the shared trampoline
// page, for uspace to map into user address spaces.
func (sp *Space) TrampolinePA() addr.Addr { return sp.trampolinePA }

// KernelStackTop returns the virtual address at which task id's kernel
// stack starts (its highest address, since the stack grows down from
// there) — the initial stack pointer a fresh task's Context is built with.
func KernelStackTop(id int) uint64 {
	_, hi := layout.KernelStackID(id)
	return hi
}

// Close frees every frame this address space owns: its page-table
// frames, the trampoline page, and all kernel stacks.
func (sp *Space) Close() {
	for _, f := range sp.leaves {
		f.Free()
	}
	sp.leaves = nil
	sp.Table.Close()
}
