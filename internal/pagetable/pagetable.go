// Package pagetable implements Sv39 three-level page tables: walking,
// mapping, and translating virtual addresses, plus the SATP encoding that
// activates a table on the MMU. Grounded on the teacher kernel's
// Pmap_t/Pmap_walk family in mem/mem.go and mem/dmap.go, adapted from a
// four-level x86 style table to RISC-V's fixed three levels.
package pagetable

import (
	"rv6/internal/addr"
	"rv6/internal/kerrors"
	"rv6/internal/layout"
	"rv6/internal/physmem"
)

// satpModeSv39 is the SATP.MODE value selecting the Sv39 addressing scheme.
const satpModeSv39 = 8

// SATPWriter is the seam between a Table and the CSR it ultimately programs.
// On real hardware, Activate would execute `csrw satp, x` followed by
// `sfence.vma`; there is no CSR to write under `go test`, so production code
// supplies a writer that does that and tests supply one that just records
// the value.
type SATPWriter interface {
	WriteSATP(satp uint64)
}

// Table is one Sv39 address space's root page table. A Table owns every
// interior page-table frame it allocates while walking; it does not own
// the leaf data frames its entries point at, since those frames' lifetime
// is the owning kspace/uspace address space's to manage.
type Table struct {
	alloc *physmem.Allocator
	mem   *physmem.Memory

	rootFrame *physmem.Frame
	root      addr.Addr

	interior []*physmem.Frame
}

// New allocates a fresh, zeroed root table.
func New(alloc *physmem.Allocator) (*Table, error) {
	f, err := alloc.AllocZeroed()
	if err != nil {
		return nil, err
	}
	return &Table{
		alloc:     alloc,
		mem:       alloc.Mem,
		rootFrame: f,
		root:      f.PA(),
	}, nil
}

// Root returns the physical address of the table's root frame.
func (t *Table) Root() addr.Addr { return t.root }

// walk descends the three Sv39 levels for va, returning a pointer to the
// level-0 (leaf) entry. When allocate is true, missing interior tables are
// created along the way; when false, a missing interior table yields
// ErrUnmapped instead.
func (t *Table) walk(va addr.Addr, allocate bool) (*addr.PTE, error) {
	idx := va.Indexes()
	pa := t.root
	for level := 0; level < 2; level++ {
		ptes := t.mem.PTEs(pa)
		pte := &ptes[idx[level]]
		if !pte.Valid() {
			if !allocate {
				return nil, kerrors.ErrUnmapped
			}
			f, err := t.alloc.AllocZeroed()
			if err != nil {
				return nil, err
			}
			t.interior = append(t.interior, f)
			*pte = addr.NewPTE(f.PA(), addr.FlagV)
		} else if pte.Leaf() {
			return nil, kerrors.ErrHugePage
		}
		pa = pte.PA()
	}
	ptes := t.mem.PTEs(pa)
	return &ptes[idx[2]], nil
}

// Map installs a single-page leaf mapping from va to pa with the given
// permission flags. FlagV is set automatically. Mapping an already-valid
// va is a programming error and panics with ErrDoubleMap — callers that
// want to replace a mapping must Unmap first.
func (t *Table) Map(va, pa addr.Addr, flags addr.Flags) error {
	if !va.Aligned() || !pa.Aligned() {
		panic("pagetable: Map requires page-aligned addresses")
	}
	if va.Uint64() > layout.MaxVA || pa.Uint64() > layout.MaxPA {
		panic("pagetable: Map address outside the Sv39 range")
	}
	pte, err := t.walk(va, true)
	if err != nil {
		return err
	}
	if pte.Valid() {
		panic(kerrors.ErrDoubleMap)
	}
	*pte = addr.NewPTE(pa, flags|addr.FlagV)
	return nil
}

// MapRange maps n consecutive pages starting at va to n consecutive pages
// starting at pa, stopping at the first error (any already-mapped pages up
// to that point remain mapped — callers that need all-or-nothing should
// Close the whole table on failure).
func (t *Table) MapRange(va, pa addr.Addr, n uint64, flags addr.Flags) error {
	for i := uint64(0); i < n; i++ {
		off := i * layout.PGSIZE
		if err := t.Map(va.Add(off), pa.Add(off), flags); err != nil {
			return err
		}
	}
	return nil
}

// Unmap clears the leaf entry for va. It is not an error to Unmap an
// already-unmapped page.
func (t *Table) Unmap(va addr.Addr) error {
	pte, err := t.walk(va, false)
	if err != nil {
		if err == kerrors.ErrUnmapped {
			return nil
		}
		return err
	}
	*pte = 0
	return nil
}

// Translate resolves va to the physical address it currently maps to,
// including va's in-page offset. When user is true, the caller is
// translating on a user task's behalf (e.g. copying a syscall buffer out
// of its address space) and the leaf must carry U — a valid but kernel-only
// mapping (no U, e.g. a task's own trap frame) is ErrPermission, not a
// usable translation, exactly as a real MMU walk with SUM clear would fault.
func (t *Table) Translate(va addr.Addr, user bool) (addr.Addr, error) {
	pte, err := t.walk(va, false)
	if err != nil {
		return 0, err
	}
	if !pte.Valid() {
		return 0, kerrors.ErrUnmapped
	}
	if user && !pte.User() {
		return 0, kerrors.ErrPermission
	}
	return pte.PA().Add(va.PageOffset()), nil
}

// MakeSATP encodes this table's root as an Sv39 SATP value.
func (t *Table) MakeSATP() uint64 {
	return uint64(satpModeSv39)<<60 | t.root.PPN()
}

// Activate programs w with this table's SATP value. Real hardware needs an
// `sfence.vma` on either side of the CSR write to flush stale TLB entries
// and ensure the page-table writes that built this table are visible
// before instruction fetch starts using it; that is the writer's
// responsibility. The writers in this module (cmd/kernel's no-op writer
// and the tests' recording writer) touch no CSR and issue no fence.
func (t *Table) Activate(w SATPWriter) {
	w.WriteSATP(t.MakeSATP())
}

// Close frees every interior page-table frame this table owns, including
// its root. It does not touch leaf data frames.
func (t *Table) Close() {
	for _, f := range t.interior {
		f.Free()
	}
	t.interior = nil
	t.rootFrame.Free()
}
