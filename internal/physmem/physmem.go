// Package physmem is the physical frame allocator and the physical memory
// it hands frames out of. There is no real RAM under `go test`, so Memory
// backs every physical address with a lazily-created 4 KiB array keyed by
// the page-aligned address — the same role the teacher kernel's direct map
// (mem.Physmem.Dmap) plays, just realized as a sparse map instead of an
// eagerly-reserved virtual window, since this module has no MMU of its own
// to map through.
package physmem

import (
	"unsafe"

	"rv6/internal/addr"
	"rv6/internal/kerrors"
	"rv6/internal/layout"
)

// Memory is the backing store for all of physical memory this kernel
// manages. The zero value is ready to use.
type Memory struct {
	pages map[uint64]*[layout.PGSIZE]byte
}

func (m *Memory) page(pa addr.Addr) *[layout.PGSIZE]byte {
	if m.pages == nil {
		m.pages = make(map[uint64]*[layout.PGSIZE]byte)
	}
	key := pa.AlignDown().Uint64()
	pg := m.pages[key]
	if pg == nil {
		pg = new([layout.PGSIZE]byte)
		m.pages[key] = pg
	}
	return pg
}

// Bytes returns the 4 KiB page containing pa as a byte slice.
func (m *Memory) Bytes(pa addr.Addr) []byte {
	return m.page(pa)[:]
}

// PTEs returns the 4 KiB page containing pa reinterpreted as 512 Sv39
// page-table entries, mirroring the teacher kernel's pg2pmap.
func (m *Memory) PTEs(pa addr.Addr) []addr.PTE {
	pg := m.page(pa)
	return (*[layout.PtesPerPage]addr.PTE)(unsafe.Pointer(pg))[:]
}

// Zero clears the page containing pa.
func (m *Memory) Zero(pa addr.Addr) {
	pg := m.page(pa)
	for i := range pg {
		pg[i] = 0
	}
}

// frameMeta is the per-frame allocator bookkeeping record. next is only
// meaningful while the frame sits on the free list.
type frameMeta struct {
	next uint32
}

const noNext = ^uint32(0)

// Frame is an owning ticket for one physical page. A Frame must not be
// copied after it is stored somewhere (the zero-value copy would let two
// owners both believe they hold the only handle); pass *Frame. Calling
// Free more than once panics rather than corrupting the allocator's free
// list.
type Frame struct {
	alloc *Allocator
	pa    addr.Addr
	idx   uint32
	freed bool
}

// PA returns the physical address of the frame this handle owns.
func (f *Frame) PA() addr.Addr { return f.pa }

// Free returns the frame to its allocator's free list.
func (f *Frame) Free() {
	if f.freed {
		panic("rv6: double free of physical frame")
	}
	f.freed = true
	f.alloc.free(f.idx)
}

// Allocator is a bump-then-freelist allocator over a fixed physical range,
// grounded on the teacher kernel's Physmem_t._phys_new/_phys_insert pair in
// mem/mem.go, collapsed to a single free list since this kernel never runs
// more than one hart.
type Allocator struct {
	Mem *Memory

	start addr.Addr
	end   addr.Addr

	frames   []frameMeta
	bumpNext uint32
	freeHead uint32
}

// Init constructs an allocator managing the page-aligned range [start, end).
func Init(mem *Memory, start, end addr.Addr) *Allocator {
	if !start.Aligned() || !end.Aligned() {
		panic("rv6: physmem range must be page aligned")
	}
	n := (end.Uint64() - start.Uint64()) / layout.PGSIZE
	return &Allocator{
		Mem:      mem,
		start:    start,
		end:      end,
		frames:   make([]frameMeta, n),
		bumpNext: 0,
		freeHead: noNext,
	}
}

// Alloc returns a new owning Frame, or ErrOutOfFrames if both the bump
// cursor and the free list are exhausted. The returned frame's contents
// are whatever was last written there — callers that need a zero page
// must call Zero themselves.
func (a *Allocator) Alloc() (*Frame, error) {
	var idx uint32
	if a.freeHead != noNext {
		idx = a.freeHead
		a.freeHead = a.frames[idx].next
	} else if uint64(a.bumpNext) < uint64(len(a.frames)) {
		idx = a.bumpNext
		a.bumpNext++
	} else {
		return nil, kerrors.ErrOutOfFrames
	}
	pa := a.start.Add(uint64(idx) * layout.PGSIZE)
	return &Frame{alloc: a, pa: pa, idx: idx}, nil
}

// AllocZeroed is Alloc followed by Zero, for callers (page-table interior
// frames, user PT_LOAD data frames) that require a clean page.
func (a *Allocator) AllocZeroed() (*Frame, error) {
	f, err := a.Alloc()
	if err != nil {
		return nil, err
	}
	a.Mem.Zero(f.pa)
	return f, nil
}

func (a *Allocator) free(idx uint32) {
	a.frames[idx].next = a.freeHead
	a.freeHead = idx
}

// Range reports the allocator's managed physical range, mainly for tests
// and diagnostics.
func (a *Allocator) Range() (start, end addr.Addr) { return a.start, a.end }
