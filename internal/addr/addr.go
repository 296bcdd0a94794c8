// Package addr provides the typed address and page-table-entry primitives
// the rest of the kernel builds on: a raw-integer wrapper that knows how to
// align itself and decompose into Sv39 page-table indices, and the PTE bit
// layout those indices ultimately select.
//
// The type does not distinguish virtual from physical addresses, by
// design — the page-table walker treats a raw number as virtual when
// walking and as physical when it names a frame; keeping one type for both
// mirrors the teacher kernel's own Pa_t-for-everything convention in
// mem/mem.go.
package addr

import "rv6/internal/layout"

// Addr is an opaque 64-bit address, aligned or not.
type Addr uint64

// New wraps a raw integer as an Addr.
func New(v uint64) Addr { return Addr(v) }

// Uint64 returns the raw value.
func (a Addr) Uint64() uint64 { return uint64(a) }

// PageOffset returns the low PGSHIFT bits of the address.
func (a Addr) PageOffset() uint64 {
	return uint64(a) & (layout.PGSIZE - 1)
}

// Aligned reports whether a sits on a page boundary.
func (a Addr) Aligned() bool {
	return a.PageOffset() == 0
}

// AlignDown rounds a down to the nearest page boundary.
func (a Addr) AlignDown() Addr {
	return Addr(uint64(a) &^ (layout.PGSIZE - 1))
}

// AlignUp rounds a up to the nearest page boundary.
func (a Addr) AlignUp() Addr {
	return Addr((uint64(a) + layout.PGSIZE - 1) &^ (layout.PGSIZE - 1))
}

// Add returns a+n.
func (a Addr) Add(n uint64) Addr {
	return Addr(uint64(a) + n)
}

// Indexes decomposes a virtual address into its three 9-bit Sv39
// page-table indices, most significant (level 2) first.
func (a Addr) Indexes() [3]int {
	v := uint64(a) >> layout.PGSHIFT
	var idx [3]int
	for i := 0; i < 3; i++ {
		idx[i] = int(v & 0x1ff)
		v >>= 9
	}
	// idx is currently [level0, level1, level2]; callers want
	// [level2, level1, level0].
	return [3]int{idx[2], idx[1], idx[0]}
}

// PPN returns the physical page number this address names, i.e. the
// address right-shifted by PGSHIFT bits.
func (a Addr) PPN() uint64 {
	return uint64(a) >> layout.PGSHIFT
}

// Page is an Addr already known to be page-aligned. Its "zero the page" /
// "view as bytes" / "view as PTEs" operations live on the physical memory
// object that owns the backing storage (package physmem), the same way the
// teacher kernel hangs Dmap/Pg2bytes off Physmem_t rather than off Pa_t
// itself.
type Page Addr

// Addr upcasts a Page back to a plain Addr.
func (p Page) Addr() Addr { return Addr(p) }

// PageOf truncates any address down to the page that contains it.
func PageOf(a Addr) Page { return Page(a.AlignDown()) }
