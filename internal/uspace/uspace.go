// Package uspace builds one task's user address space from its ELF image:
// PT_LOAD segments copied into fresh frames, a guard page and user stack
// above them, and the shared trampoline plus a private trap frame mapped
// at their fixed high addresses. Grounded on the original kernel's
// mem::user_space::from_elf and, for the ELF-walking shape, the teacher
// kernel's kernel/chentry.go loader.
package uspace

import (
	"bytes"
	"debug/elf"

	"rv6/internal/addr"
	"rv6/internal/kerrors"
	"rv6/internal/layout"
	"rv6/internal/pagetable"
	"rv6/internal/physmem"
)

// Space is one task's user address space.
type Space struct {
	Table *pagetable.Table

	Entry        uint64
	UserStackTop uint64
	TrapFramePA  addr.Addr

	leaves []*physmem.Frame
}

// FromELF parses raw, decodes its PT_LOAD segments into a fresh address
// space, and lays out the guard page, user stack, trap frame, and
// trampoline above them. trampolinePA is the kernel's single shared
// trampoline physical page (see kspace.Space.TrampolinePA).
func FromELF(alloc *physmem.Allocator, raw []byte, trampolinePA addr.Addr) (*Space, error) {
	f, err := elf.NewFile(bytes.NewReader(raw))
	if err != nil {
		return nil, kerrors.ErrBadImage
	}
	if f.Class != elf.ELFCLASS64 || f.Machine != elf.EM_RISCV {
		return nil, kerrors.ErrBadImage
	}

	t, err := pagetable.New(alloc)
	if err != nil {
		return nil, err
	}
	sp := &Space{Table: t}

	var maxEnd uint64
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		lo := addr.New(prog.Vaddr).AlignDown()
		hi := addr.New(prog.Vaddr + prog.Memsz).AlignUp()
		flags := progFlags(prog.Flags)
		data := make([]byte, prog.Memsz)
		n, err := prog.ReadAt(data[:prog.Filesz], 0)
		if err != nil && uint64(n) != prog.Filesz {
			sp.Close()
			return nil, kerrors.ErrBadImage
		}
		off := prog.Vaddr - lo.Uint64()
		for va := lo; va < hi; va = va.Add(layout.PGSIZE) {
			pg, err := alloc.AllocZeroed()
			if err != nil {
				sp.Close()
				return nil, err
			}
			sp.leaves = append(sp.leaves, pg)
			copyInto(alloc.Mem.Bytes(pg.PA()), data, va.Uint64()-lo.Uint64(), off)
			if err := sp.Table.Map(va, pg.PA(), flags); err != nil {
				sp.Close()
				return nil, err
			}
		}
		if hi.Uint64() > maxEnd {
			maxEnd = hi.Uint64()
		}
	}
	if maxEnd == 0 {
		sp.Close()
		return nil, kerrors.ErrBadImage
	}

	userStackBottom := maxEnd + layout.PGSIZE // one guard page
	userStackTop := userStackBottom + layout.UserStackSize
	for va := userStackBottom; va < userStackTop; va += layout.PGSIZE {
		pg, err := alloc.AllocZeroed()
		if err != nil {
			sp.Close()
			return nil, err
		}
		sp.leaves = append(sp.leaves, pg)
		if err := sp.Table.Map(addr.New(va), pg.PA(), addr.FlagR|addr.FlagW|addr.FlagU); err != nil {
			sp.Close()
			return nil, err
		}
	}

	tf, err := alloc.AllocZeroed()
	if err != nil {
		sp.Close()
		return nil, err
	}
	sp.leaves = append(sp.leaves, tf)
	if err := sp.Table.Map(addr.New(layout.TrapFrame), tf.PA(), addr.FlagR|addr.FlagW); err != nil {
		sp.Close()
		return nil, err
	}
	if err := sp.Table.Map(addr.New(layout.Trampoline), trampolinePA, addr.FlagR|addr.FlagX); err != nil {
		sp.Close()
		return nil, err
	}

	sp.Entry = f.Entry
	sp.UserStackTop = userStackTop
	sp.TrapFramePA = tf.PA()
	return sp, nil
}

// progFlags translates an ELF program header's R/W/X flags to the subset
// of page-table flags that are meaningful for user pages: U is always
// set, since every PT_LOAD segment in this kernel's tasks is user data or
// user code.
func progFlags(f elf.ProgFlag) addr.Flags {
	var out addr.Flags = addr.FlagU
	if f&elf.PF_R != 0 {
		out |= addr.FlagR
	}
	if f&elf.PF_W != 0 {
		out |= addr.FlagW
	}
	if f&elf.PF_X != 0 {
		out |= addr.FlagX
	}
	return out
}

// copyInto copies segData[off:off+min(PGSIZE, len(segData)-off)] into dst,
// covering the single case this loader needs: filling one destination
// page from an arbitrary offset into a segment's decoded bytes. pageVAOff
// is the destination page's offset from the segment's aligned start, and
// fileOff is how far the segment's on-disk bytes are shifted from that
// aligned start (prog.Vaddr - lo).
func copyInto(dst, segData []byte, pageVAOff, fileOff uint64) {
	srcStart := pageVAOff
	if srcStart < fileOff {
		// the first page starts before the segment's first byte whenever
		// prog.Vaddr is not page-aligned; copying starts at that byte and
		// the bytes below it stay zero.
		srcStart = fileOff
	}
	srcOff := srcStart - fileOff
	if srcOff >= uint64(len(segData)) {
		return
	}
	n := uint64(len(dst)) - (srcStart - pageVAOff)
	if rem := uint64(len(segData)) - srcOff; rem < n {
		n = rem
	}
	copy(dst[srcStart-pageVAOff:], segData[srcOff:srcOff+n])
}

// Close frees every frame this address space owns.
func (sp *Space) Close() {
	for _, f := range sp.leaves {
		f.Free()
	}
	sp.leaves = nil
	sp.Table.Close()
}
