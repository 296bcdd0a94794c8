// Package testelf builds minimal RISC-V64 ELF executables for tests that
// need a real image to feed uspace.FromELF or appimg.Build, without
// shipping a prebuilt binary fixture.
package testelf

import "encoding/binary"

const (
	elfClass64  = 2
	elfDataLSB  = 1
	elfVersion1 = 1
	etExec      = 2
	emRISCV     = 243
	ptLoad      = 1
)

// Build returns a single-segment ELF64 executable that loads code at
// vaddr and sets the entry point to vaddr, with the given program-header
// flags (combination of PF_R=4, PF_W=2, PF_X=1).
func Build(vaddr uint64, code []byte, flags uint32) []byte {
	const ehdrSize = 64
	const phdrSize = 56
	segOff := uint64(ehdrSize + phdrSize)

	out := make([]byte, segOff+uint64(len(code)))

	out[0] = 0x7f
	out[1], out[2], out[3] = 'E', 'L', 'F'
	out[4] = elfClass64
	out[5] = elfDataLSB
	out[6] = elfVersion1
	le := binary.LittleEndian
	le.PutUint16(out[16:], etExec)
	le.PutUint16(out[18:], emRISCV)
	le.PutUint32(out[20:], elfVersion1)
	le.PutUint64(out[24:], vaddr) // e_entry
	le.PutUint64(out[32:], ehdrSize) // e_phoff
	le.PutUint16(out[52:], ehdrSize)
	le.PutUint16(out[54:], phdrSize)
	le.PutUint16(out[56:], 1) // e_phnum

	ph := out[ehdrSize:]
	le.PutUint32(ph[0:], ptLoad)
	le.PutUint32(ph[4:], flags)
	le.PutUint64(ph[8:], segOff)           // p_offset
	le.PutUint64(ph[16:], vaddr)           // p_vaddr
	le.PutUint64(ph[24:], vaddr)           // p_paddr
	le.PutUint64(ph[32:], uint64(len(code))) // p_filesz
	le.PutUint64(ph[40:], uint64(len(code))) // p_memsz
	le.PutUint64(ph[48:], 0x1000)           // p_align

	copy(out[segOff:], code)
	return out
}
