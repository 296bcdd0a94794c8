// Package syscall is the handful of system calls this kernel's tasks can
// make: write, exit, and yield, numbered the way the original kernel's
// syscall module numbers them (the same numbers Linux's RISC-V ABI uses,
// which the original deliberately reused). Grounded on
// syscall::fs::sys_write and syscall::process::{sys_exit,sys_yield}.
package syscall

import (
	"fmt"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"rv6/internal/addr"
	"rv6/internal/diag"
	"rv6/internal/layout"
	"rv6/internal/pagetable"
	"rv6/internal/physmem"
	"rv6/internal/sbi"
	"rv6/internal/trapframe"
	"rv6/internal/util"
)

// Syscall numbers, matching the original kernel's fixed ABI subset.
const (
	SysWrite = 64
	SysExit  = 93
	SysYield = 124
)

// Dispatch decodes a task's pending ecall from its trap frame's a7/a0-a2
// registers (x[17], x[10], x[11], x[12]) and carries it out. It returns
// the value to place in a0 on return, whether the task exited (and with
// what code), and whether the task asked to yield the remainder of its
// slice.
func Dispatch(tf *trapframe.TrapFrame, table *pagetable.Table, mem *physmem.Memory, fw sbi.Interface) (ret int64, exit bool, code int, yield bool) {
	num := tf.X[17]
	a0, a1, a2 := tf.X[10], tf.X[11], tf.X[12]

	switch num {
	case SysWrite:
		n, err := sysWrite(table, mem, fw, int(a0), a1, a2)
		if err != nil {
			diag.KernelPanic(fmt.Sprintf("sys_write: %v", err))
		}
		return int64(n), false, 0, false

	case SysExit:
		return int64(a0), true, int(a0), false

	case SysYield:
		return 0, false, 0, true

	default:
		diag.KernelPanic(fmt.Sprintf("unsupported syscall: %d", num))
		panic("unreachable")
	}
}

// sysWrite copies the fd's buffer out of the calling task's address
// space, repairs it as UTF-8 (a task that writes a truncated multi-byte
// rune, e.g. because its buffer length is wrong, gets the replacement
// character instead of raw garbage on the console), and emits it one byte
// at a time through the firmware console.
func sysWrite(table *pagetable.Table, mem *physmem.Memory, fw sbi.Interface, fd int, bufVA, n uint64) (int, error) {
	const stdout = 1
	if fd != stdout {
		diag.KernelPanic(fmt.Sprintf("unsupported fd in sys_write: %d", fd))
	}
	raw, err := copyFromUser(table, mem, bufVA, n)
	if err != nil {
		return 0, err
	}
	repaired, _, err := transform.Bytes(unicode.UTF8.NewDecoder(), raw)
	if err != nil {
		repaired = raw
	}
	for _, b := range repaired {
		fw.ConsolePutchar(b)
	}
	return len(raw), nil
}

// copyFromUser reads n bytes starting at the user virtual address va,
// walking table one page at a time since the bytes need not lie in a
// single physical frame.
func copyFromUser(table *pagetable.Table, mem *physmem.Memory, va, n uint64) ([]byte, error) {
	out := make([]byte, 0, n)
	cur := addr.New(va)
	remaining := n
	for remaining > 0 {
		pa, err := table.Translate(cur, true)
		if err != nil {
			return nil, err
		}
		off := pa.PageOffset()
		page := mem.Bytes(pa.AlignDown())
		take := util.Min(uint64(layout.PGSIZE)-off, remaining)
		out = append(out, page[off:off+take]...)
		cur = cur.Add(take)
		remaining -= take
	}
	return out, nil
}
