// Package trap dispatches on why control entered the kernel: a syscall
// ecall from user mode, a page fault, an illegal instruction, or the
// timer interrupt that drives preemption. Grounded on the original
// kernel's trap::trap_handler match over scause, with illegal-instruction
// diagnostics upgraded from a bare address dump to a decoded instruction
// using golang.org/x/arch's RISC-V disassembler — the teacher kernel
// reaches for x/arch for the same "make a raw instruction word readable"
// job (gopher-os and the rest of the pack; the teacher's own strace-style
// diagnostics take the same view that a crash dump should name what ran,
// not just where).
package trap

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/arch/riscv64/riscv64asm"

	"rv6/internal/clock"
	"rv6/internal/diag"
	"rv6/internal/pagetable"
	"rv6/internal/physmem"
	"rv6/internal/sbi"
	"rv6/internal/syscall"
	"rv6/internal/trapframe"
)

// Cause identifies why a trap was taken, collapsed from the full RISC-V
// scause encoding to the handful of causes this kernel distinguishes.
type Cause int

const (
	CauseUserEcall Cause = iota
	CauseStoreFault
	CauseLoadFault
	CauseIllegalInstruction
	CauseTimerInterrupt
)

func (c Cause) String() string {
	switch c {
	case CauseUserEcall:
		return "user ecall"
	case CauseStoreFault:
		return "store/AMO page fault"
	case CauseLoadFault:
		return "load page fault"
	case CauseIllegalInstruction:
		return "illegal instruction"
	case CauseTimerInterrupt:
		return "timer interrupt"
	default:
		return "unknown cause"
	}
}

// Outcome tells the scheduler what to do once UserTrapHandler returns.
type Outcome struct {
	Exit     bool // the task called sys_exit
	ExitCode int
	Killed   bool // the task faulted and must be torn down
	Message  string
	Yield    bool // the task called sys_yield
	Preempt  bool // the timer fired; scheduler should consider a switch
}

// UserTrapHandler handles one trap taken from user mode. stval is the
// architectural stval CSR value for this trap: the faulting address for a
// page fault, the faulting instruction bits for an illegal instruction,
// unused otherwise.
func UserTrapHandler(cause Cause, stval uint64, tf *trapframe.TrapFrame, table *pagetable.Table, mem *physmem.Memory, fw sbi.Interface) Outcome {
	switch cause {
	case CauseUserEcall:
		// ecall is a 4-byte instruction; resume just past it on return.
		tf.EPC += 4
		ret, exit, code, yield := syscall.Dispatch(tf, table, mem, fw)
		if exit {
			fmt.Printf("[kernel] Application exited with code %d\n", code)
			return Outcome{Exit: true, ExitCode: code}
		}
		tf.X[10] = uint64(ret) // a0
		return Outcome{Yield: yield}

	case CauseStoreFault, CauseLoadFault:
		msg := fmt.Sprintf(
			"PageFault in application, bad addr = 0x%x, bad instruction = 0x%x, core dumped.",
			stval, tf.EPC)
		fmt.Printf("[kernel] %s\n", msg)
		return Outcome{Killed: true, Message: msg}

	case CauseIllegalInstruction:
		msg := illegalInstructionMessage(stval, tf.EPC)
		fmt.Printf("[kernel] %s\n", msg)
		return Outcome{Killed: true, Message: msg}

	case CauseTimerInterrupt:
		clock.SetNextInterrupt(fw)
		return Outcome{Preempt: true}

	default:
		diag.KernelPanic(fmt.Sprintf("unhandled user trap cause %v", cause))
		panic("unreachable")
	}
}

// illegalInstructionMessage decodes the faulting word, when it is a
// well-formed instruction, and appends its disassembly to the crash
// message; a malformed or compressed-but-unsupported word still produces
// a usable message without the decode.
func illegalInstructionMessage(rawInst, epc uint64) string {
	msg := fmt.Sprintf("IllegalInstruction in application, bad instruction = 0x%x, core dumped.", epc)
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(rawInst))
	if inst, err := riscv64asm.Decode(buf[:]); err == nil {
		msg += fmt.Sprintf(" (decoded: %s)", inst.String())
	}
	return msg
}

// KernelTrap handles a trap taken while the kernel's own trap vector was
// installed, i.e. a fault in kernel code. The original kernel treats this
// as unconditionally fatal, since there is no kernel-mode page fault this
// design expects to recover from.
func KernelTrap(cause Cause, stval, sepc uint64) {
	diag.KernelPanic(fmt.Sprintf("trap from kernel: cause=%v stval=0x%x sepc=0x%x", cause, stval, sepc))
}

// UserTrapReturn performs the bookkeeping a real kernel does just before
// the trampoline's restore-and-sret sequence hands control back to user
// mode: arming the next timer tick so preemption keeps happening. The
// register restore and sret themselves are the trampoline's job, which is
// outside what this module implements (see trapframe's package doc).
func UserTrapReturn(fw sbi.Interface) {
	clock.SetNextInterrupt(fw)
}
