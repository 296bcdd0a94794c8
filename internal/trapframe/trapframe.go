// Package trapframe defines the two fixed-layout records the trap and
// context-switch protocol passes across the user/kernel and
// task/scheduler boundaries. Both are modeled directly on the original
// kernel's TrapContext and the teacher kernel's equivalent saved-register
// blocks in vm/as.go, but neither Switch nor the user trap entry/return
// can be literal RISC-V assembly here — that asm is the one piece of the
// trampoline protocol this module cannot express, so it is represented as
// scheduler bookkeeping in package sched instead. See SPEC_FULL.md.
package trapframe

// sstatusSPPUser and sstatusSIE are the two sstatus bits the kernel needs
// to control on a fresh user context: SPP clear (return to U-mode) and SIE
// set (interrupts enabled once execution resumes in U-mode).
const (
	sstatusSPPUser = 0
	sstatusSIE     = 1 << 1
)

// TrapFrame is the register save area mapped at layout.TrapFrame in every
// user address space. A user trap entry saves all 32 general registers
// here before switching to the kernel page table; a user trap return
// restores them and jumps to EPC.
type TrapFrame struct {
	X [32]uint64 // general-purpose registers x0..x31

	Sstatus uint64 // saved sstatus, restored verbatim on return
	EPC     uint64 // saved/resumed program counter

	// The following three fields are supplied once at task creation and
	// never touched by user code; the user trap entry reads them to find
	// its way back into the kernel.
	KernelSATP  uint64 // kernel page table, activated on trap entry
	KernelSP    uint64 // top of this task's kernel stack
	TrapHandler uint64 // address of the kernel trap-handling entry point
}

// AppInit builds the trap frame a task starts life with: EPC at the ELF
// entry point, sp (x2) at the top of the user stack, interrupts enabled,
// and the three kernel-return fields wired to this task's kernel stack
// and trap handler.
func AppInit(entry, userSP, kernelSATP, kernelSP, trapHandler uint64) *TrapFrame {
	tf := &TrapFrame{
		EPC:         entry,
		Sstatus:     sstatusSPPUser | sstatusSIE,
		KernelSATP:  kernelSATP,
		KernelSP:    kernelSP,
		TrapHandler: trapHandler,
	}
	tf.X[2] = userSP
	return tf
}

// Context is the callee-saved register block a task switch preserves: the
// return address the switch resumes at and the twelve s-registers, plus
// the stack pointer of the kernel stack frame being switched away from.
type Context struct {
	RA uint64
	SP uint64
	S  [12]uint64
}

// NewContext builds the initial Context a never-yet-run task's first
// switch resumes into: RA points at the trap-return trampoline and SP at
// the top of the task's kernel stack, so the first "switch in" behaves
// exactly like returning from a trap taken at the top of that stack.
func NewContext(trapReturnEntry, kernelStackTop uint64) Context {
	return Context{RA: trapReturnEntry, SP: kernelStackTop}
}
