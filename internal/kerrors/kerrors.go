// Package kerrors collects the sentinel errors shared across the virtual
// memory and task subsystems. The teacher kernel encodes failures as
// negative defs.Err_t codes tailored to a POSIX-shaped syscall ABI; this
// kernel's three-call surface has no such ABI to honor, so failures are
// ordinary Go errors instead.
package kerrors

import "errors"

var (
	// ErrOutOfFrames is returned by the physical frame allocator when its
	// bump cursor and free list are both exhausted.
	ErrOutOfFrames = errors.New("rv6: out of physical frames")

	// ErrBadImage is returned when an ELF blob fails the magic-number
	// check or carries a program header the loader cannot make sense of.
	ErrBadImage = errors.New("invalid elf!")

	// ErrUnmapped is returned by Translate and walk(allocate=false) when
	// no leaf PTE exists for the requested address.
	ErrUnmapped = errors.New("rv6: address not mapped")

	// ErrHugePage is returned by Walk when it encounters a leaf PTE above
	// level 0. This kernel never installs one; seeing it means a caller
	// corrupted the page table.
	ErrHugePage = errors.New("rv6: unexpected huge page")

	// ErrDoubleMap is the panic value used when Map is asked to install a
	// PTE over one that is already valid.
	ErrDoubleMap = errors.New("rv6: double map")

	// ErrUnsupportedSyscall names the failure of a syscall number outside
	// the narrow table this kernel implements. syscall.Dispatch panics on
	// such a number with a message string naming it, not with this value.
	ErrUnsupportedSyscall = errors.New("rv6: unsupported syscall")

	// ErrBadFD names the failure of a write() to a target other than
	// stdout. sysWrite panics on such an fd with a message string naming
	// it, not with this value.
	ErrBadFD = errors.New("rv6: unsupported fd")

	// ErrPermission is returned by a user-intent Translate when the leaf
	// PTE it finds is valid but lacks U, i.e. the address is mapped for
	// the kernel only.
	ErrPermission = errors.New("rv6: address not user-accessible")
)
