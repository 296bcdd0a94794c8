// Package diag provides the kernel-panic diagnostics this kernel prints
// before it gives up: a call-stack dump in the style of the teacher
// kernel's caller package, used on the KernelFault path where a trap taken
// while the kernel trap vector is installed must panic immediately (see
// trap.KernelTrap).
package diag

import (
	"fmt"
	"runtime"
	"strings"
)

// Callerdump renders the call stack starting at the given skip depth, one
// frame per line, the way the teacher kernel's Callerdump does for its own
// fatal-path diagnostics.
func Callerdump(skip int) string {
	var b strings.Builder
	i := skip
	for {
		_, f, l, ok := runtime.Caller(i)
		if !ok {
			break
		}
		if i != skip {
			b.WriteString("\t<-")
		}
		fmt.Fprintf(&b, "%s:%d\n", f, l)
		i++
	}
	return b.String()
}

// KernelPanic prints why, followed by a call-stack dump, and panics with
// why as the panic value. The syscall and trap paths funnel through here
// (an unsupported syscall or fd, a failed sys_write copy, an unhandled
// user trap cause, a trap taken in kernel mode) so the diagnostic shape
// stays consistent. Out-of-frames and malformed-ELF failures are returned
// as errors instead and do not reach this function.
func KernelPanic(why string) {
	fmt.Printf("kernel panic: %s\n%s", why, Callerdump(2))
	panic(why)
}
