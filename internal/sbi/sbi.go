// Package sbi is the boundary between this kernel and the firmware that
// boots it. Console I/O, shutdown, and the timer are all SBI ecalls on
// real hardware; the ecall instruction itself, like the boot entry point
// and the trampoline's raw assembly, is genuinely outside what Go can
// express, so the boundary is an interface. QEMU is the production
// implementation's declared shape; Fake is what every other package in
// this module is actually tested against.
package sbi

// Interface is everything this kernel asks firmware to do on its behalf.
type Interface interface {
	// ConsolePutchar writes one byte to the firmware console.
	ConsolePutchar(c byte)
	// Shutdown powers the machine off and does not return.
	Shutdown()
	// SetTimer arms the next timer interrupt for the given absolute mtime
	// value.
	SetTimer(deadline uint64)
	// Time reads the current mtime counter.
	Time() uint64
}

// QEMU is the production SBI binding for the virt machine. Its methods are
// ecalls to OpenSBI, which is itself out of scope for this module to
// implement; a real boot image supplies these bodies from the same
// assembly file that defines the boot entry point and the trampoline.
// Using QEMU outside that environment panics.
type QEMU struct{}

func (QEMU) ConsolePutchar(c byte) {
	panic("sbi: QEMU binding requires real firmware; use sbi.Fake under go test")
}

func (QEMU) Shutdown() {
	panic("sbi: QEMU binding requires real firmware; use sbi.Fake under go test")
}

func (QEMU) SetTimer(deadline uint64) {
	panic("sbi: QEMU binding requires real firmware; use sbi.Fake under go test")
}

func (QEMU) Time() uint64 {
	panic("sbi: QEMU binding requires real firmware; use sbi.Fake under go test")
}

// Fake is an in-memory SBI stand-in for tests and for any environment that
// wants a kernel to run entirely in a Go process: console writes land in
// Console, Shutdown sets ShutdownCalled instead of halting, and the clock
// is just a counter the test advances by hand via Tick.
type Fake struct {
	Console        []byte
	ShutdownCalled bool
	TimerDeadline  uint64
	now            uint64
}

// ConsolePutchar appends c to Console.
func (f *Fake) ConsolePutchar(c byte) {
	f.Console = append(f.Console, c)
}

// Shutdown records that shutdown was requested.
func (f *Fake) Shutdown() {
	f.ShutdownCalled = true
}

// SetTimer records the requested deadline.
func (f *Fake) SetTimer(deadline uint64) {
	f.TimerDeadline = deadline
}

// Time returns the fake clock's current value.
func (f *Fake) Time() uint64 {
	return f.now
}

// Tick advances the fake clock by n and reports whether the armed timer
// deadline has now passed.
func (f *Fake) Tick(n uint64) (fired bool) {
	f.now += n
	return f.TimerDeadline != 0 && f.now >= f.TimerDeadline
}
