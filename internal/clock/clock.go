// Package clock drives the timer interrupt that makes preemption possible:
// arming the next SBI timer deadline layout.TicksPerSec times a second,
// grounded on the original kernel's timer module.
package clock

import "rv6/internal/sbi"

// ticksToDeadline is how many mtime units pass between ticks. The virt
// platform's mtime runs at a fixed frequency; a real boot image reads that
// frequency out of the device tree, which this module has no device tree
// to parse, so the conversion is folded into a single constant matching
// the original kernel's CLOCK_FREQ/TICKS_PER_SEC ratio.
const ticksToDeadline = 12500000 / 100

// SetNextInterrupt arms the next timer tick, one layout.TicksPerSec
// interval from now.
func SetNextInterrupt(fw sbi.Interface) {
	fw.SetTimer(fw.Time() + ticksToDeadline)
}
