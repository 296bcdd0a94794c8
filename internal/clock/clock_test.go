package clock

import (
	"testing"

	"rv6/internal/sbi"
)

func TestSetNextInterruptArmsFutureDeadline(t *testing.T) {
	fw := &sbi.Fake{}
	before := fw.Time()
	SetNextInterrupt(fw)
	if fw.TimerDeadline <= before {
		t.Errorf("TimerDeadline = %d, want greater than current time %d", fw.TimerDeadline, before)
	}
}
