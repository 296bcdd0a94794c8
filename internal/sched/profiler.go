package sched

import (
	"fmt"

	"github.com/google/pprof/profile"
)

// Profiler counts one tick per scheduling slice handed out, keyed by task
// ID, and can export the totals as a pprof profile.Profile for offline
// inspection — this kernel has no file system or network to ship a real
// profile over, so Export is the integration point a host tool drives
// directly rather than pprof's usual HTTP endpoint.
type Profiler struct {
	ticks map[int]int64
	order []int
}

// NewProfiler returns an empty tick profiler.
func NewProfiler() *Profiler {
	return &Profiler{ticks: make(map[int]int64)}
}

// Tick records one scheduling slice handed to taskID.
func (p *Profiler) Tick(taskID int) {
	if _, seen := p.ticks[taskID]; !seen {
		p.order = append(p.order, taskID)
	}
	p.ticks[taskID]++
}

// Ticks returns how many scheduling slices taskID has been given so far.
func (p *Profiler) Ticks(taskID int) int64 {
	return p.ticks[taskID]
}

// Export builds a pprof profile.Profile with one sample per task, each
// carrying that task's accumulated tick count. The profile has no
// meaningful time axis (there is no wall clock in this module's
// simulated environment), only the ticks sample type.
func (p *Profiler) Export() *profile.Profile {
	prof := &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "ticks", Unit: "count"}},
		PeriodType: &profile.ValueType{Type: "schedule", Unit: "switch"},
		Period:     1,
	}
	for i, taskID := range p.order {
		fn := &profile.Function{
			ID:   uint64(i + 1),
			Name: fmt.Sprintf("task[%d]", taskID),
		}
		loc := &profile.Location{
			ID:   uint64(i + 1),
			Line: []profile.Line{{Function: fn, Line: 0}},
		}
		prof.Function = append(prof.Function, fn)
		prof.Location = append(prof.Location, loc)
		prof.Sample = append(prof.Sample, &profile.Sample{
			Value:    []int64{p.ticks[taskID]},
			Location: []*profile.Location{loc},
		})
	}
	return prof
}
