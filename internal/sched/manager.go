// Package sched is the single-hart, fixed-capacity round-robin scheduler:
// a task table, the first-task/next-task/switch operations that move the
// current task forward, and a tick profiler built on pprof's profile
// format. Grounded on the original kernel's task::TaskManager
// (run_first_task/run_next_task/find_next_task) and, for its locking
// idiom, the teacher kernel's Vm_t in vm/as.go.
package sched

import (
	"unsafe"

	"rv6/internal/addr"
	"rv6/internal/kerrors"
	"rv6/internal/kspace"
	"rv6/internal/layout"
	"rv6/internal/physmem"
	"rv6/internal/sbi"
	"rv6/internal/trapframe"
	"rv6/internal/uspace"
)

func bytesToTrapFrame(b []byte) *trapframe.TrapFrame {
	return (*trapframe.TrapFrame)(unsafe.Pointer(&b[0]))
}

// Manager owns the fixed-capacity task table and the bookkeeping for
// which task is current. There is no real multi-hart contention to guard
// against in this module, but table mutation still goes through tasks,
// an Excl cell, so a bug that tries to touch the table re-entrantly
// (e.g. from inside a callback run while already holding it) panics
// instead of corrupting scheduling state.
type Manager struct {
	alloc  *physmem.Allocator
	kernel *kspace.Space
	fw     sbi.Interface

	tasks   *Excl[[]*TCB]
	current int

	Profiler *Profiler
}

// NewManager builds an empty task manager bound to kernel's address
// space and alloc's frame pool.
func NewManager(alloc *physmem.Allocator, kernel *kspace.Space, fw sbi.Interface) *Manager {
	return &Manager{
		alloc:    alloc,
		kernel:   kernel,
		fw:       fw,
		tasks:    NewExcl[[]*TCB](nil),
		current:  -1,
		Profiler: NewProfiler(),
	}
}

// LoadTasks builds one task per ELF image, in order, filling task-table
// slots starting at 0. It fails if len(images) exceeds layout.MaxAppNum.
func (m *Manager) LoadTasks(images [][]byte) error {
	if len(images) > layout.MaxAppNum {
		return kerrors.ErrOutOfFrames
	}
	tasks := make([]*TCB, 0, len(images))
	for id, img := range images {
		sp, err := uspace.FromELF(m.alloc, img, m.kernel.TrampolinePA())
		if err != nil {
			return err
		}
		tf := trapframe.AppInit(sp.Entry, sp.UserStackTop, m.kernel.Table.MakeSATP(),
			kspace.KernelStackTop(id), addr.New(layout.Trampoline).Uint64())
		writeTrapFrame(m.alloc.Mem, sp.TrapFramePA, tf)

		tasks = append(tasks, &TCB{
			ID:      id,
			Status:  Runnable,
			Space:   sp,
			TrapPA:  sp.TrapFramePA,
			Context: trapframe.NewContext(addr.New(layout.Trampoline).Uint64(), kspace.KernelStackTop(id)),
		})
	}
	tp := m.tasks.Lock()
	*tp = tasks
	m.tasks.Unlock()
	return nil
}

func writeTrapFrame(mem *physmem.Memory, pa addr.Addr, tf *trapframe.TrapFrame) {
	dst := bytesToTrapFrame(mem.Bytes(pa))
	*dst = *tf
}

// RunFirstTask marks task 0 Running and returns it. It panics if no tasks
// have been loaded.
func (m *Manager) RunFirstTask() *TCB {
	tp := m.tasks.Lock()
	defer m.tasks.Unlock()
	if len(*tp) == 0 {
		panic("sched: RunFirstTask with no tasks loaded")
	}
	(*tp)[0].Status = Running
	m.current = 0
	m.Profiler.Tick((*tp)[0].ID)
	return (*tp)[0]
}

// findNextLocked returns the index of the next Runnable task after
// current, scanning round-robin, or -1 if none is runnable. Caller must
// hold m.tasks.
func (m *Manager) findNextLocked(tasks []*TCB) int {
	n := len(tasks)
	for i := 1; i <= n; i++ {
		idx := (m.current + i) % n
		if tasks[idx].Status == Runnable {
			return idx
		}
	}
	return -1
}

// RunNextTaskSuspend marks the current task Runnable (it yielded, or was
// preempted, but is not done) and switches to the next Runnable task in
// round-robin order. It returns the task now running, or nil if no task
// is runnable (every task has exited).
func (m *Manager) RunNextTaskSuspend() *TCB {
	tp := m.tasks.Lock()
	defer m.tasks.Unlock()
	tasks := *tp
	tasks[m.current].Status = Runnable
	return m.switchToNextLocked(tasks)
}

// RunNextTaskKill marks the current task Zombie (it exited) and switches
// to the next Runnable task. It returns the task now running, or nil if
// every task has exited.
func (m *Manager) RunNextTaskKill(exitCode int) *TCB {
	tp := m.tasks.Lock()
	defer m.tasks.Unlock()
	tasks := *tp
	tasks[m.current].Status = Zombie
	tasks[m.current].ExitCode = exitCode
	return m.switchToNextLocked(tasks)
}

func (m *Manager) switchToNextLocked(tasks []*TCB) *TCB {
	next := m.findNextLocked(tasks)
	if next < 0 {
		m.fw.Shutdown()
		return nil
	}
	tasks[next].Status = Running
	m.current = next
	m.Profiler.Tick(tasks[next].ID)
	return tasks[next]
}

// Current returns the task table index currently running, or -1 before
// RunFirstTask has been called.
func (m *Manager) Current() int { return m.current }

// Task returns the TCB at index id.
func (m *Manager) Task(id int) *TCB {
	tp := m.tasks.Lock()
	defer m.tasks.Unlock()
	return (*tp)[id]
}

// Close frees every task's address space.
func (m *Manager) Close() {
	tp := m.tasks.Lock()
	defer m.tasks.Unlock()
	for _, t := range *tp {
		t.Space.Close()
	}
	*tp = nil
}
