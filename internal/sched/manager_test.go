package sched

import (
	"testing"

	"rv6/internal/addr"
	"rv6/internal/kspace"
	"rv6/internal/layout"
	"rv6/internal/physmem"
	"rv6/internal/sbi"
	"rv6/internal/testelf"
)

func newTestManager(t *testing.T, nTasks int) (*Manager, *kspace.Space, *sbi.Fake) {
	t.Helper()
	mem := &physmem.Memory{}
	alloc := physmem.Init(mem, addr.New(layout.KernelBase), addr.New(layout.KernelBase+64*1024*1024))
	kernel, err := kspace.New(alloc)
	if err != nil {
		t.Fatalf("kspace.New: %v", err)
	}
	fw := &sbi.Fake{}
	mgr := NewManager(alloc, kernel, fw)

	images := make([][]byte, nTasks)
	for i := range images {
		images[i] = testelf.Build(0x11000, []byte{0x13, 0x00, 0x00, 0x00}, 5)
	}
	if err := mgr.LoadTasks(images); err != nil {
		t.Fatalf("LoadTasks: %v", err)
	}
	return mgr, kernel, fw
}

func TestRunFirstTask(t *testing.T) {
	mgr, _, _ := newTestManager(t, 3)
	task := mgr.RunFirstTask()
	if task.ID != 0 {
		t.Errorf("first task ID = %d, want 0", task.ID)
	}
	if task.Status != Running {
		t.Errorf("first task status = %v, want Running", task.Status)
	}
}

func TestRoundRobinSuspend(t *testing.T) {
	mgr, _, _ := newTestManager(t, 3)
	mgr.RunFirstTask()

	order := []int{mgr.Current()}
	for i := 0; i < 5; i++ {
		next := mgr.RunNextTaskSuspend()
		if next == nil {
			t.Fatal("RunNextTaskSuspend returned nil with all tasks runnable")
		}
		order = append(order, next.ID)
	}
	want := []int{0, 1, 2, 0, 1, 2}
	for i, id := range want {
		if order[i] != id {
			t.Errorf("schedule order[%d] = %d, want %d (full: %v)", i, order[i], id, order)
		}
	}
}

func TestRunNextTaskKillSkipsZombies(t *testing.T) {
	mgr, _, fw := newTestManager(t, 2)
	mgr.RunFirstTask()

	next := mgr.RunNextTaskKill(0)
	if next == nil || next.ID != 1 {
		t.Fatalf("after killing task 0, next = %v, want task 1", next)
	}
	if fw.ShutdownCalled {
		t.Error("Shutdown called while a task is still runnable")
	}

	// Killing the last runnable task should leave nothing to run, and the
	// manager should hand the hart back to firmware instead of spinning.
	last := mgr.RunNextTaskKill(0)
	if last != nil {
		t.Errorf("RunNextTaskKill with no runnable tasks left = %v, want nil", last)
	}
	if !fw.ShutdownCalled {
		t.Error("expected Shutdown to be called once every task has exited")
	}
}

func TestProfilerRecordsTicks(t *testing.T) {
	mgr, _, _ := newTestManager(t, 2)
	mgr.RunFirstTask()
	mgr.RunNextTaskSuspend()
	mgr.RunNextTaskSuspend()

	if got := mgr.Profiler.Ticks(0); got != 2 {
		t.Errorf("task 0 ticks = %d, want 2", got)
	}
	prof := mgr.Profiler.Export()
	if len(prof.Sample) == 0 {
		t.Error("Export() produced no samples")
	}
}
