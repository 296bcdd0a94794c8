// Command kernel performs the boot sequence this module implements:
// build the frame allocator, build and activate the kernel address space,
// load the packed application image, and hand the hart to the first task.
// Grounded on the original kernel's rust_main, in the same order: memory
// management first, then the trap vector, then the task table, then run.
//
// The boot assembly that calls into this sequence, and the raw
// trampoline that actually carries a hart across the user/kernel
// boundary, are outside what Go can express — see the package docs on
// trapframe and sbi. This binary is the reference wiring a real boot
// image's entry point would call into; run standalone, it initializes,
// loads whatever application image it was given, and then blocks, since
// without the trampoline there is no way for it to actually receive a
// trap from a task it has started.
package main

import (
	"fmt"
	"log"
	"os"

	"rv6/internal/addr"
	"rv6/internal/appimg"
	"rv6/internal/clock"
	"rv6/internal/kspace"
	"rv6/internal/layout"
	"rv6/internal/physmem"
	"rv6/internal/sbi"
	"rv6/internal/sched"
)

func main() {
	fw := &sbi.Fake{}

	mem := &physmem.Memory{}
	alloc := physmem.Init(mem, addr.New(layout.KernelBase), addr.New(layout.PhysTop))

	kernel, err := kspace.New(alloc)
	if err != nil {
		log.Fatalf("kernel: building kernel address space: %v", err)
	}
	kernel.Table.Activate(fakeSATPWriter{})

	mgr := sched.NewManager(alloc, kernel, fw)

	if len(os.Args) > 1 {
		blob, err := os.ReadFile(os.Args[1])
		if err != nil {
			log.Fatalf("kernel: reading app image: %v", err)
		}
		apps, err := appimg.Parse(blob)
		if err != nil {
			log.Fatalf("kernel: parsing app image: %v", err)
		}
		if err := mgr.LoadTasks(apps); err != nil {
			log.Fatalf("kernel: loading tasks: %v", err)
		}
		clock.SetNextInterrupt(fw)
		task := mgr.RunFirstTask()
		fmt.Printf("kernel: running task %d\n", task.ID)
	} else {
		fmt.Println("kernel: no app image given, nothing to run")
	}

	fmt.Print(string(fw.Console))
	select {}
}

// fakeSATPWriter stands in for the CSR write a real boot image performs;
// see pagetable.SATPWriter.
type fakeSATPWriter struct{}

func (fakeSATPWriter) WriteSATP(uint64) {}
