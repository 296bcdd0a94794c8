// Command mkimage packs a list of user ELF binaries into the single blob
// image this kernel boots from. Styled on the teacher kernel's chentry
// tool: read arguments straight off os.Args, fail loudly with log.Fatal,
// no flag parsing machinery for a handful of positional arguments.
package main

import (
	"log"
	"os"

	"rv6/internal/appimg"
)

func usage(me string) {
	log.Fatalf("usage: %s <output> <app.elf> [more-apps.elf...]", me)
}

func main() {
	if len(os.Args) < 3 {
		usage(os.Args[0])
	}
	out := os.Args[1]
	apps := make([][]byte, 0, len(os.Args)-2)
	for _, fn := range os.Args[2:] {
		data, err := os.ReadFile(fn)
		if err != nil {
			log.Fatal(err)
		}
		apps = append(apps, data)
	}

	blob, err := appimg.Build(apps)
	if err != nil {
		log.Fatal(err)
	}
	if err := os.WriteFile(out, blob, 0o644); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s: %d apps, %d bytes", out, len(apps), len(blob))
}
