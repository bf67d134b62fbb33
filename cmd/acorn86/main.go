package main

import (
	"flag"
	"log"

	"github.com/sirupsen/logrus"

	"github.com/projectacorn/acorn86/internal/machine"
	"github.com/projectacorn/acorn86/internal/ui"
)

type CLIFlags struct {
	BIOSPath string
	Title    string
	Scale    int
	Trace    bool

	// headless
	Headless bool
	Steps    int
	RAMDump  string
}

func parseFlags() CLIFlags {
	var f CLIFlags
	flag.StringVar(&f.BIOSPath, "bios", "", "path to BIOS ROM image (up to 64 KiB, loaded below 1 MiB)")
	flag.StringVar(&f.Title, "title", "acorn86", "window title")
	flag.IntVar(&f.Scale, "scale", 2, "window scale")
	flag.BoolVar(&f.Trace, "trace", false, "per-step CPU trace log")

	flag.BoolVar(&f.Headless, "headless", false, "run without a window")
	flag.IntVar(&f.Steps, "steps", 5_000_000, "max CPU steps in headless mode")
	flag.StringVar(&f.RAMDump, "ramdump", "", "write the final 1 MiB RAM image to this path")
	flag.Parse()
	return f
}

func main() {
	f := parseFlags()
	if f.BIOSPath == "" {
		log.Fatal("-bios is required")
	}
	if f.Trace {
		logrus.SetLevel(logrus.DebugLevel)
	}

	m := machine.New()
	m.SetTrace(f.Trace)
	if err := m.LoadBIOS(f.BIOSPath); err != nil {
		log.Fatalf("load BIOS: %v", err)
	}

	if f.Headless {
		n, err := m.Run(f.Steps)
		logrus.WithFields(logrus.Fields{
			"steps":  n,
			"halted": m.CPU.Halted(),
			"pc":     m.CPU.PhysPC(),
		}).Info("run finished")
		dump(m, f.RAMDump)
		if err != nil {
			log.Fatalf("CPU fault: %v", err)
		}
		return
	}

	app := ui.NewApp(ui.Config{Title: f.Title, Scale: f.Scale}, m)
	err := app.Run()
	dump(m, f.RAMDump)
	if err != nil {
		log.Fatalf("ui: %v", err)
	}
}

func dump(m *machine.Machine, path string) {
	if path == "" {
		return
	}
	if err := m.DumpRAM(path); err != nil {
		logrus.Errorf("RAM dump: %v", err)
	}
}
