// Package machine wires a CPU and its peripherals into a runnable IBM-PC
// style system: BIOS ROM at the top of the address space, a port bus, and a
// step loop with optional state tracing.
package machine

import (
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/projectacorn/acorn86/internal/cpu"
	"github.com/projectacorn/acorn86/internal/mem"
)

// MaxBIOSSize caps a BIOS image at 64 KiB so the reset vector lands inside
// it.
const MaxBIOSSize = 0x10000

// Machine is one 8086 system: CPU, memory, and the port bus.
type Machine struct {
	CPU *cpu.CPU
	Mem *mem.Memory

	ports *PortBus
	trace bool
}

func New() *Machine {
	m := mem.New()
	c := cpu.New(m)
	pb := NewPortBus()
	c.SetIO(pb)
	return &Machine{CPU: c, Mem: m, ports: pb}
}

// Ports exposes the bus for device registration.
func (m *Machine) Ports() *PortBus { return m.ports }

// SetTrace enables per-step register/flag logging at debug level.
func (m *Machine) SetTrace(on bool) { m.trace = on }

// LoadBIOS reads a ROM image of up to 64 KiB and places it so that it ends
// at the top of the 1 MiB space, which puts the reset vector at its tail.
func (m *Machine) LoadBIOS(path string) error {
	img, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read BIOS")
	}
	if len(img) == 0 || len(img) > MaxBIOSSize {
		return errors.Errorf("BIOS image %s: bad size %d", path, len(img))
	}
	base := uint32(mem.Size - len(img))
	m.Mem.Load(base, img)
	logrus.WithFields(logrus.Fields{
		"path": path,
		"size": len(img),
		"base": base,
	}).Info("BIOS loaded")
	return nil
}

// Run steps the CPU until it halts, faults, or maxSteps elapse. It returns
// the number of steps taken and the fault, if any.
func (m *Machine) Run(maxSteps int) (int, error) {
	for n := 0; n < maxSteps; n++ {
		if m.trace {
			logrus.WithFields(logrus.Fields{
				"pc":    m.CPU.PhysPC(),
				"op":    m.Mem.ReadByte(m.CPU.PhysPC()),
				"ax":    m.CPU.AX,
				"bx":    m.CPU.BX,
				"cx":    m.CPU.CX,
				"dx":    m.CPU.DX,
				"flags": FlagString(m.CPU.Flags),
			}).Debug("step")
		}
		if err := m.CPU.Step(); err != nil {
			logrus.WithField("ip", m.CPU.IP).Errorf("CPU fault: %v", err)
			return n + 1, err
		}
		if m.CPU.Halted() {
			return n + 1, nil
		}
	}
	return maxSteps, nil
}

// DumpRAM writes the full 1 MiB image to path.
func (m *Machine) DumpRAM(path string) error {
	return errors.Wrap(os.WriteFile(path, m.Mem.Bytes(), 0o644), "dump RAM")
}

// FlagString renders FLAGS in the classic "odItszapc" form, set bits in
// upper case.
func FlagString(fl uint16) string {
	names := []struct {
		bit uint16
		ch  byte
	}{
		{cpu.FlagOF, 'o'},
		{cpu.FlagDF, 'd'},
		{cpu.FlagIF, 'i'},
		{cpu.FlagTF, 't'},
		{cpu.FlagSF, 's'},
		{cpu.FlagZF, 'z'},
		{cpu.FlagAF, 'a'},
		{cpu.FlagPF, 'p'},
		{cpu.FlagCF, 'c'},
	}
	out := make([]byte, len(names))
	for i, n := range names {
		ch := n.ch
		if fl&n.bit != 0 {
			ch -= 'a' - 'A'
		}
		out[i] = ch
	}
	return string(out)
}
