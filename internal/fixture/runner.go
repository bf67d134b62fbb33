package fixture

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/projectacorn/acorn86/internal/cpu"
	"github.com/projectacorn/acorn86/internal/mem"
)

// Mismatch is one field-level difference between the expected and actual
// final state.
type Mismatch struct {
	Field     string
	Want, Got uint32
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: want %#x got %#x", m.Field, m.Want, m.Got)
}

// Tally accumulates pass/fail counts across files.
type Tally struct {
	Total, Passed, Failed int
}

func (t *Tally) add(o Tally) {
	t.Total += o.Total
	t.Passed += o.Passed
	t.Failed += o.Failed
}

func regRef(c *cpu.CPU, name string) *uint16 {
	switch name {
	case "ax":
		return &c.AX
	case "bx":
		return &c.BX
	case "cx":
		return &c.CX
	case "dx":
		return &c.DX
	case "cs":
		return &c.CS
	case "ss":
		return &c.SS
	case "ds":
		return &c.DS
	case "es":
		return &c.ES
	case "sp":
		return &c.SP
	case "bp":
		return &c.BP
	case "si":
		return &c.SI
	case "di":
		return &c.DI
	case "ip":
		return &c.IP
	case "flags":
		return &c.Flags
	}
	return nil
}

// RunCase resets c's registers, seeds them with the case's initial state,
// steps once, and returns the field mismatches (nil on a pass). Memory is not
// cleared, so cells written by earlier cases on the same CPU remain. The instruction bytes are
// laid down at CS:IP first; the initial RAM list then overrides, so fixtures
// that carry the encoding in both places agree with themselves.
func RunCase(c *cpu.CPU, tc Case) []Mismatch {
	c.Reset()
	for name, v := range tc.Initial.Regs {
		if r := regRef(c, name); r != nil {
			*r = v
		}
	}
	for i, b := range tc.Bytes {
		c.Memory().WriteByte(cpu.Phys(c.CS, c.IP+uint16(i)), byte(b))
	}
	for _, cell := range tc.Initial.RAM {
		c.Memory().WriteByte(cell[0], byte(cell[1]))
	}

	_ = c.Step()

	var ms []Mismatch
	for _, name := range RegNames {
		want, listed := tc.Final.Regs[name]
		if !listed {
			initial, seeded := tc.Initial.Regs[name]
			if !seeded {
				continue
			}
			want = initial
		}
		if got := *regRef(c, name); got != want {
			ms = append(ms, Mismatch{Field: name, Want: uint32(want), Got: uint32(got)})
		}
	}
	for _, cell := range tc.Final.RAM {
		if got := c.Memory().ReadByte(cell[0]); uint32(got) != cell[1] {
			ms = append(ms, Mismatch{
				Field: fmt.Sprintf("ram[%#05x]", cell[0]),
				Want:  cell[1],
				Got:   uint32(got),
			})
		}
	}
	return ms
}

// RunAll runs every case against a shared CPU instance, logging the first
// few failures by name the way the original batch runner did.
func RunAll(cases []Case, maxLogged int) Tally {
	m := mem.New()
	c := cpu.New(m)

	var t Tally
	for _, tc := range cases {
		t.Total++
		ms := RunCase(c, tc)
		if len(ms) == 0 {
			t.Passed++
			continue
		}
		t.Failed++
		if t.Failed <= maxLogged {
			logrus.WithFields(logrus.Fields{
				"case":     tc.Name,
				"mismatch": ms[0].String(),
			}).Error("fixture mismatch")
		}
	}
	return t
}

// RunFile loads one fixture file and runs it, folding the result into t.
func RunFile(path string, maxLogged int, t *Tally) error {
	cases, err := Load(path)
	if err != nil {
		return err
	}
	ft := RunAll(cases, maxLogged)
	logrus.WithFields(logrus.Fields{
		"file":   path,
		"total":  ft.Total,
		"passed": ft.Passed,
		"failed": ft.Failed,
	}).Info("fixture file done")
	t.add(ft)
	return nil
}
