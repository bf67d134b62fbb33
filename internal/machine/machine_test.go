package machine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/projectacorn/acorn86/internal/cpu"
	"github.com/projectacorn/acorn86/internal/mem"
)

func writeBIOS(t *testing.T, img []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bios.bin")
	if err := os.WriteFile(path, img, 0o644); err != nil {
		t.Fatalf("write BIOS: %v", err)
	}
	return path
}

func TestLoadBIOSPlacesImageAtTop(t *testing.T) {
	m := New()
	img := make([]byte, 0x100)
	img[0] = 0xEA // JMP far would sit at the reset vector of a real ROM
	img[0xFF] = 0x55
	if err := m.LoadBIOS(writeBIOS(t, img)); err != nil {
		t.Fatalf("LoadBIOS: %v", err)
	}
	base := uint32(mem.Size - len(img))
	if b := m.Mem.ReadByte(base); b != 0xEA {
		t.Fatalf("BIOS head got %02x want EA", b)
	}
	if b := m.Mem.ReadByte(mem.Size - 1); b != 0x55 {
		t.Fatalf("BIOS tail got %02x want 55", b)
	}
}

func TestLoadBIOSRejectsBadSizes(t *testing.T) {
	m := New()
	if err := m.LoadBIOS(writeBIOS(t, nil)); err == nil {
		t.Fatalf("empty BIOS must be rejected")
	}
	if err := m.LoadBIOS(writeBIOS(t, make([]byte, MaxBIOSSize+1))); err == nil {
		t.Fatalf("oversized BIOS must be rejected")
	}
	if err := m.LoadBIOS(filepath.Join(t.TempDir(), "missing.bin")); err == nil {
		t.Fatalf("missing file must be reported")
	}
}

func TestRunExecutesFromResetVector(t *testing.T) {
	m := New()
	// A 16-byte ROM lands with its first byte exactly at the reset vector.
	img := make([]byte, 16)
	img[0] = 0x40 // INC AX
	img[1] = 0xF4 // HLT
	if err := m.LoadBIOS(writeBIOS(t, img)); err != nil {
		t.Fatalf("LoadBIOS: %v", err)
	}
	if m.CPU.PhysPC() != 0xFFFF0 {
		t.Fatalf("reset PC got %#05x want 0xFFFF0", m.CPU.PhysPC())
	}
	n, err := m.Run(100)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 2 || !m.CPU.Halted() {
		t.Fatalf("got n=%d halted=%v want 2 steps then halt", n, m.CPU.Halted())
	}
	if m.CPU.AX != 1 {
		t.Fatalf("AX got %04x want 0001", m.CPU.AX)
	}
}

func TestRunReportsFaults(t *testing.T) {
	m := New()
	img := make([]byte, 16)
	img[0] = 0xF1 // rejected prefix
	if err := m.LoadBIOS(writeBIOS(t, img)); err != nil {
		t.Fatalf("LoadBIOS: %v", err)
	}
	_, err := m.Run(10)
	if _, ok := err.(cpu.UndefinedOpcodeError); !ok {
		t.Fatalf("want UndefinedOpcodeError, got %v", err)
	}
}

func TestPortBus(t *testing.T) {
	pb := NewPortBus()
	if pb.In8(0x60) != 0xFF || pb.In16(0x60) != 0xFFFF {
		t.Fatalf("unconnected ports must read all-ones")
	}
	pb.Out8(0x60, 0x12) // discarded, must not panic

	pb.HandleIn(0x60, func() byte { return 0x5A })
	if pb.In8(0x60) != 0x5A {
		t.Fatalf("handler not used")
	}
	// Word access splits low/high: handler at 0x60, open bus at 0x61.
	if got := pb.In16(0x60); got != 0xFF5A {
		t.Fatalf("In16 got %04x want FF5A", got)
	}

	var seen []byte
	pb.HandleOut(0x42, func(v byte) { seen = append(seen, v) })
	pb.Out16(0x42, 0xBBAA)
	if len(seen) != 1 || seen[0] != 0xAA {
		t.Fatalf("Out16 low byte routing got %v", seen)
	}
}

func TestCPUINUsesPortBus(t *testing.T) {
	m := New()
	m.Ports().HandleIn(0x60, func() byte { return 0x77 })
	// IN AL, 0x60 placed at the reset vector.
	img := make([]byte, 16)
	img[0] = 0xE4
	img[1] = 0x60
	img[2] = 0xF4
	if err := m.LoadBIOS(writeBIOS(t, img)); err != nil {
		t.Fatalf("LoadBIOS: %v", err)
	}
	if _, err := m.Run(10); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if byte(m.CPU.AX) != 0x77 {
		t.Fatalf("IN AL got %02x want 77", byte(m.CPU.AX))
	}
}

func TestDumpRAM(t *testing.T) {
	m := New()
	m.Mem.WriteByte(0x12345, 0xAB)
	path := filepath.Join(t.TempDir(), "ram.dmp")
	if err := m.DumpRAM(path); err != nil {
		t.Fatalf("DumpRAM: %v", err)
	}
	img, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}
	if len(img) != mem.Size {
		t.Fatalf("dump size got %d want %d", len(img), mem.Size)
	}
	if img[0x12345] != 0xAB {
		t.Fatalf("dump content got %02x want AB", img[0x12345])
	}
}

func TestFlagString(t *testing.T) {
	if s := FlagString(0); s != "oditszapc" {
		t.Fatalf("empty flags got %q", s)
	}
	if s := FlagString(cpu.FlagCF | cpu.FlagZF | cpu.FlagOF); s != "OditsZapC" {
		t.Fatalf("got %q want OditsZapC", s)
	}
}
