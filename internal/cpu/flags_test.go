package cpu

import "testing"

func TestParityLowByteOnly(t *testing.T) {
	// PF reflects the low 8 bits even for word results.
	fl := szp16(0, 0xFF00)
	if fl&FlagPF == 0 {
		t.Fatalf("szp16(0xFF00): low byte 00 has even parity, want PF set")
	}
	fl = szp16(0, 0x0001)
	if fl&FlagPF != 0 {
		t.Fatalf("szp16(0x0001): one bit set, want PF clear")
	}
	fl = szp8(0, 0x03)
	if fl&FlagPF == 0 {
		t.Fatalf("szp8(0x03): two bits set, want PF set")
	}
}

func TestAddFlags8Carry(t *testing.T) {
	res, fl := addFlags8(0, 0xFF, 0x01, 0)
	if res != 0 {
		t.Fatalf("result got %02x want 00", res)
	}
	for _, want := range []uint16{FlagCF, FlagAF, FlagZF, FlagPF} {
		if fl&want == 0 {
			t.Fatalf("flag %04x not set, flags=%04x", want, fl)
		}
	}
	if fl&(FlagOF|FlagSF) != 0 {
		t.Fatalf("OF/SF must be clear, flags=%04x", fl)
	}
}

func TestAddFlags8SignedOverflow(t *testing.T) {
	// 0x7F + 0x01 overflows signed byte range.
	res, fl := addFlags8(0, 0x7F, 0x01, 0)
	if res != 0x80 || fl&FlagOF == 0 || fl&FlagSF == 0 {
		t.Fatalf("got res=%02x flags=%04x want 80 with OF,SF", res, fl)
	}
	if fl&FlagCF != 0 {
		t.Fatalf("no unsigned carry expected, flags=%04x", fl)
	}
}

func TestSubFlags8Borrow(t *testing.T) {
	res, fl := subFlags8(0, 0x00, 0x01, 0)
	if res != 0xFF {
		t.Fatalf("result got %02x want FF", res)
	}
	for _, want := range []uint16{FlagCF, FlagAF, FlagSF, FlagPF} {
		if fl&want == 0 {
			t.Fatalf("flag %04x not set, flags=%04x", want, fl)
		}
	}
	if fl&(FlagOF|FlagZF) != 0 {
		t.Fatalf("OF/ZF must be clear, flags=%04x", fl)
	}
}

func TestSubFlags8SignedOverflow(t *testing.T) {
	// 0x80 - 0x01 = 0x7F crosses the signed boundary.
	res, fl := subFlags8(0, 0x80, 0x01, 0)
	if res != 0x7F || fl&FlagOF == 0 {
		t.Fatalf("got res=%02x flags=%04x want 7F with OF", res, fl)
	}
}

func TestAdcSbbCarryChain(t *testing.T) {
	res, fl := addFlags8(0, 0xFF, 0x00, 1)
	if res != 0 || fl&FlagCF == 0 {
		t.Fatalf("ADC 0xFF+0+1 got res=%02x flags=%04x", res, fl)
	}
	res, fl = subFlags8(0, 0x00, 0x00, 1)
	if res != 0xFF || fl&FlagCF == 0 {
		t.Fatalf("SBB 0-0-1 got res=%02x flags=%04x", res, fl)
	}
}

func TestIncDecPreserveCF(t *testing.T) {
	_, fl := incFlags16(FlagCF, 0x7FFF)
	if fl&FlagCF == 0 {
		t.Fatalf("incFlags16 cleared CF")
	}
	if fl&FlagOF == 0 {
		t.Fatalf("incFlags16(0x7FFF) must set OF")
	}
	_, fl = decFlags16(0, 0x0000)
	if fl&FlagCF != 0 {
		t.Fatalf("decFlags16 set CF from borrow")
	}
}

func TestLogicFlagsClearCOA(t *testing.T) {
	fl := logicFlags16(FlagCF|FlagOF|FlagAF, 0x8000)
	if fl&(FlagCF|FlagOF|FlagAF) != 0 {
		t.Fatalf("logic flags must clear CF, OF, AF: %04x", fl)
	}
	if fl&FlagSF == 0 {
		t.Fatalf("SF not set for 0x8000")
	}
}

func TestFlagHelpersPreserveReservedBits(t *testing.T) {
	const reserved = uint16(0xF002) // bits outside the defined flag set
	_, fl := addFlags16(reserved, 1, 2, 0)
	if fl&reserved != reserved {
		t.Fatalf("reserved bits lost: %04x", fl)
	}
	if fl&FlagIF != 0 || fl&FlagDF != 0 || fl&FlagTF != 0 {
		t.Fatalf("control flags must be untouched: %04x", fl)
	}
}
