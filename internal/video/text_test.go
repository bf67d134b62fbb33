package video

import (
	"strings"
	"testing"

	"github.com/projectacorn/acorn86/internal/mem"
)

func TestPageReadsCharactersSkippingAttributes(t *testing.T) {
	m := mem.New()
	base := uint32(TextSegment) << 4
	msg := "IBM forever!"
	for i, ch := range []byte(msg) {
		m.WriteByte(base+uint32(i)*2, ch)
		m.WriteByte(base+uint32(i)*2+1, 0x07) // attribute, ignored
	}

	lines := Page(m)
	if len(lines) != Rows {
		t.Fatalf("rows got %d want %d", len(lines), Rows)
	}
	if !strings.HasPrefix(lines[0], msg) {
		t.Fatalf("first line got %q", lines[0][:20])
	}
	if len(lines[0]) != Columns {
		t.Fatalf("line width got %d want %d", len(lines[0]), Columns)
	}
}

func TestPageBlanksNonPrintable(t *testing.T) {
	m := mem.New()
	base := uint32(TextSegment) << 4
	m.WriteByte(base, 0x01)                   // control char
	m.WriteByte(base+uint32(Columns)*2, 0xB0) // high box-drawing byte
	lines := Page(m)
	if lines[0][0] != ' ' || lines[1][0] != ' ' {
		t.Fatalf("non-printable cells must render as spaces: %q %q", lines[0][0], lines[1][0])
	}
}

func TestPageSecondRowAddressing(t *testing.T) {
	m := mem.New()
	base := uint32(TextSegment) << 4
	m.WriteByte(base+uint32(Columns*2), 'X') // row 1, column 0
	lines := Page(m)
	if lines[1][0] != 'X' {
		t.Fatalf("row addressing wrong: got %q", lines[1][0])
	}
}
