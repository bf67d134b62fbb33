// Package video decodes the CGA-style text page that PC software writes at
// segment 0xB800: 80x25 cells of character byte plus attribute byte.
package video

import "github.com/projectacorn/acorn86/internal/mem"

const (
	// TextSegment is the segment of the color text-mode page.
	TextSegment = 0xB800

	Columns = 80
	Rows    = 25
)

// Page reads the text page out of video RAM as one string per row.
// Attribute bytes are skipped; non-printable characters render as spaces.
func Page(m *mem.Memory) []string {
	base := uint32(TextSegment) << 4
	lines := make([]string, Rows)
	row := make([]byte, Columns)
	for r := 0; r < Rows; r++ {
		for c := 0; c < Columns; c++ {
			ch := m.ReadByte(base + uint32(r*Columns+c)*2)
			if ch < 0x20 || ch > 0x7E {
				ch = ' '
			}
			row[c] = ch
		}
		lines[r] = string(row)
	}
	return lines
}
