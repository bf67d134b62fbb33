// Package mem implements the 8086 physical address space: a flat 1 MiB of
// byte-addressable RAM with little-endian word packing.
package mem

// Size is the size of the physical address space, 2^20 bytes.
const Size = 1 << 20

// Mask folds any address into the 20-bit physical space.
const Mask = Size - 1

// Memory is the 1 MiB physical address space. Every 20-bit address maps to a
// RAM cell; there is no unmapped region at this layer.
type Memory struct {
	data []byte
}

func New() *Memory {
	return &Memory{data: make([]byte, Size)}
}

// Reset zeroes the whole address space.
func (m *Memory) Reset() {
	for i := range m.data {
		m.data[i] = 0
	}
}

func (m *Memory) ReadByte(addr uint32) byte {
	return m.data[addr&Mask]
}

func (m *Memory) WriteByte(addr uint32, v byte) {
	m.data[addr&Mask] = v
}

// ReadWord reads a little-endian word. The high byte of a word at the top of
// memory wraps to address 0.
func (m *Memory) ReadWord(addr uint32) uint16 {
	lo := uint16(m.data[addr&Mask])
	hi := uint16(m.data[(addr+1)&Mask])
	return lo | hi<<8
}

func (m *Memory) WriteWord(addr uint32, v uint16) {
	m.data[addr&Mask] = byte(v)
	m.data[(addr+1)&Mask] = byte(v >> 8)
}

// Load copies img into memory starting at addr, wrapping at the top.
func (m *Memory) Load(addr uint32, img []byte) {
	for i, b := range img {
		m.data[(addr+uint32(i))&Mask] = b
	}
}

// Bytes exposes the backing store for whole-image operations such as RAM
// dumps. Callers must not resize the slice.
func (m *Memory) Bytes() []byte {
	return m.data
}
