// Package cpu implements an instruction-accurate Intel 8086 core: register
// file, ModR/M addressing unit, flag engine, and the full primary opcode map
// including the undocumented forms the silicon defines (POP CS, SALC, the
// 0x60-0x6F Jcc aliases, the RET aliases at 0xC0/0xC1/0xC8/0xC9).
package cpu

import (
	"errors"
	"fmt"

	"github.com/projectacorn/acorn86/internal/mem"
)

// Reset values, per the 8086 power-on state.
const (
	ResetCS = 0xF000
	ResetIP = 0xFFF0
	ResetSP = 0xFFFE
)

// ErrDivideError reports DIV/IDIV with a zero divisor or an unrepresentable
// quotient, and AAM with a zero immediate. The CPU is halted; a full machine
// would vector through INT 0 instead.
var ErrDivideError = errors.New("divide error")

// UndefinedOpcodeError reports an opcode byte with no handler. The CPU is
// halted with IP left at the offending byte.
type UndefinedOpcodeError byte

func (e UndefinedOpcodeError) Error() string {
	return fmt.Sprintf("undefined opcode %#02x", byte(e))
}

type segOverride byte

const (
	segNone segOverride = iota
	segES
	segCS
	segSS
	segDS
)

type repPrefix byte

const (
	repNone     repPrefix = iota
	repWhile              // 0xF3: REP / REPE / REPZ
	repWhileNot           // 0xF2: REPNE / REPNZ
)

// 16-bit register slots as encoded in ModR/M and the short opcode forms.
const (
	regAX = iota
	regCX
	regDX
	regBX
	regSP
	regBP
	regSI
	regDI
)

// CPU is one 8086 core plus its exclusively-owned memory. A CPU must not be
// shared between goroutines.
type CPU struct {
	AX, BX, CX, DX uint16
	SP, BP, SI, DI uint16
	ES, CS, SS, DS uint16
	IP             uint16
	Flags          uint16

	mem *mem.Memory
	io  IOBus

	halted bool

	// Single-instruction decode state, cleared at the top of every Step.
	seg segOverride
	rep repPrefix
}

// New creates a CPU at the 8086 reset state.
func New(m *mem.Memory) *CPU {
	c := &CPU{mem: m}
	c.Reset()
	return c
}

// Reset zeroes all architectural state and applies the reset values, leaving
// the CPU running at CS:IP = F000:FFF0.
func (c *CPU) Reset() {
	*c = CPU{mem: c.mem, io: c.io}
	c.CS = ResetCS
	c.IP = ResetIP
	c.SP = ResetSP
}

// SetIO connects a port bus. With none connected, IN reads all-ones and OUT
// writes are discarded.
func (c *CPU) SetIO(io IOBus) { c.io = io }

// Memory exposes the address space for tools and tests.
func (c *CPU) Memory() *mem.Memory { return c.mem }

// Halted reports whether the CPU has stopped (HLT, divide error, or an
// undefined opcode).
func (c *CPU) Halted() bool { return c.halted }

// PhysPC returns the physical address of the next instruction byte.
func (c *CPU) PhysPC() uint32 { return phys(c.CS, c.IP) }

// Phys computes the 20-bit physical address of a segment:offset pair.
func Phys(seg, off uint16) uint32 { return phys(seg, off) }

func phys(seg, off uint16) uint32 {
	return (uint32(seg)<<4 + uint32(off)) & mem.Mask
}

// 8-bit register slots: 0-3 are the low halves of AX/CX/DX/BX, 4-7 the highs.

func (c *CPU) reg8(i byte) byte {
	switch i & 7 {
	case 0:
		return byte(c.AX)
	case 1:
		return byte(c.CX)
	case 2:
		return byte(c.DX)
	case 3:
		return byte(c.BX)
	case 4:
		return byte(c.AX >> 8)
	case 5:
		return byte(c.CX >> 8)
	case 6:
		return byte(c.DX >> 8)
	default:
		return byte(c.BX >> 8)
	}
}

func (c *CPU) setReg8(i byte, v byte) {
	switch i & 7 {
	case 0:
		c.AX = c.AX&0xFF00 | uint16(v)
	case 1:
		c.CX = c.CX&0xFF00 | uint16(v)
	case 2:
		c.DX = c.DX&0xFF00 | uint16(v)
	case 3:
		c.BX = c.BX&0xFF00 | uint16(v)
	case 4:
		c.AX = c.AX&0x00FF | uint16(v)<<8
	case 5:
		c.CX = c.CX&0x00FF | uint16(v)<<8
	case 6:
		c.DX = c.DX&0x00FF | uint16(v)<<8
	default:
		c.BX = c.BX&0x00FF | uint16(v)<<8
	}
}

func (c *CPU) reg16(i byte) uint16 {
	switch i & 7 {
	case regAX:
		return c.AX
	case regCX:
		return c.CX
	case regDX:
		return c.DX
	case regBX:
		return c.BX
	case regSP:
		return c.SP
	case regBP:
		return c.BP
	case regSI:
		return c.SI
	default:
		return c.DI
	}
}

func (c *CPU) setReg16(i byte, v uint16) {
	switch i & 7 {
	case regAX:
		c.AX = v
	case regCX:
		c.CX = v
	case regDX:
		c.DX = v
	case regBX:
		c.BX = v
	case regSP:
		c.SP = v
	case regBP:
		c.BP = v
	case regSI:
		c.SI = v
	default:
		c.DI = v
	}
}

func (c *CPU) sreg(i byte) uint16 {
	switch i & 3 {
	case 0:
		return c.ES
	case 1:
		return c.CS
	case 2:
		return c.SS
	default:
		return c.DS
	}
}

func (c *CPU) setSreg(i byte, v uint16) {
	switch i & 3 {
	case 0:
		c.ES = v
	case 1:
		c.CS = v
	case 2:
		c.SS = v
	default:
		c.DS = v
	}
}

// Accumulator half accessors, used pervasively by the BCD and MUL/DIV
// families.

func (c *CPU) al() byte     { return byte(c.AX) }
func (c *CPU) setAL(v byte) { c.AX = c.AX&0xFF00 | uint16(v) }
func (c *CPU) ah() byte     { return byte(c.AX >> 8) }
func (c *CPU) setAH(v byte) { c.AX = c.AX&0x00FF | uint16(v)<<8 }
func (c *CPU) cl() byte     { return byte(c.CX) }

func (c *CPU) flag(f uint16) bool { return c.Flags&f != 0 }

func (c *CPU) setFlag(f uint16, on bool) {
	if on {
		c.Flags |= f
	} else {
		c.Flags &^= f
	}
}

// memSeg resolves the segment for a memory operand: the active override if
// any, else the operand's default.
func (c *CPU) memSeg(def uint16) uint16 {
	switch c.seg {
	case segES:
		return c.ES
	case segCS:
		return c.CS
	case segSS:
		return c.SS
	case segDS:
		return c.DS
	}
	return def
}

// Code stream access. Byte-at-a-time so IP wraps at 2^16 within CS.

func (c *CPU) fetchByte() byte {
	v := c.mem.ReadByte(phys(c.CS, c.IP))
	c.IP++
	return v
}

func (c *CPU) fetchWord() uint16 {
	lo := uint16(c.fetchByte())
	hi := uint16(c.fetchByte())
	return lo | hi<<8
}

// Stack access. Pushes adjust SP before the write, pops read before the
// adjustment.

func (c *CPU) push16(v uint16) {
	c.SP -= 2
	c.mem.WriteWord(phys(c.SS, c.SP), v)
}

func (c *CPU) pop16() uint16 {
	v := c.mem.ReadWord(phys(c.SS, c.SP))
	c.SP += 2
	return v
}

// Step executes exactly one instruction: prefixes, opcode dispatch, and the
// IP advance. A nil return means the CPU continued (HLT also returns nil and
// marks the CPU halted). ErrDivideError and UndefinedOpcodeError halt the
// CPU; an undefined opcode leaves IP at the offending byte, a divide error
// leaves the whole instruction unexecuted.
func (c *CPU) Step() error {
	c.seg = segNone
	c.rep = repNone
	start := c.IP

	var op byte
prefixes:
	for {
		op = c.fetchByte()
		switch op {
		case 0x26:
			c.seg = segES
		case 0x2E:
			c.seg = segCS
		case 0x36:
			c.seg = segSS
		case 0x3E:
			c.seg = segDS
		case 0xF2:
			c.rep = repWhileNot
		case 0xF3:
			c.rep = repWhile
		default:
			break prefixes
		}
	}
	opPos := c.IP - 1

	err := c.execute(op, start)
	c.seg = segNone
	c.rep = repNone
	if err != nil {
		c.halted = true
		if _, undefined := err.(UndefinedOpcodeError); undefined {
			c.IP = opPos
		} else {
			c.IP = start
		}
	}
	return err
}

// execute dispatches one opcode. IP has consumed the prefixes and the opcode
// byte; handlers consume their own ModR/M, displacement, and immediates.
// start is the offset of the first prefix byte, used by the string family to
// re-arm an unfinished REP.
func (c *CPU) execute(op byte, start uint16) error {
	switch op {
	// The eight two-operand arithmetic/logic rows, six forms each.
	case 0x00, 0x01, 0x02, 0x03, 0x04, 0x05,
		0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D,
		0x10, 0x11, 0x12, 0x13, 0x14, 0x15,
		0x18, 0x19, 0x1A, 0x1B, 0x1C, 0x1D,
		0x20, 0x21, 0x22, 0x23, 0x24, 0x25,
		0x28, 0x29, 0x2A, 0x2B, 0x2C, 0x2D,
		0x30, 0x31, 0x32, 0x33, 0x34, 0x35,
		0x38, 0x39, 0x3A, 0x3B, 0x3C, 0x3D:
		c.aluRow(op)

	// Segment register pushes/pops, including the undocumented POP CS.
	case 0x06:
		c.push16(c.ES)
	case 0x07:
		c.ES = c.pop16()
	case 0x0E:
		c.push16(c.CS)
	case 0x0F:
		c.CS = c.pop16()
	case 0x16:
		c.push16(c.SS)
	case 0x17:
		c.SS = c.pop16()
	case 0x1E:
		c.push16(c.DS)
	case 0x1F:
		c.DS = c.pop16()

	case 0x27:
		c.daa()
	case 0x2F:
		c.das()
	case 0x37:
		c.aaa()
	case 0x3F:
		c.aas()

	case 0x40, 0x41, 0x42, 0x43, 0x44, 0x45, 0x46, 0x47: // INC r16
		r := op & 7
		v, fl := incFlags16(c.Flags, c.reg16(r))
		c.setReg16(r, v)
		c.Flags = fl
	case 0x48, 0x49, 0x4A, 0x4B, 0x4C, 0x4D, 0x4E, 0x4F: // DEC r16
		r := op & 7
		v, fl := decFlags16(c.Flags, c.reg16(r))
		c.setReg16(r, v)
		c.Flags = fl

	case 0x50, 0x51, 0x52, 0x53, 0x54, 0x55, 0x56, 0x57: // PUSH r16
		r := op & 7
		if r == regSP {
			// The 8086 pushes the already-decremented SP.
			c.SP -= 2
			c.mem.WriteWord(phys(c.SS, c.SP), c.SP)
		} else {
			c.push16(c.reg16(r))
		}
	case 0x58, 0x59, 0x5A, 0x5B, 0x5C, 0x5D, 0x5E, 0x5F: // POP r16
		c.setReg16(op&7, c.pop16())

	// 0x60-0x6F alias the Jcc grid on the 8086.
	case 0x60, 0x61, 0x62, 0x63, 0x64, 0x65, 0x66, 0x67,
		0x68, 0x69, 0x6A, 0x6B, 0x6C, 0x6D, 0x6E, 0x6F,
		0x70, 0x71, 0x72, 0x73, 0x74, 0x75, 0x76, 0x77,
		0x78, 0x79, 0x7A, 0x7B, 0x7C, 0x7D, 0x7E, 0x7F:
		c.jcc(op)

	case 0x80, 0x81, 0x82, 0x83:
		c.grp1(op)

	case 0x84: // TEST r/m8, r8
		m := c.fetchModRM()
		c.Flags = logicFlags8(c.Flags, c.rm8(m)&c.reg8(m.reg))
	case 0x85: // TEST r/m16, r16
		m := c.fetchModRM()
		c.Flags = logicFlags16(c.Flags, c.rm16(m)&c.reg16(m.reg))

	case 0x86: // XCHG r/m8, r8
		m := c.fetchModRM()
		v := c.rm8(m)
		c.setRM8(m, c.reg8(m.reg))
		c.setReg8(m.reg, v)
	case 0x87: // XCHG r/m16, r16
		m := c.fetchModRM()
		v := c.rm16(m)
		c.setRM16(m, c.reg16(m.reg))
		c.setReg16(m.reg, v)

	case 0x88: // MOV r/m8, r8
		m := c.fetchModRM()
		c.setRM8(m, c.reg8(m.reg))
	case 0x89: // MOV r/m16, r16
		m := c.fetchModRM()
		c.setRM16(m, c.reg16(m.reg))
	case 0x8A: // MOV r8, r/m8
		m := c.fetchModRM()
		c.setReg8(m.reg, c.rm8(m))
	case 0x8B: // MOV r16, r/m16
		m := c.fetchModRM()
		c.setReg16(m.reg, c.rm16(m))

	case 0x8C: // MOV r/m16, Sreg
		m := c.fetchModRM()
		c.setRM16(m, c.sreg(m.reg))
	case 0x8D: // LEA r16, m: loads the offset, never touches memory.
		m := c.fetchModRM()
		if m.mem {
			c.setReg16(m.reg, m.off)
		}
	case 0x8E: // MOV Sreg, r/m16
		m := c.fetchModRM()
		c.setSreg(m.reg, c.rm16(m))
	case 0x8F: // POP r/m16
		m := c.fetchModRM()
		c.setRM16(m, c.pop16())

	case 0x90, 0x91, 0x92, 0x93, 0x94, 0x95, 0x96, 0x97: // XCHG AX, r16 (0x90 is NOP)
		r := op & 7
		v := c.reg16(r)
		c.setReg16(r, c.AX)
		c.AX = v

	case 0x98: // CBW
		c.AX = uint16(int16(int8(c.al())))
	case 0x99: // CWD
		if c.AX&0x8000 != 0 {
			c.DX = 0xFFFF
		} else {
			c.DX = 0
		}

	case 0x9A: // CALL far imm16:imm16
		off := c.fetchWord()
		seg := c.fetchWord()
		c.push16(c.CS)
		c.push16(c.IP)
		c.CS = seg
		c.IP = off

	case 0x9B: // WAIT: no coprocessor attached, nothing to wait on.

	case 0x9C:
		c.push16(c.Flags)
	case 0x9D:
		c.Flags = c.pop16()
	case 0x9E: // SAHF: CF, PF, AF, ZF, SF from AH, bit 1 forced set.
		c.Flags = c.Flags&0xFF00 | uint16(c.ah()&0xD5) | 0x02
	case 0x9F: // LAHF: low FLAGS into AH with the fixed reserved bits.
		c.setAH(byte(c.Flags)&0xD5 | 0x02)

	case 0xA0: // MOV AL, [moffs16]
		off := c.fetchWord()
		c.setAL(c.mem.ReadByte(phys(c.memSeg(c.DS), off)))
	case 0xA1: // MOV AX, [moffs16]
		off := c.fetchWord()
		c.AX = c.mem.ReadWord(phys(c.memSeg(c.DS), off))
	case 0xA2: // MOV [moffs16], AL
		off := c.fetchWord()
		c.mem.WriteByte(phys(c.memSeg(c.DS), off), c.al())
	case 0xA3: // MOV [moffs16], AX
		off := c.fetchWord()
		c.mem.WriteWord(phys(c.memSeg(c.DS), off), c.AX)

	case 0xA4:
		c.movs(false, start)
	case 0xA5:
		c.movs(true, start)
	case 0xA6:
		c.cmps(false, start)
	case 0xA7:
		c.cmps(true, start)

	case 0xA8: // TEST AL, imm8
		c.Flags = logicFlags8(c.Flags, c.al()&c.fetchByte())
	case 0xA9: // TEST AX, imm16
		c.Flags = logicFlags16(c.Flags, c.AX&c.fetchWord())

	case 0xAA:
		c.stos(false, start)
	case 0xAB:
		c.stos(true, start)
	case 0xAC:
		c.lods(false, start)
	case 0xAD:
		c.lods(true, start)
	case 0xAE:
		c.scas(false, start)
	case 0xAF:
		c.scas(true, start)

	case 0xB0, 0xB1, 0xB2, 0xB3, 0xB4, 0xB5, 0xB6, 0xB7: // MOV r8, imm8
		c.setReg8(op&7, c.fetchByte())
	case 0xB8, 0xB9, 0xBA, 0xBB, 0xBC, 0xBD, 0xBE, 0xBF: // MOV r16, imm16
		c.setReg16(op&7, c.fetchWord())

	// RET family. 0xC0/0xC1/0xC8/0xC9 are the 8086 aliases of their
	// documented neighbours.
	case 0xC0, 0xC2: // RET near imm16
		n := c.fetchWord()
		c.IP = c.pop16()
		c.SP += n
	case 0xC1, 0xC3: // RET near
		c.IP = c.pop16()
	case 0xC8, 0xCA: // RET far imm16
		n := c.fetchWord()
		c.IP = c.pop16()
		c.CS = c.pop16()
		c.SP += n
	case 0xC9, 0xCB: // RET far
		c.IP = c.pop16()
		c.CS = c.pop16()

	case 0xC4: // LES r16, m
		m := c.fetchModRM()
		c.setReg16(m.reg, c.mem.ReadWord(m.phys))
		c.ES = c.mem.ReadWord((m.phys + 2) & mem.Mask)
	case 0xC5: // LDS r16, m
		m := c.fetchModRM()
		c.setReg16(m.reg, c.mem.ReadWord(m.phys))
		c.DS = c.mem.ReadWord((m.phys + 2) & mem.Mask)

	case 0xC6: // MOV r/m8, imm8
		m := c.fetchModRM()
		c.setRM8(m, c.fetchByte())
	case 0xC7: // MOV r/m16, imm16
		m := c.fetchModRM()
		c.setRM16(m, c.fetchWord())

	case 0xCC:
		c.interrupt(3)
	case 0xCD:
		c.interrupt(c.fetchByte())
	case 0xCE: // INTO
		if c.flag(FlagOF) {
			c.interrupt(4)
		}
	case 0xCF: // IRET
		c.IP = c.pop16()
		c.CS = c.pop16()
		c.Flags = c.pop16()

	case 0xD0, 0xD1, 0xD2, 0xD3:
		c.grp2(op)

	case 0xD4:
		return c.aam()
	case 0xD5:
		c.aad()

	case 0xD6: // SALC
		if c.flag(FlagCF) {
			c.setAL(0xFF)
		} else {
			c.setAL(0x00)
		}
	case 0xD7: // XLAT
		c.setAL(c.mem.ReadByte(phys(c.memSeg(c.DS), c.BX+uint16(c.al()))))

	case 0xD8, 0xD9, 0xDA, 0xDB, 0xDC, 0xDD, 0xDE, 0xDF: // ESC: decode and skip
		c.fetchModRM()

	case 0xE0: // LOOPNE
		off := int8(c.fetchByte())
		c.CX--
		if c.CX != 0 && !c.flag(FlagZF) {
			c.IP += uint16(int16(off))
		}
	case 0xE1: // LOOPE
		off := int8(c.fetchByte())
		c.CX--
		if c.CX != 0 && c.flag(FlagZF) {
			c.IP += uint16(int16(off))
		}
	case 0xE2: // LOOP
		off := int8(c.fetchByte())
		c.CX--
		if c.CX != 0 {
			c.IP += uint16(int16(off))
		}
	case 0xE3: // JCXZ
		off := int8(c.fetchByte())
		if c.CX == 0 {
			c.IP += uint16(int16(off))
		}

	case 0xE4: // IN AL, imm8
		c.setAL(c.in8(uint16(c.fetchByte())))
	case 0xE5: // IN AX, imm8
		c.AX = c.in16(uint16(c.fetchByte()))
	case 0xE6: // OUT imm8, AL
		c.out8(uint16(c.fetchByte()), c.al())
	case 0xE7: // OUT imm8, AX
		c.out16(uint16(c.fetchByte()), c.AX)
	case 0xEC:
		c.setAL(c.in8(c.DX))
	case 0xED:
		c.AX = c.in16(c.DX)
	case 0xEE:
		c.out8(c.DX, c.al())
	case 0xEF:
		c.out16(c.DX, c.AX)

	case 0xE8: // CALL rel16
		off := c.fetchWord()
		c.push16(c.IP)
		c.IP += off
	case 0xE9: // JMP rel16
		c.IP += c.fetchWord()
	case 0xEA: // JMP far imm16:imm16
		off := c.fetchWord()
		seg := c.fetchWord()
		c.CS = seg
		c.IP = off
	case 0xEB: // JMP rel8
		off := int8(c.fetchByte())
		c.IP += uint16(int16(off))

	case 0xF4: // HLT: halt the core, IP past the instruction.
		c.halted = true
	case 0xF5: // CMC
		c.Flags ^= FlagCF

	case 0xF6, 0xF7:
		return c.grp3(op)

	case 0xF8:
		c.setFlag(FlagCF, false)
	case 0xF9:
		c.setFlag(FlagCF, true)
	case 0xFA:
		c.setFlag(FlagIF, false)
	case 0xFB:
		c.setFlag(FlagIF, true)
	case 0xFC:
		c.setFlag(FlagDF, false)
	case 0xFD:
		c.setFlag(FlagDF, true)

	case 0xFE:
		return c.grp4()
	case 0xFF:
		c.grp5()

	default:
		// Includes 0xF0/0xF1: prefixes other than segment overrides and
		// REP/REPNE are rejected.
		return UndefinedOpcodeError(op)
	}
	return nil
}

// interrupt pushes FLAGS, CS and the next-instruction IP, clears IF and TF,
// and loads CS:IP from the 4-byte vector table entry.
func (c *CPU) interrupt(vec byte) {
	c.push16(c.Flags)
	c.push16(c.CS)
	c.push16(c.IP)
	c.setFlag(FlagIF, false)
	c.setFlag(FlagTF, false)
	base := uint32(vec) * 4
	c.IP = c.mem.ReadWord(base)
	c.CS = c.mem.ReadWord(base + 2)
}
