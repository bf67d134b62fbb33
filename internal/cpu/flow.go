package cpu

import "github.com/projectacorn/acorn86/internal/mem"

// jcc executes a conditional short jump. The low nibble selects the
// condition; 0x60-0x6F arrive here as aliases of 0x70-0x7F.
func (c *CPU) jcc(op byte) {
	off := int8(c.fetchByte())
	if c.condition(op & 0x0F) {
		c.IP += uint16(int16(off))
	}
}

func (c *CPU) condition(n byte) bool {
	switch n {
	case 0x0: // JO
		return c.flag(FlagOF)
	case 0x1: // JNO
		return !c.flag(FlagOF)
	case 0x2: // JB/JC
		return c.flag(FlagCF)
	case 0x3: // JNB/JNC
		return !c.flag(FlagCF)
	case 0x4: // JZ/JE
		return c.flag(FlagZF)
	case 0x5: // JNZ/JNE
		return !c.flag(FlagZF)
	case 0x6: // JBE
		return c.flag(FlagCF) || c.flag(FlagZF)
	case 0x7: // JA
		return !c.flag(FlagCF) && !c.flag(FlagZF)
	case 0x8: // JS
		return c.flag(FlagSF)
	case 0x9: // JNS
		return !c.flag(FlagSF)
	case 0xA: // JP
		return c.flag(FlagPF)
	case 0xB: // JNP
		return !c.flag(FlagPF)
	case 0xC: // JL
		return c.flag(FlagSF) != c.flag(FlagOF)
	case 0xD: // JNL
		return c.flag(FlagSF) == c.flag(FlagOF)
	case 0xE: // JLE
		return c.flag(FlagZF) || c.flag(FlagSF) != c.flag(FlagOF)
	default: // JG
		return !c.flag(FlagZF) && c.flag(FlagSF) == c.flag(FlagOF)
	}
}

// grp5 executes 0xFF: INC/DEC r/m16, indirect CALL/JMP near and far, and
// PUSH r/m16 (subfunction 7 is the 8086's second PUSH encoding). Far forms
// with a register operand load only IP; there is no segment word to read.
func (c *CPU) grp5() {
	m := c.fetchModRM()
	switch m.reg {
	case 0:
		v, fl := incFlags16(c.Flags, c.rm16(m))
		c.setRM16(m, v)
		c.Flags = fl
	case 1:
		v, fl := decFlags16(c.Flags, c.rm16(m))
		c.setRM16(m, v)
		c.Flags = fl
	case 2: // CALL near r/m16
		target := c.rm16(m)
		c.push16(c.IP)
		c.IP = target
	case 3: // CALL far m16:16
		ip, cs := c.farPointer(m)
		c.push16(c.CS)
		c.push16(c.IP)
		c.CS = cs
		c.IP = ip
	case 4: // JMP near r/m16
		c.IP = c.rm16(m)
	case 5: // JMP far m16:16
		c.IP, c.CS = c.farPointer(m)
	case 6, 7: // PUSH r/m16
		if !m.mem && m.rm == regSP {
			// Same quirk as the short PUSH SP form.
			c.SP -= 2
			c.mem.WriteWord(phys(c.SS, c.SP), c.SP)
		} else {
			c.push16(c.rm16(m))
		}
	}
}

// farPointer reads an IP:CS pair from a memory operand. With a register
// operand only the offset exists; CS is left as-is.
func (c *CPU) farPointer(m operand) (ip, cs uint16) {
	if !m.mem {
		return c.reg16(m.rm), c.CS
	}
	return c.mem.ReadWord(m.phys), c.mem.ReadWord((m.phys + 2) & mem.Mask)
}
