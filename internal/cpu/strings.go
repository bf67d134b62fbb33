package cpu

// String family. The source is DS:SI (segment-overridable), the destination
// ES:DI (never overridable). Index registers move by the operand size, down
// when DF is set. Under REP/REPNE the engine runs exactly one iteration per
// step: CX is decremented and, while the repeat condition still holds, IP is
// wound back to the prefix so the next step continues the run.

// repSkip reports whether a REP-prefixed instruction starts with CX=0 and
// therefore performs no iteration at all.
func (c *CPU) repSkip() bool {
	return c.rep != repNone && c.CX == 0
}

// repNext finishes one REP iteration. zfSensitive marks CMPS/SCAS, whose
// repeat condition also consults ZF.
func (c *CPU) repNext(start uint16, zfSensitive bool) {
	if c.rep == repNone {
		return
	}
	c.CX--
	done := c.CX == 0
	if zfSensitive && !done {
		switch c.rep {
		case repWhile:
			done = !c.flag(FlagZF)
		case repWhileNot:
			done = c.flag(FlagZF)
		}
	}
	if !done {
		c.IP = start
	}
}

// delta returns the per-iteration index adjustment for the operand size.
func (c *CPU) delta(wide bool) uint16 {
	d := uint16(1)
	if wide {
		d = 2
	}
	if c.flag(FlagDF) {
		return -d
	}
	return d
}

func (c *CPU) movs(wide bool, start uint16) {
	if c.repSkip() {
		return
	}
	src := phys(c.memSeg(c.DS), c.SI)
	dst := phys(c.ES, c.DI)
	if wide {
		c.mem.WriteWord(dst, c.mem.ReadWord(src))
	} else {
		c.mem.WriteByte(dst, c.mem.ReadByte(src))
	}
	d := c.delta(wide)
	c.SI += d
	c.DI += d
	c.repNext(start, false)
}

func (c *CPU) cmps(wide bool, start uint16) {
	if c.repSkip() {
		return
	}
	src := phys(c.memSeg(c.DS), c.SI)
	dst := phys(c.ES, c.DI)
	if wide {
		_, c.Flags = subFlags16(c.Flags, c.mem.ReadWord(src), c.mem.ReadWord(dst), 0)
	} else {
		_, c.Flags = subFlags8(c.Flags, c.mem.ReadByte(src), c.mem.ReadByte(dst), 0)
	}
	d := c.delta(wide)
	c.SI += d
	c.DI += d
	c.repNext(start, true)
}

func (c *CPU) scas(wide bool, start uint16) {
	if c.repSkip() {
		return
	}
	dst := phys(c.ES, c.DI)
	if wide {
		_, c.Flags = subFlags16(c.Flags, c.AX, c.mem.ReadWord(dst), 0)
	} else {
		_, c.Flags = subFlags8(c.Flags, c.al(), c.mem.ReadByte(dst), 0)
	}
	c.DI += c.delta(wide)
	c.repNext(start, true)
}

func (c *CPU) lods(wide bool, start uint16) {
	if c.repSkip() {
		return
	}
	src := phys(c.memSeg(c.DS), c.SI)
	if wide {
		c.AX = c.mem.ReadWord(src)
	} else {
		c.setAL(c.mem.ReadByte(src))
	}
	c.SI += c.delta(wide)
	c.repNext(start, false)
}

func (c *CPU) stos(wide bool, start uint16) {
	if c.repSkip() {
		return
	}
	dst := phys(c.ES, c.DI)
	if wide {
		c.mem.WriteWord(dst, c.AX)
	} else {
		c.mem.WriteByte(dst, c.al())
	}
	c.DI += c.delta(wide)
	c.repNext(start, false)
}
