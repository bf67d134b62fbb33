package cpu

// Decimal and ASCII adjust family. The DAA/DAS high-digit compare uses the
// AL value from before the low-nibble adjust, which is what the silicon does
// and what the conformance fixtures check.

func (c *CPU) daa() {
	al := c.al()
	oldAL := al
	oldCF := c.flag(FlagCF)
	if al&0x0F > 9 || c.flag(FlagAF) {
		al += 6
		c.setFlag(FlagAF, true)
	} else {
		c.setFlag(FlagAF, false)
	}
	if oldAL > 0x99 || oldCF {
		al += 0x60
		c.setFlag(FlagCF, true)
	} else {
		c.setFlag(FlagCF, false)
	}
	c.setAL(al)
	c.Flags = szp8(c.Flags, al)
}

func (c *CPU) das() {
	al := c.al()
	oldAL := al
	oldCF := c.flag(FlagCF)
	if al&0x0F > 9 || c.flag(FlagAF) {
		al -= 6
		c.setFlag(FlagAF, true)
	} else {
		c.setFlag(FlagAF, false)
	}
	if oldAL > 0x99 || oldCF {
		al -= 0x60
		c.setFlag(FlagCF, true)
	} else {
		c.setFlag(FlagCF, false)
	}
	c.setAL(al)
	c.Flags = szp8(c.Flags, al)
}

func (c *CPU) aaa() {
	if c.al()&0x0F > 9 || c.flag(FlagAF) {
		c.setAL(c.al() + 6)
		c.setAH(c.ah() + 1)
		c.setFlag(FlagAF, true)
		c.setFlag(FlagCF, true)
	} else {
		c.setFlag(FlagAF, false)
		c.setFlag(FlagCF, false)
	}
	c.setAL(c.al() & 0x0F)
}

func (c *CPU) aas() {
	if c.al()&0x0F > 9 || c.flag(FlagAF) {
		c.setAL(c.al() - 6)
		c.setAH(c.ah() - 1)
		c.setFlag(FlagAF, true)
		c.setFlag(FlagCF, true)
	} else {
		c.setFlag(FlagAF, false)
		c.setFlag(FlagCF, false)
	}
	c.setAL(c.al() & 0x0F)
}

// aam divides AL by the immediate base. A zero base is a divide error.
func (c *CPU) aam() error {
	base := c.fetchByte()
	if base == 0 {
		return ErrDivideError
	}
	al := c.al()
	c.setAH(al / base)
	c.setAL(al % base)
	c.Flags = szp8(c.Flags, c.al())
	return nil
}

func (c *CPU) aad() {
	base := c.fetchByte()
	al := c.ah()*base + c.al()
	c.setAL(al)
	c.setAH(0)
	c.Flags = szp8(c.Flags, al)
}
