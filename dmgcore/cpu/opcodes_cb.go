package cpu

import "github.com/dmgkit/dmgcore/bus"

// executeCB decodes and runs one CB-prefixed opcode, returning the total
// T-states consumed (including the CB prefix byte itself). All 256 forms are
// legal; there is no illegal-opcode case in this table (spec §4.5, §9).
func (c *CPU) executeCB(b *bus.Bus, opcode byte) int {
	x := opcode >> 6
	y := (opcode >> 3) & 0x07
	z := opcode & 0x07

	switch x {
	case 0:
		return c.executeCBRotate(b, y, z)
	case 1:
		return c.executeCBBit(b, y, z)
	case 2:
		return c.executeCBResSet(b, y, z, false)
	default:
		return c.executeCBResSet(b, y, z, true)
	}
}

// executeCBRotate implements the 8 rotate/shift/swap operations (y selects
// RLC/RRC/RL/RR/SLA/SRA/SWAP/SRL) against r8 operand z.
func (c *CPU) executeCBRotate(b *bus.Bus, y, z byte) int {
	value := c.read8(b, z)

	var result uint8
	var carry bool

	switch y {
	case 0:
		result, carry = rlc(value)
	case 1:
		result, carry = rrc(value)
	case 2:
		result, carry = rl(value, c.regs.flagC())
	case 3:
		result, carry = rr(value, c.regs.flagC())
	case 4:
		result, carry = sla(value)
	case 5:
		result, carry = sra(value)
	case 6:
		result = swap(value)
		carry = false
		c.write8(b, z, result)
		c.regs.setZ(result == 0)
		c.regs.setN(false)
		c.regs.setH(false)
		c.regs.setC(false)
		if z == r8HL {
			return 16
		}
		return 8
	default:
		result, carry = srl(value)
	}

	c.write8(b, z, result)
	c.setRotateFlags(result, carry, false)

	if z == r8HL {
		return 16
	}
	return 8
}

// executeCBBit implements BIT y,r8[z]: Z set when the bit is clear, N
// cleared, H set, C untouched.
func (c *CPU) executeCBBit(b *bus.Bus, y, z byte) int {
	value := c.read8(b, z)
	c.regs.setZ(value&(1<<y) == 0)
	c.regs.setN(false)
	c.regs.setH(true)

	if z == r8HL {
		return 12
	}
	return 8
}

// executeCBResSet implements RES/SET y,r8[z]: no flags touched.
func (c *CPU) executeCBResSet(b *bus.Bus, y, z byte, set bool) int {
	value := c.read8(b, z)
	if set {
		value |= 1 << y
	} else {
		value &^= 1 << y
	}
	c.write8(b, z, value)

	if z == r8HL {
		return 16
	}
	return 8
}
