package cpu

import "github.com/dmgkit/dmgcore/bus"

// execute decodes and runs one unprefixed opcode, returning the T-states it
// consumed. The decomposition follows the classic x/y/z/p/q opcode fields
// (x = bits 7-6, y = bits 5-3, z = bits 2-0, p = y>>1, q = y&1), which keeps
// the ~245 legal unprefixed forms out of a 256-row table (spec §9).
func (c *CPU) execute(b *bus.Bus, opcode byte) (int, error) {
	if illegalOpcodes[opcode] {
		return 0, &IllegalOpcodeError{Opcode: opcode}
	}

	x := opcode >> 6
	y := (opcode >> 3) & 0x07
	z := opcode & 0x07
	p := y >> 1
	q := y & 0x01

	switch x {
	case 0:
		return c.executeX0(b, y, z, p, q)
	case 1:
		return c.executeX1(b, y, z)
	case 2:
		c.executeAlu(y, c.read8(b, z))
		if z == r8HL {
			return 8, nil
		}
		return 4, nil
	default:
		return c.executeX3(b, opcode, y, z, p, q)
	}
}

func (c *CPU) executeX0(b *bus.Bus, y, z, p, q byte) (int, error) {
	switch z {
	case 0:
		switch {
		case y == 0: // NOP
			return 4, nil
		case y == 1: // LD (a16),SP
			addr := c.fetchWord(b)
			b.WriteWord(addr, c.sp)
			return 20, nil
		case y == 2: // STOP
			c.fetchByte(b) // STOP's second byte, conventionally 0x00
			c.stopped = true
			return 4, nil
		case y == 3: // JR d8
			offset := int8(c.fetchByte(b))
			c.pc = uint16(int16(c.pc) + int16(offset))
			return 12, nil
		default: // JR cc,d8
			offset := int8(c.fetchByte(b))
			if c.condition(y - 4) {
				c.pc = uint16(int16(c.pc) + int16(offset))
				return 12, nil
			}
			return 8, nil
		}
	case 1:
		if q == 0 { // LD rp,d16
			c.writeRP(p, c.fetchWord(b))
			return 12, nil
		}
		c.addToHL(c.readRP(p)) // ADD HL,rp
		return 8, nil
	case 2:
		addr := c.hlOpAddress(p)
		if q == 0 {
			b.WriteByte(addr, c.regs.a)
		} else {
			c.regs.a = b.ReadByte(addr)
		}
		c.adjustHLPostOp(p)
		return 8, nil
	case 3:
		if q == 0 {
			c.writeRP(p, c.readRP(p)+1)
		} else {
			c.writeRP(p, c.readRP(p)-1)
		}
		return 8, nil
	case 4:
		c.write8(b, y, c.inc8(c.read8(b, y)))
		if y == r8HL {
			return 12, nil
		}
		return 4, nil
	case 5:
		c.write8(b, y, c.dec8(c.read8(b, y)))
		if y == r8HL {
			return 12, nil
		}
		return 4, nil
	case 6:
		value := c.fetchByte(b)
		c.write8(b, y, value)
		if y == r8HL {
			return 12, nil
		}
		return 8, nil
	default: // z == 7
		return c.executeAccumulatorOp(y), nil
	}
}

// executeAccumulatorOp implements the 8 single-byte accumulator/flag
// operations at column 7 of row 0 (RLCA..CCF).
func (c *CPU) executeAccumulatorOp(y byte) int {
	switch y {
	case 0:
		result, carry := rlc(c.regs.a)
		c.regs.a = result
		c.setRotateFlags(result, carry, true)
	case 1:
		result, carry := rrc(c.regs.a)
		c.regs.a = result
		c.setRotateFlags(result, carry, true)
	case 2:
		result, carry := rl(c.regs.a, c.regs.flagC())
		c.regs.a = result
		c.setRotateFlags(result, carry, true)
	case 3:
		result, carry := rr(c.regs.a, c.regs.flagC())
		c.regs.a = result
		c.setRotateFlags(result, carry, true)
	case 4:
		c.daa()
	case 5:
		c.regs.a = ^c.regs.a
		c.regs.setN(true)
		c.regs.setH(true)
	case 6:
		c.regs.setN(false)
		c.regs.setH(false)
		c.regs.setC(true)
	default: // 7: CCF
		c.regs.setN(false)
		c.regs.setH(false)
		c.regs.setC(!c.regs.flagC())
	}
	return 4
}

func (c *CPU) executeX1(b *bus.Bus, y, z byte) (int, error) {
	if y == r8HL && z == r8HL { // HALT
		if !c.ime && b.PendingInterrupts() != 0 {
			c.haltBug = true
		} else {
			c.halted = true
		}
		return 4, nil
	}
	c.write8(b, y, c.read8(b, z))
	if y == r8HL || z == r8HL {
		return 8, nil
	}
	return 4, nil
}

// executeAlu runs ALU operation y (0 ADD..7 CP) against the accumulator.
// Cycle accounting is the caller's responsibility: the r8 operand form costs
// 8 cycles for (HL) and 4 otherwise, while the d8 immediate form always
// costs 8 (spec §4.5).
func (c *CPU) executeAlu(y byte, value uint8) {
	switch y {
	case 0:
		c.addToA(value)
	case 1:
		c.adcToA(value)
	case 2:
		c.subFromA(value)
	case 3:
		c.sbcFromA(value)
	case 4:
		c.andA(value)
	case 5:
		c.xorA(value)
	case 6:
		c.orA(value)
	default:
		c.cpA(value)
	}
}

func (c *CPU) executeX3(b *bus.Bus, opcode, y, z, p, q byte) (int, error) {
	switch z {
	case 0:
		switch {
		case y <= 3: // RET cc
			if c.condition(y) {
				c.pc = c.popWord(b)
				return 20, nil
			}
			return 8, nil
		case y == 4: // LDH (a8),A
			offset := c.fetchByte(b)
			b.WriteByte(0xFF00+uint16(offset), c.regs.a)
			return 12, nil
		case y == 5: // ADD SP,e
			offset := int8(c.fetchByte(b))
			result, h, carry := addSPSigned(c.sp, offset)
			c.sp = result
			c.regs.setZ(false)
			c.regs.setN(false)
			c.regs.setH(h)
			c.regs.setC(carry)
			return 16, nil
		case y == 6: // LDH A,(a8)
			offset := c.fetchByte(b)
			c.regs.a = b.ReadByte(0xFF00 + uint16(offset))
			return 12, nil
		default: // y == 7: LD HL,SP+e
			offset := int8(c.fetchByte(b))
			result, h, carry := addSPSigned(c.sp, offset)
			c.regs.setHL(result)
			c.regs.setZ(false)
			c.regs.setN(false)
			c.regs.setH(h)
			c.regs.setC(carry)
			return 12, nil
		}
	case 1:
		if q == 0 { // POP rp2
			c.writeRP2(p, c.popWord(b))
			return 12, nil
		}
		switch p {
		case 0: // RET
			c.pc = c.popWord(b)
			return 16, nil
		case 1: // RETI
			c.pc = c.popWord(b)
			c.ime = true
			c.imeDelay = 0
			return 16, nil
		case 2: // JP HL
			c.pc = c.regs.hl()
			return 4, nil
		default: // LD SP,HL
			c.sp = c.regs.hl()
			return 8, nil
		}
	case 2:
		switch {
		case y <= 3: // JP cc,a16
			target := c.fetchWord(b)
			if c.condition(y) {
				c.pc = target
				return 16, nil
			}
			return 12, nil
		case y == 4: // LD (C),A
			b.WriteByte(0xFF00+uint16(c.regs.c), c.regs.a)
			return 8, nil
		case y == 5: // LD (a16),A
			addr := c.fetchWord(b)
			b.WriteByte(addr, c.regs.a)
			return 16, nil
		case y == 6: // LD A,(C)
			c.regs.a = b.ReadByte(0xFF00 + uint16(c.regs.c))
			return 8, nil
		default: // LD A,(a16)
			addr := c.fetchWord(b)
			c.regs.a = b.ReadByte(addr)
			return 16, nil
		}
	case 3:
		switch y {
		case 0: // JP a16
			c.pc = c.fetchWord(b)
			return 16, nil
		case 1: // CB prefix
			cbOpcode := c.fetchByte(b)
			return c.executeCB(b, cbOpcode), nil
		case 6: // DI
			c.ime = false
			c.imeDelay = 0
			return 4, nil
		default: // 7: EI
			c.imeDelay = 2
			return 4, nil
		}
	case 4: // CALL cc,a16
		target := c.fetchWord(b)
		if c.condition(y) {
			c.pushWord(b, c.pc)
			c.pc = target
			return 24, nil
		}
		return 12, nil
	case 5:
		if q == 0 { // PUSH rp2
			c.pushWord(b, c.readRP2(p))
			return 16, nil
		}
		// q == 1, p == 0: CALL a16 (p 1-3 are illegal, already filtered above)
		target := c.fetchWord(b)
		c.pushWord(b, c.pc)
		c.pc = target
		return 24, nil
	case 6: // ALU A,d8
		c.executeAlu(y, c.fetchByte(b))
		return 8, nil
	default: // z == 7: RST y*8
		c.pushWord(b, c.pc)
		c.pc = uint16(y) * 8
		return 16, nil
	}
}

// readRP/writeRP address the rp table (BC, DE, HL, SP) used by 16-bit
// LD/INC/DEC/ADD HL, forms.
func (c *CPU) readRP(p byte) uint16 {
	switch p {
	case 0:
		return c.regs.bc()
	case 1:
		return c.regs.de()
	case 2:
		return c.regs.hl()
	default:
		return c.sp
	}
}

func (c *CPU) writeRP(p byte, v uint16) {
	switch p {
	case 0:
		c.regs.setBC(v)
	case 1:
		c.regs.setDE(v)
	case 2:
		c.regs.setHL(v)
	default:
		c.sp = v
	}
}

// readRP2/writeRP2 address the rp2 table (BC, DE, HL, AF) used by PUSH/POP.
func (c *CPU) readRP2(p byte) uint16 {
	if p == 3 {
		return c.regs.af()
	}
	return c.readRP(p)
}

func (c *CPU) writeRP2(p byte, v uint16) {
	if p == 3 {
		c.regs.setAF(v)
		return
	}
	c.writeRP(p, v)
}

// hlOpAddress resolves the address used by LD (BC/DE/HL+/HL-),A and its
// A,(...) counterparts, for the given p (0=BC,1=DE,2=HL+,3=HL-).
func (c *CPU) hlOpAddress(p byte) uint16 {
	switch p {
	case 0:
		return c.regs.bc()
	case 1:
		return c.regs.de()
	default:
		return c.regs.hl()
	}
}

// adjustHLPostOp applies the HL increment/decrement side effect of the
// (HL+)/(HL-) forms; a no-op for the (BC)/(DE) forms.
func (c *CPU) adjustHLPostOp(p byte) {
	switch p {
	case 2:
		c.regs.setHL(c.regs.hl() + 1)
	case 3:
		c.regs.setHL(c.regs.hl() - 1)
	}
}
