// Package cpu implements the Sharp LR35902 instruction set, interrupt
// dispatch, and HALT/STOP/EI-delay state machine over a bus.Bus.
package cpu

import "github.com/dmgkit/dmgcore/bus"

// CPU is the Sharp LR35902 core: registers, PC/SP, and the interrupt/halt
// state machine. It never owns a bus reference between steps; Step takes
// the bus as a parameter so there's no cyclic ownership between the two.
type CPU struct {
	regs registers
	pc   uint16
	sp   uint16

	ime      bool
	imeDelay uint8 // 0, 1 or 2: counts down to IME becoming true after EI
	halted   bool
	stopped  bool
	haltBug  bool

	currentOpcode byte
}

// New returns a CPU at power-on state: SP=0xFFFE, PC=0x0000, IME off.
func New() *CPU {
	return &CPU{sp: 0xFFFE}
}

// PC returns the program counter.
func (c *CPU) PC() uint16 { return c.pc }

// SetPC sets the program counter.
func (c *CPU) SetPC(v uint16) { c.pc = v }

// SP returns the stack pointer.
func (c *CPU) SP() uint16 { return c.sp }

// SetSP sets the stack pointer.
func (c *CPU) SetSP(v uint16) { c.sp = v }

// A, B, C, D, E, H, L, F return the current 8-bit register values.
func (c *CPU) A() uint8 { return c.regs.a }
func (c *CPU) F() uint8 { return c.regs.f }
func (c *CPU) B() uint8 { return c.regs.b }
func (c *CPU) C() uint8 { return c.regs.c }
func (c *CPU) D() uint8 { return c.regs.d }
func (c *CPU) E() uint8 { return c.regs.e }
func (c *CPU) H() uint8 { return c.regs.h }
func (c *CPU) L() uint8 { return c.regs.l }

// AF, BC, DE, HL return the current 16-bit register pair values.
func (c *CPU) AF() uint16 { return c.regs.af() }
func (c *CPU) BC() uint16 { return c.regs.bc() }
func (c *CPU) DE() uint16 { return c.regs.de() }
func (c *CPU) HL() uint16 { return c.regs.hl() }

// IME reports whether the interrupt master enable flag is currently set.
func (c *CPU) IME() bool { return c.ime }

// Halted reports whether the CPU is idling in HALT.
func (c *CPU) Halted() bool { return c.halted }

// Stopped reports whether the CPU is idling in STOP.
func (c *CPU) Stopped() bool { return c.stopped }

// Step executes exactly one of: an interrupt dispatch, a HALT/STOP idle
// cycle, or one fetched instruction. It returns the number of T-states
// consumed, ticking the bus by that amount before returning (spec §4.4, §5).
func (c *CPU) Step(b *bus.Bus) (int, error) {
	if c.stopped {
		if b.PendingInterrupts() != 0 {
			c.stopped = false
		} else {
			b.Tick(4)
			return 4, nil
		}
	}

	if c.ime && b.PendingInterrupts() != 0 {
		cycles := c.serviceInterrupt(b)
		b.Tick(cycles)
		return cycles, nil
	}

	if c.halted {
		if b.PendingInterrupts() != 0 {
			c.halted = false
		} else {
			b.Tick(4)
			return 4, nil
		}
	}

	opcode := c.fetchByte(b)
	cycles, err := c.execute(b, opcode)
	if err != nil {
		return 0, err
	}

	b.Tick(cycles)
	c.advanceIMEDelay()
	return cycles, nil
}

// advanceIMEDelay ticks down the EI latency counter; IME only becomes true
// once it reaches zero, i.e. after the instruction following EI retires.
// This only runs after a normally executed instruction, never after
// HALT/STOP idling or interrupt dispatch (spec §4.4 note, §4.7).
func (c *CPU) advanceIMEDelay() {
	if c.imeDelay == 0 {
		return
	}
	c.imeDelay--
	if c.imeDelay == 0 {
		c.ime = true
	}
}

// fetchByte reads the byte at PC. Under the HALT bug, PC does not advance:
// the same byte is fetched and executed again on the following step.
func (c *CPU) fetchByte(b *bus.Bus) byte {
	if c.haltBug {
		c.haltBug = false
		return b.ReadByte(c.pc)
	}
	v := b.ReadByte(c.pc)
	c.pc++
	return v
}

func (c *CPU) fetchWord(b *bus.Bus) uint16 {
	lo := c.fetchByte(b)
	hi := c.fetchByte(b)
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) pushWord(b *bus.Bus, v uint16) {
	c.sp--
	b.WriteByte(c.sp, byte(v>>8))
	c.sp--
	b.WriteByte(c.sp, byte(v))
}

func (c *CPU) popWord(b *bus.Bus) uint16 {
	lo := b.ReadByte(c.sp)
	c.sp++
	hi := b.ReadByte(c.sp)
	c.sp++
	return uint16(hi)<<8 | uint16(lo)
}

// condition decodes the 2-bit cc field of JR/JP/CALL/RET cc (bits 4-3 of
// the opcode): 0=NZ, 1=Z, 2=NC, 3=C.
func (c *CPU) condition(cc byte) bool {
	switch cc & 0x03 {
	case 0:
		return !c.regs.flagZ()
	case 1:
		return c.regs.flagZ()
	case 2:
		return !c.regs.flagC()
	default:
		return c.regs.flagC()
	}
}

// read8 reads one of the 8 possible r8 operands, routing index 6 through
// (HL) on the bus.
func (c *CPU) read8(b *bus.Bus, index byte) uint8 {
	switch index & 0x07 {
	case r8B:
		return c.regs.b
	case r8C:
		return c.regs.c
	case r8D:
		return c.regs.d
	case r8E:
		return c.regs.e
	case r8H:
		return c.regs.h
	case r8L:
		return c.regs.l
	case r8HL:
		return b.ReadByte(c.regs.hl())
	default: // r8A
		return c.regs.a
	}
}

func (c *CPU) write8(b *bus.Bus, index byte, value uint8) {
	switch index & 0x07 {
	case r8B:
		c.regs.b = value
	case r8C:
		c.regs.c = value
	case r8D:
		c.regs.d = value
	case r8E:
		c.regs.e = value
	case r8H:
		c.regs.h = value
	case r8L:
		c.regs.l = value
	case r8HL:
		b.WriteByte(c.regs.hl(), value)
	default: // r8A
		c.regs.a = value
	}
}

// serviceInterrupt dispatches the highest-priority pending interrupt,
// reproducing the quirk where the high-byte push of PC can itself land on
// IE and cancel or retarget the dispatch (spec §4.6).
func (c *CPU) serviceInterrupt(b *bus.Bus) int {
	c.ime = false
	c.imeDelay = 0
	c.halted = false
	c.stopped = false

	c.sp--
	b.WriteByte(c.sp, byte(c.pc>>8))

	pending := b.PendingInterrupts()
	if pending == 0 {
		c.sp--
		b.WriteByte(c.sp, byte(c.pc))
		c.pc = 0x0000
		return 20
	}

	mask, vector := interruptVector(pending)

	c.sp--
	b.WriteByte(c.sp, byte(c.pc))

	b.ClearInterrupt(mask)
	c.pc = vector
	return 20
}

func interruptVector(pending uint8) (mask uint8, vector uint16) {
	switch {
	case pending&0x01 != 0:
		return 0x01, 0x40 // VBlank
	case pending&0x02 != 0:
		return 0x02, 0x48 // LCD
	case pending&0x04 != 0:
		return 0x04, 0x50 // Timer
	case pending&0x08 != 0:
		return 0x08, 0x58 // Serial
	default:
		return 0x10, 0x60 // Joypad
	}
}
