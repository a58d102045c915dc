package cpu

import (
	"testing"

	"github.com/dmgkit/dmgcore/addr"
	"github.com/dmgkit/dmgcore/bus"
	"github.com/stretchr/testify/assert"
)

func TestArithmeticAndCBSequence(t *testing.T) {
	b := bus.New()
	b.LoadBytes(0, []byte{0x3E, 0x15, 0xC6, 0x27, 0x27, 0xCB, 0x37, 0xCB, 0x47, 0xCB, 0xC7})
	c := New()

	for i := 0; i < 6; i++ {
		_, err := c.Step(b)
		assert.NoError(t, err)
	}

	assert.Equal(t, uint8(0x25), c.A())
	assert.True(t, c.regs.flagZ())
	assert.True(t, c.regs.flagH())
	assert.False(t, c.regs.flagN())
}

func TestDAATable(t *testing.T) {
	c := New()
	c.regs.a = 0x9A
	c.regs.setH(true)
	c.regs.setC(true)
	c.daa()
	assert.Equal(t, uint8(0x00), c.regs.a)
	assert.True(t, c.regs.flagZ())
	assert.False(t, c.regs.flagN())
	assert.False(t, c.regs.flagH())
	assert.True(t, c.regs.flagC())

	c2 := New()
	c2.regs.a = 0x73
	c2.regs.setN(true)
	c2.regs.setH(true)
	c2.regs.setC(true)
	c2.daa()
	assert.Equal(t, uint8(0x0D), c2.regs.a)
	assert.True(t, c2.regs.flagN())
	assert.False(t, c2.regs.flagH())
	assert.True(t, c2.regs.flagC())
}

func TestInterruptDispatchAndRETI(t *testing.T) {
	b := bus.New()
	b.WriteByte(addr.IE, uint8(addr.VBlankInterrupt|addr.TimerInterrupt))
	b.WriteByte(addr.IF, uint8(addr.VBlankInterrupt|addr.TimerInterrupt))
	b.WriteByte(0x40, 0xD9) // RETI

	c := New()
	c.ime = true

	cycles, err := c.Step(b)
	assert.NoError(t, err)
	assert.Equal(t, 20, cycles)
	assert.Equal(t, uint16(0x40), c.pc)
	assert.Equal(t, uint16(0xFFFC), c.sp)
	assert.Equal(t, uint16(0x0000), b.ReadWord(0xFFFC))
	assert.False(t, c.ime)

	cycles, err = c.Step(b)
	assert.NoError(t, err)
	assert.Equal(t, 16, cycles)
	assert.Equal(t, uint16(0x0000), c.pc)
	assert.True(t, c.ime)
}

func TestInterruptDispatchCancellation(t *testing.T) {
	b := bus.New()
	b.WriteByte(addr.IE, uint8(addr.TimerInterrupt))
	b.WriteByte(addr.IF, uint8(addr.TimerInterrupt))

	c := New()
	c.pc = 0x0200
	c.sp = 0x0000
	c.ime = true

	cycles, err := c.Step(b)
	assert.NoError(t, err)
	assert.Equal(t, 20, cycles)
	assert.Equal(t, uint16(0x0000), c.pc)
	assert.Equal(t, uint16(0xFFFE), c.sp)
	assert.Equal(t, byte(0x02), b.ReadByte(addr.IE))
	assert.Equal(t, byte(0xE0|uint8(addr.TimerInterrupt)), b.ReadByte(addr.IF))
}

func TestEILatency(t *testing.T) {
	b := bus.New()
	b.LoadBytes(0, []byte{0xFB, 0x00})
	b.WriteByte(addr.IE, uint8(addr.TimerInterrupt))
	b.WriteByte(addr.IF, uint8(addr.TimerInterrupt))
	b.WriteByte(0x50, 0xD9)

	c := New()

	_, err := c.Step(b) // EI
	assert.NoError(t, err)
	assert.False(t, c.ime)

	_, err = c.Step(b) // NOP
	assert.NoError(t, err)
	assert.True(t, c.ime)
	assert.Equal(t, uint16(2), c.pc)

	cycles, err := c.Step(b) // interrupt dispatched
	assert.NoError(t, err)
	assert.Equal(t, 20, cycles)
	assert.Equal(t, uint16(0x50), c.pc)
}

func TestHaltBug(t *testing.T) {
	b := bus.New()
	b.LoadBytes(0, []byte{0x76, 0x04}) // HALT, INC B
	b.WriteByte(addr.IE, uint8(addr.VBlankInterrupt))
	b.WriteByte(addr.IF, uint8(addr.VBlankInterrupt))

	c := New()

	_, err := c.Step(b) // HALT: sets halt_bug, does not halt
	assert.NoError(t, err)
	assert.False(t, c.halted)
	assert.True(t, c.haltBug)
	assert.Equal(t, uint16(1), c.pc)

	_, err = c.Step(b) // re-fetches 0x04, INC B, PC stays at 1
	assert.NoError(t, err)
	assert.Equal(t, uint8(1), c.B())
	assert.Equal(t, uint16(1), c.pc)

	_, err = c.Step(b) // INC B again, PC advances normally now
	assert.NoError(t, err)
	assert.Equal(t, uint8(2), c.B())
	assert.Equal(t, uint16(2), c.pc)
}

// TestFlagMaskInvariant checks F & 0x0F == 0 after a representative spread
// of opcodes, including ones that touch every flag.
func TestFlagMaskInvariant(t *testing.T) {
	b := bus.New()
	b.LoadBytes(0, []byte{0x3C, 0x3D, 0x07, 0xCB, 0x00, 0x37, 0x3F})
	c := New()

	for i := 0; i < 7; i++ {
		_, err := c.Step(b)
		assert.NoError(t, err)
		assert.Zero(t, c.regs.f&0x0F)
	}
}

// TestOpcodeCoverage runs every opcode 0x00-0xFF from a fresh machine and
// checks it either succeeds or fails with IllegalOpcode for exactly the 11
// undefined forms.
func TestOpcodeCoverage(t *testing.T) {
	illegal := map[byte]bool{
		0xD3: true, 0xDB: true, 0xDD: true,
		0xE3: true, 0xE4: true, 0xEB: true, 0xEC: true, 0xED: true,
		0xF4: true, 0xFC: true, 0xFD: true,
	}

	for op := 0; op <= 0xFF; op++ {
		opcode := byte(op)

		b := bus.New()
		// Fill with NOPs past the opcode so operand fetches (d8/d16/r8) stay
		// in bounds and don't themselves alter control flow.
		program := make([]byte, 16)
		program[0] = opcode
		b.LoadBytes(0, program)

		c := New()
		c.sp = 0x8000 // clear of program memory, room for pushes

		_, err := c.Step(b)

		if illegal[opcode] {
			var illegalErr *IllegalOpcodeError
			assert.ErrorAs(t, err, &illegalErr, "opcode 0x%02X", opcode)
			assert.Equal(t, opcode, illegalErr.Opcode)
		} else {
			assert.NoError(t, err, "opcode 0x%02X", opcode)
		}
	}
}

// TestCBCoverage runs every CB-prefixed opcode and checks it always succeeds.
func TestCBCoverage(t *testing.T) {
	for op := 0; op <= 0xFF; op++ {
		b := bus.New()
		b.LoadBytes(0, []byte{0xCB, byte(op)})
		c := New()

		_, err := c.Step(b)
		assert.NoError(t, err, "CB opcode 0x%02X", op)
	}
}

// TestAluCycleCounts checks the ALU A,r / ALU A,d8 cycle costs: 4 for a
// plain register operand, 8 for (HL), 8 for the immediate form.
func TestAluCycleCounts(t *testing.T) {
	b := bus.New()
	b.LoadBytes(0, []byte{
		0x90,       // SUB B (r8 operand)
		0x96,       // SUB (HL)
		0xD6, 0x01, // SUB d8
	})
	c := New()

	cycles, err := c.Step(b) // SUB B
	assert.NoError(t, err)
	assert.Equal(t, 4, cycles)

	cycles, err = c.Step(b) // SUB (HL)
	assert.NoError(t, err)
	assert.Equal(t, 8, cycles)

	cycles, err = c.Step(b) // SUB d8
	assert.NoError(t, err)
	assert.Equal(t, 8, cycles)
}

// TestStepCycleAccumulation checks RunSteps-equivalent accumulation directly
// on the CPU: four NOP steps report 4 cycles each, 16 in total.
func TestStepCycleAccumulation(t *testing.T) {
	b := bus.New()
	b.LoadBytes(0, []byte{0x00, 0x00, 0x00, 0x00})
	c := New()

	var total int
	for i := 0; i < 4; i++ {
		cycles, err := c.Step(b)
		assert.NoError(t, err)
		total += cycles
	}
	assert.Equal(t, 16, total)
}
