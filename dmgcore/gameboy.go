// Package dmgcore composes the CPU, bus, timer and serial capture into the
// single entry point external callers drive: a GameBoy value that can load a
// program and step it, cycle by cycle.
package dmgcore

import (
	"github.com/dmgkit/dmgcore/bus"
	"github.com/dmgkit/dmgcore/cpu"
)

// GameBoy composes a CPU with its bus. It owns no state of its own beyond
// that composition; all lifecycle rules (spec §3) live in the two fields.
type GameBoy struct {
	CPU *cpu.CPU
	Bus *bus.Bus
}

// New returns a GameBoy at power-on state: PC=0, SP=0xFFFE, zeroed memory
// and registers.
func New() *GameBoy {
	return &GameBoy{
		CPU: cpu.New(),
		Bus: bus.New(),
	}
}

// WithProgram returns a GameBoy with bytes loaded at start and PC set to
// start; everything else is power-on state. Intended for unit tests that
// want to run a bare instruction sequence without a cartridge header.
func WithProgram(start uint16, bytes []byte) *GameBoy {
	gb := New()
	gb.Bus.LoadBytes(start, bytes)
	gb.CPU.SetPC(start)
	return gb
}

// LoadROM writes bytes starting at address 0x0000 (truncated at 64 KiB) and
// resets PC to 0x0100 and SP to 0xFFFE, matching the DMG boot handoff point.
func (g *GameBoy) LoadROM(bytes []byte) {
	g.Bus.LoadBytes(0x0000, bytes)
	g.CPU.SetPC(0x0100)
	g.CPU.SetSP(0xFFFE)
}

// Step runs exactly one CPU step and returns the cycles it consumed.
func (g *GameBoy) Step() (int, error) {
	return g.CPU.Step(g.Bus)
}

// RunSteps runs n steps, accumulating the total cycle count, and stops at
// the first step that returns an error.
func (g *GameBoy) RunSteps(n int) (uint64, error) {
	var total uint64
	for i := 0; i < n; i++ {
		cycles, err := g.Step()
		if err != nil {
			return total, err
		}
		total += uint64(cycles)
	}
	return total, nil
}
