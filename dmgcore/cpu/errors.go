package cpu

import "fmt"

// IllegalOpcodeError is returned when execute fetches one of the 11
// undefined base opcodes. It is the only failure mode the core produces;
// everything else is a quirk to reproduce, not an error (spec §7).
type IllegalOpcodeError struct {
	Opcode byte
}

func (e *IllegalOpcodeError) Error() string {
	return fmt.Sprintf("illegal opcode 0x%02X", e.Opcode)
}

var illegalOpcodes = map[byte]bool{
	0xD3: true, 0xDB: true, 0xDD: true,
	0xE3: true, 0xE4: true, 0xEB: true, 0xEC: true, 0xED: true,
	0xF4: true, 0xFC: true, 0xFD: true,
}
