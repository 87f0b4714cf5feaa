package cpu

import "github.com/oisee/i8080/pkg/inst"

// Memory is the full 8080 address space. Addresses are uint16, so every access
// wraps modulo 65536 without explicit masking.
type Memory [0x10000]byte

// Read16 returns the little-endian word at addr; the high byte comes from addr+1,
// which wraps to 0x0000 after 0xFFFF.
func (m *Memory) Read16(addr uint16) uint16 {
	return Pack(m[addr+1], m[addr])
}

// Write16 stores v little-endian at addr and addr+1.
func (m *Memory) Write16(addr uint16, v uint16) {
	m[addr+1], m[addr] = Unpack(v)
}

// Fetch decodes the instruction at pc. The two bytes after the opcode are always
// read so the dispatcher never needs a second fetch; Size(Op) says how many count.
func (m *Memory) Fetch(pc uint16) inst.Instruction {
	return inst.Instruction{Op: m[pc], Imm: m.Read16(pc + 1)}
}

// State is the 8080 register file and condition codes. Memory is referenced, not
// owned: the host allocates it and points State at it before the first Step.
type State struct {
	A, B, C, D, E, H, L uint8
	SP, PC              uint16
	Flags               inst.Flags

	IntEnable bool       // INTE flip-flop; EI/DI are outside the implemented set
	Policy    FlagPolicy // zero value preserves unaffected flags

	Memory *Memory
}

// BC returns the B:C register pair.
func (s *State) BC() uint16 { return Pack(s.B, s.C) }

// DE returns the D:E register pair.
func (s *State) DE() uint16 { return Pack(s.D, s.E) }

// HL returns the H:L register pair.
func (s *State) HL() uint16 { return Pack(s.H, s.L) }

func (s *State) SetBC(v uint16) { s.B, s.C = Unpack(v) }
func (s *State) SetDE(v uint16) { s.D, s.E = Unpack(v) }
func (s *State) SetHL(v uint16) { s.H, s.L = Unpack(v) }

// Carry reports the CY flag.
func (s *State) Carry() bool {
	return s.Flags&inst.FlagCY != 0
}

// Equal reports whether two states hold the same registers, flags and modes.
// Memory is compared by reference.
func (s State) Equal(o State) bool {
	return s == o
}
