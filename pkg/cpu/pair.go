package cpu

// Pack joins two 8-bit registers into a big-endian register pair value.
func Pack(high, low uint8) uint16 {
	return uint16(high)<<8 | uint16(low)
}

// Unpack splits a register pair value into its high and low registers.
func Unpack(v uint16) (high, low uint8) {
	return uint8(v >> 8), uint8(v)
}

// Pair selectors as encoded in bits 4-5 of LXI/INX/DCX/DAD.
const (
	PairBC uint8 = iota
	PairDE
	PairHL
	PairSP
)

// pair reads the register pair selected by p.
func (s *State) pair(p uint8) uint16 {
	switch p & 3 {
	case PairBC:
		return s.BC()
	case PairDE:
		return s.DE()
	case PairHL:
		return s.HL()
	}
	return s.SP
}

// setPair writes the register pair selected by p.
func (s *State) setPair(p uint8, v uint16) {
	switch p & 3 {
	case PairBC:
		s.SetBC(v)
	case PairDE:
		s.SetDE(v)
	case PairHL:
		s.SetHL(v)
	default:
		s.SP = v
	}
}

// reg returns the 8-bit operand selected by a 3-bit register code. Code 6 is M,
// the memory byte addressed by HL.
func (s *State) reg(r uint8) *uint8 {
	switch r & 7 {
	case 0:
		return &s.B
	case 1:
		return &s.C
	case 2:
		return &s.D
	case 3:
		return &s.E
	case 4:
		return &s.H
	case 5:
		return &s.L
	case 6:
		return &s.Memory[s.HL()]
	}
	return &s.A
}
