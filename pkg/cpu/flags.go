package cpu

import "github.com/oisee/i8080/pkg/inst"

// FlagPolicy decides what happens to condition bits an instruction does not affect.
type FlagPolicy uint8

const (
	// PreserveFlags leaves unaffected bits at their prior value, as the 8080 does.
	PreserveFlags FlagPolicy = iota
	// ClearFlags zeroes every unaffected bit whenever an instruction updates
	// flags. Kept for compatibility with traces from the legacy emulator.
	ClearFlags
)

func (p FlagPolicy) String() string {
	switch p {
	case PreserveFlags:
		return "preserve"
	case ClearFlags:
		return "clear"
	}
	return f("policy(%d)", uint8(p))
}

// ApplyFlags returns the condition byte after an operation producing result.
// Only bits in affect are recomputed:
//
//	Z  result == 0
//	S  bit 7 of result
//	P  even parity of result
//	CY carry
//	AC aux
//
// Bits outside affect keep their value from prev under PreserveFlags and are
// cleared under ClearFlags.
func ApplyFlags(prev, affect inst.Flags, policy FlagPolicy, result uint16, carry, aux bool) inst.Flags {
	var next inst.Flags
	if result == 0 {
		next |= inst.FlagZ
	}
	if result&0x80 != 0 {
		next |= inst.FlagS
	}
	if Parity(result) {
		next |= inst.FlagP
	}
	if carry {
		next |= inst.FlagCY
	}
	if aux {
		next |= inst.FlagAC
	}
	affect &= inst.FlagMask
	if policy == ClearFlags {
		return next & affect
	}
	return prev&^affect | next&affect
}

func (s *State) applyFlags(affect inst.Flags, result uint16, carry, aux bool) {
	s.Flags = ApplyFlags(s.Flags, affect, s.Policy, result, carry, aux)
}

// setCarry writes CY alone, independent of the flag policy.
func (s *State) setCarry(cy bool) {
	if cy {
		s.Flags |= inst.FlagCY
	} else {
		s.Flags &^= inst.FlagCY
	}
}
