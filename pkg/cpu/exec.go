package cpu

import "github.com/oisee/i8080/pkg/inst"

// handler executes one decoded instruction. PC is advanced by Step, not here.
type handler func(s *State, in inst.Instruction)

// dispatch maps each opcode byte to its handler; nil entries trap.
var dispatch [256]handler

// Step executes the instruction at PC and advances PC past it.
//
// Opcodes outside the implemented set return *UnimplementedError and leave
// the state untouched.
func Step(s *State) error {
	if s.Memory == nil {
		return ErrNoMemory
	}
	pc := s.PC
	in := s.Memory.Fetch(pc)
	h := dispatch[in.Op]
	if h == nil {
		return &UnimplementedError{Opcode: in.Op, PC: pc}
	}
	h(s, in)
	s.PC = pc + uint16(inst.Size(in.Op))
	if s.Flags&^inst.FlagMask != 0 {
		return &InvariantError{Field: "flags", Value: uint32(s.Flags), Opcode: in.Op, PC: pc}
	}
	return nil
}

// Implemented reports whether op has a handler.
func Implemented(op uint8) bool {
	return dispatch[op] != nil
}

// Unimplemented returns every opcode that traps, in ascending order.
func Unimplemented() []uint8 {
	var ops []uint8
	for op := range dispatch {
		if dispatch[op] == nil {
			ops = append(ops, uint8(op))
		}
	}
	return ops
}

func init() {
	dispatch[0x00] = execNop
	for _, op := range []uint8{0x08, 0x10, 0x18, 0x28, 0x38} {
		dispatch[op] = execNop
	}

	// 16-bit pair ops: LXI 00pp0001, INX 00pp0011, DAD 00pp1001, DCX 00pp1011
	for p := uint8(0); p < 4; p++ {
		dispatch[p<<4|0x01] = execLxi(p)
		dispatch[p<<4|0x03] = execInx(p)
		dispatch[p<<4|0x09] = execDad(p)
		dispatch[p<<4|0x0B] = execDcx(p)
	}

	dispatch[0x02] = execStax(PairBC)
	dispatch[0x12] = execStax(PairDE)
	dispatch[0x0A] = execLdax(PairBC)
	dispatch[0x1A] = execLdax(PairDE)
	dispatch[0x22] = execShld
	dispatch[0x2A] = execLhld
	dispatch[0x32] = execSta
	dispatch[0x3A] = execLda

	// INR 00rrr100, DCR 00rrr101, MVI 00rrr110
	for r := uint8(0); r < 8; r++ {
		dispatch[r<<3|0x04] = execInr(r)
		dispatch[r<<3|0x05] = execDcr(r)
		dispatch[r<<3|0x06] = execMvi(r)
	}

	dispatch[0x07] = execRlc
	dispatch[0x0F] = execRrc
	dispatch[0x17] = execRal
	dispatch[0x1F] = execRar
	dispatch[0x2F] = execCma
	dispatch[0x37] = execStc
	dispatch[0x3F] = execCmc

	// MOV 01dddsss; 01110110 is HLT
	for d := uint8(0); d < 8; d++ {
		for src := uint8(0); src < 8; src++ {
			op := 0x40 | d<<3 | src
			if op == 0x76 {
				continue
			}
			dispatch[op] = execMov(d, src)
		}
	}

	// ADD 10000sss, ADC 10001sss
	for r := uint8(0); r < 8; r++ {
		dispatch[0x80|r] = execAdd(r)
		dispatch[0x88|r] = execAdc(r)
	}
}

func execNop(*State, inst.Instruction) {}

// === Data transfer ===

func execLxi(p uint8) handler {
	return func(s *State, in inst.Instruction) {
		s.setPair(p, Pack(in.Hi(), in.Lo()))
	}
}

func execStax(p uint8) handler {
	return func(s *State, _ inst.Instruction) {
		s.Memory[s.pair(p)] = s.A
	}
}

func execLdax(p uint8) handler {
	return func(s *State, _ inst.Instruction) {
		s.A = s.Memory[s.pair(p)]
	}
}

func execShld(s *State, in inst.Instruction) {
	s.Memory.Write16(in.Imm, s.HL())
}

func execLhld(s *State, in inst.Instruction) {
	s.SetHL(s.Memory.Read16(in.Imm))
}

func execSta(s *State, in inst.Instruction) {
	s.Memory[in.Imm] = s.A
}

func execLda(s *State, in inst.Instruction) {
	s.A = s.Memory[in.Imm]
}

func execMvi(r uint8) handler {
	return func(s *State, in inst.Instruction) {
		*s.reg(r) = in.Lo()
	}
}

func execMov(d, src uint8) handler {
	return func(s *State, _ inst.Instruction) {
		*s.reg(d) = *s.reg(src)
	}
}

// === 16-bit arithmetic ===

// execInx carries from the low register into the high one through the
// 16-bit adder. No flags are touched.
func execInx(p uint8) handler {
	return func(s *State, _ inst.Instruction) {
		v, _, _ := AddWithCarry(s.pair(p), 1, Width16)
		s.setPair(p, v)
	}
}

func execDcx(p uint8) handler {
	return func(s *State, _ inst.Instruction) {
		v, _, _ := AddWithCarry(s.pair(p), 0xFFFF, Width16)
		s.setPair(p, v)
	}
}

func execDad(p uint8) handler {
	return func(s *State, _ inst.Instruction) {
		v, cy, _ := AddWithCarry(s.HL(), s.pair(p), Width16)
		s.SetHL(v)
		s.applyFlags(inst.AffectsCarry, v, cy, false)
	}
}

// === 8-bit arithmetic ===

func execInr(r uint8) handler {
	return func(s *State, _ inst.Instruction) {
		dst := s.reg(r)
		v, _, ac := AddWithCarry(uint16(*dst), 1, Width8)
		*dst = uint8(v)
		s.applyFlags(inst.AffectsIncr, v, false, ac)
	}
}

// execDcr adds 0xFF; the bit-3 carry of that addition is the 8080's AC
// (set unless the low nibble borrowed). The top carry is discarded.
func execDcr(r uint8) handler {
	return func(s *State, _ inst.Instruction) {
		dst := s.reg(r)
		v, _, ac := AddWithCarry(uint16(*dst), 0xFF, Width8)
		*dst = uint8(v)
		s.applyFlags(inst.AffectsIncr, v, false, ac)
	}
}

func execAdd(r uint8) handler {
	return func(s *State, _ inst.Instruction) {
		v, cy, ac := ripple(uint16(s.A), uint16(*s.reg(r)), false, Width8)
		s.A = uint8(v)
		s.applyFlags(inst.AffectsAll, v, cy, ac)
	}
}

func execAdc(r uint8) handler {
	return func(s *State, _ inst.Instruction) {
		v, cy, ac := ripple(uint16(s.A), uint16(*s.reg(r)), s.Carry(), Width8)
		s.A = uint8(v)
		s.applyFlags(inst.AffectsAll, v, cy, ac)
	}
}

// === Rotates and carry ops: CY only, regardless of policy ===

func execRlc(s *State, _ inst.Instruction) {
	out := s.A >> 7
	s.A = s.A<<1 | out
	s.setCarry(out == 1)
}

func execRrc(s *State, _ inst.Instruction) {
	out := s.A & 1
	s.A = s.A>>1 | out<<7
	s.setCarry(out == 1)
}

func execRal(s *State, _ inst.Instruction) {
	var in uint8
	if s.Carry() {
		in = 1
	}
	out := s.A >> 7
	s.A = s.A<<1 | in
	s.setCarry(out == 1)
}

func execRar(s *State, _ inst.Instruction) {
	var in uint8
	if s.Carry() {
		in = 0x80
	}
	out := s.A & 1
	s.A = s.A>>1 | in
	s.setCarry(out == 1)
}

func execCma(s *State, _ inst.Instruction) {
	s.A = ^s.A
}

func execStc(s *State, _ inst.Instruction) {
	s.setCarry(true)
}

func execCmc(s *State, _ inst.Instruction) {
	s.setCarry(!s.Carry())
}
