package cpu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oisee/i8080/pkg/inst"
)

func FuzzStep(f *testing.F) {
	for op := range 0x100 {
		f.Add(uint8(op), uint16(0x1234), uint8(0), uint8(0x00), uint16(0x0100))
		f.Add(uint8(op), uint16(0xFFFF), uint8(0xFF), uint8(inst.FlagMask), uint16(0xFFFF))
	}

	f.Fuzz(func(t *testing.T, op uint8, imm uint16, a uint8, flags uint8, pc uint16) {
		assert := assert.New(t)

		s := &State{Memory: &Memory{}}
		s.PC = pc
		s.A, s.B, s.C = a, uint8(imm), uint8(imm>>8)
		s.H, s.L = 0x80, 0x00
		s.Flags = inst.Flags(flags) & inst.FlagMask
		s.Memory[pc] = op
		s.Memory.Write16(pc+1, imm)
		before := *s

		err := Step(s)
		if !Implemented(op) {
			var ue *UnimplementedError
			assert.True(errors.As(err, &ue), "opcode %02X", op)
			assert.Equal(before, *s, "trap mutated state for %02X", op)
			return
		}

		assert.NoError(err, "opcode %02X", op)
		assert.Equal(pc+uint16(inst.Size(op)), s.PC, "PC advance for %02X", op)
		assert.Zero(s.Flags&^inst.FlagMask, "flag padding for %02X", op)

		affects := inst.Catalog[op].Affects
		assert.Equal(before.Flags&^affects, s.Flags&^affects,
			"%s touched flags outside %s", inst.Mnemonic(op), affects)
	})
}
