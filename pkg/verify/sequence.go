package verify

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/oisee/i8080/pkg/cpu"
	"github.com/oisee/i8080/pkg/inst"
	"github.com/oisee/i8080/pkg/machine"
)

// Generator builds random straight-line programs from the implemented
// instruction set.
type Generator struct {
	rng    *rand.Rand
	ops    []uint8
	maxLen int
}

// NewGenerator creates a Generator producing programs of 1..maxLen
// instructions.
func NewGenerator(rng *rand.Rand, maxLen int) *Generator {
	var ops []uint8
	for op := range 0x100 {
		if cpu.Implemented(uint8(op)) {
			ops = append(ops, uint8(op))
		}
	}
	return &Generator{rng: rng, ops: ops, maxLen: max(maxLen, 1)}
}

// Program returns a new random program.
func (g *Generator) Program() []inst.Instruction {
	seq := make([]inst.Instruction, 1+g.rng.IntN(g.maxLen))
	for i := range seq {
		seq[i] = g.randomInstruction()
	}
	return seq
}

// Mutate applies one random edit to seq and returns the new sequence.
// The input slice is not modified.
func (g *Generator) Mutate(seq []inst.Instruction) []inst.Instruction {
	out := make([]inst.Instruction, len(seq), len(seq)+1)
	copy(out, seq)

	r := g.rng.IntN(100)
	switch {
	case r < 40 || len(out) == 0:
		if len(out) == 0 {
			return append(out, g.randomInstruction())
		}
		out[g.rng.IntN(len(out))] = g.randomInstruction()
	case r < 60 && len(out) >= 2:
		pos := g.rng.IntN(len(out) - 1)
		out[pos], out[pos+1] = out[pos+1], out[pos]
	case r < 80 && len(out) >= 2:
		pos := g.rng.IntN(len(out))
		out = append(out[:pos], out[pos+1:]...)
	case r < 90 && len(out) < g.maxLen:
		pos := g.rng.IntN(len(out) + 1)
		out = append(out[:pos], append([]inst.Instruction{g.randomInstruction()}, out[pos:]...)...)
	default:
		pos := g.rng.IntN(len(out))
		out[pos].Imm = g.randomImm(out[pos].Op)
	}
	return out
}

func (g *Generator) randomInstruction() inst.Instruction {
	op := g.ops[g.rng.IntN(len(g.ops))]
	return inst.Instruction{Op: op, Imm: g.randomImm(op)}
}

func (g *Generator) randomImm(op uint8) uint16 {
	switch {
	case inst.HasImm16(op):
		return uint16(g.rng.IntN(0x10000))
	case inst.HasImmediate(op):
		return uint16(g.rng.IntN(0x100))
	}
	return 0
}

// Encode returns the machine code for seq.
func Encode(seq []inst.Instruction) []byte {
	var code []byte
	for _, in := range seq {
		code = append(code, in.Bytes()...)
	}
	return code
}

// ErrDiverged reports a resumed run that ended in a different state from an
// uninterrupted one.
var ErrDiverged = errors.New("checkpoint resume diverged")

func newMachine(seq []inst.Instruction, v cpu.State, policy cpu.FlagPolicy) (*machine.Machine, error) {
	m := machine.New(machine.Config{
		LoadAddr: Origin,
		Entry:    Origin,
		MaxSteps: uint64(len(seq)),
		Policy:   policy,
	})
	if err := m.Load(Encode(seq)); err != nil {
		return nil, err
	}
	m.CPU.A, m.CPU.B, m.CPU.C = v.A, v.B, v.C
	m.CPU.D, m.CPU.E, m.CPU.H, m.CPU.L = v.D, v.E, v.H, v.L
	m.CPU.SP, m.CPU.Flags = v.SP, v.Flags
	return m, nil
}

// finish runs m to the end of its program. Stores may rewrite code ahead of
// PC, so an unimplemented opcode is an acceptable end too.
func finish(m *machine.Machine) error {
	err := m.Run()
	var limit *machine.ErrStepLimit
	if errors.As(err, &limit) || errors.Is(err, cpu.ErrUnimplemented) {
		return nil
	}
	return err
}

// CheckSequence runs seq from v straight through, then again interrupted by
// a checkpoint after split steps, and reports any difference.
func CheckSequence(seq []inst.Instruction, v cpu.State, policy cpu.FlagPolicy, split int) error {
	straight, err := newMachine(seq, v, policy)
	if err != nil {
		return err
	}
	if err := finish(straight); err != nil {
		return err
	}

	first, err := newMachine(seq, v, policy)
	if err != nil {
		return err
	}
	for i := 0; i < split && i < len(seq); i++ {
		if err := first.Step(); err != nil {
			break
		}
	}
	resumed := machine.New(machine.Config{MaxSteps: uint64(len(seq))})
	resumed.Restore(first.Checkpoint())
	if err := finish(resumed); err != nil {
		return err
	}

	want := straight.CPU
	want.Memory = resumed.CPU.Memory
	switch {
	case !want.Equal(resumed.CPU):
		return fmt.Errorf("%w: registers after %d steps", ErrDiverged, resumed.Steps)
	case straight.RAM != resumed.RAM:
		return fmt.Errorf("%w: memory", ErrDiverged)
	case straight.Steps != resumed.Steps:
		return fmt.Errorf("%w: %d steps, want %d", ErrDiverged, resumed.Steps, straight.Steps)
	}
	return nil
}
