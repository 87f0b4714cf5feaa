// Package verify checks the core's per-opcode contracts: PC advance, flag
// effects matching the catalog, untouched state on traps, and undocumented
// aliases behaving like their documented forms.
package verify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/oisee/i8080/pkg/cpu"
	"github.com/oisee/i8080/pkg/inst"
)

// Origin is where each opcode under test is placed.
const Origin = 0x0100

// Operand is the little-endian word that follows the opcode under test.
const Operand = 0x1234

// TestVectors are fixed register files every opcode is run against.
var TestVectors = []cpu.State{
	{A: 0x00, B: 0x00, C: 0x00, D: 0x00, E: 0x00, H: 0x00, L: 0x00, SP: 0x0000, Flags: 0},
	{A: 0xFF, B: 0xFF, C: 0xFF, D: 0xFF, E: 0xFF, H: 0xFF, L: 0xFF, SP: 0xFFFF, Flags: inst.FlagMask},
	{A: 0x01, B: 0x02, C: 0x03, D: 0x04, E: 0x05, H: 0x06, L: 0x07, SP: 0x1234, Flags: inst.FlagZ},
	{A: 0x80, B: 0x40, C: 0x20, D: 0x10, E: 0x08, H: 0x04, L: 0x02, SP: 0x8000, Flags: inst.FlagCY},
	{A: 0x55, B: 0xAA, C: 0x55, D: 0xAA, E: 0x55, H: 0xAA, L: 0x55, SP: 0x5555, Flags: inst.FlagS | inst.FlagP},
	{A: 0xAA, B: 0x55, C: 0xAA, D: 0x55, E: 0xAA, H: 0x55, L: 0xAA, SP: 0xAAAA, Flags: inst.FlagCY | inst.FlagAC},
	{A: 0x0F, B: 0xF0, C: 0x0F, D: 0xF0, E: 0x0F, H: 0xF0, L: 0x0F, SP: 0xFFFE, Flags: inst.FlagAC},
	{A: 0x7F, B: 0x80, C: 0x7F, D: 0x80, E: 0x7F, H: 0x80, L: 0x7F, SP: 0x7FFF, Flags: inst.FlagCY | inst.FlagZ},
}

// Policies are the flag policies every opcode is checked under.
var Policies = []cpu.FlagPolicy{cpu.PreserveFlags, cpu.ClearFlags}

// Failure describes one violated contract.
type Failure struct {
	Opcode uint8
	Vector int
	Policy cpu.FlagPolicy
	Reason string
}

func (fl Failure) String() string {
	return fmt.Sprintf("%02X %-12s vector %d %v: %s",
		fl.Opcode, inst.Mnemonic(fl.Opcode), fl.Vector, fl.Policy, fl.Reason)
}

// execOne runs op once from v under policy, on fresh memory.
func execOne(v cpu.State, policy cpu.FlagPolicy, op uint8) (before, after cpu.State, err error) {
	mem := &cpu.Memory{}
	mem[Origin] = op
	mem.Write16(Origin+1, Operand)

	before = v
	before.PC = Origin
	before.Policy = policy
	before.Memory = mem

	after = before
	err = cpu.Step(&after)
	return
}

// CheckOpcode runs op against every test vector under every policy and
// returns the contracts it violates.
func CheckOpcode(op uint8) []Failure {
	var failures []Failure
	fail := func(vec int, policy cpu.FlagPolicy, format string, args ...any) {
		failures = append(failures, Failure{
			Opcode: op, Vector: vec, Policy: policy,
			Reason: fmt.Sprintf(format, args...),
		})
	}

	affects := inst.Catalog[op].Affects
	for i := range TestVectors {
		for _, policy := range Policies {
			before, after, err := execOne(TestVectors[i], policy, op)

			if !cpu.Implemented(op) {
				var ue *cpu.UnimplementedError
				if !errors.As(err, &ue) || ue.Opcode != op || ue.PC != Origin {
					fail(i, policy, "expected trap, got %v", err)
				}
				if !after.Equal(before) {
					fail(i, policy, "trap modified state")
				}
				continue
			}

			if err != nil {
				fail(i, policy, "unexpected error: %v", err)
				continue
			}
			if want := uint16(Origin + inst.Size(op)); after.PC != want {
				fail(i, policy, "PC %04X, want %04X", after.PC, want)
			}
			if after.Flags&^inst.FlagMask != 0 {
				fail(i, policy, "padding bits set: %02X", uint8(after.Flags))
			}
			// No policy may raise a flag the instruction does not affect.
			if raised := (after.Flags &^ affects) &^ before.Flags; raised != 0 {
				fail(i, policy, "raised unaffected flags %v", raised)
			}
			if policy == cpu.PreserveFlags && after.Flags&^affects != before.Flags&^affects {
				fail(i, policy, "changed unaffected flags %v -> %v", before.Flags, after.Flags)
			}

			_, again, _ := execOne(TestVectors[i], policy, op)
			again.Memory = after.Memory
			if !again.Equal(after) {
				fail(i, policy, "non-deterministic result")
			}
		}
	}

	if info := inst.Catalog[op]; info.Alias && cpu.Implemented(op) {
		canon, ok := Canonical(op)
		switch {
		case !ok:
			fail(-1, cpu.PreserveFlags, "no documented form for %v", info.Mnemonic)
		case !Equivalent(op, canon):
			fail(-1, cpu.PreserveFlags, "differs from %02X %v", canon, inst.Mnemonic(canon))
		}
	}

	return failures
}

// Canonical returns the documented opcode an undocumented alias duplicates.
func Canonical(op uint8) (uint8, bool) {
	m := strings.TrimPrefix(inst.Mnemonic(op), "*")
	for c := range inst.Catalog {
		if !inst.Catalog[c].Alias && inst.Catalog[c].Mnemonic == m {
			return uint8(c), true
		}
	}
	return 0, false
}

// FingerprintSize is the number of bytes per state snapshot in a fingerprint:
// A, B, C, D, E, H, L, flags, SP high/low and the PC advance.
const FingerprintSize = 11

// FingerprintLen is the total fingerprint length over all test vectors.
const FingerprintLen = FingerprintSize * 8

// Fingerprint summarizes op's behaviour on the test vectors.
// Opcodes with different fingerprints are guaranteed non-equivalent.
func Fingerprint(op uint8) [FingerprintLen]byte {
	var fp [FingerprintLen]byte
	for i := range TestVectors {
		_, out, err := execOne(TestVectors[i], cpu.PreserveFlags, op)
		off := i * FingerprintSize
		if err != nil {
			fp[off+10] = 0xFF
			continue
		}
		fp[off+0] = out.A
		fp[off+1] = out.B
		fp[off+2] = out.C
		fp[off+3] = out.D
		fp[off+4] = out.E
		fp[off+5] = out.H
		fp[off+6] = out.L
		fp[off+7] = uint8(out.Flags)
		fp[off+8] = uint8(out.SP >> 8)
		fp[off+9] = uint8(out.SP)
		fp[off+10] = uint8(out.PC - Origin)
	}
	return fp
}

// Equivalent reports whether two opcodes produce identical registers, flags
// and memory for every value of A and CY, with the other registers taken
// from the test vectors. Fingerprints reject most mismatches first.
func Equivalent(a, b uint8) bool {
	if Fingerprint(a) != Fingerprint(b) {
		return false
	}
	for i := range TestVectors {
		for acc := 0; acc < 0x100; acc++ {
			for _, cy := range []bool{false, true} {
				v := TestVectors[i]
				v.A = uint8(acc)
				v.Flags &^= inst.FlagCY
				if cy {
					v.Flags |= inst.FlagCY
				}
				_, outA, errA := execOne(v, cpu.PreserveFlags, a)
				_, outB, errB := execOne(v, cpu.PreserveFlags, b)
				if (errA == nil) != (errB == nil) {
					return false
				}
				// The opcode bytes differ by construction.
				outA.Memory[Origin], outB.Memory[Origin] = 0, 0
				if *outA.Memory != *outB.Memory {
					return false
				}
				outB.Memory = outA.Memory
				if !outA.Equal(outB) {
					return false
				}
			}
		}
	}
	return true
}
