package cpu

import (
	"errors"

	"github.com/oisee/i8080/pkg/inst"
	"github.com/oisee/i8080/pkg/translate"
)

var f = translate.From

var (
	ErrUnimplemented = errors.New(f("unimplemented instruction"))
	ErrInvariant     = errors.New(f("state invariant violated"))
	ErrNoMemory      = errors.New(f("no memory attached"))
)

// UnimplementedError reports an opcode outside the implemented instruction set.
// State is left as it was before the fetch, so PC still addresses the opcode.
type UnimplementedError struct {
	Opcode uint8
	PC     uint16
}

func (err *UnimplementedError) Error() string {
	return f("unimplemented instruction 0x%02X (%v) at pc 0x%04X",
		err.Opcode, inst.Mnemonic(err.Opcode), err.PC)
}

func (err *UnimplementedError) Is(target error) bool {
	return target == ErrUnimplemented
}

// InvariantError reports a register or flag value outside its domain after an
// instruction. It always indicates a bug in this package, never in the guest.
type InvariantError struct {
	Field  string
	Value  uint32
	Opcode uint8
	PC     uint16
}

func (err *InvariantError) Error() string {
	return f("%v = 0x%X after 0x%02X at pc 0x%04X", err.Field, err.Value, err.Opcode, err.PC)
}

func (err *InvariantError) Unwrap() error {
	return ErrInvariant
}
