package asm

import (
	"errors"

	"github.com/oisee/i8080/pkg/translate"
)

var f = translate.From

var (
	ErrMnemonic       = errors.New(f("unknown mnemonic"))
	ErrOperand        = errors.New(f("invalid operands"))
	ErrExpression     = errors.New(f("expression does not evaluate to an integer"))
	ErrRange          = errors.New(f("value out of range"))
	ErrLabelDuplicate = errors.New(f("label duplicated"))
	ErrLabelSyntax    = errors.New(f("invalid label name"))
	ErrEquateSyntax   = errors.New(f("EQU requires a name"))
	ErrOrigin         = errors.New(f("origin moves backwards"))
	ErrString         = errors.New(f("unterminated string"))
)

// ErrSyntax locates an assembly error in the source text.
type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

// ErrEval wraps a failed expression evaluation.
type ErrEval struct {
	Expr string
	Err  error
}

func (err ErrEval) Error() string {
	return f("'%v': %v", err.Expr, err.Err)
}

func (err ErrEval) Unwrap() []error {
	return []error{ErrExpression, err.Err}
}
