package asm

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oisee/i8080/pkg/inst"
)

func b(bs ...byte) []byte { return bs }

func TestAsmSnippets(t *testing.T) {
	tests := []struct {
		src  string
		want []byte
	}{
		{"NOP", b(0x00)},
		{"MVI A,0FFh\nINR A\nHLT", b(0x3E, 0xFF, 0x3C, 0x76)},
		{"mov a,b\npush psw\nstax d", b(0x78, 0xF5, 0x12)},
		{"lxi sp,0", b(0x31, 0x00, 0x00)},
		{"LXI B,1234h", b(0x01, 0x34, 0x12)},
		{"MVI L,-1", b(0x2E, 0xFF)},
		{"MVI H,1010b", b(0x26, 0x0A)},
		{"MVI E,'A'", b(0x1E, 0x41)},
		{"MVI C,hi(1234h)\nMVI D,lo(1234h)", b(0x0E, 0x12, 0x16, 0x34)},
		{"RST 7\nRST 2*2", b(0xFF, 0xE7)},
		{"NOP ; comment\n; whole line\n\nDB ';'", b(0x00, 0x3B)},
		{`DB "Hi", 0, 'ok'`, b(0x48, 0x69, 0x00, 0x6F, 0x6B)},
		{`DB "a;b"`, b(0x61, 0x3B, 0x62)},
		{"DB 'a'+1", b(0x62)},
		{"DW 1234h, -2", b(0x34, 0x12, 0xFE, 0xFF)},
		{"DS 3\nNOP", b(0x00, 0x00, 0x00, 0x00)},
		{"NOP\nORG 4\nNOP", b(0x00, 0x00, 0x00, 0x00, 0x00)},
		{"JMP $", b(0xC3, 0x00, 0x00)},
		{"NOP\nEND\nthis is not assembled", b(0x00)},
		{"STA 0FFFFh\nLDA 8000h", b(0x32, 0xFF, 0xFF, 0x3A, 0x00, 0x80)},
	}
	for _, tc := range tests {
		prog, err := Assemble(tc.src)
		if !assert.NoError(t, err, "%q", tc.src) {
			continue
		}
		assert.Equal(t, tc.want, prog.Code, "%q", tc.src)
	}
}

func TestForwardLabels(t *testing.T) {
	src := `
	ORG 100h
start:	LXI H,data	; forward reference
	MOV A,M
	STA result
	NOP
data:	DB 42
result:	DS 1
`
	prog, err := Assemble(src)
	require.NoError(t, err)

	assert.Equal(t, uint16(0x0100), prog.Origin)
	assert.Equal(t, b(0x21, 0x08, 0x01, 0x7E, 0x32, 0x09, 0x01, 0x00, 0x2A, 0x00), prog.Code)
	assert.Equal(t, map[string]uint16{"start": 0x100, "data": 0x108, "result": 0x109}, prog.Labels)
}

func TestEquates(t *testing.T) {
	src := `
COUNT	EQU 3
SIZE:	EQU COUNT*2
	MVI B,SIZE+1
	ORG SIZE
here:	LXI D,here+COUNT
`
	prog, err := Assemble(src)
	require.NoError(t, err)

	assert.Equal(t, uint16(0), prog.Origin)
	assert.Equal(t, b(0x06, 0x07, 0, 0, 0, 0, 0x11, 0x09, 0x00), prog.Code)
	assert.NotContains(t, prog.Labels, "COUNT")
	assert.Equal(t, uint16(6), prog.Labels["here"])
}

func TestPredefinedSymbols(t *testing.T) {
	asm := &Assembler{Symbols: map[string]int{"BDOS": 5}}
	prog, err := asm.Parse(strings.NewReader("CALL BDOS\nJMP BDOS+100h"))
	require.NoError(t, err)
	assert.Equal(t, b(0xCD, 0x05, 0x00, 0xC3, 0x05, 0x01), prog.Code)
}

func TestParseResetsSymbols(t *testing.T) {
	var asm Assembler
	_, err := asm.Parse(strings.NewReader("x: NOP"))
	require.NoError(t, err)
	_, err = asm.Parse(strings.NewReader("x: NOP"))
	assert.NoError(t, err)
}

func TestAsmErrors(t *testing.T) {
	tests := []struct {
		src    string
		want   error
		lineNo int
	}{
		{"FOO", ErrMnemonic, 1},
		{"NOP\nMOV A", ErrOperand, 2},
		{"NOP A", ErrOperand, 1},
		{"MVI A,B", ErrOperand, 1},
		{"MVI A,256", ErrRange, 1},
		{"MVI A,-129", ErrRange, 1},
		{"LXI H,10000h", ErrRange, 1},
		{"RST 8", ErrRange, 1},
		{"ORG 10000h", ErrRange, 1},
		{"x: NOP\nx: NOP", ErrLabelDuplicate, 2},
		{"x EQU 1\nx: NOP", ErrLabelDuplicate, 2},
		{"B: NOP", ErrLabelSyntax, 1},
		{"EQU 5", ErrEquateSyntax, 1},
		{"ORG 10h\nNOP\nORG 0", ErrOrigin, 3},
		{"MVI A,undefined", ErrExpression, 1},
		{"MVI A,1/2", ErrExpression, 1},
		{"y EQU later\nlater: NOP", ErrExpression, 1},
		{`DB "abc`, ErrString, 1},
		{"ORG 0FFFFh\nLXI H,0", ErrRange, 2},
	}
	for _, tc := range tests {
		_, err := Assemble(tc.src)
		if !assert.ErrorIs(t, err, tc.want, "%q", tc.src) {
			continue
		}
		var se ErrSyntax
		if assert.True(t, errors.As(err, &se), "%q", tc.src) {
			assert.Equal(t, tc.lineNo, se.LineNo, "%q", tc.src)
		}
	}
}

// TestDisassemblyRoundTrip assembles the disassembly of every documented
// opcode and expects the same encoding back.
func TestDisassemblyRoundTrip(t *testing.T) {
	for op := range 0x100 {
		info := inst.Catalog[op]
		if info.Alias {
			continue
		}
		in := inst.Instruction{Op: uint8(op), Imm: 0xBEEF}
		text := inst.Disassemble(in)
		prog, err := Assemble(text)
		if !assert.NoError(t, err, "%02X %q", op, text) {
			continue
		}
		assert.Equal(t, in.Bytes(), prog.Code, "%02X %q", op, text)
	}
}

func TestSplitOperands(t *testing.T) {
	assert.Nil(t, splitOperands("  "))
	assert.Equal(t, []string{"A", "B"}, splitOperands(" A , B "))
	assert.Equal(t, []string{"lo(x, y)", "','"}, splitOperands("lo(x, y), ','"))
	assert.Equal(t, []string{`"a,b"`, "1"}, splitOperands(`"a,b",1`))
}

func TestRewrite(t *testing.T) {
	assert.Equal(t, "0x0FF + 0b101", rewrite("0FFh + 101b"))
	assert.Equal(t, "65", rewrite("'A'"))
	assert.Equal(t, "10", rewrite(`'\n'`))
	assert.Equal(t, pcSymbol+"+2", rewrite("$+2"))
	assert.Equal(t, "label_h", rewrite("label_h"))
}
