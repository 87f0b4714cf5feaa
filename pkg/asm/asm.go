// Package asm is a two pass assembler for the 8080 instruction set in the
// catalog. Expressions are evaluated as Starlark.
package asm

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/oisee/i8080/pkg/inst"
)

// Program is an assembled, contiguous memory image.
type Program struct {
	Origin uint16            // Address of Code[0].
	Code   []byte            // Assembled bytes; gaps left by ORG and DS are zero.
	Labels map[string]uint16 // Label addresses. Equates are not included.
}

// Assembler translates 8080 assembly source into a Program.
type Assembler struct {
	Verbose bool           // If set, logs each source line on the final pass.
	Symbols map[string]int // Predefined symbols visible to every expression.

	pass   int
	pc     int
	origin int
	placed bool // origin is fixed once the first byte is emitted
	done   bool
	code   []byte
	labels map[string]uint16
	equate map[string]int
}

// Assemble is a convenience wrapper for assembling source held in a string.
func Assemble(src string) (*Program, error) {
	var asm Assembler
	return asm.Parse(strings.NewReader(src))
}

// encodings maps a normalized "MNEMONIC OP,OP" form to its opcode.
// Non-register operands normalize to "n".
var encodings = map[string]uint8{}

// mnemonics holds every documented mnemonic, for error reporting.
var mnemonics = map[string]bool{}

var registers = map[string]bool{
	"A": true, "B": true, "C": true, "D": true, "E": true,
	"H": true, "L": true, "M": true, "SP": true, "PSW": true,
}

var directives = map[string]bool{
	"ORG": true, "EQU": true, "DB": true, "DW": true, "DS": true, "END": true,
}

func init() {
	for op, info := range inst.Catalog {
		if info.Alias || info.Mnemonic == "" {
			continue
		}
		m := info.Mnemonic
		for _, ph := range []string{"d16", "a16", "d8"} {
			m = strings.Replace(m, ph, "n", 1)
		}
		encodings[m] = uint8(op)
		name, _, _ := strings.Cut(m, " ")
		mnemonics[name] = true
	}
}

var (
	labelDef    = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*):`)
	identifier  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	hexLiteral  = regexp.MustCompile(`\b([0-9][0-9A-Fa-f]*)[hH]\b`)
	binLiteral  = regexp.MustCompile(`\b([01]+)[bB]\b`)
	charLiteral = regexp.MustCompile(`'(\\.|[^'\\])'`)
)

// pcSymbol is what '$' is rewritten to inside expressions.
const pcSymbol = "_pc_"

// Parse assembles the input stream. Symbols defined by a previous Parse are
// discarded.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	var lines []string
	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err = scanner.Err(); err != nil {
		return
	}

	asm.labels = make(map[string]uint16)
	asm.equate = make(map[string]int)

	for asm.pass = 0; asm.pass < 2; asm.pass++ {
		asm.pc, asm.origin, asm.placed, asm.done = 0, 0, false, false
		asm.code = nil

		for n, line := range lines {
			if asm.Verbose && asm.pass == 1 {
				log.Printf("%v: %v", n+1, line)
			}
			if err = asm.line(line); err != nil {
				err = ErrSyntax{LineNo: n + 1, Line: line, Err: err}
				return
			}
			if asm.done {
				break
			}
		}
	}

	prog = &Program{
		Origin: uint16(asm.origin),
		Code:   asm.code,
		Labels: maps.Clone(asm.labels),
	}
	return
}

// line assembles one source line.
func (asm *Assembler) line(text string) error {
	text = strings.TrimSpace(stripComment(text))
	if text == "" {
		return nil
	}

	var name string
	if m := labelDef.FindStringSubmatch(text); m != nil {
		name = m[1]
		text = strings.TrimSpace(text[len(m[0]):])
	}

	word, rest := cutWord(text)
	mnem := strings.ToUpper(word)

	// NAME EQU expr
	if name == "" && word != "" {
		if next, after := cutWord(rest); strings.EqualFold(next, "EQU") {
			name, mnem, rest = word, "EQU", after
		}
	}
	if mnem == "EQU" {
		return asm.defineEquate(name, rest)
	}

	if name != "" {
		if err := asm.defineLabel(name); err != nil {
			return err
		}
	}
	if mnem == "" {
		return nil
	}

	ops := splitOperands(rest)
	switch mnem {
	case "ORG":
		return asm.org(ops)
	case "DB":
		return asm.data(ops, 1)
	case "DW":
		return asm.data(ops, 2)
	case "DS":
		return asm.space(ops)
	case "END":
		asm.done = true
		return nil
	}
	return asm.instruction(mnem, ops)
}

func (asm *Assembler) checkName(name string) error {
	if !identifier.MatchString(name) || registers[strings.ToUpper(name)] ||
		directives[strings.ToUpper(name)] || name == pcSymbol {
		return fmt.Errorf("%w: %q", ErrLabelSyntax, name)
	}
	if _, ok := asm.labels[name]; ok {
		return fmt.Errorf("%w: %q", ErrLabelDuplicate, name)
	}
	if _, ok := asm.equate[name]; ok {
		return fmt.Errorf("%w: %q", ErrLabelDuplicate, name)
	}
	return nil
}

// defineLabel binds name to the current location. Labels are collected on
// the first pass only.
func (asm *Assembler) defineLabel(name string) error {
	if asm.pass > 0 {
		return nil
	}
	if err := asm.checkName(name); err != nil {
		return err
	}
	if asm.pc > 0xFFFF {
		return fmt.Errorf("%w: label %q at %05Xh", ErrRange, name, asm.pc)
	}
	asm.labels[name] = uint16(asm.pc)
	return nil
}

// defineEquate binds name to the value of expr. Equates must not refer
// forward.
func (asm *Assembler) defineEquate(name, expr string) error {
	if name == "" || strings.TrimSpace(expr) == "" {
		return ErrEquateSyntax
	}
	if asm.pass > 0 {
		return nil
	}
	if err := asm.checkName(name); err != nil {
		return err
	}
	v, err := asm.eval(expr)
	if err != nil {
		return err
	}
	asm.equate[name] = v
	return nil
}

func (asm *Assembler) org(ops []string) error {
	if len(ops) != 1 {
		return fmt.Errorf("%w: ORG takes one address", ErrOperand)
	}
	v, err := asm.eval(ops[0])
	if err != nil {
		return err
	}
	if v < 0 || v > 0xFFFF {
		return fmt.Errorf("%w: ORG %v", ErrRange, v)
	}
	if asm.placed && v < asm.pc {
		return fmt.Errorf("%w: %04Xh < %04Xh", ErrOrigin, v, asm.pc)
	}
	asm.pc = v
	return nil
}

func (asm *Assembler) space(ops []string) error {
	if len(ops) != 1 {
		return fmt.Errorf("%w: DS takes one count", ErrOperand)
	}
	n, err := asm.eval(ops[0])
	if err != nil {
		return err
	}
	if n < 0 || asm.pc+n > 0x10000 {
		return fmt.Errorf("%w: DS %v", ErrRange, n)
	}
	return asm.emit(make([]byte, n)...)
}

// data emits DB (size 1) or DW (size 2) operands. DB also accepts quoted
// strings.
func (asm *Assembler) data(ops []string, size int) error {
	if len(ops) == 0 {
		return fmt.Errorf("%w: no data", ErrOperand)
	}
	for _, op := range ops {
		if size == 1 {
			if s, ok, err := quoted(op); err != nil {
				return err
			} else if ok {
				if err := asm.emit([]byte(s)...); err != nil {
					return err
				}
				continue
			}
		}
		v, err := asm.operand(op, size)
		if err != nil {
			return err
		}
		bs := []byte{uint8(v)}
		if size == 2 {
			bs = append(bs, uint8(v>>8))
		}
		if err := asm.emit(bs...); err != nil {
			return err
		}
	}
	return nil
}

func (asm *Assembler) instruction(mnem string, ops []string) error {
	kinds := make([]string, len(ops))
	var exprs []string
	for n, op := range ops {
		if u := strings.ToUpper(op); registers[u] {
			kinds[n] = u
			continue
		}
		kinds[n] = "n"
		exprs = append(exprs, op)
	}
	key := mnem
	if len(kinds) > 0 {
		key += " " + strings.Join(kinds, ",")
	}

	op, ok := encodings[key]
	if !ok && mnem == "RST" && len(ops) == 1 {
		v, err := asm.eval(ops[0])
		if err != nil {
			if asm.pass == 0 {
				return asm.emit(0)
			}
			return err
		}
		if op, ok = encodings[fmt.Sprintf("RST %d", v)]; !ok {
			return fmt.Errorf("%w: RST %v", ErrRange, v)
		}
		exprs = nil
	}
	if !ok {
		if mnemonics[mnem] {
			return fmt.Errorf("%w: %v", ErrOperand, key)
		}
		return fmt.Errorf("%w: %v", ErrMnemonic, mnem)
	}

	size := inst.Size(op)
	if size == 1 {
		return asm.emit(op)
	}
	v, err := asm.operand(exprs[0], size-1)
	if err != nil {
		return err
	}
	in := inst.Instruction{Op: op, Imm: uint16(v)}
	return asm.emit(in.Bytes()...)
}

// operand evaluates an instruction or data operand of the given byte width.
// Forward references are allowed: the first pass only needs sizes.
func (asm *Assembler) operand(expr string, width int) (int, error) {
	v, err := asm.eval(expr)
	if err != nil {
		if asm.pass == 0 {
			return 0, nil
		}
		return 0, err
	}
	limit := 1 << (8 * width)
	if v < -limit/2 || v >= limit {
		if asm.pass == 0 {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRange, v)
	}
	return v, nil
}

func (asm *Assembler) emit(bs ...byte) error {
	if len(bs) == 0 {
		return nil
	}
	if asm.pc+len(bs) > 0x10000 {
		return fmt.Errorf("%w: code past 0FFFFh", ErrRange)
	}
	if !asm.placed {
		asm.origin = asm.pc
		asm.placed = true
	}
	off := asm.pc - asm.origin
	for len(asm.code) < off {
		asm.code = append(asm.code, 0)
	}
	asm.code = append(asm.code[:off], bs...)
	asm.pc += len(bs)
	return nil
}

var builtinLo = starlark.NewBuiltin("lo", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var v int
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &v); err != nil {
		return nil, err
	}
	return starlark.MakeInt(v & 0xFF), nil
})

var builtinHi = starlark.NewBuiltin("hi", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var v int
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &v); err != nil {
		return nil, err
	}
	return starlark.MakeInt((v >> 8) & 0xFF), nil
})

// rewrite turns assembler literals into Starlark: 'c' to its code, 12h to
// 0x12, 101b to 0b101 and $ to the location counter.
func rewrite(expr string) string {
	expr = charLiteral.ReplaceAllStringFunc(expr, func(word string) string {
		inner := strings.ReplaceAll(word[1:len(word)-1], `\'`, `'`)
		s, err := strconv.Unquote(`"` + strings.ReplaceAll(inner, `"`, `\"`) + `"`)
		if err != nil || len(s) != 1 {
			return word
		}
		return strconv.Itoa(int(s[0]))
	})
	expr = hexLiteral.ReplaceAllString(expr, "0x$1")
	expr = binLiteral.ReplaceAllString(expr, "0b$1")
	return strings.ReplaceAll(expr, "$", pcSymbol)
}

// eval evaluates expr against the builtins, the predefined symbols, the
// equates and the labels known so far.
func (asm *Assembler) eval(expr string) (value int, err error) {
	pred := starlark.StringDict{
		"lo":     builtinLo,
		"hi":     builtinHi,
		pcSymbol: starlark.MakeInt(asm.pc),
	}
	for key, v := range asm.Symbols {
		pred[key] = starlark.MakeInt(v)
	}
	for key, v := range asm.equate {
		pred[key] = starlark.MakeInt(v)
	}
	for key, v := range asm.labels {
		pred[key] = starlark.MakeInt(int(v))
	}

	thread := starlark.Thread{Name: "asm"}
	opts := syntax.FileOptions{}
	prog := "rc = (" + rewrite(expr) + ")\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = ErrEval{Expr: expr, Err: err}
		return
	}
	rc, ok := dict["rc"].(starlark.Int)
	if !ok {
		err = ErrEval{Expr: expr, Err: fmt.Errorf("got %v", dict["rc"].Type())}
		return
	}
	rc64, ok := rc.Int64()
	if !ok {
		err = ErrEval{Expr: expr, Err: ErrRange}
		return
	}
	value = int(rc64)
	return
}

// quoted reports whether op is a DB string and returns its bytes. A single
// character in single quotes is a number, not a string.
func quoted(op string) (s string, ok bool, err error) {
	if len(op) < 2 || (op[0] != '"' && op[0] != '\'') {
		return
	}
	q := op[0]
	if op[len(op)-1] != q {
		if strings.IndexByte(op[1:], q) < 0 {
			err = fmt.Errorf("%w: %v", ErrString, op)
		}
		return
	}
	inner := op[1 : len(op)-1]
	for i := 0; i < len(inner); i++ {
		switch inner[i] {
		case '\\':
			i++
		case q:
			return // 'a'+'b' is an expression
		}
	}
	if q == '\'' {
		if charLiteral.FindString(op) == op {
			return
		}
		inner = strings.ReplaceAll(inner, `\'`, `'`)
		inner = strings.ReplaceAll(inner, `"`, `\"`)
	}
	s, err = strconv.Unquote(`"` + inner + `"`)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrString, op)
		return
	}
	ok = true
	return
}

// stripComment removes a trailing ';' comment, ignoring ';' inside quotes.
func stripComment(line string) string {
	var q byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case q != 0 && c == '\\':
			i++
		case q != 0 && c == q:
			q = 0
		case q != 0:
		case c == '"' || c == '\'':
			q = c
		case c == ';':
			return line[:i]
		}
	}
	return line
}

// splitOperands splits on commas outside quotes and parentheses.
func splitOperands(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var ops []string
	var q byte
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case q != 0 && c == '\\':
			i++
		case q != 0 && c == q:
			q = 0
		case q != 0:
		case c == '"' || c == '\'':
			q = c
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == ',' && depth == 0:
			ops = append(ops, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	return append(ops, strings.TrimSpace(s[start:]))
}

func cutWord(s string) (word, rest string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], strings.TrimSpace(s[i:])
	}
	return s, ""
}
