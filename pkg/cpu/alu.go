package cpu

import (
	"fmt"
	"math/bits"
)

// Width selects the operand size of the adder.
type Width uint8

const (
	Width8  Width = 8
	Width16 Width = 16
)

// AddWithCarry adds a and b over width bits. carry is the carry out of the top
// bit; aux is the carry out of bit 3 into bit 4, computed at that boundary for
// both widths. Operand bits above width are ignored.
//
// Subtraction is addition of the two's complement (0xFF for an 8-bit -1,
// 0xFFFF for a 16-bit -1). A carry out of such an addition means no borrow.
func AddWithCarry(a, b uint16, width Width) (result uint16, carry, aux bool) {
	return ripple(a, b, false, width)
}

// ripple is a bit-serial full adder chain with carry-in.
func ripple(a, b uint16, carryIn bool, width Width) (sum uint16, carry, aux bool) {
	if width != Width8 && width != Width16 {
		panic(fmt.Sprintf("cpu: adder width %d", width))
	}
	var c uint16
	if carryIn {
		c = 1
	}
	for i := Width(0); i < width; i++ {
		x := (a >> i) & 1
		y := (b >> i) & 1
		sum |= (x ^ y ^ c) << i
		c = x&y | x&c | y&c
		if i == 3 {
			aux = c == 1
		}
	}
	return sum, c == 1, aux
}

// Parity reports whether v has an even number of set bits. Callers pass 8-bit
// results zero-extended.
func Parity(v uint16) bool {
	return bits.OnesCount16(v)%2 == 0
}
