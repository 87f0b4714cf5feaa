package inst

import "strings"

// Info holds static metadata for an opcode.
type Info struct {
	Mnemonic string // Assembly text with operand placeholders d8, d16 or a16
	Size     int    // Total encoded length in bytes, operands included
	Affects  Flags  // Condition bits the instruction may modify
	Alias    bool   // Undocumented duplicate of another opcode
}

// Catalog maps each opcode byte to its Info.
var Catalog [256]Info

// Size returns the total byte size of an instruction starting with op.
func Size(op uint8) int {
	return Catalog[op].Size
}

// Mnemonic returns the catalog mnemonic for op, placeholders included.
func Mnemonic(op uint8) string {
	return Catalog[op].Mnemonic
}

// Disassemble returns assembly text for an instruction.
func Disassemble(in Instruction) string {
	m := Catalog[in.Op].Mnemonic
	switch {
	case strings.HasSuffix(m, "d16"), strings.HasSuffix(m, "a16"):
		return m[:len(m)-3] + string(appendHex16(nil, in.Imm))
	case strings.HasSuffix(m, "d8"):
		return m[:len(m)-2] + string(appendHex8(nil, in.Lo()))
	}
	return m
}

func appendHex8(buf []byte, v uint8) []byte {
	const hex = "0123456789ABCDEF"
	if v >= 0xA0 {
		buf = append(buf, '0')
	}
	buf = append(buf, hex[v>>4], hex[v&0x0F], 'h')
	return buf
}

func appendHex16(buf []byte, v uint16) []byte {
	const hex = "0123456789ABCDEF"
	if v>>12 >= 0xA {
		buf = append(buf, '0')
	}
	buf = append(buf, hex[v>>12], hex[(v>>8)&0x0F], hex[(v>>4)&0x0F], hex[v&0x0F], 'h')
	return buf
}

func init() {
	set := func(op uint8, mnemonic string, size int, affects Flags) {
		Catalog[op] = Info{Mnemonic: mnemonic, Size: size, Affects: affects}
	}
	alias := func(op uint8, mnemonic string, size int) {
		Catalog[op] = Info{Mnemonic: "*" + mnemonic, Size: size, Alias: true}
	}

	// === 00-3F: loads, 16-bit pair ops, INR/DCR/MVI, rotates, specials ===
	set(0x00, "NOP", 1, AffectsNone)
	for _, op := range []uint8{0x08, 0x10, 0x18, 0x28, 0x38} {
		alias(op, "NOP", 1)
	}

	for p := uint8(0); p < 4; p++ {
		rp := PairNames[p]
		set(p<<4|0x01, "LXI "+rp+",d16", 3, AffectsNone)
		set(p<<4|0x03, "INX "+rp, 1, AffectsNone)
		set(p<<4|0x09, "DAD "+rp, 1, AffectsCarry)
		set(p<<4|0x0B, "DCX "+rp, 1, AffectsNone)
	}

	set(0x02, "STAX B", 1, AffectsNone)
	set(0x12, "STAX D", 1, AffectsNone)
	set(0x0A, "LDAX B", 1, AffectsNone)
	set(0x1A, "LDAX D", 1, AffectsNone)
	set(0x22, "SHLD a16", 3, AffectsNone)
	set(0x2A, "LHLD a16", 3, AffectsNone)
	set(0x32, "STA a16", 3, AffectsNone)
	set(0x3A, "LDA a16", 3, AffectsNone)

	for r := uint8(0); r < 8; r++ {
		set(r<<3|0x04, "INR "+RegNames[r], 1, AffectsIncr)
		set(r<<3|0x05, "DCR "+RegNames[r], 1, AffectsIncr)
		set(r<<3|0x06, "MVI "+RegNames[r]+",d8", 2, AffectsNone)
	}

	set(0x07, "RLC", 1, AffectsCarry)
	set(0x0F, "RRC", 1, AffectsCarry)
	set(0x17, "RAL", 1, AffectsCarry)
	set(0x1F, "RAR", 1, AffectsCarry)
	set(0x20, "RIM", 1, AffectsNone) // 8085 only
	set(0x27, "DAA", 1, AffectsAll)
	set(0x2F, "CMA", 1, AffectsNone)
	set(0x30, "SIM", 1, AffectsNone) // 8085 only
	set(0x37, "STC", 1, AffectsCarry)
	set(0x3F, "CMC", 1, AffectsCarry)

	// === 40-7F: MOV d,s (M,M encodes HLT) ===
	for d := uint8(0); d < 8; d++ {
		for s := uint8(0); s < 8; s++ {
			set(0x40|d<<3|s, "MOV "+RegNames[d]+","+RegNames[s], 1, AffectsNone)
		}
	}
	set(0x76, "HLT", 1, AffectsNone)

	// === 80-BF: accumulator ALU ===
	alu := [8]string{"ADD", "ADC", "SUB", "SBB", "ANA", "XRA", "ORA", "CMP"}
	for k := uint8(0); k < 8; k++ {
		for r := uint8(0); r < 8; r++ {
			set(0x80|k<<3|r, alu[k]+" "+RegNames[r], 1, AffectsAll)
		}
	}

	// === C0-FF: control flow, stack, immediates, I/O ===
	for c := uint8(0); c < 8; c++ {
		set(0xC0|c<<3, "R"+CondNames[c], 1, AffectsNone)
		set(0xC2|c<<3, "J"+CondNames[c]+" a16", 3, AffectsNone)
		set(0xC4|c<<3, "C"+CondNames[c]+" a16", 3, AffectsNone)
		set(0xC7|c<<3, "RST "+string('0'+c), 1, AffectsNone)
	}
	for p := uint8(0); p < 4; p++ {
		set(0xC1|p<<4, "POP "+StackPairs[p], 1, AffectsNone)
		set(0xC5|p<<4, "PUSH "+StackPairs[p], 1, AffectsNone)
	}
	Catalog[0xF1].Affects = AffectsAll // POP PSW reloads the flags byte

	imm := [8]string{"ADI", "ACI", "SUI", "SBI", "ANI", "XRI", "ORI", "CPI"}
	for k := uint8(0); k < 8; k++ {
		set(0xC6|k<<3, imm[k]+" d8", 2, AffectsAll)
	}

	set(0xC3, "JMP a16", 3, AffectsNone)
	set(0xC9, "RET", 1, AffectsNone)
	set(0xCD, "CALL a16", 3, AffectsNone)
	set(0xD3, "OUT d8", 2, AffectsNone)
	set(0xDB, "IN d8", 2, AffectsNone)
	set(0xE3, "XTHL", 1, AffectsNone)
	set(0xE9, "PCHL", 1, AffectsNone)
	set(0xEB, "XCHG", 1, AffectsNone)
	set(0xF3, "DI", 1, AffectsNone)
	set(0xF9, "SPHL", 1, AffectsNone)
	set(0xFB, "EI", 1, AffectsNone)

	alias(0xCB, "JMP a16", 3)
	alias(0xD9, "RET", 1)
	for _, op := range []uint8{0xDD, 0xED, 0xFD} {
		alias(op, "CALL a16", 3)
	}
}
