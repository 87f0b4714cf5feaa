package inst

import (
	"testing"
)

// TestCatalogCompleteness verifies every opcode byte has a catalog entry.
func TestCatalogCompleteness(t *testing.T) {
	for op := 0; op < 256; op++ {
		info := &Catalog[op]
		if info.Mnemonic == "" {
			t.Errorf("opcode %02X has no mnemonic", op)
		}
		if info.Size < 1 || info.Size > 3 {
			t.Errorf("opcode %02X (%s) has size %d", op, info.Mnemonic, info.Size)
		}
		if info.Affects&^FlagMask != 0 {
			t.Errorf("opcode %02X (%s) affects padding bits %02X", op, info.Mnemonic, uint8(info.Affects))
		}
	}
}

// TestEncodings spot-checks mnemonics against the 8080 opcode map.
func TestEncodings(t *testing.T) {
	expected := map[uint8]string{
		0x00: "NOP", 0x01: "LXI B,d16", 0x02: "STAX B", 0x03: "INX B",
		0x04: "INR B", 0x05: "DCR B", 0x06: "MVI B,d8", 0x07: "RLC",
		0x09: "DAD B", 0x0A: "LDAX B", 0x0B: "DCX B", 0x0F: "RRC",
		0x17: "RAL", 0x1F: "RAR", 0x22: "SHLD a16", 0x27: "DAA",
		0x2A: "LHLD a16", 0x2F: "CMA", 0x31: "LXI SP,d16", 0x32: "STA a16",
		0x34: "INR M", 0x36: "MVI M,d8", 0x37: "STC", 0x39: "DAD SP",
		0x3A: "LDA a16", 0x3F: "CMC",
		0x40: "MOV B,B", 0x46: "MOV B,M", 0x70: "MOV M,B", 0x76: "HLT", 0x7F: "MOV A,A",
		0x80: "ADD B", 0x86: "ADD M", 0x8F: "ADC A", 0x90: "SUB B", 0x9E: "SBB M",
		0xA7: "ANA A", 0xAF: "XRA A", 0xB6: "ORA M", 0xBF: "CMP A",
		0xC0: "RNZ", 0xC1: "POP B", 0xC2: "JNZ a16", 0xC3: "JMP a16",
		0xC4: "CNZ a16", 0xC5: "PUSH B", 0xC6: "ADI d8", 0xC7: "RST 0",
		0xC9: "RET", 0xCD: "CALL a16", 0xCE: "ACI d8", 0xD3: "OUT d8",
		0xDB: "IN d8", 0xE3: "XTHL", 0xE9: "PCHL", 0xEB: "XCHG",
		0xF1: "POP PSW", 0xF3: "DI", 0xF5: "PUSH PSW", 0xF9: "SPHL",
		0xFA: "JM a16", 0xFB: "EI", 0xFE: "CPI d8", 0xFF: "RST 7",
	}
	for op, want := range expected {
		if got := Mnemonic(op); got != want {
			t.Errorf("opcode %02X: got %q, want %q", op, got, want)
		}
	}
}

// TestByteSize verifies the size distribution of the opcode map.
func TestByteSize(t *testing.T) {
	counts := map[int]int{}
	for op := 0; op < 256; op++ {
		counts[Size(uint8(op))]++
	}
	if counts[2] != 18 {
		t.Errorf("2-byte opcodes: got %d, want 18", counts[2])
	}
	if counts[3] != 30 {
		t.Errorf("3-byte opcodes: got %d, want 30", counts[3])
	}
	if counts[1] != 208 {
		t.Errorf("1-byte opcodes: got %d, want 208", counts[1])
	}

	if !HasImm16(0x01) || HasImm16(0x06) || !HasImmediate(0x06) || HasImmediate(0x00) {
		t.Error("immediate classification mismatch for LXI/MVI/NOP")
	}
}

func TestAliases(t *testing.T) {
	aliases := []uint8{0x08, 0x10, 0x18, 0x28, 0x38, 0xCB, 0xD9, 0xDD, 0xED, 0xFD}
	n := 0
	for op := 0; op < 256; op++ {
		if Catalog[op].Alias {
			n++
		}
	}
	if n != len(aliases) {
		t.Errorf("alias count: got %d, want %d", n, len(aliases))
	}
	for _, op := range aliases {
		if !Catalog[op].Alias {
			t.Errorf("opcode %02X should be an alias", op)
		}
		if Catalog[op].Mnemonic[0] != '*' {
			t.Errorf("alias %02X mnemonic %q lacks '*' marker", op, Catalog[op].Mnemonic)
		}
	}
}

func TestAffects(t *testing.T) {
	tests := []struct {
		op   uint8
		want Flags
	}{
		{0x04, FlagZ | FlagS | FlagP | FlagAC}, // INR B
		{0x35, FlagZ | FlagS | FlagP | FlagAC}, // DCR M
		{0x09, FlagCY},                         // DAD B
		{0x07, FlagCY},                         // RLC
		{0x80, FlagMask},                       // ADD B
		{0x03, 0},                              // INX B
		{0x2F, 0},                              // CMA
		{0x41, 0},                              // MOV B,C
	}
	for _, tc := range tests {
		if got := Catalog[tc.op].Affects; got != tc.want {
			t.Errorf("%s: affects %s, want %s", Mnemonic(tc.op), got, tc.want)
		}
	}
}

// TestDisassemble verifies disassembly output.
func TestDisassemble(t *testing.T) {
	tests := []struct {
		in   Instruction
		want string
	}{
		{Instruction{Op: 0x00}, "NOP"},
		{Instruction{Op: 0x41}, "MOV B,C"},
		{Instruction{Op: 0x3E, Imm: 0x42}, "MVI A,42h"},
		{Instruction{Op: 0x3E, Imm: 0xFF}, "MVI A,0FFh"},
		{Instruction{Op: 0x01, Imm: 0x1234}, "LXI B,1234h"},
		{Instruction{Op: 0x21, Imm: 0xC000}, "LXI H,0C000h"},
		{Instruction{Op: 0x32, Imm: 0x2000}, "STA 2000h"},
		{Instruction{Op: 0xC3, Imm: 0x0100}, "JMP 0100h"},
		{Instruction{Op: 0xD3, Imm: 0x10}, "OUT 10h"},
		{Instruction{Op: 0xCB, Imm: 0x0005}, "*JMP 0005h"},
	}
	for _, tc := range tests {
		if got := Disassemble(tc.in); got != tc.want {
			t.Errorf("Disassemble(%02X %04X): got %q, want %q", tc.in.Op, tc.in.Imm, got, tc.want)
		}
	}
}

func TestInstructionBytes(t *testing.T) {
	in := Instruction{Op: 0x01, Imm: 0x1234}
	got := in.Bytes()
	if len(got) != 3 || got[0] != 0x01 || got[1] != 0x34 || got[2] != 0x12 {
		t.Errorf("LXI B bytes: got % X, want 01 34 12", got)
	}
	if got := (Instruction{Op: 0x06, Imm: 0xAB77}).Bytes(); len(got) != 2 || got[1] != 0x77 {
		t.Errorf("MVI B bytes: got % X, want 06 77", got)
	}
}

func TestFlagsString(t *testing.T) {
	if got := (FlagZ | FlagCY).String(); got != "Z--C-" {
		t.Errorf("got %q, want Z--C-", got)
	}
	if got := FlagMask.String(); got != "ZSPCA" {
		t.Errorf("got %q, want ZSPCA", got)
	}
	if got := Flags(0).String(); got != "-----" {
		t.Errorf("got %q, want -----", got)
	}
}
