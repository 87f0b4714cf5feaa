package inst

// Instruction is one decoded 8080 instruction: the opcode byte plus the little-endian
// word that follows it in memory. Only Size(Op)-1 bytes of Imm are meaningful.
type Instruction struct {
	Op  uint8
	Imm uint16
}

// Lo returns the first operand byte (d8, or the low byte of d16/a16).
func (in Instruction) Lo() uint8 {
	return uint8(in.Imm)
}

// Hi returns the second operand byte (the high byte of d16/a16).
func (in Instruction) Hi() uint8 {
	return uint8(in.Imm >> 8)
}

// Bytes returns the encoding of the instruction, immediate included.
func (in Instruction) Bytes() []byte {
	switch Size(in.Op) {
	case 3:
		return []byte{in.Op, in.Lo(), in.Hi()}
	case 2:
		return []byte{in.Op, in.Lo()}
	}
	return []byte{in.Op}
}

// HasImmediate returns true if this opcode carries an 8 or 16-bit operand.
func HasImmediate(op uint8) bool {
	return Catalog[op].Size > 1
}

// HasImm16 returns true if this opcode carries a 16-bit data or address operand.
func HasImm16(op uint8) bool {
	return Catalog[op].Size == 3
}

// Register names in encoding order; index 6 is the memory operand (HL).
var RegNames = [8]string{"B", "C", "D", "E", "H", "L", "M", "A"}

// Register-pair names for LXI/INX/DCX/DAD, and for PUSH/POP.
var (
	PairNames  = [4]string{"B", "D", "H", "SP"}
	StackPairs = [4]string{"B", "D", "H", "PSW"}
)

// CondNames are the branch conditions in encoding order.
var CondNames = [8]string{"NZ", "Z", "NC", "C", "PO", "PE", "P", "M"}
