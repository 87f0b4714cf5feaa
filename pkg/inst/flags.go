package inst

// Flags is the 8080 condition-code byte as exposed to trace and disassembly tooling.
//
//	bit 0: Z   zero
//	bit 1: S   sign
//	bit 2: P   parity (set when even)
//	bit 3: CY  carry
//	bit 4: AC  auxiliary carry (carry out of bit 3)
//
// Bits 5-7 are padding and always zero.
type Flags uint8

const (
	FlagZ  Flags = 0x01
	FlagS  Flags = 0x02
	FlagP  Flags = 0x04
	FlagCY Flags = 0x08
	FlagAC Flags = 0x10

	// FlagMask covers every defined condition bit.
	FlagMask = FlagZ | FlagS | FlagP | FlagCY | FlagAC
)

// Common affected-flag sets.
const (
	AffectsNone  Flags = 0
	AffectsCarry       = FlagCY
	AffectsIncr        = FlagZ | FlagS | FlagP | FlagAC // INR/DCR leave CY alone
	AffectsAll         = FlagMask
)

// Has reports whether every bit of mask is set in f.
func (f Flags) Has(mask Flags) bool {
	return f&mask == mask
}

// String renders the flags as "ZSPCA", with '-' for each clear bit.
func (f Flags) String() string {
	const names = "ZSPCA"
	var buf [5]byte
	for i := range buf {
		if f&(1<<i) != 0 {
			buf[i] = names[i]
		} else {
			buf[i] = '-'
		}
	}
	return string(buf[:])
}
