package trace

import (
	"encoding/json"
	"io"

	"github.com/oisee/i8080/pkg/cpu"
	"github.com/oisee/i8080/pkg/inst"
)

// Record is one executed instruction together with the register file after it.
type Record struct {
	Step   uint64 `json:"step"`
	PC     uint16 `json:"pc"`
	Opcode uint8  `json:"opcode"`
	Text   string `json:"text"`
	A      uint8  `json:"a"`
	B      uint8  `json:"b"`
	C      uint8  `json:"c"`
	D      uint8  `json:"d"`
	E      uint8  `json:"e"`
	H      uint8  `json:"h"`
	L      uint8  `json:"l"`
	SP     uint16 `json:"sp"`
	Flags  string `json:"flags"`
}

// NewRecord captures s after executing in, which was fetched from pc.
func NewRecord(step uint64, pc uint16, in inst.Instruction, s *cpu.State) Record {
	return Record{
		Step:   step,
		PC:     pc,
		Opcode: in.Op,
		Text:   inst.Disassemble(in),
		A:      s.A,
		B:      s.B,
		C:      s.C,
		D:      s.D,
		E:      s.E,
		H:      s.H,
		L:      s.L,
		SP:     s.SP,
		Flags:  s.Flags.String(),
	}
}

// Table stores trace records in execution order.
// It is owned by a single machine and is not safe for concurrent use.
type Table struct {
	records []Record
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{}
}

// Add appends a record.
func (t *Table) Add(r Record) {
	t.records = append(t.records, r)
}

// Records returns a copy of all records.
func (t *Table) Records() []Record {
	result := make([]Record, len(t.records))
	copy(result, t.records)
	return result
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.records)
}

// WriteJSON writes the records as an indented JSON array.
func (t *Table) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	records := t.records
	if records == nil {
		records = []Record{}
	}
	return enc.Encode(records)
}

// ReadJSON replaces the table contents with the records in r.
func (t *Table) ReadJSON(r io.Reader) error {
	var records []Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return err
	}
	t.records = records
	return nil
}
