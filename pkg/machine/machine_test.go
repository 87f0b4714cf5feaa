package machine

import (
	"bytes"
	"errors"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oisee/i8080/pkg/asm"
	"github.com/oisee/i8080/pkg/cpu"
)

func assemble(t *testing.T, src string) *Machine {
	t.Helper()
	prog, err := asm.Assemble(src)
	require.NoError(t, err)
	m := New(Config{LoadAddr: prog.Origin, Entry: prog.Origin, Trace: true})
	require.NoError(t, m.Load(prog.Code))
	return m
}

func TestNew(t *testing.T) {
	assert := assert.New(t)

	m := New(Config{Entry: 0x0100, Policy: cpu.ClearFlags})
	assert.Equal(uint16(0x0100), m.CPU.PC)
	assert.Equal(cpu.ClearFlags, m.CPU.Policy)
	assert.Same(&m.RAM, m.CPU.Memory)
	assert.Nil(m.Trace)
	assert.Zero(m.Steps)
}

func TestRunUntilTrap(t *testing.T) {
	assert := assert.New(t)

	m := assemble(t, `
	MVI A,1
	MVI B,2
	ADD B
	STA 10h
	HLT
`)
	err := m.Run()

	var ue *cpu.UnimplementedError
	require.True(t, errors.As(err, &ue), "got %v", err)
	assert.True(errors.Is(err, cpu.ErrUnimplemented))
	assert.Equal(uint8(0x76), ue.Opcode)
	assert.Equal(uint16(8), ue.PC)

	var re *ErrRuntime
	require.True(t, errors.As(err, &re))
	assert.Equal(uint64(4), re.Step)

	assert.Equal(uint16(8), m.CPU.PC)
	assert.Equal(uint64(4), m.Steps)
	assert.Equal(uint8(3), m.CPU.A)
	assert.Equal(uint8(3), m.RAM[0x10])
}

func TestRunStepLimit(t *testing.T) {
	m := New(Config{MaxSteps: 5})
	err := m.Run()

	var sl *ErrStepLimit
	require.True(t, errors.As(err, &sl), "got %v", err)
	assert.Equal(t, uint64(5), sl.MaxSteps)
	assert.Equal(t, uint64(5), m.Steps)
	assert.Equal(t, uint16(5), m.CPU.PC)
}

func TestSelfModifyingProgram(t *testing.T) {
	m := assemble(t, `
	MVI A,3Ch	; INR A
	STA next
next:	NOP
	HLT
`)
	err := m.Run()
	require.ErrorIs(t, err, cpu.ErrUnimplemented)
	assert.Equal(t, uint8(0x3D), m.CPU.A)
	assert.Equal(t, uint64(3), m.Steps)
}

func TestLoad(t *testing.T) {
	m := New(Config{LoadAddr: 0xFFFE})
	require.NoError(t, m.Load([]byte{0x12, 0x34}))
	assert.Equal(t, uint8(0x12), m.RAM[0xFFFE])
	assert.Equal(t, uint8(0x34), m.RAM[0xFFFF])

	m = New(Config{LoadAddr: 0xFFFF})
	err := m.Load([]byte{0x12, 0x34})
	var ie *ErrImageSize
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, 2, ie.Size)
	assert.Zero(t, m.RAM[0xFFFF])
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prog.bin")
	require.NoError(t, os.WriteFile(path, []byte{0x3E, 0x42}, 0o644))

	m := New(Config{LoadAddr: 0x0100, Entry: 0x0100})
	require.NoError(t, m.LoadFile(path))
	require.NoError(t, m.Step())
	assert.Equal(t, uint8(0x42), m.CPU.A)
	assert.Equal(t, uint16(0x0102), m.CPU.PC)

	assert.Error(t, m.LoadFile(filepath.Join(t.TempDir(), "missing.bin")))
}

func TestTrace(t *testing.T) {
	m := assemble(t, "INR A\nINR A\nHLT")
	require.ErrorIs(t, m.Run(), cpu.ErrUnimplemented)

	recs := m.Trace.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, uint64(2), recs[1].Step)
	assert.Equal(t, uint16(1), recs[1].PC)
	assert.Equal(t, "INR A", recs[1].Text)
	assert.Equal(t, uint8(2), recs[1].A)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	m := New(Config{Logger: log.New(&buf, "", 0)})
	m.RAM[0] = 0x3C
	require.NoError(t, m.Step())
	assert.Contains(t, buf.String(), "0000  3C  INR A")
}

func TestReset(t *testing.T) {
	m := assemble(t, "MVI A,7\nHLT")
	require.NoError(t, m.Step())
	m.Reset()

	assert.Zero(t, m.CPU.A)
	assert.Zero(t, m.CPU.PC)
	assert.Zero(t, m.Steps)
	assert.Zero(t, m.Trace.Len())
	assert.Equal(t, uint8(0x3E), m.RAM[0], "memory survives reset")
}

func TestCheckpointRestore(t *testing.T) {
	src := `
	LXI H,100h
	MVI M,5
	INR M
	MOV A,M
	ADD A
	HLT
`
	straight := assemble(t, src)
	require.ErrorIs(t, straight.Run(), cpu.ErrUnimplemented)

	m := assemble(t, src)
	require.NoError(t, m.Step())
	require.NoError(t, m.Step())
	ckpt := m.Checkpoint()

	m.RAM[0x100] = 0xEE
	assert.Equal(t, uint8(5), ckpt.CPU.Memory[0x100], "checkpoint owns its memory")

	resumed := New(Config{Trace: true})
	resumed.Restore(ckpt)
	assert.Same(t, &resumed.RAM, resumed.CPU.Memory)
	require.ErrorIs(t, resumed.Run(), cpu.ErrUnimplemented)

	assert.Equal(t, straight.Steps, resumed.Steps)
	assert.Equal(t, straight.RAM, resumed.RAM)
	assert.Equal(t, uint8(12), resumed.CPU.A)

	want := straight.CPU
	want.Memory = resumed.CPU.Memory
	assert.True(t, want.Equal(resumed.CPU))
}
