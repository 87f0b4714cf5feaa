// Package machine hosts a single 8080 core: it owns the memory, loads
// images, and drives the core one instruction at a time.
package machine

import (
	"log"
	"os"

	"github.com/oisee/i8080/pkg/cpu"
	"github.com/oisee/i8080/pkg/inst"
	"github.com/oisee/i8080/pkg/trace"
)

// Config controls how a Machine loads and runs a program.
type Config struct {
	LoadAddr uint16         // Where Load places an image.
	Entry    uint16         // PC after Reset.
	MaxSteps uint64         // Run stops after this many steps; 0 means no limit.
	Policy   cpu.FlagPolicy // Treatment of flags an instruction does not affect.
	Trace    bool           // If set, every executed instruction is recorded.
	Logger   *log.Logger    // If set, every executed instruction is logged.
}

// Machine is one core with its own 64K of memory. Machines share nothing and
// may run on separate goroutines.
type Machine struct {
	CPU   cpu.State
	RAM   cpu.Memory
	Steps uint64       // Instructions executed since Reset.
	Trace *trace.Table // Nil unless Config.Trace is set.

	cfg Config
}

// New creates a machine with zeroed memory, reset to cfg.Entry.
func New(cfg Config) *Machine {
	m := &Machine{cfg: cfg}
	m.Reset()
	return m
}

// Reset clears the registers, flags, step count and trace. Memory is kept.
func (m *Machine) Reset() {
	m.CPU = cpu.State{
		PC:     m.cfg.Entry,
		Policy: m.cfg.Policy,
		Memory: &m.RAM,
	}
	m.Steps = 0
	if m.cfg.Trace {
		m.Trace = trace.NewTable()
	}
}

// Load copies image into memory at the configured load address.
func (m *Machine) Load(image []byte) error {
	if int(m.cfg.LoadAddr)+len(image) > len(m.RAM) {
		return &ErrImageSize{Addr: m.cfg.LoadAddr, Size: len(image)}
	}
	copy(m.RAM[m.cfg.LoadAddr:], image)
	return nil
}

// LoadFile reads a raw binary image and loads it.
func (m *Machine) LoadFile(path string) error {
	image, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return m.Load(image)
}

// Step executes one instruction. On error the state is as the core left it:
// for an unimplemented opcode, untouched.
func (m *Machine) Step() error {
	pc := m.CPU.PC
	in := m.RAM.Fetch(pc)
	if err := cpu.Step(&m.CPU); err != nil {
		return &ErrRuntime{Step: m.Steps, PC: pc, Err: err}
	}
	m.Steps++

	if m.Trace != nil {
		m.Trace.Add(trace.NewRecord(m.Steps, pc, in, &m.CPU))
	}
	if m.cfg.Logger != nil {
		m.cfg.Logger.Printf("%04X  %02X  %-14s %v", pc, in.Op, inst.Disassemble(in), m.CPU.Flags)
	}
	return nil
}

// Run steps until an instruction fails or the step limit is reached.
func (m *Machine) Run() error {
	for {
		if m.cfg.MaxSteps > 0 && m.Steps >= m.cfg.MaxSteps {
			return &ErrStepLimit{MaxSteps: m.cfg.MaxSteps}
		}
		if err := m.Step(); err != nil {
			return err
		}
	}
}

// Checkpoint snapshots the registers, memory and step count.
func (m *Machine) Checkpoint() *trace.Checkpoint {
	ram := m.RAM
	ckpt := &trace.Checkpoint{CPU: m.CPU, Steps: m.Steps}
	ckpt.CPU.Memory = &ram
	return ckpt
}

// Restore replaces the machine state with a snapshot. The trace, if any, is
// restarted.
func (m *Machine) Restore(ckpt *trace.Checkpoint) {
	if ckpt.CPU.Memory != nil {
		m.RAM = *ckpt.CPU.Memory
	}
	m.CPU = ckpt.CPU
	m.CPU.Memory = &m.RAM
	m.Steps = ckpt.Steps
	if m.cfg.Trace {
		m.Trace = trace.NewTable()
	}
}
