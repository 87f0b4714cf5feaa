package trace

import (
	"encoding/gob"
	"os"

	"github.com/oisee/i8080/pkg/cpu"
)

// Checkpoint holds state for resuming a run. The memory image travels with
// CPU.Memory.
type Checkpoint struct {
	CPU   cpu.State
	Steps uint64 // Instructions executed before the checkpoint
}

// SaveCheckpoint writes machine state to a file.
func SaveCheckpoint(path string, ckpt *Checkpoint) error {
	if ckpt.CPU.Memory == nil {
		return cpu.ErrNoMemory
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(ckpt)
}

// LoadCheckpoint loads machine state from a file.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var ckpt Checkpoint
	if err := gob.NewDecoder(f).Decode(&ckpt); err != nil {
		return nil, err
	}
	if ckpt.CPU.Memory == nil {
		ckpt.CPU.Memory = &cpu.Memory{}
	}
	return &ckpt, nil
}
