package machine

import (
	"github.com/oisee/i8080/pkg/translate"
)

var f = translate.From

// ErrRuntime locates an execution error by its step number.
type ErrRuntime struct {
	Step uint64
	PC   uint16
	Err  error
}

func (err *ErrRuntime) Error() string {
	return f("step %v pc %04Xh: %v", err.Step, err.PC, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}

// ErrStepLimit reports that Run executed its configured number of steps.
type ErrStepLimit struct {
	MaxSteps uint64
}

func (err *ErrStepLimit) Error() string {
	return f("step limit of %v reached", err.MaxSteps)
}

// ErrImageSize reports an image that does not fit between its load address
// and the top of memory.
type ErrImageSize struct {
	Addr uint16
	Size int
}

func (err *ErrImageSize) Error() string {
	return f("image of %v bytes does not fit at %04Xh", err.Size, err.Addr)
}
