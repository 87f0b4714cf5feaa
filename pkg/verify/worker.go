package verify

import (
	"fmt"
	"math/rand/v2"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
)

// WorkerPool checks opcodes in parallel. Each check builds its own state and
// memory, so workers share nothing but the results.
type WorkerPool struct {
	NumWorkers int
	mu         sync.Mutex
	failures   []Failure
	checked    atomic.Int64
	failed     atomic.Int64
}

// NewWorkerPool creates a pool with the given number of workers.
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &WorkerPool{NumWorkers: numWorkers}
}

// Stats returns the number of opcodes or programs checked and how many of
// them failed.
func (wp *WorkerPool) Stats() (checked, failed int64) {
	return wp.checked.Load(), wp.failed.Load()
}

// Run checks every opcode in ops and returns all failures, ordered by opcode.
func (wp *WorkerPool) Run(ops []uint8, verbose bool) []Failure {
	ch := make(chan uint8, len(ops))
	for _, op := range ops {
		ch <- op
	}
	close(ch)

	var wg sync.WaitGroup
	for i := 0; i < wp.NumWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for op := range ch {
				wp.process(op, verbose)
			}
		}()
	}
	wg.Wait()

	wp.mu.Lock()
	defer wp.mu.Unlock()
	result := make([]Failure, len(wp.failures))
	copy(result, wp.failures)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Opcode < result[j].Opcode
	})
	return result
}

func (wp *WorkerPool) process(op uint8, verbose bool) {
	failures := CheckOpcode(op)
	wp.checked.Add(1)
	if len(failures) == 0 {
		return
	}
	wp.failed.Add(1)

	wp.mu.Lock()
	wp.failures = append(wp.failures, failures...)
	wp.mu.Unlock()

	if verbose {
		for _, fl := range failures {
			fmt.Printf("  FAIL: %v\n", fl)
		}
	}
}

// SequenceTask is one random program walk: a program and count-1 mutations
// of it, each checked from a test vector under a policy.
type SequenceTask struct {
	Seed   uint64
	Count  int
	MaxLen int
}

// RunSequences runs the tasks in parallel and returns every failing program
// as a Failure with Opcode set to the program's first opcode.
func (wp *WorkerPool) RunSequences(tasks []SequenceTask, verbose bool) []Failure {
	ch := make(chan SequenceTask, len(tasks))
	for _, t := range tasks {
		ch <- t
	}
	close(ch)

	var wg sync.WaitGroup
	for i := 0; i < wp.NumWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range ch {
				wp.processSequence(task, verbose)
			}
		}()
	}
	wg.Wait()

	wp.mu.Lock()
	defer wp.mu.Unlock()
	result := make([]Failure, len(wp.failures))
	copy(result, wp.failures)
	return result
}

func (wp *WorkerPool) processSequence(task SequenceTask, verbose bool) {
	rng := rand.New(rand.NewPCG(task.Seed, 0x8080))
	gen := NewGenerator(rng, task.MaxLen)

	seq := gen.Program()
	for n := 0; n < task.Count; n++ {
		if n > 0 {
			seq = gen.Mutate(seq)
		}
		vec := rng.IntN(len(TestVectors))
		policy := Policies[rng.IntN(len(Policies))]
		split := rng.IntN(len(seq) + 1)

		wp.checked.Add(1)
		err := CheckSequence(seq, TestVectors[vec], policy, split)
		if err == nil {
			continue
		}
		wp.failed.Add(1)
		fl := Failure{
			Opcode: seq[0].Op,
			Vector: vec,
			Policy: policy,
			Reason: fmt.Sprintf("seed %d step %d split %d: %v: % X", task.Seed, n, split, err, Encode(seq)),
		}
		wp.mu.Lock()
		wp.failures = append(wp.failures, fl)
		wp.mu.Unlock()
		if verbose {
			fmt.Printf("  FAIL: %v\n", fl)
		}
	}
}

// AllOpcodes returns 0x00 through 0xFF.
func AllOpcodes() []uint8 {
	ops := make([]uint8, 0x100)
	for i := range ops {
		ops[i] = uint8(i)
	}
	return ops
}
