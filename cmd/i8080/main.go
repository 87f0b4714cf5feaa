package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/oisee/i8080/pkg/asm"
	"github.com/oisee/i8080/pkg/cpu"
	"github.com/oisee/i8080/pkg/inst"
	"github.com/oisee/i8080/pkg/machine"
	"github.com/oisee/i8080/pkg/trace"
	"github.com/oisee/i8080/pkg/verify"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("i8080: ")

	rootCmd := &cobra.Command{
		Use:   "i8080",
		Short: "Intel 8080 instruction-level emulator",
	}

	// run command
	var cfg machine.Config
	var legacyFlags bool
	var traceFile string
	var checkpoint string
	var resume string
	var verbose bool

	runCmd := &cobra.Command{
		Use:   "run [image]",
		Short: "Load a raw binary image and execute it until it traps",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && resume == "" {
				return fmt.Errorf("need an image or --resume")
			}
			if legacyFlags {
				cfg.Policy = cpu.ClearFlags
			}
			cfg.Trace = traceFile != ""
			if verbose {
				cfg.Logger = log.New(os.Stderr, "", 0)
			}

			m := machine.New(cfg)
			if resume != "" {
				ckpt, err := trace.LoadCheckpoint(resume)
				if err != nil {
					return err
				}
				m.Restore(ckpt)
				fmt.Printf("Resumed %s at step %d, pc %04Xh\n", resume, m.Steps, m.CPU.PC)
			} else if err := m.LoadFile(args[0]); err != nil {
				return err
			}

			runErr := m.Run()

			if traceFile != "" {
				if err := writeTrace(traceFile, m.Trace); err != nil {
					return err
				}
				fmt.Printf("Trace of %d steps written to %s\n", m.Trace.Len(), traceFile)
			}
			if checkpoint != "" {
				if err := trace.SaveCheckpoint(checkpoint, m.Checkpoint()); err != nil {
					return err
				}
				fmt.Printf("Checkpoint written to %s\n", checkpoint)
			}

			var limit *machine.ErrStepLimit
			var trap *cpu.UnimplementedError
			switch {
			case errors.As(runErr, &limit):
				fmt.Printf("Stopped after %d steps\n", m.Steps)
				printState(&m.CPU)
				return nil
			case errors.As(runErr, &trap):
				log.Printf("%v", trap)
				printState(&m.CPU)
				os.Exit(1)
			}
			return runErr
		},
	}
	addMachineFlags(runCmd.Flags(), &cfg)
	runCmd.Flags().BoolVar(&legacyFlags, "legacy-flags", false, "Clear flags an instruction does not affect")
	runCmd.Flags().StringVar(&traceFile, "trace", "", "Write an execution trace as JSON")
	runCmd.Flags().StringVar(&checkpoint, "checkpoint", "", "Save machine state to this file on exit")
	runCmd.Flags().StringVar(&resume, "resume", "", "Resume from a checkpoint instead of loading an image")
	runCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log every instruction")

	// disasm command
	var disasmLoad uint16
	var start uint16
	var count int

	disasmCmd := &cobra.Command{
		Use:   "disasm [image]",
		Short: "Disassemble a raw binary image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			image, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			m := machine.New(machine.Config{LoadAddr: disasmLoad})
			if err := m.Load(image); err != nil {
				return err
			}
			end := int(disasmLoad) + len(image)
			if start < disasmLoad {
				start = disasmLoad
			}
			pc := int(start)
			for n := 0; pc < end && (count == 0 || n < count); n++ {
				in := m.RAM.Fetch(uint16(pc))
				fmt.Printf("%04X  %-8s  %s\n", pc, hexBytes(in.Bytes()), inst.Disassemble(in))
				pc += inst.Size(in.Op)
			}
			return nil
		},
	}
	disasmCmd.Flags().Uint16Var(&disasmLoad, "load", 0, "Load address of the image")
	disasmCmd.Flags().Uint16Var(&start, "start", 0, "First address to disassemble")
	disasmCmd.Flags().IntVar(&count, "count", 0, "Number of instructions (0 = to end of image)")

	// asm command
	var output string
	var asmVerbose bool

	asmCmd := &cobra.Command{
		Use:   "asm [source.asm]",
		Short: "Assemble 8080 source into a raw binary image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inf, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer inf.Close()

			a := &asm.Assembler{Verbose: asmVerbose}
			prog, err := a.Parse(inf)
			if err != nil {
				return fmt.Errorf("%v: %w", args[0], err)
			}

			if output == "" {
				output = strings.TrimSuffix(args[0], ".asm") + ".bin"
			}
			if err := os.WriteFile(output, prog.Code, 0o644); err != nil {
				return err
			}
			fmt.Printf("%d bytes at %04Xh written to %s\n", len(prog.Code), prog.Origin, output)
			return nil
		},
	}
	asmCmd.Flags().StringVarP(&output, "output", "o", "", "Output image path (default: source with .bin)")
	asmCmd.Flags().BoolVarP(&asmVerbose, "verbose", "v", false, "Log each source line")

	// verify command
	var numWorkers int
	var programs int
	var seed uint64
	var verifyVerbose bool

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Check every opcode against the core's execution contracts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wp := verify.NewWorkerPool(numWorkers)
			fmt.Printf("Checking 256 opcodes x %d vectors x %d policies on %d workers\n",
				len(verify.TestVectors), len(verify.Policies), wp.NumWorkers)

			failures := wp.Run(verify.AllOpcodes(), verifyVerbose)
			checked, failed := wp.Stats()
			fmt.Printf("Checked %d opcodes (%d implemented), %d failed\n",
				checked, 256-len(cpu.Unimplemented()), failed)

			if programs > 0 {
				const walk, maxLen = 16, 24
				var tasks []verify.SequenceTask
				for i := 0; i < programs; i += walk {
					tasks = append(tasks, verify.SequenceTask{Seed: seed + uint64(i), Count: min(walk, programs-i), MaxLen: maxLen})
				}
				sp := verify.NewWorkerPool(numWorkers)
				failures = append(failures, sp.RunSequences(tasks, verifyVerbose)...)
				checked, failed := sp.Stats()
				fmt.Printf("Checked %d random programs, %d failed\n", checked, failed)
			}

			if len(failures) > 0 {
				if !verifyVerbose {
					for _, fl := range failures {
						log.Printf("%v", fl)
					}
				}
				return fmt.Errorf("%d contract violations", len(failures))
			}
			return nil
		},
	}
	verifyCmd.Flags().IntVar(&numWorkers, "workers", 0, "Number of workers (0 = NumCPU)")
	verifyCmd.Flags().IntVar(&programs, "programs", 0, "Also check this many random programs against checkpoint resume")
	verifyCmd.Flags().Uint64Var(&seed, "seed", 1, "Seed for random programs")
	verifyCmd.Flags().BoolVarP(&verifyVerbose, "verbose", "v", false, "Print failures as they are found")

	rootCmd.AddCommand(runCmd, disasmCmd, asmCmd, verifyCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// addMachineFlags binds the load and run limits shared by commands that
// execute code.
func addMachineFlags(fs *pflag.FlagSet, cfg *machine.Config) {
	fs.Uint16Var(&cfg.LoadAddr, "load", 0, "Load address of the image")
	fs.Uint16Var(&cfg.Entry, "entry", 0, "Initial program counter")
	fs.Uint64Var(&cfg.MaxSteps, "max-steps", 1_000_000, "Stop after this many instructions (0 = no limit)")
}

func printState(s *cpu.State) {
	fmt.Printf("  A=%02X B=%02X C=%02X D=%02X E=%02X H=%02X L=%02X\n", s.A, s.B, s.C, s.D, s.E, s.H, s.L)
	fmt.Printf("  SP=%04X PC=%04X flags=%s\n", s.SP, s.PC, s.Flags)
}

func writeTrace(path string, t *trace.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return t.WriteJSON(f)
}

func hexBytes(bs []byte) string {
	var sb strings.Builder
	for i, b := range bs {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}
