// Command petravm runs a PetraVM assembly program to completion and reports
// its halt state, the final VROM snapshot, and instruction count — the
// collaborator surface of spec.md §6, grounded on cmd/retro/main.go's
// flag-based option wiring and deferred-exit pattern.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/petravm/petravm/asm"
	"github.com/petravm/petravm/interp"
	"github.com/petravm/petravm/internal/witness"
	"github.com/petravm/petravm/lower"
)

// uint32List is a repeatable flag.Value collecting the initial VROM
// argument slots, in the same spirit as the teacher's fileList.
type uint32List []uint32

func (l *uint32List) String() string {
	if l == nil {
		return ""
	}
	parts := make([]string, len(*l))
	for i, v := range *l {
		parts[i] = strconv.FormatUint(uint64(v), 10)
	}
	return strings.Join(parts, ",")
}

func (l *uint32List) Set(s string) error {
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.ParseUint(field, 0, 32)
		if err != nil {
			return errors.Wrapf(err, "malformed argument %q", field)
		}
		*l = append(*l, uint32(n))
	}
	return nil
}

func (l *uint32List) Get() interface{} { return []uint32(*l) }

// slotList is the same shape as uint32List, used for the -print flag's
// requested VROM slot indices.
type slotList []uint32

func (l *slotList) String() string     { return (*uint32List)(l).String() }
func (l *slotList) Set(s string) error { return (*uint32List)(l).Set(s) }

func atExit(code int, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "petravm: %v\n", err)
	}
	os.Exit(code)
}

// buildMachine assembles src and constructs a ready-to-run Machine. The
// returned closer (nil unless a witness file was opened) must stay open
// for the lifetime of the run: the Tape it backs is read lazily, on demand,
// as the machine executes ALLOCI!/ALLOCV! and unwritten-read opcodes, not
// up front at construction time.
func buildMachine(src string, args []uint32, vromBound, ramSize uint32, stepBudget uint64, oracleKind, witnessPath string) (*interp.Machine, io.Closer, error) {
	p, err := asm.Parse("program", src)
	if err != nil {
		return nil, nil, errors.Wrap(err, "parse failed")
	}
	prog, err := lower.Lower(p)
	if err != nil {
		return nil, nil, errors.Wrap(err, "lowering failed")
	}

	opts := []interp.Option{interp.Args(args)}
	if vromBound > 0 {
		opts = append(opts, interp.VromBound(vromBound))
	}
	if ramSize > 0 {
		opts = append(opts, interp.RAMSize(ramSize))
	}
	if stepBudget > 0 {
		opts = append(opts, interp.StepBudget(stepBudget))
	}

	var closer io.Closer
	switch oracleKind {
	case "zero", "":
		// default oracle installed by interp.New itself
	case "witness-file":
		if witnessPath == "" {
			return nil, nil, errors.New("-oracle=witness-file requires -witness <path>")
		}
		tape, c, err := witness.OpenTape(witnessPath)
		if err != nil {
			return nil, nil, errors.Wrap(err, "opening witness file")
		}
		closer = c
		opts = append(opts, interp.Allocator(tape))
	default:
		return nil, nil, errors.Errorf("unknown -oracle value %q (want zero or witness-file)", oracleKind)
	}

	m, err := interp.New(prog, opts...)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, nil, errors.Wrap(err, "constructing machine")
	}
	return m, closer, nil
}

func main() {
	var (
		args        uint32List
		printSlots  slotList
		vromBound   uint
		ramSize     uint
		stepBudget  uint64
		oracleKind  string
		witnessPath string
	)

	srcPath := flag.String("src", "", "path to a PetraVM assembly source file (required)")
	flag.Var(&args, "arg", "an initial VROM argument value for the entry frame (repeatable, or comma-separated)")
	flag.Var(&printSlots, "print", "a VROM slot index to print after halt (repeatable, or comma-separated)")
	flag.UintVar(&vromBound, "vrom-bound", 0, "reject VROM accesses at or beyond this slot index (0 = unbounded)")
	flag.UintVar(&ramSize, "ram-size", 0, "bytes of RAM to provision (0 = RAM opcodes are a fatal error)")
	flag.Uint64Var(&stepBudget, "steps", 0, "maximum instructions to execute before halting with StepBudget (0 = unbounded)")
	flag.StringVar(&oracleKind, "oracle", "zero", "allocator-oracle selector: zero or witness-file")
	flag.StringVar(&witnessPath, "witness", "", "witness tape path, required when -oracle=witness-file")
	flag.Parse()

	if *srcPath == "" {
		atExit(2, errors.New("-src is required"))
	}

	data, err := os.ReadFile(*srcPath)
	if err != nil {
		atExit(2, errors.Wrap(err, "reading source"))
	}

	m, closer, err := buildMachine(string(data), args, uint32(vromBound), uint32(ramSize), stepBudget, oracleKind, witnessPath)
	if err != nil {
		atExit(2, err)
	}

	halt, runErr := m.Run()
	if closer != nil {
		closer.Close()
	}

	fmt.Printf("halt: %v\n", halt.Outcome)
	switch halt.Outcome {
	case interp.Trap:
		fmt.Printf("trap code: %d\n", halt.TrapCode)
	case interp.Error:
		fmt.Printf("error: %v\n", halt.Err)
	}
	fmt.Printf("instructions executed: %d\n", m.Steps())

	for _, s := range printSlots {
		v, err := m.VromSnapshot(s)
		if err != nil {
			fmt.Printf("@%d: <%v>\n", s, err)
			continue
		}
		fmt.Printf("@%d = %d\n", s, v)
	}

	switch halt.Outcome {
	case interp.Success:
		atExit(0, nil)
	case interp.Trap:
		atExit(1, nil)
	case interp.Error:
		if _, ok := halt.Err.(*interp.ErrStepBudget); ok {
			atExit(3, nil)
		}
		atExit(2, runErr)
	default:
		atExit(2, errors.New("machine did not reach a terminal state"))
	}
}
