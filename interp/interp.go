// Package interp implements the PetraVM fetch-decode-execute loop: spec.md
// §4.E and §5. A Machine owns its program counter, frame pointer, VROM,
// optional RAM, and execution trace exclusively for the duration of one
// run; the assembled program it steps through (prom.ROM) is shared-immutable.
//
// The dispatch loop and its panic-to-error recovery are grounded on the
// teacher's vm/core.go Run method: a single switch over the opcode tag,
// PC/FP mutated in place, errors wrapped with github.com/pkg/errors rather
// than left as bare Go errors, and a recover() in Run as a last-resort net
// around anything the memory model didn't already catch as a typed error.
package interp

import (
	"github.com/pkg/errors"

	"github.com/petravm/petravm/field"
	"github.com/petravm/petravm/lower"
	"github.com/petravm/petravm/prom"
	"github.com/petravm/petravm/ram"
	"github.com/petravm/petravm/vrom"
)

// Outcome classifies the terminal state of a Machine.
type Outcome int

// The halt outcomes of spec.md §4.E's state machine.
const (
	Running Outcome = iota
	Success
	Trap
	Error
)

func (o Outcome) String() string {
	switch o {
	case Running:
		return "Running"
	case Success:
		return "Success"
	case Trap:
		return "Trap"
	case Error:
		return "Error"
	default:
		return "?"
	}
}

// Halt is the terminal state of a run: Running until a RET from the root
// frame, a TRAP, or a fatal error halts the machine.
type Halt struct {
	Outcome  Outcome
	TrapCode int32
	Err      error
}

// Access records one VROM/RAM slot or address touched by an instruction,
// for the execution trace.
type Access struct {
	Addr  uint32
	Value uint32
}

// TraceRecord is one entry of the append-only execution trace: spec.md §3's
// "{ step, pc, fp, opcode, operand_reads, operand_writes }".
type TraceRecord struct {
	Step   uint64
	PC     field.B32
	FP     uint32
	Op     lower.Opcode
	Reads  []Access
	Writes []Access
	Halt   *Halt // set only on the final record
}

// Option configures a Machine at construction time, in the same
// functional-options shape as the teacher's vm.New(image, imageFile,
// opts...).
type Option func(*Machine)

// VromBound caps VROM slot indices at bound (0, the default, is
// unbounded).
func VromBound(bound uint32) Option {
	return func(m *Machine) { m.vromBound = bound }
}

// RAMSize provisions size bytes of RAM (0, the default, means the program
// may not use any RAM opcode).
func RAMSize(size uint32) Option {
	return func(m *Machine) { m.ramSize = size }
}

// Allocator installs the allocator oracle backing ALLOCI!/ALLOCV! and
// unwritten-read reconciliation. The default is vrom.NewZeroOracle(base)
// where base follows the last pre-populated entry-frame argument slot.
func Allocator(o vrom.Oracle) Option {
	return func(m *Machine) { m.oracle = o }
}

// StepBudget caps the number of fetch-decode-execute cycles a Run will
// perform before halting with Error(ErrStepBudget) (0, the default, means
// unbounded).
func StepBudget(n uint64) Option {
	return func(m *Machine) { m.stepBudget = n }
}

// Args pre-populates the entry frame's function-visible slots (@2, @3, …)
// with the given values, as the embedder-supplied initial VROM arguments
// of spec.md §6.
func Args(vals []uint32) Option {
	return func(m *Machine) { m.args = vals }
}

// Cancel installs a predicate checked before every fetch; when it returns
// true the machine halts with Error(ErrCancelled). This is the optional
// embedder-injected cancellation hook of spec.md §5; the core itself never
// cancels on its own.
func Cancel(pred func() bool) Option {
	return func(m *Machine) { m.cancel = pred }
}

// Machine is a single-threaded PetraVM interpreter instance. One Machine
// runs exactly one program to completion; an embedder wanting to run
// several programs in parallel constructs one Machine per program, each
// with its own state and no shared mutable data.
type Machine struct {
	rom  *prom.ROM
	vrom *vrom.Memory
	ram  *ram.Memory

	pc field.B32
	fp uint32

	vromBound  uint32
	ramSize    uint32
	oracle     vrom.Oracle
	stepBudget uint64
	args       []uint32
	cancel     func() bool

	step  uint64
	trace []TraceRecord
	halt  Halt
}

// New builds a Machine ready to run prog from its entry point, with the
// entry frame based at slot 0: slot 0 holds the sentinel return PC (zero,
// so that a root-frame RET is recognizable), slot 1 the sentinel caller FP
// (zero), and slots 2.. the caller-supplied arguments from the Args option.
func New(prog *lower.Program, opts ...Option) (*Machine, error) {
	m := &Machine{
		rom:  prom.New(prog),
		pc:   prog.EntryPC,
		halt: Halt{Outcome: Running},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.oracle == nil {
		m.oracle = vrom.NewZeroOracle(uint32(2 + len(m.args)))
	}
	m.vrom = vrom.New(m.oracle, m.vromBound)
	if m.ramSize > 0 {
		m.ram = ram.New(m.ramSize)
	}
	if prog.EntryPC != field.One {
		return nil, errors.New("interp: program entry point is not G^0")
	}
	if err := m.vrom.Write(0, 0); err != nil {
		return nil, errors.Wrap(err, "interp: writing entry-frame return sentinel")
	}
	if err := m.vrom.Write(1, 0); err != nil {
		return nil, errors.Wrap(err, "interp: writing entry-frame FP sentinel")
	}
	for i, v := range m.args {
		if err := m.vrom.Write(uint32(2+i), v); err != nil {
			return nil, errors.Wrap(err, "interp: writing entry-frame argument")
		}
	}
	return m, nil
}

// PC returns the current program counter.
func (m *Machine) PC() field.B32 { return m.pc }

// FP returns the current frame pointer (base slot index of the active
// frame).
func (m *Machine) FP() uint32 { return m.fp }

// Steps returns the number of instructions executed so far.
func (m *Machine) Steps() uint64 { return m.step }

// Halted reports the machine's terminal state. Outcome is Running until
// Run returns.
func (m *Machine) Halted() Halt { return m.halt }

// Trace returns the append-only execution trace accumulated so far, in
// strict execution order.
func (m *Machine) Trace() []TraceRecord { return m.trace }

// VromSnapshot returns the current value of slot, for inspecting results
// after a run (e.g. the root return-value slot @2 named by spec.md §8's
// end-to-end scenarios). It reads through the VROM's ordinary Read, so a
// never-touched slot is bound on the spot to the allocator oracle's value,
// exactly as an opcode's read of it would be.
func (m *Machine) VromSnapshot(slot uint32) (uint32, error) {
	return m.vrom.Read(slot)
}
