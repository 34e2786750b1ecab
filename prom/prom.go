// Package prom implements PetraVM's program ROM: an immutable mapping from
// a field-element program counter to the instruction at that address. It is
// a thin, read-only view over the lowerer's output, adding the one thing
// the interpreter needs that the lowerer's typed table doesn't expose
// directly: a PromMiss error for a PC that resolves to no instruction at
// all (as opposed to panicking or returning a zero value), following the
// teacher's style of surfacing memory faults as wrapped errors rather than
// letting a bad index panic (vm/core.go's Run loop only recovers panics as
// a last resort, it does not rely on them for ordinary control flow).
package prom

import (
	"github.com/pkg/errors"

	"github.com/petravm/petravm/field"
	"github.com/petravm/petravm/lower"
)

// ErrMiss is returned by Fetch when pc does not correspond to any emitted
// instruction.
type ErrMiss struct {
	PC field.B32
}

func (e *ErrMiss) Error() string {
	return errors.Errorf("prom: no instruction at pc=%#08x", uint32(e.PC)).Error()
}

// ROM is an immutable, shared-by-reference program image.
type ROM struct {
	prog *lower.Program
}

// New wraps a lowered program as a ROM.
func New(prog *lower.Program) *ROM {
	return &ROM{prog: prog}
}

// Fetch returns the instruction at pc, or ErrMiss if pc is not the address
// of any instruction in this program. Lookup goes through the lowerer's
// sparse pc_to_index side table (spec.md §9: a full discrete-log table over
// all of GF(2^32)* is infeasible, so only PCs that are actually live in the
// program are indexed).
func (r *ROM) Fetch(pc field.B32) (lower.Instruction, error) {
	idx, ok := r.prog.IndexOf(pc)
	if !ok {
		return lower.Instruction{}, &ErrMiss{PC: pc}
	}
	return r.prog.Instructions[idx], nil
}

// EntryPC returns the program counter of the entry function's first
// instruction (always field.One, since the entry is required to be
// instruction 0).
func (r *ROM) EntryPC() field.B32 {
	return r.prog.EntryPC
}

// Len returns the number of instructions in the program.
func (r *ROM) Len() int {
	return len(r.prog.Instructions)
}
