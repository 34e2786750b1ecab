package interp

import (
	"github.com/pkg/errors"

	"github.com/petravm/petravm/lower"
)

func errOperandKind(k lower.OperandKind) error {
	return errors.Errorf("interp: unexpected operand kind %d", k)
}

func errMisalignedB128(base uint32) error {
	return errors.Errorf("interp: slot %d is not 4-aligned for a 128-bit access", base)
}

func errRAMUnconfigured() error {
	return errors.New("interp: program executed a RAM opcode but no RAM was configured (see RAMSize option)")
}

func errUnhandledOpcode(op lower.Opcode) error {
	return errors.Errorf("interp: unhandled opcode %v", op)
}

// ErrHintMismatch is returned when a prover-hint (`!`) opcode's result
// disagrees with the value the opcode's own semantics would compute.
// Nothing in the closed opcode set currently computes an independent
// expectation for a hinted result other than ALLOCI!/ALLOCV! (whose
// "computed" value simply *is* whatever the allocator oracle returns, so
// there is nothing to disagree with) — see DESIGN.md's note on the open
// question of `!` on non-alloc opcodes. The type is kept because the error
// taxonomy in spec.md §7 names it, and because it is the right home for
// such a check when the opcode set grows one that needs it.
type ErrHintMismatch struct {
	Reason string
}

func (e *ErrHintMismatch) Error() string {
	return errors.Errorf("interp: prover hint mismatch: %s", e.Reason).Error()
}

// ErrStepBudget is returned when an embedder-imposed step budget is
// exceeded.
type ErrStepBudget struct {
	Budget uint64
}

func (e *ErrStepBudget) Error() string {
	return errors.Errorf("interp: step budget of %d instructions exceeded", e.Budget).Error()
}

// ErrCancelled is returned when an embedder-supplied cancellation predicate
// requests a stop before a fetch.
type ErrCancelled struct{}

func (e *ErrCancelled) Error() string { return "interp: run cancelled" }

// ErrMisaligned is returned when an opcode that requires an even-aligned
// destination (the widening MUL family) is given an odd slot.
type ErrMisaligned struct {
	Slot uint32
}

func (e *ErrMisaligned) Error() string {
	return errors.Errorf("interp: destination slot %d must be even-aligned for a widening result", e.Slot).Error()
}
