package interp

import (
	"github.com/petravm/petravm/field"
	"github.com/petravm/petravm/lower"
)

// binOp computes dst <- f(src1, src2) for the register and immediate forms
// of XOR/B32_ADD/ADD/AND/OR/SUB/shift/field-mul opcodes alike: operand[1] is
// always a slot, operand[2] is a slot for the register form or an already
// width-truncated immediate for the "I" form, and operandVal resolves both
// uniformly.
func (m *Machine) binOp(rec *TraceRecord, instr lower.Instruction, f func(a, b uint32) uint32) error {
	a, err := m.operandVal(rec, instr.Operands[1])
	if err != nil {
		return err
	}
	b, err := m.operandVal(rec, instr.Operands[2])
	if err != nil {
		return err
	}
	return m.writeSlot(rec, instr.Operands[0].Slot, f(a, b))
}

// cmpOp computes dst <- 1 or 0 from a comparison predicate, same operand
// shape as binOp.
func (m *Machine) cmpOp(rec *TraceRecord, instr lower.Instruction, pred func(a, b uint32) bool) error {
	return m.binOp(rec, instr, func(a, b uint32) uint32 {
		if pred(a, b) {
			return 1
		}
		return 0
	})
}

// widenMul computes the 64-bit product f(a,b) and stores it across two
// consecutive slots, low word first; the destination must be even-aligned.
func (m *Machine) widenMul(rec *TraceRecord, instr lower.Instruction, f func(a, b uint32) uint64) error {
	dst := instr.Operands[0]
	if dst.Slot%2 != 0 {
		return &ErrMisaligned{Slot: m.fp + dst.Slot}
	}
	a, err := m.operandVal(rec, instr.Operands[1])
	if err != nil {
		return err
	}
	b, err := m.operandVal(rec, instr.Operands[2])
	if err != nil {
		return err
	}
	result := f(a, b)
	if err := m.writeSlot(rec, dst.Slot, uint32(result)); err != nil {
		return err
	}
	return m.writeSlot(rec, dst.Slot+1, uint32(result>>32))
}

func shiftAmount(b uint32) uint32 { return b & 0x1F }

func sll(a, b uint32) uint32 { return a << shiftAmount(b) }
func srl(a, b uint32) uint32 { return a >> shiftAmount(b) }
func sra(a, b uint32) uint32 { return uint32(int32(a) >> shiftAmount(b)) }

func sltSigned(a, b uint32) bool   { return int32(a) < int32(b) }
func sleSigned(a, b uint32) bool   { return int32(a) <= int32(b) }
func sltUnsigned(a, b uint32) bool { return a < b }
func sleUnsigned(a, b uint32) bool { return a <= b }

// mulSigned returns the 64-bit two's-complement representation of the
// signed*signed product of a and b's 32-bit values. Sign-extending each
// operand to 64 bits before multiplying and letting the uint64
// multiplication wrap modulo 2^64 gives exactly this representation: the
// residues are congruent mod 2^64 to the true operands, and multiplication
// respects that congruence.
func mulSigned(a, b uint32) uint64 {
	return uint64(int64(int32(a))) * uint64(int64(int32(b)))
}

func mulUnsigned(a, b uint32) uint64 {
	return uint64(a) * uint64(b)
}

func mulSignedUnsigned(a, b uint32) uint64 {
	return uint64(int64(int32(a))) * uint64(b)
}

// b32Op adapts a field.B32 binary operation (Add/Mul) to the uint32 binOp
// signature.
func b32Op(f func(a, b field.B32) field.B32) func(a, b uint32) uint32 {
	return func(a, b uint32) uint32 {
		return uint32(f(field.B32(a), field.B32(b)))
	}
}
