package lower

import "github.com/petravm/petravm/field"

// OperandKind classifies one resolved instruction operand.
type OperandKind int

const (
	// KindNone marks an unused operand slot in the fixed 3-operand layout.
	KindNone OperandKind = iota
	// KindSlot is a frame-relative VROM slot reference (`@N`).
	KindSlot
	// KindSlotOffset is a slot reference plus a compile-time constant byte
	// or element offset (`@N[M]`), used by memory-move and load/store
	// opcodes.
	KindSlotOffset
	// KindImm is a plain integer immediate, already truncated/sign- or
	// zero-extended to the opcode's declared width.
	KindImm
	// KindPC is a resolved field-element program counter: either a `#kG`
	// literal or a label reference.
	KindPC
)

// Operand is one resolved instruction operand.
type Operand struct {
	Kind   OperandKind
	Slot   uint32
	Offset uint32
	Imm    int32
	PC     field.B32
}

// Instruction is a fully lowered, typed instruction: an opcode, up to three
// operands, and its assigned program counter.
type Instruction struct {
	Op       Opcode
	Hint     bool
	Operands [3]Operand
	PC       field.B32
	Line     int // 1-based source line, for trace/error messages
}

// Program is the lowerer's output: an ordered instruction table, indexed
// identically to PROM, plus the frame-size table every CALL*/TAIL* target
// must have an entry in.
type Program struct {
	Instructions []Instruction
	FrameSize    map[string]uint32
	EntryPC      field.B32
	pcIndex      map[field.B32]int
}

// IndexOf returns the instruction index for pc, and whether pc corresponds
// to an instruction actually emitted by this program. This is the sparse
// pc_to_index side table described for PROM: only live PCs are populated,
// never the full 2^32-1 domain.
func (p *Program) IndexOf(pc field.B32) (int, bool) {
	i, ok := p.pcIndex[pc]
	return i, ok
}
