// Package lower assigns a field-element program counter to every
// instruction of a parsed PetraVM program, resolves labels (forward
// references included), checks operand shapes against the opcode table,
// and truncates immediates to their declared per-opcode width.
package lower

import (
	"github.com/petravm/petravm/asm"
	"github.com/petravm/petravm/field"
)

// entryLabel is the conventional name of the program's entry function. The
// first instruction (PC = G^0 = 1) must belong to it.
const entryLabel = "_start"

// Lower runs frame-size resolution, PC assignment, label resolution,
// operand shape checking and immediate truncation over a parsed program,
// producing a typed instruction table ready for PROM.
func Lower(p *asm.Program) (*Program, error) {
	var errs ErrLower

	labelPC, frameSize, lerrs := assignPCsAndLabels(p)
	errs = append(errs, lerrs...)

	// Call/tail targets must carry their own #[framesize(...)]; a frame size
	// inherited from an enclosing function does not count, so the operand
	// check sees only the annotated labels.
	annotated := make(map[string]uint32)
	for _, line := range p.Lines {
		if line.FrameSize != nil && line.Label != "" {
			annotated[line.Label] = frameSize[line.Label]
		}
	}

	prog := &Program{
		FrameSize: frameSize,
		pcIndex:   make(map[field.B32]int),
	}

	idx := 0
	for _, line := range p.Lines {
		if line.Instruction == nil {
			continue
		}
		pc := field.Pow(field.G, uint32(idx))
		instr, ierrs := resolveInstruction(line, pc, labelPC, annotated)
		errs = append(errs, ierrs...)
		if len(ierrs) == 0 {
			prog.Instructions = append(prog.Instructions, instr)
			prog.pcIndex[pc] = idx
		}
		idx++
	}

	entryPC, ok := labelPC[entryLabel]
	if !ok {
		errs = append(errs, LowerError{0, "missing program entry label '" + entryLabel + "'"})
	} else if entryPC != field.One {
		errs = append(errs, LowerError{0, "program entry '" + entryLabel + "' is not the first instruction"})
	} else {
		prog.EntryPC = entryPC
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return prog, nil
}

// assignPCsAndLabels makes the first pass over the program: it assigns PCs
// to instructions in source order, resolves every label (including
// fall-through labels that precede no instruction of their own) to a PC,
// and resolves the frame-size table, with labels lacking their own
// annotation inheriting the enclosing function's frame size.
func assignPCsAndLabels(p *asm.Program) (map[string]field.B32, map[string]uint32, ErrLower) {
	var errs ErrLower
	labelPC := make(map[string]field.B32)
	frameSize := make(map[string]uint32)

	var pending []string
	idx := 0
	var curFrame uint32
	haveFrame := false

	for _, line := range p.Lines {
		if line.FrameSize != nil {
			if line.Label == "" {
				errs = append(errs, LowerError{line.Pos.Line, "#[framesize(...)] must be followed by a label"})
			} else {
				curFrame = uint32(*line.FrameSize)
				haveFrame = true
			}
		}
		if line.Label != "" {
			if _, dup := labelPC[line.Label]; dup {
				errs = append(errs, LowerError{line.Pos.Line, "duplicate label '" + line.Label + "'"})
			}
			if haveFrame {
				frameSize[line.Label] = curFrame
			} else if _, ok := frameSize[line.Label]; !ok {
				// inherits the enclosing function's frame, if any.
				frameSize[line.Label] = curFrame
			}
			pending = append(pending, line.Label)
		}
		if line.Instruction == nil {
			continue
		}
		pc := field.Pow(field.G, uint32(idx))
		for _, l := range pending {
			labelPC[l] = pc
		}
		pending = pending[:0]
		idx++
	}
	for _, l := range pending {
		errs = append(errs, LowerError{0, "label '" + l + "' has no following instruction"})
	}
	return labelPC, frameSize, errs
}

// resolveInstruction type-checks and resolves one instruction line into its
// typed form, given the completed label and frame-size tables.
func resolveInstruction(line asm.Line, pc field.B32, labelPC map[string]field.B32, frameSize map[string]uint32) (Instruction, ErrLower) {
	var errs ErrLower
	raw := line.Instruction
	op, ok := opcodeIndex[raw.Mnemonic]
	if !ok {
		errs = append(errs, LowerError{raw.Pos.Line, "unknown opcode '" + raw.Mnemonic + "'"})
		return Instruction{}, errs
	}
	if requiresHint(op) && !raw.Hint {
		errs = append(errs, LowerError{raw.Pos.Line, op.String() + " requires the prover-hint flag '!'"})
	}

	instr := Instruction{Op: op, Hint: raw.Hint, PC: pc, Line: raw.Pos.Line}
	shp := opShape[op]

	want := operandSpec(shp)
	if len(raw.Operands) != len(want) {
		errs = append(errs, LowerError{raw.Pos.Line, op.String() + ": expected " + itoa(len(want)) + " operands, got " + itoa(len(raw.Operands))})
		return instr, errs
	}

	for i, kind := range want {
		o, oerrs := resolveOperand(op, kind, raw.Operands[i], labelPC, frameSize)
		errs = append(errs, oerrs...)
		instr.Operands[i] = o
	}
	return instr, errs
}

// operandKindWant enumerates what raw operand kind is expected at a given
// position for a given shape.
type operandKindWant int

const (
	wantSlot operandKindWant = iota
	wantSlotOffset
	wantImm
	wantTarget // a label (direct) or a slot (indirect), disambiguated by what's written
	wantLabelOnly
)

// operandSpec returns, in order, what each operand position expects for a
// given opcode shape.
func operandSpec(s shape) []operandKindWant {
	switch s {
	case shapeNullary:
		return nil
	case shapeBinaryReg:
		return []operandKindWant{wantSlot, wantSlot, wantSlot}
	case shapeBinaryImm:
		return []operandKindWant{wantSlot, wantSlot, wantImm}
	case shapeMovImm:
		return []operandKindWant{wantSlotOffset, wantImm}
	case shapeMovReg:
		return []operandKindWant{wantSlotOffset, wantSlot}
	case shapeLoadImm:
		return []operandKindWant{wantSlot, wantImm}
	case shapeLoadStore:
		return []operandKindWant{wantSlot, wantSlotOffset}
	case shapeSimpleJump:
		return []operandKindWant{wantTarget}
	case shapeJumpVarSingle:
		return []operandKindWant{wantSlot}
	case shapeJumpImm:
		return []operandKindWant{wantLabelOnly, wantSlot}
	case shapeJumpVar:
		return []operandKindWant{wantSlot, wantSlot}
	case shapeBranch:
		return []operandKindWant{wantLabelOnly, wantSlot}
	case shapeAllocImm:
		return []operandKindWant{wantSlot, wantImm}
	case shapeAllocVar:
		return []operandKindWant{wantSlot, wantSlot}
	case shapeFP:
		return []operandKindWant{wantSlot, wantImm}
	case shapeTrap:
		return []operandKindWant{wantImm}
	default:
		return nil
	}
}

func resolveOperand(op Opcode, want operandKindWant, raw asm.Operand, labelPC map[string]field.B32, frameSize map[string]uint32) (Operand, ErrLower) {
	var errs ErrLower
	switch want {
	case wantSlot:
		if raw.Kind != asm.OperandSlot {
			errs = append(errs, LowerError{raw.Pos.Line, op.String() + ": expected a slot operand (@N)"})
			return Operand{}, errs
		}
		return Operand{Kind: KindSlot, Slot: raw.Slot}, nil

	case wantSlotOffset:
		switch raw.Kind {
		case asm.OperandSlotOffset:
			return Operand{Kind: KindSlotOffset, Slot: raw.Slot, Offset: raw.Offset}, nil
		case asm.OperandSlot:
			return Operand{Kind: KindSlotOffset, Slot: raw.Slot, Offset: 0}, nil
		default:
			errs = append(errs, LowerError{raw.Pos.Line, op.String() + ": expected a slot or slot-offset operand (@N or @N[M])"})
			return Operand{}, errs
		}

	case wantImm:
		if raw.Kind != asm.OperandImmInt && raw.Kind != asm.OperandImmField {
			errs = append(errs, LowerError{raw.Pos.Line, op.String() + ": expected an immediate operand (#n)"})
			return Operand{}, errs
		}
		if raw.Kind == asm.OperandImmField {
			// The `#kG` field-immediate form (e.g. the B32_MULI by-G^-1
			// idiom): resolve directly to the field element G^k and carry
			// it as a PC-typed operand since both are field.B32 values.
			exp := normalizeExponent(raw.Int)
			return Operand{Kind: KindPC, PC: field.Pow(field.G, exp)}, nil
		}
		bits, signed := immWidth(op)
		v, err := truncateImm(raw.Int, bits, signed)
		if err != nil {
			errs = append(errs, LowerError{raw.Pos.Line, op.String() + ": " + err.Error()})
			return Operand{}, errs
		}
		return Operand{Kind: KindImm, Imm: v}, nil

	case wantLabelOnly:
		if raw.Kind != asm.OperandLabel {
			errs = append(errs, LowerError{raw.Pos.Line, op.String() + ": expected a label operand"})
			return Operand{}, errs
		}
		pc, ok := labelPC[raw.Label]
		if !ok {
			errs = append(errs, LowerError{raw.Pos.Line, "undefined label '" + raw.Label + "'"})
			return Operand{}, errs
		}
		if isCallLike(op) {
			if _, ok := frameSize[raw.Label]; !ok {
				errs = append(errs, LowerError{raw.Pos.Line, "call/tail target '" + raw.Label + "' has no #[framesize(...)] annotation"})
			}
		}
		return Operand{Kind: KindPC, PC: pc}, errs

	case wantTarget:
		switch raw.Kind {
		case asm.OperandLabel:
			pc, ok := labelPC[raw.Label]
			if !ok {
				errs = append(errs, LowerError{raw.Pos.Line, "undefined label '" + raw.Label + "'"})
				return Operand{}, errs
			}
			return Operand{Kind: KindPC, PC: pc}, nil
		case asm.OperandSlot:
			return Operand{Kind: KindSlot, Slot: raw.Slot}, nil
		default:
			errs = append(errs, LowerError{raw.Pos.Line, op.String() + ": expected a label or slot target"})
			return Operand{}, errs
		}
	}
	return Operand{}, errs
}

func isCallLike(op Opcode) bool {
	return op == OpCALLI || op == OpTAILI
}

// normalizeExponent reduces a (possibly negative) `#kG` exponent modulo the
// multiplicative group order 2^32-1, so that `#-1G` denotes G^-1 as used by
// the B32_MULI-by-inverse idiom.
func normalizeExponent(k int64) uint32 {
	const order = int64(1<<32) - 1
	k %= order
	if k < 0 {
		k += order
	}
	return uint32(k)
}

// truncateImm checks v fits in the declared bit width and returns it as a
// sign- or zero-extended int32, exactly as the lowerer's own internal
// representation of "dst ← (cond ? ...)"-style small immediates.
func truncateImm(v int64, bits int, signed bool) (int32, error) {
	if bits >= 64 {
		return int32(v), nil
	}
	if signed {
		lo := -(int64(1) << (bits - 1))
		hi := (int64(1) << (bits - 1)) - 1
		if v < lo || v > hi {
			return 0, errOverflow(v, bits, true)
		}
		return int32(v), nil
	}
	lo := int64(0)
	hi := (int64(1) << bits) - 1
	if v < lo || v > hi {
		return 0, errOverflow(v, bits, false)
	}
	return int32(v), nil
}
