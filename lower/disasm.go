package lower

import (
	"fmt"
	"strconv"
	"strings"
)

// Disassemble renders one instruction back to assembly-like text: mnemonic,
// prover-hint flag, and operands. The instruction's own PC is not part of
// the output; a resolved label or `#kG` operand is printed as its PC in hex,
// so a jump to instruction i reads back as G^i. It exists for trace output
// and the label round-trip test, not as a full re-assembler.
func Disassemble(instr Instruction) string {
	var b strings.Builder
	b.WriteString(instr.Op.String())
	if instr.Hint {
		b.WriteString("!")
	}
	want := operandSpec(opShape[instr.Op])
	for i := range want {
		if i == 0 {
			b.WriteString(" ")
		} else {
			b.WriteString(", ")
		}
		b.WriteString(formatOperand(instr.Operands[i]))
	}
	return b.String()
}

func formatOperand(o Operand) string {
	switch o.Kind {
	case KindSlot:
		return "@" + strconv.FormatUint(uint64(o.Slot), 10)
	case KindSlotOffset:
		return "@" + strconv.FormatUint(uint64(o.Slot), 10) + "[" + strconv.FormatUint(uint64(o.Offset), 10) + "]"
	case KindImm:
		return "#" + strconv.FormatInt(int64(o.Imm), 10)
	case KindPC:
		return fmt.Sprintf("#%08x", uint32(o.PC))
	default:
		return "?"
	}
}
