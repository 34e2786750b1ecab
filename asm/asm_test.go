package asm_test

import (
	"testing"

	"github.com/petravm/petravm/asm"
)

func TestParseBasicInstruction(t *testing.T) {
	p, err := asm.Parse("t.s", "ADDI @3, @2, #5\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(p.Lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(p.Lines))
	}
	instr := p.Lines[0].Instruction
	if instr == nil {
		t.Fatal("expected an instruction")
	}
	if instr.Mnemonic != "ADDI" {
		t.Fatalf("mnemonic = %q, want ADDI", instr.Mnemonic)
	}
	if len(instr.Operands) != 3 {
		t.Fatalf("got %d operands, want 3", len(instr.Operands))
	}
	if instr.Operands[0].Kind != asm.OperandSlot || instr.Operands[0].Slot != 3 {
		t.Fatalf("operand 0 = %+v, want slot 3", instr.Operands[0])
	}
	if instr.Operands[2].Kind != asm.OperandImmInt || instr.Operands[2].Int != 5 {
		t.Fatalf("operand 2 = %+v, want imm 5", instr.Operands[2])
	}
}

func TestParseLabelAndFrameAnnotation(t *testing.T) {
	src := "#[framesize(0x04)] _start:\n    RET\n"
	p, err := asm.Parse("t.s", src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(p.Lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(p.Lines))
	}
	first := p.Lines[0]
	if first.FrameSize == nil || *first.FrameSize != 0x04 {
		t.Fatalf("frame size = %v, want 0x04", first.FrameSize)
	}
	if first.Label != "_start" {
		t.Fatalf("label = %q, want _start", first.Label)
	}
	if first.Instruction != nil {
		t.Fatal("label-only line should carry no instruction")
	}
	if p.Lines[1].Instruction == nil || p.Lines[1].Instruction.Mnemonic != "RET" {
		t.Fatal("expected the RET instruction on the second line")
	}
}

func TestParseSlotOffsetOperand(t *testing.T) {
	p, err := asm.Parse("t.s", "MVV.W @5[2], @3\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	op := p.Lines[0].Instruction.Operands[0]
	if op.Kind != asm.OperandSlotOffset || op.Slot != 5 || op.Offset != 2 {
		t.Fatalf("operand = %+v, want slot-offset 5[2]", op)
	}
}

func TestParseFieldImmediate(t *testing.T) {
	p, err := asm.Parse("t.s", "B32_MULI @3, @2, #-1G\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	op := p.Lines[0].Instruction.Operands[2]
	if op.Kind != asm.OperandImmField || op.Int != -1 {
		t.Fatalf("operand = %+v, want field imm -1G", op)
	}
}

func TestParseHintFlag(t *testing.T) {
	p, err := asm.Parse("t.s", "ALLOCI! @4, #4\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !p.Lines[0].Instruction.Hint {
		t.Fatal("expected the hint flag to be set")
	}
}

func TestParseCommentOnlyAndBlankLinesAreDropped(t *testing.T) {
	src := "\n;; a comment\nRET ;; trailing comment\n   \n"
	p, err := asm.Parse("t.s", src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(p.Lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(p.Lines))
	}
	if p.Lines[0].Instruction.Mnemonic != "RET" {
		t.Fatalf("mnemonic = %q, want RET", p.Lines[0].Instruction.Mnemonic)
	}
}

func TestParseRejectsMalformedSlot(t *testing.T) {
	_, err := asm.Parse("t.s", "ADDI @, @2, #5\n")
	if err == nil {
		t.Fatal("expected a parse error for a missing slot index")
	}
	if _, ok := err.(asm.ErrParse); !ok {
		t.Fatalf("err = %T, want asm.ErrParse", err)
	}
}

func TestParseAccumulatesMultipleErrors(t *testing.T) {
	src := "ADDI @, @2, #5\nSUB @1, @2, @\n"
	_, err := asm.Parse("t.s", src)
	if err == nil {
		t.Fatal("expected errors")
	}
	errs, ok := err.(asm.ErrParse)
	if !ok {
		t.Fatalf("err = %T, want asm.ErrParse", err)
	}
	if len(errs) < 2 {
		t.Fatalf("got %d errors, want at least 2", len(errs))
	}
}
