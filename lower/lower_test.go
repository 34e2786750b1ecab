package lower_test

import (
	"testing"

	"github.com/petravm/petravm/asm"
	"github.com/petravm/petravm/field"
	"github.com/petravm/petravm/lower"
)

func mustLower(t *testing.T, src string) *lower.Program {
	t.Helper()
	p, err := asm.Parse("t.s", src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	prog, err := lower.Lower(p)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	return prog
}

func TestEntryPointIsFieldOne(t *testing.T) {
	prog := mustLower(t, "#[framesize(0x02)] _start:\n    RET\n")
	if prog.EntryPC != field.One {
		t.Fatalf("entry pc = %#x, want 1 (G^0)", uint32(prog.EntryPC))
	}
}

func TestMissingEntryLabelErrors(t *testing.T) {
	p, err := asm.Parse("t.s", "#[framesize(0x02)] main:\n    RET\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := lower.Lower(p); err == nil {
		t.Fatal("expected a missing-entry-label error")
	}
}

func TestPCsAreSuccessivePowersOfG(t *testing.T) {
	src := `
#[framesize(0x04)] _start:
    ADDI @3, @2, #1
    ADDI @3, @3, #1
    RET
`
	prog := mustLower(t, src)
	for i, instr := range prog.Instructions {
		want := field.Pow(field.G, uint32(i))
		if instr.PC != want {
			t.Fatalf("instruction %d pc = %#x, want %#x", i, uint32(instr.PC), uint32(want))
		}
	}
}

// TestLabelRoundTrip checks spec property 8: resolving a forward label
// reference to a PC and disassembling the jump back out names the same
// target the source wrote.
func TestLabelRoundTrip(t *testing.T) {
	src := `
#[framesize(0x04)] _start:
    J target
target:
    RET
`
	prog := mustLower(t, src)
	jump := prog.Instructions[0]
	target := prog.Instructions[1]
	if jump.Op != lower.OpJ {
		t.Fatalf("instruction 0 = %v, want OpJ", jump.Op)
	}
	if jump.Operands[0].Kind != lower.KindPC {
		t.Fatalf("jump operand kind = %v, want KindPC", jump.Operands[0].Kind)
	}
	if jump.Operands[0].PC != target.PC {
		t.Fatalf("jump target pc = %#x, want %#x (target's own pc)", uint32(jump.Operands[0].PC), uint32(target.PC))
	}
	dis := lower.Disassemble(jump)
	want := "J #" + disasmHex(target.PC)
	if dis != want {
		t.Fatalf("Disassemble(jump) = %q, want %q", dis, want)
	}
}

func disasmHex(pc field.B32) string {
	const hexdigits = "0123456789abcdef"
	v := uint32(pc)
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = hexdigits[v&0xF]
		v >>= 4
	}
	return string(b)
}

func TestCallTargetRequiresFrameSizeAnnotation(t *testing.T) {
	src := `
#[framesize(0x04)] _start:
    ALLOCI! @4, #2
    CALLI callee, @4
    RET

callee:
    RET
`
	p, err := asm.Parse("t.s", src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := lower.Lower(p); err == nil {
		t.Fatal("expected an error: callee has no #[framesize(...)] annotation")
	}
}

func TestImmediateOverflowErrors(t *testing.T) {
	src := `
#[framesize(0x04)] _start:
    ADDI @3, @2, #100000
    RET
`
	p, err := asm.Parse("t.s", src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := lower.Lower(p); err == nil {
		t.Fatal("expected an overflow error: #100000 doesn't fit ADDI's 16-bit signed immediate")
	}
}

func TestAllocRequiresHintFlag(t *testing.T) {
	src := `
#[framesize(0x04)] _start:
    ALLOCI @4, #2
    RET
`
	p, err := asm.Parse("t.s", src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := lower.Lower(p); err == nil {
		t.Fatal("expected an error: ALLOCI without '!' is malformed")
	}
}

func TestB32MulIdentityViaFieldImmediate(t *testing.T) {
	src := `
#[framesize(0x04)] _start:
    B32_MULI @3, @2, #0G
    RET
`
	prog := mustLower(t, src)
	op := prog.Instructions[0].Operands[2]
	if op.Kind != lower.KindPC {
		t.Fatalf("operand kind = %v, want KindPC", op.Kind)
	}
	if op.PC != field.One {
		t.Fatalf("#0G = %#x, want field.One (the multiplicative identity)", uint32(op.PC))
	}
}

// TestB32MuliByGInverse exercises the `B32_MULI dst, src, #-1G` idiom named
// in spec.md §4.A: `#-1G` must resolve to G^-1, so that multiplying by it is
// the field inverse of multiplying by G.
func TestB32MuliByGInverse(t *testing.T) {
	src := `
#[framesize(0x04)] _start:
    B32_MULI @3, @2, #-1G
    RET
`
	prog := mustLower(t, src)
	op := prog.Instructions[0].Operands[2]
	if op.Kind != lower.KindPC {
		t.Fatalf("operand kind = %v, want KindPC", op.Kind)
	}
	inv, err := field.Inv(field.G)
	if err != nil {
		t.Fatalf("field.Inv(G): %v", err)
	}
	if op.PC != inv {
		t.Fatalf("#-1G = %#x, want G^-1 = %#x", uint32(op.PC), uint32(inv))
	}
	if got := field.Mul(field.G, op.PC); got != field.One {
		t.Fatalf("G * (#-1G) = %v, want 1", got)
	}
}
