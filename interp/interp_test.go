package interp_test

import (
	"testing"

	"github.com/petravm/petravm/asm"
	"github.com/petravm/petravm/field"
	"github.com/petravm/petravm/interp"
	"github.com/petravm/petravm/lower"
	"github.com/petravm/petravm/vrom"
)

func build(t *testing.T, src string) *lower.Program {
	t.Helper()
	p, err := asm.Parse("test.s", src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	prog, err := lower.Lower(p)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	return prog
}

func TestAddImmediateHaltsSuccess(t *testing.T) {
	src := `
#[framesize(0x04)] _start:
    ADDI @3, @2, #5
    RET
`
	prog := build(t, src)
	m, err := interp.New(prog, interp.Args([]uint32{10}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	halt, err := m.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if halt.Outcome != interp.Success {
		t.Fatalf("halt = %v, want Success", halt.Outcome)
	}
	got, err := m.VromSnapshot(3)
	if err != nil {
		t.Fatalf("VromSnapshot: %v", err)
	}
	if got != 15 {
		t.Fatalf("@3 = %d, want 15", got)
	}
}

func TestCallReturnBalance(t *testing.T) {
	src := `
#[framesize(0x05)] _start:
    ALLOCI! @4, #4
    CALLI callee, @4
    RET

#[framesize(0x04)] callee:
    ADDI @3, @2, #1
    RET
`
	prog := build(t, src)
	m, err := interp.New(prog, interp.Allocator(vrom.NewZeroOracle(100)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	halt, err := m.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if halt.Outcome != interp.Success {
		t.Fatalf("halt = %v, want Success", halt.Outcome)
	}
	got, err := m.VromSnapshot(103)
	if err != nil {
		t.Fatalf("VromSnapshot: %v", err)
	}
	if got != 1 {
		t.Fatalf("callee @3 (slot 103) = %d, want 1", got)
	}
}

func TestTrapHalts(t *testing.T) {
	src := `
#[framesize(0x03)] _start:
    TRAP #3
`
	prog := build(t, src)
	m, err := interp.New(prog)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	halt, err := m.Run()
	if err != nil {
		t.Fatalf("Run: %v (a Trap halt is not an error return)", err)
	}
	if halt.Outcome != interp.Trap {
		t.Fatalf("halt = %v, want Trap", halt.Outcome)
	}
	if halt.TrapCode != 3 {
		t.Fatalf("trap code = %d, want 3", halt.TrapCode)
	}
}

func TestBranchTakenSkipsFallthrough(t *testing.T) {
	src := `
#[framesize(0x04)] _start:
    XORI @3, @2, #0
    BNZ done, @3
    ADDI @3, @3, #100
done:
    RET
`
	prog := build(t, src)
	m, err := interp.New(prog, interp.Args([]uint32{7}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	halt, err := m.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if halt.Outcome != interp.Success {
		t.Fatalf("halt = %v, want Success", halt.Outcome)
	}
	got, err := m.VromSnapshot(3)
	if err != nil {
		t.Fatalf("VromSnapshot: %v", err)
	}
	if got != 7 {
		t.Fatalf("@3 = %d, want 7 (branch should have skipped the ADDI)", got)
	}
}

func TestBranchNotTakenFallsThrough(t *testing.T) {
	src := `
#[framesize(0x05)] _start:
    XORI @3, @2, #0
    BNZ done, @3
    ADDI @4, @3, #100
done:
    RET
`
	prog := build(t, src)
	m, err := interp.New(prog, interp.Args([]uint32{0}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	halt, err := m.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if halt.Outcome != interp.Success {
		t.Fatalf("halt = %v, want Success", halt.Outcome)
	}
	got, err := m.VromSnapshot(4)
	if err != nil {
		t.Fatalf("VromSnapshot: %v", err)
	}
	if got != 100 {
		t.Fatalf("@4 = %d, want 100 (fallthrough should have run the ADDI)", got)
	}
}

// TestPCMonotoneStep checks property 2: for every instruction that isn't a
// taken branch/jump/call, pc advances by multiplication by G.
func TestPCMonotoneStep(t *testing.T) {
	src := `
#[framesize(0x06)] _start:
    XORI @3, @2, #0
    ADDI @4, @3, #1
    ANDI @5, @4, #0xFF
    RET
`
	prog := build(t, src)
	m, err := interp.New(prog, interp.Args([]uint32{5}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := m.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	trace := m.Trace()
	for i := 0; i+1 < len(trace); i++ {
		want := field.Next(trace[i].PC)
		if trace[i+1].PC != want {
			t.Fatalf("step %d: pc advanced to %#08x, want %#08x (pc*G)", i, uint32(trace[i+1].PC), uint32(want))
		}
	}
}

func TestStepBudgetHalts(t *testing.T) {
	// Every iteration writes the same value to @3, a benign re-write, so
	// only the step budget can stop the loop.
	src := `
#[framesize(0x04)] _start:
loop:
    ADDI @3, @2, #1
    J loop
`
	prog := build(t, src)
	m, err := interp.New(prog, interp.StepBudget(10))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	halt, err := m.Run()
	if err == nil {
		t.Fatal("expected step-budget error")
	}
	if halt.Outcome != interp.Error {
		t.Fatalf("halt = %v, want Error", halt.Outcome)
	}
	if _, ok := halt.Err.(*interp.ErrStepBudget); !ok {
		t.Fatalf("halt.Err = %T, want *interp.ErrStepBudget", halt.Err)
	}
}

func TestVromConflictHaltsWithError(t *testing.T) {
	// ALLOCI! allocates a frame at a base that collides with a slot the
	// root frame has already constrained to a different value, forcing a
	// genuine VromConflict at the allocated base rather than a benign
	// reconciliation.
	src := `
#[framesize(0x05)] _start:
    ADDI @2, @2, #0
    ALLOCI! @4, #1
    CALLI callee, @4
    RET

#[framesize(0x02)] callee:
    RET
`
	prog := build(t, src)
	m, err := interp.New(prog, interp.Allocator(vrom.NewZeroOracle(2)), interp.Args([]uint32{9}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	halt, err := m.Run()
	if err == nil {
		t.Fatal("expected a VromConflict error")
	}
	if halt.Outcome != interp.Error {
		t.Fatalf("halt = %v, want Error", halt.Outcome)
	}
	if _, ok := halt.Err.(*vrom.ErrConflict); !ok {
		t.Fatalf("halt.Err = %T, want *vrom.ErrConflict", halt.Err)
	}
}
