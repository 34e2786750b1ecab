package interp_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/petravm/petravm/interp"
)

func TestDumpTraceWritesOneLinePerStep(t *testing.T) {
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
	if _, err := m.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var buf bytes.Buffer
	if err := interp.DumpTrace(m.Trace(), &buf); err != nil {
		t.Fatalf("DumpTrace: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != len(m.Trace()) {
		t.Fatalf("got %d lines, want %d (one per trace record)", len(lines), len(m.Trace()))
	}
	if !strings.Contains(lines[0], "op=ADDI") {
		t.Fatalf("line 0 = %q, want it to mention op=ADDI", lines[0])
	}
	last := lines[len(lines)-1]
	if !strings.Contains(last, "halt=Success") {
		t.Fatalf("last line = %q, want it to mention halt=Success", last)
	}
}
