package witness_test

import (
	"bytes"
	"testing"

	"github.com/petravm/petravm/internal/witness"
	"github.com/petravm/petravm/vrom"
)

func TestRecorderThenTapeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	rec := witness.NewRecorder(vrom.NewZeroOracle(10), &buf)

	bases := []uint32{rec.Alloc(4), rec.Alloc(2), rec.Value(0)}

	tape := witness.NewTape(&buf)
	for i, want := range bases {
		var got uint32
		if i < 2 {
			got = tape.Alloc(0)
		} else {
			got = tape.Value(0)
		}
		if got != want {
			t.Fatalf("replay %d = %d, want %d", i, got, want)
		}
	}
}

func TestTapeExhaustionPanics(t *testing.T) {
	tape := witness.NewTape(bytes.NewReader(nil))
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic on tape exhaustion")
		}
	}()
	tape.Alloc(1)
}

func TestWriterTracksFirstError(t *testing.T) {
	w := witness.NewWriter(&errWriter{})
	if err := w.WriteUint32(1); err == nil {
		t.Fatal("expected the underlying write error to surface")
	}
	if err := w.WriteUint32(2); err == nil {
		t.Fatal("expected the sticky error to surface again")
	}
}

type errWriter struct{}

func (*errWriter) Write([]byte) (int, error) { return 0, bytes.ErrTooLarge }
