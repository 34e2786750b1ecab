// Package witness provides a file-backed allocator oracle for PetraVM runs:
// a flat tape of little-endian uint32 values consumed, in call order, by
// vrom.Oracle's Alloc and Value methods. It generalizes the teacher's
// image Load/Save pair (vm/mem.go) from a whole-memory snapshot to a
// narrower, append-only stream of just the prover's non-deterministic
// choices, and its ErrWriter (internal/ngi/writer.go) from "remember the
// first write error" to "remember the first tape error", read or write.
package witness

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/petravm/petravm/vrom"
)

// Reader pulls uint32 values off a tape in order, tracking the first error
// encountered so every subsequent call is a cheap no-op returning the same
// error, in the same style as the teacher's ErrWriter.
type Reader struct {
	r   io.Reader
	Err error
}

// NewReader wraps r as a tape Reader.
func NewReader(r io.Reader) *Reader { return &Reader{r: r} }

// ReadUint32 returns the next value on the tape.
func (r *Reader) ReadUint32() (uint32, error) {
	if r.Err != nil {
		return 0, r.Err
	}
	var b [4]byte
	if _, err := io.ReadFull(r.r, b[:]); err != nil {
		r.Err = errors.Wrap(err, "witness: tape read failed")
		return 0, r.Err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// Writer appends uint32 values to a tape, tracking the first error
// encountered.
type Writer struct {
	w   io.Writer
	Err error
}

// NewWriter wraps w as a tape Writer.
func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

// WriteUint32 appends v to the tape.
func (w *Writer) WriteUint32(v uint32) error {
	if w.Err != nil {
		return w.Err
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	if _, err := w.w.Write(b[:]); err != nil {
		w.Err = errors.Wrap(err, "witness: tape write failed")
	}
	return w.Err
}

// Tape is a vrom.Oracle backed by a pre-recorded sequence of uint32 values:
// a replay of a prior run's non-deterministic choices, supplied in the
// exact order Alloc and Value were called during recording. Tape implements
// vrom.Oracle, whose methods have no error return, so exhausting the tape
// or hitting an underlying I/O error panics; interp.Machine's step loop
// recovers any such panic into a halt, exactly as it does for every other
// fatal condition.
type Tape struct {
	r *Reader
}

var _ vrom.Oracle = (*Tape)(nil)

// NewTape returns a Tape reading from r.
func NewTape(r io.Reader) *Tape { return &Tape{r: NewReader(r)} }

// Alloc implements vrom.Oracle by returning the tape's next value as the
// allocation base.
func (t *Tape) Alloc(uint32) uint32 { return t.next() }

// Value implements vrom.Oracle by returning the tape's next value as the
// unwritten-read value.
func (t *Tape) Value(uint32) uint32 { return t.next() }

func (t *Tape) next() uint32 {
	v, err := t.r.ReadUint32()
	if err != nil {
		panic(errors.Wrap(err, "witness: tape exhausted"))
	}
	return v
}

// Recorder wraps an Oracle, appending every value it returns to a tape as it
// is produced. Driving a Machine with a Recorder over, e.g., vrom.ZeroOracle
// captures the exact replay tape a later Tape-backed run would need to
// reproduce this run's non-deterministic choices.
type Recorder struct {
	inner vrom.Oracle
	w     *Writer
}

var _ vrom.Oracle = (*Recorder)(nil)

// NewRecorder returns a Recorder delegating to inner and appending every
// returned value to w.
func NewRecorder(inner vrom.Oracle, w io.Writer) *Recorder {
	return &Recorder{inner: inner, w: NewWriter(w)}
}

// Alloc implements vrom.Oracle.
func (rec *Recorder) Alloc(n uint32) uint32 {
	v := rec.inner.Alloc(n)
	if err := rec.w.WriteUint32(v); err != nil {
		panic(errors.Wrap(err, "witness: recording failed"))
	}
	return v
}

// Value implements vrom.Oracle.
func (rec *Recorder) Value(slot uint32) uint32 {
	v := rec.inner.Value(slot)
	if err := rec.w.WriteUint32(v); err != nil {
		panic(errors.Wrap(err, "witness: recording failed"))
	}
	return v
}

// OpenTape opens path and returns a buffered, file-backed Tape ready to use
// as an interp.Allocator oracle. The caller must Close the returned closer
// once the run (and any trace reads) are done.
func OpenTape(path string) (*Tape, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "witness: open failed")
	}
	return NewTape(bufio.NewReader(f)), f, nil
}

// CreateRecorder creates (truncating) path and returns a buffered Recorder
// wrapping inner. The caller must Flush and Close the returned writer/closer
// once the run is done, in that order.
func CreateRecorder(path string, inner vrom.Oracle) (*Recorder, *bufio.Writer, io.Closer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "witness: create failed")
	}
	bw := bufio.NewWriter(f)
	return NewRecorder(inner, bw), bw, f, nil
}
