package interp

import (
	"fmt"
	"io"
	"strconv"
)

// DumpTrace writes one line per TraceRecord to w: step, pc, fp, opcode, and
// every VROM/RAM read and write it performed, in a compact prefix-tagged
// format. It generalizes the teacher's DumpVM (lang/retro/dump.go), which
// dumped a single stack snapshot at exit, into a full per-step trace sink —
// the "trace sink (callback or file)" surface named by spec.md §6.
func DumpTrace(trace []TraceRecord, w io.Writer) error {
	for _, rec := range trace {
		line := make([]byte, 0, 64)
		line = append(line, '\x1E')
		line = strconv.AppendUint(line, rec.Step, 10)
		line = append(line, " pc="...)
		line = strconv.AppendUint(line, uint64(rec.PC), 16)
		line = append(line, " fp="...)
		line = strconv.AppendUint(line, uint64(rec.FP), 10)
		line = append(line, " op="...)
		line = append(line, rec.Op.String()...)
		if _, err := w.Write(line); err != nil {
			return err
		}
		if err := dumpAccesses(w, '\x1C', rec.Reads); err != nil {
			return err
		}
		if err := dumpAccesses(w, '\x1D', rec.Writes); err != nil {
			return err
		}
		if rec.Halt != nil {
			if _, err := fmt.Fprintf(w, " halt=%v", rec.Halt.Outcome); err != nil {
				return err
			}
		}
		if _, err := w.Write([]byte{'\n'}); err != nil {
			return err
		}
	}
	return nil
}

func dumpAccesses(w io.Writer, prefix byte, accs []Access) error {
	if len(accs) == 0 {
		return nil
	}
	b := make([]byte, 0, 16)
	b = append(b, ' ', prefix)
	for i, a := range accs {
		if i > 0 {
			b = append(b, ',')
		}
		b = strconv.AppendUint(b, uint64(a.Addr), 10)
		b = append(b, ':')
		b = strconv.AppendUint(b, uint64(a.Value), 10)
	}
	_, err := w.Write(b)
	return err
}
