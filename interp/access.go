package interp

import "github.com/petravm/petravm/lower"

// readSlot reads VROM[fp+slot] and records the access in rec.
func (m *Machine) readSlot(rec *TraceRecord, slot uint32) (uint32, error) {
	return m.readAbs(rec, m.fp+slot)
}

// writeSlot writes VROM[fp+slot] and records the access in rec.
func (m *Machine) writeSlot(rec *TraceRecord, slot uint32, v uint32) error {
	return m.writeAbs(rec, m.fp+slot, v)
}

// readAbs reads an absolute VROM slot index and records the access.
func (m *Machine) readAbs(rec *TraceRecord, addr uint32) (uint32, error) {
	v, err := m.vrom.Read(addr)
	if err != nil {
		return 0, err
	}
	rec.Reads = append(rec.Reads, Access{Addr: addr, Value: v})
	return v, nil
}

// writeAbs writes an absolute VROM slot index and records the access.
func (m *Machine) writeAbs(rec *TraceRecord, addr uint32, v uint32) error {
	if err := m.vrom.Write(addr, v); err != nil {
		return err
	}
	rec.Writes = append(rec.Writes, Access{Addr: addr, Value: v})
	return nil
}

// operandVal resolves a binary-op operand (register or immediate) to its
// raw 32-bit value, reading through the frame when it is a slot reference.
func (m *Machine) operandVal(rec *TraceRecord, op lower.Operand) (uint32, error) {
	switch op.Kind {
	case lower.KindSlot:
		return m.readSlot(rec, op.Slot)
	case lower.KindImm:
		return uint32(op.Imm), nil
	case lower.KindPC:
		return uint32(op.PC), nil
	default:
		return 0, errOperandKind(op.Kind)
	}
}
