package interp

import "github.com/petravm/petravm/lower"

// readAbsB128 reads four consecutive absolute VROM slots as a B128 value,
// recording each limb read in rec. base must be a multiple of 4.
func (m *Machine) readAbsB128(rec *TraceRecord, base uint32) ([4]uint32, error) {
	if base%4 != 0 {
		return [4]uint32{}, errMisalignedB128(base)
	}
	var limbs [4]uint32
	for i := uint32(0); i < 4; i++ {
		v, err := m.readAbs(rec, base+i)
		if err != nil {
			return [4]uint32{}, err
		}
		limbs[i] = v
	}
	return limbs, nil
}

// writeAbsB128 writes four limbs to the consecutive absolute VROM slots
// starting at base, recording each write in rec. base must be a multiple
// of 4.
func (m *Machine) writeAbsB128(rec *TraceRecord, base uint32, limbs [4]uint32) error {
	if base%4 != 0 {
		return errMisalignedB128(base)
	}
	for i, v := range limbs {
		if err := m.writeAbs(rec, base+uint32(i), v); err != nil {
			return err
		}
	}
	return nil
}

// ramAddr resolves the base[off] address operand shared by the RAM
// load/store opcodes: VROM[fp+base] + off.
func (m *Machine) ramAddr(rec *TraceRecord, baseOp lower.Operand) (uint32, error) {
	base, err := m.readSlot(rec, baseOp.Slot)
	if err != nil {
		return 0, err
	}
	return base + baseOp.Offset, nil
}

func (m *Machine) execMovesAndLoadStore(instr lower.Instruction, rec *TraceRecord) error {
	switch instr.Op {
	case lower.OpLDIW:
		dst := instr.Operands[0]
		return m.writeSlot(rec, dst.Slot, uint32(instr.Operands[1].Imm))

	case lower.OpMVVW:
		dstOp, srcOp := instr.Operands[0], instr.Operands[1]
		base, err := m.readSlot(rec, dstOp.Slot)
		if err != nil {
			return err
		}
		v, err := m.readSlot(rec, srcOp.Slot)
		if err != nil {
			return err
		}
		return m.writeAbs(rec, base+dstOp.Offset, v)

	case lower.OpMVVL:
		dstOp, srcOp := instr.Operands[0], instr.Operands[1]
		base, err := m.readSlot(rec, dstOp.Slot)
		if err != nil {
			return err
		}
		limbs, err := m.readAbsB128(rec, m.fp+srcOp.Slot)
		if err != nil {
			return err
		}
		return m.writeAbsB128(rec, base+dstOp.Offset, limbs)

	case lower.OpMVIH:
		dstOp := instr.Operands[0]
		base, err := m.readSlot(rec, dstOp.Slot)
		if err != nil {
			return err
		}
		return m.writeAbs(rec, base+dstOp.Offset, uint32(instr.Operands[1].Imm))

	case lower.OpLW, lower.OpLB, lower.OpLBU, lower.OpLH, lower.OpLHU:
		if m.ram == nil {
			return errRAMUnconfigured()
		}
		dst := instr.Operands[0]
		addr, err := m.ramAddr(rec, instr.Operands[1])
		if err != nil {
			return err
		}
		var v uint32
		switch instr.Op {
		case lower.OpLW:
			w, _, err := m.ram.LoadWord(addr)
			if err != nil {
				return err
			}
			v = w
		case lower.OpLB:
			b, _, err := m.ram.LoadByte(addr)
			if err != nil {
				return err
			}
			v = uint32(int32(int8(b)))
		case lower.OpLBU:
			b, _, err := m.ram.LoadByte(addr)
			if err != nil {
				return err
			}
			v = uint32(b)
		case lower.OpLH:
			h, _, err := m.ram.LoadHalf(addr)
			if err != nil {
				return err
			}
			v = uint32(int32(int16(h)))
		case lower.OpLHU:
			h, _, err := m.ram.LoadHalf(addr)
			if err != nil {
				return err
			}
			v = uint32(h)
		}
		rec.Reads = append(rec.Reads, Access{Addr: addr, Value: v})
		return m.writeSlot(rec, dst.Slot, v)

	case lower.OpSW, lower.OpSB, lower.OpSH:
		if m.ram == nil {
			return errRAMUnconfigured()
		}
		srcOp := instr.Operands[0]
		addr, err := m.ramAddr(rec, instr.Operands[1])
		if err != nil {
			return err
		}
		v, err := m.readSlot(rec, srcOp.Slot)
		if err != nil {
			return err
		}
		switch instr.Op {
		case lower.OpSW:
			if _, err := m.ram.StoreWord(addr, v); err != nil {
				return err
			}
		case lower.OpSB:
			if _, err := m.ram.StoreByte(addr, byte(v)); err != nil {
				return err
			}
		case lower.OpSH:
			if _, err := m.ram.StoreHalf(addr, uint16(v)); err != nil {
				return err
			}
		}
		rec.Writes = append(rec.Writes, Access{Addr: addr, Value: v})
		return nil

	default:
		return errUnhandledOpcode(instr.Op)
	}
}
