package interp

import (
	"github.com/pkg/errors"

	"github.com/petravm/petravm/field"
	"github.com/petravm/petravm/lower"
)

// Run steps the machine until it halts: a RET from the root frame
// (Success), a TRAP (Trap), or any fatal condition (Error). It returns the
// terminal Halt and, for convenience, its Err field again as the plain
// error return (nil for Success/Trap) so callers that only care whether
// the run failed can check the error in the usual Go way.
func (m *Machine) Run() (Halt, error) {
	for m.halt.Outcome == Running {
		if m.cancel != nil && m.cancel() {
			m.setHalt(Halt{Outcome: Error, Err: &ErrCancelled{}})
			break
		}
		if m.stepBudget != 0 && m.step >= m.stepBudget {
			m.setHalt(Halt{Outcome: Error, Err: &ErrStepBudget{Budget: m.stepBudget}})
			break
		}
		m.step1()
	}
	if m.halt.Outcome == Error {
		return m.halt, m.halt.Err
	}
	return m.halt, nil
}

func (m *Machine) setHalt(h Halt) { m.halt = h }

// step1 fetches, executes and records exactly one instruction. Any fatal
// condition halts the machine rather than returning an error to the
// caller, and nothing is retried. A halt raised while executing a fetched
// instruction (Success, Trap, or an error from exec) is stored on that
// instruction's record, the trace's last; a PROM miss or a recovered panic
// halts without appending a record, and so do the step-budget and cancel
// halts raised by Run.
func (m *Machine) step1() {
	defer func() {
		if e := recover(); e != nil {
			var err error
			if ee, ok := e.(error); ok {
				err = errors.Wrapf(ee, "interp: recovered panic @pc=%#08x fp=%d", uint32(m.pc), m.fp)
			} else {
				err = errors.Errorf("interp: recovered panic @pc=%#08x fp=%d: %v", uint32(m.pc), m.fp, e)
			}
			m.setHalt(Halt{Outcome: Error, Err: err})
		}
	}()

	instr, err := m.rom.Fetch(m.pc)
	if err != nil {
		m.setHalt(Halt{Outcome: Error, Err: err})
		return
	}

	rec := TraceRecord{Step: m.step, PC: m.pc, FP: m.fp, Op: instr.Op}
	nextPC := field.Next(m.pc)

	halted, err := m.exec(instr, &rec, &nextPC)
	if err != nil {
		m.setHalt(Halt{Outcome: Error, Err: err})
		h := m.halt
		rec.Halt = &h
		m.trace = append(m.trace, rec)
		return
	}
	m.step++
	if halted {
		h := m.halt
		rec.Halt = &h
		m.trace = append(m.trace, rec)
		return
	}
	m.trace = append(m.trace, rec)
	m.pc = nextPC
}

// exec performs one instruction's effect: VROM/RAM reads and writes
// through rec, and control-flow opcodes overwrite *nextPC in place of the
// default PC*G advance. It returns halted=true once the machine has
// reached a terminal state (Success or Trap); the caller must not advance
// PC in that case.
func (m *Machine) exec(instr lower.Instruction, rec *TraceRecord, nextPC *field.B32) (bool, error) {
	switch instr.Op {
	case lower.OpXOR, lower.OpXORI, lower.OpB32ADD, lower.OpB32ADDI:
		return false, m.binOp(rec, instr, b32Op(field.Add))
	case lower.OpB32MUL, lower.OpB32MULI:
		return false, m.binOp(rec, instr, b32Op(field.Mul))
	case lower.OpB128ADD:
		return false, m.execB128(rec, instr, field.B128Add)
	case lower.OpB128MUL:
		return false, m.execB128(rec, instr, field.B128Mul)

	case lower.OpADD, lower.OpADDI:
		return false, m.binOp(rec, instr, func(a, b uint32) uint32 { return a + b })
	case lower.OpSUB:
		return false, m.binOp(rec, instr, func(a, b uint32) uint32 { return a - b })
	case lower.OpAND, lower.OpANDI:
		return false, m.binOp(rec, instr, func(a, b uint32) uint32 { return a & b })
	case lower.OpOR, lower.OpORI:
		return false, m.binOp(rec, instr, func(a, b uint32) uint32 { return a | b })
	case lower.OpSLL, lower.OpSLLI:
		return false, m.binOp(rec, instr, sll)
	case lower.OpSRL, lower.OpSRLI:
		return false, m.binOp(rec, instr, srl)
	case lower.OpSRA, lower.OpSRAI:
		return false, m.binOp(rec, instr, sra)

	case lower.OpMUL, lower.OpMULI:
		return false, m.widenMul(rec, instr, mulSigned)
	case lower.OpMULU:
		return false, m.widenMul(rec, instr, mulUnsigned)
	case lower.OpMULSU:
		return false, m.widenMul(rec, instr, mulSignedUnsigned)

	case lower.OpSLT, lower.OpSLTI:
		return false, m.cmpOp(rec, instr, sltSigned)
	case lower.OpSLTU, lower.OpSLTIU:
		return false, m.cmpOp(rec, instr, sltUnsigned)
	case lower.OpSLE, lower.OpSLEI:
		return false, m.cmpOp(rec, instr, sleSigned)
	case lower.OpSLEU, lower.OpSLEIU:
		return false, m.cmpOp(rec, instr, sleUnsigned)

	case lower.OpLDIW, lower.OpMVVW, lower.OpMVVL, lower.OpMVIH,
		lower.OpLW, lower.OpLB, lower.OpLBU, lower.OpLH, lower.OpLHU,
		lower.OpSW, lower.OpSB, lower.OpSH:
		return false, m.execMovesAndLoadStore(instr, rec)

	case lower.OpFP:
		dst := instr.Operands[0]
		v := m.fp + uint32(instr.Operands[1].Imm)
		return false, m.writeSlot(rec, dst.Slot, v)

	case lower.OpJ, lower.OpJUMPI:
		return false, m.jumpTarget(rec, instr.Operands[0], nextPC)
	case lower.OpJUMPV:
		v, err := m.readSlot(rec, instr.Operands[0].Slot)
		if err != nil {
			return false, err
		}
		*nextPC = field.B32(v)
		return false, nil

	case lower.OpBNZ:
		cond, err := m.readSlot(rec, instr.Operands[1].Slot)
		if err != nil {
			return false, err
		}
		if cond != 0 {
			*nextPC = instr.Operands[0].PC
		}
		return false, nil

	case lower.OpCALLI:
		return false, m.call(rec, nextPC, instr.Operands[0].PC, instr.Operands[1], false)
	case lower.OpCALLV:
		v, err := m.readSlot(rec, instr.Operands[0].Slot)
		if err != nil {
			return false, err
		}
		return false, m.call(rec, nextPC, field.B32(v), instr.Operands[1], false)
	case lower.OpTAILI:
		return false, m.call(rec, nextPC, instr.Operands[0].PC, instr.Operands[1], true)
	case lower.OpTAILV:
		v, err := m.readSlot(rec, instr.Operands[0].Slot)
		if err != nil {
			return false, err
		}
		return false, m.call(rec, nextPC, field.B32(v), instr.Operands[1], true)

	case lower.OpRET:
		return m.ret(rec, nextPC)

	case lower.OpALLOCI:
		dst := instr.Operands[0]
		n := uint32(instr.Operands[1].Imm)
		base := m.vrom.Alloc(n)
		return false, m.writeSlot(rec, dst.Slot, base)
	case lower.OpALLOCV:
		dst, src := instr.Operands[0], instr.Operands[1]
		n, err := m.readSlot(rec, src.Slot)
		if err != nil {
			return false, err
		}
		base := m.vrom.Alloc(n)
		return false, m.writeSlot(rec, dst.Slot, base)

	case lower.OpTRAP:
		m.setHalt(Halt{Outcome: Trap, TrapCode: instr.Operands[0].Imm})
		return true, nil

	default:
		return false, errUnhandledOpcode(instr.Op)
	}
}

// jumpTarget resolves a direct-or-indirect jump target operand (a label,
// resolved at lowering time to a KindPC, or a slot whose VROM value is the
// target PC) into *nextPC.
func (m *Machine) jumpTarget(rec *TraceRecord, op lower.Operand, nextPC *field.B32) error {
	switch op.Kind {
	case lower.KindPC:
		*nextPC = op.PC
		return nil
	case lower.KindSlot:
		v, err := m.readSlot(rec, op.Slot)
		if err != nil {
			return err
		}
		*nextPC = field.B32(v)
		return nil
	default:
		return errOperandKind(op.Kind)
	}
}

// call implements CALLI/CALLV (tail=false) and TAILI/TAILV (tail=true):
// both move the frame pointer to next_fp's value and jump to target; a
// plain call writes a fresh return PC/FP into the new frame, a tail call
// propagates the caller's own saved return PC/FP instead.
func (m *Machine) call(rec *TraceRecord, nextPC *field.B32, target field.B32, nextFPOp lower.Operand, tail bool) error {
	fNew, err := m.readSlot(rec, nextFPOp.Slot)
	if err != nil {
		return err
	}
	var savedPC, savedFP uint32
	if tail {
		savedPC, err = m.readAbs(rec, m.fp+0)
		if err != nil {
			return err
		}
		savedFP, err = m.readAbs(rec, m.fp+1)
		if err != nil {
			return err
		}
	} else {
		savedPC = uint32(*nextPC) // pc*G, the default successor, is the return address
		savedFP = m.fp
	}
	if err := m.writeAbs(rec, fNew+0, savedPC); err != nil {
		return err
	}
	if err := m.writeAbs(rec, fNew+1, savedFP); err != nil {
		return err
	}
	m.fp = fNew
	*nextPC = target
	return nil
}

// ret implements RET: pop the saved (PC, FP) pair from the current frame.
// The entry frame's slot 0 is pre-populated with the sentinel PC value
// zero (field.B32 zero is never a valid instruction address, since every
// real PC is a nonzero power of G), so a RET that pops a zero return PC is
// recognized as returning from the root frame and halts the machine with
// Success rather than jumping to an invalid address.
func (m *Machine) ret(rec *TraceRecord, nextPC *field.B32) (bool, error) {
	retPC, err := m.readAbs(rec, m.fp+0)
	if err != nil {
		return false, err
	}
	retFP, err := m.readAbs(rec, m.fp+1)
	if err != nil {
		return false, err
	}
	if retPC == 0 {
		m.setHalt(Halt{Outcome: Success})
		return true, nil
	}
	m.fp = retFP
	*nextPC = field.B32(retPC)
	return false, nil
}

func (m *Machine) execB128(rec *TraceRecord, instr lower.Instruction, f func(a, b field.B128) field.B128) error {
	dst, src1, src2 := instr.Operands[0], instr.Operands[1], instr.Operands[2]
	a, err := m.readAbsB128(rec, m.fp+src1.Slot)
	if err != nil {
		return err
	}
	b, err := m.readAbsB128(rec, m.fp+src2.Slot)
	if err != nil {
		return err
	}
	result := f(
		field.NewB128(field.B32(a[0]), field.B32(a[1]), field.B32(a[2]), field.B32(a[3])),
		field.NewB128(field.B32(b[0]), field.B32(b[1]), field.B32(b[2]), field.B32(b[3])),
	)
	r := result.Limbs()
	limbs := [4]uint32{uint32(r[0]), uint32(r[1]), uint32(r[2]), uint32(r[3])}
	return m.writeAbsB128(rec, m.fp+dst.Slot, limbs)
}
