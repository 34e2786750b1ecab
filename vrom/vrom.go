// Package vrom implements PetraVM's value ROM: a write-once, sparsely
// allocated slot memory indexed by a 32-bit slot number. A slot starts
// Empty; it becomes Written on its first write, or on its first read if an
// allocator oracle supplies a value for it. Once Written a slot is
// immutable: writing the same value again is a benign no-op, writing a
// different value is a fatal conflict.
//
// This generalizes the teacher assembler's indexed-slice stack primitives
// (Push/Pop over a flat []Cell with bounds checks) from a LIFO stack to a
// sparse, non-deterministically-populated address space.
package vrom

// Oracle models the prover's non-determinism: it supplies the slot range
// handed out by ALLOCI!/ALLOCV!, and the value returned the first time a
// slot is read before anything has written it. Implementations must be
// deterministic within a single run so that traces reproduce.
type Oracle interface {
	// Alloc returns the base slot index of a fresh, contiguous range of n
	// slots never handed out before.
	Alloc(n uint32) uint32
	// Value supplies the value for a read of a slot that has never been
	// written.
	Value(slot uint32) uint32
}

// ZeroOracle is the default executor oracle: it bump-allocates frames
// starting at a configurable base and always supplies zero for unwritten
// reads. It is deterministic, which is all pure testing requires; a
// proving embedder substitutes a witness-backed Oracle instead.
type ZeroOracle struct {
	next uint32
}

// NewZeroOracle returns a ZeroOracle whose first allocation begins at base.
func NewZeroOracle(base uint32) *ZeroOracle {
	return &ZeroOracle{next: base}
}

// Alloc implements Oracle.
func (z *ZeroOracle) Alloc(n uint32) uint32 {
	base := z.next
	z.next += n
	return base
}

// Value implements Oracle.
func (*ZeroOracle) Value(uint32) uint32 { return 0 }

type cell struct {
	written bool
	value   uint32
}

// Memory is a write-once VROM instance. The zero value is not usable; build
// one with New.
type Memory struct {
	cells  map[uint32]cell
	bound  uint32 // 0 means unbounded
	oracle Oracle
}

// New returns a Memory backed by oracle. A non-zero bound rejects any access
// to a slot index >= bound with ErrOutOfRange; zero means unbounded.
func New(oracle Oracle, bound uint32) *Memory {
	return &Memory{cells: make(map[uint32]cell), bound: bound, oracle: oracle}
}

func (m *Memory) checkBound(slot uint32) error {
	if m.bound != 0 && slot >= m.bound {
		return &ErrOutOfRange{Slot: slot, Bound: m.bound}
	}
	return nil
}

// Read returns the value at slot. If the slot has never been written, the
// allocator oracle is consulted, the slot becomes Written with the supplied
// value, and that same value is returned on every subsequent read.
func (m *Memory) Read(slot uint32) (uint32, error) {
	if err := m.checkBound(slot); err != nil {
		return 0, err
	}
	if c, ok := m.cells[slot]; ok && c.written {
		return c.value, nil
	}
	v := m.oracle.Value(slot)
	m.cells[slot] = cell{written: true, value: v}
	return v, nil
}

// Write stores v at slot. Writing to an Empty slot binds it. Re-writing a
// Written slot with the same value is a no-op; writing a different value is
// ErrConflict.
func (m *Memory) Write(slot uint32, v uint32) error {
	if err := m.checkBound(slot); err != nil {
		return err
	}
	if c, ok := m.cells[slot]; ok && c.written {
		if c.value != v {
			return &ErrConflict{Slot: slot, Have: c.value, Want: v}
		}
		return nil
	}
	m.cells[slot] = cell{written: true, value: v}
	return nil
}

// Alloc reserves a fresh range of n slots from the allocator oracle and
// returns its base index. It does not itself write any slot; callers (the
// ALLOCI!/ALLOCV! opcodes) bind the returned base into a destination slot.
func (m *Memory) Alloc(n uint32) uint32 {
	return m.oracle.Alloc(n)
}

// ReadB128 reads the four consecutive slots starting at base as a B128
// value, least-significant limb first. base must be a multiple of 4.
func (m *Memory) ReadB128(base uint32) ([4]uint32, error) {
	if base%4 != 0 {
		return [4]uint32{}, &ErrAlignment{Slot: base}
	}
	var limbs [4]uint32
	for i := uint32(0); i < 4; i++ {
		v, err := m.Read(base + i)
		if err != nil {
			return [4]uint32{}, err
		}
		limbs[i] = v
	}
	return limbs, nil
}

// WriteB128 writes four limbs to the consecutive slots starting at base.
// base must be a multiple of 4.
func (m *Memory) WriteB128(base uint32, limbs [4]uint32) error {
	if base%4 != 0 {
		return &ErrAlignment{Slot: base}
	}
	for i, v := range limbs {
		if err := m.Write(base+uint32(i), v); err != nil {
			return err
		}
	}
	return nil
}
