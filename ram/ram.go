// Package ram implements PetraVM's optional byte-addressable memory. Unlike
// VROM, RAM is conventional read/write storage; every access is timestamped
// with a monotonically increasing counter so that memory events have a
// total order across a run, as spec'd for the LW/SW/LB/LH/SB/SH opcode
// family.
//
// Word and half-word encoding follows the teacher's own image
// (de)serialization in vm/mem.go, which reaches for encoding/binary rather
// than hand-rolled byte shifting; here it serializes individual accesses
// instead of a whole memory image.
package ram

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// ErrOutOfRange is returned when an access falls outside the configured RAM
// size.
type ErrOutOfRange struct {
	Addr uint32
	Size uint32
	Want int
}

func (e *ErrOutOfRange) Error() string {
	return errors.Errorf("ram: access at %#x (width %d) out of range (size %d)", e.Addr, e.Want, e.Size).Error()
}

// Memory is a flat byte-addressable RAM with a monotonically increasing
// access timestamp.
type Memory struct {
	bytes []byte
	ts    uint64
}

// New returns a zero-initialized RAM of size bytes.
func New(size uint32) *Memory {
	return &Memory{bytes: make([]byte, size)}
}

func (m *Memory) bump() uint64 {
	m.ts++
	return m.ts
}

func (m *Memory) bounds(addr uint32, width int) error {
	if uint64(addr)+uint64(width) > uint64(len(m.bytes)) {
		return &ErrOutOfRange{Addr: addr, Size: uint32(len(m.bytes)), Want: width}
	}
	return nil
}

// LoadByte returns the byte at addr and the timestamp of the access.
func (m *Memory) LoadByte(addr uint32) (byte, uint64, error) {
	if err := m.bounds(addr, 1); err != nil {
		return 0, 0, err
	}
	return m.bytes[addr], m.bump(), nil
}

// StoreByte writes v at addr and returns the timestamp of the access.
func (m *Memory) StoreByte(addr uint32, v byte) (uint64, error) {
	if err := m.bounds(addr, 1); err != nil {
		return 0, err
	}
	m.bytes[addr] = v
	return m.bump(), nil
}

// LoadHalf returns the little-endian 16-bit word at addr.
func (m *Memory) LoadHalf(addr uint32) (uint16, uint64, error) {
	if err := m.bounds(addr, 2); err != nil {
		return 0, 0, err
	}
	return binary.LittleEndian.Uint16(m.bytes[addr:]), m.bump(), nil
}

// StoreHalf writes the little-endian 16-bit word v at addr.
func (m *Memory) StoreHalf(addr uint32, v uint16) (uint64, error) {
	if err := m.bounds(addr, 2); err != nil {
		return 0, err
	}
	binary.LittleEndian.PutUint16(m.bytes[addr:], v)
	return m.bump(), nil
}

// LoadWord returns the little-endian 32-bit word at addr.
func (m *Memory) LoadWord(addr uint32) (uint32, uint64, error) {
	if err := m.bounds(addr, 4); err != nil {
		return 0, 0, err
	}
	return binary.LittleEndian.Uint32(m.bytes[addr:]), m.bump(), nil
}

// StoreWord writes the little-endian 32-bit word v at addr.
func (m *Memory) StoreWord(addr uint32, v uint32) (uint64, error) {
	if err := m.bounds(addr, 4); err != nil {
		return 0, err
	}
	binary.LittleEndian.PutUint32(m.bytes[addr:], v)
	return m.bump(), nil
}

// Timestamp returns the timestamp of the most recent access, or 0 if none
// has occurred yet.
func (m *Memory) Timestamp() uint64 { return m.ts }

// Size returns the configured RAM size in bytes.
func (m *Memory) Size() uint32 { return uint32(len(m.bytes)) }
