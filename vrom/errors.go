package vrom

import "github.com/pkg/errors"

// ErrConflict is returned by Write when a slot already holds a different
// value than the one being written. Re-writing the same value is a benign
// no-op, per the write-once reconciliation rule; only a genuine disagreement
// is fatal.
type ErrConflict struct {
	Slot uint32
	Have uint32
	Want uint32
}

func (e *ErrConflict) Error() string {
	return errors.Errorf("vrom: conflicting write to slot %d: have %#x, want %#x", e.Slot, e.Have, e.Want).Error()
}

// ErrOutOfRange is returned when a slot index falls outside the configured
// VROM bound.
type ErrOutOfRange struct {
	Slot  uint32
	Bound uint32
}

func (e *ErrOutOfRange) Error() string {
	return errors.Errorf("vrom: slot %d out of range (bound %d)", e.Slot, e.Bound).Error()
}

// ErrAlignment is returned when a 128-bit access targets a slot index that
// is not a multiple of 4.
type ErrAlignment struct {
	Slot uint32
}

func (e *ErrAlignment) Error() string {
	return errors.Errorf("vrom: slot %d is not 4-aligned for a 128-bit access", e.Slot).Error()
}
