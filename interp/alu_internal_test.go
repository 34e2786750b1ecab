package interp

import "testing"

func TestShiftMasksToLow5Bits(t *testing.T) {
	// SLL(x, y) must depend only on y's low 5 bits: y=3 and y=35 (3+32)
	// must shift identically.
	if sll(1, 3) != sll(1, 35) {
		t.Fatalf("sll not masked to 5 bits: sll(1,3)=%d sll(1,35)=%d", sll(1, 3), sll(1, 35))
	}
	if srl(0x80000000, 4) != srl(0x80000000, 36) {
		t.Fatalf("srl not masked to 5 bits")
	}
	if sra(0x80000000, 4) != sra(0x80000000, 36) {
		t.Fatalf("sra not masked to 5 bits")
	}
}

func TestSRASignExtends(t *testing.T) {
	got := sra(0x80000000, 4)
	want := uint32(0xF8000000)
	if got != want {
		t.Fatalf("sra(0x80000000,4) = %#x, want %#x", got, want)
	}
}

func TestSRLIsLogical(t *testing.T) {
	got := srl(0x80000000, 4)
	want := uint32(0x08000000)
	if got != want {
		t.Fatalf("srl(0x80000000,4) = %#x, want %#x", got, want)
	}
}

func TestMulUnsignedWidening(t *testing.T) {
	result := mulUnsigned(0xFFFFFFFF, 2)
	if result != 0x1FFFFFFFE {
		t.Fatalf("mulUnsigned(0xFFFFFFFF,2) = %#x, want 0x1FFFFFFFE", result)
	}
}

func TestMulSignedWidening(t *testing.T) {
	// -1 * -1 = 1
	neg1 := uint32(0xFFFFFFFF)
	result := mulSigned(neg1, neg1)
	if result != 1 {
		t.Fatalf("mulSigned(-1,-1) = %#x, want 1", result)
	}
	// -2 * 3 = -6 as a 64-bit two's-complement value
	negTwo := uint32(0xFFFFFFFE)
	got := mulSigned(negTwo, 3)
	want := uint64(0xFFFFFFFFFFFFFFFA) // -6 mod 2^64
	if got != want {
		t.Fatalf("mulSigned(-2,3) = %#x, want %#x", got, want)
	}
}

func TestMulSignedUnsignedWidening(t *testing.T) {
	// -1 (signed) * 2 (unsigned) = -2
	negOne := uint32(0xFFFFFFFF)
	got := mulSignedUnsigned(negOne, 2)
	want := uint64(0xFFFFFFFFFFFFFFFE)
	if got != want {
		t.Fatalf("mulSignedUnsigned(-1,2) = %#x, want %#x", got, want)
	}
}

func TestCompareSignedVsUnsigned(t *testing.T) {
	negOne := uint32(0xFFFFFFFF) // -1 signed, huge unsigned
	if !sltSigned(negOne, 0) {
		t.Fatal("sltSigned(-1, 0) should be true")
	}
	if sltUnsigned(negOne, 0) {
		t.Fatal("sltUnsigned(huge, 0) should be false")
	}
	if !sleSigned(negOne, negOne) {
		t.Fatal("sleSigned(x,x) should be true")
	}
	if !sleUnsigned(0, negOne) {
		t.Fatal("sleUnsigned(0, huge) should be true")
	}
}
