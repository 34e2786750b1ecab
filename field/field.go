// Package field implements the binary extension fields PetraVM programs are
// indexed and computed over: GF(2^32) for slot values and program counters,
// and its degree-4 tower extension GF(2^128) for the B128_* opcodes.
//
// Addition in every field here is bitwise XOR; multiplication is carry-less
// polynomial multiplication reduced modulo a fixed irreducible polynomial.
// Values are compared by callers as raw 32 (or 4x32) bit patterns, so the
// modulus and generator below must never change once published.
package field

// B32 is an element of GF(2^32). The zero value is the field's additive
// identity.
type B32 uint32

// modulus is the irreducible polynomial used to reduce GF(2^32) products:
// x^32 + x^22 + x^2 + x + 1, represented without its implicit x^32 term.
// This is the classic maximal-length degree-32 LFSR polynomial (taps
// 32,22,2,1), primitive over GF(2): its root x generates the entire
// order-(2^32-1) multiplicative group, which is exactly what G below needs.
const modulus uint64 = 0x00400007

// G is the fixed multiplicative generator of GF(2^32)*: the field element
// "x" (the polynomial's own indeterminate), which is a generator because
// modulus is primitive, not merely irreducible. PC arithmetic and the `#kG`
// immediate form are defined relative to this exact value; it must never
// change.
const G B32 = 2

// Zero and One are the additive and multiplicative identities.
const (
	Zero B32 = 0
	One  B32 = 1
)

// Add returns a+b, i.e. a XOR b.
func Add(a, b B32) B32 { return a ^ b }

// Mul returns a*b in GF(2^32).
func Mul(a, b B32) B32 {
	var prod uint64
	x, y := uint64(a), uint64(b)
	for y != 0 {
		if y&1 != 0 {
			prod ^= x
		}
		x <<= 1
		y >>= 1
	}
	return B32(reduce(prod))
}

// reduce folds a double-width carry-less product back into 32 bits modulo
// the field's irreducible polynomial.
func reduce(prod uint64) uint64 {
	for bit := uint(63); bit >= 32; bit-- {
		if prod&(1<<bit) != 0 {
			prod ^= modulus << (bit - 32)
		}
	}
	return prod
}

// Pow returns base^k. With base G it resolves the `#kG` immediate form and
// computes the program counter of the i-th instruction (PC = G^i).
func Pow(base B32, k uint32) B32 {
	result := One
	sq := base
	for k != 0 {
		if k&1 != 0 {
			result = Mul(result, sq)
		}
		sq = Mul(sq, sq)
		k >>= 1
	}
	return result
}

// Inv returns the multiplicative inverse of a non-zero element via Fermat's
// little theorem: a^(2^32-2).
func Inv(a B32) (B32, error) {
	if a == Zero {
		return Zero, errDivByZero
	}
	return Pow(a, 0xFFFFFFFE), nil
}

// Next advances a program counter to the next instruction: PC <- PC * G.
func Next(pc B32) B32 { return Mul(pc, G) }

// B128 is an element of the degree-4 tower extension of GF(2^32), built as
// two quadratic extensions (GF(2^32) -> GF(2^64) -> GF(2^128)) in the style
// of Fan-Paar binary tower fields. Limbs are stored least-significant-first:
// Limbs()[0] is the base coefficient, Limbs()[3] the highest.
type B128 struct {
	lo b64
	hi b64
}

// b64 is the GF(2^64) intermediate tower level: a + b*X over GF(2^32).
type b64 struct {
	a, b B32
}

// beta64 is the fixed modulus coefficient for the GF(2^32)->GF(2^64) step:
// X^2 + beta64*X + 1 is taken as the (documented, fixed) irreducible
// quadratic used to build GF(2^64).
const beta64 B32 = 0x00000002

// beta128 is the fixed modulus coefficient for the GF(2^64)->GF(2^128) step:
// Y^2 + beta128*Y + 1 is irreducible over the GF(2^64) level above.
var beta128 = b64{a: 8, b: 4}

// mul64 multiplies two GF(2^64) tower elements: (a0+a1 X)(b0+b1 X) reduced
// modulo X^2 + beta64*X + 1.
func mul64(x, y b64) b64 {
	a0b0 := Mul(x.a, y.a)
	a1b1 := Mul(x.b, y.b)
	cross := Add(Mul(x.a, y.b), Mul(x.b, y.a))
	return b64{
		a: Add(a0b0, a1b1),
		b: Add(cross, Mul(a1b1, beta64)),
	}
}

func add64(x, y b64) b64 { return b64{Add(x.a, y.a), Add(x.b, y.b)} }

// NewB128 builds a B128 from four limbs, least-significant first.
func NewB128(l0, l1, l2, l3 B32) B128 {
	return B128{lo: b64{a: l0, b: l1}, hi: b64{a: l2, b: l3}}
}

// Limbs returns the four B32 limbs, least-significant first.
func (v B128) Limbs() [4]B32 {
	return [4]B32{v.lo.a, v.lo.b, v.hi.a, v.hi.b}
}

// B128Add returns a+b componentwise.
func B128Add(a, b B128) B128 {
	return B128{lo: add64(a.lo, b.lo), hi: add64(a.hi, b.hi)}
}

// B128Mul returns a*b in the degree-4 tower extension.
func B128Mul(a, b B128) B128 {
	a0b0 := mul64(a.lo, b.lo)
	a1b1 := mul64(a.hi, b.hi)
	cross := add64(mul64(a.lo, b.hi), mul64(a.hi, b.lo))
	return B128{
		lo: add64(a0b0, a1b1),
		hi: add64(cross, mul64(a1b1, beta128)),
	}
}
