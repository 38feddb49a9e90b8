// Copyright 2025 Certen Protocol
//
// GroupPoint: Jacobian-coordinate arithmetic on a short-Weierstrass curve
// y^2 = x^3 + b over the bn254 base field, using gnark-crypto's fp.Element
// for constant-time field operations. Z == 0 encodes the identity.
//
// The formulas (add-2007-bl, dbl-2009-l) and the 33-byte sign-bit codec are
// bespoke to this module (the library only supplies constant-time field
// arithmetic, not this wire format), grounded on the teacher's own pattern
// of building point types on top of gnark-crypto field elements in
// pkg/crypto/bls/bls.go.

package curve

import (
	"crypto/subtle"
	"errors"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

var (
	// ErrPointEncoding is returned when an x-coordinate is not a canonical
	// field element (x >= p).
	ErrPointEncoding = errors.New("curve: invalid point encoding")
	// ErrNotOnCurve is returned when an x-coordinate has no corresponding
	// point on the curve.
	ErrNotOnCurve = errors.New("curve: point not on curve")
	// ErrTorsion is returned when a decoded point is not a member of the
	// prime-order subgroup.
	ErrTorsion = errors.New("curve: point has non-trivial torsion")
)

// curveB is the short-Weierstrass coefficient b in y^2 = x^3 + b (bn254 G1's
// own curve equation, reused here as the concrete instantiation of the
// "prime field of 2^256 - delta" the spec describes in the abstract).
var curveB = fp.Element{}

func init() {
	curveB.SetUint64(3)
}

// GroupPoint is a Jacobian-coordinate curve point. The zero value is NOT the
// identity; use Identity().
type GroupPoint struct {
	x, y, z fp.Element
}

// Identity returns the point at infinity (Z = 0).
func Identity() GroupPoint {
	var p GroupPoint
	p.x.SetOne()
	p.y.SetOne()
	p.z.SetZero()
	return p
}

// IsIdentity reports whether p is the point at infinity.
func (p GroupPoint) IsIdentity() bool { return p.z.IsZero() }

var (
	generatorOnce sync.Once
	generator     GroupPoint
)

// Generator returns the module-wide fixed generator, cofactor-cleared at
// first access (bn254 G1 has cofactor 1, so clearing is the identity
// operation here, but the step is kept to honor the spec's contract for
// curves whose cofactor is not trivial).
func Generator() GroupPoint {
	generatorOnce.Do(func() { generator = initGenerator() })
	return generator
}

func initGenerator() GroupPoint {
	var gx, gy fp.Element
	gx.SetOne()
	gy.SetUint64(2)
	g := GroupPoint{x: gx, y: gy, z: fp.Element{}}
	g.z.SetOne()
	return g.clearCofactor()
}

// clearCofactor is a no-op for a prime-order curve but is kept as an
// explicit step so the contract holds if the concrete curve ever changes.
func (p GroupPoint) clearCofactor() GroupPoint { return p }

// Equal compares two points by cross-multiplying projective coordinates:
// (X1*Z2^2, Y1*Z2^3) == (X2*Z1^2, Y2*Z1^3).
func (p GroupPoint) Equal(q GroupPoint) bool {
	if p.IsIdentity() || q.IsIdentity() {
		return p.IsIdentity() && q.IsIdentity()
	}
	var z1z1, z2z2, lhsX, rhsX fp.Element
	z1z1.Square(&p.z)
	z2z2.Square(&q.z)
	lhsX.Mul(&p.x, &z2z2)
	rhsX.Mul(&q.x, &z1z1)
	if !lhsX.Equal(&rhsX) {
		return false
	}
	var z1z1z1, z2z2z2, lhsY, rhsY fp.Element
	z1z1z1.Mul(&z1z1, &p.z)
	z2z2z2.Mul(&z2z2, &q.z)
	lhsY.Mul(&p.y, &z2z2z2)
	rhsY.Mul(&q.y, &z1z1z1)
	return lhsY.Equal(&rhsY)
}

// Neg returns -p.
func (p GroupPoint) Neg() GroupPoint {
	n := p
	n.y.Neg(&p.y)
	return n
}

// Double returns p + p via the dedicated doubling formula (dbl-2009-l, for
// the a=0 curve family).
func (p GroupPoint) Double() GroupPoint {
	if p.IsIdentity() {
		return p
	}
	var a, b, c, d, e, f, x3, y3, z3, t0, t1 fp.Element

	a.Square(&p.x)
	b.Square(&p.y)
	c.Square(&b)

	t0.Add(&p.x, &b)
	t0.Square(&t0)
	t1.Add(&a, &c)
	d.Sub(&t0, &t1)
	d.Double(&d)

	e.Double(&a)
	e.Add(&e, &a) // e = 3a

	f.Square(&e)

	t0.Double(&d)
	x3.Sub(&f, &t0)

	t0.Sub(&d, &x3)
	t0.Mul(&t0, &e)
	t1.Double(&c)
	t1.Double(&t1)
	t1.Double(&t1) // 8c
	y3.Sub(&t0, &t1)

	z3.Mul(&p.y, &p.z)
	z3.Double(&z3)

	return GroupPoint{x: x3, y: y3, z: z3}
}

// Add implements add-2007-bl: identity on either operand returns the other,
// the equal-operand branch returns Double, negated-equal returns Identity,
// otherwise the generic formula runs. These cases are chosen with ordinary
// data-dependent branches (including the Equal check), so Add is not
// constant-time with respect to its operands.
func (p GroupPoint) Add(q GroupPoint) GroupPoint {
	if p.IsIdentity() {
		return q
	}
	if q.IsIdentity() {
		return p
	}
	if p.Equal(q) {
		return p.Double()
	}
	if p.Equal(q.Neg()) {
		return Identity()
	}

	var z1z1, z2z2, u1, u2, z2z2z2, z1z1z1, s1, s2, h, i, j, r, v fp.Element
	var x3, y3, z3, t0, t1 fp.Element

	z1z1.Square(&p.z)
	z2z2.Square(&q.z)
	u1.Mul(&p.x, &z2z2)
	u2.Mul(&q.x, &z1z1)

	z2z2z2.Mul(&z2z2, &q.z)
	z1z1z1.Mul(&z1z1, &p.z)
	s1.Mul(&p.y, &z2z2z2)
	s2.Mul(&q.y, &z1z1z1)

	h.Sub(&u2, &u1)
	t0.Double(&h)
	i.Square(&t0)
	j.Mul(&h, &i)

	t0.Sub(&s2, &s1)
	r.Double(&t0)

	v.Mul(&u1, &i)

	t0.Square(&r)
	t1.Double(&v)
	t1.Add(&t1, &j)
	x3.Sub(&t0, &t1)

	t0.Sub(&v, &x3)
	t0.Mul(&t0, &r)
	t1.Mul(&s1, &j)
	t1.Double(&t1)
	y3.Sub(&t0, &t1)

	t0.Add(&p.z, &q.z)
	t0.Square(&t0)
	t1.Add(&z1z1, &z2z2)
	t0.Sub(&t0, &t1)
	z3.Mul(&t0, &h)

	return GroupPoint{x: x3, y: y3, z: z3}
}

// affine returns the affine (x, y) coordinates. Callers must ensure p is not
// the identity.
func (p GroupPoint) affine() (fp.Element, fp.Element) {
	var zinv, zinv2, zinv3, x, y fp.Element
	zinv.Inverse(&p.z)
	zinv2.Square(&zinv)
	zinv3.Mul(&zinv2, &zinv)
	x.Mul(&p.x, &zinv2)
	y.Mul(&p.y, &zinv3)
	return x, y
}

// AffineXY returns the affine coordinates reduced into the scalar field, for
// use as curve-tree child-hash inputs. A genuine 2-cycle pairs one curve's
// base field with the other's scalar field exactly, so this coordinate
// never needs reduction; the pack contributed no such cycle, so this module
// runs a single curve and bridges coordinates into FieldElement by
// reduction, documented in DESIGN.md as a deliberate simplification of
// spec.md's 2-cycle model.
func (p GroupPoint) AffineXY() (FieldElement, FieldElement) {
	if p.IsIdentity() {
		return Zero(), Zero()
	}
	x, y := p.affine()
	var xf, yf FieldElement
	xb := x.Bytes()
	yb := y.Bytes()
	xf.inner.SetBytes(xb[:])
	yf.inner.SetBytes(yb[:])
	return xf, yf
}

// PointBytes is the wire width of the compressed point encoding.
const PointBytes = fp.Bytes + 1

// Bytes encodes p as 33 bytes: a 32-byte LSB-first x-coordinate followed by
// a sign byte whose high bit carries the parity of y. The identity encodes
// as all-zero.
func (p GroupPoint) Bytes() [PointBytes]byte {
	var out [PointBytes]byte
	if p.IsIdentity() {
		return out
	}
	x, y := p.affine()
	xb := x.Bytes() // big-endian, 32 bytes
	for i := 0; i < fp.Bytes; i++ {
		out[i] = xb[fp.Bytes-1-i]
	}
	yb := y.Bytes()
	if yb[fp.Bytes-1]&1 == 1 {
		out[fp.Bytes] = 0x80
	}
	return out
}

// FromBytes decodes the 33-byte encoding, recovering y via the curve
// equation and rejecting non-canonical x, off-curve x, and (for curves with
// nontrivial cofactor) non-prime-order points.
func FromBytes(b [PointBytes]byte) (GroupPoint, error) {
	allZero := true
	for _, v := range b {
		if v != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return Identity(), nil
	}

	var xbBE [fp.Bytes]byte
	for i := 0; i < fp.Bytes; i++ {
		xbBE[i] = b[fp.Bytes-1-i]
	}
	var x fp.Element
	x.SetBytes(xbBE[:])
	if got := x.Bytes(); got != xbBE {
		return GroupPoint{}, ErrPointEncoding
	}

	var rhs, x2, x3, y fp.Element
	x2.Square(&x)
	x3.Mul(&x2, &x)
	rhs.Add(&x3, &curveB)
	if y.Sqrt(&rhs) == nil {
		return GroupPoint{}, ErrNotOnCurve
	}

	wantOdd := (b[fp.Bytes] & 0x80) != 0
	yb := y.Bytes()
	isOdd := yb[fp.Bytes-1]&1 == 1
	if isOdd != wantOdd {
		y.Neg(&y)
	}

	var z fp.Element
	z.SetOne()
	p := GroupPoint{x: x, y: y, z: z}

	if !p.hasPrimeOrder() {
		return GroupPoint{}, ErrTorsion
	}
	return p, nil
}

// hasPrimeOrder verifies P * ORDER == identity, where ORDER is the scalar
// field's modulus (bn254 G1 has cofactor 1, so every on-curve point already
// satisfies this; the check is kept explicit per spec.md's decode contract).
func (p GroupPoint) hasPrimeOrder() bool {
	order := fr.Modulus()
	var acc = Identity()
	base := p
	n := order.BitLen()
	for i := 0; i < n; i++ {
		if order.Bit(i) == 1 {
			acc = acc.Add(base)
		}
		base = base.Double()
	}
	return acc.IsIdentity()
}

// window4Table precomputes 0*P..15*P for the 4-bit fixed-window scalar
// multiplication below.
type window4Table [16]GroupPoint

func newWindow4Table(p GroupPoint) window4Table {
	var t window4Table
	t[0] = Identity()
	t[1] = p
	for i := 2; i < 16; i++ {
		t[i] = t[i-1].Add(p)
	}
	return t
}

// selectConstantTime performs the 16-entry table lookup spec.md §4.1
// requires without ever branching on the (secret-scalar-dependent) index:
// every entry's coordinates are folded into the result with
// crypto/subtle.ConstantTimeCopy, gated by a constant-time equality test of
// the entry's position against idx, so the executed instruction sequence is
// identical regardless of which entry matches.
func (t window4Table) selectConstantTime(idx uint) GroupPoint {
	var xb, yb, zb [fp.Bytes]byte
	ib := Identity()
	ix, iy, iz := ib.x.Bytes(), ib.y.Bytes(), ib.z.Bytes()
	copy(xb[:], ix[:])
	copy(yb[:], iy[:])
	copy(zb[:], iz[:])

	for i, entry := range t {
		eq := ctEqMask(uint(i), idx)
		ex, ey, ez := entry.x.Bytes(), entry.y.Bytes(), entry.z.Bytes()
		subtle.ConstantTimeCopy(eq, xb[:], ex[:])
		subtle.ConstantTimeCopy(eq, yb[:], ey[:])
		subtle.ConstantTimeCopy(eq, zb[:], ez[:])
	}

	var out GroupPoint
	out.x.SetBytes(xb[:])
	out.y.SetBytes(yb[:])
	out.z.SetBytes(zb[:])
	return out
}

// ctEqMask reports whether a == b as a crypto/subtle selector (1 or 0),
// computed with the platform's bitwise select primitive rather than a
// comparison branch.
func ctEqMask(a, b uint) int {
	return subtle.ConstantTimeEq(int32(a), int32(b))
}

// ScalarMul computes s*p using 4-bit signed-fixed-window multiplication: a
// precomputed table of 16 multiples, processing the scalar's bits four at a
// time (MSB to LSB), doubling four times between each group absorption.
func (p GroupPoint) ScalarMul(s FieldElement) GroupPoint {
	table := newWindow4Table(p)

	result := Identity()
	windows := BitLen / 4
	if BitLen%4 != 0 {
		windows++
	}

	for w := windows - 1; w >= 0; w-- {
		if w != windows-1 {
			result = result.Double().Double().Double().Double()
		}
		nibble := uint(0)
		for b := 3; b >= 0; b-- {
			bitIdx := w*4 + b
			var bit uint
			if bitIdx < BitLen {
				bit = s.Bit(bitIdx)
			}
			nibble = (nibble << 1) | bit
		}
		result = result.Add(table.selectConstantTime(nibble))
	}
	return result
}
