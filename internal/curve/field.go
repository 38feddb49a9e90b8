// Copyright 2025 Certen Protocol
//
// Constant-time prime-field arithmetic for the threshold-signing core.
// Wraps gnark-crypto's bn254 scalar field, which already implements every
// operation in constant time over a 4-limb (256-bit) internal representation.

package curve

import (
	"crypto/rand"
	"errors"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// ErrInvalidEncoding is returned when a field element's byte encoding is not
// a canonical representative less than the field modulus.
var ErrInvalidEncoding = errors.New("curve: invalid field element encoding")

// FieldElement is an element of the scalar field backing every commitment,
// witness and challenge in the circuit and signing layers.
type FieldElement struct {
	inner fr.Element
}

// FieldBytes is the canonical big-endian byte width of a FieldElement.
const FieldBytes = fr.Bytes

// Zero returns the additive identity.
func Zero() FieldElement { return FieldElement{} }

// One returns the multiplicative identity.
func One() FieldElement {
	var f FieldElement
	f.inner.SetOne()
	return f
}

// FieldFromUint64 lifts a small integer into the field.
func FieldFromUint64(v uint64) FieldElement {
	var f FieldElement
	f.inner.SetUint64(v)
	return f
}

// RandomFieldElement draws a uniformly random, nonzero-biased field element
// using a cryptographic RNG. Used only where unpredictability, not
// determinism, is required (e.g. commitment blinds).
func RandomFieldElement() (FieldElement, error) {
	var f FieldElement
	if _, err := f.inner.SetRandom(); err != nil {
		return FieldElement{}, err
	}
	return f, nil
}

// FieldFromBytes decodes a canonical big-endian encoding, rejecting values
// that are not fully reduced (x >= p).
func FieldFromBytes(b [FieldBytes]byte) (FieldElement, error) {
	var f FieldElement
	f.inner.SetBytes(b[:])
	var back [FieldBytes]byte = f.inner.Bytes()
	if back != b {
		return FieldElement{}, ErrInvalidEncoding
	}
	return f, nil
}

// Bytes returns the canonical big-endian encoding.
func (f FieldElement) Bytes() [FieldBytes]byte { return f.inner.Bytes() }

// Add returns f + g.
func (f FieldElement) Add(g FieldElement) FieldElement {
	var r FieldElement
	r.inner.Add(&f.inner, &g.inner)
	return r
}

// Sub returns f - g.
func (f FieldElement) Sub(g FieldElement) FieldElement {
	var r FieldElement
	r.inner.Sub(&f.inner, &g.inner)
	return r
}

// Mul returns f * g.
func (f FieldElement) Mul(g FieldElement) FieldElement {
	var r FieldElement
	r.inner.Mul(&f.inner, &g.inner)
	return r
}

// Square returns f * f.
func (f FieldElement) Square() FieldElement {
	var r FieldElement
	r.inner.Square(&f.inner)
	return r
}

// Double returns f + f.
func (f FieldElement) Double() FieldElement {
	var r FieldElement
	r.inner.Double(&f.inner)
	return r
}

// Neg returns -f.
func (f FieldElement) Neg() FieldElement {
	var r FieldElement
	r.inner.Neg(&f.inner)
	return r
}

// Invert returns f^-1. Panics if f is zero; callers must check IsZero first,
// mirroring the teacher's own panic-on-self-inconsistency discipline.
func (f FieldElement) Invert() FieldElement {
	if f.IsZero() {
		panic("curve: invert of zero field element")
	}
	var r FieldElement
	r.inner.Inverse(&f.inner)
	return r
}

// Sqrt returns a square root of f and true, or the zero value and false if f
// is not a quadratic residue.
func (f FieldElement) Sqrt() (FieldElement, bool) {
	var r FieldElement
	if r.inner.Sqrt(&f.inner) == nil {
		return FieldElement{}, false
	}
	return r, true
}

// IsZero reports whether f is the additive identity.
func (f FieldElement) IsZero() bool { return f.inner.IsZero() }

// Equal reports whether f and g represent the same field element.
func (f FieldElement) Equal(g FieldElement) bool { return f.inner.Equal(&g.inner) }

// BitLen is the number of addressable bits, matching the field's modulus
// bit length, used by the 4-bit windowed scalar multiplication.
const BitLen = fr.Bits

// Bit returns the i'th bit (LSB-first, i.e. Bit(0) is the least significant
// bit) of f's canonical integer representative.
func (f FieldElement) Bit(i int) uint {
	var bi big.Int
	f.inner.BigInt(&bi)
	return uint(bi.Bit(i))
}

// HashToScalar derives a field element from arbitrary-length input using a
// wide extendable-output hash followed by reduction, per spec.md's guidance
// to avoid the biased bit-masking construction the original implementation
// used. See internal/curve/hash.go.
func HashToScalar(domain, msg []byte) FieldElement {
	return hashToScalar(domain, msg)
}

// entropy returns n fresh bytes from crypto/rand. Nothing in this module
// calls it; DKG coefficients come from internal/dkg's deterministic RNG.
func entropy(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
