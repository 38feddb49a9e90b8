// Copyright 2025 Certen Protocol
//
// hash_to_scalar via a wide extendable-output hash and reduction.
//
// spec.md's open question flags that the original implementation derived
// scalars by masking a fixed-width hash down to fewer bits than the field
// modulus, which is measurably biased. We instead draw 64 bytes (twice the
// field's byte width) from blake2b's XOF and reduce the wide integer modulo
// the field order, which is the standard "hash_to_field via wide reduction"
// construction and keeps the statistical bias below 2^-128.

package curve

import "golang.org/x/crypto/blake2b"

// wideBytes is deliberately double FieldBytes: reducing a value this much
// wider than the modulus keeps the distribution statistically close to
// uniform (bias below 2^-128 for a ~254-bit field).
const wideBytes = FieldBytes * 2

func hashToScalar(domain, msg []byte) FieldElement {
	xof, err := blake2b.NewXOF(wideBytes, nil)
	if err != nil {
		// blake2b.NewXOF only errors on an oversized key, which we never pass.
		panic("curve: blake2b xof init: " + err.Error())
	}
	_, _ = xof.Write(domain)
	_, _ = xof.Write([]byte{0})
	_, _ = xof.Write(msg)

	wide := make([]byte, wideBytes)
	if _, err := xof.Read(wide); err != nil {
		panic("curve: blake2b xof read: " + err.Error())
	}

	var f FieldElement
	f.inner.SetBytes(wide)
	return f
}
