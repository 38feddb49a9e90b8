// Copyright 2025 Certen Protocol
//
// Scoped zeroizing containers for long-term keys, DKG witnesses and scalar
// secrets. Grounded on original_source/processor/src/key_gen.rs's use of
// zeroize::Zeroizing around entropy and secret shares: every code path that
// holds one of these, including error returns, must scrub it on release.

package zeroize

import "github.com/certen/tss-coordinator/internal/curve"

// Bytes is a fixed secret byte buffer that is wiped on Release. Callers must
// defer Release immediately after construction so every return path,
// including error paths, scrubs the buffer.
type Bytes struct {
	b []byte
}

// NewBytes takes ownership of b; the caller must not retain b elsewhere.
func NewBytes(b []byte) *Bytes { return &Bytes{b: b} }

// Bytes returns the underlying slice. The returned slice aliases the
// zeroizing buffer and becomes invalid after Release.
func (z *Bytes) Bytes() []byte { return z.b }

// Release scrubs the buffer to zero. Safe to call more than once.
func (z *Bytes) Release() {
	if z == nil {
		return
	}
	for i := range z.b {
		z.b[i] = 0
	}
}

// Scalar is a zeroizing container for a single secret field element, used
// for DKG coefficients, secret shares and nonces.
type Scalar struct {
	v curve.FieldElement
}

// NewScalar wraps a secret scalar for scoped release.
func NewScalar(v curve.FieldElement) *Scalar { return &Scalar{v: v} }

// Value returns the wrapped scalar. Valid until Release.
func (z *Scalar) Value() curve.FieldElement { return z.v }

// Release overwrites the wrapped scalar with zero.
func (z *Scalar) Release() {
	if z == nil {
		return
	}
	z.v = curve.Zero()
}

// ScalarSlice is a zeroizing container for a slice of secret scalars, used
// for DKG polynomial coefficients and per-recipient secret shares.
type ScalarSlice struct {
	v []curve.FieldElement
}

// NewScalarSlice takes ownership of v.
func NewScalarSlice(v []curve.FieldElement) *ScalarSlice { return &ScalarSlice{v: v} }

// Value returns the wrapped slice. Valid until Release.
func (z *ScalarSlice) Value() []curve.FieldElement { return z.v }

// Release overwrites every element with zero.
func (z *ScalarSlice) Release() {
	if z == nil {
		return
	}
	for i := range z.v {
		z.v[i] = curve.Zero()
	}
}
