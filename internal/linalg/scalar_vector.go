// Copyright 2025 Certen Protocol
//
// ScalarVector: owned, contiguous field-scalar sequences with the elementwise
// and weighted operations the circuit, WIP and bulletproof layers build on.
// Grounded on the original implementation's scalar_vector module (referenced
// from crypto/bulletproofs/src/core.rs's vector_exponent / TWO_N usage) and
// on the teacher's own small-value-type style (pkg/commitment/commitment.go's
// slice-oriented helpers).

package linalg

import "github.com/certen/tss-coordinator/internal/curve"

// ScalarVector is an owned sequence of field scalars.
type ScalarVector []curve.FieldElement

// NewScalarVector returns a zero-filled vector of length n.
func NewScalarVector(n int) ScalarVector {
	return make(ScalarVector, n)
}

// Len returns the vector's length.
func (v ScalarVector) Len() int { return len(v) }

// Add returns the elementwise sum. Panics if lengths differ.
func (v ScalarVector) Add(w ScalarVector) ScalarVector {
	v.mustMatch(w)
	out := make(ScalarVector, len(v))
	for i := range v {
		out[i] = v[i].Add(w[i])
	}
	return out
}

// Sub returns the elementwise difference. Panics if lengths differ.
func (v ScalarVector) Sub(w ScalarVector) ScalarVector {
	v.mustMatch(w)
	out := make(ScalarVector, len(v))
	for i := range v {
		out[i] = v[i].Sub(w[i])
	}
	return out
}

// Hadamard returns the elementwise product. Panics if lengths differ.
func (v ScalarVector) Hadamard(w ScalarVector) ScalarVector {
	v.mustMatch(w)
	out := make(ScalarVector, len(v))
	for i := range v {
		out[i] = v[i].Mul(w[i])
	}
	return out
}

// Scale returns every element multiplied by s.
func (v ScalarVector) Scale(s curve.FieldElement) ScalarVector {
	out := make(ScalarVector, len(v))
	for i := range v {
		out[i] = v[i].Mul(s)
	}
	return out
}

// InnerProduct returns Σ vᵢ·wᵢ. Panics if lengths differ.
func (v ScalarVector) InnerProduct(w ScalarVector) curve.FieldElement {
	v.mustMatch(w)
	acc := curve.Zero()
	for i := range v {
		acc = acc.Add(v[i].Mul(w[i]))
	}
	return acc
}

// WeightedInnerProduct returns ⟨a,b⟩_y = Σ aᵢ bᵢ y^(i+1).
func (v ScalarVector) WeightedInnerProduct(w ScalarVector, y curve.FieldElement) curve.FieldElement {
	v.mustMatch(w)
	acc := curve.Zero()
	power := y
	for i := range v {
		acc = acc.Add(v[i].Mul(w[i]).Mul(power))
		power = power.Mul(y)
	}
	return acc
}

// Powers returns [1, y, y^2, ..., y^(n-1)].
func Powers(y curve.FieldElement, n int) ScalarVector {
	out := make(ScalarVector, n)
	if n == 0 {
		return out
	}
	out[0] = curve.One()
	for i := 1; i < n; i++ {
		out[i] = out[i-1].Mul(y)
	}
	return out
}

func (v ScalarVector) mustMatch(w ScalarVector) {
	if len(v) != len(w) {
		panic("linalg: scalar vector length mismatch")
	}
}
