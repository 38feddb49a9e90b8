// Copyright 2025 Certen Protocol

package linalg

import "github.com/certen/tss-coordinator/internal/curve"

// PointVector is an owned sequence of curve points.
type PointVector []curve.GroupPoint

// Len returns the vector's length.
func (v PointVector) Len() int { return len(v) }

// MultiScalarMul returns ⟨s, P⟩ = Σ sᵢ·Pᵢ. Panics if lengths differ.
//
// It sums one scalar multiplication per term; no bucket (Pippenger) method
// is used.
func (v PointVector) MultiScalarMul(s ScalarVector) curve.GroupPoint {
	if len(v) != len(s) {
		panic("linalg: point/scalar vector length mismatch")
	}
	acc := curve.Identity()
	for i := range v {
		acc = acc.Add(v[i].ScalarMul(s[i]))
	}
	return acc
}

// Slice returns a sub-vector view [lo, hi).
func (v PointVector) Slice(lo, hi int) PointVector { return v[lo:hi] }
