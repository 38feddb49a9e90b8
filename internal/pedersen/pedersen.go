// Copyright 2025 Certen Protocol
//
// Pedersen hash: H(x1..xk; G1..Gk) = Σ xi*Gi. Variable-time, since every
// input here is a public node hash (curve-tree child coordinates), never a
// secret. Grounded on original_source/crypto/curve-trees/src/tree.rs's use
// of pedersen_hash_vartime.

package pedersen

import (
	"github.com/certen/tss-coordinator/internal/curve"
	"github.com/certen/tss-coordinator/internal/linalg"
)

// Hash computes Σ xi*Gi. Panics if the scalar and generator vectors differ
// in length.
func Hash(x linalg.ScalarVector, g linalg.PointVector) curve.GroupPoint {
	if x.Len() != g.Len() {
		panic("pedersen: scalar/generator length mismatch")
	}
	acc := curve.Identity()
	for i := range x {
		if x[i].IsZero() {
			continue
		}
		acc = acc.Add(g[i].ScalarMul(x[i]))
	}
	return acc
}
