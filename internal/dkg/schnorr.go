// Copyright 2025 Certen Protocol
//
// Schnorr proof of knowledge of the constant coefficient a0, attached to
// every commitment broadcast per spec.md §4.8 step 2, preventing rogue-key
// attacks during DKG.

package dkg

import (
	"github.com/certen/tss-coordinator/internal/curve"
)

// SchnorrProof is a proof of knowledge of x such that P = x*G.
type SchnorrProof struct {
	R curve.GroupPoint
	S curve.FieldElement
}

func schnorrChallenge(id ID, pub, r curve.GroupPoint) curve.FieldElement {
	pubBytes := pub.Bytes()
	rBytes := r.Bytes()
	msg := make([]byte, 0, 8+len(pubBytes)+len(rBytes))
	msg = appendU32(msg, id.Set)
	msg = appendU32(msg, id.Attempt)
	msg = append(msg, pubBytes[:]...)
	msg = append(msg, rBytes[:]...)
	return curve.HashToScalar([]byte("dkg-schnorr-pok"), msg)
}

func appendU32(b []byte, v uint32) []byte {
	return append(b, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// ProveSchnorr proves knowledge of x for pub = x*G, using nonce k drawn
// from the attempt's deterministic RNG so the proof is reproducible across
// restarts for the same attempt.
func ProveSchnorr(id ID, x curve.FieldElement, pub curve.GroupPoint, rng *deterministicRNG) SchnorrProof {
	k := rng.scalar()
	r := curve.Generator().ScalarMul(k)
	e := schnorrChallenge(id, pub, r)
	s := k.Add(e.Mul(x))
	return SchnorrProof{R: r, S: s}
}

// VerifySchnorr checks a SchnorrProof against the claimed public point.
func VerifySchnorr(id ID, pub curve.GroupPoint, proof SchnorrProof) bool {
	e := schnorrChallenge(id, pub, proof.R)
	lhs := curve.Generator().ScalarMul(proof.S)
	rhs := proof.R.Add(pub.ScalarMul(e))
	return lhs.Equal(rhs)
}
