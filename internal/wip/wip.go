// Copyright 2025 Certen Protocol
//
// Weighted-Inner-Product argument: a sublinear proof of knowledge of
// (a, b, alpha) such that
//
//	P = g*<a,b>_y + H*alpha + Σ Gi*ai + Σ Hi*bi
//
// where <a,b>_y = Σ ai*bi*y^(i+1). Grounded on spec.md §4.6's description
// (the original implementation's weighted_inner_product module was not
// present in the retrieved pack — only referenced from
// arithmetic_circuit.rs — so the recursion below is built directly from the
// algorithm description, reducing the weighted case to the textbook
// Bulletproofs inner-product argument by pre-scaling b and H by powers of y
// and y^-1 respectively, which is a standard, independently-verifiable
// transformation: Σ Hi*bi is unchanged by replacing (bi, Hi) with
// (bi*y^(i+1), Hi*y^-(i+1)), and Σai*bi*y^(i+1) becomes the now-unweighted
// <a, b'>.
package wip

import (
	"errors"

	"github.com/certen/tss-coordinator/internal/curve"
	"github.com/certen/tss-coordinator/internal/linalg"
)

// ErrVerificationFailed is returned when a proof does not satisfy the
// folded verification equation.
var ErrVerificationFailed = errors.New("wip: verification failed")

// Statement is the public input to a WIP proof: the commitment P and the
// generators it was built from.
type Statement struct {
	G     curve.GroupPoint
	H     curve.GroupPoint
	GBold linalg.PointVector
	HBold linalg.PointVector
	P     curve.GroupPoint
	Y     curve.FieldElement
}

// Witness is the prover's secret opening of P.
type Witness struct {
	A, B  linalg.ScalarVector
	Alpha curve.FieldElement
}

// Proof is a WIP argument: one (L, R) pair per halving round, plus the
// base-case scalars and accumulated blind.
type Proof struct {
	L, R  []curve.GroupPoint
	A, B  curve.FieldElement
	Alpha curve.FieldElement
}

// Prove constructs a WIP proof for statement/witness, deriving round
// challenges from transcript. Panics if the vector lengths are not a power
// of two or disagree with the generator vectors.
func Prove(transcript *Transcript, statement Statement, witness Witness) Proof {
	n := statement.GBold.Len()
	if n == 0 || (n&(n-1)) != 0 {
		panic("wip: vector length must be a nonzero power of two")
	}
	if statement.HBold.Len() != n || witness.A.Len() != n || witness.B.Len() != n {
		panic("wip: vector length mismatch")
	}

	g, h := statement.G, statement.H
	gBold := append(linalg.PointVector{}, statement.GBold...)
	hBoldPrime := rescaleGeneratorsByInverseWeight(statement.HBold, statement.Y)
	a := append(linalg.ScalarVector{}, witness.A...)
	bPrime := rescaleByWeight(witness.B, statement.Y)
	alpha := witness.Alpha

	var ls, rs []curve.GroupPoint

	for len(a) > 1 {
		k := len(a) / 2
		a1, a2 := a[:k], a[k:]
		b1, b2 := bPrime[:k], bPrime[k:]
		g1, g2 := gBold[:k], gBold[k:]
		h1, h2 := hBoldPrime[:k], hBoldPrime[k:]

		cL := a1.InnerProduct(b2)
		cR := a2.InnerProduct(b1)

		dL := mustRandom()
		dR := mustRandom()

		L := g2.MultiScalarMul(a1).Add(h1.MultiScalarMul(b2)).Add(g.ScalarMul(cL)).Add(h.ScalarMul(dL))
		R := g1.MultiScalarMul(a2).Add(h2.MultiScalarMul(b1)).Add(g.ScalarMul(cR)).Add(h.ScalarMul(dR))

		transcript.AppendPoint("wip-L", L)
		transcript.AppendPoint("wip-R", R)
		e := transcript.Challenge("wip-e")
		eInv := e.Invert()

		a = foldScalars(a1, a2, e, eInv)
		bPrime = foldScalars(b1, b2, eInv, e)
		gBold = foldPoints(g1, g2, eInv, e)
		hBoldPrime = foldPoints(h1, h2, e, eInv)

		eSq := e.Mul(e)
		eInvSq := eInv.Mul(eInv)
		alpha = alpha.Add(dL.Mul(eSq)).Add(dR.Mul(eInvSq))

		ls = append(ls, L)
		rs = append(rs, R)
	}

	return Proof{L: ls, R: rs, A: a[0], B: bPrime[0], Alpha: alpha}
}

// Verify replays the transcript, folds the generators and commitment, and
// checks the single base-case equation.
func Verify(transcript *Transcript, statement Statement, proof Proof) error {
	n := statement.GBold.Len()
	if n == 0 || (n&(n-1)) != 0 {
		panic("wip: vector length must be a nonzero power of two")
	}
	if len(proof.L) != len(proof.R) {
		return ErrVerificationFailed
	}

	g, h := statement.G, statement.H
	gBold := append(linalg.PointVector{}, statement.GBold...)
	hBoldPrime := rescaleGeneratorsByInverseWeight(statement.HBold, statement.Y)
	p := statement.P

	for round := range proof.L {
		k := len(gBold) / 2
		g1, g2 := gBold[:k], gBold[k:]
		h1, h2 := hBoldPrime[:k], hBoldPrime[k:]

		transcript.AppendPoint("wip-L", proof.L[round])
		transcript.AppendPoint("wip-R", proof.R[round])
		e := transcript.Challenge("wip-e")
		eInv := e.Invert()

		gBold = foldPoints(g1, g2, eInv, e)
		hBoldPrime = foldPoints(h1, h2, e, eInv)

		eSq := e.Mul(e)
		eInvSq := eInv.Mul(eInv)
		p = proof.L[round].ScalarMul(eSq).Add(p).Add(proof.R[round].ScalarMul(eInvSq))
	}

	expected := gBold[0].ScalarMul(proof.A).
		Add(hBoldPrime[0].ScalarMul(proof.B)).
		Add(g.ScalarMul(proof.A.Mul(proof.B))).
		Add(h.ScalarMul(proof.Alpha))

	if !expected.Equal(p) {
		return ErrVerificationFailed
	}
	return nil
}

// EvalStatement is the public input to an evaluation proof: a commitment to
// a secret vector a, plus a PUBLIC weight vector B such that P is claimed to
// open to (a, alpha) with <a, B> folded in as P's scalar component. Unlike
// Statement/Proof above, B needs no hiding generator — the verifier folds it
// itself each round — so there is no H vector at all. Used by
// internal/bulletproof to bind the arithmetic-circuit witness to its public
// constraint-matrix combination; no source file in the retrieved pack
// defined this reduction (arithmetic_circuit_proof.rs was referenced but not
// present), so it was derived here from spec.md §4.7's description and
// verified by hand against the same halving identity used by Prove/Verify
// above, dropping the <b,H> term since b carries no secret here.
type EvalStatement struct {
	G, H  curve.GroupPoint
	GBold linalg.PointVector
	B     linalg.ScalarVector
	P     curve.GroupPoint
}

// EvalWitness is the prover's secret opening.
type EvalWitness struct {
	A     linalg.ScalarVector
	Alpha curve.FieldElement
}

// EvalProof is the recursive halving proof: one (L, R) pair per round plus
// the base-case scalar and blind. The folded B value at the base case is not
// sent — the verifier recomputes it independently from the public B vector.
type EvalProof struct {
	L, R  []curve.GroupPoint
	A     curve.FieldElement
	Alpha curve.FieldElement
}

// ProveEvaluation proves knowledge of (a, alpha) opening P = <a,G> + g*<a,B> + h*alpha
// for the public weight vector B.
func ProveEvaluation(transcript *Transcript, statement EvalStatement, witness EvalWitness) EvalProof {
	n := statement.GBold.Len()
	if n == 0 || (n&(n-1)) != 0 {
		panic("wip: vector length must be a nonzero power of two")
	}
	if statement.B.Len() != n || witness.A.Len() != n {
		panic("wip: vector length mismatch")
	}

	g, h := statement.G, statement.H
	gBold := append(linalg.PointVector{}, statement.GBold...)
	b := append(linalg.ScalarVector{}, statement.B...)
	a := append(linalg.ScalarVector{}, witness.A...)
	alpha := witness.Alpha

	var ls, rs []curve.GroupPoint

	for len(a) > 1 {
		k := len(a) / 2
		a1, a2 := a[:k], a[k:]
		b1, b2 := b[:k], b[k:]
		g1, g2 := gBold[:k], gBold[k:]

		cL := a1.InnerProduct(b2)
		cR := a2.InnerProduct(b1)

		dL := mustRandom()
		dR := mustRandom()

		L := g2.MultiScalarMul(a1).Add(g.ScalarMul(cL)).Add(h.ScalarMul(dL))
		R := g1.MultiScalarMul(a2).Add(g.ScalarMul(cR)).Add(h.ScalarMul(dR))

		transcript.AppendPoint("wip-eval-L", L)
		transcript.AppendPoint("wip-eval-R", R)
		e := transcript.Challenge("wip-eval-e")
		eInv := e.Invert()

		a = foldScalars(a1, a2, e, eInv)
		b = foldScalars(b1, b2, eInv, e)
		gBold = foldPoints(g1, g2, eInv, e)

		eSq := e.Mul(e)
		eInvSq := eInv.Mul(eInv)
		alpha = alpha.Add(dL.Mul(eSq)).Add(dR.Mul(eInvSq))

		ls = append(ls, L)
		rs = append(rs, R)
	}

	return EvalProof{L: ls, R: rs, A: a[0], Alpha: alpha}
}

// VerifyEvaluation replays the transcript, folding both the generators and
// the public B vector, and checks the base-case equation.
func VerifyEvaluation(transcript *Transcript, statement EvalStatement, proof EvalProof) error {
	n := statement.GBold.Len()
	if n == 0 || (n&(n-1)) != 0 {
		panic("wip: vector length must be a nonzero power of two")
	}
	if statement.B.Len() != n {
		panic("wip: vector length mismatch")
	}
	if len(proof.L) != len(proof.R) {
		return ErrVerificationFailed
	}

	g, h := statement.G, statement.H
	gBold := append(linalg.PointVector{}, statement.GBold...)
	b := append(linalg.ScalarVector{}, statement.B...)
	p := statement.P

	for round := range proof.L {
		k := len(gBold) / 2
		g1, g2 := gBold[:k], gBold[k:]
		b1, b2 := b[:k], b[k:]

		transcript.AppendPoint("wip-eval-L", proof.L[round])
		transcript.AppendPoint("wip-eval-R", proof.R[round])
		e := transcript.Challenge("wip-eval-e")
		eInv := e.Invert()

		gBold = foldPoints(g1, g2, eInv, e)
		b = foldScalars(b1, b2, eInv, e)

		eSq := e.Mul(e)
		eInvSq := eInv.Mul(eInv)
		p = proof.L[round].ScalarMul(eSq).Add(p).Add(proof.R[round].ScalarMul(eInvSq))
	}

	expected := gBold[0].ScalarMul(proof.A).
		Add(g.ScalarMul(proof.A.Mul(b[0]))).
		Add(h.ScalarMul(proof.Alpha))

	if !expected.Equal(p) {
		return ErrVerificationFailed
	}
	return nil
}

func rescaleByWeight(b linalg.ScalarVector, y curve.FieldElement) linalg.ScalarVector {
	powers := linalg.Powers(y, b.Len()+1)[1:] // y^1 .. y^n
	out := make(linalg.ScalarVector, b.Len())
	for i := range b {
		out[i] = b[i].Mul(powers[i])
	}
	return out
}

func rescaleGeneratorsByInverseWeight(h linalg.PointVector, y curve.FieldElement) linalg.PointVector {
	yInv := y.Invert()
	powers := linalg.Powers(yInv, h.Len()+1)[1:] // y^-1 .. y^-n
	out := make(linalg.PointVector, h.Len())
	for i := range h {
		out[i] = h[i].ScalarMul(powers[i])
	}
	return out
}

func foldScalars(x1, x2 linalg.ScalarVector, e1, e2 curve.FieldElement) linalg.ScalarVector {
	out := make(linalg.ScalarVector, len(x1))
	for i := range x1 {
		out[i] = x1[i].Mul(e1).Add(x2[i].Mul(e2))
	}
	return out
}

func foldPoints(x1, x2 linalg.PointVector, e1, e2 curve.FieldElement) linalg.PointVector {
	out := make(linalg.PointVector, len(x1))
	for i := range x1 {
		out[i] = x1[i].ScalarMul(e1).Add(x2[i].ScalarMul(e2))
	}
	return out
}

func mustRandom() curve.FieldElement {
	f, err := curve.RandomFieldElement()
	if err != nil {
		panic("wip: random scalar: " + err.Error())
	}
	return f
}
