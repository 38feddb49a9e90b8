// Copyright 2025 Certen Protocol
//
// Arithmetic-circuit prover/verifier with vector commitments. Grounded on
// original_source/crypto/bulletproofs-plus/src/arithmetic_circuit.rs's
// prove_with_vector_commitments / verify_with_vector_commitments /
// vector_commitment_statement / well_formed functions: for each declared
// vector commitment the prover sends Cv plus two proofs of knowledge of its
// opening (split across two disjoint halves of its bound witness
// positions), an analogous pair covers the unbound "others" positions, and
// a single proof binds the full witness to the circuit's constraint
// matrices. arithmetic_circuit_proof.rs itself — which would define the
// exact polynomial reduction used for that final binding proof — was
// referenced by the retrieved file but not present in the pack, so that
// reduction is internal/wip's ProveEvaluation/VerifyEvaluation, derived from
// spec.md §4.7's text rather than a source file (see that file's header).
package bulletproof

import (
	"errors"

	"github.com/certen/tss-coordinator/internal/circuit"
	"github.com/certen/tss-coordinator/internal/curve"
	"github.com/certen/tss-coordinator/internal/linalg"
	"github.com/certen/tss-coordinator/internal/wip"
)

// ErrVerificationFailed is returned when any sub-proof fails to verify.
var ErrVerificationFailed = errors.New("bulletproof: verification failed")

// OpeningProof is a single vector commitment's (or the "others" bucket's)
// well-formedness proof: the commitment is split into two disjoint halves,
// each proven open via its own evaluation-style proof of knowledge.
type OpeningProof struct {
	Split  curve.GroupPoint
	First  wip.EvalProof
	Second wip.EvalProof
}

// Proof is a full arithmetic-circuit proof with vector commitments.
type Proof struct {
	VectorCommitments []curve.GroupPoint
	VCOpenings        []OpeningProof
	OtherOpening      OpeningProof
	OtherCommitment   curve.GroupPoint
	hasOther          bool
	Main              wip.EvalProof
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func padEntries(entries []circuit.VCEntry) []circuit.VCEntry {
	target := nextPow2(len(entries))
	out := append([]circuit.VCEntry{}, entries...)
	for len(out) < target {
		out = append(out, circuit.VCEntry{Value: curve.Zero(), HasValue: true, Generator: curve.Identity()})
	}
	return out
}

// proveOpening builds the two-half evaluation proof for one commitment's
// bound entries, given the full blind that commitment was built with.
func proveOpening(transcript *wip.Transcript, g, h curve.GroupPoint, entries []circuit.VCEntry, blind curve.FieldElement) OpeningProof {
	padded := padEntries(entries)
	k := len(padded) / 2
	firstEntries, secondEntries := padded[:k], padded[k:]

	firstGens := make(linalg.PointVector, len(firstEntries))
	firstVals := make(linalg.ScalarVector, len(firstEntries))
	for i, e := range firstEntries {
		firstGens[i] = e.Generator
		firstVals[i] = e.Value
	}
	secondGens := make(linalg.PointVector, len(secondEntries))
	secondVals := make(linalg.ScalarVector, len(secondEntries))
	for i, e := range secondEntries {
		secondGens[i] = e.Generator
		secondVals[i] = e.Value
	}

	split := secondGens.MultiScalarMul(secondVals)

	firstP := firstGens.MultiScalarMul(firstVals).Add(h.ScalarMul(blind))
	first := wip.ProveEvaluation(transcript, wip.EvalStatement{
		G: g, H: h, GBold: firstGens, B: linalg.NewScalarVector(len(firstGens)), P: firstP,
	}, wip.EvalWitness{A: firstVals, Alpha: blind})

	second := wip.ProveEvaluation(transcript, wip.EvalStatement{
		G: g, H: h, GBold: secondGens, B: linalg.NewScalarVector(len(secondGens)), P: split,
	}, wip.EvalWitness{A: secondVals, Alpha: curve.Zero()})

	return OpeningProof{Split: split, First: first, Second: second}
}

func verifyOpening(transcript *wip.Transcript, g, h curve.GroupPoint, entries []circuit.VCEntry, commitment curve.GroupPoint, proof OpeningProof) error {
	padded := padEntries(entries)
	k := len(padded) / 2
	firstEntries, secondEntries := padded[:k], padded[k:]

	firstGens := make(linalg.PointVector, len(firstEntries))
	for i, e := range firstEntries {
		firstGens[i] = e.Generator
	}
	secondGens := make(linalg.PointVector, len(secondEntries))
	for i, e := range secondEntries {
		secondGens[i] = e.Generator
	}

	firstP := commitment.Add(proof.Split.Neg())
	if err := wip.VerifyEvaluation(transcript, wip.EvalStatement{
		G: g, H: h, GBold: firstGens, B: linalg.NewScalarVector(len(firstGens)), P: firstP,
	}, proof.First); err != nil {
		return ErrVerificationFailed
	}

	if err := wip.VerifyEvaluation(transcript, wip.EvalStatement{
		G: g, H: h, GBold: secondGens, B: linalg.NewScalarVector(len(secondGens)), P: proof.Split,
	}, proof.Second); err != nil {
		return ErrVerificationFailed
	}
	return nil
}

// Prove builds a full proof for a compiled prover circuit. vcBlinds must
// have one entry per vector commitment bucket (in allocation order);
// otherBlind blinds the unbound "others" bucket. vectorCommitments are the
// bucket commitments the caller built (via Circuit.FinalizeCommitment); Prove
// neither recomputes nor checks them against vcEntries and vcBlinds.
func Prove(transcript *wip.Transcript, statement *circuit.Statement, vcEntries [][]circuit.VCEntry, otherEntries []circuit.VCEntry, witness *circuit.Witness, vectorCommitments []curve.GroupPoint, vcBlinds []curve.FieldElement, otherBlind curve.FieldElement) Proof {
	if len(vcBlinds) != len(vcEntries) {
		panic("bulletproof: blind count must match vector commitment count")
	}

	openings := make([]OpeningProof, len(vcEntries))
	for i, entries := range vcEntries {
		transcript.AppendPoint("vc", vectorCommitments[i])
		openings[i] = proveOpening(transcript, statement.G, statement.H, entries, vcBlinds[i])
	}

	hasOther := len(otherEntries) > 0
	var otherOpening OpeningProof
	var otherCommitment curve.GroupPoint
	if hasOther {
		otherCommitment = computeCommitment(statement.H, otherEntries, otherBlind)
		transcript.AppendPoint("vc-other", otherCommitment)
		otherOpening = proveOpening(transcript, statement.G, statement.H, otherEntries, otherBlind)
	}

	main := proveMain(transcript, statement, witness)

	return Proof{
		VectorCommitments: vectorCommitments,
		VCOpenings:        openings,
		OtherOpening:       otherOpening,
		OtherCommitment:    otherCommitment,
		hasOther:           hasOther,
		Main:               main,
	}
}

func computeCommitment(h curve.GroupPoint, entries []circuit.VCEntry, blind curve.FieldElement) curve.GroupPoint {
	acc := h.ScalarMul(blind)
	for _, e := range entries {
		acc = acc.Add(e.Generator.ScalarMul(e.Value))
	}
	return acc
}

// proveMain binds the full witness to the circuit's constraint matrices via
// a single evaluation proof, as described in internal/wip's EvalStatement.
func proveMain(transcript *wip.Transcript, statement *circuit.Statement, witness *circuit.Witness) wip.EvalProof {
	n := witness.AL.Len()
	q := statement.C.Len()
	zPowers := linalg.Powers(transcript.Challenge("circuit-z"), q)

	wLz := statement.WL.RowCombination(zPowers)
	wRz := statement.WR.RowCombination(zPowers)
	wOz := statement.WO.RowCombination(zPowers)
	wVz := statement.WV.RowCombination(zPowers)
	cz := statement.C.InnerProduct(zPowers)

	aO := witness.AL.Hadamard(witness.AR)

	a := make(linalg.ScalarVector, 0, 3*n)
	a = append(a, witness.AL...)
	a = append(a, witness.AR...)
	a = append(a, aO...)

	b := make(linalg.ScalarVector, 0, 3*n)
	b = append(b, wLz...)
	b = append(b, wRz...)
	b = append(b, wOz...)

	g := make(linalg.PointVector, 0, 3*n)
	g = append(g, statement.GBold1...)
	g = append(g, statement.HBold1...)
	g = append(g, statement.GBold2...)

	target := nextPow2(3 * n)
	for a.Len() < target {
		a = append(a, curve.Zero())
		b = append(b, curve.Zero())
		g = append(g, curve.Identity())
	}

	return wip.ProveEvaluation(transcript, wip.EvalStatement{
		G: statement.G, H: statement.H, GBold: g, B: b, P: mainStatementPoint(statement, wVz, cz, vecCommitmentFromAG(statement, a, g)),
	}, wip.EvalWitness{A: a, Alpha: mainAlpha(witness, wVz)})
}

func vecCommitmentFromAG(statement *circuit.Statement, a linalg.ScalarVector, g linalg.PointVector) curve.GroupPoint {
	return g.MultiScalarMul(a)
}

func mainAlpha(witness *circuit.Witness, wVz linalg.ScalarVector) curve.FieldElement {
	return witness.Gamma.InnerProduct(wVz[:witness.Gamma.Len()])
}

func mainStatementPoint(statement *circuit.Statement, wVz linalg.ScalarVector, cz curve.FieldElement, commitmentAG curve.GroupPoint) curve.GroupPoint {
	wVzV := statement.V.MultiScalarMul(wVz[:statement.V.Len()])
	return commitmentAG.Add(wVzV).Add(statement.G.ScalarMul(cz))
}

// Verify checks a full proof against a compiled verifier circuit.
func Verify(transcript *wip.Transcript, statement *circuit.Statement, vcEntries [][]circuit.VCEntry, otherEntries []circuit.VCEntry, proof Proof) error {
	if len(proof.VCOpenings) != len(vcEntries) || len(proof.VectorCommitments) != len(vcEntries) {
		return ErrVerificationFailed
	}

	for i, entries := range vcEntries {
		transcript.AppendPoint("vc", proof.VectorCommitments[i])
		if err := verifyOpening(transcript, statement.G, statement.H, entries, proof.VectorCommitments[i], proof.VCOpenings[i]); err != nil {
			return err
		}
	}

	hasOther := len(otherEntries) > 0
	if hasOther != proof.hasOther {
		return ErrVerificationFailed
	}
	if hasOther {
		transcript.AppendPoint("vc-other", proof.OtherCommitment)
		if err := verifyOpening(transcript, statement.G, statement.H, otherEntries, proof.OtherCommitment, proof.OtherOpening); err != nil {
			return err
		}
	}

	return verifyMain(transcript, statement, proof.Main)
}

func verifyMain(transcript *wip.Transcript, statement *circuit.Statement, proof wip.EvalProof) error {
	n := statement.GBold1.Len()
	q := statement.C.Len()
	zPowers := linalg.Powers(transcript.Challenge("circuit-z"), q)

	wLz := statement.WL.RowCombination(zPowers)
	wRz := statement.WR.RowCombination(zPowers)
	wOz := statement.WO.RowCombination(zPowers)
	wVz := statement.WV.RowCombination(zPowers)
	cz := statement.C.InnerProduct(zPowers)

	b := make(linalg.ScalarVector, 0, 3*n)
	b = append(b, wLz...)
	b = append(b, wRz...)
	b = append(b, wOz...)

	g := make(linalg.PointVector, 0, 3*n)
	g = append(g, statement.GBold1...)
	g = append(g, statement.HBold1...)
	g = append(g, statement.GBold2...)

	target := nextPow2(3 * n)
	for b.Len() < target {
		b = append(b, curve.Zero())
		g = append(g, curve.Identity())
	}

	wVzV := statement.V.MultiScalarMul(wVz[:statement.V.Len()])

	p := computeVerifierMainPoint(statement, wVzV, cz)

	return wip.VerifyEvaluation(transcript, wip.EvalStatement{
		G: statement.G, H: statement.H, GBold: g, B: b, P: p,
	}, proof)
}

func computeVerifierMainPoint(statement *circuit.Statement, wVzV curve.GroupPoint, cz curve.FieldElement) curve.GroupPoint {
	return wVzV.Add(statement.G.ScalarMul(cz))
}
