// Copyright 2025 Certen Protocol
//
// FROST-style two-round threshold signing, per spec.md §4.9: preprocess
// (nonce commitments) then share (partial signature), relayed by the
// coordinator/log and never touching the group secret key directly.
// Grounded on original_source/processor/src/key_gen.rs's machine-rebuild
// and deterministic-RNG discipline, carried over from the DKG sibling
// since the source tree shares the same per-attempt machine shape between
// key generation and signing.

package signing

import (
	"fmt"
	"sync"

	"github.com/certen/tss-coordinator/internal/curve"
	"github.com/certen/tss-coordinator/internal/dkg"
	"github.com/certen/tss-coordinator/internal/zeroize"
)

// ID identifies one signing attempt: a plan and an attempt counter. Batch
// and Sign zones share this shape (spec.md §3's AttemptState keying).
type ID struct {
	PlanID  [32]byte
	Attempt uint32
}

// PreprocessMessage is round 1: two nonce commitments per FROST.
type PreprocessMessage struct {
	D, E curve.GroupPoint
}

// Bytes serializes a PreprocessMessage.
func (m PreprocessMessage) Bytes() []byte {
	d, e := m.D.Bytes(), m.E.Bytes()
	out := make([]byte, 0, len(d)+len(e))
	out = append(out, d[:]...)
	return append(out, e[:]...)
}

// PreprocessFromBytes parses the Bytes() encoding.
func PreprocessFromBytes(b []byte) (PreprocessMessage, error) {
	if len(b) != 2*curve.PointBytes {
		return PreprocessMessage{}, fmt.Errorf("signing: malformed preprocess message")
	}
	var db, eb [curve.PointBytes]byte
	copy(db[:], b[:curve.PointBytes])
	copy(eb[:], b[curve.PointBytes:])
	d, err := curve.FromBytes(db)
	if err != nil {
		return PreprocessMessage{}, fmt.Errorf("signing: D point: %w", err)
	}
	e, err := curve.FromBytes(eb)
	if err != nil {
		return PreprocessMessage{}, fmt.Errorf("signing: E point: %w", err)
	}
	return PreprocessMessage{D: d, E: e}, nil
}

// ShareMessage is round 2: a FROST partial signature.
type ShareMessage struct {
	Z curve.FieldElement
}

// Bytes serializes a ShareMessage.
func (m ShareMessage) Bytes() []byte {
	b := m.Z.Bytes()
	return b[:]
}

// ShareFromBytes parses the Bytes() encoding.
func ShareFromBytes(b []byte) (ShareMessage, error) {
	if len(b) != curve.FieldBytes {
		return ShareMessage{}, fmt.Errorf("signing: malformed share message")
	}
	var zb [curve.FieldBytes]byte
	copy(zb[:], b)
	z, err := curve.FieldFromBytes(zb)
	if err != nil {
		return ShareMessage{}, fmt.Errorf("signing: share scalar: %w", err)
	}
	return ShareMessage{Z: z}, nil
}

type nonceState struct {
	d, e *zeroize.Scalar
	D, E curve.GroupPoint
}

// Machine runs FROST preprocess/share for one validator across many
// concurrent plans and attempts, mirroring the DKG Machine's per-attempt
// in-memory state plus deterministic reconstruction.
type Machine struct {
	selfIndex int
	keys      dkg.GeneratedKeys
	entropy   [32]byte

	mu     sync.Mutex
	active map[ID]*nonceState
}

// NewMachine constructs a signing machine bound to one validator's
// confirmed key share.
func NewMachine(selfIndex int, keys dkg.GeneratedKeys, entropy [32]byte) *Machine {
	return &Machine{selfIndex: selfIndex, keys: keys, entropy: entropy, active: make(map[ID]*nonceState)}
}

func (m *Machine) nonceRNG(id ID) func(label string) curve.FieldElement {
	base := make([]byte, 0, 32+32+4)
	base = append(base, m.entropy[:]...)
	base = append(base, id.PlanID[:]...)
	base = appendU32(base, id.Attempt)
	return func(label string) curve.FieldElement {
		return curve.HashToScalar([]byte(label), base)
	}
}

func appendU32(b []byte, v uint32) []byte {
	return append(b, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// Preprocess runs spec.md §4.9 round 1: sample nonces d, e deterministically
// for this attempt and publish their commitments.
func (m *Machine) Preprocess(id ID) PreprocessMessage {
	rng := m.nonceRNG(id)
	d := rng("frost-nonce-d")
	e := rng("frost-nonce-e")
	st := &nonceState{
		d: zeroize.NewScalar(d),
		e: zeroize.NewScalar(e),
		D: curve.Generator().ScalarMul(d),
		E: curve.Generator().ScalarMul(e),
	}
	m.mu.Lock()
	m.active[id] = st
	m.mu.Unlock()
	return PreprocessMessage{D: st.D, E: st.E}
}

// bindingFactor computes FROST's per-signer rho_i from a transcript of the
// message and every signer's (D, E) pair, binding each signer's nonces to
// the exact set of co-signers for this attempt.
func bindingFactor(msg []byte, index int, preprocesses map[int]PreprocessMessage) curve.FieldElement {
	buf := make([]byte, 0, 256)
	buf = append(buf, msg...)
	buf = appendU32(buf, uint32(index))
	for i := 1; i <= len(preprocesses); i++ {
		p, ok := preprocesses[i]
		if !ok {
			continue
		}
		d, e := p.D.Bytes(), p.E.Bytes()
		buf = append(buf, d[:]...)
		buf = append(buf, e[:]...)
	}
	return curve.HashToScalar([]byte("frost-binding-factor"), buf)
}

// groupCommitment computes FROST's aggregate nonce commitment R = Σ (D_i + rho_i*E_i).
func groupCommitment(msg []byte, preprocesses map[int]PreprocessMessage) curve.GroupPoint {
	acc := curve.Identity()
	for i := 1; i <= len(preprocesses); i++ {
		p, ok := preprocesses[i]
		if !ok {
			continue
		}
		rho := bindingFactor(msg, i, preprocesses)
		acc = acc.Add(p.D.Add(p.E.ScalarMul(rho)))
	}
	return acc
}

// challenge computes FROST's Schnorr-style challenge c = H(R, groupKey, msg).
func challenge(r, groupKey curve.GroupPoint, msg []byte) curve.FieldElement {
	rb, gb := r.Bytes(), groupKey.Bytes()
	buf := make([]byte, 0, len(rb)+len(gb)+len(msg))
	buf = append(buf, rb[:]...)
	buf = append(buf, gb[:]...)
	buf = append(buf, msg...)
	return curve.HashToScalar([]byte("frost-challenge"), buf)
}

// lagrangeCoefficient computes the Lagrange basis polynomial for index i
// evaluated at 0, over the given signing set.
func lagrangeCoefficient(i int, signingSet []int) curve.FieldElement {
	num := curve.One()
	den := curve.One()
	for _, j := range signingSet {
		if j == i {
			continue
		}
		num = num.Mul(curve.FieldFromUint64(uint64(j)))
		den = den.Mul(curve.FieldFromUint64(uint64(j)).Sub(curve.FieldFromUint64(uint64(i))))
	}
	return num.Mul(den.Invert())
}

// Share runs spec.md §4.9 round 2: produce this participant's partial
// signature z_i = d_i + e_i*rho_i + lambda_i*share_i*c, over the aggregate
// nonce commitment and group challenge derived from every signer's
// preprocess.
func (m *Machine) Share(id ID, msg []byte, signingSet []int, preprocesses map[int]PreprocessMessage) (ShareMessage, error) {
	m.mu.Lock()
	st, ok := m.active[id]
	if ok {
		delete(m.active, id)
	}
	m.mu.Unlock()
	if !ok {
		// Reconstructed deterministically: identical nonces as the original
		// Preprocess call for this attempt.
		rng := m.nonceRNG(id)
		d := rng("frost-nonce-d")
		e := rng("frost-nonce-e")
		st = &nonceState{d: zeroize.NewScalar(d), e: zeroize.NewScalar(e),
			D: curve.Generator().ScalarMul(d), E: curve.Generator().ScalarMul(e)}
	}
	defer st.d.Release()
	defer st.e.Release()

	if _, ok := preprocesses[m.selfIndex]; !ok {
		return ShareMessage{}, fmt.Errorf("signing: own preprocess missing from aggregation for %+v", id)
	}

	rho := bindingFactor(msg, m.selfIndex, preprocesses)
	r := groupCommitment(msg, preprocesses)
	c := challenge(r, m.keys.GroupKey, msg)
	lambda := lagrangeCoefficient(m.selfIndex, signingSet)

	z := st.d.Value().Add(st.e.Value().Mul(rho)).Add(lambda.Mul(m.keys.Share).Mul(c))
	return ShareMessage{Z: z}, nil
}

// Aggregate combines every signer's partial signature into the final
// Schnorr signature (R, z), completing spec.md §4.9.
func Aggregate(msg []byte, groupKey curve.GroupPoint, preprocesses map[int]PreprocessMessage, shares map[int]ShareMessage) (curve.GroupPoint, curve.FieldElement) {
	r := groupCommitment(msg, preprocesses)
	z := curve.Zero()
	for _, s := range shares {
		z = z.Add(s.Z)
	}
	return r, z
}

// Verify checks a completed FROST signature (R, z) against the group key.
func Verify(msg []byte, groupKey, r curve.GroupPoint, z curve.FieldElement) bool {
	c := challenge(r, groupKey, msg)
	lhs := curve.Generator().ScalarMul(z)
	rhs := r.Add(groupKey.ScalarMul(c))
	return lhs.Equal(rhs)
}
