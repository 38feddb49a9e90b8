// Copyright 2025 Certen Protocol
//
// DKG state machine, per spec.md §4.8: Init/Commit/Share/Complete, driven
// by messages the EventReducer assembles once enough signers are seen.
// Grounded on original_source/processor/src/key_gen.rs's KeyGen<C, D>:
// active_commit/active_share in-memory machines, supersession on a new
// GenerateKey for the same set, and rebuild-from-persisted-commitments when
// a machine is missing from memory after a crash.

package dkg

import (
	"fmt"
	"sync"

	"github.com/certen/tss-coordinator/internal/curve"
	"github.com/certen/tss-coordinator/internal/kvstore"
	"github.com/certen/tss-coordinator/internal/zeroize"
)

// secretShareMachine holds the state produced by Init/Commit: this
// participant's secret coefficients and its own commitments, kept until
// Share is driven.
type secretShareMachine struct {
	id           ID
	index        int
	n, t         int
	coefficients *zeroize.ScalarSlice // degree t-1: a_0 .. a_{t-1}
	commitments  []curve.GroupPoint
	pok          SchnorrProof
}

// keyMachine holds the state after Share is driven: the secret shares this
// participant generated for every peer, pending receipt of everyone else's.
type keyMachine struct {
	secretShareMachine
	ownShares map[int]curve.FieldElement // f_i(j) this participant generated, by recipient j
}

// Machine runs the DKG protocol for one cohort, mirroring KeyGen<C, D>'s
// per-set active-machine maps. A Machine is scoped to a single validator
// (its own long-term key and entropy).
type Machine struct {
	store          *kvstore.Store
	entropy        [32]byte
	selfIndex      int
	selfLongTerm   curve.FieldElement
	peerLongTerm   map[int]curve.GroupPoint // index -> long-term public key, including self

	mu           sync.Mutex
	activeCommit map[uint32]*secretShareMachine
	activeShare  map[uint32]*keyMachine
}

// NewMachine constructs a DKG machine for one validator.
func NewMachine(store *kvstore.Store, entropy [32]byte, selfIndex int, selfLongTerm curve.FieldElement, peerLongTerm map[int]curve.GroupPoint) *Machine {
	return &Machine{
		store:        store,
		entropy:      entropy,
		selfIndex:    selfIndex,
		selfLongTerm: selfLongTerm,
		peerLongTerm: peerLongTerm,
		activeCommit: make(map[uint32]*secretShareMachine),
		activeShare:  make(map[uint32]*keyMachine),
	}
}

func (m *Machine) rng(label string, id ID) *deterministicRNG {
	return newDeterministicRNG(label, m.entropy, id, m.selfIndex)
}

// generateCoefficients runs spec.md §4.8 step 1: sample a degree-(t-1)
// polynomial deterministically and compute its commitments plus a PoK of
// a_0.
func (m *Machine) generateCoefficients(id ID, n, t int) *secretShareMachine {
	rng := m.rng("dkg-coefficients", id)
	coeffs := make([]curve.FieldElement, t)
	commitments := make([]curve.GroupPoint, t)
	for j := 0; j < t; j++ {
		coeffs[j] = rng.scalar()
		commitments[j] = curve.Generator().ScalarMul(coeffs[j])
	}
	pok := ProveSchnorr(id, coeffs[0], commitments[0], rng)
	return &secretShareMachine{
		id:           id,
		index:        m.selfIndex,
		n:            n,
		t:            t,
		coefficients: zeroize.NewScalarSlice(coeffs),
		commitments:  commitments,
		pok:          pok,
	}
}

// GenerateKey starts a new DKG attempt for a cohort "set". A new attempt for
// the same set clears both active in-memory machines (spec.md §4.8 "Attempt
// supersession"); params are persisted once per set, not per attempt.
func (m *Machine) GenerateKey(txn *kvstore.Txn, id ID, n, t int) (CommitmentsMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, hadCommit := m.activeCommit[id.Set]
	_, hadShare := m.activeShare[id.Set]
	delete(m.activeCommit, id.Set)
	delete(m.activeShare, id.Set)
	if !hadCommit && !hadShare {
		if err := saveParams(txn, id.Set, Params{N: n, T: t}); err != nil {
			return CommitmentsMessage{}, fmt.Errorf("dkg: save params: %w", err)
		}
	}

	machine := m.generateCoefficients(id, n, t)
	m.activeCommit[id.Set] = machine

	return CommitmentsMessage{Commitments: machine.commitments, PoK: machine.pok}, nil
}

// rebuildCommitMachine reconstructs step 1's machine from persisted params,
// used when a Commitments message arrives but this process never saw (or
// lost, via restart) the in-memory machine for this attempt.
func (m *Machine) rebuildCommitMachine(id ID) (*secretShareMachine, error) {
	params, ok, err := loadParams(m.store, id.Set)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("dkg: no params persisted for set %d", id.Set)
	}
	return m.generateCoefficients(id, params.N, params.T), nil
}

// HandleCommitments runs spec.md §4.8 step 3: on receipt of all n
// commitments (already verified and assembled by the caller, one per
// index), emit this participant's encrypted shares.
func (m *Machine) HandleCommitments(txn *kvstore.Txn, id ID, byIndex map[int]CommitmentsMessage) (map[int]ShareMessage, error) {
	m.mu.Lock()
	machine, ok := m.activeCommit[id.Set]
	if ok {
		delete(m.activeCommit, id.Set)
	}
	if _, sharing := m.activeShare[id.Set]; sharing {
		m.mu.Unlock()
		return nil, fmt.Errorf("dkg: commitments received for %+v after shares already handled", id)
	}
	m.mu.Unlock()

	if !ok {
		var err error
		machine, err = m.rebuildCommitMachine(id)
		if err != nil {
			return nil, err
		}
	}

	for idx, msg := range byIndex {
		if len(msg.Commitments) != machine.t {
			return nil, fmt.Errorf("dkg: participant %d sent %d commitments, want %d", idx, len(msg.Commitments), machine.t)
		}
		if !VerifySchnorr(id, msg.Commitments[0], msg.PoK) {
			return nil, fmt.Errorf("dkg: participant %d: invalid PoK", idx)
		}
	}

	shares := make(map[int]curve.FieldElement, machine.n)
	out := make(map[int]ShareMessage, machine.n)
	for j := 1; j <= machine.n; j++ {
		share := evaluatePolynomial(machine.coefficients.Value(), curve.FieldFromUint64(uint64(j)))
		shares[j] = share
		if j == machine.index {
			continue
		}
		peerPub, ok := m.peerLongTerm[j]
		if !ok {
			return nil, fmt.Errorf("dkg: no long-term key for participant %d", j)
		}
		sb := share.Bytes()
		env, err := Encrypt(peerPub, sb[:])
		if err != nil {
			return nil, fmt.Errorf("dkg: encrypt share for %d: %w", j, err)
		}
		out[j] = ShareMessage{Envelope: env}
	}

	if err := saveCommitments(txn, id, machine.n, byIndex); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.activeShare[id.Set] = &keyMachine{secretShareMachine: *machine, ownShares: shares}
	m.mu.Unlock()

	return out, nil
}

// rebuildShareMachine reconstructs through step 3 from persisted
// commitments, used when a Shares message arrives but this process lost
// the in-memory keyMachine.
func (m *Machine) rebuildShareMachine(id ID) (*keyMachine, error) {
	machine, err := m.rebuildCommitMachine(id)
	if err != nil {
		return nil, err
	}
	byIndex, err := loadCommitments(m.store, id)
	if err != nil {
		return nil, err
	}
	if byIndex == nil {
		return nil, fmt.Errorf("dkg: no persisted commitments for %+v", id)
	}
	shares := make(map[int]curve.FieldElement, machine.n)
	for j := 1; j <= machine.n; j++ {
		shares[j] = evaluatePolynomial(machine.coefficients.Value(), curve.FieldFromUint64(uint64(j)))
	}
	return &keyMachine{secretShareMachine: *machine, ownShares: shares}, nil
}

// HandleShares runs spec.md §4.8 step 4: decrypt and verify the inbound
// shares against peers' commitments, then derive the group key, this
// participant's share, and its verification share.
func (m *Machine) HandleShares(txn *kvstore.Txn, id ID, byIndex map[int]ShareMessage, commitmentsByIndex map[int]CommitmentsMessage) (GeneratedKeys, error) {
	m.mu.Lock()
	machine, ok := m.activeShare[id.Set]
	if ok {
		delete(m.activeShare, id.Set)
	}
	m.mu.Unlock()

	if !ok {
		var err error
		machine, err = m.rebuildShareMachine(id)
		if err != nil {
			return GeneratedKeys{}, err
		}
		if commitmentsByIndex == nil {
			commitmentsByIndex, err = loadCommitments(m.store, id)
			if err != nil {
				return GeneratedKeys{}, err
			}
		}
	}

	secretShareTotal := machine.ownShares[machine.index]
	verification := curve.Identity()
	groupKey := curve.Identity()
	self := curve.FieldFromUint64(uint64(machine.index))

	for j := 1; j <= machine.n; j++ {
		cm, ok := commitmentsByIndex[j]
		if !ok {
			return GeneratedKeys{}, fmt.Errorf("dkg: missing commitments from participant %d", j)
		}
		groupKey = groupKey.Add(cm.Commitments[0])
		expected := evaluateCommitment(cm.Commitments, self)
		verification = verification.Add(expected)

		if j == machine.index {
			continue
		}
		env, ok := byIndex[j]
		if !ok {
			return GeneratedKeys{}, fmt.Errorf("dkg: missing share from participant %d", j)
		}
		raw, err := Decrypt(m.selfLongTerm, env.Envelope)
		if err != nil {
			return GeneratedKeys{}, fmt.Errorf("dkg: decrypt share from %d: %w", j, err)
		}
		var sb [curve.FieldBytes]byte
		if len(raw) != curve.FieldBytes {
			return GeneratedKeys{}, fmt.Errorf("dkg: malformed share from %d", j)
		}
		copy(sb[:], raw)
		share, err := curve.FieldFromBytes(sb)
		if err != nil {
			return GeneratedKeys{}, fmt.Errorf("dkg: invalid share scalar from %d: %w", j, err)
		}
		if !curve.Generator().ScalarMul(share).Equal(expected) {
			return GeneratedKeys{}, fmt.Errorf("dkg: share from %d does not match commitments", j)
		}
		secretShareTotal = secretShareTotal.Add(share)
	}

	keys := GeneratedKeys{GroupKey: groupKey, Share: secretShareTotal, VerificationKey: verification}
	if err := saveGeneratedKeys(txn, id, keys); err != nil {
		return GeneratedKeys{}, err
	}
	return keys, nil
}

// ConfirmKey finalizes an attempt as the session's key, copying
// generated_keys(id) to keys(group_key) per spec.md §4.8 "Complete".
func (m *Machine) ConfirmKey(txn *kvstore.Txn, id ID) (GeneratedKeys, error) {
	return confirmKeys(txn, m.store, id)
}

func evaluatePolynomial(coeffs []curve.FieldElement, x curve.FieldElement) curve.FieldElement {
	acc := curve.Zero()
	power := curve.One()
	for _, c := range coeffs {
		acc = acc.Add(c.Mul(power))
		power = power.Mul(x)
	}
	return acc
}

func evaluateCommitment(commitments []curve.GroupPoint, x curve.FieldElement) curve.GroupPoint {
	acc := curve.Identity()
	power := curve.One()
	for _, c := range commitments {
		acc = acc.Add(c.ScalarMul(power))
		power = power.Mul(x)
	}
	return acc
}
