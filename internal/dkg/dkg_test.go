// Copyright 2025 Certen Protocol

package dkg

import (
	"testing"

	"github.com/certen/tss-coordinator/internal/curve"
	"github.com/certen/tss-coordinator/internal/kvstore"
)

// lagrangeAtZero computes the Lagrange coefficient for index xs[idx],
// evaluated at x=0, over the node set xs.
func lagrangeAtZero(xs []int, idx int) curve.FieldElement {
	xi := curve.FieldFromUint64(uint64(xs[idx]))
	num := curve.One()
	den := curve.One()
	for j, xj := range xs {
		if j == idx {
			continue
		}
		xjElem := curve.FieldFromUint64(uint64(xj))
		num = num.Mul(curve.Zero().Sub(xjElem))
		den = den.Mul(xi.Sub(xjElem))
	}
	return num.Mul(den.Invert())
}

// participant bundles one validator's long-term keypair and DKG machine for
// a simulated n=3, t=2 run.
type participant struct {
	index      int
	longTerm   curve.FieldElement
	longTermPK curve.GroupPoint
	store      *kvstore.Store
	machine    *Machine
}

func newParticipants(t *testing.T, n int) []*participant {
	t.Helper()
	ps := make([]*participant, n)
	pubs := make(map[int]curve.GroupPoint, n)
	for i := 1; i <= n; i++ {
		priv := curve.HashToScalar([]byte("test-long-term"), []byte{byte(i)})
		pub := curve.Generator().ScalarMul(priv)
		ps[i-1] = &participant{index: i, longTerm: priv, longTermPK: pub, store: kvstore.NewMemory()}
		pubs[i] = pub
	}
	for i, p := range ps {
		var entropy [32]byte
		entropy[0] = byte(i + 1)
		p.machine = NewMachine(p.store, entropy, p.index, p.longTerm, pubs)
	}
	return ps
}

func TestDkgThreeOfThreeCommitteeDerivesSharedGroupKey(t *testing.T) {
	const n, tThreshold = 3, 2
	ps := newParticipants(t, n)
	id := ID{Set: 1, Attempt: 1}

	commitByIndex := make(map[int]CommitmentsMessage, n)
	for _, p := range ps {
		txn := p.store.Begin()
		msg, err := p.machine.GenerateKey(txn, id, n, tThreshold)
		if err != nil {
			t.Fatalf("participant %d GenerateKey: %v", p.index, err)
		}
		if err := txn.Commit(); err != nil {
			t.Fatalf("participant %d commit: %v", p.index, err)
		}
		if len(msg.Commitments) != tThreshold {
			t.Fatalf("participant %d: got %d commitments, want %d", p.index, len(msg.Commitments), tThreshold)
		}
		commitByIndex[p.index] = msg
	}

	// outbound[i][j] = the share participant i generated for participant j.
	outbound := make(map[int]map[int]ShareMessage, n)
	for _, p := range ps {
		txn := p.store.Begin()
		out, err := p.machine.HandleCommitments(txn, id, commitByIndex)
		if err != nil {
			t.Fatalf("participant %d HandleCommitments: %v", p.index, err)
		}
		if err := txn.Commit(); err != nil {
			t.Fatalf("participant %d commit: %v", p.index, err)
		}
		if len(out) != n-1 {
			t.Fatalf("participant %d: got %d outbound shares, want %d", p.index, len(out), n-1)
		}
		outbound[p.index] = out
	}

	keys := make(map[int]GeneratedKeys, n)
	for _, p := range ps {
		inbound := make(map[int]ShareMessage, n-1)
		for _, sender := range ps {
			if sender.index == p.index {
				continue
			}
			inbound[sender.index] = outbound[sender.index][p.index]
		}
		txn := p.store.Begin()
		gk, err := p.machine.HandleShares(txn, id, inbound, commitByIndex)
		if err != nil {
			t.Fatalf("participant %d HandleShares: %v", p.index, err)
		}
		if err := txn.Commit(); err != nil {
			t.Fatalf("participant %d commit: %v", p.index, err)
		}
		keys[p.index] = gk
	}

	groupKey := keys[1].GroupKey
	for _, p := range ps {
		if !keys[p.index].GroupKey.Equal(groupKey) {
			t.Fatalf("participant %d derived a different group key", p.index)
		}
		if !curve.Generator().ScalarMul(keys[p.index].Share).Equal(keys[p.index].VerificationKey) {
			t.Fatalf("participant %d: share does not match its own verification key", p.index)
		}
	}

	// Threshold reconstruction: any t=2 shares interpolate to the same
	// group secret, whose public point is the shared group key.
	recoverFrom := func(signers []int) curve.GroupPoint {
		acc := curve.Zero()
		for i, idx := range signers {
			lambda := lagrangeAtZero(signers, i)
			acc = acc.Add(lambda.Mul(keys[idx].Share))
		}
		return curve.Generator().ScalarMul(acc)
	}

	if got := recoverFrom([]int{1, 2}); !got.Equal(groupKey) {
		t.Fatalf("reconstruction from {1,2} does not match group key")
	}
	if got := recoverFrom([]int{2, 3}); !got.Equal(groupKey) {
		t.Fatalf("reconstruction from {2,3} does not match group key")
	}
	if got := recoverFrom([]int{1, 3}); !got.Equal(groupKey) {
		t.Fatalf("reconstruction from {1,3} does not match group key")
	}

	for _, p := range ps {
		txn := p.store.Begin()
		confirmed, err := p.machine.ConfirmKey(txn, id)
		if err != nil {
			t.Fatalf("participant %d ConfirmKey: %v", p.index, err)
		}
		if err := txn.Commit(); err != nil {
			t.Fatalf("participant %d commit: %v", p.index, err)
		}
		if !confirmed.GroupKey.Equal(groupKey) {
			t.Fatalf("participant %d: confirmed key does not match group key", p.index)
		}

		loaded, ok, err := LoadKeys(p.store, groupKey)
		if err != nil {
			t.Fatalf("participant %d LoadKeys: %v", p.index, err)
		}
		if !ok {
			t.Fatalf("participant %d: expected confirmed keys to be loadable", p.index)
		}
		if !loaded.Share.Equal(keys[p.index].Share) {
			t.Fatalf("participant %d: loaded share does not match generated share", p.index)
		}
	}
}

func TestDkgHandleCommitmentsRejectsInvalidPoK(t *testing.T) {
	const n, tThreshold = 3, 2
	ps := newParticipants(t, n)
	id := ID{Set: 2, Attempt: 1}

	commitByIndex := make(map[int]CommitmentsMessage, n)
	for _, p := range ps {
		txn := p.store.Begin()
		msg, err := p.machine.GenerateKey(txn, id, n, tThreshold)
		if err != nil {
			t.Fatalf("participant %d GenerateKey: %v", p.index, err)
		}
		if err := txn.Commit(); err != nil {
			t.Fatalf("commit: %v", err)
		}
		commitByIndex[p.index] = msg
	}

	tampered := commitByIndex[2]
	tampered.PoK.S = tampered.PoK.S.Add(curve.One())
	commitByIndex[2] = tampered

	txn := ps[0].store.Begin()
	if _, err := ps[0].machine.HandleCommitments(txn, id, commitByIndex); err == nil {
		t.Fatalf("expected HandleCommitments to reject a tampered PoK")
	}
}

func TestDkgGenerateKeySupersedesPriorAttemptForSameSet(t *testing.T) {
	const n, tThreshold = 3, 2
	ps := newParticipants(t, n)
	first := ID{Set: 3, Attempt: 1}
	second := ID{Set: 3, Attempt: 2}

	p := ps[0]
	txn := p.store.Begin()
	firstMsg, err := p.machine.GenerateKey(txn, first, n, tThreshold)
	if err != nil {
		t.Fatalf("first GenerateKey: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	txn = p.store.Begin()
	secondMsg, err := p.machine.GenerateKey(txn, second, n, tThreshold)
	if err != nil {
		t.Fatalf("second GenerateKey: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if firstMsg.Commitments[0].Equal(secondMsg.Commitments[0]) {
		t.Fatalf("expected a new attempt to derive distinct coefficients from the superseded one")
	}

	p.machine.mu.Lock()
	_, stillActive := p.machine.activeCommit[first.Set]
	p.machine.mu.Unlock()
	if !stillActive {
		t.Fatalf("expected an active commit machine to remain registered for the set")
	}
}
