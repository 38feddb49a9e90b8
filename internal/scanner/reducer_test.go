// Copyright 2025 Certen Protocol

package scanner

import (
	"context"
	"testing"

	"github.com/certen/tss-coordinator/internal/cohort"
	"github.com/certen/tss-coordinator/internal/kvstore"
	"github.com/certen/tss-coordinator/internal/processor"
	"github.com/certen/tss-coordinator/internal/wire"
)

func validatorKey(b byte) cohort.ValidatorKey {
	var k cohort.ValidatorKey
	k[0] = b
	return k
}

func signedBy(k cohort.ValidatorKey) wire.Signed {
	return wire.Signed{Signer: [32]byte(k)}
}

// harness bundles a reducer with its dependencies for one test.
type harness struct {
	store   *kvstore.Store
	spec    *cohort.Spec
	sink    *processor.ChannelSink
	slashes *SlashLedger
	reducer *Reducer
	genesis [32]byte
}

func newHarness(t *testing.T, n, threshold int) *harness {
	t.Helper()
	validators := make([]cohort.ValidatorKey, n)
	for i := 0; i < n; i++ {
		validators[i] = validatorKey(byte(i + 1))
	}
	genesis := [32]byte{0xAA}
	spec, err := cohort.New(genesis, 1, threshold, validators)
	if err != nil {
		t.Fatalf("cohort.New: %v", err)
	}
	store := kvstore.NewMemory()
	sink := processor.NewChannelSink(n)
	slashes := NewSlashLedger()
	return &harness{
		store:   store,
		spec:    spec,
		sink:    sink,
		slashes: slashes,
		reducer: NewReducer(store, spec, sink, slashes),
		genesis: genesis,
	}
}

func (h *harness) validator(i int) cohort.ValidatorKey { return h.spec.Validators()[i-1] }

func (h *harness) process(t *testing.T, blockHash [32]byte, eventIndex uint32, tx wire.Transaction) {
	t.Helper()
	if err := h.reducer.ProcessEvent(context.Background(), h.genesis, blockHash, eventIndex, tx); err != nil {
		t.Fatalf("ProcessEvent: %v", err)
	}
}

func TestHandleSignedAssemblesPayloadOnceThresholdReached(t *testing.T) {
	h := newHarness(t, 3, 2)
	block := [32]byte{1}

	for i, idx := range []int{1, 2} {
		tx := wire.Transaction{
			Tag:    wire.TagDkgCommitments,
			Bytes:  []byte{byte(idx)},
			Signed: signedBy(h.validator(idx)),
		}
		h.process(t, block, uint32(i), tx)
	}

	select {
	case msg := <-h.sink.Messages():
		t.Fatalf("did not expect a message before all 3 commitments arrived: %+v", msg)
	default:
	}

	tx3 := wire.Transaction{Tag: wire.TagDkgCommitments, Bytes: []byte{3}, Signed: signedBy(h.validator(3))}
	h.process(t, block, 2, tx3)

	select {
	case msg := <-h.sink.Messages():
		if msg.Kind != processor.KindKeyGenCommitments {
			t.Fatalf("unexpected message kind: %v", msg.Kind)
		}
		if len(msg.Payload) != 3 {
			t.Fatalf("expected 3 assembled payloads, got %d", len(msg.Payload))
		}
		for idx, want := range map[int]byte{1: 1, 2: 2, 3: 3} {
			got, ok := msg.Payload[idx]
			if !ok || len(got) != 1 || got[0] != want {
				t.Fatalf("payload[%d] = %v, want [%d]", idx, got, want)
			}
		}
	default:
		t.Fatalf("expected an assembled message once the threshold was reached")
	}
}

func TestHandleSignedEquivocationRecordsFullSlash(t *testing.T) {
	h := newHarness(t, 3, 2)
	block := [32]byte{2}
	signer := h.validator(1)

	h.process(t, block, 0, wire.Transaction{Tag: wire.TagDkgCommitments, Bytes: []byte("A"), Signed: signedBy(signer)})
	h.process(t, block, 1, wire.Transaction{Tag: wire.TagDkgCommitments, Bytes: []byte("B"), Signed: signedBy(signer)})

	intents := h.slashes.FlushEpoch()
	if len(intents) != 1 {
		t.Fatalf("expected exactly one slash intent, got %d", len(intents))
	}
	if intents[0].Severity != processor.SlashFull {
		t.Fatalf("expected a full slash for equivocation, got severity %v", intents[0].Severity)
	}
}

func TestHandleSignedDuplicateRecordsPartialSlash(t *testing.T) {
	h := newHarness(t, 3, 2)
	block := [32]byte{3}
	signer := h.validator(1)

	h.process(t, block, 0, wire.Transaction{Tag: wire.TagDkgCommitments, Bytes: []byte("A"), Signed: signedBy(signer)})
	h.process(t, block, 1, wire.Transaction{Tag: wire.TagDkgCommitments, Bytes: []byte("A"), Signed: signedBy(signer)})

	intents := h.slashes.FlushEpoch()
	if len(intents) != 1 {
		t.Fatalf("expected exactly one slash intent, got %d", len(intents))
	}
	if intents[0].Severity != processor.SlashPartial {
		t.Fatalf("expected a partial slash for a duplicate submission, got severity %v", intents[0].Severity)
	}
}

func TestHandleSignedLateAttemptRecordsPartialSlash(t *testing.T) {
	h := newHarness(t, 3, 2)
	var dkgID [32]byte

	txn := h.store.Begin()
	if err := SetCurrentAttempt(txn, h.genesis, dkgID, 1); err != nil {
		t.Fatalf("SetCurrentAttempt: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	h.process(t, [32]byte{4}, 0, wire.Transaction{Tag: wire.TagDkgCommitments, Attempt: 0, Bytes: []byte("A"), Signed: signedBy(h.validator(1))})

	intents := h.slashes.FlushEpoch()
	if len(intents) != 1 || intents[0].Severity != processor.SlashPartial {
		t.Fatalf("expected a single partial slash for a late attempt, got %+v", intents)
	}
}

func TestHandleSignedFutureAttemptRecordsFullSlash(t *testing.T) {
	h := newHarness(t, 3, 2)

	h.process(t, [32]byte{5}, 0, wire.Transaction{Tag: wire.TagDkgCommitments, Attempt: 5, Bytes: []byte("A"), Signed: signedBy(h.validator(1))})

	intents := h.slashes.FlushEpoch()
	if len(intents) != 1 || intents[0].Severity != processor.SlashFull {
		t.Fatalf("expected a single full slash for an attempt from the future, got %+v", intents)
	}
}

func TestHandleSignedUnrecognizedIDRecordsFullSlash(t *testing.T) {
	h := newHarness(t, 3, 2)
	var planID [32]byte
	planID[0] = 0x77

	h.process(t, [32]byte{6}, 0, wire.Transaction{
		Tag:    wire.TagBatchPreprocess,
		PlanID: planID,
		Bytes:  []byte("preprocess"),
		Signed: signedBy(h.validator(1)),
	})

	intents := h.slashes.FlushEpoch()
	if len(intents) != 1 || intents[0].Severity != processor.SlashFull {
		t.Fatalf("expected a full slash for an unrecognized id, got %+v", intents)
	}
}

func TestHandleSignedOutsideSigningSetRecordsPartialSlash(t *testing.T) {
	h := newHarness(t, 3, 2)
	var planID [32]byte
	planID[0] = 0x42

	txn := h.store.Begin()
	if err := RecognizeID(txn, ZoneBatch, h.genesis, planID); err != nil {
		t.Fatalf("RecognizeID: %v", err)
	}
	// Only validators 1 and 2 are selected to sign this attempt.
	if err := SetSigningSet(txn, ZoneBatch, h.genesis, planID, 0, []int{1, 2}); err != nil {
		t.Fatalf("SetSigningSet: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	h.process(t, [32]byte{7}, 0, wire.Transaction{
		Tag:    wire.TagBatchPreprocess,
		PlanID: planID,
		Bytes:  []byte("preprocess"),
		Signed: signedBy(h.validator(3)),
	})

	intents := h.slashes.FlushEpoch()
	if len(intents) != 1 || intents[0].Severity != processor.SlashPartial {
		t.Fatalf("expected a partial slash for a signer outside the selected signing set, got %+v", intents)
	}
}

func TestProcessEventExternalBlockPanicsWithoutProvidedBatchID(t *testing.T) {
	h := newHarness(t, 3, 2)
	var blockHash [32]byte
	blockHash[0] = 0x11

	defer func() {
		if recover() == nil {
			t.Fatalf("expected ProcessEvent to panic on a FatalLocal condition")
		}
	}()
	_ = h.reducer.ProcessEvent(context.Background(), h.genesis, [32]byte{8}, 0, wire.Transaction{
		Tag:       wire.TagExternalBlock,
		BlockHash: blockHash,
	})
}

func TestProcessEventHostBlockRecognizesProvidedPlanIDs(t *testing.T) {
	h := newHarness(t, 3, 2)
	var blockHash, planA, planB [32]byte
	blockHash[0] = 0x22
	planA[0] = 0x01
	planB[0] = 0x02

	txn := h.store.Begin()
	if err := SetPlanIDs(txn, h.genesis, blockHash, [][32]byte{planA, planB}); err != nil {
		t.Fatalf("SetPlanIDs: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	h.process(t, [32]byte{9}, 0, wire.Transaction{Tag: wire.TagHostBlock, BlockHash: blockHash})

	for _, id := range []([32]byte){planA, planB} {
		ok, err := RecognizedIds(h.store, ZoneSign, h.genesis, id)
		if err != nil {
			t.Fatalf("RecognizedIds: %v", err)
		}
		if !ok {
			t.Fatalf("expected plan id %x to be recognized after the host block was processed", id)
		}
	}
}

func TestProcessEventIsIdempotentForReplayedEvent(t *testing.T) {
	h := newHarness(t, 3, 2)
	block := [32]byte{10}
	tx := wire.Transaction{Tag: wire.TagDkgCommitments, Bytes: []byte("A"), Signed: signedBy(h.validator(1))}

	h.process(t, block, 0, tx)
	h.process(t, block, 0, tx)

	if len(h.slashes.FlushEpoch()) != 0 {
		t.Fatalf("expected the replayed event to be a no-op, not a fresh duplicate submission")
	}
}
