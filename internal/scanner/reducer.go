// Copyright 2025 Certen Protocol
//
// EventReducer: dispatches one LogTransaction at a time by variant,
// enforcing spec.md §4.10's five-step handle() algorithm for signed
// message transactions and the distinct provided-transaction handling for
// ExternalBlock/HostBlock. Grounded line-for-line on
// original_source/coordinator/src/tributary/scanner.rs's handle_block,
// generalized from its single-tributary-process shape to an explicit
// Reducer value so a cohort task can own one per genesis.

package scanner

import (
	"context"
	"fmt"

	"github.com/certen/tss-coordinator/internal/cohort"
	"github.com/certen/tss-coordinator/internal/kvstore"
	"github.com/certen/tss-coordinator/internal/processor"
	"github.com/certen/tss-coordinator/internal/wire"
)

// Reducer applies one cohort's log events to persisted state and emits
// outbound processor messages. It owns no concurrency of its own; the
// owning Cohort task serializes calls into it (spec.md §5).
type Reducer struct {
	store   *kvstore.Store
	spec    *cohort.Spec
	sink    processor.Sink
	slashes *SlashLedger
}

// NewReducer constructs a Reducer for one cohort.
func NewReducer(store *kvstore.Store, spec *cohort.Spec, sink processor.Sink, slashes *SlashLedger) *Reducer {
	return &Reducer{store: store, spec: spec, sink: sink, slashes: slashes}
}

// ProcessEvent runs spec.md §4.10's per-event algorithm: skip if already
// handled, otherwise open a transaction, dispatch, mark handled, commit.
// A FatalLocal condition panics: the cohort is compromised and the process
// must halt rather than mark the event handled.
func (r *Reducer) ProcessEvent(ctx context.Context, genesis, blockHash [32]byte, eventIndex uint32, tx wire.Transaction) error {
	already, err := HandledEvent(r.store, blockHash, eventIndex)
	if err != nil {
		return fmt.Errorf("scanner: check handled event: %w", err)
	}
	if already {
		return nil
	}

	txn := r.store.Begin()
	msgs, err := r.dispatch(txn, genesis, tx)
	if err != nil {
		txn.Discard()
		var fatal *FatalLocal
		if ok := asFatalLocal(err, &fatal); ok {
			panic(fatal.Error())
		}
		// EncodingError, ProtocolViolation and Lateness are already folded
		// into a slash intent by dispatch; a non-nil, non-fatal error here
		// means storage failed before that point. Per spec.md §7 this is a
		// recoverable I/O failure: leave HandledEvent unset and retry.
		return fmt.Errorf("scanner: dispatch: %w", err)
	}

	if err := SetHandledEvent(txn, blockHash, eventIndex); err != nil {
		txn.Discard()
		return fmt.Errorf("scanner: mark handled: %w", err)
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("scanner: commit: %w", err)
	}

	for _, msg := range msgs {
		if err := r.sink.Send(ctx, msg); err != nil {
			return fmt.Errorf("scanner: send processor message: %w", err)
		}
	}
	return nil
}

func asFatalLocal(err error, out **FatalLocal) bool {
	for err != nil {
		if f, ok := err.(*FatalLocal); ok {
			*out = f
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// dispatch runs the variant-specific handling, returning zero or more
// outbound messages (a slash intent is recorded on the ledger, not
// returned as a message, per spec.md §4.10's "not enacted directly").
func (r *Reducer) dispatch(txn *kvstore.Txn, genesis [32]byte, tx wire.Transaction) ([]processor.Message, error) {
	switch tx.Tag {
	case wire.TagDkgCommitments:
		return r.handleSigned(txn, genesis, ZoneDkg, "dkg_commitments", r.spec.N(), [32]byte{}, tx.Attempt, tx.Bytes, tx.Signed, processor.KindKeyGenCommitments)

	case wire.TagDkgShares:
		// The scanner's job is ordering, dedup and equivocation detection,
		// not decryption: the whole encoded share map is the per-signer
		// payload for that purpose, and the DKG machine itself decrypts
		// its own recipient share out of the assembled payload.
		return r.handleSigned(txn, genesis, ZoneDkg, "dkg_shares", r.spec.N(), [32]byte{}, tx.Attempt, encodeShareMapForDedup(tx.Shares), tx.Signed, processor.KindKeyGenShares)

	case wire.TagExternalBlock:
		batchID, ok, err := BatchID(txn, genesis, tx.BlockHash)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &FatalLocal{Reason: fmt.Sprintf("synced a block finalizing external block %x in a provided transaction we never provided", tx.BlockHash)}
		}
		if err := RecognizeID(txn, ZoneBatch, genesis, batchID); err != nil {
			return nil, err
		}
		if err := SetSigningSet(txn, ZoneBatch, genesis, batchID, 0, defaultSigningSet(r.spec.T())); err != nil {
			return nil, err
		}
		if err := addActiveID(txn, ZoneBatch, genesis, batchID); err != nil {
			return nil, err
		}
		return nil, nil

	case wire.TagHostBlock:
		planIDs, ok, err := PlanIDs(txn, genesis, tx.BlockHash)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &FatalLocal{Reason: fmt.Sprintf("synced a block finalizing host block %x in a provided transaction we never provided", tx.BlockHash)}
		}
		for _, id := range planIDs {
			if err := RecognizeID(txn, ZoneSign, genesis, id); err != nil {
				return nil, err
			}
			if err := SetSigningSet(txn, ZoneSign, genesis, id, 0, defaultSigningSet(r.spec.T())); err != nil {
				return nil, err
			}
			if err := addActiveID(txn, ZoneSign, genesis, id); err != nil {
				return nil, err
			}
		}
		return nil, nil

	case wire.TagBatchPreprocess:
		return r.handleSigned(txn, genesis, ZoneBatch, "batch_preprocess", r.spec.T(), tx.PlanID, tx.Attempt, tx.Bytes, tx.Signed, processor.KindBatchPreprocesses)
	case wire.TagBatchShare:
		return r.handleSigned(txn, genesis, ZoneBatch, "batch_share", r.spec.T(), tx.PlanID, tx.Attempt, tx.Bytes, tx.Signed, processor.KindBatchShares)
	case wire.TagSignPreprocess:
		return r.handleSigned(txn, genesis, ZoneSign, "sign_preprocess", r.spec.T(), tx.PlanID, tx.Attempt, tx.Bytes, tx.Signed, processor.KindSignPreprocesses)
	case wire.TagSignShare:
		return r.handleSigned(txn, genesis, ZoneSign, "sign_share", r.spec.T(), tx.PlanID, tx.Attempt, tx.Bytes, tx.Signed, processor.KindSignShares)

	default:
		return nil, fmt.Errorf("scanner: unhandled transaction tag %d", tx.Tag)
	}
}

// defaultSigningSet is the deterministic attempt-0 signing set SPEC_FULL.md
// §4.11 specifies: the first size-sized prefix of CohortSpec.validators()
// order, identical on every honest replica.
func defaultSigningSet(size int) []int {
	set := make([]int, size)
	for i := range set {
		set[i] = i + 1
	}
	return set
}

func encodeShareMapForDedup(shares map[uint16][]byte) []byte {
	tx := wire.Transaction{Tag: wire.TagDkgShares, Shares: shares}
	return tx.Encode()
}

// handleSigned runs spec.md §4.10's five-step algorithm shared by every
// signed message transaction variant.
func (r *Reducer) handleSigned(
	txn *kvstore.Txn,
	genesis [32]byte,
	zone Zone,
	label string,
	needed int,
	id [32]byte,
	attempt uint32,
	data []byte,
	signed wire.Signed,
	kind processor.Kind,
) ([]processor.Message, error) {
	// Step 1: id recognition.
	if zone == ZoneDkg {
		if id != ([32]byte{}) {
			return nil, &FatalLocal{Reason: "DKG transaction carried a non-zero id"}
		}
	} else {
		recognized, err := RecognizedIds(txn, zone, genesis, id)
		if err != nil {
			return nil, err
		}
		if !recognized {
			r.slash(genesis, signed.Signer, processor.SlashFull, fmt.Sprintf("%s for unrecognized id %x", label, id))
			return nil, nil
		}
	}

	// Step 1b (SPEC_FULL.md §4.11 / spec.md §9 open question (c)): signer
	// must be in the attempt's signing set, once one has been persisted.
	if set, ok, err := SigningSet(txn, zone, genesis, id, attempt); err != nil {
		return nil, err
	} else if ok && !contains(set, r.spec.I(cohort.ValidatorKey(signed.Signer))) {
		r.slash(genesis, signed.Signer, processor.SlashPartial, fmt.Sprintf("%s from signer outside the selected signing set", label))
		return nil, nil
	}

	// Step 2: duplicate / equivocation check.
	prior, err := AttemptData(txn, zone, genesis, id, attempt, signed.Signer)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		if !bytesEqual(prior, data) {
			r.slash(genesis, signed.Signer, processor.SlashFull, fmt.Sprintf("%s equivocation at attempt %d", label, attempt))
			return nil, nil
		}
		r.slash(genesis, signed.Signer, processor.SlashPartial, fmt.Sprintf("%s duplicate at attempt %d", label, attempt))
		return nil, nil
	}

	// Step 3: attempt freshness.
	current, err := CurrentAttempt(txn, genesis, id)
	if err != nil {
		return nil, err
	}
	if attempt < current {
		r.slash(genesis, signed.Signer, processor.SlashPartial, fmt.Sprintf("%s late at attempt %d, current is %d", label, attempt, current))
		return nil, nil
	}
	if attempt > current {
		r.slash(genesis, signed.Signer, processor.SlashFull, fmt.Sprintf("%s from the future: attempt %d, current is %d", label, attempt, current))
		return nil, nil
	}

	// Step 4: store and count.
	received, err := SetAttemptData(txn, zone, genesis, id, attempt, signed.Signer, data)
	if err != nil {
		return nil, err
	}

	// Step 5: assemble once the threshold is met.
	if received != needed {
		return nil, nil
	}
	payload := make(map[int][]byte, needed)
	for _, pk := range r.spec.Validators() {
		idx := r.spec.I(pk)
		vk := [32]byte(pk)
		var bytes []byte
		if vk == signed.Signer {
			bytes = data
		} else {
			bytes, err = AttemptData(txn, zone, genesis, id, attempt, vk)
			if err != nil {
				return nil, err
			}
			if bytes == nil {
				continue
			}
		}
		payload[idx] = bytes
	}
	if len(payload) != needed {
		return nil, &FatalLocal{Reason: fmt.Sprintf("%s: assembled %d of %d required payloads", label, len(payload), needed)}
	}

	return []processor.Message{{Kind: kind, ID: id, Attempt: attempt, Payload: payload}}, nil
}

func (r *Reducer) slash(genesis, signer [32]byte, severity processor.SlashSeverity, reason string) {
	r.slashes.Record(processor.SlashIntent{Genesis: genesis, Signer: signer, Severity: severity, Reason: reason})
}

func contains(set []int, v int) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
