// Copyright 2025 Certen Protocol
//
// Persisted record families for the log scanner/reducer, per spec.md §3/§6:
// RecognizedIds, CurrentAttempt, AttemptState, HandledEvent, LastBlock,
// batch_id, plan_ids, plus the SigningSet/slash-ledger additions SPEC_FULL.md
// §4.11 adds to resolve spec.md §9's open questions. Grounded on
// original_source/coordinator/src/tributary/scanner.rs's TributaryDb key
// helpers (recognized_id/data/attempt/handled_event/last_block/batch_id/
// plan_ids), one kvstore record family per Rust key helper.

package scanner

import (
	"encoding/binary"
	"fmt"

	"github.com/certen/tss-coordinator/internal/kvstore"
)

// Zone distinguishes the three id spaces spec.md §3 defines.
type Zone byte

const (
	ZoneDkg Zone = iota
	ZoneBatch
	ZoneSign
)

func (z Zone) String() string {
	switch z {
	case ZoneDkg:
		return "dkg"
	case ZoneBatch:
		return "batch"
	case ZoneSign:
		return "sign"
	default:
		return "unknown"
	}
}

const (
	familyRecognizedIds = "recognized_ids"
	familyCurrentAtt    = "current_attempt"
	familyAttemptData   = "attempt_data"
	familyHandledEvent  = "handled_event"
	familyLastBlock     = "last_block"
	familyBatchID       = "batch_id"
	familyPlanIDs       = "plan_ids"
	familySigningSet    = "signing_set"
	familyActiveIDs     = "active_ids"
)

func zoneIDKey(zone Zone, genesis [32]byte, id [32]byte) []byte {
	k := make([]byte, 0, 1+32+32)
	k = append(k, byte(zone))
	k = append(k, genesis[:]...)
	k = append(k, id[:]...)
	return k
}

// RecognizedIds reports whether id has been authorized for zone within
// genesis, per spec.md §3.
func RecognizedIds(store kvstore.Reader, zone Zone, genesis [32]byte, id [32]byte) (bool, error) {
	return store.Has(familyRecognizedIds, zoneIDKey(zone, genesis, id))
}

// RecognizeID authorizes id for zone, entered only when the corresponding
// provided transaction is processed (spec.md §3).
func RecognizeID(txn *kvstore.Txn, zone Zone, genesis [32]byte, id [32]byte) error {
	return txn.Set(familyRecognizedIds, zoneIDKey(zone, genesis, id), []byte{1})
}

func attemptKey(genesis, id [32]byte) []byte {
	k := make([]byte, 0, 64)
	k = append(k, genesis[:]...)
	return append(k, id[:]...)
}

// CurrentAttempt returns the monotone attempt counter for id, per spec.md §3.
func CurrentAttempt(store kvstore.Reader, genesis, id [32]byte) (uint32, error) {
	v, err := store.Get(familyCurrentAtt, attemptKey(genesis, id))
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, nil
	}
	if len(v) != 4 {
		return 0, fmt.Errorf("scanner: corrupt current_attempt record")
	}
	return binary.LittleEndian.Uint32(v), nil
}

// SetCurrentAttempt persists a new (necessarily non-decreasing, enforced by
// the caller) attempt counter for id.
func SetCurrentAttempt(txn *kvstore.Txn, genesis, id [32]byte, attempt uint32) error {
	v := make([]byte, 4)
	binary.LittleEndian.PutUint32(v, attempt)
	return txn.Set(familyCurrentAtt, attemptKey(genesis, id), v)
}

func attemptDataKey(zone Zone, genesis, id [32]byte, attempt uint32, signer [32]byte) []byte {
	k := make([]byte, 0, 1+32+32+4+32)
	k = append(k, byte(zone))
	k = append(k, genesis[:]...)
	k = append(k, id[:]...)
	k = binary.LittleEndian.AppendUint32(k, attempt)
	k = append(k, signer[:]...)
	return k
}

// AttemptData returns the previously stored payload for
// (zone, id, attempt, signer), or nil if none was stored yet.
func AttemptData(store kvstore.Reader, zone Zone, genesis, id [32]byte, attempt uint32, signer [32]byte) ([]byte, error) {
	return store.Get(familyAttemptData, attemptDataKey(zone, genesis, id, attempt, signer))
}

// SetAttemptData stores the payload for (zone, id, attempt, signer) and
// returns the running count of distinct signers observed for this
// (zone, id, attempt), per spec.md §3's AttemptState.
func SetAttemptData(txn *kvstore.Txn, zone Zone, genesis, id [32]byte, attempt uint32, signer [32]byte, data []byte) (int, error) {
	if err := txn.Set(familyAttemptData, attemptDataKey(zone, genesis, id, attempt, signer), data); err != nil {
		return 0, err
	}
	countKey := append(append([]byte{byte(zone)}, genesis[:]...), append(id[:], binary.LittleEndian.AppendUint32(nil, attempt)...)...)
	v, err := txn.Get("attempt_signer_count", countKey)
	if err != nil {
		return 0, err
	}
	count := uint32(0)
	if v != nil {
		count = binary.LittleEndian.Uint32(v)
	}
	count++
	nv := make([]byte, 4)
	binary.LittleEndian.PutUint32(nv, count)
	if err := txn.Set("attempt_signer_count", countKey, nv); err != nil {
		return 0, err
	}
	return int(count), nil
}

func handledEventKey(block [32]byte, eventIndex uint32) []byte {
	k := append([]byte{}, block[:]...)
	return binary.LittleEndian.AppendUint32(k, eventIndex)
}

// HandledEvent reports whether (block, eventIndex) has already been
// processed, the deduplication marker of spec.md §3.
func HandledEvent(store kvstore.Reader, block [32]byte, eventIndex uint32) (bool, error) {
	return store.Has(familyHandledEvent, handledEventKey(block, eventIndex))
}

// SetHandledEvent marks (block, eventIndex) as processed. Must be the last
// write in the event's transaction (spec.md §5).
func SetHandledEvent(txn *kvstore.Txn, block [32]byte, eventIndex uint32) error {
	return txn.Set(familyHandledEvent, handledEventKey(block, eventIndex), []byte{1})
}

// LastBlock returns the last fully processed block hash for genesis, or the
// zero hash if none has been processed yet.
func LastBlock(store kvstore.Reader, genesis [32]byte) ([32]byte, error) {
	v, err := store.Get(familyLastBlock, genesis[:])
	if err != nil {
		return [32]byte{}, err
	}
	var out [32]byte
	if v == nil {
		return out, nil
	}
	if len(v) != 32 {
		return out, fmt.Errorf("scanner: corrupt last_block record")
	}
	copy(out[:], v)
	return out, nil
}

// SetLastBlock persists the cursor advance.
func SetLastBlock(txn *kvstore.Txn, genesis, block [32]byte) error {
	return txn.Set(familyLastBlock, genesis[:], block[:])
}

func blockKey(genesis, block [32]byte) []byte {
	return append(append([]byte{}, genesis[:]...), block[:]...)
}

// BatchID returns the batch id this node provided for an external-chain
// block, populated before the corresponding ExternalBlock transaction was
// submitted. A missing record when one is expected is a FatalLocal
// condition at the call site (spec.md §4.10).
func BatchID(store kvstore.Reader, genesis, block [32]byte) ([32]byte, bool, error) {
	v, err := store.Get(familyBatchID, blockKey(genesis, block))
	if err != nil {
		return [32]byte{}, false, err
	}
	var out [32]byte
	if v == nil {
		return out, false, nil
	}
	if len(v) != 32 {
		return out, false, fmt.Errorf("scanner: corrupt batch_id record")
	}
	copy(out[:], v)
	return out, true, nil
}

// SetBatchID records the batch id this node will provide for an
// external-chain block, ahead of submitting the ExternalBlock transaction.
func SetBatchID(txn *kvstore.Txn, genesis, block, batchID [32]byte) error {
	return txn.Set(familyBatchID, blockKey(genesis, block), batchID[:])
}

// PlanIDs returns the plan ids this node provided for a host-chain block.
func PlanIDs(store kvstore.Reader, genesis, block [32]byte) ([][32]byte, bool, error) {
	v, err := store.Get(familyPlanIDs, blockKey(genesis, block))
	if err != nil {
		return nil, false, err
	}
	if v == nil {
		return nil, false, nil
	}
	if len(v)%32 != 0 {
		return nil, false, fmt.Errorf("scanner: corrupt plan_ids record")
	}
	out := make([][32]byte, len(v)/32)
	for i := range out {
		copy(out[i][:], v[i*32:(i+1)*32])
	}
	return out, true, nil
}

// SetPlanIDs records the plan ids this node will provide for a host-chain
// block, ahead of submitting the HostBlock transaction.
func SetPlanIDs(txn *kvstore.Txn, genesis, block [32]byte, planIDs [][32]byte) error {
	v := make([]byte, 0, len(planIDs)*32)
	for _, id := range planIDs {
		v = append(v, id[:]...)
	}
	return txn.Set(familyPlanIDs, blockKey(genesis, block), v)
}

func signingSetKey(zone Zone, genesis, id [32]byte, attempt uint32) []byte {
	k := append([]byte{byte(zone)}, genesis[:]...)
	k = append(k, id[:]...)
	return binary.LittleEndian.AppendUint32(k, attempt)
}

// SigningSet returns the validator indices selected to sign
// (zone, id, attempt), per SPEC_FULL.md §4.11 / spec.md §9 open question (c).
func SigningSet(store kvstore.Reader, zone Zone, genesis, id [32]byte, attempt uint32) ([]int, bool, error) {
	v, err := store.Get(familySigningSet, signingSetKey(zone, genesis, id, attempt))
	if err != nil {
		return nil, false, err
	}
	if v == nil {
		return nil, false, nil
	}
	if len(v)%4 != 0 {
		return nil, false, fmt.Errorf("scanner: corrupt signing_set record")
	}
	out := make([]int, len(v)/4)
	for i := range out {
		out[i] = int(binary.LittleEndian.Uint32(v[i*4 : i*4+4]))
	}
	return out, true, nil
}

// SetSigningSet persists the deterministic validator subset selected for
// (zone, id, attempt), derived from CohortSpec.validators() order.
func SetSigningSet(txn *kvstore.Txn, zone Zone, genesis, id [32]byte, attempt uint32, set []int) error {
	v := make([]byte, 0, len(set)*4)
	for _, idx := range set {
		v = binary.LittleEndian.AppendUint32(v, uint32(idx))
	}
	return txn.Set(familySigningSet, signingSetKey(zone, genesis, id, attempt), v)
}

func activeIDsKey(zone Zone, genesis [32]byte) []byte {
	return append([]byte{byte(zone)}, genesis[:]...)
}

// ActiveIDs returns every id recognized for zone within genesis that hasn't
// been pruned, in first-recognized order, for Scanner.Run to enumerate when
// consulting CheckTimeout once per processed block (SPEC_FULL.md §4.11).
func ActiveIDs(store kvstore.Reader, zone Zone, genesis [32]byte) ([][32]byte, error) {
	v, err := store.Get(familyActiveIDs, activeIDsKey(zone, genesis))
	if err != nil {
		return nil, err
	}
	if len(v)%32 != 0 {
		return nil, fmt.Errorf("scanner: corrupt active_ids record")
	}
	out := make([][32]byte, len(v)/32)
	for i := range out {
		copy(out[i][:], v[i*32:(i+1)*32])
	}
	return out, nil
}

// addActiveID appends id to zone's active-id list within genesis, if not
// already present.
func addActiveID(txn *kvstore.Txn, zone Zone, genesis, id [32]byte) error {
	existing, err := ActiveIDs(txn, zone, genesis)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if e == id {
			return nil
		}
	}
	v := make([]byte, 0, (len(existing)+1)*32)
	for _, e := range existing {
		v = append(v, e[:]...)
	}
	v = append(v, id[:]...)
	return txn.Set(familyActiveIDs, activeIDsKey(zone, genesis), v)
}
