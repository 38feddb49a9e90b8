// Copyright 2025 Certen Protocol
//
// Namespaced key-value storage backing every persisted record family in
// spec.md §3/§6 (params, commitments, generated_keys, keys, recognized_ids,
// current_attempt, attempt_data, handled_event, last_block, batch_id,
// plan_ids). Wraps CometBFT's dbm.DB exactly as pkg/kvdb/adapter.go did in
// the teacher, generalized here to also expose an atomic Txn (staged over a
// dbm.Batch) so a single
// log event's effects commit as one unit per spec.md §5.

package kvstore

import (
	dbm "github.com/cometbft/cometbft-db"
)

// Reader is the read-only view common to Store and Txn, letting record
// accessors (scanner/store.go, dkg/store.go) read with read-your-writes
// semantics inside a transaction or directly against committed state
// outside of one.
type Reader interface {
	Get(family string, key []byte) ([]byte, error)
	Has(family string, key []byte) (bool, error)
}

// Store wraps a CometBFT dbm.DB and namespaces every key under a record
// family prefix, matching the teacher's KVAdapter wrapping convention.
type Store struct {
	db dbm.DB
}

// New wraps an already-open CometBFT database handle.
func New(db dbm.DB) *Store {
	return &Store{db: db}
}

// NewMemory returns a Store backed by an in-memory CometBFT database, used
// by tests and by single-node deployments without durable storage.
func NewMemory() *Store {
	return &Store{db: dbm.NewMemDB()}
}

func namespacedKey(family string, key []byte) []byte {
	out := make([]byte, 0, len(family)+1+len(key))
	out = append(out, family...)
	out = append(out, ':')
	out = append(out, key...)
	return out
}

// Get reads a value under the given record family. A missing key returns
// (nil, nil), matching dbm.DB's own not-found convention.
func (s *Store) Get(family string, key []byte) ([]byte, error) {
	return s.db.Get(namespacedKey(family, key))
}

// Has reports whether a key is present under the given record family.
func (s *Store) Has(family string, key []byte) (bool, error) {
	return s.db.Has(namespacedKey(family, key))
}

// Set durably writes a value under the given record family, outside of any
// batch. Used for process-wide, not per-event, state such as opening the
// store.
func (s *Store) Set(family string, key, value []byte) error {
	return s.db.SetSync(namespacedKey(family, key), value)
}

// Txn is a single atomic unit of work over the store: every log event's
// effects on persisted state, including the terminal HandledEvent marker,
// are staged into one Txn and committed together (spec.md §5).
type Txn struct {
	store  *Store
	batch  dbm.Batch
	staged map[string]stagedWrite
}

// Begin opens a new atomic transaction. Reads performed through the
// returned Txn observe writes already staged within it (read-your-writes),
// falling back to the underlying store for keys not yet staged.
func (s *Store) Begin() *Txn {
	return &Txn{store: s, batch: s.db.NewBatch()}
}

// staged tracks pending writes for read-your-writes visibility within the
// lifetime of a single Txn, since dbm.Batch itself is write-only.
type stagedWrite struct {
	value   []byte
	deleted bool
}

// Get reads a value, preferring a write staged earlier in this same Txn
// over the committed value in the underlying store.
func (t *Txn) Get(family string, key []byte) ([]byte, error) {
	k := string(namespacedKey(family, key))
	if w, ok := t.staged[k]; ok {
		if w.deleted {
			return nil, nil
		}
		return w.value, nil
	}
	return t.store.db.Get([]byte(k))
}

// Has reports whether a key is present, preferring staged state over the
// underlying store.
func (t *Txn) Has(family string, key []byte) (bool, error) {
	k := string(namespacedKey(family, key))
	if w, ok := t.staged[k]; ok {
		return !w.deleted, nil
	}
	return t.store.db.Has([]byte(k))
}

// Set stages a write, applied when Commit is called.
func (t *Txn) Set(family string, key, value []byte) error {
	k := string(namespacedKey(family, key))
	if t.staged == nil {
		t.staged = make(map[string]stagedWrite)
	}
	t.staged[k] = stagedWrite{value: value}
	return t.batch.Set([]byte(k), value)
}

// Delete stages a deletion, applied when Commit is called.
func (t *Txn) Delete(family string, key []byte) error {
	k := string(namespacedKey(family, key))
	if t.staged == nil {
		t.staged = make(map[string]stagedWrite)
	}
	t.staged[k] = stagedWrite{deleted: true}
	return t.batch.Delete([]byte(k))
}

// Commit durably writes every staged change as one atomic batch. A failed
// Commit leaves no staged change visible to other readers and is safe to
// retry after a clean restart, per spec.md §5's recoverable-I/O semantics.
func (t *Txn) Commit() error {
	return t.batch.WriteSync()
}

// Discard abandons the transaction without writing anything.
func (t *Txn) Discard() error {
	return t.batch.Close()
}
