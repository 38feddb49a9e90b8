// Copyright 2025 Certen Protocol
//
// LogScanner: advances a cohort's cursor over its replicated log and feeds
// each transaction to the Reducer, per spec.md §4.10. The raw log itself —
// block fetch, finality, wire framing — is an external collaborator
// (spec.md §1); BlockSource is the narrow contract this module calls
// through, grounded on original_source/coordinator/src/tributary/scanner.rs's
// handle_new_blocks loop over TributaryReader::block_after.

package scanner

import (
	"context"
	"fmt"

	"github.com/certen/tss-coordinator/internal/kvstore"
	"github.com/certen/tss-coordinator/internal/wire"
)

// Block is one finalized log block: an ordered list of decoded
// transactions. Framing and finality are decided upstream; the scanner
// only consumes the decoded result.
type Block struct {
	Hash         [32]byte
	Transactions []wire.Transaction
}

// BlockSource is the external log collaborator: given the last processed
// block hash, it returns the next finalized block, if any.
type BlockSource interface {
	BlockAfter(ctx context.Context, last [32]byte) (Block, bool, error)
}

// Scanner drives one cohort's log consumption loop.
type Scanner struct {
	store   *kvstore.Store
	genesis [32]byte
	source  BlockSource
	reducer *Reducer
	timeout TimeoutSource
}

// New constructs a Scanner for one cohort's genesis.
func New(store *kvstore.Store, genesis [32]byte, source BlockSource, reducer *Reducer, timeout TimeoutSource) *Scanner {
	if timeout == nil {
		timeout = NoTimeouts{}
	}
	return &Scanner{store: store, genesis: genesis, source: source, reducer: reducer, timeout: timeout}
}

// Run advances the cursor until BlockAfter reports no further block, or the
// context is cancelled. Each event's own transaction is atomic; Run itself
// has no transactional boundary spanning more than one event, so
// cancellation between events loses no committed progress (spec.md §5).
func (s *Scanner) Run(ctx context.Context) error {
	last, err := LastBlock(s.store, s.genesis)
	if err != nil {
		return fmt.Errorf("scanner: load cursor: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		block, ok, err := s.source.BlockAfter(ctx, last)
		if err != nil {
			return fmt.Errorf("scanner: fetch next block: %w", err)
		}
		if !ok {
			return nil
		}

		// event_index is monotone within the block and distinct from
		// transaction index, leaving room for internal sub-events
		// (spec.md §4.10); transaction index suffices here since this
		// module emits no sub-events of its own.
		for eventIndex, tx := range block.Transactions {
			if err := s.reducer.ProcessEvent(ctx, s.genesis, block.Hash, uint32(eventIndex), tx); err != nil {
				return fmt.Errorf("scanner: process event %d of block %x: %w", eventIndex, block.Hash, err)
			}
		}

		if err := s.checkTimeouts(ctx); err != nil {
			return fmt.Errorf("scanner: check timeouts for block %x: %w", block.Hash, err)
		}

		txn := s.store.Begin()
		if err := SetLastBlock(txn, s.genesis, block.Hash); err != nil {
			txn.Discard()
			return fmt.Errorf("scanner: advance cursor: %w", err)
		}
		if err := txn.Commit(); err != nil {
			return fmt.Errorf("scanner: commit cursor advance: %w", err)
		}
		last = block.Hash
	}
}

// CheckTimeout consults the TimeoutSource for one (zone, id) and, if it
// reports the current attempt expired, bumps CurrentAttempt and re-derives
// its SigningSet from the cohort's canonical validator order. It does not
// itself check whether the attempt reached threshold. The caller owns
// enumerating which (zone, id) pairs are currently active (Run does so once
// per block via checkTimeouts); wall-clock bookkeeping lives in the
// TimeoutSource, such as DeadlineTimeout.
func (s *Scanner) CheckTimeout(ctx context.Context, zone Zone, id [32]byte, signingSetSize int) error {
	current, err := CurrentAttempt(s.store, s.genesis, id)
	if err != nil {
		return fmt.Errorf("scanner: load current attempt: %w", err)
	}
	expired, err := s.timeout.Expired(ctx, zone, s.genesis, id, current)
	if err != nil {
		return fmt.Errorf("scanner: check timeout: %w", err)
	}
	if !expired {
		return nil
	}

	next := current + 1

	txn := s.store.Begin()
	if err := SetCurrentAttempt(txn, s.genesis, id, next); err != nil {
		txn.Discard()
		return err
	}
	if err := SetSigningSet(txn, zone, s.genesis, id, next, defaultSigningSet(signingSetSize)); err != nil {
		txn.Discard()
		return err
	}
	return txn.Commit()
}

// checkTimeouts consults CheckTimeout for every (zone, id) this process is
// currently tracking, once per processed block, per SPEC_FULL.md §4.11. The
// DKG zone has no RecognizedIds bookkeeping of its own (its id is always the
// zero value within a set, spec.md §4.8), so it is checked unconditionally
// against the cohort's full validator count; Batch and Sign ids come from
// ActiveIDs, populated as each id is recognized.
func (s *Scanner) checkTimeouts(ctx context.Context) error {
	if err := s.CheckTimeout(ctx, ZoneDkg, [32]byte{}, s.reducer.spec.N()); err != nil {
		return fmt.Errorf("dkg: %w", err)
	}
	for _, zone := range []Zone{ZoneBatch, ZoneSign} {
		ids, err := ActiveIDs(s.store, zone, s.genesis)
		if err != nil {
			return fmt.Errorf("%s: load active ids: %w", zone, err)
		}
		for _, id := range ids {
			if err := s.CheckTimeout(ctx, zone, id, s.reducer.spec.T()); err != nil {
				return fmt.Errorf("%s %x: %w", zone, id, err)
			}
		}
	}
	return nil
}
