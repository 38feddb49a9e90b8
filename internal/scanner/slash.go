// Copyright 2025 Certen Protocol
//
// Slash intent aggregation, per SPEC_FULL.md §4.11 / spec.md §9 open
// question (a): the reducer never enacts a slash itself, only emits an
// intent; this ledger accumulates intents per epoch and flushes them as a
// batch, grounded on pkg/batch/consensus_coordinator.go's cleanupLoop
// ticker-driven periodic-flush pattern.

package scanner

import (
	"sync"

	"github.com/certen/tss-coordinator/internal/processor"
)

type slashKey struct {
	genesis [32]byte
	signer  [32]byte
}

// SlashLedger accumulates partial/full slash intents keyed by
// (genesis, signer) until the next epoch boundary flush. Multiple partial
// intents against the same signer within an epoch coalesce; any full
// intent against a signer supersedes and remains regardless of how many
// partial intents preceded it.
type SlashLedger struct {
	mu      sync.Mutex
	entries map[slashKey]processor.SlashIntent
}

// NewSlashLedger constructs an empty ledger.
func NewSlashLedger() *SlashLedger {
	return &SlashLedger{entries: make(map[slashKey]processor.SlashIntent)}
}

// Record accumulates one slash intent. A Full intent always wins over a
// previously recorded Partial intent for the same signer; a later Partial
// intent never downgrades an already-recorded Full intent.
func (l *SlashLedger) Record(intent processor.SlashIntent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := slashKey{genesis: intent.Genesis, signer: intent.Signer}
	existing, ok := l.entries[key]
	if ok && existing.Severity == processor.SlashFull {
		return
	}
	l.entries[key] = intent
}

// FlushEpoch returns every accumulated intent and clears the ledger,
// called on a periodic tick by the owning cohort task.
func (l *SlashLedger) FlushEpoch() []processor.SlashIntent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]processor.SlashIntent, 0, len(l.entries))
	for _, v := range l.entries {
		out = append(out, v)
	}
	l.entries = make(map[slashKey]processor.SlashIntent)
	return out
}
