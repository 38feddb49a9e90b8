// Copyright 2025 Certen Protocol
//
// Cohort: the one-goroutine-per-cohort task spec.md §5 describes, owning
// its storage handle, its Scanner/Reducer pair, and the period at which
// accumulated slash intents are flushed to the outbound sink. Grounded on
// pkg/batch/consensus_coordinator.go's Start/Stop/cleanupLoop shape.

package scanner

import (
	"context"
	"log"
	"time"

	"github.com/certen/tss-coordinator/internal/processor"
)

// CohortConfig configures a Cohort task.
type CohortConfig struct {
	PollInterval time.Duration
	SlashEpoch   time.Duration
	Logger       *log.Logger
}

// DefaultCohortConfig mirrors ConfirmationTrackerConfig's constructor
// pattern: sane defaults, overridable per field.
func DefaultCohortConfig() *CohortConfig {
	return &CohortConfig{
		PollInterval: 2 * time.Second,
		SlashEpoch:   30 * time.Second,
		Logger:       log.New(log.Writer(), "[cohort] ", log.LstdFlags),
	}
}

// Cohort runs one genesis's Scanner loop plus periodic slash-ledger
// flushing, single-threaded cooperative per spec.md §5: no intra-cohort
// parallelism, ordering within a block strictly serial.
type Cohort struct {
	scanner *Scanner
	slashes *SlashLedger
	sink    processor.Sink
	genesis [32]byte
	cfg     *CohortConfig
}

// NewCohort constructs a Cohort task.
func NewCohort(genesis [32]byte, scanner *Scanner, slashes *SlashLedger, sink processor.Sink, cfg *CohortConfig) *Cohort {
	if cfg == nil {
		cfg = DefaultCohortConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(log.Writer(), "[cohort] ", log.LstdFlags)
	}
	return &Cohort{scanner: scanner, slashes: slashes, sink: sink, genesis: genesis, cfg: cfg}
}

// Run polls the log on PollInterval and flushes slash intents on
// SlashEpoch, until ctx is cancelled. Cancellation is safe at any
// suspension point; every commit already made is crash-safe (spec.md §5).
func (c *Cohort) Run(ctx context.Context) error {
	pollTicker := time.NewTicker(c.cfg.PollInterval)
	defer pollTicker.Stop()
	slashTicker := time.NewTicker(c.cfg.SlashEpoch)
	defer slashTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-pollTicker.C:
			if err := c.scanner.Run(ctx); err != nil && ctx.Err() == nil {
				c.cfg.Logger.Printf("genesis %x: scan error: %v", c.genesis, err)
			}
		case <-slashTicker.C:
			for _, intent := range c.slashes.FlushEpoch() {
				msg := processor.Message{Kind: processor.KindSlashIntent, Slash: intent}
				if err := c.sink.Send(ctx, msg); err != nil && ctx.Err() == nil {
					c.cfg.Logger.Printf("genesis %x: flush slash intent: %v", c.genesis, err)
				}
			}
		}
	}
}
