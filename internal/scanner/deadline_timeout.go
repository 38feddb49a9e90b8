// Copyright 2025 Certen Protocol
//
// DeadlineTimeout: a wall-clock TimeoutSource, grounded on
// pkg/batch/confirmation_tracker.go's poll-and-compare shape, generalized
// from per-anchor confirmation counts to a per-attempt deadline. Wall-clock
// timing itself is an external collaborator per spec.md §1; this is the one
// concrete implementation a deployment wires in place of NoTimeouts.
package scanner

import (
	"context"
	"sync"
	"time"
)

type deadlineKey struct {
	zone    Zone
	genesis [32]byte
	id      [32]byte
	attempt uint32
}

// DeadlineTimeout reports an attempt expired once Window has elapsed since
// the first time it was asked about that attempt. The deadline is set on
// first observation rather than on attempt entry, which is adequate here
// since CheckTimeout is consulted every block while an attempt is active
// (SPEC_FULL.md §4.11): the first observation happens within one poll
// interval of the attempt starting.
type DeadlineTimeout struct {
	window time.Duration

	mu        sync.Mutex
	deadlines map[deadlineKey]time.Time
}

// NewDeadlineTimeout constructs a DeadlineTimeout with the given window.
func NewDeadlineTimeout(window time.Duration) *DeadlineTimeout {
	return &DeadlineTimeout{window: window, deadlines: make(map[deadlineKey]time.Time)}
}

// Expired implements TimeoutSource.
func (d *DeadlineTimeout) Expired(ctx context.Context, zone Zone, genesis, id [32]byte, attempt uint32) (bool, error) {
	key := deadlineKey{zone: zone, genesis: genesis, id: id, attempt: attempt}
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	for k := range d.deadlines {
		if k.zone == zone && k.genesis == genesis && k.id == id && k.attempt != attempt {
			delete(d.deadlines, k)
		}
	}

	deadline, ok := d.deadlines[key]
	if !ok {
		deadline = now.Add(d.window)
		d.deadlines[key] = deadline
		return false, nil
	}
	return !now.Before(deadline), nil
}
