// Copyright 2025 Certen Protocol
//
// Attempt-timeout-driven re-attempt triggering, per SPEC_FULL.md §4.11 /
// spec.md §9 open question (b). Wall-clock timing is an external
// collaborator (spec.md §1 excludes consensus/transport timing from this
// module's scope); the scanner only exposes the hook it consults once per
// processed block and the bump logic itself, grounded on
// pkg/batch/confirmation_tracker.go's poll-and-act timeout shape.

package scanner

import "context"

// TimeoutSource reports whether (zone, id)'s current attempt has expired,
// and is consulted once per processed block by the scanner's Run loop.
// Implementations own the wall-clock bookkeeping; DeadlineTimeout in this
// package counts from the first time it is asked about an attempt and does
// not look at whether the attempt reached threshold.
type TimeoutSource interface {
	Expired(ctx context.Context, zone Zone, genesis, id [32]byte, attempt uint32) (bool, error)
}

// NoTimeouts is a TimeoutSource that never reports an expiry, used when a
// deployment has no re-attempt policy configured.
type NoTimeouts struct{}

// Expired always returns false.
func (NoTimeouts) Expired(context.Context, Zone, [32]byte, [32]byte, uint32) (bool, error) {
	return false, nil
}
