// Copyright 2025 Certen Protocol
//
// Error taxonomy for the log scanner/reducer, per spec.md §7. The reducer
// never panics on peer misbehavior; EncodingError, ProtocolViolation and
// Lateness are converted into slash intents and returned to the caller as
// ordinary errors/results, matching pkg/batch/errors.go's closed
// sentinel-error style. FatalLocal is the one class that halts the cohort
// (a deliberate panic, not log.Fatal, per SPEC_FULL.md §2).

package scanner

import "fmt"

// EncodingError wraps a submitter's invalid bytes, reported as malicious
// signer behavior rather than a local fault.
type EncodingError struct {
	Signer [32]byte
	Err    error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("scanner: encoding error from signer %x: %v", e.Signer, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// ProtocolViolation marks an attempt-from-the-future, an equivocation, or
// an unrecognized id — always accompanied by a full-slash intent. The
// event is still marked handled so the cohort proceeds (spec.md §7).
type ProtocolViolation struct {
	Reason string
}

func (e *ProtocolViolation) Error() string { return "scanner: protocol violation: " + e.Reason }

// Lateness marks an attempt older than CurrentAttempt — a partial-slash
// intent with no state mutation.
type Lateness struct {
	Reason string
}

func (e *Lateness) Error() string { return "scanner: late submission: " + e.Reason }

// FatalLocal indicates storage corruption or a self-check failure: a
// missing batch_id/plan_ids record for a block this node itself provided,
// or an invariant this process is supposed to guarantee. The cohort halts;
// manual intervention is required (spec.md §7).
type FatalLocal struct {
	Reason string
}

func (e *FatalLocal) Error() string { return "scanner: fatal local invariant violated: " + e.Reason }
