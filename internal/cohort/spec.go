// Copyright 2025 Certen Protocol
//
// CohortSpec: the immutable description of one threshold-signing cohort, as
// spec.md §3. Grounded on original_source/coordinator/src/tributary/scanner.rs's
// TributarySpec, which carries n, t, genesis and the validator set in the
// same shape and is consulted read-only by the scanner/reducer.

package cohort

import "fmt"

// ValidatorKey is a long-term validator public key, serving as the
// CohortSpec's bijection target for i(pk) -> {1..n}.
type ValidatorKey [32]byte

// Spec is the immutable cohort description fixed at cohort creation.
type Spec struct {
	genesis    [32]byte
	set        uint32
	threshold  int
	validators []ValidatorKey
	index      map[ValidatorKey]int // 1-based
}

// New builds a Spec from an ordered validator list and threshold. The
// ordering of validators is the canonical order used everywhere a
// deterministic iteration over the cohort is required (spec.md §4.10's
// tie-break rule).
func New(genesis [32]byte, set uint32, threshold int, validators []ValidatorKey) (*Spec, error) {
	if threshold <= 0 || threshold > len(validators) {
		return nil, fmt.Errorf("cohort: threshold %d out of range for %d validators", threshold, len(validators))
	}
	index := make(map[ValidatorKey]int, len(validators))
	for pos, pk := range validators {
		if _, dup := index[pk]; dup {
			return nil, fmt.Errorf("cohort: duplicate validator key at position %d", pos)
		}
		index[pk] = pos + 1
	}
	return &Spec{
		genesis:    genesis,
		set:        set,
		threshold:  threshold,
		validators: append([]ValidatorKey(nil), validators...),
		index:      index,
	}, nil
}

// Genesis returns the cohort's genesis identifier.
func (s *Spec) Genesis() [32]byte { return s.genesis }

// Set returns the cohort's external-chain set identifier.
func (s *Spec) Set() uint32 { return s.set }

// N returns the total validator count.
func (s *Spec) N() int { return len(s.validators) }

// T returns the signing threshold.
func (s *Spec) T() int { return s.threshold }

// Validators returns the canonical validator ordering. Callers must not
// mutate the returned slice.
func (s *Spec) Validators() []ValidatorKey { return s.validators }

// I returns the 1-based index of pk within the cohort, or 0 if pk is not a
// member.
func (s *Spec) I(pk ValidatorKey) int { return s.index[pk] }
