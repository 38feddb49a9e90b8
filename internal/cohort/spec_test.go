// Copyright 2025 Certen Protocol

package cohort

import "testing"

func keyFor(b byte) ValidatorKey {
	var k ValidatorKey
	k[0] = b
	return k
}

func TestNewRejectsZeroThreshold(t *testing.T) {
	validators := []ValidatorKey{keyFor(1), keyFor(2)}
	if _, err := New([32]byte{}, 1, 0, validators); err == nil {
		t.Fatalf("expected an error for a zero threshold")
	}
}

func TestNewRejectsThresholdAboveN(t *testing.T) {
	validators := []ValidatorKey{keyFor(1), keyFor(2)}
	if _, err := New([32]byte{}, 1, 3, validators); err == nil {
		t.Fatalf("expected an error for a threshold exceeding the validator count")
	}
}

func TestNewRejectsDuplicateValidator(t *testing.T) {
	validators := []ValidatorKey{keyFor(1), keyFor(2), keyFor(1)}
	if _, err := New([32]byte{}, 1, 2, validators); err == nil {
		t.Fatalf("expected an error for a duplicate validator key")
	}
}

func TestNewAcceptsValidSpec(t *testing.T) {
	validators := []ValidatorKey{keyFor(1), keyFor(2), keyFor(3)}
	genesis := [32]byte{0xAA}
	s, err := New(genesis, 7, 2, validators)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.Genesis() != genesis {
		t.Fatalf("Genesis mismatch")
	}
	if s.Set() != 7 {
		t.Fatalf("Set mismatch: got %d", s.Set())
	}
	if s.N() != 3 {
		t.Fatalf("N mismatch: got %d", s.N())
	}
	if s.T() != 2 {
		t.Fatalf("T mismatch: got %d", s.T())
	}
}

func TestSpecIReturnsOneBasedIndex(t *testing.T) {
	validators := []ValidatorKey{keyFor(10), keyFor(20), keyFor(30)}
	s, err := New([32]byte{}, 1, 2, validators)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := s.I(keyFor(10)); got != 1 {
		t.Fatalf("I(first) = %d, want 1", got)
	}
	if got := s.I(keyFor(20)); got != 2 {
		t.Fatalf("I(second) = %d, want 2", got)
	}
	if got := s.I(keyFor(30)); got != 3 {
		t.Fatalf("I(third) = %d, want 3", got)
	}
}

func TestSpecINonMemberReturnsZero(t *testing.T) {
	validators := []ValidatorKey{keyFor(10), keyFor(20)}
	s, err := New([32]byte{}, 1, 1, validators)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := s.I(keyFor(99)); got != 0 {
		t.Fatalf("I(non-member) = %d, want 0", got)
	}
}

func TestSpecValidatorsOrderingIsCanonical(t *testing.T) {
	validators := []ValidatorKey{keyFor(3), keyFor(1), keyFor(2)}
	s, err := New([32]byte{}, 1, 1, validators)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got := s.Validators()
	for i, want := range validators {
		if got[i] != want {
			t.Fatalf("Validators()[%d] = %v, want %v", i, got[i], want)
		}
	}
}
