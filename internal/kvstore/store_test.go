// Copyright 2025 Certen Protocol

package kvstore

import "testing"

func TestStoreGetMissingKeyReturnsNilNil(t *testing.T) {
	s := NewMemory()
	v, err := s.Get("family", []byte("missing"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != nil {
		t.Fatalf("expected nil for a missing key, got %v", v)
	}
}

func TestStoreSetGetRoundTrip(t *testing.T) {
	s := NewMemory()
	if err := s.Set("family", []byte("k"), []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, err := s.Get("family", []byte("k"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(v) != "v" {
		t.Fatalf("got %q want %q", v, "v")
	}
	has, err := s.Has("family", []byte("k"))
	if err != nil {
		t.Fatalf("Has: %v", err)
	}
	if !has {
		t.Fatalf("expected Has to report true after Set")
	}
}

func TestStoreNamespacesFamiliesIndependently(t *testing.T) {
	s := NewMemory()
	if err := s.Set("family-a", []byte("k"), []byte("a-value")); err != nil {
		t.Fatalf("Set family-a: %v", err)
	}
	if err := s.Set("family-b", []byte("k"), []byte("b-value")); err != nil {
		t.Fatalf("Set family-b: %v", err)
	}
	va, err := s.Get("family-a", []byte("k"))
	if err != nil {
		t.Fatalf("Get family-a: %v", err)
	}
	vb, err := s.Get("family-b", []byte("k"))
	if err != nil {
		t.Fatalf("Get family-b: %v", err)
	}
	if string(va) != "a-value" || string(vb) != "b-value" {
		t.Fatalf("same key under different families collided: %q, %q", va, vb)
	}
}

func TestTxnReadYourWrites(t *testing.T) {
	s := NewMemory()
	if err := s.Set("family", []byte("k"), []byte("committed")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	txn := s.Begin()
	v, err := txn.Get("family", []byte("k"))
	if err != nil {
		t.Fatalf("Get before staged write: %v", err)
	}
	if string(v) != "committed" {
		t.Fatalf("expected to see the committed value before any staged write, got %q", v)
	}

	if err := txn.Set("family", []byte("k"), []byte("staged")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, err = txn.Get("family", []byte("k"))
	if err != nil {
		t.Fatalf("Get after staged write: %v", err)
	}
	if string(v) != "staged" {
		t.Fatalf("expected to see the staged value, got %q", v)
	}

	outside, err := s.Get("family", []byte("k"))
	if err != nil {
		t.Fatalf("Get outside txn: %v", err)
	}
	if string(outside) != "committed" {
		t.Fatalf("uncommitted staged write leaked outside the txn: %q", outside)
	}

	if err := txn.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	after, err := s.Get("family", []byte("k"))
	if err != nil {
		t.Fatalf("Get after commit: %v", err)
	}
	if string(after) != "staged" {
		t.Fatalf("expected committed value to reflect the staged write, got %q", after)
	}
}

func TestTxnDeleteIsVisibleBeforeCommit(t *testing.T) {
	s := NewMemory()
	if err := s.Set("family", []byte("k"), []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	txn := s.Begin()
	if err := txn.Delete("family", []byte("k")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	has, err := txn.Has("family", []byte("k"))
	if err != nil {
		t.Fatalf("Has: %v", err)
	}
	if has {
		t.Fatalf("expected staged delete to be visible within the txn")
	}

	outsideHas, err := s.Has("family", []byte("k"))
	if err != nil {
		t.Fatalf("Has outside txn: %v", err)
	}
	if !outsideHas {
		t.Fatalf("uncommitted delete leaked outside the txn")
	}

	if err := txn.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	afterHas, err := s.Has("family", []byte("k"))
	if err != nil {
		t.Fatalf("Has after commit: %v", err)
	}
	if afterHas {
		t.Fatalf("expected the key to be gone after committing the delete")
	}
}

func TestTxnDiscardAppliesNothing(t *testing.T) {
	s := NewMemory()
	txn := s.Begin()
	if err := txn.Set("family", []byte("k"), []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := txn.Discard(); err != nil {
		t.Fatalf("Discard: %v", err)
	}

	has, err := s.Has("family", []byte("k"))
	if err != nil {
		t.Fatalf("Has: %v", err)
	}
	if has {
		t.Fatalf("expected a discarded txn to leave no trace")
	}
}
