// Copyright 2025 Certen Protocol
//
// Deterministic per-attempt randomness. Grounded on
// original_source/processor/src/key_gen.rs, which seeds a ChaCha20Rng from
// a transcript of (entropy, context-string) so a crashed and restarted
// participant regenerates byte-identical coefficients for an attempt it
// never got to persist past Init.

package dkg

import (
	"fmt"

	"github.com/certen/tss-coordinator/internal/curve"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20"
)

// ID identifies one DKG attempt: a cohort "set" and an attempt counter.
// Per spec.md §4.8, DKG has no plan id of its own; the zero id is implicit.
type ID struct {
	Set     uint32
	Attempt uint32
}

// context reproduces spec.md §4.8's session label exactly: "Key Gen.
// Session: s, Index: i, Attempt: a".
func context(id ID, index int) string {
	return fmt.Sprintf("Key Gen. Session: %d, Index: %d, Attempt: %d", id.Set, index, id.Attempt)
}

// deterministicRNG streams pseudo-random bytes from a ChaCha20 keystream
// keyed from a blake2b digest of (label, entropy, context), with an
// all-zero nonce. Two
// participants never share a label+entropy+context tuple, and the same
// participant reconstructing after a crash derives the identical stream.
type deterministicRNG struct {
	cipher *chacha20.Cipher
}

func newDeterministicRNG(label string, entropy [32]byte, id ID, index int) *deterministicRNG {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic("dkg: blake2b init: " + err.Error())
	}
	_, _ = h.Write([]byte(label))
	_, _ = h.Write(entropy[:])
	_, _ = h.Write([]byte(context(id, index)))
	seed := h.Sum(nil)

	var key [chacha20.KeySize]byte
	copy(key[:], seed)
	var nonce [chacha20.NonceSize]byte // all-zero: key is single-use by construction.
	c, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
	if err != nil {
		panic("dkg: chacha20 init: " + err.Error())
	}
	return &deterministicRNG{cipher: c}
}

// scalar draws the next deterministic field element from the stream.
func (r *deterministicRNG) scalar() curve.FieldElement {
	var zero, out [32]byte
	r.cipher.XORKeyStream(out[:], zero[:])
	return curve.HashToScalar([]byte("dkg-rng-scalar"), out[:])
}

func (r *deterministicRNG) bytes(n int) []byte {
	zero := make([]byte, n)
	out := make([]byte, n)
	r.cipher.XORKeyStream(out, zero)
	return out
}
