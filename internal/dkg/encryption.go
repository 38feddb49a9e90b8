// Copyright 2025 Certen Protocol
//
// Encrypted-toward-a-peer envelope for the per-recipient secret shares of
// the DKG; commitments are broadcast unencrypted. Grounded on
// original_source/crypto/message-box's ECIES-over-the-signing-curve shape:
// an ephemeral key agreement followed by a symmetric stream cipher keyed on
// the shared point, rather than the DKG curve's own encryption (message-box
// is a standalone crate precisely because the DKG curve may not be
// convenient for the wire encryption; we reuse the one curve this module
// already has constant-time arithmetic for).

package dkg

import (
	"crypto/rand"
	"fmt"

	"github.com/certen/tss-coordinator/internal/curve"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20"
)

// Envelope is a single ciphertext encrypted toward one recipient's
// long-term public key.
type Envelope struct {
	Ephemeral  curve.GroupPoint
	Ciphertext []byte
}

func sharedKey(point curve.GroupPoint) [chacha20.KeySize]byte {
	b := point.Bytes()
	digest := blake2b.Sum256(append([]byte("dkg-ecies-key"), b[:]...))
	var key [chacha20.KeySize]byte
	copy(key[:], digest[:])
	return key
}

// Encrypt produces an Envelope that only the holder of recipientSecret can
// open, given the long-term public key recipientPub = recipientSecret*G.
func Encrypt(recipientPub curve.GroupPoint, plaintext []byte) (Envelope, error) {
	ephSecretBytes := make([]byte, curve.FieldBytes)
	if _, err := rand.Read(ephSecretBytes); err != nil {
		return Envelope{}, fmt.Errorf("dkg: ephemeral secret: %w", err)
	}
	ephSecret := curve.HashToScalar([]byte("dkg-ephemeral"), ephSecretBytes)
	ephPub := curve.Generator().ScalarMul(ephSecret)
	shared := recipientPub.ScalarMul(ephSecret)

	key := sharedKey(shared)
	var nonce [chacha20.NonceSize]byte
	c, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
	if err != nil {
		return Envelope{}, fmt.Errorf("dkg: cipher init: %w", err)
	}
	ct := make([]byte, len(plaintext))
	c.XORKeyStream(ct, plaintext)
	return Envelope{Ephemeral: ephPub, Ciphertext: ct}, nil
}

// Decrypt opens an Envelope addressed to recipientSecret.
func Decrypt(recipientSecret curve.FieldElement, env Envelope) ([]byte, error) {
	shared := env.Ephemeral.ScalarMul(recipientSecret)
	key := sharedKey(shared)
	var nonce [chacha20.NonceSize]byte
	c, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
	if err != nil {
		return nil, fmt.Errorf("dkg: cipher init: %w", err)
	}
	pt := make([]byte, len(env.Ciphertext))
	c.XORKeyStream(pt, env.Ciphertext)
	return pt, nil
}

// Bytes serializes an Envelope as ephemeral-point || ciphertext.
func (e Envelope) Bytes() []byte {
	eph := e.Ephemeral.Bytes()
	out := make([]byte, 0, len(eph)+len(e.Ciphertext))
	out = append(out, eph[:]...)
	return append(out, e.Ciphertext...)
}

// EnvelopeFromBytes parses the Bytes() encoding.
func EnvelopeFromBytes(b []byte) (Envelope, error) {
	if len(b) < curve.PointBytes {
		return Envelope{}, fmt.Errorf("dkg: envelope too short")
	}
	var pb [curve.PointBytes]byte
	copy(pb[:], b[:curve.PointBytes])
	p, err := curve.FromBytes(pb)
	if err != nil {
		return Envelope{}, fmt.Errorf("dkg: envelope ephemeral point: %w", err)
	}
	return Envelope{Ephemeral: p, Ciphertext: append([]byte(nil), b[curve.PointBytes:]...)}, nil
}
