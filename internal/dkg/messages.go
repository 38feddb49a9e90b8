// Copyright 2025 Certen Protocol
//
// Wire encoding of the two DKG round payloads (commitments, shares) that
// ride inside a LogTransaction's opaque `bytes`/`shares` fields (spec.md
// §6). Grounded on original_source/processor/src/key_gen.rs's
// EncryptionKeyMessage<Commitments>/EncryptedMessage<SecretShare> framing:
// a commitments broadcast is public (commitment points + PoK), a share is
// encrypted per-recipient.

package dkg

import (
	"encoding/binary"
	"fmt"

	"github.com/certen/tss-coordinator/internal/curve"
)

// CommitmentsMessage is the round-1 broadcast: the degree-(t-1) polynomial's
// coefficient commitments plus a PoK of the constant term.
type CommitmentsMessage struct {
	Commitments []curve.GroupPoint
	PoK         SchnorrProof
}

// Bytes serializes a CommitmentsMessage.
func (m CommitmentsMessage) Bytes() []byte {
	out := make([]byte, 0, 4+len(m.Commitments)*curve.PointBytes+curve.PointBytes+curve.FieldBytes)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(m.Commitments)))
	for _, c := range m.Commitments {
		b := c.Bytes()
		out = append(out, b[:]...)
	}
	rb := m.PoK.R.Bytes()
	sb := m.PoK.S.Bytes()
	out = append(out, rb[:]...)
	out = append(out, sb[:]...)
	return out
}

// CommitmentsMessageFromBytes parses the Bytes() encoding.
func CommitmentsMessageFromBytes(b []byte) (CommitmentsMessage, error) {
	if len(b) < 4 {
		return CommitmentsMessage{}, fmt.Errorf("dkg: commitments message too short")
	}
	n := binary.LittleEndian.Uint32(b[:4])
	b = b[4:]
	out := CommitmentsMessage{Commitments: make([]curve.GroupPoint, n)}
	for i := uint32(0); i < n; i++ {
		if len(b) < curve.PointBytes {
			return CommitmentsMessage{}, fmt.Errorf("dkg: commitments message truncated")
		}
		var pb [curve.PointBytes]byte
		copy(pb[:], b[:curve.PointBytes])
		p, err := curve.FromBytes(pb)
		if err != nil {
			return CommitmentsMessage{}, fmt.Errorf("dkg: commitment point: %w", err)
		}
		out.Commitments[i] = p
		b = b[curve.PointBytes:]
	}
	if len(b) < curve.PointBytes+curve.FieldBytes {
		return CommitmentsMessage{}, fmt.Errorf("dkg: commitments message missing PoK")
	}
	var rb [curve.PointBytes]byte
	copy(rb[:], b[:curve.PointBytes])
	r, err := curve.FromBytes(rb)
	if err != nil {
		return CommitmentsMessage{}, fmt.Errorf("dkg: PoK R: %w", err)
	}
	b = b[curve.PointBytes:]
	var sb [curve.FieldBytes]byte
	copy(sb[:], b[:curve.FieldBytes])
	s, err := curve.FieldFromBytes(sb)
	if err != nil {
		return CommitmentsMessage{}, fmt.Errorf("dkg: PoK S: %w", err)
	}
	out.PoK = SchnorrProof{R: r, S: s}
	return out, nil
}

// ShareMessage is one encrypted evaluation f_i(j) sent from participant i to
// participant j.
type ShareMessage struct {
	Envelope Envelope
}

// Bytes serializes a ShareMessage.
func (m ShareMessage) Bytes() []byte { return m.Envelope.Bytes() }

// ShareMessageFromBytes parses the Bytes() encoding.
func ShareMessageFromBytes(b []byte) (ShareMessage, error) {
	env, err := EnvelopeFromBytes(b)
	if err != nil {
		return ShareMessage{}, err
	}
	return ShareMessage{Envelope: env}, nil
}
