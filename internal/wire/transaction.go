// Copyright 2025 Certen Protocol
//
// Wire-exact LogTransaction encode/decode per spec.md §6's tag table. The
// raw framing of the replicated log itself (length prefixes, block
// boundaries) is an external collaborator per spec.md §1; this package only
// covers one transaction's byte layout, grounded on the tagged-enum shape of
// original_source/coordinator/src/tributary (Transaction::DkgCommitments,
// ::BatchPreprocess, ...), expressed here as a Go tagged struct rather than
// a Rust enum per the "reference IDs vs pointers" guidance in spec.md §9.

package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Tag identifies the LogTransaction variant, per spec.md §6.
type Tag byte

const (
	TagDkgCommitments  Tag = 0
	TagDkgShares       Tag = 1
	TagExternalBlock   Tag = 2
	TagHostBlock       Tag = 3
	TagBatchPreprocess Tag = 4
	TagBatchShare      Tag = 5
	TagSignPreprocess  Tag = 6
	TagSignShare       Tag = 7
)

// ErrShortBuffer is returned when a transaction's encoded bytes are
// truncated relative to its declared lengths.
var ErrShortBuffer = errors.New("wire: buffer too short")

// Signed carries the per-submitter authentication envelope attached to
// every signed transaction variant (spec.md §6).
type Signed struct {
	Signer    [32]byte
	Nonce     uint32
	Signature [64]byte
}

func (s Signed) encode(buf []byte) []byte {
	buf = append(buf, s.Signer[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, s.Nonce)
	buf = append(buf, s.Signature[:]...)
	return buf
}

func decodeSigned(b []byte) (Signed, []byte, error) {
	const size = 32 + 4 + 64
	if len(b) < size {
		return Signed{}, nil, ErrShortBuffer
	}
	var s Signed
	copy(s.Signer[:], b[:32])
	s.Nonce = binary.LittleEndian.Uint32(b[32:36])
	copy(s.Signature[:], b[36:100])
	return s, b[size:], nil
}

// Transaction is a decoded LogTransaction. Exactly one of the payload
// fields is meaningful, selected by Tag; this mirrors the original Rust
// enum's variants as a flat tagged struct per spec.md §9's
// arena-index-over-pointer guidance (no recursive ownership needed here,
// but the same "no per-variant pointer indirection" spirit applies).
type Transaction struct {
	Tag Tag

	// DkgCommitments / BatchPreprocess / BatchShare / SignPreprocess / SignShare
	Attempt uint32
	Bytes   []byte
	Signed  Signed

	// DkgShares
	Shares map[uint16][]byte

	// ExternalBlock / HostBlock
	BlockHash [32]byte

	// BatchPreprocess / BatchShare / SignPreprocess / SignShare
	PlanID [32]byte
}

// Encode produces the wire-exact byte representation: one leading tag byte
// followed by the variant's payload.
func (t Transaction) Encode() []byte {
	buf := []byte{byte(t.Tag)}
	switch t.Tag {
	case TagDkgCommitments:
		buf = binary.LittleEndian.AppendUint32(buf, t.Attempt)
		buf = appendVarBytes(buf, t.Bytes)
		buf = t.Signed.encode(buf)
	case TagDkgShares:
		buf = binary.LittleEndian.AppendUint32(buf, t.Attempt)
		buf = appendShareMap(buf, t.Shares)
		buf = t.Signed.encode(buf)
	case TagExternalBlock, TagHostBlock:
		buf = append(buf, t.BlockHash[:]...)
	case TagBatchPreprocess, TagBatchShare, TagSignPreprocess, TagSignShare:
		buf = append(buf, t.PlanID[:]...)
		buf = binary.LittleEndian.AppendUint32(buf, t.Attempt)
		buf = appendVarBytes(buf, t.Bytes)
		buf = t.Signed.encode(buf)
	default:
		panic(fmt.Sprintf("wire: unknown transaction tag %d", t.Tag))
	}
	return buf
}

// Decode parses a wire-exact LogTransaction. Malformed bytes are reported
// to the caller as a submitter-attributable encoding error (spec.md §7:
// EncodingError, "malicious signer"), never a panic.
func Decode(b []byte) (Transaction, error) {
	if len(b) < 1 {
		return Transaction{}, ErrShortBuffer
	}
	tag := Tag(b[0])
	rest := b[1:]
	var t Transaction
	t.Tag = tag

	switch tag {
	case TagDkgCommitments:
		if len(rest) < 4 {
			return Transaction{}, ErrShortBuffer
		}
		t.Attempt = binary.LittleEndian.Uint32(rest[:4])
		rest = rest[4:]
		var err error
		t.Bytes, rest, err = decodeVarBytes(rest)
		if err != nil {
			return Transaction{}, err
		}
		t.Signed, rest, err = decodeSigned(rest)
		if err != nil {
			return Transaction{}, err
		}
	case TagDkgShares:
		if len(rest) < 4 {
			return Transaction{}, ErrShortBuffer
		}
		t.Attempt = binary.LittleEndian.Uint32(rest[:4])
		rest = rest[4:]
		var err error
		t.Shares, rest, err = decodeShareMap(rest)
		if err != nil {
			return Transaction{}, err
		}
		t.Signed, rest, err = decodeSigned(rest)
		if err != nil {
			return Transaction{}, err
		}
	case TagExternalBlock, TagHostBlock:
		if len(rest) < 32 {
			return Transaction{}, ErrShortBuffer
		}
		copy(t.BlockHash[:], rest[:32])
	case TagBatchPreprocess, TagBatchShare, TagSignPreprocess, TagSignShare:
		if len(rest) < 32+4 {
			return Transaction{}, ErrShortBuffer
		}
		copy(t.PlanID[:], rest[:32])
		rest = rest[32:]
		t.Attempt = binary.LittleEndian.Uint32(rest[:4])
		rest = rest[4:]
		var err error
		t.Bytes, rest, err = decodeVarBytes(rest)
		if err != nil {
			return Transaction{}, err
		}
		t.Signed, rest, err = decodeSigned(rest)
		if err != nil {
			return Transaction{}, err
		}
	default:
		return Transaction{}, fmt.Errorf("wire: unknown transaction tag %d", tag)
	}
	return t, nil
}

func appendVarBytes(buf, b []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(b)))
	return append(buf, b...)
}

func decodeVarBytes(b []byte) ([]byte, []byte, error) {
	if len(b) < 4 {
		return nil, nil, ErrShortBuffer
	}
	n := binary.LittleEndian.Uint32(b[:4])
	b = b[4:]
	if uint64(len(b)) < uint64(n) {
		return nil, nil, ErrShortBuffer
	}
	return append([]byte(nil), b[:n]...), b[n:], nil
}

func appendShareMap(buf []byte, m map[uint16][]byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(m)))
	keys := make([]uint16, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Deterministic wire order regardless of map iteration order.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	for _, k := range keys {
		buf = binary.LittleEndian.AppendUint16(buf, k)
		buf = appendVarBytes(buf, m[k])
	}
	return buf
}

func decodeShareMap(b []byte) (map[uint16][]byte, []byte, error) {
	if len(b) < 4 {
		return nil, nil, ErrShortBuffer
	}
	n := binary.LittleEndian.Uint32(b[:4])
	b = b[4:]
	out := make(map[uint16][]byte, n)
	for i := uint32(0); i < n; i++ {
		if len(b) < 2 {
			return nil, nil, ErrShortBuffer
		}
		k := binary.LittleEndian.Uint16(b[:2])
		b = b[2:]
		var (
			v   []byte
			err error
		)
		v, b, err = decodeVarBytes(b)
		if err != nil {
			return nil, nil, err
		}
		out[k] = v
	}
	return out, b, nil
}
