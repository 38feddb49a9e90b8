// Copyright 2025 Certen Protocol
//
// Persistence points for the DKG machine, per spec.md §4.8:
// params(set), commitments(id), generated_keys(id), keys(group_key).
// Grounded on original_source/processor/src/key_gen.rs's KeyGenDb, which
// keys the same four record families the same way (commitments/keys are
// NOT scoped under params so a superseded attempt's commitments remain
// retrievable if it ends up finalized late).

package dkg

import (
	"encoding/binary"
	"fmt"

	"github.com/certen/tss-coordinator/internal/curve"
	"github.com/certen/tss-coordinator/internal/kvstore"
)

const (
	familyParams        = "dkg_params"
	familyCommitments   = "dkg_commitments"
	familyGeneratedKeys = "dkg_generated_keys"
	familyKeys          = "dkg_keys"
)

// Params is the immutable session configuration for one cohort "set".
type Params struct {
	N int
	T int
}

func paramsKey(set uint32) []byte {
	k := make([]byte, 4)
	binary.LittleEndian.PutUint32(k, set)
	return k
}

func idKey(id ID) []byte {
	k := make([]byte, 8)
	binary.LittleEndian.PutUint32(k[0:4], id.Set)
	binary.LittleEndian.PutUint32(k[4:8], id.Attempt)
	return k
}

func saveParams(txn *kvstore.Txn, set uint32, p Params) error {
	v := make([]byte, 8)
	binary.LittleEndian.PutUint32(v[0:4], uint32(p.N))
	binary.LittleEndian.PutUint32(v[4:8], uint32(p.T))
	return txn.Set(familyParams, paramsKey(set), v)
}

func loadParams(store kvstore.Reader, set uint32) (Params, bool, error) {
	v, err := store.Get(familyParams, paramsKey(set))
	if err != nil {
		return Params{}, false, err
	}
	if v == nil {
		return Params{}, false, nil
	}
	if len(v) < 8 {
		return Params{}, false, fmt.Errorf("dkg: corrupt params record")
	}
	return Params{N: int(binary.LittleEndian.Uint32(v[0:4])), T: int(binary.LittleEndian.Uint32(v[4:8]))}, true, nil
}

// saveCommitments persists the received commitments for id, keyed by
// sender index 1..n, serialized as count-prefixed (index, message) pairs in
// ascending index order for determinism.
func saveCommitments(txn *kvstore.Txn, id ID, n int, byIndex map[int]CommitmentsMessage) error {
	buf := make([]byte, 0, 64)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(byIndex)))
	for i := 1; i <= n; i++ {
		m, ok := byIndex[i]
		if !ok {
			continue
		}
		buf = binary.LittleEndian.AppendUint32(buf, uint32(i))
		mb := m.Bytes()
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(mb)))
		buf = append(buf, mb...)
	}
	return txn.Set(familyCommitments, idKey(id), buf)
}

func loadCommitments(store kvstore.Reader, id ID) (map[int]CommitmentsMessage, error) {
	v, err := store.Get(familyCommitments, idKey(id))
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	if len(v) < 4 {
		return nil, fmt.Errorf("dkg: corrupt commitments record")
	}
	n := binary.LittleEndian.Uint32(v[:4])
	v = v[4:]
	out := make(map[int]CommitmentsMessage, n)
	for j := uint32(0); j < n; j++ {
		if len(v) < 8 {
			return nil, fmt.Errorf("dkg: truncated commitments record")
		}
		idx := binary.LittleEndian.Uint32(v[:4])
		l := binary.LittleEndian.Uint32(v[4:8])
		v = v[8:]
		if uint64(len(v)) < uint64(l) {
			return nil, fmt.Errorf("dkg: truncated commitments payload")
		}
		m, err := CommitmentsMessageFromBytes(v[:l])
		if err != nil {
			return nil, err
		}
		out[int(idx)] = m
		v = v[l:]
	}
	return out, nil
}

// GeneratedKeys is this participant's locally derived key material for an
// attempt, persisted before the attempt is confirmed as the session's final
// key (spec.md §4.8 "generated_keys(id)").
type GeneratedKeys struct {
	GroupKey        curve.GroupPoint
	Share           curve.FieldElement
	VerificationKey curve.GroupPoint
}

func saveGeneratedKeys(txn *kvstore.Txn, id ID, k GeneratedKeys) error {
	gb := k.GroupKey.Bytes()
	sb := k.Share.Bytes()
	vb := k.VerificationKey.Bytes()
	buf := make([]byte, 0, len(gb)+len(sb)+len(vb))
	buf = append(buf, gb[:]...)
	buf = append(buf, sb[:]...)
	buf = append(buf, vb[:]...)
	return txn.Set(familyGeneratedKeys, idKey(id), buf)
}

func loadGeneratedKeys(store kvstore.Reader, id ID) (GeneratedKeys, bool, error) {
	v, err := store.Get(familyGeneratedKeys, idKey(id))
	if err != nil {
		return GeneratedKeys{}, false, err
	}
	if v == nil {
		return GeneratedKeys{}, false, nil
	}
	want := curve.PointBytes + curve.FieldBytes + curve.PointBytes
	if len(v) != want {
		return GeneratedKeys{}, false, fmt.Errorf("dkg: corrupt generated_keys record")
	}
	var gb, vb [curve.PointBytes]byte
	var sb [curve.FieldBytes]byte
	copy(gb[:], v[:curve.PointBytes])
	copy(sb[:], v[curve.PointBytes:curve.PointBytes+curve.FieldBytes])
	copy(vb[:], v[curve.PointBytes+curve.FieldBytes:])
	g, err := curve.FromBytes(gb)
	if err != nil {
		return GeneratedKeys{}, false, err
	}
	s, err := curve.FieldFromBytes(sb)
	if err != nil {
		return GeneratedKeys{}, false, err
	}
	vk, err := curve.FromBytes(vb)
	if err != nil {
		return GeneratedKeys{}, false, err
	}
	return GeneratedKeys{GroupKey: g, Share: s, VerificationKey: vk}, true, nil
}

// confirmKeys copies generated_keys(id) to keys(group_key) once the
// coordinator confirms which attempt became the session's final key.
func confirmKeys(txn *kvstore.Txn, store kvstore.Reader, id ID) (GeneratedKeys, error) {
	k, ok, err := loadGeneratedKeys(store, id)
	if err != nil {
		return GeneratedKeys{}, err
	}
	if !ok {
		return GeneratedKeys{}, fmt.Errorf("dkg: no generated keys for attempt %+v", id)
	}
	gb := k.GroupKey.Bytes()
	sb := k.Share.Bytes()
	vb := k.VerificationKey.Bytes()
	buf := make([]byte, 0, len(gb)+len(sb)+len(vb))
	buf = append(buf, gb[:]...)
	buf = append(buf, sb[:]...)
	buf = append(buf, vb[:]...)
	if err := txn.Set(familyKeys, gb[:], buf); err != nil {
		return GeneratedKeys{}, err
	}
	return k, nil
}

// LoadKeys retrieves the confirmed key material for a group key, used by
// the signing machine.
func LoadKeys(store kvstore.Reader, groupKey curve.GroupPoint) (GeneratedKeys, bool, error) {
	gb := groupKey.Bytes()
	v, err := store.Get(familyKeys, gb[:])
	if err != nil {
		return GeneratedKeys{}, false, err
	}
	if v == nil {
		return GeneratedKeys{}, false, nil
	}
	want := curve.PointBytes + curve.FieldBytes + curve.PointBytes
	if len(v) != want {
		return GeneratedKeys{}, false, fmt.Errorf("dkg: corrupt keys record")
	}
	var vb [curve.PointBytes]byte
	var sb [curve.FieldBytes]byte
	copy(vb[:], v[curve.PointBytes+curve.FieldBytes:])
	copy(sb[:], v[curve.PointBytes:curve.PointBytes+curve.FieldBytes])
	s, err := curve.FieldFromBytes(sb)
	if err != nil {
		return GeneratedKeys{}, false, err
	}
	vk, err := curve.FromBytes(vb)
	if err != nil {
		return GeneratedKeys{}, false, err
	}
	return GeneratedKeys{GroupKey: groupKey, Share: s, VerificationKey: vk}, true, nil
}
