// Copyright 2025 Certen Protocol

package curve

import "testing"

func TestPointBytesRoundTrip(t *testing.T) {
	g := Generator()
	for s := uint64(1); s < 10; s++ {
		p := g.ScalarMul(FieldFromUint64(s))
		enc := p.Bytes()
		dec, err := FromBytes(enc)
		if err != nil {
			t.Fatalf("scalar %d: FromBytes: %v", s, err)
		}
		if !dec.Equal(p) {
			t.Fatalf("scalar %d: round trip mismatch", s)
		}
		// from_bytes(to_bytes(from_bytes(P))) == from_bytes(P)
		enc2 := dec.Bytes()
		dec2, err := FromBytes(enc2)
		if err != nil {
			t.Fatalf("scalar %d: second FromBytes: %v", s, err)
		}
		if !dec2.Equal(dec) {
			t.Fatalf("scalar %d: double round trip mismatch", s)
		}
	}
}

func TestIdentityRoundTrip(t *testing.T) {
	id := Identity()
	enc := id.Bytes()
	dec, err := FromBytes(enc)
	if err != nil {
		t.Fatalf("FromBytes(identity): %v", err)
	}
	if !dec.IsIdentity() {
		t.Fatalf("decoded identity is not identity")
	}
}

func TestScalarMulLinearity(t *testing.T) {
	g := Generator()
	s := FieldFromUint64(5)
	u := FieldFromUint64(7)
	lhs := g.ScalarMul(s).Add(g.ScalarMul(u))
	rhs := g.ScalarMul(s.Add(u))
	if !lhs.Equal(rhs) {
		t.Fatalf("(s*P)+(t*P) != (s+t)*P")
	}
}

func TestScalarMulZeroIsIdentity(t *testing.T) {
	g := Generator()
	if p := g.ScalarMul(Zero()); !p.IsIdentity() {
		t.Fatalf("0*P expected identity")
	}
}

func TestDoubleEqualsAddSelf(t *testing.T) {
	g := Generator()
	if !g.Double().Equal(g.Add(g)) {
		t.Fatalf("g.Double() != g+g")
	}
}

func TestNegAddsToIdentity(t *testing.T) {
	g := Generator()
	if sum := g.Add(g.Neg()); !sum.IsIdentity() {
		t.Fatalf("P + (-P) != identity")
	}
}

func TestFromBytesRejectsNonCanonicalEncoding(t *testing.T) {
	var enc [PointBytes]byte
	for i := range enc {
		enc[i] = 0xFF
	}
	if _, err := FromBytes(enc); err == nil {
		t.Fatalf("expected an all-0xFF (non-canonical, off-curve) encoding to be rejected")
	}
}
