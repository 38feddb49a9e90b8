// Copyright 2025 Certen Protocol

package curve

import "testing"

func TestFieldInverseAxiom(t *testing.T) {
	for i := uint64(1); i < 20; i++ {
		x := FieldFromUint64(i)
		inv := x.Invert()
		got := x.Mul(inv)
		if !got.Equal(One()) {
			t.Fatalf("x=%d: x * x^-1 = %x, want 1", i, got.Bytes())
		}
	}
}

func TestFieldInverseRandom(t *testing.T) {
	for i := 0; i < 10; i++ {
		x, err := RandomFieldElement()
		if err != nil {
			t.Fatalf("RandomFieldElement: %v", err)
		}
		if x.IsZero() {
			continue
		}
		if got := x.Mul(x.Invert()); !got.Equal(One()) {
			t.Fatalf("random inverse failed for iteration %d", i)
		}
	}
}

func TestFieldAddSubRoundTrip(t *testing.T) {
	a := FieldFromUint64(7)
	b := FieldFromUint64(3)
	sum := a.Add(b)
	if !sum.Sub(b).Equal(a) {
		t.Fatalf("(a+b)-b != a")
	}
}

func TestFieldDoubleIsAddSelf(t *testing.T) {
	a := FieldFromUint64(11)
	if !a.Double().Equal(a.Add(a)) {
		t.Fatalf("a.Double() != a+a")
	}
}

func TestFieldSquareIsMulSelf(t *testing.T) {
	a := FieldFromUint64(9)
	if !a.Square().Equal(a.Mul(a)) {
		t.Fatalf("a.Square() != a*a")
	}
}

func TestFieldNegAddsToZero(t *testing.T) {
	a := FieldFromUint64(42)
	if sum := a.Add(a.Neg()); !sum.IsZero() {
		t.Fatalf("a + (-a) != 0")
	}
}

func TestFieldBytesRoundTrip(t *testing.T) {
	a := FieldFromUint64(123456789)
	b, err := FieldFromBytes(a.Bytes())
	if err != nil {
		t.Fatalf("FieldFromBytes: %v", err)
	}
	if !a.Equal(b) {
		t.Fatalf("round trip mismatch")
	}
}

func TestFieldSqrt(t *testing.T) {
	x := FieldFromUint64(4)
	sq := x.Square()
	root, ok := sq.Sqrt()
	if !ok {
		t.Fatalf("expected a square root to exist")
	}
	if got := root.Square(); !got.Equal(sq) {
		t.Fatalf("sqrt(x)^2 != x")
	}
}

func TestHashToScalarDeterministic(t *testing.T) {
	a := HashToScalar([]byte("domain"), []byte("message"))
	b := HashToScalar([]byte("domain"), []byte("message"))
	if !a.Equal(b) {
		t.Fatalf("HashToScalar not deterministic")
	}
	c := HashToScalar([]byte("domain"), []byte("other"))
	if a.Equal(c) {
		t.Fatalf("HashToScalar collided on distinct input")
	}
}
