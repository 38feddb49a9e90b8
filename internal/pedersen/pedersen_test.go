// Copyright 2025 Certen Protocol

package pedersen

import (
	"testing"

	"github.com/certen/tss-coordinator/internal/curve"
	"github.com/certen/tss-coordinator/internal/linalg"
)

func generators(n int) linalg.PointVector {
	g := make(linalg.PointVector, n)
	for i := range g {
		g[i] = curve.Generator().ScalarMul(curve.HashToScalar([]byte("pedersen-test-gen"), []byte{byte(i)}))
	}
	return g
}

func TestHashMatchesDirectSum(t *testing.T) {
	g := generators(4)
	x := linalg.ScalarVector{
		curve.FieldFromUint64(3),
		curve.FieldFromUint64(5),
		curve.FieldFromUint64(0),
		curve.FieldFromUint64(7),
	}

	got := Hash(x, g)

	want := curve.Identity()
	for i := range x {
		want = want.Add(g[i].ScalarMul(x[i]))
	}
	if !got.Equal(want) {
		t.Fatalf("Hash result does not match the direct scalar-mul sum")
	}
}

func TestHashIsLinearInScalars(t *testing.T) {
	g := generators(3)
	a := linalg.ScalarVector{curve.FieldFromUint64(1), curve.FieldFromUint64(2), curve.FieldFromUint64(3)}
	b := linalg.ScalarVector{curve.FieldFromUint64(4), curve.FieldFromUint64(5), curve.FieldFromUint64(6)}
	sum := linalg.ScalarVector{a[0].Add(b[0]), a[1].Add(b[1]), a[2].Add(b[2])}

	lhs := Hash(sum, g)
	rhs := Hash(a, g).Add(Hash(b, g))
	if !lhs.Equal(rhs) {
		t.Fatalf("expected Hash(a+b) == Hash(a) + Hash(b)")
	}
}

func TestHashOfAllZerosIsIdentity(t *testing.T) {
	g := generators(3)
	x := linalg.ScalarVector{curve.Zero(), curve.Zero(), curve.Zero()}
	if !Hash(x, g).Equal(curve.Identity()) {
		t.Fatalf("expected Hash of an all-zero scalar vector to be the identity point")
	}
}

func TestHashLengthMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected Hash to panic on scalar/generator length mismatch")
		}
	}()
	Hash(linalg.ScalarVector{curve.One()}, generators(2))
}
