// Copyright 2025 Certen Protocol

package gadgets

import (
	"testing"

	"github.com/certen/tss-coordinator/internal/circuit"
	"github.com/certen/tss-coordinator/internal/curve"
	"github.com/certen/tss-coordinator/internal/linalg"
)

func testGenerators(n int) (curve.GroupPoint, curve.GroupPoint, linalg.PointVector, linalg.PointVector, linalg.PointVector, linalg.PointVector) {
	g := curve.Generator().ScalarMul(curve.HashToScalar([]byte("bit-g"), nil))
	h := curve.Generator().ScalarMul(curve.HashToScalar([]byte("bit-h"), nil))
	gb1 := make(linalg.PointVector, n)
	gb2 := make(linalg.PointVector, n)
	hb1 := make(linalg.PointVector, n)
	hb2 := make(linalg.PointVector, n)
	for i := 0; i < n; i++ {
		idx := []byte{byte(i)}
		gb1[i] = curve.Generator().ScalarMul(curve.HashToScalar([]byte("bit-g1"), idx))
		gb2[i] = curve.Generator().ScalarMul(curve.HashToScalar([]byte("bit-g2"), idx))
		hb1[i] = curve.Generator().ScalarMul(curve.HashToScalar([]byte("bit-h1"), idx))
		hb2[i] = curve.Generator().ScalarMul(curve.HashToScalar([]byte("bit-h2"), idx))
	}
	return g, h, gb1, gb2, hb1, hb2
}

func TestBitFromChoiceCompilesForBothValues(t *testing.T) {
	for _, choice := range []bool{true, false} {
		g, h, gb1, gb2, hb1, hb2 := testGenerators(2)
		c := circuit.New(g, h, gb1, gb2, hb1, hb2, true, nil)

		b := NewFromChoice(c, &choice)
		if b.Value == nil || *b.Value != choice {
			t.Fatalf("choice=%v: expected Bit.Value to reflect the input", choice)
		}

		statement, _, _, witness := c.Compile()
		if witness == nil {
			t.Fatalf("choice=%v: expected a prover witness", choice)
		}
		if statement.WL.Rows() == 0 {
			t.Fatalf("choice=%v: expected at least one boolean constraint row", choice)
		}
	}
}

func TestSelectConstantChoosesIfTrueWhenBitSet(t *testing.T) {
	g, h, gb1, gb2, hb1, hb2 := testGenerators(2)
	c := circuit.New(g, h, gb1, gb2, hb1, hb2, true, nil)

	trueChoice := true
	b := NewFromChoice(c, &trueChoice)

	ifFalse := curve.FieldFromUint64(7)
	ifTrue := curve.FieldFromUint64(99)
	chosen := SelectConstant(c, b, ifFalse, ifTrue)

	got, ok := c.UncheckedValue(chosen)
	if !ok {
		t.Fatalf("expected a witness value for the chosen variable")
	}
	if !got.Equal(ifTrue) {
		t.Fatalf("bit=true: got %x want ifTrue %x", got.Bytes(), ifTrue.Bytes())
	}

	statement, _, _, witness := c.Compile()
	if witness == nil || statement.WL.Rows() == 0 {
		t.Fatalf("expected a satisfiable compiled circuit")
	}
}

func TestSelectConstantChoosesIfFalseWhenBitClear(t *testing.T) {
	g, h, gb1, gb2, hb1, hb2 := testGenerators(2)
	c := circuit.New(g, h, gb1, gb2, hb1, hb2, true, nil)

	falseChoice := false
	b := NewFromChoice(c, &falseChoice)

	ifFalse := curve.FieldFromUint64(7)
	ifTrue := curve.FieldFromUint64(99)
	chosen := SelectConstant(c, b, ifFalse, ifTrue)

	got, ok := c.UncheckedValue(chosen)
	if !ok {
		t.Fatalf("expected a witness value for the chosen variable")
	}
	if !got.Equal(ifFalse) {
		t.Fatalf("bit=false: got %x want ifFalse %x", got.Bytes(), ifFalse.Bytes())
	}

	statement, _, _, witness := c.Compile()
	if witness == nil || statement.WL.Rows() == 0 {
		t.Fatalf("expected a satisfiable compiled circuit")
	}
}

func TestSelectChoosesBetweenVariableCandidates(t *testing.T) {
	g, h, gb1, gb2, hb1, hb2 := testGenerators(4)
	c := circuit.New(g, h, gb1, gb2, hb1, hb2, true, nil)

	trueChoice := true
	b := NewFromChoice(c, &trueChoice)

	falseVal := curve.FieldFromUint64(11)
	trueVal := curve.FieldFromUint64(22)
	ifFalse := c.AddSecretInput(&falseVal)
	ifTrue := c.AddSecretInput(&trueVal)

	chosen := Select(c, b, ifFalse, ifTrue)

	got, ok := c.UncheckedValue(chosen)
	if !ok {
		t.Fatalf("expected a witness value for the chosen variable")
	}
	if !got.Equal(trueVal) {
		t.Fatalf("bit=true: got %x want trueVal %x", got.Bytes(), trueVal.Bytes())
	}

	statement, _, _, witness := c.Compile()
	if witness == nil || statement.WL.Rows() == 0 {
		t.Fatalf("expected a satisfiable compiled circuit")
	}
}

func TestNewFromVariableRejectsNonBooleanWitnessAtCompile(t *testing.T) {
	g, h, gb1, gb2, hb1, hb2 := testGenerators(2)
	c := circuit.New(g, h, gb1, gb2, hb1, hb2, true, nil)

	notABit := curve.FieldFromUint64(2)
	ref := c.AddSecretInput(&notABit)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected Compile to reject a non-boolean witness")
		}
	}()

	NewFromVariable(c, ref)
	c.Compile()
}
