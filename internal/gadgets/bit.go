// Copyright 2025 Certen Protocol
//
// Bit gadget: forces a circuit variable into {0, 1} and provides selection
// helpers built from it. Grounded on
// original_source/crypto/bulletproofs-plus/src/gadgets/bit.rs.
package gadgets

import (
	"github.com/certen/tss-coordinator/internal/circuit"
	"github.com/certen/tss-coordinator/internal/curve"
)

// Bit is a circuit variable verified to hold 0 or 1.
type Bit struct {
	// Value is the bit's witness value in prover mode, nil for a verifier
	// circuit.
	Value    *bool
	variable circuit.VariableReference
	minusOne circuit.VariableReference
}

// NewFromVariable constrains an existing variable reference to be boolean:
// one product gate l·r = 0 (with l = bit, r = bit - 1) forcing one factor
// to zero, plus the constraint l - r = 1 forcing r = l - 1.
func NewFromVariable(c *circuit.Circuit, bit circuit.VariableReference) Bit {
	l := bit
	var minusOneValue *curve.FieldElement
	var value *bool
	if c.Prover() {
		bv, ok := c.UncheckedValue(l)
		if !ok {
			panic("gadgets: bit requires a witness value in prover mode")
		}
		mv := bv.Sub(curve.One())
		minusOneValue = &mv
		isOne := bv.Equal(curve.One())
		value = &isOne
	}
	r := c.AddSecretInput(minusOneValue)

	_, _, oProd, _ := c.Product(l, r)
	c.EqualsConstant(oProd, curve.Zero())

	lProd, _ := c.VariableToProduct(l)
	rProd, _ := c.VariableToProduct(r)

	constraint := circuit.NewConstraint("l_minus_one")
	constraint.Weight(lProd, curve.One())
	constraint.Weight(rProd, curve.One().Neg())
	constraint.RHSOffset(curve.One())
	c.Constrain(*constraint)

	return Bit{Value: value, variable: l, minusOne: r}
}

// NewFromChoice allocates a fresh secret input for choice and constrains it
// boolean.
func NewFromChoice(c *circuit.Circuit, choice *bool) Bit {
	var value *curve.FieldElement
	if choice != nil {
		if *choice {
			v := curve.One()
			value = &v
		} else {
			v := curve.Zero()
			value = &v
		}
	}
	v := c.AddSecretInput(value)
	return NewFromVariable(c, v)
}

// Select returns a variable equal to ifTrue when the bit is 1, ifFalse
// when it is 0. Emits three product gates (chosen·chosen, b·ifTrue,
// (b-1)·ifFalse) plus the constraint lo - ro - chosen = 0, where chosen is
// the left output of the chosen·chosen gate.
func Select(c *circuit.Circuit, b Bit, ifFalse, ifTrue circuit.VariableReference) circuit.VariableReference {
	var chosenValue *curve.FieldElement
	if c.Prover() {
		falseVal, _ := c.UncheckedValue(ifFalse)
		trueVal, _ := c.UncheckedValue(ifTrue)
		cv := falseVal
		if b.Value != nil && *b.Value {
			cv = trueVal
		}
		chosenValue = &cv
	}
	chosen := c.AddSecretInput(chosenValue)

	chosenProdL, _, _, _ := c.Product(chosen, chosen)
	_, _, lo, _ := c.Product(b.variable, ifTrue)
	_, _, ro, _ := c.Product(b.minusOne, ifFalse)

	constraint := circuit.NewConstraint("chosen")
	constraint.Weight(lo, curve.One())
	constraint.Weight(ro, curve.One().Neg())
	constraint.Weight(chosenProdL, curve.One().Neg())
	c.Constrain(*constraint)

	return chosen
}

// SelectConstant returns a variable equal to ifTrue when the bit is 1,
// ifFalse when it is 0, where both candidates are compile-time scalars.
// Reuses the bit's existing l/r product references, adding no new gate
// beyond the one needed to give "chosen" a ProductReference of its own.
func SelectConstant(c *circuit.Circuit, b Bit, ifFalse, ifTrue curve.FieldElement) circuit.VariableReference {
	var chosenValue *curve.FieldElement
	if c.Prover() {
		cv := ifFalse
		if b.Value != nil && *b.Value {
			cv = ifTrue
		}
		chosenValue = &cv
	}
	chosen := c.AddSecretInput(chosenValue)
	chosenProdL, _, _, _ := c.Product(chosen, chosen)

	lRef, ok := c.VariableToProduct(b.variable)
	if !ok {
		panic("gadgets: bit variable was never bound to a product gate")
	}
	rRef, ok := c.VariableToProduct(b.minusOne)
	if !ok {
		panic("gadgets: bit minus-one variable was never bound to a product gate")
	}

	constraint := circuit.NewConstraint("chosen")
	constraint.Weight(lRef, ifTrue)
	constraint.Weight(rRef, ifFalse.Neg())
	constraint.Weight(chosenProdL, curve.One().Neg())
	c.Constrain(*constraint)

	return chosen
}
