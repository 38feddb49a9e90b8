// Copyright 2025 Certen Protocol
//
// ArithmeticCircuit builder: an arena of witness variables, product gates
// and linear constraints, compiled into the matrix statement the bulletproof
// layer proves. Grounded directly on
// original_source/crypto/bulletproofs-plus/src/arithmetic_circuit.rs,
// translated from Rust enums/BTreeMaps into Go's idiom: a tagged
// variableSlot struct instead of an enum, and ordinary maps keyed by a
// comparable struct instead of a BTreeMap. Where order matters (the entries
// of each vector commitment bucket), Compile sorts a bucket's bindings by
// (product, role) so prover and verifier list them identically.
package circuit

import (
	"fmt"
	"sort"

	"github.com/certen/tss-coordinator/internal/curve"
	"github.com/certen/tss-coordinator/internal/linalg"
)

// Commitment is a transparent Pedersen commitment opening (value, mask).
type Commitment struct {
	Value curve.FieldElement
	Mask  curve.FieldElement
}

// Calculate returns g*Value + h*Mask.
func (c Commitment) Calculate(g, h curve.GroupPoint) curve.GroupPoint {
	return g.ScalarMul(c.Value).Add(h.ScalarMul(c.Mask))
}

// Role names a product gate's three outputs.
type Role int

const (
	RoleLeft Role = iota
	RoleRight
	RoleOutput
)

// VariableReference names any witness variable: secret input, committed
// input, or product output.
type VariableReference int

// ProductReference names one role of one product gate.
type ProductReference struct {
	Role     Role
	Product  int
	Variable int
}

// CommitmentReference names a publicly committed input.
type CommitmentReference int

// VectorCommitmentReference names a user-declared binding bucket.
type VectorCommitmentReference int

type variableKind int

const (
	kindSecret variableKind = iota
	kindCommitted
	kindProduct
)

type variableSlot struct {
	kind variableKind

	secretValue    curve.FieldElement
	hasSecretValue bool

	committedValue    Commitment
	hasCommittedValue bool
	committedPoint    curve.GroupPoint

	productID      int
	productValue   curve.FieldElement
	hasProductValue bool
}

func (v variableSlot) value() (curve.FieldElement, bool) {
	switch v.kind {
	case kindSecret:
		return v.secretValue, v.hasSecretValue
	case kindCommitted:
		panic("circuit: requested value of a commitment variable")
	case kindProduct:
		return v.productValue, v.hasProductValue
	}
	panic("circuit: unreachable variable kind")
}

type product struct {
	left, right, variable int
}

// Constraint is a single linear relation W_L·aL + W_R·aR + W_O·aO = W_V·v + c.
type Constraint struct {
	Label string
	wl    []linalg.SparseEntry
	wr    []linalg.SparseEntry
	wo    []linalg.SparseEntry
	wv    []linalg.SparseEntry
	c     curve.FieldElement
}

// NewConstraint returns an empty, zero-offset constraint under the given
// label (used only in the fatal self-check message).
func NewConstraint(label string) *Constraint {
	return &Constraint{Label: label, c: curve.Zero()}
}

// Weight adds weight*product to the appropriate side, merging into an
// existing entry for the same product id if one is already present.
func (c *Constraint) Weight(p ProductReference, weight curve.FieldElement) *Constraint {
	var side *[]linalg.SparseEntry
	switch p.Role {
	case RoleLeft:
		side = &c.wl
	case RoleRight:
		side = &c.wr
	case RoleOutput:
		side = &c.wo
	default:
		panic("circuit: unknown product role")
	}
	for i, e := range *side {
		if e.Column == p.Product {
			(*side)[i].Weight = e.Weight.Add(weight)
			return c
		}
	}
	*side = append(*side, linalg.SparseEntry{Column: p.Product, Weight: weight})
	return c
}

// WeightCommitment adds weight*v to the W_V side. Panics if this constraint
// already weights the same commitment.
func (c *Constraint) WeightCommitment(ref CommitmentReference, weight curve.FieldElement) *Constraint {
	for _, e := range c.wv {
		if e.Column == int(ref) {
			panic("circuit: constraint already weights this commitment")
		}
	}
	c.wv = append(c.wv, linalg.SparseEntry{Column: int(ref), Weight: weight})
	return c
}

// RHSOffset sets the constant c. Panics if already set to a nonzero value.
func (c *Constraint) RHSOffset(offset curve.FieldElement) *Constraint {
	if !c.c.IsZero() {
		panic("circuit: constraint offset already set")
	}
	c.c = offset
	return c
}

type boundKey struct {
	role    Role
	product int
}

// Circuit accumulates variables, product gates, vector-commitment bindings
// and constraints for a single proof. Construct with New, populate with the
// add/constrain/bind methods, then call Compile.
type Circuit struct {
	g, h                                     curve.GroupPoint
	gBold1, gBold2, hBold1, hBold2            linalg.PointVector
	prover                                    bool
	numCommitments                            int
	variables                                 []variableSlot
	products                                  []product
	boundProducts                             []map[boundKey]*curve.GroupPoint
	finalizedSet                              map[VectorCommitmentReference]bool
	finalizedBlind                            map[VectorCommitmentReference]*curve.FieldElement
	vectorCommitments                         []curve.GroupPoint
	hasVectorCommitments                      bool
	constraints                               []Constraint
}

// New constructs an empty circuit. For a prover circuit, vectorCommitments
// must be nil; for a verifier circuit it must be the (possibly empty,
// non-nil) list of vector commitment points supplied out of band.
func New(g, h curve.GroupPoint, gBold1, gBold2, hBold1, hBold2 linalg.PointVector, prover bool, vectorCommitments []curve.GroupPoint) *Circuit {
	if prover != (vectorCommitments == nil) {
		panic("circuit: prover circuits must omit vector commitments, verifier circuits must supply them")
	}
	return &Circuit{
		g: g, h: h,
		gBold1: gBold1, gBold2: gBold2, hBold1: hBold1, hBold2: hBold2,
		prover:                prover,
		finalizedSet:          make(map[VectorCommitmentReference]bool),
		finalizedBlind:        make(map[VectorCommitmentReference]*curve.FieldElement),
		vectorCommitments:     vectorCommitments,
		hasVectorCommitments:  vectorCommitments != nil,
	}
}

// Prover reports whether this circuit is in proving mode.
func (c *Circuit) Prover() bool { return c.prover }

// H returns the blinding generator.
func (c *Circuit) H() curve.GroupPoint { return c.h }

// UncheckedValue returns a variable's witness value, if this is a prover
// circuit and the variable is not a commitment.
func (c *Circuit) UncheckedValue(ref VariableReference) (curve.FieldElement, bool) {
	return c.variables[ref].value()
}

// VariableToProduct finds the ProductReference a variable is already bound
// to, if any — either because the variable itself is a product output, or
// because it was previously used as an operand to Product.
func (c *Circuit) VariableToProduct(ref VariableReference) (ProductReference, bool) {
	return c.variableToProduct(ref)
}

func (c *Circuit) variableToProduct(ref VariableReference) (ProductReference, bool) {
	if c.variables[ref].kind == kindProduct {
		pid := c.variables[ref].productID
		return ProductReference{Role: RoleOutput, Product: pid, Variable: int(ref)}, true
	}
	for productID, p := range c.products {
		var role Role
		switch {
		case int(ref) == p.left:
			role = RoleLeft
		case int(ref) == p.right:
			role = RoleRight
		default:
			continue
		}
		variable := c.variables[p.variable]
		if variable.kind != kindProduct {
			panic("circuit: product pointed to non-product variable")
		}
		if role == RoleLeft {
			return ProductReference{Role: RoleLeft, Product: productID, Variable: c.products[variable.productID].left}, true
		}
		return ProductReference{Role: RoleRight, Product: productID, Variable: c.products[variable.productID].right}, true
	}
	return ProductReference{}, false
}

// Product uses a and b in a product relationship, returning the triple of
// role references plus the output variable. Repeated calls with the same
// (a, b) pair return the cached triple. If either input already
// participates in a product gate under a different role, an equality
// constraint is auto-inserted.
func (c *Circuit) Product(a, b VariableReference) (ProductReference, ProductReference, ProductReference, VariableReference) {
	for id, p := range c.products {
		if int(a) == p.left && int(b) == p.right {
			out := VariableReference(p.variable)
			return ProductReference{RoleLeft, id, int(a)},
				ProductReference{RoleRight, id, int(b)},
				ProductReference{RoleOutput, id, p.variable},
				out
		}
	}

	existingA, hasA := c.variableToProduct(a)
	existingB, hasB := c.variableToProduct(b)

	left := c.variables[a]
	right := c.variables[b]

	productID := len(c.products)
	variable := VariableReference(len(c.variables))

	refs := [3]ProductReference{
		{RoleLeft, productID, int(a)},
		{RoleRight, productID, int(b)},
		{RoleOutput, productID, int(variable)},
	}

	c.products = append(c.products, product{left: int(a), right: int(b), variable: int(variable)})

	slot := variableSlot{kind: kindProduct, productID: productID}
	if c.prover {
		lv, ok1 := left.value()
		rv, ok2 := right.value()
		if !ok1 || !ok2 {
			panic("circuit: missing witness value for product operand")
		}
		slot.productValue = lv.Mul(rv)
		slot.hasProductValue = true
	}
	c.variables = append(c.variables, slot)

	if hasA {
		c.ConstrainEquality(refs[0], existingA)
	}
	if hasB {
		c.ConstrainEquality(refs[1], existingB)
	}

	return refs[0], refs[1], refs[2], variable
}

// AddSecretInput appends a prover-only witness variable.
func (c *Circuit) AddSecretInput(value *curve.FieldElement) VariableReference {
	if c.prover != (value != nil) {
		panic("circuit: secret input value presence must match prover mode")
	}
	ref := VariableReference(len(c.variables))
	slot := variableSlot{kind: kindSecret}
	if value != nil {
		slot.secretValue = *value
		slot.hasSecretValue = true
	}
	c.variables = append(c.variables, slot)
	return ref
}

// AddCommittedInput appends a publicly committed input. If this is a
// prover circuit, asserts commitment.Calculate(g, h) == actual.
func (c *Circuit) AddCommittedInput(commitment *Commitment, actual curve.GroupPoint) CommitmentReference {
	if c.prover != (commitment != nil) {
		panic("circuit: commitment opening presence must match prover mode")
	}
	if commitment != nil {
		if !commitment.Calculate(c.g, c.h).Equal(actual) {
			panic("circuit: committed input does not open to the supplied point")
		}
	}
	ref := CommitmentReference(c.numCommitments)
	c.numCommitments++
	slot := variableSlot{kind: kindCommitted, committedPoint: actual}
	if commitment != nil {
		slot.committedValue = *commitment
		slot.hasCommittedValue = true
	}
	c.variables = append(c.variables, slot)
	return ref
}

// Constrain appends a constraint to the circuit.
func (c *Circuit) Constrain(constraint Constraint) {
	c.constraints = append(c.constraints, constraint)
}

// ConstrainEquality is a no-op if a == b, else adds 1·a − 1·b = 0.
func (c *Circuit) ConstrainEquality(a, b ProductReference) {
	if a == b {
		return
	}
	constraint := NewConstraint("equality")
	constraint.Weight(a, curve.One())
	constraint.Weight(b, curve.One().Neg())
	c.Constrain(*constraint)
}

// EqualsConstant constrains a's value to the scalar k.
func (c *Circuit) EqualsConstant(a ProductReference, k curve.FieldElement) {
	constraint := NewConstraint("constant_equality")
	if k.IsZero() {
		constraint.Weight(a, curve.One())
	} else {
		constraint.Weight(a, k.Invert())
		constraint.RHSOffset(curve.One())
	}
	c.Constrain(*constraint)
}

// AllocateVectorCommitment appends an empty binding bucket.
func (c *Circuit) AllocateVectorCommitment() VectorCommitmentReference {
	ref := VectorCommitmentReference(len(c.boundProducts))
	c.boundProducts = append(c.boundProducts, make(map[boundKey]*curve.GroupPoint))
	return ref
}

// Bind binds product into the given vector commitment's bucket, optionally
// overriding its default generator. Panics if vc is already finalized, or
// if product is already bound in any bucket.
func (c *Circuit) Bind(vc VectorCommitmentReference, product ProductReference, generator *curve.GroupPoint) {
	if c.finalizedSet[vc] {
		panic("circuit: vector commitment already finalized")
	}
	key := boundKey{role: product.Role, product: product.Product}
	for _, bucket := range c.boundProducts {
		if _, ok := bucket[key]; ok {
			panic("circuit: product already bound to a vector commitment")
		}
	}
	c.boundProducts[vc][key] = generator
}

// FinalizeCommitment finalizes a vector commitment bucket, returning the
// commitment point and preventing further binding. A prover computes
// blind·H + Σ gᵢ·witnessᵢ; a verifier returns the out-of-band point
// supplied at construction.
func (c *Circuit) FinalizeCommitment(vc VectorCommitmentReference, blind *curve.FieldElement) curve.GroupPoint {
	if c.prover {
		if blind == nil {
			panic("circuit: prover must supply a blind")
		}
		commitment := c.h.ScalarMul(*blind)
		for key, gen := range c.boundProducts[vc] {
			p := c.products[key.product]
			var g curve.GroupPoint
			var v curve.FieldElement
			switch key.role {
			case RoleLeft:
				if gen != nil {
					g = *gen
				} else {
					g = c.gBold1[key.product]
				}
				var ok bool
				v, ok = c.variables[p.left].value()
				if !ok {
					panic("circuit: missing witness for bound product operand")
				}
			case RoleRight:
				if gen != nil {
					g = *gen
				} else {
					g = c.hBold1[key.product]
				}
				var ok bool
				v, ok = c.variables[p.right].value()
				if !ok {
					panic("circuit: missing witness for bound product operand")
				}
			case RoleOutput:
				if gen != nil {
					g = *gen
				} else {
					g = c.gBold2[key.product]
				}
				var ok bool
				v, ok = c.variables[p.variable].value()
				if !ok {
					panic("circuit: missing witness for bound product operand")
				}
			}
			commitment = commitment.Add(g.ScalarMul(v))
		}
		c.finalizedSet[vc] = true
		c.finalizedBlind[vc] = blind
		return commitment
	}

	if blind != nil {
		panic("circuit: verifier must not supply a blind")
	}
	c.finalizedSet[vc] = true
	c.finalizedBlind[vc] = nil
	if !c.hasVectorCommitments || int(vc) >= len(c.vectorCommitments) {
		panic("circuit: no out-of-band vector commitment supplied for this reference")
	}
	return c.vectorCommitments[vc]
}

// Statement is the compiled matrix form of a circuit, ready for the
// bulletproof layer to prove or verify.
type Statement struct {
	G, H                          curve.GroupPoint
	GBold1, GBold2, HBold1, HBold2 linalg.PointVector
	V                             linalg.PointVector
	WL, WR, WO, WV                *linalg.ScalarMatrix
	C                             linalg.ScalarVector
}

// Witness is the prover-only satisfying assignment.
type Witness struct {
	AL, AR, V, Gamma linalg.ScalarVector
}

// VCEntry pairs an optional witness scalar with the generator it is bound
// to, for one position inside a vector commitment bucket (or the "others"
// catch-all).
type VCEntry struct {
	Value    curve.FieldElement
	HasValue bool
	Generator curve.GroupPoint
}

// Compile evaluates every constraint against the witness (if proving),
// builds the W_L/W_R/W_O/W_V matrices, applies the generator-override
// policy for bound products, and partitions product witnesses into
// per-vector-commitment lists plus an "others" list. A mismatch between a
// constraint's declared evaluation and its constant is a fatal programmer
// error naming the failing constraint's label.
func (c *Circuit) Compile() (*Statement, [][]VCEntry, []VCEntry, *Witness) {
	var witness *Witness
	if c.prover {
		var aL, aR, v, gamma linalg.ScalarVector
		for _, variable := range c.variables {
			switch variable.kind {
			case kindSecret:
			case kindCommitted:
				if !variable.hasCommittedValue {
					panic("circuit: prover missing commitment opening")
				}
				if !variable.committedValue.Calculate(c.g, c.h).Equal(variable.committedPoint) {
					panic("circuit: committed input no longer opens to its point")
				}
				v = append(v, variable.committedValue.Value)
				gamma = append(gamma, variable.committedValue.Mask)
			case kindProduct:
				p := c.products[variable.productID]
				lv, ok1 := c.variables[p.left].value()
				rv, ok2 := c.variables[p.right].value()
				if !ok1 || !ok2 {
					panic("circuit: missing witness value compiling product gate")
				}
				aL = append(aL, lv)
				aR = append(aR, rv)
			}
		}
		witness = &Witness{AL: aL, AR: aR, V: v, Gamma: gamma}
	}

	var V linalg.PointVector
	n := 0
	for _, variable := range c.variables {
		switch variable.kind {
		case kindCommitted:
			V = append(V, variable.committedPoint)
		case kindProduct:
			n++
		}
	}

	wl := linalg.NewScalarMatrix(n)
	wr := linalg.NewScalarMatrix(n)
	wo := linalg.NewScalarMatrix(n)
	wv := linalg.NewScalarMatrix(len(V))
	var cvec linalg.ScalarVector

	for _, constraint := range c.constraints {
		eval := curve.Zero()
		if c.prover {
			for _, e := range constraint.wl {
				eval = eval.Add(e.Weight.Mul(witness.AL[e.Column]))
			}
			for _, e := range constraint.wr {
				eval = eval.Add(e.Weight.Mul(witness.AR[e.Column]))
			}
			for _, e := range constraint.wo {
				eval = eval.Add(e.Weight.Mul(witness.AL[e.Column].Mul(witness.AR[e.Column])))
			}
			for _, e := range constraint.wv {
				eval = eval.Sub(e.Weight.Mul(witness.V[e.Column]))
			}
			if !eval.Equal(constraint.c) {
				panic(fmt.Sprintf("circuit: faulty constraint: %s", constraint.Label))
			}
		}
		wl.AppendRow(constraint.wl)
		wr.AppendRow(constraint.wr)
		wo.AppendRow(constraint.wo)
		wv.AppendRow(constraint.wv)
		cvec = append(cvec, constraint.c)
	}

	gBold1 := append(linalg.PointVector{}, c.gBold1...)
	gBold2 := append(linalg.PointVector{}, c.gBold2...)
	hBold1 := append(linalg.PointVector{}, c.hBold1...)

	type used struct {
		role    Role
		product int
	}
	vcUsed := make(map[used]bool)
	vectorCommitments := make([][]VCEntry, len(c.boundProducts))
	for vc, bindings := range c.boundProducts {
		keys := make([]boundKey, 0, len(bindings))
		for key := range bindings {
			keys = append(keys, key)
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].product != keys[j].product {
				return keys[i].product < keys[j].product
			}
			return keys[i].role < keys[j].role
		})
		for _, key := range keys {
			gen := bindings[key]
			switch key.role {
			case RoleLeft:
				g := gBold1[key.product]
				if gen != nil {
					g = *gen
				}
				gBold1[key.product] = g
				vcUsed[used{RoleLeft, key.product}] = true
				p := c.products[key.product]
				val, ok := c.variables[p.left].value()
				vectorCommitments[vc] = append(vectorCommitments[vc], VCEntry{Value: val, HasValue: c.prover && ok, Generator: g})
			case RoleRight:
				g := hBold1[key.product]
				if gen != nil {
					g = *gen
				}
				hBold1[key.product] = g
				vcUsed[used{RoleRight, key.product}] = true
				p := c.products[key.product]
				val, ok := c.variables[p.right].value()
				vectorCommitments[vc] = append(vectorCommitments[vc], VCEntry{Value: val, HasValue: c.prover && ok, Generator: g})
			case RoleOutput:
				g := gBold2[key.product]
				if gen != nil {
					g = *gen
				}
				gBold2[key.product] = g
				vcUsed[used{RoleOutput, key.product}] = true
				p := c.products[key.product]
				lv, ok1 := c.variables[p.left].value()
				rv, ok2 := c.variables[p.right].value()
				val := curve.Zero()
				if c.prover && ok1 && ok2 {
					val = lv.Mul(rv)
				}
				vectorCommitments[vc] = append(vectorCommitments[vc], VCEntry{Value: val, HasValue: c.prover && ok1 && ok2, Generator: g})
			}
		}
	}

	var others []VCEntry
	for i := 0; i < len(c.products); i++ {
		if vcUsed[used{RoleLeft, i}] {
			continue
		}
		val, ok := c.variables[c.products[i].left].value()
		others = append(others, VCEntry{Value: val, HasValue: c.prover && ok, Generator: gBold1[i]})
	}
	for i := 0; i < len(c.products); i++ {
		if vcUsed[used{RoleRight, i}] {
			continue
		}
		val, ok := c.variables[c.products[i].right].value()
		others = append(others, VCEntry{Value: val, HasValue: c.prover && ok, Generator: hBold1[i]})
	}
	for i := 0; i < len(c.products); i++ {
		if vcUsed[used{RoleOutput, i}] {
			continue
		}
		p := c.products[i]
		lv, ok1 := c.variables[p.left].value()
		rv, ok2 := c.variables[p.right].value()
		val := curve.Zero()
		if c.prover && ok1 && ok2 {
			val = lv.Mul(rv)
		}
		others = append(others, VCEntry{Value: val, HasValue: c.prover && ok1 && ok2, Generator: gBold2[i]})
	}

	statement := &Statement{
		G: c.g, H: c.h,
		GBold1: gBold1, GBold2: gBold2, HBold1: hBold1, HBold2: c.hBold2,
		V: V, WL: wl, WR: wr, WO: wo, WV: wv, C: cvec,
	}
	return statement, vectorCommitments, others, witness
}
