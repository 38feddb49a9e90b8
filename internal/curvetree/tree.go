// Copyright 2025 Certen Protocol
//
// CurveTree: a width-ary tree whose nodes alternate parity on each level,
// growing by skeleton-wrapping when full and recomputing hashes bottom-up
// via a dirty-flag clean pass. Grounded on
// original_source/crypto/curve-trees/src/tree.rs, translated node-for-node
// into Go's idiom (no Rust enum matching; a Parity tag plus a discriminated
// union of child kinds instead).
//
// spec.md's "2-cycle" model pairs one curve's base field with the other's
// scalar field so a child hash's affine coordinates can be fed directly into
// the parent's Pedersen hash. The retrieved corpus supplied no concrete
// 2-cycle pair (e.g. Pasta), so this tree runs a single concrete curve
// (internal/curve) and bridges coordinates via GroupPoint.AffineXY's
// reduction into the scalar field. The structural algorithm — alternation,
// skeleton growth, dirty-flag bottom-up recompute — is unchanged; only the
// "two curves" become "two generator rows of one curve". Recorded in
// DESIGN.md.
package curvetree

import (
	"errors"

	"github.com/certen/tss-coordinator/internal/curve"
	"github.com/certen/tss-coordinator/internal/linalg"
	"github.com/certen/tss-coordinator/internal/pedersen"
)

// ErrDirty is returned by Root when a clean pass has not yet run.
var ErrDirty = errors.New("curvetree: tree has unclean nodes")

// Parity marks which generator row a node's hash was produced with.
type Parity bool

const (
	Even Parity = false
	Odd  Parity = true
)

// childKind distinguishes a leaf from an internal node without a leaf ever
// holding Node-only bookkeeping.
type child struct {
	isLeaf bool
	leaf   curve.GroupPoint
	node   *node
}

type node struct {
	parity   Parity
	hash     curve.GroupPoint
	dirty    bool
	children []child
}

func newNode(parity Parity) *node {
	return &node{parity: parity, hash: curve.Identity()}
}

func depth(n *node) int {
	if len(n.children) == 0 {
		return 0
	}
	if n.children[0].isLeaf {
		return 1
	}
	return depth(n.children[0].node) + 1
}

// Tree is a width-ary curve tree with alternating-parity generator rows,
// one row per tree depth, indexed by depth/2.
type Tree struct {
	width         int
	oddGenerators [][]curve.GroupPoint
	evenGenerators [][]curve.GroupPoint
	root          *node
}

// New constructs an empty tree. Each generator row must supply width*2
// generators (two field elements — x and y — per child slot).
func New(width int, oddGenerators, evenGenerators [][]curve.GroupPoint) *Tree {
	if width < 2 {
		panic("curvetree: width must be >= 2")
	}
	for _, row := range oddGenerators {
		if len(row) != width*2 {
			panic("curvetree: odd generator row has wrong width")
		}
	}
	for _, row := range evenGenerators {
		if len(row) != width*2 {
			panic("curvetree: even generator row has wrong width")
		}
	}
	return &Tree{
		width:          width,
		oddGenerators:  oddGenerators,
		evenGenerators: evenGenerators,
		root:           newNode(Odd),
	}
}

// Depth returns the tree's current structural depth (0 for an empty tree).
func (t *Tree) Depth() int { return depth(t.root) }

// Root returns the root hash. Returns ErrDirty if Clean has not been run
// since the last mutation.
func (t *Tree) Root() (curve.GroupPoint, error) {
	if t.root.dirty {
		return curve.GroupPoint{}, ErrDirty
	}
	return t.root.hash, nil
}

// AddLeaves inserts leaves one at a time via in-order descent into the
// first non-full branch, growing the tree by skeleton-wrapping the current
// root when every branch is full.
func (t *Tree) AddLeaves(leaves []curve.GroupPoint) {
	for _, leaf := range leaves {
		if !addToNode(t.width, t.root, leaf) {
			t.grow(leaf)
		}
	}
}

func addToNode(width int, n *node, leaf curve.GroupPoint) bool {
	if len(n.children) < width {
		n.dirty = true
		n.children = append(n.children, child{isLeaf: true, leaf: leaf})
		return true
	}
	for i := range n.children {
		c := &n.children[i]
		if c.isLeaf {
			return false
		}
		if addToNode(width, c.node, leaf) {
			n.dirty = true
			return true
		}
	}
	return false
}

// grow wraps the current root as the leftmost child of a new root whose
// sibling subtrees are zero-hashed skeletons cloned from the current
// structure (shape only, no leaves), then inserts the pending leaf into the
// new root's second child.
func (t *Tree) grow(leaf curve.GroupPoint) {
	skeleton := cloneSkeleton(t.root)

	children := make([]child, t.width)
	children[0] = child{node: t.root}
	for i := 1; i < t.width; i++ {
		if i == 1 {
			children[i] = child{node: skeleton}
		} else {
			children[i] = child{node: cloneSkeleton(t.root)}
		}
	}

	if !addToNode(t.width, children[1].node, leaf) {
		panic("curvetree: freshly cleared skeleton rejected a leaf")
	}

	newParity := Even
	if t.root.parity == Even {
		newParity = Odd
	}
	t.root = &node{parity: newParity, dirty: true, children: children}
}

// cloneSkeleton reproduces n's branch structure with every hash reset to
// identity, every dirty flag cleared, and every leaf removed.
func cloneSkeleton(n *node) *node {
	s := newNode(n.parity)
	if len(n.children) == 0 {
		return s
	}
	if n.children[0].isLeaf {
		return s
	}
	s.children = make([]child, len(n.children))
	for i, c := range n.children {
		s.children[i] = child{node: cloneSkeleton(c.node)}
	}
	return s
}

// Clean recomputes every dirty node's hash bottom-up, projecting each
// child's affine coordinates onto the opposite parity's generator row.
func (t *Tree) Clean() {
	t.clean(t.root)
}

func (t *Tree) clean(n *node) {
	if !n.dirty {
		return
	}

	var evenCoords, oddCoords []curve.FieldElement
	for i := range n.children {
		c := &n.children[i]
		var childHash curve.GroupPoint
		var childParity Parity
		if c.isLeaf {
			childHash = c.leaf
			childParity = Even
		} else {
			t.clean(c.node)
			childHash = c.node.hash
			childParity = c.node.parity
		}
		x, y := childHash.AffineXY()
		if childParity == Even {
			evenCoords = append(evenCoords, x, y)
		} else {
			oddCoords = append(oddCoords, x, y)
		}
	}

	d := depth(n)
	switch n.parity {
	case Odd:
		if len(oddCoords) != 0 {
			panic("curvetree: odd node received odd-parity children")
		}
		row := t.oddGenerators[(d-1)/2]
		n.hash = pedersen.Hash(linalg.ScalarVector(evenCoords), linalg.PointVector(row[:len(evenCoords)]))
	case Even:
		if len(evenCoords) != 0 {
			panic("curvetree: even node received even-parity children")
		}
		row := t.evenGenerators[d/2]
		n.hash = pedersen.Hash(linalg.ScalarVector(oddCoords), linalg.PointVector(row[:len(oddCoords)]))
	}
	n.dirty = false
}
