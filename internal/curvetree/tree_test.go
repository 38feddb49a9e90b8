// Copyright 2025 Certen Protocol

package curvetree

import (
	"testing"

	"github.com/certen/tss-coordinator/internal/curve"
	"github.com/certen/tss-coordinator/internal/linalg"
	"github.com/certen/tss-coordinator/internal/pedersen"
)

func generatorRow(label string, n int) []curve.GroupPoint {
	row := make([]curve.GroupPoint, n)
	for i := range row {
		row[i] = curve.Generator().ScalarMul(curve.HashToScalar([]byte(label), []byte{byte(i)}))
	}
	return row
}

func leafPoints(n int) []curve.GroupPoint {
	leaves := make([]curve.GroupPoint, n)
	for i := range leaves {
		leaves[i] = curve.Generator().ScalarMul(curve.FieldFromUint64(uint64(i) + 1))
	}
	return leaves
}

// TestTreeWidth4FiveLeaves exercises scenario 1: width=4, 5 leaves — enough
// to force one skeleton-wrapping growth beyond the initial root.
func TestTreeWidth4FiveLeaves(t *testing.T) {
	const width = 4
	odd := [][]curve.GroupPoint{generatorRow("odd-0", width*2), generatorRow("odd-1", width*2)}
	even := [][]curve.GroupPoint{generatorRow("even-0", width*2), generatorRow("even-1", width*2)}

	tree := New(width, odd, even)
	if tree.Depth() != 0 {
		t.Fatalf("expected depth 0 for an empty tree, got %d", tree.Depth())
	}

	leaves := leafPoints(5)
	tree.AddLeaves(leaves)

	if got := tree.Depth(); got != 2 {
		t.Fatalf("expected depth 2 after 5 leaves at width 4, got %d", got)
	}

	if _, err := tree.Root(); err != ErrDirty {
		t.Fatalf("expected ErrDirty before Clean, got %v", err)
	}

	tree.Clean()

	root, err := tree.Root()
	if err != nil {
		t.Fatalf("Root after Clean: %v", err)
	}
	if root.IsIdentity() {
		t.Fatalf("root hash should not be the identity point")
	}
}

// TestTreeCleanIsDeterministic builds the same tree twice from scratch and
// checks the resulting root hashes match.
func TestTreeCleanIsDeterministic(t *testing.T) {
	const width = 3
	odd := [][]curve.GroupPoint{generatorRow("det-odd-0", width*2), generatorRow("det-odd-1", width*2)}
	even := [][]curve.GroupPoint{generatorRow("det-even-0", width*2), generatorRow("det-even-1", width*2)}

	leaves := leafPoints(4)

	t1 := New(width, odd, even)
	t1.AddLeaves(leaves)
	t1.Clean()
	r1, err := t1.Root()
	if err != nil {
		t.Fatalf("t1.Root: %v", err)
	}

	t2 := New(width, odd, even)
	t2.AddLeaves(leaves)
	t2.Clean()
	r2, err := t2.Root()
	if err != nil {
		t.Fatalf("t2.Root: %v", err)
	}

	if !r1.Equal(r2) {
		t.Fatalf("two identically built trees produced different roots")
	}
}

// TestTreeRootMatchesDirectPedersenHash checks the single-level case (leaves
// fit under the root with no growth) against a hand-computed Pedersen hash
// over the root's own generator row.
func TestTreeRootMatchesDirectPedersenHash(t *testing.T) {
	const width = 4
	odd := [][]curve.GroupPoint{generatorRow("flat-odd-0", width*2)}
	even := [][]curve.GroupPoint{generatorRow("flat-even-0", width*2)}

	leaves := leafPoints(3)

	tree := New(width, odd, even)
	tree.AddLeaves(leaves)
	tree.Clean()

	root, err := tree.Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}

	var coords linalg.ScalarVector
	for _, leaf := range leaves {
		x, y := leaf.AffineXY()
		coords = append(coords, x, y)
	}
	want := pedersen.Hash(coords, linalg.PointVector(odd[0][:len(coords)]))

	if !root.Equal(want) {
		t.Fatalf("root hash does not match direct Pedersen hash over the leaf coordinates")
	}
}

func TestTreeAddLeavesOneAtATimeMatchesBatch(t *testing.T) {
	const width = 4
	odd := [][]curve.GroupPoint{generatorRow("inc-odd-0", width*2), generatorRow("inc-odd-1", width*2)}
	even := [][]curve.GroupPoint{generatorRow("inc-even-0", width*2), generatorRow("inc-even-1", width*2)}

	leaves := leafPoints(6)

	batch := New(width, odd, even)
	batch.AddLeaves(leaves)
	batch.Clean()
	batchRoot, err := batch.Root()
	if err != nil {
		t.Fatalf("batch.Root: %v", err)
	}

	incremental := New(width, odd, even)
	for _, leaf := range leaves {
		incremental.AddLeaves([]curve.GroupPoint{leaf})
	}
	incremental.Clean()
	incrementalRoot, err := incremental.Root()
	if err != nil {
		t.Fatalf("incremental.Root: %v", err)
	}

	if !batchRoot.Equal(incrementalRoot) {
		t.Fatalf("adding leaves one at a time produced a different root than adding them in one batch")
	}
}
