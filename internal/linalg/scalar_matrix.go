// Copyright 2025 Certen Protocol

package linalg

import "github.com/certen/tss-coordinator/internal/curve"

// SparseEntry is a single (column, weight) pair in a ScalarMatrix row.
type SparseEntry struct {
	Column int
	Weight curve.FieldElement
}

// ScalarMatrix stores each row as a sparse list of (column_index, weight)
// pairs, matching the circuit's constraint matrices (W_L, W_R, W_O, W_V),
// which are overwhelmingly zero.
type ScalarMatrix struct {
	cols int
	rows [][]SparseEntry
}

// NewScalarMatrix returns an empty matrix with the given column width.
func NewScalarMatrix(cols int) *ScalarMatrix {
	return &ScalarMatrix{cols: cols}
}

// AppendRow appends a new sparse row, skipping any zero-weight entries.
func (m *ScalarMatrix) AppendRow(entries []SparseEntry) {
	row := make([]SparseEntry, 0, len(entries))
	for _, e := range entries {
		if e.Weight.IsZero() {
			continue
		}
		if e.Column < 0 || e.Column >= m.cols {
			panic("linalg: sparse entry column out of range")
		}
		row = append(row, e)
	}
	m.rows = append(m.rows, row)
}

// Rows returns the number of rows.
func (m *ScalarMatrix) Rows() int { return len(m.rows) }

// Cols returns the declared column width.
func (m *ScalarMatrix) Cols() int { return m.cols }

// RowCombination returns Σ_j weights[j] * row_j as a dense vector of length
// Cols(). Panics if weights has a different length than Rows().
func (m *ScalarMatrix) RowCombination(weights ScalarVector) ScalarVector {
	if weights.Len() != len(m.rows) {
		panic("linalg: row combination weight count mismatch")
	}
	out := make(ScalarVector, m.cols)
	for i := range out {
		out[i] = curve.Zero()
	}
	for j, row := range m.rows {
		w := weights[j]
		if w.IsZero() {
			continue
		}
		for _, e := range row {
			out[e.Column] = out[e.Column].Add(w.Mul(e.Weight))
		}
	}
	return out
}

// MulVector returns M·v, where v has length Cols().
func (m *ScalarMatrix) MulVector(v ScalarVector) ScalarVector {
	if v.Len() != m.cols {
		panic("linalg: matrix/vector dimension mismatch")
	}
	out := make(ScalarVector, len(m.rows))
	for i, row := range m.rows {
		acc := curve.Zero()
		for _, e := range row {
			acc = acc.Add(e.Weight.Mul(v[e.Column]))
		}
		out[i] = acc
	}
	return out
}
