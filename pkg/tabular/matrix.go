// Package tabular turns per-record feature mappings into dense row-major
// float64 matrices.
//
// A scalar feature takes one column. A vector feature takes len(vector)
// contiguous columns in element order. Columns follow the insertion order
// of the feature mapping, and the column layout is taken from the first row.
package tabular

import (
	"errors"
	"fmt"

	"github.com/liliang-cn/sqfeat/pkg/feature"
)

var (
	// ErrRaggedRow is returned when a row does not have the width of the first row
	ErrRaggedRow = errors.New("row width differs from first row")

	// ErrNotNumeric is returned for values with no numeric form
	ErrNotNumeric = errors.New("value is not numeric")
)

// Matrix is a dense row-major matrix
type Matrix struct {
	Rows int
	Cols int
	Data []float64
}

// NewMatrix allocates a zeroed rows x cols matrix
func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// At returns element (i, j)
func (m *Matrix) At(i, j int) float64 {
	return m.Data[i*m.Cols+j]
}

// Set assigns element (i, j)
func (m *Matrix) Set(i, j int, v float64) {
	m.Data[i*m.Cols+j] = v
}

// Row returns row i, sharing storage with m
func (m *Matrix) Row(i int) []float64 {
	return m.Data[i*m.Cols : (i+1)*m.Cols]
}

// Column describes the slot a feature takes in a materialized row
type Column struct {
	Name  string `json:"name"`
	Width int    `json:"width"`
}

// Columns lists the selected features of f with their widths, in mapping order
func Columns(f *feature.Features, names []string) []Column {
	selected := f.SelectNames(names)
	cols := make([]Column, 0, len(selected))
	for _, name := range selected {
		v, _ := f.Get(name)
		cols = append(cols, Column{Name: name, Width: v.Width()})
	}
	return cols
}

// Width sums the column widths
func Width(cols []Column) int {
	w := 0
	for _, c := range cols {
		w += c.Width
	}
	return w
}

// Materialize flattens the selected features of every row. An empty names
// selects all features.
func Materialize(rows []*feature.Features, names []string) (*Matrix, error) {
	if len(rows) == 0 {
		return NewMatrix(0, 0), nil
	}

	width := Width(Columns(rows[0], names))
	m := NewMatrix(len(rows), width)

	buf := make([]float64, 0, width)
	for i, row := range rows {
		var err error
		buf, err = flattenRow(buf[:0], row.Select(names))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if len(buf) != width {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrRaggedRow, i, len(buf), width)
		}
		copy(m.Row(i), buf)
	}

	return m, nil
}

// MaterializeLabels builds a matrix from label lists. The width is the
// flattened width of the first list, so a label mapped to a vector takes
// as many columns as the vector holds and the matrix can be wider than the
// label count.
func MaterializeLabels(rows [][]feature.Value) (*Matrix, error) {
	if len(rows) == 0 {
		return NewMatrix(0, 0), nil
	}

	width := 0
	for _, v := range rows[0] {
		width += v.Width()
	}
	m := NewMatrix(len(rows), width)

	buf := make([]float64, 0, width)
	for i, row := range rows {
		var err error
		buf, err = flattenRow(buf[:0], row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if len(buf) != width {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrRaggedRow, i, len(buf), width)
		}
		copy(m.Row(i), buf)
	}

	return m, nil
}

// FromColumn wraps a single column of values
func FromColumn(values []float64) *Matrix {
	m := NewMatrix(len(values), 1)
	copy(m.Data, values)
	return m
}

func flattenRow(dst []float64, values []feature.Value) ([]float64, error) {
	for _, v := range values {
		var err error
		dst, err = v.Flatten(dst)
		if err != nil {
			return dst, fmt.Errorf("%w: %v", ErrNotNumeric, err)
		}
	}
	return dst, nil
}
