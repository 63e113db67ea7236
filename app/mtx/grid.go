package mtx

import (
	"encoding/json"
	"fmt"
)

// MaxGridCells bounds rows*cols for a dense preview grid (512MB of float64).
const MaxGridCells = 1 << 26

// Grid is a dense row-major matrix of float64 cells. Integer and real files
// share the same cell type. Cells start at 0; only the assembler (or
// GridFromRows) writes them, and a Grid is never mutated after it has been
// handed out.
type Grid struct {
	rows, cols int
	data       []float64
}

// newGrid allocates a zero-filled rows×cols grid.
func newGrid(rows, cols int) *Grid {
	return &Grid{rows: rows, cols: cols, data: make([]float64, rows*cols)}
}

// GridFromRows builds a grid from a rectangular slice of rows. An empty slice
// yields a 0×0 grid.
func GridFromRows(rows [][]float64) (*Grid, error) {
	if len(rows) == 0 {
		return newGrid(0, 0), nil
	}
	cols := len(rows[0])
	g := newGrid(len(rows), cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", i, len(row), cols)
		}
		copy(g.data[i*cols:], row)
	}
	return g, nil
}

// Dims returns the number of rows and columns.
func (g *Grid) Dims() (rows, cols int) {
	return g.rows, g.cols
}

// Len returns the number of cells.
func (g *Grid) Len() int {
	return len(g.data)
}

// At returns the cell at row i, column j. It panics if the indices are out of range.
func (g *Grid) At(i, j int) float64 {
	if i < 0 || i >= g.rows || j < 0 || j >= g.cols {
		panic(fmt.Sprintf("mtx: index (%d,%d) out of range for %dx%d grid", i, j, g.rows, g.cols))
	}
	return g.data[i*g.cols+j]
}

// Row returns a copy of row i.
func (g *Grid) Row(i int) []float64 {
	out := make([]float64, g.cols)
	copy(out, g.data[i*g.cols:(i+1)*g.cols])
	return out
}

// Rows returns a copy of the grid as a slice of rows.
func (g *Grid) Rows() [][]float64 {
	out := make([][]float64, g.rows)
	for i := range out {
		out[i] = g.Row(i)
	}
	return out
}

// RawData returns a copy of the row-major backing slice.
func (g *Grid) RawData() []float64 {
	out := make([]float64, len(g.data))
	copy(out, g.data)
	return out
}

// Equal reports whether both grids have the same shape and cells.
func (g *Grid) Equal(other *Grid) bool {
	if g == nil || other == nil {
		return g == other
	}
	if g.rows != other.rows || g.cols != other.cols {
		return false
	}
	for i, v := range g.data {
		if other.data[i] != v {
			return false
		}
	}
	return true
}

// SizeBytes estimates the memory held by the grid, used for cache accounting.
func (g *Grid) SizeBytes() int64 {
	return int64(len(g.data))*8 + 32
}

func (g *Grid) set(i, j int, v float64) {
	g.data[i*g.cols+j] = v
}

// MarshalJSON encodes the grid as an array of rows, the layout the matrix
// service uses for input_matrix and its results.
func (g *Grid) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Rows())
}

// UnmarshalJSON decodes an array of rows.
func (g *Grid) UnmarshalJSON(b []byte) error {
	var rows [][]float64
	if err := json.Unmarshal(b, &rows); err != nil {
		return err
	}
	parsed, err := GridFromRows(rows)
	if err != nil {
		return err
	}
	*g = *parsed
	return nil
}
