package mtx

import (
	"bufio"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
)

// WriteArray writes g as a dense Matrix Market file in row-major order, the
// order the decoder reads it back. field must be FieldReal or FieldInteger;
// integer output truncates each cell.
func WriteArray(w io.Writer, g *Grid, field Field) error {
	if field != FieldReal && field != FieldInteger {
		return fmt.Errorf("cannot write %s field as array", field)
	}
	bw := bufio.NewWriter(w)
	rows, cols := g.Dims()
	fmt.Fprintf(bw, "%s matrix array %s general\n", DeclarationPrefix, field)
	fmt.Fprintf(bw, "%d %d\n", rows, cols)

	buf := make([]byte, 0, 32)
	for _, v := range g.data {
		buf = buf[:0]
		if field == FieldInteger {
			buf = strconv.AppendInt(buf, int64(v), 10)
		} else {
			buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
		}
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return fmt.Errorf("failed to write element: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush matrix: %w", err)
	}
	return nil
}

// RandomOptions configures RandomGrid.
type RandomOptions struct {
	Density   float64 // share of nonzero cells, 0..1
	Min, Max  int     // inclusive value range
	Symmetric bool    // (A + Aᵀ) / 2 with integer division; requires a square grid
	Seed      uint64  // 0 picks a random seed
}

// DefaultRandomOptions mirrors the values used by the server test generator.
func DefaultRandomOptions() RandomOptions {
	return RandomOptions{Density: 0.1, Min: 1, Max: 100}
}

// RandomGrid generates an integer-valued test matrix.
func RandomGrid(rows, cols int, opts RandomOptions) (*Grid, error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("invalid size %dx%d", rows, cols)
	}
	if rows > 0 && cols > MaxGridCells/rows {
		return nil, fmt.Errorf("%dx%d exceeds %d cells", rows, cols, MaxGridCells)
	}
	if opts.Max < opts.Min {
		return nil, fmt.Errorf("invalid value range [%d, %d]", opts.Min, opts.Max)
	}
	if opts.Density < 0 || opts.Density > 1 {
		return nil, fmt.Errorf("density %v outside [0, 1]", opts.Density)
	}
	if opts.Symmetric && rows != cols {
		return nil, fmt.Errorf("symmetric matrix must be square, got %dx%d", rows, cols)
	}

	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	g := newGrid(rows, cols)
	span := opts.Max - opts.Min + 1
	for i := range g.data {
		v := opts.Min + rng.IntN(span)
		if rng.Float64() < opts.Density {
			g.data[i] = float64(v)
		}
	}
	if opts.Symmetric {
		for i := 0; i < rows; i++ {
			for j := i + 1; j < cols; j++ {
				s := float64((int64(g.At(i, j)) + int64(g.At(j, i))) / 2)
				g.set(i, j, s)
				g.set(j, i, s)
			}
		}
	}
	return g, nil
}
