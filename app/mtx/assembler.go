package mtx

// assembler places decoded elements into a pre-sized grid.
//
// Positional mode puts element k at (k / cols, k % cols) and stops after
// rows*cols elements. Indexed mode puts each element at its own (row, col),
// mirrors symmetric entries and stops after the declared nonzero count.
type assembler struct {
	grid    *Grid
	indexed bool
	mirror  float64 // 0 = no mirroring, 1 = symmetric, -1 = skew-symmetric
	limit   int     // elements to accept; -1 = until input is exhausted
	count   int
}

func newAssembler(shape Shape, header Header, indexed bool) *assembler {
	a := &assembler{
		grid:    newGrid(shape.Rows, shape.Cols),
		indexed: indexed,
		limit:   shape.Cells(),
	}
	if indexed {
		a.limit = -1
		if shape.HasNonZeros {
			a.limit = shape.NonZeros
		}
		if shape.Cells() == 0 {
			a.limit = 0
		}
		switch {
		case header.SkewSymmetric:
			a.mirror = -1
		case header.Symmetric:
			a.mirror = 1
		}
	}
	return a
}

// full reports whether no more elements should be read.
func (a *assembler) full() bool {
	return a.limit >= 0 && a.count >= a.limit
}

// place stores one element. It must not be called once full returns true.
func (a *assembler) place(e Element) {
	k := a.count
	a.count++
	if e.Skip {
		return
	}
	if !a.indexed {
		a.grid.set(k/a.grid.cols, k%a.grid.cols, e.Value)
		return
	}
	a.grid.set(e.Row, e.Col, e.Value)
	if a.mirror != 0 && e.Row != e.Col && e.Col < a.grid.rows && e.Row < a.grid.cols {
		a.grid.set(e.Col, e.Row, a.mirror*e.Value)
	}
}
