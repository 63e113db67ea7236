package verify

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"matrixdesk/app/mtx"
)

func grid(t *testing.T, rows [][]float64) *mtx.Grid {
	t.Helper()
	g, err := mtx.GridFromRows(rows)
	require.NoError(t, err)
	return g
}

func fromDense(t *testing.T, m mat.Matrix) *mtx.Grid {
	t.Helper()
	r, c := m.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = make([]float64, c)
		for j := range rows[i] {
			rows[i][j] = m.At(i, j)
		}
	}
	return grid(t, rows)
}

func TestInverse(t *testing.T) {
	a := grid(t, [][]float64{{4, 7}, {2, 6}})
	inv := grid(t, [][]float64{{0.6, -0.7}, {-0.2, 0.4}})

	rep, err := Inverse(a, inv, 0)
	require.NoError(t, err)
	assert.True(t, rep.OK(), rep.String())
	assert.Equal(t, DefaultTolerance, rep.Tolerance)
	assert.Len(t, rep.Checks, 2)
	assert.Less(t, rep.Worst(), 1e-12)

	wrong := grid(t, [][]float64{{0.6, -0.7}, {-0.2, 0.5}})
	rep, err = Inverse(a, wrong, 0)
	require.NoError(t, err)
	assert.False(t, rep.OK())
	assert.Contains(t, rep.String(), "FAIL")
}

func TestInverseShapeErrors(t *testing.T) {
	a := grid(t, [][]float64{{1, 2}, {3, 4}})
	_, err := Inverse(a, grid(t, [][]float64{{1}}), 0)
	assert.ErrorIs(t, err, ErrShape)

	_, err = Inverse(grid(t, [][]float64{{1, 2, 3}}), grid(t, [][]float64{{1, 2, 3}}), 0)
	assert.ErrorIs(t, err, ErrShape)

	_, err = Inverse(grid(t, nil), a, 0)
	assert.ErrorIs(t, err, ErrShape)
}

func TestLU(t *testing.T) {
	// Doolittle factors without pivoting, the layout the workers return.
	a := grid(t, [][]float64{{4, 3}, {6, 3}})
	l := grid(t, [][]float64{{1, 0}, {1.5, 1}})
	u := grid(t, [][]float64{{4, 3}, {0, -1.5}})

	rep, err := Decomposition(a, "LU", []*mtx.Grid{l, u}, 0)
	require.NoError(t, err)
	assert.True(t, rep.OK(), rep.String())
	assert.Equal(t, "lu", rep.Subject)

	// Swapped factors multiply to something else and fail the triangle checks.
	rep, err = Decomposition(a, "lu", []*mtx.Grid{u, l}, 0)
	require.NoError(t, err)
	assert.False(t, rep.OK())

	_, err = Decomposition(a, "lu", []*mtx.Grid{l}, 0)
	assert.ErrorIs(t, err, ErrShape)
}

func TestQRAgainstGonum(t *testing.T) {
	rows := [][]float64{{12, -51, 4}, {6, 167, -68}, {-4, 24, -41}}
	a := grid(t, rows)

	var qr mat.QR
	qr.Factorize(mat.NewDense(3, 3, a.RawData()))
	var q, r mat.Dense
	qr.QTo(&q)
	qr.RTo(&r)

	rep, err := Decomposition(a, "qr", []*mtx.Grid{fromDense(t, &q), fromDense(t, &r)}, 1e-9)
	require.NoError(t, err)
	assert.True(t, rep.OK(), rep.String())
	assert.Len(t, rep.Checks, 3)
}

func TestLDL(t *testing.T) {
	a := grid(t, [][]float64{{4, 2}, {2, 3}})
	l := grid(t, [][]float64{{1, 0}, {0.5, 1}})
	d := grid(t, [][]float64{{4, 0}, {0, 2}})
	lt := grid(t, [][]float64{{1, 0.5}, {0, 1}})

	rep, err := Decomposition(a, "ldl", []*mtx.Grid{l, d, lt}, 0)
	require.NoError(t, err)
	assert.True(t, rep.OK(), rep.String())
	assert.Len(t, rep.Checks, 4)

	rep, err = Decomposition(a, "ldl", []*mtx.Grid{l, d}, 0)
	require.NoError(t, err)
	assert.True(t, rep.OK(), rep.String())
	assert.Len(t, rep.Checks, 3)
}

func TestDecompositionMismatchedBlocks(t *testing.T) {
	a := grid(t, [][]float64{{1, 0}, {0, 1}})
	l := grid(t, [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}})
	u := grid(t, [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}})

	rep, err := Decomposition(a, "lu", []*mtx.Grid{l, u}, 0)
	require.NoError(t, err)
	assert.False(t, rep.OK())
	assert.True(t, math.IsNaN(rep.Checks[0].Residual))

	_, err = Decomposition(a, "svd", []*mtx.Grid{a}, 0)
	assert.Error(t, err)
}

func TestEmptyReportIsNotOK(t *testing.T) {
	assert.False(t, Report{}.OK())
}
