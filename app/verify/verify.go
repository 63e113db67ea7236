// Package verify checks server results on the client: that an inverse
// multiplies back to the identity and that decomposition factors multiply
// back to the input.
package verify

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"matrixdesk/app/mtx"
)

// DefaultTolerance bounds the relative Frobenius residual of a passing check.
const DefaultTolerance = 1e-6

// ErrShape is returned when operands cannot be multiplied or compared.
var ErrShape = errors.New("shape mismatch")

// Check is one residual measurement.
type Check struct {
	Name     string
	Residual float64
	OK       bool
}

// Report collects the checks run against one result.
type Report struct {
	Subject   string
	Tolerance float64
	Checks    []Check
}

// OK reports whether every check passed.
func (r Report) OK() bool {
	for _, c := range r.Checks {
		if !c.OK {
			return false
		}
	}
	return len(r.Checks) > 0
}

// Worst returns the largest residual.
func (r Report) Worst() float64 {
	worst := 0.0
	for _, c := range r.Checks {
		if c.Residual > worst || math.IsNaN(c.Residual) {
			worst = c.Residual
		}
	}
	return worst
}

func (r Report) String() string {
	parts := make([]string, len(r.Checks))
	for i, c := range r.Checks {
		status := "ok"
		if !c.OK {
			status = "FAIL"
		}
		parts[i] = fmt.Sprintf("%s=%.3g %s", c.Name, c.Residual, status)
	}
	return fmt.Sprintf("%s: %s", r.Subject, strings.Join(parts, ", "))
}

func (r *Report) add(name string, residual float64) {
	ok := residual <= r.Tolerance && !math.IsNaN(residual)
	r.Checks = append(r.Checks, Check{Name: name, Residual: residual, OK: ok})
}

func dense(g *mtx.Grid) (*mat.Dense, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: missing matrix", ErrShape)
	}
	rows, cols := g.Dims()
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("%w: empty matrix", ErrShape)
	}
	return mat.NewDense(rows, cols, g.RawData()), nil
}

func tolerance(tol float64) float64 {
	if tol <= 0 {
		return DefaultTolerance
	}
	return tol
}

// relativeResidual returns ||got - want||_F / max(||want||_F, 1), or NaN when
// the shapes differ.
func relativeResidual(got, want mat.Matrix) float64 {
	gr, gc := got.Dims()
	wr, wc := want.Dims()
	if gr != wr || gc != wc {
		return math.NaN()
	}
	var diff mat.Dense
	diff.Sub(got, want)
	return mat.Norm(&diff, 2) / math.Max(mat.Norm(want, 2), 1)
}

func identity(n int) *mat.DiagDense {
	d := make([]float64, n)
	for i := range d {
		d[i] = 1
	}
	return mat.NewDiagDense(n, d)
}

// Inverse checks that a·inv and inv·a are the identity.
func Inverse(a, inv *mtx.Grid, tol float64) (Report, error) {
	r := Report{Subject: "inverse", Tolerance: tolerance(tol)}
	A, err := dense(a)
	if err != nil {
		return r, err
	}
	X, err := dense(inv)
	if err != nil {
		return r, err
	}
	n, c := A.Dims()
	xr, xc := X.Dims()
	if n != c || xr != n || xc != n {
		return r, fmt.Errorf("%w: %dx%d matrix with %dx%d inverse", ErrShape, n, c, xr, xc)
	}

	var ax, xa mat.Dense
	ax.Mul(A, X)
	xa.Mul(X, A)
	I := identity(n)
	r.add("A*inv-I", relativeResidual(&ax, I))
	r.add("inv*A-I", relativeResidual(&xa, I))
	return r, nil
}

// Decomposition checks the factors a worker returned for algorithm (lu, qr
// or ldl). LDL accepts either [L, D, Lt] or [L, D].
func Decomposition(a *mtx.Grid, algorithm string, blocks []*mtx.Grid, tol float64) (Report, error) {
	algorithm = strings.ToLower(algorithm)
	r := Report{Subject: algorithm, Tolerance: tolerance(tol)}
	A, err := dense(a)
	if err != nil {
		return r, err
	}
	factors := make([]*mat.Dense, len(blocks))
	for i, b := range blocks {
		if factors[i], err = dense(b); err != nil {
			return r, fmt.Errorf("block %d: %w", i, err)
		}
	}

	switch algorithm {
	case "lu":
		if len(factors) != 2 {
			return r, fmt.Errorf("%w: lu needs 2 blocks, got %d", ErrShape, len(factors))
		}
		L, U := factors[0], factors[1]
		prod, err := product(L, U)
		if err != nil {
			return r, err
		}
		r.add("L*U-A", relativeResidual(prod, A))
		r.add("L lower", offTriangle(L, true))
		r.add("U upper", offTriangle(U, false))
	case "qr":
		if len(factors) != 2 {
			return r, fmt.Errorf("%w: qr needs 2 blocks, got %d", ErrShape, len(factors))
		}
		Q, R := factors[0], factors[1]
		prod, err := product(Q, R)
		if err != nil {
			return r, err
		}
		r.add("Q*R-A", relativeResidual(prod, A))
		var qtq mat.Dense
		qtq.Mul(Q.T(), Q)
		_, qc := Q.Dims()
		r.add("Qt*Q-I", relativeResidual(&qtq, identity(qc)))
		r.add("R upper", offTriangle(R, false))
	case "ldl":
		if len(factors) != 2 && len(factors) != 3 {
			return r, fmt.Errorf("%w: ldl needs 2 or 3 blocks, got %d", ErrShape, len(factors))
		}
		L, D := factors[0], factors[1]
		var Lt mat.Matrix = L.T()
		if len(factors) == 3 {
			Lt = factors[2]
			r.add("Lt-L^T", relativeResidual(factors[2], L.T()))
		}
		ld, err := product(L, D)
		if err != nil {
			return r, err
		}
		prod, err := product(ld, Lt)
		if err != nil {
			return r, err
		}
		r.add("L*D*Lt-A", relativeResidual(prod, A))
		r.add("L lower", offTriangle(L, true))
		r.add("D diagonal", offDiagonal(D))
	default:
		return r, fmt.Errorf("unsupported algorithm %q", algorithm)
	}
	return r, nil
}

func product(a, b mat.Matrix) (*mat.Dense, error) {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ac != br {
		return nil, fmt.Errorf("%w: cannot multiply %dx%d by %dx%d", ErrShape, ar, ac, br, bc)
	}
	var out mat.Dense
	out.Mul(a, b)
	return &out, nil
}

// offTriangle returns the norm of the entries that should be zero in a lower
// (or upper) triangular matrix, relative to the whole matrix.
func offTriangle(m *mat.Dense, lower bool) float64 {
	rows, cols := m.Dims()
	sum := 0.0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if (lower && j > i) || (!lower && j < i) {
				v := m.At(i, j)
				sum += v * v
			}
		}
	}
	return math.Sqrt(sum) / math.Max(mat.Norm(m, 2), 1)
}

func offDiagonal(m *mat.Dense) float64 {
	rows, cols := m.Dims()
	sum := 0.0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if i != j {
				v := m.At(i, j)
				sum += v * v
			}
		}
	}
	return math.Sqrt(sum) / math.Max(mat.Norm(m, 2), 1)
}
