package ibi

import (
	"sort"

	"github.com/pkg/errors"
)

// spline is a natural cubic spline through strictly increasing knots.
// Outside the knot span it keeps evaluating the boundary segment
// polynomials, so extrapolated values continue the end curvature
// instead of clamping to the edge knots.
//
// https://en.wikipedia.org/wiki/Spline_interpolation
type spline struct {
	xs []float64
	ys []float64
	m  []float64 // second derivatives at the knots
}

func newSpline(xs, ys []float64) (*spline, error) {
	n := len(xs)

	if n != len(ys) {
		return nil, errors.Errorf("knot count mismatch (%d times, %d values)", n, len(ys))
	}

	if n < 2 {
		return nil, errors.Errorf("need at least 2 knots (have %d)", n)
	}

	for i := 1; i < n; i++ {
		if xs[i] <= xs[i-1] {
			return nil, errors.Errorf(
				"knot times must be strictly increasing (x[%d]=%g, x[%d]=%g)",
				i-1, xs[i-1], i, xs[i])
		}
	}

	return &spline{xs: xs, ys: ys, m: moments(xs, ys)}, nil
}

// moments solves the tridiagonal system for the knot second derivatives.
// Natural boundary conditions pin both end moments to zero, which also
// covers the two knot case where the spline degenerates to a line.
func moments(xs, ys []float64) []float64 {
	n := len(xs)
	m := make([]float64, n)

	if n < 3 {
		return m
	}

	diag := make([]float64, n-2)
	upper := make([]float64, n-2)
	rhs := make([]float64, n-2)

	for i := 1; i < n-1; i++ {
		h0 := xs[i] - xs[i-1]
		h1 := xs[i+1] - xs[i]

		diag[i-1] = 2 * (h0 + h1)
		upper[i-1] = h1
		rhs[i-1] = 6 * ((ys[i+1]-ys[i])/h1 - (ys[i]-ys[i-1])/h0)
	}

	// Thomas sweep. The system is symmetric, so the subdiagonal entry of
	// row i equals upper[i-1].
	for i := 1; i < n-2; i++ {
		w := upper[i-1] / diag[i-1]
		diag[i] -= w * upper[i-1]
		rhs[i] -= w * rhs[i-1]
	}

	for i := n - 3; i >= 0; i-- {
		v := rhs[i]
		if i < n-3 {
			v -= upper[i] * m[i+2]
		}

		m[i+1] = v / diag[i]
	}

	return m
}

// eval returns the spline value at x. Arguments outside the knot span
// are extrapolated with the first or last segment polynomial.
func (sp *spline) eval(x float64) float64 {
	n := len(sp.xs)

	i := sort.SearchFloat64s(sp.xs, x) - 1
	if i < 0 {
		i = 0
	}

	if i > n-2 {
		i = n - 2
	}

	h := sp.xs[i+1] - sp.xs[i]
	a := (sp.xs[i+1] - x) / h
	b := (x - sp.xs[i]) / h

	return a*sp.ys[i] + b*sp.ys[i+1] +
		((a*a*a-a)*sp.m[i]+(b*b*b-b)*sp.m[i+1])*h*h/6
}
