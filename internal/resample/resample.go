// Package resample provides the 1-D and 2-D linear interpolation kernels
// shared by the wavelength rescaler, the secondary-spectrum normaliser and
// the arc-curvature sampler.
package resample

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Linear evaluates the piecewise-linear interpolant through (xp, fp) at
// every point of xs. xp must be ascending. Points outside the support clamp
// to the boundary values.
func Linear(xs, xp, fp []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = LinearAt(x, xp, fp)
	}
	return out
}

// LinearAt evaluates the piecewise-linear interpolant through (xp, fp) at x.
func LinearAt(x float64, xp, fp []float64) float64 {
	n := len(xp)
	if n == 0 {
		return math.NaN()
	}
	if x <= xp[0] {
		return fp[0]
	}
	if x >= xp[n-1] {
		return fp[n-1]
	}
	j := sort.SearchFloat64s(xp, x)
	if xp[j] == x {
		return fp[j]
	}
	t := (x - xp[j-1]) / (xp[j] - xp[j-1])
	return fp[j-1] + t*(fp[j]-fp[j-1])
}

// Bilinear samples m at fractional pixel coordinates. Coordinates outside
// [0, rows-1] x [0, cols-1] return NaN rather than clamping, so that callers
// averaging many samples can skip the ones that fell off the grid.
func Bilinear(m *mat.Dense, row, col float64) float64 {
	rows, cols := m.Dims()
	if row < 0 || col < 0 || row > float64(rows-1) || col > float64(cols-1) {
		return math.NaN()
	}
	i0, j0 := int(row), int(col)
	i1, j1 := i0+1, j0+1
	if i1 > rows-1 {
		i1 = rows - 1
	}
	if j1 > cols-1 {
		j1 = cols - 1
	}
	fr, fc := row-float64(i0), col-float64(j0)
	v00 := m.At(i0, j0)
	v01 := m.At(i0, j1)
	v10 := m.At(i1, j0)
	v11 := m.At(i1, j1)
	return (1-fr)*((1-fc)*v00+fc*v01) + fr*((1-fc)*v10+fc*v11)
}
