package scintfit

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrDegenerate reports an abscissa that cannot support a quadratic fit.
var ErrDegenerate = errors.New("scintfit: degenerate abscissa")

// FitParabola fits y = a*x^2 + b*x + c by least squares and returns the
// fitted curve together with the stationary point -b/(2a). Before the
// solve the abscissa is rescaled to a span of 1000, which keeps the
// normal equations well conditioned for the narrow windows arc power
// curves are sampled on; the peak is reported in the original units.
func FitParabola(xs, ys []float64) (yfit []float64, peak float64, err error) {
	if len(xs) != len(ys) {
		return nil, 0, fmt.Errorf("scintfit: mismatched lengths %d and %d", len(xs), len(ys))
	}
	if len(xs) < 3 {
		return nil, 0, fmt.Errorf("%w: %d points, need at least 3", ErrDegenerate, len(xs))
	}
	span := floats.Max(xs) - floats.Min(xs)
	if span == 0 {
		return nil, 0, fmt.Errorf("%w: zero span", ErrDegenerate)
	}
	scale := 1000 / span

	design := mat.NewDense(len(xs), 3, nil)
	rhs := mat.NewVecDense(len(ys), nil)
	for i, x := range xs {
		sx := x * scale
		design.Set(i, 0, sx*sx)
		design.Set(i, 1, sx)
		design.Set(i, 2, 1)
		rhs.SetVec(i, ys[i])
	}
	var qr mat.QR
	qr.Factorize(design)
	var sol mat.VecDense
	if err := qr.SolveVecTo(&sol, false, rhs); err != nil {
		return nil, 0, fmt.Errorf("scintfit: parabola solve failed: %w", err)
	}
	a, b, c := sol.AtVec(0), sol.AtVec(1), sol.AtVec(2)

	yfit = make([]float64, len(xs))
	for i, x := range xs {
		sx := x * scale
		yfit[i] = a*sx*sx + b*sx + c
	}
	peak = -b / (2 * a) / scale
	return yfit, peak, nil
}
