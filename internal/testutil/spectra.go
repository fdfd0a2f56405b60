package testutil

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ConstGrid returns a rows x cols matrix filled with value.
func ConstGrid(rows, cols int, value float64) *mat.Dense {
	m := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		row := m.RawRowView(i)
		for j := range row {
			row[j] = value
		}
	}
	return m
}

// NoiseGrid returns a rows x cols matrix of uniform noise in
// [offset-amplitude, offset+amplitude] with a fixed seed for
// reproducibility.
func NoiseGrid(seed int64, rows, cols int, amplitude, offset float64) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	m := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		row := m.RawRowView(i)
		for j := range row {
			row[j] = offset + (rng.Float64()*2-1)*amplitude
		}
	}
	return m
}

// ParabolaRidgeGrid builds a synthetic secondary-spectrum power grid with a
// Gaussian ridge along tdel = eta*fdop^2. Power falls from amp on the ridge
// toward floor far from it; width is the ridge half-width in tdel units.
// Rows follow tdel, columns follow fdop.
func ParabolaRidgeGrid(tdel, fdop []float64, eta, width, amp, floor float64) *mat.Dense {
	m := mat.NewDense(len(tdel), len(fdop), nil)
	for i, td := range tdel {
		row := m.RawRowView(i)
		for j, fd := range fdop {
			d := (td - eta*fd*fd) / width
			row[j] = floor + (amp-floor)*math.Exp(-d*d)
		}
	}
	return m
}

// PsrfluxText renders a synthetic psrflux-format dynamic spectrum. Channel
// frequencies start at f0 and step by df MHz (df may be negative to exercise
// the descending-band flip); sub-integration k is stamped at (k+1)*dtMin
// minutes. flux is evaluated per (sub, chan) cell; flux errors are 10% of
// the flux value.
func PsrfluxText(nsub, nchan int, dtMin, f0, df, mjd float64, flux func(sub, ch int) float64) string {
	var b strings.Builder
	b.WriteString("# Dynamic spectrum\n")
	fmt.Fprintf(&b, "# MJD0: %.10f\n", mjd)
	b.WriteString("# Data: sub chan time freq flux flux_err\n")
	for sub := 0; sub < nsub; sub++ {
		for ch := 0; ch < nchan; ch++ {
			v := flux(sub, ch)
			fmt.Fprintf(&b, "%d %d %.4f %.5f %.6f %.6f\n",
				sub, ch, float64(sub+1)*dtMin, f0+float64(ch)*df, v, 0.1*v)
		}
	}
	return b.String()
}
