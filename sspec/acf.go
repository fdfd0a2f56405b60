package sspec

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ramain/scintools/dynspec"
	"github.com/ramain/scintools/internal/fft2"
	"github.com/ramain/scintools/internal/nanstat"
)

// ACF is the 2-D autocovariance of a dynamic spectrum. Data is
// [2*nchan x 2*nsub] with the zero-lag bin at (nchan, nsub); lag steps
// follow the source record's sub-integration length and channel bandwidth.
type ACF struct {
	Data *mat.Dense
	DT   float64 // time lag step, seconds
	DF   float64 // frequency lag step, MHz
}

// ComputeACF builds the autocovariance estimate via the Wiener-Khinchin
// identity: subtract the grid mean, zero-pad to twice the grid size,
// forward transform, square magnitudes, inverse transform and center the
// zero lag. Missing samples enter the transform as the mean. The zero-lag
// bin carries total power plus white noise; the white-noise level is the
// drop to the neighbouring bin and is estimated by the fitting stage, not
// here.
func ComputeACF(r *dynspec.Record) (*ACF, error) {
	nchan, nsub := r.Dyn.Dims()

	// Plans want power-of-two sizes. Padding past 2n leaves the central
	// window bit-identical to the exact 2n transform, since the linear
	// autocovariance support ends at lag n-1.
	rows := fft2.NextPow2(2 * nchan)
	cols := fft2.NextPow2(2 * nsub)

	mean := nanstat.GridMean(r.Dyn)
	g := fft2.NewGrid(rows, cols)
	for i := 0; i < nchan; i++ {
		src := r.Dyn.RawRowView(i)
		dst := g.Row(i)
		for j, v := range src {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			dst[j] = complex(v-mean, 0)
		}
	}

	if err := g.Forward(); err != nil {
		return nil, fmt.Errorf("sspec: autocovariance transform failed: %w", err)
	}
	power := make([]float64, len(g.Data))
	g.Power(power)
	for k, p := range power {
		g.Data[k] = complex(p, 0)
	}
	if err := g.Inverse(); err != nil {
		return nil, fmt.Errorf("sspec: autocovariance transform failed: %w", err)
	}

	out := mat.NewDense(2*nchan, 2*nsub, nil)
	for i := 0; i < 2*nchan; i++ {
		si := (i - nchan + rows) % rows
		dst := out.RawRowView(i)
		for j := 0; j < 2*nsub; j++ {
			sj := (j - nsub + cols) % cols
			dst[j] = real(g.At(si, sj))
		}
	}
	return &ACF{Data: out, DT: r.DT, DF: r.DF}, nil
}

// TimeCut returns the autocovariance along time at zero frequency lag,
// starting at the zero-lag bin. Lags are in seconds.
func (a *ACF) TimeCut() (lags, values []float64) {
	rows, cols := a.Data.Dims()
	nchan, nsub := rows/2, cols/2
	values = append([]float64(nil), a.Data.RawRowView(nchan)[nsub:]...)
	lags = make([]float64, len(values))
	for k := range lags {
		lags[k] = float64(k) * a.DT
	}
	return lags, values
}

// FreqCut returns the autocovariance along frequency at zero time lag,
// starting at the zero-lag bin. Lags are in MHz.
func (a *ACF) FreqCut() (lags, values []float64) {
	rows, cols := a.Data.Dims()
	nchan, nsub := rows/2, cols/2
	values = make([]float64, nchan)
	lags = make([]float64, nchan)
	for k := 0; k < nchan; k++ {
		values[k] = a.Data.At(nchan+k, nsub)
		lags[k] = float64(k) * a.DF
	}
	return lags, values
}
