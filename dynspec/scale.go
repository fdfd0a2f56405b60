package dynspec

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ramain/scintools/internal/resample"
)

// speed of light, m/s
const speedOfLight = 299792458.0

// ScaleLambda resamples the intensity grid from equal frequency steps onto
// equal wavelength steps, populating LamDyn, Lam and DLam. Row k of LamDyn
// corresponds to wavelength Lam[k]; wavelengths ascend, so row order is
// reversed in frequency relative to Dyn. Linear interpolation is only valid
// for narrow bands, so a fractional bandwidth above 1/3 fails with
// ErrBandwidth.
//
// The wavelength grid deliberately runs one step past the longest
// wavelength of the band; the extra row clamps to the lowest-frequency
// channel. Downstream axis calibration depends on this row count.
func (r *Record) ScaleLambda() error {
	nf, nt := r.Dyn.Dims()
	if nf < 2 {
		return fmt.Errorf("dynspec: wavelength rescaling needs at least two channels, got %d", nf)
	}
	fbw := r.BW / r.Freq
	if fbw > 1.0/3 {
		return fmt.Errorf("%w: fractional bandwidth %.3f", ErrBandwidth, fbw)
	}

	// Equal fractional-frequency grid spanning the band, normalized so the
	// ratio of samples is all that remains.
	dfeq := fbw / float64(nf-1)
	feq := make([]float64, nf)
	for i := range feq {
		feq[i] = 1 - fbw/2 + float64(i)*dfeq
	}
	f0 := feq[0]
	for i := range feq {
		feq[i] /= f0
	}

	dl := 1 - 1/feq[1]
	minl := 1 / feq[nf-1]
	const maxl = 1.0
	nl := int(math.Floor((maxl-minl)/dl + 1))
	dlam := (maxl - minl) / float64(nl-1)

	lam := make([]float64, nl+1)
	flam := make([]float64, nl+1)
	for k := range lam {
		lam[k] = minl + float64(k)*dlam
		flam[k] = 1 / lam[k]
	}

	out := mat.NewDense(nl+1, nt, nil)
	col := make([]float64, nf)
	for j := 0; j < nt; j++ {
		for i := 0; i < nf; i++ {
			col[i] = r.Dyn.At(i, j)
		}
		for k, f := range flam {
			out.Set(k, j, resample.LinearAt(f, feq, col))
		}
	}

	r.LamDyn = out
	r.Lam = make([]float64, nl+1)
	for k := range lam {
		r.Lam[k] = lam[k] * speedOfLight / (r.Freqs[0] * 1e6)
	}
	r.DLam = math.Abs(r.Lam[1] - r.Lam[0])
	return nil
}
