package sspec

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ramain/scintools/dynspec"
	"github.com/ramain/scintools/internal/fft2"
	"github.com/ramain/scintools/internal/nanstat"
)

var (
	ErrTooSmall = errors.New("sspec: grid too small to pre-whiten")
	ErrNoLambda = errors.New("sspec: wavelength grid not computed")
)

// Config selects the secondary-spectrum variant. The zero value transforms
// the frequency-axis grid with pre-whitening, the standard analysis path.
type Config struct {
	// Lambda transforms the wavelength-rescaled grid instead of the raw
	// one. The record must have been through ScaleLambda first.
	Lambda bool
	// Raw skips pre-whitening and the matching post-darkening.
	Raw bool
}

// Spectrum is a secondary spectrum: log-scaled power over Doppler frequency
// and delay.
type Spectrum struct {
	Power *mat.Dense // log10(power/max), [nrfft/2 x ncfft]
	Fdop  []float64  // Doppler frequency axis, mHz, len ncfft
	Tdel  []float64  // delay axis, microseconds, len nrfft/2
	Beta  []float64  // delay axis in wavelength units, 1/m; lambda mode only

	Freq   float64 // band centre of the source record, MHz
	Lambda bool
}

// Compute builds the secondary spectrum: optionally pre-whiten with the 2x2
// differencing kernel, subtract the mean, zero-pad to the smallest powers
// of two exceeding twice each grid dimension, forward transform, take
// squared magnitudes, center the Doppler axis and keep the non-negative
// delay half. Pre-whitened spectra are post-darkened by the inverse of the
// differencing filter response, with the zero-delay row and zero-Doppler
// column left untouched as the response is singular there. Power is stored
// as log10 of the max-normalized grid.
//
// Axis units are load-bearing for everything downstream: Fdop in mHz from
// the sub-integration length in seconds, Tdel in microseconds from the
// channel bandwidth in MHz.
func Compute(r *dynspec.Record, cfg Config) (*Spectrum, error) {
	grid := r.Dyn
	if cfg.Lambda {
		if r.LamDyn == nil {
			return nil, fmt.Errorf("%w: run ScaleLambda before Compute", ErrNoLambda)
		}
		grid = r.LamDyn
	}
	nf, nt := grid.Dims()

	nrfft := fft2.NextPow2Above(2 * nf)
	ncfft := fft2.NextPow2Above(2 * nt)

	pw := grid
	if !cfg.Raw {
		if nf < 2 || nt < 2 {
			return nil, fmt.Errorf("%w: grid is %dx%d", ErrTooSmall, nf, nt)
		}
		pw = prewhiten(grid)
	}

	rows, cols := pw.Dims()
	mean := nanstat.GridMean(pw)
	g := fft2.NewGrid(nrfft, ncfft)
	for i := 0; i < rows; i++ {
		src := pw.RawRowView(i)
		dst := g.Row(i)
		for j := 0; j < cols; j++ {
			v := src[j]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			dst[j] = complex(v-mean, 0)
		}
	}
	if err := g.Forward(); err != nil {
		return nil, fmt.Errorf("sspec: secondary-spectrum transform failed: %w", err)
	}

	// Keep delay rows 0..nrfft/2-1 and center the Doppler axis, taking
	// power directly from the unshifted transform.
	power := make([]float64, len(g.Data))
	g.Power(power)
	sec := mat.NewDense(nrfft/2, ncfft, nil)
	for rr := 0; rr < nrfft/2; rr++ {
		src := power[rr*ncfft : (rr+1)*ncfft]
		dst := sec.RawRowView(rr)
		for c := 0; c < ncfft; c++ {
			dst[c] = src[(c+ncfft/2)%ncfft]
		}
	}

	if !cfg.Raw {
		postdarken(sec, nrfft, ncfft)
	}

	max := nanstat.GridMax(sec)
	for rr := 0; rr < nrfft/2; rr++ {
		dst := sec.RawRowView(rr)
		for c := range dst {
			dst[c] = math.Log10(dst[c] / max)
		}
	}

	s := &Spectrum{
		Power:  sec,
		Fdop:   make([]float64, ncfft),
		Tdel:   make([]float64, nrfft/2),
		Freq:   r.Freq,
		Lambda: cfg.Lambda,
	}
	for c := range s.Fdop {
		s.Fdop[c] = float64(c-ncfft/2) * 1e3 / (float64(ncfft) * r.DT)
	}
	for k := range s.Tdel {
		s.Tdel[k] = float64(k) / (float64(nrfft) * r.DF)
	}
	if cfg.Lambda {
		s.Beta = make([]float64, nrfft/2)
		for k := range s.Beta {
			s.Beta[k] = float64(k) / (float64(nrfft) * r.DLam)
		}
	}
	return s, nil
}

// prewhiten applies the 2x2 differencing kernel in valid mode, flattening
// red noise before the transform. Output is one sample shorter per axis.
func prewhiten(m *mat.Dense) *mat.Dense {
	nf, nt := m.Dims()
	out := mat.NewDense(nf-1, nt-1, nil)
	for i := 0; i < nf-1; i++ {
		dst := out.RawRowView(i)
		for j := 0; j < nt-1; j++ {
			dst[j] = m.At(i+1, j+1) - m.At(i+1, j) - m.At(i, j+1) + m.At(i, j)
		}
	}
	return out
}

// postdarken divides the cropped power grid by the squared frequency
// response of the differencing kernel, sin^2 along each axis. The response
// vanishes on the zero-delay row and the zero-Doppler column, so those
// stay as they are.
func postdarken(sec *mat.Dense, nrfft, ncfft int) {
	for rr := 0; rr < nrfft/2; rr++ {
		dst := sec.RawRowView(rr)
		rowFac := math.Pow(math.Sin(math.Pi*float64(rr)/float64(nrfft)), 2)
		for c := range dst {
			if rr == 0 || c == ncfft/2 {
				continue
			}
			colFac := math.Pow(math.Sin(math.Pi*float64(c-ncfft/2)/float64(ncfft)), 2)
			dst[c] /= rowFac * colFac
		}
	}
}
