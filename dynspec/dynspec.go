package dynspec

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrEmpty     = errors.New("dynspec: empty input")
	ErrNoEpoch   = errors.New("dynspec: no MJD0 key in header")
	ErrShape     = errors.New("dynspec: sample count inconsistent with nchan*nsub")
	ErrAllZero   = errors.New("dynspec: intensity grid is entirely zero")
	ErrBandwidth = errors.New("dynspec: fractional bandwidth exceeds 1/3")
	ErrOverlap   = errors.New("dynspec: records overlap in time")
)

// Record is one dynamic spectrum: pulsar intensity on a channel by
// sub-integration grid plus its axis and epoch bookkeeping.
//
// Unit conventions are fixed and documented per field: frequencies in MHz,
// times in seconds, epochs in MJD days, wavelengths in meters. NaN in the
// intensity grid marks a missing sample; the Valid mask separates measured
// samples from interpolated or missing ones.
type Record struct {
	Name   string
	Header []string // raw comment lines, '#' stripped

	Times []float64 // sub-integration times, seconds since start, ascending
	Freqs []float64 // channel centre frequencies, MHz, ascending

	Dyn     *mat.Dense // intensity [nchan x nsub]; NaN = missing
	FluxErr *mat.Dense // flux errors [nchan x nsub]; nil when the source has none
	Valid   []bool     // measured-sample mask, row-major [nchan x nsub]

	MJD  float64 // epoch of the first sample, days
	Freq float64 // band centre, MHz
	BW   float64 // total bandwidth, MHz
	DF   float64 // channel bandwidth, MHz
	DT   float64 // sub-integration length, seconds
	Tobs float64 // observation length, seconds

	// Bandpass holds the divisor vector of the most recent CorrectBand call.
	Bandpass []float64

	// Wavelength-rescaled grid, populated by ScaleLambda.
	LamDyn *mat.Dense // intensity on the equal-wavelength grid [len(Lam) x nsub]
	Lam    []float64  // wavelengths, meters, ascending
	DLam   float64    // wavelength step, meters

	logger *slog.Logger
}

// Params carries the fields needed to build a Record directly, the path used
// by Combine and by external simulation loaders.
type Params struct {
	Name   string
	Header []string
	Times  []float64
	Freqs  []float64

	Dyn     *mat.Dense
	FluxErr *mat.Dense

	MJD  float64
	Freq float64 // zero: derived from Freqs
	BW   float64 // zero: derived from DF and channel count
	DF   float64
	DT   float64
	Tobs float64 // zero: derived from DT and sub-integration count
}

// Option configures a Record at construction time.
type Option func(*Record)

// WithLogger routes the record's non-fatal diagnostics (combine parameter
// mismatches, zap statistics) to the given logger instead of slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Record) {
		r.logger = logger
	}
}

// New builds a Record from explicit fields, validating the grid invariants:
// non-empty axes, ascending frequencies, positive DF and DT, and an
// intensity grid shaped [len(Freqs) x len(Times)]. The record takes
// ownership of the provided grids and axis slices. Freq, BW and Tobs are
// derived when left zero.
func New(p Params, opts ...Option) (*Record, error) {
	if len(p.Times) == 0 || len(p.Freqs) == 0 || p.Dyn == nil {
		return nil, ErrEmpty
	}
	nchan, nsub := len(p.Freqs), len(p.Times)
	if r, c := p.Dyn.Dims(); r != nchan || c != nsub {
		return nil, fmt.Errorf("%w: grid %dx%d, axes %dx%d", ErrShape, r, c, nchan, nsub)
	}
	if p.FluxErr != nil {
		if r, c := p.FluxErr.Dims(); r != nchan || c != nsub {
			return nil, fmt.Errorf("%w: flux error grid %dx%d, axes %dx%d", ErrShape, r, c, nchan, nsub)
		}
	}
	if p.DF <= 0 {
		return nil, fmt.Errorf("dynspec: channel bandwidth must be positive, got %v", p.DF)
	}
	if p.DT <= 0 {
		return nil, fmt.Errorf("dynspec: sub-integration length must be positive, got %v", p.DT)
	}
	for i := 1; i < nchan; i++ {
		if p.Freqs[i] <= p.Freqs[i-1] {
			return nil, fmt.Errorf("dynspec: frequencies not ascending at channel %d", i)
		}
	}

	r := &Record{
		Name:    p.Name,
		Header:  p.Header,
		Times:   p.Times,
		Freqs:   p.Freqs,
		Dyn:     p.Dyn,
		FluxErr: p.FluxErr,
		MJD:     p.MJD,
		Freq:    p.Freq,
		BW:      p.BW,
		DF:      p.DF,
		DT:      p.DT,
		Tobs:    p.Tobs,
	}
	if r.Freq == 0 {
		r.Freq = round(stat.Mean(r.Freqs, nil), 2)
	}
	if r.BW == 0 {
		r.BW = round(r.DF*float64(nchan), 2)
	}
	if r.Tobs == 0 {
		r.Tobs = r.DT * float64(nsub)
	}
	r.Valid = finiteMask(r.Dyn)
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Nchan returns the number of frequency channels.
func (r *Record) Nchan() int { return len(r.Freqs) }

// Nsub returns the number of sub-integrations.
func (r *Record) Nsub() int { return len(r.Times) }

// Clone returns an independent deep copy of the record.
func (r *Record) Clone() *Record {
	c := &Record{
		Name:   r.Name,
		Header: append([]string(nil), r.Header...),
		Times:  append([]float64(nil), r.Times...),
		Freqs:  append([]float64(nil), r.Freqs...),
		Dyn:    mat.DenseCopyOf(r.Dyn),
		Valid:  append([]bool(nil), r.Valid...),
		MJD:    r.MJD,
		Freq:   r.Freq,
		BW:     r.BW,
		DF:     r.DF,
		DT:     r.DT,
		Tobs:   r.Tobs,
		DLam:   r.DLam,
		logger: r.logger,
	}
	if r.FluxErr != nil {
		c.FluxErr = mat.DenseCopyOf(r.FluxErr)
	}
	if r.Bandpass != nil {
		c.Bandpass = append([]float64(nil), r.Bandpass...)
	}
	if r.LamDyn != nil {
		c.LamDyn = mat.DenseCopyOf(r.LamDyn)
	}
	if r.Lam != nil {
		c.Lam = append([]float64(nil), r.Lam...)
	}
	return c
}

// Info returns the observation-properties summary block.
func (r *Record) Info() string {
	return fmt.Sprintf(`OBSERVATION PROPERTIES

filename:                 %s
MJD:                      %g
Centre frequency (MHz):   %g
Bandwidth (MHz):          %g
Channel bandwidth (MHz):  %g
Integration time (s):     %g
Subintegration time (s):  %g
Channels x sub-ints:      %d x %d`,
		r.Name, r.MJD, r.Freq, r.BW, r.DF, r.Tobs, r.DT, r.Nchan(), r.Nsub())
}

func (r *Record) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return slog.Default()
}

// finiteMask returns a row-major mask marking the finite entries of m.
func finiteMask(m *mat.Dense) []bool {
	rows, cols := m.Dims()
	mask := make([]bool, rows*cols)
	for i := 0; i < rows; i++ {
		row := m.RawRowView(i)
		for j, v := range row {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				mask[i*cols+j] = true
			}
		}
	}
	return mask
}

// round rounds x to the given number of decimal places.
func round(x float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(x*scale) / scale
}
