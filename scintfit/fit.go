package scintfit

import (
	"errors"
	"fmt"
	"math"

	"github.com/maorshutman/lm"

	"github.com/ramain/scintools/sspec"
)

// kolmogorovAlpha is the structure-function exponent for Kolmogorov
// turbulence, the default shape of the timescale model.
const kolmogorovAlpha = 5.0 / 3.0

// ErrTooFewLags reports an autocovariance cut too short to constrain the
// model parameters.
var ErrTooFewLags = errors.New("scintfit: too few lags")

// TimescaleConfig controls FitTimescale. The zero value fits the
// three-parameter Kolmogorov model.
type TimescaleConfig struct {
	// Alpha is the model exponent. Zero means 5/3, the Kolmogorov value;
	// 2 gives a Gaussian.
	Alpha float64

	// FitAlpha frees the exponent as a fourth parameter, starting from
	// Alpha (or its default).
	FitAlpha bool
}

// BandwidthConfig controls FitBandwidth. The zero value fits only the
// bandwidth, pinning amplitude and white noise to estimates read off the
// cut itself.
type BandwidthConfig struct {
	// Amp and WN pin the amplitude and zero-lag white-noise spike while
	// FitWN is false. Zeros mean data-driven estimates; a timescale fit
	// of the same record is the usual source.
	Amp, WN float64

	// FitWN frees amplitude and white noise as fit parameters.
	FitWN bool
}

// TimescaleFit holds the fitted timescale model
// amp*exp(-(lag/tau)^alpha), with a white-noise spike on the zero-lag bin.
type TimescaleFit struct {
	Tau   float64 // scintillation timescale at 1/e, seconds
	Amp   float64 // autocovariance amplitude, white noise excluded
	WN    float64 // white-noise spike on the zero-lag bin
	Alpha float64 // model exponent
}

// Eval returns the fitted model sampled at the given time lags. A zero
// lag carries the white-noise spike.
func (f *TimescaleFit) Eval(lags []float64) []float64 {
	out := make([]float64, len(lags))
	for i, x := range lags {
		out[i] = expModel(x, f.Tau, f.Amp, f.WN, f.Alpha)
	}
	return out
}

// BandwidthFit holds the fitted bandwidth model
// amp*exp(-lag*ln2/dnu), with a white-noise spike on the zero-lag bin.
// Dnu is defined at half power.
type BandwidthFit struct {
	Dnu float64 // decorrelation bandwidth at half power, MHz
	Amp float64 // autocovariance amplitude, white noise excluded
	WN  float64 // white-noise spike on the zero-lag bin
}

// Eval returns the fitted model sampled at the given frequency lags.
func (f *BandwidthFit) Eval(lags []float64) []float64 {
	out := make([]float64, len(lags))
	for i, x := range lags {
		out[i] = expModel(x, f.Dnu/math.Ln2, f.Amp, f.WN, 1)
	}
	return out
}

// expModel evaluates amp*exp(-(x/scale)^alpha), plus wn exactly at x == 0.
// The scale enters through its magnitude so the optimizer can wander
// through negative trial values without leaving the model family.
func expModel(x, scale, amp, wn, alpha float64) float64 {
	if x == 0 {
		return amp + wn
	}
	s := math.Abs(scale)
	if s == 0 {
		return 0
	}
	return amp * math.Exp(-math.Pow(math.Abs(x)/s, alpha))
}

// FitTimescale measures the scintillation timescale from the time-lag cut
// through the autocovariance zero-lag row. The model is
// amp*exp(-(lag/tau)^alpha) with an additive white-noise spike at zero
// lag; alpha is fixed unless cfg frees it. Initial guesses are read off
// the cut: amplitude from the first nonzero lag, white noise from the
// zero-lag drop, tau from the 1/e crossing.
func FitTimescale(a *sspec.ACF, cfg TimescaleConfig) (*TimescaleFit, error) {
	lags, vals := a.TimeCut()
	alpha := cfg.Alpha
	if alpha == 0 {
		alpha = kolmogorovAlpha
	}
	dim := 3
	if cfg.FitAlpha {
		dim = 4
	}
	if len(lags) < dim+2 {
		return nil, fmt.Errorf("%w: %d time lags, need at least %d", ErrTooFewLags, len(lags), dim+2)
	}

	amp0, wn0 := spikeGuess(vals)
	tau0 := crossingGuess(lags, vals, amp0/math.E)
	init := []float64{tau0, amp0, wn0}
	if cfg.FitAlpha {
		init = append(init, alpha)
	}

	f := func(dst, p []float64) {
		al := alpha
		if cfg.FitAlpha {
			al = p[3]
		}
		for i, x := range lags {
			dst[i] = vals[i] - expModel(x, p[0], p[1], p[2], al)
		}
	}
	x, err := solve(f, init, len(lags))
	if err != nil {
		return nil, fmt.Errorf("scintfit: timescale fit failed: %w", err)
	}
	fit := &TimescaleFit{Tau: math.Abs(x[0]), Amp: x[1], WN: x[2], Alpha: alpha}
	if cfg.FitAlpha {
		fit.Alpha = x[3]
	}
	return fit, nil
}

// FitBandwidth measures the decorrelation bandwidth from the
// frequency-lag cut through the autocovariance zero-lag column. The model
// is amp*exp(-lag*ln2/dnu), so dnu is the half-power width. Amplitude and
// white noise stay pinned (to cfg or to data-driven estimates) unless cfg
// frees them.
func FitBandwidth(a *sspec.ACF, cfg BandwidthConfig) (*BandwidthFit, error) {
	lags, vals := a.FreqCut()
	dim := 1
	if cfg.FitWN {
		dim = 3
	}
	if len(lags) < dim+2 {
		return nil, fmt.Errorf("%w: %d frequency lags, need at least %d", ErrTooFewLags, len(lags), dim+2)
	}

	amp0, wn0 := spikeGuess(vals)
	if cfg.Amp != 0 {
		amp0 = cfg.Amp
	}
	if cfg.WN != 0 {
		wn0 = cfg.WN
	}
	dnu0 := crossingGuess(lags, vals, amp0/2)

	var f func(dst, p []float64)
	var init []float64
	if cfg.FitWN {
		init = []float64{dnu0, amp0, wn0}
		f = func(dst, p []float64) {
			for i, x := range lags {
				dst[i] = vals[i] - expModel(x, p[0]/math.Ln2, p[1], p[2], 1)
			}
		}
	} else {
		init = []float64{dnu0}
		f = func(dst, p []float64) {
			for i, x := range lags {
				dst[i] = vals[i] - expModel(x, p[0]/math.Ln2, amp0, wn0, 1)
			}
		}
	}
	x, err := solve(f, init, len(lags))
	if err != nil {
		return nil, fmt.Errorf("scintfit: bandwidth fit failed: %w", err)
	}
	fit := &BandwidthFit{Dnu: math.Abs(x[0]), Amp: amp0, WN: wn0}
	if cfg.FitWN {
		fit.Amp = x[1]
		fit.WN = x[2]
	}
	return fit, nil
}

// spikeGuess estimates the smooth amplitude and the zero-lag white-noise
// spike of an autocovariance cut. The first nonzero lag carries the
// smooth component; whatever the zero-lag bin holds beyond that is noise.
func spikeGuess(vals []float64) (amp, wn float64) {
	amp = vals[1]
	if amp <= 0 || math.IsNaN(amp) {
		amp = vals[0]
	}
	wn = vals[0] - vals[1]
	if wn < 0 || math.IsNaN(wn) {
		wn = 0
	}
	return amp, wn
}

// crossingGuess returns the first lag where the cut falls below level,
// or half the lag span when it never does.
func crossingGuess(lags, vals []float64, level float64) float64 {
	for i := 1; i < len(lags); i++ {
		if vals[i] < level {
			return lags[i]
		}
	}
	return lags[len(lags)-1] / 2
}

func solve(f func(dst, p []float64), init []float64, size int) ([]float64, error) {
	problem := lm.LMProblem{
		Dim:        len(init),
		Size:       size,
		Func:       f,
		Jac:        lm.NumJac{Func: f}.Jac,
		InitParams: init,
		Tau:        1e-6,
		Eps1:       1e-8,
		Eps2:       1e-8,
	}
	results, err := lm.LM(problem, &lm.Settings{Iterations: 100, ObjectiveTol: 1e-16})
	if err != nil {
		return nil, err
	}
	return results.X, nil
}
