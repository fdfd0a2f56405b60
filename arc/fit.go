package arc

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/ramain/scintools/internal/nanstat"
	"github.com/ramain/scintools/internal/resample"
	"github.com/ramain/scintools/sspec"
)

// refFreq is the frequency the delay cutoff and curvature cap are quoted
// at. Curvature scales as frequency^-2, so both are rescaled to the band
// of the spectrum under analysis before the search runs.
const refFreq = 1400.0 // MHz

var (
	// ErrUnknownMethod reports a fit method name this package does not
	// implement.
	ErrUnknownMethod = errors.New("arc: unknown fit method")

	// ErrNoPower reports that no trial arc crossed any finite power, so
	// there is nothing to maximize over.
	ErrNoPower = errors.New("arc: no finite power along any trial arc")

	// ErrCurvature reports a non-positive or NaN curvature.
	ErrCurvature = errors.New("arc: curvature must be positive")
)

// FitConfig holds the curvature search parameters. The zero value selects
// the gridmax method over the stock search window.
type FitConfig struct {
	// Method names the search strategy. Empty or "gridmax" runs the grid
	// search; anything else fails with ErrUnknownMethod.
	Method string

	// DelMax is the delay cutoff, quoted at 1400 MHz and rescaled by
	// (1400/freq)^2, in the units of the spectrum's vertical axis:
	// microseconds, or 1/m for lambda-mode spectra. Rows above it are
	// dropped before the search. Zero means 0.3.
	DelMax float64

	// SqrtEtaStep is the trial grid spacing in sqrt(curvature). Uniform
	// steps in sqrt(eta) sample arc separation uniformly. Zero means 1e-3.
	SqrtEtaStep float64

	// StartBin is the number of leading delay rows to blank before the
	// search; they carry the on-axis leakage spike. Zero means 9.
	StartBin int

	// EtaMax caps the trial curvature, quoted at 1400 MHz. Zero means 0.5.
	EtaMax float64
}

// Result holds the curvature estimates together with the mean-power curves
// they were read from. Curvatures, PowerL and PowerR share indices; a NaN
// power marks a trial whose branch crossed no finite samples.
type Result struct {
	Eta  float64 // curvature maximizing the branch-averaged arc power
	EtaL float64 // best curvature of the negative-Doppler branch
	EtaR float64 // best curvature of the positive-Doppler branch

	Curvatures []float64 // trial curvature grid
	PowerL     []float64 // mean power per trial along the negative-Doppler branch
	PowerR     []float64 // mean power per trial along the positive-Doppler branch
}

// Fit locates the scintillation arc curvature by grid search. For each
// trial curvature it traces the parabola tdel = eta*fdop^2 across the
// secondary spectrum, resamples the power bilinearly along both Doppler
// branches and records the mean. The reported curvatures maximize that
// mean: EtaL and EtaR per branch, Eta over the branch average.
//
// The spectrum is not modified; masking and cropping happen on a working
// copy. Trials whose parabola leaves the delay window contribute NaN and
// are skipped during selection.
func Fit(s *sspec.Spectrum, cfg FitConfig) (*Result, error) {
	if cfg.Method != "" && cfg.Method != "gridmax" {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, cfg.Method)
	}
	if s.Freq <= 0 {
		return nil, errors.New("arc: spectrum carries no band centre frequency")
	}
	delmax := cfg.DelMax
	if delmax == 0 {
		delmax = 0.3
	}
	step := cfg.SqrtEtaStep
	if step == 0 {
		step = 1e-3
	}
	startbin := cfg.StartBin
	if startbin == 0 {
		startbin = 9
	}
	etamax := cfg.EtaMax
	if etamax == 0 {
		etamax = 0.5
	}

	scale := refFreq / s.Freq
	delmax *= scale * scale

	// Lambda-mode spectra live on the wavelength-conjugate axis.
	delays := s.Tdel
	if s.Lambda {
		if len(s.Beta) == 0 {
			return nil, errors.New("arc: lambda spectrum carries no beta axis")
		}
		delays = s.Beta
	}

	// Crop below the frequency-scaled delay cutoff and blank the leading
	// rows. The blanked rows stay in the grid so pixel coordinates keep
	// their meaning; they just never contribute finite samples.
	rows := nanstat.ArgNearest(delays, delmax)
	if rows < 1 {
		return nil, fmt.Errorf("arc: delay cutoff %g leaves no delay rows", delmax)
	}
	_, ncols := s.Power.Dims()
	z := mat.NewDense(rows, ncols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < ncols; j++ {
			if i < startbin {
				z.Set(i, j, math.NaN())
			} else {
				z.Set(i, j, s.Power.At(i, j))
			}
		}
	}
	tdel := delays[:rows]
	fdop := s.Fdop

	maxSqrtEta := math.Sqrt(etamax) * scale
	ntrial := int(math.Ceil((maxSqrtEta - step) / step))
	if ntrial < 1 {
		return nil, fmt.Errorf("arc: sqrt-eta step %g exceeds search cap %g", step, maxSqrtEta)
	}

	maxY := floats.Max(tdel)
	fdopMin := floats.Min(fdop)
	fdopMax := floats.Max(fdop)

	curv := make([]float64, ntrial)
	powL := make([]float64, ntrial)
	powR := make([]float64, ntrial)
	avg := make([]float64, ntrial)
	for i := range curv {
		se := step * float64(i+1)
		eta := se * se
		curv[i] = eta

		minY := math.Inf(1)
		for _, x := range fdop {
			if y := eta * x * x; y < minY {
				minY = y
			}
		}

		var sumL, sumR float64
		var nL, nR int
		for _, x := range fdop {
			if x == 0 {
				continue
			}
			y := eta * x * x
			if y >= maxY {
				continue
			}
			rowPx := (y - minY) / (maxY - minY) * float64(rows)
			colPx := (x - fdopMin) / (fdopMax - fdopMin) * float64(ncols)
			v := resample.Bilinear(z, rowPx, colPx)
			if math.IsNaN(v) {
				continue
			}
			if x < 0 {
				sumL += v
				nL++
			} else {
				sumR += v
				nR++
			}
		}
		powL[i] = math.NaN()
		powR[i] = math.NaN()
		if nL > 0 {
			powL[i] = sumL / float64(nL)
		}
		if nR > 0 {
			powR[i] = sumR / float64(nR)
		}
		avg[i] = (powL[i] + powR[i]) / 2
	}

	best := nanstat.ArgMax(avg)
	bestL := nanstat.ArgMax(powL)
	bestR := nanstat.ArgMax(powR)
	if best < 0 || bestL < 0 || bestR < 0 {
		return nil, ErrNoPower
	}
	return &Result{
		Eta:        curv[best],
		EtaL:       curv[bestL],
		EtaR:       curv[bestR],
		Curvatures: curv,
		PowerL:     powL,
		PowerR:     powR,
	}, nil
}
