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

// NormConfig holds the axis-normalization parameters. Eta is required and
// usually comes from Fit; the remaining fields default like FitConfig.
type NormConfig struct {
	// Eta is the arc curvature used for the collapse, in units of
	// Tdel/Fdop^2. Non-positive or NaN values fail with ErrCurvature.
	Eta float64

	// DelMax is the delay cutoff, quoted at 1400 MHz and rescaled by
	// (1400/freq)^2, in the units of the spectrum's vertical axis:
	// microseconds, or 1/m for lambda-mode spectra. Zero means the full
	// delay range.
	DelMax float64

	// StartBin is the number of leading delay rows to drop. Zero means 9.
	StartBin int

	// MaxNormFac is the half-width of the normalized Doppler axis. The
	// theoretical arc sits at +-1, so the default of 2 keeps one arc
	// width of context either side. Zero means 2.
	MaxNormFac float64

	// CutMid is the half-width, in bins, of the window blanked around
	// zero normalized Doppler, where the DC/leakage spike makes the
	// power ambiguous. Zero means 2.
	CutMid int
}

// Profile is a secondary spectrum collapsed along its arc. Rows holds each
// retained delay row resampled onto the common normalized Doppler axis;
// Avg is the NaN-aware row average rescaled so the mean power at the
// theoretical arc positions +-1 is unity.
type Profile struct {
	Eta  float64    // curvature used for the collapse
	Fdop []float64  // normalized Doppler axis, dimensionless, ascending
	Tdel []float64  // delay rows retained, in the spectrum's delay units
	Rows *mat.Dense // per-row normalized power, [len(Tdel) x len(Fdop)]
	Avg  []float64  // arc-normalized mean profile, len(Fdop)
}

// Normalize collapses a secondary spectrum along its arc. Each delay row
// tdel[i] is read over the Doppler window +-MaxNormFac*sqrt(tdel[i]/eta),
// its Doppler axis divided by sqrt(tdel[i]/eta), and the result resampled
// onto a common grid spanning [-MaxNormFac, MaxNormFac]. On that grid a
// parabolic arc of curvature eta becomes a vertical line at +-1, so
// averaging the rows turns arc power into two sharp peaks.
//
// The averaged profile is scaled by the mean absolute power at +-1 and
// shifted positive if the arc signature came out negative. Rows keeps the
// unscaled per-row values. The input spectrum is not modified.
func Normalize(s *sspec.Spectrum, cfg NormConfig) (*Profile, error) {
	if cfg.Eta <= 0 || math.IsNaN(cfg.Eta) {
		return nil, ErrCurvature
	}
	if s.Freq <= 0 {
		return nil, errors.New("arc: spectrum carries no band centre frequency")
	}
	startbin := cfg.StartBin
	if startbin == 0 {
		startbin = 9
	}
	maxnorm := cfg.MaxNormFac
	if maxnorm == 0 {
		maxnorm = 2
	}
	cutmid := cfg.CutMid
	if cutmid == 0 {
		cutmid = 2
	}
	delays := s.Tdel
	if s.Lambda {
		if len(s.Beta) == 0 {
			return nil, errors.New("arc: lambda spectrum carries no beta axis")
		}
		delays = s.Beta
	}
	delmax := cfg.DelMax
	if delmax == 0 {
		delmax = floats.Max(delays)
	}
	scale := refFreq / s.Freq
	delmax *= scale * scale

	cut := nanstat.ArgNearest(delays, delmax)
	if cut <= startbin {
		return nil, fmt.Errorf("arc: delay rows [%d, %d) leave nothing to average", startbin, cut)
	}
	tdel := delays[startbin:cut]
	fdop := s.Fdop
	eta := cfg.Eta

	// Common normalized-Doppler grid. Its bin count matches the Doppler
	// bins available for the widest retained row, capped at the band edge.
	maxfdop := maxnorm * math.Sqrt(tdel[len(tdel)-1]/eta)
	if fm := floats.Max(fdop); maxfdop > fm {
		maxfdop = fm
	}
	nfdop := 0
	for _, x := range fdop {
		if math.Abs(x) <= maxfdop {
			nfdop++
		}
	}
	if nfdop < 2 {
		return nil, fmt.Errorf("arc: doppler window +-%g mHz spans %d bins, need at least 2", maxfdop, nfdop)
	}
	fdopnew := make([]float64, nfdop)
	for i := range fdopnew {
		fdopnew[i] = -maxnorm + 2*maxnorm*float64(i)/float64(nfdop-1)
	}
	mid := nanstat.ArgNearest(fdopnew, 0)

	rows := mat.NewDense(len(tdel), nfdop, nil)
	sum := make([]float64, nfdop)
	cnt := make([]int, nfdop)
	ifdop := make([]float64, 0, len(fdop))
	ipow := make([]float64, 0, len(fdop))
	for i, itdel := range tdel {
		w := math.Sqrt(itdel / eta)
		imax := maxnorm * w
		ifdop = ifdop[:0]
		ipow = ipow[:0]
		for j, x := range fdop {
			if math.Abs(x) <= imax {
				ifdop = append(ifdop, x/w)
				ipow = append(ipow, s.Power.At(startbin+i, j))
			}
		}
		line := resample.Linear(fdopnew, ifdop, ipow)
		for k := mid - cutmid; k <= mid+cutmid; k++ {
			if k >= 0 && k < len(line) {
				line[k] = math.NaN()
			}
		}
		rows.SetRow(i, line)
		for k, v := range line {
			if !math.IsNaN(v) {
				sum[k] += v
				cnt[k]++
			}
		}
	}
	avg := make([]float64, nfdop)
	for k := range avg {
		if cnt[k] == 0 {
			avg[k] = math.NaN()
			continue
		}
		avg[k] = sum[k] / float64(cnt[k])
	}

	i1 := nanstat.ArgNearest(fdopnew, 1)
	i2 := nanstat.ArgNearest(fdopnew, -1)
	normfac := (math.Abs(avg[i1]) + math.Abs(avg[i2])) / 2
	if normfac == 0 || math.IsNaN(normfac) {
		return nil, ErrNoPower
	}
	for k := range avg {
		avg[k] /= normfac
	}
	// Log power near the arc can be uniformly negative; shift so the arc
	// signature reads +1 rather than -1.
	if avg[i1] < 0 {
		for k := range avg {
			avg[k] += 2
		}
	}
	return &Profile{
		Eta:  eta,
		Fdop: fdopnew,
		Tdel: append([]float64(nil), tdel...),
		Rows: rows,
		Avg:  avg,
	}, nil
}
