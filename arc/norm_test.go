package arc

import (
	"errors"
	"math"
	"testing"

	"github.com/ramain/scintools/internal/nanstat"
	"github.com/ramain/scintools/internal/testutil"
)

func TestNormalizeCollapsesArc(t *testing.T) {
	const eta0 = 0.0025
	s := ridgeSpectrum(eta0)
	p, err := Normalize(s, NormConfig{Eta: eta0, DelMax: 15})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	// The widest retained row allows Doppler out to the band edge, so the
	// common axis keeps every bin with |fdop| <= 63 and spans [-2, 2].
	if len(p.Fdop) != 127 {
		t.Fatalf("normalized axis has %d bins, want 127", len(p.Fdop))
	}
	if p.Fdop[0] != -2 || p.Fdop[len(p.Fdop)-1] != 2 {
		t.Errorf("axis spans [%g, %g], want [-2, 2]", p.Fdop[0], p.Fdop[len(p.Fdop)-1])
	}
	if len(p.Tdel) != 118 || p.Tdel[0] != s.Tdel[9] {
		t.Errorf("retained delays: len %d starting %g, want 118 starting %g", len(p.Tdel), p.Tdel[0], s.Tdel[9])
	}
	if r, c := p.Rows.Dims(); r != len(p.Tdel) || c != len(p.Fdop) {
		t.Fatalf("Rows is %dx%d, want %dx%d", r, c, len(p.Tdel), len(p.Fdop))
	}

	// Centre window blanked, immediate neighbours kept.
	for k := 61; k <= 65; k++ {
		if !math.IsNaN(p.Avg[k]) {
			t.Errorf("Avg[%d] = %g, want NaN in the blanked centre", k, p.Avg[k])
		}
	}
	if math.IsNaN(p.Avg[60]) || math.IsNaN(p.Avg[66]) {
		t.Error("bins outside the centre window should stay finite")
	}

	// The ridge collapses onto +-1 of the normalized axis.
	best := nanstat.ArgMax(p.Avg)
	if best < 0 {
		t.Fatal("profile is all NaN")
	}
	if d := math.Abs(math.Abs(p.Fdop[best]) - 1); d > 0.07 {
		t.Errorf("profile peaks at normalized Doppler %g, want +-1", p.Fdop[best])
	}

	// Scaled so the mean absolute power at +-1 is unity, and positive.
	i1 := nanstat.ArgNearest(p.Fdop, 1)
	i2 := nanstat.ArgNearest(p.Fdop, -1)
	testutil.RequireNearlyEqual(t, (math.Abs(p.Avg[i1])+math.Abs(p.Avg[i2]))/2, 1, 1e-12)
	if p.Avg[i1] < 0 {
		t.Errorf("Avg[%d] = %g, arc signature should be positive", i1, p.Avg[i1])
	}

	// Per-row values stay on the power scale of the input grid.
	if peak := nanstat.GridMax(p.Rows); peak < 5 || peak > 10+1e-9 {
		t.Errorf("Rows max = %g, want near the ridge amplitude 10", peak)
	}
}

func TestNormalizeDefaultWindow(t *testing.T) {
	s := ridgeSpectrum(0.0025)
	p, err := Normalize(s, NormConfig{Eta: 0.0025})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	// Default cutoff is the full delay range, which keeps everything up
	// to but not including the nearest-to-max row; default start bin 9.
	if len(p.Tdel) != 118 || p.Tdel[0] != 0.9 {
		t.Errorf("retained delays: len %d starting %g, want 118 starting 0.9", len(p.Tdel), p.Tdel[0])
	}
}

func TestNormalizeErrors(t *testing.T) {
	s := ridgeSpectrum(0.0025)

	for _, eta := range []float64{0, -1, math.NaN()} {
		if _, err := Normalize(s, NormConfig{Eta: eta}); !errors.Is(err, ErrCurvature) {
			t.Errorf("eta %g: err = %v, want ErrCurvature", eta, err)
		}
	}
	if _, err := Normalize(s, NormConfig{Eta: 0.0025, StartBin: 500}); err == nil {
		t.Error("start bin past the delay range should fail")
	}

	nan := ridgeSpectrum(0.0025)
	nan.Power = testutil.ConstGrid(128, 128, math.NaN())
	if _, err := Normalize(nan, NormConfig{Eta: 0.0025}); !errors.Is(err, ErrNoPower) {
		t.Errorf("all-NaN grid: err = %v, want ErrNoPower", err)
	}

	bad := ridgeSpectrum(0.0025)
	bad.Freq = 0
	if _, err := Normalize(bad, NormConfig{Eta: 0.0025}); err == nil {
		t.Error("spectrum without a band centre should fail")
	}
}
