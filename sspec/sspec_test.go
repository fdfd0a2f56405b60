package sspec

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/ramain/scintools/dynspec"
	"github.com/ramain/scintools/internal/fft2"
	"github.com/ramain/scintools/internal/nanstat"
	"github.com/ramain/scintools/internal/testutil"
)

// testRecord builds a noise record with df 1 MHz and the given grid and
// sub-integration length.
func testRecord(t *testing.T, nchan, nsub int, dt float64) *dynspec.Record {
	t.Helper()
	times := make([]float64, nsub)
	for j := range times {
		times[j] = float64(j+1) * dt
	}
	freqs := make([]float64, nchan)
	for i := range freqs {
		freqs[i] = 1400 + float64(i)
	}
	r, err := dynspec.New(dynspec.Params{
		Name:  "synthetic.dynspec",
		Times: times,
		Freqs: freqs,
		Dyn:   testutil.NoiseGrid(3, nchan, nsub, 1, 5),
		MJD:   58000,
		DF:    1,
		DT:    dt,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return r
}

func TestComputeAxisCalibration(t *testing.T) {
	// dt = 1 s and nsub = 4 force ncfft = 16, the next power of two above
	// 8, making the Doppler bin spacing 1000/(16*1) = 62.5 mHz.
	r := testRecord(t, 4, 4, 1)

	s, err := Compute(r, Config{})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	if len(s.Fdop) != 16 {
		t.Fatalf("len(Fdop) = %d, want 16", len(s.Fdop))
	}
	if len(s.Tdel) != 8 {
		t.Fatalf("len(Tdel) = %d, want 8", len(s.Tdel))
	}
	rows, cols := s.Power.Dims()
	if rows != 8 || cols != 16 {
		t.Fatalf("Power is %dx%d, want 8x16", rows, cols)
	}

	for c := 1; c < 16; c++ {
		if got := s.Fdop[c] - s.Fdop[c-1]; math.Abs(got-62.5) > 1e-9 {
			t.Fatalf("Fdop spacing at %d = %v, want 62.5", c, got)
		}
	}
	if s.Fdop[8] != 0 {
		t.Errorf("Fdop[ncfft/2] = %v, want 0", s.Fdop[8])
	}
	if got := s.Fdop[0]; math.Abs(got+500) > 1e-9 {
		t.Errorf("Fdop[0] = %v, want -500", got)
	}

	// df = 1 MHz: delay bins step by 1/16 microseconds.
	if s.Tdel[0] != 0 {
		t.Errorf("Tdel[0] = %v, want 0", s.Tdel[0])
	}
	if got := s.Tdel[1]; math.Abs(got-1.0/16) > 1e-12 {
		t.Errorf("Tdel[1] = %v, want 1/16", got)
	}
	if s.Beta != nil {
		t.Error("Beta populated outside lambda mode")
	}
}

func TestComputeNormalization(t *testing.T) {
	r := testRecord(t, 8, 8, 10)
	s, err := Compute(r, Config{})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if got := nanstat.GridMax(s.Power); math.Abs(got) > 1e-9 {
		t.Errorf("max log-power = %v, want 0", got)
	}
}

func TestComputeLocatesFringe(t *testing.T) {
	// A pure time fringe with period 8 samples lands 32/8 = 4 Doppler bins
	// off center once padded to ncfft = 32, at zero delay.
	nchan, nsub := 4, 8
	dyn := mat.NewDense(nchan, nsub, nil)
	for i := 0; i < nchan; i++ {
		for j := 0; j < nsub; j++ {
			dyn.Set(i, j, math.Cos(2*math.Pi*float64(j)/8))
		}
	}
	times := make([]float64, nsub)
	for j := range times {
		times[j] = float64(j+1)
	}
	freqs := make([]float64, nchan)
	for i := range freqs {
		freqs[i] = 1400 + float64(i)
	}
	r, err := dynspec.New(dynspec.Params{
		Name: "fringe.dynspec", Times: times, Freqs: freqs, Dyn: dyn,
		MJD: 58000, DF: 1, DT: 1,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	s, err := Compute(r, Config{Raw: true})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	rows, cols := s.Power.Dims()
	bestR, bestC := -1, -1
	best := math.Inf(-1)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if v := s.Power.At(i, j); v > best {
				best, bestR, bestC = v, i, j
			}
		}
	}
	if bestR != 0 {
		t.Errorf("peak at delay row %d, want 0", bestR)
	}
	if bestC != 12 && bestC != 20 {
		t.Errorf("peak at Doppler column %d, want 12 or 20", bestC)
	}
	if fd := math.Abs(s.Fdop[bestC]); math.Abs(fd-125) > 1e-9 {
		t.Errorf("peak |fdop| = %v mHz, want 125", fd)
	}
}

func TestComputeTooSmall(t *testing.T) {
	r := testRecord(t, 1, 8, 10)
	if _, err := Compute(r, Config{}); !errors.Is(err, ErrTooSmall) {
		t.Errorf("Compute error = %v, want %v", err, ErrTooSmall)
	}
	if _, err := Compute(r, Config{Raw: true}); err != nil {
		t.Errorf("raw Compute on one channel failed: %v", err)
	}
}

func TestComputeLambda(t *testing.T) {
	r := testRecord(t, 8, 6, 10)

	if _, err := Compute(r, Config{Lambda: true}); !errors.Is(err, ErrNoLambda) {
		t.Fatalf("Compute error = %v, want %v", err, ErrNoLambda)
	}

	if err := r.ScaleLambda(); err != nil {
		t.Fatalf("ScaleLambda failed: %v", err)
	}
	s, err := Compute(r, Config{Lambda: true})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if !s.Lambda {
		t.Error("Lambda flag not set")
	}

	lamRows, _ := r.LamDyn.Dims()
	nrfft := fft2.NextPow2Above(2 * lamRows)
	if len(s.Beta) != nrfft/2 {
		t.Fatalf("len(Beta) = %d, want %d", len(s.Beta), nrfft/2)
	}
	if got, want := s.Beta[1], 1/(float64(nrfft)*r.DLam); math.Abs(got-want) > 1e-12 {
		t.Errorf("Beta[1] = %v, want %v", got, want)
	}
	if len(s.Tdel) != nrfft/2 {
		t.Errorf("len(Tdel) = %d, want %d", len(s.Tdel), nrfft/2)
	}
}

func TestPrewhiten(t *testing.T) {
	m := mat.NewDense(3, 3, []float64{
		1, 2, 4,
		3, 5, 8,
		4, 9, 16,
	})
	got := prewhiten(m)
	rows, cols := got.Dims()
	if rows != 2 || cols != 2 {
		t.Fatalf("prewhiten output %dx%d, want 2x2", rows, cols)
	}
	// out[i,j] = m[i+1,j+1] - m[i+1,j] - m[i,j+1] + m[i,j]
	want := [][]float64{
		{5 - 3 - 2 + 1, 8 - 5 - 4 + 2},
		{9 - 4 - 5 + 3, 16 - 9 - 8 + 5},
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if got.At(i, j) != want[i][j] {
				t.Errorf("prewhiten[%d,%d] = %v, want %v", i, j, got.At(i, j), want[i][j])
			}
		}
	}
}

func TestPostdarkenSingularBins(t *testing.T) {
	sec := testutil.ConstGrid(4, 8, 2)
	postdarken(sec, 8, 8)

	// Zero-delay row and zero-Doppler column are left untouched.
	for c := 0; c < 8; c++ {
		if got := sec.At(0, c); got != 2 {
			t.Errorf("row 0 col %d = %v, want 2", c, got)
		}
	}
	for rr := 0; rr < 4; rr++ {
		if got := sec.At(rr, 4); got != 2 {
			t.Errorf("row %d center col = %v, want 2", rr, got)
		}
	}
	// Everything else is divided by a response below 1, so it grows.
	if got := sec.At(1, 2); got <= 2 {
		t.Errorf("darkened bin = %v, want > 2", got)
	}
}
