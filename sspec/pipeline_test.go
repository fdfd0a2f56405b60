package sspec

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/ramain/scintools/dynspec"
	"github.com/ramain/scintools/internal/testutil"
)

func TestProcess(t *testing.T) {
	// Noise grid with dead band edges: the pipeline must trim them, refill,
	// flatten, and hand the engines a 6-channel record.
	dyn := testutil.NoiseGrid(17, 8, 8, 1, 5)
	for j := 0; j < 8; j++ {
		dyn.Set(0, j, 0)
		dyn.Set(7, j, 0)
	}
	times := make([]float64, 8)
	for j := range times {
		times[j] = float64(j+1) * 10
	}
	freqs := make([]float64, 8)
	for i := range freqs {
		freqs[i] = 1400 + float64(i)
	}
	r, err := dynspec.New(dynspec.Params{
		Name: "edges.dynspec", Times: times, Freqs: freqs, Dyn: dyn,
		MJD: 58000, DF: 1, DT: 10,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	before := r.Clone()

	a, err := Process(r, ProcessConfig{})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if a.Record.Nchan() != 6 {
		t.Fatalf("processed Nchan = %d, want 6", a.Record.Nchan())
	}
	if rows, cols := a.ACF.Data.Dims(); rows != 12 || cols != 16 {
		t.Errorf("ACF is %dx%d, want 12x16", rows, cols)
	}
	// nf = 6 pads to 16 rows (keep 8), nt = 8 pads to 32 columns.
	if rows, cols := a.Spec.Power.Dims(); rows != 8 || cols != 32 {
		t.Errorf("Power is %dx%d, want 8x32", rows, cols)
	}

	// The input record is untouched; all work happens on the copy.
	if r.Nchan() != 8 {
		t.Errorf("input Nchan changed to %d", r.Nchan())
	}
	testutil.RequireGridNearlyEqual(t, r.Dyn, before.Dyn, 0)

	// The time pass runs last, so sub-integration means sit at exactly 1.
	for j := 0; j < a.Record.Nsub(); j++ {
		sum := 0.0
		for i := 0; i < a.Record.Nchan(); i++ {
			sum += a.Record.Dyn.At(i, j)
		}
		if mean := sum / float64(a.Record.Nchan()); math.Abs(mean-1) > 1e-9 {
			t.Errorf("processed column %d mean = %v, want 1", j, mean)
		}
	}
}

func TestProcessLambda(t *testing.T) {
	r := testRecord(t, 8, 6, 10)

	a, err := Process(r, ProcessConfig{Lambda: true})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !a.Spec.Lambda {
		t.Error("Spec.Lambda not set")
	}
	if a.Spec.Beta == nil {
		t.Error("Beta axis missing in lambda mode")
	}
	if a.Record.LamDyn == nil {
		t.Error("processed record has no wavelength grid")
	}
}

func TestProcessAllZero(t *testing.T) {
	times := []float64{10, 20}
	freqs := []float64{1400, 1401}
	r, err := dynspec.New(dynspec.Params{
		Name: "dead.dynspec", Times: times, Freqs: freqs,
		Dyn: mat.NewDense(2, 2, nil), MJD: 58000, DF: 1, DT: 10,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := Process(r, ProcessConfig{}); err == nil {
		t.Error("Process accepted an all-zero record")
	}
}
