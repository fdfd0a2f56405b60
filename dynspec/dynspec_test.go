package dynspec

import (
	"errors"
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// newTestRecord builds a record with flux = channel + sub on a uniform grid.
func newTestRecord(t *testing.T, nchan, nsub int) *Record {
	t.Helper()
	times := make([]float64, nsub)
	for j := range times {
		times[j] = float64(j+1) * 10
	}
	freqs := make([]float64, nchan)
	for i := range freqs {
		freqs[i] = 1400 + float64(i)
	}
	dyn := mat.NewDense(nchan, nsub, nil)
	for i := 0; i < nchan; i++ {
		for j := 0; j < nsub; j++ {
			dyn.Set(i, j, float64(i+j)+1)
		}
	}
	r, err := New(Params{
		Name:  "test.dynspec",
		Times: times,
		Freqs: freqs,
		Dyn:   dyn,
		MJD:   58000,
		DF:    1,
		DT:    10,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return r
}

func TestNewDerivesScalars(t *testing.T) {
	r := newTestRecord(t, 8, 4)
	if r.Freq != 1403.5 {
		t.Errorf("Freq = %v, want 1403.5", r.Freq)
	}
	if r.BW != 8 {
		t.Errorf("BW = %v, want 8", r.BW)
	}
	if r.Tobs != 40 {
		t.Errorf("Tobs = %v, want 40", r.Tobs)
	}
	for i, ok := range r.Valid {
		if !ok {
			t.Fatalf("Valid[%d] = false for finite grid", i)
		}
	}
}

func TestNewValidation(t *testing.T) {
	times := []float64{10, 20}
	freqs := []float64{1400, 1401}
	grid := mat.NewDense(2, 2, []float64{1, 2, 3, 4})

	tests := []struct {
		name    string
		p       Params
		wantErr error
	}{
		{
			name:    "no times",
			p:       Params{Freqs: freqs, Dyn: grid, DF: 1, DT: 10},
			wantErr: ErrEmpty,
		},
		{
			name:    "no grid",
			p:       Params{Times: times, Freqs: freqs, DF: 1, DT: 10},
			wantErr: ErrEmpty,
		},
		{
			name:    "shape mismatch",
			p:       Params{Times: times, Freqs: []float64{1400, 1401, 1402}, Dyn: grid, DF: 1, DT: 10},
			wantErr: ErrShape,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.p); !errors.Is(err, tt.wantErr) {
				t.Errorf("New error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := New(Params{Times: times, Freqs: freqs, Dyn: grid, DF: 0, DT: 10}); err == nil {
		t.Error("New accepted zero channel bandwidth")
	}
	if _, err := New(Params{Times: times, Freqs: freqs, Dyn: grid, DF: 1, DT: 0}); err == nil {
		t.Error("New accepted zero sub-integration length")
	}
	if _, err := New(Params{Times: times, Freqs: []float64{1401, 1400}, Dyn: grid, DF: 1, DT: 10}); err == nil {
		t.Error("New accepted descending frequencies")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	r := newTestRecord(t, 4, 4)
	c := r.Clone()

	c.Dyn.Set(0, 0, -99)
	c.Freqs[0] = -99
	c.Valid[0] = false

	if r.Dyn.At(0, 0) == -99 {
		t.Error("mutating the clone's grid changed the original")
	}
	if r.Freqs[0] == -99 {
		t.Error("mutating the clone's axis changed the original")
	}
	if !r.Valid[0] {
		t.Error("mutating the clone's mask changed the original")
	}
}

func TestInfo(t *testing.T) {
	r := newTestRecord(t, 8, 4)
	info := r.Info()
	for _, want := range []string{"test.dynspec", "1403.5", "8 x 4", "58000"} {
		if !strings.Contains(info, want) {
			t.Errorf("Info() missing %q:\n%s", want, info)
		}
	}
}

func TestFiniteMask(t *testing.T) {
	grid := mat.NewDense(2, 2, []float64{1, math.NaN(), math.Inf(1), 4})
	mask := finiteMask(grid)
	want := []bool{true, false, false, true}
	for i := range want {
		if mask[i] != want[i] {
			t.Errorf("mask[%d] = %v, want %v", i, mask[i], want[i])
		}
	}
}
