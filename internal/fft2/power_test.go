package fft2

import (
	"math"
	"math/cmplx"
	"testing"
)

func TestPower(t *testing.T) {
	g := NewGrid(4, 8)
	for i := range g.Data {
		g.Data[i] = complex(math.Sin(float64(2*i+1)), math.Cos(float64(i)))
	}
	dst := make([]float64, len(g.Data))
	g.Power(dst)
	for i, z := range g.Data {
		want := cmplx.Abs(z) * cmplx.Abs(z)
		if math.Abs(dst[i]-want) > 1e-12 {
			t.Fatalf("Power bin %d = %v, want %v", i, dst[i], want)
		}
	}
}

func TestPowerReusesScratch(t *testing.T) {
	g := NewGrid(2, 2)
	g.Data[3] = 3 + 4i
	dst := make([]float64, 4)
	for range 3 {
		g.Power(dst)
	}
	if dst[3] != 25 {
		t.Fatalf("Power = %v, want 25", dst[3])
	}
	if dst[0] != 0 {
		t.Fatalf("zero bin = %v, want 0", dst[0])
	}
}
