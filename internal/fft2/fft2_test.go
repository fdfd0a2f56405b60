package fft2

import (
	"math"
	"math/cmplx"
	"testing"
)

func TestNextPow2(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 1}, {1, 1}, {2, 2}, {3, 4}, {8, 8}, {9, 16}, {1000, 1024},
	}
	for _, tt := range tests {
		if got := NextPow2(tt.in); got != tt.want {
			t.Errorf("NextPow2(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestNextPow2Above(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 1}, {1, 2}, {2, 4}, {7, 8}, {8, 16}, {16, 32},
	}
	for _, tt := range tests {
		if got := NextPow2Above(tt.in); got != tt.want {
			t.Errorf("NextPow2Above(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestForwardKnownDFT(t *testing.T) {
	g := NewGrid(2, 2)
	g.Data[0] = 1
	g.Data[1] = 2
	g.Data[2] = 3
	g.Data[3] = 4
	if err := g.Forward(); err != nil {
		t.Fatalf("Forward: %v", err)
	}
	want := []complex128{10, -2, -4, 0}
	for i, w := range want {
		if cmplx.Abs(g.Data[i]-w) > 1e-12 {
			t.Errorf("bin %d = %v, want %v", i, g.Data[i], w)
		}
	}
}

func TestForwardImpulse(t *testing.T) {
	g := NewGrid(4, 4)
	g.Data[0] = 1
	if err := g.Forward(); err != nil {
		t.Fatalf("Forward: %v", err)
	}
	for i, v := range g.Data {
		if cmplx.Abs(v-1) > 1e-12 {
			t.Fatalf("bin %d = %v, want 1 (flat spectrum)", i, v)
		}
	}
}

func TestForwardShiftedImpulse(t *testing.T) {
	// Impulse at (1,1) in a 2x2 grid transforms to (-1)^(u+v).
	g := NewGrid(2, 2)
	g.Data[3] = 1
	if err := g.Forward(); err != nil {
		t.Fatalf("Forward: %v", err)
	}
	want := []complex128{1, -1, -1, 1}
	for i, w := range want {
		if cmplx.Abs(g.Data[i]-w) > 1e-12 {
			t.Errorf("bin %d = %v, want %v", i, g.Data[i], w)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	g := NewGrid(8, 4)
	orig := make([]complex128, len(g.Data))
	for i := range g.Data {
		v := complex(math.Sin(float64(3*i+1)), math.Cos(float64(i)))
		g.Data[i] = v
		orig[i] = v
	}
	if err := g.Forward(); err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if err := g.Inverse(); err != nil {
		t.Fatalf("Inverse: %v", err)
	}
	for i := range orig {
		if cmplx.Abs(g.Data[i]-orig[i]) > 1e-10 {
			t.Fatalf("round trip bin %d = %v, want %v", i, g.Data[i], orig[i])
		}
	}
}

func TestRowAccess(t *testing.T) {
	g := NewGrid(3, 2)
	g.Row(1)[0] = 5
	if g.At(1, 0) != 5 {
		t.Fatalf("At(1,0) = %v, want 5", g.At(1, 0))
	}
	if g.At(0, 0) != 0 || g.At(2, 1) != 0 {
		t.Fatal("neighboring rows touched by Row write")
	}
}
