// Package fft2 provides the 2-D FFT plumbing shared by the autocovariance
// and secondary-spectrum engines: row-major complex grids, separable
// row/column transforms on power-of-two plans, and the transform-size
// helpers.
//
// Forward applies an unnormalized DFT along both axes; Inverse applies the
// normalized inverse, so a Forward/Inverse round trip reproduces the input.
package fft2

import (
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// NextPow2 returns the smallest power of two >= n. Values below 1 map to 1.
func NextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// NextPow2Above returns the smallest power of two strictly greater than n.
func NextPow2Above(n int) int {
	p := 1
	for p <= n {
		p <<= 1
	}
	return p
}

// Grid is a row-major complex matrix used as FFT workspace.
type Grid struct {
	Rows, Cols int
	Data       []complex128
}

// NewGrid allocates a zeroed Rows x Cols grid.
func NewGrid(rows, cols int) *Grid {
	return &Grid{
		Rows: rows,
		Cols: cols,
		Data: make([]complex128, rows*cols),
	}
}

// Row returns the backing slice of row i.
func (g *Grid) Row(i int) []complex128 {
	return g.Data[i*g.Cols : (i+1)*g.Cols]
}

// At returns the element at row i, column j.
func (g *Grid) At(i, j int) complex128 {
	return g.Data[i*g.Cols+j]
}

// Forward replaces the grid with its 2-D forward DFT (unnormalized,
// matching a direct double-sum DFT). Both dimensions must be supported
// plan sizes (powers of two).
func (g *Grid) Forward() error {
	return g.transform(false)
}

// Inverse replaces the grid with its 2-D inverse DFT. The per-axis inverse
// transforms are normalized, so the combined scaling is 1/(Rows*Cols).
func (g *Grid) Inverse() error {
	return g.transform(true)
}

func (g *Grid) transform(inverse bool) error {
	rowPlan, err := algofft.NewPlan64(g.Cols)
	if err != nil {
		return fmt.Errorf("fft2: failed to create row FFT plan: %w", err)
	}
	colPlan, err := algofft.NewPlan64(g.Rows)
	if err != nil {
		return fmt.Errorf("fft2: failed to create column FFT plan: %w", err)
	}

	scratch := make([]complex128, g.Cols)
	for i := 0; i < g.Rows; i++ {
		row := g.Row(i)
		if err := apply(rowPlan, scratch, row, inverse); err != nil {
			return err
		}
		copy(row, scratch)
	}

	colIn := make([]complex128, g.Rows)
	colOut := make([]complex128, g.Rows)
	for j := 0; j < g.Cols; j++ {
		for i := 0; i < g.Rows; i++ {
			colIn[i] = g.Data[i*g.Cols+j]
		}
		if err := apply(colPlan, colOut, colIn, inverse); err != nil {
			return err
		}
		for i := 0; i < g.Rows; i++ {
			g.Data[i*g.Cols+j] = colOut[i]
		}
	}
	return nil
}

func apply(plan *algofft.Plan[complex128], dst, src []complex128, inverse bool) error {
	if inverse {
		if err := plan.Inverse(dst, src); err != nil {
			return fmt.Errorf("fft2: inverse FFT failed: %w", err)
		}
		return nil
	}
	if err := plan.Forward(dst, src); err != nil {
		return fmt.Errorf("fft2: forward FFT failed: %w", err)
	}
	return nil
}
