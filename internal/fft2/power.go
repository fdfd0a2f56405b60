package fft2

import (
	"sync"

	"github.com/cwbudde/algo-vecmath"
)

// scratchBuf holds pooled scratch memory for complex-to-real unpacking.
type scratchBuf struct {
	data []float64
}

var scratchPool = sync.Pool{
	New: func() any { return &scratchBuf{} },
}

func getScratch(n int) (re, im []float64, buf *scratchBuf) {
	buf = scratchPool.Get().(*scratchBuf)
	need := 2 * n
	if cap(buf.data) < need {
		buf.data = make([]float64, need)
	} else {
		buf.data = buf.data[:need]
	}
	return buf.data[:n], buf.data[n:need], buf
}

func putScratch(buf *scratchBuf) {
	scratchPool.Put(buf)
}

// Power writes |z|^2 for every grid element into dst, row-major. dst must
// hold exactly Rows*Cols values.
//
// The squaring runs through SIMD kernels when available; scratch buffers
// are pooled, so in steady state this allocates nothing.
func (g *Grid) Power(dst []float64) {
	re, im, buf := getScratch(len(g.Data))
	for i, c := range g.Data {
		re[i] = real(c)
		im[i] = imag(c)
	}
	vecmath.Power(dst, re, im)
	putScratch(buf)
}
