// Package nanstat provides reductions over data containing NaN markers.
//
// Dynamic spectra use NaN as the missing-sample sentinel, so every reduction
// that feeds a decision (argmax of arc power, bandpass means, zap thresholds)
// must skip NaN entries and stay well defined when nothing survives. All-NaN
// inputs reduce to NaN (or index -1), never to a panic.
package nanstat

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Mean returns the mean of the finite entries of s, or NaN if none exist.
func Mean(s []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range s {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// Max returns the maximum finite entry of s, or NaN if none exist.
func Max(s []float64) float64 {
	i := ArgMax(s)
	if i < 0 {
		return math.NaN()
	}
	return s[i]
}

// ArgMax returns the index of the maximum non-NaN entry of s, or -1 when
// every entry is NaN (or s is empty).
func ArgMax(s []float64) int {
	best := -1
	for i, v := range s {
		if math.IsNaN(v) {
			continue
		}
		if best < 0 || v > s[best] {
			best = i
		}
	}
	return best
}

// ArgMin returns the index of the minimum non-NaN entry of s, or -1 when
// every entry is NaN (or s is empty).
func ArgMin(s []float64) int {
	best := -1
	for i, v := range s {
		if math.IsNaN(v) {
			continue
		}
		if best < 0 || v < s[best] {
			best = i
		}
	}
	return best
}

// ArgNearest returns the index of the entry of s closest to x, ignoring NaN
// entries. Returns -1 when no finite entry exists.
func ArgNearest(s []float64, x float64) int {
	best := -1
	bestDist := math.Inf(1)
	for i, v := range s {
		if math.IsNaN(v) {
			continue
		}
		d := math.Abs(v - x)
		if d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// Median returns the median of the finite entries of s, or NaN if none
// exist. The input is not modified.
func Median(s []float64) float64 {
	finite := make([]float64, 0, len(s))
	for _, v := range s {
		if !math.IsNaN(v) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return math.NaN()
	}
	sort.Float64s(finite)
	mid := len(finite) / 2
	if len(finite)%2 == 1 {
		return finite[mid]
	}
	return (finite[mid-1] + finite[mid]) / 2
}

// MAD returns the median absolute deviation of s around center, skipping
// NaN entries.
func MAD(s []float64, center float64) float64 {
	dev := make([]float64, 0, len(s))
	for _, v := range s {
		if !math.IsNaN(v) {
			dev = append(dev, math.Abs(v-center))
		}
	}
	return Median(dev)
}

// GridMean returns the mean of the finite entries of m, or NaN if none exist.
func GridMean(m *mat.Dense) float64 {
	raw := m.RawMatrix()
	sum, n := 0.0, 0
	for i := 0; i < raw.Rows; i++ {
		row := raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols]
		for _, v := range row {
			if math.IsNaN(v) {
				continue
			}
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// GridMax returns the maximum finite entry of m, or NaN if none exist.
func GridMax(m *mat.Dense) float64 {
	raw := m.RawMatrix()
	best := math.NaN()
	for i := 0; i < raw.Rows; i++ {
		row := raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols]
		for _, v := range row {
			if math.IsNaN(v) {
				continue
			}
			if math.IsNaN(best) || v > best {
				best = v
			}
		}
	}
	return best
}

// RowMeans returns the NaN-aware mean of every row of m (one value per row).
// Rows with no finite entries yield NaN.
func RowMeans(m *mat.Dense) []float64 {
	r, _ := m.Dims()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		out[i] = Mean(m.RawRowView(i))
	}
	return out
}

// ColMeans returns the NaN-aware mean of every column of m (one value per
// column). Columns with no finite entries yield NaN.
func ColMeans(m *mat.Dense) []float64 {
	r, c := m.Dims()
	sums := make([]float64, c)
	counts := make([]int, c)
	for i := 0; i < r; i++ {
		row := m.RawRowView(i)
		for j, v := range row {
			if math.IsNaN(v) {
				continue
			}
			sums[j] += v
			counts[j]++
		}
	}
	for j := range sums {
		if counts[j] == 0 {
			sums[j] = math.NaN()
		} else {
			sums[j] /= float64(counts[j])
		}
	}
	return sums
}

// GridMedian returns the median of the finite entries of m, or NaN if none
// exist.
func GridMedian(m *mat.Dense) float64 {
	raw := m.RawMatrix()
	finite := make([]float64, 0, raw.Rows*raw.Cols)
	for i := 0; i < raw.Rows; i++ {
		row := raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols]
		for _, v := range row {
			if !math.IsNaN(v) {
				finite = append(finite, v)
			}
		}
	}
	if len(finite) == 0 {
		return math.NaN()
	}
	sort.Float64s(finite)
	mid := len(finite) / 2
	if len(finite)%2 == 1 {
		return finite[mid]
	}
	return (finite[mid-1] + finite[mid]) / 2
}
