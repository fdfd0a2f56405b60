package dynspec

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/ramain/scintools/internal/nanstat"
)

// TrimEdges removes leading and trailing channel rows whose summed absolute
// intensity is exactly zero, then recomputes the surviving band geometry
// (nchan, BW, Freq). Rows containing NaN are kept. Returns ErrAllZero when
// every row would be removed.
func (r *Record) TrimEdges() error {
	nchan, nsub := r.Dyn.Dims()

	first := 0
	for first < nchan && rowAbsSum(r.Dyn, first) == 0 {
		first++
	}
	if first == nchan {
		return fmt.Errorf("%w: %s", ErrAllZero, r.Name)
	}
	last := nchan - 1
	for last > first && rowAbsSum(r.Dyn, last) == 0 {
		last--
	}

	if first > 0 || last < nchan-1 {
		r.Dyn = r.Dyn.Slice(first, last+1, 0, nsub).(*mat.Dense)
		if r.FluxErr != nil {
			r.FluxErr = r.FluxErr.Slice(first, last+1, 0, nsub).(*mat.Dense)
		}
		r.Freqs = r.Freqs[first : last+1]
		r.Valid = r.Valid[first*nsub : (last+1)*nsub]
	}
	r.BW = round(r.Freqs[len(r.Freqs)-1]-r.Freqs[0]+r.DF, 2)
	r.Freq = round(stat.Mean(r.Freqs, nil), 2)
	r.invalidateDerived()
	return nil
}

// Refill reconstructs missing samples by linear interpolation over the
// integer (channel, sub-integration) grid. When zeros is true, exact-zero
// samples are first reinterpreted as missing. Interpolation sources are the
// currently valid samples only; each missing cell takes the average of its
// along-time and along-frequency bracketing interpolants. Cells with no
// bracketing sources in either direction stay NaN. Valid samples are never
// modified, and filled cells stay marked invalid so that later passes do not
// treat them as measurements.
func (r *Record) Refill(zeros bool) {
	nchan, nsub := r.Dyn.Dims()

	if zeros {
		for i := 0; i < nchan; i++ {
			row := r.Dyn.RawRowView(i)
			for j, v := range row {
				if v == 0 {
					row[j] = math.NaN()
				}
			}
		}
	}
	for i := 0; i < nchan; i++ {
		row := r.Dyn.RawRowView(i)
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				r.Valid[i*nsub+j] = false
			}
		}
	}

	est := make([]float64, nchan*nsub)
	cnt := make([]int, nchan*nsub)

	// Along time: bracket each gap within a channel row.
	for i := 0; i < nchan; i++ {
		row := r.Dyn.RawRowView(i)
		prev := -1
		for j := 0; j < nsub; j++ {
			if !r.Valid[i*nsub+j] {
				continue
			}
			if prev >= 0 && j-prev > 1 {
				for k := prev + 1; k < j; k++ {
					t := float64(k-prev) / float64(j-prev)
					est[i*nsub+k] += row[prev] + t*(row[j]-row[prev])
					cnt[i*nsub+k]++
				}
			}
			prev = j
		}
	}

	// Along frequency: bracket each gap within a sub-integration column.
	for j := 0; j < nsub; j++ {
		prev := -1
		for i := 0; i < nchan; i++ {
			if !r.Valid[i*nsub+j] {
				continue
			}
			if prev >= 0 && i-prev > 1 {
				lo := r.Dyn.At(prev, j)
				hi := r.Dyn.At(i, j)
				for k := prev + 1; k < i; k++ {
					t := float64(k-prev) / float64(i-prev)
					est[k*nsub+j] += lo + t*(hi-lo)
					cnt[k*nsub+j]++
				}
			}
			prev = i
		}
	}

	for i := 0; i < nchan; i++ {
		row := r.Dyn.RawRowView(i)
		for j := range row {
			idx := i*nsub + j
			if math.IsNaN(row[j]) && cnt[idx] > 0 {
				row[j] = est[idx] / float64(cnt[idx])
			}
		}
	}
	r.invalidateDerived()
}

// CorrectBand flattens the frequency-dependent gain by dividing every
// channel row by its mean over time. When time is true, the once-flattened
// grid is additionally divided by its per-sub-integration mean, removing
// slow intensity drifts. The per-channel bandpass vector of this call is
// stored on the record.
func (r *Record) CorrectBand(time bool) {
	nchan, nsub := r.Dyn.Dims()

	bandpass := nanstat.RowMeans(r.Dyn)
	for i := 0; i < nchan; i++ {
		row := r.Dyn.RawRowView(i)
		for j := range row {
			row[j] /= bandpass[i]
		}
	}
	if time {
		drift := nanstat.ColMeans(r.Dyn)
		for i := 0; i < nchan; i++ {
			row := r.Dyn.RawRowView(i)
			for j := 0; j < nsub; j++ {
				row[j] /= drift[j]
			}
		}
	}
	r.Bandpass = bandpass
	r.invalidateDerived()
}

// ZapParams configures Zap. Zero values select the defaults: the global
// median method with a 5 sigma threshold, and a 7 sample kernel for the
// median filter method.
type ZapParams struct {
	Method string  // "median" (default) or "medfilt"
	Sigma  float64 // outlier threshold in scaled median absolute deviations
	M      int     // medfilt kernel size, odd
}

// Zap blanks radio-frequency interference. The median method flags samples
// whose absolute deviation from the grid median exceeds Sigma times the
// median absolute deviation; the medfilt method replaces the grid with its
// 2-D median filter. Zapped samples become NaN and invalid, and the grid is
// refilled afterwards.
func (r *Record) Zap(p ZapParams) error {
	method := p.Method
	if method == "" {
		method = "median"
	}
	sigma := p.Sigma
	if sigma == 0 {
		sigma = 5
	}
	m := p.M
	if m == 0 {
		m = 7
	}

	nchan, nsub := r.Dyn.Dims()
	switch method {
	case "median":
		med := nanstat.GridMedian(r.Dyn)
		dev := make([]float64, 0, nchan*nsub)
		for i := 0; i < nchan; i++ {
			row := r.Dyn.RawRowView(i)
			for _, v := range row {
				dev = append(dev, math.Abs(v-med))
			}
		}
		mdev := nanstat.Median(dev)
		if mdev != 0 && !math.IsNaN(mdev) {
			zapped := 0
			for i := 0; i < nchan; i++ {
				row := r.Dyn.RawRowView(i)
				for j := range row {
					if dev[i*nsub+j]/mdev > sigma {
						row[j] = math.NaN()
						r.Valid[i*nsub+j] = false
						zapped++
					}
				}
			}
			r.log().Debug("zapped outliers", "name", r.Name, "method", method, "count", zapped)
		}
	case "medfilt":
		if m%2 == 0 {
			return fmt.Errorf("dynspec: medfilt kernel must be odd, got %d", m)
		}
		r.Dyn = medianFilter(r.Dyn, m)
	default:
		return fmt.Errorf("dynspec: unknown zap method %q", method)
	}

	r.Refill(true)
	return nil
}

// CutDyn splits the spectrum into (fcuts+1) x (tcuts+1) equal blocks,
// discarding the remainder rows and columns, and returns them as
// independent records indexed [frequency segment][time segment]. Each block
// keeps its own rebased time axis and epoch so it can re-enter the pipeline.
func (r *Record) CutDyn(tcuts, fcuts int) ([][]*Record, error) {
	if tcuts < 0 || fcuts < 0 {
		return nil, fmt.Errorf("dynspec: cut counts must be non-negative, got t=%d f=%d", tcuts, fcuts)
	}
	nchan, nsub := r.Dyn.Dims()
	fnum := nchan / (fcuts + 1)
	tnum := nsub / (tcuts + 1)
	if fnum == 0 || tnum == 0 {
		return nil, fmt.Errorf("dynspec: cut grid %dx%d exceeds spectrum %dx%d", fcuts+1, tcuts+1, nchan, nsub)
	}

	blocks := make([][]*Record, fcuts+1)
	for bi := range blocks {
		blocks[bi] = make([]*Record, tcuts+1)
		r0 := bi * fnum
		for bj := range blocks[bi] {
			c0 := bj * tnum

			times := make([]float64, tnum)
			for k := range times {
				times[k] = r.Times[c0+k] - r.Times[c0] + r.DT
			}
			freqs := append([]float64(nil), r.Freqs[r0:r0+fnum]...)

			var fluxErr *mat.Dense
			if r.FluxErr != nil {
				fluxErr = mat.DenseCopyOf(r.FluxErr.Slice(r0, r0+fnum, c0, c0+tnum))
			}
			block, err := New(Params{
				Name:    fmt.Sprintf("%s[f%d,t%d]", r.Name, bi, bj),
				Header:  append([]string(nil), r.Header...),
				Times:   times,
				Freqs:   freqs,
				Dyn:     mat.DenseCopyOf(r.Dyn.Slice(r0, r0+fnum, c0, c0+tnum)),
				FluxErr: fluxErr,
				MJD:     r.MJD + (r.Times[c0]-r.Times[0])/86400,
				DF:      r.DF,
				DT:      r.DT,
			})
			if err != nil {
				return nil, err
			}
			block.logger = r.logger
			blocks[bi][bj] = block
		}
	}
	return blocks, nil
}

// rowAbsSum sums the absolute values of row i. A NaN anywhere in the row
// makes the sum NaN, which compares unequal to zero, so NaN rows survive
// trimming.
func rowAbsSum(m *mat.Dense, i int) float64 {
	sum := 0.0
	for _, v := range m.RawRowView(i) {
		sum += math.Abs(v)
	}
	return sum
}

// medianFilter applies an m x m median filter with zero padding beyond the
// grid. Missing samples enter each window as zeros, like the pad.
func medianFilter(src *mat.Dense, m int) *mat.Dense {
	rows, cols := src.Dims()
	dst := mat.NewDense(rows, cols, nil)
	half := m / 2
	window := make([]float64, 0, m*m)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			window = window[:0]
			for di := -half; di <= half; di++ {
				for dj := -half; dj <= half; dj++ {
					ii, jj := i+di, j+dj
					v := 0.0
					if ii >= 0 && ii < rows && jj >= 0 && jj < cols {
						v = src.At(ii, jj)
						if math.IsNaN(v) {
							v = 0
						}
					}
					window = append(window, v)
				}
			}
			sort.Float64s(window)
			dst.Set(i, j, window[len(window)/2])
		}
	}
	return dst
}

func (r *Record) invalidateDerived() {
	r.LamDyn = nil
	r.Lam = nil
	r.DLam = 0
}
