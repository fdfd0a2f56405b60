// Package render draws the analysis products as image files: dynamic
// spectra, autocovariances and secondary spectra as heat maps, normalized
// arc profiles as line plots. The output format follows the file
// extension (.png, .svg, .pdf). Inputs are treated as read-only; display
// tweaks like spike suppression happen on copies.
package render

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ramain/scintools/arc"
	"github.com/ramain/scintools/dynspec"
	"github.com/ramain/scintools/internal/nanstat"
	"github.com/ramain/scintools/sspec"
)

const (
	plotWidth  = 8 * vg.Inch
	plotHeight = 6 * vg.Inch
)

// grid adapts a dense matrix with axis vectors to the heat-map plotter.
// Matrix rows map to Y, columns to X; NaN cells are left unpainted.
type grid struct {
	z    *mat.Dense
	x, y []float64
}

func (g grid) Dims() (c, r int) {
	rows, cols := g.z.Dims()
	return cols, rows
}

func (g grid) Z(c, r int) float64 { return g.z.At(r, c) }
func (g grid) X(c int) float64    { return g.x[c] }
func (g grid) Y(r int) float64    { return g.y[r] }

// Dynspec renders the dynamic spectrum. The color window is median +- 5
// sigma over the finite cells, so zapped pixels and hot bins do not own
// the whole scale.
func Dynspec(r *dynspec.Record, path string) error {
	mins := make([]float64, len(r.Times))
	for i, t := range r.Times {
		mins[i] = t / 60
	}

	p := plot.New()
	p.Title.Text = r.Name
	p.X.Label.Text = "Time (mins)"
	p.Y.Label.Text = "Frequency (MHz)"

	hm := plotter.NewHeatMap(grid{z: r.Dyn, x: mins, y: r.Freqs}, palette.Heat(256, 1))
	hm.Min, hm.Max = robustWindow(r.Dyn)
	p.Add(hm)

	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return fmt.Errorf("render: dynamic spectrum: %w", err)
	}
	return nil
}

// ACF renders the autocovariance with the zero-lag bin lowered by the
// white-noise spike (the drop to its neighbour), which would otherwise
// own the entire color range. The input is not modified.
func ACF(a *sspec.ACF, path string) error {
	rows, cols := a.Data.Dims()
	nchan, nsub := rows/2, cols/2

	disp := mat.DenseCopyOf(a.Data)
	wn := disp.At(nchan, nsub) - disp.At(nchan, nsub+1)
	disp.Set(nchan, nsub, disp.At(nchan, nsub)-wn)

	timeLags := make([]float64, cols)
	for j := range timeLags {
		timeLags[j] = float64(j-nsub) * a.DT
	}
	freqLags := make([]float64, rows)
	for i := range freqLags {
		freqLags[i] = float64(i-nchan) * a.DF
	}

	p := plot.New()
	p.X.Label.Text = "Time lag (s)"
	p.Y.Label.Text = "Frequency lag (MHz)"
	p.Add(plotter.NewHeatMap(grid{z: disp, x: timeLags, y: freqLags}, palette.Heat(256, 1)))

	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return fmt.Errorf("render: autocovariance: %w", err)
	}
	return nil
}

// Spectrum renders the secondary spectrum over a six-decade window
// anchored two decades below the mean log power. A positive eta draws the
// matching arc parabola, clipped to the delay range.
func Spectrum(s *sspec.Spectrum, eta float64, path string) error {
	yaxis := s.Tdel
	ylabel := "Delay (us)"
	if s.Lambda {
		yaxis = s.Beta
		ylabel = "Beta (1/m)"
	}

	p := plot.New()
	p.X.Label.Text = "Doppler frequency (mHz)"
	p.Y.Label.Text = ylabel

	hm := plotter.NewHeatMap(grid{z: s.Power, x: s.Fdop, y: yaxis}, palette.Heat(256, 1))
	mean := nanstat.GridMean(s.Power)
	hm.Min = mean - 2
	hm.Max = mean + 4
	p.Add(hm)

	if eta > 0 {
		var xys plotter.XYs
		top := yaxis[len(yaxis)-1]
		for _, x := range s.Fdop {
			if y := eta * x * x; y <= top {
				xys = append(xys, plotter.XY{X: x, Y: y})
			}
		}
		if len(xys) > 1 {
			line, err := plotter.NewLine(xys)
			if err != nil {
				return fmt.Errorf("render: secondary spectrum: %w", err)
			}
			line.LineStyle.Color = color.NRGBA{R: 255, A: 128}
			line.LineStyle.Width = vg.Points(1.5)
			p.Add(line)
		}
	}

	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return fmt.Errorf("render: secondary spectrum: %w", err)
	}
	return nil
}

// Profile renders a curvature-normalized arc profile with markers on the
// theoretical arc positions +-1.
func Profile(pr *arc.Profile, path string) error {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range pr.Avg {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo > hi {
		return errors.New("render: profile has no finite samples")
	}

	p := plot.New()
	p.X.Label.Text = "Normalized Doppler"
	p.Y.Label.Text = "Normalized power"

	for _, seg := range segments(pr.Fdop, pr.Avg) {
		line, err := plotter.NewLine(seg)
		if err != nil {
			return fmt.Errorf("render: profile: %w", err)
		}
		p.Add(line)
	}
	for _, x := range []float64{-1, 1} {
		marker, err := plotter.NewLine(plotter.XYs{{X: x, Y: lo}, {X: x, Y: hi}})
		if err != nil {
			return fmt.Errorf("render: profile: %w", err)
		}
		marker.LineStyle.Color = color.NRGBA{R: 255, A: 128}
		p.Add(marker)
	}

	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return fmt.Errorf("render: profile: %w", err)
	}
	return nil
}

// robustWindow returns median +- 5 sigma over the finite cells of m, or a
// unit window when the spread vanishes.
func robustWindow(m *mat.Dense) (lo, hi float64) {
	rows, _ := m.Dims()
	finite := make([]float64, 0, rows)
	for i := 0; i < rows; i++ {
		for _, v := range m.RawRowView(i) {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				finite = append(finite, v)
			}
		}
	}
	if len(finite) == 0 {
		return 0, 1
	}
	med := nanstat.Median(finite)
	std := stat.PopStdDev(finite, nil)
	if std == 0 || math.IsNaN(std) {
		return med - 1, med + 1
	}
	return med - 5*std, med + 5*std
}

// segments splits a curve at NaN gaps so lines do not bridge them.
func segments(xs, ys []float64) []plotter.XYs {
	var out []plotter.XYs
	var cur plotter.XYs
	for i := range xs {
		if math.IsNaN(ys[i]) {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: xs[i], Y: ys[i]})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}
