package dynspec

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Combine concatenates two observations of the same band along the time
// axis, filling the real gap between them with NaN sub-integrations sized by
// the first record's sub-integration length. The records must already be
// loaded; the result is a raw record that re-enters the pipeline from the
// start. Differing centre frequency, bandwidth or channel bandwidth logs a
// warning and proceeds. Records whose epochs overlap fail with ErrOverlap,
// and differing channel counts fail with ErrShape.
func Combine(a, b *Record) (*Record, error) {
	if a.Nchan() != b.Nchan() {
		return nil, fmt.Errorf("%w: %d vs %d channels", ErrShape, a.Nchan(), b.Nchan())
	}
	if a.Freq != b.Freq || a.BW != b.BW || a.DF != b.DF {
		a.log().Warn("combining records with mismatched band parameters",
			"name_a", a.Name, "name_b", b.Name,
			"freq_a", a.Freq, "freq_b", b.Freq,
			"bw_a", a.BW, "bw_b", b.BW,
			"df_a", a.DF, "df_b", b.DF)
	}

	timegap := round((b.MJD-a.MJD)*86400-a.Tobs, 2)
	if timegap < 0 {
		return nil, fmt.Errorf("%w: gap between %s and %s is %.2f s", ErrOverlap, a.Name, b.Name, timegap)
	}

	// Gap sub-integrations on the first record's time grid, offset half a
	// step from its last sample.
	var extra []float64
	for k := 0; ; k++ {
		t := a.DT/2 + float64(k)*a.DT
		if t >= timegap {
			break
		}
		extra = append(extra, t)
	}
	nextra := len(extra)

	nchan := a.Nchan()
	nsubA, nsubB := a.Nsub(), b.Nsub()
	nsub := nsubA + nextra + nsubB

	times := make([]float64, 0, nsub)
	times = append(times, a.Times...)
	last := a.Times[nsubA-1]
	for _, t := range extra {
		times = append(times, last+t)
	}
	offset := last
	switch {
	case nextra > 0:
		offset = times[len(times)-1]
	case timegap > 0:
		offset = last + timegap
	}
	for _, t := range b.Times {
		times = append(times, offset+t)
	}

	dyn := mat.NewDense(nchan, nsub, nil)
	for i := 0; i < nchan; i++ {
		row := dyn.RawRowView(i)
		copy(row[:nsubA], a.Dyn.RawRowView(i))
		for j := nsubA; j < nsubA+nextra; j++ {
			row[j] = math.NaN()
		}
		copy(row[nsubA+nextra:], b.Dyn.RawRowView(i))
	}
	var fluxErr *mat.Dense
	if a.FluxErr != nil && b.FluxErr != nil {
		fluxErr = mat.NewDense(nchan, nsub, nil)
		for i := 0; i < nchan; i++ {
			row := fluxErr.RawRowView(i)
			copy(row[:nsubA], a.FluxErr.RawRowView(i))
			for j := nsubA; j < nsubA+nextra; j++ {
				row[j] = math.NaN()
			}
			copy(row[nsubA+nextra:], b.FluxErr.RawRowView(i))
		}
	}

	header := make([]string, 0, len(a.Header)+len(b.Header))
	header = append(header, a.Header...)
	header = append(header, b.Header...)

	out, err := New(Params{
		Name:    stem(a.Name) + "+" + stem(b.Name) + ".dynspec",
		Header:  header,
		Times:   times,
		Freqs:   append([]float64(nil), a.Freqs...),
		Dyn:     dyn,
		FluxErr: fluxErr,
		MJD:     math.Min(a.MJD, b.MJD),
		Freq:    a.Freq,
		BW:      a.BW,
		DF:      a.DF,
		DT:      a.DT,
		Tobs:    a.Tobs + timegap + b.Tobs,
	})
	if err != nil {
		return nil, err
	}
	out.logger = a.logger
	return out, nil
}

// stem strips everything from the first dot of a file name.
func stem(name string) string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return name
}
