package sspec

import (
	"github.com/ramain/scintools/dynspec"
)

// ProcessConfig configures the standard pipeline run.
type ProcessConfig struct {
	Lambda bool // rescale to wavelength and build the lambda secondary spectrum
	Raw    bool // skip pre-whitening in the secondary spectrum
}

// Analysis bundles the products of one pipeline run. Record is the
// processed working copy the grids were computed from.
type Analysis struct {
	Record *dynspec.Record
	ACF    *ACF
	Spec   *Spectrum
}

// Process runs the standard pipeline on a copy of r: trim the band edges,
// refill missing samples, flatten the bandpass and slow time structure,
// then compute the autocovariance and the secondary spectrum. The stages
// read fields their predecessors populate, so the order is fixed. The input
// record is left untouched.
func Process(r *dynspec.Record, cfg ProcessConfig) (*Analysis, error) {
	w := r.Clone()
	if err := w.TrimEdges(); err != nil {
		return nil, err
	}
	w.Refill(true)
	w.CorrectBand(true)
	if cfg.Lambda {
		if err := w.ScaleLambda(); err != nil {
			return nil, err
		}
	}

	acf, err := ComputeACF(w)
	if err != nil {
		return nil, err
	}
	spec, err := Compute(w, Config{Lambda: cfg.Lambda, Raw: cfg.Raw})
	if err != nil {
		return nil, err
	}
	return &Analysis{Record: w, ACF: acf, Spec: spec}, nil
}
