// Package dynspec loads, cleans and combines pulsar dynamic spectra.
//
// A dynamic spectrum is a grid of pulsar intensity over observing frequency
// and time. The package builds a canonical [Record] from the psrflux text
// format or a FITS image, with the frequency axis always ascending, and
// offers the preprocessing stages every scintillation analysis runs before
// transforming the grid:
//
//   - TrimEdges: drop dead band-edge channels
//   - Refill: interpolate missing or zero samples
//   - CorrectBand: flatten the bandpass and slow time drifts
//   - Zap: blank radio-frequency interference
//   - ScaleLambda: resample onto an equal-wavelength grid
//
// # Loading
//
// Records come from psrflux files, FITS images, or explicit fields:
//
//	r, err := dynspec.Load("J0437-4715.dynspec")
//	r, err := dynspec.LoadFITS("J0437-4715.fits")
//	r, err := dynspec.New(dynspec.Params{Times: times, Freqs: freqs, Dyn: grid, DF: df, DT: dt})
//
// The psrflux reader needs six columns per sample (sub-integration index,
// channel index, time in minutes, frequency in MHz, flux, flux error) and a
// comment line carrying "MJD0: <epoch>". A band stored high-to-low is
// flipped on load so that channel 0 is always the lowest frequency.
//
// # Preprocessing
//
// The stages mutate the record in place and are normally run in a fixed
// order, since each one changes what the next sees:
//
//	if err := r.TrimEdges(); err != nil { ... }
//	r.Refill(true)
//	r.CorrectBand(true)
//
// Missing samples are NaN throughout; the Valid mask records which samples
// were measured rather than interpolated. Derived wavelength grids are
// dropped whenever the intensity grid changes.
//
// # Combining observations
//
// Two records of the same band separated by a gap concatenate into one
// longer raw record, with the gap filled by NaN sub-integrations:
//
//	both, err := dynspec.Combine(first, second)
//
// The result re-enters the pipeline from the start.
package dynspec
