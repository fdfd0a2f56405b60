// Package sspec transforms dynamic spectra into the two grids scintillation
// parameters are measured on: the 2-D autocovariance and the secondary
// spectrum.
//
// The autocovariance comes from the Wiener-Khinchin identity (transform,
// square magnitudes, transform back) on a zero-padded grid, so it is the
// linear, biased estimate with the zero-lag bin centered. The secondary
// spectrum is the squared-magnitude 2-D Fourier transform with the Doppler
// axis centered and only non-negative delays kept; pre-whitening with a 2x2
// differencing kernel and the matching post-darkening flatten the red noise
// that otherwise buries the scintillation arcs.
//
// Axis calibration is half the value of this package: Doppler bins are in
// mHz, delay bins in microseconds, and both follow directly from the
// record's sub-integration length and channel bandwidth. Wavelength-mode
// spectra additionally carry the delay axis in 1/m.
//
// Process chains the preprocessing stages and both engines in their fixed
// order for the common case:
//
//	a, err := sspec.Process(record, sspec.ProcessConfig{})
//	// a.Record is the processed copy, a.ACF and a.Spec the grids.
package sspec
