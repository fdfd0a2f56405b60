// Package scintfit fits scintillation observables: the timescale and
// decorrelation bandwidth from 1-D autocovariance cuts, and parabola
// peaks for refining arc power curves.
//
// The autocovariance models are exponentials with a white-noise spike on
// the zero-lag bin. Timescale tau is defined at 1/e with a Kolmogorov
// exponent of 5/3 by default; bandwidth dnu is defined at half power.
// Fits run Levenberg-Marquardt with a numerical Jacobian, seeded from the
// cuts themselves, so no hand-tuned starting point is needed.
package scintfit
