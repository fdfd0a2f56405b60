// Package arc measures scintillation arc curvature in secondary spectra.
//
// Scattered pulsar radiation interferes with the line-of-sight image and
// draws parabolas tdel = eta*fdop^2 in the secondary spectrum. The
// curvature eta is the scientifically interesting number: it fixes the
// effective distance and velocity of the scattering screen. Fit finds it
// by brute force, stepping sqrt(eta) over a uniform grid and keeping the
// trial whose parabola collects the most mean power, with the two Doppler
// branches scored independently so asymmetric arcs stay visible.
//
// Normalize uses a known curvature to collapse the spectrum: every delay
// row is rescaled so the arc lands on +-1 of a common dimensionless
// Doppler axis, and the rows are averaged into a 1-D arc profile. Sharp
// peaks at +-1 confirm the curvature; their width and asymmetry feed the
// downstream phase-gradient diagnostics.
//
// Both entry points treat the spectrum as read-only and work on copies,
// so a record can be searched repeatedly under different windows.
package arc
