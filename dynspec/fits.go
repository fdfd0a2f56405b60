package dynspec

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/astrogo/fitsio"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// FITS header keys for a dynamic-spectrum image HDU. Axis 1 is time in
// sub-integrations, axis 2 is frequency in channels.
const (
	fitsKeyMJD0   = "MJD0"   // observation epoch, days
	fitsKeyTBin   = "TBIN"   // sub-integration length, seconds
	fitsKeyFreq0  = "CRVAL2" // first channel centre frequency, MHz
	fitsKeyDeltaF = "CDELT2" // channel step, MHz; negative for descending bands
)

// LoadFITS reads a dynamic spectrum stored as a 2-D primary image HDU.
// BITPIX -32 and -64 floating-point images and 8, 16 and 32 bit integer
// images are accepted. A negative CDELT2 marks a descending frequency axis
// and is flipped the same way the psrflux reader does.
func LoadFITS(path string, opts ...Option) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dynspec: failed to open %s: %w", path, err)
	}
	defer f.Close()

	fits, err := fitsio.Open(f)
	if err != nil {
		return nil, fmt.Errorf("dynspec: failed to parse FITS %s: %w", path, err)
	}
	defer fits.Close()

	img, ok := fits.HDU(0).(fitsio.Image)
	if !ok {
		return nil, fmt.Errorf("dynspec: primary HDU of %s is not an image", path)
	}
	hdr := img.Header()
	axes := hdr.Axes()
	if len(axes) != 2 {
		return nil, fmt.Errorf("%w: FITS image has %d axes, want 2", ErrShape, len(axes))
	}
	nsub, nchan := axes[0], axes[1]
	if nsub == 0 || nchan == 0 {
		return nil, fmt.Errorf("%w: FITS image is %dx%d", ErrEmpty, nchan, nsub)
	}

	mjd, err := cardFloat(hdr, fitsKeyMJD0)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoEpoch, path)
	}
	dt, err := cardFloat(hdr, fitsKeyTBin)
	if err != nil {
		return nil, fmt.Errorf("dynspec: %s: %w", path, err)
	}
	f0, err := cardFloat(hdr, fitsKeyFreq0)
	if err != nil {
		return nil, fmt.Errorf("dynspec: %s: %w", path, err)
	}
	df, err := cardFloat(hdr, fitsKeyDeltaF)
	if err != nil {
		return nil, fmt.Errorf("dynspec: %s: %w", path, err)
	}

	data, err := imageFloat64(img, hdr.Bitpix(), nchan*nsub)
	if err != nil {
		return nil, fmt.Errorf("dynspec: %s: %w", path, err)
	}
	dyn := mat.NewDense(nchan, nsub, data)

	freqs := make([]float64, nchan)
	for i := range freqs {
		freqs[i] = f0 + float64(i)*df
	}
	if df < 0 {
		df = -df
		flipRows(dyn)
		for i, j := 0, nchan-1; i < j; i, j = i+1, j-1 {
			freqs[i], freqs[j] = freqs[j], freqs[i]
		}
	}

	times := make([]float64, nsub)
	for k := range times {
		times[k] = float64(k+1) * dt
	}

	r := &Record{
		Name:  filepath.Base(path),
		Times: times,
		Freqs: freqs,
		Dyn:   dyn,
		MJD:   mjd,
		Freq:  round(stat.Mean(freqs, nil), 2),
		BW:    round(df*float64(nchan), 2),
		DF:    df,
		DT:    dt,
		Tobs:  dt * float64(nsub),
	}
	r.Valid = finiteMask(r.Dyn)
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// cardFloat reads a numeric header card.
func cardFloat(hdr *fitsio.Header, key string) (float64, error) {
	card := hdr.Get(key)
	if card == nil {
		return 0, fmt.Errorf("missing header key %s", key)
	}
	switch v := card.Value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("header key %s holds %T, want a number", key, card.Value)
	}
}

// imageFloat64 decodes the image payload into float64 samples.
func imageFloat64(img fitsio.Image, bitpix, n int) ([]float64, error) {
	var out []float64
	switch bitpix {
	case -64:
		var data []float64
		if err := img.Read(&data); err != nil {
			return nil, fmt.Errorf("failed to read image data: %w", err)
		}
		out = data
	case -32:
		var data []float32
		if err := img.Read(&data); err != nil {
			return nil, fmt.Errorf("failed to read image data: %w", err)
		}
		out = make([]float64, len(data))
		for i, v := range data {
			out[i] = float64(v)
		}
	case 32:
		var data []int32
		if err := img.Read(&data); err != nil {
			return nil, fmt.Errorf("failed to read image data: %w", err)
		}
		out = make([]float64, len(data))
		for i, v := range data {
			out[i] = float64(v)
		}
	case 16:
		var data []int16
		if err := img.Read(&data); err != nil {
			return nil, fmt.Errorf("failed to read image data: %w", err)
		}
		out = make([]float64, len(data))
		for i, v := range data {
			out[i] = float64(v)
		}
	case 8:
		var data []uint8
		if err := img.Read(&data); err != nil {
			return nil, fmt.Errorf("failed to read image data: %w", err)
		}
		out = make([]float64, len(data))
		for i, v := range data {
			out[i] = float64(v)
		}
	default:
		return nil, fmt.Errorf("unsupported BITPIX %d", bitpix)
	}
	if len(out) != n {
		return nil, fmt.Errorf("image payload has %d samples, want %d", len(out), n)
	}
	return out, nil
}
