package dynspec

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// psrflux sample columns: sub-integration index, channel index, time in
// minutes, frequency in MHz, flux, flux error.
const psrfluxColumns = 6

// Load reads a psrflux dynamic spectrum from the named file.
func Load(path string, opts ...Option) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dynspec: failed to open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f, filepath.Base(path), opts...)
}

// Read parses a psrflux dynamic spectrum. Comment lines form the header and
// must carry the observation epoch as "MJD0: <value>". Samples may appear in
// any order; each is placed by its channel and sub-integration index. A
// descending frequency axis is flipped so that channel rows always ascend
// in frequency.
func Read(src io.Reader, name string, opts ...Option) (*Record, error) {
	var (
		header    []string
		mjd       float64
		gotMJD    bool
		subIdx    []int
		chanIdx   []int
		timesMin  []float64
		freqsRaw  []float64
		fluxes    []float64
		fluxErrs  []float64
		maxSub    = -1
		maxChan   = -1
		lineCount int
	)

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineCount++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			head := strings.TrimSpace(strings.TrimPrefix(line, "#"))
			header = append(header, head)
			fields := strings.Fields(head)
			if len(fields) >= 2 && fields[0] == "MJD0:" {
				v, err := strconv.ParseFloat(fields[1], 64)
				if err != nil {
					return nil, fmt.Errorf("dynspec: bad MJD0 value on line %d: %w", lineCount, err)
				}
				mjd = v
				gotMJD = true
			}
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < psrfluxColumns {
			return nil, fmt.Errorf("dynspec: line %d has %d columns, want %d", lineCount, len(fields), psrfluxColumns)
		}
		vals := make([]float64, psrfluxColumns)
		for i := 0; i < psrfluxColumns; i++ {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, fmt.Errorf("dynspec: bad value %q on line %d: %w", fields[i], lineCount, err)
			}
			vals[i] = v
		}
		isub, ichan := int(vals[0]), int(vals[1])
		subIdx = append(subIdx, isub)
		chanIdx = append(chanIdx, ichan)
		timesMin = append(timesMin, vals[2])
		freqsRaw = append(freqsRaw, vals[3])
		fluxes = append(fluxes, vals[4])
		fluxErrs = append(fluxErrs, vals[5])
		if isub > maxSub {
			maxSub = isub
		}
		if ichan > maxChan {
			maxChan = ichan
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("dynspec: failed to read %s: %w", name, err)
	}
	if len(fluxes) == 0 {
		return nil, fmt.Errorf("%w: %s has no samples", ErrEmpty, name)
	}
	if !gotMJD {
		return nil, fmt.Errorf("%w: %s", ErrNoEpoch, name)
	}

	nsub, nchan := maxSub+1, maxChan+1
	if len(fluxes) != nsub*nchan {
		return nil, fmt.Errorf("%w: %d samples for %d channels x %d sub-integrations",
			ErrShape, len(fluxes), nchan, nsub)
	}

	times := uniqueSorted(timesMin)
	for i := range times {
		times[i] *= 60 // minutes to seconds
	}
	freqs := uniqueSorted(freqsRaw)
	if len(times) != nsub || len(freqs) != nchan {
		return nil, fmt.Errorf("%w: %d unique times for %d sub-integrations, %d unique frequencies for %d channels",
			ErrShape, len(times), nsub, len(freqs), nchan)
	}

	// Bandwidth sign follows the raw file order: a descending frequency
	// column yields negative df and triggers the flip below.
	bw := freqsRaw[len(freqsRaw)-1] - freqsRaw[0]
	df := round(bw/float64(nchan), 5)
	bw = round(bw+df, 2)

	tobs := times[len(times)-1]
	dt := math.Round(tobs / float64(nsub))
	tobs = dt * float64(nsub)

	dyn := mat.NewDense(nchan, nsub, nil)
	errGrid := mat.NewDense(nchan, nsub, nil)
	for k := range fluxes {
		dyn.Set(chanIdx[k], subIdx[k], fluxes[k])
		errGrid.Set(chanIdx[k], subIdx[k], fluxErrs[k])
	}
	if df < 0 {
		df = -df
		bw = -bw
		flipRows(dyn)
		flipRows(errGrid)
	}

	r := &Record{
		Name:    name,
		Header:  header,
		Times:   times,
		Freqs:   freqs,
		Dyn:     dyn,
		FluxErr: errGrid,
		MJD:     mjd,
		Freq:    round(stat.Mean(freqs, nil), 2),
		BW:      bw,
		DF:      df,
		DT:      dt,
		Tobs:    tobs,
	}
	r.Valid = finiteMask(r.Dyn)
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// uniqueSorted returns the distinct values of s in ascending order.
func uniqueSorted(s []float64) []float64 {
	out := append([]float64(nil), s...)
	sort.Float64s(out)
	n := 0
	for i, v := range out {
		if i == 0 || v != out[n-1] {
			out[n] = v
			n++
		}
	}
	return out[:n]
}

// flipRows reverses the row order of m in place.
func flipRows(m *mat.Dense) {
	rows, cols := m.Dims()
	for i := 0; i < rows/2; i++ {
		top := m.RawRowView(i)
		bot := m.RawRowView(rows - 1 - i)
		for j := 0; j < cols; j++ {
			top[j], bot[j] = bot[j], top[j]
		}
	}
}
