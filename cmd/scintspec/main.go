// Command scintspec processes pulsar dynamic spectra: it loads one or more
// psrflux or FITS files, runs the standard pipeline, fits the scattering
// arc and the scintillation scales, and optionally writes plots.
//
// Usage:
//
//	scintspec [flags] file [file ...]
//
// Multiple files are combined into one observation before processing.
//
// Examples:
//
//	scintspec obs.dynspec
//	scintspec -lambda -plots out part1.dynspec part2.dynspec
//	scintspec -config pipeline.yaml -v obs.fits
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ramain/scintools/arc"
	"github.com/ramain/scintools/dynspec"
	"github.com/ramain/scintools/render"
	"github.com/ramain/scintools/scintfit"
	"github.com/ramain/scintools/sspec"
)

// Config mirrors the optional YAML pipeline file. Zero values defer to the
// library defaults.
type Config struct {
	Lambda bool `yaml:"lambda"`
	Raw    bool `yaml:"raw"`

	Zap ZapConfig `yaml:"zap"`
	Arc ArcConfig `yaml:"arc"`
}

// ZapConfig selects the RFI excision pass. An empty method skips it.
type ZapConfig struct {
	Method string  `yaml:"method"` // "median" or "medfilt"
	Sigma  float64 `yaml:"sigma"`
	M      int     `yaml:"m"`
}

// ArcConfig carries the curvature search window.
type ArcConfig struct {
	DelMax      float64 `yaml:"delmax"`
	EtaMax      float64 `yaml:"etamax"`
	SqrtEtaStep float64 `yaml:"sqrtEtaStep"`
	StartBin    int     `yaml:"startBin"`
}

func main() {
	configPath := flag.String("config", "", "YAML pipeline configuration file")
	lambda := flag.Bool("lambda", false, "build the wavelength-rescaled secondary spectrum")
	raw := flag.Bool("raw", false, "skip pre-whitening of the secondary spectrum")
	plotDir := flag.String("plots", "", "write plots into this directory")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: scintspec [flags] file [file ...]\n\n")
		fmt.Fprintf(os.Stderr, "Processes pulsar dynamic spectra: standard pipeline, scattering-arc\n")
		fmt.Fprintf(os.Stderr, "curvature and scintillation scales. Multiple files are combined into\n")
		fmt.Fprintf(os.Stderr, "one observation before processing.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  scintspec obs.dynspec\n")
		fmt.Fprintf(os.Stderr, "  scintspec -lambda -plots out part1.dynspec part2.dynspec\n")
		fmt.Fprintf(os.Stderr, "  scintspec -config pipeline.yaml -v obs.fits\n")
	}
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	var cfg Config
	if *configPath != "" {
		c, err := loadConfig(*configPath)
		if err != nil {
			logger.Error(err.Error())
			os.Exit(1)
		}
		cfg = *c
	}
	if *lambda {
		cfg.Lambda = true
	}
	if *raw {
		cfg.Raw = true
	}

	if err := run(cfg, flag.Args(), *plotDir, logger); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

// loadConfig reads the YAML pipeline file, rejecting unknown keys so typos
// fail loudly.
func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scintspec: failed to read config: %w", err)
	}
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("scintspec: failed to parse config %s: %w", path, err)
	}
	return &cfg, nil
}

func run(cfg Config, paths []string, plotDir string, logger *slog.Logger) error {
	r, err := loadAll(paths, logger)
	if err != nil {
		return err
	}
	if cfg.Zap.Method != "" {
		if err := r.Zap(dynspec.ZapParams{Method: cfg.Zap.Method, Sigma: cfg.Zap.Sigma, M: cfg.Zap.M}); err != nil {
			return err
		}
	}

	fmt.Println(r.Info())

	an, err := sspec.Process(r, sspec.ProcessConfig{Lambda: cfg.Lambda, Raw: cfg.Raw})
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("DERIVED PARAMETERS")
	fmt.Println()

	if tau, err := scintfit.FitTimescale(an.ACF, scintfit.TimescaleConfig{}); err != nil {
		logger.Warn("timescale fit failed", "err", err)
	} else {
		fmt.Printf("Scintillation timescale (s):    %.4g\n", tau.Tau)
	}
	if dnu, err := scintfit.FitBandwidth(an.ACF, scintfit.BandwidthConfig{FitWN: true}); err != nil {
		logger.Warn("bandwidth fit failed", "err", err)
	} else {
		fmt.Printf("Decorrelation bandwidth (MHz):  %.4g\n", dnu.Dnu)
	}

	eta := 0.0
	var prof *arc.Profile
	res, err := arc.Fit(an.Spec, arc.FitConfig{
		DelMax:      cfg.Arc.DelMax,
		EtaMax:      cfg.Arc.EtaMax,
		SqrtEtaStep: cfg.Arc.SqrtEtaStep,
		StartBin:    cfg.Arc.StartBin,
	})
	if err != nil {
		logger.Warn("arc fit failed", "err", err)
	} else {
		eta = res.Eta
		unit := "us/mHz^2"
		if cfg.Lambda {
			unit = "1/(m mHz^2)"
		}
		fmt.Printf("Arc curvature (%s):       %.4g\n", unit, res.Eta)
		fmt.Printf("  negative-Doppler branch:      %.4g\n", res.EtaL)
		fmt.Printf("  positive-Doppler branch:      %.4g\n", res.EtaR)

		prof, err = arc.Normalize(an.Spec, arc.NormConfig{
			Eta:      res.Eta,
			DelMax:   cfg.Arc.DelMax,
			StartBin: cfg.Arc.StartBin,
		})
		if err != nil {
			logger.Warn("arc normalization failed", "err", err)
			prof = nil
		}
	}

	if plotDir != "" {
		return writePlots(plotDir, an, eta, prof, logger)
	}
	return nil
}

// loadAll reads every input and combines them into one record in argument
// order.
func loadAll(paths []string, logger *slog.Logger) (*dynspec.Record, error) {
	var combined *dynspec.Record
	for _, path := range paths {
		r, err := loadOne(path, logger)
		if err != nil {
			return nil, err
		}
		logger.Debug("loaded", "file", r.Name, "nchan", r.Nchan(), "nsub", r.Nsub())
		if combined == nil {
			combined = r
			continue
		}
		combined, err = dynspec.Combine(combined, r)
		if err != nil {
			return nil, err
		}
	}
	return combined, nil
}

// loadOne picks the reader by extension: FITS images by .fits/.fit,
// psrflux text otherwise.
func loadOne(path string, logger *slog.Logger) (*dynspec.Record, error) {
	opt := dynspec.WithLogger(logger)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".fits", ".fit":
		return dynspec.LoadFITS(path, opt)
	default:
		return dynspec.Load(path, opt)
	}
}

// writePlots renders the pipeline products into dir. A zero eta leaves the
// secondary spectrum without an arc overlay.
func writePlots(dir string, an *sspec.Analysis, eta float64, prof *arc.Profile, logger *slog.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("scintspec: failed to create plot directory: %w", err)
	}
	if err := render.Dynspec(an.Record, filepath.Join(dir, "dynspec.png")); err != nil {
		return err
	}
	if err := render.ACF(an.ACF, filepath.Join(dir, "acf.png")); err != nil {
		return err
	}
	if err := render.Spectrum(an.Spec, eta, filepath.Join(dir, "sspec.png")); err != nil {
		return err
	}
	if prof != nil {
		if err := render.Profile(prof, filepath.Join(dir, "profile.png")); err != nil {
			return err
		}
	}
	logger.Info("wrote plots", "dir", dir)
	return nil
}
