package medipix

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Configuration struct {
	Verbosity        int       `json:"verbosity" yaml:"verbosity"`
	Mode             Mode      `json:"mode" yaml:"mode"`
	Timed            bool      `json:"timed" yaml:"timed"`
	PixelsX          int       `json:"pixels_x" yaml:"pixels_x"`
	PixelsY          int       `json:"pixels_y" yaml:"pixels_y"`
	PixelPitch       float64   `json:"pixel_pitch" yaml:"pixel_pitch"`
	PsfSigma         float64   `json:"psf_sigma" yaml:"psf_sigma"`
	Th0              float64   `json:"th0" yaml:"th0"`
	Th1              float64   `json:"th1" yaml:"th1"`
	DispersionSigma  float64   `json:"dispersion_sigma" yaml:"dispersion_sigma"`
	IKrum            int       `json:"i_krum" yaml:"i_krum"`
	SamplesPerUs     int       `json:"samples_per_us" yaml:"samples_per_us"`
	Radius           int       `json:"radius" yaml:"radius"`
	Seed             uint64    `json:"seed" yaml:"seed"`
	NumWorkers       int       `json:"num_workers" yaml:"num_workers"`
	Energy           float64   `json:"energy" yaml:"energy"`
	ExposureTime     float64   `json:"exposure_time" yaml:"exposure_time"`
	FluxDensities    []float64 `json:"flux_densities" yaml:"flux_densities"`
	Pattern          string    `json:"pattern" yaml:"pattern"`
	EdgeSlope        float64   `json:"edge_slope" yaml:"edge_slope"`
	EdgeOffset       float64   `json:"edge_offset" yaml:"edge_offset"`
	Period           float64   `json:"period" yaml:"period"`
	Phase            float64   `json:"phase" yaml:"phase"`
	DirectionX       float64   `json:"direction_x" yaml:"direction_x"`
	DirectionY       float64   `json:"direction_y" yaml:"direction_y"`
	FileOut          string    `json:"file_out" yaml:"file_out"`
	RawDir           string    `json:"raw_dir" yaml:"raw_dir"`
	SignalPixels     [][2]int  `json:"signal_pixels" yaml:"signal_pixels"`
	CompressionLevel int       `json:"compression_level" yaml:"compression_level"`
	Driver           string    `json:"driver" yaml:"driver"`
	DSN              string    `json:"dsn" yaml:"dsn"`
	Host             string    `json:"host" yaml:"host"`
	User             string    `json:"user" yaml:"user"`
	Passwd           string    `json:"pass" yaml:"pass"`
	DBName           string    `json:"dbname" yaml:"dbname"`
	PlotDir          string    `json:"plot_dir" yaml:"plot_dir"`
}

// DefaultConfiguration returns the Medipix3 defaults: 55 um pitch, 256x256
// pixels, 13 um charge cloud and a 6 keV threshold.
func DefaultConfiguration() Configuration {
	return Configuration{
		Verbosity:        0,
		Mode:             SinglePixelMode,
		Timed:            false,
		PixelsX:          256,
		PixelsY:          256,
		PixelPitch:       55,
		PsfSigma:         13,
		Th0:              6,
		Th1:              6,
		DispersionSigma:  0,
		IKrum:            DefaultIKrum,
		SamplesPerUs:     DefaultSamplesPerUs,
		Radius:           3,
		Seed:             1,
		NumWorkers:       1,
		Energy:           30,
		ExposureTime:     0.01,
		FluxDensities:    []float64{1e6},
		Pattern:          "homogeneous",
		DirectionX:       1,
		CompressionLevel: 4,
		Driver:           "sqlite",
		DSN:              "medipix.db",
	}
}

func (c Configuration) Validate() error {
	if c.PixelsX <= 0 {
		return argumentError("pixels_x", c.PixelsX, "must be positive")
	}
	if c.PixelsY <= 0 {
		return argumentError("pixels_y", c.PixelsY, "must be positive")
	}
	if !(c.PixelPitch > 0) || math.IsInf(c.PixelPitch, 0) {
		return argumentError("pixel_pitch", c.PixelPitch, "must be positive")
	}
	if !(c.PsfSigma > 0) || math.IsInf(c.PsfSigma, 0) {
		return argumentError("psf_sigma", c.PsfSigma, "must be positive")
	}
	if c.DispersionSigma < 0 || math.IsNaN(c.DispersionSigma) {
		return argumentError("dispersion_sigma", c.DispersionSigma, "must not be negative")
	}
	if err := checkIKrum(c.IKrum); err != nil {
		return err
	}
	if c.SamplesPerUs <= 0 {
		return argumentError("samples_per_us", c.SamplesPerUs, "must be positive")
	}
	if c.Radius < 0 {
		return argumentError("radius", c.Radius, "must not be negative")
	}
	if c.NumWorkers < 1 {
		return argumentError("num_workers", c.NumWorkers, "must be at least 1")
	}
	if c.Mode != SinglePixelMode && c.Mode != ChargeSummingMode {
		return argumentError("mode", c.Mode, "unknown counting mode")
	}
	if c.ExposureTime < 0 {
		return argumentError("exposure_time", c.ExposureTime, "must not be negative")
	}
	for _, f := range c.FluxDensities {
		if f < 0 {
			return argumentError("flux_densities", f, "must not be negative")
		}
	}
	switch c.Pattern {
	case "", "homogeneous", "edge":
	case "frequency":
		if c.Period <= 0 {
			return argumentError("period", c.Period, "must be positive")
		}
		if c.DirectionX == 0 && c.DirectionY == 0 {
			return argumentError("direction", [2]float64{c.DirectionX, c.DirectionY}, "must not be zero")
		}
	default:
		return argumentError("pattern", c.Pattern, "unknown exposure pattern")
	}
	return nil
}

// LoadConfiguration reads a JSON or YAML (.yaml, .yml) file on top of the
// defaults.
func LoadConfiguration(filename string) (Configuration, error) {
	config := DefaultConfiguration()

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, &ErrOpenFile{Filename: filename, Err: err}
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return config, fmt.Errorf("error parsing %q: %w", filename, err)
	}
	return config, config.Validate()
}

var configuration = DefaultConfiguration()

func GetConfiguration() Configuration {
	return configuration
}

func SetConfiguration(config Configuration) {
	configuration = config
}

// NewSensorFromConfig builds a sensor and applies thresholds, charge cloud,
// gain and threshold dispersion from the configuration.
func NewSensorFromConfig(c Configuration) (*Sensor, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	s, err := NewSensor(SensorOptions{
		Mode:         c.Mode,
		Timed:        c.Timed,
		PixelsX:      c.PixelsX,
		PixelsY:      c.PixelsY,
		PixelPitch:   c.PixelPitch,
		SamplesPerUs: c.SamplesPerUs,
		Seed:         c.Seed,
	})
	if err != nil {
		return nil, err
	}
	steps := []func() error{
		func() error { return s.SetPsfSigma(c.PsfSigma) },
		func() error { return s.SetTh0(c.Th0) },
		func() error { return s.SetTh1(c.Th1) },
		func() error { return s.SetIKrum(c.IKrum) },
		func() error { return s.RandomThresholdDispersion(c.DispersionSigma) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, fmt.Errorf("error configuring sensor: %w", err)
		}
	}
	return s, nil
}

func PrintConfiguration(config Configuration, logger Logger) {
	logger.Info(fmt.Sprintf("Mode: %s", config.Mode), "config")
	logger.Info(fmt.Sprintf("Timed: %t", config.Timed), "config")
	logger.Info(fmt.Sprintf("Pixels: %dx%d", config.PixelsX, config.PixelsY), "config")
	logger.Info(fmt.Sprintf("Pixel pitch: %g um", config.PixelPitch), "config")
	logger.Info(fmt.Sprintf("PSF sigma: %g um", config.PsfSigma), "config")
	logger.Info(fmt.Sprintf("Th0: %g keV", config.Th0), "config")
	logger.Info(fmt.Sprintf("Th1: %g keV", config.Th1), "config")
	logger.Info(fmt.Sprintf("Dispersion sigma: %g keV", config.DispersionSigma), "config")
	logger.Info(fmt.Sprintf("IKrum: %d", config.IKrum), "config")
	logger.Info(fmt.Sprintf("Samples per us: %d", config.SamplesPerUs), "config")
	logger.Info(fmt.Sprintf("Radius: %d", config.Radius), "config")
	logger.Info(fmt.Sprintf("Seed: %d", config.Seed), "config")
	logger.Info(fmt.Sprintf("Number of workers: %d", config.NumWorkers), "config")
	logger.Info(fmt.Sprintf("Energy: %g keV", config.Energy), "config")
	logger.Info(fmt.Sprintf("Exposure time: %g s", config.ExposureTime), "config")
	logger.Info(fmt.Sprintf("Flux densities: %v", config.FluxDensities), "config")
	logger.Info(fmt.Sprintf("Pattern: %s", config.Pattern), "config")
	logger.Info(fmt.Sprintf("File out: %s", config.FileOut), "config")
	logger.Info(fmt.Sprintf("Raw dir: %s", config.RawDir), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
}
