package main

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	medipix "github.com/next-exp/medipix_go/pkg"
	"github.com/next-exp/medipix_go/pkg/hdf5writer"
	"github.com/next-exp/medipix_go/pkg/plots"
	"github.com/next-exp/medipix_go/pkg/store"
)

// frameResult is the readout of one finished frame.
type frameResult struct {
	Image       []uint32
	Spectrum    []float64
	RealPhotons uint64
	TotalCounts uint64
	MaxTime     float64
}

// takeFrame exposes the sensor to one flux density and reads it out.
func takeFrame(sensor *medipix.Sensor, exposure medipix.Exposure, src rand.Source, numWorkers int) (frameResult, error) {
	if err := sensor.StartFrame(); err != nil {
		return frameResult{}, err
	}
	if _, err := exposure.Run(sensor, src, numWorkers); err != nil {
		return frameResult{}, errors.Join(err, sensor.FinishFrame())
	}
	if err := sensor.FinishFrame(); err != nil {
		return frameResult{}, err
	}

	var result frameResult
	var err error
	if result.Image, err = sensor.Image(); err != nil {
		return result, err
	}
	if result.TotalCounts, err = sensor.TotalCounts(); err != nil {
		return result, err
	}
	if result.Spectrum, err = sensor.Spectrum(); err != nil {
		return result, err
	}
	result.RealPhotons = sensor.RealPhotons()
	result.MaxTime = sensor.MaxEventTime()
	return result, nil
}

func loadCalibration(c medipix.Configuration) ([]medipix.CalibrationPoint, error) {
	db, err := store.ConnectFromConfig(c)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return db.LoadCalibration()
}

// simulate takes one frame per configured flux density and writes the
// HDF5 file, raw files and plots the configuration asks for.
func simulate(c medipix.Configuration, calibrationDB bool) (err error) {
	sensor, err := medipix.NewSensorFromConfig(c)
	if err != nil {
		return fmt.Errorf("error creating sensor: %w", err)
	}
	if calibrationDB {
		table, err := loadCalibration(c)
		if err != nil {
			return fmt.Errorf("error loading calibration: %w", err)
		}
		if err := sensor.SetCalibration(table); err != nil {
			return err
		}
	}

	var writer *hdf5writer.Writer
	if c.FileOut != "" {
		writer, err = hdf5writer.NewWriter(c.FileOut, c.PixelsX, c.PixelsY, c.CompressionLevel)
		if err != nil {
			return err
		}
		defer closeJoin(&err, writer)
		if err := writer.WriteRunInfo(uuid.NewString(), c); err != nil {
			return err
		}
	}
	for _, dir := range []string{c.RawDir, c.PlotDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	src := rand.NewPCG(c.Seed, c.Seed+2)
	spectra := make([]plots.Series, 0, len(c.FluxDensities))
	for k, flux := range c.FluxDensities {
		start := time.Now()
		exposure := medipix.ExposureFromConfig(c, flux)
		result, err := takeFrame(sensor, exposure, src, c.NumWorkers)
		if err != nil {
			return fmt.Errorf("frame %d: %w", k, err)
		}
		if c.Verbosity > 0 {
			message := fmt.Sprintf("Frame %d: flux %g, %d photons, %d counts, %d ms",
				k, flux, result.RealPhotons, result.TotalCounts, time.Since(start).Milliseconds())
			logger.Info(message, "simulate")
		}

		if writer != nil {
			frame := hdf5writer.Frame{
				Image:       result.Image,
				Spectrum:    result.Spectrum,
				FluxDensity: flux,
				RealPhotons: result.RealPhotons,
				TotalCounts: result.TotalCounts,
				MaxTime:     result.MaxTime,
			}
			if err := writer.WriteFrame(frame); err != nil {
				return err
			}
		}
		if err := writeRaw(sensor, c, k); err != nil {
			return err
		}
		if err := writeSignals(sensor, c, writer, k); err != nil {
			return err
		}
		if c.PlotDir != "" {
			filename := filepath.Join(c.PlotDir, fmt.Sprintf("image_%d.png", k))
			if err := plots.Image(filename, fmt.Sprintf("Flux %g", flux), result.Image, c.PixelsX, c.PixelsY); err != nil {
				return err
			}
			spectra = append(spectra, plots.RadiusSeries(fmt.Sprintf("%g", flux), result.Spectrum))
		}
	}

	if c.PlotDir != "" && len(spectra) > 0 {
		return plots.Spectrum(filepath.Join(c.PlotDir, "spectra.png"), "Radial spectrum", spectra)
	}
	return nil
}

// closeJoin closes c and joins its error into *err.
func closeJoin(err *error, c io.Closer) {
	*err = errors.Join(*err, c.Close())
}

func writeRaw(sensor *medipix.Sensor, c medipix.Configuration, frame int) error {
	if c.RawDir == "" {
		return nil
	}
	if err := sensor.SaveImage(filepath.Join(c.RawDir, fmt.Sprintf("image_%d.raw", frame))); err != nil {
		return err
	}
	return sensor.SaveSpectrum(filepath.Join(c.RawDir, fmt.Sprintf("spectrum_%d.raw", frame)))
}

// writeSignals dumps the traces of the configured pixels in timed mode.
func writeSignals(sensor *medipix.Sensor, c medipix.Configuration, writer *hdf5writer.Writer, frame int) error {
	if !c.Timed {
		return nil
	}
	for _, px := range c.SignalPixels {
		i, j := px[0], px[1]
		if c.RawDir != "" {
			filename := filepath.Join(c.RawDir, fmt.Sprintf("signal_%d_%d_%d.raw", frame, i, j))
			if err := sensor.SavePixelSignal(filename, i, j); err != nil {
				return err
			}
		}
		if writer != nil {
			signal, err := sensor.PixelSignal(i, j)
			if err != nil {
				return err
			}
			if err := writer.WriteSignal(frame, i, j, signal); err != nil {
				return err
			}
		}
	}
	return nil
}
